package indexdb

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"robogrid.ai/internal/persistence/snapshot"
	"robogrid.ai/internal/sim/world"
)

func openTemp(t *testing.T) (*SQLiteIndex, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	return idx, path
}

func query(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLiteIndex_Rounds(t *testing.T) {
	idx, path := openTemp(t)
	for i := 0; i < 3; i++ {
		e := world.RoundLogEntry{WorldID: "w1", Round: uint64(i), Population: 9, Moves: 9 - i, Digest: "abc"}
		if i == 2 {
			e.Removed = []world.AgentID{4, 7}
			e.Population = 7
		}
		if err := idx.WriteRound(e); err != nil {
			t.Fatalf("WriteRound: %v", err)
		}
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db := query(t, path)
	var n, moves int
	if err := db.QueryRow(`SELECT COUNT(*), SUM(moves) FROM rounds WHERE world_id='w1'`).Scan(&n, &moves); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if n != 3 || moves != 24 {
		t.Fatalf("rounds=%d moves=%d", n, moves)
	}
	var removed int
	if err := db.QueryRow(`SELECT COUNT(*) FROM removals WHERE world_id='w1' AND round=2`).Scan(&removed); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removals=%d want 2", removed)
	}
}

func TestSQLiteIndex_SnapshotsRunsArchives(t *testing.T) {
	idx, path := openTemp(t)
	snap := snapshot.SnapshotV1{
		Header:  snapshot.Header{Version: snapshot.Version, WorldID: "w1", Round: 40},
		Program: "disperse",
		Size:    3,
		Seed:    42,
		Agents:  []snapshot.AgentV1{{ID: 0, Done: true}, {ID: 1}},
	}
	idx.RecordSnapshot("/abs/w1/40.snap.zst", snap)
	idx.RecordRun(RunRecord{WorldID: "w1", Program: "disperse", Size: 3, Agents: 9, Seed: 42, Rounds: 28, Done: true, Dispersed: true, Survivors: 9})
	idx.RecordRun(RunRecord{WorldID: "w1", Program: "disperse", Size: 3, Agents: 9, Seed: 43, Rounds: 28, Done: true, Dispersed: true, Survivors: 9})
	idx.RecordArchive("w1", 40, "/abs/archive/w1/40.snap.zst")
	if err := idx.UpsertConfig("tuning", map[string]int{"size": 3}); err != nil {
		t.Fatalf("UpsertConfig: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db := query(t, path)
	var (
		program     string
		agents, dn  int
		runs        int
		archivePath string
		cfgJSON     string
	)
	if err := db.QueryRow(`SELECT program,agents,done_agents FROM snapshots WHERE world_id='w1' AND round=40`).Scan(&program, &agents, &dn); err != nil {
		t.Fatalf("snapshots: %v", err)
	}
	if program != "disperse" || agents != 2 || dn != 1 {
		t.Fatalf("snapshot row: %s %d %d", program, agents, dn)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM runs WHERE program='disperse' AND size=3 AND dispersed=1`).Scan(&runs); err != nil {
		t.Fatalf("runs: %v", err)
	}
	if runs != 2 {
		t.Fatalf("runs=%d want 2", runs)
	}
	if err := db.QueryRow(`SELECT snapshot_path FROM archives WHERE world_id='w1'`).Scan(&archivePath); err != nil {
		t.Fatalf("archives: %v", err)
	}
	if archivePath != "/abs/archive/w1/40.snap.zst" {
		t.Fatalf("archive path %q", archivePath)
	}
	if err := db.QueryRow(`SELECT json FROM configs WHERE name='tuning'`).Scan(&cfgJSON); err != nil {
		t.Fatalf("configs: %v", err)
	}
	if cfgJSON != `{"size":3}` {
		t.Fatalf("config json %q", cfgJSON)
	}
}

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqRound}

	_ = s.WriteRound(world.RoundLogEntry{Round: 2})
	s.RecordSnapshot("/tmp/2.snap.zst", snapshot.SnapshotV1{})
	s.RecordRun(RunRecord{})
	s.RecordArchive("w", 2, "/tmp/2.snap.zst")

	st := s.Stats()
	if st.DropRoundTotal != 1 || st.DropSnapshotTotal != 1 || st.DropRunTotal != 1 || st.DropArchiveTotal != 1 {
		t.Fatalf("drops: %+v", st)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}
