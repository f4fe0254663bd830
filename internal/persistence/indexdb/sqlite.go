package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"robogrid.ai/internal/persistence/snapshot"
	"robogrid.ai/internal/sim/world"
)

// SQLiteIndex is a queryable secondary index over round logs, snapshots and
// finished runs. Writes are queued and applied by one goroutine in batched
// transactions; the JSONL logs stay the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropRound    atomic.Uint64
	dropSnapshot atomic.Uint64
	dropRun      atomic.Uint64
	dropArchive  atomic.Uint64
}

type reqKind int

const (
	reqRound reqKind = iota + 1
	reqSnapshot
	reqRun
	reqArchive
)

type req struct {
	kind reqKind

	round    world.RoundLogEntry
	snapshot snapshotRow
	run      RunRecord
	archive  archiveRow
}

type snapshotRow struct {
	WorldID    string
	Round      uint64
	Path       string
	Program    string
	Size       int
	Seed       int64
	Agents     int
	DoneAgents int
}

type archiveRow struct {
	WorldID    string
	Round      uint64
	Path       string
	RecordedAt string
}

// RunRecord summarises one finished (or abandoned) run.
type RunRecord struct {
	WorldID    string
	Program    string
	Size       int
	Agents     int
	Unoriented bool
	FaultRate  float64
	Seed       int64
	Rounds     uint64
	Done       bool
	Dispersed  bool
	Survivors  int
}

type Stats struct {
	QueueDepth    int
	QueueCapacity int

	DropRoundTotal    uint64
	DropSnapshotTotal uint64
	DropRunTotal      uint64
	DropArchiveTotal  uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS configs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS rounds (
			world_id TEXT NOT NULL,
			round INTEGER NOT NULL,
			population INTEGER NOT NULL,
			moves INTEGER NOT NULL,
			removed INTEGER NOT NULL,
			done INTEGER NOT NULL,
			digest TEXT NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (world_id, round)
		);`,
		`CREATE TABLE IF NOT EXISTS removals (
			world_id TEXT NOT NULL,
			round INTEGER NOT NULL,
			agent_id INTEGER NOT NULL,
			PRIMARY KEY (world_id, round, agent_id)
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			world_id TEXT NOT NULL,
			round INTEGER NOT NULL,
			path TEXT NOT NULL,
			program TEXT NOT NULL,
			size INTEGER NOT NULL,
			seed INTEGER NOT NULL,
			agents INTEGER NOT NULL,
			done_agents INTEGER NOT NULL,
			PRIMARY KEY (world_id, round)
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			world_id TEXT NOT NULL,
			program TEXT NOT NULL,
			size INTEGER NOT NULL,
			agents INTEGER NOT NULL,
			unoriented INTEGER NOT NULL,
			fault_rate REAL NOT NULL,
			seed INTEGER NOT NULL,
			rounds INTEGER NOT NULL,
			done INTEGER NOT NULL,
			dispersed INTEGER NOT NULL,
			survivors INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_program_size ON runs(program, size);`,
		`CREATE TABLE IF NOT EXISTS archives (
			world_id TEXT NOT NULL,
			round INTEGER NOT NULL,
			snapshot_path TEXT NOT NULL,
			recorded_at TEXT NOT NULL,
			PRIMARY KEY (world_id, round)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropRoundTotal:    s.dropRound.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
		DropRunTotal:      s.dropRun.Load(),
		DropArchiveTotal:  s.dropArchive.Load(),
	}
}

// enqueue never blocks the simulation: a full queue drops the request.
func (s *SQLiteIndex) enqueue(r req, drops *atomic.Uint64) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		drops.Add(1)
	}
}

// WriteRound implements world.RoundLogger.
func (s *SQLiteIndex) WriteRound(entry world.RoundLogEntry) error {
	if s == nil {
		return nil
	}
	s.enqueue(req{kind: reqRound, round: entry}, &s.dropRound)
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil {
		return
	}
	agents, done := snap.Counts()
	s.enqueue(req{kind: reqSnapshot, snapshot: snapshotRow{
		WorldID:    snap.Header.WorldID,
		Round:      snap.Header.Round,
		Path:       path,
		Program:    snap.Program,
		Size:       snap.Size,
		Seed:       snap.Seed,
		Agents:     agents,
		DoneAgents: done,
	}}, &s.dropSnapshot)
}

func (s *SQLiteIndex) RecordRun(r RunRecord) {
	if s == nil {
		return
	}
	s.enqueue(req{kind: reqRun, run: r}, &s.dropRun)
}

func (s *SQLiteIndex) RecordArchive(worldID string, round uint64, archivedSnapshotPath string) {
	if s == nil || archivedSnapshotPath == "" {
		return
	}
	s.enqueue(req{kind: reqArchive, archive: archiveRow{
		WorldID:    worldID,
		Round:      round,
		Path:       archivedSnapshotPath,
		RecordedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}}, &s.dropArchive)
}

// UpsertConfig stores the canonical JSON of a configuration value (tuning,
// scenario matrix) with its digest. It writes synchronously.
func (s *SQLiteIndex) UpsertConfig(name string, v any) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(b)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO configs(name,digest,json,updated_at) VALUES(?,?,?,?)`,
		name, hex.EncodeToString(sum[:]), string(b), now); err != nil {
		return err
	}
	return tx.Commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertRound, _ := s.db.Prepare(`INSERT OR REPLACE INTO rounds(world_id,round,population,moves,removed,done,digest,raw_json) VALUES(?,?,?,?,?,?,?,?)`)
	insertRemoval, _ := s.db.Prepare(`INSERT OR REPLACE INTO removals(world_id,round,agent_id) VALUES(?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(world_id,round,path,program,size,seed,agents,done_agents) VALUES(?,?,?,?,?,?,?,?)`)
	insertRun, _ := s.db.Prepare(`INSERT INTO runs(world_id,program,size,agents,unoriented,fault_rate,seed,rounds,done,dispersed,survivors,recorded_at) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertArchive, _ := s.db.Prepare(`INSERT OR REPLACE INTO archives(world_id,round,snapshot_path,recorded_at) VALUES(?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertRound, insertRemoval, insertSnapshot, insertRun, insertArchive} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) bool {
		if st == nil || tx == nil {
			return false
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return false
		}
		opCount++
		return true
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqRound:
			e := r.round
			raw, _ := json.Marshal(e)
			if !exec(insertRound, e.WorldID, int64(e.Round), e.Population, e.Moves, len(e.Removed), boolInt(e.Done), e.Digest, string(raw)) {
				continue
			}
			for _, id := range e.Removed {
				if !exec(insertRemoval, e.WorldID, int64(e.Round), int64(id)) {
					break
				}
			}

		case reqSnapshot:
			sn := r.snapshot
			exec(insertSnapshot, sn.WorldID, int64(sn.Round), sn.Path, sn.Program, sn.Size, sn.Seed, sn.Agents, sn.DoneAgents)

		case reqRun:
			run := r.run
			exec(insertRun, run.WorldID, run.Program, run.Size, run.Agents, boolInt(run.Unoriented), run.FaultRate, run.Seed,
				int64(run.Rounds), boolInt(run.Done), boolInt(run.Dispersed), run.Survivors, time.Now().UTC().Format(time.RFC3339Nano))

		case reqArchive:
			a := r.archive
			exec(insertArchive, a.WorldID, int64(a.Round), a.Path, a.RecordedAt)
		}
		// Commit when idle too, so the single connection is free for UpsertConfig.
		if tx != nil && (len(s.ch) == 0 || opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}
