package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sample() SnapshotV1 {
	return SnapshotV1{
		Header:  Header{Version: Version, WorldID: "world_1", Round: 12},
		Program: "disperse",
		Size:    2,
		Seed:    5,
		Agents: []AgentV1{
			{ID: 0, Row: 0, Col: 1, Cycle: 12, Phase: 3, Data: []byte(`{"n":2}`)},
			{ID: 1, Row: 1, Col: 1, Cycle: 12, Phase: 3, Done: true},
		},
	}
}

func TestWriteReadSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots", FileName(12))
	want := sample()
	if err := WriteSnapshot(path, want); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("snapshot (-want +got):\n%s", diff)
	}
	if agents, done := got.Counts(); agents != 2 || done != 1 {
		t.Fatalf("Counts=%d,%d", agents, done)
	}
}

func TestWriteSnapshot_ReportsFailedWrite(t *testing.T) {
	// /dev/full accepts the open and fails every write with ENOSPC.
	f, err := os.OpenFile("/dev/full", os.O_WRONLY, 0)
	if err != nil {
		t.Skipf("/dev/full unavailable: %v", err)
	}
	f.Close()

	if err := WriteSnapshot("/dev/full", sample()); err == nil {
		t.Fatalf("WriteSnapshot to a full device reported success")
	}
}

func TestReadSnapshot_RejectsTruncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName(12))
	if err := WriteSnapshot(path, sample()); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if err := os.WriteFile(path, b[:len(b)/2], 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := ReadSnapshot(path); err == nil {
		t.Fatalf("truncated snapshot decoded")
	}
}
