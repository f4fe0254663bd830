package log

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"robogrid.ai/internal/sim/world"
)

func TestRoundLogger_RotatesHourlyAndScans(t *testing.T) {
	dir := t.TempDir()
	l := NewRoundLogger(dir)
	clock := time.Date(2024, 3, 1, 10, 59, 0, 0, time.UTC)
	l.w.now = func() time.Time { return clock }

	var want []world.RoundLogEntry
	for i := 0; i < 4; i++ {
		if i == 2 {
			clock = clock.Add(2 * time.Minute)
		}
		e := world.RoundLogEntry{WorldID: "w", Round: uint64(i), Population: 9, Moves: i, Digest: "d"}
		if i == 3 {
			e.Removed = []world.AgentID{4}
			e.Done = true
		}
		want = append(want, e)
		if err := l.WriteRound(e); err != nil {
			t.Fatalf("WriteRound: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files, err := RoundFiles(dir)
	if err != nil {
		t.Fatalf("RoundFiles: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("files=%v want 2", files)
	}
	if got := filepath.Base(files[0]); got != "rounds-2024-03-01-10.jsonl.zst" {
		t.Fatalf("first file %q", got)
	}

	var got []world.RoundLogEntry
	if err := ScanRounds(dir, func(e world.RoundLogEntry) error {
		got = append(got, e)
		return nil
	}); err != nil {
		t.Fatalf("ScanRounds: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("entries (-want +got):\n%s", diff)
	}
}

func TestRoundLogger_ReopenSameHour(t *testing.T) {
	dir := t.TempDir()
	fixed := func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }
	for i := 0; i < 2; i++ {
		l := NewRoundLogger(dir)
		l.w.now = fixed
		if err := l.WriteRound(world.RoundLogEntry{Round: uint64(i)}); err != nil {
			t.Fatalf("WriteRound: %v", err)
		}
		_ = l.Close()
	}
	n := 0
	if err := ScanRounds(dir, func(world.RoundLogEntry) error { n++; return nil }); err != nil {
		t.Fatalf("ScanRounds: %v", err)
	}
	if n != 2 {
		t.Fatalf("read %d entries want 2", n)
	}
}

type failing struct{ calls int }

func (f *failing) WriteRound(world.RoundLogEntry) error {
	f.calls++
	return errors.New("disk full")
}

func TestTee_CallsEveryLogger(t *testing.T) {
	a, b := &failing{}, &failing{}
	err := Tee{a, nil, b}.WriteRound(world.RoundLogEntry{})
	if err == nil || a.calls != 1 || b.calls != 1 {
		t.Fatalf("err=%v calls=%d,%d", err, a.calls, b.calls)
	}
}
