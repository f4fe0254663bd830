package main

import (
	"strings"
	"testing"

	persistlog "robogrid.ai/internal/persistence/log"
	"robogrid.ai/internal/sim/programs"
	"robogrid.ai/internal/sim/world"
)

func recordRun(t *testing.T, dir string, cfg world.Config, before, after int, tamper func(*world.RoundLogEntry)) *world.World {
	t.Helper()
	factory, err := programs.Lookup(cfg.Program)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	w, err := world.New(cfg, factory)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rl := persistlog.NewRoundLogger(dir)
	w.SetRoundLogger(loggerFunc(func(e world.RoundLogEntry) error {
		if tamper != nil {
			tamper(&e)
		}
		return rl.WriteRound(e)
	}))
	for i := 0; i < before; i++ {
		if err := w.Cycle(); err != nil {
			t.Fatalf("Cycle: %v", err)
		}
	}
	snap, err := w.ExportSnapshot()
	if err != nil {
		t.Fatalf("ExportSnapshot: %v", err)
	}
	for i := 0; i < after; i++ {
		if err := w.Cycle(); err != nil {
			t.Fatalf("Cycle: %v", err)
		}
	}
	if err := rl.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	restored, err := world.FromSnapshot(snap, 2, factory)
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}
	return restored
}

type loggerFunc func(world.RoundLogEntry) error

func (f loggerFunc) WriteRound(e world.RoundLogEntry) error { return f(e) }

func replayConfig() world.Config {
	return world.Config{ID: "replay", Program: "measure", Size: 5, Seed: 11, ShuffleOrder: true, FaultRate: 0.1}
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	w := recordRun(t, dir, replayConfig(), 4, 12, nil)

	checked, err := verify(w, dir, 0)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if checked != 12 || w.Round() != 16 {
		t.Fatalf("checked=%d round=%d", checked, w.Round())
	}
}

func TestVerify_ToRound(t *testing.T) {
	dir := t.TempDir()
	w := recordRun(t, dir, replayConfig(), 3, 10, nil)

	checked, err := verify(w, dir, 7)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	// Rounds 3 through 7.
	if checked != 5 || w.Round() != 8 {
		t.Fatalf("checked=%d round=%d", checked, w.Round())
	}
}

func TestVerify_DetectsDivergence(t *testing.T) {
	dir := t.TempDir()
	w := recordRun(t, dir, replayConfig(), 2, 6, func(e *world.RoundLogEntry) {
		if e.Round == 5 {
			e.Digest = strings.Repeat("0", len(e.Digest))
		}
	})

	checked, err := verify(w, dir, 0)
	if err == nil || !strings.Contains(err.Error(), "round 5: digest mismatch") {
		t.Fatalf("err=%v", err)
	}
	if checked != 3 {
		t.Fatalf("checked=%d want 3", checked)
	}
}
