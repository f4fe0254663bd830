package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	persistlog "robogrid.ai/internal/persistence/log"
	"robogrid.ai/internal/persistence/snapshot"
	"robogrid.ai/internal/sim/programs"
	"robogrid.ai/internal/sim/world"
)

func main() {
	var (
		snapPath = flag.String("snapshot", "", "path to .snap.zst")
		worldDir = flag.String("world_dir", "", "world dir holding events/rounds-*.jsonl.zst (default: derived from -snapshot)")
		toRound  = flag.Uint64("to_round", 0, "stop after verifying this round (optional)")
		workers  = flag.Int("workers", 1, "parallel workers for re-execution")
	)
	flag.Parse()

	if *snapPath == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot")
		os.Exit(2)
	}

	snap, err := snapshot.ReadSnapshot(*snapPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	agents, done := snap.Counts()
	fmt.Printf("snapshot v%d world=%s round=%d program=%s n=%d seed=%d unoriented=%v agents=%d done=%d\n",
		snap.Header.Version, snap.Header.WorldID, snap.Header.Round, snap.Program, snap.Size, snap.Seed, snap.Unoriented, agents, done)

	dir := *worldDir
	if dir == "" {
		// <world>/snapshots/<round>.snap.zst
		dir = filepath.Dir(filepath.Dir(*snapPath))
	}
	if _, err := os.Stat(persistlog.RoundsDir(dir)); err != nil {
		return
	}

	factory, err := programs.Lookup(snap.Program)
	if err != nil {
		fmt.Fprintln(os.Stderr, "program:", err)
		os.Exit(1)
	}
	w, err := world.FromSnapshot(snap, *workers, factory)
	if err != nil {
		fmt.Fprintln(os.Stderr, "restore snapshot:", err)
		os.Exit(1)
	}

	checked, err := verify(w, dir, *toRound)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: checked=%d rounds (from snapshot round=%d)\n", checked, snap.Header.Round)
}

var errStop = errors.New("stop")

// verify re-executes the world round by round against the logged entries and
// fails on the first divergence. Entries before the world's round, including
// duplicates left by a resumed run, are skipped.
func verify(w *world.World, worldDir string, toRound uint64) (uint64, error) {
	var checked uint64
	err := persistlog.ScanRounds(worldDir, func(e world.RoundLogEntry) error {
		if toRound != 0 && e.Round > toRound {
			return errStop
		}
		cur := w.Round()
		if e.Round < cur {
			return nil
		}
		if e.Round > cur {
			return fmt.Errorf("round log gap: want round %d, got %d", cur, e.Round)
		}
		if e.Digest == "" {
			return fmt.Errorf("round %d: entry has no digest", e.Round)
		}
		pop := w.Population()
		round, digest, err := w.StepOnce()
		if err != nil {
			return fmt.Errorf("round %d: %w", e.Round, err)
		}
		if round != e.Round || digest != e.Digest {
			return fmt.Errorf("round %d: digest mismatch: got %s want %s", e.Round, digest, e.Digest)
		}
		if removed := pop - w.Population(); removed != len(e.Removed) {
			return fmt.Errorf("round %d: removed %d agents, log says %d", e.Round, removed, len(e.Removed))
		}
		checked++
		return nil
	})
	if errors.Is(err, errStop) {
		err = nil
	}
	return checked, err
}
