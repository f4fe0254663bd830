package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"robogrid.ai/internal/sim/runner"
	"robogrid.ai/internal/sim/tuning"
	"robogrid.ai/internal/sim/world"
)

func main() {
	var (
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		dataDir    = flag.String("data", "", "runtime data directory; empty runs without persistence")

		program    = flag.String("program", "", "agent program (overrides tuning)")
		size       = flag.Int("n", 0, "grid side length (overrides tuning)")
		agents     = flag.Int("agents", -1, "agent count, 0 for n*n (overrides tuning)")
		unoriented = flag.Bool("unoriented", false, "scramble port labels")
		placement  = flag.String("placement", "", "random or stacked (overrides tuning)")
		faultRate  = flag.Float64("fault_rate", -1, "per-round agent removal probability (overrides tuning)")
		seed       = flag.Int64("seed", 0, "world seed (overrides tuning when non-zero)")
		workers    = flag.Int("workers", 0, "parallel workers (overrides tuning when non-zero)")
		maxRounds  = flag.Uint64("max_rounds", 0, "round budget (overrides tuning when non-zero)")
		paced      = flag.Bool("paced", false, "honour tick_rate_hz instead of running flat out")
		resume     = flag.Bool("resume", false, "resume from the latest snapshot under -data")
		printEvery = flag.Uint64("print_every", 0, "print the grid every k rounds (0: only start and end)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[sim] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}
	if *program != "" {
		tune.Program = *program
	}
	if *size > 0 {
		tune.Size = *size
	}
	if *agents >= 0 {
		tune.Agents = *agents
	}
	if *unoriented {
		tune.Unoriented = true
	}
	if *placement != "" {
		tune.Placement = *placement
	}
	if *faultRate >= 0 {
		tune.FaultRate = *faultRate
	}
	if *seed != 0 {
		tune.Seed = *seed
	}
	if *workers > 0 {
		tune.Workers = *workers
	}
	if *maxRounds > 0 {
		tune.MaxRounds = *maxRounds
	}
	if !*paced {
		tune.TickRateHz = 0
	}
	if err := tune.Validate(); err != nil {
		logger.Fatalf("tuning: %v", err)
	}

	rt, err := runner.Open(runner.Options{
		DataDir:    strings.TrimSpace(*dataDir),
		Tuning:     tune,
		LoadLatest: *resume,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatalf("open world: %v", err)
	}

	w := rt.World
	cfg := w.Config()
	logger.Printf("program=%s n=%d agents=%d unoriented=%v fault_rate=%g seed=%d workers=%d",
		cfg.Program, cfg.Size, w.Population(), cfg.Unoriented, cfg.FaultRate, cfg.Seed, cfg.Workers)
	fmt.Printf("round %d\n%s\n", w.Round(), world.FormatOccupancy(w.Snapshot()))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	n, err := rt.Run(ctx, func(e world.RoundLogEntry) {
		if len(e.Removed) > 0 {
			logger.Printf("round %d: fault removed agent(s) %v", e.Round, e.Removed)
		}
		if *printEvery > 0 && (e.Round+1)%*printEvery == 0 && !e.Done {
			fmt.Printf("round %d\n%s\n", e.Round+1, world.FormatOccupancy(w.Snapshot()))
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		var inv *world.InvariantError
		if errors.As(err, &inv) {
			logger.Fatalf("invariant violated at round %d agent %d (%s): %v", inv.Round, inv.AgentID, inv.Stage, inv.Err)
		}
		logger.Fatalf("run: %v", err)
	}

	fmt.Printf("round %d\n%s\n", w.Round(), world.FormatOccupancy(w.Snapshot()))
	logger.Printf("rounds=%d done=%v population=%d", n, w.Done(), w.Population())
	if err := rt.Close(); err != nil {
		logger.Printf("close: %v", err)
	}
	if !w.Done() {
		os.Exit(1)
	}
}
