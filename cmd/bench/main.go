package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"robogrid.ai/internal/persistence/indexdb"
	"robogrid.ai/internal/sim/scenarios"
)

func main() {
	var (
		path     = flag.String("scenarios", "./configs/scenarios.yaml", "scenario matrix")
		only     = flag.String("only", "", "comma-separated scenario ids to run (default: all)")
		parallel = flag.Int("parallel", 4, "worlds simulated concurrently")
		dbPath   = flag.String("db", "", "sqlite file to record runs into (optional)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bench] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := scenarios.Load(*path)
	if err != nil {
		logger.Fatalf("load scenarios: %v", err)
	}
	if ids := strings.TrimSpace(*only); ids != "" {
		keep := map[string]bool{}
		for _, id := range strings.Split(ids, ",") {
			keep[strings.TrimSpace(id)] = true
		}
		var filtered []scenarios.ScenarioSpec
		for _, s := range cfg.Scenarios {
			if keep[s.ID] {
				filtered = append(filtered, s)
			}
		}
		if len(filtered) == 0 {
			logger.Fatalf("no scenario matches -only=%s", ids)
		}
		cfg.Scenarios = filtered
	}

	var idx *indexdb.SQLiteIndex
	if p := strings.TrimSpace(*dbPath); p != "" {
		idx, err = indexdb.OpenSQLite(p)
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		if err := idx.UpsertConfig("scenarios", cfg); err != nil {
			logger.Printf("index: upsert scenarios: %v", err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runs := cfg.Expand()
	logger.Printf("running %d worlds (%d scenarios, %d samples) parallel=%d", len(runs), len(cfg.Scenarios), cfg.Samples, *parallel)
	start := time.Now()
	results, err := runAll(ctx, runs, *parallel)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("bench: %v", err)
	}
	logger.Printf("finished in %s", time.Since(start).Round(time.Millisecond))

	for _, r := range results {
		if r.Err != nil && !errors.Is(r.Err, context.Canceled) {
			logger.Printf("%s: %v", r.Run.World.ID, r.Err)
		}
	}
	if err := printSummary(os.Stdout, summarize(results)); err != nil {
		logger.Fatalf("print: %v", err)
	}

	if idx != nil {
		record(idx, results)
		if err := idx.Close(); err != nil {
			logger.Printf("close index: %v", err)
		}
	}
}
