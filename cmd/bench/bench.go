package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"golang.org/x/sync/errgroup"

	"robogrid.ai/internal/persistence/indexdb"
	"robogrid.ai/internal/sim/programs"
	"robogrid.ai/internal/sim/scenarios"
	"robogrid.ai/internal/sim/world"
)

type result struct {
	Run       scenarios.Run
	Rounds    uint64
	Done      bool
	Dispersed bool
	Survivors int
	Err       error
}

// runAll executes every run with at most parallel worlds in flight. Results
// keep the order of runs.
func runAll(ctx context.Context, runs []scenarios.Run, parallel int) ([]result, error) {
	out := make([]result, len(runs))
	g, ctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, r := range runs {
		g.Go(func() error {
			out[i] = runOne(ctx, r)
			return ctx.Err()
		})
	}
	return out, g.Wait()
}

func runOne(ctx context.Context, r scenarios.Run) result {
	res := result{Run: r}
	factory, err := programs.Lookup(r.World.Program)
	if err != nil {
		res.Err = err
		return res
	}
	w, err := world.New(r.World, factory)
	if err != nil {
		res.Err = err
		return res
	}
	if _, err := w.Run(ctx, world.RunConfig{MaxRounds: uint64(r.MaxRounds)}); err != nil {
		res.Err = err
	}
	res.Rounds = w.Round()
	res.Done = w.Done()
	res.Dispersed = dispersed(w.Snapshot())
	res.Survivors = w.Population()
	return res
}

func dispersed(grid [][]int) bool {
	for _, row := range grid {
		for _, c := range row {
			if c != 1 {
				return false
			}
		}
	}
	return true
}

func record(idx *indexdb.SQLiteIndex, results []result) {
	for _, r := range results {
		cfg := r.Run.World
		agents := cfg.Agents
		if agents == 0 {
			agents = cfg.Size * cfg.Size
		}
		idx.RecordRun(indexdb.RunRecord{
			WorldID:    cfg.ID,
			Program:    cfg.Program,
			Size:       cfg.Size,
			Agents:     agents,
			Unoriented: cfg.Unoriented,
			FaultRate:  cfg.FaultRate,
			Seed:       cfg.Seed,
			Rounds:     r.Rounds,
			Done:       r.Done,
			Dispersed:  r.Dispersed,
			Survivors:  r.Survivors,
		})
	}
}

type summaryKey struct {
	Scenario string
	Size     int
}

type summary struct {
	summaryKey
	Samples   int
	Done      int
	Dispersed int
	Failed    int
	MeanRound float64
	MaxRounds uint64
}

// RoundsPerN is the mean number of rounds divided by the side length.
func (s summary) RoundsPerN() float64 {
	if s.Size == 0 {
		return 0
	}
	return s.MeanRound / float64(s.Size)
}

// summarize groups results by scenario and size. Mean and max only count
// runs that finished.
func summarize(results []result) []summary {
	byKey := map[summaryKey]*summary{}
	var order []summaryKey
	sums := map[summaryKey]uint64{}
	for _, r := range results {
		k := summaryKey{Scenario: r.Run.ScenarioID, Size: r.Run.World.Size}
		s := byKey[k]
		if s == nil {
			s = &summary{summaryKey: k}
			byKey[k] = s
			order = append(order, k)
		}
		s.Samples++
		switch {
		case r.Err != nil:
			s.Failed++
			continue
		case !r.Done:
			continue
		}
		s.Done++
		if r.Dispersed {
			s.Dispersed++
		}
		sums[k] += r.Rounds
		if r.Rounds > s.MaxRounds {
			s.MaxRounds = r.Rounds
		}
	}
	out := make([]summary, 0, len(order))
	for _, k := range order {
		s := byKey[k]
		if s.Done > 0 {
			s.MeanRound = float64(sums[k]) / float64(s.Done)
		}
		out = append(out, *s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Scenario != out[j].Scenario {
			return out[i].Scenario < out[j].Scenario
		}
		return out[i].Size < out[j].Size
	})
	return out
}

func printSummary(w io.Writer, rows []summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "scenario\tn\tsamples\tdone\tdispersed\tfailed\tmean_rounds\tmax_rounds\trounds/n")
	for _, s := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%.1f\t%d\t%.2f\n",
			s.Scenario, s.Size, s.Samples, s.Done, s.Dispersed, s.Failed, s.MeanRound, s.MaxRounds, s.RoundsPerN())
	}
	return tw.Flush()
}
