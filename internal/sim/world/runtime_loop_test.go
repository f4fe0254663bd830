package world

import (
	"context"
	"errors"
	"testing"

	"robogrid.ai/internal/persistence/snapshot"
)

// finisher marks itself done after three rounds.
func finisher() *Program {
	return singleStep(func(a *Agent, _ *Node) error {
		if a.Cycle() >= 3 {
			a.MarkDone()
		}
		return nil
	})
}

func TestRun_StopsWhenDone(t *testing.T) {
	w := worldWith(t, 2, 4, finisher(), nil)
	var seen []uint64
	n, err := w.Run(context.Background(), RunConfig{
		OnRound: func(e RoundLogEntry) { seen = append(seen, e.Round) },
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 4 || !w.Done() {
		t.Fatalf("rounds=%d done=%v want 4 rounds", n, w.Done())
	}
	if len(seen) != 4 || seen[3] != 3 {
		t.Fatalf("OnRound saw %v", seen)
	}
}

func TestRun_RoundBudget(t *testing.T) {
	w := worldWith(t, 2, 1, singleStep(nil), nil)
	n, err := w.Run(context.Background(), RunConfig{MaxRounds: 7})
	if err != nil || n != 7 || w.Round() != 7 {
		t.Fatalf("n=%d round=%d err=%v", n, w.Round(), err)
	}
}

func TestRun_Cancelled(t *testing.T) {
	w := worldWith(t, 2, 1, singleStep(nil), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := w.Run(ctx, RunConfig{TickRateHz: 1000}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want context.Canceled", err)
	}
}

func TestRun_EmitsSnapshots(t *testing.T) {
	w := worldWith(t, 2, 2, singleStep(nil), nil)
	sink := make(chan snapshot.SnapshotV1, 8)
	if _, err := w.Run(context.Background(), RunConfig{
		MaxRounds:           6,
		SnapshotEveryRounds: 2,
		SnapshotSink:        sink,
	}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	close(sink)
	var rounds []uint64
	for s := range sink {
		rounds = append(rounds, s.Header.Round)
	}
	if len(rounds) != 3 || rounds[0] != 2 || rounds[2] != 6 {
		t.Fatalf("snapshot rounds=%v want [2 4 6]", rounds)
	}
}

type failingLogger struct{ calls int }

func (l *failingLogger) WriteRound(e RoundLogEntry) error {
	l.calls++
	if e.Round == 1 {
		return errors.New("disk full")
	}
	return nil
}

func TestRun_SurfacesLoggerErrors(t *testing.T) {
	w := worldWith(t, 2, 1, singleStep(nil), nil)
	logger := &failingLogger{}
	w.SetRoundLogger(logger)

	var failed []uint64
	if _, err := w.Run(context.Background(), RunConfig{
		MaxRounds: 3,
		OnRound: func(e RoundLogEntry) {
			if e.LogErr != nil {
				failed = append(failed, e.Round)
			}
		},
	}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if logger.calls != 3 || len(failed) != 1 || failed[0] != 1 {
		t.Fatalf("calls=%d failed rounds=%v want [1]", logger.calls, failed)
	}
}
