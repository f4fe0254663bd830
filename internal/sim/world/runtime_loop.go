package world

import (
	"context"
	"time"

	"robogrid.ai/internal/persistence/snapshot"
)

type RunConfig struct {
	// TickRateHz paces rounds in wall-clock time; 0 runs as fast as possible.
	TickRateHz int
	// MaxRounds bounds the run; 0 means until Done.
	MaxRounds uint64

	SnapshotEveryRounds uint64
	// SnapshotSink receives snapshots without blocking the loop; a full sink
	// drops the snapshot.
	SnapshotSink chan<- snapshot.SnapshotV1

	OnRound func(entry RoundLogEntry)
}

// Run drives Cycle until every agent is done, the round budget is spent, or
// ctx is cancelled. It returns the number of rounds it executed.
func (w *World) Run(ctx context.Context, rc RunConfig) (uint64, error) {
	var tick <-chan time.Time
	if rc.TickRateHz > 0 {
		ticker := time.NewTicker(time.Second / time.Duration(rc.TickRateHz))
		defer ticker.Stop()
		tick = ticker.C
	}

	var executed uint64
	for {
		if w.Done() {
			return executed, nil
		}
		if rc.MaxRounds != 0 && executed >= rc.MaxRounds {
			return executed, nil
		}
		if tick != nil {
			select {
			case <-ctx.Done():
				return executed, ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return executed, err
		}

		entry, err := w.cycle(w.roundLogger != nil)
		if err != nil {
			return executed, err
		}
		executed++
		if rc.OnRound != nil {
			rc.OnRound(entry)
		}
		if rc.SnapshotSink != nil && rc.SnapshotEveryRounds > 0 && w.round.Load()%rc.SnapshotEveryRounds == 0 {
			w.emitSnapshot(rc.SnapshotSink)
		}
	}
}

func (w *World) emitSnapshot(sink chan<- snapshot.SnapshotV1) {
	snap, err := w.ExportSnapshot()
	if err != nil {
		return
	}
	select {
	case sink <- snap:
	default:
	}
}
