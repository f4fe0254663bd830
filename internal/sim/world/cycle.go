package world

import (
	"math/rand"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

const (
	saltShuffle uint64 = 0x5348
	saltFault   uint64 = 0x4641
)

// Cycle advances the world by one synchronous round:
// every agent computes against the state left by the previous round, then
// every agent executes its deferred action, then faults are injected.
func (w *World) Cycle() error {
	_, err := w.cycle(w.roundLogger != nil)
	return err
}

// StepOnce runs one round and returns the round it executed and the state
// digest after it. Used by replay verification.
func (w *World) StepOnce() (uint64, string, error) {
	entry, err := w.cycle(true)
	if err != nil {
		return w.round.Load(), "", err
	}
	return entry.Round, entry.Digest, nil
}

func (w *World) cycle(withDigest bool) (RoundLogEntry, error) {
	round := w.round.Load()

	order := w.agents
	if w.cfg.ShuffleOrder && len(order) > 1 {
		order = append([]*Agent(nil), w.agents...)
		rng := roundRand(w.cfg.Seed, round, saltShuffle)
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	err := w.forEach(order, func(a *Agent) error {
		if err := a.runCompute(); err != nil {
			return &InvariantError{Round: round, AgentID: a.id, Stage: "compute", Err: err}
		}
		return nil
	})
	if err != nil {
		return RoundLogEntry{}, err
	}

	var moves atomic.Int64
	err = w.forEach(order, func(a *Agent) error {
		moved, err := a.runExecute()
		if err != nil {
			return &InvariantError{Round: round, AgentID: a.id, Stage: "execute", Err: err}
		}
		if moved {
			moves.Add(1)
		}
		return nil
	})
	if err != nil {
		return RoundLogEntry{}, err
	}

	removed := w.injectFault(round)
	w.round.Add(1)

	entry := RoundLogEntry{
		WorldID:    w.cfg.ID,
		Round:      round,
		Population: len(w.agents),
		Moves:      int(moves.Load()),
		Removed:    removed,
		Done:       w.Done(),
	}
	if withDigest {
		entry.Digest = w.stateDigest()
	}
	if w.roundLogger != nil {
		entry.LogErr = w.roundLogger.WriteRound(entry)
	}
	return entry, nil
}

// forEach applies fn to every agent, splitting the slice across Workers
// goroutines when configured. It returns the first error.
func (w *World) forEach(agents []*Agent, fn func(*Agent) error) error {
	workers := w.cfg.Workers
	if workers <= 1 || len(agents) < 2*workers {
		for _, a := range agents {
			if err := fn(a); err != nil {
				return err
			}
		}
		return nil
	}

	var g errgroup.Group
	g.SetLimit(workers)
	chunk := (len(agents) + workers - 1) / workers
	for start := 0; start < len(agents); start += chunk {
		part := agents[start:min(start+chunk, len(agents))]
		g.Go(func() error {
			for _, a := range part {
				if err := fn(a); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// roundRand derives an independent stream for (seed, round, purpose) so a world
// resumed at round r draws exactly what the original run drew.
func roundRand(seed int64, round, salt uint64) *rand.Rand {
	x := uint64(seed) ^ (round * 0x9e3779b97f4a7c15) ^ (salt << 48)
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return rand.New(rand.NewSource(int64(x)))
}
