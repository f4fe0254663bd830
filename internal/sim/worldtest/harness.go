package worldtest

import (
	"testing"

	"robogrid.ai/internal/persistence/snapshot"
	"robogrid.ai/internal/sim/programs"
	world "robogrid.ai/internal/sim/world"
)

// Harness drives a world through its exported API and checks the engine's
// bookkeeping after every round:
// - the occupancy grid always sums to the population
// - every surviving agent is located on exactly one node
type Harness struct {
	T *testing.T
	W *world.World

	Program string
	Digests []string
}

func NewHarness(t *testing.T, cfg world.Config, program string) *Harness {
	t.Helper()
	factory, err := programs.Lookup(program)
	if err != nil {
		t.Fatalf("programs.Lookup: %v", err)
	}
	cfg.Program = program
	w, err := world.New(cfg, factory)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return &Harness{T: t, W: w, Program: program}
}

// NewHarnessWithWorld wraps a world built elsewhere, e.g. restored from a snapshot.
func NewHarnessWithWorld(t *testing.T, w *world.World) *Harness {
	t.Helper()
	if w == nil {
		t.Fatalf("NewHarnessWithWorld: nil world")
	}
	return &Harness{T: t, W: w, Program: w.Config().Program}
}

// Step runs one round and returns the digest after it.
func (h *Harness) Step() string {
	h.T.Helper()
	_, digest, err := h.W.StepOnce()
	if err != nil {
		h.T.Fatalf("round %d: %v", h.W.Round(), err)
	}
	h.Digests = append(h.Digests, digest)
	h.CheckConservation()
	return digest
}

func (h *Harness) StepFor(rounds int) {
	h.T.Helper()
	for i := 0; i < rounds; i++ {
		h.Step()
	}
}

// RunUntilDone steps until every surviving agent is done and returns the
// number of rounds taken. It fails the test once budget rounds have run.
func (h *Harness) RunUntilDone(budget int) uint64 {
	h.T.Helper()
	start := h.W.Round()
	for !h.W.Done() {
		if int(h.W.Round()-start) >= budget {
			h.T.Fatalf("not done after %d rounds\n%s", budget, world.FormatOccupancy(h.W.Snapshot()))
		}
		h.Step()
	}
	return h.W.Round() - start
}

// RunUntil steps until cond holds, returning false if budget ran out first.
func (h *Harness) RunUntil(budget int, cond func(w *world.World) bool) bool {
	h.T.Helper()
	for i := 0; i < budget; i++ {
		if cond(h.W) {
			return true
		}
		h.Step()
	}
	return cond(h.W)
}

func (h *Harness) CheckConservation() {
	h.T.Helper()
	if got, want := Total(h.W.Snapshot()), h.W.Population(); got != want {
		h.T.Fatalf("round %d: occupancy sums to %d, population %d", h.W.Round(), got, want)
	}
	for _, a := range h.W.Agents() {
		if _, _, ok := h.W.Locate(a.ID()); !ok {
			h.T.Fatalf("round %d: agent %d not on any node", h.W.Round(), a.ID())
		}
	}
}

func (h *Harness) Snapshot() snapshot.SnapshotV1 {
	h.T.Helper()
	snap, err := h.W.ExportSnapshot()
	if err != nil {
		h.T.Fatalf("ExportSnapshot: %v", err)
	}
	return snap
}

// Restore rebuilds the harness world from snap with the same program.
func (h *Harness) Restore(snap snapshot.SnapshotV1, workers int) *Harness {
	h.T.Helper()
	factory, err := programs.Lookup(snap.Program)
	if err != nil {
		h.T.Fatalf("programs.Lookup: %v", err)
	}
	w, err := world.FromSnapshot(snap, workers, factory)
	if err != nil {
		h.T.Fatalf("FromSnapshot: %v", err)
	}
	return NewHarnessWithWorld(h.T, w)
}
