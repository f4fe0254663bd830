package programs_test

import (
	"testing"

	"robogrid.ai/internal/sim/programs"
	world "robogrid.ai/internal/sim/world"
	"robogrid.ai/internal/sim/worldtest"
)

func TestWander_ReachesBoundaryWithoutOrientation(t *testing.T) {
	for _, seed := range []int64{1, 2, 3} {
		h := worldtest.NewHarness(t, world.Config{Size: 6, Unoriented: true, Seed: seed}, "wander")
		h.RunUntilDone(500)
		moved := 0
		for _, a := range h.W.Agents() {
			if a.Location().Degree() > 2 {
				t.Fatalf("seed %d: agent %d stopped on a degree-%d node", seed, a.ID(), a.Location().Degree())
			}
			if world.DataOf[programs.WanderState](a).Moves > 0 {
				moved++
			}
		}
		if moved == 0 {
			t.Fatalf("seed %d: nobody moved", seed)
		}
	}
}

func TestLookup(t *testing.T) {
	for _, name := range programs.Names() {
		f, err := programs.Lookup(name)
		if err != nil || f == nil {
			t.Fatalf("Lookup(%q): %v", name, err)
		}
		if got := f(3).Program().Name; got != name {
			t.Fatalf("Lookup(%q) built a %q agent", name, got)
		}
	}
	if _, err := programs.Lookup(" Disperse "); err != nil {
		t.Fatalf("lookup should ignore case and spaces: %v", err)
	}
	if _, err := programs.Lookup("teleport"); err == nil {
		t.Fatalf("unknown program should fail")
	}
}
