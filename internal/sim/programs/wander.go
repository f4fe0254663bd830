package programs

import "robogrid.ai/internal/sim/world"

const (
	PhaseWander world.Phase = iota + 1
	PhaseArrived
)

type WanderState struct {
	Moves int `json:"moves"`
}

// Wander finds a corner without trusting port labels: it always steps to a
// neighbor of the lowest degree, which never leads back inside once the
// boundary is reached, and breaks ties with a per-agent hash of the round.
var Wander = &world.Program{
	Name:    "wander",
	Initial: PhaseWander,
	Names: map[world.Phase]string{
		PhaseWander:  "WANDER",
		PhaseArrived: "ARRIVED",
	},
	Steps: map[world.Phase]world.Step{
		PhaseWander:  wanderStep,
		PhaseArrived: nil,
	},
}

func wanderStep(a *world.Agent, at *world.Node) error {
	if at.Degree() <= 2 {
		a.MarkDone()
		a.Goto(PhaseArrived)
		return nil
	}
	best, bestDeg := 0, 0
	var bestKey uint64
	for _, p := range at.Ports() {
		d := at.Neighbor(p).Degree()
		k := tieBreak(a.ID(), a.Cycle(), p)
		if best == 0 || d < bestDeg || (d == bestDeg && k < bestKey) {
			best, bestDeg, bestKey = p, d, k
		}
	}
	world.DataOf[WanderState](a).Moves++
	a.Defer(world.MoveTo(best))
	return nil
}
