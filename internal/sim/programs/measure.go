package programs

import "robogrid.ai/internal/sim/world"

// Measure runs the first two Disperse phases and stops once n is known.
var Measure = &world.Program{
	Name:    "measure",
	Initial: PhaseSeek,
	Names:   phaseNames,
	Steps: map[world.Phase]world.Step{
		PhaseSeek:    seek,
		PhaseMeasure: measure(toDone),
		PhaseDone:    nil,
	},
}

func toDone(a *world.Agent, _ *State) {
	a.MarkDone()
	a.Goto(PhaseDone)
}

// Extent returns the grid side an agent has measured, if it has.
func Extent(a *world.Agent) (int, bool) {
	st, ok := a.Data().(*State)
	if !ok || st.N == 0 {
		return 0, false
	}
	return st.N, true
}
