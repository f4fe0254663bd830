package programs

import "robogrid.ai/internal/sim/world"

const (
	PhaseSeek world.Phase = iota + 1
	PhaseMeasure
	PhaseGather
	PhaseWait
	PhaseQuadrant
	PhaseSettled
	PhaseColumn
	PhaseRow
	PhaseDone
)

var phaseNames = map[world.Phase]string{
	PhaseSeek:     "SEEK",
	PhaseMeasure:  "MEASURE",
	PhaseGather:   "GATHER",
	PhaseWait:     "WAIT",
	PhaseQuadrant: "QUADRANT",
	PhaseSettled:  "SETTLED",
	PhaseColumn:   "COLUMN",
	PhaseRow:      "ROW",
	PhaseDone:     "DONE",
}

// State is the private record of Disperse and Measure agents.
type State struct {
	N       int    `json:"n,omitempty"`       // measured grid side
	Heading int    `json:"heading,omitempty"` // port being followed; 0 when idle
	Barrier uint64 `json:"barrier,omitempty"` // cycle at which the quadrant stage starts
	Corner  Corner `json:"corner,omitempty"`  // quadrant this agent settled in
}

// gatherBarrier is a cycle by which every agent has finished seek, measure and
// gather: seek ≤ 2(n-1) moves, measure n-1, gather 2(n-1), plus one round per
// phase change.
func gatherBarrier(n int) uint64 { return uint64(5 * n) }

// circleRounds bounds the quadrant stage: three edges of n-1 moves each plus
// the decision rounds.
func circleRounds(n int) uint64 { return uint64(3 * n) }

// Disperse spreads n² agents so that every node ends up with exactly one:
// seek a corner, measure n, gather at the top-left corner, split into four
// quadrant groups by circling the perimeter, split each quadrant group into
// columns along its edge row, then each column group into single cells.
var Disperse = &world.Program{
	Name:    "disperse",
	Initial: PhaseSeek,
	Names:   phaseNames,
	Steps: map[world.Phase]world.Step{
		PhaseSeek:     seek,
		PhaseMeasure:  measure(toGather),
		PhaseGather:   gather,
		PhaseWait:     wait,
		PhaseQuadrant: quadrant,
		PhaseSettled:  settled,
		PhaseColumn:   column,
		PhaseRow:      row,
		PhaseDone:     nil,
	},
}

// seek walks through the smallest port until it stands on a corner.
func seek(a *world.Agent, at *world.Node) error {
	if at.Degree() <= 2 {
		a.Goto(PhaseMeasure)
		return nil
	}
	a.Defer(world.MoveTo(at.MinPort()))
	return nil
}

// measure leaves the corner through its largest port and keeps taking the
// same port label until it disappears, which happens at the far corner of the
// same edge. The walk takes n-1 rounds, so n = elapsed + 1.
func measure(finish func(a *world.Agent, st *State)) world.Step {
	return func(a *world.Agent, at *world.Node) error {
		st := world.DataOf[State](a)
		if st.Heading == 0 {
			if at.Degree() == 0 {
				st.N = 1
				finish(a, st)
				return nil
			}
			st.Heading = at.MaxPort()
			a.SetCheckpoint()
			a.Defer(world.MoveTo(st.Heading))
			return nil
		}
		if !at.HasPort(st.Heading) {
			st.N = int(a.Elapsed()) + 1
			st.Heading = 0
			finish(a, st)
			return nil
		}
		a.Defer(world.MoveTo(st.Heading))
		return nil
	}
}

func toGather(a *world.Agent, st *State) {
	st.Barrier = gatherBarrier(st.N)
	a.Goto(PhaseGather)
}

// gather heads up, then left, to the top-left corner.
func gather(a *world.Agent, at *world.Node) error {
	switch {
	case at.HasPort(PortUp):
		a.Defer(world.MoveTo(PortUp))
	case at.HasPort(PortLeft):
		a.Defer(world.MoveTo(PortLeft))
	default:
		a.Goto(PhaseWait)
	}
	return nil
}

func wait(a *world.Agent, _ *world.Node) error {
	st := world.DataOf[State](a)
	if a.Cycle() >= st.Barrier {
		a.SetCheckpoint()
		a.Goto(PhaseQuadrant)
	}
	return nil
}

// quadrant: on reaching a corner the h·w lowest-id colocated agents keep it,
// the others continue clockwise to the next corner. Everyone present at a
// corner is still circling, so the quotas add up to n².
func quadrant(a *world.Agent, at *world.Node) error {
	st := world.DataOf[State](a)
	if st.Heading != 0 && at.HasPort(st.Heading) {
		a.Defer(world.MoveTo(st.Heading))
		return nil
	}
	c := cornerAt(at)
	h, w := c.quadrant(st.N)
	if at.Rank(a.ID()) < h*w {
		st.Corner = c
		st.Heading = 0
		a.Goto(PhaseSettled)
		return nil
	}
	st.Heading = c.clockwise()
	a.Defer(world.MoveTo(st.Heading))
	return nil
}

// settled holds the corner until every quadrant group has formed.
func settled(a *world.Agent, _ *world.Node) error {
	st := world.DataOf[State](a)
	if a.Cycle() >= st.Barrier+circleRounds(st.N) {
		a.Goto(PhaseColumn)
	}
	return nil
}

// column sheds one column's worth of agents (the quadrant height) per cell
// while walking along the edge row away from the corner.
func column(a *world.Agent, at *world.Node) error {
	st := world.DataOf[State](a)
	h, _ := st.Corner.quadrant(st.N)
	if at.Rank(a.ID()) < h {
		a.Goto(PhaseRow)
		return nil
	}
	a.Defer(world.MoveTo(st.Corner.across()))
	return nil
}

// row sheds one agent per cell while walking down (or up) the column.
func row(a *world.Agent, at *world.Node) error {
	st := world.DataOf[State](a)
	if at.Rank(a.ID()) == 0 {
		a.MarkDone()
		a.Goto(PhaseDone)
		return nil
	}
	a.Defer(world.MoveTo(st.Corner.inward()))
	return nil
}
