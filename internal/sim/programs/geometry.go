package programs

import "robogrid.ai/internal/sim/world"

// Port labels of an oriented grid.
const (
	PortLeft  = 1
	PortDown  = 2
	PortRight = 3
	PortUp    = 4
)

type Corner uint8

const (
	TopLeft Corner = iota + 1
	TopRight
	BottomRight
	BottomLeft
)

var cornerNames = map[Corner]string{
	TopLeft:     "TOP_LEFT",
	TopRight:    "TOP_RIGHT",
	BottomRight: "BOTTOM_RIGHT",
	BottomLeft:  "BOTTOM_LEFT",
}

func (c Corner) String() string {
	if s, ok := cornerNames[c]; ok {
		return s
	}
	return "NONE"
}

// cornerAt names the corner an agent stands on from the ports it can see.
// Only meaningful on degree-2 nodes; a 1×1 grid's lone node counts as top-left.
func cornerAt(at *world.Node) Corner {
	switch {
	case at.HasPort(PortLeft) && at.HasPort(PortDown):
		return TopRight
	case at.HasPort(PortLeft) && at.HasPort(PortUp):
		return BottomRight
	case at.HasPort(PortRight) && at.HasPort(PortUp):
		return BottomLeft
	default:
		return TopLeft
	}
}

// quadrant returns the height and width of the quadrant anchored at c on an
// n×n grid. Top and left halves take the extra row/column when n is odd.
func (c Corner) quadrant(n int) (h, w int) {
	top, bottom := (n+1)/2, n/2
	left, right := (n+1)/2, n/2
	switch c {
	case TopRight:
		return top, right
	case BottomRight:
		return bottom, right
	case BottomLeft:
		return bottom, left
	default:
		return top, left
	}
}

// clockwise is the port toward the next corner when circling the perimeter.
func (c Corner) clockwise() int {
	switch c {
	case TopRight:
		return PortDown
	case BottomRight:
		return PortLeft
	case BottomLeft:
		return PortUp
	default:
		return PortRight
	}
}

// across is the port along the corner's edge row, away from the corner.
func (c Corner) across() int {
	if c == TopRight || c == BottomRight {
		return PortLeft
	}
	return PortRight
}

// inward is the port along a column, away from the corner's edge row.
func (c Corner) inward() int {
	if c == BottomLeft || c == BottomRight {
		return PortUp
	}
	return PortDown
}

// tieBreak is a deterministic pseudo-random key for (agent, round, port).
// Agents that see the same neighborhood still pick different ports.
func tieBreak(id world.AgentID, cycle uint64, port int) uint64 {
	x := uint64(id)*0x9e3779b97f4a7c15 ^ cycle*0xc2b2ae3d27d4eb4f ^ uint64(port)*0x165667b19e3779f9
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	x ^= x >> 33
	return x
}
