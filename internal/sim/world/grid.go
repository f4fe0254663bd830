package world

import (
	"fmt"
	"sort"
	"sync"
)

// Direction is a physical edge direction. Programs never see it; they only see
// port labels, which map to directions through a per-node port table.
type Direction uint8

const (
	Left Direction = iota
	Down
	Right
	Up
)

var directionNames = [...]string{"LEFT", "DOWN", "RIGHT", "UP"}

func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return fmt.Sprintf("Direction(%d)", d)
}

// Opposite returns the direction of the same edge seen from the neighbor.
func (d Direction) Opposite() Direction { return (d + 2) % 4 }

// orientedPort is the compass-aligned labelling: 1=left, 2=down, 3=right, 4=up.
// Port k and port (k+2) mod 4 name the two ends of one edge.
func orientedPort(d Direction) int { return int(d) + 1 }

// Node is a grid location. Its adjacency is fixed at construction; what a program
// sees is the port table layered on top of it and the set of agents standing here.
type Node struct {
	row, col int
	links    [4]*Node
	ports    map[int]Direction

	mu        sync.Mutex
	occupants map[AgentID]*Agent
}

func newNode(row, col int) *Node {
	return &Node{
		row:       row,
		col:       col,
		ports:     map[int]Direction{},
		occupants: map[AgentID]*Agent{},
	}
}

// Degree is the number of populated ports: 2 at corners, 3 on edges, 4 inside.
func (n *Node) Degree() int { return len(n.ports) }

// Ports returns the port labels available here in ascending order.
func (n *Node) Ports() []int {
	out := make([]int, 0, len(n.ports))
	for p := range n.ports {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

func (n *Node) HasPort(port int) bool {
	_, ok := n.ports[port]
	return ok
}

// Neighbor returns the node behind port, or nil.
func (n *Node) Neighbor(port int) *Node {
	d, ok := n.ports[port]
	if !ok {
		return nil
	}
	return n.links[d]
}

// MinPort returns the smallest port label, or 0 on an isolated node.
func (n *Node) MinPort() int {
	min := 0
	for p := range n.ports {
		if min == 0 || p < min {
			min = p
		}
	}
	return min
}

// MaxPort returns the largest port label, or 0 on an isolated node.
func (n *Node) MaxPort() int {
	max := 0
	for p := range n.ports {
		if p > max {
			max = p
		}
	}
	return max
}

// Occupants returns the agents on this node ordered by id.
func (n *Node) Occupants() []*Agent {
	n.mu.Lock()
	out := make([]*Agent, 0, len(n.occupants))
	for _, a := range n.occupants {
		out = append(out, a)
	}
	n.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// OccupantIDs returns the ids of the agents on this node in ascending order.
func (n *Node) OccupantIDs() []AgentID {
	n.mu.Lock()
	out := make([]AgentID, 0, len(n.occupants))
	for id := range n.occupants {
		out = append(out, id)
	}
	n.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (n *Node) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.occupants)
}

// Rank is the position of id among the colocated agents sorted by id, or -1 if
// the agent is not here. "The k lowest ids stay" is Rank(id) < k.
func (n *Node) Rank(id AgentID) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.occupants[id]; !ok {
		return -1
	}
	r := 0
	for other := range n.occupants {
		if other < id {
			r++
		}
	}
	return r
}

func (n *Node) add(a *Agent) {
	n.mu.Lock()
	n.occupants[a.id] = a
	n.mu.Unlock()
}

func (n *Node) remove(a *Agent) {
	n.mu.Lock()
	delete(n.occupants, a.id)
	n.mu.Unlock()
}

func (n *Node) contains(id AgentID) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.occupants[id]
	return ok
}

// directions returns the physical directions with a neighbor, in Direction order.
func (n *Node) directions() []Direction {
	out := make([]Direction, 0, 4)
	for d, nb := range n.links {
		if nb != nil {
			out = append(out, Direction(d))
		}
	}
	return out
}

// Grid is an n×n rectangular lattice without wrap-around.
type Grid struct {
	n        int
	nodes    [][]*Node
	oriented bool
}

// BuildGrid connects n×n nodes with the compass-aligned port labelling.
// It is deterministic in n.
func BuildGrid(n int) (*Grid, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, n)
	}
	nodes := make([][]*Node, n)
	for r := range nodes {
		nodes[r] = make([]*Node, n)
		for c := range nodes[r] {
			nodes[r][c] = newNode(r, c)
		}
	}
	link := func(from, to *Node, d Direction) {
		from.links[d] = to
		from.ports[orientedPort(d)] = d
		to.links[d.Opposite()] = from
		to.ports[orientedPort(d.Opposite())] = d.Opposite()
	}
	for r := 0; r < n; r++ {
		for c := 0; c+1 < n; c++ {
			link(nodes[r][c], nodes[r][c+1], Right)
		}
	}
	for c := 0; c < n; c++ {
		for r := 0; r+1 < n; r++ {
			link(nodes[r][c], nodes[r+1][c], Down)
		}
	}
	return &Grid{n: n, nodes: nodes, oriented: true}, nil
}

func (g *Grid) Size() int      { return g.n }
func (g *Grid) Oriented() bool { return g.oriented }

// Node returns the node at (row, col), or nil when out of range.
func (g *Grid) Node(row, col int) *Node {
	if row < 0 || col < 0 || row >= g.n || col >= g.n {
		return nil
	}
	return g.nodes[row][col]
}

// Nodes returns every node in row-major order.
func (g *Grid) Nodes() []*Node {
	out := make([]*Node, 0, g.n*g.n)
	for _, row := range g.nodes {
		out = append(out, row...)
	}
	return out
}

// Census counts nodes by structural class.
type Census struct {
	Isolated int // degree 0 (1×1 grid)
	Corners  int
	Edges    int
	Interior int
}

func (g *Grid) Census() Census {
	var c Census
	for _, nd := range g.Nodes() {
		switch nd.Degree() {
		case 0:
			c.Isolated++
		case 2:
			c.Corners++
		case 3:
			c.Edges++
		case 4:
			c.Interior++
		}
	}
	return c
}

// Occupancy returns the agent count of every node, indexed [row][col].
func (g *Grid) Occupancy() [][]int {
	out := make([][]int, g.n)
	for r, row := range g.nodes {
		out[r] = make([]int, g.n)
		for c, nd := range row {
			out[r][c] = nd.Count()
		}
	}
	return out
}
