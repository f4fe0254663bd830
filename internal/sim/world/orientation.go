package world

import (
	"fmt"
	"math/rand"
	"sort"
)

// Unorient replaces every node's port table with an independent uniformly random
// bijection from the labels 1..degree onto the node's physical directions.
// Adjacency is untouched, so degrees and corner/edge/interior classes survive.
func (g *Grid) Unorient(rng *rand.Rand) {
	for _, nd := range g.Nodes() {
		dirs := nd.directions()
		perm := rng.Perm(len(dirs))
		ports := make(map[int]Direction, len(dirs))
		for i, d := range dirs {
			ports[perm[i]+1] = d
		}
		nd.ports = ports
	}
	g.oriented = false
}

// portTable returns the node's labels and the direction behind each, sorted by label.
func (n *Node) portTable() ([]int, []Direction) {
	labels := n.Ports()
	dirs := make([]Direction, len(labels))
	for i, p := range labels {
		dirs[i] = n.ports[p]
	}
	return labels, dirs
}

// setPortTable installs an explicit labelling, e.g. one restored from a snapshot.
func (n *Node) setPortTable(labels []int, dirs []Direction) error {
	if len(labels) != len(dirs) {
		return fmt.Errorf("%w: %d labels for %d directions", ErrInvalidConfig, len(labels), len(dirs))
	}
	want := n.directions()
	if len(want) != len(dirs) {
		return fmt.Errorf("%w: node (%d,%d) has degree %d, table has %d ports", ErrInvalidConfig, n.row, n.col, len(want), len(dirs))
	}
	got := append([]Direction(nil), dirs...)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("%w: node (%d,%d) port table names a missing edge", ErrInvalidConfig, n.row, n.col)
		}
	}
	ports := make(map[int]Direction, len(labels))
	for i, p := range labels {
		if p <= 0 {
			return fmt.Errorf("%w: port label %d", ErrInvalidConfig, p)
		}
		if _, dup := ports[p]; dup {
			return fmt.Errorf("%w: duplicate port label %d", ErrInvalidConfig, p)
		}
		ports[p] = dirs[i]
	}
	n.ports = ports
	return nil
}
