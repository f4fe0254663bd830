package world

import (
	"errors"
	"math/rand"
	"testing"
)

func TestUnorient_PreservesStructure(t *testing.T) {
	oriented, _ := BuildGrid(5)
	g, _ := BuildGrid(5)
	g.Unorient(rand.New(rand.NewSource(7)))

	if g.Oriented() {
		t.Fatalf("grid still reports oriented")
	}
	if g.Census() != oriented.Census() {
		t.Fatalf("census changed: %+v vs %+v", g.Census(), oriented.Census())
	}

	relabelled := 0
	for r := 0; r < 5; r++ {
		for c := 0; c < 5; c++ {
			a, b := oriented.Node(r, c), g.Node(r, c)
			ports := b.Ports()
			for i, p := range ports {
				if p != i+1 {
					t.Fatalf("(%d,%d) labels=%v want 1..%d", r, c, ports, len(ports))
				}
			}
			want := map[[2]int]bool{}
			for _, p := range a.Ports() {
				nb := a.Neighbor(p)
				want[[2]int{nb.row, nb.col}] = true
			}
			for _, p := range ports {
				nb := b.Neighbor(p)
				if !want[[2]int{nb.row, nb.col}] {
					t.Fatalf("(%d,%d) port %d leads to non-neighbor (%d,%d)", r, c, p, nb.row, nb.col)
				}
				if a.Neighbor(p) == nil || a.Neighbor(p).row != nb.row || a.Neighbor(p).col != nb.col {
					relabelled++
				}
			}
		}
	}
	if relabelled == 0 {
		t.Fatalf("no port was relabelled")
	}
}

func TestSetPortTable_Validates(t *testing.T) {
	g, _ := BuildGrid(3)
	corner := g.Node(0, 0)

	if err := corner.setPortTable([]int{1, 2}, []Direction{Right, Down}); err != nil {
		t.Fatalf("valid table rejected: %v", err)
	}
	if corner.Neighbor(1) != g.Node(0, 1) {
		t.Fatalf("port 1 should now lead right")
	}

	bad := []struct {
		name   string
		labels []int
		dirs   []Direction
	}{
		{"length mismatch", []int{1}, []Direction{Right, Down}},
		{"wrong degree", []int{1, 2, 3}, []Direction{Right, Down, Up}},
		{"missing edge", []int{1, 2}, []Direction{Right, Up}},
		{"duplicate label", []int{1, 1}, []Direction{Right, Down}},
		{"zero label", []int{0, 1}, []Direction{Right, Down}},
	}
	for _, tc := range bad {
		if err := corner.setPortTable(tc.labels, tc.dirs); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("%s: err=%v want ErrInvalidConfig", tc.name, err)
		}
	}
}
