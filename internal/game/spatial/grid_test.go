package spatial

import (
	"sort"
	"testing"
)

func sorted(ids []uint32) []uint32 {
	out := append([]uint32(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func TestGridDimensions(t *testing.T) {
	g := NewGrid(10, 2, 64)
	cols, size := g.Dimensions()
	if cols != 10 || size != 2 {
		t.Errorf("Dimensions = %d, %v; want 10, 2", cols, size)
	}

	g = NewGrid(0, 0, 0)
	if cols, _ := g.Dimensions(); cols != 1 {
		t.Errorf("degenerate grid has %d cols, want 1", cols)
	}
}

func TestGridQueryRadius(t *testing.T) {
	g := NewGrid(10, 2, 8)
	g.Insert(0, 0, 0)
	g.Insert(1, 0.5, -0.5)
	g.Insert(2, -9, -9)
	g.Insert(3, 7, 3)

	got := sorted(g.QueryRadius(0, 0, 1))
	if len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Errorf("QueryRadius(0,0,1) = %v, want [0 1]", got)
	}

	got = sorted(g.QueryRadius(-9.5, -8.5, 0.5))
	if len(got) != 1 || got[0] != 2 {
		t.Errorf("QueryRadius near corner = %v, want [2]", got)
	}
}

// TestGridClampsOutsidePositions checks that entities knocked off the
// arena are still found by queries at the same spot.
func TestGridClampsOutsidePositions(t *testing.T) {
	g := NewGrid(5, 1, 8)
	g.Insert(7, 40, -40)

	got := g.QueryRadius(40, -40, 0.5)
	if len(got) != 1 || got[0] != 7 {
		t.Errorf("QueryRadius outside region = %v, want [7]", got)
	}
}

func TestGridClear(t *testing.T) {
	g := NewGrid(5, 1, 8)
	for i := uint32(0); i < 5; i++ {
		g.Insert(i, float64(i), 0)
	}
	if g.Len() != 5 {
		t.Fatalf("Len = %d, want 5", g.Len())
	}

	g.Clear()
	if g.Len() != 0 {
		t.Errorf("Len after Clear = %d", g.Len())
	}
	if got := g.QueryRadius(0, 0, 5); len(got) != 0 {
		t.Errorf("QueryRadius after Clear = %v", got)
	}
}
