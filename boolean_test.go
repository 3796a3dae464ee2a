package geom

import (
	"math"
	"testing"

	"github.com/ungerik/go3d/float64/vec3"
)

func approxArea(t *testing.T, want float64, pf *Polyface, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
	if got := pf.Area(); math.Abs(got-want) > 1e-9 {
		t.Errorf("area %g, want %g", got, want)
	}
}

func TestBooleanOverlappingSquares(t *testing.T) {
	a := LoopSet{square(0, 0, 4)}
	b := LoopSet{square(2, 2, 4)}

	union, err := Union(a, b, nil)
	approxArea(t, 28, union, err)

	inter, err := Intersection(a, b, nil)
	approxArea(t, 4, inter, err)

	d, err := Difference(a, b, nil)
	approxArea(t, 12, d, err)

	rd, err := Difference(b, a, nil)
	approxArea(t, 12, rd, err)
}

func TestBooleanDisjointSquares(t *testing.T) {
	a := LoopSet{square(0, 0, 2)}
	b := LoopSet{square(5, 0, 2)}

	union, err := Union(a, b, nil)
	approxArea(t, 8, union, err)

	inter, err := Intersection(a, b, nil)
	approxArea(t, 0, inter, err)
	if inter.NumFaces() != 0 {
		t.Errorf("got %d faces, want 0", inter.NumFaces())
	}

	d, err := Difference(a, b, nil)
	approxArea(t, 4, d, err)
}

func TestBooleanNestedSquares(t *testing.T) {
	a := LoopSet{square(0, 0, 10)}
	b := LoopSet{square(3, 3, 4)}

	union, err := Union(a, b, nil)
	approxArea(t, 100, union, err)

	inter, err := Intersection(a, b, nil)
	approxArea(t, 16, inter, err)

	d, err := Difference(a, b, nil)
	approxArea(t, 84, d, err)
}

func TestBooleanSharedEdge(t *testing.T) {
	a := LoopSet{square(0, 0, 2)}
	b := LoopSet{square(2, 0, 2)}

	union, err := Union(a, b, nil)
	approxArea(t, 8, union, err)

	inter, err := Intersection(a, b, nil)
	approxArea(t, 0, inter, err)

	d, err := Difference(a, b, nil)
	approxArea(t, 4, d, err)
}

func TestBooleanPartialSharedEdge(t *testing.T) {
	// The squares touch along part of one side, so the doubled sub-edges
	// cover only the shared span and meet plain edges at both of its ends.
	a := LoopSet{square(0, 0, 2)}
	b := LoopSet{square(2, 1, 2)}

	union, err := Union(a, b, nil)
	approxArea(t, 8, union, err)

	inter, err := Intersection(a, b, nil)
	approxArea(t, 0, inter, err)

	d, err := Difference(a, b, nil)
	approxArea(t, 4, d, err)

	rd, err := Difference(b, a, nil)
	approxArea(t, 4, rd, err)
}

func TestBooleanNestedSharedCorner(t *testing.T) {
	// The inner square shares the outer's corner and parts of two sides.
	a := LoopSet{square(0, 0, 4)}
	b := LoopSet{square(0, 0, 2)}

	union, err := Union(a, b, nil)
	approxArea(t, 16, union, err)

	inter, err := Intersection(a, b, nil)
	approxArea(t, 4, inter, err)

	d, err := Difference(a, b, nil)
	approxArea(t, 12, d, err)
}

func TestBooleanSelfUnion(t *testing.T) {
	a := LoopSet{square(0, 0, 4)}
	union, err := Union(a, a, nil)
	approxArea(t, 16, union, err)
}

func TestBooleanHoleAndIsland(t *testing.T) {
	// A is a square ring: outer boundary plus a hole loop. B is an island
	// inside the hole.
	a := LoopSet{square(0, 0, 12), square(4, 4, 4)}
	b := LoopSet{square(5, 5, 2)}

	union, err := Union(a, b, nil)
	approxArea(t, 144-16+4, union, err)

	inter, err := Intersection(a, b, nil)
	approxArea(t, 0, inter, err)

	d, err := Difference(a, b, nil)
	approxArea(t, 144-16, d, err)
}

func TestBooleanIslandInHole(t *testing.T) {
	// Same shape family as above at a layout where the hole's bridge and the
	// island's bridge land on different boundaries.
	a := LoopSet{square(0, 0, 10), square(3, 3, 4)}
	b := LoopSet{square(4, 4, 2)}

	union, err := Union(a, b, nil)
	approxArea(t, 100-16+4, union, err)

	inter, err := Intersection(a, b, nil)
	approxArea(t, 0, inter, err)

	d, err := Difference(a, b, nil)
	approxArea(t, 100-16, d, err)
}

func TestBooleanMultipleALoops(t *testing.T) {
	a := LoopSet{square(0, 0, 2), square(3, 0, 2)}
	b := LoopSet{square(1, -1, 3)}

	union, err := Union(a, b, nil)
	// 4 + 4 + 9 minus the two 1×2 overlaps.
	approxArea(t, 13, union, err)

	inter, err := Intersection(a, b, nil)
	approxArea(t, 4, inter, err)
}

func TestBooleanCounterclockwiseInsensitive(t *testing.T) {
	ccw := square(0, 0, 4)
	cw := []Point{ccw[0], ccw[3], ccw[2], ccw[1]}
	union, err := Union(LoopSet{cw}, LoopSet{square(2, 2, 4)}, nil)
	approxArea(t, 28, union, err)
}

func TestBooleanFaceOrientation(t *testing.T) {
	union, err := Union(LoopSet{square(0, 0, 4)}, LoopSet{square(2, 2, 4)}, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := range union.Faces {
		if union.FaceArea(i) <= 0 {
			t.Errorf("face %d has area %g, want > 0", i, union.FaceArea(i))
		}
	}
}

func TestBooleanCheckpointStages(t *testing.T) {
	var stages []PipelineStage
	opts := &BooleanOptions{
		Checkpoint: func(s PipelineStage, g *HalfEdgeGraph) {
			stages = append(stages, s)
			if g.NumHalfEdges() == 0 {
				t.Errorf("empty graph at stage %v", s)
			}
		},
	}
	if _, err := Union(LoopSet{square(0, 0, 4)}, LoopSet{square(2, 2, 4)}, opts); err != nil {
		t.Fatal(err)
	}
	want := []PipelineStage{StageLoaded, StageSplit, StageMerged, StageRegularized, StageSwept}
	diff(t, want, stages)
}

func TestBooleanStrokedCircle(t *testing.T) {
	circle := Loop{Children: []CurvePrimitive{NewCircularArc(vec3.T{0, 0, 0}, 1)}}
	poly := circle.Polygon(128)
	union, err := Union(LoopSet{poly}, LoopSet{poly}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := union.Area(); math.Abs(got-math.Pi) > 0.01 {
		t.Errorf("area %g, want about %g", got, math.Pi)
	}
}
