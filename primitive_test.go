package geom

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/ungerik/go3d/float64/vec3"
)

func TestSegmentEval(t *testing.T) {
	s := Segment{Point0: vec3.T{1, 1, 0}, Point1: vec3.T{3, 5, 2}}
	diff(t, vec3.T{2, 3, 1}, s.FractionToPoint(0.5), cmpopts.EquateApprox(0, 1e-15))
	_, tangent := s.FractionToPointAndTangent(0.25)
	diff(t, vec3.T{2, 4, 2}, tangent, cmpopts.EquateApprox(0, 1e-15))
	if got := s.ArcLength(); math.Abs(got-math.Sqrt(24)) > 1e-12 {
		t.Errorf("arc length %g, want %g", got, math.Sqrt(24))
	}
}

func TestPolylineFractions(t *testing.T) {
	p := Polyline{Points: []vec3.T{{0, 0, 0}, {2, 0, 0}, {2, 2, 0}}}
	if p.NumEdges() != 2 {
		t.Fatalf("got %d edges, want 2", p.NumEdges())
	}
	// Edge 0 covers fractions [0, 0.5], edge 1 covers [0.5, 1].
	diff(t, vec3.T{1, 0, 0}, p.FractionToPoint(0.25), cmpopts.EquateApprox(0, 1e-15))
	diff(t, vec3.T{2, 1, 0}, p.FractionToPoint(0.75), cmpopts.EquateApprox(0, 1e-15))
	if got := p.EdgeToGlobalFraction(1, 0.5); got != 0.75 {
		t.Errorf("global fraction %g, want 0.75", got)
	}
	if got := p.ArcLength(); got != 4 {
		t.Errorf("arc length %g, want 4", got)
	}
}

func TestArcEval(t *testing.T) {
	a := NewCircularArc(vec3.T{2, 1, 0}, 3)
	diff(t, vec3.T{5, 1, 0}, a.FractionToPoint(0), cmpopts.EquateApprox(0, 1e-12))
	diff(t, vec3.T{2, 4, 0}, a.FractionToPoint(0.25), cmpopts.EquateApprox(0, 1e-12))
	if got := a.ArcLength(); math.Abs(got-6*math.Pi) > 1e-12 {
		t.Errorf("circumference %g, want %g", got, 6*math.Pi)
	}
	if !a.IsCircular() {
		t.Error("circle reported as non-circular")
	}
}

func TestEllipticArcLength(t *testing.T) {
	// Ellipse with semi-axes 3 and 1; the per-quadrant quadrature should land
	// on the known value far more tightly than a single rule over the whole
	// perimeter would.
	e := Arc{
		Center:       vec3.T{0, 0, 0},
		Vector0:      vec3.T{3, 0, 0},
		Vector90:     vec3.T{0, 1, 0},
		SweepRadians: 2 * math.Pi,
	}
	if e.IsCircular() {
		t.Error("ellipse reported as circular")
	}
	const want = 13.364893220555258 // 4·3·E(1−1/9)
	if got := e.ArcLength(); math.Abs(got-want) > 1e-9 {
		t.Errorf("perimeter %g, want %g", got, want)
	}
}

func TestAngleToFraction(t *testing.T) {
	a := Arc{
		Center:       vec3.T{0, 0, 0},
		Vector0:      vec3.T{1, 0, 0},
		Vector90:     vec3.T{0, 1, 0},
		StartRadians: math.Pi / 4,
		SweepRadians: math.Pi,
	}
	for _, f := range []float64{0, 0.25, 0.5, 0.75, 1} {
		got := a.AngleToFraction(a.AngleAt(f))
		if math.Abs(got-f) > 1e-12 {
			t.Errorf("round trip of %g gave %g", f, got)
		}
	}
	// A reversed sweep keeps the locus but flips fractions.
	r := a.Reversed().(Arc)
	diff(t, a.FractionToPoint(0.25), r.FractionToPoint(0.75), cmpopts.EquateApprox(0, 1e-12))
}

func TestArcPlaneIntersections(t *testing.T) {
	a := NewCircularArc(vec3.T{0, 0, 0}, 1)
	plane := Plane{Origin: vec3.T{0, 0, 0}, Normal: vec3.T{1, 0, 0}}
	roots := a.AppendPlaneIntersections(plane, nil)
	diff(t, []float64{0.25, 0.75}, roots, cmpopts.EquateApprox(0, 1e-12))
}

func TestChainFractions(t *testing.T) {
	c := Chain{Children: []CurvePrimitive{
		Segment{Point0: vec3.T{0, 0, 0}, Point1: vec3.T{2, 0, 0}},
		Segment{Point0: vec3.T{2, 0, 0}, Point1: vec3.T{2, 2, 0}},
	}}
	diff(t, vec3.T{1, 0, 0}, c.FractionToPoint(0.25), cmpopts.EquateApprox(0, 1e-15))
	diff(t, vec3.T{2, 1, 0}, c.FractionToPoint(0.75), cmpopts.EquateApprox(0, 1e-15))
	if got := c.ArcLength(); got != 4 {
		t.Errorf("arc length %g, want 4", got)
	}
	if got := c.ChildToGlobalFraction(1, 0); got != 0.5 {
		t.Errorf("global fraction %g, want 0.5", got)
	}
}

func TestCosSinRoots(t *testing.T) {
	var out [2]float64
	n := cosSinRoots(1, 0, 0, &out)
	diff(t, []float64{math.Pi / 2, -math.Pi / 2}, out[:n], cmpopts.EquateApprox(0, 1e-12))

	// Tangent case: single root.
	n = cosSinRoots(1, 0, -1, &out)
	if n != 1 || math.Abs(out[0]) > 1e-9 {
		t.Errorf("got %v (n=%d), want single root 0", out[:n], n)
	}

	// Unreachable offset: no roots.
	if n = cosSinRoots(1, 0, 3, &out); n != 0 {
		t.Errorf("got %d roots, want 0", n)
	}
}

func TestLoopPolygon(t *testing.T) {
	l := Loop{Children: []CurvePrimitive{
		Segment{Point0: vec3.T{0, 0, 0}, Point1: vec3.T{4, 0, 0}},
		Segment{Point0: vec3.T{4, 0, 0}, Point1: vec3.T{4, 4, 0}},
		Segment{Point0: vec3.T{4, 4, 0}, Point1: vec3.T{0, 4, 0}},
		Segment{Point0: vec3.T{0, 4, 0}, Point1: vec3.T{0, 0, 0}},
	}}
	got := l.Polygon(2)
	want := []Point{Pt(0, 0), Pt(4, 0), Pt(4, 4), Pt(0, 4)}
	diff(t, want, got, cmpopts.EquateApprox(0, 1e-12))
}
