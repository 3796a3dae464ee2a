package geom

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/ungerik/go3d/float64/vec3"
)

func wavyPoles() []vec3.T {
	return []vec3.T{
		{0, 0, 0},
		{1, 2, 0},
		{3, 3, 1},
		{5, -1, 0},
		{7, 1, 2},
		{8, 0, 0},
	}
}

func TestBSplineEndpointInterpolation(t *testing.T) {
	poles := wavyPoles()
	c := NewBSplineCurve(poles, 3, nil)
	if c == nil {
		t.Fatal("expected curve")
	}
	diff(t, poles[0], c.FractionToPoint(0), cmpopts.EquateApprox(0, 1e-12))
	diff(t, poles[len(poles)-1], c.FractionToPoint(1), cmpopts.EquateApprox(0, 1e-12))
}

func TestBSplineRejectsBadInput(t *testing.T) {
	if c := NewBSplineCurve(wavyPoles()[:2], 3, nil); c != nil {
		t.Error("accepted fewer poles than order")
	}
	if c := NewBSplineCurve(wavyPoles(), 3, []float64{0, 0, 0, 1, 1}); c != nil {
		t.Error("accepted knot count matching neither convention")
	}
}

func TestBSplineKnotConventions(t *testing.T) {
	poles := wavyPoles()
	// Canonical: numPoles + order − 2 knots. Classic: two redundant end knots.
	canonical := []float64{0, 0, 0, 0.3, 0.6, 1, 1, 1}
	classic := append(append([]float64{0}, canonical...), 1)
	a := NewBSplineCurve(poles, 3, canonical)
	b := NewBSplineCurve(poles, 3, classic)
	if a == nil || b == nil {
		t.Fatal("expected curves")
	}
	for f := 0.0; f <= 1.0; f += 1.0 / 32 {
		diff(t, a.FractionToPoint(f), b.FractionToPoint(f), cmpopts.EquateApprox(0, 1e-12))
	}
}

func TestBSplineDegree1MatchesPolyline(t *testing.T) {
	poles := []vec3.T{{0, 0, 0}, {1, 1, 0}, {2, 0, 0}, {4, 2, 0}}
	c := NewBSplineCurve(poles, 1, nil)
	pl := Polyline{Points: poles}
	for f := 0.0; f <= 1.0; f += 1.0 / 24 {
		diff(t, pl.FractionToPoint(f), c.FractionToPoint(f), cmpopts.EquateApprox(0, 1e-12))
	}
}

func TestKnotInsertionPreservesCurve(t *testing.T) {
	orig := NewBSplineCurve(wavyPoles(), 3, nil)
	c := orig.Clone()
	if !c.InsertKnot(0.4, 1) {
		t.Fatal("insertion refused")
	}
	if c.NumPoles() != orig.NumPoles()+1 {
		t.Errorf("got %d poles, want %d", c.NumPoles(), orig.NumPoles()+1)
	}
	for f := 0.0; f <= 1.0; f += 1.0 / 64 {
		diff(t, orig.FractionToPoint(f), c.FractionToPoint(f), cmpopts.EquateApprox(0, 1e-9))
	}
}

func TestKnotInsertionToFullMultiplicity(t *testing.T) {
	orig := NewBSplineCurve(wavyPoles(), 3, nil)
	c := orig.Clone()
	if !c.InsertKnot(0.5, 3) {
		t.Fatal("insertion refused")
	}
	if got := c.Knots().Multiplicity(0.5); got != 3 {
		t.Errorf("multiplicity %d, want 3", got)
	}
	// Asking beyond the degree changes nothing.
	before := c.NumPoles()
	c.InsertKnot(0.5, 5)
	if c.NumPoles() != before {
		t.Error("insertion past degree multiplicity grew the curve")
	}
	for f := 0.0; f <= 1.0; f += 1.0 / 64 {
		diff(t, orig.FractionToPoint(f), c.FractionToPoint(f), cmpopts.EquateApprox(0, 1e-9))
	}
}

func TestKnotInsertionOutsideDomain(t *testing.T) {
	c := NewBSplineCurve(wavyPoles(), 3, nil)
	if c.InsertKnot(-0.5, 1) || c.InsertKnot(1.5, 1) {
		t.Error("accepted knot outside the domain")
	}
}

func TestBSplineReverseInvolution(t *testing.T) {
	c := NewBSplineCurve(wavyPoles(), 3, nil)
	r := c.Reversed()
	rr := r.Reversed()
	for f := 0.0; f <= 1.0; f += 1.0 / 32 {
		diff(t, c.FractionToPoint(1-f), r.FractionToPoint(f), cmpopts.EquateApprox(0, 1e-10))
		diff(t, c.FractionToPoint(f), rr.FractionToPoint(f), cmpopts.EquateApprox(0, 1e-10))
	}
}

func TestBSplineTangentMatchesDifferences(t *testing.T) {
	c := NewBSplineCurve(wavyPoles(), 3, nil)
	const h = 1e-6
	for _, f := range []float64{0.1, 0.3, 0.55, 0.8} {
		_, tangent := c.FractionToPointAndTangent(f)
		lo := c.FractionToPoint(f - h)
		hi := c.FractionToPoint(f + h)
		want := vec3.Sub(&hi, &lo)
		want = want.Scaled(1 / (2 * h))
		diff(t, want, tangent, cmpopts.EquateApprox(0, 1e-4))
	}
}

func TestWeightedQuarterCircle(t *testing.T) {
	// The classic rational quadratic quarter circle from (1,0) to (0,1).
	poles := []vec3.T{{1, 0, 0}, {1, 1, 0}, {0, 1, 0}}
	weights := []float64{1, math.Sqrt2 / 2, 1}
	c := NewWeightedBSplineCurve(poles, weights, 2, nil)
	if c == nil {
		t.Fatal("expected curve")
	}
	for f := 0.0; f <= 1.0; f += 1.0 / 32 {
		p := c.FractionToPoint(f)
		r := math.Hypot(p[0], p[1])
		if math.Abs(r-1) > 1e-12 {
			t.Errorf("radius %g at f=%g, want 1", r, f)
		}
	}
	mid := c.FractionToPoint(0.5)
	diff(t, vec3.T{math.Sqrt2 / 2, math.Sqrt2 / 2, 0}, mid, cmpopts.EquateApprox(0, 1e-12))
}

func TestBezierSpansMatchCurve(t *testing.T) {
	for _, c := range []*BSplineCurve{
		NewBSplineCurve(wavyPoles(), 3, nil),
		NewBSplineCurve(wavyPoles(), 2, nil),
		NewWeightedBSplineCurve(
			[]vec3.T{{1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
			[]float64{1, math.Sqrt2 / 2, 1}, 2, nil),
	} {
		spans := c.BezierSpans()
		if len(spans) != c.Knots().NumSpans() {
			t.Errorf("got %d spans, want %d", len(spans), c.Knots().NumSpans())
		}
		for _, span := range spans {
			for tt := 0.0; tt <= 1.0; tt += 0.125 {
				f := span.GlobalFraction(tt)
				diff(t, c.FractionToPoint(f), span.PointAt(tt), cmpopts.EquateApprox(0, 1e-10))
			}
		}
	}
}

func TestBezierSpanTangent(t *testing.T) {
	c := NewBSplineCurve(wavyPoles(), 3, nil)
	span := c.BezierSpans()[1]
	const h = 1e-6
	pt, tangent := span.PointAndTangentAt(0.5)
	diff(t, span.PointAt(0.5), pt, cmpopts.EquateApprox(0, 1e-12))
	lo := span.PointAt(0.5 - h)
	hi := span.PointAt(0.5 + h)
	want := vec3.Sub(&hi, &lo)
	want = want.Scaled(1 / (2 * h))
	diff(t, want, tangent, cmpopts.EquateApprox(0, 1e-4))
}

func TestBSplinePlaneIntersections(t *testing.T) {
	c := NewBSplineCurve(wavyPoles(), 3, nil)
	plane := Plane{Origin: vec3.T{4, 0, 0}, Normal: vec3.T{1, 0, 0}}
	roots := c.AppendPlaneIntersections(plane, nil)
	if len(roots) == 0 {
		t.Fatal("expected at least one crossing")
	}
	for _, f := range roots {
		p := c.FractionToPoint(f)
		if math.Abs(p[0]-4) > 1e-8 {
			t.Errorf("crossing at f=%g has x=%g, want 4", f, p[0])
		}
	}
}

func TestBSplineQuickLengthBounds(t *testing.T) {
	c := NewBSplineCurve(wavyPoles(), 3, nil)
	arc := c.ArcLength()
	quick := c.QuickLength()
	chord := c.FractionToPoint(0)
	end := c.FractionToPoint(1)
	d := vec3.Sub(&end, &chord)
	if arc > quick+1e-9 {
		t.Errorf("arc length %g exceeds control polygon length %g", arc, quick)
	}
	if arc < d.Length()-1e-9 {
		t.Errorf("arc length %g below chord %g", arc, d.Length())
	}
}
