package geom

import (
	"math"

	"github.com/dhconnelly/rtreego"
	"github.com/ungerik/go3d/float64/mat4"
	"github.com/ungerik/go3d/float64/vec3"
	"github.com/ungerik/go3d/float64/vec4"
)

// IntersectionKind tags the role of an intersection record.
type IntersectionKind uint8

const (
	// IsolatedPoint marks a transverse crossing.
	IsolatedPoint IntersectionKind = iota
	// CoincidentInterval marks a shared sub-interval of two overlapping
	// curves.
	CoincidentInterval
)

// CurveLocation is one curve's side of an intersection record: the curve, a
// fraction, the world point there, and (for intervals) the interval end.
type CurveLocation struct {
	Curve     CurvePrimitive
	Fraction  float64
	Point     vec3.T
	Fraction1 float64
	Point1    vec3.T
}

// IntersectionDetail pairs the two curve locations of one intersection.
// Records are produced once and never mutated.
type IntersectionDetail struct {
	Kind IntersectionKind
	A    CurveLocation
	B    CurveLocation
}

// IntersectOptions configures an intersection call. The zero value asks for
// plain XY intersection at the default tolerance.
type IntersectOptions struct {
	// Tolerance is the metric distance tolerance for coincidence and
	// boundary tests; zero means SmallMetricDistance.
	Tolerance float64
	// WorldToLocal, when non-nil, is applied to both curves before
	// intersecting, so that closest approach in the projected XY plane is
	// tested. The matrix may be perspective.
	WorldToLocal *mat4.T
}

// IntersectXY intersects two curve primitives in the projected XY plane and
// returns the intersection records in algorithm order. extendA and extendB
// admit results beyond the respective curve's parametric domain where the
// curve type supports extension (segments and arcs; B-splines are never
// extended).
//
// Results are stable under argument swap apart from the A/B field exchange.
func IntersectXY(a CurvePrimitive, extendA bool, b CurvePrimitive, extendB bool, opts *IntersectOptions) []IntersectionDetail {
	x := intersector{tol: SmallMetricDistance}
	if opts != nil {
		if opts.Tolerance > 0 {
			x.tol = opts.Tolerance
		}
		x.worldToLocal = opts.WorldToLocal
	}
	x.extendA = extendA
	x.extendB = extendB
	x.dispatch(a, b)
	return x.results
}

// IntersectCollectionsXY intersects two curve collections by fanning out over
// their children. Records reference the leaf primitives.
func IntersectCollectionsXY(a CurveCollection, extendA bool, b CurveCollection, extendB bool, opts *IntersectOptions) []IntersectionDetail {
	return IntersectXY(Chain{Children: a.Primitives()}, extendA, Chain{Children: b.Primitives()}, extendB, opts)
}

type intersector struct {
	tol          float64
	worldToLocal *mat4.T
	extendA      bool
	extendB      bool
	reversed     bool
	results      []IntersectionDetail
}

// pairHandler computes intersections of one (kindA, kindB) pair.
type pairHandler func(x *intersector, a, b CurvePrimitive)

var pairHandlers [numCurveKinds][numCurveKinds]pairHandler

func init() {
	set := func(ka, kb CurveKind, h pairHandler) {
		pairHandlers[ka][kb] = h
		if ka != kb {
			pairHandlers[kb][ka] = swapped(h)
		}
	}
	set(KindSegment, KindSegment, (*intersector).segSeg)
	set(KindSegment, KindPolyline, (*intersector).segPolyline)
	set(KindPolyline, KindPolyline, (*intersector).polyPoly)
	set(KindSegment, KindArc, (*intersector).segArc)
	set(KindPolyline, KindArc, (*intersector).polyArc)
	set(KindArc, KindArc, (*intersector).arcArc)
	set(KindSegment, KindBSpline, (*intersector).segSpline)
	set(KindPolyline, KindBSpline, (*intersector).polySpline)
	set(KindArc, KindBSpline, (*intersector).arcSpline)
	set(KindBSpline, KindBSpline, (*intersector).splineSpline)
	for k := CurveKind(0); k < numCurveKinds; k++ {
		pairHandlers[KindChain][k] = (*intersector).chainAny
		pairHandlers[k][KindChain] = swapped((*intersector).chainAny)
	}
	pairHandlers[KindChain][KindChain] = (*intersector).chainAny
}

// swapped adapts a handler to the mirrored argument order. The reversed flag
// keeps record ordering stable: logical A stays in the A slot.
func swapped(h pairHandler) pairHandler {
	return func(x *intersector, a, b CurvePrimitive) {
		x.reversed = !x.reversed
		x.extendA, x.extendB = x.extendB, x.extendA
		h(x, b, a)
		x.extendA, x.extendB = x.extendB, x.extendA
		x.reversed = !x.reversed
	}
}

func (x *intersector) dispatch(a, b CurvePrimitive) {
	if h := pairHandlers[a.Kind()][b.Kind()]; h != nil {
		h(x, a, b)
	}
}

func (x *intersector) chainAny(a, b CurvePrimitive) {
	for _, child := range a.(Chain).Children {
		x.dispatch(child, b)
	}
}

// projectPoint applies the world-to-local matrix (if any) and drops to XY.
func (x *intersector) projectPoint(p vec3.T) Point {
	if x.worldToLocal == nil {
		return Pt(p[0], p[1])
	}
	h := vec4.T{p[0], p[1], p[2], 1}
	q := x.worldToLocal.MulVec4(&h)
	return Pt(q[0]/q[3], q[1]/q[3])
}

// projectCurvePoint evaluates a curve fraction into the projected plane.
func (x *intersector) projectCurvePoint(c CurvePrimitive, f float64) Point {
	return x.projectPoint(c.FractionToPoint(f))
}

// projectedTangent is the fractional derivative of the projected curve point,
// computed by central differencing so perspective projection is handled
// exactly.
func (x *intersector) projectedTangent(c CurvePrimitive, f float64) Vec2 {
	const h = 1e-6
	p0 := x.projectCurvePoint(c, f-h)
	p1 := x.projectCurvePoint(c, f+h)
	return p1.Sub(p0).Div(2 * h)
}

func (x *intersector) appendPoint(fa float64, pa vec3.T, fb float64, pb vec3.T, a, b CurvePrimitive) {
	if x.reversed {
		fa, fb = fb, fa
		pa, pb = pb, pa
		a, b = b, a
	}
	// Immediate-duplicate suppression: adjoining pieces of one curve report
	// a shared crossing once.
	if n := len(x.results); n > 0 {
		last := &x.results[n-1]
		if last.Kind == IsolatedPoint {
			da := vec3.SquareDistance(&last.A.Point, &pa)
			db := vec3.SquareDistance(&last.B.Point, &pb)
			if da <= x.tol*x.tol && db <= x.tol*x.tol {
				return
			}
		}
	}
	x.results = append(x.results, IntersectionDetail{
		Kind: IsolatedPoint,
		A:    CurveLocation{Curve: a, Fraction: fa, Point: pa},
		B:    CurveLocation{Curve: b, Fraction: fb, Point: pb},
	})
}

func (x *intersector) appendInterval(fa0, fa1 float64, pa0, pa1 vec3.T, fb0, fb1 float64, pb0, pb1 vec3.T, a, b CurvePrimitive) {
	if x.reversed {
		fa0, fb0 = fb0, fa0
		fa1, fb1 = fb1, fa1
		pa0, pb0 = pb0, pa0
		pa1, pb1 = pb1, pa1
		a, b = b, a
	}
	x.results = append(x.results, IntersectionDetail{
		Kind: CoincidentInterval,
		A:    CurveLocation{Curve: a, Fraction: fa0, Point: pa0, Fraction1: fa1, Point1: pa1},
		B:    CurveLocation{Curve: b, Fraction: fb0, Point: pb0, Fraction1: fb1, Point1: pb1},
	})
}

func acceptFraction(extend bool, f float64) bool {
	return extend || (f >= -fractionFuzz && f <= 1+fractionFuzz)
}

// segSegHit is a raw XY segment-segment result in both segments' fractions.
type segSegHit struct {
	kind     IntersectionKind
	fa, fb   float64
	fa1, fb1 float64
}

// segSegXY intersects two XY segments. Coincident overlap is always tested
// before a transverse crossing is reported; the overlap interval is clamped
// to the non-extended curves' [0, 1] ranges.
func segSegXY(a0, a1, b0, b1 Point, tol float64, extendA, extendB bool) (segSegHit, bool) {
	da := a1.Sub(a0)
	db := b1.Sub(b0)
	lenA := da.Hypot()
	lenB := db.Hypot()
	if lenA <= tol || lenB <= tol {
		// Degenerate segments intersect nothing.
		return segSegHit{}, false
	}
	den := da.Cross(db)
	if math.Abs(den) <= 1e-10*lenA*lenB {
		// Parallel. Coincidence check before giving up.
		off := b0.Sub(a0).Cross(da) / lenA
		if math.Abs(off) > tol {
			return segSegHit{}, false
		}
		invA2 := 1 / da.Hypot2()
		t0 := b0.Sub(a0).Dot(da) * invA2
		t1 := b1.Sub(a0).Dot(da) * invA2
		lo, hi := min(t0, t1), max(t0, t1)
		if !extendA {
			lo, hi = max(lo, 0.0), min(hi, 1.0)
		}
		if !extendB {
			// B's own range maps exactly onto [min,max](t0,t1); the clamp
			// above against A plus this range is the shared extent.
			lo, hi = max(lo, min(t0, t1)), min(hi, max(t0, t1))
		}
		if hi < lo-fractionFuzz {
			return segSegHit{}, false
		}
		fb := func(fa float64) float64 {
			p := a0.Lerp(a1, fa)
			return p.Sub(b0).Dot(db) / db.Hypot2()
		}
		if hi-lo <= fractionFuzz {
			mid := 0.5 * (lo + hi)
			return segSegHit{kind: IsolatedPoint, fa: mid, fb: fb(mid)}, true
		}
		return segSegHit{
			kind: CoincidentInterval,
			fa:   lo, fa1: hi,
			fb: fb(lo), fb1: fb(hi),
		}, true
	}
	w := b0.Sub(a0)
	fa := w.Cross(db) / den
	fb := w.Cross(da) / den
	if !acceptFraction(extendA, fa) || !acceptFraction(extendB, fb) {
		return segSegHit{}, false
	}
	return segSegHit{kind: IsolatedPoint, fa: fa, fb: fb}, true
}

func (x *intersector) segSeg(a, b CurvePrimitive) {
	sa := a.(Segment)
	sb := b.(Segment)
	hit, ok := segSegXY(
		x.projectPoint(sa.Point0), x.projectPoint(sa.Point1),
		x.projectPoint(sb.Point0), x.projectPoint(sb.Point1),
		x.tol, x.extendA, x.extendB)
	if !ok {
		return
	}
	if hit.kind == CoincidentInterval {
		x.appendInterval(
			hit.fa, hit.fa1, sa.FractionToPoint(hit.fa), sa.FractionToPoint(hit.fa1),
			hit.fb, hit.fb1, sb.FractionToPoint(hit.fb), sb.FractionToPoint(hit.fb1),
			a, b)
		return
	}
	x.appendPoint(hit.fa, sa.FractionToPoint(hit.fa), hit.fb, sb.FractionToPoint(hit.fb), a, b)
}

func (x *intersector) segPolyline(a, b CurvePrimitive) {
	sa := a.(Segment)
	pb := b.(Polyline)
	a0 := x.projectPoint(sa.Point0)
	a1 := x.projectPoint(sa.Point1)
	for i := 0; i < pb.NumEdges(); i++ {
		edge := pb.Edge(i)
		hit, ok := segSegXY(a0, a1,
			x.projectPoint(edge.Point0), x.projectPoint(edge.Point1),
			x.tol, x.extendA, false)
		if !ok {
			continue
		}
		if hit.kind == CoincidentInterval {
			gb0 := pb.EdgeToGlobalFraction(i, hit.fb)
			gb1 := pb.EdgeToGlobalFraction(i, hit.fb1)
			x.appendInterval(
				hit.fa, hit.fa1, sa.FractionToPoint(hit.fa), sa.FractionToPoint(hit.fa1),
				gb0, gb1, pb.FractionToPoint(gb0), pb.FractionToPoint(gb1),
				a, b)
			continue
		}
		gb := pb.EdgeToGlobalFraction(i, hit.fb)
		x.appendPoint(hit.fa, sa.FractionToPoint(hit.fa), gb, pb.FractionToPoint(gb), a, b)
	}
}

func (x *intersector) polyPoly(a, b CurvePrimitive) {
	pa := a.(Polyline)
	pb := b.(Polyline)
	for i := 0; i < pa.NumEdges(); i++ {
		ea := pa.Edge(i)
		a0 := x.projectPoint(ea.Point0)
		a1 := x.projectPoint(ea.Point1)
		for j := 0; j < pb.NumEdges(); j++ {
			eb := pb.Edge(j)
			hit, ok := segSegXY(a0, a1,
				x.projectPoint(eb.Point0), x.projectPoint(eb.Point1),
				x.tol, false, false)
			if !ok {
				continue
			}
			ga := pa.EdgeToGlobalFraction(i, hit.fa)
			gb := pb.EdgeToGlobalFraction(j, hit.fb)
			if hit.kind == CoincidentInterval {
				ga1 := pa.EdgeToGlobalFraction(i, hit.fa1)
				gb1 := pb.EdgeToGlobalFraction(j, hit.fb1)
				x.appendInterval(
					ga, ga1, pa.FractionToPoint(ga), pa.FractionToPoint(ga1),
					gb, gb1, pb.FractionToPoint(gb), pb.FractionToPoint(gb1),
					a, b)
				continue
			}
			x.appendPoint(ga, pa.FractionToPoint(ga), gb, pb.FractionToPoint(gb), a, b)
		}
	}
}

// projectedArc is an arc's projected center and sweep vectors. Projection of
// the frame is affine: good for any affine world-to-local matrix, an
// approximation under perspective.
type projectedArc struct {
	center Point
	u, v   Vec2
}

func (x *intersector) projectArc(a Arc) projectedArc {
	c := x.projectPoint(a.Center)
	p0 := vec3.Add(&a.Center, &a.Vector0)
	p90 := vec3.Add(&a.Center, &a.Vector90)
	return projectedArc{
		center: c,
		u:      x.projectPoint(p0).Sub(c),
		v:      x.projectPoint(p90).Sub(c),
	}
}

// pointAtAngle evaluates the projected arc frame.
func (pa projectedArc) pointAtAngle(theta float64) Point {
	sin, cos := math.Sincos(theta)
	return pa.center.Translate(pa.u.Mul(cos).Add(pa.v.Mul(sin)))
}

// segArcAngles finds the angles where the projected arc meets the infinite
// line a0a1.
func segArcAngles(a0, a1 Point, pa projectedArc, out *[2]float64) int {
	n := a1.Sub(a0).Perp()
	alpha := n.Dot(pa.u)
	beta := n.Dot(pa.v)
	gamma := n.Dot(pa.center.Sub(a0))
	return cosSinRoots(alpha, beta, gamma, out)
}

func (x *intersector) segArc(a, b CurvePrimitive) {
	sa := a.(Segment)
	arc := b.(Arc)
	a0 := x.projectPoint(sa.Point0)
	a1 := x.projectPoint(sa.Point1)
	da := a1.Sub(a0)
	if da.Hypot() <= x.tol || math.Abs(arc.SweepRadians) < 1e-14 {
		return
	}
	pa := x.projectArc(arc)
	if pa.u.Cross(pa.v) == 0 {
		return
	}
	var angles [2]float64
	n := segArcAngles(a0, a1, pa, &angles)
	for _, theta := range angles[:n] {
		fb := arc.AngleToFraction(theta)
		if !acceptFraction(x.extendB, fb) {
			continue
		}
		p := pa.pointAtAngle(theta)
		fa := p.Sub(a0).Dot(da) / da.Hypot2()
		if !acceptFraction(x.extendA, fa) {
			continue
		}
		x.appendPoint(fa, sa.FractionToPoint(fa), fb, arc.FractionToPoint(fb), a, b)
	}
}

func (x *intersector) polyArc(a, b CurvePrimitive) {
	pl := a.(Polyline)
	// Polylines are never extended; keep their edges from extending.
	saved := x.extendA
	x.extendA = false
	defer func() { x.extendA = saved }()
	for i := 0; i < pl.NumEdges(); i++ {
		edge := pl.Edge(i)
		mark := len(x.results)
		x.segArc(edge, b)
		x.remapSide(mark, false, a, func(f float64) float64 {
			return pl.EdgeToGlobalFraction(i, f)
		})
	}
}

// remapSide rewrites the fractions and curve reference of the logical A
// (second == false) or logical B (second == true) side of all records
// appended since mark. The physical slot accounts for the reversed flag.
func (x *intersector) remapSide(mark int, second bool, curve CurvePrimitive, remap func(float64) float64) {
	for i := mark; i < len(x.results); i++ {
		loc := &x.results[i].A
		if second != x.reversed {
			loc = &x.results[i].B
		}
		loc.Curve = curve
		loc.Fraction = remap(loc.Fraction)
		if x.results[i].Kind == CoincidentInterval {
			loc.Fraction1 = remap(loc.Fraction1)
		}
	}
}

func (x *intersector) arcArc(a, b CurvePrimitive) {
	arcA := a.(Arc)
	arcB := b.(Arc)
	if math.Abs(arcA.SweepRadians) < 1e-14 || math.Abs(arcB.SweepRadians) < 1e-14 {
		return
	}
	pa := x.projectArc(arcA)
	pb := x.projectArc(arcB)
	condA := math.Abs(pa.u.Cross(pa.v))
	condB := math.Abs(pb.u.Cross(pb.v))
	if condA == 0 && condB == 0 {
		return
	}

	// Coincidence before any transverse report: concentric circles of equal
	// radius share arcs, not crossings.
	if x.arcArcCoincident(arcA, arcB, pa, pb, a, b) {
		return
	}

	// Implicitize the better-conditioned arc as the unit circle.
	swap := false
	if condB > condA {
		swap = true
		arcA, arcB = arcB, arcA
		pa, pb = pb, pa
	}
	inv := 1 / pa.u.Cross(pa.v)
	local := func(w Vec2) Vec2 {
		return Vec2{X: w.Cross(pa.v) * inv, Y: pa.u.Cross(w) * inv}
	}
	e := local(pb.center.Sub(pa.center))
	av := local(pb.u)
	bv := local(pb.v)

	// |e + a·cosφ + b·sinφ|² = 1, Weierstrass-substituted to a quartic in
	// t = tan(φ/2).
	k0 := e.Dot(e) - 1
	k1 := 2 * e.Dot(av)
	k2 := 2 * e.Dot(bv)
	k3 := av.Dot(av)
	k4 := bv.Dot(bv)
	k5 := 2 * av.Dot(bv)
	c0 := k0 + k1 + k3
	c1 := 2*k2 + 2*k5
	c2 := 2*k0 - 2*k3 + 4*k4
	c3 := 2*k2 - 2*k5
	c4 := k0 - k1 + k3

	var phis [5]float64
	var nPhi int
	roots, n := SolveQuartic(c0, c1, c2, c3, c4)
	for _, t := range roots[:n] {
		phis[nPhi] = 2 * math.Atan(t)
		nPhi++
	}
	scale := math.Abs(c0) + math.Abs(c1) + math.Abs(c2) + math.Abs(c3)
	if math.Abs(c4) <= 1e-12*scale {
		// Leading coefficient vanished: φ = π escaped the substitution.
		phis[nPhi] = math.Pi
		nPhi++
	}

	for _, phi := range phis[:nPhi] {
		l := e.Add(av.Mul(math.Cos(phi))).Add(bv.Mul(math.Sin(phi)))
		theta := math.Atan2(l.Y, l.X)
		fa := arcA.AngleToFraction(theta)
		fb := arcB.AngleToFraction(phi)
		extendA, extendB := x.extendA, x.extendB
		if swap {
			fa, fb = fb, fa
		}
		if !acceptFraction(extendA, fa) || !acceptFraction(extendB, fb) {
			continue
		}
		ca, cb := a.(Arc), b.(Arc)
		qa := ca.FractionToPoint(fa)
		qb := cb.FractionToPoint(fb)
		// A candidate is only an intersection if both arcs actually pass
		// through it; a stray quartic root evaluates to two distant points.
		if x.projectPoint(qa).Distance(x.projectPoint(qb)) > 10*x.tol {
			continue
		}
		x.appendPoint(fa, qa, fb, qb, a, b)
	}
}

// arcArcCoincident reports and records overlap of concentric equal-radius
// circular arcs. It returns true when the arcs are coincident as curves,
// whether or not their sweeps share an interval.
func (x *intersector) arcArcCoincident(arcA, arcB Arc, pa, pb projectedArc, a, b CurvePrimitive) bool {
	if pa.center.Distance(pb.center) > x.tol {
		return false
	}
	if !arcA.IsCircular() || !arcB.IsCircular() {
		return false
	}
	ra := pa.u.Hypot()
	rb := pb.u.Hypot()
	if math.Abs(ra-rb) > x.tol {
		return false
	}

	// Angles of arc B's frame are rotated relative to A's. Express B's sweep
	// in A's angle convention.
	rot := pb.u.Angle() - pa.u.Angle()
	dir := 1.0
	if pa.u.Cross(pa.v)*pb.u.Cross(pb.v) < 0 {
		dir = -1
	}
	bStart := rot + dir*arcB.StartRadians
	bSweep := dir * arcB.SweepRadians

	aLo, aHi := sweepInterval(arcA.StartRadians, arcA.SweepRadians)
	bLo, bHi := sweepInterval(bStart, bSweep)
	for _, shift := range [3]float64{-2 * math.Pi, 0, 2 * math.Pi} {
		lo := max(aLo, bLo+shift)
		hi := min(aHi, bHi+shift)
		if hi < lo-1e-12 {
			continue
		}
		fa0 := angleFraction(arcA.StartRadians, arcA.SweepRadians, lo)
		fa1 := angleFraction(arcA.StartRadians, arcA.SweepRadians, hi)
		fb0 := angleFraction(bStart, bSweep, lo-shift)
		fb1 := angleFraction(bStart, bSweep, hi-shift)
		ca, cb := a.(Arc), b.(Arc)
		if hi-lo <= 1e-12 {
			x.appendPoint(fa0, ca.FractionToPoint(fa0), fb0, cb.FractionToPoint(fb0), a, b)
			continue
		}
		x.appendInterval(
			fa0, fa1, ca.FractionToPoint(fa0), ca.FractionToPoint(fa1),
			fb0, fb1, cb.FractionToPoint(fb0), cb.FractionToPoint(fb1),
			a, b)
	}
	// Coincident as curves even when the sweeps share nothing.
	return true
}

// sweepInterval normalizes a start/sweep pair to an increasing angle
// interval with lo in (−π, π].
func sweepInterval(start, sweep float64) (float64, float64) {
	a0 := start
	a1 := start + sweep
	lo, hi := min(a0, a1), max(a0, a1)
	n := normalizeRadians(lo)
	hi += n - lo
	return n, hi
}

// angleFraction maps an angle to fraction of a start/sweep pair.
func angleFraction(start, sweep, theta float64) float64 {
	if sweep == 0 {
		return 0
	}
	f := (theta - start) / sweep
	// Reduce by whole turns toward [0, 1].
	turn := 2 * math.Pi / math.Abs(sweep)
	for f > 1+fractionFuzz {
		f -= turn
	}
	for f < -fractionFuzz {
		f += turn
	}
	return f
}

// projectSpan returns the span with poles pushed through the world-to-local
// matrix, in homogeneous form when the matrix is present.
func (x *intersector) projectSpan(span BezierSpan) BezierSpan {
	if x.worldToLocal == nil {
		return span
	}
	out := span
	out.PoleLength = 4
	out.Poles = make([]float64, span.Order*4)
	for i := 0; i < span.Order; i++ {
		px, py, pz, pw := span.PoleXYZW(i)
		h := vec4.T{px, py, pz, pw}
		q := x.worldToLocal.MulVec4(&h)
		copy(out.Poles[i*4:], q[:])
	}
	return out
}

// spanBounds is the projected control-polygon bounding box.
func (x *intersector) spanBounds(span BezierSpan) Rect {
	px, py, pz, pw := span.PoleXYZW(0)
	p := x.projectPoint(vec3.T{px / pw, py / pw, pz / pw})
	r := NewRectFromPoints(p, p)
	for i := 1; i < span.Order; i++ {
		px, py, pz, pw = span.PoleXYZW(i)
		r = r.UnionPoint(x.projectPoint(vec3.T{px / pw, py / pw, pz / pw}))
	}
	return r
}

// segSpline intersects a segment with every Bezier span of a B-spline: the
// projected segment's vertical plane cuts each span's homogeneous altitude
// polynomial, whose roots are found directly.
func (x *intersector) segSpline(a, b CurvePrimitive) {
	sa := a.(Segment)
	spline := b.(*BSplineCurve)
	a0 := x.projectPoint(sa.Point0)
	a1 := x.projectPoint(sa.Point1)
	da := a1.Sub(a0)
	if da.Hypot() <= x.tol {
		return
	}
	n := da.Perp()
	plane := Plane{
		Origin: vec3.T{a0.X, a0.Y, 0},
		Normal: vec3.T{n.X, n.Y, 0},
	}
	invA2 := 1 / da.Hypot2()
	var local []float64
	for _, span := range spline.BezierSpans() {
		proj := x.projectSpan(span)
		local = proj.AppendPlaneAltitudeRoots(plane, local[:0])
		for _, t := range local {
			fb := spline.Knots().KnotToFraction(span.Knot0 + t*(span.Knot1-span.Knot0))
			pb := spline.FractionToPoint(fb)
			pp := x.projectPoint(pb)
			fa := pp.Sub(a0).Dot(da) * invA2
			if !acceptFraction(x.extendA, fa) {
				continue
			}
			// The root is on the segment's infinite line by construction;
			// verify the projected point really is within tolerance.
			onLine := a0.Lerp(a1, fa)
			if onLine.Distance(pp) > x.tol {
				continue
			}
			x.appendPoint(fa, sa.FractionToPoint(fa), fb, pb, a, b)
		}
	}
}

func (x *intersector) polySpline(a, b CurvePrimitive) {
	pl := a.(Polyline)
	saved := x.extendA
	x.extendA = false
	defer func() { x.extendA = saved }()
	for i := 0; i < pl.NumEdges(); i++ {
		edge := pl.Edge(i)
		mark := len(x.results)
		x.segSpline(edge, b)
		x.remapSide(mark, false, a, func(f float64) float64 {
			return pl.EdgeToGlobalFraction(i, f)
		})
	}
}

const maxNewtonIterations = 15

// newtonRefine polishes an approximate crossing of two curves with a
// two-variable Newton iteration on the projected separation vector. It
// reports false when the iteration stalls or the Jacobian degenerates; the
// caller then keeps the coarse estimate.
func (x *intersector) newtonRefine(a CurvePrimitive, fa float64, b CurvePrimitive, fb float64) (float64, float64, bool) {
	smallSteps := 0
	for iter := 0; iter < maxNewtonIterations; iter++ {
		pa := x.projectCurvePoint(a, fa)
		pb := x.projectCurvePoint(b, fb)
		f := pa.Sub(pb)
		ta := x.projectedTangent(a, fa)
		tb := x.projectedTangent(b, fb)
		det := ta.Cross(tb.Mul(-1))
		if math.Abs(det) < 1e-14 {
			return fa, fb, false
		}
		// Solve [ta  −tb]·(dfa, dfb) = f.
		dfa := (f.Cross(tb.Mul(-1))) / det
		dfb := (ta.Cross(f)) / det
		fa -= dfa
		fb -= dfb
		if math.Abs(dfa)+math.Abs(dfb) < 1e-12 {
			smallSteps++
			if smallSteps >= 2 {
				return fa, fb, true
			}
		} else {
			smallSteps = 0
		}
	}
	return fa, fb, false
}

// spanPolyline strokes a span coarsely and returns the polyline points with
// their global fractions on the parent spline.
func spanPolyline(spline *BSplineCurve, span BezierSpan) ([]vec3.T, []float64) {
	n := span.StrokeCount()
	pts := make([]vec3.T, n+1)
	fractions := make([]float64, n+1)
	for i := 0; i <= n; i++ {
		t := float64(i) / float64(n)
		pts[i] = span.PointAt(t)
		fractions[i] = spline.Knots().KnotToFraction(span.Knot0 + t*(span.Knot1-span.Knot0))
	}
	return pts, fractions
}

func (x *intersector) arcSpline(a, b CurvePrimitive) {
	arc := a.(Arc)
	spline := b.(*BSplineCurve)
	if math.Abs(arc.SweepRadians) < 1e-14 {
		return
	}
	pa := x.projectArc(arc)
	if pa.u.Cross(pa.v) == 0 {
		return
	}
	for _, span := range spline.BezierSpans() {
		pts, fractions := spanPolyline(spline, span)
		for i := 0; i+1 < len(pts); i++ {
			e0 := x.projectPoint(pts[i])
			e1 := x.projectPoint(pts[i+1])
			var angles [2]float64
			n := segArcAngles(e0, e1, pa, &angles)
			for _, theta := range angles[:n] {
				d := e1.Sub(e0)
				t := pa.pointAtAngle(theta).Sub(e0).Dot(d) / d.Hypot2()
				if t < -fractionFuzz || t > 1+fractionFuzz {
					continue
				}
				coarseFa := arc.AngleToFraction(theta)
				coarseFb := fractions[i] + t*(fractions[i+1]-fractions[i])
				fa, fb, ok := x.newtonRefine(arc, coarseFa, spline, coarseFb)
				if !ok {
					fa, fb = coarseFa, coarseFb
				}
				if !acceptFraction(x.extendA, fa) || fb < -fractionFuzz || fb > 1+fractionFuzz {
					continue
				}
				fb = min(1, max(0, fb))
				x.appendPoint(fa, arc.FractionToPoint(fa), fb, spline.FractionToPoint(fb), a, b)
			}
		}
	}
}

// splineSpline pairs Bezier spans whose projected boxes overlap (via an
// R-tree over the second curve's spans), generates coarse candidates from the
// cheaper span's polyline, and Newton-refines every candidate.
func (x *intersector) splineSpline(a, b CurvePrimitive) {
	ca := a.(*BSplineCurve)
	cb := b.(*BSplineCurve)
	spansA := ca.BezierSpans()
	spansB := cb.BezierSpans()
	if len(spansA) == 0 || len(spansB) == 0 {
		return
	}

	tree := rtreego.NewTree(2, 4, 8)
	entries := make([]spanEntry, len(spansB))
	for i := range spansB {
		entries[i] = spanEntry{
			rect:  x.spanBounds(spansB[i]).Inflate(x.tol).Spatial(),
			index: i,
		}
		tree.Insert(&entries[i])
	}

	for ai := range spansA {
		bounds := x.spanBounds(spansA[ai]).Inflate(x.tol)
		for _, hit := range tree.SearchIntersect(bounds.Spatial()) {
			bi := hit.(*spanEntry).index
			x.spanSpanCandidates(ca, spansA[ai], cb, spansB[bi], a, b)
		}
	}
}

type spanEntry struct {
	rect  rtreego.Rect
	index int
}

func (e *spanEntry) Bounds() rtreego.Rect {
	return e.rect
}

// spanSpanCandidates strokes the cheaper span, cuts the other span with the
// plane of each stroke edge, and refines the resulting candidates.
func (x *intersector) spanSpanCandidates(ca *BSplineCurve, sa BezierSpan, cb *BSplineCurve, sb BezierSpan, a, b CurvePrimitive) {
	flip := false
	if sb.StrokeCount() < sa.StrokeCount() {
		flip = true
		ca, cb = cb, ca
		sa, sb = sb, sa
	}
	// sa is now the stroked side.
	pts, fractions := spanPolyline(ca, sa)
	projB := x.projectSpan(sb)
	var local []float64
	for i := 0; i+1 < len(pts); i++ {
		e0 := x.projectPoint(pts[i])
		e1 := x.projectPoint(pts[i+1])
		d := e1.Sub(e0)
		if d.Hypot() <= 1e-14 {
			continue
		}
		n := d.Perp()
		plane := Plane{
			Origin: vec3.T{e0.X, e0.Y, 0},
			Normal: vec3.T{n.X, n.Y, 0},
		}
		local = projB.AppendPlaneAltitudeRoots(plane, local[:0])
		for _, t := range local {
			fOther := cb.Knots().KnotToFraction(sb.Knot0 + t*(sb.Knot1-sb.Knot0))
			pOther := x.projectCurvePoint(cb, fOther)
			s := pOther.Sub(e0).Dot(d) / d.Hypot2()
			if s < -fractionFuzz || s > 1+fractionFuzz {
				continue
			}
			fStroked := fractions[i] + s*(fractions[i+1]-fractions[i])
			fa, fb := fStroked, fOther
			if flip {
				fa, fb = fOther, fStroked
			}
			rfa, rfb, ok := x.newtonRefine(a, fa, b, fb)
			if ok {
				fa, fb = rfa, rfb
			}
			if fa < -fractionFuzz || fa > 1+fractionFuzz || fb < -fractionFuzz || fb > 1+fractionFuzz {
				continue
			}
			fa = min(1, max(0, fa))
			fb = min(1, max(0, fb))
			// Reject stray candidates that refined away from a true
			// crossing.
			if x.projectCurvePoint(a, fa).Distance(x.projectCurvePoint(b, fb)) > 10*x.tol {
				continue
			}
			x.appendPoint(fa, a.FractionToPoint(fa), fb, b.FractionToPoint(fb), a, b)
		}
	}
}
