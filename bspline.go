package geom

import (
	"math"
	"sort"

	"github.com/ungerik/go3d/float64/vec3"
)

// BSplineCurve is a B-spline curve over a knot vector and a flat pole buffer
// of numPoles × poleLength coordinates. poleLength is 3 for unweighted poles
// and 4 for homogeneous weighted poles (x·w, y·w, z·w, w).
//
// The knot vector and pole buffer are immutable except through InsertKnot.
// Transient evaluation state lives in an [EvalContext], not in the curve.
type BSplineCurve struct {
	knots      *KnotVector
	poles      []float64
	poleLength int

	// Scratch context for the context-free CurvePrimitive entry points.
	// Callers that share a curve across goroutines must use the
	// context-taking methods instead.
	ctx *EvalContext
}

// EvalContext holds the working buffers of curve evaluation: three rows of
// basis weights and three pole accumulators. One context serves any curve;
// reusing it across calls avoids per-evaluation allocation.
type EvalContext struct {
	basis   [MaxOrder]float64
	dBasis  [MaxOrder]float64
	ddBasis [MaxOrder]float64
	poleA   [4]float64
	poleB   [4]float64
	poleC   [4]float64
}

// NewBSplineCurve returns a curve over the given poles, or nil if the counts
// are invalid.
//
// knots may be nil for a clamped uniform knot vector over [0, 1]. Otherwise
// both knot-count conventions are accepted: the legacy form
// numPoles + order == numKnots, whose redundant first and last knots are
// trimmed, and the canonical form numPoles + order == numKnots + 2.
func NewBSplineCurve(poles []vec3.T, degree int, knots []float64) *BSplineCurve {
	kv := resolveKnots(len(poles), degree, knots)
	if kv == nil {
		return nil
	}
	buf := make([]float64, 0, 3*len(poles))
	for i := range poles {
		buf = append(buf, poles[i][0], poles[i][1], poles[i][2])
	}
	return &BSplineCurve{knots: kv, poles: buf, poleLength: 3}
}

// NewWeightedBSplineCurve returns a rational curve with one weight per pole,
// or nil if the counts are invalid. Pole coordinates are premultiplied by
// their weight in the homogeneous buffer.
func NewWeightedBSplineCurve(poles []vec3.T, weights []float64, degree int, knots []float64) *BSplineCurve {
	if len(weights) != len(poles) {
		return nil
	}
	kv := resolveKnots(len(poles), degree, knots)
	if kv == nil {
		return nil
	}
	buf := make([]float64, 0, 4*len(poles))
	for i := range poles {
		w := weights[i]
		buf = append(buf, poles[i][0]*w, poles[i][1]*w, poles[i][2]*w, w)
	}
	return &BSplineCurve{knots: kv, poles: buf, poleLength: 4}
}

func resolveKnots(numPoles, degree int, knots []float64) *KnotVector {
	if knots == nil {
		return NewUniformKnotVector(numPoles, degree)
	}
	order := degree + 1
	var canonical []float64
	switch len(knots) {
	case numPoles + order:
		// Legacy convention carries one redundant knot at each end.
		canonical = make([]float64, len(knots)-2)
		copy(canonical, knots[1:len(knots)-1])
	case numPoles + order - 2:
		canonical = make([]float64, len(knots))
		copy(canonical, knots)
	default:
		return nil
	}
	return NewKnotVector(canonical, degree)
}

// Knots returns the curve's knot vector. The caller must not mutate it.
func (c *BSplineCurve) Knots() *KnotVector {
	return c.knots
}

// Degree returns the polynomial degree.
func (c *BSplineCurve) Degree() int {
	return c.knots.Degree
}

// Order returns degree + 1.
func (c *BSplineCurve) Order() int {
	return c.knots.Order()
}

// NumPoles returns the pole count.
func (c *BSplineCurve) NumPoles() int {
	return len(c.poles) / c.poleLength
}

// PoleLength returns 3 for unweighted curves and 4 for weighted ones.
func (c *BSplineCurve) PoleLength() int {
	return c.poleLength
}

// Pole returns pole i with any weight divided out.
func (c *BSplineCurve) Pole(i int) vec3.T {
	at := i * c.poleLength
	if c.poleLength == 4 {
		w := c.poles[at+3]
		return vec3.T{c.poles[at] / w, c.poles[at+1] / w, c.poles[at+2] / w}
	}
	return vec3.T{c.poles[at], c.poles[at+1], c.poles[at+2]}
}

// Weight returns the weight of pole i, 1 for unweighted curves.
func (c *BSplineCurve) Weight(i int) float64 {
	if c.poleLength == 4 {
		return c.poles[i*c.poleLength+3]
	}
	return 1
}

// Clone returns a deep copy.
func (c *BSplineCurve) Clone() *BSplineCurve {
	poles := make([]float64, len(c.poles))
	copy(poles, c.poles)
	return &BSplineCurve{knots: c.knots.Clone(), poles: poles, poleLength: c.poleLength}
}

func (c *BSplineCurve) scratch() *EvalContext {
	if c.ctx == nil {
		c.ctx = &EvalContext{}
	}
	return c.ctx
}

// sumPoles accumulates weights over the pole window starting at start into
// dst. This is the order × poleLength multiply-add at the heart of every
// evaluation; it does not allocate.
func (c *BSplineCurve) sumPoles(dst []float64, start int, weights []float64) {
	pl := c.poleLength
	for k := 0; k < pl; k++ {
		dst[k] = 0
	}
	at := start * pl
	for _, w := range weights {
		for k := 0; k < pl; k++ {
			dst[k] += w * c.poles[at+k]
		}
		at += pl
	}
}

// PointAt evaluates the curve point at fraction ∈ [0, 1].
func (c *BSplineCurve) PointAt(ctx *EvalContext, fraction float64) vec3.T {
	kv := c.knots
	u := kv.FractionToKnot(fraction)
	span := kv.SpanForKnot(u)
	order := kv.Order()
	kv.EvaluateBasis(span, u, ctx.basis[:order])
	c.sumPoles(ctx.poleA[:c.poleLength], span, ctx.basis[:order])
	return c.dehomogenize(ctx.poleA[:])
}

// PointAndTangentAt evaluates the curve point and first fractional derivative
// at fraction ∈ [0, 1].
func (c *BSplineCurve) PointAndTangentAt(ctx *EvalContext, fraction float64) (vec3.T, vec3.T) {
	pt, tangent, _ := c.pointAndDerivatives(ctx, fraction, false)
	return pt, tangent
}

// PointAnd2DerivativesAt evaluates the curve point and first and second
// fractional derivatives at fraction ∈ [0, 1].
func (c *BSplineCurve) PointAnd2DerivativesAt(ctx *EvalContext, fraction float64) (vec3.T, vec3.T, vec3.T) {
	return c.pointAndDerivatives(ctx, fraction, true)
}

func (c *BSplineCurve) pointAndDerivatives(ctx *EvalContext, fraction float64, second bool) (vec3.T, vec3.T, vec3.T) {
	kv := c.knots
	u := kv.FractionToKnot(fraction)
	span := kv.SpanForKnot(u)
	order := kv.Order()
	var ddRow []float64
	if second {
		ddRow = ctx.ddBasis[:order]
	}
	kv.EvaluateBasisDerivatives(span, u, ctx.basis[:order], ctx.dBasis[:order], ddRow)
	pl := c.poleLength
	c.sumPoles(ctx.poleA[:pl], span, ctx.basis[:order])
	c.sumPoles(ctx.poleB[:pl], span, ctx.dBasis[:order])
	if second {
		c.sumPoles(ctx.poleC[:pl], span, ctx.ddBasis[:order])
	}

	// Derivatives are in knot space; rescale to fraction space.
	scale := kv.DomainEnd() - kv.DomainStart()
	pt := c.dehomogenize(ctx.poleA[:])
	var d1, d2 vec3.T
	if pl == 3 {
		d1 = vec3.T{ctx.poleB[0], ctx.poleB[1], ctx.poleB[2]}
		d1 = d1.Scaled(scale)
		if second {
			d2 = vec3.T{ctx.poleC[0], ctx.poleC[1], ctx.poleC[2]}
			d2 = d2.Scaled(scale * scale)
		}
		return pt, d1, d2
	}
	// Rational: A = P·w, so P' = (A' − P·w')/w and
	// P'' = (A'' − 2 P'·w' − P·w'')/w.
	w := ctx.poleA[3]
	dw := ctx.poleB[3]
	a1 := vec3.T{ctx.poleB[0], ctx.poleB[1], ctx.poleB[2]}
	pw := pt.Scaled(dw)
	d1 = vec3.Sub(&a1, &pw)
	d1 = d1.Scaled(scale / w)
	if second {
		ddw := ctx.poleC[3]
		a2 := vec3.T{ctx.poleC[0], ctx.poleC[1], ctx.poleC[2]}
		t1 := d1.Scaled(2 * dw / scale)
		t2 := pt.Scaled(ddw)
		d2 = vec3.Sub(&a2, &t1)
		d2 = vec3.Sub(&d2, &t2)
		d2 = d2.Scaled(scale * scale / w)
	}
	return pt, d1, d2
}

func (c *BSplineCurve) dehomogenize(buf []float64) vec3.T {
	if c.poleLength == 4 {
		w := buf[3]
		return vec3.T{buf[0] / w, buf[1] / w, buf[2] / w}
	}
	return vec3.T{buf[0], buf[1], buf[2]}
}

// InsertKnot raises the multiplicity of knot value u to targetMultiplicity by
// Boehm's algorithm, splicing one knot and one pole per iteration.
//
// It reports failure for u outside the active domain. Multiplicity is capped
// at the degree; if u already has the requested multiplicity the call is a
// successful no-op. Raising multiplicity at the domain ends is not supported.
func (c *BSplineCurve) InsertKnot(u float64, targetMultiplicity int) bool {
	kv := c.knots
	if !kv.Contains(u) {
		return false
	}
	if targetMultiplicity > kv.Degree {
		targetMultiplicity = kv.Degree
	}
	cur := kv.Multiplicity(u)
	if cur >= targetMultiplicity {
		return true
	}
	if u <= kv.DomainStart()+KnotTolerance || u >= kv.DomainEnd()-KnotTolerance {
		return false
	}
	for ; cur < targetMultiplicity; cur++ {
		c.insertKnotOnce(u)
	}
	c.ctx = nil
	return true
}

func (c *BSplineCurve) insertKnotOnce(u float64) {
	kv := c.knots
	p := kv.Degree
	pl := c.poleLength
	knots := kv.Knots

	// Classic knot index i with U[i] <= u < U[i+1]; the canonical array is
	// the classic one shifted down by one.
	idx := sort.SearchFloat64s(knots, u+KnotTolerance) - 1
	i := idx + 1

	// Corner-cut the pole window i−p+1 .. i.
	newWindow := make([]float64, p*pl)
	for j := i - p + 1; j <= i; j++ {
		den := knots[j+p-1] - knots[j-1]
		alpha := 0.0
		if math.Abs(den) > KnotTolerance {
			alpha = (u - knots[j-1]) / den
		}
		dst := newWindow[(j-(i-p+1))*pl:]
		prev := c.poles[(j-1)*pl:]
		cur := c.poles[j*pl:]
		for k := 0; k < pl; k++ {
			dst[k] = (1-alpha)*prev[k] + alpha*cur[k]
		}
	}

	poles := make([]float64, 0, len(c.poles)+pl)
	poles = append(poles, c.poles[:(i-p+1)*pl]...)
	poles = append(poles, newWindow...)
	poles = append(poles, c.poles[i*pl:]...)
	c.poles = poles

	grown := make([]float64, 0, len(knots)+1)
	grown = append(grown, knots[:idx+1]...)
	grown = append(grown, u)
	grown = append(grown, knots[idx+1:]...)
	kv.Knots = grown
}

// Reversed returns the curve with reversed parameter direction: poles in
// reverse order over the reflected knot vector. Reversing twice yields an
// evaluation-equivalent curve.
func (c *BSplineCurve) Reversed() CurvePrimitive {
	pl := c.poleLength
	n := c.NumPoles()
	poles := make([]float64, len(c.poles))
	for i := 0; i < n; i++ {
		copy(poles[i*pl:(i+1)*pl], c.poles[(n-1-i)*pl:(n-i)*pl])
	}
	return &BSplineCurve{knots: c.knots.Reversed(), poles: poles, poleLength: pl}
}

var _ CurvePrimitive = (*BSplineCurve)(nil)

func (c *BSplineCurve) Kind() CurveKind {
	return KindBSpline
}

// FractionToPoint evaluates the curve with the curve's own scratch context.
func (c *BSplineCurve) FractionToPoint(f float64) vec3.T {
	return c.PointAt(c.scratch(), f)
}

// FractionToPointAndTangent evaluates point and fractional derivative with
// the curve's own scratch context.
func (c *BSplineCurve) FractionToPointAndTangent(f float64) (vec3.T, vec3.T) {
	return c.PointAndTangentAt(c.scratch(), f)
}

// QuickLength returns the control polygon length, an upper bound on the arc
// length.
func (c *BSplineCurve) QuickLength() float64 {
	sum := 0.0
	for i := 1; i < c.NumPoles(); i++ {
		a := c.Pole(i - 1)
		b := c.Pole(i)
		d := vec3.Sub(&b, &a)
		sum += d.Length()
	}
	return sum
}

// ArcLength integrates tangent magnitude span by span with Gauss–Legendre
// quadrature.
func (c *BSplineCurve) ArcLength() float64 {
	ctx := c.scratch()
	speed := func(f float64) float64 {
		_, tangent := c.PointAndTangentAt(ctx, f)
		return tangent.Length()
	}
	kv := c.knots
	sum := 0.0
	for s := 0; s < kv.NumSpans(); s++ {
		if kv.SpanLength(s) <= KnotTolerance {
			continue
		}
		f0 := kv.KnotToFraction(kv.Knots[kv.Degree-1+s])
		f1 := kv.KnotToFraction(kv.Knots[kv.Degree+s])
		sum += gaussArcLength(speed, f0, f1)
	}
	return sum
}

// AppendPlaneIntersections appends the fractions where the curve crosses the
// plane, found span by span in closed form.
func (c *BSplineCurve) AppendPlaneIntersections(plane Plane, dst []float64) []float64 {
	mark := len(dst)
	var local []float64
	for _, span := range c.BezierSpans() {
		local = span.AppendPlaneAltitudeRoots(plane, local[:0])
		for _, t := range local {
			dst = append(dst, c.knots.KnotToFraction(span.Knot0+t*(span.Knot1-span.Knot0)))
		}
	}
	return sortRootsTail(dst, mark)
}

// BezierSpans decomposes the curve into Bezier spans by saturating every
// interior knot to full multiplicity, then slicing consecutive pole windows.
func (c *BSplineCurve) BezierSpans() []BezierSpan {
	kv := c.knots
	degree := kv.Degree
	work := c.Clone()

	// Distinct interior knot values.
	start, end := kv.DomainStart(), kv.DomainEnd()
	prev := math.Inf(-1)
	for _, k := range kv.Knots {
		if k <= start+KnotTolerance || k >= end-KnotTolerance {
			continue
		}
		if k-prev > KnotTolerance {
			work.InsertKnot(k, degree)
			prev = k
		}
	}

	wkv := work.knots
	pl := work.poleLength
	var spans []BezierSpan
	for s := 0; s < wkv.NumSpans(); s++ {
		if wkv.SpanLength(s) <= KnotTolerance {
			continue
		}
		k0 := wkv.Knots[degree-1+s]
		k1 := wkv.Knots[degree+s]
		poles := make([]float64, (degree+1)*pl)
		copy(poles, work.poles[s*pl:(s+degree+1)*pl])
		spans = append(spans, BezierSpan{
			Order:      degree + 1,
			PoleLength: pl,
			Poles:      poles,
			Knot0:      k0,
			Knot1:      k1,
			Fraction0:  kv.KnotToFraction(k0),
			Fraction1:  kv.KnotToFraction(k1),
		})
	}
	return spans
}
