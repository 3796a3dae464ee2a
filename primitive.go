package geom

import (
	"math"

	"github.com/ungerik/go3d/float64/vec3"
)

// CurveKind identifies the concrete type of a CurvePrimitive. Intersection
// algorithms are selected by a table keyed on pairs of kinds.
type CurveKind uint8

const (
	KindSegment CurveKind = iota
	KindPolyline
	KindArc
	KindBSpline
	KindChain
	numCurveKinds
)

// CurvePrimitive is a parametric curve addressed by fraction ∈ [0, 1].
type CurvePrimitive interface {
	// Kind returns the dispatch tag.
	Kind() CurveKind
	// FractionToPoint evaluates the curve point at a fraction.
	FractionToPoint(f float64) vec3.T
	// FractionToPointAndTangent evaluates the point and the first
	// fractional derivative.
	FractionToPointAndTangent(f float64) (vec3.T, vec3.T)
	// QuickLength returns a cheap length estimate, at least as large as the
	// true arc length for convex-hull-bounded curves.
	QuickLength() float64
	// ArcLength returns the arc length, exactly where closed forms exist
	// and by Gauss–Legendre quadrature otherwise.
	ArcLength() float64
	// AppendPlaneIntersections appends the fractions in [0, 1] where the
	// curve crosses the plane.
	AppendPlaneIntersections(plane Plane, dst []float64) []float64
	// Reversed returns a curve traversing the same locus with fraction
	// running the opposite way.
	Reversed() CurvePrimitive
}

// Plane is an infinite plane given by a point and a (not necessarily unit)
// normal.
type Plane struct {
	Origin vec3.T
	Normal vec3.T
}

// Altitude returns the signed scaled distance of pt from the plane.
func (p Plane) Altitude(pt *vec3.T) float64 {
	d := vec3.Sub(pt, &p.Origin)
	return vec3.Dot(&d, &p.Normal)
}

// VectorAltitude returns the altitude change along a direction vector.
func (p Plane) VectorAltitude(v *vec3.T) float64 {
	return vec3.Dot(v, &p.Normal)
}

// AltitudeXYZW returns the homogeneous altitude of a weighted point: the
// altitude of (x/w, y/w, z/w) scaled by w. Signs of roots are preserved, which
// is all the span root extraction needs.
func (p Plane) AltitudeXYZW(x, y, z, w float64) float64 {
	n := p.Normal
	return n[0]*x + n[1]*y + n[2]*z - w*vec3.Dot(&p.Normal, &p.Origin)
}

// Segment is a straight line segment between two points.
type Segment struct {
	Point0 vec3.T
	Point1 vec3.T
}

var _ CurvePrimitive = Segment{}

func (s Segment) Kind() CurveKind {
	return KindSegment
}

func (s Segment) FractionToPoint(f float64) vec3.T {
	return vec3.Interpolate(&s.Point0, &s.Point1, f)
}

func (s Segment) FractionToPointAndTangent(f float64) (vec3.T, vec3.T) {
	return vec3.Interpolate(&s.Point0, &s.Point1, f), vec3.Sub(&s.Point1, &s.Point0)
}

func (s Segment) QuickLength() float64 {
	d := vec3.Sub(&s.Point1, &s.Point0)
	return d.Length()
}

func (s Segment) ArcLength() float64 {
	return s.QuickLength()
}

func (s Segment) AppendPlaneIntersections(plane Plane, dst []float64) []float64 {
	h0 := plane.Altitude(&s.Point0)
	h1 := plane.Altitude(&s.Point1)
	if math.Abs(h1-h0) <= KnotTolerance*(1+math.Abs(h0)) {
		return dst
	}
	f := -h0 / (h1 - h0)
	if f >= -fractionFuzz && f <= 1+fractionFuzz {
		dst = append(dst, min(1, max(0, f)))
	}
	return dst
}

func (s Segment) Reversed() CurvePrimitive {
	return Segment{Point0: s.Point1, Point1: s.Point0}
}

// Polyline is an ordered point sequence evaluated with uniform fractions: the
// fraction interval [i/(n−1), (i+1)/(n−1)] covers edge i.
type Polyline struct {
	Points []vec3.T
}

var _ CurvePrimitive = Polyline{}

func (p Polyline) Kind() CurveKind {
	return KindPolyline
}

// NumEdges returns the number of line segments.
func (p Polyline) NumEdges() int {
	if len(p.Points) < 2 {
		return 0
	}
	return len(p.Points) - 1
}

// Edge returns edge i as a segment.
func (p Polyline) Edge(i int) Segment {
	return Segment{Point0: p.Points[i], Point1: p.Points[i+1]}
}

// edgeAt maps a global fraction to an edge index and local fraction.
func (p Polyline) edgeAt(f float64) (int, float64) {
	n := p.NumEdges()
	if n == 0 {
		return 0, 0
	}
	scaled := f * float64(n)
	i := int(math.Floor(scaled))
	if i < 0 {
		i = 0
	}
	if i > n-1 {
		i = n - 1
	}
	return i, scaled - float64(i)
}

// EdgeToGlobalFraction maps edge i local fraction to a whole-curve fraction.
func (p Polyline) EdgeToGlobalFraction(i int, local float64) float64 {
	n := p.NumEdges()
	if n == 0 {
		return 0
	}
	return (float64(i) + local) / float64(n)
}

func (p Polyline) FractionToPoint(f float64) vec3.T {
	if len(p.Points) == 0 {
		return vec3.Zero
	}
	if len(p.Points) == 1 {
		return p.Points[0]
	}
	i, local := p.edgeAt(f)
	return vec3.Interpolate(&p.Points[i], &p.Points[i+1], local)
}

func (p Polyline) FractionToPointAndTangent(f float64) (vec3.T, vec3.T) {
	if len(p.Points) < 2 {
		return p.FractionToPoint(f), vec3.Zero
	}
	i, local := p.edgeAt(f)
	d := vec3.Sub(&p.Points[i+1], &p.Points[i])
	return vec3.Interpolate(&p.Points[i], &p.Points[i+1], local), d.Scaled(float64(p.NumEdges()))
}

func (p Polyline) QuickLength() float64 {
	sum := 0.0
	for i := 0; i < p.NumEdges(); i++ {
		d := vec3.Sub(&p.Points[i+1], &p.Points[i])
		sum += d.Length()
	}
	return sum
}

func (p Polyline) ArcLength() float64 {
	return p.QuickLength()
}

func (p Polyline) AppendPlaneIntersections(plane Plane, dst []float64) []float64 {
	n := p.NumEdges()
	for i := 0; i < n; i++ {
		mark := len(dst)
		dst = p.Edge(i).AppendPlaneIntersections(plane, dst)
		for k := mark; k < len(dst); k++ {
			dst[k] = p.EdgeToGlobalFraction(i, dst[k])
		}
	}
	return dst
}

func (p Polyline) Reversed() CurvePrimitive {
	pts := make([]vec3.T, len(p.Points))
	for i := range pts {
		pts[i] = p.Points[len(pts)-1-i]
	}
	return Polyline{Points: pts}
}

// Arc is a circular or elliptic arc: center plus two sweep vectors and an
// angular sweep. The point at angle θ is Center + cosθ·Vector0 + sinθ·Vector90,
// and fraction f maps to θ = StartRadians + f·SweepRadians.
type Arc struct {
	Center   vec3.T
	Vector0  vec3.T
	Vector90 vec3.T

	StartRadians float64
	SweepRadians float64
}

var _ CurvePrimitive = Arc{}

// NewCircularArc returns the full circle of the given radius in the XY plane.
func NewCircularArc(center vec3.T, radius float64) Arc {
	return Arc{
		Center:       center,
		Vector0:      vec3.T{radius, 0, 0},
		Vector90:     vec3.T{0, radius, 0},
		SweepRadians: 2 * math.Pi,
	}
}

func (a Arc) Kind() CurveKind {
	return KindArc
}

// AngleAt returns the angle at a fraction.
func (a Arc) AngleAt(f float64) float64 {
	return a.StartRadians + f*a.SweepRadians
}

// PointAtAngle evaluates the arc at an angle, ignoring the sweep limits.
func (a Arc) PointAtAngle(theta float64) vec3.T {
	sin, cos := math.Sincos(theta)
	v0 := a.Vector0.Scaled(cos)
	v90 := a.Vector90.Scaled(sin)
	pt := vec3.Add(&a.Center, &v0)
	return vec3.Add(&pt, &v90)
}

func (a Arc) FractionToPoint(f float64) vec3.T {
	return a.PointAtAngle(a.AngleAt(f))
}

func (a Arc) FractionToPointAndTangent(f float64) (vec3.T, vec3.T) {
	theta := a.AngleAt(f)
	sin, cos := math.Sincos(theta)
	v0 := a.Vector0.Scaled(-sin * a.SweepRadians)
	v90 := a.Vector90.Scaled(cos * a.SweepRadians)
	return a.PointAtAngle(theta), vec3.Add(&v0, &v90)
}

// IsCircular reports whether the sweep vectors describe a true circle.
func (a Arc) IsCircular() bool {
	r0 := a.Vector0.Length()
	r90 := a.Vector90.Length()
	return math.Abs(r0-r90) <= SmallMetricDistance &&
		math.Abs(vec3.Dot(&a.Vector0, &a.Vector90)) <= SmallMetricDistance*(r0+1)
}

func (a Arc) QuickLength() float64 {
	r := max(a.Vector0.Length(), a.Vector90.Length())
	return math.Abs(a.SweepRadians) * r
}

func (a Arc) ArcLength() float64 {
	if a.IsCircular() {
		return math.Abs(a.SweepRadians) * a.Vector0.Length()
	}
	speed := func(f float64) float64 {
		_, tangent := a.FractionToPointAndTangent(f)
		return tangent.Length()
	}
	// One quadrature piece per quarter turn keeps the fixed rule inside its
	// accuracy range on eccentric ellipses.
	pieces := int(math.Ceil(math.Abs(a.SweepRadians) / (0.5 * math.Pi)))
	if pieces < 1 {
		pieces = 1
	}
	sum := 0.0
	for i := 0; i < pieces; i++ {
		f0 := float64(i) / float64(pieces)
		f1 := float64(i+1) / float64(pieces)
		sum += gaussArcLength(speed, f0, f1)
	}
	return sum
}

// AngleToFraction maps an angle to the arc's fraction space, choosing the
// periodic image closest to the sweep interval.
func (a Arc) AngleToFraction(theta float64) float64 {
	sweep := a.SweepRadians
	if sweep == 0 {
		return 0
	}
	delta := math.Mod(theta-a.StartRadians, 2*math.Pi)
	if sweep > 0 {
		if delta < 0 {
			delta += 2 * math.Pi
		}
		// Beyond the sweep, the image below the start may be closer.
		if delta > sweep && delta-2*math.Pi > -(delta-sweep) {
			delta -= 2 * math.Pi
		}
	} else {
		if delta > 0 {
			delta -= 2 * math.Pi
		}
		if delta < sweep && delta+2*math.Pi < -(delta-sweep) {
			delta += 2 * math.Pi
		}
	}
	return delta / sweep
}

func (a Arc) AppendPlaneIntersections(plane Plane, dst []float64) []float64 {
	// Altitude along the arc is h(θ) = α·cosθ + β·sinθ + γ.
	alpha := plane.VectorAltitude(&a.Vector0)
	beta := plane.VectorAltitude(&a.Vector90)
	gamma := plane.Altitude(&a.Center)
	var angles [2]float64
	n := cosSinRoots(alpha, beta, gamma, &angles)
	mark := len(dst)
	for _, theta := range angles[:n] {
		f := a.AngleToFraction(theta)
		if f >= -fractionFuzz && f <= 1+fractionFuzz {
			dst = append(dst, min(1, max(0, f)))
		}
	}
	return sortRootsTail(dst, mark)
}

func (a Arc) Reversed() CurvePrimitive {
	r := a
	r.StartRadians = a.StartRadians + a.SweepRadians
	r.SweepRadians = -a.SweepRadians
	return r
}

// Chain is a composite of consecutive child primitives. Fraction space is
// split uniformly across children: child i covers [i/n, (i+1)/n].
type Chain struct {
	Children []CurvePrimitive
}

var _ CurvePrimitive = Chain{}

func (c Chain) Kind() CurveKind {
	return KindChain
}

func (c Chain) childAt(f float64) (int, float64) {
	n := len(c.Children)
	if n == 0 {
		return 0, 0
	}
	scaled := f * float64(n)
	i := int(math.Floor(scaled))
	if i < 0 {
		i = 0
	}
	if i > n-1 {
		i = n - 1
	}
	return i, scaled - float64(i)
}

// ChildToGlobalFraction maps child i local fraction to chain fraction.
func (c Chain) ChildToGlobalFraction(i int, local float64) float64 {
	if len(c.Children) == 0 {
		return 0
	}
	return (float64(i) + local) / float64(len(c.Children))
}

func (c Chain) FractionToPoint(f float64) vec3.T {
	if len(c.Children) == 0 {
		return vec3.Zero
	}
	i, local := c.childAt(f)
	return c.Children[i].FractionToPoint(local)
}

func (c Chain) FractionToPointAndTangent(f float64) (vec3.T, vec3.T) {
	if len(c.Children) == 0 {
		return vec3.Zero, vec3.Zero
	}
	i, local := c.childAt(f)
	pt, tangent := c.Children[i].FractionToPointAndTangent(local)
	return pt, tangent.Scaled(float64(len(c.Children)))
}

func (c Chain) QuickLength() float64 {
	sum := 0.0
	for _, child := range c.Children {
		sum += child.QuickLength()
	}
	return sum
}

func (c Chain) ArcLength() float64 {
	sum := 0.0
	for _, child := range c.Children {
		sum += child.ArcLength()
	}
	return sum
}

func (c Chain) AppendPlaneIntersections(plane Plane, dst []float64) []float64 {
	for i, child := range c.Children {
		mark := len(dst)
		dst = child.AppendPlaneIntersections(plane, dst)
		for k := mark; k < len(dst); k++ {
			dst[k] = c.ChildToGlobalFraction(i, dst[k])
		}
	}
	return dst
}

func (c Chain) Reversed() CurvePrimitive {
	children := make([]CurvePrimitive, len(c.Children))
	for i := range children {
		children[i] = c.Children[len(children)-1-i].Reversed()
	}
	return Chain{Children: children}
}

// fractionFuzz is the parametric slack admitted at curve ends.
const fractionFuzz = 1e-8

// cosSinRoots finds the angles solving a·cosθ + b·sinθ + c = 0, normalized to
// (−π, π]. Returns the root count, 0 through 2.
func cosSinRoots(a, b, c float64, out *[2]float64) int {
	r := math.Hypot(a, b)
	if r < 1e-14 {
		return 0
	}
	q := -c / r
	if q < -1-1e-12 || q > 1+1e-12 {
		return 0
	}
	q = min(1, max(-1, q))
	phi := math.Atan2(b, a)
	d := math.Acos(q)
	out[0] = normalizeRadians(phi + d)
	if d < 1e-12 || math.Pi-d < 1e-12 {
		return 1
	}
	out[1] = normalizeRadians(phi - d)
	return 2
}

// normalizeRadians brings an angle into (−π, π].
func normalizeRadians(theta float64) float64 {
	theta = math.Mod(theta, 2*math.Pi)
	if theta <= -math.Pi {
		theta += 2 * math.Pi
	} else if theta > math.Pi {
		theta -= 2 * math.Pi
	}
	return theta
}

// gaussArcLength integrates a speed function over [a, b] with 16-point
// Gauss–Legendre quadrature.
func gaussArcLength(speed func(float64) float64, a, b float64) float64 {
	mid := 0.5 * (a + b)
	half := 0.5 * (b - a)
	sum := 0.0
	for _, wx := range gaussLegendreCoeffs16 {
		sum += wx[0] * speed(mid+half*wx[1])
	}
	return sum * half
}
