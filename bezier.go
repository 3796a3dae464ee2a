package geom

import (
	"math"
	"sort"

	"github.com/ungerik/go3d/float64/vec3"
)

// BezierSpan is the restriction of a B-spline curve to one nonzero knot
// interval, saturated so that its pole window is a classic Bezier segment.
// Local parameter t ∈ [0, 1] maps linearly to [Knot0, Knot1] in the parent's
// knot space and to [Fraction0, Fraction1] in the parent's fraction space.
type BezierSpan struct {
	Order      int
	PoleLength int
	Poles      []float64 // Order × PoleLength, owned
	Knot0      float64
	Knot1      float64
	Fraction0  float64
	Fraction1  float64
}

// GlobalFraction maps local t to the parent curve's fraction.
func (b *BezierSpan) GlobalFraction(t float64) float64 {
	return b.Fraction0 + t*(b.Fraction1-b.Fraction0)
}

// LocalFraction maps a parent-curve fraction into the span, unclamped.
func (b *BezierSpan) LocalFraction(f float64) float64 {
	d := b.Fraction1 - b.Fraction0
	if d == 0 {
		return 0
	}
	return (f - b.Fraction0) / d
}

// PoleXYZW returns homogeneous pole i; w is 1 for unweighted spans.
func (b *BezierSpan) PoleXYZW(i int) (x, y, z, w float64) {
	at := i * b.PoleLength
	if b.PoleLength == 4 {
		return b.Poles[at], b.Poles[at+1], b.Poles[at+2], b.Poles[at+3]
	}
	return b.Poles[at], b.Poles[at+1], b.Poles[at+2], 1
}

// PointAt evaluates the span at local t by de Casteljau corner cutting.
func (b *BezierSpan) PointAt(t float64) vec3.T {
	var work [MaxOrder * 4]float64
	pl := b.PoleLength
	n := b.Order
	copy(work[:n*pl], b.Poles)
	for depth := 1; depth < n; depth++ {
		for i := 0; i < n-depth; i++ {
			at := i * pl
			next := at + pl
			for k := 0; k < pl; k++ {
				work[at+k] += t * (work[next+k] - work[at+k])
			}
		}
	}
	if pl == 4 {
		w := work[3]
		return vec3.T{work[0] / w, work[1] / w, work[2] / w}
	}
	return vec3.T{work[0], work[1], work[2]}
}

// PointAndTangentAt evaluates the span point and its derivative with respect
// to local t.
func (b *BezierSpan) PointAndTangentAt(t float64) (vec3.T, vec3.T) {
	var work [MaxOrder * 4]float64
	pl := b.PoleLength
	n := b.Order
	copy(work[:n*pl], b.Poles)
	// Run de Casteljau down to the final two points; they give both the
	// point and the hodograph value.
	for depth := 1; depth < n-1; depth++ {
		for i := 0; i < n-depth; i++ {
			at := i * pl
			next := at + pl
			for k := 0; k < pl; k++ {
				work[at+k] += t * (work[next+k] - work[at+k])
			}
		}
	}
	var a, d [4]float64
	for k := 0; k < pl; k++ {
		a[k] = work[k] + t*(work[pl+k]-work[k])
		d[k] = float64(n-1) * (work[pl+k] - work[k])
	}
	if pl == 3 {
		return vec3.T{a[0], a[1], a[2]}, vec3.T{d[0], d[1], d[2]}
	}
	w := a[3]
	pt := vec3.T{a[0] / w, a[1] / w, a[2] / w}
	num := vec3.T{d[0], d[1], d[2]}
	pw := pt.Scaled(d[3])
	tangent := vec3.Sub(&num, &pw)
	tangent = tangent.Scaled(1 / w)
	return pt, tangent
}

// StrokeCount is the evaluation-step heuristic used when a span has to be
// approximated by a coarse polyline.
func (b *BezierSpan) StrokeCount() int {
	n := 4 * (b.Order - 1)
	if n < 4 {
		n = 4
	}
	if n > 32 {
		n = 32
	}
	return n
}

// AppendPlaneAltitudeRoots appends the local t values where the span crosses
// the plane. The homogeneous plane altitude of a Bezier span is itself a
// Bezier scalar over the same window, so its Bernstein ordinates are just the
// per-pole altitudes.
func (b *BezierSpan) AppendPlaneAltitudeRoots(plane Plane, dst []float64) []float64 {
	var ord [MaxOrder]float64
	for i := 0; i < b.Order; i++ {
		x, y, z, w := b.PoleXYZW(i)
		ord[i] = plane.AltitudeXYZW(x, y, z, w)
	}
	return appendBezierRoots01(ord[:b.Order], dst)
}

// appendBezierRoots01 appends the roots in [0, 1] of the Bernstein-form
// scalar polynomial with the given ordinates. Degrees through four go through
// the closed-form solvers after conversion to the power basis; higher degrees
// are bracketed by sampling and polished with SolveITP.
func appendBezierRoots01(ord []float64, dst []float64) []float64 {
	n := len(ord) - 1
	const fuzz = 1e-10

	mark := len(dst)

	// Bernstein hull: no sign variation means no interior roots; only exact
	// zeros at the ends can remain.
	neg, pos := false, false
	for _, v := range ord {
		if v < -fuzz {
			neg = true
		} else if v > fuzz {
			pos = true
		}
	}
	if !neg || !pos {
		if !neg && !pos {
			// Identically zero within fuzz; no isolated roots.
			return dst
		}
		if math.Abs(ord[0]) <= fuzz {
			dst = append(dst, 0)
		}
		if math.Abs(ord[n]) <= fuzz {
			dst = append(dst, 1)
		}
		return sortRootsTail(dst, mark)
	}
	if n <= 4 {
		var power [5]float64
		bernsteinToPower(ord, power[:n+1])
		var roots [4]float64
		var cnt int
		switch n {
		case 1:
			roots[0] = -power[0] / power[1]
			cnt = 1
		case 2:
			r, k := SolveQuadratic(power[0], power[1], power[2])
			copy(roots[:], r[:])
			cnt = k
		case 3:
			r, k := SolveCubic(power[0], power[1], power[2], power[3])
			copy(roots[:], r[:])
			cnt = k
		case 4:
			r, k := SolveQuartic(power[0], power[1], power[2], power[3], power[4])
			copy(roots[:], r[:])
			cnt = k
		}
		for _, t := range roots[:cnt] {
			if t >= -fuzz && t <= 1+fuzz {
				dst = append(dst, min(1, max(0, t)))
			}
		}
		return sortRootsTail(dst, mark)
	}

	eval := func(t float64) float64 {
		var work [MaxOrder]float64
		copy(work[:len(ord)], ord)
		for depth := 1; depth <= n; depth++ {
			for i := 0; i <= n-depth; i++ {
				work[i] += t * (work[i+1] - work[i])
			}
		}
		return work[0]
	}
	samples := 8 * n
	prevT := 0.0
	prevV := eval(0)
	for i := 1; i <= samples; i++ {
		t := float64(i) / float64(samples)
		v := eval(t)
		switch {
		case prevV == 0:
			dst = append(dst, prevT)
		case prevV < 0 && v > 0:
			dst = append(dst, SolveITP(eval, prevT, t, 1e-12, 1, 0.2/(t-prevT), prevV, v))
		case prevV > 0 && v < 0:
			neg := func(x float64) float64 { return -eval(x) }
			dst = append(dst, SolveITP(neg, prevT, t, 1e-12, 1, 0.2/(t-prevT), -prevV, -v))
		}
		prevT, prevV = t, v
	}
	if prevV == 0 {
		dst = append(dst, 1)
	}
	return sortRootsTail(dst, mark)
}

// bernsteinToPower converts Bernstein ordinates to power-basis coefficients,
// constant term first.
func bernsteinToPower(ord []float64, power []float64) {
	n := len(ord) - 1
	for k := 0; k <= n; k++ {
		sum := 0.0
		sign := 1.0
		if k%2 == 1 {
			sign = -1
		}
		for i := 0; i <= k; i++ {
			sum += sign * binomial(k, i) * ord[i]
			sign = -sign
		}
		power[k] = binomial(n, k) * sum
	}
}

func binomial(n, k int) float64 {
	if k < 0 || k > n {
		return 0
	}
	v := 1.0
	for i := 0; i < k; i++ {
		v = v * float64(n-i) / float64(i+1)
	}
	return v
}

// sortRootsTail sorts and deduplicates the roots appended after mark, leaving
// earlier entries untouched.
func sortRootsTail(s []float64, mark int) []float64 {
	sort.Float64s(s[mark:])
	out := s[:mark]
	for i := mark; i < len(s); i++ {
		if len(out) > mark && math.Abs(s[i]-out[len(out)-1]) <= 1e-10 {
			continue
		}
		out = append(out, s[i])
	}
	return out
}
