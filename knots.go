package geom

import "math"

// MaxOrder is the maximum supported B-spline order (degree + 1). Fixed-size
// scratch arrays in the basis recurrence are dimensioned by it.
const MaxOrder = 16

// KnotTolerance is the absolute tolerance below which a knot difference is
// treated as zero. Degenerate (zero-length) spans contribute nothing to the
// basis recurrence instead of dividing by zero.
const KnotTolerance = 1e-9

// SmallMetricDistance is the default metric tolerance for coincidence and
// on-curve tests.
const SmallMetricDistance = 1e-6

// KnotWrapMode describes the periodic-closure convention of a knot vector.
type KnotWrapMode uint8

const (
	// KnotWrapNone marks an ordinary open (clamped or unclamped) knot vector.
	KnotWrapNone KnotWrapMode = iota
	// KnotWrapOpenByAddedPoints marks a periodic curve that was opened by
	// replicating leading poles.
	KnotWrapOpenByAddedPoints
	// KnotWrapOpenByRemovedKnots marks a periodic curve that was opened by
	// trimming wrap-around knots.
	KnotWrapOpenByRemovedKnots
)

// KnotVector is a non-decreasing sequence of knot values together with the
// polynomial degree it serves.
//
// Knots are stored in canonical form, without the two redundant end knots of
// the classic convention: numKnots = numPoles + order − 2. The active domain
// is [Knots[Degree−1], Knots[len(Knots)−Degree]].
//
// A knot vector is exclusively owned by its curve. It is mutated in place only
// by knot insertion, which is driven by the owning curve because the pole
// buffer has to grow in step.
type KnotVector struct {
	Knots  []float64
	Degree int
	Wrap   KnotWrapMode
}

// NewKnotVector returns a knot vector over the given canonical-form knots, or
// nil if the knots are decreasing somewhere or too few for the degree.
func NewKnotVector(knots []float64, degree int) *KnotVector {
	if degree < 1 || degree+1 > MaxOrder || len(knots) < 2*degree {
		return nil
	}
	for i := 1; i < len(knots); i++ {
		if knots[i] < knots[i-1] {
			return nil
		}
	}
	return &KnotVector{Knots: knots, Degree: degree}
}

// NewUniformKnotVector returns a clamped uniform knot vector over [0, 1] for
// the given pole count, or nil if the counts don't support the degree.
func NewUniformKnotVector(numPoles, degree int) *KnotVector {
	if degree < 1 || degree+1 > MaxOrder || numPoles <= degree {
		return nil
	}
	numSpans := numPoles - degree
	knots := make([]float64, 0, numPoles+degree-1)
	for i := 0; i < degree; i++ {
		knots = append(knots, 0)
	}
	for i := 1; i < numSpans; i++ {
		knots = append(knots, float64(i)/float64(numSpans))
	}
	for i := 0; i < degree; i++ {
		knots = append(knots, 1)
	}
	return &KnotVector{Knots: knots, Degree: degree}
}

// Order returns the curve order, degree + 1.
func (kv *KnotVector) Order() int {
	return kv.Degree + 1
}

// NumSpans returns the number of knot spans in the active domain, including
// zero-length spans at repeated knots.
func (kv *KnotVector) NumSpans() int {
	return len(kv.Knots) + 1 - 2*kv.Degree
}

// NumPoles returns the pole count implied by the canonical knot count.
func (kv *KnotVector) NumPoles() int {
	return len(kv.Knots) + 1 - kv.Degree
}

// DomainStart returns the left end of the active domain.
func (kv *KnotVector) DomainStart() float64 {
	return kv.Knots[kv.Degree-1]
}

// DomainEnd returns the right end of the active domain.
func (kv *KnotVector) DomainEnd() float64 {
	return kv.Knots[len(kv.Knots)-kv.Degree]
}

// Contains reports whether u lies in the active domain, within KnotTolerance
// at either end.
func (kv *KnotVector) Contains(u float64) bool {
	return u >= kv.DomainStart()-KnotTolerance && u <= kv.DomainEnd()+KnotTolerance
}

// FractionToKnot maps fraction 0..1 over the active domain to a knot value.
func (kv *KnotVector) FractionToKnot(f float64) float64 {
	a := kv.DomainStart()
	return a + f*(kv.DomainEnd()-a)
}

// KnotToFraction maps a knot value to a fraction over the active domain.
func (kv *KnotVector) KnotToFraction(u float64) float64 {
	a := kv.DomainStart()
	b := kv.DomainEnd()
	if b-a <= KnotTolerance {
		return 0
	}
	return (u - a) / (b - a)
}

// SpanForKnot returns the index of the nonzero-length span containing u,
// clamped to the active domain.
func (kv *KnotVector) SpanForKnot(u float64) int {
	last := kv.NumSpans() - 1
	span := 0
	for i := 0; i <= last; i++ {
		if kv.SpanLength(i) <= KnotTolerance {
			continue
		}
		span = i
		if u < kv.Knots[kv.Degree+i] {
			break
		}
	}
	return span
}

// SpanLength returns the knot-space length of span i.
func (kv *KnotVector) SpanLength(i int) float64 {
	return kv.Knots[kv.Degree+i] - kv.Knots[kv.Degree-1+i]
}

// Multiplicity returns the number of knots equal to u within KnotTolerance.
func (kv *KnotVector) Multiplicity(u float64) int {
	n := 0
	for _, k := range kv.Knots {
		if math.Abs(k-u) <= KnotTolerance {
			n++
		}
	}
	return n
}

// Clone returns a deep copy.
func (kv *KnotVector) Clone() *KnotVector {
	knots := make([]float64, len(kv.Knots))
	copy(knots, kv.Knots)
	return &KnotVector{Knots: knots, Degree: kv.Degree, Wrap: kv.Wrap}
}

// Reversed returns the knot vector of the reversed curve: the knot sequence
// reflected through the domain so that u maps to a0 + a1 − u.
func (kv *KnotVector) Reversed() *KnotVector {
	sum := kv.DomainStart() + kv.DomainEnd()
	knots := make([]float64, len(kv.Knots))
	for i, k := range kv.Knots {
		knots[len(knots)-1-i] = sum - k
	}
	return &KnotVector{Knots: knots, Degree: kv.Degree, Wrap: kv.Wrap}
}

// EvaluateBasis computes the order nonzero basis-function values at u within
// the given span into f, which must have length ≥ order.
//
// This is the standard triangular recurrence: the single nonzero degree-0
// function for the span is blended upward degree times using knot-difference
// ratios. A denominator below KnotTolerance marks a zero-length span and
// contributes zero.
func (kv *KnotVector) EvaluateBasis(span int, u float64, f []float64) {
	kv.evaluateBasisRows(span, u, f, nil, nil)
}

// EvaluateBasisDerivatives computes basis values and first derivatives (and,
// if ddf is non-nil, second derivatives) at u within the given span. Each
// destination must have length ≥ order.
func (kv *KnotVector) EvaluateBasisDerivatives(span int, u float64, f, df, ddf []float64) {
	kv.evaluateBasisRows(span, u, f, df, ddf)
}

func (kv *KnotVector) evaluateBasisRows(span int, u float64, f, df, ddf []float64) {
	degree := kv.Degree
	a := degree - 1 + span
	knots := kv.Knots

	// rowM1 and rowM2 capture the order−1 and order−2 triangle rows for the
	// derivative differencing below.
	var left, right, rowM1, rowM2 [MaxOrder]float64
	rowM1[0] = 1
	rowM2[0] = 1
	f[0] = 1
	for j := 1; j <= degree; j++ {
		left[j] = u - knots[a+1-j]
		right[j] = knots[a+j] - u
		saved := 0.0
		for r := 0; r < j; r++ {
			den := right[r+1] + left[j-r]
			temp := 0.0
			if math.Abs(den) > KnotTolerance {
				temp = f[r] / den
			}
			f[r] = saved + right[r+1]*temp
			saved = left[j-r] * temp
		}
		f[j] = saved
		if j == degree-2 {
			copy(rowM2[:j+1], f[:j+1])
		}
		if j == degree-1 {
			copy(rowM1[:j+1], f[:j+1])
		}
	}

	if df == nil && ddf == nil {
		return
	}
	p := float64(degree)
	if df != nil {
		for r := 0; r <= degree; r++ {
			v := 0.0
			if r > 0 {
				if den := knots[a+r] - knots[a+r-degree]; math.Abs(den) > KnotTolerance {
					v += rowM1[r-1] / den
				}
			}
			if r < degree {
				if den := knots[a+r+1] - knots[a+r+1-degree]; math.Abs(den) > KnotTolerance {
					v -= rowM1[r] / den
				}
			}
			df[r] = p * v
		}
	}
	if ddf == nil {
		return
	}
	if degree < 2 {
		for r := 0; r <= degree; r++ {
			ddf[r] = 0
		}
		return
	}
	// First derivatives of the degree−1 window, from the degree−2 row.
	var dRowM1 [MaxOrder]float64
	q := p - 1
	for s := 0; s < degree; s++ {
		v := 0.0
		if s > 0 {
			if den := knots[a+s] - knots[a+s+1-degree]; math.Abs(den) > KnotTolerance {
				v += rowM2[s-1] / den
			}
		}
		if s < degree-1 {
			if den := knots[a+s+1] - knots[a+s+2-degree]; math.Abs(den) > KnotTolerance {
				v -= rowM2[s] / den
			}
		}
		dRowM1[s] = q * v
	}
	for r := 0; r <= degree; r++ {
		v := 0.0
		if r > 0 {
			if den := knots[a+r] - knots[a+r-degree]; math.Abs(den) > KnotTolerance {
				v += dRowM1[r-1] / den
			}
		}
		if r < degree {
			if den := knots[a+r+1] - knots[a+r+1-degree]; math.Abs(den) > KnotTolerance {
				v -= dRowM1[r] / den
			}
		}
		ddf[r] = p * v
	}
}
