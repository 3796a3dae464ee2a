// Package geom is a curve geometry kernel for planar modeling. It provides
// B-spline and conic curve primitives, curve-curve intersection in a
// projected plane, and boolean operations on polygonal regions.
//
// # Curves
//
// [CurvePrimitive] is the parametric curve contract, addressed by fraction in
// [0, 1]. Implementations are [Segment], [Polyline], [Arc], [BSplineCurve],
// and the composite [Chain]. Collections of primitives with path semantics
// are described by [CurveCollection] ([Path], [Loop], [BagOfCurves]).
//
// B-spline curves carry clamped, possibly weighted control points over a
// trimmed knot vector ([KnotVector]). Knot insertion, Bezier-span extraction
// ([BSplineCurve.BezierSpans]) and basis evaluation are exposed directly for
// callers building their own algorithms.
//
// # Intersection
//
// [IntersectXY] intersects any pair of primitives in the XY plane, optionally
// after a world-to-local (possibly perspective) transform. Coincident
// geometry is reported as intervals rather than point clusters; see
// [IntersectionDetail].
//
// # Booleans
//
// [Union], [Intersection] and [Difference] operate on polygonal [LoopSet]
// regions through a half-edge graph pipeline ([HalfEdgeGraph]); generalized
// acceptance rules go through [BooleanOp]. Curved regions are stroked first,
// for example with [Loop.Polygon].
package geom
