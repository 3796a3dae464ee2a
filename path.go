package geom

// CurveCollection is an ordered sequence of curve primitives. A collection
// exclusively owns its children; callers hand primitives over on insertion
// and must not mutate them afterwards.
type CurveCollection interface {
	// Primitives returns the children in collection order.
	Primitives() []CurvePrimitive
	// IsClosed reports whether the collection is implicitly closed.
	IsClosed() bool
}

// Path is an open, ordered sequence of primitives where each child starts
// where the previous one ends.
type Path struct {
	Children []CurvePrimitive
}

var _ CurveCollection = (*Path)(nil)

func (p *Path) Primitives() []CurvePrimitive {
	return p.Children
}

func (p *Path) IsClosed() bool {
	return false
}

// AsChain adapts the path to the primitive world for intersection fan-out.
func (p *Path) AsChain() Chain {
	return Chain{Children: p.Children}
}

// Loop is an implicitly closed path: the last child's end point joins the
// first child's start point.
type Loop struct {
	Children []CurvePrimitive
}

var _ CurveCollection = (*Loop)(nil)

func (l *Loop) Primitives() []CurvePrimitive {
	return l.Children
}

func (l *Loop) IsClosed() bool {
	return true
}

// AsChain adapts the loop to the primitive world for intersection fan-out.
func (l *Loop) AsChain() Chain {
	return Chain{Children: l.Children}
}

// Polygon strokes the loop into a closed XY polygon with pointsPerChild
// samples on each non-linear child, suitable as boolean-engine input.
// Segments and polylines contribute their exact vertices.
func (l *Loop) Polygon(pointsPerChild int) []Point {
	if pointsPerChild < 2 {
		pointsPerChild = 2
	}
	var pts []Point
	push := func(pt Point) {
		if len(pts) > 0 && pts[len(pts)-1].Distance(pt) <= SmallMetricDistance {
			return
		}
		pts = append(pts, pt)
	}
	for _, child := range l.Children {
		switch c := child.(type) {
		case Segment:
			push(Pt(c.Point0[0], c.Point0[1]))
			push(Pt(c.Point1[0], c.Point1[1]))
		case Polyline:
			for _, p := range c.Points {
				push(Pt(p[0], p[1]))
			}
		default:
			for i := 0; i < pointsPerChild; i++ {
				f := float64(i) / float64(pointsPerChild-1)
				p := child.FractionToPoint(f)
				push(Pt(p[0], p[1]))
			}
		}
	}
	// Drop a duplicated closure point.
	if len(pts) > 1 && pts[0].Distance(pts[len(pts)-1]) <= SmallMetricDistance {
		pts = pts[:len(pts)-1]
	}
	return pts
}

// BagOfCurves is an unordered set of primitives with no continuity contract.
type BagOfCurves struct {
	Children []CurvePrimitive
}

var _ CurveCollection = (*BagOfCurves)(nil)

func (b *BagOfCurves) Primitives() []CurvePrimitive {
	return b.Children
}

func (b *BagOfCurves) IsClosed() bool {
	return false
}
