package geom

import "github.com/dhconnelly/rtreego"

// Rect is an axis-aligned rectangle in the projected XY plane, used for quick
// rejection of curve spans and graph edges before the exact intersection math
// runs.
type Rect struct {
	X0 float64
	Y0 float64
	X1 float64
	Y1 float64
}

// NewRectFromPoints returns the smallest rectangle containing p0 and p1.
func NewRectFromPoints(p0, p1 Point) Rect {
	return Rect{
		X0: min(p0.X, p1.X),
		Y0: min(p0.Y, p1.Y),
		X1: max(p0.X, p1.X),
		Y1: max(p0.Y, p1.Y),
	}
}

// Union returns the smallest rectangle containing r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		X0: min(r.X0, o.X0),
		Y0: min(r.Y0, o.Y0),
		X1: max(r.X1, o.X1),
		Y1: max(r.Y1, o.Y1),
	}
}

// UnionPoint returns the smallest rectangle containing r and pt.
func (r Rect) UnionPoint(pt Point) Rect {
	return Rect{
		X0: min(r.X0, pt.X),
		Y0: min(r.Y0, pt.Y),
		X1: max(r.X1, pt.X),
		Y1: max(r.Y1, pt.Y),
	}
}

// Inflate returns a rectangle grown by d on every side.
func (r Rect) Inflate(d float64) Rect {
	return Rect{
		X0: r.X0 - d,
		Y0: r.Y0 - d,
		X1: r.X1 + d,
		Y1: r.Y1 + d,
	}
}

// Intersects reports whether r and o share at least one point.
func (r Rect) Intersects(o Rect) bool {
	return r.X0 <= o.X1 && o.X0 <= r.X1 && r.Y0 <= o.Y1 && o.Y0 <= r.Y1
}

// Spatial converts the rectangle to an R-tree entry. Degenerate extents are
// padded, as rtreego requires strictly positive side lengths.
func (r Rect) Spatial() rtreego.Rect {
	const pad = 1e-9
	w := r.X1 - r.X0
	h := r.Y1 - r.Y0
	if w < pad {
		w = pad
	}
	if h < pad {
		h = pad
	}
	rect, err := rtreego.NewRect(rtreego.Point{r.X0, r.Y0}, []float64{w, h})
	if err != nil {
		panic(err)
	}
	return rect
}
