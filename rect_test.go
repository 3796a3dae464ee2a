package geom

import "testing"

func TestRectFromPoints(t *testing.T) {
	diff(t, Rect{2, 4, 10, 8}, NewRectFromPoints(Pt(10, 4), Pt(2, 8)))
	diff(t, Rect{1, 1, 1, 1}, NewRectFromPoints(Pt(1, 1), Pt(1, 1)))
}

func TestRectUnion(t *testing.T) {
	a := Rect{0, 0, 2, 2}
	b := Rect{1, 1, 5, 3}
	diff(t, Rect{0, 0, 5, 3}, a.Union(b))
	diff(t, Rect{0, 0, 4, 2}, a.UnionPoint(Pt(4, 1)))
}

func TestRectIntersects(t *testing.T) {
	a := Rect{0, 0, 2, 2}
	if !a.Intersects(Rect{1, 1, 3, 3}) {
		t.Error("overlapping rects reported disjoint")
	}
	if a.Intersects(Rect{3, 3, 4, 4}) {
		t.Error("disjoint rects reported overlapping")
	}
	// A shared edge counts as touching.
	if !a.Intersects(Rect{2, 0, 4, 2}) {
		t.Error("touching rects reported disjoint")
	}
}

func TestRectInflate(t *testing.T) {
	diff(t, Rect{-1, -1, 3, 3}, Rect{0, 0, 2, 2}.Inflate(1))
}

func TestRectSpatialDegenerate(t *testing.T) {
	// rtreego requires strictly positive side lengths; a point rectangle
	// must not panic.
	NewRectFromPoints(Pt(1, 1), Pt(1, 1)).Spatial()
}
