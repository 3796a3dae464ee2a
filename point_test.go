package geom

import (
	"math"
	"testing"
)

func TestPointArithmetic(t *testing.T) {
	diff(t, Pt(0, 0).Translate(Vec(-10, 0)), Pt(-10, 0))
	diff(t, Pt(3, 4).Sub(Pt(1, 1)), Vec(2, 3))
}

func TestPointDistance(t *testing.T) {
	p1 := Pt(0, 10)
	p2 := Pt(0, 5)
	if d := p1.Distance(p2); d != 5 {
		t.Errorf("got distance %v, want 5", d)
	}

	p3 := Pt(-11, 1)
	p4 := Pt(-7, -2)
	if d := p3.Distance(p4); d != 5 {
		t.Errorf("got distance %v, want 5", d)
	}
	if d := p3.DistanceSquared(p4); d != 25 {
		t.Errorf("got squared distance %v, want 25", d)
	}
}

func TestPointLerp(t *testing.T) {
	diff(t, Pt(1, 1), Pt(0, 0).Lerp(Pt(2, 2), 0.5))
	diff(t, Pt(0, 0), Pt(0, 0).Lerp(Pt(2, 2), 0))
	diff(t, Pt(2, 2), Pt(0, 0).Lerp(Pt(2, 2), 1))
}

func TestVec2Products(t *testing.T) {
	if d := Vec(1, 2).Dot(Vec(3, 4)); d != 11 {
		t.Errorf("got dot %v, want 11", d)
	}
	if c := Vec(1, 0).Cross(Vec(0, 1)); c != 1 {
		t.Errorf("got cross %v, want 1", c)
	}
	if c := Vec(0, 1).Cross(Vec(1, 0)); c != -1 {
		t.Errorf("got cross %v, want -1", c)
	}
}

func TestVec2Angle(t *testing.T) {
	if a := Vec(1, 0).Angle(); a != 0 {
		t.Errorf("got angle %v, want 0", a)
	}
	if a := Vec(0, 1).Angle(); a != math.Pi/2 {
		t.Errorf("got angle %v, want %v", a, math.Pi/2)
	}
	diff(t, Vec(-2, 1), Vec(1, 2).Perp())
}

func TestVec2Normalize(t *testing.T) {
	n := Vec(3, 4).Normalize()
	if h := n.Hypot(); math.Abs(h-1) > 1e-15 {
		t.Errorf("got magnitude %v, want 1", h)
	}
	diff(t, Vec(0.6, 0.8), n)
}
