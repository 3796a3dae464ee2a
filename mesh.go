package geom

// Polyface is an indexed face set in the XY plane: a shared point table and
// per-face loops of point indices. The boolean pipeline exports its accepted
// faces in this form.
type Polyface struct {
	Points []Point
	Faces  [][]int
}

// NumFaces returns the number of face loops.
func (p *Polyface) NumFaces() int {
	return len(p.Faces)
}

// FacePoints returns the points of face i in loop order.
func (p *Polyface) FacePoints(i int) []Point {
	face := p.Faces[i]
	pts := make([]Point, len(face))
	for k, idx := range face {
		pts[k] = p.Points[idx]
	}
	return pts
}

// FaceArea returns the signed shoelace area of face i.
func (p *Polyface) FaceArea(i int) float64 {
	face := p.Faces[i]
	sum := 0.0
	for k, idx := range face {
		a := p.Points[idx]
		b := p.Points[face[(k+1)%len(face)]]
		sum += a.X*b.Y - a.Y*b.X
	}
	return 0.5 * sum
}

// Area returns the sum of the signed face areas. For boolean results every
// face is counterclockwise, so this is the covered area.
func (p *Polyface) Area() float64 {
	sum := 0.0
	for i := range p.Faces {
		sum += p.FaceArea(i)
	}
	return sum
}
