package geom

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
)

// EdgeTag says which input loop set an edge came from. Bridge edges are
// manufactured during regularization and never toggle containment parity.
type EdgeTag uint8

const (
	TagBridge EdgeTag = 0
	TagLoopA  EdgeTag = 1
	TagLoopB  EdgeTag = 2
)

// HalfEdgeMask is a bit set of per-half-edge state flags.
type HalfEdgeMask uint8

const (
	// MaskBoundary marks half-edges that came from input loops.
	MaskBoundary HalfEdgeMask = 1 << iota
	// MaskExterior marks half-edges whose face lies outside both loop sets.
	MaskExterior
)

// halfEdge is one arena record. The edge runs from point to the mate's point;
// faceSucc walks the face loop counterclockwise for interior faces.
type halfEdge struct {
	point    Point
	mate     int
	faceSucc int
	facePred int
	tag      EdgeTag
	mask     HalfEdgeMask
}

// HalfEdgeGraph is an arena-allocated half-edge structure over XY points.
// Records are addressed by index; indices stay valid for the graph's life.
type HalfEdgeGraph struct {
	nodes []halfEdge
}

func NewHalfEdgeGraph() *HalfEdgeGraph {
	return &HalfEdgeGraph{}
}

// NumHalfEdges returns the number of half-edge records.
func (g *HalfEdgeGraph) NumHalfEdges() int {
	return len(g.nodes)
}

// Point returns the origin of half-edge i.
func (g *HalfEdgeGraph) Point(i int) Point {
	return g.nodes[i].point
}

// Mate returns the oppositely directed half-edge of the same geometric edge.
func (g *HalfEdgeGraph) Mate(i int) int {
	return g.nodes[i].mate
}

// FaceSuccessor returns the next half-edge around i's face loop.
func (g *HalfEdgeGraph) FaceSuccessor(i int) int {
	return g.nodes[i].faceSucc
}

// FacePredecessor returns the previous half-edge around i's face loop.
func (g *HalfEdgeGraph) FacePredecessor(i int) int {
	return g.nodes[i].facePred
}

// Tag returns the loop-set tag of half-edge i.
func (g *HalfEdgeGraph) Tag(i int) EdgeTag {
	return g.nodes[i].tag
}

// Mask returns the state flags of half-edge i.
func (g *HalfEdgeGraph) Mask(i int) HalfEdgeMask {
	return g.nodes[i].mask
}

// AddEdge appends an isolated mate pair for the segment p0p1 and returns the
// index of the half-edge based at p0. Until a link pass runs, each new
// half-edge's face loop is just itself and its mate.
func (g *HalfEdgeGraph) AddEdge(p0, p1 Point, tag EdgeTag) int {
	a := len(g.nodes)
	b := a + 1
	mask := HalfEdgeMask(0)
	if tag != TagBridge {
		mask = MaskBoundary
	}
	g.nodes = append(g.nodes,
		halfEdge{point: p0, mate: b, faceSucc: b, facePred: b, tag: tag, mask: mask},
		halfEdge{point: p1, mate: a, faceSucc: a, facePred: a, tag: tag, mask: mask},
	)
	return a
}

// AddLoop appends the closed polygon as isolated edges, skipping degenerate
// sides. A loop with fewer than three distinct points bounds no area and is
// dropped entirely.
func (g *HalfEdgeGraph) AddLoop(pts []Point, tag EdgeTag) {
	n := len(pts)
	distinct := 0
	for i := 0; i < n; i++ {
		if pts[i].Distance(pts[(i+1)%n]) > SmallMetricDistance {
			distinct++
		}
	}
	if distinct < 3 {
		return
	}
	for i := 0; i < n; i++ {
		p0 := pts[i]
		p1 := pts[(i+1)%n]
		if p0.Distance(p1) <= SmallMetricDistance {
			continue
		}
		g.AddEdge(p0, p1, tag)
	}
}

// graphEdge is one geometric edge of the soup, for the split stage.
type graphEdge struct {
	p0, p1 Point
	tag    EdgeTag
	rect   rtreego.Rect
}

func (e *graphEdge) Bounds() rtreego.Rect {
	return e.rect
}

// splitEdges intersects every edge against every other (R-tree filtered) and
// returns a new graph whose edges meet only at endpoints, within tolerance.
// Coincident overlaps are cut at the shared interval's ends; the duplicated
// sub-edges are kept, one per tag, so parity sweeps see both boundaries.
func (g *HalfEdgeGraph) splitEdges(tol float64) *HalfEdgeGraph {
	var edges []*graphEdge
	for i := range g.nodes {
		if i < g.nodes[i].mate {
			e := &graphEdge{point0(g, i), point1(g, i), g.nodes[i].tag, rtreego.Rect{}}
			e.rect = NewRectFromPoints(e.p0, e.p1).Inflate(tol).Spatial()
			edges = append(edges, e)
		}
	}
	cuts := make([][]float64, len(edges))

	tree := rtreego.NewTree(2, 4, 8)
	index := make(map[*graphEdge]int, len(edges))
	for i, e := range edges {
		index[e] = i
		tree.Insert(e)
	}
	for i, e := range edges {
		for _, hit := range tree.SearchIntersect(e.rect) {
			j := index[hit.(*graphEdge)]
			if j <= i {
				continue
			}
			o := edges[j]
			hitSeg, ok := segSegXY(e.p0, e.p1, o.p0, o.p1, tol, false, false)
			if !ok {
				continue
			}
			cuts[i] = append(cuts[i], hitSeg.fa)
			cuts[j] = append(cuts[j], hitSeg.fb)
			if hitSeg.kind == CoincidentInterval {
				cuts[i] = append(cuts[i], hitSeg.fa1)
				cuts[j] = append(cuts[j], hitSeg.fb1)
			}
		}
	}

	out := NewHalfEdgeGraph()
	for i, e := range edges {
		fs := cuts[i]
		sort.Float64s(fs)
		prev := e.p0
		for _, f := range fs {
			if f <= fractionFuzz || f >= 1-fractionFuzz {
				continue
			}
			q := e.p0.Lerp(e.p1, f)
			if q.Distance(prev) > tol {
				out.AddEdge(prev, q, e.tag)
				prev = q
			}
		}
		if e.p1.Distance(prev) > tol {
			out.AddEdge(prev, e.p1, e.tag)
		}
	}
	return out
}

func point0(g *HalfEdgeGraph, i int) Point {
	return g.nodes[i].point
}

func point1(g *HalfEdgeGraph, i int) Point {
	return g.nodes[g.nodes[i].mate].point
}

// clusterVertices gathers half-edges whose base points coincide within
// tolerance, snaps each cluster to a representative point, and returns the
// cluster id per half-edge.
func (g *HalfEdgeGraph) clusterVertices(tol float64) []int {
	n := len(g.nodes)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		pa, pb := g.nodes[order[a]].point, g.nodes[order[b]].point
		if pa.X != pb.X {
			return pa.X < pb.X
		}
		return pa.Y < pb.Y
	})

	cluster := make([]int, n)
	for i := range cluster {
		cluster[i] = -1
	}
	var reps []Point
	for oi, i := range order {
		if cluster[i] >= 0 {
			continue
		}
		id := len(reps)
		rep := g.nodes[i].point
		reps = append(reps, rep)
		cluster[i] = id
		// Scan forward while X is within tolerance of the representative.
		for _, j := range order[oi+1:] {
			p := g.nodes[j].point
			if p.X > rep.X+tol {
				break
			}
			if cluster[j] < 0 && p.Distance(rep) <= tol {
				cluster[j] = id
			}
		}
	}
	for i := range g.nodes {
		g.nodes[i].point = reps[cluster[i]]
	}
	return cluster
}

// link rebuilds every face loop: outgoing half-edges of each vertex are
// sorted counterclockwise by direction angle, and for each consecutive pair
// the incoming mate of one is connected to the previous outgoing one. This
// pass is idempotent, so regularization can rerun it after adding edges.
func (g *HalfEdgeGraph) link(tol float64) {
	cluster := g.clusterVertices(tol)
	fans := make(map[int][]int)
	for i := range g.nodes {
		fans[cluster[i]] = append(fans[cluster[i]], i)
	}
	for _, fan := range fans {
		sort.Slice(fan, func(a, b int) bool {
			angA := g.outgoingAngle(fan[a])
			angB := g.outgoingAngle(fan[b])
			if angA != angB {
				return angA < angB
			}
			return g.duplicateRank(fan[a]) < g.duplicateRank(fan[b])
		})
		m := len(fan)
		for j := 0; j < m; j++ {
			prev := fan[(j+m-1)%m]
			in := g.nodes[fan[j]].mate
			g.nodes[in].faceSucc = prev
			g.nodes[prev].facePred = in
		}
	}
}

func (g *HalfEdgeGraph) outgoingAngle(i int) float64 {
	return point1(g, i).Sub(point0(g, i)).Angle()
}

// duplicateRank breaks angle ties between coincident parallel edges. The pair
// id is signed by the half-edge's orientation along the shared line, so a copy
// that precedes the other in the fan at one endpoint follows it at the other
// endpoint. Doubled edges then nest into zero-area sliver faces instead of
// interleaving arbitrarily, which would tear the adjoining faces apart.
func (g *HalfEdgeGraph) duplicateRank(i int) int {
	id := min(i, g.nodes[i].mate) + 1
	p0 := point0(g, i)
	p1 := point1(g, i)
	if p1.X < p0.X || (p1.X == p0.X && p1.Y < p0.Y) {
		return -id
	}
	return id
}

// CollectFaces walks every face loop once and returns the loops as half-edge
// index slices. A loop longer than the total half-edge count means the
// successor pointers are inconsistent.
func (g *HalfEdgeGraph) CollectFaces() ([][]int, error) {
	n := len(g.nodes)
	visited := make([]bool, n)
	var faces [][]int
	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		var face []int
		at := i
		for steps := 0; ; steps++ {
			if steps > n {
				return nil, ErrInconsistentGraph
			}
			face = append(face, at)
			visited[at] = true
			at = g.nodes[at].faceSucc
			if at == i {
				break
			}
			if visited[at] {
				return nil, ErrInconsistentGraph
			}
		}
		faces = append(faces, face)
	}
	return faces, nil
}

// FaceArea returns the signed shoelace area of a face loop; counterclockwise
// interior faces are positive.
func (g *HalfEdgeGraph) FaceArea(face []int) float64 {
	sum := 0.0
	for k, i := range face {
		p := g.nodes[i].point
		q := g.nodes[face[(k+1)%len(face)]].point
		sum += p.X*q.Y - p.Y*q.X
	}
	return 0.5 * sum
}

// components partitions half-edges into connected components, returned as
// index lists.
func (g *HalfEdgeGraph) components() [][]int {
	n := len(g.nodes)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}
	for i := range g.nodes {
		union(i, g.nodes[i].mate)
		union(i, g.nodes[i].faceSucc)
	}
	groups := make(map[int][]int)
	for i := range g.nodes {
		groups[find(i)] = append(groups[find(i)], i)
	}
	out := make([][]int, 0, len(groups))
	for _, grp := range groups {
		out = append(out, grp)
	}
	sort.Slice(out, func(a, b int) bool { return out[a][0] < out[b][0] })
	return out
}

// regularize joins nested components to their surroundings with doubled
// bridge edges so containment parity can propagate across holes. From each
// secondary component's leftmost vertex a horizontal ray is cast leftward;
// the nearest crossing necessarily belongs to a different component, and the
// straight connection to it crosses nothing else. Side-by-side outermost
// components legitimately stay disconnected.
func (g *HalfEdgeGraph) regularize(tol float64) {
	for guard := 0; guard < len(g.nodes); guard++ {
		comps := g.components()
		if len(comps) <= 1 {
			return
		}
		compOf := make([]int, len(g.nodes))
		for ci, comp := range comps {
			for _, i := range comp {
				compOf[i] = ci
			}
		}
		type bridge struct {
			from   Point
			to     Point
			onEdge int
		}
		best := bridge{onEdge: -1}
		for _, comp := range comps {
			v := g.nodes[comp[0]].point
			for _, i := range comp[1:] {
				p := g.nodes[i].point
				if p.X < v.X || (p.X == v.X && p.Y < v.Y) {
					v = p
				}
			}
			edge, q := g.nearestLeftwardCrossing(v, compOf, compOf[comp[0]], tol)
			if edge < 0 {
				continue
			}
			// Bridge the rightmost unconnected vertex first; any candidate
			// works, so take the first found.
			best = bridge{from: v, to: q, onEdge: edge}
			break
		}
		if best.onEdge < 0 {
			return
		}
		g.splitEdgeAt(best.onEdge, best.to, tol)
		g.AddEdge(best.from, best.to, TagBridge)
		g.AddEdge(best.from, best.to, TagBridge)
		g.link(tol)
	}
}

// nearestLeftwardCrossing finds the closest crossing of the leftward
// horizontal ray from v with an edge outside component self. It returns the
// half-edge index of the crossed edge and the crossing point, or -1.
func (g *HalfEdgeGraph) nearestLeftwardCrossing(v Point, compOf []int, self int, tol float64) (int, Point) {
	bestEdge := -1
	bestX := math.Inf(-1)
	for i := range g.nodes {
		if i >= g.nodes[i].mate || compOf[i] == self {
			continue
		}
		p0 := point0(g, i)
		p1 := point1(g, i)
		// Half-open span rule so a vertex on the ray is counted once.
		if (p0.Y <= v.Y) == (p1.Y <= v.Y) {
			continue
		}
		xc := p0.X + (v.Y-p0.Y)/(p1.Y-p0.Y)*(p1.X-p0.X)
		if xc >= v.X-tol || xc <= bestX {
			continue
		}
		// A crossing landing on an edge endpoint may be a graze: the
		// boundary touches the ray line there and turns back.
		q := Pt(xc, v.Y)
		if q.Distance(p0) <= tol || q.Distance(p1) <= tol {
			w := p0
			if q.Distance(p1) <= tol {
				w = p1
			}
			if !g.vertexCrossesRay(w, v.Y, compOf, self, tol) {
				continue
			}
		}
		bestX = xc
		bestEdge = i
	}
	if bestEdge < 0 {
		return -1, Point{}
	}
	return bestEdge, Pt(bestX, v.Y)
}

// vertexCrossesRay reports whether the boundary through on-ray vertex w
// materially crosses the horizontal line y = rayY, rather than touching the
// line and turning back on the same side. Edges collinear with the line are
// walked to the far end of their run so a boundary that travels along the
// line still reports the side it leaves on.
func (g *HalfEdgeGraph) vertexCrossesRay(w Point, rayY float64, compOf []int, self int, tol float64) bool {
	above, below := false, false
	visited := map[Point]bool{w: true}
	pending := []Point{w}
	for len(pending) > 0 {
		at := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		for i := range g.nodes {
			if i >= g.nodes[i].mate || compOf[i] == self {
				continue
			}
			p0 := point0(g, i)
			p1 := point1(g, i)
			var o Point
			switch {
			case p0.Distance(at) <= tol:
				o = p1
			case p1.Distance(at) <= tol:
				o = p0
			default:
				continue
			}
			switch {
			case o.Y > rayY+tol:
				above = true
			case o.Y < rayY-tol:
				below = true
			case !visited[o]:
				visited[o] = true
				pending = append(pending, o)
			}
		}
	}
	return above && below
}

// splitEdgeAt cuts the edge pair of half-edge i at interior point q, keeping
// the original pair for the first piece and appending a new pair for the
// second. Face pointers are stale afterwards; callers relink.
func (g *HalfEdgeGraph) splitEdgeAt(i int, q Point, tol float64) {
	m := g.nodes[i].mate
	p1 := g.nodes[m].point
	if q.Distance(g.nodes[i].point) <= tol || q.Distance(p1) <= tol {
		return
	}
	g.nodes[m].point = q
	g.AddEdge(q, p1, g.nodes[i].tag)
}
