package geom

import "errors"

// ErrInconsistentGraph reports that the half-edge structure contradicted
// itself during the face sweep: a face walk failed to close, or two paths
// assigned different containment parity to one face. It indicates input
// geometry beyond the tolerance model, not a recoverable condition.
var ErrInconsistentGraph = errors.New("geom: inconsistent half-edge graph")

// LoopSet is a set of closed XY polygons. Outer loops are conventionally
// counterclockwise and holes clockwise, but the parity sweep only depends on
// crossing counts, not on input orientation.
type LoopSet [][]Point

// PipelineStage identifies a checkpoint in the boolean pipeline.
type PipelineStage uint8

const (
	// StageLoaded: input loops converted to isolated mate pairs.
	StageLoaded PipelineStage = iota
	// StageSplit: edges subdivided so they meet only at endpoints.
	StageSplit
	// StageMerged: vertices clustered and face loops linked.
	StageMerged
	// StageRegularized: nested components bridged to their surroundings.
	StageRegularized
	// StageSwept: faces classified, exterior half-edges masked.
	StageSwept
)

func (s PipelineStage) String() string {
	switch s {
	case StageLoaded:
		return "loaded"
	case StageSplit:
		return "split"
	case StageMerged:
		return "merged"
	case StageRegularized:
		return "regularized"
	case StageSwept:
		return "swept"
	}
	return "unknown"
}

// BooleanOptions configures a boolean operation. The zero value uses the
// default tolerance and no checkpointing.
type BooleanOptions struct {
	// Tolerance is the vertex clustering and coincidence distance; zero
	// means SmallMetricDistance.
	Tolerance float64
	// Checkpoint, when non-nil, is called after every pipeline stage with
	// the working graph. The graph must not be mutated.
	Checkpoint func(PipelineStage, *HalfEdgeGraph)
}

func (o *BooleanOptions) tolerance() float64 {
	if o != nil && o.Tolerance > 0 {
		return o.Tolerance
	}
	return SmallMetricDistance
}

func (o *BooleanOptions) checkpoint(stage PipelineStage, g *HalfEdgeGraph) {
	if o != nil && o.Checkpoint != nil {
		o.Checkpoint(stage, g)
	}
}

// Union returns the region covered by either loop set.
func Union(a, b LoopSet, opts *BooleanOptions) (*Polyface, error) {
	return BooleanOp(a, b, func(inA, inB bool) bool { return inA || inB }, opts)
}

// Intersection returns the region covered by both loop sets.
func Intersection(a, b LoopSet, opts *BooleanOptions) (*Polyface, error) {
	return BooleanOp(a, b, func(inA, inB bool) bool { return inA && inB }, opts)
}

// Difference returns the region covered by a but not b.
func Difference(a, b LoopSet, opts *BooleanOptions) (*Polyface, error) {
	return BooleanOp(a, b, func(inA, inB bool) bool { return inA && !inB }, opts)
}

// BooleanOp runs the planar boolean pipeline on two loop sets and exports
// every interior face whose containment pair passes accept. The result's
// faces partition the accepted region; adjacent faces are not merged.
func BooleanOp(a, b LoopSet, accept func(inA, inB bool) bool, opts *BooleanOptions) (*Polyface, error) {
	tol := opts.tolerance()

	g := NewHalfEdgeGraph()
	for _, loop := range a {
		g.AddLoop(loop, TagLoopA)
	}
	for _, loop := range b {
		g.AddLoop(loop, TagLoopB)
	}
	if g.NumHalfEdges() == 0 {
		// No loop bounded any area.
		return nil, nil
	}
	opts.checkpoint(StageLoaded, g)

	g = g.splitEdges(tol)
	opts.checkpoint(StageSplit, g)

	g.link(tol)
	opts.checkpoint(StageMerged, g)

	g.regularize(tol)
	opts.checkpoint(StageRegularized, g)

	faces, inA, inB, err := sweepFaces(g)
	if err != nil {
		return nil, err
	}
	opts.checkpoint(StageSwept, g)

	return exportFaces(g, faces, inA, inB, accept), nil
}

// sweepFaces assigns an (inside A, inside B) pair to every face. Each
// component's most negative face is its outer face and seeds as exterior;
// parity then propagates across mates, toggling per the crossed edge's tag.
// Bridge edges toggle nothing, which is what lets them join holes to their
// surroundings without changing containment.
func sweepFaces(g *HalfEdgeGraph) ([][]int, []bool, []bool, error) {
	faces, err := g.CollectFaces()
	if err != nil {
		return nil, nil, nil, err
	}
	faceOf := make([]int, g.NumHalfEdges())
	for fi, face := range faces {
		for _, i := range face {
			faceOf[i] = fi
		}
	}

	visited := make([]bool, len(faces))
	inA := make([]bool, len(faces))
	inB := make([]bool, len(faces))

	var stack []int
	for _, comp := range g.components() {
		seed := faceOf[comp[0]]
		seedArea := g.FaceArea(faces[seed])
		for _, i := range comp[1:] {
			fi := faceOf[i]
			if area := g.FaceArea(faces[fi]); area < seedArea {
				seed, seedArea = fi, area
			}
		}
		if visited[seed] {
			continue
		}
		visited[seed] = true
		stack = append(stack[:0], seed)
		for len(stack) > 0 {
			fi := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, i := range faces[fi] {
				m := g.Mate(i)
				fm := faceOf[m]
				a, b := inA[fi], inB[fi]
				switch g.Tag(i) {
				case TagLoopA:
					a = !a
				case TagLoopB:
					b = !b
				}
				if !visited[fm] {
					visited[fm] = true
					inA[fm] = a
					inB[fm] = b
					stack = append(stack, fm)
					continue
				}
				if inA[fm] != a || inB[fm] != b {
					return nil, nil, nil, ErrInconsistentGraph
				}
			}
		}
	}

	for fi, face := range faces {
		if !inA[fi] && !inB[fi] {
			for _, i := range face {
				g.nodes[i].mask |= MaskExterior
			}
		}
	}
	return faces, inA, inB, nil
}

// exportFaces collects the accepted positive-area faces into a polyface,
// deduplicating shared vertices. Zero-area slivers between doubled edges and
// the negative outer faces are dropped regardless of parity.
func exportFaces(g *HalfEdgeGraph, faces [][]int, inA, inB []bool, accept func(bool, bool) bool) *Polyface {
	pf := &Polyface{}
	pointIndex := make(map[Point]int)
	indexOf := func(p Point) int {
		if i, ok := pointIndex[p]; ok {
			return i
		}
		i := len(pf.Points)
		pf.Points = append(pf.Points, p)
		pointIndex[p] = i
		return i
	}
	for fi, face := range faces {
		if !accept(inA[fi], inB[fi]) {
			continue
		}
		if g.FaceArea(face) <= 0 {
			continue
		}
		var loop []int
		for _, he := range face {
			idx := indexOf(g.Point(he))
			if len(loop) > 0 && loop[len(loop)-1] == idx {
				continue
			}
			loop = append(loop, idx)
		}
		for len(loop) > 1 && loop[0] == loop[len(loop)-1] {
			loop = loop[:len(loop)-1]
		}
		if len(loop) >= 3 {
			pf.Faces = append(pf.Faces, loop)
		}
	}
	return pf
}
