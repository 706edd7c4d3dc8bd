package propagator

import (
	"github.com/gridsolve/cspsat/internal/graph"
	"github.com/gridsolve/cspsat/internal/sat"
)

// Connectivity enforces that every vertex forced active shares one
// connected component of the subgraph induced by vertices that are not
// forced inactive (spec.md §4.3's "active vertices connected" constraint).
// Grounded on the cave/heyawake-shaped puzzles under
// original_source/cspuz_rs_puzzles/src/puzzles, where a region's cells must
// stay reachable from one another through other still-possibly-active
// cells.
//
// This implementation detects violations (two definitely-active vertices
// landing in disjoint components of the maybe-active subgraph) but does not
// yet force further vertices active purely to preserve connectivity; it is
// a sound, conservative member of the propagator fixpoint rather than a
// fully filtering one.
type Connectivity struct {
	g      *graph.Graph
	active []sat.Literal // one literal per vertex: true iff the vertex is active
}

// NewConnectivity builds a Connectivity propagator over g's vertex set,
// with active[v] the literal asserting vertex v participates.
func NewConnectivity(g *graph.Graph, active []sat.Literal) *Connectivity {
	return &Connectivity{g: g, active: active}
}

func (c *Connectivity) Initialize(ctx *sat.PropagatorContext) bool {
	return c.Propagate(ctx)
}

func (c *Connectivity) Propagate(ctx *sat.PropagatorContext) bool {
	n := c.g.NumVertices()
	maybeActive := make([]bool, n)
	var definite []int
	for v := 0; v < n; v++ {
		switch ctx.Value(c.active[v]) {
		case sat.True:
			maybeActive[v] = true
			definite = append(definite, v)
		case sat.Unknown:
			maybeActive[v] = true
		}
	}
	if len(definite) < 2 {
		return true
	}

	comp, _ := c.g.ConnectedComponents(maybeActive)
	root := comp[definite[0]]
	for _, v := range definite[1:] {
		if comp[v] != root {
			ctx.Conflict(c.assignedLiterals(ctx))
			return false
		}
	}
	return true
}

// assignedLiterals returns every currently-true literal among active/its
// negation, for every vertex that is not Unknown. It is a sound but
// non-minimal conflict explanation: any vertex whose activity is still
// Unknown could not have contributed to the contradiction, but the ones
// that are fixed might not all be necessary either.
func (c *Connectivity) assignedLiterals(ctx *sat.PropagatorContext) []sat.Literal {
	var out []sat.Literal
	for _, lit := range c.active {
		switch ctx.Value(lit) {
		case sat.True:
			out = append(out, lit)
		case sat.False:
			out = append(out, lit.Opposite())
		}
	}
	return out
}

func (c *Connectivity) Explain(l sat.Literal) []sat.Literal {
	// Connectivity never enqueues a literal (see doc comment), so it is
	// never asked to explain one.
	return nil
}

func (c *Connectivity) UndoToLevel(level int) {
	// Stateless between calls: Propagate recomputes components from the
	// solver's current assignment every time, so there is no per-level log
	// to pop.
}
