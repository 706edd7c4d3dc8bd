package propagator

import "github.com/gridsolve/cspsat/internal/sat"

// VarValues is the per-variable equality-literal table a propagator needs
// to reason about value membership without depending on the encoder's
// order-encoding representation: Lits[i] is the literal for "variable ==
// Values[i]" (mutually exclusive and exhaustive by construction of the
// order encoding, spec.md §4.2).
type VarValues struct {
	Values []int
	Lits   []sat.Literal
}

// litFor returns the equality literal for value v, or Literal(0) paired
// with ok=false if v is outside the variable's domain; the caller must not
// use the literal when ok is false.
func (vv VarValues) litFor(v int) (sat.Literal, bool) {
	for i, val := range vv.Values {
		if val == v {
			return vv.Lits[i], true
		}
	}
	return 0, false
}

// Circuit enforces that Succ describes a single Hamiltonian cycle over
// nodes 0..len(Succ)-1: Succ[v] is the node visited immediately after v.
// Grounded on spec.md §4.3 and the single-loop semantics of
// original_source/cspuz_rs_puzzles/src/puzzles/loop_common.rs.
//
// This implementation rules out premature sub-cycles among nodes whose
// successor is already pinned (the classic "subtour elimination" check)
// and duplicate successors (two nodes forced to the same successor, which
// cannot happen in a permutation). It does not perform the stronger
// SCC-shrinking forcing spec.md describes as the full algorithm; like
// Connectivity, it is a conservative (conflict-only) fixpoint member.
type Circuit struct {
	succ []VarValues // succ[v] is v's successor-equality table
}

// NewCircuit builds a Circuit propagator; succ[v] must cover the full node
// range 0..len(succ)-1 as its Values.
func NewCircuit(succ []VarValues) *Circuit {
	return &Circuit{succ: succ}
}

func (c *Circuit) Initialize(ctx *sat.PropagatorContext) bool {
	return c.Propagate(ctx)
}

func (c *Circuit) Propagate(ctx *sat.PropagatorContext) bool {
	n := len(c.succ)
	next := make([]int, n)
	decided := make([]bool, n)
	seenAsTarget := make(map[int]int) // successor value -> node that claims it

	for v := 0; v < n; v++ {
		for i, val := range c.succ[v].Values {
			if ctx.Value(c.succ[v].Lits[i]) == sat.True {
				next[v] = val
				decided[v] = true
				if owner, ok := seenAsTarget[val]; ok && owner != v {
					ctx.Conflict(c.witnessLiterals(ctx, []int{v, owner}))
					return false
				}
				seenAsTarget[val] = v
				break
			}
		}
	}

	visited := make([]bool, n)
	for v := 0; v < n; v++ {
		if !decided[v] || visited[v] {
			continue
		}
		cycle := []int{v}
		visited[v] = true
		u := next[v]
		for decided[u] && !visited[u] && u != v {
			visited[u] = true
			cycle = append(cycle, u)
			u = next[u]
		}
		if decided[u] && u == v && len(cycle) < n {
			ctx.Conflict(c.witnessLiterals(ctx, cycle))
			return false
		}
	}
	return true
}

// witnessLiterals returns the currently-true successor-equality literals
// for the given nodes, the decisions jointly responsible for the detected
// sub-cycle or duplicate-successor conflict.
func (c *Circuit) witnessLiterals(ctx *sat.PropagatorContext, nodes []int) []sat.Literal {
	out := make([]sat.Literal, 0, len(nodes))
	for _, v := range nodes {
		for _, lit := range c.succ[v].Lits {
			if ctx.Value(lit) == sat.True {
				out = append(out, lit)
				break
			}
		}
	}
	return out
}

func (c *Circuit) Explain(l sat.Literal) []sat.Literal { return nil }

func (c *Circuit) UndoToLevel(level int) {}
