package propagator

import "github.com/gridsolve/cspsat/internal/sat"

// SupportValue mirrors ncsp.SupportValue: either a wildcard (any value of
// that variable is fine) or a specific required value.
type SupportValue struct {
	Wildcard bool
	Value    int
}

// ExtensionSupports enforces generalized arc consistency (GAC) against an
// explicit table of supporting rows: every variable must take a value such
// that some row of Rows holds simultaneously for all variables (spec.md
// §4.3). Grounded on spec.md §4.3's "GAC table lookup" description.
type ExtensionSupports struct {
	vars []VarValues
	rows [][]SupportValue

	// reason[lit] records, for a literal this propagator has enqueued, one
	// falsifying literal per row that made it ineligible — the conjunction
	// of their negations is why no row could support the value.
	reason map[sat.Literal][]sat.Literal
}

// NewExtensionSupports builds an ExtensionSupports propagator; each row
// must have exactly len(vars) entries.
func NewExtensionSupports(vars []VarValues, rows [][]SupportValue) *ExtensionSupports {
	return &ExtensionSupports{vars: vars, rows: rows, reason: make(map[sat.Literal][]sat.Literal)}
}

func (e *ExtensionSupports) Initialize(ctx *sat.PropagatorContext) bool {
	return e.Propagate(ctx)
}

// Propagate runs one GAC filtering pass: for every variable/value pair
// whose literal is not already false, check whether any row still supports
// it (every other cell either wildcard or not yet ruled out); if none does,
// the value is forced false.
//
// Complexity: O(values * rows * vars) per pass, where values is the total
// number of (variable, value) pairs; the solver re-polls to fixpoint, so
// a chain of eliminations across several calls still converges to full GAC.
func (e *ExtensionSupports) Propagate(ctx *sat.PropagatorContext) bool {
	for vi, vv := range e.vars {
		for ci, val := range vv.Values {
			lit := vv.Lits[ci]
			if ctx.Value(lit) == sat.False {
				continue
			}
			supported, blockers := e.supportFor(ctx, vi, val)
			if supported {
				continue
			}
			neg := lit.Opposite()
			if !ctx.Enqueue(neg) {
				ctx.Conflict(blockers)
				return false
			}
			e.reason[neg] = blockers
		}
	}
	return true
}

// supportFor reports whether some row supports vars[vi] == val given the
// current assignment, and if not, one falsifying literal per eliminated
// row (the currently-true literal blocking that row).
func (e *ExtensionSupports) supportFor(ctx *sat.PropagatorContext, vi, val int) (bool, []sat.Literal) {
	var blockers []sat.Literal
	for _, row := range e.rows {
		if !row[vi].Wildcard && row[vi].Value != val {
			continue // row doesn't even claim to support this value
		}
		blocked := false
		var rowBlocker sat.Literal
		for vj, cell := range row {
			if vj == vi || cell.Wildcard {
				continue
			}
			lit, ok := e.vars[vj].litFor(cell.Value)
			if !ok || ctx.Value(lit) == sat.False {
				blocked = true
				if ok {
					rowBlocker = lit.Opposite()
				}
				break
			}
		}
		if !blocked {
			return true, nil
		}
		blockers = append(blockers, rowBlocker)
	}
	return false, blockers
}

func (e *ExtensionSupports) Explain(l sat.Literal) []sat.Literal {
	return e.reason[l]
}

func (e *ExtensionSupports) UndoToLevel(level int) {
	// Forced literals are unassigned by the solver itself on backtrack;
	// stale reason entries are harmless (never looked up again unless the
	// same literal is re-derived, which overwrites them).
}
