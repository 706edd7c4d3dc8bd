package sat

// Propagator is a theory extension registered with the SAT core (spec.md
// §4.3). After Boolean constraint propagation (BCP) reaches a fixpoint, each
// registered propagator is polled once, in registration order; it may
// enqueue further literals (participating in BCP and conflict analysis
// exactly like a clause-derived unit) or report a conflict. Once BCP and all
// propagators report no change, the fixpoint holds and the solver may pick
// its next decision.
//
// Implementations must be monotone: a propagation announced at decision
// level d must remain valid for any extension of the trail at that level, or
// the propagator must retract it itself via UndoToLevel during backtracking.
type Propagator interface {
	// Initialize is called once, before search starts, with all relevant
	// variables already allocated. It may enqueue initial facts via ctx. It
	// returns false if doing so is already contradictory.
	Initialize(ctx *PropagatorContext) bool

	// Propagate is called after BCP reaches a fixpoint. It may enqueue
	// further literals via ctx.Enqueue, or call ctx.Conflict and return
	// false to report a conflict.
	Propagate(ctx *PropagatorContext) bool

	// Explain returns the reason a literal this propagator previously
	// enqueued holds: a set of literals, each currently true, such that the
	// clause (¬r1 ∨ ... ∨ ¬rn ∨ l) is implied by the propagator's semantics.
	// Explanations are produced lazily, only when conflict analysis needs
	// them.
	Explain(l Literal) []Literal

	// UndoToLevel is called once per backjump, in reverse registration
	// order, with the decision level being backtracked to. Implementations
	// must pop their own per-level undo log down to that level.
	UndoToLevel(level int)
}

// PropagatorContext is the capability handed to a Propagator during
// Initialize/Propagate: it can read the current (partial) assignment and
// post new facts, but has no direct access to the trail or clause database.
type PropagatorContext struct {
	s           *Solver
	id          int
	changed     bool
	conflictObj antecedent
}

// Value returns the current value of literal l (True, False, or Unknown).
func (ctx *PropagatorContext) Value(l Literal) LBool {
	return ctx.s.LitValue(l)
}

// Level returns the solver's current decision level.
func (ctx *PropagatorContext) Level() int {
	return ctx.s.decisionLevel()
}

// Enqueue posts literal l as forced by this propagator. It returns false
// (without calling Conflict) if l is already false, in which case the
// propagator should call Conflict instead if it has not already.
func (ctx *PropagatorContext) Enqueue(l Literal) bool {
	if ctx.s.LitValue(l) == False {
		return false
	}
	ok := ctx.s.enqueue(l, propagatorReason{propID: ctx.id})
	if ok {
		ctx.changed = true
	}
	return ok
}

// Conflict records the literals currently true that are jointly responsible
// for the conflict this propagator detected: at least one of their negations
// must hold, so the blocking clause (¬l1 ∨ ... ∨ ¬ln) is added as the
// conflict's antecedent. Propagate must return false immediately after
// calling this.
func (ctx *PropagatorContext) Conflict(literals []Literal) {
	lits := make([]Literal, len(literals))
	for i, l := range literals {
		lits[i] = l.Opposite()
	}
	ctx.conflictObj = &propagatorConflict{literals: lits}
}

// propagatorReason is the antecedent stored in Solver.reason for a literal
// enqueued by a propagator; its explanation is fetched lazily from the
// propagator itself.
type propagatorReason struct {
	propID int
}

func (pr propagatorReason) explain(s *Solver, l Literal) []Literal {
	return s.propagators[pr.propID].Explain(l)
}

// propagatorConflict is the transient antecedent returned from Solver.Propagate
// when a propagator reports a conflict; it is never stored in Solver.reason.
type propagatorConflict struct {
	literals []Literal
}

func (pc *propagatorConflict) explain(s *Solver, l Literal) []Literal {
	out := make([]Literal, len(pc.literals))
	for i, x := range pc.literals {
		out[i] = x.Opposite()
	}
	return out
}
