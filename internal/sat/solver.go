package sat

import (
	"fmt"
	"log"
	"sort"
	"time"
)

type Solver struct {
	// Clause database.
	constraints []*Clause
	learnts     []*Clause
	clauseInc   float64
	clauseDecay float64

	// Variable ordering.
	varInc      float64
	varDecay    float64
	order       *VarOrder
	phaseSaving bool

	// Propagation and watchers.
	watchers  [][]watcher
	propQueue *Queue[Literal]

	// Value assigned ot each literal.
	assigns []LBool

	// Trail.
	trail    []Literal
	trailLim []int
	reason   []antecedent
	level    []int

	// Theory propagators, polled to a fixpoint after BCP, in registration
	// order (spec.md §4.3/§5).
	propagators []Propagator
	propCtx     []*PropagatorContext

	// Whether the problem has reached a top level conflict.
	unsat bool

	// Restart scheduling.
	restarts          *restartScheduler
	conflictsThisTerm int64

	// Search statistics.
	TotalConflicts  int64
	TotalRestarts   int64
	TotalIterations int64
	ConflictsEMA    EMA
	startTime       time.Time

	// Stop conditions.
	hasStopCond bool
	maxConflict int64
	timeout     time.Duration
	cancelFlag  *bool // polled at each decision/restart; nil if unused

	Verbose bool

	// Models.
	Models [][]bool

	// Shared by operation that needs to put variables in a set and empty that
	// set efficiently.
	seenVar *ResetSet

	// Temporary slice used in the Propagate function. The slice is re-used by
	// all Propagate calls to avoid unnecessarily allocating new slices.
	tmpWatchers []watcher

	// Temporary slice used in Analyze to accumulate literals before these are
	// used to create a new learnt clause. Having one shared buffer between all
	// call reduces the overhead of having to grow each time Analye is called.
	tmpLearnts []Literal

	// Used for clause to explain themselves.
	tmpReason []Literal
}

// watcher represents a clause attached to the watch list of a literal.
type watcher struct {
	// The watching clause to be propagated when the watched literal becomes
	// true.
	clause *Clause

	// Guard is one of the clause's literals. If it is true, then there is
	// no need to propagate the clause. Note that the guard literal must be
	// different from the watcher literal.
	guard Literal
}

// Options configures a Solver. See spec.md §6 for the Configuration map this
// mirrors (use_constant_folding lives in the normalizer, not here).
type Options struct {
	ClauseDecay     float64
	VariableDecay   float64
	MaxConflicts    int64
	Timeout         time.Duration
	PhaseSaving     bool
	RestartStrategy RestartStrategy
	LubyUnit        int
	Verbose         bool
	CancelFlag      *bool
}

var DefaultOptions = Options{
	ClauseDecay:     0.999,
	VariableDecay:   0.95,
	MaxConflicts:    -1,
	Timeout:         -1,
	PhaseSaving:     false,
	RestartStrategy: RestartLuby,
	LubyUnit:        100,
}

// NewDefaultSolver returns a solver configured with DefaultOptions.
func NewDefaultSolver() *Solver {
	return NewSolver(DefaultOptions)
}

func NewSolver(ops Options) *Solver {
	s := &Solver{
		clauseDecay:  ops.ClauseDecay,
		varDecay:     ops.VariableDecay,
		clauseInc:    1,
		varInc:       1,
		propQueue:    NewQueue[Literal](128),
		maxConflict:  -1,
		timeout:      -1,
		seenVar:      &ResetSet{},
		phaseSaving:  ops.PhaseSaving,
		Verbose:      ops.Verbose,
		cancelFlag:   ops.CancelFlag,
		ConflictsEMA: NewEMA(0.95),
	}

	if ops.MaxConflicts >= 0 {
		s.hasStopCond = true
		s.maxConflict = ops.MaxConflicts
	}
	if ops.Timeout >= 0 {
		s.hasStopCond = true
		s.timeout = ops.Timeout
	}

	lubyUnit := ops.LubyUnit
	if lubyUnit <= 0 {
		lubyUnit = 100
	}
	s.restarts = newRestartScheduler(ops.RestartStrategy, lubyUnit, 100)

	return s
}

func (s *Solver) shouldStop() bool {
	if s.cancelFlag != nil && *s.cancelFlag {
		return true
	}
	if !s.hasStopCond {
		return false
	}
	if s.maxConflict >= 0 && s.maxConflict <= s.TotalConflicts {
		return true
	}
	if s.timeout >= 0 && s.timeout <= time.Since(s.startTime) {
		return true
	}
	return false
}

// Interrupted reports whether the last Solve() call returned because the
// caller's cancellation flag was observed, as opposed to a genuine UNSAT or
// conflict/timeout budget exhaustion (spec.md §5, Interrupted error).
func (s *Solver) Interrupted() bool {
	return s.cancelFlag != nil && *s.cancelFlag
}

func (s *Solver) PositiveLiteral(varID int) Literal {
	return Literal(varID * 2)
}

func (s *Solver) NegativeLiteral(varID int) Literal {
	return s.PositiveLiteral(varID).Opposite()
}

func (s *Solver) NumVariables() int {
	return len(s.assigns) / 2
}

func (s *Solver) NumAssigns() int {
	return len(s.trail)
}

func (s *Solver) NumConstraints() int {
	return len(s.constraints)
}

func (s *Solver) NumLearnts() int {
	return len(s.learnts)
}

func (s *Solver) VarValue(x int) LBool {
	return s.assigns[s.PositiveLiteral(x)]
}

func (s *Solver) LitValue(l Literal) LBool {
	return s.assigns[l]
}

func (s *Solver) AddVariable() int {
	index := s.NumVariables()
	s.watchers = append(s.watchers, nil)
	s.watchers = append(s.watchers, nil)
	s.reason = append(s.reason, nil)
	s.seenVar.Expand()

	// One for each literal.
	s.assigns = append(s.assigns, Unknown)
	s.assigns = append(s.assigns, Unknown)

	s.level = append(s.level, -1)
	return index
}

// RegisterPropagator attaches a theory propagator to the SAT core. It must
// be called before Solve(); propagators are polled to a fixpoint after BCP,
// in registration order (spec.md §4.3/§5), and their UndoToLevel is called
// in reverse registration order during backjumps.
func (s *Solver) RegisterPropagator(p Propagator) int {
	id := len(s.propagators)
	s.propagators = append(s.propagators, p)
	s.propCtx = append(s.propCtx, &PropagatorContext{s: s, id: id})
	return id
}

// Watch registers clause c to be awaken when Literal watch is assigned to true.
func (s *Solver) Watch(c *Clause, watch Literal, guard Literal) {
	s.watchers[watch] = append(s.watchers[watch], watcher{
		clause: c,
		guard:  guard,
	})
}

// Unwatch removes clause c from the list of watchers.
func (s *Solver) Unwatch(c *Clause, watch Literal) {
	j := 0
	for i := 0; i < len(s.watchers[watch]); i++ {
		if s.watchers[watch][i].clause != c {
			s.watchers[watch][j] = s.watchers[watch][i]
			j++
		}
	}
	s.watchers[watch] = s.watchers[watch][:j]
}

func (s *Solver) AddClause(clause []Literal) error {
	if s.decisionLevel() != 0 {
		return fmt.Errorf("sat: can only add clauses at the root level")
	}
	c, ok := NewClause(s, clause, false)
	if c != nil {
		s.constraints = append(s.constraints, c)
	}
	if !ok {
		s.unsat = true
	}
	return nil
}

// Simplify simplifies the clause DB as well as the problem clauses according
// to the root-level assignments. Clauses that are satisfied at the root-level
// are removed.
func (s *Solver) Simplify() bool {
	if l := s.decisionLevel(); l != 0 {
		log.Fatalf("Simplify called on non root-level: %d", l)
	}
	if s.propQueue.Size() != 0 {
		log.Fatal("propQueue should be empty when calling simplify")
	}

	if s.unsat || s.Propagate() != nil {
		s.unsat = true
		return false
	}

	s.simplifyPtr(&s.learnts)
	s.simplifyPtr(&s.constraints) // could be turned off

	return true
}

// simplifyPtr simplifies the clauses in the given slice and removes clauses
// that are already satisfied.
func (s *Solver) simplifyPtr(clausesPtr *[]*Clause) {
	clauses := *clausesPtr
	j := 0
	for i := 0; i < len(clauses); i++ {
		if clauses[i].Simplify(s) {
			clauses[i].Remove(s)
		} else {
			clauses[j] = clauses[i]
			j++
		}
	}
	*clausesPtr = clauses[:j]
}

func (s *Solver) ReduceDB() {
	lim := s.clauseInc / float64(len(s.learnts))

	sort.Slice(s.learnts, func(i, j int) bool {
		return s.learnts[i].activity < s.learnts[j].activity
	})

	i, j := 0, 0
	for ; i < len(s.learnts)/2; i++ {
		if s.learnts[i].locked(s) {
			s.learnts[j] = s.learnts[i]
			j++
		} else {
			s.learnts[i].Remove(s)
		}
	}

	for ; i < len(s.learnts); i++ {
		if !s.learnts[i].locked(s) && s.learnts[i].activity < lim {
			s.learnts[i].Remove(s)
		} else {
			s.learnts[j] = s.learnts[i]
			j++
		}
	}

	s.learnts = s.learnts[:j]
}

func (s *Solver) decisionLevel() int {
	return len(s.trailLim)
}

// Solve runs CDCL search to completion, returning True (a model was found,
// available via s.Models), False (the problem is unsatisfiable), or Unknown
// when search stops before either was established: interrupted via
// CancelFlag, or the MaxConflicts or Timeout limit reached.
func (s *Solver) Solve() LBool {
	numLearnts := s.NumConstraints() / 3
	status := Unknown
	s.order = NewVarOrder(s, s.NumVariables())
	s.order.phaseSaving = s.phaseSaving
	s.startTime = time.Now()

	if !s.unsat {
		for i, p := range s.propagators {
			ctx := s.propCtx[i]
			ctx.changed = false
			ctx.conflictObj = nil
			if !p.Initialize(ctx) || ctx.conflictObj != nil {
				s.unsat = true
				break
			}
		}
	}

	s.printSeparator()
	s.printSearchHeader()
	s.printSeparator()

	for status == Unknown {
		status = s.Search(numLearnts)
		numLearnts += numLearnts / 20

		if s.shouldStop() && status == Unknown {
			break
		}
	}

	s.printSearchStats()
	s.printSeparator()

	s.cancelUntil(0)
	return status
}

func (s *Solver) BumpClaActivity(c *Clause) {
	c.activity += s.clauseInc

	if c.activity > 1e100 {
		s.clauseInc *= 1e-100 // important to keep proportions
		for _, l := range s.learnts {
			l.activity *= 1e-100
		}
	}
}

func (s *Solver) BumpVarActivity(l Literal) {
	v := l.VarID()
	newInc, rescaled := s.order.bump(v, s.varInc)
	if rescaled {
		s.varInc = newInc
	}
	s.order.Update(v)
}

func (s *Solver) DecayClaActivity() {
	s.clauseInc *= s.clauseDecay
}

func (s *Solver) DecayVarActivity() {
	s.varInc /= s.varDecay
}

// bcp runs unit propagation (clause-driven Boolean constraint propagation)
// to a fixpoint, returning the conflicting clause if one is found.
func (s *Solver) bcp() antecedent {
	for s.propQueue.Size() > 0 {
		l := s.propQueue.Pop()

		s.tmpWatchers = s.tmpWatchers[:0]
		s.tmpWatchers = append(s.tmpWatchers, s.watchers[l]...)
		s.watchers[l] = s.watchers[l][:0]

		for i, w := range s.tmpWatchers {
			// No need to propagate the clause if its guard is true. This block
			// is not necessary for propagation to behave properly. However, it
			// helps to significantly speed-up computation by avoiding loading
			// clause (in memory) that do not need to be propagated. Note that
			// this alters the order in which clause are propagated and can thus
			// yield to different conflict analysis and learnt clauses.
			if s.LitValue(w.guard) == True {
				s.watchers[l] = append(s.watchers[l], w)
				continue
			}

			if w.clause.Propagate(s, l) {
				continue
			}

			// Constraint is conflicting, copy remaining watchers
			// and return the constraint.
			s.watchers[l] = append(s.watchers[l], s.tmpWatchers[i+1:]...)
			s.propQueue.Clear()
			return s.tmpWatchers[i].clause
		}
	}

	return nil
}

// Propagate runs BCP, then polls every registered theory propagator once BCP
// has reached a fixpoint, in registration order; if a propagator enqueues a
// new literal the whole cycle (BCP, then propagators) repeats until nothing
// changes or a conflict is found (spec.md §4.1/§4.3/§5).
func (s *Solver) Propagate() antecedent {
	for {
		if confl := s.bcp(); confl != nil {
			return confl
		}

		changed := false
		for i, p := range s.propagators {
			ctx := s.propCtx[i]
			ctx.changed = false
			ctx.conflictObj = nil

			if !p.Propagate(ctx) {
				s.propQueue.Clear()
				if ctx.conflictObj == nil {
					// Programming error in the propagator: treat as an
					// unconditional conflict rather than panicking.
					return &propagatorConflict{}
				}
				return ctx.conflictObj
			}
			if ctx.changed {
				changed = true
			}
		}

		if !changed {
			return nil
		}
	}
}

func (s *Solver) enqueue(l Literal, from antecedent) bool {
	switch v := s.LitValue(l); v {
	case False:
		return false // conflicting assignment
	case True:
		return true // already assigned
	default:
		// New fact, store it.
		varID := l.VarID()
		s.assigns[l] = True
		s.assigns[l.Opposite()] = False
		s.level[varID] = s.decisionLevel()
		s.reason[varID] = from
		s.trail = append(s.trail, l)
		s.propQueue.Push(l)
		return true
	}
}

func (s *Solver) explain(c antecedent, l Literal) []Literal {
	return c.explain(s, l)
}

func (s *Solver) analyze(confl antecedent) ([]Literal, int) {
	// Current number of "implication" nodes encountered in the exploration of
	// the decision level. A value of 0 indicates that the exploration has
	// reached a single implication point.
	nImplicationPoints := 0

	// Empty the buffer of literals in which the learnt clause will be stored.
	// Note that the first literal is reserved for the FUIP which is set at
	// the end of this function.
	s.tmpLearnts = s.tmpLearnts[:0]
	s.tmpLearnts = append(s.tmpLearnts, noLiteral)

	// Next literal to look at. This is used to iterate over the trail without
	// actually undoing the literal assignments.
	nextLiteral := len(s.trail) - 1

	l := noLiteral // unknown literal used to represent the conflict
	s.seenVar.Clear()
	backtrackLevel := 0

	for {
		for _, q := range s.explain(confl, l) {
			v := q.VarID()
			if s.seenVar.Contains(v) {
				continue
			}

			s.seenVar.Add(v)
			if s.level[v] == s.decisionLevel() {
				nImplicationPoints++
				continue
			}

			s.tmpLearnts = append(s.tmpLearnts, q.Opposite())
			if level := s.level[v]; level > backtrackLevel {
				backtrackLevel = level
			}
		}

		// Select next literal to look at.
		for {
			l = s.trail[nextLiteral]
			nextLiteral--
			v := l.VarID()
			confl = s.reason[v]
			if s.seenVar.Contains(v) {
				break
			}
		}

		nImplicationPoints--
		if nImplicationPoints <= 0 {
			break
		}
	}

	// Add literal corresponding to the FUIP.
	s.tmpLearnts[0] = l.Opposite()

	return s.tmpLearnts, backtrackLevel
}

func (s *Solver) record(clause []Literal) {
	c, _ := NewClause(s, clause, true)
	s.enqueue(clause[0], c)
	if c != nil {
		s.learnts = append(s.learnts, c)
	}
}

// Search runs CDCL until a model is found, the problem is shown UNSAT, a
// restart boundary is hit, or a stop condition fires. nLearnts bounds the
// number of learnt clauses kept before ReduceDB is triggered.
func (s *Solver) Search(nLearnts int) LBool {
	if s.unsat {
		return False
	}

	s.TotalRestarts++
	s.conflictsThisTerm = 0

	for !s.shouldStop() {
		if s.TotalIterations%10000 == 0 {
			s.printSearchStats()
		}
		s.TotalIterations++

		if conflict := s.Propagate(); conflict != nil {
			s.conflictsThisTerm++
			s.TotalConflicts++

			if s.decisionLevel() == 0 {
				s.unsat = true
				return False
			}

			learntClause, backtrackLevel := s.analyze(conflict)
			s.cancelUntil(backtrackLevel)

			s.record(learntClause)

			s.DecayClaActivity()
			s.DecayVarActivity()

			continue
		}

		// No conflict.

		if s.decisionLevel() == 0 {
			s.Simplify()
		}

		if len(s.learnts)-s.NumAssigns() >= nLearnts {
			s.ReduceDB()
		}

		if s.NumAssigns() == s.NumVariables() { // solution found
			s.saveModel()
			s.cancelUntil(0)
			return True
		}

		if s.restarts.shouldRestart(s.conflictsThisTerm) {
			s.ConflictsEMA.Add(float64(s.conflictsThisTerm))
			s.restarts.advance()
			s.cancelUntil(0)
			return Unknown
		}

		l := s.order.Select(s)
		s.assume(l)
	}

	return Unknown
}

func (s *Solver) undoOne() {
	l := s.trail[len(s.trail)-1]
	v := l.VarID()

	val := s.assigns[l]
	s.order.Undo(v, val)
	s.assigns[l] = Unknown
	s.assigns[l.Opposite()] = Unknown
	s.reason[v] = nil
	s.level[v] = -1

	s.trail = s.trail[:len(s.trail)-1]
}

func (s *Solver) assume(l Literal) bool {
	s.trailLim = append(s.trailLim, len(s.trail))
	return s.enqueue(l, nil)
}

func (s *Solver) backtrackOneLevel() {
	c := len(s.trail) - s.trailLim[len(s.trailLim)-1]
	for ; c != 0; c-- {
		s.undoOne()
	}
	s.trailLim = s.trailLim[:len(s.trailLim)-1]
}

// cancelUntil backjumps to the given decision level, undoing trail entries
// and then notifying every registered propagator (in reverse registration
// order) so each can pop its own undo log to the same level.
func (s *Solver) cancelUntil(level int) {
	if s.decisionLevel() <= level {
		return
	}
	for s.decisionLevel() > level {
		s.backtrackOneLevel()
	}
	for i := len(s.propagators) - 1; i >= 0; i-- {
		s.propagators[i].UndoToLevel(level)
	}
}

func (s *Solver) saveModel() {
	model := make([]bool, s.NumVariables())
	for i := range model {
		lb := s.VarValue(i)
		if lb == Unknown {
			panic("sat: not a model")
		}
		model[i] = lb == True
	}
	s.Models = append(s.Models, model)
}

func (s *Solver) printSeparator() {
	if !s.Verbose {
		return
	}
	fmt.Println("c ---------------------------------------------------------------------------")
}

func (s *Solver) printSearchHeader() {
	if !s.Verbose {
		return
	}
	fmt.Println("c            time     iterations      conflicts       restarts        learnts")
}

func (s *Solver) printSearchStats() {
	if !s.Verbose {
		return
	}
	fmt.Printf(
		"c %14.3fs %14d %14d %14d %14d\n",
		time.Since(s.startTime).Seconds(),
		s.TotalIterations,
		s.TotalConflicts,
		s.TotalRestarts,
		len(s.learnts))
}
