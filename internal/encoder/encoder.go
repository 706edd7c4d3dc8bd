// Package encoder compiles a normalized CSP into CNF clauses and registered
// theory propagators on a SAT core, via order encoding (spec.md §4.2): an
// integer variable's domain becomes a chain of monotone "variable >= v"
// Booleans, and linear constraints are folded two terms at a time into a
// composite chain (a totalizer-style partial-sum tree) before the
// comparator is tested against it.
package encoder

import (
	"fmt"
	"sort"

	"github.com/gridsolve/cspsat/internal/domain"
	"github.com/gridsolve/cspsat/internal/graph"
	"github.com/gridsolve/cspsat/internal/ncsp"
	"github.com/gridsolve/cspsat/internal/propagator"
	"github.com/gridsolve/cspsat/internal/sat"
)

// chain is an order encoding of a sorted, non-empty value set: for
// values[0] < values[1] < ... < values[k-1], lits[i-1] is the literal
// "the underlying quantity is >= values[i]", for i = 1..k-1. values[0] is
// implicitly always reachable (there is no literal for it: the quantity is
// never less than its own minimum).
type chain struct {
	values []int
	lits   []sat.Literal // len(lits) == len(values)-1
}

// ge returns the literal for "quantity >= v", using trueLit/falseLit for
// thresholds outside the chain's covered range.
func (c chain) ge(v int, trueLit, falseLit sat.Literal) sat.Literal {
	if v <= c.values[0] {
		return trueLit
	}
	if v > c.values[len(c.values)-1] {
		return falseLit
	}
	i := sort.Search(len(c.values), func(i int) bool { return c.values[i] >= v })
	return c.lits[i-1]
}

// Encoding is the result of compiling an *ncsp.NCSP onto a *sat.Solver: the
// SAT literal standing for each NCSP Boolean, the order-encoding chain for
// each NCSP integer, and the two pinned constant literals every comparator
// lowering bottoms out at.
type Encoding struct {
	S *sat.Solver

	BoolLits  []sat.Literal
	IntChains []chain

	TrueLit  sat.Literal
	FalseLit sat.Literal

	valueLitCache map[[2]int]sat.Literal // (IntVar, value) -> equality literal
}

// Encode compiles n onto s: one SAT variable per NCSP Boolean, one
// order-encoding chain per NCSP integer domain, one clause per NCSP
// Constraint, and, per NCSP ExtraConstraint, either a registered
// sat.Propagator or (for Mul) a set of plain clauses.
func Encode(n *ncsp.NCSP, s *sat.Solver) (*Encoding, error) {
	trueLit, err := newConstLiteral(s, true)
	if err != nil {
		return nil, err
	}
	falseLit, err := newConstLiteral(s, false)
	if err != nil {
		return nil, err
	}

	e := &Encoding{
		S:             s,
		TrueLit:       trueLit,
		FalseLit:      falseLit,
		valueLitCache: make(map[[2]int]sat.Literal),
	}

	e.BoolLits = make([]sat.Literal, n.NumBoolVars)
	for i := range e.BoolLits {
		v := s.AddVariable()
		e.BoolLits[i] = s.PositiveLiteral(v)
	}

	e.IntChains = make([]chain, len(n.IntDomains))
	for i, d := range n.IntDomains {
		e.IntChains[i] = newChain(s, d)
	}

	for _, c := range n.Constraints {
		if err := e.encodeConstraint(c); err != nil {
			return nil, err
		}
	}

	for _, extra := range n.Extra {
		if err := e.encodeExtra(extra); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// BoolValue reports the model value of an NCSP Boolean after Solve
// returns sat.True.
func (e *Encoding) BoolValue(v ncsp.BoolVar) bool {
	return e.S.LitValue(e.BoolLits[v]) == sat.True
}

// IntGE returns the literal for "variable >= val" (spec.md §4.2). Exposed so
// callers outside this package (the integrated solver's irrefutable-facts
// and answer-enumeration queries) can build extra blocking clauses against
// an already-encoded integer variable without reaching into the encoder's
// internal chain representation.
func (e *Encoding) IntGE(v ncsp.IntVar, val int) sat.Literal {
	return e.IntChains[v].ge(val, e.TrueLit, e.FalseLit)
}

// IntValue reports the model value of an NCSP integer after Solve returns
// sat.True: the largest value whose chain literal is true, or the domain
// minimum if none is.
func (e *Encoding) IntValue(v ncsp.IntVar) int {
	c := e.IntChains[v]
	for i := len(c.lits) - 1; i >= 0; i-- {
		if e.S.LitValue(c.lits[i]) == sat.True {
			return c.values[i+1]
		}
	}
	return c.values[0]
}

func newConstLiteral(s *sat.Solver, value bool) (sat.Literal, error) {
	v := s.AddVariable()
	lit := s.PositiveLiteral(v)
	if !value {
		lit = s.NegativeLiteral(v)
	}
	if err := s.AddClause([]sat.Literal{lit}); err != nil {
		return 0, fmt.Errorf("encoder: pinning constant literal: %w", err)
	}
	return lit, nil
}

func newChain(s *sat.Solver, d domain.Domain) chain {
	values := d.Enumerate()
	lits := make([]sat.Literal, len(values)-1)
	for i := range lits {
		lits[i] = s.PositiveLiteral(s.AddVariable())
	}
	for i := 1; i < len(lits); i++ {
		// x >= values[i+1] implies x >= values[i]: lits[i] -> lits[i-1].
		_ = s.AddClause([]sat.Literal{lits[i].Opposite(), lits[i-1]})
	}
	return chain{values: values, lits: lits}
}

func (e *Encoding) encodeConstraint(c ncsp.Constraint) error {
	clause := make([]sat.Literal, 0, len(c.Lits))
	for _, l := range c.Lits {
		lit, err := e.litOf(l)
		if err != nil {
			return err
		}
		clause = append(clause, lit)
	}
	if err := e.S.AddClause(clause); err != nil {
		return fmt.Errorf("encoder: %w", err)
	}
	return nil
}

func (e *Encoding) litOf(l ncsp.ClauseLit) (sat.Literal, error) {
	if !l.IsLinear {
		lit := e.BoolLits[l.Var]
		if l.Negated {
			lit = lit.Opposite()
		}
		return lit, nil
	}
	return e.linearLit(l.Linear)
}

// sumNode is a value-annotated chain used while folding a linear
// expression's scaled terms, two at a time, into one composite
// order-encoding chain.
type sumNode struct {
	values []int
	lits   []sat.Literal
}

func (e *Encoding) nodeGE(n sumNode, v int) sat.Literal {
	return chain{values: n.values, lits: n.lits}.ge(v, e.TrueLit, e.FalseLit)
}

// scaleNode reinterprets an IntVar's order-encoding chain as the chain of
// coeff*x, at no extra SAT-variable cost: for coeff > 0 the same literals
// apply to the scaled thresholds in the same order; for coeff < 0 the
// value order reverses and each "coeff*x >= t" condition becomes the
// negation of the corresponding "x >= ..." literal (coeff == 0 collapses
// to the constant 0).
func scaleNode(c chain, coeff int) sumNode {
	if coeff == 0 {
		return sumNode{values: []int{0}}
	}
	n := len(c.values)
	values := make([]int, n)
	for i, v := range c.values {
		values[i] = coeff * v
	}
	if coeff > 0 {
		return sumNode{values: values, lits: append([]sat.Literal(nil), c.lits...)}
	}
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		values[i], values[j] = values[j], values[i]
	}
	lits := make([]sat.Literal, len(c.lits))
	for i, l := range c.lits {
		lits[len(lits)-1-i] = l.Opposite()
	}
	return sumNode{values: values, lits: lits}
}

// combine folds a+b into a newly materialized sum node covering every sum
// achievable from the two addends' value sets. For each pair of addend
// values it emits both the forward clause (the pair's truth forces the
// composite's threshold true: soundness) and the backward clause (the
// composite passing va+vb forces one addend past its own value:
// completeness) — the two-directional pair is what keeps a pairwise sum
// encoding from silently under- or over-constraining the sum (spec.md
// §4.2's totalizer-style partial-sum tree; this folds terms left to right
// rather than in a balanced tree).
func (e *Encoding) combine(a, b sumNode) (sumNode, error) {
	seen := make(map[int]bool)
	for _, va := range a.values {
		for _, vb := range b.values {
			seen[va+vb] = true
		}
	}
	values := make([]int, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Ints(values)

	lits := make([]sat.Literal, len(values)-1)
	for i := range lits {
		lits[i] = e.S.PositiveLiteral(e.S.AddVariable())
	}
	for i := 1; i < len(lits); i++ {
		if err := e.S.AddClause([]sat.Literal{lits[i].Opposite(), lits[i-1]}); err != nil {
			return sumNode{}, fmt.Errorf("encoder: monotonicity clause: %w", err)
		}
	}
	out := sumNode{values: values, lits: lits}

	for _, va := range a.values {
		ga := e.nodeGE(a, va)
		for _, vb := range b.values {
			gb := e.nodeGE(b, vb)
			gc := e.nodeGE(out, va+vb)
			if err := e.S.AddClause([]sat.Literal{ga.Opposite(), gb.Opposite(), gc}); err != nil {
				return sumNode{}, fmt.Errorf("encoder: sum forward clause: %w", err)
			}
			gcNext := e.nodeGE(out, va+vb+1)
			gaNext := e.nodeGE(a, va+1)
			gbNext := e.nodeGE(b, vb+1)
			if err := e.S.AddClause([]sat.Literal{gcNext.Opposite(), gaNext, gbNext}); err != nil {
				return sumNode{}, fmt.Errorf("encoder: sum backward clause: %w", err)
			}
		}
	}
	return out, nil
}

// andLit returns a fresh literal p with p <-> (a AND b).
func (e *Encoding) andLit(a, b sat.Literal) (sat.Literal, error) {
	p := e.S.PositiveLiteral(e.S.AddVariable())
	clauses := [][]sat.Literal{
		{p.Opposite(), a},
		{p.Opposite(), b},
		{a.Opposite(), b.Opposite(), p},
	}
	for _, cl := range clauses {
		if err := e.S.AddClause(cl); err != nil {
			return 0, fmt.Errorf("encoder: and-literal clause: %w", err)
		}
	}
	return p, nil
}

// orLit returns a fresh literal p with p <-> (a OR b).
func (e *Encoding) orLit(a, b sat.Literal) (sat.Literal, error) {
	p := e.S.PositiveLiteral(e.S.AddVariable())
	clauses := [][]sat.Literal{
		{p.Opposite(), a, b},
		{a.Opposite(), p},
		{b.Opposite(), p},
	}
	for _, cl := range clauses {
		if err := e.S.AddClause(cl); err != nil {
			return 0, fmt.Errorf("encoder: or-literal clause: %w", err)
		}
	}
	return p, nil
}

// linearLit returns the literal for Σ cᵢxᵢ + Const ⊳ 0.
func (e *Encoding) linearLit(l ncsp.LinearLit) (sat.Literal, error) {
	if len(l.Terms) == 0 {
		return e.constantComparison(l.Const, l.Op), nil
	}

	node := scaleNode(e.IntChains[l.Terms[0].Var], l.Terms[0].Coeff)
	for _, term := range l.Terms[1:] {
		scaled := scaleNode(e.IntChains[term.Var], term.Coeff)
		combined, err := e.combine(node, scaled)
		if err != nil {
			return 0, fmt.Errorf("encoder: folding linear term: %w", err)
		}
		node = combined
	}

	threshold := -l.Const // Sigma terms + Const OP 0  <=>  Sigma terms OP -Const
	switch l.Op {
	case ncsp.GE:
		return e.nodeGE(node, threshold), nil
	case ncsp.EQ:
		ge := e.nodeGE(node, threshold)
		lt := e.nodeGE(node, threshold+1).Opposite()
		return e.andLit(ge, lt)
	case ncsp.NE:
		ge := e.nodeGE(node, threshold)
		lt := e.nodeGE(node, threshold+1).Opposite()
		return e.orLit(ge.Opposite(), lt.Opposite())
	default:
		return 0, fmt.Errorf("encoder: unknown comparator %v", l.Op)
	}
}

func (e *Encoding) constantComparison(constVal int, op ncsp.CompareOp) sat.Literal {
	threshold := -constVal
	var holds bool
	switch op {
	case ncsp.GE:
		holds = threshold <= 0
	case ncsp.EQ:
		holds = threshold == 0
	case ncsp.NE:
		holds = threshold != 0
	}
	if holds {
		return e.TrueLit
	}
	return e.FalseLit
}

// valueLit returns the literal for "v == value", memoized per (variable,
// value) pair, built as GE(value) AND NOT GE(value+1). The value-equality
// literals for a single variable are automatically mutually exclusive and
// collectively exhaustive, a direct consequence of the order encoding's
// single-crossing-point structure, so no auxiliary at-most-one clauses are
// needed for theory propagators that consume them (spec.md §4.2, §4.3).
func (e *Encoding) valueLit(v ncsp.IntVar, value int) (sat.Literal, error) {
	key := [2]int{int(v), value}
	if lit, ok := e.valueLitCache[key]; ok {
		return lit, nil
	}
	c := e.IntChains[v]
	ge := c.ge(value, e.TrueLit, e.FalseLit)
	lt := c.ge(value+1, e.TrueLit, e.FalseLit).Opposite()
	lit, err := e.andLit(ge, lt)
	if err != nil {
		return 0, fmt.Errorf("encoder: value literal for var %d = %d: %w", v, value, err)
	}
	e.valueLitCache[key] = lit
	return lit, nil
}

func (e *Encoding) varValues(v ncsp.IntVar) (propagator.VarValues, error) {
	c := e.IntChains[v]
	lits := make([]sat.Literal, len(c.values))
	for i, val := range c.values {
		lit, err := e.valueLit(v, val)
		if err != nil {
			return propagator.VarValues{}, err
		}
		lits[i] = lit
	}
	return propagator.VarValues{Values: append([]int(nil), c.values...), Lits: lits}, nil
}

func (e *Encoding) litsOf(cls []ncsp.ClauseLit) ([]sat.Literal, error) {
	out := make([]sat.Literal, len(cls))
	for i, cl := range cls {
		lit, err := e.litOf(cl)
		if err != nil {
			return nil, err
		}
		out[i] = lit
	}
	return out, nil
}

func (e *Encoding) encodeExtra(extra ncsp.ExtraConstraint) error {
	switch ex := extra.(type) {
	case ncsp.ActiveVerticesConnected:
		active, err := e.litsOf(ex.Active)
		if err != nil {
			return err
		}
		g, err := graph.New(len(ex.Active), ex.Edges)
		if err != nil {
			return fmt.Errorf("encoder: active-vertices-connected: %w", err)
		}
		e.S.RegisterPropagator(propagator.NewConnectivity(g, active))
		return nil

	case ncsp.Circuit:
		succ := make([]propagator.VarValues, len(ex.Succ))
		for i, v := range ex.Succ {
			vv, err := e.varValues(v)
			if err != nil {
				return fmt.Errorf("encoder: circuit: %w", err)
			}
			succ[i] = vv
		}
		e.S.RegisterPropagator(propagator.NewCircuit(succ))
		return nil

	case ncsp.Mul:
		return e.encodeMul(ex)

	case ncsp.ExtensionSupports:
		vars := make([]propagator.VarValues, len(ex.Vars))
		for i, v := range ex.Vars {
			vv, err := e.varValues(v)
			if err != nil {
				return fmt.Errorf("encoder: extension-supports: %w", err)
			}
			vars[i] = vv
		}
		rows := make([][]propagator.SupportValue, len(ex.Rows))
		for i, row := range ex.Rows {
			out := make([]propagator.SupportValue, len(row))
			for j, cell := range row {
				out[j] = propagator.SupportValue{Wildcard: cell.Wildcard, Value: cell.Value}
			}
			rows[i] = out
		}
		e.S.RegisterPropagator(propagator.NewExtensionSupports(vars, rows))
		return nil

	case ncsp.GraphDivision:
		border, err := e.litsOf(ex.BorderLit)
		if err != nil {
			return err
		}
		numVertices := 0
		for _, edge := range ex.Edges {
			if edge[0]+1 > numVertices {
				numVertices = edge[0] + 1
			}
			if edge[1]+1 > numVertices {
				numVertices = edge[1] + 1
			}
		}
		g, err := graph.New(numVertices, ex.Edges)
		if err != nil {
			return fmt.Errorf("encoder: graph-division: %w", err)
		}
		e.S.RegisterPropagator(propagator.NewGraphDivision(g, border, ex.Sizes, ex.Mode))
		return nil

	case ncsp.CustomConstraint:
		args, err := e.litsOf(ex.Args)
		if err != nil {
			return err
		}
		e.S.RegisterPropagator(propagator.NewCustom(e.S, ex.Factory, args))
		return nil

	default:
		return fmt.Errorf("encoder: unknown extra constraint %T", extra)
	}
}

// encodeMul lowers M == A*B by direct domain iteration (spec.md §9's Open
// Question, decided in DESIGN.md): for every pair of values A and B may
// take, a clause forces the matching M-value true (or rules the pair out
// entirely if the product falls outside M's domain). Because value
// literals within one variable are mutually exclusive and exhaustive, this
// forward-only clause set is already a complete encoding of the functional
// constraint, so Mul needs no propagator.
func (e *Encoding) encodeMul(m ncsp.Mul) error {
	av, err := e.varValues(m.A)
	if err != nil {
		return fmt.Errorf("encoder: mul: %w", err)
	}
	bv, err := e.varValues(m.B)
	if err != nil {
		return fmt.Errorf("encoder: mul: %w", err)
	}
	for ai, a := range av.Values {
		for bi, b := range bv.Values {
			product := a * b
			mLit, ok := e.mulValueLit(m.M, product)
			if !ok {
				if err := e.S.AddClause([]sat.Literal{av.Lits[ai].Opposite(), bv.Lits[bi].Opposite()}); err != nil {
					return fmt.Errorf("encoder: mul: %w", err)
				}
				continue
			}
			if err := e.S.AddClause([]sat.Literal{av.Lits[ai].Opposite(), bv.Lits[bi].Opposite(), mLit}); err != nil {
				return fmt.Errorf("encoder: mul: %w", err)
			}
		}
	}
	return nil
}

// mulValueLit returns the literal for m == value, or ok=false if
// value is outside m's domain (the normalizer is expected to have sized M
// to cover every reachable product, but Mul stays defensive here).
func (e *Encoding) mulValueLit(m ncsp.IntVar, value int) (sat.Literal, bool) {
	c := e.IntChains[m]
	i := sort.Search(len(c.values), func(i int) bool { return c.values[i] >= value })
	if i >= len(c.values) || c.values[i] != value {
		return 0, false
	}
	lit, err := e.valueLit(m, value)
	if err != nil {
		return 0, false
	}
	return lit, true
}
