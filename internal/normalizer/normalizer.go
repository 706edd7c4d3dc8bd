// Package normalizer rewrites a high-level csp.Builder CSP into an ncsp.NCSP
// (spec.md §4.4): Tseitin transformation with structural sharing for
// Boolean subexpressions, interval-arithmetic flattening for integer
// subexpressions, comparison lowering to linear literals, and AllDifferent
// decomposition.
package normalizer

import (
	"fmt"

	"github.com/gridsolve/cspsat/internal/csp"
	"github.com/gridsolve/cspsat/internal/domain"
	"github.com/gridsolve/cspsat/internal/ncsp"
)

// ErrOverflow is returned when interval arithmetic over IntExpr children
// would carry a bound outside the supported 32-bit range (spec.md §7).
var ErrOverflow = domain.ErrOverflow

// Config controls normalization choices exposed in spec.md §6's
// configuration map.
type Config struct {
	// UseConstantFolding is accepted for configuration compatibility;
	// Normalize does not read it. Constant subexpressions are always folded
	// into a linear form's constant term during flattening.
	UseConstantFolding bool

	// AlldiffPairwiseThreshold is the domain-union-size cutoff (spec.md
	// §4.4 point 4) at or below which AllDifferent expands to O(n^2) pairwise
	// disequalities; above it, AllDifferent decomposes via
	// direct-encoded value-presence variables instead.
	AlldiffPairwiseThreshold int
}

// DefaultConfig mirrors spec.md §6's defaults.
var DefaultConfig = Config{
	UseConstantFolding:       true,
	AlldiffPairwiseThreshold: 16,
}

// linearForm is the flattened shape of an IntExpr: (Σ cᵢ yᵢ) + c₀ over NCSP
// IntVars (spec.md §4.4).
type linearForm struct {
	terms []ncsp.LinearTerm
	constant int
}

func constForm(v int) linearForm { return linearForm{constant: v} }

func varForm(v ncsp.IntVar) linearForm {
	return linearForm{terms: []ncsp.LinearTerm{{Coeff: 1, Var: v}}}
}

// scale multiplies every term and the constant by c.
func (f linearForm) scale(c int) linearForm {
	out := linearForm{constant: f.constant * c}
	for _, t := range f.terms {
		out.terms = append(out.terms, ncsp.LinearTerm{Coeff: t.Coeff * c, Var: t.Var})
	}
	return out
}

// add merges two forms, combining coefficients of shared variables.
func add(fs ...linearForm) linearForm {
	coeffs := map[ncsp.IntVar]int{}
	order := []ncsp.IntVar{}
	constant := 0
	for _, f := range fs {
		constant += f.constant
		for _, t := range f.terms {
			if _, ok := coeffs[t.Var]; !ok {
				order = append(order, t.Var)
			}
			coeffs[t.Var] += t.Coeff
		}
	}
	out := linearForm{constant: constant}
	for _, v := range order {
		if c := coeffs[v]; c != 0 {
			out.terms = append(out.terms, ncsp.LinearTerm{Coeff: c, Var: v})
		}
	}
	return out
}

func sub(a, b linearForm) linearForm {
	return add(a, b.scale(-1))
}

// bounds computes the [min, max] range of the linear form over the given
// per-variable domain bounds, used to size If() auxiliary variables and to
// detect overflow (spec.md §7, Overflow).
func (f linearForm) bounds(domainOf func(ncsp.IntVar) domain.Domain) (int, int, error) {
	lo, hi := f.constant, f.constant
	for _, t := range f.terms {
		d := domainOf(t.Var)
		a, b := t.Coeff*d.Min(), t.Coeff*d.Max()
		if a > b {
			a, b = b, a
		}
		lo += a
		hi += b
		if lo < domain.MinValue || hi > domain.MaxValue {
			return 0, 0, ErrOverflow
		}
	}
	return lo, hi, nil
}

type normalizer struct {
	b   *csp.Builder
	n   *ncsp.NCSP
	cfg Config

	boolCache []ncsp.ClauseLit
	boolSeen  []bool
	intCache  []linearForm
	intSeen   []bool

	intVarOf []ncsp.IntVar // csp.IntVar -> ncsp.IntVar, 1:1

	trueVar  ncsp.BoolVar
	falseVar ncsp.BoolVar
}

// Normalize rewrites b into an NCSP under cfg.
func Normalize(b *csp.Builder, cfg Config) (*ncsp.NCSP, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	n := &ncsp.NCSP{
		AnswerKeyBools: map[ncsp.BoolVar]bool{},
		AnswerKeyInts:  map[ncsp.IntVar]bool{},
	}
	nz := &normalizer{b: b, n: n, cfg: cfg}

	// Reserve the NCSP's Boolean variables 0..numBoolVars-1 for a direct
	// 1:1 mapping with the CSP's own Boolean variables, then append two
	// constant sentinels.
	for i := 0; i < b.NumBoolVars(); i++ {
		n.NewBoolVar()
	}
	nz.trueVar = n.NewBoolVar()
	n.AddConstraint(ncsp.Constraint{Lits: []ncsp.ClauseLit{ncsp.BoolLit(nz.trueVar, false)}})
	nz.falseVar = n.NewBoolVar()
	n.AddConstraint(ncsp.Constraint{Lits: []ncsp.ClauseLit{ncsp.BoolLit(nz.falseVar, true)}})

	nz.intVarOf = make([]ncsp.IntVar, b.NumIntVars())
	for i := 0; i < b.NumIntVars(); i++ {
		nz.intVarOf[i] = n.NewIntVar(b.IntVarDomain(csp.IntVar(i)))
	}

	for v := range b.AnswerKeyBoolVars() {
		n.AnswerKeyBools[ncsp.BoolVar(v)] = true
	}
	for v := range b.AnswerKeyIntVars() {
		n.AnswerKeyInts[nz.intVarOf[v]] = true
	}

	for _, stmt := range b.Statements() {
		if err := nz.normalizeStmt(stmt); err != nil {
			return nil, err
		}
	}

	return n, nil
}

// ensureBoolCache/ensureIntCache grow the memoization caches on demand,
// since csp.Builder exposes no arena-length accessor and arena indices can
// exceed variable counts.
func (nz *normalizer) ensureBoolCache(e csp.BoolExpr) {
	for len(nz.boolCache) <= int(e) {
		nz.boolCache = append(nz.boolCache, ncsp.ClauseLit{})
		nz.boolSeen = append(nz.boolSeen, false)
	}
}

func (nz *normalizer) ensureIntCache(e csp.IntExpr) {
	for len(nz.intCache) <= int(e) {
		nz.intCache = append(nz.intCache, linearForm{})
		nz.intSeen = append(nz.intSeen, false)
	}
}

func (nz *normalizer) domainOf(v ncsp.IntVar) domain.Domain {
	return nz.n.IntDomains[v]
}

// negateLinear returns the linear literal for the logical negation of l.
func negateLinear(l ncsp.LinearLit) ncsp.LinearLit {
	switch l.Op {
	case ncsp.EQ:
		return ncsp.LinearLit{Terms: l.Terms, Const: l.Const, Op: ncsp.NE}
	case ncsp.NE:
		return ncsp.LinearLit{Terms: l.Terms, Const: l.Const, Op: ncsp.EQ}
	default: // GE: ¬(s >= 0) == (-s - 1 >= 0)
		terms := make([]ncsp.LinearTerm, len(l.Terms))
		for i, t := range l.Terms {
			terms[i] = ncsp.LinearTerm{Coeff: -t.Coeff, Var: t.Var}
		}
		return ncsp.LinearLit{Terms: terms, Const: -l.Const - 1, Op: ncsp.GE}
	}
}

func negateLit(l ncsp.ClauseLit) ncsp.ClauseLit {
	if l.IsLinear {
		return ncsp.LinearClauseLit(negateLinear(l.Linear))
	}
	return ncsp.BoolLit(l.Var, !l.Negated)
}

// --- Boolean normalization (Tseitin with identity-keyed sharing) ---

func (nz *normalizer) normalizeBool(e csp.BoolExpr) (ncsp.ClauseLit, error) {
	nz.ensureBoolCache(e)
	if nz.boolSeen[e] {
		return nz.boolCache[e], nil
	}

	kind, boolVal, v, children, a, bb, ia, ib := nz.b.BoolNode(e)

	var lit ncsp.ClauseLit
	var err error

	switch kind {
	case csp.BConst:
		if boolVal {
			lit = ncsp.BoolLit(nz.trueVar, false)
		} else {
			lit = ncsp.BoolLit(nz.falseVar, false)
		}
	case csp.BVar:
		lit = ncsp.BoolLit(ncsp.BoolVar(v), false)
	case csp.BNot:
		var al ncsp.ClauseLit
		if al, err = nz.normalizeBool(a); err == nil {
			lit = negateLit(al)
		}
	case csp.BAnd:
		lit, err = nz.tseitinAnd(children)
	case csp.BOr:
		lit, err = nz.tseitinOr(children)
	case csp.BXor:
		lit, err = nz.tseitinXor(a, bb)
	case csp.BIff:
		lit, err = nz.tseitinIff(a, bb)
	case csp.BImp:
		lit, err = nz.tseitinImp(a, bb)
	case csp.BIntEq, csp.BIntNe, csp.BIntLe, csp.BIntLt, csp.BIntGe, csp.BIntGt:
		lit, err = nz.normalizeComparison(kind, ia, ib)
	default:
		err = fmt.Errorf("normalizer: unknown bool expr kind %v", kind)
	}

	if err != nil {
		return ncsp.ClauseLit{}, err
	}

	nz.boolCache[e] = lit
	nz.boolSeen[e] = true
	return lit, nil
}

// tseitinImp encodes z <-> (a -> b) directly, without borrowing Or's
// fresh-variable machinery, to avoid constructing new csp-level nodes
// mid-normalization.
func (nz *normalizer) tseitinImp(a, b csp.BoolExpr) (ncsp.ClauseLit, error) {
	al, err := nz.normalizeBool(a)
	if err != nil {
		return ncsp.ClauseLit{}, err
	}
	bl, err := nz.normalizeBool(b)
	if err != nil {
		return ncsp.ClauseLit{}, err
	}
	z := nz.n.NewBoolVar()
	zl := ncsp.BoolLit(z, false)
	nzl := ncsp.BoolLit(z, true)
	nal := negateLit(al)
	// z <-> (¬a ∨ b)
	nz.n.AddConstraint(ncsp.Constraint{Lits: []ncsp.ClauseLit{nzl, nal, bl}})
	nz.n.AddConstraint(ncsp.Constraint{Lits: []ncsp.ClauseLit{zl, al}})
	nz.n.AddConstraint(ncsp.Constraint{Lits: []ncsp.ClauseLit{zl, negateLit(bl)}})
	return zl, nil
}

func (nz *normalizer) tseitinAnd(children []csp.BoolExpr) (ncsp.ClauseLit, error) {
	lits := make([]ncsp.ClauseLit, len(children))
	for i, c := range children {
		l, err := nz.normalizeBool(c)
		if err != nil {
			return ncsp.ClauseLit{}, err
		}
		lits[i] = l
	}
	z := nz.n.NewBoolVar()
	zl := ncsp.BoolLit(z, false)
	nzl := ncsp.BoolLit(z, true)

	// z -> ci for each i
	for _, l := range lits {
		nz.n.AddConstraint(ncsp.Constraint{Lits: []ncsp.ClauseLit{nzl, l}})
	}
	// (c1 ^ ... ^ cn) -> z
	orLits := append([]ncsp.ClauseLit{zl}, negateAll(lits)...)
	nz.n.AddConstraint(ncsp.Constraint{Lits: orLits})

	return zl, nil
}

func (nz *normalizer) tseitinOr(children []csp.BoolExpr) (ncsp.ClauseLit, error) {
	lits := make([]ncsp.ClauseLit, len(children))
	for i, c := range children {
		l, err := nz.normalizeBool(c)
		if err != nil {
			return ncsp.ClauseLit{}, err
		}
		lits[i] = l
	}
	z := nz.n.NewBoolVar()
	zl := ncsp.BoolLit(z, false)
	nzl := ncsp.BoolLit(z, true)

	// ci -> z for each i
	for _, l := range lits {
		nz.n.AddConstraint(ncsp.Constraint{Lits: []ncsp.ClauseLit{negateLit(l), zl}})
	}
	// z -> (c1 v ... v cn)
	orLits := append([]ncsp.ClauseLit{nzl}, lits...)
	nz.n.AddConstraint(ncsp.Constraint{Lits: orLits})

	return zl, nil
}

func negateAll(lits []ncsp.ClauseLit) []ncsp.ClauseLit {
	out := make([]ncsp.ClauseLit, len(lits))
	for i, l := range lits {
		out[i] = negateLit(l)
	}
	return out
}

func (nz *normalizer) tseitinXor(a, b csp.BoolExpr) (ncsp.ClauseLit, error) {
	al, err := nz.normalizeBool(a)
	if err != nil {
		return ncsp.ClauseLit{}, err
	}
	bl, err := nz.normalizeBool(b)
	if err != nil {
		return ncsp.ClauseLit{}, err
	}
	z := nz.n.NewBoolVar()
	zl := ncsp.BoolLit(z, false)
	nzl := ncsp.BoolLit(z, true)
	nal, nbl := negateLit(al), negateLit(bl)

	nz.n.AddConstraint(ncsp.Constraint{Lits: []ncsp.ClauseLit{nzl, al, bl}})
	nz.n.AddConstraint(ncsp.Constraint{Lits: []ncsp.ClauseLit{nzl, nal, nbl}})
	nz.n.AddConstraint(ncsp.Constraint{Lits: []ncsp.ClauseLit{zl, nal, bl}})
	nz.n.AddConstraint(ncsp.Constraint{Lits: []ncsp.ClauseLit{zl, al, nbl}})
	return zl, nil
}

func (nz *normalizer) tseitinIff(a, b csp.BoolExpr) (ncsp.ClauseLit, error) {
	al, err := nz.normalizeBool(a)
	if err != nil {
		return ncsp.ClauseLit{}, err
	}
	bl, err := nz.normalizeBool(b)
	if err != nil {
		return ncsp.ClauseLit{}, err
	}
	z := nz.n.NewBoolVar()
	zl := ncsp.BoolLit(z, false)
	nzl := ncsp.BoolLit(z, true)
	nal, nbl := negateLit(al), negateLit(bl)

	nz.n.AddConstraint(ncsp.Constraint{Lits: []ncsp.ClauseLit{nzl, nal, bl}})
	nz.n.AddConstraint(ncsp.Constraint{Lits: []ncsp.ClauseLit{nzl, al, nbl}})
	nz.n.AddConstraint(ncsp.Constraint{Lits: []ncsp.ClauseLit{zl, al, bl}})
	nz.n.AddConstraint(ncsp.Constraint{Lits: []ncsp.ClauseLit{zl, nal, nbl}})
	return zl, nil
}

func (nz *normalizer) normalizeComparison(kind csp.BoolKind, ia, ib csp.IntExpr) (ncsp.ClauseLit, error) {
	la, err := nz.normalizeInt(ia)
	if err != nil {
		return ncsp.ClauseLit{}, err
	}
	lb, err := nz.normalizeInt(ib)
	if err != nil {
		return ncsp.ClauseLit{}, err
	}
	diff := sub(la, lb) // la - lb

	var lit ncsp.LinearLit
	switch kind {
	case csp.BIntEq:
		lit = ncsp.LinearLit{Terms: diff.terms, Const: diff.constant, Op: ncsp.EQ}
	case csp.BIntNe:
		lit = ncsp.LinearLit{Terms: diff.terms, Const: diff.constant, Op: ncsp.NE}
	case csp.BIntGe:
		lit = ncsp.LinearLit{Terms: diff.terms, Const: diff.constant, Op: ncsp.GE}
	case csp.BIntGt:
		lit = ncsp.LinearLit{Terms: diff.terms, Const: diff.constant - 1, Op: ncsp.GE}
	case csp.BIntLe:
		lit = negateLinear(ncsp.LinearLit{Terms: diff.terms, Const: diff.constant - 1, Op: ncsp.GE})
		// (la <= lb) == ¬(la > lb) == ¬(diff - 1 >= 0)
	case csp.BIntLt:
		lit = negateLinear(ncsp.LinearLit{Terms: diff.terms, Const: diff.constant, Op: ncsp.GE})
		// (la < lb) == ¬(la >= lb) == ¬(diff >= 0)
	default:
		return ncsp.ClauseLit{}, fmt.Errorf("normalizer: unknown comparison kind %v", kind)
	}
	return ncsp.LinearClauseLit(lit), nil
}

// --- Integer flattening ---

func (nz *normalizer) normalizeInt(e csp.IntExpr) (linearForm, error) {
	nz.ensureIntCache(e)
	if nz.intSeen[e] {
		return nz.intCache[e], nil
	}

	kind, intVal, v, terms, cond, then, els, a, b := nz.b.IntNode(e)

	var form linearForm
	var err error

	switch kind {
	case csp.IConst:
		form = constForm(intVal)
	case csp.IVar:
		form = varForm(nz.intVarOf[v])
	case csp.ILinear:
		parts := make([]linearForm, len(terms))
		for i, t := range terms {
			childForm, e2 := nz.normalizeInt(t.Expr)
			if e2 != nil {
				return linearForm{}, e2
			}
			parts[i] = childForm.scale(t.Coeff)
		}
		form = add(parts...)
	case csp.IIf:
		form, err = nz.flattenIf(cond, then, els)
	case csp.IMul:
		form, err = nz.flattenMul(a, b)
	default:
		err = fmt.Errorf("normalizer: unknown int expr kind %v", kind)
	}
	if err != nil {
		return linearForm{}, err
	}
	if _, _, berr := form.bounds(nz.domainOf); berr != nil {
		return linearForm{}, berr
	}

	nz.intCache[e] = form
	nz.intSeen[e] = true
	return form, nil
}

// flattenIf implements If(b, t, e) -> fresh IntVar z with
// b -> z=t and ¬b -> z=e (spec.md §4.4 point 2).
func (nz *normalizer) flattenIf(cond csp.BoolExpr, then, els csp.IntExpr) (linearForm, error) {
	condLit, err := nz.normalizeBool(cond)
	if err != nil {
		return linearForm{}, err
	}
	tf, err := nz.normalizeInt(then)
	if err != nil {
		return linearForm{}, err
	}
	ef, err := nz.normalizeInt(els)
	if err != nil {
		return linearForm{}, err
	}

	tLo, tHi, err := tf.bounds(nz.domainOf)
	if err != nil {
		return linearForm{}, err
	}
	eLo, eHi, err := ef.bounds(nz.domainOf)
	if err != nil {
		return linearForm{}, err
	}
	lo, hi := tLo, tHi
	if eLo < lo {
		lo = eLo
	}
	if eHi > hi {
		hi = eHi
	}
	d, derr := domain.NewFromIntervals([][2]int{{lo, hi}})
	if derr != nil {
		return linearForm{}, derr
	}
	z := nz.n.NewIntVar(d)
	zf := varForm(z)

	// ¬cond ∨ (z - t == 0)
	nz.n.AddConstraint(ncsp.Constraint{Lits: []ncsp.ClauseLit{
		negateLit(condLit),
		ncsp.LinearClauseLit(ncsp.LinearLit{Terms: sub(zf, tf).terms, Const: sub(zf, tf).constant, Op: ncsp.EQ}),
	}})
	// cond ∨ (z - e == 0)
	nz.n.AddConstraint(ncsp.Constraint{Lits: []ncsp.ClauseLit{
		condLit,
		ncsp.LinearClauseLit(ncsp.LinearLit{Terms: sub(zf, ef).terms, Const: sub(zf, ef).constant, Op: ncsp.EQ}),
	}})

	return zf, nil
}

// flattenMul implements Mul(a, b): a linear constraint if one factor has a
// singleton domain, else a residual ncsp.Mul extra constraint (spec.md
// §4.4 point 2, §9 Open Questions).
func (nz *normalizer) flattenMul(a, b csp.IntExpr) (linearForm, error) {
	af, err := nz.normalizeInt(a)
	if err != nil {
		return linearForm{}, err
	}
	bf, err := nz.normalizeInt(b)
	if err != nil {
		return linearForm{}, err
	}

	aLo, aHi, err := af.bounds(nz.domainOf)
	if err != nil {
		return linearForm{}, err
	}
	bLo, bHi, err := bf.bounds(nz.domainOf)
	if err != nil {
		return linearForm{}, err
	}

	if aLo == aHi { // a is constant
		return bf.scale(aLo), nil
	}
	if bLo == bHi {
		return af.scale(bLo), nil
	}

	// General case: residual Mul extra constraint over two auxiliary
	// IntVars equal to af and bf, plus a fresh product variable.
	av, err := nz.materialize(af, aLo, aHi)
	if err != nil {
		return linearForm{}, err
	}
	bv, err := nz.materialize(bf, bLo, bHi)
	if err != nil {
		return linearForm{}, err
	}

	lo, hi := productBounds(aLo, aHi, bLo, bHi)
	d, derr := domain.NewFromIntervals([][2]int{{lo, hi}})
	if derr != nil {
		return linearForm{}, derr
	}
	m := nz.n.NewIntVar(d)
	nz.n.AddExtra(ncsp.Mul{A: av, B: bv, M: m})
	return varForm(m), nil
}

func productBounds(aLo, aHi, bLo, bHi int) (int, int) {
	candidates := []int{aLo * bLo, aLo * bHi, aHi * bLo, aHi * bHi}
	lo, hi := candidates[0], candidates[0]
	for _, c := range candidates[1:] {
		if c < lo {
			lo = c
		}
		if c > hi {
			hi = c
		}
	}
	return lo, hi
}

// materialize returns an IntVar equal to the linear form f, introducing a
// fresh variable and an equality constraint unless f is already a bare
// variable reference.
func (nz *normalizer) materialize(f linearForm, lo, hi int) (ncsp.IntVar, error) {
	if len(f.terms) == 1 && f.terms[0].Coeff == 1 && f.constant == 0 {
		return f.terms[0].Var, nil
	}
	d, err := domain.NewFromIntervals([][2]int{{lo, hi}})
	if err != nil {
		return 0, err
	}
	v := nz.n.NewIntVar(d)
	vf := varForm(v)
	diff := sub(vf, f)
	nz.n.AddConstraint(ncsp.Constraint{Lits: []ncsp.ClauseLit{
		ncsp.LinearClauseLit(ncsp.LinearLit{Terms: diff.terms, Const: diff.constant, Op: ncsp.EQ}),
	}})
	return v, nil
}

// --- Statements ---

func (nz *normalizer) normalizeStmt(s csp.Stmt) error {
	switch st := s.(type) {
	case csp.StmtExpr:
		lit, err := nz.normalizeBool(st.E)
		if err != nil {
			return err
		}
		nz.n.AddConstraint(ncsp.Constraint{Lits: []ncsp.ClauseLit{lit}})
		return nil
	case csp.StmtAllDifferent:
		return nz.normalizeAllDifferent(st.Vars)
	case csp.StmtActiveVerticesConnected:
		lits, err := nz.normalizeBoolSlice(st.Active)
		if err != nil {
			return err
		}
		nz.n.AddExtra(ncsp.ActiveVerticesConnected{Active: lits, Edges: st.Edges})
		return nil
	case csp.StmtCircuit:
		vars, err := nz.intVarsOf(st.Succ)
		if err != nil {
			return err
		}
		nz.n.AddExtra(ncsp.Circuit{Succ: vars})
		return nil
	case csp.StmtExtensionSupports:
		vars, err := nz.intVarsOf(st.Vars)
		if err != nil {
			return err
		}
		rows := make([][]ncsp.SupportValue, len(st.Rows))
		for i, row := range st.Rows {
			r := make([]ncsp.SupportValue, len(row))
			for j, cell := range row {
				r[j] = ncsp.SupportValue{Wildcard: cell.Wildcard, Value: cell.Value}
			}
			rows[i] = r
		}
		nz.n.AddExtra(ncsp.ExtensionSupports{Vars: vars, Rows: rows})
		return nil
	case csp.StmtGraphDivision:
		lits, err := nz.normalizeBoolSlice(st.BorderLit)
		if err != nil {
			return err
		}
		nz.n.AddExtra(ncsp.GraphDivision{
			Sizes:     st.Sizes,
			Edges:     st.Edges,
			BorderLit: lits,
			Mode:      ncsp.GraphDivisionMode(st.Mode),
		})
		return nil
	case csp.StmtCustomConstraint:
		lits, err := nz.normalizeBoolSlice(st.Args)
		if err != nil {
			return err
		}
		factory := st.Factory
		nz.n.AddExtra(ncsp.CustomConstraint{
			Factory: func(numArgs int) ncsp.CustomPropagator { return factory(numArgs) },
			Args:    lits,
		})
		return nil
	default:
		return fmt.Errorf("normalizer: unknown statement type %T", s)
	}
}

func (nz *normalizer) normalizeBoolSlice(es []csp.BoolExpr) ([]ncsp.ClauseLit, error) {
	out := make([]ncsp.ClauseLit, len(es))
	for i, e := range es {
		l, err := nz.normalizeBool(e)
		if err != nil {
			return nil, err
		}
		out[i] = l
	}
	return out, nil
}

func (nz *normalizer) intVarsOf(es []csp.IntExpr) ([]ncsp.IntVar, error) {
	out := make([]ncsp.IntVar, len(es))
	for i, e := range es {
		f, err := nz.normalizeInt(e)
		if err != nil {
			return nil, err
		}
		lo, hi, berr := f.bounds(nz.domainOf)
		if berr != nil {
			return nil, berr
		}
		v, merr := nz.materialize(f, lo, hi)
		if merr != nil {
			return nil, merr
		}
		out[i] = v
	}
	return out, nil
}

// normalizeAllDifferent implements spec.md §4.4 point 4: pairwise
// disequalities at or below the configured threshold, else a decomposition over
// direct-encoded value-presence Booleans (one per (variable, value) pair
// in the domain union), with an at-most-one constraint per value.
func (nz *normalizer) normalizeAllDifferent(exprs []csp.IntExpr) error {
	vars, err := nz.intVarsOf(exprs)
	if err != nil {
		return err
	}
	if len(vars) < 2 {
		return nil
	}

	union := domain.Empty()
	for _, v := range vars {
		union = union.Union(nz.domainOf(v))
	}

	if union.Size() <= nz.cfg.AlldiffPairwiseThreshold {
		for i := 0; i < len(vars); i++ {
			for j := i + 1; j < len(vars); j++ {
				nz.n.AddConstraint(ncsp.Constraint{Lits: []ncsp.ClauseLit{
					ncsp.LinearClauseLit(ncsp.LinearLit{
						Terms: []ncsp.LinearTerm{{Coeff: 1, Var: vars[i]}, {Coeff: -1, Var: vars[j]}},
						Op:    ncsp.NE,
					}),
				}})
			}
		}
		return nil
	}

	values := union.Enumerate()
	presence := make(map[[2]int]ncsp.BoolVar) // (varIndex, value) -> presence bool
	for i, v := range vars {
		d := nz.domainOf(v)
		for _, val := range values {
			if !d.Contains(val) {
				continue
			}
			p := nz.n.NewBoolVar()
			presence[[2]int{i, val}] = p
			pl := ncsp.BoolLit(p, false)
			npl := ncsp.BoolLit(p, true)
			// p <-> (v == val)
			nz.n.AddConstraint(ncsp.Constraint{Lits: []ncsp.ClauseLit{
				npl,
				ncsp.LinearClauseLit(ncsp.LinearLit{Terms: []ncsp.LinearTerm{{Coeff: 1, Var: v}}, Const: -val, Op: ncsp.EQ}),
			}})
			nz.n.AddConstraint(ncsp.Constraint{Lits: []ncsp.ClauseLit{
				pl,
				ncsp.LinearClauseLit(ncsp.LinearLit{Terms: []ncsp.LinearTerm{{Coeff: 1, Var: v}}, Const: -val, Op: ncsp.NE}),
			}})
		}
	}
	// Exactly one value per variable: the order-encoded domain already
	// guarantees this (an IntVar always takes exactly one value), so only
	// the at-most-one-presence-per-value constraint is needed here.
	for _, val := range values {
		var bearers []ncsp.BoolVar
		for i := range vars {
			if p, ok := presence[[2]int{i, val}]; ok {
				bearers = append(bearers, p)
			}
		}
		for i := 0; i < len(bearers); i++ {
			for j := i + 1; j < len(bearers); j++ {
				nz.n.AddConstraint(ncsp.Constraint{Lits: []ncsp.ClauseLit{
					ncsp.BoolLit(bearers[i], true),
					ncsp.BoolLit(bearers[j], true),
				}})
			}
		}
	}
	return nil
}
