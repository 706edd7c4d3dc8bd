// Package ncsp defines the normalized CSP (NCSP): the intermediate form the
// normalizer produces, whose constraints are disjunctions of linear
// literals plus a small set of extra global constraints (spec.md §3, §4.4).
package ncsp

import "github.com/gridsolve/cspsat/internal/domain"

// BoolVar is an NCSP Boolean variable index.
type BoolVar int

// IntVar is an NCSP integer variable index, always paired with a
// non-empty Domain in the owning NCSP's IntDomains table.
type IntVar int

// CompareOp is the comparator of a linear literal: Σ cᵢxᵢ + c₀ ⊳ 0.
type CompareOp int

const (
	GE CompareOp = iota // >= 0
	EQ                  // == 0
	NE                  // != 0
)

func (op CompareOp) String() string {
	switch op {
	case GE:
		return ">="
	case EQ:
		return "=="
	case NE:
		return "!="
	default:
		return "?"
	}
}

// LinearTerm is one coefficient*variable summand of a LinearLit.
type LinearTerm struct {
	Coeff int
	Var   IntVar
}

// LinearLit is a linear literal Σ cᵢxᵢ + Const ⊳ 0. A guard ("this term
// mixed with a Boolean literal whose truth is required", spec.md §3) is
// expressed by placing the guard's negation alongside the LinearLit in the
// same Constraint disjunction, not as a field here.
type LinearLit struct {
	Terms []LinearTerm
	Const int
	Op    CompareOp
}

// Eval reports whether the linear literal holds under the given integer
// assignment (ignoring any guard — callers check the guard separately).
func (l LinearLit) Eval(values []int) bool {
	sum := l.Const
	for _, t := range l.Terms {
		sum += t.Coeff * values[t.Var]
	}
	switch l.Op {
	case GE:
		return sum >= 0
	case EQ:
		return sum == 0
	case NE:
		return sum != 0
	default:
		return false
	}
}

// ClauseLit is one literal of a Constraint's disjunction: either a plain
// Boolean literal or a linear literal over integer variables.
type ClauseLit struct {
	IsLinear bool

	// Set when IsLinear is false.
	Var     BoolVar
	Negated bool

	// Set when IsLinear is true.
	Linear LinearLit
}

// BoolLit returns a positive or negative Boolean clause literal.
func BoolLit(v BoolVar, negated bool) ClauseLit {
	return ClauseLit{Var: v, Negated: negated}
}

// LinearClauseLit wraps a LinearLit as a clause literal.
func LinearClauseLit(l LinearLit) ClauseLit {
	return ClauseLit{IsLinear: true, Linear: l}
}

// Constraint is a disjunction of ClauseLits: at least one must hold.
type Constraint struct {
	Lits []ClauseLit
}

// ExtraConstraint is the sealed set of non-clausal global constraints
// retained after normalization (spec.md §3, §4.4 point 5).
type ExtraConstraint interface {
	isExtra()
}

// ActiveVerticesConnected mirrors csp.StmtActiveVerticesConnected with
// BoolVar literals in place of BoolExprs.
type ActiveVerticesConnected struct {
	Active []ClauseLit // one literal per vertex: true iff "active"
	Edges  [][2]int
}

// Circuit fixes that the successor variables describe one Hamiltonian
// cycle over nodes 0..len(Succ)-1.
type Circuit struct {
	Succ []IntVar
}

// Mul is the residual form of an unflattened IntExpr.Mul (spec.md §4.2,
// §4.4 point 2): M == A * B.
type Mul struct {
	A, B, M IntVar
}

// ExtensionSupports is a GAC table constraint: Vars[i] must take a value
// such that some row of Rows is simultaneously compatible with every
// variable's current domain (spec.md §4.3).
type ExtensionSupports struct {
	Vars []IntVar
	Rows [][]SupportValue
}

// SupportValue mirrors csp.SupportValue at the NCSP level.
type SupportValue struct {
	Wildcard bool
	Value    int
}

// GraphDivisionMode mirrors csp.GraphDivisionMode.
type GraphDivisionMode int

const (
	GraphDivisionPrimal GraphDivisionMode = iota
	GraphDivisionDual
)

// GraphDivision partitions vertices into connected regions whose sizes
// match Sizes, with one border-literal per edge.
type GraphDivision struct {
	Sizes     []int
	Edges     [][2]int
	BorderLit []ClauseLit
	Mode      GraphDivisionMode
}

// CustomConstraint binds a user-supplied propagator factory to its
// NCSP-level Boolean argument literals.
type CustomConstraint struct {
	Factory func(numArgs int) CustomPropagator
	Args    []ClauseLit
}

// CustomPropagator mirrors csp.CustomPropagator; declared again here (same
// method set) so this package does not import csp, keeping the dependency
// direction normalizer -> {csp, ncsp}, not ncsp -> csp.
type CustomPropagator interface {
	Initialize(args []bool, unknown []bool) (forced map[int]bool, ok bool)
	Propagate(args []bool, unknown []bool) (forced map[int]bool, ok bool)
	Explain(argIdx int) []int
	UndoToLevel(level int)
}

func (ActiveVerticesConnected) isExtra() {}
func (Circuit) isExtra()                 {}
func (Mul) isExtra()                     {}
func (ExtensionSupports) isExtra()       {}
func (GraphDivision) isExtra()           {}
func (CustomConstraint) isExtra()        {}

// NCSP is the normalized problem: plain variable tables, clausal
// constraints over linear/Boolean literals, and a residual set of extra
// global constraints (spec.md §3).
type NCSP struct {
	NumBoolVars int
	IntDomains  []domain.Domain

	Constraints []Constraint
	Extra       []ExtraConstraint

	// AnswerKeyBools/AnswerKeyInts carry over the CSP's answer-key
	// designations (spec.md §6) through normalization, keyed by NCSP
	// variable index.
	AnswerKeyBools map[BoolVar]bool
	AnswerKeyInts  map[IntVar]bool
}

// NewBoolVar allocates a fresh NCSP Boolean variable (used by the
// normalizer for Tseitin auxiliaries and flattening temporaries).
func (n *NCSP) NewBoolVar() BoolVar {
	v := BoolVar(n.NumBoolVars)
	n.NumBoolVars++
	return v
}

// NewIntVar allocates a fresh NCSP integer variable with domain d.
func (n *NCSP) NewIntVar(d domain.Domain) IntVar {
	v := IntVar(len(n.IntDomains))
	n.IntDomains = append(n.IntDomains, d)
	return v
}

// AddConstraint appends a clausal constraint.
func (n *NCSP) AddConstraint(c Constraint) {
	n.Constraints = append(n.Constraints, c)
}

// AddExtra appends an extra (non-clausal) global constraint.
func (n *NCSP) AddExtra(e ExtraConstraint) {
	n.Extra = append(n.Extra, e)
}
