// Package csp implements the high-level CSP builder/IR (spec.md §3, §6): a
// typed expression tree over Boolean and bounded-integer variables, plus the
// top-level statements (global constraints) that reference them. Expression
// nodes live in an arena and are referenced by index so that a handle
// reused in multiple places is recognized as the same subterm by identity —
// the normalizer's Tseitin cache keys directly on these indices (spec.md §9).
package csp

import (
	"errors"
	"fmt"

	"github.com/gridsolve/cspsat/internal/domain"
)

// ErrInvalidConstraint is returned when a statement or expression references
// a variable handle, grid index, or graph vertex that the builder never
// allocated (spec.md §7).
var ErrInvalidConstraint = errors.New("csp: invalid constraint")

// BoolVar is an opaque handle to a Boolean variable.
type BoolVar int

// IntVar is an opaque handle to an integer variable with a Domain.
type IntVar int

// BoolExpr is an opaque handle into the Boolean expression arena.
type BoolExpr int

// IntExpr is an opaque handle into the integer expression arena.
type IntExpr int

// BoolKind tags the shape of a boolExprNode.
type BoolKind int

const (
	BConst BoolKind = iota
	BVar
	BAnd
	BOr
	BNot
	BXor
	BIff
	BImp
	BIntEq
	BIntNe
	BIntLe
	BIntLt
	BIntGe
	BIntGt
)

// IntKind tags the shape of an intExprNode.
type IntKind int

const (
	IConst IntKind = iota
	IVar
	ILinear
	IIf
	IMul
)

// LinearTerm is one (coefficient, expression) summand of an ILinear
// node.
type LinearTerm struct {
	Coeff int
	Expr  IntExpr
}

type boolExprNode struct {
	kind     BoolKind
	boolVal  bool
	v        BoolVar
	children []BoolExpr // And/Or
	a, b     BoolExpr   // Not uses a only; Xor/Iff/Imp use both
	ia, ib   IntExpr    // IntEq/Ne/Le/Lt/Ge/Gt
}

type intExprNode struct {
	kind    IntKind
	intVal  int
	v       IntVar
	terms   []LinearTerm // Linear
	cond    BoolExpr     // If
	then    IntExpr      // If
	els     IntExpr      // If
	a, b    IntExpr      // Mul
}

// Builder accumulates variables, expressions, and statements for a single
// CSP instance. It owns the expression arena and variable tables until the
// normalizer consumes it (spec.md §3, Ownership & lifetime).
type Builder struct {
	boolVars  int
	intVars   []domain.Domain
	boolArena []boolExprNode
	intArena  []intExprNode

	exprs       []BoolExpr
	statements  []Stmt
	answerBools map[BoolVar]bool
	answerInts  map[IntVar]bool
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		answerBools: map[BoolVar]bool{},
		answerInts:  map[IntVar]bool{},
	}
}

// NewBoolVar allocates a fresh Boolean variable.
func (b *Builder) NewBoolVar() BoolVar {
	v := BoolVar(b.boolVars)
	b.boolVars++
	return v
}

// NewIntVar allocates a fresh integer variable ranging over d. It returns
// ErrEmptyDomain (from package domain) if d has no values.
func (b *Builder) NewIntVar(d domain.Domain) (IntVar, error) {
	if d.IsEmpty() {
		return 0, domain.ErrEmptyDomain
	}
	v := IntVar(len(b.intVars))
	b.intVars = append(b.intVars, d)
	return v, nil
}

// NumBoolVars returns the number of allocated Boolean variables.
func (b *Builder) NumBoolVars() int { return b.boolVars }

// NumIntVars returns the number of allocated integer variables.
func (b *Builder) NumIntVars() int { return len(b.intVars) }

// IntVarDomain returns the domain of v.
func (b *Builder) IntVarDomain(v IntVar) domain.Domain {
	return b.intVars[v]
}

// validBoolVar/validIntVar guard against handles from another builder or
// out-of-range indices, surfaced as ErrInvalidConstraint.
func (b *Builder) validBoolVar(v BoolVar) bool { return v >= 0 && int(v) < b.boolVars }
func (b *Builder) validIntVar(v IntVar) bool   { return v >= 0 && int(v) < len(b.intVars) }

func (b *Builder) pushBool(n boolExprNode) BoolExpr {
	b.boolArena = append(b.boolArena, n)
	return BoolExpr(len(b.boolArena) - 1)
}

func (b *Builder) pushInt(n intExprNode) IntExpr {
	b.intArena = append(b.intArena, n)
	return IntExpr(len(b.intArena) - 1)
}

// BoolNode returns the node a BoolExpr handle refers to. It is used by the
// normalizer to walk the expression DAG.
func (b *Builder) BoolNode(e BoolExpr) (kind BoolKind, boolVal bool, v BoolVar, children []BoolExpr, a, b2 BoolExpr, ia, ib IntExpr) {
	n := b.boolArena[e]
	return n.kind, n.boolVal, n.v, n.children, n.a, n.b, n.ia, n.ib
}

// IntNode returns the node an IntExpr handle refers to.
func (b *Builder) IntNode(e IntExpr) (kind IntKind, intVal int, v IntVar, terms []LinearTerm, cond BoolExpr, then, els IntExpr, a, b2 IntExpr) {
	n := b.intArena[e]
	return n.kind, n.intVal, n.v, n.terms, n.cond, n.then, n.els, n.a, n.b
}

// --- BoolExpr constructors ---

func (b *Builder) BoolConst(v bool) BoolExpr {
	return b.pushBool(boolExprNode{kind: BConst, boolVal: v})
}

func (b *Builder) BoolVarExpr(v BoolVar) BoolExpr {
	return b.pushBool(boolExprNode{kind: BVar, v: v})
}

func (b *Builder) And(es ...BoolExpr) BoolExpr {
	return b.pushBool(boolExprNode{kind: BAnd, children: append([]BoolExpr(nil), es...)})
}

func (b *Builder) Or(es ...BoolExpr) BoolExpr {
	return b.pushBool(boolExprNode{kind: BOr, children: append([]BoolExpr(nil), es...)})
}

func (b *Builder) Not(e BoolExpr) BoolExpr {
	return b.pushBool(boolExprNode{kind: BNot, a: e})
}

func (b *Builder) Xor(a, c BoolExpr) BoolExpr {
	return b.pushBool(boolExprNode{kind: BXor, a: a, b: c})
}

func (b *Builder) Iff(a, c BoolExpr) BoolExpr {
	return b.pushBool(boolExprNode{kind: BIff, a: a, b: c})
}

func (b *Builder) Imp(a, c BoolExpr) BoolExpr {
	return b.pushBool(boolExprNode{kind: BImp, a: a, b: c})
}

func (b *Builder) IntEq(x, y IntExpr) BoolExpr { return b.pushBool(boolExprNode{kind: BIntEq, ia: x, ib: y}) }
func (b *Builder) IntNe(x, y IntExpr) BoolExpr { return b.pushBool(boolExprNode{kind: BIntNe, ia: x, ib: y}) }
func (b *Builder) IntLe(x, y IntExpr) BoolExpr { return b.pushBool(boolExprNode{kind: BIntLe, ia: x, ib: y}) }
func (b *Builder) IntLt(x, y IntExpr) BoolExpr { return b.pushBool(boolExprNode{kind: BIntLt, ia: x, ib: y}) }
func (b *Builder) IntGe(x, y IntExpr) BoolExpr { return b.pushBool(boolExprNode{kind: BIntGe, ia: x, ib: y}) }
func (b *Builder) IntGt(x, y IntExpr) BoolExpr { return b.pushBool(boolExprNode{kind: BIntGt, ia: x, ib: y}) }

// --- IntExpr constructors ---

func (b *Builder) IntConst(v int) IntExpr {
	return b.pushInt(intExprNode{kind: IConst, intVal: v})
}

func (b *Builder) IntVarExpr(v IntVar) IntExpr {
	return b.pushInt(intExprNode{kind: IVar, v: v})
}

func (b *Builder) Linear(terms []LinearTerm) IntExpr {
	return b.pushInt(intExprNode{kind: ILinear, terms: append([]LinearTerm(nil), terms...)})
}

func (b *Builder) If(cond BoolExpr, then, els IntExpr) IntExpr {
	return b.pushInt(intExprNode{kind: IIf, cond: cond, then: then, els: els})
}

func (b *Builder) Mul(x, y IntExpr) IntExpr {
	return b.pushInt(intExprNode{kind: IMul, a: x, b: y})
}

// --- Statements ---

// Stmt is a top-level constraint (spec.md §3). It is a sealed interface
// implemented only by the types in this package.
type Stmt interface {
	isStmt()
}

type StmtExpr struct{ E BoolExpr }

type StmtAllDifferent struct{ Vars []IntExpr }

type StmtActiveVerticesConnected struct {
	Active []BoolExpr
	Edges  [][2]int
}

type StmtCircuit struct{ Succ []IntExpr }

// SupportValue is one cell of an ExtensionSupports row: either a fixed
// value or a wildcard (matches any value of the corresponding variable).
type SupportValue struct {
	Wildcard bool
	Value    int
}

type StmtExtensionSupports struct {
	Vars []IntExpr
	Rows [][]SupportValue
}

// GraphDivisionMode selects between the primal (vertex-membership) and dual
// (border-edge) formulation of the same region partition (SPEC_FULL.md §6.1).
type GraphDivisionMode int

const (
	GraphDivisionPrimal GraphDivisionMode = iota
	GraphDivisionDual
)

type StmtGraphDivision struct {
	Sizes     []int
	Edges     [][2]int
	BorderLit []BoolExpr // one per edge: true iff that edge is a region border
	Mode      GraphDivisionMode
}

// CustomPropagator is the interface a user-supplied global constraint
// implements (spec.md §6). It mirrors sat.Propagator but is expressed over
// the statement's argument BoolExprs rather than raw SAT literals; the
// normalizer/encoder bridge between the two (internal/propagator/custom.go).
type CustomPropagator interface {
	Initialize(args []bool, unknown []bool) (forced map[int]bool, ok bool)
	Propagate(args []bool, unknown []bool) (forced map[int]bool, ok bool)
	Explain(argIdx int) []int
	UndoToLevel(level int)
}

// CustomPropagatorFactory builds a fresh CustomPropagator instance bound to
// a particular statement's arguments.
type CustomPropagatorFactory func(numArgs int) CustomPropagator

type StmtCustomConstraint struct {
	Factory CustomPropagatorFactory
	Args    []BoolExpr
}

func (StmtExpr) isStmt()                    {}
func (StmtAllDifferent) isStmt()            {}
func (StmtActiveVerticesConnected) isStmt() {}
func (StmtCircuit) isStmt()                 {}
func (StmtExtensionSupports) isStmt()       {}
func (StmtGraphDivision) isStmt()           {}
func (StmtCustomConstraint) isStmt()        {}

// AddExpr adds a top-level Boolean constraint equivalent to AddConstraint(StmtExpr{e}).
func (b *Builder) AddExpr(e BoolExpr) {
	b.statements = append(b.statements, StmtExpr{E: e})
}

// AddConstraint registers a top-level statement.
func (b *Builder) AddConstraint(s Stmt) {
	b.statements = append(b.statements, s)
}

// Statements returns the statements added so far, in insertion order.
func (b *Builder) Statements() []Stmt {
	return b.statements
}

// MarkAnswerKeyBool designates v as an answer-key variable: its value is
// exposed to the caller and is the subject of irrefutable-fact / uniqueness
// analysis (spec.md §6).
func (b *Builder) MarkAnswerKeyBool(v BoolVar) {
	b.answerBools[v] = true
}

// MarkAnswerKeyInt designates v as an answer-key variable.
func (b *Builder) MarkAnswerKeyInt(v IntVar) {
	b.answerInts[v] = true
}

// AnswerKeyBoolVars returns the set of Boolean answer-key variables.
func (b *Builder) AnswerKeyBoolVars() map[BoolVar]bool { return b.answerBools }

// AnswerKeyIntVars returns the set of integer answer-key variables.
func (b *Builder) AnswerKeyIntVars() map[IntVar]bool { return b.answerInts }

// Validate checks that every statement references only allocated variables
// and in-bounds graph/grid indices, returning ErrInvalidConstraint wrapped
// with context otherwise (spec.md §7).
func (b *Builder) Validate() error {
	for i, s := range b.statements {
		if err := b.validateStmt(s); err != nil {
			return fmt.Errorf("statement %d: %w", i, err)
		}
	}
	return nil
}

func (b *Builder) validateStmt(s Stmt) error {
	switch st := s.(type) {
	case StmtExpr:
		return b.validateBoolExpr(st.E)
	case StmtAllDifferent:
		for _, e := range st.Vars {
			if err := b.validateIntExpr(e); err != nil {
				return err
			}
		}
	case StmtActiveVerticesConnected:
		for _, e := range st.Active {
			if err := b.validateBoolExpr(e); err != nil {
				return err
			}
		}
		return validateEdges(len(st.Active), st.Edges)
	case StmtCircuit:
		for _, e := range st.Succ {
			if err := b.validateIntExpr(e); err != nil {
				return err
			}
		}
	case StmtExtensionSupports:
		for _, e := range st.Vars {
			if err := b.validateIntExpr(e); err != nil {
				return err
			}
		}
		for _, row := range st.Rows {
			if len(row) != len(st.Vars) {
				return fmt.Errorf("%w: support row width %d != %d variables", ErrInvalidConstraint, len(row), len(st.Vars))
			}
		}
	case StmtGraphDivision:
		n := len(st.BorderLit)
		if n != len(st.Edges) {
			return fmt.Errorf("%w: %d border literals for %d edges", ErrInvalidConstraint, n, len(st.Edges))
		}
		for _, e := range st.BorderLit {
			if err := b.validateBoolExpr(e); err != nil {
				return err
			}
		}
		return validateEdges(maxVertex(st.Edges)+1, st.Edges)
	case StmtCustomConstraint:
		for _, e := range st.Args {
			if err := b.validateBoolExpr(e); err != nil {
				return err
			}
		}
	}
	return nil
}

func maxVertex(edges [][2]int) int {
	m := -1
	for _, e := range edges {
		if e[0] > m {
			m = e[0]
		}
		if e[1] > m {
			m = e[1]
		}
	}
	return m
}

func validateEdges(numVertices int, edges [][2]int) error {
	for _, e := range edges {
		if e[0] < 0 || e[0] >= numVertices || e[1] < 0 || e[1] >= numVertices {
			return fmt.Errorf("%w: edge (%d, %d) out of range for %d vertices", ErrInvalidConstraint, e[0], e[1], numVertices)
		}
	}
	return nil
}

func (b *Builder) validateBoolExpr(e BoolExpr) error {
	if e < 0 || int(e) >= len(b.boolArena) {
		return fmt.Errorf("%w: bool expr handle %d out of range", ErrInvalidConstraint, e)
	}
	n := b.boolArena[e]
	switch n.kind {
	case BVar:
		if !b.validBoolVar(n.v) {
			return fmt.Errorf("%w: bool var %d not allocated", ErrInvalidConstraint, n.v)
		}
	case BAnd, BOr:
		for _, c := range n.children {
			if err := b.validateBoolExpr(c); err != nil {
				return err
			}
		}
	case BNot:
		return b.validateBoolExpr(n.a)
	case BXor, BIff, BImp:
		if err := b.validateBoolExpr(n.a); err != nil {
			return err
		}
		return b.validateBoolExpr(n.b)
	case BIntEq, BIntNe, BIntLe, BIntLt, BIntGe, BIntGt:
		if err := b.validateIntExpr(n.ia); err != nil {
			return err
		}
		return b.validateIntExpr(n.ib)
	}
	return nil
}

func (b *Builder) validateIntExpr(e IntExpr) error {
	if e < 0 || int(e) >= len(b.intArena) {
		return fmt.Errorf("%w: int expr handle %d out of range", ErrInvalidConstraint, e)
	}
	n := b.intArena[e]
	switch n.kind {
	case IVar:
		if !b.validIntVar(n.v) {
			return fmt.Errorf("%w: int var %d not allocated", ErrInvalidConstraint, n.v)
		}
	case ILinear:
		for _, t := range n.terms {
			if err := b.validateIntExpr(t.Expr); err != nil {
				return err
			}
		}
	case IIf:
		if err := b.validateBoolExpr(n.cond); err != nil {
			return err
		}
		if err := b.validateIntExpr(n.then); err != nil {
			return err
		}
		return b.validateIntExpr(n.els)
	case IMul:
		if err := b.validateIntExpr(n.a); err != nil {
			return err
		}
		return b.validateIntExpr(n.b)
	}
	return nil
}
