package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gridsolve/cspsat/internal/csp"
	"github.com/gridsolve/cspsat/internal/domain"
	"github.com/gridsolve/cspsat/solve"
)

// cspFile is the tiny JSON CSP description the -csp flag reads: just
// enough of the Builder's surface (Boolean clauses, linear comparisons,
// AllDifferent groups, answer-key marks) to drive the full
// builder -> normalizer -> encoder -> propagator -> solve pipeline
// end-to-end from the command line, not a serialization of the full
// expression arena.
type cspFile struct {
	BoolVars       int             `json:"bool_vars"`
	IntVars        []cspIntVarSpec `json:"int_vars"`
	Clauses        [][]cspLit      `json:"clauses"`
	Linear         []cspLinear     `json:"linear"`
	AllDifferent   [][]int         `json:"all_different"`
	AnswerKeyBools []int           `json:"answer_key_bools"`
	AnswerKeyInts  []int           `json:"answer_key_ints"`
}

type cspIntVarSpec struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// cspLit is one literal of a top-level disjunction over Boolean variables.
type cspLit struct {
	Var     int  `json:"var"`
	Negated bool `json:"negated"`
}

// cspLinear is a single comparison Σ Terms ⊳ RHS, added as a top-level
// constraint.
type cspLinear struct {
	Terms []cspTerm `json:"terms"`
	RHS   int       `json:"rhs"`
	Op    string    `json:"op"` // one of EQ, NE, LE, LT, GE, GT
}

type cspTerm struct {
	Coeff int `json:"coeff"`
	Var   int `json:"var"`
}

// buildCSP translates f into a solve.Builder under construction. It is
// deliberately a thin, literal translation: the JSON shape mirrors the
// Builder calls it triggers one-for-one.
func buildCSP(f *cspFile) (*solve.Builder, error) {
	b := solve.New(solve.DefaultConfig)

	for i := 0; i < f.BoolVars; i++ {
		b.NewBoolVar()
	}

	intVars := make([]csp.IntVar, len(f.IntVars))
	for i, spec := range f.IntVars {
		d, err := domain.NewFromIntervals([][2]int{{spec.Min, spec.Max}})
		if err != nil {
			return nil, fmt.Errorf("int var %d: %w", i, err)
		}
		v, err := b.NewIntVar(d)
		if err != nil {
			return nil, fmt.Errorf("int var %d: %w", i, err)
		}
		intVars[i] = v
	}

	for i, cl := range f.Clauses {
		lits := make([]csp.BoolExpr, len(cl))
		for j, l := range cl {
			if l.Var < 0 || l.Var >= f.BoolVars {
				return nil, fmt.Errorf("clause %d: bool var %d out of range", i, l.Var)
			}
			e := b.BoolVarExpr(csp.BoolVar(l.Var))
			if l.Negated {
				e = b.Not(e)
			}
			lits[j] = e
		}
		b.AddExpr(b.Or(lits...))
	}

	for i, lin := range f.Linear {
		e, err := buildLinearExpr(b, intVars, lin)
		if err != nil {
			return nil, fmt.Errorf("linear %d: %w", i, err)
		}
		b.AddExpr(e)
	}

	for i, group := range f.AllDifferent {
		exprs := make([]csp.IntExpr, len(group))
		for j, idx := range group {
			if idx < 0 || idx >= len(intVars) {
				return nil, fmt.Errorf("all_different %d: int var %d out of range", i, idx)
			}
			exprs[j] = b.IntVarExpr(intVars[idx])
		}
		b.AddConstraint(csp.StmtAllDifferent{Vars: exprs})
	}

	for _, idx := range f.AnswerKeyBools {
		if idx < 0 || idx >= f.BoolVars {
			return nil, fmt.Errorf("answer_key_bools: bool var %d out of range", idx)
		}
		b.MarkAnswerKeyBool(csp.BoolVar(idx))
	}
	for _, idx := range f.AnswerKeyInts {
		if idx < 0 || idx >= len(intVars) {
			return nil, fmt.Errorf("answer_key_ints: int var %d out of range", idx)
		}
		b.MarkAnswerKeyInt(intVars[idx])
	}

	return b, nil
}

func buildLinearExpr(b *solve.Builder, intVars []csp.IntVar, lin cspLinear) (csp.BoolExpr, error) {
	terms := make([]csp.LinearTerm, len(lin.Terms))
	for j, t := range lin.Terms {
		if t.Var < 0 || t.Var >= len(intVars) {
			return 0, fmt.Errorf("int var %d out of range", t.Var)
		}
		terms[j] = csp.LinearTerm{Coeff: t.Coeff, Expr: b.IntVarExpr(intVars[t.Var])}
	}
	lhs := b.Linear(terms)
	rhs := b.IntConst(lin.RHS)
	switch lin.Op {
	case "EQ":
		return b.IntEq(lhs, rhs), nil
	case "NE":
		return b.IntNe(lhs, rhs), nil
	case "LE":
		return b.IntLe(lhs, rhs), nil
	case "LT":
		return b.IntLt(lhs, rhs), nil
	case "GE":
		return b.IntGe(lhs, rhs), nil
	case "GT":
		return b.IntGt(lhs, rhs), nil
	default:
		return 0, fmt.Errorf("unknown comparison op %q", lin.Op)
	}
}

// runCSP is the -csp entry point: parse, build, solve, report.
func runCSP(cfg *config) error {
	data, err := os.ReadFile(cfg.instanceFile)
	if err != nil {
		return fmt.Errorf("could not read instance: %s", err)
	}
	var f cspFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("could not parse CSP JSON: %s", err)
	}
	b, err := buildCSP(&f)
	if err != nil {
		return fmt.Errorf("could not build CSP: %s", err)
	}

	fmt.Printf("c bool vars:  %d\n", f.BoolVars)
	fmt.Printf("c int vars:   %d\n", len(f.IntVars))

	t := time.Now()
	a, ok, err := b.Solve()
	elapsed := time.Since(t)
	if err != nil {
		return fmt.Errorf("solve error: %s", err)
	}

	fmt.Printf("c time (sec): %f\n", elapsed.Seconds())
	if !ok {
		fmt.Println("s UNSATISFIABLE")
		return nil
	}
	fmt.Println("s SATISFIABLE")
	fmt.Printf("v bools: %v\n", a.Bools)
	fmt.Printf("v ints:  %v\n", a.Ints)
	return nil
}
