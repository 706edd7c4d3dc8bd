package solve_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/gridsolve/cspsat/internal/csp"
	"github.com/gridsolve/cspsat/internal/domain"
	"github.com/gridsolve/cspsat/solve"
)

// The retrieval pack carries no third-party property-testing library (no
// gopter/rapid-shaped dependency turned up anywhere in it), so random CSP
// generation here falls back to the standard library's math/rand the way
// ordinary Go test helpers do, rather than importing one for this alone.

type randLit struct {
	v   int
	neg bool
}

type randClause []randLit

type randLinear struct {
	coeffs []int // coeffs[i] applies to int var i; 0 means "not in this constraint"
	op     string // EQ, NE, LE, LT, GE, GT
	rhs    int
}

type randCSP struct {
	nBool    int
	intMax   []int // intMax[i]: domain of int var i is [0, intMax[i]]
	clauses  []randClause
	linears  []randLinear
}

func genRandCSP(rng *rand.Rand) randCSP {
	c := randCSP{
		nBool:  rng.Intn(7), // 0..6
		intMax: make([]int, rng.Intn(4)), // 0..3 int vars
	}
	for i := range c.intMax {
		c.intMax[i] = 1 + rng.Intn(3) // domain [0, 1..3]
	}

	nClauses := rng.Intn(5)
	for i := 0; i < nClauses; i++ {
		if c.nBool == 0 {
			break
		}
		width := 1 + rng.Intn(c.nBool)
		seen := map[int]bool{}
		var cl randClause
		for len(cl) < width {
			v := rng.Intn(c.nBool)
			if seen[v] {
				continue
			}
			seen[v] = true
			cl = append(cl, randLit{v: v, neg: rng.Intn(2) == 0})
		}
		c.clauses = append(c.clauses, cl)
	}

	nLinear := rng.Intn(4)
	ops := []string{"EQ", "NE", "LE", "LT", "GE", "GT"}
	for i := 0; i < nLinear; i++ {
		if len(c.intMax) == 0 {
			break
		}
		coeffs := make([]int, len(c.intMax))
		any := false
		for j := range coeffs {
			if rng.Intn(2) == 0 {
				continue
			}
			coeffs[j] = rng.Intn(5) - 2 // -2..2
			if coeffs[j] != 0 {
				any = true
			}
		}
		if !any {
			coeffs[rng.Intn(len(coeffs))] = 1
		}
		maxAbsSum := 0
		for j, coeff := range coeffs {
			if coeff < 0 {
				maxAbsSum += -coeff * c.intMax[j]
			} else {
				maxAbsSum += coeff * c.intMax[j]
			}
		}
		rhs := rng.Intn(2*maxAbsSum+1) - maxAbsSum
		c.linears = append(c.linears, randLinear{coeffs: coeffs, op: ops[rng.Intn(len(ops))], rhs: rhs})
	}
	return c
}

func evalLinear(l randLinear, ints []int) bool {
	sum := 0
	for i, coeff := range l.coeffs {
		sum += coeff * ints[i]
	}
	switch l.op {
	case "EQ":
		return sum == l.rhs
	case "NE":
		return sum != l.rhs
	case "LE":
		return sum <= l.rhs
	case "LT":
		return sum < l.rhs
	case "GE":
		return sum >= l.rhs
	case "GT":
		return sum > l.rhs
	default:
		panic("unknown op " + l.op)
	}
}

func (c randCSP) satisfies(bools []bool, ints []int) bool {
	for _, cl := range c.clauses {
		ok := false
		for _, lit := range cl {
			v := bools[lit.v]
			if lit.neg {
				v = !v
			}
			if v {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	for _, l := range c.linears {
		if !evalLinear(l, ints) {
			return false
		}
	}
	return true
}

// bruteForce enumerates every assignment of c's variables and returns the
// satisfying ones, each as a (bools, ints) pair; modelKey turns a pair into
// a comparable string key.
func bruteForce(c randCSP) [][2]interface{} {
	var models [][2]interface{}
	nBoolCombos := 1 << c.nBool
	intCombos := 1
	for _, m := range c.intMax {
		intCombos *= m + 1
	}
	for bi := 0; bi < nBoolCombos; bi++ {
		bools := make([]bool, c.nBool)
		for i := range bools {
			bools[i] = (bi>>i)&1 == 1
		}
		for ii := 0; ii < intCombos; ii++ {
			ints := make([]int, len(c.intMax))
			rem := ii
			for i, m := range c.intMax {
				ints[i] = rem % (m + 1)
				rem /= m + 1
			}
			if c.satisfies(bools, ints) {
				boolsCopy := append([]bool(nil), bools...)
				intsCopy := append([]int(nil), ints...)
				models = append(models, [2]interface{}{boolsCopy, intsCopy})
			}
		}
	}
	return models
}

func modelKey(bools []bool, ints []int) string {
	return fmt.Sprintf("%v|%v", bools, ints)
}

// build translates c into a solve.Builder.
func (c randCSP) build() *solve.Builder {
	b := solve.New(solve.DefaultConfig)
	for i := 0; i < c.nBool; i++ {
		b.NewBoolVar()
	}
	intVars := make([]csp.IntVar, len(c.intMax))
	for i, m := range c.intMax {
		v, err := b.NewIntVar(domain.Range(0, m))
		if err != nil {
			panic(err)
		}
		intVars[i] = v
	}
	for _, cl := range c.clauses {
		lits := make([]csp.BoolExpr, len(cl))
		for i, lit := range cl {
			e := b.BoolVarExpr(csp.BoolVar(lit.v))
			if lit.neg {
				e = b.Not(e)
			}
			lits[i] = e
		}
		b.AddExpr(b.Or(lits...))
	}
	for _, l := range c.linears {
		var terms []csp.LinearTerm
		for i, coeff := range l.coeffs {
			if coeff == 0 {
				continue
			}
			terms = append(terms, csp.LinearTerm{Coeff: coeff, Expr: b.IntVarExpr(intVars[i])})
		}
		lhs := b.Linear(terms)
		rhs := b.IntConst(l.rhs)
		var e csp.BoolExpr
		switch l.op {
		case "EQ":
			e = b.IntEq(lhs, rhs)
		case "NE":
			e = b.IntNe(lhs, rhs)
		case "LE":
			e = b.IntLe(lhs, rhs)
		case "LT":
			e = b.IntLt(lhs, rhs)
		case "GE":
			e = b.IntGe(lhs, rhs)
		case "GT":
			e = b.IntGt(lhs, rhs)
		}
		b.AddExpr(e)
	}
	for i := 0; i < c.nBool; i++ {
		b.MarkAnswerKeyBool(csp.BoolVar(i))
	}
	for i := range intVars {
		b.MarkAnswerKeyInt(intVars[i])
	}
	return b
}

// TestRandomCSPProperty builds small random CSPs (<=6 Boolean, <=3
// small-domain integer variables), enumerates their models by brute force,
// and checks Solve, IrrefutableFacts, and AnswerIter against that ground
// truth.
func TestRandomCSPProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(20260731))
	const trials = 60

	for trial := 0; trial < trials; trial++ {
		c := genRandCSP(rng)
		models := bruteForce(c)

		t.Run(fmt.Sprintf("trial-%d", trial), func(t *testing.T) {
			b := c.build()

			assignment, ok, err := b.Solve()
			if err != nil {
				t.Fatalf("Solve: %v", err)
			}
			if ok != (len(models) > 0) {
				t.Fatalf("Solve returned ok=%v, brute force found %d models", ok, len(models))
			}
			if ok {
				if !c.satisfies(assignment.Bools, assignment.Ints) {
					t.Fatalf("Solve returned an assignment that does not satisfy the CSP: %+v", assignment)
				}
			}

			facts, err := b.IrrefutableFacts()
			if len(models) == 0 {
				if err != solve.ErrUnsatisfiable {
					t.Fatalf("IrrefutableFacts: got err=%v, want ErrUnsatisfiable", err)
				}
			} else {
				if err != nil {
					t.Fatalf("IrrefutableFacts: %v", err)
				}
				wantUnique := len(models) == 1
				if facts.Unique != wantUnique {
					t.Fatalf("IrrefutableFacts.Unique = %v, want %v (models=%d)", facts.Unique, wantUnique, len(models))
				}
				for i := 0; i < c.nBool; i++ {
					agree, val := allAgreeBool(models, i)
					got, has := facts.Bools[csp.BoolVar(i)]
					if agree != has || (has && got != val) {
						t.Fatalf("bool %d: facts=%v(%v), want agree=%v(%v)", i, has, got, agree, val)
					}
				}
				for i := range c.intMax {
					agree, val := allAgreeInt(models, i)
					got, has := facts.Ints[csp.IntVar(i)]
					if agree != has || (has && got != val) {
						t.Fatalf("int %d: facts=%v(%v), want agree=%v(%v)", i, has, got, agree, val)
					}
				}
			}

			want := map[string]bool{}
			for _, m := range models {
				want[modelKey(m[0].([]bool), m[1].([]int))] = true
			}
			got := map[string]bool{}
			next := c.build().AnswerIter()
			for i := 0; i < len(models)+1; i++ {
				a, ok := next()
				if !ok {
					break
				}
				if !c.satisfies(a.Bools, a.Ints) {
					t.Fatalf("AnswerIter returned an assignment that does not satisfy the CSP: %+v", a)
				}
				got[modelKey(a.Bools, a.Ints)] = true
			}
			if len(got) != len(want) {
				t.Fatalf("AnswerIter returned %d distinct assignments, want %d", len(got), len(want))
			}
			for k := range want {
				if !got[k] {
					t.Fatalf("AnswerIter missed model %s", k)
				}
			}
			if a, ok := next(); ok {
				t.Fatalf("AnswerIter did not exhaust after %d models, got extra %+v", len(models), a)
			}
		})
	}
}

func allAgreeBool(models [][2]interface{}, i int) (agree bool, val bool) {
	for n, m := range models {
		v := m[0].([]bool)[i]
		if n == 0 {
			val = v
			agree = true
			continue
		}
		if v != val {
			return false, false
		}
	}
	return agree, val
}

func allAgreeInt(models [][2]interface{}, i int) (agree bool, val int) {
	for n, m := range models {
		v := m[1].([]int)[i]
		if n == 0 {
			val = v
			agree = true
			continue
		}
		if v != val {
			return false, 0
		}
	}
	return agree, val
}
