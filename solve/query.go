package solve

import (
	"fmt"

	"github.com/gridsolve/cspsat/internal/csp"
	"github.com/gridsolve/cspsat/internal/encoder"
	"github.com/gridsolve/cspsat/internal/ncsp"
	"github.com/gridsolve/cspsat/internal/sat"
)

// PartialAssignment is the result of IrrefutableFacts: the values every
// satisfying assignment agrees on for each answer-key variable (spec.md
// §6), keyed the same way Builder's own handles are.
type PartialAssignment struct {
	Bools map[csp.BoolVar]bool
	Ints  map[csp.IntVar]int

	// Unique reports whether the reference solution found while computing
	// these facts is the only satisfying assignment, restricted to the
	// answer-key variables (or, if none are marked, to every variable).
	Unique bool
}

// trySAT re-encodes n onto a fresh Solver, optionally asserts one extra
// clause built from that fresh encoding, and reports satisfiability.
func (b *Builder) trySAT(n *ncsp.NCSP, build func(*encoder.Encoding) []sat.Literal) (bool, error) {
	s := b.newSolver()
	enc, err := encoder.Encode(n, s)
	if err != nil {
		return false, fmt.Errorf("solve: %w", err)
	}
	if build != nil {
		if cl := build(enc); len(cl) > 0 {
			if err := s.AddClause(cl); err != nil {
				return false, fmt.Errorf("solve: %w", err)
			}
		}
	}
	return s.Solve() == sat.True, nil
}

// tryAssignment is trySAT's counterpart that also extracts a model.
func (b *Builder) tryAssignment(n *ncsp.NCSP, extraClauses [][]sat.Literal) (Assignment, bool, error) {
	s := b.newSolver()
	enc, ok, err := solveOnce(n, extraClauses, s)
	if err != nil {
		return Assignment{}, false, err
	}
	if !ok {
		return Assignment{}, false, nil
	}
	return extractAssignment(n, enc), true, nil
}

// disagreeLit returns the literal asserting "this Boolean differs from its
// value val in the reference assignment."
func disagreeLit(lit sat.Literal, val bool) sat.Literal {
	if val {
		return lit.Opposite()
	}
	return lit
}

// disagreeClause returns a clause that is satisfied exactly when some
// answer-key variable (or, if none is marked, some variable at all) differs
// from a. It is the building block both of the uniqueness check and of
// AnswerIter's per-solution blocking clause: adding it as a permanent
// clause forbids ever finding a again.
func disagreeClause(n *ncsp.NCSP, enc *encoder.Encoding, a Assignment) []sat.Literal {
	keyBools, keyInts := n.AnswerKeyBools, n.AnswerKeyInts
	if len(keyBools)+len(keyInts) == 0 {
		keyBools = make(map[ncsp.BoolVar]bool, n.NumBoolVars)
		for i := 0; i < n.NumBoolVars; i++ {
			keyBools[ncsp.BoolVar(i)] = true
		}
		keyInts = make(map[ncsp.IntVar]bool, len(n.IntDomains))
		for i := range n.IntDomains {
			keyInts[ncsp.IntVar(i)] = true
		}
	}

	var disjuncts []sat.Literal
	for v := range keyBools {
		disjuncts = append(disjuncts, disagreeLit(enc.BoolLits[v], a.Bools[v]))
	}
	for v := range keyInts {
		val := a.Ints[v]
		// "var != val" == (var < val) OR (var > val).
		disjuncts = append(disjuncts, enc.IntGE(v, val).Opposite(), enc.IntGE(v, val+1))
	}
	return disjuncts
}

// IrrefutableFacts reports, for every answer-key variable, the value every
// satisfying assignment agrees on (spec.md §4.5/§6): it finds one reference
// solution, then for each answer-key variable runs one further SAT call
// that forces that variable away from its reference value — an UNSAT
// result means no other value was ever possible, so the fact is recorded.
// A final SAT call checks whether the reference solution's answer-key
// combination is the only one (Unique).
func (b *Builder) IrrefutableFacts() (PartialAssignment, error) {
	n, err := b.normalize()
	if err != nil {
		return PartialAssignment{}, err
	}

	ref, ok, err := b.tryAssignment(n, nil)
	if err != nil {
		return PartialAssignment{}, err
	}
	if !ok {
		return PartialAssignment{}, ErrUnsatisfiable
	}

	result := PartialAssignment{
		Bools: make(map[csp.BoolVar]bool),
		Ints:  make(map[csp.IntVar]int),
	}

	for v := range n.AnswerKeyBools {
		val := ref.Bools[v]
		holds, err := b.trySAT(n, func(enc *encoder.Encoding) []sat.Literal {
			return []sat.Literal{disagreeLit(enc.BoolLits[v], val)}
		})
		if err != nil {
			return PartialAssignment{}, err
		}
		if !holds {
			result.Bools[csp.BoolVar(v)] = val
		}
	}

	for v := range n.AnswerKeyInts {
		val := ref.Ints[v]
		holds, err := b.trySAT(n, func(enc *encoder.Encoding) []sat.Literal {
			return []sat.Literal{enc.IntGE(v, val).Opposite(), enc.IntGE(v, val+1)}
		})
		if err != nil {
			return PartialAssignment{}, err
		}
		if !holds {
			result.Ints[csp.IntVar(v)] = val
		}
	}

	stillSAT, err := b.trySAT(n, func(enc *encoder.Encoding) []sat.Literal {
		return disagreeClause(n, enc, ref)
	})
	if err != nil {
		return PartialAssignment{}, err
	}
	result.Unique = !stillSAT

	return result, nil
}

// AnswerIter returns a pull-based iterator over every distinct answer-key
// combination the Builder's constraints admit (spec.md §6): every call
// re-encodes and re-solves with one additional blocking clause per
// previously returned assignment, each forbidding that assignment's
// answer-key combination (not the whole model, unless no answer-key
// variable was marked) from recurring. The returned function reports
// ok=false once every combination has been exhausted, and keeps doing so on
// further calls.
func (b *Builder) AnswerIter() func() (Assignment, bool) {
	n, err := b.normalize()
	if err != nil {
		return func() (Assignment, bool) { return Assignment{}, false }
	}

	var blocks [][]sat.Literal
	exhausted := false

	return func() (Assignment, bool) {
		if exhausted {
			return Assignment{}, false
		}
		s := b.newSolver()
		enc, ok, err := solveOnce(n, blocks, s)
		if err != nil || !ok {
			exhausted = true
			return Assignment{}, false
		}
		a := extractAssignment(n, enc)
		blocks = append(blocks, disagreeClause(n, enc, a))
		return a, true
	}
}
