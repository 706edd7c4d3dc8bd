package solve_test

import (
	"testing"

	"github.com/gridsolve/cspsat/internal/csp"
	"github.com/gridsolve/cspsat/internal/domain"
	"github.com/gridsolve/cspsat/solve"
)

// addLineUniqueness requires that no two cells of line share a nonzero
// value, the way japanese_sums.rs bounds each of 1..k to at most one
// occurrence per line (and, as a consequence, at least len(line)-k zeros).
func addLineUniqueness(b *solve.Builder, line []csp.IntVar) {
	for i := 0; i < len(line); i++ {
		for j := i + 1; j < len(line); j++ {
			a, c := b.IntVarExpr(line[i]), b.IntVarExpr(line[j])
			b.AddExpr(b.Or(b.IntNe(a, c), b.IntEq(a, b.IntConst(0))))
		}
	}
}

// TestJapaneseSums6x5 reproduces the fixture from
// original_source/cspuz_rs_puzzles/src/puzzles/japanese_sums.rs
// (test_japanese_sums_problem).
func TestJapaneseSums6x5(t *testing.T) {
	const k = 4

	clueVertical := [][]int{
		{-1, -1, -1},
		{10},
		{-1, 5},
		nil,
		{1, -1},
		{4, -1},
	}
	clueHorizontal := [][]int{
		{2, 5, 3},
		{-1, 4, -1},
		{-1, 4},
		nil,
		{8, -1},
	}
	h, w := len(clueHorizontal), len(clueVertical)

	b := solve.New(solve.DefaultConfig)
	cells := make([][]csp.IntVar, h)
	for y := range cells {
		cells[y] = make([]csp.IntVar, w)
		for x := range cells[y] {
			v, err := b.NewIntVar(domain.Range(0, k))
			if err != nil {
				t.Fatalf("NewIntVar: %v", err)
			}
			cells[y][x] = v
			b.MarkAnswerKeyInt(v)
		}
	}

	for y := 0; y < h; y++ {
		row := cells[y]
		addLineUniqueness(b, row)
		if clueHorizontal[y] != nil {
			patterns := sumsRowPatterns(w, k, clueHorizontal[y])
			b.AddConstraint(csp.StmtExtensionSupports{
				Vars: intVarExprs(b, row),
				Rows: intSupportRows(patterns),
			})
		}
	}

	for x := 0; x < w; x++ {
		col := make([]csp.IntVar, h)
		for y := 0; y < h; y++ {
			col[y] = cells[y][x]
		}
		addLineUniqueness(b, col)
		if clueVertical[x] != nil {
			patterns := sumsRowPatterns(h, k, clueVertical[x])
			b.AddConstraint(csp.StmtExtensionSupports{
				Vars: intVarExprs(b, col),
				Rows: intSupportRows(patterns),
			})
		}
	}

	want := [][]int{
		{2, 0, 4, 1, 0, 3},
		{0, 3, 0, 4, 0, 1},
		{4, 2, 0, 3, 1, 0},
		{0, 1, 2, 0, 0, 4},
		{1, 4, 3, 0, 2, 0},
	}

	facts, err := b.IrrefutableFacts()
	if err != nil {
		t.Fatalf("IrrefutableFacts: %v", err)
	}
	if !facts.Unique {
		t.Fatalf("expected a unique solution")
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if got, want := facts.Ints[cells[y][x]], want[y][x]; got != want {
				t.Errorf("cell[%d][%d] = %d, want %d", y, x, got, want)
			}
		}
	}
}
