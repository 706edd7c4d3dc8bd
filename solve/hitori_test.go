package solve_test

import (
	"testing"

	"github.com/gridsolve/cspsat/internal/csp"
	"github.com/gridsolve/cspsat/solve"
)

// TestHitori6x5 reproduces the fixture from
// original_source/cspuz_rs_puzzles/src/puzzles/hitori.rs
// (test_hitori_problem).
func TestHitori6x5(t *testing.T) {
	clues := [][]int{
		{1, 1, 1, 0, 4, 5},
		{0, 2, 0, 0, 4, 5},
		{3, 0, 3, 0, 1, 0},
		{0, 2, 0, 0, 0, 0},
		{3, 0, 3, 0, 1, 0},
	}
	h, w := len(clues), len(clues[0])

	b := solve.New(solve.DefaultConfig)
	isBlack := make([][]csp.BoolVar, h)
	for y := range isBlack {
		isBlack[y] = make([]csp.BoolVar, w)
		for x := range isBlack[y] {
			isBlack[y][x] = b.NewBoolVar()
			b.MarkAnswerKeyBool(isBlack[y][x])
		}
	}

	// No two horizontally or vertically adjacent black cells.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x+1 < w {
				b.AddExpr(b.Not(b.And(b.BoolVarExpr(isBlack[y][x]), b.BoolVarExpr(isBlack[y][x+1]))))
			}
			if y+1 < h {
				b.AddExpr(b.Not(b.And(b.BoolVarExpr(isBlack[y][x]), b.BoolVarExpr(isBlack[y+1][x]))))
			}
		}
	}

	// Equal, positive clues sharing a row or column force at least one black.
	for y := 0; y < h; y++ {
		for x0 := 0; x0 < w; x0++ {
			for x1 := 0; x1 < x0; x1++ {
				if clues[y][x0] == clues[y][x1] && clues[y][x0] > 0 {
					b.AddExpr(b.Or(b.BoolVarExpr(isBlack[y][x0]), b.BoolVarExpr(isBlack[y][x1])))
				}
			}
		}
	}
	for x := 0; x < w; x++ {
		for y0 := 0; y0 < h; y0++ {
			for y1 := 0; y1 < y0; y1++ {
				if clues[y0][x] == clues[y1][x] && clues[y0][x] > 0 {
					b.AddExpr(b.Or(b.BoolVarExpr(isBlack[y0][x]), b.BoolVarExpr(isBlack[y1][x])))
				}
			}
		}
	}

	// White cells (not is_black) stay in one connected region.
	active := make([]csp.BoolExpr, h*w)
	var edges [][2]int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			active[y*w+x] = b.Not(b.BoolVarExpr(isBlack[y][x]))
			if x+1 < w {
				edges = append(edges, [2]int{y*w + x, y*w + x + 1})
			}
			if y+1 < h {
				edges = append(edges, [2]int{y*w + x, (y+1)*w + x})
			}
		}
	}
	b.AddConstraint(csp.StmtActiveVerticesConnected{Active: active, Edges: edges})

	want := [][]int{
		{1, 0, 1, 0, 0, 1},
		{0, 0, 0, 0, 1, 0},
		{0, 0, 1, 0, 0, 0},
		{0, 1, 0, 0, 0, 0},
		{1, 0, 0, 0, 1, 0},
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
			if got, wantBit := facts.Bools[isBlack[y][x]], want[y][x] != 0; got != wantBit {
				t.Errorf("is_black[%d][%d] = %v, want %v", y, x, got, wantBit)
			}
		}
	}
}
