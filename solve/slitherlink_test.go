package solve_test

import (
	"testing"

	"github.com/gridsolve/cspsat/internal/csp"
	"github.com/gridsolve/cspsat/solve"
)

// slitherlinkEdges holds the two edge-bool grids of an h-by-w slitherlink
// board: horizontal[y][x] is the edge between grid vertices (y,x) and
// (y,x+1); vertical[y][x] is the edge between (y,x) and (y+1,x).
type slitherlinkEdges struct {
	h, w       int
	horizontal [][]csp.BoolVar // (h+1) x w
	vertical   [][]csp.BoolVar // h x (w+1)
}

func newSlitherlinkEdges(b *solve.Builder, h, w int) *slitherlinkEdges {
	e := &slitherlinkEdges{h: h, w: w}
	e.horizontal = make([][]csp.BoolVar, h+1)
	for y := range e.horizontal {
		e.horizontal[y] = make([]csp.BoolVar, w)
		for x := range e.horizontal[y] {
			e.horizontal[y][x] = b.NewBoolVar()
		}
	}
	e.vertical = make([][]csp.BoolVar, h)
	for y := range e.vertical {
		e.vertical[y] = make([]csp.BoolVar, w+1)
		for x := range e.vertical[y] {
			e.vertical[y][x] = b.NewBoolVar()
		}
	}
	return e
}

// at returns the edges touching grid vertex (y, x), in no particular order.
func (e *slitherlinkEdges) at(y, x int) []csp.BoolVar {
	var out []csp.BoolVar
	if x > 0 {
		out = append(out, e.horizontal[y][x-1])
	}
	if x < e.w {
		out = append(out, e.horizontal[y][x])
	}
	if y > 0 {
		out = append(out, e.vertical[y-1][x])
	}
	if y < e.h {
		out = append(out, e.vertical[y][x])
	}
	return out
}

// cellNeighbors returns the four edges bounding cell (y, x).
func (e *slitherlinkEdges) cellNeighbors(y, x int) []csp.BoolVar {
	return []csp.BoolVar{
		e.horizontal[y][x],
		e.horizontal[y+1][x],
		e.vertical[y][x],
		e.vertical[y][x+1],
	}
}

func (e *slitherlinkEdges) all() []csp.BoolVar {
	var out []csp.BoolVar
	for _, row := range e.horizontal {
		out = append(out, row...)
	}
	for _, row := range e.vertical {
		out = append(out, row...)
	}
	return out
}

// boolVarSum returns the count of true variables among vs as an IntExpr.
func boolVarSum(b *solve.Builder, vs []csp.BoolVar) csp.IntExpr {
	terms := make([]csp.LinearTerm, len(vs))
	for i, v := range vs {
		terms[i] = csp.LinearTerm{Coeff: 1, Expr: b.If(b.BoolVarExpr(v), b.IntConst(1), b.IntConst(0))}
	}
	return b.Linear(terms)
}

// addSingleCycleGridEdges requires that the true edges of e form exactly one
// simple cycle (graph.single_cycle_grid_edges in
// original_source/cspuz_rs/src/graph.rs): every grid vertex has degree 0 or
// 2, and the edge set is connected when edges are viewed as nodes of their
// own adjacency graph (two candidate edges adjacent iff they share a grid
// vertex). Degree <= 2 at every vertex rules out two cycles ever touching,
// so edge-graph connectivity of the true edges is exactly single-loopness.
func addSingleCycleGridEdges(b *solve.Builder, e *slitherlinkEdges) {
	for y := 0; y <= e.h; y++ {
		for x := 0; x <= e.w; x++ {
			deg := boolVarSum(b, e.at(y, x))
			b.AddExpr(b.Or(b.IntEq(deg, b.IntConst(0)), b.IntEq(deg, b.IntConst(2))))
		}
	}

	all := e.all()
	index := make(map[csp.BoolVar]int, len(all))
	for i, v := range all {
		index[v] = i
	}
	active := make([]csp.BoolExpr, len(all))
	for i, v := range all {
		active[i] = b.BoolVarExpr(v)
	}

	var edges [][2]int
	for y := 0; y <= e.h; y++ {
		for x := 0; x <= e.w; x++ {
			incident := e.at(y, x)
			for i := 0; i < len(incident); i++ {
				for j := i + 1; j < len(incident); j++ {
					edges = append(edges, [2]int{index[incident[i]], index[incident[j]]})
				}
			}
		}
	}
	b.AddConstraint(csp.StmtActiveVerticesConnected{Active: active, Edges: edges})
}

// TestSlitherlink4x4 reproduces the fixture from
// original_source/cspuz_rs_puzzles/src/puzzles/slitherlink.rs
// (test_slitherlink_problem).
func TestSlitherlink4x4(t *testing.T) {
	clues := [][]int{
		{3, -1, -1, -1},
		{3, -1, -1, -1},
		{-1, 2, 2, -1},
		{-1, 2, -1, 1},
	}
	h, w := len(clues), len(clues[0])

	b := solve.New(solve.DefaultConfig)
	e := newSlitherlinkEdges(b, h, w)
	addSingleCycleGridEdges(b, e)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if clues[y][x] < 0 {
				continue
			}
			count := boolVarSum(b, e.cellNeighbors(y, x))
			b.AddExpr(b.IntEq(count, b.IntConst(clues[y][x])))
		}
	}
	for _, v := range e.all() {
		b.MarkAnswerKeyBool(v)
	}

	wantHorizontal := [][]bool{
		boolRow(1, 1, 1, 1),
		boolRow(1, 0, 1, 0),
		boolRow(1, 0, 0, 0),
		boolRow(0, 1, 0, 1),
		boolRow(1, 0, 0, 0),
	}
	wantVertical := [][]bool{
		boolRow(1, 0, 0, 0, 1),
		boolRow(0, 1, 1, 1, 1),
		boolRow(1, 0, 1, 1, 1),
		boolRow(1, 1, 0, 0, 0),
	}

	facts, err := b.IrrefutableFacts()
	if err != nil {
		t.Fatalf("IrrefutableFacts: %v", err)
	}
	if !facts.Unique {
		t.Fatalf("expected a unique solution")
	}
	for y, row := range e.horizontal {
		for x, v := range row {
			if got, want := facts.Bools[v], wantHorizontal[y][x]; got != want {
				t.Errorf("horizontal[%d][%d] = %v, want %v", y, x, got, want)
			}
		}
	}
	for y, row := range e.vertical {
		for x, v := range row {
			if got, want := facts.Bools[v], wantVertical[y][x]; got != want {
				t.Errorf("vertical[%d][%d] = %v, want %v", y, x, got, want)
			}
		}
	}
}

func boolRow(bits ...int) []bool {
	out := make([]bool, len(bits))
	for i, b := range bits {
		out[i] = b != 0
	}
	return out
}
