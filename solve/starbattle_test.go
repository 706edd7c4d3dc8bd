package solve_test

import (
	"testing"

	"github.com/gridsolve/cspsat/internal/csp"
	"github.com/gridsolve/cspsat/solve"
)

// starBattleRooms partitions an n x n grid into rooms from its inner-edge
// border matrices, the way
// original_source/cspuz_rs/src/graph.rs's borders_to_rooms does: cells flood
// fill into the same room across any inner edge that is not a wall.
// horizontal[y][x] is the wall between cell (y,x) and (y+1,x);
// vertical[y][x] is the wall between cell (y,x) and (y,x+1).
func starBattleRooms(n int, horizontal, vertical [][]bool) [][][2]int {
	label := make([][]int, n)
	for y := range label {
		label[y] = make([]int, n)
		for x := range label[y] {
			label[y][x] = -1
		}
	}
	var rooms [][][2]int
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			if label[y][x] != -1 {
				continue
			}
			id := len(rooms)
			var room [][2]int
			stack := [][2]int{{y, x}}
			label[y][x] = id
			for len(stack) > 0 {
				cy, cx := stack[len(stack)-1][0], stack[len(stack)-1][1]
				stack = stack[:len(stack)-1]
				room = append(room, [2]int{cy, cx})
				if cy+1 < n && !horizontal[cy][cx] && label[cy+1][cx] == -1 {
					label[cy+1][cx] = id
					stack = append(stack, [2]int{cy + 1, cx})
				}
				if cy > 0 && !horizontal[cy-1][cx] && label[cy-1][cx] == -1 {
					label[cy-1][cx] = id
					stack = append(stack, [2]int{cy - 1, cx})
				}
				if cx+1 < n && !vertical[cy][cx] && label[cy][cx+1] == -1 {
					label[cy][cx+1] = id
					stack = append(stack, [2]int{cy, cx + 1})
				}
				if cx > 0 && !vertical[cy][cx-1] && label[cy][cx-1] == -1 {
					label[cy][cx-1] = id
					stack = append(stack, [2]int{cy, cx - 1})
				}
			}
			rooms = append(rooms, room)
		}
	}
	return rooms
}

// TestStarBattle6x6 reproduces the fixture from
// original_source/cspuz_rs_puzzles/src/puzzles/star_battle.rs
// (test_star_battle_problem).
func TestStarBattle6x6(t *testing.T) {
	const n = 6
	const starAmount = 1

	horizontal := toBoolGrid([][]int{
		{0, 1, 1, 0, 0, 0},
		{1, 0, 0, 1, 1, 0},
		{0, 1, 1, 1, 1, 0},
		{0, 1, 1, 0, 1, 1},
		{0, 1, 0, 1, 0, 0},
	})
	vertical := toBoolGrid([][]int{
		{0, 0, 0, 1, 0},
		{1, 1, 1, 1, 0},
		{0, 1, 0, 0, 1},
		{1, 0, 0, 0, 0},
		{1, 0, 1, 1, 1},
		{0, 1, 0, 0, 1},
	})
	rooms := starBattleRooms(n, horizontal, vertical)

	b := solve.New(solve.DefaultConfig)
	hasStar := make([][]csp.BoolVar, n)
	for y := range hasStar {
		hasStar[y] = make([]csp.BoolVar, n)
		for x := range hasStar[y] {
			hasStar[y][x] = b.NewBoolVar()
			b.MarkAnswerKeyBool(hasStar[y][x])
		}
	}

	for y := 0; y < n; y++ {
		row := make([]csp.BoolVar, n)
		col := make([]csp.BoolVar, n)
		for x := 0; x < n; x++ {
			row[x] = hasStar[y][x]
			col[x] = hasStar[x][y]
		}
		b.AddExpr(b.IntEq(boolVarSum(b, row), b.IntConst(starAmount)))
		b.AddExpr(b.IntEq(boolVarSum(b, col), b.IntConst(starAmount)))
	}

	dirs := [][2]int{{1, 0}, {0, 1}, {1, 1}, {1, -1}}
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			for _, d := range dirs {
				ny, nx := y+d[0], x+d[1]
				if ny < 0 || ny >= n || nx < 0 || nx >= n {
					continue
				}
				b.AddExpr(b.Not(b.And(b.BoolVarExpr(hasStar[y][x]), b.BoolVarExpr(hasStar[ny][nx]))))
			}
		}
	}

	for _, room := range rooms {
		vars := make([]csp.BoolVar, len(room))
		for i, c := range room {
			vars[i] = hasStar[c[0]][c[1]]
		}
		b.AddExpr(b.IntEq(boolVarSum(b, vars), b.IntConst(starAmount)))
	}

	want := toBoolGrid([][]int{
		{0, 1, 0, 0, 0, 0},
		{0, 0, 0, 0, 1, 0},
		{0, 0, 1, 0, 0, 0},
		{1, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 1},
		{0, 0, 0, 1, 0, 0},
	})

	facts, err := b.IrrefutableFacts()
	if err != nil {
		t.Fatalf("IrrefutableFacts: %v", err)
	}
	if !facts.Unique {
		t.Fatalf("expected a unique solution")
	}
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			if got, want := facts.Bools[hasStar[y][x]], want[y][x]; got != want {
				t.Errorf("has_star[%d][%d] = %v, want %v", y, x, got, want)
			}
		}
	}
}

func toBoolGrid(rows [][]int) [][]bool {
	out := make([][]bool, len(rows))
	for y, row := range rows {
		out[y] = boolRow(row...)
	}
	return out
}
