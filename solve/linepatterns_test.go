package solve_test

// This file generates the full set of valid line assignments for run-length
// clues (nonogram) and run-sum clues (japanese sums) by direct enumeration,
// for use as github.com/gridsolve/cspsat/internal/csp.StmtExtensionSupports
// support tables: a nonogram/japanese-sums line clue is naturally a
// generalized-arc-consistency table over "which full line assignments are
// legal," the same shape internal/propagator/extension.go already enforces,
// rather than a bespoke run-tracking propagator.

// nonogramRowPatterns returns every binary row of the given length whose
// runs of 1s have exactly the lengths in runs, in order, separated by at
// least one 0.
func nonogramRowPatterns(length int, runs []int) [][]int {
	n := len(runs)
	remainingMin := make([]int, n+1)
	for i := n - 1; i >= 0; i-- {
		remainingMin[i] = runs[i]
		if i+1 < n {
			remainingMin[i] += 1 + remainingMin[i+1]
		}
	}

	var results [][]int
	row := make([]int, 0, length)
	var place func(pos, idx int)
	place = func(pos, idx int) {
		if idx == n {
			full := append([]int{}, row...)
			for len(full) < length {
				full = append(full, 0)
			}
			results = append(results, full)
			return
		}
		minStart := pos
		if idx > 0 {
			minStart = pos + 1
		}
		maxStart := length - remainingMin[idx]
		for start := minStart; start <= maxStart; start++ {
			saved := len(row)
			for i := pos; i < start; i++ {
				row = append(row, 0)
			}
			for i := 0; i < runs[idx]; i++ {
				row = append(row, 1)
			}
			place(start+runs[idx], idx+1)
			row = row[:saved]
		}
	}
	place(0, 0)
	return results
}

// runValueCombos returns every length-runLen sequence of values in 1..k
// whose sum equals targetSum, or every such sequence if targetSum < 0.
func runValueCombos(runLen, k, targetSum int) [][]int {
	var results [][]int
	vals := make([]int, runLen)
	var rec func(i, sum int)
	rec = func(i, sum int) {
		if i == runLen {
			if targetSum < 0 || sum == targetSum {
				results = append(results, append([]int{}, vals...))
			}
			return
		}
		for v := 1; v <= k; v++ {
			vals[i] = v
			rec(i+1, sum+v)
		}
	}
	rec(0, 0)
	return results
}

// sumsRowPatterns returns every length-length sequence of values in 0..k
// with exactly len(clue) runs of nonzero cells, in order, separated by at
// least one 0, where run i sums to clue[i] (unconstrained if clue[i] < 0).
// It does not enforce that nonzero values are pairwise distinct along the
// line; callers add that separately.
func sumsRowPatterns(length, k int, clue []int) [][]int {
	n := len(clue)
	minAfter := func(idx int) int {
		rem := n - idx
		if rem <= 0 {
			return 0
		}
		return 2*rem - 1
	}

	var results [][]int
	row := make([]int, 0, length)
	var place func(pos, idx int)
	place = func(pos, idx int) {
		if idx == n {
			full := append([]int{}, row...)
			for len(full) < length {
				full = append(full, 0)
			}
			results = append(results, full)
			return
		}
		minStart := pos
		if idx > 0 {
			minStart = pos + 1
		}
		for start := minStart; start <= length; start++ {
			maxLen := length - start - minAfter(idx+1)
			if maxLen < 1 {
				continue
			}
			for runLen := 1; runLen <= maxLen; runLen++ {
				for _, combo := range runValueCombos(runLen, k, clue[idx]) {
					saved := len(row)
					for i := pos; i < start; i++ {
						row = append(row, 0)
					}
					row = append(row, combo...)
					place(start+runLen, idx+1)
					row = row[:saved]
				}
			}
		}
	}
	place(0, 0)
	return results
}
