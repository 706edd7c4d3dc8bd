// Package solve is the integrated solver (spec.md §4.5, §6): it wires the
// csp Builder, the normalizer, the order encoder, and the five theory
// propagators together behind the three queries spec.md §6 asks a
// consumer-facing solver for — one satisfying assignment, the facts every
// satisfying assignment agrees on, and the sequence of all satisfying
// assignments.
//
// internal/sat.Solver has no way to retract a root-level clause once
// AddClause has placed it (AddClause is only valid at decision level 0 and
// Solve does not reset the trail between calls), so this package cannot
// share one long-lived Solver across queries the way spec.md §5.5's prose
// first describes. Instead every query builds a fresh Encoding over a fresh
// Solver from the one normalized NCSP, baking in whatever extra blocking
// clauses that query's algorithm has accumulated so far as ordinary
// permanent clauses before calling Solve. Re-encoding is not
// free, but it is the shape internal/sat's clause database actually
// supports, and it keeps the NCSP (the expensive-to-build artifact) shared
// across every call a Builder makes.
package solve

import (
	"errors"
	"fmt"
	"time"

	"github.com/gridsolve/cspsat/internal/csp"
	"github.com/gridsolve/cspsat/internal/encoder"
	"github.com/gridsolve/cspsat/internal/ncsp"
	"github.com/gridsolve/cspsat/internal/normalizer"
	"github.com/gridsolve/cspsat/internal/sat"
)

// Config controls solving choices exposed in spec.md §6's configuration
// map. Zero-value fields other than the booleans fall back to
// DefaultConfig's values; start from DefaultConfig and override only the
// fields that matter, rather than constructing a Config literal from
// scratch.
type Config struct {
	// UseConstantFolding and AlldiffPairwiseThreshold pass through to
	// normalizer.Config unchanged.
	UseConstantFolding       bool
	AlldiffPairwiseThreshold int

	// The remaining fields pass through to sat.Options unchanged, the way
	// the teacher's main.go threads flag values into sat.Options.
	ClauseDecay     float64
	VariableDecay   float64
	MaxConflicts    int64
	Timeout         time.Duration
	PhaseSaving     bool
	RestartStrategy sat.RestartStrategy
	LubyUnit        int
	Verbose         bool
	CancelFlag      *bool
}

// DefaultConfig mirrors spec.md §6's defaults (sat.DefaultOptions plus the
// normalizer's own defaults).
var DefaultConfig = Config{
	UseConstantFolding:       true,
	AlldiffPairwiseThreshold: 16,
	ClauseDecay:              sat.DefaultOptions.ClauseDecay,
	VariableDecay:            sat.DefaultOptions.VariableDecay,
	MaxConflicts:             sat.DefaultOptions.MaxConflicts,
	Timeout:                  sat.DefaultOptions.Timeout,
	PhaseSaving:              sat.DefaultOptions.PhaseSaving,
	RestartStrategy:          sat.DefaultOptions.RestartStrategy,
	LubyUnit:                 sat.DefaultOptions.LubyUnit,
}

// ErrUnsatisfiable is returned by queries that require at least one
// satisfying assignment to exist.
var ErrUnsatisfiable = errors.New("solve: no satisfying assignment")

// Builder embeds csp.Builder so callers get its full expression-construction
// API (NewBoolVar, And, IntLe, AddConstraint, MarkAnswerKeyBool, ...)
// directly, the way spec.md §6 describes the Builder as "the csp Builder
// plus solving."
type Builder struct {
	*csp.Builder
	cfg Config
}

// New returns an empty Builder configured by cfg.
func New(cfg Config) *Builder {
	return &Builder{Builder: csp.NewBuilder(), cfg: cfg}
}

// Assignment is one satisfying assignment, indexed the same way the
// Builder's own BoolVar/IntVar handles are (spec.md §6): Bools[v] and
// Ints[v] are the values of csp.BoolVar(v) and csp.IntVar(v).
type Assignment struct {
	Bools []bool
	Ints  []int
}

// normalize validates and normalizes the accumulated statements into an
// NCSP. Every query starts here; the NCSP itself is cheap to reuse across
// the fresh encode-and-solve calls a query makes.
func (b *Builder) normalize() (*ncsp.NCSP, error) {
	return normalizer.Normalize(b.Builder, normalizer.Config{
		UseConstantFolding:       b.cfg.UseConstantFolding,
		AlldiffPairwiseThreshold: orDefault(b.cfg.AlldiffPairwiseThreshold, normalizer.DefaultConfig.AlldiffPairwiseThreshold),
	})
}

func orDefault(v, d int) int {
	if v == 0 {
		return d
	}
	return v
}

// newSolver builds a fresh sat.Solver from b's Config, leaving any
// zero-valued numeric/strategy field at DefaultOptions' value rather than
// silently disabling it (a zero RestartStrategy, for instance, is replaced
// by DefaultOptions' strategy, so "restarts off" cannot be selected through
// Config — see Config's doc comment).
func (b *Builder) newSolver() *sat.Solver {
	opts := sat.DefaultOptions
	if b.cfg.ClauseDecay != 0 {
		opts.ClauseDecay = b.cfg.ClauseDecay
	}
	if b.cfg.VariableDecay != 0 {
		opts.VariableDecay = b.cfg.VariableDecay
	}
	if b.cfg.MaxConflicts != 0 {
		opts.MaxConflicts = b.cfg.MaxConflicts
	}
	if b.cfg.Timeout != 0 {
		opts.Timeout = b.cfg.Timeout
	}
	opts.PhaseSaving = b.cfg.PhaseSaving
	if b.cfg.RestartStrategy != 0 {
		opts.RestartStrategy = b.cfg.RestartStrategy
	}
	if b.cfg.LubyUnit != 0 {
		opts.LubyUnit = b.cfg.LubyUnit
	}
	opts.Verbose = b.cfg.Verbose
	opts.CancelFlag = b.cfg.CancelFlag
	return sat.NewSolver(opts)
}

// solveOnce encodes n onto a fresh Solver, asserts extraClauses as
// permanent clauses, and runs search. It is the one primitive every query
// in this package composes.
func solveOnce(n *ncsp.NCSP, extraClauses [][]sat.Literal, s *sat.Solver) (*encoder.Encoding, bool, error) {
	enc, err := encoder.Encode(n, s)
	if err != nil {
		return nil, false, fmt.Errorf("solve: %w", err)
	}
	for _, cl := range extraClauses {
		if err := s.AddClause(cl); err != nil {
			return nil, false, fmt.Errorf("solve: %w", err)
		}
	}
	return enc, s.Solve() == sat.True, nil
}

func extractAssignment(n *ncsp.NCSP, enc *encoder.Encoding) Assignment {
	a := Assignment{
		Bools: make([]bool, n.NumBoolVars),
		Ints:  make([]int, len(n.IntDomains)),
	}
	for i := range a.Bools {
		a.Bools[i] = enc.BoolValue(ncsp.BoolVar(i))
	}
	for i := range a.Ints {
		a.Ints[i] = enc.IntValue(ncsp.IntVar(i))
	}
	return a
}

// Solve returns one satisfying assignment of the Builder's accumulated
// constraints, or ok=false if none exists.
func (b *Builder) Solve() (Assignment, bool, error) {
	n, err := b.normalize()
	if err != nil {
		return Assignment{}, false, err
	}
	s := b.newSolver()
	enc, ok, err := solveOnce(n, nil, s)
	if err != nil {
		return Assignment{}, false, err
	}
	if !ok {
		return Assignment{}, false, nil
	}
	return extractAssignment(n, enc), true, nil
}
