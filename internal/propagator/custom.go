package propagator

import (
	"github.com/gridsolve/cspsat/internal/ncsp"
	"github.com/gridsolve/cspsat/internal/sat"
)

// Custom bridges a user-supplied ncsp.CustomPropagator (spec.md §6's escape
// hatch for puzzle-specific logic the built-in propagators don't cover)
// into a real sat.Propagator: it translates between the solver's Literal
// space and the plain []bool/[]bool{unknown} view the custom propagator's
// interface expects.
type Custom struct {
	s     *sat.Solver
	inner ncsp.CustomPropagator
	args  []sat.Literal
}

// NewCustom constructs the custom propagator via factory and binds it to
// args, the Boolean literals it will be polled against.
func NewCustom(s *sat.Solver, factory func(int) ncsp.CustomPropagator, args []sat.Literal) *Custom {
	return &Custom{s: s, inner: factory(len(args)), args: args}
}

func (c *Custom) snapshot() ([]bool, []bool) {
	vals := make([]bool, len(c.args))
	unknown := make([]bool, len(c.args))
	for i, l := range c.args {
		switch c.s.LitValue(l) {
		case sat.True:
			vals[i] = true
		case sat.False:
			vals[i] = false
		default:
			unknown[i] = true
		}
	}
	return vals, unknown
}

func (c *Custom) apply(ctx *sat.PropagatorContext, forced map[int]bool, ok bool) bool {
	if !ok {
		ctx.Conflict(c.trueArgs())
		return false
	}
	for idx, want := range forced {
		lit := c.args[idx]
		if !want {
			lit = lit.Opposite()
		}
		if !ctx.Enqueue(lit) {
			ctx.Conflict(c.trueArgs())
			return false
		}
	}
	return true
}

func (c *Custom) trueArgs() []sat.Literal {
	var out []sat.Literal
	for _, l := range c.args {
		switch c.s.LitValue(l) {
		case sat.True:
			out = append(out, l)
		case sat.False:
			out = append(out, l.Opposite())
		}
	}
	return out
}

func (c *Custom) Initialize(ctx *sat.PropagatorContext) bool {
	vals, unknown := c.snapshot()
	forced, ok := c.inner.Initialize(vals, unknown)
	return c.apply(ctx, forced, ok)
}

func (c *Custom) Propagate(ctx *sat.PropagatorContext) bool {
	vals, unknown := c.snapshot()
	forced, ok := c.inner.Propagate(vals, unknown)
	return c.apply(ctx, forced, ok)
}

func (c *Custom) Explain(l sat.Literal) []sat.Literal {
	idx := -1
	for i, lit := range c.args {
		if lit == l || lit.Opposite() == l {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil
	}
	reasonIdx := c.inner.Explain(idx)
	out := make([]sat.Literal, 0, len(reasonIdx))
	for _, j := range reasonIdx {
		lit := c.args[j]
		if c.s.LitValue(lit) == sat.False {
			lit = lit.Opposite()
		}
		out = append(out, lit)
	}
	return out
}

func (c *Custom) UndoToLevel(level int) {
	c.inner.UndoToLevel(level)
}
