package propagator

// Status is the tri-state lattice a propagator's internal filtering pass
// reports to its caller: nothing changed, something changed but the
// constraint still has a solution, or the constraint is now provably
// violated. Grounded on original_source/cspuz_core/src/util.rs's
// UpdateStatus (NotUpdated | Updated | Unsatisfiable).
type Status int

const (
	NotUpdated Status = iota
	Updated
	Unsatisfiable
)

// Combine implements the lattice's OR-like join: Unsatisfiable dominates
// everything, Updated dominates NotUpdated. The propagators in this package
// report through sat.PropagatorContext and do not use Status.
func (s Status) Combine(other Status) Status {
	if s == Unsatisfiable || other == Unsatisfiable {
		return Unsatisfiable
	}
	if s == Updated || other == Updated {
		return Updated
	}
	return NotUpdated
}
