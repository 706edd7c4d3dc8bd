package sat

import (
	"log"

	"github.com/rhartert/yagh"
)

// VarOrder maintains the order in which unassigned variables are offered to
// the search as decisions, ranked by VSIDS activity. Ties are broken by the
// heap's insertion order, which corresponds to the order in which variables
// were declared via AddVariable.
type VarOrder struct {
	heap *yagh.IntMap[float64]

	activities []float64
	phases     []LBool

	phaseSaving bool
}

// NewVarOrder returns a VarOrder for a solver that already has nVars
// variables allocated.
func NewVarOrder(s *Solver, nVars int) *VarOrder {
	vo := &VarOrder{
		heap:       yagh.New[float64](nVars),
		activities: make([]float64, 0, nVars),
		phases:     make([]LBool, 0, nVars),
	}
	for v := 0; v < nVars; v++ {
		vo.NewVar()
	}
	return vo
}

// NewVar registers a newly allocated variable with the order, with an
// initial activity of 0 and a default phase of false.
func (vo *VarOrder) NewVar() {
	v := len(vo.activities)
	vo.activities = append(vo.activities, 0)
	vo.phases = append(vo.phases, False)
	vo.heap.GrowBy(1)
	vo.heap.Put(v, 0)
}

// Update refreshes v's position in the heap after its activity changed.
func (vo *VarOrder) Update(v int) {
	if vo.heap.Contains(v) {
		vo.heap.Put(v, -vo.activities[v])
	}
}

// Undo reinserts v into the set of decidable variables. If phase saving is
// enabled, val records the polarity v is reinserted with.
func (vo *VarOrder) Undo(v int, val LBool) {
	if vo.phaseSaving && val != Unknown {
		vo.phases[v] = val
	}
	vo.heap.Put(v, -vo.activities[v])
}

// Select pops the highest-activity unassigned variable and returns the
// literal to try first, using the saved phase when phaseSaving is enabled.
func (vo *VarOrder) Select(s *Solver) Literal {
	for {
		v, ok := vo.heap.Pop()
		if !ok {
			log.Fatal("sat: no unassigned variable left to decide on")
		}
		if s.VarValue(v.Elem) != Unknown {
			continue // already assigned, stale heap entry
		}
		if vo.phases[v.Elem] == True {
			return PositiveLiteral(v.Elem)
		}
		return NegativeLiteral(v.Elem)
	}
}

// bump increases v's activity by inc, rescaling all activities (and the
// bump increment itself) if the threshold used to avoid floating-point
// overflow is exceeded. The caller is responsible for calling Update(v)
// after a (non-rescaling) bump.
func (vo *VarOrder) bump(v int, inc float64) (newInc float64, rescaled bool) {
	vo.activities[v] += inc
	if vo.activities[v] <= 1e100 {
		return inc, false
	}
	for i := range vo.activities {
		vo.activities[i] *= 1e-100
	}
	return inc * 1e-100, true
}
