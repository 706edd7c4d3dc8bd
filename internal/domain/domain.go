// Package domain implements the finite integer domains over which NCSP
// IntVars range: sorted sequences of disjoint closed intervals (spec.md §3).
package domain

import (
	"errors"
	"fmt"
	"sort"
)

// ErrEmptyDomain is returned when an operation would leave a domain with no
// values, e.g. constructing an IntVar from an empty set of intervals.
// Intersect does not return it: two disjoint domains intersect to the
// empty Domain.
var ErrEmptyDomain = errors.New("domain: empty domain")

// ErrOverflow is returned when interval arithmetic would carry a bound
// outside the 32-bit range the normalizer is specified to operate in
// (spec.md §7).
var ErrOverflow = errors.New("domain: overflow")

const (
	// MinValue and MaxValue bound every domain value to fit comfortably
	// within int32 arithmetic performed during interval propagation, leaving
	// headroom so Lo+Hi sums of two in-range values never overflow int.
	MinValue = -(1 << 30)
	MaxValue = 1 << 30
)

// interval is a closed integer range [Lo, Hi], Lo <= Hi.
type interval struct {
	Lo, Hi int
}

// Domain is an immutable-by-convention finite set of integers, represented
// as a sorted sequence of disjoint, non-adjacent closed intervals. The zero
// value is the empty domain.
type Domain struct {
	intervals []interval
}

// Empty returns the empty domain.
func Empty() Domain {
	return Domain{}
}

// Single returns the domain containing exactly v.
func Single(v int) Domain {
	return Domain{intervals: []interval{{v, v}}}
}

// Range returns the domain {lo, lo+1, ..., hi}. It panics if lo > hi; callers
// constructing a domain from user input should check bounds first and
// surface ErrEmptyDomain/ErrOverflow themselves (see NewFromIntervals).
func Range(lo, hi int) Domain {
	if lo > hi {
		panic(fmt.Sprintf("domain: Range(%d, %d): lo > hi", lo, hi))
	}
	return Domain{intervals: []interval{{lo, hi}}}
}

// NewFromIntervals builds a Domain from a set of (possibly unsorted,
// possibly overlapping) closed intervals, normalizing them into the
// canonical disjoint sorted form. It returns ErrEmptyDomain if the result is
// empty and ErrOverflow if any bound falls outside [MinValue, MaxValue].
func NewFromIntervals(raw [][2]int) (Domain, error) {
	if len(raw) == 0 {
		return Domain{}, ErrEmptyDomain
	}
	ivs := make([]interval, 0, len(raw))
	for _, r := range raw {
		lo, hi := r[0], r[1]
		if lo > hi {
			continue // empty sub-range, drop
		}
		if lo < MinValue || hi > MaxValue {
			return Domain{}, ErrOverflow
		}
		ivs = append(ivs, interval{lo, hi})
	}
	d := Domain{intervals: ivs}.normalize()
	if d.IsEmpty() {
		return Domain{}, ErrEmptyDomain
	}
	return d, nil
}

// normalize sorts and merges overlapping/adjacent intervals.
func (d Domain) normalize() Domain {
	ivs := append([]interval(nil), d.intervals...)
	sort.Slice(ivs, func(i, j int) bool { return ivs[i].Lo < ivs[j].Lo })

	out := ivs[:0]
	for _, iv := range ivs {
		if len(out) > 0 && iv.Lo <= out[len(out)-1].Hi+1 {
			if iv.Hi > out[len(out)-1].Hi {
				out[len(out)-1].Hi = iv.Hi
			}
			continue
		}
		out = append(out, iv)
	}
	return Domain{intervals: out}
}

// IsEmpty reports whether the domain contains no values.
func (d Domain) IsEmpty() bool {
	return len(d.intervals) == 0
}

// Min returns the domain's smallest value. Panics if the domain is empty.
func (d Domain) Min() int {
	return d.intervals[0].Lo
}

// Max returns the domain's largest value. Panics if the domain is empty.
func (d Domain) Max() int {
	return d.intervals[len(d.intervals)-1].Hi
}

// Size returns the number of distinct values in the domain.
func (d Domain) Size() int {
	n := 0
	for _, iv := range d.intervals {
		n += iv.Hi - iv.Lo + 1
	}
	return n
}

// Contains reports whether v is a member of the domain.
func (d Domain) Contains(v int) bool {
	i := sort.Search(len(d.intervals), func(i int) bool { return d.intervals[i].Hi >= v })
	return i < len(d.intervals) && d.intervals[i].Lo <= v
}

// Enumerate returns every value in the domain, in increasing order.
func (d Domain) Enumerate() []int {
	out := make([]int, 0, d.Size())
	for _, iv := range d.intervals {
		for v := iv.Lo; v <= iv.Hi; v++ {
			out = append(out, v)
		}
	}
	return out
}

// NumIntervals returns the number of disjoint intervals in the domain.
func (d Domain) NumIntervals() int {
	return len(d.intervals)
}

// Intervals returns the domain's intervals as [lo, hi] pairs, in increasing
// order. The returned slice must not be mutated by the caller.
func (d Domain) Intervals() [][2]int {
	out := make([][2]int, len(d.intervals))
	for i, iv := range d.intervals {
		out[i] = [2]int{iv.Lo, iv.Hi}
	}
	return out
}

// Union returns the set union of d and other.
func (d Domain) Union(other Domain) Domain {
	ivs := append(append([]interval(nil), d.intervals...), other.intervals...)
	return Domain{intervals: ivs}.normalize()
}

// Intersect returns the set intersection of d and other.
func (d Domain) Intersect(other Domain) Domain {
	var out []interval
	i, j := 0, 0
	for i < len(d.intervals) && j < len(other.intervals) {
		a, b := d.intervals[i], other.intervals[j]
		lo := max(a.Lo, b.Lo)
		hi := min(a.Hi, b.Hi)
		if lo <= hi {
			out = append(out, interval{lo, hi})
		}
		if a.Hi < b.Hi {
			i++
		} else {
			j++
		}
	}
	return Domain{intervals: out}
}

// RefineLowerBound returns the domain restricted to values >= lo.
func (d Domain) RefineLowerBound(lo int) Domain {
	return d.Intersect(Domain{intervals: []interval{{lo, MaxValue}}})
}

// RefineUpperBound returns the domain restricted to values <= hi.
func (d Domain) RefineUpperBound(hi int) Domain {
	return d.Intersect(Domain{intervals: []interval{{MinValue, hi}}})
}

// RemoveValue returns the domain with v removed, splitting an interval if v
// is an interior value.
func (d Domain) RemoveValue(v int) Domain {
	out := make([]interval, 0, len(d.intervals)+1)
	for _, iv := range d.intervals {
		if v < iv.Lo || v > iv.Hi {
			out = append(out, iv)
			continue
		}
		if iv.Lo == iv.Hi {
			continue // whole interval removed
		}
		if v == iv.Lo {
			out = append(out, interval{iv.Lo + 1, iv.Hi})
		} else if v == iv.Hi {
			out = append(out, interval{iv.Lo, iv.Hi - 1})
		} else {
			out = append(out, interval{iv.Lo, v - 1}, interval{v + 1, iv.Hi})
		}
	}
	return Domain{intervals: out}
}

// Equal reports whether d and other contain exactly the same values.
func (d Domain) Equal(other Domain) bool {
	if len(d.intervals) != len(other.intervals) {
		return false
	}
	for i := range d.intervals {
		if d.intervals[i] != other.intervals[i] {
			return false
		}
	}
	return true
}

func (d Domain) String() string {
	s := "{"
	for i, iv := range d.intervals {
		if i > 0 {
			s += ", "
		}
		if iv.Lo == iv.Hi {
			s += fmt.Sprintf("%d", iv.Lo)
		} else {
			s += fmt.Sprintf("%d..%d", iv.Lo, iv.Hi)
		}
	}
	return s + "}"
}
