package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewFromIntervals(t *testing.T) {
	tests := []struct {
		name    string
		raw     [][2]int
		want    [][2]int
		wantErr error
	}{
		{
			name: "single interval",
			raw:  [][2]int{{1, 5}},
			want: [][2]int{{1, 5}},
		},
		{
			name: "merges overlapping",
			raw:  [][2]int{{1, 5}, {3, 8}},
			want: [][2]int{{1, 8}},
		},
		{
			name: "merges adjacent",
			raw:  [][2]int{{1, 3}, {4, 6}},
			want: [][2]int{{1, 6}},
		},
		{
			name: "keeps disjoint",
			raw:  [][2]int{{1, 2}, {10, 12}},
			want: [][2]int{{1, 2}, {10, 12}},
		},
		{
			name: "unsorted input",
			raw:  [][2]int{{10, 12}, {1, 2}},
			want: [][2]int{{1, 2}, {10, 12}},
		},
		{
			name:    "empty",
			raw:     nil,
			wantErr: ErrEmptyDomain,
		},
		{
			name:    "overflow",
			raw:     [][2]int{{0, MaxValue + 1}},
			wantErr: ErrOverflow,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NewFromIntervals(tc.raw)
			if tc.wantErr != nil {
				if err != tc.wantErr {
					t.Fatalf("NewFromIntervals(): want error %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewFromIntervals(): unexpected error %v", err)
			}
			if diff := cmp.Diff(tc.want, got.Intervals()); diff != "" {
				t.Errorf("NewFromIntervals(): mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDomainSetOps(t *testing.T) {
	a, _ := NewFromIntervals([][2]int{{1, 10}})
	b, _ := NewFromIntervals([][2]int{{5, 15}})

	union := a.Union(b)
	if diff := cmp.Diff([][2]int{{1, 15}}, union.Intervals()); diff != "" {
		t.Errorf("Union(): mismatch (-want +got):\n%s", diff)
	}

	inter := a.Intersect(b)
	if diff := cmp.Diff([][2]int{{5, 10}}, inter.Intervals()); diff != "" {
		t.Errorf("Intersect(): mismatch (-want +got):\n%s", diff)
	}

	disjointB, _ := NewFromIntervals([][2]int{{100, 200}})
	if !a.Intersect(disjointB).IsEmpty() {
		t.Errorf("Intersect(): want empty domain for disjoint ranges")
	}
}

func TestDomainRefine(t *testing.T) {
	d, _ := NewFromIntervals([][2]int{{1, 10}})

	if diff := cmp.Diff([][2]int{{5, 10}}, d.RefineLowerBound(5).Intervals()); diff != "" {
		t.Errorf("RefineLowerBound(): mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][2]int{{1, 5}}, d.RefineUpperBound(5).Intervals()); diff != "" {
		t.Errorf("RefineUpperBound(): mismatch (-want +got):\n%s", diff)
	}
}

func TestDomainRemoveValue(t *testing.T) {
	tests := []struct {
		name string
		d    [][2]int
		v    int
		want [][2]int
	}{
		{"interior splits", [][2]int{{1, 5}}, 3, [][2]int{{1, 2}, {4, 5}}},
		{"lower bound", [][2]int{{1, 5}}, 1, [][2]int{{2, 5}}},
		{"upper bound", [][2]int{{1, 5}}, 5, [][2]int{{1, 4}}},
		{"whole singleton", [][2]int{{3, 3}}, 3, nil},
		{"not present", [][2]int{{1, 5}}, 100, [][2]int{{1, 5}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d, _ := NewFromIntervals(tc.d)
			got := d.RemoveValue(tc.v).Intervals()
			if len(got) == 0 {
				got = nil
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("RemoveValue(%d): mismatch (-want +got):\n%s", tc.v, diff)
			}
		})
	}
}

func TestDomainMembershipAndEnumerate(t *testing.T) {
	d, _ := NewFromIntervals([][2]int{{1, 3}, {10, 12}})

	for _, v := range []int{1, 2, 3, 10, 11, 12} {
		if !d.Contains(v) {
			t.Errorf("Contains(%d): want true", v)
		}
	}
	for _, v := range []int{0, 4, 9, 13} {
		if d.Contains(v) {
			t.Errorf("Contains(%d): want false", v)
		}
	}

	want := []int{1, 2, 3, 10, 11, 12}
	if diff := cmp.Diff(want, d.Enumerate()); diff != "" {
		t.Errorf("Enumerate(): mismatch (-want +got):\n%s", diff)
	}
	if got, want := d.Size(), 6; got != want {
		t.Errorf("Size(): got %d, want %d", got, want)
	}
	if got, want := d.Min(), 1; got != want {
		t.Errorf("Min(): got %d, want %d", got, want)
	}
	if got, want := d.Max(), 12; got != want {
		t.Errorf("Max(): got %d, want %d", got, want)
	}
}

func TestSingleAndRange(t *testing.T) {
	s := Single(7)
	if s.Size() != 1 || !s.Contains(7) {
		t.Errorf("Single(7): want domain {7}, got %v", s)
	}
	r := Range(1, 4)
	if diff := cmp.Diff([][2]int{{1, 4}}, r.Intervals()); diff != "" {
		t.Errorf("Range(1, 4): mismatch (-want +got):\n%s", diff)
	}
}
