package semver

import (
	"sort"
	"strings"
)

// interval is a half-open version interval [Low, High). A nil High means the
// interval is unbounded above.
type interval struct {
	Low  Version
	High *Version
}

func (iv interval) contains(v Version) bool {
	if v.Less(iv.Low) {
		return false
	}
	return iv.High == nil || v.Less(*iv.High)
}

// Range is an ordered, disjoint set of half-open version intervals. The zero
// value is NONE, the empty range.
type Range struct {
	// any marks the improper range matching every version.
	any bool
	// intervals is kept sorted by Low and mutually disjoint; adjacent
	// intervals are always merged by the constructors below.
	intervals []interval
}

// NONE is the range that contains no version.
var NONE = Range{}

// ANY is the range that contains every version.
var ANY = Range{any: true}

// Exact returns the range containing only v.
func Exact(v Version) Range {
	high := v.BumpPatch()
	return Range{intervals: []interval{{Low: v, High: &high}}}
}

// HigherThanOrEqual returns [v, +inf).
func HigherThanOrEqual(v Version) Range {
	return Range{intervals: []interval{{Low: v, High: nil}}}
}

// HigherThan returns (v, +inf).
func HigherThan(v Version) Range {
	return HigherThanOrEqual(v.BumpPatch())
}

// StrictlyLowerThan returns [0.0.0, v).
func StrictlyLowerThan(v Version) Range {
	if v.Equal(Zero) {
		return NONE
	}
	return Range{intervals: []interval{{Low: Zero, High: &v}}}
}

// LowerThanOrEqual returns [0.0.0, v].
func LowerThanOrEqual(v Version) Range {
	return StrictlyLowerThan(v.BumpPatch())
}

// Between returns [low, high), or NONE when low is not below high.
func Between(low, high Version) Range {
	if !low.Less(high) {
		return NONE
	}
	h := high
	return Range{intervals: []interval{{Low: low, High: &h}}}
}

// IsEmpty reports whether r matches no version at all.
func (r Range) IsEmpty() bool {
	return !r.any && len(r.intervals) == 0
}

// IsAny reports whether r matches every version.
func (r Range) IsAny() bool { return r.any }

// Contains reports whether v falls within one of r's intervals. The search
// is a binary search over the sorted, disjoint interval list, so this is
// O(log n) in the number of intervals.
func (r Range) Contains(v Version) bool {
	if r.any {
		return true
	}
	n := len(r.intervals)
	i := sort.Search(n, func(i int) bool {
		return r.intervals[i].High == nil || v.Less(*r.intervals[i].High)
	})
	return i < n && r.intervals[i].contains(v)
}

// Union returns the set of versions matched by r or other.
func (r Range) Union(other Range) Range {
	if r.any || other.any {
		return ANY
	}
	merged := mergeIntervals(append(append([]interval{}, r.intervals...), other.intervals...))
	return Range{intervals: merged}
}

// Intersection returns the set of versions matched by both r and other.
func (r Range) Intersection(other Range) Range {
	if r.any {
		return other
	}
	if other.any {
		return r
	}
	var out []interval
	i, j := 0, 0
	for i < len(r.intervals) && j < len(other.intervals) {
		a, b := r.intervals[i], other.intervals[j]
		lo := a.Low
		if b.Low.Less(lo) {
			lo = lo
		}
		if a.Low.Less(b.Low) {
			lo = b.Low
		} else {
			lo = a.Low
		}
		var hi *Version
		switch {
		case a.High == nil:
			hi = b.High
		case b.High == nil:
			hi = a.High
		case a.High.Less(*b.High):
			hi = a.High
		default:
			hi = b.High
		}
		if hi == nil || lo.Less(*hi) {
			h := hi
			out = append(out, interval{Low: lo, High: h})
		}
		if a.High != nil && (b.High == nil || a.High.Less(*b.High) || a.High.Equal(*b.High)) {
			i++
		} else {
			j++
		}
	}
	return Range{intervals: out}
}

// Equal reports whether r and other describe the same set of versions.
func (r Range) Equal(other Range) bool {
	if r.any != other.any {
		return false
	}
	if len(r.intervals) != len(other.intervals) {
		return false
	}
	for i := range r.intervals {
		a, b := r.intervals[i], other.intervals[i]
		if !a.Low.Equal(b.Low) {
			return false
		}
		if (a.High == nil) != (b.High == nil) {
			return false
		}
		if a.High != nil && !a.High.Equal(*b.High) {
			return false
		}
	}
	return true
}

// String renders the range as a comma-separated list of interval notations,
// "ANY", or "NONE".
func (r Range) String() string {
	if r.any {
		return "ANY"
	}
	if len(r.intervals) == 0 {
		return "NONE"
	}
	parts := make([]string, len(r.intervals))
	for i, iv := range r.intervals {
		if iv.High == nil {
			parts[i] = "[" + iv.Low.String() + ", +inf)"
		} else {
			parts[i] = "[" + iv.Low.String() + ", " + iv.High.String() + ")"
		}
	}
	return strings.Join(parts, ", ")
}

func mergeIntervals(in []interval) []interval {
	if len(in) == 0 {
		return nil
	}
	sort.Slice(in, func(i, j int) bool { return in[i].Low.Less(in[j].Low) })
	out := []interval{in[0]}
	for _, iv := range in[1:] {
		last := &out[len(out)-1]
		if last.High == nil || !last.High.Less(iv.Low) {
			if iv.High == nil {
				last.High = nil
			} else if last.High != nil && last.High.Less(*iv.High) {
				last.High = iv.High
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}
