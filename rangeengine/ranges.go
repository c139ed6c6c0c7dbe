// Package rangeengine implements the in-process range-removal reduction
// engine: chunk-halving candidate proposal over a sorted, deduplicated
// list of byte ranges, with O(n^2) coordinate-shift repair after each
// accepted reduction.
package rangeengine

import (
	"fmt"
	"sort"
)

// Range is a non-empty half-open byte interval [Start, End) within the
// current seed.
type Range struct {
	Start int64
	End   int64
}

// Len returns the number of bytes the range spans.
func (r Range) Len() int64 { return r.End - r.Start }

// sortRangesBy is the default range ordering: longer ranges first
// (aggressive cuts are cheaper to try), ties broken by start descending
// (prefer removing from the end of the file first, to avoid perturbing
// references earlier on). A RangeRule may supply its own Less to
// override this, per spec.md's "subclasses may override" note.
func sortRangesBy(ranges []Range, less func(a, b Range) bool) {
	if less == nil {
		less = defaultLess
	}
	sort.SliceStable(ranges, func(i, j int) bool {
		return less(ranges[i], ranges[j])
	})
}

func defaultLess(a, b Range) bool {
	if a.Len() != b.Len() {
		return a.Len() > b.Len()
	}
	return a.Start > b.Start
}

// normalize sorts, dedups, and validates a freshly computed range list.
// Every range must satisfy Start < End; adjacent equal ranges are
// dropped.
func normalize(ranges []Range, less func(a, b Range) bool) ([]Range, error) {
	for _, r := range ranges {
		if r.Start >= r.End {
			return nil, fmt.Errorf("rangeengine: range rule produced an empty or inverted range %v", r)
		}
	}
	sortRangesBy(ranges, less)

	out := ranges[:0]
	for i, r := range ranges {
		if i > 0 && r == out[len(out)-1] {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// byStart orders ranges by Start ascending, used only when materializing
// a candidate (the chosen slice is re-sorted by start before the
// stream-copy, independent of the engine's dispatch order).
func byStart(ranges []Range) []Range {
	out := make([]Range, len(ranges))
	copy(out, ranges)
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}
