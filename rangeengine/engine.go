package rangeengine

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
)

// RangeRule computes the initial set of candidate removal ranges for a
// seed file: every line, every balanced-bracket region, every regex
// capture extent, and so on. cmd/reducers/chunks and cmd/reducers/balanced
// each supply one.
type RangeRule interface {
	// Ranges returns the candidate ranges for the file at seedPath. Every
	// range must satisfy Start < End.
	Ranges(seedPath string) ([]Range, error)

	// Less optionally overrides the default sort order (longer ranges
	// first, ties broken by start descending). Return nil to use the
	// default.
	Less() func(a, b Range) bool
}

// State is the engine's restartable, serializable position: the current
// range list plus the chunk-halving cursor. It round-trips through the
// reducer-script IPC protocol as the opaque "state" value when this
// engine is driven out-of-process (see Serve), and is held
// directly in-process otherwise.
type State struct {
	Ranges    []Range `json:"ranges"`
	ChunkSize int     `json:"chunk_size"`
	Index     int     `json:"index"`
}

// Engine drives the chunk-halving strategy described in spec.md §4.3.
type Engine struct {
	rule RangeRule
}

// New returns an Engine using rule to compute the initial range list.
func New(rule RangeRule) *Engine {
	return &Engine{rule: rule}
}

// Seed computes the initial State for seedPath: the rule's ranges,
// normalized, with chunk_size equal to the range count and index 0.
func (e *Engine) Seed(seedPath string) (*State, error) {
	ranges, err := e.rule.Ranges(seedPath)
	if err != nil {
		return nil, fmt.Errorf("rangeengine: compute ranges: %w", err)
	}
	if len(ranges) == 0 {
		return &State{ChunkSize: 0}, nil
	}
	normalized, err := normalize(ranges, e.rule.Less())
	if err != nil {
		return nil, err
	}
	return &State{
		Ranges:    normalized,
		ChunkSize: len(normalized),
		Index:     0,
	}, nil
}

// window returns the [lo, hi) slice bounds of the range currently
// proposed for removal, or ok=false if the state is exhausted.
func (s *State) window() (lo, hi int, ok bool) {
	if s.ChunkSize <= 0 || len(s.Ranges) == 0 {
		return 0, 0, false
	}
	lo = s.Index
	hi = s.Index + s.ChunkSize
	if hi > len(s.Ranges) {
		return 0, 0, false
	}
	return lo, hi, true
}

// Reduce materializes a candidate at destPath by copying seedPath with
// the currently-windowed ranges removed. It reports false (no error) if
// the state has no window to propose right now.
func (e *Engine) Reduce(seedPath, destPath string, s *State) (bool, error) {
	lo, hi, ok := s.window()
	if !ok {
		return false, nil
	}
	chosen := byStart(s.Ranges[lo:hi])

	if err := copyExcluding(seedPath, destPath, chosen); err != nil {
		return false, err
	}
	return true, nil
}

// copyExcluding stream-copies src to dest, skipping bytes inside any of
// the (start-sorted) excluded ranges. Overlapping or adjacent ranges are
// handled by always advancing the read cursor to max(cursor, range.End)
// when a range is applied.
func copyExcluding(srcPath, destPath string, excluded []Range) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("rangeengine: open seed: %w", err)
	}
	defer src.Close()

	dest, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("rangeengine: create candidate: %w", err)
	}
	defer dest.Close()

	w := bufio.NewWriter(dest)
	var cursor int64
	for _, r := range excluded {
		start, end := r.Start, r.End
		if start < cursor {
			start = cursor
		}
		if start > end {
			continue
		}
		if start > cursor {
			if err := copySpan(w, src, cursor, start); err != nil {
				return err
			}
		}
		if end > cursor {
			cursor = end
		}
	}

	if _, err := src.Seek(cursor, io.SeekStart); err != nil {
		return fmt.Errorf("rangeengine: seek seed: %w", err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("rangeengine: copy seed tail: %w", err)
	}
	return w.Flush()
}

// copySpan copies [from, to) of src (already positioned arbitrarily) to
// w, seeking src first.
func copySpan(w io.Writer, src *os.File, from, to int64) error {
	if _, err := src.Seek(from, io.SeekStart); err != nil {
		return fmt.Errorf("rangeengine: seek span: %w", err)
	}
	if _, err := io.CopyN(w, src, to-from); err != nil {
		return fmt.Errorf("rangeengine: copy span: %w", err)
	}
	return nil
}

// Next advances s after a not-interesting verdict: move the window one
// step forward; when the window would fall off the end, halve
// chunk_size and reset index to 0; when chunk_size reaches 0 the
// strategy is exhausted (nil, nil).
func (e *Engine) Next(s *State) (*State, error) {
	next := *s
	next.Index++
	if next.Index+next.ChunkSize > len(next.Ranges) {
		next.ChunkSize /= 2
		next.Index = 0
	}
	if next.ChunkSize <= 0 {
		return nil, nil
	}
	return &next, nil
}

// FastForward applies n Next advances without visiting each window:
// within one chunk size it moves Index directly, so it takes one step
// per chunk-size level rather than one per advance.
func (e *Engine) FastForward(s *State, n int) (*State, error) {
	if n <= 0 {
		return s, nil
	}
	next := *s
	for {
		if next.ChunkSize <= 0 {
			return nil, nil
		}
		room := len(next.Ranges) - next.ChunkSize - next.Index
		if room < 0 {
			room = 0
		}
		if n <= room {
			next.Index += n
			return &next, nil
		}
		n -= room + 1
		next.ChunkSize /= 2
		next.Index = 0
	}
}

// NextOnInteresting repairs s after the window [Index, Index+ChunkSize)
// was accepted as interesting, shrinking the seed to newLen bytes.
// It partitions the range list into the removed window and the
// survivors, merges adjacent/overlapping removed intervals, and shifts
// each survivor's coordinates by how many removed bytes fell before (and
// up to/inside) it. This is O(n^2) in range count.
func (e *Engine) NextOnInteresting(s *State, newLen int64) (*State, error) {
	lo, hi, ok := s.window()
	if !ok {
		return nil, fmt.Errorf("rangeengine: NextOnInteresting called with no active window")
	}

	removed := append([]Range(nil), s.Ranges[lo:hi]...)
	survivors := append([]Range(nil), s.Ranges[:lo]...)
	survivors = append(survivors, s.Ranges[hi:]...)

	sortByStart(removed)
	merged := mergeIntervals(removed)
	sortByStart(survivors)

	var repaired []Range
	for _, r := range survivors {
		if r.Start >= newLen || r.End >= newLen {
			continue // stale past EOF
		}

		var deltaStart, deltaEnd int64
		for _, m := range merged {
			if m.Start >= r.End {
				break
			}
			length := m.Len()
			if m.Start < r.Start {
				if d := r.Start - m.Start; d < length {
					deltaStart += d
				} else {
					deltaStart += length
				}
			}
			if m.Start < r.End {
				if d := r.End - m.Start; d < length {
					deltaEnd += d
				} else {
					deltaEnd += length
				}
			}
		}

		newStart := r.Start - deltaStart
		newEnd := r.End - deltaEnd
		if newStart >= newEnd {
			continue
		}
		if newEnd > newLen {
			continue
		}
		repaired = append(repaired, Range{Start: newStart, End: newEnd})
	}

	if len(repaired) == 0 {
		return nil, nil
	}

	normalized, err := normalize(repaired, e.rule.Less())
	if err != nil {
		return nil, err
	}

	chunkSize := len(normalized)
	if s.ChunkSize < chunkSize {
		chunkSize = s.ChunkSize
	}
	if chunkSize <= 0 {
		chunkSize = len(normalized)
	}
	index := 0
	if s.Index+chunkSize <= len(normalized) {
		index = s.Index
	}

	return &State{Ranges: normalized, ChunkSize: chunkSize, Index: index}, nil
}

func sortByStart(ranges []Range) {
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Start < ranges[j].Start })
}

// mergeIntervals merges overlapping or adjacent intervals in a
// start-sorted slice.
func mergeIntervals(sorted []Range) []Range {
	if len(sorted) == 0 {
		return nil
	}
	out := []Range{sorted[0]}
	for _, r := range sorted[1:] {
		last := &out[len(out)-1]
		if r.Start <= last.End {
			if r.End > last.End {
				last.End = r.End
			}
			continue
		}
		out = append(out, r)
	}
	return out
}
