// Package rules provides concrete rangeengine.RangeRule implementations:
// line-chunk ranges and balanced-bracket ranges, grounded on preduce's
// own shipped reducer scripts.
package rules

import (
	"fmt"
	"io"
	"os"

	"github.com/fitzgen/preduce/rangeengine"
)

const bufSize = 1024 * 1024

// Lines is a RangeRule whose ranges are every line of the seed file
// (including its trailing newline), so the engine's chunk-halving
// strategy proposes removing contiguous runs of lines.
type Lines struct{}

func (Lines) Ranges(seedPath string) ([]rangeengine.Range, error) {
	f, err := os.Open(seedPath)
	if err != nil {
		return nil, fmt.Errorf("rules: open seed: %w", err)
	}
	defer f.Close()

	var ranges []rangeengine.Range
	buf := make([]byte, bufSize)
	var startOfLine, current int64

	for {
		n, err := f.Read(buf)
		if n > 0 {
			for _, b := range buf[:n] {
				current++
				if b == '\n' {
					ranges = append(ranges, rangeengine.Range{Start: startOfLine, End: current})
					startOfLine = current
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("rules: read seed: %w", err)
		}
	}
	return ranges, nil
}

func (Lines) Less() func(a, b rangeengine.Range) bool { return nil }
