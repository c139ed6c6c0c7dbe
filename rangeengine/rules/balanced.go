package rules

import (
	"fmt"
	"io"
	"os"

	"github.com/fitzgen/preduce/rangeengine"
)

// Balanced is a RangeRule whose ranges are the spans of every matched
// Open/Close pair in the seed file: one range for the full span
// (brackets included) and, when non-empty, one more for the inner span
// (brackets excluded) — so the engine can try deleting a block either
// with or without its delimiters.
type Balanced struct {
	Open, Close byte
}

// Paren, Curly, Square, and Angle are the bracket pairs the balanced
// reducer binary supports via its -pair flag.
var (
	Paren  = Balanced{Open: '(', Close: ')'}
	Curly  = Balanced{Open: '{', Close: '}'}
	Square = Balanced{Open: '[', Close: ']'}
	Angle  = Balanced{Open: '<', Close: '>'}
)

func (b Balanced) Ranges(seedPath string) ([]rangeengine.Range, error) {
	f, err := os.Open(seedPath)
	if err != nil {
		return nil, fmt.Errorf("rules: open seed: %w", err)
	}
	defer f.Close()

	var ranges []rangeengine.Range
	var stack []int64
	var offset int64

	buf := make([]byte, bufSize)
	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			for _, ch := range buf[:n] {
				switch ch {
				case b.Open:
					stack = append(stack, offset)
				case b.Close:
					if len(stack) > 0 {
						start := stack[len(stack)-1]
						stack = stack[:len(stack)-1]
						ranges = append(ranges, rangeengine.Range{Start: start, End: offset + 1})
						innerStart, innerEnd := start+1, offset
						if innerStart < innerEnd {
							ranges = append(ranges, rangeengine.Range{Start: innerStart, End: innerEnd})
						}
					}
				}
				offset++
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("rules: read seed: %w", readErr)
		}
	}
	return ranges, nil
}

func (Balanced) Less() func(a, b rangeengine.Range) bool { return nil }
