// Command balanced is an out-of-process reducer script speaking the IPC
// protocol of spec.md §6: it removes matched bracket pairs (and their
// contents) from its input, per spec.md §4.3's range-removal engine
// applied to rules.Balanced instead of line chunks.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fitzgen/preduce/rangeengine"
	"github.com/fitzgen/preduce/rangeengine/rules"
)

func main() {
	pair := flag.String("pair", "paren", "bracket pair to remove: paren, curly, square, or angle")
	flag.Parse()

	rule, err := ruleFor(*pair)
	if err != nil {
		fmt.Fprintf(os.Stderr, "balanced: %v\n", err)
		os.Exit(1)
	}

	if err := rangeengine.Serve(rule, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "balanced: %v\n", err)
		os.Exit(1)
	}
}

func ruleFor(pair string) (rules.Balanced, error) {
	switch pair {
	case "paren":
		return rules.Paren, nil
	case "curly":
		return rules.Curly, nil
	case "square":
		return rules.Square, nil
	case "angle":
		return rules.Angle, nil
	default:
		return rules.Balanced{}, fmt.Errorf("unknown -pair %q (want paren, curly, square, or angle)", pair)
	}
}
