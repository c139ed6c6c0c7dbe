// Command chunks is an out-of-process reducer script speaking the IPC
// protocol of spec.md §6: it removes runs of consecutive lines from its
// input, halving the run length after each full pass, per spec.md §4.3.
package main

import (
	"fmt"
	"os"

	"github.com/fitzgen/preduce/rangeengine"
	"github.com/fitzgen/preduce/rangeengine/rules"
)

func main() {
	if err := rangeengine.Serve(rules.Lines{}, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "chunks: %v\n", err)
		os.Exit(1)
	}
}
