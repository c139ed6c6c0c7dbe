// Package merge implements the three-way merge the worker actor attempts
// when a candidate's parent is no longer the supervisor's current
// smallest: base = candidate's parent content, ours = candidate content,
// theirs = the current smallest's content.
package merge

import (
	diffmatchpatch "github.com/sergi/go-diff/diffmatchpatch"
)

// ThreeWay merges ours against theirs, given their common ancestor base.
// It diffs base->ours and applies that patch set to theirs (the result
// is evaluated by the caller — the worker adopts it only if it is
// smaller than theirs and the patch applied cleanly).
//
// This is a textual merge, not a semantic one: it has no notion of the
// candidate's file format, matching the core's domain-agnostic design.
func ThreeWay(base, ours, theirs []byte) (merged []byte, ok bool, err error) {
	dmp := diffmatchpatch.New()

	diffs := dmp.DiffMain(string(base), string(ours), false)
	patches := dmp.PatchMake(string(base), diffs)
	if len(patches) == 0 {
		return nil, false, nil
	}

	result, applied := dmp.PatchApply(patches, string(theirs))
	for _, a := range applied {
		if !a {
			return nil, false, nil
		}
	}
	return []byte(result), true, nil
}
