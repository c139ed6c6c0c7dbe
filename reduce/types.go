package reduce

import "github.com/fitzgen/preduce/store"

// Verdict is what a predicate returns for a candidate test case: whether
// the property under reduction still holds.
type Verdict bool

const (
	NotInteresting Verdict = false
	Judged         Verdict = true
)

// PotentialReduction is a candidate test case proposed by a reducer
// actor, not yet judged by the predicate. Consumed exactly once, by a
// worker: either discarded or promoted to an Interesting.
type PotentialReduction struct {
	// Provenance is a non-empty identifier of the producing reducer, e.g.
	// "chunks".
	Provenance string

	// ParentCommit is the commit id of the seed this candidate was
	// derived from.
	ParentCommit string

	// ParentContent is the byte content of the seed this candidate was
	// derived from, captured at production time so a worker can use it
	// as the merge base even after its own repository clone has moved
	// past that commit.
	ParentContent []byte

	// TempFile holds the candidate's content. Released by the supervisor
	// when the candidate is rejected or evicted from the queue.
	TempFile *store.TempFile

	// Size is the cached byte length of TempFile's content.
	Size int64

	// ReducerID identifies which reducer actor produced this candidate,
	// so the supervisor can credit its verdict to that reducer's oracle
	// score, which the queue orders candidates by.
	ReducerID string
}

// Interesting is a test case the predicate judged true for. Its
// TempFile's content is always byte-identical to the blob at
// CommitID:test_case in the repository.
type Interesting struct {
	// Provenance is the identifier of the reducer that produced this
	// case. The very first Interesting (the seed) has provenance
	// "<initial>".
	Provenance string

	// CommitID is this case's commit in the versioned repository.
	CommitID string

	// TempFile holds this case's content, a clone independent of the
	// repository's own working-tree file.
	TempFile *store.TempFile

	// Size is the cached byte length of TempFile's content.
	Size int64
}
