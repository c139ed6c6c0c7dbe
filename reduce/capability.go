package reduce

// ReducerProcess is the narrow capability set the core needs from a
// reducer, whether it runs out-of-process (driver.Adapter) or in-process
// (rangeengine.Adapter). Per spec.md's "dynamic dispatch over reducers"
// design note, both are modeled as this one polymorphic handle rather
// than as two separate code paths through the reducer actor.
//
// Every method keeps its reducer's iteration state internal to the
// implementation — the reducer actor never inspects or threads it
// through itself, matching the IPC protocol's opaque-state contract.
type ReducerProcess interface {
	// Spawn initializes the reducer for seedPath: spawning a child
	// process and exchanging the New request, or computing an initial
	// range list, depending on implementation.
	Spawn(seedPath string) error

	// Reduce materializes a candidate at destPath derived from seedPath.
	// A false result means this state produced no candidate, not
	// necessarily that the reducer is exhausted.
	Reduce(seedPath, destPath string) (bool, error)

	// Next advances past a not-interesting verdict. exhausted is true
	// when there is no further state to try.
	Next(seedPath string) (exhausted bool, err error)

	// NextOnInteresting advances (and, for the range engine, repairs)
	// state after the candidate built from the current state was judged
	// interesting. newLen is the byte length of newSeedPath.
	NextOnInteresting(oldSeedPath, newSeedPath string, newLen int64) (exhausted bool, err error)

	// FastForward skips n Next advances at once.
	FastForward(seedPath string, n int) (exhausted bool, err error)

	// Shutdown releases any resources (child process, file handles).
	// Idempotent: a second call is a no-op.
	Shutdown() error
}
