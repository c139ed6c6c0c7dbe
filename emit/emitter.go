// Package emit provides pluggable event emission for the reduction search.
//
// Every actor in the supervisor/worker/reducer pipeline reports its state
// transitions through an Emitter rather than calling a logger directly, so
// the same event stream can be printed as text, discarded, buffered for
// tests, or turned into OpenTelemetry spans.
package emit

import "context"

// Emitter receives Events from the supervisor, workers, and reducer actors.
//
// Implementations must not block the caller for long and must not panic;
// a misbehaving observability backend should never stall the reduction
// search.
type Emitter interface {
	// Emit records a single event.
	Emit(event Event)

	// Flush blocks until any buffered events have been delivered, or the
	// context is done. Emitters with no internal buffering may no-op.
	Flush(ctx context.Context) error
}
