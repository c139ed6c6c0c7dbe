package emit

import "context"

// NullEmitter discards every event. Used by default when no observability
// backend is configured.
type NullEmitter struct{}

func (NullEmitter) Emit(Event)                 {}
func (NullEmitter) Flush(context.Context) error { return nil }
