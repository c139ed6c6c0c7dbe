package emit

import (
	"context"
	"sync"
)

// BufferedEmitter accumulates events in memory instead of writing them
// anywhere, so tests can assert on the exact sequence of actor transitions.
type BufferedEmitter struct {
	mu     sync.Mutex
	events []Event
}

// NewBufferedEmitter returns an empty BufferedEmitter.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{}
}

func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

// Flush is a no-op: nothing to deliver, events are already resident.
func (b *BufferedEmitter) Flush(context.Context) error { return nil }

// Events returns a snapshot of all events recorded so far.
func (b *BufferedEmitter) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

// ByActor returns the subset of recorded events produced by actor.
func (b *BufferedEmitter) ByActor(actor Actor) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Event
	for _, e := range b.events {
		if e.Actor == actor {
			out = append(out, e)
		}
	}
	return out
}

// ByMsg returns the subset of recorded events whose Msg equals msg.
func (b *BufferedEmitter) ByMsg(msg string) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Event
	for _, e := range b.events {
		if e.Msg == msg {
			out = append(out, e)
		}
	}
	return out
}
