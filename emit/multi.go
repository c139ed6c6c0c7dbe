package emit

import "context"

// MultiEmitter fans one event stream out to several Emitters, e.g. a
// LogEmitter for operator visibility alongside a ledger.Emitter for
// durable history.
type MultiEmitter struct {
	emitters []Emitter
}

// NewMultiEmitter returns a MultiEmitter forwarding to each of emitters,
// in order.
func NewMultiEmitter(emitters ...Emitter) *MultiEmitter {
	return &MultiEmitter{emitters: emitters}
}

func (m *MultiEmitter) Emit(event Event) {
	for _, e := range m.emitters {
		e.Emit(event)
	}
}

func (m *MultiEmitter) Flush(ctx context.Context) error {
	for _, e := range m.emitters {
		if err := e.Flush(ctx); err != nil {
			return err
		}
	}
	return nil
}
