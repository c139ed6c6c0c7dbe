package emit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiEmitterFansOutToEveryEmitter(t *testing.T) {
	a := NewBufferedEmitter()
	b := NewBufferedEmitter()
	m := NewMultiEmitter(a, b)

	m.Emit(Event{Msg: "new_smallest"})

	assert.Len(t, a.Events(), 1)
	assert.Len(t, b.Events(), 1)
}

type erroringEmitter struct{ err error }

func (e erroringEmitter) Emit(Event) {}
func (e erroringEmitter) Flush(context.Context) error { return e.err }

func TestMultiEmitterFlushReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	m := NewMultiEmitter(NullEmitter{}, erroringEmitter{err: boom}, NewBufferedEmitter())

	err := m.Flush(context.Background())
	require.Error(t, err)
	assert.Equal(t, boom, err)
}

func TestMultiEmitterFlushSucceedsWhenAllEmittersSucceed(t *testing.T) {
	m := NewMultiEmitter(NullEmitter{}, NewBufferedEmitter())
	assert.NoError(t, m.Flush(context.Background()))
}
