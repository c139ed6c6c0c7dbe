package driver

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests drive a real /bin/cat child process instead of a reducer
// script: cat echoes each request line back verbatim, and since Request
// and Response share the "tag"/"state" field names, decoding an echoed
// request as a Response is a valid (if minimal) round trip — enough to
// exercise Driver's framing and lifecycle without a purpose-built fixture
// binary.

func TestDriverSpawnRoundTripsTag(t *testing.T) {
	d := New([]string{"/bin/cat"})
	defer d.Shutdown()

	state, err := d.Spawn(filepath.Join(t.TempDir(), "seed"))
	require.NoError(t, err)
	assert.Nil(t, state, "the echoed request carries no state field, so Spawn sees none")
}

func TestDriverSpawnCalledTwiceErrors(t *testing.T) {
	d := New([]string{"/bin/cat"})
	defer d.Shutdown()

	_, err := d.Spawn(filepath.Join(t.TempDir(), "seed"))
	require.NoError(t, err)

	_, err = d.Spawn(filepath.Join(t.TempDir(), "seed"))
	assert.Error(t, err)
}

func TestDriverRoundTripOnNonRunningDriverErrors(t *testing.T) {
	d := New([]string{"/bin/cat"})
	_, err := d.Reduce("seed", "dest", nil)
	assert.Error(t, err)
}

func TestDriverShutdownBeforeSpawnIsANoOp(t *testing.T) {
	d := New([]string{"/bin/cat"})
	assert.NoError(t, d.Shutdown())
}

func TestDriverShutdownIsIdempotent(t *testing.T) {
	d := New([]string{"/bin/cat"})
	_, err := d.Spawn(filepath.Join(t.TempDir(), "seed"))
	require.NoError(t, err)

	require.NoError(t, d.Shutdown())
	assert.NoError(t, d.Shutdown())
}

func TestDriverNextWithNoEchoedNextStateSignalsExhaustion(t *testing.T) {
	d := New([]string{"/bin/cat"})
	defer d.Shutdown()

	_, err := d.Spawn(filepath.Join(t.TempDir(), "seed"))
	require.NoError(t, err)

	state, err := json.Marshal(map[string]int{"index": 0})
	require.NoError(t, err)

	next, err := d.Next(filepath.Join(t.TempDir(), "seed"), state)
	require.NoError(t, err)
	assert.Nil(t, next, "cat echoes the request back, which has no next_state field")
}
