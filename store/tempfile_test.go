package store

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTempFileInCreatesEmptyFile(t *testing.T) {
	tmp, err := NewTempFileIn(t.TempDir())
	require.NoError(t, err)
	defer tmp.Release()

	data, err := os.ReadFile(tmp.Path())
	require.NoError(t, err)
	assert.Empty(t, data)

	size, err := tmp.Size()
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestTempFileCloneSharesPathAndRequiresMatchingReleases(t *testing.T) {
	tmp, err := NewTempFileIn(t.TempDir())
	require.NoError(t, err)

	clone := tmp.Clone()
	assert.Equal(t, tmp.Path(), clone.Path())

	require.NoError(t, tmp.Release())
	_, err = os.Stat(tmp.Dir())
	assert.NoError(t, err, "directory must survive while the clone still holds a reference")

	require.NoError(t, clone.Release())
	_, err = os.Stat(tmp.Dir())
	assert.True(t, os.IsNotExist(err), "directory must be removed once the last reference is released")
}

func TestTempFileSizeReflectsWrittenContent(t *testing.T) {
	tmp, err := NewTempFileIn(t.TempDir())
	require.NoError(t, err)
	defer tmp.Release()

	require.NoError(t, os.WriteFile(tmp.Path(), []byte("hello world"), 0o644))

	size, err := tmp.Size()
	require.NoError(t, err)
	assert.EqualValues(t, len("hello world"), size)
}

func TestAnonymousTempFilesDoNotCollide(t *testing.T) {
	a, err := AnonymousTempFile()
	require.NoError(t, err)
	defer a.Release()

	b, err := AnonymousTempFile()
	require.NoError(t, err)
	defer b.Release()

	assert.NotEqual(t, a.Path(), b.Path())
}
