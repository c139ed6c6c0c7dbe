package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupTestCaseCreatesOrigFile(t *testing.T) {
	dir := t.TempDir()
	seedPath := filepath.Join(dir, "crash.c")
	require.NoError(t, os.WriteFile(seedPath, []byte("int main() {}"), 0o644))

	require.NoError(t, BackupTestCase(seedPath))

	backup, err := os.ReadFile(seedPath + ".orig")
	require.NoError(t, err)
	assert.Equal(t, "int main() {}", string(backup))
}

func TestBackupTestCaseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	seedPath := filepath.Join(dir, "crash.c")
	require.NoError(t, os.WriteFile(seedPath, []byte("original"), 0o644))
	require.NoError(t, BackupTestCase(seedPath))

	// A later run's seed has already been reduced; the backup from the
	// very first run must not be overwritten.
	require.NoError(t, os.WriteFile(seedPath, []byte("already reduced"), 0o644))
	require.NoError(t, BackupTestCase(seedPath))

	backup, err := os.ReadFile(seedPath + ".orig")
	require.NoError(t, err)
	assert.Equal(t, "original", string(backup))
}

func TestBackupTestCaseMissingSeed(t *testing.T) {
	err := BackupTestCase(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}

func TestWriteFileAtomicSurvivesOverExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "candidate")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	require.NoError(t, WriteFileAtomic(path, []byte("new"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}
