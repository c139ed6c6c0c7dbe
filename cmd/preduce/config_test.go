package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileConfigMissingFileReturnsZeroValue(t *testing.T) {
	cfg, err := loadFileConfig(filepath.Join(t.TempDir(), "no-such.toml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Predicate)
	assert.Nil(t, cfg.Reducers)
}

func TestLoadFileConfigParsesKnownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".preduce.toml")
	contents := `
predicate = ["./is-interesting.sh"]
worker_count = 4
queue_depth = 256
merge_enabled = false
ledger = "sqlite:run.db"
notify_url = "https://example.test/hook"

[reducers]
chunks = "preduce-chunks"
balanced = "preduce-balanced -pair=curly"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := loadFileConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"./is-interesting.sh"}, cfg.Predicate)
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, 256, cfg.QueueDepth)
	require.NotNil(t, cfg.MergeEnabled)
	assert.False(t, *cfg.MergeEnabled)
	assert.Equal(t, "sqlite:run.db", cfg.Ledger)
	assert.Equal(t, "https://example.test/hook", cfg.NotifyURL)
	assert.Equal(t, "preduce-chunks", cfg.Reducers["chunks"])
	assert.Equal(t, "preduce-balanced -pair=curly", cfg.Reducers["balanced"])
}

func TestLoadFileConfigRejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".preduce.toml")
	require.NoError(t, os.WriteFile(path, []byte("not = [valid"), 0o644))

	_, err := loadFileConfig(path)
	assert.Error(t, err)
}

func TestDefaultWorkerCountKeepsPositiveRequest(t *testing.T) {
	assert.Equal(t, 7, defaultWorkerCount(7))
}

func TestDefaultWorkerCountResolvesNonPositiveToGOMAXPROCS(t *testing.T) {
	assert.Greater(t, defaultWorkerCount(0), 0)
	assert.Greater(t, defaultWorkerCount(-1), 0)
}
