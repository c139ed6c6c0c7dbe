package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/BurntSushi/toml"
	"go.uber.org/automaxprocs/maxprocs"
)

// fileConfig is the shape of .preduce.toml, a project-level default for
// flags the user would otherwise repeat on every invocation.
type fileConfig struct {
	Predicate    []string          `toml:"predicate"`
	Reducers     map[string]string `toml:"reducers"`
	WorkerCount  int               `toml:"worker_count"`
	QueueDepth   int               `toml:"queue_depth"`
	MergeEnabled *bool             `toml:"merge_enabled"`
	Ledger       string            `toml:"ledger"`
	NotifyURL    string            `toml:"notify_url"`
}

// loadFileConfig reads .preduce.toml at path. A missing file is not an
// error: callers fall back to flag defaults.
func loadFileConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// tuneGOMAXPROCS applies cgroup-aware CPU quota tuning before resolving a
// default worker count, so an unset -workers on a container with a
// fractional CPU quota doesn't oversubscribe.
func tuneGOMAXPROCS() {
	_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))
}

// defaultWorkerCount resolves an unset (<=0) worker count to the tuned
// GOMAXPROCS value.
func defaultWorkerCount(requested int) int {
	if requested > 0 {
		return requested
	}
	return runtime.GOMAXPROCS(0)
}
