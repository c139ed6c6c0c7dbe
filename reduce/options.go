package reduce

import (
	"time"

	"github.com/fitzgen/preduce/emit"
)

// Option configures a Supervisor. Options compose: later options override
// earlier ones when they touch the same field.
type Option func(*supervisorConfig) error

type supervisorConfig struct {
	workerCount   int
	queueDepth    int
	emitter       emit.Emitter
	metrics       *Metrics
	mergeEnabled  bool
	workerTimeout time.Duration
}

func defaultConfig() supervisorConfig {
	return supervisorConfig{
		workerCount:   0, // resolved to GOMAXPROCS by the caller if left at 0
		queueDepth:    1024,
		emitter:       emit.NullEmitter{},
		mergeEnabled:  true,
		workerTimeout: 0, // no per-candidate timeout by default
	}
}

// WithWorkerCount sets how many worker actors run concurrently.
//
// Default: 0, which the caller resolves to runtime.GOMAXPROCS(0) after
// go.uber.org/automaxprocs has tuned it to the container's CPU quota.
func WithWorkerCount(n int) Option {
	return func(cfg *supervisorConfig) error {
		cfg.workerCount = n
		return nil
	}
}

// WithQueueDepth bounds the ReductionQueue's capacity. When full,
// reducer actors block on Enqueue until the supervisor drains a slot.
func WithQueueDepth(n int) Option {
	return func(cfg *supervisorConfig) error {
		cfg.queueDepth = n
		return nil
	}
}

// WithEmitter sets where actor events are reported. Default: emit.NullEmitter.
func WithEmitter(e emit.Emitter) Option {
	return func(cfg *supervisorConfig) error {
		cfg.emitter = e
		return nil
	}
}

// WithMetrics enables Prometheus metrics collection for queue depth,
// active workers, oracle scores, and judged-candidate counts.
func WithMetrics(m *Metrics) Option {
	return func(cfg *supervisorConfig) error {
		cfg.metrics = m
		return nil
	}
}

// WithMergeDisabled turns off the worker's three-way merge of independent
// interesting reductions. Useful when a predicate is expensive enough
// that the extra merge-candidate test isn't worth its cost.
func WithMergeDisabled() Option {
	return func(cfg *supervisorConfig) error {
		cfg.mergeEnabled = false
		return nil
	}
}

// WithWorkerTimeout records a per-candidate worker timeout in the
// supervisor's configuration. Default: 0. The value is stored only: no
// worker reads it, and candidate testing runs without a time limit.
func WithWorkerTimeout(d time.Duration) Option {
	return func(cfg *supervisorConfig) error {
		cfg.workerTimeout = d
		return nil
	}
}
