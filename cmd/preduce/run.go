package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fitzgen/preduce/driver"
	"github.com/fitzgen/preduce/emit"
	"github.com/fitzgen/preduce/ledger"
	"github.com/fitzgen/preduce/predicate"
	"github.com/fitzgen/preduce/reduce"
)

// runOptions holds the resolved configuration for one reduction run,
// merged from .preduce.toml and command-line flags (flags win).
type runOptions struct {
	seedPath     string
	predicate    []string
	reducers     map[string]string // id -> "argv0 argv1 ..."
	workerCount  int
	queueDepth   int
	mergeEnabled bool
	outputPath   string
	ledgerDSN    string
	logJSON      bool
	notifyURL    string
}

// runReduction wires a Supervisor per spec.md §4.7 out of opts and drives
// it to completion, returning the final smallest interesting test case's
// content.
func runReduction(ctx context.Context, opts runOptions) ([]byte, error) {
	start := time.Now()
	tuneGOMAXPROCS()

	if len(opts.predicate) == 0 {
		return nil, fmt.Errorf("preduce: no predicate configured")
	}
	if len(opts.reducers) == 0 {
		return nil, fmt.Errorf("preduce: no reducers configured")
	}

	pred := predicate.New(opts.predicate)

	procs := make(map[string]reduce.ReducerProcess, len(opts.reducers))
	var adapters []*driver.Adapter
	for id, spec := range opts.reducers {
		argv := strings.Fields(spec)
		if len(argv) == 0 {
			return nil, fmt.Errorf("preduce: reducer %q has no command", id)
		}
		a := driver.NewAdapter(argv)
		procs[id] = a
		adapters = append(adapters, a)
	}
	defer func() {
		for _, a := range adapters {
			a.Shutdown()
		}
	}()

	runDir, err := os.MkdirTemp("", "preduce-run-*")
	if err != nil {
		return nil, fmt.Errorf("preduce: create run directory: %w", err)
	}
	defer os.RemoveAll(runDir)

	runID := uuid.NewString()

	logEmitter := emit.NewLogEmitter(os.Stderr, opts.logJSON)
	emitters := []emit.Emitter{logEmitter}

	var led ledger.Ledger
	if opts.ledgerDSN != "" {
		led, err = openLedger(opts.ledgerDSN)
		if err != nil {
			return nil, err
		}
		defer led.Close()
		emitters = append(emitters, ledger.NewEmitter(led, runID))
	}

	metrics := reduce.NewMetrics(nil)

	options := []reduce.Option{
		reduce.WithWorkerCount(opts.workerCount),
		reduce.WithQueueDepth(opts.queueDepth),
		reduce.WithEmitter(emit.NewMultiEmitter(emitters...)),
		reduce.WithMetrics(metrics),
	}
	if !opts.mergeEnabled {
		options = append(options, reduce.WithMergeDisabled())
	}

	sup, err := reduce.New(opts.seedPath, procs, pred, runDir, options...)
	if err != nil {
		return nil, fmt.Errorf("preduce: %w", err)
	}

	guard := reduce.InstallSigintGuard()
	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	go guard.Watch(watchCtx, sup)

	smallest, err := sup.Run(ctx)
	cancelWatch()
	if err != nil && !errors.Is(err, reduce.ErrInterrupted) {
		return nil, err
	}

	data, readErr := os.ReadFile(smallest.TempFile.Path())
	if readErr != nil {
		return nil, fmt.Errorf("preduce: read final test case: %w", readErr)
	}

	if opts.notifyURL != "" {
		notify(opts.notifyURL, runID, smallest.Size, time.Since(start))
	}

	if opts.outputPath != "" {
		if err := os.WriteFile(opts.outputPath, data, 0o644); err != nil {
			return nil, fmt.Errorf("preduce: write output %s: %w", opts.outputPath, err)
		}
	}

	return data, err
}

// resolveReducers merges named reducer commands from file config with
// any --reducer flags (flags override a same-named file entry).
func resolveReducers(fileReducers map[string]string, flagReducers []string) (map[string]string, error) {
	out := make(map[string]string, len(fileReducers)+len(flagReducers))
	for id, cmd := range fileReducers {
		out[id] = cmd
	}
	for _, spec := range flagReducers {
		id, cmd, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, fmt.Errorf("preduce: --reducer %q: want id=command", spec)
		}
		out[id] = cmd
	}
	return out, nil
}

// absPath resolves path relative to the working directory, for seed and
// output paths passed across the IPC boundary to child processes that
// may run with a different cwd.
func absPath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, path), nil
}
