// Command preduce is the CLI front end for the reduction search engine:
// it wires a predicate and a set of reducer programs into a
// reduce.Supervisor, drives it to completion, and optionally reports on
// or persists the run's history.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "preduce",
		Short:         "Parallel, generic test-case reducer",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.AddCommand(newReduceCmd())
	root.AddCommand(newHistogramsCmd())
	return root
}

func newReduceCmd() *cobra.Command {
	var (
		configPath   string
		predicateStr string
		reducerSpecs []string
		workerCount  int
		queueDepth   int
		mergeEnabled bool
		outputPath   string
		ledgerDSN    string
		logJSON      bool
		notifyURL    string
	)

	cmd := &cobra.Command{
		Use:   "reduce SEED",
		Short: "Reduce SEED to the smallest test case the predicate still judges interesting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seedPath, err := absPath(args[0])
			if err != nil {
				return err
			}

			fileCfg, err := loadFileConfig(configPath)
			if err != nil {
				return err
			}

			reducers, err := resolveReducers(fileCfg.Reducers, reducerSpecs)
			if err != nil {
				return err
			}

			pred := fileCfg.Predicate
			if predicateStr != "" {
				pred = strings.Fields(predicateStr)
			}

			merge := mergeEnabled
			if fileCfg.MergeEnabled != nil && !cmd.Flags().Changed("merge") {
				merge = *fileCfg.MergeEnabled
			}

			workers := workerCount
			if workers <= 0 && fileCfg.WorkerCount > 0 {
				workers = fileCfg.WorkerCount
			}
			workers = defaultWorkerCount(workers)

			depth := queueDepth
			if depth <= 0 && fileCfg.QueueDepth > 0 {
				depth = fileCfg.QueueDepth
			}
			if depth <= 0 {
				depth = 1024
			}

			dsn := ledgerDSN
			if dsn == "" {
				dsn = fileCfg.Ledger
			}
			notify := notifyURL
			if notify == "" {
				notify = fileCfg.NotifyURL
			}

			opts := runOptions{
				seedPath:     seedPath,
				predicate:    pred,
				reducers:     reducers,
				workerCount:  workers,
				queueDepth:   depth,
				mergeEnabled: merge,
				outputPath:   outputPath,
				ledgerDSN:    dsn,
				logJSON:      logJSON,
				notifyURL:    notify,
			}

			data, err := runReduction(context.Background(), opts)
			if err != nil {
				return err
			}
			if outputPath == "" {
				os.Stdout.Write(data)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&configPath, "config", ".preduce.toml", "path to project config")
	f.StringVar(&predicateStr, "predicate", "", "is-interesting command line, e.g. \"./is-interesting.sh\"")
	f.StringArrayVar(&reducerSpecs, "reducer", nil, "id=command, repeatable; merged with .preduce.toml's [reducers]")
	f.IntVar(&workerCount, "workers", 0, "worker actors (default: tuned GOMAXPROCS)")
	f.IntVar(&queueDepth, "queue-depth", 0, "ReductionQueue capacity (default: 1024)")
	f.BoolVar(&mergeEnabled, "merge", true, "attempt three-way merges of independent interesting reductions")
	f.StringVarP(&outputPath, "output", "o", "", "write the final test case here instead of stdout")
	f.StringVar(&ledgerDSN, "ledger", "", "durable history backend: sqlite:PATH or mysql:DSN")
	f.BoolVar(&logJSON, "log-json", false, "emit structured JSON log lines instead of text")
	f.StringVar(&notifyURL, "notify-url", "", "POST a JSON summary here when the run finishes")

	return cmd
}

func newHistogramsCmd() *cobra.Command {
	var ledgerDSN string

	cmd := &cobra.Command{
		Use:   "histograms RUN_ID",
		Short: "Print a per-reducer judged-candidate breakdown for a past run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if ledgerDSN == "" {
				return fmt.Errorf("preduce: --ledger is required")
			}
			led, err := openLedger(ledgerDSN)
			if err != nil {
				return err
			}
			defer led.Close()
			return printHistograms(context.Background(), led, args[0])
		},
	}

	cmd.Flags().StringVar(&ledgerDSN, "ledger", "", "durable history backend: sqlite:PATH or mysql:DSN")
	return cmd
}
