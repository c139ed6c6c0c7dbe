package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/aquasecurity/table"

	"github.com/fitzgen/preduce/ledger"
)

// openLedger constructs the Ledger backend named by dsn: "sqlite:PATH" or
// "mysql:DSN". This is the durable history the histograms subcommand reads from.
func openLedger(dsn string) (ledger.Ledger, error) {
	scheme, rest, ok := cutScheme(dsn)
	if !ok {
		return nil, fmt.Errorf("preduce: --ledger %q: want sqlite:PATH or mysql:DSN", dsn)
	}
	switch scheme {
	case "sqlite":
		return ledger.NewSQLiteLedger(rest)
	case "mysql":
		return ledger.NewMySQLLedger(rest)
	default:
		return nil, fmt.Errorf("preduce: --ledger %q: unknown backend %q", dsn, scheme)
	}
}

func cutScheme(dsn string) (scheme, rest string, ok bool) {
	for i := 0; i < len(dsn); i++ {
		if dsn[i] == ':' {
			return dsn[:i], dsn[i+1:], true
		}
	}
	return "", "", false
}

// printHistograms renders a per-reducer breakdown of judged candidates
// for runID from led: how many candidates each reducer proposed, how
// many were interesting, and its interesting-rate, for the histograms
// subcommand: the reporting mode spec.md keeps deliberately out of the core.
func printHistograms(ctx context.Context, led ledger.Ledger, runID string) error {
	records, err := led.History(ctx, runID)
	if err != nil {
		return err
	}

	type stats struct {
		total, interesting int
		bestSize           int64
	}
	byReducer := make(map[string]*stats)
	for _, rec := range records {
		s := byReducer[rec.ReducerID]
		if s == nil {
			s = &stats{bestSize: -1}
			byReducer[rec.ReducerID] = s
		}
		s.total++
		if rec.Interesting {
			s.interesting++
			if s.bestSize < 0 || rec.Size < s.bestSize {
				s.bestSize = rec.Size
			}
		}
	}

	ids := make([]string, 0, len(byReducer))
	for id := range byReducer {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	t := table.New(os.Stdout)
	t.SetHeaders("Reducer", "Judged", "Interesting", "Rate", "Best size")
	for _, id := range ids {
		s := byReducer[id]
		rate := 0.0
		if s.total > 0 {
			rate = float64(s.interesting) / float64(s.total)
		}
		bestSize := "-"
		if s.bestSize >= 0 {
			bestSize = fmt.Sprintf("%d", s.bestSize)
		}
		t.AddRow(id, fmt.Sprintf("%d", s.total), fmt.Sprintf("%d", s.interesting), fmt.Sprintf("%.2f", rate), bestSize)
	}
	t.Render()
	return nil
}

// notify POSTs a short JSON summary of a finished run to url, best-effort
// (failures are printed, not fatal), mirroring the outer-CLI webhook
// pattern of an HTTPTool invoked after the core search completes.
func notify(url, runID string, finalSize int64, elapsed time.Duration) {
	payload, err := json.Marshal(struct {
		RunID       string  `json:"run_id"`
		FinalSize   int64   `json:"final_size"`
		ElapsedSecs float64 `json:"elapsed_seconds"`
	}{runID, finalSize, elapsed.Seconds()})
	if err != nil {
		fmt.Fprintf(os.Stderr, "preduce: marshal notify payload: %v\n", err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		fmt.Fprintf(os.Stderr, "preduce: build notify request: %v\n", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "preduce: notify %s: %v\n", url, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		fmt.Fprintf(os.Stderr, "preduce: notify %s: status %s\n", url, resp.Status)
	}
}
