package runner

import (
	"encoding/json"
	"fmt"
	"os"

	"permutest/internal/ledger"
	"permutest/internal/trial"
)

// ConsolidateStats reports what consolidation processed.
type ConsolidateStats struct {
	Attempts int
	Tasks    int
}

// Consolidate collapses the append-only attempt log into one record per
// completed task, last attempt wins, ordered by question then permutation
// index. The output is what analysis reads; the attempt log keeps the full
// history, including failed and abandoned attempts.
func Consolidate(resultsPath, finalPath string, completed []ledger.TaskID) (ConsolidateStats, error) {
	results, err := ledger.ReadResults(resultsPath)
	if err != nil {
		return ConsolidateStats{}, err
	}

	last := make(map[ledger.TaskID]trial.Result, len(results))
	for _, r := range results {
		last[ledger.TaskID(r.TaskID)] = r
	}
	ids := append([]ledger.TaskID(nil), completed...)
	ledger.SortTaskIDs(ids)

	file, err := os.Create(finalPath)
	if err != nil {
		return ConsolidateStats{}, fmt.Errorf("create final results: %w", err)
	}
	written := 0
	for _, id := range ids {
		record, ok := last[id]
		if !ok {
			// Completed in the ledger but missing from the log; nothing to
			// carry forward.
			continue
		}
		data, err := json.Marshal(record)
		if err != nil {
			file.Close()
			return ConsolidateStats{}, fmt.Errorf("marshal final result: %w", err)
		}
		if _, err := file.Write(append(data, '\n')); err != nil {
			file.Close()
			return ConsolidateStats{}, fmt.Errorf("write final results: %w", err)
		}
		written++
	}
	if err := file.Close(); err != nil {
		return ConsolidateStats{}, fmt.Errorf("close final results: %w", err)
	}
	return ConsolidateStats{Attempts: len(results), Tasks: written}, nil
}
