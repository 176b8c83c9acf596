package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"permutest/internal/ledger"
	"permutest/internal/trial"
)

// Load collects an Entry per experiment directory under outputDir. A
// directory qualifies when it holds a readable ledger; unreadable ones are
// skipped so a single broken experiment does not take down the report.
func Load(outputDir string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(outputDir)
	if err != nil {
		return nil, fmt.Errorf("read output dir: %w", err)
	}
	entries := make([]Entry, 0, len(dirEntries))
	for _, dirEntry := range dirEntries {
		if !dirEntry.IsDir() {
			continue
		}
		dir := filepath.Join(outputDir, dirEntry.Name())
		snap, err := ledger.Inspect(dir)
		if err != nil {
			continue
		}
		entry := Entry{
			ExperimentID: snap.ExperimentID,
			Status:       snap.Status,
			Total:        snap.TotalExpected,
			Completed:    len(snap.Completed),
			RetryQueued:  len(snap.RetryQueue),
			Abandoned:    len(snap.Abandoned),
		}
		entry.Correct, entry.Judged = countOutcomes(dir, snap.Completed)
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ExperimentID < entries[j].ExperimentID
	})
	return entries, nil
}

// countOutcomes tallies judged and correct trials over the last record per
// completed task. A missing results file means no attempts were recorded yet.
func countOutcomes(dir string, completed []ledger.TaskID) (correct, judged int) {
	results, err := ledger.ReadResults(filepath.Join(dir, ledger.ResultsFileName))
	if err != nil {
		return 0, 0
	}
	last := make(map[ledger.TaskID]trial.Result, len(results))
	for _, record := range results {
		last[ledger.TaskID(record.TaskID)] = record
	}
	for _, id := range completed {
		record, ok := last[id]
		if !ok || record.IsCorrect == nil {
			continue
		}
		judged++
		if *record.IsCorrect {
			correct++
		}
	}
	return correct, judged
}
