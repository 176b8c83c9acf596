package runner

import (
	"errors"
	"io/fs"
	"time"

	"permutest/internal/ledger"
	"permutest/internal/trial"
)

// abandonedSampleSize caps how many abandoned tasks the summary lists; the
// ledger holds the rest.
const abandonedSampleSize = 5

// AbandonedTask is one abandoned entry surfaced for triage.
type AbandonedTask struct {
	TaskID     ledger.TaskID
	Attempts   int
	FinalError string
}

// Summary is the run-end report: state counts, accuracy over the completed
// tasks' final records, and a sample of what was given up on.
type Summary struct {
	ExperimentID   string
	Status         string
	Counts         ledger.Counts
	Correct        int
	Incorrect      int
	Unscored       int
	Accuracy       float64
	Abandoned      []AbandonedTask
	AbandonedTotal int
	Duration       time.Duration
	Paths          Paths
}

// buildSummary tallies accuracy from each completed task's last record and
// samples the abandoned set.
func buildSummary(paths Paths, led *ledger.Ledger, status string, duration time.Duration) (Summary, error) {
	snap := led.Snapshot()
	summary := Summary{
		ExperimentID:   snap.ExperimentID,
		Status:         status,
		Counts:         led.Counts(),
		AbandonedTotal: len(snap.Abandoned),
		Duration:       duration,
		Paths:          paths,
	}

	results, err := ledger.ReadResults(paths.Results)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Summary{}, err
	}
	last := make(map[ledger.TaskID]trial.Result, len(results))
	for _, r := range results {
		last[ledger.TaskID(r.TaskID)] = r
	}
	for _, id := range snap.Completed {
		record, ok := last[id]
		if !ok || record.IsCorrect == nil {
			summary.Unscored++
			continue
		}
		if *record.IsCorrect {
			summary.Correct++
		} else {
			summary.Incorrect++
		}
	}
	if scored := summary.Correct + summary.Incorrect; scored > 0 {
		summary.Accuracy = float64(summary.Correct) / float64(scored)
	}

	abandonedIDs := make([]ledger.TaskID, 0, len(snap.Abandoned))
	for id := range snap.Abandoned {
		abandonedIDs = append(abandonedIDs, id)
	}
	ledger.SortTaskIDs(abandonedIDs)
	for _, id := range abandonedIDs {
		if len(summary.Abandoned) == abandonedSampleSize {
			break
		}
		entry := snap.Abandoned[id]
		summary.Abandoned = append(summary.Abandoned, AbandonedTask{
			TaskID:     id,
			Attempts:   entry.Attempts,
			FinalError: entry.FinalError,
		})
	}
	return summary, nil
}
