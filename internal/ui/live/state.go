package live

import (
	"time"

	"permutest/internal/ledger"
	"permutest/internal/runner"
)

// TaskRow holds UI state for a single task.
type TaskRow struct {
	TaskID        ledger.TaskID
	QuestionIndex int
	PermIndex     int
	Attempt       int
	Phase         runner.Phase
	Status        runner.TrialEventType
	IsCorrect     *bool
	Error         string
	Latency       time.Duration
	StartedAt     time.Time
	FinishedAt    time.Time
}

// StatusCounts aggregates rows by status bucket.
type StatusCounts struct {
	Running   int
	Retrying  int
	Completed int
	Correct   int
	Incorrect int
	Unscored  int
	Abandoned int
	Skipped   int
}

// State captures the live UI state for an experiment run. Totals holds the
// ledger counts observed at run start, so completed and abandoned totals
// include tasks settled by earlier runs.
type State struct {
	ExperimentID string
	Phase        runner.Phase
	PhaseTasks   int
	Totals       ledger.Counts
	StartedAt    time.Time
	LastEvent    string
	Rows         []TaskRow
	Counts       StatusCounts

	index map[ledger.TaskID]int
}
