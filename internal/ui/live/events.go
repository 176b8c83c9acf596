package live

import (
	"permutest/internal/ledger"
	"permutest/internal/runner"
)

// EventKind identifies the type of live UI event.
type EventKind int

const (
	// EventRunStart signals the start of a run.
	EventRunStart EventKind = iota
	// EventPhaseStart signals the start of a pass over pending tasks.
	EventPhaseStart
	// EventTrial delivers a task status update.
	EventTrial
	// EventRunEnd signals run completion.
	EventRunEnd
)

// Event carries a UI update payload.
type Event struct {
	Kind         EventKind
	ExperimentID string
	Counts       ledger.Counts
	Phase        runner.Phase
	PhaseTasks   int
	Trial        runner.TrialEvent
	Summary      runner.Summary
}
