package live

import (
	"time"

	"permutest/internal/ledger"
	"permutest/internal/runner"
)

// Reduce applies a UI event to the state.
func Reduce(state State, event Event) State {
	switch event.Kind {
	case EventRunStart:
		state.ExperimentID = event.ExperimentID
		state.Totals = event.Counts
		if state.StartedAt.IsZero() {
			state.StartedAt = time.Now()
		}
	case EventPhaseStart:
		state.Phase = event.Phase
		state.PhaseTasks = event.PhaseTasks
		if event.Phase == runner.PhaseRetry {
			state.LastEvent = "Retry phase: " + fmtInt(event.PhaseTasks) + " tasks after cooldown"
		}
	case EventTrial:
		state = ensureRow(state, event.Trial)
		state = applyTrialEvent(state, event.Trial)
		state.Counts = recount(state.Rows)
		if message := formatLastEvent(event.Trial); message != "" {
			state.LastEvent = message
		}
	case EventRunEnd:
		state.Totals = event.Summary.Counts
		state.LastEvent = "Run " + event.Summary.Status
	}
	return state
}

// ensureRow adds a row for the task if none exists yet. Rows keep first-seen
// order, which follows the plan's question-then-permutation ordering.
func ensureRow(state State, event runner.TrialEvent) State {
	if event.TaskID == "" {
		return state
	}
	if state.index == nil {
		state.index = make(map[ledger.TaskID]int, 64)
		for i, row := range state.Rows {
			state.index[row.TaskID] = i
		}
	}
	if _, ok := state.index[event.TaskID]; ok {
		return state
	}
	state.Rows = append(state.Rows, TaskRow{
		TaskID:        event.TaskID,
		QuestionIndex: event.QuestionIndex,
		PermIndex:     event.PermIndex,
	})
	state.index[event.TaskID] = len(state.Rows) - 1
	return state
}

// applyTrialEvent updates the task's row with the given event.
func applyTrialEvent(state State, event runner.TrialEvent) State {
	i, ok := state.index[event.TaskID]
	if !ok {
		return state
	}
	row := state.Rows[i]
	row.Attempt = event.Attempt
	row.Phase = event.Phase
	row.Status = event.Type
	switch event.Type {
	case runner.TrialStarted:
		if row.StartedAt.IsZero() {
			row.StartedAt = event.EmittedAt
		}
		row.Error = ""
	case runner.TrialFailed:
		row.Error = event.Error
	case runner.TrialCompleted:
		row.IsCorrect = event.IsCorrect
		row.Latency = event.Latency
		row.FinishedAt = event.EmittedAt
		row.Error = ""
	case runner.TrialAbandoned:
		row.Error = event.Error
		row.FinishedAt = event.EmittedAt
	case runner.TrialSkipped:
		row.FinishedAt = event.EmittedAt
	}
	state.Rows[i] = row
	return state
}

// recount recomputes status counts for the current rows.
func recount(rows []TaskRow) StatusCounts {
	var counts StatusCounts
	for _, row := range rows {
		switch row.Status {
		case runner.TrialStarted:
			counts.Running++
		case runner.TrialFailed:
			counts.Retrying++
		case runner.TrialCompleted:
			counts.Completed++
			switch {
			case row.IsCorrect == nil:
				counts.Unscored++
			case *row.IsCorrect:
				counts.Correct++
			default:
				counts.Incorrect++
			}
		case runner.TrialAbandoned:
			counts.Abandoned++
		case runner.TrialSkipped:
			counts.Skipped++
		}
	}
	return counts
}

// formatLastEvent creates a short footer message for the event.
func formatLastEvent(event runner.TrialEvent) string {
	id := string(event.TaskID)
	switch event.Type {
	case runner.TrialFailed:
		return "Task " + id + " attempt " + fmtInt(event.Attempt) + " failed: " + event.Error
	case runner.TrialCompleted:
		switch {
		case event.IsCorrect == nil:
			return "Task " + id + " completed (unscored)"
		case *event.IsCorrect:
			return "Task " + id + " answered correctly"
		default:
			return "Task " + id + " answered incorrectly"
		}
	case runner.TrialAbandoned:
		if event.Error != "" {
			return "Task " + id + " abandoned after " + fmtInt(event.Attempt) + " attempts: " + event.Error
		}
		return "Task " + id + " abandoned after " + fmtInt(event.Attempt) + " attempts"
	case runner.TrialSkipped:
		return "Task " + id + " skipped by shutdown"
	}
	return ""
}
