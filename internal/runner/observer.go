package runner

import (
	"time"

	"permutest/internal/ledger"
)

// Phase identifies which pass of the run a task executed in.
type Phase string

const (
	// PhaseInitial is the first pass over all pending tasks.
	PhaseInitial Phase = "initial"
	// PhaseRetry is the second pass over the retry queue after cooldown.
	PhaseRetry Phase = "retry"
)

// TrialEventType identifies a task status update for observers.
type TrialEventType string

const (
	// TrialStarted marks a claimed task about to call the provider.
	TrialStarted TrialEventType = "started"
	// TrialCompleted marks a task settled with a recorded answer.
	TrialCompleted TrialEventType = "completed"
	// TrialFailed marks a failed attempt that stays eligible for retry.
	TrialFailed TrialEventType = "failed"
	// TrialAbandoned marks a task out of attempts or terminally broken.
	TrialAbandoned TrialEventType = "abandoned"
	// TrialSkipped marks a task left untouched by shutdown.
	TrialSkipped TrialEventType = "skipped"
)

// TrialEvent carries a single status update for a task attempt.
type TrialEvent struct {
	TaskID        ledger.TaskID
	QuestionIndex int
	PermIndex     int
	Attempt       int
	Phase         Phase
	Type          TrialEventType
	IsCorrect     *bool
	Error         string
	Latency       time.Duration
	EmittedAt     time.Time
}

// RunObserver receives run lifecycle events for UI or logging.
type RunObserver interface {
	// OnRunStart signals the start of a run with the resumed state counts.
	OnRunStart(experimentID string, counts ledger.Counts)
	// OnPhaseStart signals the start of a pass and how many tasks it holds.
	OnPhaseStart(phase Phase, tasks int)
	// OnTrialEvent delivers a task status update.
	OnTrialEvent(event TrialEvent)
	// OnRunEnd signals completion with the final summary.
	OnRunEnd(summary Summary)
}

// nopObserver satisfies RunObserver without doing anything.
type nopObserver struct{}

func (nopObserver) OnRunStart(string, ledger.Counts) {}
func (nopObserver) OnPhaseStart(Phase, int)          {}
func (nopObserver) OnTrialEvent(TrialEvent)          {}
func (nopObserver) OnRunEnd(Summary)                 {}
