package cli

import (
	"bytes"
	"strings"
	"testing"

	"permutest/internal/ledger"
	"permutest/internal/runner"
)

// TestPlainObserverProgress verifies settled lines carry a running completion
// fraction that starts from the resumed counts.
func TestPlainObserverProgress(t *testing.T) {
	var out bytes.Buffer
	obs := newPlainObserver(&out)
	obs.OnRunStart("exp", ledger.Counts{
		TotalExpected: 10,
		Completed:     2,
		RetryQueued:   1,
	})
	obs.OnPhaseStart(runner.PhaseInitial, 5)

	correct := true
	obs.OnTrialEvent(runner.TrialEvent{
		TaskID:    "q0_p2",
		Attempt:   1,
		Type:      runner.TrialCompleted,
		IsCorrect: &correct,
	})
	obs.OnTrialEvent(runner.TrialEvent{
		TaskID:  "q0_p3",
		Attempt: 1,
		Type:    runner.TrialFailed,
		Error:   "boom",
	})
	obs.OnTrialEvent(runner.TrialEvent{
		TaskID:  "q0_p3",
		Attempt: 2,
		Type:    runner.TrialAbandoned,
		Error:   "still down",
	})
	obs.OnTrialEvent(runner.TrialEvent{
		TaskID:  "q1_p0",
		Attempt: 1,
		Type:    runner.TrialCompleted,
	})

	want := []string{
		"Experiment exp: 2/10 completed, 1 retry queued, 0 abandoned",
		"Phase initial: 5 tasks",
		"q0_p2 attempt 1: correct (3/10, 30%)",
		"q0_p3 attempt 1 failed: boom",
		"q0_p3 abandoned after 2 attempts: still down",
		"q1_p0 attempt 1: unscored (4/10, 40%)",
	}
	got := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(got) != len(want) {
		t.Fatalf("expected %d lines, got %d:\n%s", len(want), len(got), out.String())
	}
	for i, line := range want {
		if got[i] != line {
			t.Errorf("line %d = %q, want %q", i, got[i], line)
		}
	}
}

// TestPlainObserverNoTotal verifies the fraction is omitted before any run
// counts arrive.
func TestPlainObserverNoTotal(t *testing.T) {
	var out bytes.Buffer
	obs := newPlainObserver(&out)
	obs.OnTrialEvent(runner.TrialEvent{
		TaskID:  "q0_p0",
		Attempt: 1,
		Type:    runner.TrialCompleted,
	})
	if got := out.String(); got != "q0_p0 attempt 1: unscored\n" {
		t.Fatalf("unexpected output %q", got)
	}
}
