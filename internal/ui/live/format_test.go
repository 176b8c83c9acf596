package live

import (
	"strings"
	"testing"
	"time"

	"permutest/internal/ledger"
	"permutest/internal/runner"
)

// TestFormatAnswerGlyphs verifies verdict glyphs for completed rows.
func TestFormatAnswerGlyphs(t *testing.T) {
	cases := []struct {
		name string
		row  TaskRow
		want string
	}{
		{"correct", TaskRow{Status: runner.TrialCompleted, IsCorrect: boolPtr(true)}, "✓"},
		{"incorrect", TaskRow{Status: runner.TrialCompleted, IsCorrect: boolPtr(false)}, "✗"},
		{"unscored", TaskRow{Status: runner.TrialCompleted}, "?"},
		{"running", TaskRow{Status: runner.TrialStarted}, ""},
	}
	for _, tc := range cases {
		if got := formatAnswer(tc.row, true); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

// TestFormatStatusLabels verifies status display labels.
func TestFormatStatusLabels(t *testing.T) {
	if got := formatStatus(TaskRow{Status: runner.TrialFailed}, true); got != "retry queued" {
		t.Fatalf("expected retry queued, got %q", got)
	}
	if got := formatStatus(TaskRow{Status: runner.TrialAbandoned}, true); got != "abandoned" {
		t.Fatalf("expected abandoned, got %q", got)
	}
}

// TestFormatSummary verifies the plain end-of-run text.
func TestFormatSummary(t *testing.T) {
	summary := runner.Summary{
		ExperimentID: "capitals_gemini-2.5-flash_en_ibase_obase_circular",
		Status:       "complete",
		Counts:       ledger.Counts{TotalExpected: 8, Completed: 8},
		Correct:      6,
		Incorrect:    2,
		Accuracy:     0.75,
		Duration:     12340 * time.Millisecond,
		Paths:        runner.Paths{Results: "/tmp/out/results.jsonl"},
	}
	text := FormatSummary(summary)
	for _, token := range []string{
		"complete in 12.3s",
		"Tasks: 8/8 completed",
		"Accuracy: 75.0% (6 correct, 2 incorrect, 0 unscored)",
		"Results: /tmp/out/results.jsonl",
	} {
		if !strings.Contains(text, token) {
			t.Fatalf("summary missing %q:\n%s", token, text)
		}
	}
}

// TestFormatSummaryAbandoned verifies the abandoned sample and overflow note.
func TestFormatSummaryAbandoned(t *testing.T) {
	summary := runner.Summary{
		ExperimentID: "capitals_gemini-2.5-flash_en_ibase_obase_circular",
		Status:       "interrupted",
		Counts:       ledger.Counts{TotalExpected: 8, Completed: 1, Abandoned: 7},
		Abandoned: []runner.AbandonedTask{
			{TaskID: "q0_p1", Attempts: 3, FinalError: "upstream down"},
		},
		AbandonedTotal: 7,
	}
	text := FormatSummary(summary)
	if !strings.Contains(text, "Accuracy: n/a") {
		t.Fatalf("expected unscored accuracy line:\n%s", text)
	}
	if !strings.Contains(text, "q0_p1: 3 attempts, last error: upstream down") {
		t.Fatalf("expected abandoned sample line:\n%s", text)
	}
	if !strings.Contains(text, "and 6 more") {
		t.Fatalf("expected overflow note:\n%s", text)
	}
}
