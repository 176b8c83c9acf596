package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"permutest/internal/ledger"
	"permutest/internal/trial"
)

// writeExperiment lays one experiment directory under root with a saved
// ledger and, optionally, its attempt log.
func writeExperiment(t *testing.T, root, id, status string, completed []ledger.TaskID, results []trial.Result) {
	t.Helper()
	dir := filepath.Join(root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	led, err := ledger.Open(dir, ledger.Options{
		Echo: ledger.Echo{
			ExperimentID:     id,
			Model:            "gemini-2.5-flash",
			Provider:         "gemini",
			Language:         "en",
			InputFormat:      "base",
			OutputFormat:     "base",
			PermutationType:  "circular",
			PermutationCount: 4,
		},
		TotalExpected: 8,
		MaxAttempts:   2,
		Now:           func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	for _, taskID := range completed {
		led.MarkCompleted(taskID)
	}
	led.SetStatus(status)
	if err := led.Save(); err != nil {
		t.Fatalf("save ledger: %v", err)
	}
	if len(results) > 0 {
		if err := ledger.WriteResults(filepath.Join(dir, ledger.ResultsFileName), results); err != nil {
			t.Fatalf("write results: %v", err)
		}
	}
}

// judgedResult builds a recorded attempt whose answer mapped to a verdict.
func judgedResult(taskID string, correct bool) trial.Result {
	extracted := "A"
	original := "B"
	if correct {
		original = "A"
	}
	return trial.Result{
		TrialID:                  "t-" + taskID,
		TaskID:                   taskID,
		Attempt:                  1,
		QuestionID:               "q-" + taskID,
		Model:                    "gemini-2.5-flash",
		Language:                 "en",
		InputFormat:              "base",
		OutputFormat:             "base",
		OptionPermutation:        "ABCD",
		Permutation:              []string{"A", "B", "C", "D"},
		APICallSuccessful:        true,
		ExtractedAnswer:          &extracted,
		ModelChoiceOriginalLabel: original,
		GroundTruthAnswer:        "A",
		IsCorrect:                &correct,
		ResponseTimeMS:           120,
		Timestamp:                "2025-06-01T12:00:00Z",
	}
}

// TestLoadCollectsExperiments verifies one entry per experiment directory,
// sorted by id, with counts taken from the ledger and the attempt log.
func TestLoadCollectsExperiments(t *testing.T) {
	root := t.TempDir()
	writeExperiment(t, root, "exp-b", ledger.StatusComplete,
		[]ledger.TaskID{"q0_p0", "q0_p1"},
		[]trial.Result{judgedResult("q0_p0", true), judgedResult("q0_p1", true)},
	)
	writeExperiment(t, root, "exp-a", ledger.StatusInterrupted,
		[]ledger.TaskID{"q0_p0", "q0_p1"},
		[]trial.Result{judgedResult("q0_p0", true), judgedResult("q0_p1", false)},
	)
	// Clutter the output dir: neither should produce an entry.
	if err := os.MkdirAll(filepath.Join(root, "not-an-experiment"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	entries, err := Load(root)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Load() returned %d entries, want 2", len(entries))
	}
	if entries[0].ExperimentID != "exp-a" || entries[1].ExperimentID != "exp-b" {
		t.Fatalf("entries out of order: [%s, %s]", entries[0].ExperimentID, entries[1].ExperimentID)
	}
	first := entries[0]
	if first.Status != ledger.StatusInterrupted || first.Total != 8 || first.Completed != 2 {
		t.Fatalf("exp-a entry = %+v", first)
	}
	if first.Correct != 1 || first.Judged != 2 {
		t.Fatalf("exp-a outcomes = %d/%d, want 1/2", first.Correct, first.Judged)
	}
	if entries[1].Correct != 2 {
		t.Fatalf("exp-b correct = %d, want 2", entries[1].Correct)
	}
}

// TestLoadWithoutResultsFile verifies a fresh experiment reports zero
// outcomes instead of failing.
func TestLoadWithoutResultsFile(t *testing.T) {
	root := t.TempDir()
	writeExperiment(t, root, "exp-new", ledger.StatusRunning, nil, nil)

	entries, err := Load(root)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Load() returned %d entries, want 1", len(entries))
	}
	if entries[0].Correct != 0 || entries[0].Judged != 0 || entries[0].Completed != 0 {
		t.Fatalf("entry = %+v, want zero outcomes", entries[0])
	}
}

// TestLoadMissingOutputDir verifies the error surfaces rather than being
// mistaken for an empty report.
func TestLoadMissingOutputDir(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("Load() on a missing dir succeeded")
	}
}

// TestBuildRendersRows verifies the page carries each experiment's identity
// and numbers, with markup-significant characters escaped.
func TestBuildRendersRows(t *testing.T) {
	entries := []Entry{
		{ExperimentID: "capitals_gemini-2.5-flash_en_ibase_obase_circular", Status: ledger.StatusComplete, Total: 8, Completed: 8, Correct: 2, Judged: 8},
		{ExperimentID: "weird<&>id", Status: ledger.StatusInterrupted, Total: 8, Completed: 4, RetryQueued: 3, Abandoned: 1, Correct: 1, Judged: 4},
	}
	html, err := Build(entries)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	for _, token := range []string{
		"capitals_gemini-2.5-flash_en_ibase_obase_circular",
		"weird&lt;&amp;&gt;id",
		"status-complete",
		"status-interrupted",
		"8/8",
		"100.0%",
		"50.0%",
		"25.0%",
		"<table",
	} {
		if !strings.Contains(html, token) {
			t.Fatalf("expected report to include %q", token)
		}
	}
	if strings.Contains(html, "weird<&>id") {
		t.Fatal("experiment id reached the page unescaped")
	}
}

// TestBuildEmptyState verifies the no-experiments message renders.
func TestBuildEmptyState(t *testing.T) {
	html, err := Build(nil)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if !strings.Contains(html, "No experiments found.") {
		t.Fatal("expected empty-state message")
	}
	if strings.Contains(html, "<table") {
		t.Fatal("unexpected table in empty report")
	}
}
