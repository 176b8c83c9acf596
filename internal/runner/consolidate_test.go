package runner

import (
	"errors"
	"io/fs"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"permutest/internal/ledger"
	"permutest/internal/permutation"
	"permutest/internal/trial"
)

// storedResult builds a plausible attempt record for file-level tests. An
// empty extracted letter stands for a failed attempt.
func storedResult(taskID string, attempt int, extracted string) trial.Result {
	settings := trial.Settings{Model: "gemini-2.5-flash", Language: "en", InputFormat: "base", OutputFormat: "base"}
	info := trial.Attempt{TaskID: taskID, Number: attempt, QuestionID: "q-france"}
	outcome := trial.Outcome{Prompt: "prompt", Latency: 120 * time.Millisecond}
	var extractedPtr *string
	if extracted != "" {
		text := "Answer: " + extracted
		raw := "{}"
		outcome.Success = true
		outcome.ResponseText = &text
		outcome.RawResponse = &raw
		extractedPtr = &extracted
	} else {
		outcome.Err = errors.New("upstream down")
	}
	return trial.NewResult(settings, info, permutation.Identity(), "A", outcome, extractedPtr, trialClock)
}

// TestConsolidateLastWins verifies that the consolidated file keeps exactly
// one record per completed task, preferring the latest attempt, and excludes
// tasks that never completed.
func TestConsolidateLastWins(t *testing.T) {
	dir := t.TempDir()
	resultsPath := filepath.Join(dir, "results.jsonl")
	finalPath := filepath.Join(dir, "final.jsonl")
	records := []trial.Result{
		storedResult("q0_p1", 1, ""),
		storedResult("q0_p0", 1, "A"),
		storedResult("q0_p1", 2, "B"),
		storedResult("q0_p2", 1, ""),
	}
	if err := ledger.WriteResults(resultsPath, records); err != nil {
		t.Fatalf("write results: %v", err)
	}

	completed := []ledger.TaskID{"q0_p1", "q0_p0"}
	stats, err := Consolidate(resultsPath, finalPath, completed)
	if err != nil {
		t.Fatalf("Consolidate() error: %v", err)
	}
	if stats.Attempts != 4 || stats.Tasks != 2 {
		t.Fatalf("stats = %+v, want 4 attempts over 2 tasks", stats)
	}

	final, err := ledger.ReadResults(finalPath)
	if err != nil {
		t.Fatalf("read final: %v", err)
	}
	if len(final) != 2 {
		t.Fatalf("final has %d records, want 2", len(final))
	}
	if final[0].TaskID != "q0_p0" || final[1].TaskID != "q0_p1" {
		t.Fatalf("final order = [%s, %s]", final[0].TaskID, final[1].TaskID)
	}
	if final[1].Attempt != 2 {
		t.Fatalf("q0_p1 kept attempt %d, want 2", final[1].Attempt)
	}
	if !final[1].APICallSuccessful {
		t.Fatal("q0_p1 kept the failed attempt")
	}
}

// TestConsolidateNumericOrder verifies that task ids sort by question and
// permutation index, not lexically.
func TestConsolidateNumericOrder(t *testing.T) {
	dir := t.TempDir()
	resultsPath := filepath.Join(dir, "results.jsonl")
	finalPath := filepath.Join(dir, "final.jsonl")
	records := []trial.Result{
		storedResult("q10_p0", 1, "A"),
		storedResult("q2_p1", 1, "A"),
		storedResult("q2_p0", 1, "A"),
	}
	if err := ledger.WriteResults(resultsPath, records); err != nil {
		t.Fatalf("write results: %v", err)
	}

	completed := []ledger.TaskID{"q10_p0", "q2_p1", "q2_p0"}
	if _, err := Consolidate(resultsPath, finalPath, completed); err != nil {
		t.Fatalf("Consolidate() error: %v", err)
	}
	want := []string{"q2_p0", "q2_p1", "q10_p0"}
	if got := finalTaskIDs(t, finalPath); !reflect.DeepEqual(got, want) {
		t.Fatalf("final order = %v, want %v", got, want)
	}
}

// TestConsolidateMissingResults verifies the not-found error passes through
// so callers can tell an empty run from a broken one.
func TestConsolidateMissingResults(t *testing.T) {
	dir := t.TempDir()
	_, err := Consolidate(filepath.Join(dir, "absent.jsonl"), filepath.Join(dir, "final.jsonl"), nil)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("error = %v, want fs.ErrNotExist", err)
	}
}
