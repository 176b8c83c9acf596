package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"permutest/internal/config"
	"permutest/internal/ledger"
	"permutest/internal/runner"
	"permutest/internal/spec"
	"permutest/internal/trial"
)

const testConfig = `version: 1
dataset:
  file: questions.yml
experiment:
  model: gemini-2.5-flash
  language: en
  input_format: base
  output_format: base
  permutations:
    type: circular
retry:
  max_attempts: 2
output:
  dir: results
ui: plain
`

const testDataset = `version: 1
questions:
  - id: q_capital
    question: "What is the capital of France?"
    choices: ["Paris", "Lyon", "Nice", "Lille"]
    answer: A
  - id: q_metal
    question: "Which metal is liquid at room temperature?"
    choices: ["Iron", "Mercury", "Zinc", "Tin"]
    answer: B
`

// writeProject lays out a config and dataset in a temp dir and returns the
// config path.
func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	configPath := filepath.Join(dir, config.ConfigFileName)
	if err := os.WriteFile(configPath, []byte(testConfig), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	datasetPath := filepath.Join(dir, "questions.yml")
	if err := os.WriteFile(datasetPath, []byte(testDataset), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	return configPath
}

// loadProject loads a test project's config and returns it with its root.
func loadProject(t *testing.T, configPath string) (spec.Config, string) {
	t.Helper()
	cfg, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg, config.RootFromConfigPath(configPath)
}

// seedLedger creates the experiment directory with a saved ledger and returns
// the open handle plus its paths. Callers mutate and Save.
func seedLedger(t *testing.T, cfg spec.Config, baseDir string) (*ledger.Ledger, runner.Paths) {
	t.Helper()
	plan, err := runner.BuildPlan(cfg, baseDir)
	if err != nil {
		t.Fatalf("build plan: %v", err)
	}
	paths := experimentPaths(cfg, baseDir)
	if err := os.MkdirAll(paths.Dir, 0o755); err != nil {
		t.Fatalf("create experiment dir: %v", err)
	}
	led, err := ledger.Open(paths.Dir, ledger.Options{
		Echo:          plan.Echo,
		TotalExpected: len(plan.Tasks),
		MaxAttempts:   cfg.Retry.MaxAttempts,
	})
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	if err := led.Save(); err != nil {
		t.Fatalf("save ledger: %v", err)
	}
	return led, paths
}

func strPtr(s string) *string { return &s }

// seedResult builds a minimal successful attempt record for results files.
func seedResult(taskID string, attempt int, extracted, groundTruth string, perm []string) trial.Result {
	labels := strings.Join(perm, "")
	mapping := trial.MapAnswer(strPtr(extracted), perm, groundTruth)
	return trial.Result{
		TrialID:                  fmt.Sprintf("%s-a%d", taskID, attempt),
		TaskID:                   taskID,
		Attempt:                  attempt,
		QuestionID:               "q_test",
		Model:                    "gemini-2.5-flash",
		Language:                 "en",
		InputFormat:              "base",
		OutputFormat:             "base",
		OptionPermutation:        labels,
		Permutation:              perm,
		APICallSuccessful:        true,
		APIResponseText:          strPtr("Answer: " + extracted),
		ExtractedAnswer:          strPtr(extracted),
		ModelChoiceOriginalLabel: mapping.OriginalLabel,
		GroundTruthAnswer:        mapping.GroundTruth,
		IsCorrect:                mapping.IsCorrect,
		ResponseTimeMS:           120,
		Timestamp:                "2026-01-10T12:00:00Z",
	}
}
