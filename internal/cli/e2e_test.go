package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"permutest/internal/config"
	"permutest/internal/ledger"
	"permutest/internal/report"
)

// correctChoices lets the fake provider answer correctly no matter how the
// options were shuffled: each question's right choice text appears in exactly
// one displayed position.
var correctChoices = []string{"Paris", "Mercury"}

// fakeGemini mimics the generateContent endpoint closely enough for a full
// run: it reads the prompt, locates the displayed label of the known-correct
// choice, and answers with it. The first failFirst calls return 503 to
// exercise the retry queue.
type fakeGemini struct {
	failFirst int32
	calls     atomic.Int32
}

func (f *fakeGemini) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "e2e-key" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":{"code":401,"message":"API key not valid","status":"UNAUTHENTICATED"}}`)
			return
		}
		if f.calls.Add(1) <= f.failFirst {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, `{"error":{"code":503,"message":"The model is overloaded.","status":"UNAVAILABLE"}}`)
			return
		}
		var req struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Contents) == 0 || len(req.Contents[0].Parts) == 0 {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":{"code":400,"message":"invalid request","status":"INVALID_ARGUMENT"}}`)
			return
		}
		letter := displayedAnswer(req.Contents[0].Parts[0].Text)
		if letter == "" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":{"code":400,"message":"no known choice in prompt","status":"INVALID_ARGUMENT"}}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"candidates":[{"content":{"parts":[{"text":"Answer: %s"}]},"finishReason":"STOP"}]}`, letter)
	}
}

// displayedAnswer scans "X) choice" lines for the known-correct choice text.
func displayedAnswer(prompt string) string {
	for _, line := range strings.Split(prompt, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < 3 || line[0] < 'A' || line[0] > 'D' || line[1] != ')' {
			continue
		}
		text := strings.TrimSpace(line[2:])
		for _, correct := range correctChoices {
			if text == correct {
				return string(line[0])
			}
		}
	}
	return ""
}

// writeE2EProject lays out a project whose provider points at the fake server.
func writeE2EProject(t *testing.T, baseURL string) string {
	t.Helper()
	dir := t.TempDir()
	body := fmt.Sprintf(`version: 1
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
  task_delay: 0s
  cooldown: 0s
  flush_every: 1
concurrency:
  workers: 2
providers:
  gemini:
    api_key_env: GEMINI_API_KEY
    base_url: %q
output:
  dir: results
ui: plain
`, baseURL)
	configPath := filepath.Join(dir, config.ConfigFileName)
	if err := os.WriteFile(configPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "questions.yml"), []byte(testDataset), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	return configPath
}

func runCLI(t *testing.T, args []string) (string, string, int) {
	t.Helper()
	var out, errOut bytes.Buffer
	exitCode := Run(args, &out, &errOut)
	return out.String(), errOut.String(), exitCode
}

// TestEndToEndExperimentPipeline drives validate, run, status, and report
// against a fake provider and checks every artifact lands on disk.
func TestEndToEndExperimentPipeline(t *testing.T) {
	fake := &fakeGemini{}
	server := httptest.NewServer(fake.handler())
	defer server.Close()
	t.Setenv("GEMINI_API_KEY", "e2e-key")

	configPath := writeE2EProject(t, server.URL)
	cfg, baseDir := loadProject(t, configPath)
	paths := experimentPaths(cfg, baseDir)

	stdout, stderr, code := runCLI(t, []string{"validate", "-config", configPath})
	if code != ExitOK {
		t.Fatalf("validate exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "Config OK: 2 questions x 4 permutations = 8 tasks") {
		t.Fatalf("unexpected validate output: %s", stdout)
	}

	stdout, stderr, code = runCLI(t, []string{"run", "-config", configPath})
	if code != ExitOK {
		t.Fatalf("run exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "Tasks: 8/8 completed, 0 retry queued, 0 abandoned") {
		t.Fatalf("unexpected run summary: %s", stdout)
	}
	if !strings.Contains(stdout, "Accuracy: 100.0% (8 correct, 0 incorrect, 0 unscored)") {
		t.Fatalf("unexpected accuracy: %s", stdout)
	}
	if got := fake.calls.Load(); got != 8 {
		t.Fatalf("expected 8 provider calls, got %d", got)
	}
	for _, artifact := range []string{paths.Ledger, paths.Results, paths.Final, paths.Log} {
		if _, err := os.Stat(artifact); err != nil {
			t.Errorf("missing artifact: %v", err)
		}
	}

	stdout, stderr, code = runCLI(t, []string{"status", "-config", configPath, "-json"})
	if code != ExitOK {
		t.Fatalf("status exit %d: %s", code, stderr)
	}
	var entries []statusEntry
	if err := json.Unmarshal([]byte(stdout), &entries); err != nil {
		t.Fatalf("decode status: %v\n%s", err, stdout)
	}
	if len(entries) != 1 || entries[0].Completed != 8 || entries[0].Status != ledger.StatusComplete {
		t.Fatalf("unexpected status entries: %+v", entries)
	}

	stdout, stderr, code = runCLI(t, []string{"report", "-config", configPath})
	if code != ExitOK {
		t.Fatalf("report exit %d: %s", code, stderr)
	}
	html, err := os.ReadFile(filepath.Join(filepath.Dir(paths.Dir), report.FileName))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(html), entries[0].ExperimentID) {
		t.Fatalf("report misses experiment id")
	}

	// A second run has nothing left to do and stays complete.
	stdout, stderr, code = runCLI(t, []string{"run", "-config", configPath})
	if code != ExitOK {
		t.Fatalf("rerun exit %d: %s", code, stderr)
	}
	if got := fake.calls.Load(); got != 8 {
		t.Fatalf("rerun should not call the provider, calls = %d", got)
	}
}

// TestEndToEndRetriesTransientFailure forces one 503 and expects the task to
// complete through the retry phase within the same run.
func TestEndToEndRetriesTransientFailure(t *testing.T) {
	fake := &fakeGemini{failFirst: 1}
	server := httptest.NewServer(fake.handler())
	defer server.Close()
	t.Setenv("GEMINI_API_KEY", "e2e-key")

	configPath := writeE2EProject(t, server.URL)
	cfg, baseDir := loadProject(t, configPath)
	paths := experimentPaths(cfg, baseDir)

	stdout, stderr, code := runCLI(t, []string{"run", "-config", configPath})
	if code != ExitOK {
		t.Fatalf("run exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "Tasks: 8/8 completed, 0 retry queued, 0 abandoned") {
		t.Fatalf("unexpected run summary: %s", stdout)
	}
	if got := fake.calls.Load(); got != 9 {
		t.Fatalf("expected 9 provider calls (8 + 1 retry), got %d", got)
	}

	attempts, err := ledger.ReadResults(paths.Results)
	if err != nil {
		t.Fatalf("read attempts: %v", err)
	}
	if len(attempts) != 9 {
		t.Fatalf("expected 9 attempt records, got %d", len(attempts))
	}
	retried := 0
	for _, record := range attempts {
		if record.Attempt == 2 {
			retried++
			if record.IsCorrect == nil || !*record.IsCorrect {
				t.Errorf("retried attempt should score correct: %+v", record)
			}
		}
	}
	if retried != 1 {
		t.Fatalf("expected exactly one second attempt, got %d", retried)
	}

	snap, err := ledger.Inspect(paths.Dir)
	if err != nil {
		t.Fatalf("inspect ledger: %v", err)
	}
	if len(snap.Completed) != 8 || len(snap.RetryQueue) != 0 || len(snap.Abandoned) != 0 {
		t.Fatalf("unexpected ledger state: %d completed, %d queued, %d abandoned",
			len(snap.Completed), len(snap.RetryQueue), len(snap.Abandoned))
	}
}
