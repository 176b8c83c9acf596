package ledger

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// TestAppendRoundTrip verifies appended records read back in order with
// their nullable fields intact.
func TestAppendRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ResultsFileName)
	appender, err := OpenAppender(path)
	if err != nil {
		t.Fatalf("OpenAppender: %v", err)
	}
	first := sampleResult("q0_p0", true, letter("A"), "A")
	second := sampleResult("q0_p1", false, nil, "INVALID_EXT")
	if err := appender.Append(first); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := appender.Append(second); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := appender.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	results, err := ReadResults(path)
	if err != nil {
		t.Fatalf("ReadResults: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("read %d results, want 2", len(results))
	}
	if results[0].TaskID != "q0_p0" || results[1].TaskID != "q0_p1" {
		t.Fatalf("task order = %q, %q", results[0].TaskID, results[1].TaskID)
	}
	if results[0].ExtractedAnswer == nil || *results[0].ExtractedAnswer != "A" {
		t.Fatalf("ExtractedAnswer = %v", results[0].ExtractedAnswer)
	}
	if results[1].ExtractedAnswer != nil {
		t.Fatalf("ExtractedAnswer = %q, want nil", *results[1].ExtractedAnswer)
	}
}

// TestAppendSurvivesReopen verifies appending to an existing file keeps the
// earlier records, the property resumes depend on.
func TestAppendSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), ResultsFileName)
	for _, taskID := range []string{"q0_p0", "q0_p1"} {
		appender, err := OpenAppender(path)
		if err != nil {
			t.Fatalf("OpenAppender: %v", err)
		}
		if err := appender.Append(sampleResult(taskID, true, letter("A"), "A")); err != nil {
			t.Fatalf("Append: %v", err)
		}
		if err := appender.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
	results, err := ReadResults(path)
	if err != nil {
		t.Fatalf("ReadResults: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("read %d results, want 2", len(results))
	}
}

// TestAppendConcurrent verifies concurrent appends interleave as whole
// lines.
func TestAppendConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), ResultsFileName)
	appender, err := OpenAppender(path)
	if err != nil {
		t.Fatalf("OpenAppender: %v", err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(perm int) {
			defer wg.Done()
			for q := 0; q < 5; q++ {
				id := string(NewTaskID(q, perm))
				if err := appender.Append(sampleResult(id, true, letter("A"), "A")); err != nil {
					t.Errorf("Append %s: %v", id, err)
				}
			}
		}(i)
	}
	wg.Wait()
	if err := appender.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	results, err := ReadResults(path)
	if err != nil {
		t.Fatalf("ReadResults: %v", err)
	}
	if len(results) != 20 {
		t.Fatalf("read %d results, want 20", len(results))
	}
}

// TestReadResultsToleratesTornTail verifies a partial final line, the
// signature of a crash mid-append, is dropped without failing the read.
func TestReadResultsToleratesTornTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), ResultsFileName)
	appender, err := OpenAppender(path)
	if err != nil {
		t.Fatalf("OpenAppender: %v", err)
	}
	if err := appender.Append(sampleResult("q0_p0", true, letter("A"), "A")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := appender.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("reopen results: %v", err)
	}
	if _, err := file.WriteString(`{"trial_id":"t-q0_p1","task_id":"q0_`); err != nil {
		t.Fatalf("write torn tail: %v", err)
	}
	if err := file.Close(); err != nil {
		t.Fatalf("close results: %v", err)
	}

	results, err := ReadResults(path)
	if err != nil {
		t.Fatalf("ReadResults: %v", err)
	}
	if len(results) != 1 || results[0].TaskID != "q0_p0" {
		t.Fatalf("results = %+v, want the one intact record", results)
	}
}

// TestReadResultsRejectsMidFileCorruption verifies garbage before the final
// line is an error, not something to skip over.
func TestReadResultsRejectsMidFileCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), ResultsFileName)
	lines := strings.Join([]string{
		`{"trial_id":"a","task_id":"q0_p0","api_call_successful":true}`,
		`{"trial_id":"b","task_`,
		`{"trial_id":"c","task_id":"q0_p1","api_call_successful":true}`,
	}, "\n")
	if err := os.WriteFile(path, []byte(lines+"\n"), 0o644); err != nil {
		t.Fatalf("write results: %v", err)
	}
	if _, err := ReadResults(path); err == nil {
		t.Fatal("ReadResults accepted mid-file corruption")
	} else if !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("error = %v, want line 2 named", err)
	}
}

// TestReadResultsSkipsBlankLines verifies blank separator lines are ignored.
func TestReadResultsSkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), ResultsFileName)
	body := `{"trial_id":"a","task_id":"q0_p0","api_call_successful":true}` + "\n\n" +
		`{"trial_id":"b","task_id":"q0_p1","api_call_successful":true}` + "\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write results: %v", err)
	}
	results, err := ReadResults(path)
	if err != nil {
		t.Fatalf("ReadResults: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("read %d results, want 2", len(results))
	}
}
