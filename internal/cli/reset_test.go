package cli

import (
	"bytes"
	"strings"
	"testing"

	"permutest/internal/ledger"
)

// TestResetClearsRetryState verifies reset drops retry and abandoned entries
// while keeping completed work.
func TestResetClearsRetryState(t *testing.T) {
	configPath := writeProject(t)
	cfg, baseDir := loadProject(t, configPath)
	led, paths := seedLedger(t, cfg, baseDir)
	led.MarkCompleted(ledger.NewTaskID(0, 0))
	led.MarkFailed(ledger.NewTaskID(0, 1), "timeout", true)
	led.MarkFailed(ledger.NewTaskID(1, 0), "malformed answer", false)
	if err := led.Save(); err != nil {
		t.Fatalf("save ledger: %v", err)
	}

	cmd := findCommand("reset")
	var stdout, stderr bytes.Buffer
	exitCode := cmd.Run([]string{"-config", configPath, "-yes"}, &stdout, &stderr)
	if exitCode != ExitOK {
		t.Fatalf("unexpected exit: %d, stderr: %s", exitCode, stderr.String())
	}
	if !strings.Contains(stdout.String(), "cleared 1 retry queued and 1 abandoned, kept 1 completed") {
		t.Fatalf("unexpected output: %s", stdout.String())
	}

	snap, err := ledger.Inspect(paths.Dir)
	if err != nil {
		t.Fatalf("inspect ledger: %v", err)
	}
	if len(snap.RetryQueue) != 0 {
		t.Errorf("retry queue not cleared: %+v", snap.RetryQueue)
	}
	if len(snap.Abandoned) != 0 {
		t.Errorf("abandoned set not cleared: %+v", snap.Abandoned)
	}
	if len(snap.Completed) != 1 || snap.Completed[0] != ledger.NewTaskID(0, 0) {
		t.Errorf("completed set changed: %+v", snap.Completed)
	}
}

// TestResetPromptDeclined verifies an explicit "n" leaves the ledger alone.
func TestResetPromptDeclined(t *testing.T) {
	configPath := writeProject(t)
	cfg, baseDir := loadProject(t, configPath)
	led, paths := seedLedger(t, cfg, baseDir)
	led.MarkFailed(ledger.NewTaskID(0, 1), "timeout", true)
	if err := led.Save(); err != nil {
		t.Fatalf("save ledger: %v", err)
	}

	origInput := resetInput
	resetInput = strings.NewReader("n\n")
	t.Cleanup(func() { resetInput = origInput })

	cmd := findCommand("reset")
	var stdout, stderr bytes.Buffer
	exitCode := cmd.Run([]string{"-config", configPath}, &stdout, &stderr)
	if exitCode != ExitOK {
		t.Fatalf("unexpected exit: %d, stderr: %s", exitCode, stderr.String())
	}
	if !strings.Contains(stdout.String(), "Aborted.") {
		t.Fatalf("expected abort message, got: %s", stdout.String())
	}

	snap, err := ledger.Inspect(paths.Dir)
	if err != nil {
		t.Fatalf("inspect ledger: %v", err)
	}
	if len(snap.RetryQueue) != 1 {
		t.Errorf("retry queue should be untouched: %+v", snap.RetryQueue)
	}
}

// TestResetConfirmedByPrompt verifies a typed "y" proceeds.
func TestResetConfirmedByPrompt(t *testing.T) {
	configPath := writeProject(t)
	cfg, baseDir := loadProject(t, configPath)
	led, _ := seedLedger(t, cfg, baseDir)
	led.MarkFailed(ledger.NewTaskID(0, 1), "timeout", true)
	if err := led.Save(); err != nil {
		t.Fatalf("save ledger: %v", err)
	}

	origInput := resetInput
	resetInput = strings.NewReader("y\n")
	t.Cleanup(func() { resetInput = origInput })

	cmd := findCommand("reset")
	var stdout, stderr bytes.Buffer
	exitCode := cmd.Run([]string{"-config", configPath}, &stdout, &stderr)
	if exitCode != ExitOK {
		t.Fatalf("unexpected exit: %d, stderr: %s", exitCode, stderr.String())
	}
	if !strings.Contains(stdout.String(), "cleared 1 retry queued") {
		t.Fatalf("expected reset message, got: %s", stdout.String())
	}
}

// TestResetWithoutLedger verifies reset refuses when no run has happened.
func TestResetWithoutLedger(t *testing.T) {
	configPath := writeProject(t)

	cmd := findCommand("reset")
	var stdout, stderr bytes.Buffer
	exitCode := cmd.Run([]string{"-config", configPath, "-yes"}, &stdout, &stderr)
	if exitCode != ExitError {
		t.Fatalf("expected exit %d, got %d", ExitError, exitCode)
	}
	if !strings.Contains(stderr.String(), "No ledger found") {
		t.Fatalf("expected missing-ledger message, got: %s", stderr.String())
	}
}
