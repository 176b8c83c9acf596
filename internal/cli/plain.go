package cli

import (
	"fmt"
	"io"
	"sync"

	"permutest/internal/ledger"
	"permutest/internal/runner"
)

// plainObserver prints run progress as plain lines, one per settled attempt,
// with a running completion fraction on completed lines. Trial events arrive
// from worker goroutines, so the counters and the writer share a mutex.
type plainObserver struct {
	mu        sync.Mutex
	out       io.Writer
	completed int
	total     int
}

func newPlainObserver(out io.Writer) *plainObserver {
	return &plainObserver{out: out}
}

func (p *plainObserver) OnRunStart(experimentID string, counts ledger.Counts) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = counts.Completed
	p.total = counts.TotalExpected
	fmt.Fprintf(p.out, "Experiment %s: %d/%d completed, %d retry queued, %d abandoned\n",
		experimentID, counts.Completed, counts.TotalExpected, counts.RetryQueued, counts.Abandoned)
}

func (p *plainObserver) OnPhaseStart(phase runner.Phase, tasks int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "Phase %s: %d tasks\n", phase, tasks)
}

func (p *plainObserver) OnTrialEvent(event runner.TrialEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch event.Type {
	case runner.TrialCompleted:
		verdict := "unscored"
		switch {
		case event.IsCorrect == nil:
		case *event.IsCorrect:
			verdict = "correct"
		default:
			verdict = "incorrect"
		}
		p.completed++
		fmt.Fprintf(p.out, "%s attempt %d: %s%s\n", event.TaskID, event.Attempt, verdict, p.progress())
	case runner.TrialFailed:
		fmt.Fprintf(p.out, "%s attempt %d failed: %s\n", event.TaskID, event.Attempt, event.Error)
	case runner.TrialAbandoned:
		fmt.Fprintf(p.out, "%s abandoned after %d attempts: %s\n", event.TaskID, event.Attempt, event.Error)
	case runner.TrialSkipped:
		fmt.Fprintf(p.out, "%s skipped by shutdown\n", event.TaskID)
	}
}

// OnRunEnd is a no-op; the run command prints the summary itself.
func (p *plainObserver) OnRunEnd(runner.Summary) {}

// progress renders the running completion fraction. Callers hold the mutex.
func (p *plainObserver) progress() string {
	if p.total <= 0 {
		return ""
	}
	return fmt.Sprintf(" (%d/%d, %.0f%%)", p.completed, p.total, float64(p.completed)/float64(p.total)*100)
}
