package live

import (
	"io"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"permutest/internal/ledger"
	"permutest/internal/runner"
)

// Controller runs the live UI and implements runner.RunObserver. Trial events
// arrive from worker goroutines, so send and Close synchronize on a mutex.
type Controller struct {
	events    chan Event
	program   *tea.Program
	stdout    io.Writer
	done      chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	closed  bool
	summary *runner.Summary
}

// Start launches a live UI controller that writes to stdout.
func Start(stdout io.Writer, opts Options) *Controller {
	if stdout == nil {
		stdout = os.Stdout
	}
	events := make(chan Event, 256)
	model := NewModel(events, opts)
	program := tea.NewProgram(model, tea.WithOutput(stdout), tea.WithAltScreen())
	controller := &Controller{
		events:  events,
		program: program,
		stdout:  stdout,
		done:    make(chan struct{}),
	}
	go func() {
		_ = program.Start()
		controller.flushSummary()
		close(controller.done)
	}()
	return controller
}

// Close signals the UI to stop.
func (c *Controller) Close() {
	if c == nil {
		return
	}
	c.closeOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.closed = true
		close(c.events)
	})
}

// Wait blocks until the UI has exited and the final summary is flushed.
func (c *Controller) Wait() {
	if c == nil {
		return
	}
	<-c.done
}

// OnRunStart forwards run start events to the UI.
func (c *Controller) OnRunStart(experimentID string, counts ledger.Counts) {
	c.send(Event{Kind: EventRunStart, ExperimentID: experimentID, Counts: counts})
}

// OnPhaseStart forwards phase start events to the UI.
func (c *Controller) OnPhaseStart(phase runner.Phase, tasks int) {
	c.send(Event{Kind: EventPhaseStart, Phase: phase, PhaseTasks: tasks})
}

// OnTrialEvent forwards task status updates to the UI.
func (c *Controller) OnTrialEvent(event runner.TrialEvent) {
	c.send(Event{Kind: EventTrial, Trial: event})
}

// OnRunEnd records the final summary, forwards it to the UI, and closes it.
func (c *Controller) OnRunEnd(summary runner.Summary) {
	c.mu.Lock()
	c.summary = &summary
	c.mu.Unlock()
	c.send(Event{Kind: EventRunEnd, Summary: summary})
	c.Close()
}

// send enqueues an event without blocking the caller. Events are dropped when
// the buffer is full or the controller has been closed.
func (c *Controller) send(event Event) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.events <- event:
	default:
	}
}

// flushSummary writes the final summary as plain text once the alternate
// screen has been restored.
func (c *Controller) flushSummary() {
	c.mu.Lock()
	summary := c.summary
	c.mu.Unlock()
	if summary == nil {
		return
	}
	_, _ = io.WriteString(c.stdout, FormatSummary(*summary))
}
