package live

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"permutest/internal/runner"
)

// fmtInt converts an int to string.
func fmtInt(value int) string {
	return strconv.Itoa(value)
}

// formatTaskID returns the display id for a task row.
func formatTaskID(row TaskRow) string {
	if row.TaskID != "" {
		return string(row.TaskID)
	}
	return "q" + fmtInt(row.QuestionIndex) + "_p" + fmtInt(row.PermIndex)
}

// formatAttempt formats the attempt number for display.
func formatAttempt(row TaskRow) string {
	if row.Attempt <= 0 {
		return ""
	}
	return fmtInt(row.Attempt)
}

// formatPhase formats the pass a row last executed in.
func formatPhase(row TaskRow) string {
	return string(row.Phase)
}

// formatStatus renders a status string for a row.
func formatStatus(row TaskRow, noColor bool) string {
	return stylizeStatus(statusLabel(row.Status), row.Status, noColor)
}

// statusLabel maps status codes to display labels.
func statusLabel(status runner.TrialEventType) string {
	switch status {
	case runner.TrialStarted:
		return "running"
	case runner.TrialFailed:
		return "retry queued"
	case runner.TrialCompleted:
		return "done"
	case runner.TrialAbandoned:
		return "abandoned"
	case runner.TrialSkipped:
		return "skipped"
	default:
		return string(status)
	}
}

// formatAnswer renders the verdict glyph for a completed row.
func formatAnswer(row TaskRow, noColor bool) string {
	if row.Status != runner.TrialCompleted {
		return ""
	}
	switch {
	case row.IsCorrect == nil:
		return stylize("?", noColor, lipgloss.Color("244"))
	case *row.IsCorrect:
		return stylize("✓", noColor, lipgloss.Color("42"))
	default:
		return stylize("✗", noColor, lipgloss.Color("220"))
	}
}

// formatRowDuration returns the provider latency for settled rows, or elapsed
// wall time while a task is in flight.
func formatRowDuration(row TaskRow, now time.Time) string {
	if row.Latency > 0 {
		return row.Latency.Round(10 * time.Millisecond).String()
	}
	if !row.FinishedAt.IsZero() && !row.StartedAt.IsZero() {
		return row.FinishedAt.Sub(row.StartedAt).Round(100 * time.Millisecond).String()
	}
	if !row.StartedAt.IsZero() {
		return now.Sub(row.StartedAt).Round(100 * time.Millisecond).String()
	}
	return ""
}

// formatRowError truncates an error message for display.
func formatRowError(text string) string {
	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return ""
	}
	const limit = 60
	if len(normalized) <= limit {
		return normalized
	}
	return normalized[:limit-3] + "..."
}

// formatDuration renders a rounded duration for display.
func formatDuration(duration time.Duration) string {
	if duration <= 0 {
		return "0s"
	}
	return duration.Round(100 * time.Millisecond).String()
}

// FormatSummary renders the end-of-run summary as plain text. The live UI
// flushes it after the alternate screen is restored; plain mode prints the
// same text directly.
func FormatSummary(summary runner.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Experiment %s %s in %s\n", summary.ExperimentID, summary.Status, formatDuration(summary.Duration))
	fmt.Fprintf(&b, "Tasks: %d/%d completed, %d retry queued, %d abandoned\n",
		summary.Counts.Completed, summary.Counts.TotalExpected,
		summary.Counts.RetryQueued, summary.Counts.Abandoned)
	if scored := summary.Correct + summary.Incorrect; scored > 0 {
		fmt.Fprintf(&b, "Accuracy: %.1f%% (%d correct, %d incorrect, %d unscored)\n",
			summary.Accuracy*100, summary.Correct, summary.Incorrect, summary.Unscored)
	} else {
		fmt.Fprintf(&b, "Accuracy: n/a (%d unscored)\n", summary.Unscored)
	}
	if summary.AbandonedTotal > 0 {
		fmt.Fprintf(&b, "Abandoned (%d total):\n", summary.AbandonedTotal)
		for _, task := range summary.Abandoned {
			fmt.Fprintf(&b, "  %s: %d attempts, last error: %s\n", task.TaskID, task.Attempts, task.FinalError)
		}
		if rest := summary.AbandonedTotal - len(summary.Abandoned); rest > 0 {
			fmt.Fprintf(&b, "  ... and %d more (see ledger)\n", rest)
		}
	}
	fmt.Fprintf(&b, "Results: %s\n", summary.Paths.Results)
	return b.String()
}

// stylizeStatus applies status coloring when enabled.
func stylizeStatus(text string, status runner.TrialEventType, noColor bool) string {
	if noColor {
		return text
	}
	return statusStyle(status).Render(text)
}

// statusStyle selects a style for a given status.
func statusStyle(status runner.TrialEventType) lipgloss.Style {
	color := lipgloss.Color("244")
	switch status {
	case runner.TrialStarted:
		color = lipgloss.Color("33")
	case runner.TrialFailed:
		color = lipgloss.Color("39")
	case runner.TrialCompleted:
		color = lipgloss.Color("42")
	case runner.TrialAbandoned:
		color = lipgloss.Color("196")
	case runner.TrialSkipped:
		color = lipgloss.Color("246")
	}
	return lipgloss.NewStyle().Foreground(color)
}
