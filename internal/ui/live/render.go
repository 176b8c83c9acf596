package live

import (
	"time"

	"github.com/charmbracelet/lipgloss"
)

// renderHeader renders the run header line.
func renderHeader(state State, now time.Time, noColor bool) string {
	line := "Experiment " + state.ExperimentID
	if state.Phase != "" {
		line += " | Phase: " + string(state.Phase) + " (" + fmtInt(state.PhaseTasks) + " tasks)"
	}
	if !state.StartedAt.IsZero() {
		line += " | Elapsed: " + now.Sub(state.StartedAt).Round(100*time.Millisecond).String()
	}
	return stylize(line, noColor, lipgloss.Color("33"))
}

// renderSummary renders the status counts line. Completed and abandoned
// totals fold in tasks settled by earlier runs.
func renderSummary(state State, noColor bool) string {
	counts := state.Counts
	completed := state.Totals.Completed + counts.Completed
	abandoned := state.Totals.Abandoned + counts.Abandoned
	line := "Completed: " + fmtInt(completed) + "/" + fmtInt(state.Totals.TotalExpected) +
		" Running: " + fmtInt(counts.Running) +
		" Retry: " + fmtInt(counts.Retrying) +
		" Correct: " + fmtInt(counts.Correct) +
		" Incorrect: " + fmtInt(counts.Incorrect) +
		" Unscored: " + fmtInt(counts.Unscored) +
		" Abandoned: " + fmtInt(abandoned) +
		" Skipped: " + fmtInt(counts.Skipped)
	return stylize(line, noColor, lipgloss.Color("242"))
}

// renderFooter renders the last event line.
func renderFooter(state State, noColor bool) string {
	if state.LastEvent == "" {
		return ""
	}
	return stylize("Last event: "+state.LastEvent, noColor, lipgloss.Color("244"))
}

// renderCancelNotice renders the stop-in-progress footer.
func renderCancelNotice(noColor bool) string {
	return stylize("Stopping: waiting for in-flight calls (press q again to force quit)", noColor, lipgloss.Color("220"))
}

// stylize applies optional color styling.
func stylize(text string, noColor bool, color lipgloss.Color) string {
	if noColor {
		return text
	}
	return lipgloss.NewStyle().Foreground(color).Render(text)
}
