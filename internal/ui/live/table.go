package live

import (
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// tableStyles returns table styles for the UI.
func tableStyles(noColor bool) table.Styles {
	if noColor {
		return table.DefaultStyles()
	}
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Foreground(lipgloss.Color("252"))
	return styles
}

// defaultColumns returns the task table layout.
func defaultColumns() []table.Column {
	return []table.Column{
		{Title: "Task", Width: 14},
		{Title: "Phase", Width: 7},
		{Title: "Try", Width: 3},
		{Title: "Status", Width: 12},
		{Title: "Ans", Width: 3},
		{Title: "Time", Width: 8},
		{Title: "Error", Width: 32},
	}
}

// columnsForWidth gives the error column the remaining terminal width.
func columnsForWidth(width int) []table.Column {
	columns := defaultColumns()
	if width <= 0 {
		return columns
	}
	fixed := 0
	for _, column := range columns[:len(columns)-1] {
		fixed += column.Width
	}
	remaining := width - fixed - 2*len(columns)
	if remaining < 16 {
		remaining = 16
	}
	columns[len(columns)-1].Width = remaining
	return columns
}

// rowsForState converts UI state into table rows.
func rowsForState(state State, now time.Time, noColor bool) []table.Row {
	rows := make([]table.Row, 0, len(state.Rows))
	for _, row := range state.Rows {
		rows = append(rows, table.Row{
			formatTaskID(row),
			formatPhase(row),
			formatAttempt(row),
			formatStatus(row, noColor),
			formatAnswer(row, noColor),
			formatRowDuration(row, now),
			formatRowError(row.Error),
		})
	}
	return rows
}
