package report

import "fmt"

// formatPercent returns a percentage string for report output.
func formatPercent(rate float64) string {
	return fmt.Sprintf("%.1f%%", rate*100)
}
