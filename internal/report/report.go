// Package report renders a static HTML summary of every experiment in an
// output directory: one row per experiment with its lifecycle status,
// progress, and accuracy so far.
package report

import (
	"context"
	"strings"
)

// FileName is the report artifact written into the output directory.
const FileName = "report.html"

// Entry is one experiment's row in the report.
type Entry struct {
	ExperimentID string
	Status       string
	Total        int
	Completed    int
	RetryQueued  int
	Abandoned    int
	Correct      int
	Judged       int
}

// CompletionRate is completed over expected, in [0, 1].
func (e Entry) CompletionRate() float64 {
	if e.Total <= 0 {
		return 0
	}
	return float64(e.Completed) / float64(e.Total)
}

// AccuracyRate is correct over judged trials; ok is false while nothing has
// been judged yet.
func (e Entry) AccuracyRate() (rate float64, ok bool) {
	if e.Judged <= 0 {
		return 0, false
	}
	return float64(e.Correct) / float64(e.Judged), true
}

// Build renders the full report page for the given entries.
func Build(entries []Entry) (string, error) {
	var builder strings.Builder
	if err := Page(entries).Render(context.Background(), &builder); err != nil {
		return "", err
	}
	return builder.String(), nil
}
