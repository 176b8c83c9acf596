package dataset

import "fmt"

// Window returns the inclusive question range [start, end] of a dataset.
// The caller keeps start to recover original dataset indices.
func Window(questions []Question, start, end int) ([]Question, error) {
	if start < 0 || start >= len(questions) {
		return nil, fmt.Errorf("start question %d out of range (dataset has %d questions)", start, len(questions))
	}
	if end < start || end >= len(questions) {
		return nil, fmt.Errorf("end question %d out of range (dataset has %d questions)", end, len(questions))
	}
	return questions[start : end+1], nil
}
