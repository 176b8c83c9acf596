package dataset

import (
	"fmt"
	"strings"
)

// Issue captures a validation problem in a question dataset.
type Issue struct {
	Field   string
	Message string
}

// ValidationError reports one or more validation issues.
type ValidationError struct {
	Issues []Issue
}

// Error returns a readable message for validation failures.
func (err *ValidationError) Error() string {
	if err == nil || len(err.Issues) == 0 {
		return ""
	}
	parts := make([]string, 0, len(err.Issues))
	for _, issue := range err.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", issue.Field, issue.Message))
	}
	return fmt.Sprintf("dataset validation failed: %s", strings.Join(parts, "; "))
}

type issueCollector struct {
	issues []Issue
}

func (collector *issueCollector) add(field, message string) {
	collector.issues = append(collector.issues, Issue{Field: field, Message: message})
}

func (collector *issueCollector) result() error {
	if len(collector.issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: collector.issues}
}

// NormalizeSpec trims whitespace, assigns default IDs, and validates a dataset.
// Questions without an explicit ID receive idx_<position>. A question may omit
// its ground-truth answer; when present it must be one of the original labels.
func NormalizeSpec(spec Spec) (Spec, error) {
	collector := &issueCollector{}
	if spec.Version == 0 {
		collector.add("version", "is required")
	} else if spec.Version != 1 {
		collector.add("version", fmt.Sprintf("unsupported version %d", spec.Version))
	}
	if len(spec.Questions) == 0 {
		collector.add("questions", "must include at least one entry")
	}

	seenIDs := map[string]struct{}{}
	for i, question := range spec.Questions {
		prefix := fmt.Sprintf("questions[%d]", i)
		question.ID = strings.TrimSpace(question.ID)
		if question.ID == "" {
			question.ID = fmt.Sprintf("idx_%d", i)
		}
		if _, exists := seenIDs[question.ID]; exists {
			collector.add(prefix+".id", fmt.Sprintf("duplicate id %q", question.ID))
		} else {
			seenIDs[question.ID] = struct{}{}
		}

		question.Text = strings.TrimSpace(question.Text)
		if question.Text == "" {
			collector.add(prefix+".question", "is required")
		}

		question.Choices = normalizeStringSlice(question.Choices)
		if len(question.Choices) != 4 {
			collector.add(prefix+".choices", fmt.Sprintf("must include exactly 4 entries, got %d", len(question.Choices)))
		} else {
			for choiceIndex, choice := range question.Choices {
				if choice == "" {
					collector.add(fmt.Sprintf("%s.choices[%d]", prefix, choiceIndex), "is required")
				}
			}
		}

		question.Answer = strings.ToUpper(strings.TrimSpace(question.Answer))
		if question.Answer != "" && !isChoiceLabel(question.Answer) {
			collector.add(prefix+".answer", fmt.Sprintf("must be one of A, B, C, D, got %q", question.Answer))
		}

		question.Subtask = strings.TrimSpace(question.Subtask)
		spec.Questions[i] = question
	}

	if err := collector.result(); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

func isChoiceLabel(value string) bool {
	switch value {
	case "A", "B", "C", "D":
		return true
	}
	return false
}

func normalizeStringSlice(values []string) []string {
	normalized := make([]string, 0, len(values))
	for _, value := range values {
		normalized = append(normalized, strings.TrimSpace(value))
	}
	return normalized
}
