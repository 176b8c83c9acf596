package trial

import (
	"time"

	"github.com/google/uuid"

	"permutest/internal/permutation"
)

// Result is one trial attempt as appended to results.jsonl. Every attempt
// gets a fresh trial_id; task identity lives in task_id.
type Result struct {
	TrialID                  string   `json:"trial_id"`
	TaskID                   string   `json:"task_id"`
	Attempt                  int      `json:"attempt"`
	QuestionID               string   `json:"question_id"`
	QuestionIndex            int      `json:"question_index"`
	Subtask                  string   `json:"subtask,omitempty"`
	Model                    string   `json:"model"`
	Language                 string   `json:"language"`
	InputFormat              string   `json:"input_format"`
	OutputFormat             string   `json:"output_format"`
	OptionPermutation        string   `json:"option_permutation"`
	Permutation              []string `json:"permutation"`
	PromptUsed               string   `json:"prompt_used,omitempty"`
	APICallSuccessful        bool     `json:"api_call_successful"`
	APIResponseText          *string  `json:"api_response_text"`
	APIRawResponse           *string  `json:"api_raw_response"`
	ExtractedAnswer          *string  `json:"extracted_answer"`
	ModelChoiceOriginalLabel string   `json:"model_choice_original_label"`
	GroundTruthAnswer        string   `json:"ground_truth_answer"`
	IsCorrect                *bool    `json:"is_correct"`
	Error                    *string  `json:"error,omitempty"`
	ResponseTimeMS           int64    `json:"response_time_ms"`
	Timestamp                string   `json:"timestamp"`
}

// Settings describes the experiment dimensions stamped on every result.
type Settings struct {
	Model        string
	Language     string
	InputFormat  string
	OutputFormat string
}

// Attempt identifies one execution of a task.
type Attempt struct {
	TaskID        string
	Number        int
	QuestionID    string
	QuestionIndex int
	Subtask       string
}

// Outcome carries what a single API attempt produced.
type Outcome struct {
	Prompt       string
	Success      bool
	ResponseText *string
	RawResponse  *string
	Err          error
	Latency      time.Duration
}

// NewResult assembles a Result from one attempt. The extracted letter may be
// nil when parsing found nothing; mapping sentinels cover that case.
func NewResult(settings Settings, attempt Attempt, perm permutation.Permutation, groundTruth string, outcome Outcome, extracted *string, now time.Time) Result {
	mapping := MapAnswer(extracted, perm.Slice(), groundTruth)
	result := Result{
		TrialID:                  uuid.NewString(),
		TaskID:                   attempt.TaskID,
		Attempt:                  attempt.Number,
		QuestionID:               attempt.QuestionID,
		QuestionIndex:            attempt.QuestionIndex,
		Subtask:                  attempt.Subtask,
		Model:                    settings.Model,
		Language:                 settings.Language,
		InputFormat:              settings.InputFormat,
		OutputFormat:             settings.OutputFormat,
		OptionPermutation:        perm.String(),
		Permutation:              perm.Slice(),
		PromptUsed:               outcome.Prompt,
		APICallSuccessful:        outcome.Success,
		APIResponseText:          outcome.ResponseText,
		APIRawResponse:           outcome.RawResponse,
		ExtractedAnswer:          extracted,
		ModelChoiceOriginalLabel: mapping.OriginalLabel,
		GroundTruthAnswer:        mapping.GroundTruth,
		IsCorrect:                mapping.IsCorrect,
		ResponseTimeMS:           outcome.Latency.Milliseconds(),
		Timestamp:                now.UTC().Format(time.RFC3339),
	}
	if outcome.Err != nil {
		message := outcome.Err.Error()
		result.Error = &message
	}
	return result
}
