package runner

import (
	"context"
	"errors"
	"time"

	"permutest/internal/parse"
	"permutest/internal/prompt"
	"permutest/internal/provider"
	"permutest/internal/trial"
)

// trialExec runs single attempts: format, call, parse, map.
type trialExec struct {
	settings           trial.Settings
	formatter          *prompt.Formatter
	parser             *parse.Parser
	provider           provider.Provider
	temperature        float64
	maxOutputTokens    int
	requestTimeout     time.Duration
	retryMappingErrors bool
	now                func() time.Time
}

// trialOutcome classifies one attempt for the state machine.
type trialOutcome struct {
	result trial.Result
	// completed settles the task; otherwise reason/terminal drive MarkFailed.
	completed bool
	terminal  bool
	reason    string
	// interrupted means shutdown cut the attempt short: nothing is recorded
	// and the task stays pending.
	interrupted bool
}

func (e *trialExec) run(ctx context.Context, task Task, attemptNumber int) trialOutcome {
	attempt := trial.Attempt{
		TaskID:        string(task.ID),
		Number:        attemptNumber,
		QuestionID:    task.Question.ID,
		QuestionIndex: task.QuestionIndex,
		Subtask:       task.Subtask,
	}
	groundTruth := task.Question.Answer

	promptText, err := e.formatter.Build(task.Question, task.Permutation)
	if err != nil {
		// A question the formatter rejects will be rejected on every
		// attempt, so the failure is terminal.
		result := trial.NewResult(e.settings, attempt, task.Permutation, groundTruth, trial.Outcome{
			Success: false,
			Err:     err,
		}, nil, e.now())
		return trialOutcome{result: result, terminal: true, reason: err.Error()}
	}

	callCtx := ctx
	if e.requestTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.requestTimeout)
		defer cancel()
	}
	started := e.now()
	resp, callErr := e.provider.Invoke(callCtx, provider.Request{
		Model:           e.settings.Model,
		Prompt:          promptText,
		Temperature:     e.temperature,
		MaxOutputTokens: e.maxOutputTokens,
	})
	latency := e.now().Sub(started)

	if callErr != nil {
		if errors.Is(callErr, context.Canceled) && ctx.Err() != nil {
			return trialOutcome{interrupted: true}
		}
		result := trial.NewResult(e.settings, attempt, task.Permutation, groundTruth, trial.Outcome{
			Prompt:  promptText,
			Success: false,
			Err:     callErr,
			Latency: latency,
		}, nil, e.now())
		return trialOutcome{
			result:   result,
			terminal: !provider.Retryable(callErr),
			reason:   callErr.Error(),
		}
	}

	var extracted *string
	if letter, ok := e.parser.Parse(resp.Text); ok {
		extracted = &letter
	}
	result := trial.NewResult(e.settings, attempt, task.Permutation, groundTruth, trial.Outcome{
		Prompt:       promptText,
		Success:      true,
		ResponseText: &resp.Text,
		RawResponse:  &resp.Raw,
		Latency:      latency,
	}, extracted, e.now())

	if extracted == nil {
		return trialOutcome{result: result, reason: "no answer extracted from response"}
	}
	if e.retryMappingErrors && result.ModelChoiceOriginalLabel == trial.LabelMappingError {
		return trialOutcome{result: result, reason: "answer mapping failed"}
	}
	return trialOutcome{result: result, completed: true}
}
