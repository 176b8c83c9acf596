package runner

import (
	"fmt"

	"permutest/internal/config"
	"permutest/internal/dataset"
	"permutest/internal/ledger"
	"permutest/internal/permutation"
	"permutest/internal/spec"
)

// Task is one (question, permutation) cell of the experiment grid.
type Task struct {
	ID            ledger.TaskID
	QuestionIndex int
	PermIndex     int
	Question      dataset.Question
	Subtask       string
	Permutation   permutation.Permutation
}

// Plan is the executable expansion of a config against its dataset: the full
// task grid in deterministic order, plus the echo that pins the ledger to
// this configuration.
type Plan struct {
	ExperimentID string
	Tasks        []Task
	Echo         ledger.Echo
	// CountClamped is set when a factorial permutation count above 24 was
	// clamped to the full set.
	CountClamped bool
}

// BuildPlan loads the dataset and expands the question window against the
// configured permutations. Question indexes are absolute dataset positions
// so task IDs stay stable when the window moves.
func BuildPlan(cfg spec.Config, baseDir string) (Plan, error) {
	ds, err := dataset.Load(config.ResolvePath(baseDir, cfg.Dataset.File))
	if err != nil {
		return Plan{}, err
	}

	start := 0
	if cfg.Dataset.StartQuestion != nil {
		start = *cfg.Dataset.StartQuestion
	}
	end := len(ds.Questions) - 1
	if cfg.Dataset.EndQuestion != nil {
		end = *cfg.Dataset.EndQuestion
	}
	window, err := dataset.Window(ds.Questions, start, end)
	if err != nil {
		return Plan{}, err
	}

	strategy, err := permutation.ParseStrategy(cfg.Experiment.Permutations.Type)
	if err != nil {
		return Plan{}, err
	}
	count := cfg.Experiment.Permutations.Count
	perms, err := permutation.Generate(strategy, permutation.Identity().Slice(), count)
	if err != nil {
		return Plan{}, fmt.Errorf("generate permutations: %w", err)
	}
	clamped := strategy == permutation.StrategyFactorial && count > permutation.MaxFactorial

	tasks := make([]Task, 0, len(window)*len(perms))
	for offset, q := range window {
		questionIndex := start + offset
		subtask := q.Subtask
		if subtask == "" {
			subtask = cfg.Dataset.Subtask
		}
		for permIndex, perm := range perms {
			tasks = append(tasks, Task{
				ID:            ledger.NewTaskID(questionIndex, permIndex),
				QuestionIndex: questionIndex,
				PermIndex:     permIndex,
				Question:      q,
				Subtask:       subtask,
				Permutation:   perm,
			})
		}
	}

	echo := ledger.Echo{
		ExperimentID:     ExperimentID(cfg),
		Model:            cfg.Experiment.Model,
		Provider:         cfg.Experiment.Provider,
		Language:         cfg.Experiment.Language,
		InputFormat:      cfg.Experiment.InputFormat,
		OutputFormat:     cfg.Experiment.OutputFormat,
		PermutationType:  cfg.Experiment.Permutations.Type,
		PermutationCount: len(perms),
		Subtask:          cfg.Dataset.Subtask,
		StartQuestion:    start,
		EndQuestion:      end,
	}

	return Plan{
		ExperimentID: echo.ExperimentID,
		Tasks:        tasks,
		Echo:         echo,
		CountClamped: clamped,
	}, nil
}
