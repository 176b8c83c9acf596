package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"permutest/internal/spec"
)

// Issue captures a validation problem with a config field.
type Issue struct {
	Field   string
	Message string
}

// ValidationError aggregates config validation issues.
type ValidationError struct {
	Issues []Issue
}

// Error renders validation errors as a multi-line string.
func (err *ValidationError) Error() string {
	if err == nil || len(err.Issues) == 0 {
		return "config validation failed"
	}
	lines := make([]string, 0, len(err.Issues))
	for _, issue := range err.Issues {
		lines = append(lines, fmt.Sprintf("%s: %s", issue.Field, issue.Message))
	}
	return strings.Join(lines, "\n")
}

// Validate checks a normalized config for correctness and referenced files.
func Validate(cfg *spec.Config, baseDir string) error {
	var issues []Issue
	add := func(field, message string) {
		issues = append(issues, Issue{Field: field, Message: message})
	}

	if cfg.Version == 0 {
		add("version", "is required")
	} else if cfg.Version != 1 {
		add("version", fmt.Sprintf("unsupported version %d", cfg.Version))
	}

	if baseDir == "" {
		baseDir = "."
	}

	if cfg.Dataset.File == "" {
		add("dataset.file", "is required")
	} else {
		path := cfg.Dataset.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		info, err := os.Stat(path)
		if err != nil {
			add("dataset.file", fmt.Sprintf("dataset not found at %q", cfg.Dataset.File))
		} else if info.IsDir() {
			add("dataset.file", fmt.Sprintf("dataset path %q is a directory", cfg.Dataset.File))
		}
	}
	if cfg.Dataset.StartQuestion != nil && *cfg.Dataset.StartQuestion < 0 {
		add("dataset.start_question", "must be >= 0")
	}
	if cfg.Dataset.EndQuestion != nil && *cfg.Dataset.EndQuestion < 0 {
		add("dataset.end_question", "must be >= 0")
	}
	if cfg.Dataset.StartQuestion != nil && cfg.Dataset.EndQuestion != nil &&
		*cfg.Dataset.EndQuestion < *cfg.Dataset.StartQuestion {
		add("dataset.end_question", "must be >= dataset.start_question")
	}

	if cfg.Experiment.Model == "" {
		add("experiment.model", "is required")
	}
	switch cfg.Experiment.Provider {
	case "gemini", "mistral", "openrouter":
		entry := cfg.Providers[cfg.Experiment.Provider]
		if strings.TrimSpace(entry.APIKeyEnv) == "" {
			add(fmt.Sprintf("providers.%s.api_key_env", cfg.Experiment.Provider), "is required")
		}
	case "":
		add("experiment.provider", fmt.Sprintf("is required (cannot infer from model %q)", cfg.Experiment.Model))
	default:
		add("experiment.provider", fmt.Sprintf("unsupported provider %q", cfg.Experiment.Provider))
	}
	switch cfg.Experiment.Language {
	case "en", "fr":
	default:
		add("experiment.language", fmt.Sprintf("unsupported language %q", cfg.Experiment.Language))
	}
	if !isPromptStyle(cfg.Experiment.InputFormat) {
		add("experiment.input_format", fmt.Sprintf("unsupported format %q", cfg.Experiment.InputFormat))
	}
	if !isPromptStyle(cfg.Experiment.OutputFormat) {
		add("experiment.output_format", fmt.Sprintf("unsupported format %q", cfg.Experiment.OutputFormat))
	}
	switch cfg.Experiment.Permutations.Type {
	case "circular":
	case "factorial":
		if cfg.Experiment.Permutations.Count < 1 {
			add("experiment.permutations.count", "must be >= 1")
		}
	default:
		add("experiment.permutations.type", fmt.Sprintf("unsupported type %q (expected circular or factorial)", cfg.Experiment.Permutations.Type))
	}
	if cfg.Experiment.Temperature < 0 {
		add("experiment.temperature", "must be >= 0")
	}
	if cfg.Experiment.MaxOutputTokens < 1 {
		add("experiment.max_output_tokens", "must be >= 1")
	}

	if cfg.Retry.MaxAttempts < 1 {
		add("retry.max_attempts", "must be >= 1")
	}
	if cfg.Retry.TaskDelay != nil && *cfg.Retry.TaskDelay < 0 {
		add("retry.task_delay", "must be >= 0")
	}
	if cfg.Retry.Cooldown != nil && *cfg.Retry.Cooldown < 0 {
		add("retry.cooldown", "must be >= 0")
	}
	if cfg.Retry.FlushEvery < 1 {
		add("retry.flush_every", "must be >= 1")
	}

	if cfg.Concurrency.Workers < 1 {
		add("concurrency.workers", "must be >= 1")
	}
	if cfg.Concurrency.RequestTimeout <= 0 {
		add("concurrency.request_timeout", "must be > 0")
	}

	if cfg.Output.Dir == "" {
		add("output.dir", "is required")
	}
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		add("logging.level", fmt.Sprintf("unsupported level %q", cfg.Logging.Level))
	}
	switch cfg.UI {
	case "auto", "live", "plain":
	default:
		add("ui", fmt.Sprintf("unsupported mode %q (expected auto, live, or plain)", cfg.UI))
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

func isPromptStyle(value string) bool {
	switch value {
	case "base", "json", "xml":
		return true
	}
	return false
}
