package config

import (
	"strings"
	"time"

	"permutest/internal/spec"
)

// Normalize fills defaults so that a validated config needs no further
// resolution downstream. Validate runs after Normalize in Load.
func Normalize(cfg *spec.Config) {
	cfg.Dataset.File = strings.TrimSpace(cfg.Dataset.File)
	cfg.Dataset.Subtask = strings.TrimSpace(cfg.Dataset.Subtask)

	cfg.Experiment.Model = strings.TrimSpace(cfg.Experiment.Model)
	cfg.Experiment.Provider = strings.ToLower(strings.TrimSpace(cfg.Experiment.Provider))
	if cfg.Experiment.Provider == "" {
		if provider, ok := InferProvider(cfg.Experiment.Model); ok {
			cfg.Experiment.Provider = provider
		}
	}
	if cfg.Experiment.Language == "" {
		cfg.Experiment.Language = "en"
	}
	if cfg.Experiment.InputFormat == "" {
		cfg.Experiment.InputFormat = "base"
	}
	if cfg.Experiment.OutputFormat == "" {
		cfg.Experiment.OutputFormat = "base"
	}
	if cfg.Experiment.Permutations.Type == "" {
		cfg.Experiment.Permutations.Type = "circular"
	}
	if cfg.Experiment.Permutations.Type == "factorial" && cfg.Experiment.Permutations.Count == 0 {
		cfg.Experiment.Permutations.Count = 24
	}
	if cfg.Experiment.MaxOutputTokens == 0 {
		cfg.Experiment.MaxOutputTokens = 1024
	}

	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 2
	}
	if cfg.Retry.TaskDelay == nil {
		cfg.Retry.TaskDelay = durationPtr(5 * time.Second)
	}
	if cfg.Retry.Cooldown == nil {
		cfg.Retry.Cooldown = durationPtr(30 * time.Second)
	}
	if cfg.Retry.FlushEvery == 0 {
		cfg.Retry.FlushEvery = 10
	}

	if cfg.Concurrency.Workers == 0 {
		cfg.Concurrency.Workers = 1
	}
	if cfg.Concurrency.RequestTimeout == 0 {
		cfg.Concurrency.RequestTimeout = 60 * time.Second
	}

	if cfg.Providers == nil {
		cfg.Providers = map[string]spec.ProviderConfig{}
	}
	ensureProviderDefaults(cfg)

	if cfg.Output.Dir == "" {
		cfg.Output.Dir = DefaultOutputDir
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.UI == "" {
		cfg.UI = "auto"
	}
}

// InferProvider guesses the provider for a model name. OpenRouter models are
// namespaced with a slash, e.g. "mistralai/mistral-small-latest".
func InferProvider(model string) (string, bool) {
	name := strings.ToLower(strings.TrimSpace(model))
	switch {
	case name == "":
		return "", false
	case strings.Contains(name, "/"):
		return "openrouter", true
	case strings.HasPrefix(name, "gemini"):
		return "gemini", true
	case strings.HasPrefix(name, "mistral"),
		strings.HasPrefix(name, "magistral"),
		strings.HasPrefix(name, "ministral"),
		strings.HasPrefix(name, "codestral"),
		strings.HasPrefix(name, "open-mistral"),
		strings.HasPrefix(name, "open-mixtral"):
		return "mistral", true
	}
	return "", false
}

func ensureProviderDefaults(cfg *spec.Config) {
	defaults := map[string]spec.ProviderConfig{
		"gemini":     {APIKeyEnv: "GEMINI_API_KEY"},
		"mistral":    {APIKeyEnv: "MISTRAL_API_KEY"},
		"openrouter": {APIKeyEnv: "OPENROUTER_API_KEY"},
	}
	for name, fallback := range defaults {
		entry, ok := cfg.Providers[name]
		if !ok {
			cfg.Providers[name] = fallback
			continue
		}
		if strings.TrimSpace(entry.APIKeyEnv) == "" {
			entry.APIKeyEnv = fallback.APIKeyEnv
			cfg.Providers[name] = entry
		}
	}
}

func durationPtr(value time.Duration) *time.Duration {
	return &value
}
