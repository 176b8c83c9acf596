package spec

import "time"

type Config struct {
	Version     int                       `yaml:"version"`
	Dataset     DatasetConfig             `yaml:"dataset"`
	Experiment  ExperimentConfig          `yaml:"experiment"`
	Retry       RetryConfig               `yaml:"retry"`
	Concurrency ConcurrencyConfig         `yaml:"concurrency"`
	Providers   map[string]ProviderConfig `yaml:"providers"`
	Output      OutputConfig              `yaml:"output"`
	Logging     LoggingConfig             `yaml:"logging"`
	UI          string                    `yaml:"ui"`
}

type DatasetConfig struct {
	File          string `yaml:"file"`
	Subtask       string `yaml:"subtask"`
	StartQuestion *int   `yaml:"start_question"`
	EndQuestion   *int   `yaml:"end_question"`
}

type ExperimentConfig struct {
	Model           string            `yaml:"model"`
	Provider        string            `yaml:"provider"`
	Language        string            `yaml:"language"`
	InputFormat     string            `yaml:"input_format"`
	OutputFormat    string            `yaml:"output_format"`
	Permutations    PermutationConfig `yaml:"permutations"`
	Temperature     float64           `yaml:"temperature"`
	MaxOutputTokens int               `yaml:"max_output_tokens"`
}

type PermutationConfig struct {
	Type  string `yaml:"type"`
	Count int    `yaml:"count"`
}

type RetryConfig struct {
	MaxAttempts        int            `yaml:"max_attempts"`
	TaskDelay          *time.Duration `yaml:"task_delay"`
	Cooldown           *time.Duration `yaml:"cooldown"`
	FlushEvery         int            `yaml:"flush_every"`
	RetryMappingErrors bool           `yaml:"retry_mapping_errors"`
}

type ConcurrencyConfig struct {
	Workers        int           `yaml:"workers"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type ProviderConfig struct {
	APIKeyEnv string `yaml:"api_key_env"`
	BaseURL   string `yaml:"base_url"`
}

type OutputConfig struct {
	Dir string `yaml:"dir"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}
