package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const defaultConfig = `version: 1

dataset:
  file: questions.yml
  # subtask: abstract_algebra
  # start_question: 0
  # end_question: 19

experiment:
  model: gemini-2.5-flash
  language: en            # en | fr
  input_format: base      # base | json | xml
  output_format: base     # base | json | xml
  permutations:
    type: circular        # circular | factorial
  temperature: 0.0
  max_output_tokens: 1024

retry:
  max_attempts: 2
  task_delay: 5s
  cooldown: 30s

output:
  dir: results

ui: auto
`

const defaultDataset = `version: 1
questions:
  - id: sample_0
    question: "Which planet is closest to the sun?"
    choices: ["Mercury", "Venus", "Earth", "Mars"]
    answer: A
  - id: sample_1
    question: "What is the chemical symbol for gold?"
    choices: ["Ag", "Fe", "Au", "Pb"]
    answer: C
  - id: sample_2
    question: "Which of these numbers is prime?"
    choices: ["21", "33", "51", "53"]
    answer: D
`

// Scaffold writes a starter config and dataset next to the given config path.
func Scaffold(configPath string) error {
	if configPath == "" {
		return fmt.Errorf("config path is required")
	}
	if info, err := os.Stat(configPath); err == nil {
		if info.IsDir() {
			return fmt.Errorf("config path %q is a directory", configPath)
		}
		return fmt.Errorf("config file already exists at %q", configPath)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	baseDir := filepath.Dir(configPath)
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	datasetPath := filepath.Join(baseDir, DefaultDatasetFile)
	if info, err := os.Stat(datasetPath); err == nil {
		if info.IsDir() {
			return fmt.Errorf("dataset path %q is a directory", datasetPath)
		}
		return fmt.Errorf("dataset file already exists at %q", datasetPath)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat dataset file: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	if err := os.WriteFile(datasetPath, []byte(defaultDataset), 0o644); err != nil {
		return fmt.Errorf("write dataset file: %w", err)
	}
	return nil
}
