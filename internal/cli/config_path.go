package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"permutest/internal/config"
	"permutest/internal/runner"
	"permutest/internal/spec"
)

// resolveConfigPath normalizes a config path or finds it from CWD.
func resolveConfigPath(configPath string) (string, error) {
	if strings.TrimSpace(configPath) == "" {
		return config.FindConfigPath("")
	}
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return abs, nil
}

// loadConfig resolves and loads the config, returning it together with the
// project root that anchors relative dataset and output paths.
func loadConfig(configPath string) (spec.Config, string, error) {
	resolved, err := resolveConfigPath(configPath)
	if err != nil {
		return spec.Config{}, "", err
	}
	cfg, err := config.Load(resolved)
	if err != nil {
		return spec.Config{}, "", err
	}
	return cfg, config.RootFromConfigPath(resolved), nil
}

// experimentPaths locates the artifacts of the configured experiment.
func experimentPaths(cfg spec.Config, baseDir string) runner.Paths {
	outputDir := config.ResolvePath(baseDir, cfg.Output.Dir)
	return runner.ExperimentPaths(outputDir, runner.ExperimentID(cfg))
}

// checkExperimentFlag guards commands against a config that derives a
// different experiment than the one named on the command line.
func checkExperimentFlag(flagValue, derived string) error {
	if flagValue == "" || flagValue == derived {
		return nil
	}
	return fmt.Errorf("config derives experiment %q, not %q", derived, flagValue)
}
