package runner

import (
	"fmt"
	"path/filepath"
	"strings"

	"permutest/internal/ledger"
	"permutest/internal/runlog"
	"permutest/internal/spec"
)

// FinalFileName is the consolidated one-record-per-task output.
const FinalFileName = "final.jsonl"

// Paths locates every artifact of one experiment.
type Paths struct {
	Dir     string
	Ledger  string
	Results string
	Final   string
	Log     string
}

// ExperimentPaths resolves the artifact paths for an experiment id under the
// configured output directory.
func ExperimentPaths(outputDir, experimentID string) Paths {
	dir := filepath.Join(outputDir, experimentID)
	return Paths{
		Dir:     dir,
		Ledger:  filepath.Join(dir, ledger.FileName),
		Results: filepath.Join(dir, ledger.ResultsFileName),
		Final:   filepath.Join(dir, FinalFileName),
		Log:     filepath.Join(dir, runlog.FileName),
	}
}

// ExperimentID derives the directory name for a configuration. The same
// config always lands in the same directory, which is what makes resume
// find its ledger.
func ExperimentID(cfg spec.Config) string {
	base := strings.TrimSpace(cfg.Dataset.Subtask)
	if base == "" {
		name := filepath.Base(cfg.Dataset.File)
		base = strings.TrimSuffix(name, filepath.Ext(name))
	}
	id := fmt.Sprintf("%s_%s_%s_i%s_o%s_%s",
		base,
		cfg.Experiment.Model,
		cfg.Experiment.Language,
		cfg.Experiment.InputFormat,
		cfg.Experiment.OutputFormat,
		cfg.Experiment.Permutations.Type,
	)
	if cfg.Dataset.StartQuestion != nil || cfg.Dataset.EndQuestion != nil {
		start := 0
		if cfg.Dataset.StartQuestion != nil {
			start = *cfg.Dataset.StartQuestion
		}
		end := -1
		if cfg.Dataset.EndQuestion != nil {
			end = *cfg.Dataset.EndQuestion
		}
		if end >= 0 {
			id = fmt.Sprintf("%s_q%d-%d", id, start, end)
		} else {
			id = fmt.Sprintf("%s_q%d-end", id, start)
		}
	}
	return sanitizeID(id)
}

// sanitizeID keeps experiment ids safe as directory names: anything outside
// letters, digits, dot, underscore, and dash becomes a dash.
func sanitizeID(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}

// resolveOutputDir resolves relative output paths against the config root.
func resolveOutputDir(baseDir, outputDir string) string {
	if outputDir == "" || filepath.IsAbs(outputDir) {
		return outputDir
	}
	return filepath.Join(baseDir, outputDir)
}
