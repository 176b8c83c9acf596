package cli

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"permutest/internal/config"
	"permutest/internal/ledger"
)

// statusEntry is one experiment's ledger state for display.
type statusEntry struct {
	ExperimentID  string `json:"experiment_id"`
	Status        string `json:"status"`
	TotalExpected int    `json:"total_expected"`
	Completed     int    `json:"completed"`
	RetryQueued   int    `json:"retry_queued"`
	Abandoned     int    `json:"abandoned"`
	UpdatedAt     string `json:"updated_at,omitempty"`
}

func entryFromSnapshot(snap ledger.Snapshot) statusEntry {
	return statusEntry{
		ExperimentID:  snap.ExperimentID,
		Status:        snap.Status,
		TotalExpected: snap.TotalExpected,
		Completed:     len(snap.Completed),
		RetryQueued:   len(snap.RetryQueue),
		Abandoned:     len(snap.Abandoned),
		UpdatedAt:     snap.UpdatedAt,
	}
}

// runStatus builds the handler for the status command.
func runStatus(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		fs := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		fs.SetOutput(stderr)
		configPath := fs.String("config", "", "Path to config file (default: search for .permutest.yml)")
		experiment := fs.String("experiment", "", "Show one experiment instead of scanning the output dir")
		asJSON := fs.Bool("json", false, "Print machine-readable JSON")
		if err := fs.Parse(args); err != nil {
			return ExitUsage
		}
		if fs.NArg() > 0 {
			fmt.Fprintf(stderr, "unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
			return ExitUsage
		}

		cfg, baseDir, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
			return ExitError
		}
		outputDir := config.ResolvePath(baseDir, cfg.Output.Dir)

		var entries []statusEntry
		if *experiment != "" {
			snap, err := ledger.Inspect(filepath.Join(outputDir, *experiment))
			if err != nil {
				fmt.Fprintf(stderr, "Failed to read ledger for %s: %v\n", *experiment, err)
				return ExitError
			}
			entries = []statusEntry{entryFromSnapshot(snap)}
		} else {
			entries, err = scanExperiments(outputDir)
			if err != nil {
				fmt.Fprintf(stderr, "Failed to scan output dir: %v\n", err)
				return ExitError
			}
		}

		if *asJSON {
			data, err := json.MarshalIndent(entries, "", "  ")
			if err != nil {
				fmt.Fprintf(stderr, "Failed to encode status: %v\n", err)
				return ExitError
			}
			fmt.Fprintln(stdout, string(data))
			return ExitOK
		}

		if len(entries) == 0 {
			fmt.Fprintf(stdout, "No experiments found in %s\n", outputDir)
			return ExitOK
		}
		for _, entry := range entries {
			fmt.Fprintf(stdout, "%s  %s  %d/%d completed, %d retry queued, %d abandoned\n",
				entry.ExperimentID, entry.Status,
				entry.Completed, entry.TotalExpected, entry.RetryQueued, entry.Abandoned)
		}
		return ExitOK
	}
}

// scanExperiments inspects every experiment directory under the output dir.
// Directories without a readable ledger are skipped.
func scanExperiments(outputDir string) ([]statusEntry, error) {
	dirents, err := os.ReadDir(outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	entries := make([]statusEntry, 0, len(dirents))
	for _, dirent := range dirents {
		if !dirent.IsDir() {
			continue
		}
		snap, err := ledger.Inspect(filepath.Join(outputDir, dirent.Name()))
		if err != nil {
			continue
		}
		entries = append(entries, entryFromSnapshot(snap))
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ExperimentID < entries[j].ExperimentID
	})
	return entries, nil
}
