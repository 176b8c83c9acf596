package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"permutest/internal/prompt"
	"permutest/internal/runner"
)

// runFix builds the handler for the fix command.
func runFix(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		fs := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		fs.SetOutput(stderr)
		configPath := fs.String("config", "", "Path to config file (default: search for .permutest.yml)")
		experiment := fs.String("experiment", "", "Expected experiment id")
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
		experimentID := runner.ExperimentID(cfg)
		if err := checkExperimentFlag(*experiment, experimentID); err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return ExitError
		}

		style, err := prompt.ParseStyle(cfg.Experiment.OutputFormat)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to resolve output format: %v\n", err)
			return ExitError
		}

		paths := experimentPaths(cfg, baseDir)
		stats, err := runner.Fix(paths.Results, style)
		if err != nil {
			fmt.Fprintf(stderr, "Fix failed: %v\n", err)
			return ExitError
		}
		fmt.Fprintf(stdout, "Fixed %s: %d records scanned, %d extractions recovered, %d mappings changed.\n",
			experimentID, stats.Records, stats.Reparsed, stats.Remapped)
		return ExitOK
	}
}
