package cli

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"permutest/internal/ledger"
	"permutest/internal/runner"
)

// resetInput is a test seam for the confirmation prompt.
var resetInput io.Reader

// runReset builds the handler for the reset command.
func runReset(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		fs := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		fs.SetOutput(stderr)
		configPath := fs.String("config", "", "Path to config file (default: search for .permutest.yml)")
		experiment := fs.String("experiment", "", "Expected experiment id")
		yes := fs.Bool("yes", false, "Skip the confirmation prompt")
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
		plan, err := runner.BuildPlan(cfg, baseDir)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to plan experiment: %v\n", err)
			return ExitError
		}
		if err := checkExperimentFlag(*experiment, plan.ExperimentID); err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return ExitError
		}

		paths := experimentPaths(cfg, baseDir)
		if _, err := os.Stat(paths.Ledger); err != nil {
			fmt.Fprintf(stderr, "No ledger found at %s\n", paths.Ledger)
			return ExitError
		}

		if !*yes {
			fmt.Fprintf(stdout, "Reset %s? Retry and abandoned state is cleared; completed work is kept. [y/N] ", plan.ExperimentID)
			if !confirm(resetInput) {
				fmt.Fprintln(stdout, "Aborted.")
				return ExitOK
			}
		}

		led, err := ledger.Open(paths.Dir, ledger.Options{
			Echo:               plan.Echo,
			TotalExpected:      len(plan.Tasks),
			MaxAttempts:        cfg.Retry.MaxAttempts,
			RetryMappingErrors: cfg.Retry.RetryMappingErrors,
		})
		if err != nil {
			fmt.Fprintf(stderr, "Failed to open ledger: %v\n", err)
			return ExitError
		}
		before := led.Counts()
		led.Reset()
		if err := led.Save(); err != nil {
			fmt.Fprintf(stderr, "Failed to save ledger: %v\n", err)
			return ExitError
		}
		fmt.Fprintf(stdout, "Reset %s: cleared %d retry queued and %d abandoned, kept %d completed.\n",
			plan.ExperimentID, before.RetryQueued, before.Abandoned, before.Completed)
		return ExitOK
	}
}

// confirm reads one line and reports whether it is an explicit yes.
func confirm(in io.Reader) bool {
	if in == nil {
		in = os.Stdin
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
