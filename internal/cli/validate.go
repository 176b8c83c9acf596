package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"permutest/internal/config"
	"permutest/internal/runner"
)

// runValidate builds the handler for the validate command.
func runValidate(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		fs := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		fs.SetOutput(stderr)
		configPath := fs.String("config", "", "Path to config file (default: search for .permutest.yml)")
		if err := fs.Parse(args); err != nil {
			if err == flag.ErrHelp {
				printCommandUsage(cmd, stdout)
				return ExitOK
			}
			fmt.Fprintf(stderr, "invalid arguments: %v\n", err)
			printCommandUsage(cmd, stderr)
			return ExitUsage
		}
		if fs.NArg() > 0 {
			fmt.Fprintf(stderr, "unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
			printCommandUsage(cmd, stderr)
			return ExitUsage
		}

		resolved, err := resolveConfigPath(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "Validation failed:\n%v\n", err)
			return ExitError
		}
		cfg, err := config.Load(resolved)
		if err != nil {
			var verr *config.ValidationError
			if errors.As(err, &verr) {
				fmt.Fprintln(stderr, "Config has issues:")
				for _, issue := range verr.Issues {
					fmt.Fprintf(stderr, "  %s: %s\n", issue.Field, issue.Message)
				}
			} else {
				fmt.Fprintf(stderr, "Validation failed:\n%v\n", err)
			}
			return ExitError
		}

		plan, err := runner.BuildPlan(cfg, config.RootFromConfigPath(resolved))
		if err != nil {
			fmt.Fprintf(stderr, "Dataset invalid: %v\n", err)
			return ExitError
		}
		if plan.CountClamped {
			fmt.Fprintf(stderr, "Warning: factorial permutation count clamped to %d\n", plan.Echo.PermutationCount)
		}

		perms := plan.Echo.PermutationCount
		questions := 0
		if perms > 0 {
			questions = len(plan.Tasks) / perms
		}
		fmt.Fprintf(stdout, "Config OK: %d questions x %d permutations = %d tasks (experiment %s)\n",
			questions, perms, len(plan.Tasks), plan.ExperimentID)
		return ExitOK
	}
}
