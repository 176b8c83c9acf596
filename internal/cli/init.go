package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"permutest/internal/config"
)

// runInit builds the handler for the init command.
func runInit(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		fs := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		fs.SetOutput(stderr)
		configPath := fs.String("config", "", "Where to write the config file (default: ./.permutest.yml)")
		if err := fs.Parse(args); err != nil {
			return ExitUsage
		}
		if fs.NArg() > 0 {
			fmt.Fprintf(stderr, "unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
			printCommandUsage(cmd, stderr)
			return ExitUsage
		}

		target := strings.TrimSpace(*configPath)
		if target == "" {
			wd, err := os.Getwd()
			if err != nil {
				fmt.Fprintf(stderr, "Init failed: %v\n", err)
				return ExitError
			}
			target = config.ConfigPath(wd)
		} else {
			abs, err := filepath.Abs(target)
			if err != nil {
				fmt.Fprintf(stderr, "Init failed: %v\n", err)
				return ExitError
			}
			target = abs
		}

		if err := config.Scaffold(target); err != nil {
			fmt.Fprintf(stderr, "Init failed: %v\n", err)
			return ExitError
		}
		baseDir := filepath.Dir(target)
		fmt.Fprintf(stdout, "Created %s\n", target)
		fmt.Fprintf(stdout, "Created %s\n", filepath.Join(baseDir, config.DefaultDatasetFile))

		// Inside a git checkout, keep experiment artifacts out of version
		// control.
		if _, err := os.Stat(filepath.Join(baseDir, ".git")); err == nil {
			updated, err := addGitignoreEntry(baseDir, config.DefaultOutputDir)
			if err != nil {
				fmt.Fprintf(stderr, "Init failed: update .gitignore: %v\n", err)
				return ExitError
			}
			if updated {
				fmt.Fprintf(stdout, "Updated %s\n", filepath.Join(baseDir, ".gitignore"))
			}
		}
		fmt.Fprintln(stdout, "Set your provider API key, then check the setup with \"permutest validate\".")
		return ExitOK
	}
}
