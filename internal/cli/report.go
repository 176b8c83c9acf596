package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"permutest/internal/config"
	"permutest/internal/report"
)

// runReport builds the handler for the report command.
func runReport(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		fs := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		fs.SetOutput(stderr)
		configPath := fs.String("config", "", "Path to config file (default: search for .permutest.yml)")
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

		entries, err := report.Load(outputDir)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to load experiments: %v\n", err)
			return ExitError
		}
		html, err := report.Build(entries)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to render report: %v\n", err)
			return ExitError
		}
		path := filepath.Join(outputDir, report.FileName)
		if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
			fmt.Fprintf(stderr, "Failed to write report: %v\n", err)
			return ExitError
		}
		fmt.Fprintf(stdout, "Report for %d experiments written to %s\n", len(entries), path)
		return ExitOK
	}
}
