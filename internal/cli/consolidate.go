package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"permutest/internal/ledger"
	"permutest/internal/runner"
	"permutest/internal/store/duck"
)

// runConsolidate builds the handler for the consolidate command.
func runConsolidate(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		fs := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		fs.SetOutput(stderr)
		configPath := fs.String("config", "", "Path to config file (default: search for .permutest.yml)")
		dbPath := fs.String("db", "", "Also ingest the final records into a DuckDB file")
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
		paths := experimentPaths(cfg, baseDir)
		snap, err := ledger.Inspect(paths.Dir)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to read ledger: %v\n", err)
			return ExitError
		}

		stats, err := runner.Consolidate(paths.Results, paths.Final, snap.Completed)
		if err != nil {
			fmt.Fprintf(stderr, "Consolidation failed: %v\n", err)
			return ExitError
		}
		fmt.Fprintf(stdout, "Consolidated %d attempts into %d final records: %s\n",
			stats.Attempts, stats.Tasks, paths.Final)

		if *dbPath == "" {
			return ExitOK
		}
		finals, err := ledger.ReadResults(paths.Final)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to read final records: %v\n", err)
			return ExitError
		}
		db, err := duck.Open(*dbPath)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to open database: %v\n", err)
			return ExitError
		}
		defer db.Close()
		ingested, err := duck.Ingest(context.Background(), db, snap, finals)
		if err != nil {
			fmt.Fprintf(stderr, "Ingest failed: %v\n", err)
			return ExitError
		}
		fmt.Fprintf(stdout, "Ingested %d trials into %s\n", ingested.Trials, *dbPath)
		return ExitOK
	}
}
