package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"permutest/internal/config"
	"permutest/internal/reportserver"
)

// serveReport is a test seam for running the report server.
var serveReport = reportserver.Serve

// runServe builds the handler for the serve command.
func runServe(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}
		fs := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		fs.SetOutput(stderr)
		configPath := fs.String("config", "", "Path to config file (default: search for .permutest.yml)")
		addr := fs.String("addr", "127.0.0.1:8080", "Address to listen on")
		dbPath := fs.String("db", "", "DuckDB file to expose at /db")
		if err := fs.Parse(args); err != nil {
			return ExitUsage
		}
		if fs.NArg() > 0 {
			fmt.Fprintf(stderr, "unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
			return ExitUsage
		}
		if *addr == "" {
			fmt.Fprintln(stderr, "Missing -addr")
			return ExitUsage
		}

		cfg, baseDir, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
			return ExitError
		}
		outputDir := config.ResolvePath(baseDir, cfg.Output.Dir)
		if *dbPath != "" {
			if _, err := os.Stat(*dbPath); err != nil {
				fmt.Fprintf(stderr, "Database not found: %v\n", err)
				return ExitError
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Fprintf(stdout, "Serving report at http://%s\n", *addr)
		if err := serveReport(ctx, reportserver.Config{
			Addr:      *addr,
			OutputDir: outputDir,
			DBPath:    *dbPath,
		}); err != nil {
			fmt.Fprintf(stderr, "Server error: %v\n", err)
			return ExitError
		}
		return ExitOK
	}
}
