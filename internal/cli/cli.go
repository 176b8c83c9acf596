package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

type Command struct {
	Name    string
	Summary string
	Usage   []string
	Run     func(args []string, stdout, stderr io.Writer) int
}

// chdir is a test seam for the -C flag.
var chdir = os.Chdir

func Run(args []string, stdout, stderr io.Writer) int {
	args, err := applyChdir(args)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return ExitUsage
	}
	if len(args) == 0 {
		printUsage(stdout)
		return ExitUsage
	}
	if isHelpArg(args[0]) {
		printUsage(stdout)
		return ExitOK
	}

	cmd := findCommand(args[0])
	if cmd == nil {
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", args[0])
		printUsage(stderr)
		return ExitUsage
	}

	return cmd.Run(args[1:], stdout, stderr)
}

// applyChdir consumes a leading -C <dir> flag, which anchors every relative
// path the commands touch.
func applyChdir(args []string) ([]string, error) {
	if len(args) == 0 {
		return args, nil
	}
	var dir string
	rest := args
	switch {
	case args[0] == "-C":
		if len(args) < 2 {
			return nil, fmt.Errorf("-C requires a directory")
		}
		dir = args[1]
		rest = args[2:]
	case strings.HasPrefix(args[0], "-C="):
		dir = strings.TrimPrefix(args[0], "-C=")
		rest = args[1:]
	default:
		return args, nil
	}
	if dir == "" {
		return nil, fmt.Errorf("-C requires a directory")
	}
	if err := chdir(dir); err != nil {
		return nil, fmt.Errorf("change directory: %w", err)
	}
	return rest, nil
}

func findCommand(name string) *Command {
	for _, cmd := range commands {
		if cmd.Name == name {
			return cmd
		}
	}
	return nil
}

func isHelpArg(arg string) bool {
	switch arg {
	case "-h", "--help", "help":
		return true
	default:
		return false
	}
}

func wantsHelp(args []string) bool {
	for _, arg := range args {
		switch arg {
		case "-h", "--help":
			return true
		}
	}
	return false
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  permutest [-C dir] <command> [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-12s %s\n", cmd.Name, cmd.Summary)
	}
	fmt.Fprintln(w, "\nUse \"permutest <command> --help\" for more information.")
}

func printCommandUsage(cmd *Command, w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	for _, line := range cmd.Usage {
		fmt.Fprintf(w, "  %s\n", line)
	}
	if cmd.Summary != "" {
		fmt.Fprintf(w, "\n%s\n", cmd.Summary)
	}
}

func command(name, summary string, usage []string, runner func(cmd *Command) func(args []string, stdout, stderr io.Writer) int) *Command {
	cmd := &Command{
		Name:    name,
		Summary: summary,
		Usage:   usage,
	}
	cmd.Run = runner(cmd)
	return cmd
}

var commands = []*Command{
	command("run", "Execute or resume the configured experiment", []string{
		"permutest run [-config path] [-ui auto|live|plain] [-workers N] [-verbose]",
	}, runRun),
	command("retry", "Re-attempt the retry queue of an existing experiment", []string{
		"permutest retry [-config path] [-experiment id] [-ui auto|live|plain] [-workers N] [-verbose]",
	}, runRetry),
	command("status", "Print ledger state for one experiment or all", []string{
		"permutest status [-config path] [-experiment id] [-json]",
	}, runStatus),
	command("reset", "Clear retry and abandoned state, keep completed work", []string{
		"permutest reset [-config path] [-experiment id] [-yes]",
	}, runReset),
	command("fix", "Re-parse stored responses and re-derive mappings", []string{
		"permutest fix [-config path] [-experiment id]",
	}, runFix),
	command("consolidate", "Build final.jsonl from the attempt log", []string{
		"permutest consolidate [-config path] [-db file.duckdb]",
	}, runConsolidate),
	command("report", "Write the HTML report for all experiments", []string{
		"permutest report [-config path]",
	}, runReport),
	command("serve", "Serve the report and DuckDB artifact over HTTP", []string{
		"permutest serve [-config path] [-addr host:port] [-db file.duckdb]",
	}, runServe),
	command("validate", "Validate config and dataset", []string{
		"permutest validate [-config path]",
	}, runValidate),
	command("init", "Scaffold .permutest.yml and a starter dataset", []string{
		"permutest init [-config path]",
	}, runInit),
}
