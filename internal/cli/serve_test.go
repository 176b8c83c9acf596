package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"permutest/internal/config"
	"permutest/internal/reportserver"
)

// TestServeCommandPassesConfig ensures serve forwards parsed flags to the
// server layer.
func TestServeCommandPassesConfig(t *testing.T) {
	configPath := writeProject(t)
	baseDir := filepath.Dir(configPath)
	dbPath := filepath.Join(baseDir, "report.duckdb")
	if err := os.WriteFile(dbPath, []byte("duckdb"), 0o644); err != nil {
		t.Fatalf("write temp db: %v", err)
	}

	var gotConfig reportserver.Config
	origServe := serveReport
	serveReport = func(_ context.Context, cfg reportserver.Config) error {
		gotConfig = cfg
		return nil
	}
	t.Cleanup(func() { serveReport = origServe })

	cmd := findCommand("serve")
	if cmd == nil {
		t.Fatalf("serve command not found")
	}
	var stdout, stderr bytes.Buffer
	exitCode := cmd.Run([]string{
		"-config", configPath,
		"-addr", "127.0.0.1:5050",
		"-db", dbPath,
	}, &stdout, &stderr)
	if exitCode != ExitOK {
		t.Fatalf("expected exit ok, got %d: %s", exitCode, stderr.String())
	}
	if gotConfig.Addr != "127.0.0.1:5050" {
		t.Fatalf("unexpected addr: %s", gotConfig.Addr)
	}
	if gotConfig.OutputDir != config.ResolvePath(baseDir, "results") {
		t.Fatalf("unexpected output dir: %s", gotConfig.OutputDir)
	}
	if gotConfig.DBPath != dbPath {
		t.Fatalf("unexpected db path: %s", gotConfig.DBPath)
	}
	if !strings.Contains(stdout.String(), "Serving report at http://127.0.0.1:5050") {
		t.Fatalf("expected serving notice, got: %s", stdout.String())
	}
}

// TestServeDefaultsAddr verifies the default listen address.
func TestServeDefaultsAddr(t *testing.T) {
	configPath := writeProject(t)

	var gotConfig reportserver.Config
	origServe := serveReport
	serveReport = func(_ context.Context, cfg reportserver.Config) error {
		gotConfig = cfg
		return nil
	}
	t.Cleanup(func() { serveReport = origServe })

	cmd := findCommand("serve")
	var stdout, stderr bytes.Buffer
	exitCode := cmd.Run([]string{"-config", configPath}, &stdout, &stderr)
	if exitCode != ExitOK {
		t.Fatalf("expected exit ok, got %d: %s", exitCode, stderr.String())
	}
	if gotConfig.Addr != "127.0.0.1:8080" {
		t.Fatalf("unexpected default addr: %s", gotConfig.Addr)
	}
	if gotConfig.DBPath != "" {
		t.Fatalf("expected empty db path, got: %s", gotConfig.DBPath)
	}
}

// TestServeMissingDatabase verifies -db must point at an existing file.
func TestServeMissingDatabase(t *testing.T) {
	configPath := writeProject(t)

	origServe := serveReport
	serveReport = func(context.Context, reportserver.Config) error {
		t.Errorf("server should not start with a missing database")
		return nil
	}
	t.Cleanup(func() { serveReport = origServe })

	cmd := findCommand("serve")
	var stdout, stderr bytes.Buffer
	exitCode := cmd.Run([]string{"-config", configPath, "-db", filepath.Join(t.TempDir(), "absent.duckdb")}, &stdout, &stderr)
	if exitCode != ExitError {
		t.Fatalf("expected exit %d, got %d", ExitError, exitCode)
	}
	if !strings.Contains(stderr.String(), "Database not found") {
		t.Fatalf("expected database error, got: %s", stderr.String())
	}
}
