package ledger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"permutest/internal/trial"
)

// Appender writes trial results as append-only JSONL, one fsynced line per
// record. Every attempt lands here, including failed ones, so the full
// history survives crashes; consolidation dedupes later.
type Appender struct {
	mu   sync.Mutex
	file *os.File
}

// OpenAppender opens (or creates) the results file for appending.
func OpenAppender(path string) (*Appender, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open results: %w", err)
	}
	return &Appender{file: file}, nil
}

// Append writes one result record and syncs it to disk before returning.
func (a *Appender) Append(result trial.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, err := a.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append result: %w", err)
	}
	if err := a.file.Sync(); err != nil {
		return fmt.Errorf("sync results: %w", err)
	}
	return nil
}

// Close releases the underlying file.
func (a *Appender) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}

// WriteResults atomically replaces a results file with the given records,
// one per line. Repair passes use it so a crash mid-rewrite never loses the
// original file.
func WriteResults(path string, results []trial.Result) error {
	var buf bytes.Buffer
	for _, r := range results {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	return writeFileAtomic(path, buf.Bytes())
}

// ReadResults loads every record from a results file in append order. A
// final line torn by a crash mid-append is tolerated and dropped; malformed
// lines anywhere else are an error.
func ReadResults(path string) ([]trial.Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open results: %w", err)
	}
	defer file.Close()

	var results []trial.Result
	reader := bufio.NewReader(file)
	lineNo := 0
	badLine := 0
	var badErr error
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			lineNo++
			trimmed := strings.TrimSpace(line)
			if trimmed != "" {
				// Only the very last line can be a torn partial write, so any
				// earlier malformed line is real corruption.
				if badLine != 0 {
					return nil, fmt.Errorf("malformed results line %d: %v", badLine, badErr)
				}
				var r trial.Result
				if decodeErr := json.Unmarshal([]byte(trimmed), &r); decodeErr != nil {
					badLine, badErr = lineNo, decodeErr
				} else {
					results = append(results, r)
				}
			}
		}
		if err == io.EOF {
			return results, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read results: %w", err)
		}
	}
}
