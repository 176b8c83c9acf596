package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"permutest/internal/trial"
)

// File names inside an experiment's output directory.
const (
	FileName        = "ledger.json"
	ResultsFileName = "results.jsonl"
)

// ErrLedgerCorrupt marks a ledger file that exists but cannot be decoded.
// Corruption is fatal rather than silently restarting the experiment.
var ErrLedgerCorrupt = errors.New("ledger corrupt")

// ErrConfigMismatch marks a resume attempt whose experiment dimensions
// disagree with the ledger's recorded config.
var ErrConfigMismatch = errors.New("ledger config mismatch")

// Options carry the runtime parameters a ledger needs beyond its on-disk
// state. MaxAttempts and RetryMappingErrors come from config on every run so
// a changed config applies to resumed experiments too.
type Options struct {
	Echo               Echo
	TotalExpected      int
	MaxAttempts        int
	RetryMappingErrors bool
	Now                func() time.Time
}

func (o *Options) normalize() {
	if o.MaxAttempts < 1 {
		o.MaxAttempts = 1
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Open loads the ledger for an experiment directory, creating a fresh one
// when none exists. An existing ledger is verified against the requested
// config echo and reconciled with results.jsonl so that a crash between a
// result append and a ledger save does not lose completed work.
func Open(dir string, opts Options) (*Ledger, error) {
	opts.normalize()
	path := filepath.Join(dir, FileName)

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return newLedger(path, opts), nil
	case err != nil:
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrLedgerCorrupt, path, err)
	}
	if doc.ExperimentID == "" || doc.Status == "" {
		return nil, fmt.Errorf("%w: %s is missing required fields", ErrLedgerCorrupt, path)
	}
	if fields := doc.Echo.diff(opts.Echo); len(fields) > 0 {
		return nil, fmt.Errorf("%w:\n  %s", ErrConfigMismatch, strings.Join(fields, "\n  "))
	}

	if doc.RetryQueue == nil {
		doc.RetryQueue = map[TaskID]RetryEntry{}
	}
	if doc.Abandoned == nil {
		doc.Abandoned = map[TaskID]AbandonedEntry{}
	}

	l := &Ledger{
		path:        path,
		doc:         doc,
		completed:   make(map[TaskID]struct{}, len(doc.Completed)),
		claimed:     map[TaskID]struct{}{},
		maxAttempts: opts.MaxAttempts,
		now:         opts.Now,
	}
	for _, id := range doc.Completed {
		l.completed[id] = struct{}{}
	}

	// A changed question range keeps completed work and re-plans the rest.
	if doc.Echo.StartQuestion != opts.Echo.StartQuestion ||
		doc.Echo.EndQuestion != opts.Echo.EndQuestion ||
		doc.TotalExpected != opts.TotalExpected {
		l.doc.Echo.StartQuestion = opts.Echo.StartQuestion
		l.doc.Echo.EndQuestion = opts.Echo.EndQuestion
		l.doc.TotalExpected = opts.TotalExpected
		l.dirty = true
	}

	if err := l.reconcile(dir, opts.RetryMappingErrors); err != nil {
		return nil, err
	}
	return l, nil
}

func newLedger(path string, opts Options) *Ledger {
	now := opts.Now().UTC().Format(time.RFC3339)
	return &Ledger{
		path: path,
		doc: document{
			ExperimentID:  opts.Echo.ExperimentID,
			CreatedAt:     now,
			UpdatedAt:     now,
			Status:        StatusRunning,
			Echo:          opts.Echo,
			TotalExpected: opts.TotalExpected,
			RetryQueue:    map[TaskID]RetryEntry{},
			Abandoned:     map[TaskID]AbandonedEntry{},
		},
		completed:   map[TaskID]struct{}{},
		claimed:     map[TaskID]struct{}{},
		maxAttempts: opts.MaxAttempts,
		now:         opts.Now,
		dirty:       true,
	}
}

// reconcile re-adds tasks whose results hit disk but whose ledger transition
// did not. A record counts as completing its task when the call succeeded
// and an answer was extracted; with retry_mapping_errors on, records that
// still carry a mapping sentinel stay eligible for retry instead.
func (l *Ledger) reconcile(dir string, retryMappingErrors bool) error {
	results, err := ReadResults(filepath.Join(dir, ResultsFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, r := range results {
		if !r.APICallSuccessful || r.ExtractedAnswer == nil {
			continue
		}
		if retryMappingErrors && r.ModelChoiceOriginalLabel == trial.LabelMappingError {
			continue
		}
		id := TaskID(r.TaskID)
		if _, done := l.completed[id]; done {
			continue
		}
		l.completed[id] = struct{}{}
		l.doc.Completed = append(l.doc.Completed, id)
		delete(l.doc.RetryQueue, id)
		delete(l.doc.Abandoned, id)
		l.dirty = true
	}
	return nil
}

// Save writes the ledger to disk unconditionally via a temp file and rename
// so a crash mid-write never leaves a torn document.
func (l *Ledger) Save() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.saveLocked()
}

// Flush saves only when state changed since the last write.
func (l *Ledger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.dirty {
		return nil
	}
	return l.saveLocked()
}

func (l *Ledger) saveLocked() error {
	SortTaskIDs(l.doc.Completed)
	l.doc.UpdatedAt = l.now().UTC().Format(time.RFC3339)
	data, err := json.MarshalIndent(l.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}
	if err := writeFileAtomic(l.path, append(data, '\n')); err != nil {
		return err
	}
	l.dirty = false
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".permutest-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Inspect reads a ledger without taking ownership of it, for status-style
// commands that must not create or mutate experiment state.
func Inspect(dir string) (Snapshot, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read ledger: %w", err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Snapshot{}, fmt.Errorf("%w: parse %s: %v", ErrLedgerCorrupt, path, err)
	}
	return doc.snapshot(), nil
}
