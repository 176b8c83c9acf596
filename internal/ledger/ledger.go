package ledger

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Experiment status values persisted in the ledger document.
const (
	StatusRunning     = "running"
	StatusInterrupted = "interrupted"
	StatusComplete    = "complete"
)

// TaskID identifies one (question, permutation) cell as "q{i}_p{j}". The ID
// is deterministic so reruns address the same work; per-attempt identity
// lives in each trial record instead.
type TaskID string

// NewTaskID builds the canonical ID for a question/permutation pair.
func NewTaskID(questionIndex, permIndex int) TaskID {
	return TaskID(fmt.Sprintf("q%d_p%d", questionIndex, permIndex))
}

// Indices parses a task ID back into its question and permutation indexes.
func (id TaskID) Indices() (questionIndex, permIndex int, err error) {
	var q, p int
	if _, scanErr := fmt.Sscanf(string(id), "q%d_p%d", &q, &p); scanErr != nil {
		return 0, 0, fmt.Errorf("malformed task id %q", id)
	}
	if NewTaskID(q, p) != id {
		return 0, 0, fmt.Errorf("malformed task id %q", id)
	}
	return q, p, nil
}

// TaskState is the lifecycle position of one task.
type TaskState string

const (
	StatePending    TaskState = "pending"
	StateCompleted  TaskState = "completed"
	StateRetryQueue TaskState = "retry_queued"
	StateAbandoned  TaskState = "abandoned"
)

// RetryEntry tracks a task waiting for another attempt.
type RetryEntry struct {
	Attempts      int    `json:"attempts"`
	LastError     string `json:"last_error"`
	QuestionIndex int    `json:"question_index"`
	PermIndex     int    `json:"perm_index"`
}

// AbandonedEntry records a task that exhausted its budget or hit a terminal
// error.
type AbandonedEntry struct {
	Attempts    int    `json:"attempts"`
	FinalError  string `json:"final_error"`
	AbandonedAt string `json:"abandoned_at"`
}

// Echo pins the experiment dimensions a ledger belongs to. Resuming with a
// different echo is refused; only the question range may change, which
// recomputes the expected total while preserving completed work.
type Echo struct {
	ExperimentID     string `json:"experiment_id"`
	Model            string `json:"model"`
	Provider         string `json:"provider"`
	Language         string `json:"language"`
	InputFormat      string `json:"input_format"`
	OutputFormat     string `json:"output_format"`
	PermutationType  string `json:"permutation_type"`
	PermutationCount int    `json:"permutation_count"`
	Subtask          string `json:"subtask,omitempty"`
	StartQuestion    int    `json:"start_question"`
	EndQuestion      int    `json:"end_question"`
}

// diff lists the pinned dimensions that disagree, ignoring the question range.
func (e Echo) diff(other Echo) []string {
	var fields []string
	report := func(name, have, want string) {
		if have != want {
			fields = append(fields, fmt.Sprintf("%s: ledger has %q, config has %q", name, have, want))
		}
	}
	report("model", e.Model, other.Model)
	report("provider", e.Provider, other.Provider)
	report("language", e.Language, other.Language)
	report("input_format", e.InputFormat, other.InputFormat)
	report("output_format", e.OutputFormat, other.OutputFormat)
	report("permutation_type", e.PermutationType, other.PermutationType)
	if e.PermutationCount != other.PermutationCount {
		fields = append(fields, fmt.Sprintf("permutation_count: ledger has %d, config has %d", e.PermutationCount, other.PermutationCount))
	}
	report("subtask", e.Subtask, other.Subtask)
	return fields
}

// document is the JSON shape persisted as ledger.json.
type document struct {
	ExperimentID  string                    `json:"experiment_id"`
	CreatedAt     string                    `json:"created_at"`
	UpdatedAt     string                    `json:"updated_at"`
	Status        string                    `json:"status"`
	Echo          Echo                      `json:"config"`
	TotalExpected int                       `json:"total_expected"`
	Completed     []TaskID                  `json:"completed"`
	RetryQueue    map[TaskID]RetryEntry     `json:"retry_queue"`
	Abandoned     map[TaskID]AbandonedEntry `json:"abandoned"`
}

// Ledger is the durable task state machine for one experiment. All state
// transitions go through it; persistence is explicit via Save/Flush so the
// runner can batch writes.
type Ledger struct {
	mu          sync.Mutex
	path        string
	doc         document
	completed   map[TaskID]struct{}
	claimed     map[TaskID]struct{}
	maxAttempts int
	now         func() time.Time
	dirty       bool
}

// Counts summarizes task states for progress reporting.
type Counts struct {
	TotalExpected int
	Completed     int
	RetryQueued   int
	Abandoned     int
}

// Snapshot is a read-only view of ledger state.
type Snapshot struct {
	ExperimentID  string
	Status        string
	CreatedAt     string
	UpdatedAt     string
	Echo          Echo
	TotalExpected int
	Completed     []TaskID
	RetryQueue    map[TaskID]RetryEntry
	Abandoned     map[TaskID]AbandonedEntry
}

// Claim reserves a task for exactly one worker. It refuses tasks that are
// already done, abandoned, or claimed by another worker.
func (l *Ledger) Claim(id TaskID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, done := l.completed[id]; done {
		return false
	}
	if _, gone := l.doc.Abandoned[id]; gone {
		return false
	}
	if _, held := l.claimed[id]; held {
		return false
	}
	l.claimed[id] = struct{}{}
	return true
}

// Release drops a claim without recording an outcome, for shutdown paths
// where the attempt never ran.
func (l *Ledger) Release(id TaskID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.claimed, id)
}

// MarkCompleted moves a task to the completed set and drops any retry state.
func (l *Ledger) MarkCompleted(id TaskID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.claimed, id)
	if _, done := l.completed[id]; done {
		return
	}
	l.completed[id] = struct{}{}
	l.doc.Completed = append(l.doc.Completed, id)
	delete(l.doc.RetryQueue, id)
	l.dirty = true
}

// MarkFailed records a failed attempt. Retryable failures queue the task
// until the attempt budget runs out; terminal failures abandon immediately.
func (l *Ledger) MarkFailed(id TaskID, reason string, retryable bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.claimed, id)
	if _, done := l.completed[id]; done {
		return
	}
	if _, gone := l.doc.Abandoned[id]; gone {
		return
	}

	entry, queued := l.doc.RetryQueue[id]
	if !queued {
		questionIndex, permIndex, err := id.Indices()
		if err == nil {
			entry.QuestionIndex = questionIndex
			entry.PermIndex = permIndex
		}
	}
	entry.Attempts++
	entry.LastError = reason

	if !retryable || entry.Attempts >= l.maxAttempts {
		delete(l.doc.RetryQueue, id)
		l.doc.Abandoned[id] = AbandonedEntry{
			Attempts:    entry.Attempts,
			FinalError:  reason,
			AbandonedAt: l.now().UTC().Format(time.RFC3339),
		}
	} else {
		l.doc.RetryQueue[id] = entry
	}
	l.dirty = true
}

// Attempts reports how many attempts a task has consumed so far.
func (l *Ledger) Attempts(id TaskID) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if entry, ok := l.doc.RetryQueue[id]; ok {
		return entry.Attempts
	}
	if entry, ok := l.doc.Abandoned[id]; ok {
		return entry.Attempts
	}
	return 0
}

// State reports the lifecycle position of a task.
func (l *Ledger) State(id TaskID) TaskState {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, done := l.completed[id]; done {
		return StateCompleted
	}
	if _, gone := l.doc.Abandoned[id]; gone {
		return StateAbandoned
	}
	if _, queued := l.doc.RetryQueue[id]; queued {
		return StateRetryQueue
	}
	return StatePending
}

// RetryQueue returns the queued task IDs ordered by question then
// permutation index.
func (l *Ledger) RetryQueue() []TaskID {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]TaskID, 0, len(l.doc.RetryQueue))
	for id := range l.doc.RetryQueue {
		ids = append(ids, id)
	}
	SortTaskIDs(ids)
	return ids
}

// Counts summarizes the ledger for progress reporting.
func (l *Ledger) Counts() Counts {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Counts{
		TotalExpected: l.doc.TotalExpected,
		Completed:     len(l.doc.Completed),
		RetryQueued:   len(l.doc.RetryQueue),
		Abandoned:     len(l.doc.Abandoned),
	}
}

// SetStatus records the experiment status (running, interrupted, complete).
func (l *Ledger) SetStatus(status string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.doc.Status == status {
		return
	}
	l.doc.Status = status
	l.dirty = true
}

// Reset clears retry and abandoned state so those tasks run fresh, while
// completed work is preserved.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.doc.RetryQueue) == 0 && len(l.doc.Abandoned) == 0 {
		return
	}
	l.doc.RetryQueue = map[TaskID]RetryEntry{}
	l.doc.Abandoned = map[TaskID]AbandonedEntry{}
	l.dirty = true
}

// Snapshot returns a deep copy of the current state.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.doc.snapshot()
}

func (d document) snapshot() Snapshot {
	completed := make([]TaskID, len(d.Completed))
	copy(completed, d.Completed)
	SortTaskIDs(completed)
	retry := make(map[TaskID]RetryEntry, len(d.RetryQueue))
	for id, entry := range d.RetryQueue {
		retry[id] = entry
	}
	abandoned := make(map[TaskID]AbandonedEntry, len(d.Abandoned))
	for id, entry := range d.Abandoned {
		abandoned[id] = entry
	}
	return Snapshot{
		ExperimentID:  d.ExperimentID,
		Status:        d.Status,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
		Echo:          d.Echo,
		TotalExpected: d.TotalExpected,
		Completed:     completed,
		RetryQueue:    retry,
		Abandoned:     abandoned,
	}
}

// SortTaskIDs orders IDs by question index then permutation index, with a
// lexicographic fallback for IDs that do not parse.
func SortTaskIDs(ids []TaskID) {
	sort.Slice(ids, func(i, j int) bool {
		qi, pi, errI := ids[i].Indices()
		qj, pj, errJ := ids[j].Indices()
		if errI != nil || errJ != nil {
			return ids[i] < ids[j]
		}
		if qi != qj {
			return qi < qj
		}
		return pi < pj
	})
}
