package runner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"permutest/internal/ledger"
	"permutest/internal/parse"
	"permutest/internal/permutation"
	"permutest/internal/prompt"
	"permutest/internal/ratelimit"
	"permutest/internal/spec"
	"permutest/internal/trial"
)

// Run executes an experiment to the ledger protocol: open or resume the
// ledger, work through pending tasks, cool down, retry the queue once, then
// settle status and consolidate when everything is accounted for.
func Run(ctx context.Context, cfg spec.Config, params Params) (Summary, error) {
	deps := params.Deps.withDefaults(cfg)
	log := deps.Logger

	plan, err := BuildPlan(cfg, params.BaseDir)
	if err != nil {
		return Summary{}, err
	}
	if plan.CountClamped {
		log.Warn("factorial permutation count clamped",
			zap.Int("requested", cfg.Experiment.Permutations.Count),
			zap.Int("used", permutation.MaxFactorial))
	}

	outputDir := params.OutputDir
	if outputDir == "" {
		outputDir = cfg.Output.Dir
	}
	paths := ExperimentPaths(resolveOutputDir(params.BaseDir, outputDir), plan.ExperimentID)
	if err := os.MkdirAll(paths.Dir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("create output dir: %w", err)
	}

	led, err := ledger.Open(paths.Dir, ledger.Options{
		Echo:               plan.Echo,
		TotalExpected:      len(plan.Tasks),
		MaxAttempts:        cfg.Retry.MaxAttempts,
		RetryMappingErrors: cfg.Retry.RetryMappingErrors,
		Now:                deps.Now,
	})
	if err != nil {
		return Summary{}, err
	}
	appender, err := ledger.OpenAppender(paths.Results)
	if err != nil {
		return Summary{}, err
	}
	defer appender.Close()

	client, err := deps.ProviderFactory(cfg.Experiment.Provider, cfg.Providers[cfg.Experiment.Provider])
	if err != nil {
		return Summary{}, err
	}
	language, err := prompt.ParseLanguage(cfg.Experiment.Language)
	if err != nil {
		return Summary{}, err
	}
	inputStyle, err := prompt.ParseStyle(cfg.Experiment.InputFormat)
	if err != nil {
		return Summary{}, err
	}
	outputStyle, err := prompt.ParseStyle(cfg.Experiment.OutputFormat)
	if err != nil {
		return Summary{}, err
	}
	formatter, err := prompt.NewFormatter(language, inputStyle, outputStyle)
	if err != nil {
		return Summary{}, err
	}

	startedAt := deps.Now()
	led.SetStatus(ledger.StatusRunning)
	if err := led.Save(); err != nil {
		return Summary{}, err
	}
	counts := led.Counts()
	deps.Observer.OnRunStart(plan.ExperimentID, counts)
	log.Info("run started",
		zap.String("experiment_id", plan.ExperimentID),
		zap.Int("total_tasks", counts.TotalExpected),
		zap.Int("already_completed", counts.Completed),
		zap.Int("retry_queued", counts.RetryQueued),
		zap.Int("abandoned", counts.Abandoned))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	state := &runState{
		led:      led,
		appender: appender,
		pacer:    deps.Pacer,
		observer: deps.Observer,
		log:      log,
		cancel:   cancel,
		now:      deps.Now,
		exec: &trialExec{
			settings: trial.Settings{
				Model:        cfg.Experiment.Model,
				Language:     cfg.Experiment.Language,
				InputFormat:  cfg.Experiment.InputFormat,
				OutputFormat: cfg.Experiment.OutputFormat,
			},
			formatter:          formatter,
			parser:             parse.New(outputStyle),
			provider:           client,
			temperature:        cfg.Experiment.Temperature,
			maxOutputTokens:    cfg.Experiment.MaxOutputTokens,
			requestTimeout:     cfg.Concurrency.RequestTimeout,
			retryMappingErrors: cfg.Retry.RetryMappingErrors,
			now:                deps.Now,
		},
		flushEvery: cfg.Retry.FlushEvery,
		workers:    cfg.Concurrency.Workers,
	}

	byID := make(map[ledger.TaskID]Task, len(plan.Tasks))
	for _, task := range plan.Tasks {
		byID[task.ID] = task
	}

	if !params.RetryOnly {
		pending := make([]Task, 0, len(plan.Tasks))
		for _, task := range plan.Tasks {
			if led.State(task.ID) == ledger.StatePending {
				pending = append(pending, task)
			}
		}
		state.runPhase(runCtx, PhaseInitial, pending)
	}

	if queue := led.RetryQueue(); len(queue) > 0 && runCtx.Err() == nil {
		var cooldown time.Duration
		if cfg.Retry.Cooldown != nil {
			cooldown = *cfg.Retry.Cooldown
		}
		if cooldown > 0 {
			log.Info("cooling down before retry phase",
				zap.Duration("cooldown", cooldown),
				zap.Int("queued", len(queue)))
			if err := ratelimit.Sleep(runCtx, cooldown); err != nil {
				log.Info("cooldown interrupted")
			}
		}
		if runCtx.Err() == nil {
			retries := make([]Task, 0, len(queue))
			for _, id := range queue {
				task, ok := byID[id]
				if !ok {
					// Queued under an earlier question range; leave it alone.
					log.Warn("queued task outside current plan", zap.String("task_id", string(id)))
					continue
				}
				retries = append(retries, task)
			}
			state.runPhase(runCtx, PhaseRetry, retries)
		}
	}

	unsettled := 0
	for _, task := range plan.Tasks {
		switch led.State(task.ID) {
		case ledger.StateCompleted, ledger.StateAbandoned:
		default:
			unsettled++
		}
	}
	status := ledger.StatusComplete
	if runCtx.Err() != nil || unsettled > 0 {
		status = ledger.StatusInterrupted
	}
	led.SetStatus(status)
	if err := led.Save(); err != nil {
		return Summary{}, err
	}

	if status == ledger.StatusComplete {
		if _, err := Consolidate(paths.Results, paths.Final, led.Snapshot().Completed); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Summary{}, err
		}
	}

	summary, err := buildSummary(paths, led, status, deps.Now().Sub(startedAt))
	if err != nil {
		return Summary{}, err
	}
	deps.Observer.OnRunEnd(summary)
	log.Info("run finished",
		zap.String("status", summary.Status),
		zap.Int("completed", summary.Counts.Completed),
		zap.Int("abandoned", summary.Counts.Abandoned),
		zap.Int("retry_queued", summary.Counts.RetryQueued),
		zap.Float64("accuracy", summary.Accuracy))
	if err := state.err(); err != nil {
		return summary, err
	}
	return summary, nil
}

// runState is the shared machinery of one phase-executing run.
type runState struct {
	led        *ledger.Ledger
	appender   *ledger.Appender
	exec       *trialExec
	pacer      ratelimit.Pacer
	observer   RunObserver
	log        *zap.Logger
	cancel     context.CancelFunc
	now        func() time.Time
	flushEvery int
	workers    int

	transitions atomic.Int64
	mu          sync.Mutex
	failure     error
}

func (s *runState) setErr(err error) {
	s.mu.Lock()
	if s.failure == nil {
		s.failure = err
	}
	s.mu.Unlock()
	s.cancel()
}

func (s *runState) err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// runPhase drains tasks through a worker pool, stopping the feed on
// cancellation while letting in-flight attempts finish.
func (s *runState) runPhase(ctx context.Context, phase Phase, tasks []Task) {
	if len(tasks) == 0 {
		return
	}
	s.observer.OnPhaseStart(phase, len(tasks))
	s.log.Info("phase started", zap.String("phase", string(phase)), zap.Int("tasks", len(tasks)))

	workers := s.workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}
	jobs := make(chan Task)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range jobs {
				s.execute(ctx, phase, task)
			}
		}()
	}
feed:
	for _, task := range tasks {
		select {
		case jobs <- task:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	if err := s.led.Flush(); err != nil {
		s.setErr(err)
	}
}

func (s *runState) execute(ctx context.Context, phase Phase, task Task) {
	if !s.led.Claim(task.ID) {
		return
	}
	if err := s.pacer.Wait(ctx); err != nil {
		s.led.Release(task.ID)
		return
	}
	attemptNumber := s.led.Attempts(task.ID) + 1
	s.emit(phase, task, attemptNumber, TrialEvent{Type: TrialStarted})

	outcome := s.exec.run(ctx, task, attemptNumber)
	if outcome.interrupted {
		s.led.Release(task.ID)
		s.emit(phase, task, attemptNumber, TrialEvent{Type: TrialSkipped})
		return
	}
	if err := s.appender.Append(outcome.result); err != nil {
		s.led.Release(task.ID)
		s.setErr(err)
		return
	}

	latency := time.Duration(outcome.result.ResponseTimeMS) * time.Millisecond
	if outcome.completed {
		s.led.MarkCompleted(task.ID)
		s.log.Info("task completed",
			zap.String("task_id", string(task.ID)),
			zap.Int("attempt", attemptNumber),
			zap.String("original_label", outcome.result.ModelChoiceOriginalLabel),
			zap.Int64("response_time_ms", outcome.result.ResponseTimeMS))
		s.emit(phase, task, attemptNumber, TrialEvent{
			Type:      TrialCompleted,
			IsCorrect: outcome.result.IsCorrect,
			Latency:   latency,
		})
	} else {
		s.led.MarkFailed(task.ID, outcome.reason, !outcome.terminal)
		if s.led.State(task.ID) == ledger.StateAbandoned {
			s.log.Warn("task abandoned",
				zap.String("task_id", string(task.ID)),
				zap.Int("attempt", attemptNumber),
				zap.String("reason", outcome.reason))
			s.emit(phase, task, attemptNumber, TrialEvent{
				Type:    TrialAbandoned,
				Error:   outcome.reason,
				Latency: latency,
			})
		} else {
			s.log.Warn("task failed, queued for retry",
				zap.String("task_id", string(task.ID)),
				zap.Int("attempt", attemptNumber),
				zap.String("reason", outcome.reason))
			s.emit(phase, task, attemptNumber, TrialEvent{
				Type:    TrialFailed,
				Error:   outcome.reason,
				Latency: latency,
			})
		}
	}

	n := s.transitions.Add(1)
	if s.flushEvery > 0 && n%int64(s.flushEvery) == 0 {
		if err := s.led.Flush(); err != nil {
			s.setErr(err)
		}
	}
}

func (s *runState) emit(phase Phase, task Task, attempt int, event TrialEvent) {
	event.TaskID = task.ID
	event.QuestionIndex = task.QuestionIndex
	event.PermIndex = task.PermIndex
	event.Attempt = attempt
	event.Phase = phase
	event.EmittedAt = s.now()
	s.observer.OnTrialEvent(event)
}
