package duck

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"permutest/internal/ledger"
	"permutest/internal/trial"
)

// IngestStats reports what one Ingest call wrote.
type IngestStats struct {
	Trials int
}

// ConfigKey returns a deterministic fingerprint for an experiment's pinned
// dimensions, used to spot two ledgers claiming the same id with different
// settings.
func ConfigKey(echo ledger.Echo) (string, error) {
	return FingerprintJSON(configPayload(echo))
}

// Ingest writes one experiment's consolidated records into the analytics
// database. Re-running is safe: the experiment row updates in place and
// trial rows upsert on (experiment_id, task_id, trial_id), so records
// rewritten by a repair pass overwrite their earlier ingestion.
func Ingest(ctx context.Context, db *sql.DB, experiment ledger.Snapshot, results []trial.Result) (IngestStats, error) {
	if ctx == nil {
		return IngestStats{}, errors.New("duck: context is nil")
	}
	if db == nil {
		return IngestStats{}, errors.New("duck: db is nil")
	}
	if experiment.ExperimentID == "" {
		return IngestStats{}, errors.New("duck: experiment id is empty")
	}
	if err := upsertExperiment(ctx, db, experiment); err != nil {
		return IngestStats{}, err
	}
	stmt, err := db.PrepareContext(ctx, upsertTrialSQL)
	if err != nil {
		return IngestStats{}, fmt.Errorf("prepare trial upsert: %w", err)
	}
	defer stmt.Close()
	for _, record := range results {
		if err := upsertTrial(ctx, stmt, experiment.ExperimentID, record); err != nil {
			return IngestStats{}, err
		}
	}
	return IngestStats{Trials: len(results)}, nil
}

// configPayload is the canonical shape fingerprinted and stored for an
// experiment's pinned dimensions.
func configPayload(echo ledger.Echo) map[string]interface{} {
	return map[string]interface{}{
		"experiment_id":     echo.ExperimentID,
		"model":             echo.Model,
		"provider":          echo.Provider,
		"language":          echo.Language,
		"input_format":      echo.InputFormat,
		"output_format":     echo.OutputFormat,
		"permutation_type":  echo.PermutationType,
		"permutation_count": echo.PermutationCount,
		"subtask":           echo.Subtask,
		"start_question":    echo.StartQuestion,
		"end_question":      echo.EndQuestion,
	}
}

func upsertExperiment(ctx context.Context, db *sql.DB, experiment ledger.Snapshot) error {
	canonical, err := CanonicalJSON(configPayload(experiment.Echo))
	if err != nil {
		return err
	}
	key := fingerprintBytes(canonical)
	if _, err := db.ExecContext(
		ctx,
		`INSERT INTO experiments (
		   experiment_id, config_key, config, model, provider, language,
		   input_format, output_format, permutation_type, permutation_count,
		   subtask, start_question, end_question, status, total_expected,
		   completed, retry_queued, abandoned, created_at, updated_at, ingested_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, now())
		 ON CONFLICT (experiment_id) DO UPDATE SET
		   config_key = excluded.config_key,
		   config = excluded.config,
		   status = excluded.status,
		   total_expected = excluded.total_expected,
		   completed = excluded.completed,
		   retry_queued = excluded.retry_queued,
		   abandoned = excluded.abandoned,
		   updated_at = excluded.updated_at,
		   ingested_at = now()`,
		experiment.ExperimentID,
		key,
		string(canonical),
		experiment.Echo.Model,
		experiment.Echo.Provider,
		experiment.Echo.Language,
		experiment.Echo.InputFormat,
		experiment.Echo.OutputFormat,
		experiment.Echo.PermutationType,
		experiment.Echo.PermutationCount,
		emptyAsNull(experiment.Echo.Subtask),
		experiment.Echo.StartQuestion,
		experiment.Echo.EndQuestion,
		experiment.Status,
		experiment.TotalExpected,
		len(experiment.Completed),
		len(experiment.RetryQueue),
		len(experiment.Abandoned),
		nullableTime(experiment.CreatedAt),
		nullableTime(experiment.UpdatedAt),
	); err != nil {
		return fmt.Errorf("upsert experiment: %w", err)
	}
	return nil
}

const upsertTrialSQL = `INSERT INTO trials (
  experiment_id, task_id, trial_id, attempt, question_id, question_index,
  subtask, option_permutation, api_call_successful, extracted_answer,
  model_choice_original_label, ground_truth_answer, is_correct, error_message,
  response_time_ms, ts_utc
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (experiment_id, task_id, trial_id) DO UPDATE SET
  attempt = excluded.attempt,
  api_call_successful = excluded.api_call_successful,
  extracted_answer = excluded.extracted_answer,
  model_choice_original_label = excluded.model_choice_original_label,
  ground_truth_answer = excluded.ground_truth_answer,
  is_correct = excluded.is_correct,
  error_message = excluded.error_message,
  response_time_ms = excluded.response_time_ms,
  ts_utc = excluded.ts_utc`

func upsertTrial(ctx context.Context, stmt *sql.Stmt, experimentID string, record trial.Result) error {
	if record.TrialID == "" || record.TaskID == "" {
		return fmt.Errorf("trial record missing identity: trial_id=%q task_id=%q", record.TrialID, record.TaskID)
	}
	if _, err := stmt.ExecContext(
		ctx,
		experimentID,
		record.TaskID,
		record.TrialID,
		record.Attempt,
		record.QuestionID,
		record.QuestionIndex,
		emptyAsNull(record.Subtask),
		record.OptionPermutation,
		record.APICallSuccessful,
		nullableString(record.ExtractedAnswer),
		record.ModelChoiceOriginalLabel,
		record.GroundTruthAnswer,
		nullableBool(record.IsCorrect),
		nullableString(record.Error),
		record.ResponseTimeMS,
		nullableTime(record.Timestamp),
	); err != nil {
		return fmt.Errorf("upsert trial %s: %w", record.TaskID, err)
	}
	return nil
}

// emptyAsNull maps the empty string to SQL NULL.
func emptyAsNull(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

// nullableString converts an optional string pointer into a SQL argument.
func nullableString(value *string) interface{} {
	if value == nil {
		return nil
	}
	return emptyAsNull(*value)
}

// nullableBool converts an optional bool pointer into a SQL argument.
func nullableBool(value *bool) interface{} {
	if value == nil {
		return nil
	}
	return *value
}

// nullableTime parses an RFC3339 timestamp, mapping blanks and junk to NULL.
func nullableTime(value string) interface{} {
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil
	}
	return ts.UTC()
}
