package etl

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/clearsight-analytics/churn-cli/internal/db"
	"github.com/clearsight-analytics/churn-cli/internal/model"
)

// RunResult holds the outcome of a pipeline run, passed to Complete().
type RunResult struct {
	RowsLoaded int64          `json:"rows_loaded"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// RunLog provides read/write access to the churn.pipeline_runs table.
type RunLog struct {
	pool db.Pool
}

// NewRunLog creates a RunLog backed by the given connection pool.
func NewRunLog(pool db.Pool) *RunLog {
	return &RunLog{pool: pool}
}

// Start records the beginning of a pipeline run and returns its ID.
func (r *RunLog) Start(ctx context.Context, source string) (string, error) {
	id := uuid.New().String()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO churn.pipeline_runs (id, source, status, started_at)
		 VALUES ($1, $2, 'running', now())`,
		id, source,
	)
	if err != nil {
		return "", eris.Wrapf(err, "runlog: start run for %s", source)
	}
	return id, nil
}

// Complete marks a run as successfully completed.
func (r *RunLog) Complete(ctx context.Context, runID string, result *RunResult) error {
	var metaJSON []byte
	if result != nil && result.Metadata != nil {
		var err error
		metaJSON, err = json.Marshal(result.Metadata)
		if err != nil {
			return eris.Wrap(err, "runlog: marshal metadata")
		}
	}

	rowsLoaded := int64(0)
	if result != nil {
		rowsLoaded = result.RowsLoaded
	}

	_, err := r.pool.Exec(ctx,
		`UPDATE churn.pipeline_runs
		 SET status = 'complete', completed_at = now(), rows_loaded = $1, metadata = $2
		 WHERE id = $3`,
		rowsLoaded, metaJSON, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: complete run %s", runID)
	}
	return nil
}

// Fail marks a run as failed with an error message.
func (r *RunLog) Fail(ctx context.Context, runID string, errMsg string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE churn.pipeline_runs
		 SET status = 'failed', completed_at = now(), error = $1
		 WHERE id = $2`,
		errMsg, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: fail run %s", runID)
	}
	return nil
}

// LastSuccess returns the started_at time of the most recent completed run.
// Returns nil if no run has ever completed.
func (r *RunLog) LastSuccess(ctx context.Context) (*time.Time, error) {
	var t time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT started_at FROM churn.pipeline_runs
		 WHERE status = 'complete'
		 ORDER BY started_at DESC LIMIT 1`,
	).Scan(&t)
	if err != nil {
		if err.Error() == "no rows in result set" {
			return nil, nil
		}
		return nil, eris.Wrap(err, "runlog: last success")
	}
	return &t, nil
}

// ListAll returns all pipeline runs ordered by most recent first.
func (r *RunLog) ListAll(ctx context.Context) ([]model.PipelineRun, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, source, status, started_at, completed_at, rows_loaded, error, metadata
		 FROM churn.pipeline_runs ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: list all")
	}
	defer rows.Close()

	var runs []model.PipelineRun
	for rows.Next() {
		var p model.PipelineRun
		var completedAt *time.Time
		var errStr *string
		var metaJSON []byte
		if err := rows.Scan(&p.ID, &p.Source, &p.Status, &p.StartedAt, &completedAt, &p.RowsLoaded, &errStr, &metaJSON); err != nil {
			return nil, eris.Wrap(err, "runlog: scan run")
		}
		p.CompletedAt = completedAt
		if errStr != nil {
			p.Error = *errStr
		}
		if metaJSON != nil {
			_ = json.Unmarshal(metaJSON, &p.Metadata)
		}
		runs = append(runs, p)
	}
	return runs, rows.Err()
}
