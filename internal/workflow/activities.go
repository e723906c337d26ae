// Package workflow runs the ETL pipeline as a Temporal workflow, with each
// stage as a retryable activity. Intermediate state travels as a staged
// JSON file of parsed records, so a retried stage re-reads the stage file
// instead of checkpointing rows.
package workflow

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/clearsight-analytics/churn-cli/internal/db"
	"github.com/clearsight-analytics/churn-cli/internal/etl"
	"github.com/clearsight-analytics/churn-cli/internal/model"
)

// Activities bundles the pipeline dependencies the worker registers.
type Activities struct {
	Pool    db.Pool
	Rules   etl.SegmentRules
	Extract etl.ExtractOptions
	TempDir string
	Mirror  etl.Mirror // optional
}

// StageResult is what ExtractTransform hands to the next activity.
type StageResult struct {
	StagedPath string `json:"staged_path"`
	Extracted  int    `json:"extracted"`
}

// LoadInput carries the staged file and the batch time so a retried load
// stamps the same churn date.
type LoadInput struct {
	StagedPath string    `json:"staged_path"`
	BatchTime  time.Time `json:"batch_time"`
}

// LoadResult reports what the store accepted.
type LoadResult struct {
	RowsLoaded int64 `json:"rows_loaded"`
}

// StartRun opens a run-log entry and returns its id.
func (a *Activities) StartRun(ctx context.Context, source string) (string, error) {
	return etl.NewRunLog(a.Pool).Start(ctx, source)
}

// CompleteRun marks the run complete with its row count and metadata.
func (a *Activities) CompleteRun(ctx context.Context, runID string, rows int64, meta map[string]any) error {
	return etl.NewRunLog(a.Pool).Complete(ctx, runID, &etl.RunResult{
		RowsLoaded: rows,
		Metadata:   meta,
	})
}

// FailRun marks the run failed with the stage error.
func (a *Activities) FailRun(ctx context.Context, runID, message string) error {
	return etl.NewRunLog(a.Pool).Fail(ctx, runID, message)
}

// ExtractTransform downloads and parses the source, then stages the parsed
// records as JSON for the load activity.
func (a *Activities) ExtractTransform(ctx context.Context, runID string) (*StageResult, error) {
	records, err := etl.NewExtractor(a.Extract).Extract(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, eris.New("workflow: source contained no customer records")
	}

	dir := a.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrap(err, "workflow: create stage dir")
	}
	path := filepath.Join(dir, "etl-stage-"+runID+".json")

	data, err := json.Marshal(records)
	if err != nil {
		return nil, eris.Wrap(err, "workflow: marshal staged records")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, eris.Wrap(err, "workflow: write stage file")
	}

	zap.L().Info("records staged",
		zap.String("component", "workflow"),
		zap.String("path", path), zap.Int("records", len(records)))
	return &StageResult{StagedPath: path, Extracted: len(records)}, nil
}

// Load reads the staged records, transforms them with the batch time, and
// bulk-loads all six tables.
func (a *Activities) Load(ctx context.Context, input LoadInput) (*LoadResult, error) {
	data, err := os.ReadFile(input.StagedPath)
	if err != nil {
		return nil, eris.Wrap(err, "workflow: read stage file")
	}
	var records []model.CustomerRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, eris.Wrap(err, "workflow: unmarshal staged records")
	}

	set := etl.NewTransformer(a.Rules).Transform(records, input.BatchTime)
	rows, err := etl.NewLoader(a.Pool).Load(ctx, set)
	if err != nil {
		return nil, err
	}
	return &LoadResult{RowsLoaded: rows}, nil
}

// Validate re-queries the store and compares counts to the staged batch.
func (a *Activities) Validate(ctx context.Context, expected int64) (*model.ValidationResult, error) {
	return etl.NewValidator(a.Pool).Validate(ctx, expected)
}

// SyncWarehouse refreshes the analytical mirror.
func (a *Activities) SyncWarehouse(ctx context.Context) error {
	if a.Mirror == nil {
		return nil
	}
	return a.Mirror.Sync(ctx)
}

// Cleanup removes the stage file once the run has finished.
func (a *Activities) Cleanup(_ context.Context, path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return eris.Wrap(err, "workflow: remove stage file")
	}
	return nil
}
