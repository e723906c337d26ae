package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/clearsight-analytics/churn-cli/internal/model"
)

// TaskQueueDefault is the queue the worker and starters agree on.
const TaskQueueDefault = "churn-etl"

// ETLInput parameterizes one workflow run.
type ETLInput struct {
	Source      string        `json:"source"`
	MaxAttempts int32         `json:"max_attempts"`
	RetryDelay  time.Duration `json:"retry_delay"`
}

// ETLResult summarizes a completed run.
type ETLResult struct {
	RunID      string                  `json:"run_id"`
	Extracted  int                     `json:"extracted"`
	RowsLoaded int64                   `json:"rows_loaded"`
	Validation *model.ValidationResult `json:"validation"`
}

// ChurnETL runs the pipeline stages as activities with fixed-interval
// retries, mirroring the direct pipeline's whole-step retry semantics.
// Stage failure after the configured attempts marks the run failed and
// fails the workflow.
func ChurnETL(ctx workflow.Context, input ETLInput) (*ETLResult, error) {
	if input.MaxAttempts <= 0 {
		input.MaxAttempts = 3
	}
	if input.RetryDelay <= 0 {
		input.RetryDelay = 10 * time.Second
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 15 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    input.RetryDelay,
			BackoffCoefficient: 1.0,
			MaximumAttempts:    input.MaxAttempts,
		},
	})
	logger := workflow.GetLogger(ctx)

	var a *Activities
	var runID string
	if err := workflow.ExecuteActivity(ctx, a.StartRun, input.Source).Get(ctx, &runID); err != nil {
		return nil, err
	}
	logger.Info("etl run started", "run_id", runID, "source", input.Source)

	result, err := runStages(ctx, a, runID)
	if err != nil {
		// Best effort: the run log should reflect the failure even if
		// this activity also exhausts its retries.
		_ = workflow.ExecuteActivity(ctx, a.FailRun, runID, err.Error()).Get(ctx, nil)
		return nil, err
	}

	meta := map[string]any{"extracted": result.Extracted}
	if result.Validation != nil {
		meta["churn_rate"] = result.Validation.ChurnRate
	}
	if err := workflow.ExecuteActivity(ctx, a.CompleteRun, runID, result.RowsLoaded, meta).Get(ctx, nil); err != nil {
		return nil, err
	}
	logger.Info("etl run complete", "run_id", runID, "rows_loaded", result.RowsLoaded)
	return result, nil
}

func runStages(ctx workflow.Context, a *Activities, runID string) (*ETLResult, error) {
	result := &ETLResult{RunID: runID}

	var staged StageResult
	if err := workflow.ExecuteActivity(ctx, a.ExtractTransform, runID).Get(ctx, &staged); err != nil {
		return nil, err
	}
	result.Extracted = staged.Extracted
	defer func() {
		cleanupCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
			StartToCloseTimeout: time.Minute,
			RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
		})
		_ = workflow.ExecuteActivity(cleanupCtx, a.Cleanup, staged.StagedPath).Get(cleanupCtx, nil)
	}()

	var loaded LoadResult
	loadInput := LoadInput{StagedPath: staged.StagedPath, BatchTime: workflow.Now(ctx)}
	if err := workflow.ExecuteActivity(ctx, a.Load, loadInput).Get(ctx, &loaded); err != nil {
		return nil, err
	}
	result.RowsLoaded = loaded.RowsLoaded

	var validation model.ValidationResult
	if err := workflow.ExecuteActivity(ctx, a.Validate, int64(staged.Extracted)).Get(ctx, &validation); err != nil {
		return nil, err
	}
	result.Validation = &validation

	if err := workflow.ExecuteActivity(ctx, a.SyncWarehouse).Get(ctx, nil); err != nil {
		return nil, err
	}
	return result, nil
}
