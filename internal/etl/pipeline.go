package etl

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/clearsight-analytics/churn-cli/internal/db"
	"github.com/clearsight-analytics/churn-cli/internal/model"
	"github.com/clearsight-analytics/churn-cli/internal/resilience"
)

// Mirror syncs the relational store into the analytical warehouse. Implemented
// by the warehouse package; kept as an interface so the pipeline does not
// depend on the mirror engine.
type Mirror interface {
	Sync(ctx context.Context) error
}

// PipelineOptions configures a pipeline run.
type PipelineOptions struct {
	Extract    ExtractOptions
	Rules      SegmentRules
	MaxRetries int           // per-step retry attempts (default 3)
	RetryDelay time.Duration // fixed delay between attempts (default 10s)
	Mirror     Mirror        // optional warehouse sync after validation
}

// PipelineResult summarizes a completed run.
type PipelineResult struct {
	RunID      string
	Extracted  int
	RowsLoaded int64
	Validation *model.ValidationResult
}

// Pipeline runs Extract -> Transform -> Load -> Validate as a linear state
// machine, terminal on the first failed step. Each step is retried whole with
// a fixed delay; there is no mid-step resume or row checkpointing.
type Pipeline struct {
	pool   db.Pool
	opts   PipelineOptions
	runlog *RunLog
}

// NewPipeline creates a Pipeline over the given pool.
func NewPipeline(pool db.Pool, opts PipelineOptions) *Pipeline {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 10 * time.Second
	}
	return &Pipeline{
		pool:   pool,
		opts:   opts,
		runlog: NewRunLog(pool),
	}
}

// Run executes the full pipeline and records the outcome in the run log.
func (p *Pipeline) Run(ctx context.Context) (*PipelineResult, error) {
	log := zap.L().With(zap.String("component", "etl.pipeline"))
	retry := resilience.FixedDelay(p.opts.MaxRetries, p.opts.RetryDelay)

	runID, err := p.runlog.Start(ctx, p.opts.Extract.Source)
	if err != nil {
		return nil, err
	}
	log.Info("pipeline run started", zap.String("run_id", runID))

	result, err := p.run(ctx, retry)
	if err != nil {
		if failErr := p.runlog.Fail(ctx, runID, err.Error()); failErr != nil {
			log.Error("failed to record run failure", zap.Error(failErr))
		}
		return nil, err
	}
	result.RunID = runID

	meta := map[string]any{
		"extracted":  result.Extracted,
		"churn_rate": result.Validation.ChurnRate,
	}
	if err := p.runlog.Complete(ctx, runID, &RunResult{
		RowsLoaded: result.RowsLoaded,
		Metadata:   meta,
	}); err != nil {
		return result, err
	}

	log.Info("pipeline run complete",
		zap.String("run_id", runID),
		zap.Int64("rows_loaded", result.RowsLoaded),
		zap.Float64("churn_rate", result.Validation.ChurnRate),
	)
	return result, nil
}

// stepRetry returns the fixed-delay retry config with logging for one step.
func (p *Pipeline) stepRetry(base resilience.RetryConfig, step string) resilience.RetryConfig {
	base.OnRetry = resilience.RetryLogger("etl.pipeline", step)
	return base
}

func (p *Pipeline) run(ctx context.Context, retry resilience.RetryConfig) (*PipelineResult, error) {
	extractor := NewExtractor(p.opts.Extract)
	records, err := resilience.DoVal(ctx, p.stepRetry(retry, "extract"),
		func(ctx context.Context) ([]model.CustomerRecord, error) {
			return extractor.Extract(ctx)
		})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: extract")
	}
	if len(records) == 0 {
		return nil, eris.New("pipeline: source contained no customer records")
	}

	// Transform is pure and deterministic, so it runs once without retry.
	set := NewTransformer(p.opts.Rules).Transform(records, time.Now().UTC())

	loader := NewLoader(p.pool)
	loaded, err := resilience.DoVal(ctx, p.stepRetry(retry, "load"),
		func(ctx context.Context) (int64, error) {
			return loader.Load(ctx, set)
		})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load")
	}

	validator := NewValidator(p.pool)
	validation, err := resilience.DoVal(ctx, p.stepRetry(retry, "validate"),
		func(ctx context.Context) (*model.ValidationResult, error) {
			return validator.Validate(ctx, int64(len(records)))
		})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: validate")
	}

	if p.opts.Mirror != nil {
		err = resilience.Do(ctx, p.stepRetry(retry, "sync_mirror"), func(ctx context.Context) error {
			return p.opts.Mirror.Sync(ctx)
		})
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: sync mirror")
		}
	}

	return &PipelineResult{
		Extracted:  len(records),
		RowsLoaded: loaded,
		Validation: validation,
	}, nil
}
