package warehouse

import (
	"context"
	"fmt"
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/clearsight-analytics/churn-cli/internal/etl"
)

// Check is the outcome of one data-quality check against the mirror.
type Check struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// QualityReport aggregates all checks from one inspection pass.
type QualityReport struct {
	Checks []Check `json:"checks"`
}

// Passed reports whether every check passed.
func (r *QualityReport) Passed() bool {
	for _, c := range r.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// RunQualityChecks inspects the mirror after a sync: per-table row-count
// parity with the store, no blank customer ids, and churn-rate agreement
// between store and mirror.
func (m *Mirror) RunQualityChecks(ctx context.Context) (*QualityReport, error) {
	if m.pool == nil {
		return nil, eris.New("warehouse: quality checks require a source pool")
	}
	log := zap.L().With(zap.String("component", "warehouse.quality"))

	report := &QualityReport{}

	for _, table := range etl.TableOrder {
		var storeCount int64
		if err := m.pool.QueryRow(ctx, "SELECT COUNT(*) FROM churn."+table).Scan(&storeCount); err != nil {
			return nil, eris.Wrapf(err, "quality: store count %s", table)
		}
		var mirrorCount int64
		if err := m.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&mirrorCount); err != nil {
			return nil, eris.Wrapf(err, "quality: mirror count %s", table)
		}
		report.Checks = append(report.Checks, Check{
			Name:   "row_count_parity:" + table,
			Passed: storeCount == mirrorCount,
			Detail: fmt.Sprintf("store=%d mirror=%d", storeCount, mirrorCount),
		})
	}

	var blankIDs int64
	err := m.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM customer_demographics WHERE customer_id IS NULL OR customer_id = ''",
	).Scan(&blankIDs)
	if err != nil {
		return nil, eris.Wrap(err, "quality: blank customer ids")
	}
	report.Checks = append(report.Checks, Check{
		Name:   "no_blank_customer_ids",
		Passed: blankIDs == 0,
		Detail: fmt.Sprintf("blank=%d", blankIDs),
	})

	storeRate, err := m.storeChurnRate(ctx)
	if err != nil {
		return nil, err
	}
	mirrorRate, err := m.mirrorChurnRate(ctx)
	if err != nil {
		return nil, err
	}
	report.Checks = append(report.Checks, Check{
		Name:   "churn_rate_consistency",
		Passed: math.Abs(storeRate-mirrorRate) < 0.01,
		Detail: fmt.Sprintf("store=%.2f mirror=%.2f", storeRate, mirrorRate),
	})

	for _, c := range report.Checks {
		if !c.Passed {
			log.Warn("quality check failed", zap.String("check", c.Name), zap.String("detail", c.Detail))
		}
	}
	log.Info("quality checks complete",
		zap.Int("checks", len(report.Checks)),
		zap.Bool("passed", report.Passed()),
	)
	return report, nil
}

func (m *Mirror) storeChurnRate(ctx context.Context) (float64, error) {
	var rate float64
	err := m.pool.QueryRow(ctx,
		`SELECT COALESCE(ROUND(COUNT(CASE WHEN churn_status THEN 1 END) * 100.0 / NULLIF(COUNT(*), 0), 2), 0)::float8
		 FROM churn.customer_churn`,
	).Scan(&rate)
	if err != nil {
		return 0, eris.Wrap(err, "quality: store churn rate")
	}
	return rate, nil
}

func (m *Mirror) mirrorChurnRate(ctx context.Context) (float64, error) {
	var total, churned int64
	err := m.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(CASE WHEN churn_status THEN 1 ELSE 0 END), 0) FROM customer_churn",
	).Scan(&total, &churned)
	if err != nil {
		return 0, eris.Wrap(err, "quality: mirror churn rate")
	}
	if total == 0 {
		return 0, nil
	}
	return math.Round(float64(churned)*10000/float64(total)) / 100, nil
}
