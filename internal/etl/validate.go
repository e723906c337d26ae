package etl

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/clearsight-analytics/churn-cli/internal/db"
	"github.com/clearsight-analytics/churn-cli/internal/model"
)

// Validator re-queries the store after a load and computes the churn summary.
type Validator struct {
	pool db.Pool
}

// NewValidator creates a Validator over the given connection pool.
func NewValidator(pool db.Pool) *Validator {
	return &Validator{pool: pool}
}

// Validate counts every table and computes the churn rate. expected is the
// extracted batch size; a mismatch against any table count is an error since
// the load is all-or-nothing per table.
func (v *Validator) Validate(ctx context.Context, expected int64) (*model.ValidationResult, error) {
	log := zap.L().With(zap.String("component", "etl.validate"))

	result := &model.ValidationResult{
		TableCounts: make(map[string]int64, len(TableOrder)),
	}

	for _, table := range TableOrder {
		var count int64
		// Table names come from the fixed TableOrder list, never user input.
		q := fmt.Sprintf("SELECT COUNT(*) FROM churn.%s", table)
		if err := v.pool.QueryRow(ctx, q).Scan(&count); err != nil {
			return nil, eris.Wrapf(err, "validate: count %s", table)
		}
		result.TableCounts[table] = count
		log.Info("table count", zap.String("table", table), zap.Int64("count", count))
	}

	err := v.pool.QueryRow(ctx,
		`SELECT
			COUNT(*) AS total_customers,
			COUNT(CASE WHEN churn_status THEN 1 END) AS churned_customers,
			ROUND(COUNT(CASE WHEN churn_status THEN 1 END) * 100.0 / NULLIF(COUNT(*), 0), 2) AS churn_rate
		 FROM churn.customer_churn`,
	).Scan(&result.TotalCustomers, &result.ChurnedCustomers, &result.ChurnRate)
	if err != nil {
		return nil, eris.Wrap(err, "validate: churn summary")
	}

	if expected > 0 {
		for _, table := range TableOrder {
			if result.TableCounts[table] < expected {
				return result, eris.Errorf("validate: %s has %d rows, expected at least %d",
					table, result.TableCounts[table], expected)
			}
		}
	}

	log.Info("validation complete",
		zap.Int64("total", result.TotalCustomers),
		zap.Int64("churned", result.ChurnedCustomers),
		zap.Float64("churn_rate", result.ChurnRate),
	)

	return result, nil
}
