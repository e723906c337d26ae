package etl

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/clearsight-analytics/churn-cli/internal/db"
)

// Loader bulk-appends transformed rows into the churn schema.
type Loader struct {
	pool db.Pool
}

// NewLoader creates a Loader over the given connection pool.
func NewLoader(pool db.Pool) *Loader {
	return &Loader{pool: pool}
}

// Load COPYs every table's rows in the fixed FK order. A failure aborts the
// remaining tables; rows already committed for earlier tables stay (no
// cross-table rollback, matching the append-only load contract).
// Returns the number of customer rows loaded.
func (l *Loader) Load(ctx context.Context, set *TableSet) (int64, error) {
	log := zap.L().With(zap.String("component", "etl.load"))

	var customers int64
	for _, table := range TableOrder {
		rows := set.Rows[table]
		if len(rows) == 0 {
			continue
		}

		n, err := db.CopyFromSchema(ctx, l.pool, "churn", table, Columns(table), rows)
		if err != nil {
			return customers, eris.Wrapf(err, "load: copy into %s", table)
		}

		log.Info("table loaded", zap.String("table", table), zap.Int64("rows", n))
		if table == "customer_demographics" {
			customers = n
		}
	}

	return customers, nil
}
