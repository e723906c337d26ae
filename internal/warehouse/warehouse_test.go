package warehouse

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clearsight-analytics/churn-cli/internal/etl"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestMirror(t *testing.T, mock pgxmock.PgxPoolIface) *Mirror {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mirror.db")
	m, err := NewMirror(path, mock)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

// expectSourceRows registers the six per-table SELECTs the sync issues, each
// returning a single customer.
func expectSourceRows(mock pgxmock.PgxPoolIface) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	churnDate := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	rowsFor := map[string][][]any{
		"customer_demographics": {{"7590-VHVEG", "Female", false, true, false, now, now}},
		"customer_services":     {{"7590-VHVEG", false, "No phone service", "DSL", "No", "Yes", "No", "No", "No", "No", now, now}},
		"customer_contracts":    {{"7590-VHVEG", int32(1), "Month-to-month", now, now}},
		"customer_billing":      {{"7590-VHVEG", 29.85, 29.85, true, "Electronic check", now, now}},
		"customer_churn":        {{"7590-VHVEG", true, churnDate, now, now}},
		"customer_segments":     {{"7590-VHVEG", int32(4), "New Customers", 29.85, 75.0, now, now}},
	}

	for _, table := range etl.TableOrder {
		cols := etl.Columns(table)
		rows := pgxmock.NewRows(cols)
		for _, r := range rowsFor[table] {
			rows.AddRow(r...)
		}
		mock.ExpectQuery("SELECT .* FROM churn\\." + table).WillReturnRows(rows)
	}
}

func TestMirror_MigrateIdempotent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	m := newTestMirror(t, mock)
	require.NoError(t, m.Migrate(context.Background()))
	require.NoError(t, m.Migrate(context.Background()))
}

func TestMirror_Sync(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	m := newTestMirror(t, mock)
	ctx := context.Background()

	expectSourceRows(mock)
	require.NoError(t, m.Sync(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())

	// The complete view joins all six tables.
	var (
		customerID, contract, segment string
		monthly                       float64
		churned                       bool
	)
	err = m.DB().QueryRowContext(ctx,
		`SELECT customer_id, contract_type, segment_name, monthly_charges, churn_status
		 FROM customer_complete_view`,
	).Scan(&customerID, &contract, &segment, &monthly, &churned)
	require.NoError(t, err)
	assert.Equal(t, "7590-VHVEG", customerID)
	assert.Equal(t, "Month-to-month", contract)
	assert.Equal(t, "New Customers", segment)
	assert.InDelta(t, 29.85, monthly, 0.001)
	assert.True(t, churned)
}

func TestMirror_SyncReplacesExistingRows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	m := newTestMirror(t, mock)
	ctx := context.Background()

	expectSourceRows(mock)
	require.NoError(t, m.Sync(ctx))

	// Second sync must not duplicate: truncate-and-reload.
	expectSourceRows(mock)
	require.NoError(t, m.Sync(ctx))

	var count int64
	require.NoError(t, m.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM customer_demographics").Scan(&count))
	assert.Equal(t, int64(1), count)
}

func TestMirror_SyncWithoutPool(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirror.db")
	m, err := NewMirror(path, nil)
	require.NoError(t, err)
	defer m.Close()

	err = m.Sync(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a source pool")
}

func TestQualityChecks_AllPass(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	m := newTestMirror(t, mock)
	ctx := context.Background()

	expectSourceRows(mock)
	require.NoError(t, m.Sync(ctx))

	// Store-side counts match the single mirrored customer.
	for range etl.TableOrder {
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM churn\.`).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	}
	mock.ExpectQuery(`FROM churn\.customer_churn`).
		WillReturnRows(pgxmock.NewRows([]string{"rate"}).AddRow(100.0))

	report, err := m.RunQualityChecks(ctx)
	require.NoError(t, err)
	assert.True(t, report.Passed())
	assert.Len(t, report.Checks, len(etl.TableOrder)+2)
}

func TestQualityChecks_CountMismatchFails(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	m := newTestMirror(t, mock)
	ctx := context.Background()

	expectSourceRows(mock)
	require.NoError(t, m.Sync(ctx))

	// Store claims more rows than the mirror holds.
	for range etl.TableOrder {
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM churn\.`).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(2)))
	}
	mock.ExpectQuery(`FROM churn\.customer_churn`).
		WillReturnRows(pgxmock.NewRows([]string{"rate"}).AddRow(100.0))

	report, err := m.RunQualityChecks(ctx)
	require.NoError(t, err)
	assert.False(t, report.Passed())
}
