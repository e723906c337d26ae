package etl

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMirror struct {
	syncs int
	err   error
}

func (m *fakeMirror) Sync(ctx context.Context) error {
	m.syncs++
	return m.err
}

func expectRunStart(mock pgxmock.PgxPoolIface) {
	mock.ExpectExec(`INSERT INTO churn\.pipeline_runs`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
}

func TestPipelineRun_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	path := writeSample(t, sampleCSV)

	expectRunStart(mock)
	for _, table := range TableOrder {
		mock.ExpectCopyFrom(pgx.Identifier{"churn", table}, Columns(table)).WillReturnResult(3)
	}
	expectTableCounts(mock, 3)
	mock.ExpectQuery(`SELECT\s+COUNT\(\*\) AS total_customers`).
		WillReturnRows(pgxmock.NewRows([]string{"total_customers", "churned_customers", "churn_rate"}).
			AddRow(int64(3), int64(1), 33.33))
	mock.ExpectExec(`UPDATE churn\.pipeline_runs`).
		WithArgs(int64(3), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	mirror := &fakeMirror{}
	p := NewPipeline(mock, PipelineOptions{
		Extract:    ExtractOptions{Source: path},
		Rules:      DefaultRules(),
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
		Mirror:     mirror,
	})

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 3, result.Extracted)
	assert.Equal(t, int64(3), result.RowsLoaded)
	assert.InDelta(t, 33.33, result.Validation.ChurnRate, 0.001)
	assert.Equal(t, 1, mirror.syncs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPipelineRun_LoadFailureRecordsFailedRun(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	path := writeSample(t, sampleCSV)

	expectRunStart(mock)
	mock.ExpectCopyFrom(pgx.Identifier{"churn", "customer_demographics"}, Columns("customer_demographics")).
		WillReturnError(assert.AnError)
	// Run marked failed.
	mock.ExpectExec(`UPDATE churn\.pipeline_runs`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	p := NewPipeline(mock, PipelineOptions{
		Extract:    ExtractOptions{Source: path},
		Rules:      DefaultRules(),
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
	})

	_, err = p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline: load")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPipelineRun_EmptySourceFails(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	path := writeSample(t, "customerID,gender,tenure,Contract,PaymentMethod,MonthlyCharges,TotalCharges,Churn\n")

	expectRunStart(mock)
	mock.ExpectExec(`UPDATE churn\.pipeline_runs`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	p := NewPipeline(mock, PipelineOptions{
		Extract:    ExtractOptions{Source: path},
		Rules:      DefaultRules(),
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
	})

	_, err = p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no customer records")
}

func TestPipelineRun_RetriesExtractOnFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	expectRunStart(mock)
	mock.ExpectExec(`UPDATE churn\.pipeline_runs`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	p := NewPipeline(mock, PipelineOptions{
		Extract:    ExtractOptions{Source: "/nonexistent/telco.csv"},
		Rules:      DefaultRules(),
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	})

	_, err = p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline: extract")
}
