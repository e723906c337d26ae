package etl

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunLog_Start(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO churn\.pipeline_runs`).
		WithArgs(pgxmock.AnyArg(), "telco.csv").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := NewRunLog(mock).Start(context.Background(), "telco.csv")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunLog_Complete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`UPDATE churn\.pipeline_runs`).
		WithArgs(int64(7043), pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = NewRunLog(mock).Complete(context.Background(), "run-1", &RunResult{
		RowsLoaded: 7043,
		Metadata:   map[string]any{"churn_rate": 26.54},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunLog_CompleteNilResult(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`UPDATE churn\.pipeline_runs`).
		WithArgs(int64(0), pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = NewRunLog(mock).Complete(context.Background(), "run-1", nil)
	require.NoError(t, err)
}

func TestRunLog_Fail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`UPDATE churn\.pipeline_runs`).
		WithArgs("load: copy into customer_churn", "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = NewRunLog(mock).Fail(context.Background(), "run-1", "load: copy into customer_churn")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunLog_LastSuccess(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	want := time.Date(2026, 8, 27, 4, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT started_at FROM churn\.pipeline_runs`).
		WillReturnRows(pgxmock.NewRows([]string{"started_at"}).AddRow(want))

	got, err := NewRunLog(mock).LastSuccess(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
}

func TestRunLog_ListAll(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	started := time.Now().UTC()
	completed := started.Add(2 * time.Minute)
	errMsg := "validate: churn summary"
	mock.ExpectQuery(`SELECT id, source, status, started_at`).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "source", "status", "started_at", "completed_at", "rows_loaded", "error", "metadata",
		}).
			AddRow("run-2", "telco.csv", "complete", started, &completed, int64(7043), (*string)(nil), []byte(`{"churn_rate":26.54}`)).
			AddRow("run-1", "telco.csv", "failed", started.Add(-time.Hour), &completed, int64(0), &errMsg, []byte(nil)))

	runs, err := NewRunLog(mock).ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, "complete", string(runs[0].Status))
	assert.Equal(t, int64(7043), runs[0].RowsLoaded)
	assert.InDelta(t, 26.54, runs[0].Metadata["churn_rate"].(float64), 0.001)

	assert.Equal(t, "failed", string(runs[1].Status))
	assert.Equal(t, "validate: churn summary", runs[1].Error)
}
