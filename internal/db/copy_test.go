package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.Background(), nil, "customer_churn", []string{"a", "b"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"customer_churn"}, []string{"customer_id", "churn_status"}).WillReturnResult(3)

	rows := [][]any{{"0001-A", true}, {"0002-B", false}, {"0003-C", false}}
	n, err := CopyFrom(context.Background(), mock, "customer_churn", []string{"customer_id", "churn_status"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"customer_churn"}, []string{"customer_id"}).WillReturnError(fmt.Errorf("copy failed"))

	rows := [][]any{{"0001-A"}}
	_, err = CopyFrom(context.Background(), mock, "customer_churn", []string{"customer_id"}, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO customer_churn")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFromSchema_EmptyRows(t *testing.T) {
	n, err := CopyFromSchema(context.Background(), nil, "churn", "customer_billing", []string{"a"}, [][]any{})
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFromSchema_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"churn", "customer_billing"}, []string{"customer_id", "monthly_charges"}).WillReturnResult(2)

	rows := [][]any{{"0001-A", 29.85}, {"0002-B", 56.95}}
	n, err := CopyFromSchema(context.Background(), mock, "churn", "customer_billing", []string{"customer_id", "monthly_charges"}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFromSchema_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"churn", "customer_billing"}, []string{"customer_id"}).WillReturnError(fmt.Errorf("fk violation"))

	_, err = CopyFromSchema(context.Background(), mock, "churn", "customer_billing", []string{"customer_id"}, [][]any{{"0001-A"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO churn.customer_billing")
}
