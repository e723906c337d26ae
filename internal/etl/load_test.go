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

func TestLoad_AllTablesInOrder(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	set := NewTransformer(DefaultRules()).Transform(sampleRecords(), time.Now().UTC())

	// Expectations are ordered: pgxmock fails the test if COPY order deviates
	// from the FK-safe sequence.
	for _, table := range TableOrder {
		mock.ExpectCopyFrom(pgx.Identifier{"churn", table}, Columns(table)).WillReturnResult(2)
	}

	n, err := NewLoader(mock).Load(context.Background(), set)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoad_StopsOnFirstFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	set := NewTransformer(DefaultRules()).Transform(sampleRecords(), time.Now().UTC())

	mock.ExpectCopyFrom(pgx.Identifier{"churn", "customer_demographics"}, Columns("customer_demographics")).WillReturnResult(2)
	mock.ExpectCopyFrom(pgx.Identifier{"churn", "customer_services"}, Columns("customer_services")).
		WillReturnError(assert.AnError)

	_, err = NewLoader(mock).Load(context.Background(), set)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load: copy into customer_services")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoad_EmptySet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	set := NewTransformer(DefaultRules()).Transform(nil, time.Now().UTC())

	n, err := NewLoader(mock).Load(context.Background(), set)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
