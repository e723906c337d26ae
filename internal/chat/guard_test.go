package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestGuardSQL_AllowsSelect(t *testing.T) {
	q, err := GuardSQL("SELECT customer_id FROM customer_complete_view ORDER BY customer_id LIMIT 5")
	require.NoError(t, err)
	assert.Equal(t, "SELECT customer_id FROM customer_complete_view ORDER BY customer_id LIMIT 5", q)
}

func TestGuardSQL_InjectsLimit(t *testing.T) {
	q, err := GuardSQL("SELECT COUNT(*) FROM customer_churn")
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM customer_churn LIMIT 100", q)
}

func TestGuardSQL_AllowsWith(t *testing.T) {
	q, err := GuardSQL("WITH c AS (SELECT 1 AS n) SELECT n FROM c")
	require.NoError(t, err)
	assert.Contains(t, q, "LIMIT 100")
}

func TestGuardSQL_StripsFencesAndSemicolon(t *testing.T) {
	q, err := GuardSQL("```sql\nSELECT COUNT(*) FROM customer_churn;\n```")
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM customer_churn LIMIT 100", q)
}

func TestGuardSQL_RejectsMutations(t *testing.T) {
	for _, q := range []string{
		"DELETE FROM customer_churn",
		"DROP TABLE customer_churn",
		"UPDATE customer_billing SET monthly_charges = 0",
		"INSERT INTO customer_churn VALUES ('x', 1, NULL)",
		"PRAGMA journal_mode=DELETE",
	} {
		_, err := GuardSQL(q)
		assert.Error(t, err, q)
	}
}

func TestGuardSQL_RejectsEmbeddedMutation(t *testing.T) {
	_, err := GuardSQL("SELECT 1; DELETE FROM customer_churn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple statements")
}

func TestGuardSQL_RejectsForbiddenInSelect(t *testing.T) {
	_, err := GuardSQL("SELECT * FROM customer_churn WHERE customer_id IN (SELECT customer_id FROM x) AND 1=1 PRAGMA foo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forbidden keyword")
}

func TestGuardSQL_RejectsEmpty(t *testing.T) {
	_, err := GuardSQL("```\n```")
	require.Error(t, err)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, "SELECT 1", StripFences("```sql\nSELECT 1\n```"))
	assert.Equal(t, "SELECT 1", StripFences("```\nSELECT 1\n```"))
	assert.Equal(t, "SELECT 1", StripFences("  SELECT 1  "))
}
