package export

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/clearsight-analytics/churn-cli/internal/warehouse"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestExporter(t *testing.T) *Exporter {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mirror.db")
	m, err := warehouse.NewMirror(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	require.NoError(t, m.Migrate(context.Background()))
	seedCustomers(t, m.DB())
	return NewExporter(m.DB())
}

func seedCustomers(t *testing.T, db *sql.DB) {
	t.Helper()
	now := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	customers := []struct {
		id       string
		tenure   int
		contract string
		monthly  float64
		churned  bool
		segment  string
	}{
		{"E-0001", 3, "Month-to-month", 80, true, "High Risk"},
		{"E-0002", 48, "Two year", 45, false, "High Value Loyal"},
		{"E-0003", 20, "One year", 60, false, "Medium Value Stable"},
	}
	for i, c := range customers {
		var churnDate any
		if c.churned {
			churnDate = now
		}
		inserts := []struct {
			query string
			args  []any
		}{
			{"INSERT INTO customer_demographics VALUES (?, ?, ?, ?, ?, ?, ?)",
				[]any{c.id, "Female", false, false, false, now, now}},
			{"INSERT INTO customer_services VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
				[]any{c.id, true, "No", "DSL", "No", "No", "No", "No", "No", "No", now, now}},
			{"INSERT INTO customer_contracts VALUES (?, ?, ?, ?, ?)",
				[]any{c.id, c.tenure, c.contract, now, now}},
			{"INSERT INTO customer_billing VALUES (?, ?, ?, ?, ?, ?, ?)",
				[]any{c.id, c.monthly, c.monthly * float64(c.tenure), false, "Mailed check", now, now}},
			{"INSERT INTO customer_churn VALUES (?, ?, ?, ?, ?)",
				[]any{c.id, c.churned, churnDate, now, now}},
			{"INSERT INTO customer_segments VALUES (?, ?, ?, ?, ?, ?, ?)",
				[]any{c.id, i + 1, c.segment, c.monthly * float64(c.tenure), 50.0, now, now}},
		}
		for _, s := range inserts {
			_, err := db.Exec(s.query, s.args...)
			require.NoError(t, err)
		}
	}
}

func TestExportCSV(t *testing.T) {
	e := newTestExporter(t)
	dir := t.TempDir()

	paths, err := e.ExportCSV(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, paths, 5)

	data, err := os.ReadFile(filepath.Join(dir, "customers.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "customer_id,"))
	assert.Contains(t, lines[1], "E-0001")
	assert.Contains(t, lines[1], "Month-to-month")

	data, err = os.ReadFile(filepath.Join(dir, "churn_by_contract_type.csv"))
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "group,customers,churned")
	// The single month-to-month customer churned.
	assert.Contains(t, content, "Month-to-month,1,1,100")
}

func TestExportCSV_SegmentSummary(t *testing.T) {
	e := newTestExporter(t)
	dir := t.TempDir()

	_, err := e.ExportCSV(context.Background(), dir)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "segment_cltv.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "High Value Loyal")
	assert.Contains(t, string(data), "2160") // 45 * 48
}

func TestExportXLSX(t *testing.T) {
	e := newTestExporter(t)
	dir := t.TempDir()

	path, err := e.ExportXLSX(context.Background(), dir)
	require.NoError(t, err)

	wb, err := xlsx.OpenFile(path)
	require.NoError(t, err)

	names := make([]string, len(wb.Sheets))
	for i, s := range wb.Sheets {
		names[i] = s.Name
	}
	assert.Equal(t, []string{
		"Customers", "Churn by Contract", "Churn by Payment",
		"Churn by Internet", "Tenure Cohorts", "Segments",
	}, names)

	customers := wb.Sheet["Customers"]
	require.NotNil(t, customers)
	// Header plus three customers.
	assert.Len(t, customers.Rows, 4)
	assert.Equal(t, "E-0001", customers.Rows[1].Cells[0].String())
}
