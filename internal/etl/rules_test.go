package etl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestDefaultRules(t *testing.T) {
	r := DefaultRules()
	assert.InDelta(t, 30, r.RiskMonthToMonth, 0.001)
	assert.InDelta(t, 10, r.RiskOneYear, 0.001)
	assert.InDelta(t, 20, r.RiskElectronicChk, 0.001)
	assert.InDelta(t, 15, r.RiskFiberHighBill, 0.001)
	assert.InDelta(t, 25, r.RiskShortTenure, 0.001)
	assert.InDelta(t, 80, r.HighBillThreshold, 0.001)
	assert.Equal(t, 12, r.ShortTenureMonths)
	assert.InDelta(t, 100, r.RiskCap, 0.001)
	assert.InDelta(t, 2000, r.HighValueCLTV, 0.001)
	assert.InDelta(t, 20, r.HighValueMaxRisk, 0.001)
	assert.InDelta(t, 1000, r.MediumValueCLTV, 0.001)
	assert.InDelta(t, 40, r.MediumValueMaxRisk, 0.001)
	assert.InDelta(t, 60, r.HighRiskMinScore, 0.001)
}

func TestLoadRules_PartialOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("risk_month_to_month: 45\nhigh_value_cltv: 2500\n"), 0o644))

	r, err := LoadRules(path)
	require.NoError(t, err)

	// Overridden fields.
	assert.InDelta(t, 45, r.RiskMonthToMonth, 0.001)
	assert.InDelta(t, 2500, r.HighValueCLTV, 0.001)
	// Everything else keeps defaults.
	assert.InDelta(t, 20, r.RiskElectronicChk, 0.001)
	assert.Equal(t, 12, r.ShortTenureMonths)
}

func TestLoadRules_MissingFile(t *testing.T) {
	_, err := LoadRules("/nonexistent/rules.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rules: read")
}

func TestLoadRules_BadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("risk_month_to_month: [nope"), 0o644))

	_, err := LoadRules(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rules: parse")
}
