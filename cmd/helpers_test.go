package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clearsight-analytics/churn-cli/internal/config"
	"github.com/clearsight-analytics/churn-cli/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestSegmentRulesConfigOverrides(t *testing.T) {
	cfg = &config.Config{}
	cfg.Segments.RiskMonthToMonth = 45
	cfg.Segments.RiskShortTenure = 35

	rules, err := segmentRules()
	require.NoError(t, err)

	assert.Equal(t, 45.0, rules.RiskMonthToMonth)
	assert.Equal(t, 35.0, rules.RiskShortTenure)
	// Untouched weights keep their defaults.
	assert.Equal(t, 10.0, rules.RiskOneYear)
	assert.Equal(t, 20.0, rules.RiskElectronicChk)
	assert.Equal(t, 100.0, rules.RiskCap)
}

func TestSegmentRulesMissingFile(t *testing.T) {
	cfg = &config.Config{}
	cfg.ETL.RulesFile = "/nonexistent/rules.yaml"

	_, err := segmentRules()
	assert.Error(t, err)
}

func TestExtractOptions(t *testing.T) {
	cfg = &config.Config{}
	cfg.ETL.Source = "data/customers.csv"
	cfg.ETL.Delimiter = ";"
	cfg.ETL.Encoding = "latin1"
	cfg.ETL.MaxRetries = 5
	cfg.ETL.UserAgent = "churn-cli/1.0"

	opts := extractOptions("")
	assert.Equal(t, "data/customers.csv", opts.Source)
	assert.Equal(t, ';', opts.Delimiter)
	assert.Equal(t, "latin1", opts.Encoding)
	assert.Equal(t, 5, opts.Fetch.MaxRetries)
	assert.Equal(t, "churn-cli/1.0", opts.Fetch.UserAgent)

	opts = extractOptions("https://example.com/churn.csv")
	assert.Equal(t, "https://example.com/churn.csv", opts.Source)
}

func TestFormatRuns(t *testing.T) {
	completed := time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)
	started := completed.Add(-90 * time.Second)

	runs := []model.PipelineRun{
		{
			ID:          "f3b9c1d2-0000-0000-0000-000000000000",
			Source:      "customers.csv",
			Status:      model.RunStatusComplete,
			StartedAt:   started,
			CompletedAt: &completed,
			RowsLoaded:  7043,
		},
		{
			ID:        "a1b2c3d4-0000-0000-0000-000000000000",
			Source:    "customers.csv",
			Status:    model.RunStatusFailed,
			StartedAt: started,
			Error:     "extract: download failed",
		},
	}

	var buf bytes.Buffer
	formatRuns(&buf, runs)
	out := buf.String()

	assert.Contains(t, out, "f3b9c1d2")
	assert.Contains(t, out, "7043")
	assert.Contains(t, out, "1m30s")
	assert.Contains(t, out, "extract: download failed")
	assert.Equal(t, 4, strings.Count(out, "\n"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "long st...", truncate("long string here", 10))
}
