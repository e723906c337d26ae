package etl

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/clearsight-analytics/churn-cli/internal/fetcher"
	"github.com/clearsight-analytics/churn-cli/internal/model"
)

// ExtractOptions configures the extractor.
type ExtractOptions struct {
	Source    string // local path, http(s):// or ftp:// URL
	Delimiter rune   // default ','
	Encoding  string // "utf-8" (default) or a legacy charset
	Fetch     fetcher.Options
}

// Extractor streams the source file and maps its rows into CustomerRecords.
type Extractor struct {
	opts  ExtractOptions
	fetch fetcher.Fetcher
}

// NewExtractor creates an Extractor for the configured source.
func NewExtractor(opts ExtractOptions) *Extractor {
	return &Extractor{
		opts:  opts,
		fetch: fetcher.ForSource(opts.Source, opts.Fetch),
	}
}

// Extract downloads and parses the full source file. Rows missing a customer
// id are skipped and counted; a malformed TotalCharges coerces to 0 to match
// the source data's known blank-for-new-customers quirk.
func (e *Extractor) Extract(ctx context.Context) ([]model.CustomerRecord, error) {
	log := zap.L().With(zap.String("component", "etl.extract"))
	log.Info("extracting customer records", zap.String("source", e.opts.Source))

	body, err := e.fetch.Download(ctx, e.opts.Source)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: download %s", e.opts.Source)
	}
	defer body.Close() //nolint:errcheck

	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, body, fetcher.CSVOptions{
		Delimiter: e.opts.Delimiter,
		Encoding:  e.opts.Encoding,
		HasHeader: true,
		HeaderCh:  headerCh,
		TrimSpace: true,
	})

	var (
		records []model.CustomerRecord
		colIdx  map[string]int
		skipped int
	)

	for row := range rowCh {
		if colIdx == nil {
			header := <-headerCh
			colIdx = mapColumns(header)
		}

		rec, ok := parseRecord(row, colIdx)
		if !ok {
			skipped++
			continue
		}
		records = append(records, rec)
	}

	for err := range errCh {
		if err != nil {
			return nil, eris.Wrap(err, "extract: stream source")
		}
	}

	// Header may still be pending when the file has no data rows.
	if colIdx == nil {
		select {
		case <-headerCh:
		default:
		}
	}

	if skipped > 0 {
		log.Warn("skipped rows without customer id", zap.Int("skipped", skipped))
	}
	log.Info("extraction complete", zap.Int("records", len(records)))

	return records, nil
}

// parseRecord maps one CSV row into a CustomerRecord. Returns false when the
// row has no customer id.
func parseRecord(row []string, colIdx map[string]int) (model.CustomerRecord, bool) {
	id := getCol(row, colIdx, "customerID")
	if id == "" {
		return model.CustomerRecord{}, false
	}

	return model.CustomerRecord{
		CustomerID:       id,
		Gender:           getCol(row, colIdx, "gender"),
		SeniorCitizen:    getCol(row, colIdx, "SeniorCitizen") == "1",
		Partner:          parseYes(getCol(row, colIdx, "Partner")),
		Dependents:       parseYes(getCol(row, colIdx, "Dependents")),
		TenureMonths:     parseIntOr(getCol(row, colIdx, "tenure"), 0),
		PhoneService:     parseYes(getCol(row, colIdx, "PhoneService")),
		MultipleLines:    getCol(row, colIdx, "MultipleLines"),
		InternetService:  getCol(row, colIdx, "InternetService"),
		OnlineSecurity:   getCol(row, colIdx, "OnlineSecurity"),
		OnlineBackup:     getCol(row, colIdx, "OnlineBackup"),
		DeviceProtection: getCol(row, colIdx, "DeviceProtection"),
		TechSupport:      getCol(row, colIdx, "TechSupport"),
		StreamingTV:      getCol(row, colIdx, "StreamingTV"),
		StreamingMovies:  getCol(row, colIdx, "StreamingMovies"),
		ContractType:     getCol(row, colIdx, "Contract"),
		PaperlessBilling: parseYes(getCol(row, colIdx, "PaperlessBilling")),
		PaymentMethod:    getCol(row, colIdx, "PaymentMethod"),
		MonthlyCharges:   parseFloatOr(getCol(row, colIdx, "MonthlyCharges"), 0),
		TotalCharges:     parseFloatOr(getCol(row, colIdx, "TotalCharges"), 0),
		Churned:          parseYes(getCol(row, colIdx, "Churn")),
	}, true
}

// mapColumns builds a case-insensitive column name to index map.
func mapColumns(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, col := range header {
		m[strings.ToLower(strings.TrimSpace(col))] = i
	}
	return m
}

// getCol gets a column value by name from a CSV record, returning empty string if not found.
func getCol(record []string, colIdx map[string]int, name string) string {
	idx, ok := colIdx[strings.ToLower(name)]
	if !ok || idx >= len(record) {
		return ""
	}
	return record[idx]
}

func parseYes(s string) bool {
	return strings.EqualFold(s, "Yes")
}

func parseIntOr(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}

func parseFloatOr(s string, def float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return def
	}
	return f
}

// dateOnly truncates a timestamp to its date for churn_date stamping.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
