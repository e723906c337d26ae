package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/clearsight-analytics/churn-cli/internal/analytics"
)

// ExportXLSX writes a multi-sheet workbook under dir and returns its path.
// Sheets: the customer extract, the churn aggregates per dimension, the
// tenure cohorts, and the segment CLTV summary.
func (e *Exporter) ExportXLSX(ctx context.Context, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "export: create dir %s", dir)
	}

	file := xlsx.NewFile()

	customers, err := e.customers(ctx)
	if err != nil {
		return "", err
	}
	if err := addCustomerSheet(file, customers); err != nil {
		return "", err
	}

	dimSheets := []struct {
		sheet string
		dim   string
	}{
		{"Churn by Contract", "contract_type"},
		{"Churn by Payment", "payment_method"},
		{"Churn by Internet", "internet_service"},
	}
	for _, d := range dimSheets {
		stats, err := e.analyzer.ChurnBy(ctx, d.dim)
		if err != nil {
			return "", err
		}
		if err := addGroupSheet(file, d.sheet, stats); err != nil {
			return "", err
		}
	}

	tenure, err := e.analyzer.TenureBuckets(ctx)
	if err != nil {
		return "", err
	}
	if err := addGroupSheet(file, "Tenure Cohorts", tenure); err != nil {
		return "", err
	}

	segments, err := e.analyzer.SegmentCLTVSummary(ctx)
	if err != nil {
		return "", err
	}
	if err := addSegmentSheet(file, segments); err != nil {
		return "", err
	}

	path := filepath.Join(dir, "churn_analytics.xlsx")
	if err := file.Save(path); err != nil {
		return "", eris.Wrapf(err, "export: save %s", path)
	}
	zap.L().Info("workbook written",
		zap.String("component", "export"), zap.String("path", path))
	return path, nil
}

func addCustomerSheet(file *xlsx.File, customers []CustomerRow) error {
	sheet, err := file.AddSheet("Customers")
	if err != nil {
		return eris.Wrap(err, "export: add customers sheet")
	}
	writeRow(sheet,
		"Customer ID", "Gender", "Senior", "Partner", "Dependents", "Tenure",
		"Contract", "Internet", "Monthly Charges", "Total Charges",
		"Payment Method", "Churned", "Segment", "CLTV", "Risk")
	for _, c := range customers {
		writeRow(sheet, c.CustomerID, c.Gender, c.SeniorCitizen, c.Partner,
			c.Dependents, c.TenureMonths, c.ContractType, c.InternetService,
			c.MonthlyCharges, c.TotalCharges, c.PaymentMethod, c.ChurnStatus,
			c.SegmentName, c.CLTVScore, c.RiskScore)
	}
	return nil
}

func addGroupSheet(file *xlsx.File, name string, stats []analytics.GroupStat) error {
	sheet, err := file.AddSheet(name)
	if err != nil {
		return eris.Wrapf(err, "export: add sheet %s", name)
	}
	writeRow(sheet, "Group", "Customers", "Churned", "Churn %",
		"Avg Monthly", "Avg Total", "Avg Tenure")
	for _, s := range stats {
		writeRow(sheet, s.Group, s.Customers, s.Churned, s.ChurnRate,
			s.AvgMonthlyCharges, s.AvgTotalCharges, s.AvgTenureMonths)
	}
	return nil
}

func addSegmentSheet(file *xlsx.File, summaries []analytics.SegmentCLTV) error {
	sheet, err := file.AddSheet("Segments")
	if err != nil {
		return eris.Wrap(err, "export: add segments sheet")
	}
	writeRow(sheet, "Segment", "Customers", "Avg CLTV", "Median CLTV", "Total CLTV")
	for _, s := range summaries {
		writeRow(sheet, s.Segment, s.Customers, s.AvgCLTV, s.MedianCLTV, s.TotalCLTV)
	}
	return nil
}

func writeRow(sheet *xlsx.Sheet, values ...any) {
	row := sheet.AddRow()
	for _, v := range values {
		cell := row.AddCell()
		switch val := v.(type) {
		case string:
			cell.SetString(val)
		case bool:
			cell.SetBool(val)
		case int:
			cell.SetInt(val)
		case int64:
			cell.SetInt64(val)
		case float64:
			cell.SetFloat(val)
		default:
			cell.SetString(fmt.Sprint(val))
		}
	}
}
