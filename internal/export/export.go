// Package export renders the warehouse mirror into flat BI artifacts:
// CSV files and a multi-sheet XLSX workbook.
package export

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"

	"github.com/clearsight-analytics/churn-cli/internal/analytics"
)

// Exporter reads the mirror and writes BI artifacts.
type Exporter struct {
	db       *sql.DB
	analyzer *analytics.Analyzer
}

func NewExporter(db *sql.DB) *Exporter {
	return &Exporter{db: db, analyzer: analytics.NewAnalyzer(db)}
}

// CustomerRow flattens one customer_complete_view row for export.
type CustomerRow struct {
	CustomerID       string  `csv:"customer_id"`
	Gender           string  `csv:"gender"`
	SeniorCitizen    bool    `csv:"senior_citizen"`
	Partner          bool    `csv:"partner"`
	Dependents       bool    `csv:"dependents"`
	PhoneService     bool    `csv:"phone_service"`
	MultipleLines    string  `csv:"multiple_lines"`
	InternetService  string  `csv:"internet_service"`
	OnlineSecurity   string  `csv:"online_security"`
	OnlineBackup     string  `csv:"online_backup"`
	DeviceProtection string  `csv:"device_protection"`
	TechSupport      string  `csv:"tech_support"`
	StreamingTV      string  `csv:"streaming_tv"`
	StreamingMovies  string  `csv:"streaming_movies"`
	TenureMonths     int     `csv:"tenure_months"`
	ContractType     string  `csv:"contract_type"`
	MonthlyCharges   float64 `csv:"monthly_charges"`
	TotalCharges     float64 `csv:"total_charges"`
	PaperlessBilling bool    `csv:"paperless_billing"`
	PaymentMethod    string  `csv:"payment_method"`
	ChurnStatus      bool    `csv:"churn_status"`
	SegmentName      string  `csv:"segment_name"`
	CLTVScore        float64 `csv:"cltv_score"`
	RiskScore        float64 `csv:"risk_score"`
}

const customerQuery = `
	SELECT customer_id, gender, senior_citizen, partner, dependents,
	       phone_service, multiple_lines, internet_service, online_security,
	       online_backup, device_protection, tech_support, streaming_tv,
	       streaming_movies, tenure_months, contract_type, monthly_charges,
	       total_charges, paperless_billing, payment_method, churn_status,
	       segment_name, cltv_score, risk_score
	FROM customer_complete_view
	ORDER BY customer_id`

func (e *Exporter) customers(ctx context.Context) ([]CustomerRow, error) {
	rows, err := e.db.QueryContext(ctx, customerQuery)
	if err != nil {
		return nil, eris.Wrap(err, "export: query customers")
	}
	defer rows.Close()

	var out []CustomerRow
	for rows.Next() {
		var c CustomerRow
		if err := rows.Scan(&c.CustomerID, &c.Gender, &c.SeniorCitizen,
			&c.Partner, &c.Dependents, &c.PhoneService, &c.MultipleLines,
			&c.InternetService, &c.OnlineSecurity, &c.OnlineBackup,
			&c.DeviceProtection, &c.TechSupport, &c.StreamingTV,
			&c.StreamingMovies, &c.TenureMonths, &c.ContractType,
			&c.MonthlyCharges, &c.TotalCharges, &c.PaperlessBilling,
			&c.PaymentMethod, &c.ChurnStatus, &c.SegmentName,
			&c.CLTVScore, &c.RiskScore); err != nil {
			return nil, eris.Wrap(err, "export: scan customer")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "export: iterate customers")
}

// groupRow mirrors analytics.GroupStat with CSV tags.
type groupRow struct {
	Group             string  `csv:"group"`
	Customers         int64   `csv:"customers"`
	Churned           int64   `csv:"churned"`
	ChurnRate         float64 `csv:"churn_rate_pct"`
	AvgMonthlyCharges float64 `csv:"avg_monthly_charges"`
	AvgTotalCharges   float64 `csv:"avg_total_charges"`
	AvgTenureMonths   float64 `csv:"avg_tenure_months"`
}

func toGroupRows(stats []analytics.GroupStat) []groupRow {
	out := make([]groupRow, len(stats))
	for i, s := range stats {
		out[i] = groupRow{
			Group:             s.Group,
			Customers:         s.Customers,
			Churned:           s.Churned,
			ChurnRate:         s.ChurnRate,
			AvgMonthlyCharges: s.AvgMonthlyCharges,
			AvgTotalCharges:   s.AvgTotalCharges,
			AvgTenureMonths:   s.AvgTenureMonths,
		}
	}
	return out
}

// segmentRow mirrors analytics.SegmentCLTV with CSV tags.
type segmentRow struct {
	Segment    string  `csv:"segment"`
	Customers  int64   `csv:"customers"`
	AvgCLTV    float64 `csv:"avg_cltv"`
	MedianCLTV float64 `csv:"median_cltv"`
	TotalCLTV  float64 `csv:"total_cltv"`
}

func toSegmentRows(summaries []analytics.SegmentCLTV) []segmentRow {
	out := make([]segmentRow, len(summaries))
	for i, s := range summaries {
		out[i] = segmentRow{
			Segment:    s.Segment,
			Customers:  s.Customers,
			AvgCLTV:    s.AvgCLTV,
			MedianCLTV: s.MedianCLTV,
			TotalCLTV:  s.TotalCLTV,
		}
	}
	return out
}
