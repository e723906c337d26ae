// Package analytics computes churn aggregations and correlations over the
// warehouse mirror's customer_complete_view and renders them as Markdown
// reports.
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/stat"
)

// Analyzer runs read-only aggregate queries against the analytical mirror.
type Analyzer struct {
	db *sql.DB
}

func NewAnalyzer(db *sql.DB) *Analyzer {
	return &Analyzer{db: db}
}

// Overview is the headline churn summary across the full customer base.
type Overview struct {
	TotalCustomers    int64
	ChurnedCustomers  int64
	ChurnRate         float64
	AvgMonthlyCharges float64
	AvgTenureMonths   float64
}

// GroupStat holds churn metrics for one value of a grouping dimension.
type GroupStat struct {
	Group             string
	Customers         int64
	Churned           int64
	ChurnRate         float64
	AvgMonthlyCharges float64
	AvgTotalCharges   float64
	AvgTenureMonths   float64
}

// SegmentCLTV summarizes customer lifetime value for one segment.
type SegmentCLTV struct {
	Segment    string
	Customers  int64
	AvgCLTV    float64
	MedianCLTV float64
	TotalCLTV  float64
}

// Correlation is the Pearson correlation of one numeric feature with churn.
type Correlation struct {
	Feature string
	Pearson float64
}

func (a *Analyzer) Overview(ctx context.Context) (*Overview, error) {
	var o Overview
	err := a.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN churn_status THEN 1 ELSE 0 END), 0),
		       COALESCE(ROUND(SUM(CASE WHEN churn_status THEN 1 ELSE 0 END) * 100.0 / COUNT(*), 2), 0),
		       COALESCE(ROUND(AVG(monthly_charges), 2), 0),
		       COALESCE(ROUND(AVG(tenure_months), 2), 0)
		FROM customer_complete_view`,
	).Scan(&o.TotalCustomers, &o.ChurnedCustomers, &o.ChurnRate,
		&o.AvgMonthlyCharges, &o.AvgTenureMonths)
	if err != nil {
		return nil, eris.Wrap(err, "analytics: overview")
	}
	return &o, nil
}

// groupExprs maps the grouping dimensions the CLI exposes to the SQL
// expression that labels each group. Boolean columns get readable labels.
var groupExprs = map[string]string{
	"contract_type":     "contract_type",
	"payment_method":    "payment_method",
	"internet_service":  "internet_service",
	"gender":            "gender",
	"senior_citizen":    "CASE WHEN senior_citizen THEN 'Senior' ELSE 'Non-senior' END",
	"partner":           "CASE WHEN partner THEN 'Has partner' ELSE 'No partner' END",
	"dependents":        "CASE WHEN dependents THEN 'Has dependents' ELSE 'No dependents' END",
	"paperless_billing": "CASE WHEN paperless_billing THEN 'Paperless' ELSE 'Mailed' END",
	"phone_service":     "CASE WHEN phone_service THEN 'Phone' ELSE 'No phone' END",
}

// Dimensions lists the supported grouping dimensions in a stable order.
func Dimensions() []string {
	dims := make([]string, 0, len(groupExprs))
	for d := range groupExprs {
		dims = append(dims, d)
	}
	sort.Strings(dims)
	return dims
}

// ChurnBy aggregates churn metrics grouped by the named dimension.
func (a *Analyzer) ChurnBy(ctx context.Context, dimension string) ([]GroupStat, error) {
	expr, ok := groupExprs[dimension]
	if !ok {
		return nil, eris.Errorf("analytics: unknown dimension %q", dimension)
	}
	query := fmt.Sprintf(`
		SELECT %s AS grp,
		       COUNT(*),
		       SUM(CASE WHEN churn_status THEN 1 ELSE 0 END),
		       ROUND(SUM(CASE WHEN churn_status THEN 1 ELSE 0 END) * 100.0 / COUNT(*), 2),
		       ROUND(AVG(monthly_charges), 2),
		       ROUND(AVG(total_charges), 2),
		       ROUND(AVG(tenure_months), 2)
		FROM customer_complete_view
		GROUP BY grp
		ORDER BY grp`, expr)
	return a.groupQuery(ctx, dimension, query)
}

// AddonChurn reports churn among subscribers of each add-on service. Only
// customers whose add-on value is 'Yes' count toward a service's group.
func (a *Analyzer) AddonChurn(ctx context.Context) ([]GroupStat, error) {
	addons := []string{
		"online_security", "online_backup", "device_protection",
		"tech_support", "streaming_tv", "streaming_movies",
	}
	var stats []GroupStat
	for _, col := range addons {
		query := fmt.Sprintf(`
			SELECT '%s',
			       COUNT(*),
			       COALESCE(SUM(CASE WHEN churn_status THEN 1 ELSE 0 END), 0),
			       COALESCE(ROUND(SUM(CASE WHEN churn_status THEN 1 ELSE 0 END) * 100.0 / COUNT(*), 2), 0),
			       COALESCE(ROUND(AVG(monthly_charges), 2), 0),
			       COALESCE(ROUND(AVG(total_charges), 2), 0),
			       COALESCE(ROUND(AVG(tenure_months), 2), 0)
			FROM customer_complete_view
			WHERE %s = 'Yes'`, col, col)
		var s GroupStat
		err := a.db.QueryRowContext(ctx, query).Scan(&s.Group, &s.Customers,
			&s.Churned, &s.ChurnRate, &s.AvgMonthlyCharges, &s.AvgTotalCharges,
			&s.AvgTenureMonths)
		if err != nil {
			return nil, eris.Wrapf(err, "analytics: addon churn %s", col)
		}
		stats = append(stats, s)
	}
	return stats, nil
}

const tenureBucketExpr = `CASE
	WHEN tenure_months <= 12 THEN '0-12'
	WHEN tenure_months <= 24 THEN '13-24'
	WHEN tenure_months <= 36 THEN '25-36'
	WHEN tenure_months <= 48 THEN '37-48'
	WHEN tenure_months <= 60 THEN '49-60'
	ELSE '60+' END`

const chargeBucketExpr = `CASE
	WHEN monthly_charges <= 30 THEN '0-30'
	WHEN monthly_charges <= 50 THEN '31-50'
	WHEN monthly_charges <= 70 THEN '51-70'
	WHEN monthly_charges <= 90 THEN '71-90'
	ELSE '90+' END`

const riskBucketExpr = `CASE
	WHEN risk_score < 20 THEN '0-19'
	WHEN risk_score < 40 THEN '20-39'
	WHEN risk_score < 60 THEN '40-59'
	WHEN risk_score < 80 THEN '60-79'
	ELSE '80-100' END`

// TenureBuckets aggregates churn by tenure cohort.
func (a *Analyzer) TenureBuckets(ctx context.Context) ([]GroupStat, error) {
	return a.bucketQuery(ctx, "tenure", tenureBucketExpr, "MIN(tenure_months)")
}

// ChargeBuckets aggregates churn by monthly-charge band.
func (a *Analyzer) ChargeBuckets(ctx context.Context) ([]GroupStat, error) {
	return a.bucketQuery(ctx, "charges", chargeBucketExpr, "MIN(monthly_charges)")
}

// RiskBuckets aggregates churn by risk-score quintile.
func (a *Analyzer) RiskBuckets(ctx context.Context) ([]GroupStat, error) {
	return a.bucketQuery(ctx, "risk", riskBucketExpr, "MIN(risk_score)")
}

func (a *Analyzer) bucketQuery(ctx context.Context, name, expr, orderBy string) ([]GroupStat, error) {
	query := fmt.Sprintf(`
		SELECT %s AS bucket,
		       COUNT(*),
		       SUM(CASE WHEN churn_status THEN 1 ELSE 0 END),
		       ROUND(SUM(CASE WHEN churn_status THEN 1 ELSE 0 END) * 100.0 / COUNT(*), 2),
		       ROUND(AVG(monthly_charges), 2),
		       ROUND(AVG(total_charges), 2),
		       ROUND(AVG(tenure_months), 2)
		FROM customer_complete_view
		GROUP BY bucket
		ORDER BY %s`, expr, orderBy)
	return a.groupQuery(ctx, name, query)
}

func (a *Analyzer) groupQuery(ctx context.Context, name, query string) ([]GroupStat, error) {
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrapf(err, "analytics: churn by %s", name)
	}
	defer rows.Close()

	var stats []GroupStat
	for rows.Next() {
		var s GroupStat
		if err := rows.Scan(&s.Group, &s.Customers, &s.Churned, &s.ChurnRate,
			&s.AvgMonthlyCharges, &s.AvgTotalCharges, &s.AvgTenureMonths); err != nil {
			return nil, eris.Wrapf(err, "analytics: scan %s row", name)
		}
		stats = append(stats, s)
	}
	return stats, eris.Wrapf(rows.Err(), "analytics: iterate %s", name)
}

// SegmentCLTVSummary computes per-segment lifetime-value statistics. The
// median is computed in-process since SQLite lacks a median aggregate.
func (a *Analyzer) SegmentCLTVSummary(ctx context.Context) ([]SegmentCLTV, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT segment_id, segment_name, cltv_score
		FROM customer_complete_view
		ORDER BY segment_id, cltv_score`)
	if err != nil {
		return nil, eris.Wrap(err, "analytics: segment cltv")
	}
	defer rows.Close()

	type bucket struct {
		name   string
		scores []float64
	}
	var order []int
	buckets := map[int]*bucket{}
	for rows.Next() {
		var (
			id    int
			name  string
			score float64
		)
		if err := rows.Scan(&id, &name, &score); err != nil {
			return nil, eris.Wrap(err, "analytics: scan cltv row")
		}
		b, ok := buckets[id]
		if !ok {
			b = &bucket{name: name}
			buckets[id] = b
			order = append(order, id)
		}
		b.scores = append(b.scores, score)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "analytics: iterate cltv")
	}

	summaries := make([]SegmentCLTV, 0, len(order))
	for _, id := range order {
		b := buckets[id]
		total := 0.0
		for _, v := range b.scores {
			total += v
		}
		// Scores arrive sorted per segment from the query.
		summaries = append(summaries, SegmentCLTV{
			Segment:    b.name,
			Customers:  int64(len(b.scores)),
			AvgCLTV:    round2(stat.Mean(b.scores, nil)),
			MedianCLTV: round2(stat.Quantile(0.5, stat.Empirical, b.scores, nil)),
			TotalCLTV:  round2(total),
		})
	}
	return summaries, nil
}

// correlationFeatures are the numeric columns correlated against churn.
var correlationFeatures = []string{
	"tenure_months", "monthly_charges", "total_charges",
	"senior_citizen", "cltv_score", "risk_score",
}

// Correlations computes the Pearson correlation of each numeric feature
// with the churn label, sorted by absolute strength descending.
func (a *Analyzer) Correlations(ctx context.Context) ([]Correlation, error) {
	query := `
		SELECT tenure_months, monthly_charges, total_charges,
		       CASE WHEN senior_citizen THEN 1.0 ELSE 0.0 END,
		       cltv_score, risk_score,
		       CASE WHEN churn_status THEN 1.0 ELSE 0.0 END
		FROM customer_complete_view`
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "analytics: correlations")
	}
	defer rows.Close()

	cols := make([][]float64, len(correlationFeatures))
	var churn []float64
	for rows.Next() {
		vals := make([]float64, len(correlationFeatures)+1)
		ptrs := make([]any, len(vals))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, eris.Wrap(err, "analytics: scan correlation row")
		}
		for i := range correlationFeatures {
			cols[i] = append(cols[i], vals[i])
		}
		churn = append(churn, vals[len(vals)-1])
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "analytics: iterate correlations")
	}
	if len(churn) < 2 {
		return nil, eris.New("analytics: not enough rows for correlation")
	}

	out := make([]Correlation, len(correlationFeatures))
	for i, f := range correlationFeatures {
		out[i] = Correlation{Feature: f, Pearson: stat.Correlation(cols[i], churn, nil)}
	}
	sort.Slice(out, func(i, j int) bool {
		return abs(out[i].Pearson) > abs(out[j].Pearson)
	})
	return out, nil
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
