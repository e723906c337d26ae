// Package ml trains churn classifiers and customer clusters over the
// complete customer view and persists their outputs to the store.
package ml

import (
	"context"
	"math/rand"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/stat"

	"github.com/clearsight-analytics/churn-cli/internal/db"
)

// FeatureNames is the fixed feature order every model in this package uses.
var FeatureNames = []string{
	"senior_citizen", "partner", "dependents", "phone_service", "paperless_billing",
	"multiple_lines", "online_security", "online_backup", "device_protection",
	"tech_support", "streaming_tv", "streaming_movies", "internet_service",
	"tenure_months", "monthly_charges", "total_charges", "contract_months",
	"service_count", "revenue_per_month", "charge_ratio", "risk_score", "cltv_score",
}

// Sample is one customer encoded as a numeric feature row with a churn label.
type Sample struct {
	CustomerID string
	Features   []float64
	Label      float64
}

// Dataset holds all encoded customers.
type Dataset struct {
	Samples []Sample
}

// RawCustomer carries the view columns that feed feature encoding.
type RawCustomer struct {
	CustomerID       string
	SeniorCitizen    bool
	Partner          bool
	Dependents       bool
	PhoneService     bool
	PaperlessBilling bool
	MultipleLines    string
	OnlineSecurity   string
	OnlineBackup     string
	DeviceProtection string
	TechSupport      string
	StreamingTV      string
	StreamingMovies  string
	InternetService  string
	TenureMonths     int
	MonthlyCharges   float64
	TotalCharges     float64
	ContractType     string
	RiskScore        float64
	CLTVScore        float64
	Churned          bool
}

// Encode maps a raw customer to the numeric feature row, ordered per
// FeatureNames. Tri-state service flags collapse to 1 only on "Yes";
// internet service codes DSL=1, Fiber optic=2, anything else 0.
func Encode(c RawCustomer) Sample {
	internet := 0.0
	switch c.InternetService {
	case "DSL":
		internet = 1
	case "Fiber optic":
		internet = 2
	}
	contractMonths := 1.0
	switch c.ContractType {
	case "One year":
		contractMonths = 12
	case "Two year":
		contractMonths = 24
	}

	serviceVals := []float64{
		boolF(c.PhoneService), yesF(c.MultipleLines), internet,
		yesF(c.OnlineSecurity), yesF(c.OnlineBackup), yesF(c.DeviceProtection),
		yesF(c.TechSupport), yesF(c.StreamingTV), yesF(c.StreamingMovies),
	}
	serviceCount := 0.0
	for _, v := range serviceVals {
		serviceCount += v
	}

	tenure := c.TenureMonths
	if tenure == 0 {
		tenure = 1
	}
	total := c.TotalCharges
	if total == 0 {
		total = 1
	}

	return Sample{
		CustomerID: c.CustomerID,
		Label:      boolF(c.Churned),
		Features: []float64{
			boolF(c.SeniorCitizen), boolF(c.Partner), boolF(c.Dependents),
			boolF(c.PhoneService), boolF(c.PaperlessBilling),
			yesF(c.MultipleLines), yesF(c.OnlineSecurity), yesF(c.OnlineBackup),
			yesF(c.DeviceProtection), yesF(c.TechSupport), yesF(c.StreamingTV),
			yesF(c.StreamingMovies), internet,
			float64(c.TenureMonths), c.MonthlyCharges, c.TotalCharges,
			contractMonths, serviceCount,
			c.TotalCharges / float64(tenure),
			c.MonthlyCharges / total,
			c.RiskScore, c.CLTVScore,
		},
	}
}

func boolF(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func yesF(s string) float64 {
	if s == "Yes" {
		return 1
	}
	return 0
}

const datasetQuery = `
	SELECT customer_id, senior_citizen, partner, dependents, phone_service,
	       paperless_billing, multiple_lines, online_security, online_backup,
	       device_protection, tech_support, streaming_tv, streaming_movies,
	       internet_service, tenure_months, monthly_charges::float8,
	       total_charges::float8, contract_type, risk_score::float8,
	       cltv_score::float8, churn_status
	FROM churn.customer_complete_view
	ORDER BY customer_id`

// LoadDataset reads every customer from the complete view and encodes it.
func LoadDataset(ctx context.Context, pool db.Pool) (*Dataset, error) {
	rows, err := pool.Query(ctx, datasetQuery)
	if err != nil {
		return nil, eris.Wrap(err, "ml: load dataset")
	}
	defer rows.Close()

	var ds Dataset
	for rows.Next() {
		var c RawCustomer
		var tenure int32
		if err := rows.Scan(&c.CustomerID, &c.SeniorCitizen, &c.Partner,
			&c.Dependents, &c.PhoneService, &c.PaperlessBilling,
			&c.MultipleLines, &c.OnlineSecurity, &c.OnlineBackup,
			&c.DeviceProtection, &c.TechSupport, &c.StreamingTV,
			&c.StreamingMovies, &c.InternetService, &tenure,
			&c.MonthlyCharges, &c.TotalCharges, &c.ContractType,
			&c.RiskScore, &c.CLTVScore, &c.Churned); err != nil {
			return nil, eris.Wrap(err, "ml: scan customer row")
		}
		c.TenureMonths = int(tenure)
		ds.Samples = append(ds.Samples, Encode(c))
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "ml: iterate dataset")
	}
	if len(ds.Samples) == 0 {
		return nil, eris.New("ml: no customers in view")
	}
	return &ds, nil
}

// Matrix returns the feature matrix and label vector.
func (d *Dataset) Matrix() ([][]float64, []float64) {
	X := make([][]float64, len(d.Samples))
	y := make([]float64, len(d.Samples))
	for i, s := range d.Samples {
		X[i] = s.Features
		y[i] = s.Label
	}
	return X, y
}

// Standardize scales each column to zero mean and unit variance, returning
// the scaled matrix with the per-column means and deviations. Constant
// columns keep a deviation of 1 so they scale to zero rather than NaN.
func Standardize(X [][]float64) ([][]float64, []float64, []float64) {
	if len(X) == 0 {
		return nil, nil, nil
	}
	nFeat := len(X[0])
	means := make([]float64, nFeat)
	stds := make([]float64, nFeat)

	col := make([]float64, len(X))
	for j := 0; j < nFeat; j++ {
		for i := range X {
			col[i] = X[i][j]
		}
		means[j] = stat.Mean(col, nil)
		stds[j] = stat.StdDev(col, nil)
		if stds[j] == 0 || len(X) < 2 {
			stds[j] = 1
		}
	}

	scaled := make([][]float64, len(X))
	for i := range X {
		scaled[i] = make([]float64, nFeat)
		for j := 0; j < nFeat; j++ {
			scaled[i][j] = (X[i][j] - means[j]) / stds[j]
		}
	}
	return scaled, means, stds
}

// Split partitions sample indices into train and test sets using a seeded
// shuffle, so the same seed always yields the same split.
func Split(n int, testFrac float64, seed int64) (train, test []int) {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

	nTest := int(float64(n) * testFrac)
	if nTest < 1 && n > 1 {
		nTest = 1
	}
	return idx[nTest:], idx[:nTest]
}
