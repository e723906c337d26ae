// Package model holds the shared domain types for the churn analytics platform.
package model

import "time"

// CustomerRecord is one customer as extracted from the source file.
// Records are immutable per extraction batch; the pipeline re-derives
// everything downstream rather than mutating in place.
type CustomerRecord struct {
	CustomerID       string     `json:"customer_id"`
	Gender           string     `json:"gender"`
	SeniorCitizen    bool       `json:"senior_citizen"`
	Partner          bool       `json:"partner"`
	Dependents       bool       `json:"dependents"`
	TenureMonths     int        `json:"tenure_months"`
	PhoneService     bool       `json:"phone_service"`
	MultipleLines    string     `json:"multiple_lines"`
	InternetService  string     `json:"internet_service"`
	OnlineSecurity   string     `json:"online_security"`
	OnlineBackup     string     `json:"online_backup"`
	DeviceProtection string     `json:"device_protection"`
	TechSupport      string     `json:"tech_support"`
	StreamingTV      string     `json:"streaming_tv"`
	StreamingMovies  string     `json:"streaming_movies"`
	ContractType     string     `json:"contract_type"`
	PaperlessBilling bool       `json:"paperless_billing"`
	PaymentMethod    string     `json:"payment_method"`
	MonthlyCharges   float64    `json:"monthly_charges"`
	TotalCharges     float64    `json:"total_charges"`
	Churned          bool       `json:"churned"`
	ChurnDate        *time.Time `json:"churn_date,omitempty"`
}

// Well-known categorical values from the source dataset. Comparison is
// done against these lowercased forms after normalization.
const (
	ContractMonthToMonth = "Month-to-month"
	ContractOneYear      = "One year"
	ContractTwoYear      = "Two year"

	PaymentElectronicCheck = "Electronic check"
	PaymentMailedCheck     = "Mailed check"
	PaymentBankTransfer    = "Bank transfer (automatic)"
	PaymentCreditCard      = "Credit card (automatic)"

	InternetDSL   = "DSL"
	InternetFiber = "Fiber optic"
	InternetNone  = "No"
)

// RunStatus tracks the lifecycle of a pipeline run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// PipelineRun is one row in churn.pipeline_runs.
type PipelineRun struct {
	ID          string         `json:"id"`
	Source      string         `json:"source"`
	Status      RunStatus      `json:"status"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	RowsLoaded  int64          `json:"rows_loaded"`
	Error       string         `json:"error,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// ValidationResult holds the validator's post-load findings.
type ValidationResult struct {
	TableCounts      map[string]int64 `json:"table_counts"`
	TotalCustomers   int64            `json:"total_customers"`
	ChurnedCustomers int64            `json:"churned_customers"`
	ChurnRate        float64          `json:"churn_rate"` // percentage, 2 decimals
}

// ChurnPrediction is one row in churn.churn_predictions.
type ChurnPrediction struct {
	CustomerID  string    `json:"customer_id"`
	Model       string    `json:"model"`
	Probability float64   `json:"probability"`
	Predicted   bool      `json:"predicted"`
	CreatedAt   time.Time `json:"created_at"`
}

// ClusterAssignment is one row in churn.customer_clusters.
type ClusterAssignment struct {
	CustomerID string    `json:"customer_id"`
	Cluster    int       `json:"cluster"`
	CreatedAt  time.Time `json:"created_at"`
}
