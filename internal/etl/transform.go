package etl

import (
	"time"

	"go.uber.org/zap"

	"github.com/clearsight-analytics/churn-cli/internal/model"
)

// Table names in load order. Demographics carries the primary key every other
// table references, so it must load first; segments closes the set.
var TableOrder = []string{
	"customer_demographics",
	"customer_services",
	"customer_contracts",
	"customer_billing",
	"customer_churn",
	"customer_segments",
}

// Column sets per table, matching the migration DDL minus the defaulted
// created_at/updated_at pair (stamped explicitly at transform time).
var tableColumns = map[string][]string{
	"customer_demographics": {"customer_id", "gender", "senior_citizen", "partner", "dependents", "created_at", "updated_at"},
	"customer_services":     {"customer_id", "phone_service", "multiple_lines", "internet_service", "online_security", "online_backup", "device_protection", "tech_support", "streaming_tv", "streaming_movies", "created_at", "updated_at"},
	"customer_contracts":    {"customer_id", "tenure_months", "contract_type", "created_at", "updated_at"},
	"customer_billing":      {"customer_id", "monthly_charges", "total_charges", "paperless_billing", "payment_method", "created_at", "updated_at"},
	"customer_churn":        {"customer_id", "churn_status", "churn_date", "created_at", "updated_at"},
	"customer_segments":     {"customer_id", "segment_id", "segment_name", "cltv_score", "risk_score", "created_at", "updated_at"},
}

// TableSet is the transformer's output: one row slice per target table plus
// the computed segment assignments.
type TableSet struct {
	Rows        map[string][][]any
	Assignments []model.SegmentAssignment

	// UnknownCategoricals counts customers whose contract, payment, or
	// internet value matched no known category and therefore contributed
	// zero risk.
	UnknownCategoricals int
}

// Columns returns the column names for a table, nil for an unknown table.
func Columns(table string) []string {
	return tableColumns[table]
}

// Transformer turns extracted records into normalized table rows.
type Transformer struct {
	rules SegmentRules
}

// NewTransformer creates a Transformer using the given segment rules.
func NewTransformer(rules SegmentRules) *Transformer {
	return &Transformer{rules: rules}
}

// Transform builds the six table row sets from a batch of records. Churned
// customers get now's date as churn_date; every row is stamped with the same
// created_at/updated_at.
func (t *Transformer) Transform(records []model.CustomerRecord, now time.Time) *TableSet {
	log := zap.L().With(zap.String("component", "etl.transform"))

	out := &TableSet{
		Rows:        make(map[string][][]any, len(TableOrder)),
		Assignments: make([]model.SegmentAssignment, 0, len(records)),
	}
	churnDate := dateOnly(now)

	for _, rec := range records {
		out.Rows["customer_demographics"] = append(out.Rows["customer_demographics"], []any{
			rec.CustomerID, rec.Gender, rec.SeniorCitizen, rec.Partner, rec.Dependents, now, now,
		})

		out.Rows["customer_services"] = append(out.Rows["customer_services"], []any{
			rec.CustomerID, rec.PhoneService, rec.MultipleLines, rec.InternetService,
			rec.OnlineSecurity, rec.OnlineBackup, rec.DeviceProtection, rec.TechSupport,
			rec.StreamingTV, rec.StreamingMovies, now, now,
		})

		out.Rows["customer_contracts"] = append(out.Rows["customer_contracts"], []any{
			rec.CustomerID, rec.TenureMonths, rec.ContractType, now, now,
		})

		out.Rows["customer_billing"] = append(out.Rows["customer_billing"], []any{
			rec.CustomerID, rec.MonthlyCharges, rec.TotalCharges, rec.PaperlessBilling,
			rec.PaymentMethod, now, now,
		})

		var cd any
		if rec.Churned {
			cd = churnDate
		}
		out.Rows["customer_churn"] = append(out.Rows["customer_churn"], []any{
			rec.CustomerID, rec.Churned, cd, now, now,
		})

		if !KnownCategoricals(rec.ContractType, rec.PaymentMethod, rec.InternetService) {
			out.UnknownCategoricals++
		}
		a := t.rules.Assign(rec.CustomerID, rec.ContractType, rec.PaymentMethod,
			rec.InternetService, rec.MonthlyCharges, rec.TenureMonths)
		out.Assignments = append(out.Assignments, a)

		out.Rows["customer_segments"] = append(out.Rows["customer_segments"], []any{
			rec.CustomerID, a.Segment.ID(), a.Segment.String(), a.CLTVScore, a.RiskScore, now, now,
		})
	}

	if out.UnknownCategoricals > 0 {
		log.Warn("customers with unrecognized categorical values scored with zero contribution",
			zap.Int("count", out.UnknownCategoricals))
	}
	log.Info("transformation complete", zap.Int("records", len(records)))

	return out
}
