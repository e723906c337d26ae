package etl

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// SegmentRules holds the risk weights and classification thresholds used by
// segment assignment. The defaults reproduce the established scoring model;
// they are heuristics, so deployments may tune them via a YAML file.
type SegmentRules struct {
	// Risk contributions.
	RiskMonthToMonth  float64 `yaml:"risk_month_to_month"`
	RiskOneYear       float64 `yaml:"risk_one_year"`
	RiskElectronicChk float64 `yaml:"risk_electronic_check"`
	RiskFiberHighBill float64 `yaml:"risk_fiber_high_bill"`
	RiskShortTenure   float64 `yaml:"risk_short_tenure"`

	// Supporting thresholds.
	HighBillThreshold   float64 `yaml:"high_bill_threshold"`
	ShortTenureMonths   int     `yaml:"short_tenure_months"`
	RiskCap             float64 `yaml:"risk_cap"`
	HighValueCLTV       float64 `yaml:"high_value_cltv"`
	HighValueMaxRisk    float64 `yaml:"high_value_max_risk"`
	MediumValueCLTV     float64 `yaml:"medium_value_cltv"`
	MediumValueMaxRisk  float64 `yaml:"medium_value_max_risk"`
	HighRiskMinScore    float64 `yaml:"high_risk_min_score"`
}

// DefaultRules returns the built-in segment scoring model.
func DefaultRules() SegmentRules {
	return SegmentRules{
		RiskMonthToMonth:  30,
		RiskOneYear:       10,
		RiskElectronicChk: 20,
		RiskFiberHighBill: 15,
		RiskShortTenure:   25,

		HighBillThreshold:  80,
		ShortTenureMonths:  12,
		RiskCap:            100,
		HighValueCLTV:      2000,
		HighValueMaxRisk:   20,
		MediumValueCLTV:    1000,
		MediumValueMaxRisk: 40,
		HighRiskMinScore:   60,
	}
}

// LoadRules reads segment rules from a YAML file. Fields omitted in the file
// keep their default values.
func LoadRules(path string) (SegmentRules, error) {
	rules := DefaultRules()

	data, err := os.ReadFile(path)
	if err != nil {
		return rules, eris.Wrapf(err, "rules: read %s", path)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return rules, eris.Wrapf(err, "rules: parse %s", path)
	}
	return rules, nil
}
