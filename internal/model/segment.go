package model

// Segment is one of the five fixed customer categories derived from value
// and risk heuristics.
type Segment int

const (
	SegmentHighValueLoyal Segment = iota + 1
	SegmentMediumValueStable
	SegmentHighRisk
	SegmentNewCustomers
	SegmentStandard
)

// String returns the human-readable segment label used in reports and
// the customer_segments table.
func (s Segment) String() string {
	switch s {
	case SegmentHighValueLoyal:
		return "High Value Loyal"
	case SegmentMediumValueStable:
		return "Medium Value Stable"
	case SegmentHighRisk:
		return "High Risk"
	case SegmentNewCustomers:
		return "New Customers"
	case SegmentStandard:
		return "Standard"
	default:
		return "Unknown"
	}
}

// ID returns the numeric segment identifier persisted alongside the label.
func (s Segment) ID() int { return int(s) }

// SegmentAssignment is the computed segment for a single customer.
// RiskScore is clamped to [0, 100]; CLTVScore is monthly charge times
// tenure in months.
type SegmentAssignment struct {
	CustomerID string  `json:"customer_id"`
	Segment    Segment `json:"segment"`
	CLTVScore  float64 `json:"cltv_score"`
	RiskScore  float64 `json:"risk_score"`
}
