package etl

import (
	"github.com/clearsight-analytics/churn-cli/internal/model"
)

// Assign computes the segment for one customer from its contract, payment,
// service, and tenure attributes.
//
// cltv_score is monthly charge times tenure in months. risk_score sums the
// rule contributions and is capped at RiskCap. Classification is a priority
// ladder: high CLTV with low risk wins first, then medium CLTV with moderate
// risk, then high risk, then short tenure, then Standard.
//
// An unrecognized contract, payment, or internet value contributes zero risk.
// Callers that care (the transformer) count those via KnownCategoricals.
func (r SegmentRules) Assign(customerID string, contractType, paymentMethod, internetService string, monthlyCharge float64, tenureMonths int) model.SegmentAssignment {
	cltv := monthlyCharge * float64(tenureMonths)

	risk := 0.0
	switch contractType {
	case model.ContractMonthToMonth:
		risk += r.RiskMonthToMonth
	case model.ContractOneYear:
		risk += r.RiskOneYear
	}

	if paymentMethod == model.PaymentElectronicCheck {
		risk += r.RiskElectronicChk
	}

	if internetService == model.InternetFiber && monthlyCharge > r.HighBillThreshold {
		risk += r.RiskFiberHighBill
	}

	if tenureMonths < r.ShortTenureMonths {
		risk += r.RiskShortTenure
	}

	if risk > r.RiskCap {
		risk = r.RiskCap
	}

	var segment model.Segment
	switch {
	case cltv > r.HighValueCLTV && risk < r.HighValueMaxRisk:
		segment = model.SegmentHighValueLoyal
	case cltv > r.MediumValueCLTV && risk < r.MediumValueMaxRisk:
		segment = model.SegmentMediumValueStable
	case risk > r.HighRiskMinScore:
		segment = model.SegmentHighRisk
	case tenureMonths < r.ShortTenureMonths:
		segment = model.SegmentNewCustomers
	default:
		segment = model.SegmentStandard
	}

	return model.SegmentAssignment{
		CustomerID: customerID,
		Segment:    segment,
		CLTVScore:  cltv,
		RiskScore:  risk,
	}
}

// KnownCategoricals reports whether the categorical inputs to Assign are
// recognized values. Unknown values still classify (contributing zero risk),
// but the transformer surfaces a count of them so silent under-scoring is
// visible in the run metadata.
func KnownCategoricals(contractType, paymentMethod, internetService string) bool {
	switch contractType {
	case model.ContractMonthToMonth, model.ContractOneYear, model.ContractTwoYear:
	default:
		return false
	}
	switch paymentMethod {
	case model.PaymentElectronicCheck, model.PaymentMailedCheck,
		model.PaymentBankTransfer, model.PaymentCreditCard:
	default:
		return false
	}
	switch internetService {
	case model.InternetDSL, model.InternetFiber, model.InternetNone:
	default:
		return false
	}
	return true
}
