// Package chat answers natural-language questions about the customer base
// by generating SQL against the warehouse mirror and narrating the results.
package chat

import "fmt"

// Categories the classifier may return. Anything else maps to CategoryOther.
const (
	CategoryCustomerOverview = "CUSTOMER_OVERVIEW"
	CategoryChurnAnalysis    = "CHURN_ANALYSIS"
	CategorySegmentAnalysis  = "SEGMENT_ANALYSIS"
	CategoryRevenueAnalysis  = "REVENUE_ANALYSIS"
	CategoryServiceAnalysis  = "SERVICE_ANALYSIS"
	CategoryOther            = "OTHER"
)

var knownCategories = map[string]bool{
	CategoryCustomerOverview: true,
	CategoryChurnAnalysis:    true,
	CategorySegmentAnalysis:  true,
	CategoryRevenueAnalysis:  true,
	CategoryServiceAnalysis:  true,
	CategoryOther:            true,
}

// schemaPrompt describes the mirror schema the SQL generator may query.
// It is sent as a cached system block on every turn.
const schemaPrompt = `You are a SQL expert specializing in customer churn analysis.
You write queries for a SQLite database holding telco customer data.

Tables:
- customer_demographics(customer_id, gender, senior_citizen, partner, dependents)
- customer_services(customer_id, phone_service, multiple_lines, internet_service,
  online_security, online_backup, device_protection, tech_support,
  streaming_tv, streaming_movies)
- customer_contracts(customer_id, tenure_months, contract_type)
- customer_billing(customer_id, monthly_charges, total_charges,
  paperless_billing, payment_method)
- customer_churn(customer_id, churn_status, churn_date)
- customer_segments(customer_id, segment_id, segment_name, cltv_score, risk_score)

customer_complete_view joins all six tables on customer_id; prefer it for
questions spanning tables.

Value notes:
- churn_status, senior_citizen, partner, dependents, phone_service and
  paperless_billing are stored as 0/1.
- contract_type is one of 'Month-to-month', 'One year', 'Two year'.
- internet_service is one of 'DSL', 'Fiber optic', 'No'.
- segment_name is one of 'High Value Loyal', 'Medium Value Stable',
  'High Risk', 'New Customers', 'Standard'.

Rules:
1. Use SQLite syntax.
2. Write exactly one SELECT statement, nothing else.
3. Use aggregations (COUNT, AVG, SUM, ROUND) where appropriate.
4. Include ORDER BY for meaningful results.
5. Return only the SQL, no explanations and no markdown fences.`

const classifySystemPrompt = `You are a question classification expert.
Classify the question into exactly one category and return only the
category name:

CUSTOMER_OVERVIEW - general customer statistics and demographics
CHURN_ANALYSIS - churn rates, trends, and risk factors
SEGMENT_ANALYSIS - customer segmentation and segment performance
REVENUE_ANALYSIS - billing, charges, and revenue metrics
SERVICE_ANALYSIS - service usage and preferences
OTHER - anything else`

const narrateSystemPrompt = `You are a data analyst providing insights from
customer churn analysis for a telecommunications company. Format query
results into a clear business answer: lead with the direct answer, cite the
key numbers, and add one or two actionable observations. Keep it short.`

func narratePrompt(question, sqlQuery, results string) string {
	return fmt.Sprintf(
		"Question: %s\n\nSQL used:\n%s\n\nResults:\n%s\n\nAnswer:",
		question, sqlQuery, results)
}
