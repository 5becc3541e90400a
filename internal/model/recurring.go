package model

// BillFrequency classifies the cadence of a recurring bill.
type BillFrequency string

const (
	// FrequencyWeekly covers mean intervals of up to 10 days.
	FrequencyWeekly BillFrequency = "weekly"
	// FrequencyMonthly covers mean intervals of up to 35 days.
	FrequencyMonthly BillFrequency = "monthly"
	// FrequencyQuarterly covers mean intervals of up to 100 days.
	FrequencyQuarterly BillFrequency = "quarterly"
	// FrequencyYearly covers everything longer.
	FrequencyYearly BillFrequency = "yearly"
)

// RecurringBillCandidate is a detected subscription or periodic bill.
// Candidates are recomputed from each batch; they are not persisted.
type RecurringBillCandidate struct {
	MerchantSignature string        `json:"merchantSignature"`
	Category          string        `json:"category,omitempty"`
	Frequency         BillFrequency `json:"frequency"`
	TransactionIDs    []string      `json:"transactionIds"`
	AverageAmount     float64       `json:"averageAmount"`
	Confidence        float64       `json:"confidence"`
}
