package model

import "time"

// MerchantPattern maps merchant aliases to a known classification.
// Patterns are owned exclusively by the pattern store and are never handed
// out by reference.
type MerchantPattern struct {
	LastUpdated           time.Time `json:"lastUpdated"`
	ID                    string    `json:"id"`
	CanonicalName         string    `json:"canonicalName"`
	Category              string    `json:"category"`
	Subcategory           string    `json:"subcategory,omitempty"`
	TaxCategory           string    `json:"taxCategory,omitempty"`
	BillType              string    `json:"billType,omitempty"`
	Aliases               []string  `json:"aliases"`
	Confidence            float64   `json:"confidence"`
	BusinessUsePercentage float64   `json:"businessUsePercentage,omitempty"`
	MatchCount            int       `json:"matchCount"`
	IsTaxDeductible       bool      `json:"isTaxDeductible"`
	IsRecurring           bool      `json:"isRecurring"`
	Learned               bool      `json:"learned"`
}

// CategorySignature classifies by keyword and regex hits when no merchant
// pattern matches. A signature matches when the combined hit count reaches
// ceil(len(Keywords)/2).
type CategorySignature struct {
	Category          string   `json:"category"`
	Subcategory       string   `json:"subcategory,omitempty"`
	Keywords          []string `json:"keywords"`
	RegexPatterns     []string `json:"regexPatterns,omitempty"`
	Confidence        float64  `json:"confidence"`
	BusinessRelevance float64  `json:"businessRelevance"`
	IsTaxDeductible   bool     `json:"isTaxDeductible"`
}

// LearningEvent records one user correction applied to the pattern store.
type LearningEvent struct {
	Timestamp     time.Time            `json:"timestamp"`
	TransactionID string               `json:"transactionId"`
	Description   string               `json:"description"`
	Amount        float64              `json:"amount"`
	Correction    Correction           `json:"correction"`
	Prior         ClassificationResult `json:"prior"`
}
