// Package model defines the core domain models used throughout the application.
package model

import "time"

// ClassificationSource indicates how a classification was produced.
type ClassificationSource string

// Classification source constants.
const (
	// SourceReference means a seeded merchant pattern matched.
	SourceReference ClassificationSource = "reference"
	// SourceLearned means a pattern created from user feedback matched.
	SourceLearned ClassificationSource = "learned"
	// SourcePattern means a keyword category signature matched.
	SourcePattern ClassificationSource = "pattern"
	// SourceAI means the external classifier produced the result.
	SourceAI ClassificationSource = "ai"
	// SourceFallback means the result is a degraded default, produced when
	// no classifier is configured or a call failed.
	SourceFallback ClassificationSource = "fallback"
)

// ClassificationResult is the outcome of classifying one transaction.
// Results are produced once per transaction per run and never mutated.
type ClassificationResult struct {
	ProcessedAt           time.Time            `json:"processedAt"`
	TransactionID         string               `json:"transactionId"`
	Category              string               `json:"category"`
	Subcategory           string               `json:"subcategory,omitempty"`
	TaxCategory           string               `json:"taxCategory,omitempty"`
	Reasoning             string               `json:"reasoning,omitempty"`
	Source                ClassificationSource `json:"source"`
	EstimatedFrequency    string               `json:"estimatedFrequency,omitempty"`
	Confidence            float64              `json:"confidence"`
	BusinessUsePercentage float64              `json:"businessUsePercentage,omitempty"`
	IsTaxDeductible       bool                 `json:"isTaxDeductible"`
	IsBill                bool                 `json:"isBill"`
	IsRecurring           bool                 `json:"isRecurring"`
}

// Correction carries a user's corrected classification for a transaction.
// It feeds the pattern store's learning path.
type Correction struct {
	Category              string  `json:"category"`
	Subcategory           string  `json:"subcategory,omitempty"`
	TaxCategory           string  `json:"taxCategory,omitempty"`
	BillType              string  `json:"billType,omitempty"`
	BusinessUsePercentage float64 `json:"businessUsePercentage,omitempty"`
	IsTaxDeductible       bool    `json:"isTaxDeductible"`
	IsRecurring           bool    `json:"isRecurring"`
}
