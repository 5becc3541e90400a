package model

import (
	"fmt"
	"strings"
	"time"
)

// TransactionType indicates the direction of money movement.
type TransactionType string

const (
	// TypeDebit represents money leaving the account.
	TypeDebit TransactionType = "debit"
	// TypeCredit represents money entering the account.
	TypeCredit TransactionType = "credit"
)

// Transaction represents a single financial transaction from any source.
// The pipeline treats transactions as immutable inputs.
type Transaction struct {
	Date        time.Time       `json:"date"`
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Merchant    string          `json:"merchant,omitempty"`
	Type        TransactionType `json:"type"`
	Amount      float64         `json:"amount"`
}

// Fingerprint returns the normalized cache key for this transaction.
// Two transactions with the same description, amount and merchant share a key.
func (t Transaction) Fingerprint() string {
	return fmt.Sprintf("%s_%.2f_%s",
		strings.ToLower(strings.TrimSpace(t.Description)),
		t.Amount,
		strings.ToLower(strings.TrimSpace(t.Merchant)))
}

// MerchantSignature returns the grouping key used for recurring-bill
// detection: the lowercased description plus merchant with digits and
// punctuation stripped.
func (t Transaction) MerchantSignature() string {
	text := strings.ToLower(t.Description + " " + t.Merchant)

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r == ' ' || r == '\t':
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
