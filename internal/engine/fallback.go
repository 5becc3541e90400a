package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/ledgermill/classiflow/internal/model"
)

// fallbackHeuristics provide rough categories when the external classifier
// is unavailable. Checked in order; first keyword hit wins.
var fallbackHeuristics = []struct {
	category   string
	confidence float64
	keywords   []string
	isBill     bool
}{
	{category: "Utilities", confidence: 0.6, keywords: []string{"electric", "gas", "water", "internet", "phone"}, isBill: true},
	{category: "Subscriptions", confidence: 0.6, keywords: []string{"subscription", "monthly", "netflix", "spotify"}, isBill: true},
	{category: "Food & Dining", confidence: 0.55, keywords: []string{"restaurant", "cafe", "coffee", "food", "eat"}},
	{category: "Transport", confidence: 0.55, keywords: []string{"fuel", "petrol", "uber", "taxi", "parking"}},
	{category: "Groceries", confidence: 0.55, keywords: []string{"supermarket", "grocery", "market"}},
	{category: "Income", confidence: 0.5, keywords: []string{"salary", "payroll", "deposit"}},
}

// fallbackResult produces a degraded classification when the external
// classifier is unavailable or a chunk failed. Fallback results are never
// cached so a later run with a working classifier can improve on them.
func fallbackResult(txn model.Transaction, cause error) model.ClassificationResult {
	searchText := strings.ToLower(txn.Description + " " + txn.Merchant)

	category := "Uncategorized"
	confidence := 0.5
	isBill := false
	for _, h := range fallbackHeuristics {
		if containsAny(searchText, h.keywords) {
			category = h.category
			confidence = h.confidence
			isBill = h.isBill
			break
		}
	}

	reasoning := "fallback classification"
	if cause != nil {
		reasoning = fmt.Sprintf("fallback classification: %v", cause)
	}

	return model.ClassificationResult{
		TransactionID: txn.ID,
		Category:      category,
		Confidence:    confidence,
		TaxCategory:   "Personal",
		IsBill:        isBill,
		IsRecurring:   isBill,
		Reasoning:     reasoning,
		Source:        model.SourceFallback,
		ProcessedAt:   time.Now(),
	}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
