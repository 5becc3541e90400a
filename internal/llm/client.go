// Package llm provides external classifier clients for transaction
// classification. Providers share one request/response contract so the
// engine never depends on a specific vendor API.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledgermill/classiflow/internal/model"
)

// Client is the external classifier contract. One call classifies a whole
// chunk of transactions.
type Client interface {
	ClassifyBatch(ctx context.Context, req BatchRequest) (BatchResponse, error)
}

// BatchRequest carries one chunk of transactions to the external model.
// AllowedCategories, when non-empty, restricts the model to a fixed
// vocabulary; when empty the model may propose new categories.
type BatchRequest struct {
	Transactions      []model.Transaction
	Profile           model.UserProfile
	AllowedCategories []string
}

// ItemResponse is the model's verdict for a single transaction, matched to
// the request by description.
type ItemResponse struct {
	Description           string  `json:"description"`
	Category              string  `json:"category"`
	Subcategory           string  `json:"subcategory"`
	Reasoning             string  `json:"reasoning"`
	NewCategoryName       string  `json:"newCategoryName,omitempty"`
	TaxCategory           string  `json:"taxCategory,omitempty"`
	Confidence            float64 `json:"confidence"`
	BusinessUsePercentage float64 `json:"businessUsePercentage"`
	IsNewCategory         bool    `json:"isNewCategory"`
	IsTaxDeductible       bool    `json:"isTaxDeductible"`
}

// BatchResponse is one successful external call.
type BatchResponse struct {
	Model        string
	Items        []ItemResponse
	InputTokens  int
	OutputTokens int
}

// Config holds provider configuration.
type Config struct {
	Provider          string
	APIKey            string
	Model             string
	Temperature       float64
	MaxTokens         int
	RequestsPerMinute int
}

// buildBatchPrompt renders the chunk as a numbered list with the user's
// context and the required JSON output shape.
func buildBatchPrompt(req BatchRequest) string {
	var b strings.Builder

	b.WriteString("Classify the following financial transactions.\n\n")

	if p := req.Profile; p.BusinessType != "" || p.Industry != "" || p.Profession != "" || p.FreeTextContext != "" {
		b.WriteString("User context:\n")
		if p.BusinessType != "" {
			fmt.Fprintf(&b, "- Business type: %s\n", p.BusinessType)
		}
		if p.Industry != "" {
			fmt.Fprintf(&b, "- Industry: %s\n", p.Industry)
		}
		if p.Profession != "" {
			fmt.Fprintf(&b, "- Profession: %s\n", p.Profession)
		}
		if p.CountryCode != "" {
			fmt.Fprintf(&b, "- Country: %s\n", p.CountryCode)
		}
		if p.FreeTextContext != "" {
			fmt.Fprintf(&b, "- Notes: %s\n", p.FreeTextContext)
		}
		b.WriteString("\n")
	}

	if len(req.AllowedCategories) > 0 {
		fmt.Fprintf(&b, "Use ONLY these categories: %s\n", strings.Join(req.AllowedCategories, ", "))
		b.WriteString("If none fits well, pick the closest and set isNewCategory true with a suggested newCategoryName.\n\n")
	} else {
		b.WriteString("Choose an appropriate category and subcategory for each transaction.\n\n")
	}

	b.WriteString("Transactions:\n")
	for i, txn := range req.Transactions {
		fmt.Fprintf(&b, "%d. %s | merchant: %s | amount: %.2f | type: %s | date: %s\n",
			i+1, txn.Description, txn.Merchant, txn.Amount, txn.Type, txn.Date.Format("2006-01-02"))
	}

	b.WriteString(`
Respond with a JSON array, one object per transaction in the same order:
[{"description": "...", "category": "...", "subcategory": "...", "confidence": 0.0-1.0, "isNewCategory": false, "newCategoryName": "", "reasoning": "...", "isTaxDeductible": false, "businessUsePercentage": 0-100, "taxCategory": "..."}]
Respond with the JSON array only, no other text.`)

	return b.String()
}
