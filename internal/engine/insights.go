package engine

import (
	"fmt"
	"sort"

	"github.com/ledgermill/classiflow/internal/model"
)

// Outlier thresholds for the insight report.
const (
	lowConfidenceCutoff = 0.6
	largeAmountCutoff   = 10000.0
)

// CategoryTotal summarizes one category's share of a batch.
type CategoryTotal struct {
	Category string  `json:"category"`
	Count    int     `json:"count"`
	Total    float64 `json:"total"`
}

// Outlier flags a result worth human review.
type Outlier struct {
	TransactionID string  `json:"transactionId"`
	Reason        string  `json:"reason"`
	Amount        float64 `json:"amount"`
	Confidence    float64 `json:"confidence"`
}

// Insights is the analytical summary attached to every batch result.
type Insights struct {
	TopCategories      []CategoryTotal `json:"topCategories"`
	Outliers           []Outlier       `json:"outliers"`
	Recommendations    []string        `json:"recommendations"`
	TaxDeductibleTotal float64         `json:"taxDeductibleTotal"`
	BillTotal          float64         `json:"billTotal"`
	AverageConfidence  float64         `json:"averageConfidence"`
	LowConfidenceCount int             `json:"lowConfidenceCount"`
	RecurringBillCount int             `json:"recurringBillCount"`
}

// buildInsights aggregates a batch's results into totals, outliers, and
// follow-up recommendations.
func buildInsights(txns []model.Transaction, results []model.ClassificationResult) Insights {
	amounts := make(map[string]float64, len(txns))
	for _, txn := range txns {
		amounts[txn.ID] = txn.Amount
	}

	var insights Insights
	byCategory := make(map[string]*CategoryTotal)
	var confidenceSum float64

	for _, r := range results {
		amount := amounts[r.TransactionID]

		ct, ok := byCategory[r.Category]
		if !ok {
			ct = &CategoryTotal{Category: r.Category}
			byCategory[r.Category] = ct
		}
		ct.Count++
		ct.Total += amount

		if r.IsTaxDeductible {
			insights.TaxDeductibleTotal += amount * r.BusinessUsePercentage / 100
		}
		if r.IsBill {
			insights.BillTotal += amount
			insights.RecurringBillCount++
		}

		confidenceSum += r.Confidence
		if r.Confidence < lowConfidenceCutoff {
			insights.LowConfidenceCount++
			insights.Outliers = append(insights.Outliers, Outlier{
				TransactionID: r.TransactionID,
				Reason:        "low confidence",
				Amount:        amount,
				Confidence:    r.Confidence,
			})
		} else if amount > largeAmountCutoff {
			insights.Outliers = append(insights.Outliers, Outlier{
				TransactionID: r.TransactionID,
				Reason:        "unusually large amount",
				Amount:        amount,
				Confidence:    r.Confidence,
			})
		}
	}

	if len(results) > 0 {
		insights.AverageConfidence = confidenceSum / float64(len(results))
	}

	for _, ct := range byCategory {
		insights.TopCategories = append(insights.TopCategories, *ct)
	}
	sort.Slice(insights.TopCategories, func(i, j int) bool {
		if insights.TopCategories[i].Count != insights.TopCategories[j].Count {
			return insights.TopCategories[i].Count > insights.TopCategories[j].Count
		}
		return insights.TopCategories[i].Category < insights.TopCategories[j].Category
	})
	if len(insights.TopCategories) > 10 {
		insights.TopCategories = insights.TopCategories[:10]
	}

	insights.Recommendations = buildRecommendations(insights, len(results))

	return insights
}

func buildRecommendations(insights Insights, total int) []string {
	var recs []string

	if insights.LowConfidenceCount > 0 {
		recs = append(recs, fmt.Sprintf("Review %d low-confidence classifications before filing.", insights.LowConfidenceCount))
	}
	if insights.TaxDeductibleTotal > 0 {
		recs = append(recs, fmt.Sprintf("Potential tax deductions of %.2f identified; confirm business use percentages.", insights.TaxDeductibleTotal))
	}
	if insights.RecurringBillCount > 0 {
		recs = append(recs, fmt.Sprintf("%d recurring bills detected; consider setting up automated categorization rules.", insights.RecurringBillCount))
	}
	if total > 0 && insights.AverageConfidence < 0.7 {
		recs = append(recs, "Overall confidence is low; adding user profile context can improve results.")
	}

	return recs
}
