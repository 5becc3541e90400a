package engine

import (
	"math"
	"sort"

	"github.com/ledgermill/classiflow/internal/model"
)

const (
	// minRecurringConfidence discards noisy candidates.
	minRecurringConfidence = 0.5
	// maxIntervalSpread gates recurrence: the interval standard deviation
	// must stay under this fraction of the mean interval.
	maxIntervalSpread = 0.3
)

// DetectRecurringBills groups transactions by merchant signature and scores
// each group's cadence regularity. Groups with fewer than two transactions
// cannot establish an interval and are skipped. Results, when provided, supply
// the category of each candidate; a nil slice leaves Category empty.
func DetectRecurringBills(txns []model.Transaction, results []model.ClassificationResult) []model.RecurringBillCandidate {
	categories := make(map[string]string, len(results))
	for _, r := range results {
		categories[r.TransactionID] = r.Category
	}

	groups := make(map[string][]model.Transaction)
	for _, txn := range txns {
		sig := txn.MerchantSignature()
		if sig == "" {
			continue
		}
		groups[sig] = append(groups[sig], txn)
	}

	var candidates []model.RecurringBillCandidate
	for sig, group := range groups {
		if len(group) < 2 {
			continue
		}

		sort.Slice(group, func(i, j int) bool {
			return group[i].Date.Before(group[j].Date)
		})

		intervals := make([]float64, 0, len(group)-1)
		for i := 1; i < len(group); i++ {
			intervals = append(intervals, group[i].Date.Sub(group[i-1].Date).Hours()/24)
		}

		var amountSum float64
		ids := make([]string, 0, len(group))
		for _, txn := range group {
			amountSum += txn.Amount
			ids = append(ids, txn.ID)
		}
		meanAmount := amountSum / float64(len(group))
		meanInterval := mean(intervals)
		if meanAmount == 0 || meanInterval == 0 {
			continue
		}

		intervalVariance := variance(intervals, meanInterval)
		if math.Sqrt(intervalVariance) >= maxIntervalSpread*meanInterval {
			continue
		}

		amountVariance := variance(amounts(group), meanAmount)

		confidence := 1 - (amountVariance/meanAmount+intervalVariance/meanInterval)/2
		if confidence < 0 {
			confidence = 0
		}
		if confidence < minRecurringConfidence {
			continue
		}

		candidates = append(candidates, model.RecurringBillCandidate{
			MerchantSignature: sig,
			Category:          categories[group[0].ID],
			Frequency:         frequencyForInterval(meanInterval),
			TransactionIDs:    ids,
			AverageAmount:     meanAmount,
			Confidence:        confidence,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].MerchantSignature < candidates[j].MerchantSignature
	})

	return candidates
}

// frequencyForInterval maps a mean interval in days to a billing frequency.
func frequencyForInterval(days float64) model.BillFrequency {
	switch {
	case days <= 10:
		return model.FrequencyWeekly
	case days <= 35:
		return model.FrequencyMonthly
	case days <= 100:
		return model.FrequencyQuarterly
	default:
		return model.FrequencyYearly
	}
}

func amounts(txns []model.Transaction) []float64 {
	out := make([]float64, 0, len(txns))
	for _, txn := range txns {
		out = append(out, txn.Amount)
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// variance is the population variance around a precomputed mean.
func variance(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return sum / float64(len(values))
}
