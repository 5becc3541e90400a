package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgermill/classiflow/internal/model"
)

func recurringTxn(id, description string, amount float64, date time.Time) model.Transaction {
	return model.Transaction{ID: id, Description: description, Amount: amount, Date: date, Type: model.TypeDebit}
}

func TestDetectMonthlySubscription(t *testing.T) {
	base := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	txns := []model.Transaction{
		recurringTxn("n-1", "NETFLIX COM 001", 15.99, base),
		recurringTxn("n-2", "NETFLIX COM 002", 15.99, base.AddDate(0, 0, 30)),
		recurringTxn("n-3", "NETFLIX COM 003", 15.99, base.AddDate(0, 0, 62)),
	}

	candidates := DetectRecurringBills(txns, nil)
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, model.FrequencyMonthly, c.Frequency)
	assert.Greater(t, c.Confidence, 0.8)
	assert.InDelta(t, 15.99, c.AverageAmount, 0.001)
	assert.ElementsMatch(t, []string{"n-1", "n-2", "n-3"}, c.TransactionIDs)
}

func TestDetectFillsCategoryFromResults(t *testing.T) {
	base := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	txns := []model.Transaction{
		recurringTxn("n-1", "NETFLIX COM", 15.99, base),
		recurringTxn("n-2", "NETFLIX COM", 15.99, base.AddDate(0, 0, 30)),
	}
	results := []model.ClassificationResult{
		{TransactionID: "n-1", Category: "Entertainment"},
		{TransactionID: "n-2", Category: "Entertainment"},
	}

	candidates := DetectRecurringBills(txns, results)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Entertainment", candidates[0].Category)
}

func TestDetectIgnoresSingleOccurrence(t *testing.T) {
	txns := []model.Transaction{
		recurringTxn("x-1", "One-off purchase", 99, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)),
	}
	assert.Empty(t, DetectRecurringBills(txns, nil))
}

func TestDetectDiscardsIrregularGroups(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	// Wildly varying amounts and intervals should fail the confidence bar.
	txns := []model.Transaction{
		recurringTxn("r-1", "RANDOM SHOP", 10, base),
		recurringTxn("r-2", "RANDOM SHOP", 500, base.AddDate(0, 0, 2)),
		recurringTxn("r-3", "RANDOM SHOP", 3, base.AddDate(0, 0, 90)),
	}
	assert.Empty(t, DetectRecurringBills(txns, nil))
}

func TestDetectDiscardsVolatileAmountsOnRegularCadence(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	// Exact 30-day cadence, but the amount variance relative to the mean
	// (22.22/13.33) drives confidence to roughly 0.167, below the floor.
	txns := []model.Transaction{
		recurringTxn("v-1", "SPIKY VENDOR", 10, base),
		recurringTxn("v-2", "SPIKY VENDOR", 20, base.AddDate(0, 0, 30)),
		recurringTxn("v-3", "SPIKY VENDOR", 10, base.AddDate(0, 0, 60)),
	}
	assert.Empty(t, DetectRecurringBills(txns, nil))
}

func TestDetectGatesOnIntervalSpread(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	// Identical amounts, but intervals of 10 and 50 days: the interval
	// standard deviation (20) exceeds 0.3 of the mean interval (30).
	txns := []model.Transaction{
		recurringTxn("g-1", "DRIFTING VENDOR", 25, base),
		recurringTxn("g-2", "DRIFTING VENDOR", 25, base.AddDate(0, 0, 10)),
		recurringTxn("g-3", "DRIFTING VENDOR", 25, base.AddDate(0, 0, 60)),
	}
	assert.Empty(t, DetectRecurringBills(txns, nil))
}

func TestDetectFrequencyBands(t *testing.T) {
	tests := []struct {
		name     string
		days     int
		expected model.BillFrequency
	}{
		{"weekly", 7, model.FrequencyWeekly},
		{"monthly", 30, model.FrequencyMonthly},
		{"quarterly", 90, model.FrequencyQuarterly},
		{"yearly", 365, model.FrequencyYearly},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
			txns := []model.Transaction{
				recurringTxn("a", "ACME SERVICE", 20, base),
				recurringTxn("b", "ACME SERVICE", 20, base.AddDate(0, 0, tt.days)),
				recurringTxn("c", "ACME SERVICE", 20, base.AddDate(0, 0, 2*tt.days)),
			}

			candidates := DetectRecurringBills(txns, nil)
			require.Len(t, candidates, 1)
			assert.Equal(t, tt.expected, candidates[0].Frequency)
		})
	}
}

func TestDetectSortsByConfidenceDescending(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	txns := []model.Transaction{
		// Perfectly regular.
		recurringTxn("a-1", "STEADY GYM", 50, base),
		recurringTxn("a-2", "STEADY GYM", 50, base.AddDate(0, 0, 30)),
		recurringTxn("a-3", "STEADY GYM", 50, base.AddDate(0, 0, 60)),
		// Slightly irregular but above the bar.
		recurringTxn("b-1", "WOBBLY ISP", 60, base),
		recurringTxn("b-2", "WOBBLY ISP", 70, base.AddDate(0, 0, 28)),
		recurringTxn("b-3", "WOBBLY ISP", 62, base.AddDate(0, 0, 61)),
	}

	candidates := DetectRecurringBills(txns, nil)
	require.Len(t, candidates, 2)
	assert.GreaterOrEqual(t, candidates[0].Confidence, candidates[1].Confidence)
	assert.Equal(t, "steady gym", candidates[0].MerchantSignature)
}

func TestMerchantSignatureStripsDigitsAndPunctuation(t *testing.T) {
	a := model.Transaction{Description: "NETFLIX COM 001"}
	b := model.Transaction{Description: "netflix com #002!"}
	assert.Equal(t, a.MerchantSignature(), b.MerchantSignature())
}
