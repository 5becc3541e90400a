package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgermill/classiflow/internal/common"
	"github.com/ledgermill/classiflow/internal/llm"
	"github.com/ledgermill/classiflow/internal/model"
)

func testTxn(id, description string, amount float64) model.Transaction {
	return model.Transaction{
		ID:          id,
		Description: description,
		Amount:      amount,
		Date:        time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Type:        model.TypeDebit,
	}
}

// unknownTxns produces transactions no seeded pattern can resolve.
func unknownTxns(n int) []model.Transaction {
	txns := make([]model.Transaction, 0, n)
	for i := 0; i < n; i++ {
		txns = append(txns, testTxn(fmt.Sprintf("u-%d", i), fmt.Sprintf("XQZV VENDOR %d", i), float64(10+i)))
	}
	return txns
}

func newTestEngine(client llm.Client) *Engine {
	return New(Config{
		Classifier: client,
		Retry:      common.RetryOptions{MaxAttempts: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond},
	})
}

func TestClassifyBatchTotality(t *testing.T) {
	mock := &llm.MockClient{}
	e := newTestEngine(mock)

	txns := append(unknownTxns(5),
		testTxn("p-1", "NETFLIX.COM", 15.99),
		testTxn("p-2", "Spotify premium", 11.99),
	)

	batch, err := e.ClassifyBatch(context.Background(), txns, Options{})
	require.NoError(t, err)
	require.Len(t, batch.Results, len(txns))

	seen := make(map[string]int)
	for _, r := range batch.Results {
		seen[r.TransactionID]++
	}
	for _, txn := range txns {
		assert.Equal(t, 1, seen[txn.ID], "transaction %s must appear exactly once", txn.ID)
	}
}

func TestClassifyBatchCacheIdempotence(t *testing.T) {
	mock := &llm.MockClient{}
	e := newTestEngine(mock)
	txns := unknownTxns(10)

	_, err := e.ClassifyBatch(context.Background(), txns, Options{})
	require.NoError(t, err)
	callsAfterFirst := mock.Calls()
	require.Greater(t, callsAfterFirst, 0)

	batch, err := e.ClassifyBatch(context.Background(), txns, Options{})
	require.NoError(t, err)

	assert.Equal(t, callsAfterFirst, mock.Calls(), "second run must not call the classifier")
	assert.Equal(t, len(txns), batch.Costs.CacheHits)
	assert.Equal(t, 0, batch.Costs.AIClassified)
}

func TestClassifyBatchSingleCallForSmallRemainder(t *testing.T) {
	mock := &llm.MockClient{}
	e := newTestEngine(mock)

	// 80 pattern-resolvable, 20 unknown, batch size 50: the remainder fits
	// in one chunk.
	var txns []model.Transaction
	for i := 0; i < 80; i++ {
		txns = append(txns, testTxn(fmt.Sprintf("n-%d", i), fmt.Sprintf("NETFLIX.COM %d", i), 15.99))
	}
	txns = append(txns, unknownTxns(20)...)

	batch, err := e.ClassifyBatch(context.Background(), txns, Options{BatchSize: 50})
	require.NoError(t, err)

	assert.Equal(t, 1, mock.Calls())
	assert.Equal(t, 1, batch.Costs.AICallsMade)
	assert.Equal(t, 80, batch.Costs.ReferenceResolved+batch.Costs.CacheHits)
	assert.Equal(t, 20, batch.Costs.AIClassified)
	assert.Equal(t, 80, batch.Costs.EfficiencyRating)
}

func TestClassifyBatchCostAccounting(t *testing.T) {
	mock := &llm.MockClient{}
	e := newTestEngine(mock)
	txns := unknownTxns(40)

	batch, err := e.ClassifyBatch(context.Background(), txns, Options{BatchSize: 10})
	require.NoError(t, err)

	assert.Equal(t, 4, batch.Costs.AICallsMade)
	assert.InDelta(t, 40*0.025, batch.Costs.EstimatedCost, 0.001)
	assert.InDelta(t, 40*0.045-40*0.025, batch.Costs.EstimatedSavings, 0.001)
	assert.Equal(t, 0, batch.Costs.EfficiencyRating)
}

func TestClassifyBatchChunkFailureFallsBack(t *testing.T) {
	mock := &llm.MockClient{
		ClassifyFn: func(_ context.Context, _ llm.BatchRequest) (llm.BatchResponse, error) {
			return llm.BatchResponse{}, errors.New("boom")
		},
	}
	e := newTestEngine(mock)
	txns := unknownTxns(7)

	batch, err := e.ClassifyBatch(context.Background(), txns, Options{BatchSize: 3})
	require.NoError(t, err)
	require.Len(t, batch.Results, 7)

	for _, r := range batch.Results {
		assert.Equal(t, model.SourceFallback, r.Source)
		assert.GreaterOrEqual(t, r.Confidence, 0.5)
		assert.LessOrEqual(t, r.Confidence, 0.7)
	}
	assert.Equal(t, 0, batch.Costs.AICallsMade)
	assert.Equal(t, 7, batch.Costs.FallbackResults)
}

func TestClassifyBatchNilClassifierUsesFallbacks(t *testing.T) {
	e := newTestEngine(nil)
	txns := unknownTxns(3)

	batch, err := e.ClassifyBatch(context.Background(), txns, Options{})
	require.NoError(t, err)
	require.Len(t, batch.Results, 3)
	for _, r := range batch.Results {
		assert.Equal(t, model.SourceFallback, r.Source)
	}
}

func TestCategorizationModeBypassesPatterns(t *testing.T) {
	var gotCategories []string
	var gotCount int
	mock := &llm.MockClient{
		ClassifyFn: func(_ context.Context, req llm.BatchRequest) (llm.BatchResponse, error) {
			gotCategories = req.AllowedCategories
			gotCount += len(req.Transactions)
			items := make([]llm.ItemResponse, len(req.Transactions))
			for i, txn := range req.Transactions {
				items[i] = llm.ItemResponse{Description: txn.Description, Category: "Fixed", Confidence: 0.9}
			}
			return llm.BatchResponse{Items: items}, nil
		},
	}
	e := newTestEngine(mock)

	// These would normally resolve from patterns.
	txns := []model.Transaction{
		testTxn("n-1", "NETFLIX.COM", 15.99),
		testTxn("n-2", "Spotify premium", 11.99),
	}

	batch, err := e.ClassifyBatch(context.Background(), txns, Options{
		CategorizationMode: true,
		SelectedCategories: []string{"Fixed", "Other"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, gotCount, "patterns must be bypassed in categorization mode")
	assert.Equal(t, []string{"Fixed", "Other"}, gotCategories)
	assert.Equal(t, 0, batch.Costs.ReferenceResolved)

	// Categorization results must not pollute the fingerprint cache.
	assert.Equal(t, 0, e.CacheStats().Size)
}

func TestClassifyBatchBillDetection(t *testing.T) {
	mock := &llm.MockClient{}
	e := newTestEngine(mock)

	base := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	txns := []model.Transaction{
		{ID: "n-1", Description: "NETFLIX COM", Amount: 15.99, Date: base, Type: model.TypeDebit},
		{ID: "n-2", Description: "NETFLIX COM", Amount: 15.99, Date: base.AddDate(0, 0, 30), Type: model.TypeDebit},
		{ID: "n-3", Description: "NETFLIX COM", Amount: 15.99, Date: base.AddDate(0, 0, 60), Type: model.TypeDebit},
	}

	batch, err := e.ClassifyBatch(context.Background(), txns, Options{EnableBillDetection: true})
	require.NoError(t, err)

	require.Len(t, batch.RecurringBills, 1)
	c := batch.RecurringBills[0]
	assert.Equal(t, model.FrequencyMonthly, c.Frequency)
	// The candidate carries the category the run classified the group as.
	assert.Equal(t, "Entertainment", c.Category)

	// Detection stays off by default.
	batch, err = e.ClassifyBatch(context.Background(), txns, Options{})
	require.NoError(t, err)
	assert.Empty(t, batch.RecurringBills)
}

func TestClassifySingleTierOrder(t *testing.T) {
	mock := &llm.MockClient{}
	e := newTestEngine(mock)

	// Pattern hit, no classifier call.
	result := e.ClassifySingle(context.Background(), testTxn("s-1", "NETFLIX.COM", 15.99), Options{})
	assert.Equal(t, model.SourceReference, result.Source)
	assert.Equal(t, "s-1", result.TransactionID)
	assert.Equal(t, 0, mock.Calls())

	// Unknown merchant goes to the classifier.
	result = e.ClassifySingle(context.Background(), testTxn("s-2", "XQZV VENDOR", 10), Options{})
	assert.Equal(t, model.SourceAI, result.Source)
	assert.Equal(t, 1, mock.Calls())

	// Second identical lookup is served from the cache.
	result = e.ClassifySingle(context.Background(), testTxn("s-3", "XQZV VENDOR", 10), Options{})
	assert.Equal(t, model.SourceAI, result.Source)
	assert.Equal(t, "s-3", result.TransactionID)
	assert.Equal(t, 1, mock.Calls())
}

func TestLowConfidencePatternGoesToClassifier(t *testing.T) {
	mock := &llm.MockClient{}
	e := newTestEngine(mock)

	// Officeworks is seeded at 0.85; a higher threshold forces the AI path.
	batch, err := e.ClassifyBatch(context.Background(),
		[]model.Transaction{testTxn("o-1", "OFFICEWORKS 123", 45)},
		Options{ConfidenceThreshold: 0.9})
	require.NoError(t, err)

	assert.Equal(t, 1, mock.Calls())
	assert.Equal(t, model.SourceAI, batch.Results[0].Source)
}

func TestLimiterBoundsConcurrentClassifierCalls(t *testing.T) {
	var mu sync.Mutex
	inFlight, peak := 0, 0

	mock := &llm.MockClient{
		ClassifyFn: func(_ context.Context, req llm.BatchRequest) (llm.BatchResponse, error) {
			mu.Lock()
			inFlight++
			if inFlight > peak {
				peak = inFlight
			}
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			inFlight--
			mu.Unlock()

			items := make([]llm.ItemResponse, len(req.Transactions))
			for i, txn := range req.Transactions {
				items[i] = llm.ItemResponse{Description: txn.Description, Category: "C", Confidence: 0.9}
			}
			return llm.BatchResponse{Items: items}, nil
		},
	}

	e := New(Config{
		Classifier:    mock,
		MaxConcurrent: 2,
		Retry:         common.RetryOptions{MaxAttempts: 1, InitialDelay: time.Millisecond},
	})

	// Two callers at once, small chunks: plenty of chances to exceed the cap.
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.ClassifyBatch(context.Background(), unknownTxns(12), Options{BatchSize: 2, MaxConcurrentBatches: 6})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak, 2, "in-flight classifier calls must respect the engine limiter")
	assert.Greater(t, mock.Calls(), 0)
}

func TestRecordFeedbackUpdatesCacheAndStore(t *testing.T) {
	mock := &llm.MockClient{}
	e := newTestEngine(mock)
	txn := testTxn("f-1", "Udemy course", 19.99)

	e.RecordFeedback(txn, model.Correction{Category: "Education"}, model.ClassificationResult{})

	result := e.ClassifySingle(context.Background(), txn, Options{})
	assert.Equal(t, "Education", result.Category)
	assert.Equal(t, model.SourceLearned, result.Source)
	assert.Equal(t, 0, mock.Calls())

	assert.Equal(t, 1, e.CoverageStats().LearnedPatterns)
}

func TestInsights(t *testing.T) {
	mock := &llm.MockClient{
		ClassifyFn: func(_ context.Context, req llm.BatchRequest) (llm.BatchResponse, error) {
			items := make([]llm.ItemResponse, len(req.Transactions))
			for i, txn := range req.Transactions {
				items[i] = llm.ItemResponse{
					Description:           txn.Description,
					Category:              "Consulting",
					Confidence:            0.9,
					IsTaxDeductible:       true,
					BusinessUsePercentage: 100,
				}
			}
			return llm.BatchResponse{Items: items}, nil
		},
	}
	e := newTestEngine(mock)

	txns := []model.Transaction{
		testTxn("i-1", "XQZV CONSULTING", 1000),
		testTxn("i-2", "XQZV CONSULTING RETAINER", 20000),
	}

	batch, err := e.ClassifyBatch(context.Background(), txns, Options{})
	require.NoError(t, err)

	assert.InDelta(t, 21000, batch.Insights.TaxDeductibleTotal, 0.001)
	require.NotEmpty(t, batch.Insights.TopCategories)
	assert.Equal(t, "Consulting", batch.Insights.TopCategories[0].Category)

	// The 20000 transaction is an amount outlier.
	require.Len(t, batch.Insights.Outliers, 1)
	assert.Equal(t, "i-2", batch.Insights.Outliers[0].TransactionID)
	assert.NotEmpty(t, batch.Insights.Recommendations)
}
