// Package engine implements the batch classification pipeline. It resolves
// as many transactions as possible from the pattern store and the result
// cache, and sends only the remainder to the external classifier in chunked
// concurrent batches.
package engine

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ledgermill/classiflow/internal/cache"
	"github.com/ledgermill/classiflow/internal/common"
	"github.com/ledgermill/classiflow/internal/llm"
	"github.com/ledgermill/classiflow/internal/model"
	"github.com/ledgermill/classiflow/internal/reference"
)

// Per-transaction cost assumptions for the cost breakdown. Batched calls
// amortize prompt overhead across the chunk.
const (
	batchedCostPerTxn    = 0.025
	individualCostPerTxn = 0.045
)

// Options controls one classification run.
type Options struct {
	Profile              model.UserProfile
	SelectedCategories   []string
	BatchSize            int
	MaxConcurrentBatches int
	ConfidenceThreshold  float64
	CategorizationMode   bool
	EnableBillDetection  bool
}

// withDefaults fills unset options.
func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 50
	}
	if o.MaxConcurrentBatches <= 0 {
		o.MaxConcurrentBatches = 3
	}
	if o.ConfidenceThreshold <= 0 {
		o.ConfidenceThreshold = 0.8
	}
	return o
}

// CostBreakdown accounts for what a run cost and what the reference layer saved.
type CostBreakdown struct {
	TotalTransactions int     `json:"totalTransactions"`
	ReferenceResolved int     `json:"referenceResolved"`
	CacheHits         int     `json:"cacheHits"`
	AIClassified      int     `json:"aiClassified"`
	FallbackResults   int     `json:"fallbackResults"`
	AICallsMade       int     `json:"aiCallsMade"`
	EstimatedCost     float64 `json:"estimatedCost"`
	EstimatedSavings  float64 `json:"estimatedSavings"`
	EfficiencyRating  int     `json:"efficiencyRating"`
}

// BatchResult is the public outcome of a batch run. Every input transaction
// id appears exactly once in Results.
type BatchResult struct {
	Results          []model.ClassificationResult   `json:"results"`
	RecurringBills   []model.RecurringBillCandidate `json:"recurringBills,omitempty"`
	Insights         Insights                       `json:"insights"`
	Costs            CostBreakdown                  `json:"costs"`
	ProcessingTimeMs int64                          `json:"processingTimeMs"`
}

// Engine coordinates the pattern store, the cache, and the external
// classifier. A nil classifier degrades every external call to fallback
// results instead of failing the run.
type Engine struct {
	store      *reference.Store
	cache      *cache.ResultCache
	classifier llm.Client
	limiter    chan struct{}
	logger     *slog.Logger
	retryOpts  common.RetryOptions
}

// Config wires an Engine.
type Config struct {
	Store         *reference.Store
	Cache         *cache.ResultCache
	Classifier    llm.Client
	Logger        *slog.Logger
	Retry         common.RetryOptions
	MaxConcurrent int
}

// New creates an Engine. The concurrency limiter created here is shared
// with any orchestrator routed through this engine.
func New(cfg Config) *Engine {
	if cfg.Store == nil {
		cfg.Store = reference.NewStore()
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.NewResultCache(0, 0)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 3
	}

	return &Engine{
		store:      cfg.Store,
		cache:      cfg.Cache,
		classifier: cfg.Classifier,
		logger:     cfg.Logger,
		retryOpts:  cfg.Retry,
		limiter:    make(chan struct{}, cfg.MaxConcurrent),
	}
}

// Store exposes the engine's pattern store for snapshot and feedback flows.
func (e *Engine) Store() *reference.Store {
	return e.store
}

// ClassifySingle classifies one transaction through the full tier order:
// cache, pattern store, external classifier, fallback.
func (e *Engine) ClassifySingle(ctx context.Context, txn model.Transaction, opts Options) model.ClassificationResult {
	opts = opts.withDefaults()

	fingerprint := txn.Fingerprint()
	if result, ok := e.cache.Get(fingerprint); ok {
		result.TransactionID = txn.ID
		return result
	}

	if result, ok := e.store.Lookup(txn.Description, txn.Amount, txn.Merchant); ok && result.Confidence >= opts.ConfidenceThreshold {
		result.TransactionID = txn.ID
		e.cache.Put(fingerprint, result)
		return result
	}

	results := e.classifyChunk(ctx, []model.Transaction{txn}, opts)
	return results[0]
}

// ClassifyBatch runs the full pipeline over a set of transactions.
func (e *Engine) ClassifyBatch(ctx context.Context, txns []model.Transaction, opts Options) (BatchResult, error) {
	opts = opts.withDefaults()
	start := time.Now()

	e.logger.Info("batch classification started",
		"transactions", len(txns),
		"batch_size", opts.BatchSize,
		"max_concurrent", opts.MaxConcurrentBatches,
		"categorization_mode", opts.CategorizationMode,
	)

	var (
		resolved []model.ClassificationResult
		aiQueue  []model.Transaction
		costs    = CostBreakdown{TotalTransactions: len(txns)}
	)

	if opts.CategorizationMode {
		// Categorization mode skips patterns and cache so every transaction
		// is measured against the selected vocabulary.
		aiQueue = txns
	} else {
		for _, txn := range txns {
			fingerprint := txn.Fingerprint()

			if result, ok := e.cache.Get(fingerprint); ok {
				result.TransactionID = txn.ID
				resolved = append(resolved, result)
				costs.CacheHits++
				continue
			}

			if result, ok := e.store.Lookup(txn.Description, txn.Amount, txn.Merchant); ok && result.Confidence >= opts.ConfidenceThreshold {
				result.TransactionID = txn.ID
				e.cache.Put(fingerprint, result)
				resolved = append(resolved, result)
				costs.ReferenceResolved++
				continue
			}

			aiQueue = append(aiQueue, txn)
		}
	}

	aiResults, callsMade := e.classifyQueue(ctx, aiQueue, opts)
	resolved = append(resolved, aiResults...)

	for _, r := range aiResults {
		switch r.Source {
		case model.SourceAI:
			costs.AIClassified++
		case model.SourceFallback:
			costs.FallbackResults++
		}
	}
	costs.AICallsMade = callsMade
	costs.EstimatedCost = float64(costs.AIClassified) * batchedCostPerTxn
	costs.EstimatedSavings = float64(costs.TotalTransactions)*individualCostPerTxn - costs.EstimatedCost
	if costs.TotalTransactions > 0 {
		refCount := costs.ReferenceResolved + costs.CacheHits
		costs.EfficiencyRating = int(math.Round(float64(refCount) / float64(costs.TotalTransactions) * 100))
	}

	result := BatchResult{
		Results:          resolved,
		Insights:         buildInsights(txns, resolved),
		Costs:            costs,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}
	if opts.EnableBillDetection {
		result.RecurringBills = DetectRecurringBills(txns, resolved)
	}

	e.logger.Info("batch classification finished",
		"transactions", len(txns),
		"reference_resolved", costs.ReferenceResolved,
		"cache_hits", costs.CacheHits,
		"ai_classified", costs.AIClassified,
		"fallbacks", costs.FallbackResults,
		"ai_calls", costs.AICallsMade,
		"duration_ms", result.ProcessingTimeMs,
	)

	return result, nil
}

// classifyQueue chunks the AI queue and dispatches chunks in waves bounded
// by MaxConcurrentBatches. Returns all results plus the number of external
// calls that succeeded.
func (e *Engine) classifyQueue(ctx context.Context, queue []model.Transaction, opts Options) ([]model.ClassificationResult, int) {
	if len(queue) == 0 {
		return nil, 0
	}

	chunks := chunkTransactions(queue, opts.BatchSize)

	var (
		mu      sync.Mutex
		results []model.ClassificationResult
		calls   int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.MaxConcurrentBatches)

	for _, chunk := range chunks {
		chunk := chunk
		g.Go(func() error {
			chunkResults, called := e.classifyChunkCounted(gctx, chunk, opts)

			mu.Lock()
			results = append(results, chunkResults...)
			if called {
				calls++
			}
			mu.Unlock()
			return nil
		})
	}

	// Goroutines only return nil; collect via the mutex-guarded slice.
	_ = g.Wait()

	return results, calls
}

// classifyChunk classifies one chunk, falling back per transaction when the
// external call cannot succeed.
func (e *Engine) classifyChunk(ctx context.Context, chunk []model.Transaction, opts Options) []model.ClassificationResult {
	results, _ := e.classifyChunkCounted(ctx, chunk, opts)
	return results
}

func (e *Engine) classifyChunkCounted(ctx context.Context, chunk []model.Transaction, opts Options) ([]model.ClassificationResult, bool) {
	if e.classifier == nil {
		return e.fallbackChunk(chunk, common.ErrClassifierUnavailable), false
	}

	select {
	case e.limiter <- struct{}{}:
		defer func() { <-e.limiter }()
	case <-ctx.Done():
		return e.fallbackChunk(chunk, ctx.Err()), false
	}

	req := llm.BatchRequest{
		Transactions:      chunk,
		Profile:           opts.Profile,
		AllowedCategories: opts.SelectedCategories,
	}

	var resp llm.BatchResponse
	err := common.WithRetry(ctx, func() error {
		var callErr error
		resp, callErr = e.classifier.ClassifyBatch(ctx, req)
		return callErr
	}, e.retryOpts)
	if err != nil {
		e.logger.Warn("chunk classification failed, using fallbacks",
			"chunk_size", len(chunk),
			"error", err,
		)
		return e.fallbackChunk(chunk, err), false
	}

	results := make([]model.ClassificationResult, 0, len(chunk))
	for i, item := range resp.Items {
		txn := chunk[i]
		result := model.ClassificationResult{
			TransactionID:         txn.ID,
			Category:              item.Category,
			Subcategory:           item.Subcategory,
			Confidence:            item.Confidence,
			IsTaxDeductible:       item.IsTaxDeductible,
			BusinessUsePercentage: item.BusinessUsePercentage,
			TaxCategory:           item.TaxCategory,
			Reasoning:             item.Reasoning,
			Source:                model.SourceAI,
			ProcessedAt:           time.Now(),
		}
		if item.IsNewCategory && item.NewCategoryName != "" {
			result.Category = item.NewCategoryName
		}

		if !opts.CategorizationMode {
			e.cache.Put(txn.Fingerprint(), result)
		}
		results = append(results, result)
	}

	return results, true
}

// fallbackChunk produces degraded results for every transaction in a chunk.
func (e *Engine) fallbackChunk(chunk []model.Transaction, cause error) []model.ClassificationResult {
	results := make([]model.ClassificationResult, 0, len(chunk))
	for _, txn := range chunk {
		results = append(results, fallbackResult(txn, cause))
	}
	return results
}

// RecordFeedback applies a user correction to the pattern store and
// replaces the cached result so repeat lookups return the corrected value.
func (e *Engine) RecordFeedback(txn model.Transaction, corr model.Correction, prior model.ClassificationResult) {
	e.store.RecordCorrection(txn.ID, txn.Description, txn.Amount, corr, prior)

	corrected := model.ClassificationResult{
		TransactionID:         txn.ID,
		Category:              corr.Category,
		Subcategory:           corr.Subcategory,
		Confidence:            1.0,
		IsTaxDeductible:       corr.IsTaxDeductible,
		BusinessUsePercentage: corr.BusinessUsePercentage,
		TaxCategory:           corr.TaxCategory,
		IsBill:                corr.IsRecurring,
		IsRecurring:           corr.IsRecurring,
		Reasoning:             "user correction",
		Source:                model.SourceLearned,
		ProcessedAt:           time.Now(),
	}
	e.cache.Put(txn.Fingerprint(), corrected)
}

// CacheStats reports cache size and real hit/miss counters.
func (e *Engine) CacheStats() cache.Stats {
	return e.cache.Stats()
}

// CoverageStats reports pattern store coverage.
func (e *Engine) CoverageStats() reference.CoverageStats {
	return e.store.Coverage()
}

// chunkTransactions splits txns into chunks of at most size.
func chunkTransactions(txns []model.Transaction, size int) [][]model.Transaction {
	if size <= 0 {
		return [][]model.Transaction{txns}
	}

	var chunks [][]model.Transaction
	for start := 0; start < len(txns); start += size {
		end := start + size
		if end > len(txns) {
			end = len(txns)
		}
		chunks = append(chunks, txns[start:end])
	}
	return chunks
}
