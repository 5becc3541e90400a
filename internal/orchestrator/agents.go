// Package orchestrator coordinates multi-step classification workflows
// across specialized agents under a shared daily cost ceiling.
package orchestrator

import (
	"context"
	"fmt"
	"math"

	"github.com/ledgermill/classiflow/internal/engine"
	"github.com/ledgermill/classiflow/internal/model"
)

// AgentInput is the payload handed to an agent for one task.
type AgentInput struct {
	Profile      model.UserProfile
	Transactions []model.Transaction
	Categories   []string
	Options      engine.Options
	Upstream     map[string]any
}

// Agent executes one family of task types against the engine.
type Agent interface {
	Type() string
	TaskTypes() []string
	EstimateCost(taskType string, inputSize int) float64
	Execute(ctx context.Context, taskType string, input AgentInput) (map[string]any, error)
}

// scaledCost grows a base per-task cost logarithmically with input size, so
// a 500-transaction task costs more than a 5-transaction one but not 100x.
func scaledCost(base float64, inputSize int) float64 {
	if inputSize < 1 {
		inputSize = 1
	}
	return base * (1 + math.Log10(float64(inputSize)))
}

// classificationAgent handles transaction nature and bill detection.
type classificationAgent struct {
	engine *engine.Engine
}

func (a *classificationAgent) Type() string { return "classification" }

func (a *classificationAgent) TaskTypes() []string {
	return []string{"classifyTransactions", "detectRecurringBills"}
}

func (a *classificationAgent) EstimateCost(_ string, inputSize int) float64 {
	return scaledCost(0.03, inputSize)
}

func (a *classificationAgent) Execute(ctx context.Context, taskType string, input AgentInput) (map[string]any, error) {
	switch taskType {
	case "classifyTransactions":
		opts := input.Options
		opts.Profile = input.Profile
		batch, err := a.engine.ClassifyBatch(ctx, input.Transactions, opts)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"results":  batch.Results,
			"insights": batch.Insights,
			"costs":    batch.Costs,
		}, nil

	case "detectRecurringBills":
		results, _ := upstreamResults(input.Upstream, "results")
		candidates := engine.DetectRecurringBills(input.Transactions, results)
		return map[string]any{
			"recurringBills": candidates,
			"count":          len(candidates),
		}, nil

	default:
		return nil, fmt.Errorf("classification agent: unknown task type %q", taskType)
	}
}

// categoryAgent suggests and optimizes category vocabularies.
type categoryAgent struct {
	engine *engine.Engine
}

func (a *categoryAgent) Type() string { return "category" }

func (a *categoryAgent) TaskTypes() []string {
	return []string{"suggestCategories", "categorizeWithVocabulary"}
}

func (a *categoryAgent) EstimateCost(_ string, inputSize int) float64 {
	return scaledCost(0.05, inputSize)
}

func (a *categoryAgent) Execute(ctx context.Context, taskType string, input AgentInput) (map[string]any, error) {
	switch taskType {
	case "suggestCategories":
		// Open-vocabulary categorization pass; distinct categories in the
		// output become the suggested vocabulary.
		opts := input.Options
		opts.Profile = input.Profile
		opts.CategorizationMode = true
		opts.SelectedCategories = nil
		batch, err := a.engine.ClassifyBatch(ctx, input.Transactions, opts)
		if err != nil {
			return nil, err
		}

		seen := make(map[string]bool)
		var categories []string
		for _, r := range batch.Results {
			if !seen[r.Category] {
				seen[r.Category] = true
				categories = append(categories, r.Category)
			}
		}
		return map[string]any{
			"suggestedCategories": categories,
			"results":             batch.Results,
		}, nil

	case "categorizeWithVocabulary":
		opts := input.Options
		opts.Profile = input.Profile
		opts.CategorizationMode = true
		opts.SelectedCategories = input.Categories
		if len(opts.SelectedCategories) == 0 {
			if cats, ok := upstreamStrings(input.Upstream, "suggestedCategories"); ok {
				opts.SelectedCategories = cats
			}
		}
		batch, err := a.engine.ClassifyBatch(ctx, input.Transactions, opts)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"results": batch.Results,
			"costs":   batch.Costs,
		}, nil

	default:
		return nil, fmt.Errorf("category agent: unknown task type %q", taskType)
	}
}

// taxAgent aggregates deduction potential from classification results.
type taxAgent struct {
	engine *engine.Engine
}

func (a *taxAgent) Type() string { return "tax" }

func (a *taxAgent) TaskTypes() []string {
	return []string{"analyzeTaxDeductions"}
}

func (a *taxAgent) EstimateCost(_ string, inputSize int) float64 {
	return scaledCost(0.08, inputSize)
}

func (a *taxAgent) Execute(ctx context.Context, taskType string, input AgentInput) (map[string]any, error) {
	if taskType != "analyzeTaxDeductions" {
		return nil, fmt.Errorf("tax agent: unknown task type %q", taskType)
	}

	results, ok := upstreamResults(input.Upstream, "results")
	if !ok {
		opts := input.Options
		opts.Profile = input.Profile
		batch, err := a.engine.ClassifyBatch(ctx, input.Transactions, opts)
		if err != nil {
			return nil, err
		}
		results = batch.Results
	}

	amounts := make(map[string]float64, len(input.Transactions))
	for _, txn := range input.Transactions {
		amounts[txn.ID] = txn.Amount
	}

	var deductibleTotal float64
	var deductible []model.ClassificationResult
	for _, r := range results {
		if r.IsTaxDeductible {
			deductibleTotal += amounts[r.TransactionID] * r.BusinessUsePercentage / 100
			deductible = append(deductible, r)
		}
	}

	return map[string]any{
		"deductibleTotal":        deductibleTotal,
		"deductibleTransactions": deductible,
		"deductibleCount":        len(deductible),
	}, nil
}

// upstreamResults digs classification results out of a prior step's output.
func upstreamResults(upstream map[string]any, key string) ([]model.ClassificationResult, bool) {
	for _, stepOutput := range upstream {
		m, ok := stepOutput.(map[string]any)
		if !ok {
			continue
		}
		if results, ok := m[key].([]model.ClassificationResult); ok {
			return results, true
		}
	}
	return nil, false
}

func upstreamStrings(upstream map[string]any, key string) ([]string, bool) {
	for _, stepOutput := range upstream {
		m, ok := stepOutput.(map[string]any)
		if !ok {
			continue
		}
		if values, ok := m[key].([]string); ok {
			return values, true
		}
	}
	return nil, false
}
