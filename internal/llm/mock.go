package llm

import (
	"context"
	"sync"
)

// MockClient is a deterministic Client for tests. If ClassifyFn is nil it
// returns each transaction categorized as "Mock" with confidence 0.9.
type MockClient struct {
	ClassifyFn func(ctx context.Context, req BatchRequest) (BatchResponse, error)
	mu         sync.Mutex
	calls      int
}

// ClassifyBatch records the call and delegates to ClassifyFn.
func (m *MockClient) ClassifyBatch(ctx context.Context, req BatchRequest) (BatchResponse, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.ClassifyFn != nil {
		return m.ClassifyFn(ctx, req)
	}

	items := make([]ItemResponse, 0, len(req.Transactions))
	for _, txn := range req.Transactions {
		items = append(items, ItemResponse{
			Description: txn.Description,
			Category:    "Mock",
			Confidence:  0.9,
			Reasoning:   "mock classification",
		})
	}
	return BatchResponse{Items: items, Model: "mock"}, nil
}

// Calls reports how many times ClassifyBatch has been invoked.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
