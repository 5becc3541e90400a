package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgermill/classiflow/internal/model"
	"github.com/ledgermill/classiflow/internal/reference"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newTestStorage(t)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	store := reference.NewStore()
	store.RecordCorrection("t-1", "Udemy course", 19.99, model.Correction{Category: "Education"}, model.ClassificationResult{})

	require.NoError(t, s.SaveSnapshot(ctx, store.Dump()))

	snap, err := s.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, snap.MerchantPatterns)
	require.NotEmpty(t, snap.CategorySignatures)

	restored := reference.NewStore()
	require.NoError(t, restored.Load(snap))

	conf, ok := restored.PatternConfidence("udemy")
	require.True(t, ok)
	assert.InDelta(t, 0.7, conf, 0.001)

	// Learned flags survive persistence.
	assert.Equal(t, 1, restored.Coverage().LearnedPatterns)
}

func TestSaveSnapshotReplacesPrevious(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	store := reference.NewStore()
	require.NoError(t, s.SaveSnapshot(ctx, store.Dump()))
	first, err := s.LoadSnapshot(ctx)
	require.NoError(t, err)

	require.NoError(t, s.SaveSnapshot(ctx, store.Dump()))
	second, err := s.LoadSnapshot(ctx)
	require.NoError(t, err)

	assert.Len(t, second.MerchantPatterns, len(first.MerchantPatterns))
}

func TestAppendLearningEvent(t *testing.T) {
	s := newTestStorage(t)

	err := s.AppendLearningEvent(context.Background(), model.LearningEvent{
		Timestamp:     time.Now(),
		TransactionID: "t-1",
		Description:   "Udemy course",
		Amount:        19.99,
		Correction:    model.Correction{Category: "Education"},
	})
	require.NoError(t, err)
}

func TestSaveResultsUpserts(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	results := []model.ClassificationResult{
		{TransactionID: "t-1", Category: "Groceries", Confidence: 0.9, Source: model.SourceReference, ProcessedAt: time.Now()},
		{TransactionID: "t-2", Category: "Transport", Confidence: 0.7, Source: model.SourceAI, ProcessedAt: time.Now()},
	}
	require.NoError(t, s.SaveResults(ctx, results))

	// Reclassifying t-1 replaces the stored row instead of failing.
	results[0].Category = "Food & Dining"
	require.NoError(t, s.SaveResults(ctx, results[:1]))

	counts, err := s.CountBySource(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["reference"])
	assert.Equal(t, 1, counts["ai"])
}
