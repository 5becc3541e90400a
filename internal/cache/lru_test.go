package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgermill/classiflow/internal/model"
)

func TestGetPut(t *testing.T) {
	c := NewResultCache(10, 0)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Put("key", model.ClassificationResult{Category: "Groceries"})
	result, ok := c.Get("key")
	require.True(t, ok)
	assert.Equal(t, "Groceries", result.Category)
}

func TestEvictionBound(t *testing.T) {
	c := NewResultCache(3, 0)

	for i := 0; i < 5; i++ {
		c.Put(fmt.Sprintf("key-%d", i), model.ClassificationResult{Category: "C"})
	}

	assert.Equal(t, 3, c.Stats().Size)

	// Oldest entries were evicted.
	_, ok := c.Get("key-0")
	assert.False(t, ok)
	_, ok = c.Get("key-1")
	assert.False(t, ok)
	_, ok = c.Get("key-4")
	assert.True(t, ok)
}

func TestRecentlyUsedSurvivesEviction(t *testing.T) {
	c := NewResultCache(2, 0)

	c.Put("a", model.ClassificationResult{})
	c.Put("b", model.ClassificationResult{})
	_, _ = c.Get("a") // refresh a
	c.Put("c", model.ClassificationResult{})

	_, ok := c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestStatsCountersAreReal(t *testing.T) {
	c := NewResultCache(10, 0)
	c.Put("hit", model.ClassificationResult{})

	_, _ = c.Get("hit")
	_, _ = c.Get("hit")
	_, _ = c.Get("miss")

	stats := c.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 2.0/3.0, stats.HitRate, 0.001)
}

func TestExpiredEntryIsAMiss(t *testing.T) {
	c := NewResultCache(10, time.Nanosecond)
	c.Put("key", model.ClassificationResult{})

	time.Sleep(time.Millisecond)

	_, ok := c.Get("key")
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Stats().Misses)
}

func TestClear(t *testing.T) {
	c := NewResultCache(10, 0)
	c.Put("key", model.ClassificationResult{})
	c.Clear()
	assert.Equal(t, 0, c.Stats().Size)
}
