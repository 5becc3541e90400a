package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgermill/classiflow/internal/common"
)

func TestCleanMarkdownWrapper(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", `[{"a":1}]`, `[{"a":1}]`},
		{"json fence", "```json\n[{\"a\":1}]\n```", `[{"a":1}]`},
		{"bare fence", "```\n[{\"a\":1}]\n```", `[{"a":1}]`},
		{"surrounding whitespace", "  \n```json\n[1]\n```\n ", `[1]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanMarkdownWrapper(tt.input))
		})
	}
}

func TestParseBatchItems(t *testing.T) {
	content := "```json\n" + `[
		{"description": "NETFLIX", "category": "Entertainment", "confidence": 0.9},
		{"description": "AWS", "category": "Technology", "confidence": 1.5}
	]` + "\n```"

	items, err := parseBatchItems(content, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Entertainment", items[0].Category)
	// Out-of-range confidence is clamped.
	assert.Equal(t, 1.0, items[1].Confidence)
}

func TestParseBatchItemsToleratesLeadingProse(t *testing.T) {
	content := `Here are the classifications: [{"description": "X", "category": "C", "confidence": 0.8}]`

	items, err := parseBatchItems(content, 1)
	require.NoError(t, err)
	assert.Equal(t, "C", items[0].Category)
}

func TestParseBatchItemsCountMismatch(t *testing.T) {
	_, err := parseBatchItems(`[{"description": "X", "category": "C"}]`, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrMalformedResponse))
}

func TestParseBatchItemsMalformed(t *testing.T) {
	_, err := parseBatchItems("not json at all", 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrMalformedResponse))
}

func TestParseBatchItemsEmptyCategoryDefaults(t *testing.T) {
	items, err := parseBatchItems(`[{"description": "X", "confidence": 0.5}]`, 1)
	require.NoError(t, err)
	assert.Equal(t, "Uncategorized", items[0].Category)
}
