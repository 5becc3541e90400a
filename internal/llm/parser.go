package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ledgermill/classiflow/internal/common"
)

// cleanMarkdownWrapper strips a markdown code fence from model output.
// Models often wrap JSON in ```json ... ``` despite instructions.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		if idx := strings.Index(content, "\n"); idx != -1 {
			content = content[idx+1:]
		} else {
			content = strings.TrimPrefix(content, "```json")
			content = strings.TrimPrefix(content, "```")
		}
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}

	return strings.TrimSpace(content)
}

// parseBatchItems decodes a model response into per-transaction items.
// Any parse failure fails the whole chunk; the engine falls back per
// transaction rather than guessing at partial output.
func parseBatchItems(content string, want int) ([]ItemResponse, error) {
	cleaned := cleanMarkdownWrapper(content)

	// Tolerate leading prose before the array.
	if start := strings.Index(cleaned, "["); start > 0 {
		cleaned = cleaned[start:]
	}

	var items []ItemResponse
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedResponse, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: empty response array", common.ErrMalformedResponse)
	}
	if len(items) != want {
		return nil, fmt.Errorf("%w: got %d items, want %d", common.ErrMalformedResponse, len(items), want)
	}

	for i := range items {
		if items[i].Confidence < 0 {
			items[i].Confidence = 0
		}
		if items[i].Confidence > 1 {
			items[i].Confidence = 1
		}
		if items[i].Category == "" {
			items[i].Category = "Uncategorized"
		}
	}

	return items, nil
}
