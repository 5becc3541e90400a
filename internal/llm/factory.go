package llm

import (
	"fmt"
	"strings"
)

// NewClient creates an external classifier client based on the provided
// configuration. An empty provider means the caller runs without one and
// should use fallback results.
func NewClient(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return newOpenAIClient(cfg)
	case "anthropic":
		return newAnthropicClient(cfg)
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported classifier provider: %s", cfg.Provider)
	}
}
