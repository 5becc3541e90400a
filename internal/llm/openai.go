package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ledgermill/classiflow/internal/common"
)

// openaiClient implements the Client interface for the OpenAI API.
type openaiClient struct {
	httpClient  *http.Client
	limiter     *rateLimiter
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
}

// newOpenAIClient creates a new OpenAI API client.
func newOpenAIClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required: %w", common.ErrMissingConfig)
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	return &openaiClient{
		apiKey:      cfg.APIKey,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		limiter:     newRateLimiter(cfg.RequestsPerMinute),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

type openaiResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// ClassifyBatch sends one chunk of transactions to OpenAI.
func (c *openaiClient) ClassifyBatch(ctx context.Context, req BatchRequest) (BatchResponse, error) {
	if err := c.limiter.wait(ctx); err != nil {
		return BatchResponse{}, err
	}

	requestBody := map[string]any{
		"model":       c.model,
		"max_tokens":  c.maxTokens,
		"temperature": c.temperature,
		"messages": []map[string]string{
			{
				"role":    "system",
				"content": "You are a financial transaction classifier. Respond only with the JSON array in the exact format requested.",
			},
			{
				"role":    "user",
				"content": buildBatchPrompt(req),
			},
		},
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return BatchResponse{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.openai.com/v1/chat/completions", strings.NewReader(string(jsonBody)))
	if err != nil {
		return BatchResponse{}, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return BatchResponse{}, common.WrapRetryable(fmt.Errorf("request failed: %w", err), true)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return BatchResponse{}, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return BatchResponse{}, fmt.Errorf("openai: %w", common.ErrRateLimit)
	case resp.StatusCode >= 500:
		return BatchResponse{}, common.WrapRetryable(fmt.Errorf("openai API error (status %d): %s", resp.StatusCode, string(body)), true)
	case resp.StatusCode != http.StatusOK:
		return BatchResponse{}, fmt.Errorf("openai API error (status %d): %s", resp.StatusCode, string(body))
	}

	var response openaiResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return BatchResponse{}, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(response.Choices) == 0 {
		return BatchResponse{}, fmt.Errorf("%w: no choices in response", common.ErrMalformedResponse)
	}

	items, err := parseBatchItems(response.Choices[0].Message.Content, len(req.Transactions))
	if err != nil {
		return BatchResponse{}, err
	}

	return BatchResponse{
		Items:        items,
		Model:        response.Model,
		InputTokens:  response.Usage.PromptTokens,
		OutputTokens: response.Usage.CompletionTokens,
	}, nil
}
