package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bkyoung/review-gateway/internal/adapter/platform/httpx"
	"github.com/bkyoung/review-gateway/internal/domain"
)

const (
	defaultBaseURL = "https://api.openai.com"
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 60 * time.Second

	systemPrompt = "You are an automated code review assistant. Be concise and concrete."
)

// provider tags errors from the AI backend. Any OpenAI-compatible server
// reached through BaseURL reports under this tag.
const provider = domain.Platform("openai")

// Config carries the settings for the AI generation backend.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string // optional, for compatible servers or tests
	Timeout time.Duration
	Retry   httpx.RetryConfig
}

// Client talks to an OpenAI-compatible chat-completions endpoint. Unlike
// the platform connectors, generation calls retry by default; they are
// idempotent and the upstream is the flakiest dependency in the system.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	retryConf  httpx.RetryConfig
}

// New builds a generation client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ai: api key is required")
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	retry := cfg.Retry
	if retry == (httpx.RetryConfig{}) {
		retry = httpx.DefaultRetryConfig()
	}
	return &Client{
		apiKey:     cfg.APIKey,
		model:      model,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		retryConf:  retry,
	}, nil
}

// Request is one generation call.
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Response is the generated text plus usage accounting.
type Response struct {
	Content      string
	Model        string
	TokensIn     int
	TokensOut    int
	FinishReason string
}

// Generate sends the prompt and returns the first choice.
func (c *Client) Generate(ctx context.Context, req Request) (Response, error) {
	body := ChatCompletionRequest{
		Model: c.model,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: req.Prompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("ai: marshaling request: %w", err)
	}

	var out Response
	operation := func(ctx context.Context) error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
		if err != nil {
			return &httpx.Error{Type: httpx.ErrTypeUnknown, Platform: provider, Message: err.Error()}
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return httpx.NewTimeoutError(provider, err.Error())
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return &httpx.Error{
				Type:       httpx.ErrTypeUnknown,
				Platform:   provider,
				Message:    fmt.Sprintf("reading response: %v", err),
				StatusCode: resp.StatusCode,
				Retryable:  resp.StatusCode >= 500,
			}
		}
		if resp.StatusCode != http.StatusOK {
			return httpx.MapStatus(provider, resp.StatusCode, parseErrorMessage(resp.StatusCode, data))
		}

		var chat ChatCompletionResponse
		if err := json.Unmarshal(data, &chat); err != nil {
			return &httpx.Error{Type: httpx.ErrTypeContract, Platform: provider, Message: fmt.Sprintf("parsing response: %v", err)}
		}
		if len(chat.Choices) == 0 {
			return &httpx.Error{Type: httpx.ErrTypeContract, Platform: provider, Message: "response has no choices"}
		}

		out = Response{
			Content:      chat.Choices[0].Message.Content,
			Model:        chat.Model,
			TokensIn:     chat.Usage.PromptTokens,
			TokensOut:    chat.Usage.CompletionTokens,
			FinishReason: chat.Choices[0].FinishReason,
		}
		return nil
	}

	if err := httpx.RetryWithBackoff(ctx, operation, c.retryConf); err != nil {
		return Response{}, fmt.Errorf("ai: generation failed: %w", err)
	}
	return out, nil
}

func parseErrorMessage(statusCode int, body []byte) string {
	var envelope ErrorResponse
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	preview := httpx.TruncateForLogging(string(body))
	if preview == "" {
		return fmt.Sprintf("HTTP %d", statusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", statusCode, preview)
}
