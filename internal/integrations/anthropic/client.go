package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"airchat-bot/internal/domain"
	"airchat-bot/internal/llm"
	"airchat-bot/internal/models"
)

const (
	apiVersion = "2023-06-01"
	maxTokens  = 4096
)

// messagesRequest is the minimal request shape for the Messages endpoint.
// The system prompt goes in the dedicated top-level field.
type messagesRequest struct {
	Model     string               `json:"model"`
	MaxTokens int                  `json:"max_tokens"`
	System    string               `json:"system"`
	Messages  []domain.ChatMessage `json:"messages"`
}

// messagesResponse is the minimal response shape returned by the Messages
// endpoint. Only text content blocks are used.
type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Client is a focused Anthropic Messages API adapter. The API key is passed
// per call because every user brings their own.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates an Anthropic adapter with a 30s default timeout.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    "https://api.anthropic.com",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Chat sends the conversation to the Messages endpoint. Exactly one HTTP
// call, no retries.
func (c *Client) Chat(ctx context.Context, apiKey string, messages []domain.ChatMessage, modelID string) (string, error) {
	if apiKey == "" {
		return "", errors.New("anthropic: api key must not be empty")
	}
	if modelID == "" {
		return "", errors.New("anthropic: model must not be empty")
	}

	body, err := json.Marshal(messagesRequest{
		Model:     modelID,
		MaxTokens: maxTokens,
		System:    llm.SystemPrompt,
		Messages:  messages,
	})
	if err != nil {
		return "", fmt.Errorf("anthropic: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("anthropic: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("anthropic: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return "", statusError(res.StatusCode, string(buf))
	}

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("anthropic: read response body: %w", err)
	}

	var payload messagesResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("anthropic: decode response: %w", err)
	}

	var texts []string
	for _, block := range payload.Content {
		if block.Type == "text" {
			texts = append(texts, block.Text)
		}
	}
	if len(texts) == 0 {
		return "", &llm.Error{
			Kind:     llm.KindEmptyResponse,
			Provider: models.ProviderAnthropic,
			Message:  "No text response from Claude",
		}
	}
	return strings.Join(texts, "\n"), nil
}

// statusError maps Anthropic HTTP failures to human-actionable error kinds.
func statusError(status int, body string) *llm.Error {
	e := &llm.Error{Provider: models.ProviderAnthropic, StatusCode: status}
	switch status {
	case http.StatusUnauthorized:
		e.Kind = llm.KindInvalidCredential
		e.Message = "Invalid Anthropic API key. Please check your key with /config anthropic <key>"
	case http.StatusTooManyRequests:
		e.Kind = llm.KindRateLimited
		e.Message = "Rate limited by Anthropic. Please wait a moment and try again."
	case http.StatusBadRequest:
		e.Kind = llm.KindVendorError
		e.Message = "Invalid request to Anthropic API. Your message may be too long."
	default:
		e.Kind = llm.KindVendorError
		e.Message = fmt.Sprintf("Anthropic API error (%d): %s", status, llm.TruncateBody(body))
	}
	return e
}
