package openai

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

const maxTokens = 4096

// chatRequest is the minimal request shape for the Chat Completions endpoint.
type chatRequest struct {
	Model     string               `json:"model"`
	Messages  []domain.ChatMessage `json:"messages"`
	MaxTokens int                  `json:"max_tokens"`
}

// chatResponse is the minimal response shape returned by the Chat Completions endpoint.
type chatResponse struct {
	Choices []struct {
		Message domain.ChatMessage `json:"message"`
	} `json:"choices"`
}

// Client is a focused OpenAI chat-completions adapter. The API key is passed
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

// NewClient creates an OpenAI adapter with a 30s default timeout.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    "https://api.openai.com/v1",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Chat sends the conversation to the Chat Completions endpoint with the fixed
// system prompt as a leading system-role message. Exactly one HTTP call, no
// retries.
func (c *Client) Chat(ctx context.Context, apiKey string, messages []domain.ChatMessage, modelID string) (string, error) {
	if apiKey == "" {
		return "", errors.New("openai: api key must not be empty")
	}
	if modelID == "" {
		return "", errors.New("openai: model must not be empty")
	}

	withSystem := make([]domain.ChatMessage, 0, len(messages)+1)
	withSystem = append(withSystem, domain.ChatMessage{Role: "system", Content: llm.SystemPrompt})
	withSystem = append(withSystem, messages...)

	body, err := json.Marshal(chatRequest{
		Model:     modelID,
		Messages:  withSystem,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("openai: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("openai: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return "", statusError(res.StatusCode, string(buf))
	}

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("openai: read response body: %w", err)
	}

	var payload chatResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("openai: decode response: %w", err)
	}
	if len(payload.Choices) == 0 || payload.Choices[0].Message.Content == "" {
		return "", &llm.Error{
			Kind:     llm.KindEmptyResponse,
			Provider: models.ProviderOpenAI,
			Message:  "No response from ChatGPT",
		}
	}
	return payload.Choices[0].Message.Content, nil
}

// statusError maps OpenAI HTTP failures to human-actionable error kinds.
func statusError(status int, body string) *llm.Error {
	e := &llm.Error{Provider: models.ProviderOpenAI, StatusCode: status}
	switch status {
	case http.StatusUnauthorized:
		e.Kind = llm.KindInvalidCredential
		e.Message = "Invalid OpenAI API key. Please check your key with /config openai <key>"
	case http.StatusTooManyRequests:
		e.Kind = llm.KindRateLimited
		e.Message = "Rate limited by OpenAI. Please wait a moment and try again."
	case http.StatusBadRequest:
		e.Kind = llm.KindVendorError
		e.Message = "Invalid request to OpenAI API. Your message may be too long."
	default:
		e.Kind = llm.KindVendorError
		e.Message = fmt.Sprintf("OpenAI API error (%d): %s", status, llm.TruncateBody(body))
	}
	return e
}
