package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"airchat-bot/internal/domain"
	"airchat-bot/internal/llm"
	"airchat-bot/internal/models"
)

const maxOutputTokens = 4096

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens"`
}

// generateRequest is the minimal request shape for generateContent. Gemini
// has no assistant role; replies are sent back as role "model", and the fixed
// system prompt rides in systemInstruction.
type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

// generateResponse is the minimal response shape for generateContent. Gemini
// sometimes reports errors inside a 200 body, hence the Error field.
type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Client is a focused Gemini generateContent adapter. The API key is passed
// per call because every user brings their own; Gemini wants it as a query
// parameter rather than a header.
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

// NewClient creates a Gemini adapter with a 30s default timeout.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    "https://generativelanguage.googleapis.com/v1beta/models",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Chat sends the conversation to the generateContent endpoint. Exactly one
// HTTP call, no retries.
func (c *Client) Chat(ctx context.Context, apiKey string, messages []domain.ChatMessage, modelID string) (string, error) {
	if apiKey == "" {
		return "", errors.New("gemini: api key must not be empty")
	}
	if modelID == "" {
		return "", errors.New("gemini: model must not be empty")
	}

	contents := make([]content, 0, len(messages))
	for _, m := range messages {
		role := "user"
		if m.Role == domain.RoleAssistant {
			role = "model"
		}
		contents = append(contents, content{Role: role, Parts: []part{{Text: m.Content}}})
	}

	body, err := json.Marshal(generateRequest{
		SystemInstruction: &content{Parts: []part{{Text: llm.SystemPrompt}}},
		Contents:          contents,
		GenerationConfig:  generationConfig{MaxOutputTokens: maxOutputTokens},
	})
	if err != nil {
		return "", fmt.Errorf("gemini: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s", c.baseURL, modelID, url.QueryEscape(apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gemini: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return "", statusError(res.StatusCode, string(buf))
	}

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("gemini: read response body: %w", err)
	}

	var payload generateResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("gemini: decode response: %w", err)
	}
	if payload.Error != nil {
		return "", &llm.Error{
			Kind:     llm.KindVendorError,
			Provider: models.ProviderGemini,
			Message:  "Gemini error: " + payload.Error.Message,
		}
	}

	var texts []string
	for _, p := range candidateParts(payload) {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	if len(texts) == 0 {
		return "", &llm.Error{
			Kind:     llm.KindEmptyResponse,
			Provider: models.ProviderGemini,
			Message:  "No response from Gemini",
		}
	}
	return strings.Join(texts, ""), nil
}

func candidateParts(payload generateResponse) []part {
	if len(payload.Candidates) == 0 {
		return nil
	}
	return payload.Candidates[0].Content.Parts
}

// statusError maps Gemini HTTP failures to human-actionable error kinds. A
// 400 mentioning API_KEY is how Gemini reports a bad key.
func statusError(status int, body string) *llm.Error {
	e := &llm.Error{Provider: models.ProviderGemini, StatusCode: status}
	switch {
	case status == http.StatusBadRequest && strings.Contains(body, "API_KEY"):
		e.Kind = llm.KindInvalidCredential
		e.Message = "Invalid Gemini API key. Please check your key with /config gemini <key>"
	case status == http.StatusTooManyRequests:
		e.Kind = llm.KindRateLimited
		e.Message = "Rate limited by Gemini. Please wait a moment and try again."
	default:
		e.Kind = llm.KindVendorError
		e.Message = fmt.Sprintf("Gemini API error (%d): %s", status, llm.TruncateBody(body))
	}
	return e
}
