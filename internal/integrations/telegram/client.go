package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// MaxMessageLength is Telegram's hard limit for one sendMessage call.
const MaxMessageLength = 4096

// TokenSource supplies the bot token. The production implementation is backed
// by SSM; tests use StaticToken.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed bot token.
type StaticToken string

func (s StaticToken) Token(_ context.Context) (string, error) {
	if s == "" {
		return "", errors.New("telegram: empty static token")
	}
	return string(s), nil
}

// DeliveryError reports that a chunk could not be delivered even after the
// plain-text retry. Remaining chunks are not attempted.
type DeliveryError struct {
	TransportMessage string
}

func (e *DeliveryError) Error() string {
	return "telegram: delivery failed: " + e.TransportMessage
}

// apiResponse is the generic Telegram Bot API response wrapper.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

type sendMessageRequest struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

// Client is a focused Telegram Bot API client. The token is resolved from
// the TokenSource on first use and cached for the process lifetime.
type Client struct {
	apiBase    string
	httpClient *http.Client
	tokens     TokenSource

	tokenOnce sync.Once
	token     string
	tokenErr  error
}

type Option func(*Client)

// WithAPIBase overrides the Telegram API origin (tests point it at httptest).
func WithAPIBase(base string) Option {
	return func(c *Client) {
		c.apiBase = strings.TrimRight(strings.TrimSpace(base), "/")
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Telegram client backed by the given token source.
func NewClient(tokens TokenSource, opts ...Option) (*Client, error) {
	if tokens == nil {
		return nil, errors.New("telegram: token source must not be nil")
	}
	c := &Client{
		apiBase:    "https://api.telegram.org",
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// resolveToken fetches the bot token on the first call and returns the cached
// result on every subsequent call within the same process lifetime.
func (c *Client) resolveToken(ctx context.Context) (string, error) {
	c.tokenOnce.Do(func() {
		c.token, c.tokenErr = c.tokens.Token(ctx)
	})
	return c.token, c.tokenErr
}

func (c *Client) methodURL(ctx context.Context, method string) (string, error) {
	token, err := c.resolveToken(ctx)
	if err != nil {
		return "", fmt.Errorf("telegram: resolve bot token: %w", err)
	}
	return c.apiBase + "/bot" + token + "/" + method, nil
}

// post issues one Bot API call and returns the HTTP status and raw body.
// A returned error means the call never completed (network, marshal).
func (c *Client) post(ctx context.Context, method string, payload any) (int, []byte, error) {
	url, err := c.methodURL(ctx, method)
	if err != nil {
		return 0, nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("telegram: marshal %s request: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("telegram: create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("telegram: %s request failed: %w", method, err)
	}
	defer func() { _ = res.Body.Close() }()

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return 0, nil, fmt.Errorf("telegram: read %s response: %w", method, err)
	}
	return res.StatusCode, buf, nil
}

// SendMessage delivers text to a chat, splitting it into transport-safe
// chunks. Each chunk is first attempted with Markdown formatting and retried
// once as plain text if the transport rejects the formatted payload. Chunks
// go out strictly in order; the first total failure stops the delivery.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	for _, chunk := range SplitMessage(text) {
		if err := c.sendChunk(ctx, chatID, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) sendChunk(ctx context.Context, chatID int64, text string) error {
	status, body, err := c.post(ctx, "sendMessage", sendMessageRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "Markdown",
	})
	if err != nil {
		return err
	}
	if statusOK(status) {
		return nil
	}

	// Markdown rejected, typically unbalanced markup in the model output.
	slog.Debug("markdown send rejected, retrying as plain text", "status", status)
	status, body, err = c.post(ctx, "sendMessage", sendMessageRequest{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		return err
	}
	if statusOK(status) {
		return nil
	}
	return &DeliveryError{TransportMessage: transportMessage(status, body)}
}

// SendTyping fires a best-effort typing indicator. Failures are swallowed,
// they must never affect the request outcome.
func (c *Client) SendTyping(ctx context.Context, chatID int64) {
	status, _, err := c.post(ctx, "sendChatAction", map[string]any{
		"chat_id": chatID,
		"action":  "typing",
	})
	if err != nil {
		slog.Debug("typing indicator failed", "err", err)
		return
	}
	if !statusOK(status) {
		slog.Debug("typing indicator rejected", "status", status)
	}
}

// SetWebhook registers url as this bot's webhook. secretToken is optional;
// when set, Telegram echoes it on every update in the
// X-Telegram-Bot-Api-Secret-Token header.
func (c *Client) SetWebhook(ctx context.Context, url, secretToken string) error {
	payload := map[string]string{"url": url}
	if secretToken != "" {
		payload["secret_token"] = secretToken
	}
	status, body, err := c.post(ctx, "setWebhook", payload)
	if err != nil {
		return err
	}
	var parsed apiResponse
	if jsonErr := json.Unmarshal(body, &parsed); jsonErr != nil || !statusOK(status) || !parsed.OK {
		return fmt.Errorf("telegram: setWebhook failed: %s", transportMessage(status, body))
	}
	return nil
}

// DeleteWebhook unregisters the webhook (e.g. to switch to polling).
func (c *Client) DeleteWebhook(ctx context.Context) error {
	status, body, err := c.post(ctx, "deleteWebhook", map[string]string{})
	if err != nil {
		return err
	}
	var parsed apiResponse
	if jsonErr := json.Unmarshal(body, &parsed); jsonErr != nil || !statusOK(status) || !parsed.OK {
		return fmt.Errorf("telegram: deleteWebhook failed: %s", transportMessage(status, body))
	}
	return nil
}

// GetWebhookInfo returns the raw getWebhookInfo result for debugging.
func (c *Client) GetWebhookInfo(ctx context.Context) (json.RawMessage, error) {
	status, body, err := c.post(ctx, "getWebhookInfo", map[string]string{})
	if err != nil {
		return nil, err
	}
	var parsed apiResponse
	if jsonErr := json.Unmarshal(body, &parsed); jsonErr != nil || !statusOK(status) || !parsed.OK {
		return nil, fmt.Errorf("telegram: getWebhookInfo failed: %s", transportMessage(status, body))
	}
	return parsed.Result, nil
}

func statusOK(status int) bool {
	return status >= 200 && status < 300
}

func transportMessage(status int, body []byte) string {
	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Description != "" {
		return parsed.Description
	}
	return fmt.Sprintf("status %d", status)
}
