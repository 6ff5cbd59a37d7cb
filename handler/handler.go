package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// Relay processes one webhook payload.
type Relay interface {
	HandleUpdate(ctx context.Context, raw []byte) error
}

// WebhookAdmin covers the Telegram webhook management calls the admin
// routes expose.
type WebhookAdmin interface {
	SetWebhook(ctx context.Context, url, secretToken string) error
	GetWebhookInfo(ctx context.Context) (json.RawMessage, error)
}

// Handler routes API Gateway events. The webhook route acknowledges every
// update with 200 no matter what happened downstream, so Telegram never
// retries a poison payload.
type Handler struct {
	relay         Relay
	admin         WebhookAdmin
	webhookSecret string
}

// NewHandler wires the relay and webhook admin client. webhookSecret may be
// empty, which disables the secret header check.
func NewHandler(relay Relay, admin WebhookAdmin, webhookSecret string) (*Handler, error) {
	if relay == nil {
		return nil, errors.New("handler: relay must not be nil")
	}
	if admin == nil {
		return nil, errors.New("handler: webhook admin must not be nil")
	}
	return &Handler{relay: relay, admin: admin, webhookSecret: webhookSecret}, nil
}

func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := headerValue(event.Headers, "X-Correlation-Id")
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	log := slog.With("correlation_id", correlationID, "method", event.HTTPMethod, "path", event.Path)

	var resp events.APIGatewayProxyResponse
	switch {
	case event.HTTPMethod == http.MethodPost && isWebhookPath(event.Path):
		resp = h.handleWebhook(ctx, log, event)
	case event.HTTPMethod == http.MethodGet && event.Path == "/health":
		resp = textResponse(http.StatusOK, "OK")
	case event.HTTPMethod == http.MethodGet && event.Path == "/webhook-info":
		resp = h.handleWebhookInfo(ctx, log)
	case event.HTTPMethod == http.MethodPost && event.Path == "/set-webhook":
		resp = h.handleSetWebhook(ctx, log, event)
	default:
		resp = textResponse(http.StatusOK, "Airline Chat Bot - Send me a message on Telegram!")
	}

	if resp.Headers == nil {
		resp.Headers = map[string]string{}
	}
	resp.Headers["X-Correlation-Id"] = correlationID
	return resp, nil
}

func (h *Handler) handleWebhook(ctx context.Context, log *slog.Logger, event events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	if h.webhookSecret != "" && headerValue(event.Headers, secretTokenHeader) != h.webhookSecret {
		log.Warn("webhook secret token mismatch, rejecting")
		return textResponse(http.StatusUnauthorized, "unauthorized")
	}

	if err := h.relay.HandleUpdate(ctx, []byte(event.Body)); err != nil {
		// Logged only. Returning non-200 would make Telegram redeliver
		// the same update.
		log.Error("webhook processing failed", "err", err)
	}
	return textResponse(http.StatusOK, "OK")
}

func (h *Handler) handleWebhookInfo(ctx context.Context, log *slog.Logger) events.APIGatewayProxyResponse {
	info, err := h.admin.GetWebhookInfo(ctx)
	if err != nil {
		log.Error("webhook info failed", "err", err)
		return jsonResponse(http.StatusBadGateway, map[string]string{"error": "failed to fetch webhook info"})
	}
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(info),
	}
}

func (h *Handler) handleSetWebhook(ctx context.Context, log *slog.Logger, event events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	webhookURL := webhookURLFor(event)
	if webhookURL == "" {
		return jsonResponse(http.StatusBadRequest, map[string]string{"error": "cannot determine webhook url"})
	}

	if err := h.admin.SetWebhook(ctx, webhookURL, h.webhookSecret); err != nil {
		log.Error("set webhook failed", "err", err, "url", webhookURL)
		return jsonResponse(http.StatusBadGateway, map[string]any{
			"success": false,
			"message": "Failed to set webhook",
		})
	}

	log.Info("webhook registered", "url", webhookURL)
	return jsonResponse(http.StatusOK, map[string]any{
		"success":    true,
		"webhookUrl": webhookURL,
		"message":    "Webhook set successfully!",
	})
}

// webhookURLFor derives the public webhook URL from the API Gateway request
// context. An explicit url in the request body wins.
func webhookURLFor(event events.APIGatewayProxyRequest) string {
	var body struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal([]byte(event.Body), &body); err == nil && strings.TrimSpace(body.URL) != "" {
		return strings.TrimSpace(body.URL)
	}

	domain := event.RequestContext.DomainName
	if domain == "" {
		return ""
	}
	stage := event.RequestContext.Stage
	if stage == "" || stage == "$default" {
		return fmt.Sprintf("https://%s/webhook", domain)
	}
	return fmt.Sprintf("https://%s/%s/webhook", domain, stage)
}

func isWebhookPath(path string) bool {
	return path == "/" || path == "/webhook"
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func textResponse(status int, body string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "text/plain"},
		Body:       body,
	}
}

func jsonResponse(status int, payload any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(payload)
	if err != nil {
		return textResponse(http.StatusInternalServerError, "internal error")
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}
