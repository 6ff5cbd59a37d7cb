package llm

import (
	"context"
	"errors"
	"fmt"

	"airchat-bot/internal/domain"
	"airchat-bot/internal/models"
)

// Provider is the adapter contract: translate a canonical message list into
// one vendor call and return the reply text. Implementations make exactly one
// outbound HTTP request and never retry.
type Provider interface {
	Chat(ctx context.Context, apiKey string, messages []domain.ChatMessage, modelID string) (string, error)
}

// Result is what every dispatch resolves to. Exactly one of Text or Err is
// set; errors never propagate to the caller as Go errors so that rendering is
// uniform: show Text or show Err.Message.
type Result struct {
	Text string
	Err  *Error
}

// OK reports whether the dispatch produced a reply.
func (r Result) OK() bool { return r.Err == nil }

// Dispatcher selects the adapter for a user's configured model, pre-checks
// the credential, and normalizes all failures into a Result.
type Dispatcher struct {
	anthropic Provider
	openai    Provider
	gemini    Provider
}

// NewDispatcher creates a Dispatcher over the three vendor adapters.
func NewDispatcher(anthropic, openai, gemini Provider) (*Dispatcher, error) {
	if anthropic == nil {
		return nil, errors.New("llm: anthropic provider must not be nil")
	}
	if openai == nil {
		return nil, errors.New("llm: openai provider must not be nil")
	}
	if gemini == nil {
		return nil, errors.New("llm: gemini provider must not be nil")
	}
	return &Dispatcher{anthropic: anthropic, openai: openai, gemini: gemini}, nil
}

// Dispatch resolves the user's selected model, verifies the credential for
// its provider, and invokes the matching adapter. The credential pre-check
// short-circuits before any network call: it avoids burning a round trip on a
// guaranteed auth failure and produces a friendlier message than the vendor's.
func (d *Dispatcher) Dispatch(ctx context.Context, cfg domain.UserConfig, messages []domain.ChatMessage) Result {
	meta, ok := models.ByName(cfg.Model)
	if !ok {
		// Selection is validated by /model, but stored blobs can outlive
		// the model table.
		return Result{Err: &Error{
			Kind:    KindUnknownModel,
			Message: fmt.Sprintf("Unknown model: %s\n\nUse /models to list available models.", cfg.Model),
		}}
	}

	var (
		provider Provider
		apiKey   string
		missing  string
	)
	switch meta.Provider {
	case models.ProviderAnthropic:
		provider = d.anthropic
		apiKey = cfg.AnthropicKey
		missing = fmt.Sprintf("You need to set an Anthropic API key to use %s.\n\nUse: /config anthropic <your-api-key>", cfg.Model)
	case models.ProviderOpenAI:
		provider = d.openai
		apiKey = cfg.OpenAIKey
		missing = fmt.Sprintf("You need to set an OpenAI API key to use %s.\n\nUse: /config openai <your-api-key>", cfg.Model)
	case models.ProviderGemini:
		provider = d.gemini
		apiKey = cfg.GeminiKey
		missing = fmt.Sprintf("You need to set a Gemini API key to use %s.\n\nUse: /config gemini <your-api-key>\n\nGet a free key at: https://aistudio.google.com/apikey", cfg.Model)
	default:
		return Result{Err: &Error{
			Kind:     KindUnknownModel,
			Provider: meta.Provider,
			Message:  fmt.Sprintf("Unknown provider for model %s", cfg.Model),
		}}
	}

	if apiKey == "" {
		return Result{Err: &Error{
			Kind:     KindMissingCredential,
			Provider: meta.Provider,
			Message:  missing,
		}}
	}

	text, err := provider.Chat(ctx, apiKey, messages, meta.APIID)
	if err != nil {
		var llmErr *Error
		if errors.As(err, &llmErr) {
			return Result{Err: llmErr}
		}
		// Transport-level failure (DNS, timeout, ...): surface the error text.
		return Result{Err: &Error{
			Kind:     KindVendorError,
			Provider: meta.Provider,
			Message:  err.Error(),
		}}
	}
	return Result{Text: text}
}
