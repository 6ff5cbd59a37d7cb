package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"airchat-bot/internal/domain"
	"airchat-bot/internal/models"
)

// Store is the slice of the state layer the command handlers need.
type Store interface {
	GetUserConfig(ctx context.Context, userID int64) (domain.UserConfig, error)
	UpdateUserConfig(ctx context.Context, userID int64, update func(*domain.UserConfig)) (domain.UserConfig, error)
	ClearHistory(ctx context.Context, userID int64) error
}

// Handler parses slash commands and produces their replies.
type Handler struct {
	store Store
}

func NewHandler(store Store) (*Handler, error) {
	if store == nil {
		return nil, errors.New("commands: store must not be nil")
	}
	return &Handler{store: store}, nil
}

// IsCommand reports whether the text should be routed to Handle instead of
// the LLM.
func IsCommand(text string) bool {
	return strings.HasPrefix(text, "/")
}

// Handle executes one command and returns the reply text. Unknown commands
// get a help pointer rather than an error; errors are reserved for state
// store failures.
func (h *Handler) Handle(ctx context.Context, text string, userID int64) (string, error) {
	parts := strings.Fields(strings.TrimSpace(text))
	if len(parts) == 0 {
		return "", errors.New("commands: empty command")
	}
	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case "/start":
		return startMessage, nil
	case "/help":
		return helpMessage, nil
	case "/config":
		return h.handleConfig(ctx, args, userID)
	case "/model":
		return h.handleModel(ctx, args, userID)
	case "/models":
		return models.Info(), nil
	case "/clear":
		return h.handleClear(ctx, userID)
	case "/status":
		return h.handleStatus(ctx, userID)
	default:
		return fmt.Sprintf("Unknown command: %s\n\nType /help for available commands.", command), nil
	}
}

func (h *Handler) handleConfig(ctx context.Context, args []string, userID int64) (string, error) {
	if len(args) < 2 {
		return configUsage, nil
	}

	provider := strings.ToLower(args[0])
	apiKey := args[1]

	var update func(*domain.UserConfig)
	switch provider {
	case "anthropic":
		update = func(c *domain.UserConfig) { c.AnthropicKey = apiKey }
	case "openai":
		update = func(c *domain.UserConfig) { c.OpenAIKey = apiKey }
	case "gemini":
		update = func(c *domain.UserConfig) { c.GeminiKey = apiKey }
	default:
		return fmt.Sprintf("Unknown provider: %s\n\nValid providers: anthropic, openai, gemini", provider), nil
	}

	if _, err := h.store.UpdateUserConfig(ctx, userID, update); err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ %s API key saved: `%s`\n\nYour key is stored securely and only used to call the %s API.",
		provider, MaskAPIKey(apiKey), provider), nil
}

func (h *Handler) handleModel(ctx context.Context, args []string, userID int64) (string, error) {
	if len(args) < 1 {
		cfg, err := h.store.GetUserConfig(ctx, userID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Current model: `%s`\n\n%s", cfg.Model, models.Info()), nil
	}

	requested := strings.ToLower(args[0])
	if !models.IsValid(requested) {
		return fmt.Sprintf("Unknown model: %s\n\n%s", requested, models.Info()), nil
	}

	cfg, err := h.store.UpdateUserConfig(ctx, userID, func(c *domain.UserConfig) { c.Model = requested })
	if err != nil {
		return "", err
	}

	keyStatus := ""
	switch provider, _ := models.ProviderFor(requested); {
	case provider == models.ProviderAnthropic && cfg.AnthropicKey == "":
		keyStatus = "\n\n⚠️ You need to set an Anthropic key: `/config anthropic <key>`"
	case provider == models.ProviderOpenAI && cfg.OpenAIKey == "":
		keyStatus = "\n\n⚠️ You need to set an OpenAI key: `/config openai <key>`"
	case provider == models.ProviderGemini && cfg.GeminiKey == "":
		keyStatus = "\n\n⚠️ You need to set a Gemini key: `/config gemini <key>`\n\nGet a free key: https://aistudio.google.com/apikey"
	}

	return fmt.Sprintf("✅ Model switched to `%s`%s", requested, keyStatus), nil
}

func (h *Handler) handleClear(ctx context.Context, userID int64) (string, error) {
	if err := h.store.ClearHistory(ctx, userID); err != nil {
		return "", err
	}
	return "🗑️ Conversation history cleared. Starting fresh!", nil
}

func (h *Handler) handleStatus(ctx context.Context, userID int64) (string, error) {
	cfg, err := h.store.GetUserConfig(ctx, userID)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(`*Current Configuration:*

*Model:* `+"`%s`"+`

*API Keys:*
• Anthropic: %s
• OpenAI: %s
• Gemini: %s

Use `+"`/config <provider> <key>`"+` to set keys.
Use `+"`/model <name>`"+` to switch models.`,
		cfg.Model, keyLine(cfg.AnthropicKey), keyLine(cfg.OpenAIKey), keyLine(cfg.GeminiKey)), nil
}

func keyLine(key string) string {
	if key == "" {
		return "❌ Not set"
	}
	return fmt.Sprintf("✅ `%s`", MaskAPIKey(key))
}

// MaskAPIKey renders a key for display, keeping only the first and last four
// characters of anything long enough to survive that.
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

const startMessage = `✈️ *Welcome to Airline Chat!*

I'm an LLM chatbot that works on airplane WiFi. Just message me and I'll respond using AI.

*Quick Setup:*
1. Get an API key (Gemini is free!)
2. Configure it: ` + "`/config gemini YOUR_KEY`" + `
3. Start chatting!

*Get a free Gemini key:*
https://aistudio.google.com/apikey

Type /help for all commands.`

const helpMessage = `*Airline Chat Bot* ✈️

Chat with Claude, ChatGPT, or Gemini through Telegram - works on airplane WiFi that only allows messaging apps!

*How it works:*
You message this bot → Bot calls AI on server → Response comes back to you
Your airplane WiFi only needs to allow Telegram, not general internet access.

*Available Commands:*

*Setup:*
• ` + "`/config anthropic <key>`" + ` - Set Anthropic API key
• ` + "`/config openai <key>`" + ` - Set OpenAI API key
• ` + "`/config gemini <key>`" + ` - Set Gemini API key

*Models:*
• ` + "`/model <name>`" + ` - Switch LLM model
• ` + "`/models`" + ` - List available models

*Chat:*
• ` + "`/clear`" + ` - Clear conversation history
• ` + "`/status`" + ` - Show current configuration

*Free Option:*
Get a Gemini key at https://aistudio.google.com/apikey

Just send any message (not starting with /) to chat with the AI!`

const configUsage = "Usage: `/config <provider> <api-key>`\n\n" +
	"Providers:\n" +
	"• `anthropic` - For Claude models\n" +
	"• `openai` - For GPT models\n" +
	"• `gemini` - For Gemini models (free tier available!)\n\n" +
	"Example: `/config gemini AIzaSy...`"
