package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"airchat-bot/internal/commands"
	"airchat-bot/internal/domain"
	"airchat-bot/internal/integrations/telegram"
	"airchat-bot/internal/llm"
)

// Messenger delivers replies back to Telegram.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendTyping(ctx context.Context, chatID int64)
}

// StateStore is the slice of the repository the relay needs for the chat path.
type StateStore interface {
	GetUserConfig(ctx context.Context, userID int64) (domain.UserConfig, error)
	MessagesForLLM(ctx context.Context, userID int64, newText string) ([]domain.ChatMessage, error)
	AppendTurn(ctx context.Context, userID int64, userText, assistantText string) error
}

// Dispatcher routes a chat request to the model's vendor.
type Dispatcher interface {
	Dispatch(ctx context.Context, cfg domain.UserConfig, messages []domain.ChatMessage) llm.Result
}

// Commander executes slash commands.
type Commander interface {
	Handle(ctx context.Context, text string, userID int64) (string, error)
}

// RelayService turns one Telegram update into at most one reply. Everything
// user-facing goes out through the messenger; the returned error is for
// logging only and never reaches the chat verbatim.
type RelayService struct {
	messenger Messenger
	state     StateStore
	llm       Dispatcher
	commands  Commander
}

func NewRelayService(m Messenger, s StateStore, d Dispatcher, c Commander) (*RelayService, error) {
	if m == nil {
		return nil, errors.New("usecase: messenger must not be nil")
	}
	if s == nil {
		return nil, errors.New("usecase: state store must not be nil")
	}
	if d == nil {
		return nil, errors.New("usecase: dispatcher must not be nil")
	}
	if c == nil {
		return nil, errors.New("usecase: command handler must not be nil")
	}
	return &RelayService{messenger: m, state: s, llm: d, commands: c}, nil
}

// HandleUpdate processes one raw webhook payload. Malformed and non-text
// updates are dropped without a reply; the caller acknowledges the webhook
// regardless of the outcome.
func (s *RelayService) HandleUpdate(ctx context.Context, raw []byte) error {
	log := slog.With("correlation_id", newUUID())

	update, err := telegram.ParseUpdate(raw)
	if err != nil {
		log.Warn("dropping malformed update", "err", err)
		return fmt.Errorf("usecase: parse update: %w", err)
	}
	log = log.With("update_id", *update.UpdateID)

	msg := telegram.ExtractMessage(update)
	if msg == nil {
		log.Debug("update carries no text message, ignoring")
		return nil
	}

	if commands.IsCommand(msg.Text) {
		return s.handleCommand(ctx, log, msg)
	}
	return s.handleChat(ctx, log, msg)
}

func (s *RelayService) handleCommand(ctx context.Context, log *slog.Logger, msg *telegram.IncomingMessage) error {
	reply, err := s.commands.Handle(ctx, msg.Text, msg.SenderID)
	if err != nil {
		log.Error("command failed", "err", err)
		s.sendErrorNotice(ctx, log, msg.ChatID, err)
		return fmt.Errorf("usecase: handle command: %w", err)
	}
	if err := s.messenger.SendMessage(ctx, msg.ChatID, reply); err != nil {
		log.Error("command reply delivery failed", "err", err)
		return fmt.Errorf("usecase: send command reply: %w", err)
	}
	return nil
}

func (s *RelayService) handleChat(ctx context.Context, log *slog.Logger, msg *telegram.IncomingMessage) error {
	s.messenger.SendTyping(ctx, msg.ChatID)

	cfg, err := s.state.GetUserConfig(ctx, msg.SenderID)
	if err != nil {
		log.Error("config load failed", "err", err)
		s.sendErrorNotice(ctx, log, msg.ChatID, err)
		return fmt.Errorf("usecase: load config: %w", err)
	}

	messages, err := s.state.MessagesForLLM(ctx, msg.SenderID, msg.Text)
	if err != nil {
		log.Error("history load failed", "err", err)
		s.sendErrorNotice(ctx, log, msg.ChatID, err)
		return fmt.Errorf("usecase: load history: %w", err)
	}

	res := s.llm.Dispatch(ctx, cfg, messages)
	if !res.OK() {
		log.Warn("llm dispatch failed", "kind", res.Err.Kind, "provider", res.Err.Provider, "status", res.Err.StatusCode)
		if err := s.messenger.SendMessage(ctx, msg.ChatID, "❌ "+res.Err.Message); err != nil {
			log.Error("error reply delivery failed", "err", err)
			return fmt.Errorf("usecase: send error reply: %w", err)
		}
		return nil
	}

	// Persist the turn before delivery so a send failure never loses the
	// exchange from context.
	if err := s.state.AppendTurn(ctx, msg.SenderID, msg.Text, res.Text); err != nil {
		log.Error("history append failed", "err", err)
	}

	if err := s.messenger.SendMessage(ctx, msg.ChatID, res.Text); err != nil {
		log.Error("reply delivery failed", "err", err)
		return fmt.Errorf("usecase: send reply: %w", err)
	}
	return nil
}

// sendErrorNotice tells the user something broke. Best effort: if this send
// fails too there is nothing further to do.
func (s *RelayService) sendErrorNotice(ctx context.Context, log *slog.Logger, chatID int64, cause error) {
	if err := s.messenger.SendMessage(ctx, chatID, fmt.Sprintf("❌ Error: %v", cause)); err != nil {
		log.Error("error notice delivery failed", "err", err)
	}
}

var newUUID = func() string {
	return uuid.NewString()
}
