package telegram

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Update is the subset of a Telegram update the bot cares about. UpdateID is
// a pointer so a payload missing it can be told apart from update_id 0.
type Update struct {
	UpdateID *int64   `json:"update_id"`
	Message  *Message `json:"message"`
}

// Message is one inbound Telegram message.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from"`
	Chat      Chat   `json:"chat"`
	Date      int64  `json:"date"`
	Text      string `json:"text"`
}

type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username,omitempty"`
}

type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// IncomingMessage is the normalized projection handed to the relay: where to
// reply, who is talking, and what they said.
type IncomingMessage struct {
	ChatID   int64
	SenderID int64
	Text     string
}

// ParseUpdate validates a raw webhook payload. Payloads without a numeric
// update identifier are rejected.
func ParseUpdate(raw []byte) (*Update, error) {
	var u Update
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("telegram: parse update: %w", err)
	}
	if u.UpdateID == nil {
		return nil, errors.New("telegram: update missing update_id")
	}
	return &u, nil
}

// ExtractMessage projects an update into an IncomingMessage, or nil when the
// update carries no textual message body. The sender falls back to the chat
// when Telegram omits the from field (e.g. channel posts).
func ExtractMessage(u *Update) *IncomingMessage {
	if u == nil || u.Message == nil || u.Message.Text == "" {
		return nil
	}
	senderID := u.Message.Chat.ID
	if u.Message.From != nil {
		senderID = u.Message.From.ID
	}
	return &IncomingMessage{
		ChatID:   u.Message.Chat.ID,
		SenderID: senderID,
		Text:     u.Message.Text,
	}
}
