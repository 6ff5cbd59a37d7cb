package domain

// UserConfig is the per-user configuration blob persisted under
// "config:<userId>". Key fields are optional; Model always carries a value
// once the config has been loaded (a store miss yields the default config).
type UserConfig struct {
	AnthropicKey string `json:"anthropicKey,omitempty"`
	OpenAIKey    string `json:"openaiKey,omitempty"`
	GeminiKey    string `json:"geminiKey,omitempty"`
	Model        string `json:"model"`
}

// ConversationHistory is the bounded conversation log persisted under
// "history:<userId>". Messages are kept in chronological order and appended
// strictly in user/assistant pairs.
type ConversationHistory struct {
	Messages  []ChatMessage `json:"messages"`
	UpdatedAt int64         `json:"updatedAt"` // unix milliseconds
}
