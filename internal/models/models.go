// Package models is the single source of truth for the supported LLM models.
// The table is static: loaded once, read-only.
package models

import "strings"

// Provider identifies an LLM vendor.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGemini    Provider = "gemini"
)

// DefaultModel is assigned to users on first contact. Gemini because its free
// tier means the bot works without a paid key.
const DefaultModel = "gemini-3-flash"

// Metadata describes one selectable model.
type Metadata struct {
	Name        string // user-facing name, e.g. "claude-sonnet"
	APIID       string // vendor API identifier
	Provider    Provider
	Category    string // display grouping for /models
	Description string
	Recommended bool
}

var table = []Metadata{
	{
		Name:        "claude-sonnet",
		APIID:       "claude-sonnet-4-5-20250929",
		Provider:    ProviderAnthropic,
		Category:    "Claude 4.5 (Anthropic)",
		Description: "Most capable, recommended",
		Recommended: true,
	},
	{
		Name:        "claude-haiku",
		APIID:       "claude-haiku-4-5-20251001",
		Provider:    ProviderAnthropic,
		Category:    "Claude 4.5 (Anthropic)",
		Description: "Faster, cheaper",
	},
	{
		Name:        "claude-opus",
		APIID:       "claude-opus-4-5-20251101",
		Provider:    ProviderAnthropic,
		Category:    "Claude 4.5 (Anthropic)",
		Description: "Maximum intelligence",
	},
	{
		Name:        "gpt-5.2",
		APIID:       "gpt-5.2-2025-12-11",
		Provider:    ProviderOpenAI,
		Category:    "GPT-5 (OpenAI)",
		Description: "Latest release",
	},
	{
		Name:        "gpt-5-mini",
		APIID:       "gpt-5-mini-2025-08-07",
		Provider:    ProviderOpenAI,
		Category:    "GPT-5 (OpenAI)",
		Description: "Faster, cheaper",
	},
	{
		Name:        "gemini-3-flash",
		APIID:       "gemini-3-flash-preview",
		Provider:    ProviderGemini,
		Category:    "Gemini 3 (Google)",
		Description: "Fast & free tier!",
		Recommended: true,
	},
	{
		Name:        "gemini-3-pro",
		APIID:       "gemini-3-pro-preview",
		Provider:    ProviderGemini,
		Category:    "Gemini 3 (Google)",
		Description: "More capable",
	},
}

// ByName returns the metadata for a user-facing model name.
func ByName(name string) (Metadata, bool) {
	for _, m := range table {
		if m.Name == name {
			return m, true
		}
	}
	return Metadata{}, false
}

// IsValid reports whether name is a selectable model.
func IsValid(name string) bool {
	_, ok := ByName(name)
	return ok
}

// ProviderFor returns the vendor serving the named model.
func ProviderFor(name string) (Provider, bool) {
	m, ok := ByName(name)
	return m.Provider, ok
}

// AllNames lists every selectable model name in table order.
func AllNames() []string {
	names := make([]string, 0, len(table))
	for _, m := range table {
		names = append(names, m.Name)
	}
	return names
}

// ByProvider lists the models served by one vendor, in table order.
func ByProvider(p Provider) []Metadata {
	var out []Metadata
	for _, m := range table {
		if m.Provider == p {
			out = append(out, m)
		}
	}
	return out
}

// Info renders the grouped model listing used by /models and /help replies.
func Info() string {
	var b strings.Builder
	b.WriteString("Available models:\n\n")

	seen := make(map[string]bool)
	for _, m := range table {
		if seen[m.Category] {
			continue
		}
		seen[m.Category] = true

		b.WriteString("*" + m.Category + ":*\n")
		for _, cm := range table {
			if cm.Category != m.Category {
				continue
			}
			rec := ""
			if cm.Recommended {
				rec = " (recommended)"
			}
			b.WriteString("• `" + cm.Name + "` - " + cm.Description + rec + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("Use `/model <name>` to switch models.")
	return b.String()
}
