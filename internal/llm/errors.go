package llm

import (
	"fmt"

	"airchat-bot/internal/models"
)

// ErrorKind classifies provider-side failures so callers can reason about
// them without string matching.
type ErrorKind string

const (
	KindMissingCredential ErrorKind = "missing_credential"
	KindInvalidCredential ErrorKind = "invalid_credential"
	KindRateLimited       ErrorKind = "rate_limited"
	KindVendorError       ErrorKind = "vendor_error"
	KindEmptyResponse     ErrorKind = "empty_response"
	KindUnknownModel      ErrorKind = "unknown_model"
)

// MaxErrorBody bounds how much of a vendor error body is carried in an Error.
const MaxErrorBody = 200

// Error is the normalized provider failure. Message is user-displayable and
// carries the remediation hint (which /config command re-sets which key).
type Error struct {
	Kind       ErrorKind
	Provider   models.Provider
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("llm: %s %s (status %d): %s", e.Provider, e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("llm: %s %s: %s", e.Provider, e.Kind, e.Message)
}

// TruncateBody trims a vendor error body to MaxErrorBody characters.
func TruncateBody(body string) string {
	if len(body) <= MaxErrorBody {
		return body
	}
	return body[:MaxErrorBody]
}
