package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"airchat-bot/internal/domain"
	"airchat-bot/internal/llm"
	"airchat-bot/internal/models"
)

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(
		WithBaseURL(srv.URL),
		WithHTTPClient(&http.Client{Timeout: 2 * time.Second}),
	)
}

func requireLLMError(t *testing.T, err error, kind llm.ErrorKind) *llm.Error {
	t.Helper()
	var llmErr *llm.Error
	require.ErrorAs(t, err, &llmErr)
	require.Equal(t, kind, llmErr.Kind)
	require.Equal(t, models.ProviderOpenAI, llmErr.Provider)
	return llmErr
}

func TestChat_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatRequest
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &req))
		require.Equal(t, "gpt-5-mini-2025-08-07", req.Model)
		require.Equal(t, 4096, req.MaxTokens)
		require.GreaterOrEqual(t, len(req.Messages), 2)
		require.Equal(t, "system", req.Messages[0].Role)
		require.Equal(t, llm.SystemPrompt, req.Messages[0].Content)
		require.Equal(t, "hi", req.Messages[1].Content)

		w.WriteHeader(200)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Hello from mock"}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv)
	out, err := c.Chat(context.Background(), "sk-test", []domain.ChatMessage{{Role: domain.RoleUser, Content: "hi"}}, "gpt-5-mini-2025-08-07")
	require.NoError(t, err)
	require.Equal(t, "Hello from mock", out)
}

func TestChat_EmptyKeyAndModel(t *testing.T) {
	c := NewClient()
	_, err := c.Chat(context.Background(), "", nil, "gpt")
	require.Error(t, err)
	_, err = c.Chat(context.Background(), "sk", nil, "")
	require.Error(t, err)
}

func TestChat_401_InvalidCredential(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
		_, _ = w.Write([]byte(`{"error":"invalid key"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Chat(context.Background(), "sk-bad", nil, "gpt")
	llmErr := requireLLMError(t, err, llm.KindInvalidCredential)
	require.Equal(t, 401, llmErr.StatusCode)
	require.Contains(t, llmErr.Message, "/config openai")
}

func TestChat_429_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(429)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Chat(context.Background(), "sk", nil, "gpt")
	llmErr := requireLLMError(t, err, llm.KindRateLimited)
	require.Contains(t, llmErr.Message, "Rate limited by OpenAI")
}

func TestChat_400_TooLongHint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(400)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Chat(context.Background(), "sk", nil, "gpt")
	llmErr := requireLLMError(t, err, llm.KindVendorError)
	require.Contains(t, llmErr.Message, "too long")
}

func TestChat_500_TruncatesBody(t *testing.T) {
	big := make([]byte, 500)
	for i := range big {
		big[i] = 'e'
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
		_, _ = w.Write(big)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Chat(context.Background(), "sk", nil, "gpt")
	llmErr := requireLLMError(t, err, llm.KindVendorError)
	require.Contains(t, llmErr.Message, "OpenAI API error (500)")
	require.LessOrEqual(t, len(llmErr.Message), len("OpenAI API error (500): ")+llm.MaxErrorBody)
}

func TestChat_NoChoices_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Chat(context.Background(), "sk", nil, "gpt")
	requireLLMError(t, err, llm.KindEmptyResponse)
}

func TestChat_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		_, _ = w.Write([]byte(`not-json`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Chat(context.Background(), "sk", nil, "gpt")
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode response")
}

func TestChat_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(200)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))
	_, err := c.Chat(context.Background(), "sk", nil, "gpt")
	require.Error(t, err)
	require.Contains(t, err.Error(), "request failed")
}
