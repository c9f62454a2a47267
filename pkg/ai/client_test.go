package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/johnquangdev/persona-panel/pkg/config"
)

func anthropicConfig(url string) config.ModelConfig {
	return config.ModelConfig{
		Provider:  ProviderAnthropic,
		APIKey:    "test-key",
		BaseURL:   url,
		MaxTokens: 1000,
		Timeout:   5 * time.Second,
	}
}

func fastRetry() RetryPolicy {
	return RetryPolicy{
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		MaxElapsedTime:  time.Second,
	}
}

const anthropicMessage = `{
	"id": "msg_1",
	"type": "message",
	"role": "assistant",
	"model": "claude-3-5-haiku-20241022",
	"stop_reason": "end_turn",
	"content": [%s],
	"usage": {"input_tokens": 10, "output_tokens": 5}
}`

func writeAnthropic(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}

func TestAnthropicClient_Complete(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.NotEmpty(t, r.Header.Get("anthropic-version"))

		var payload struct {
			Model     string `json:"model"`
			MaxTokens int    `json:"max_tokens"`
			System    []struct {
				Text string `json:"text"`
			} `json:"system"`
			Messages []struct {
				Role    string `json:"role"`
				Content []struct {
					Type   string `json:"type"`
					Source struct {
						Type      string `json:"type"`
						MediaType string `json:"media_type"`
						Data      string `json:"data"`
					} `json:"source"`
				} `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "claude-3-5-haiku-20241022", payload.Model)
		assert.Equal(t, 1000, payload.MaxTokens)
		require.Len(t, payload.System, 1)
		assert.Equal(t, "be a persona", payload.System[0].Text)
		require.Len(t, payload.Messages, 1)
		assert.Equal(t, "user", payload.Messages[0].Role)
		require.Len(t, payload.Messages[0].Content, 2)
		assert.Equal(t, "text", payload.Messages[0].Content[0].Type)
		assert.Equal(t, "image", payload.Messages[0].Content[1].Type)
		assert.Equal(t, "base64", payload.Messages[0].Content[1].Source.Type)
		assert.Equal(t, "image/png", payload.Messages[0].Content[1].Source.MediaType)
		assert.Equal(t, "aGVsbG8=", payload.Messages[0].Content[1].Source.Data)

		writeAnthropic(w, http.StatusOK, fmt.Sprintf(anthropicMessage,
			`{"type":"text","text":"A1: Calm, "},{"type":"text","text":"Premium, Slow"}`))
	}))
	defer ts.Close()

	client := NewAnthropicClient(anthropicConfig(ts.URL))
	out, err := client.Complete(context.Background(), Request{
		System: "be a persona",
		Prompt: "answer",
		Image:  &Image{MediaType: "image/png", Data: "aGVsbG8="},
	})

	require.NoError(t, err)
	assert.Equal(t, "A1: Calm, Premium, Slow", out)
}

func TestAnthropicClient_Unauthorized(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeAnthropic(w, http.StatusUnauthorized, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
	}))
	defer ts.Close()

	_, err := NewAnthropicClient(anthropicConfig(ts.URL)).Complete(context.Background(), Request{Prompt: "x"})

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, ProviderAnthropic, se.Provider)
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.True(t, IsCredentialError(err))
	assert.False(t, IsRetryable(err))
}

func TestAnthropicClient_MissingKeySkipsNetwork(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer ts.Close()

	cfg := anthropicConfig(ts.URL)
	cfg.APIKey = ""
	_, err := NewAnthropicClient(cfg).Complete(context.Background(), Request{Prompt: "x"})

	require.ErrorIs(t, err, ErrMissingCredential)
	assert.True(t, IsCredentialError(err))
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestAnthropicClient_NoTextIsAnError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeAnthropic(w, http.StatusOK, fmt.Sprintf(anthropicMessage, ""))
	}))
	defer ts.Close()

	_, err := NewAnthropicClient(anthropicConfig(ts.URL)).Complete(context.Background(), Request{Prompt: "x"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
	assert.False(t, IsCredentialError(err))
}

func TestWithRetry_RetriesOverloaded(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			writeAnthropic(w, 529, `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`)
			return
		}
		writeAnthropic(w, http.StatusOK, fmt.Sprintf(anthropicMessage, `{"type":"text","text":"ok"}`))
	}))
	defer ts.Close()

	client := WithRetry(NewAnthropicClient(anthropicConfig(ts.URL)), fastRetry(), zap.NewNop())
	out, err := client.Complete(context.Background(), Request{Prompt: "x"})

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestWithRetry_DoesNotRetryClientErrors(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		writeAnthropic(w, http.StatusBadRequest, `{"type":"error","error":{"type":"invalid_request_error","message":"bad image"}}`)
	}))
	defer ts.Close()

	client := WithRetry(NewAnthropicClient(anthropicConfig(ts.URL)), fastRetry(), nil)
	_, err := client.Complete(context.Background(), Request{Prompt: "x"})

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestOpenAIClient_Complete(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/responses", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "gpt-4o-mini", payload["model"])
		assert.Equal(t, "be a persona", payload["instructions"])

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "resp_1",
			"object": "response",
			"created_at": 1700000000,
			"status": "completed",
			"model": "gpt-4o-mini",
			"output": [{
				"type": "message",
				"id": "msg_1",
				"status": "completed",
				"role": "assistant",
				"content": [{"type": "output_text", "text": "A3: Score 5 - fine", "annotations": []}]
			}]
		}`)
	}))
	defer ts.Close()

	client := NewOpenAIClient(config.ModelConfig{
		Provider:  ProviderOpenAI,
		APIKey:    "sk-test",
		BaseURL:   ts.URL + "/",
		MaxTokens: 500,
		Timeout:   5 * time.Second,
	})
	out, err := client.Complete(context.Background(), Request{System: "be a persona", Prompt: "answer"})

	require.NoError(t, err)
	assert.Equal(t, "A3: Score 5 - fine", out)
}

func TestOpenAIClient_Unauthorized(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`)
	}))
	defer ts.Close()

	client := NewOpenAIClient(config.ModelConfig{
		Provider: ProviderGroq,
		APIKey:   "gsk-bad",
		BaseURL:  ts.URL + "/",
		Timeout:  5 * time.Second,
	})
	_, err := client.Complete(context.Background(), Request{Prompt: "answer"})

	require.Error(t, err)
	assert.True(t, IsCredentialError(err))
}

func TestIsCredentialError(t *testing.T) {
	assert.True(t, IsCredentialError(fmt.Errorf("wrapped: %w", ErrMissingCredential)))
	assert.True(t, IsCredentialError(&StatusError{Provider: "x", StatusCode: 403}))
	assert.True(t, IsCredentialError(errors.New("INVALID_API_KEY")))
	assert.False(t, IsCredentialError(&StatusError{Provider: "x", StatusCode: 500}))
	assert.False(t, IsCredentialError(nil))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&StatusError{StatusCode: 429}))
	assert.True(t, IsRetryable(&StatusError{StatusCode: 503}))
	assert.True(t, IsRetryable(errors.New("dial tcp: connection refused")))
	assert.False(t, IsRetryable(&StatusError{StatusCode: 404}))
	assert.False(t, IsRetryable(context.Canceled))
	assert.False(t, IsRetryable(ErrMissingCredential))
}

func TestNewClient_UnknownProvider(t *testing.T) {
	_, err := NewClient(config.ModelConfig{Provider: "palm"}, nil)
	assert.Error(t, err)
}

func TestCheck(t *testing.T) {
	var maxTokens int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			MaxTokens int `json:"max_tokens"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		maxTokens = payload.MaxTokens
		if r.Header.Get("x-api-key") != "test-key" {
			writeAnthropic(w, http.StatusUnauthorized, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
			return
		}
		writeAnthropic(w, http.StatusOK, fmt.Sprintf(anthropicMessage, `{"type":"text","text":"OK"}`))
	}))
	defer ts.Close()

	require.NoError(t, Check(context.Background(), NewAnthropicClient(anthropicConfig(ts.URL))))
	assert.Equal(t, checkMaxTokens, maxTokens)

	cfg := anthropicConfig(ts.URL)
	cfg.APIKey = "wrong"
	err := Check(context.Background(), NewAnthropicClient(cfg))
	require.Error(t, err)
	assert.True(t, IsCredentialError(err))
}
