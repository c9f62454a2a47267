package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/johnquangdev/persona-panel/pkg/config"
	"github.com/johnquangdev/persona-panel/pkg/jobcontext"
)

// Supported providers
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGroq      = "groq"
)

// ErrMissingCredential is returned before any network call when no API key is configured
var ErrMissingCredential = errors.New("INVALID_API_KEY: model API key is not configured")

// Image is an inline image attached to a request
type Image struct {
	MediaType string // e.g. image/png
	Data      string // base64, no data: prefix
}

// Request is one prompt sent to a model
type Request struct {
	System    string
	Prompt    string
	Image     *Image
	MaxTokens int
}

// Client is a single request/response model call
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// StatusError is a non-success answer from a provider
type StatusError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s returned status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Message)
}

var credentialMarkers = []string{
	"invalid_api_key",
	"invalid x-api-key",
	"authentication_error",
	"incorrect api key",
	"api key is not configured",
}

// IsCredentialError reports whether err means the API key is missing or rejected
func IsCredentialError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrMissingCredential) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) && (se.StatusCode == 401 || se.StatusCode == 403) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range credentialMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// IsRetryable reports whether a failed call is worth repeating
func IsRetryable(err error) bool {
	if err == nil || IsCredentialError(err) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == 429 || se.StatusCode >= 500
	}
	return jobcontext.IsRetryableError(err)
}

// checkMaxTokens is the smallest output budget every provider accepts
const checkMaxTokens = 16

// Check makes a minimal call to confirm the configured key is accepted
func Check(ctx context.Context, c Client) error {
	_, err := c.Complete(ctx, Request{Prompt: "Test", MaxTokens: checkMaxTokens})
	return err
}

// NewClient builds the configured provider client wrapped with retries
func NewClient(cfg config.ModelConfig, logger *zap.Logger) (Client, error) {
	var base Client
	switch strings.ToLower(cfg.Provider) {
	case ProviderAnthropic:
		base = NewAnthropicClient(cfg)
	case ProviderOpenAI, ProviderGroq:
		base = NewOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported model provider %q", cfg.Provider)
	}
	return WithRetry(base, RetryPolicy{
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     cfg.RetryMaxInterval,
		MaxElapsedTime:  cfg.RetryMaxElapsed,
	}, logger), nil
}
