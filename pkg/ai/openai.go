package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"github.com/johnquangdev/persona-panel/pkg/config"
)

const groqDefaultURL = "https://api.groq.com/openai/v1/"

// OpenAIClient talks to the Responses API of OpenAI or any compatible
// endpoint (Groq) through the official SDK
type OpenAIClient struct {
	client    openai.Client
	provider  string
	model     string
	maxTokens int
	hasKey    bool
}

// NewOpenAIClient creates a client from model config
func NewOpenAIClient(cfg config.ModelConfig) *OpenAIClient {
	provider := strings.ToLower(cfg.Provider)
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0), // retries are handled by WithRetry
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	base := cfg.BaseURL
	if base == "" && provider == ProviderGroq {
		base = groqDefaultURL
	}
	if base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}

	return &OpenAIClient{
		client:    openai.NewClient(opts...),
		provider:  provider,
		model:     cfg.ModelName(),
		maxTokens: cfg.MaxTokens,
		hasKey:    cfg.APIKey != "",
	}
}

// Complete sends the prompt, plus the image as a data URL, and returns the output text
func (o *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	if !o.hasKey {
		return "", fmt.Errorf("%s: %w", o.provider, ErrMissingCredential)
	}

	content := responses.ResponseInputMessageContentListParam{
		{OfInputText: &responses.ResponseInputTextParam{Text: req.Prompt}},
	}
	if req.Image != nil {
		content = append(content, responses.ResponseInputContentUnionParam{
			OfInputImage: &responses.ResponseInputImageParam{
				Detail:   responses.ResponseInputImageDetailAuto,
				ImageURL: openai.String("data:" + req.Image.MediaType + ";base64," + req.Image.Data),
			},
		})
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = o.maxTokens
	}

	params := responses.ResponseNewParams{
		Model: o.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(content, responses.EasyInputMessageRoleUser),
			},
		},
	}
	if maxTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(maxTokens))
	}
	if req.System != "" {
		params.Instructions = openai.String(req.System)
	}

	resp, err := o.client.Responses.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &StatusError{Provider: o.provider, StatusCode: apiErr.StatusCode, Message: apiErr.Error()}
		}
		return "", fmt.Errorf("%s: %w", o.provider, err)
	}

	text := resp.OutputText()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s: empty response", o.provider)
	}
	return text, nil
}
