package judge

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/chatsentry/chatsentry/internal/config"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// Analyzer asks a model about text or an image and returns its raw answer
type Analyzer interface {
	AnalyzeText(ctx context.Context, text, prompt string) (string, error)
	AnalyzeImage(ctx context.Context, base64PNG, prompt string) (string, error)
}

// OpenAIAnalyzer talks to any OpenAI-compatible /chat/completions endpoint
type OpenAIAnalyzer struct {
	client      *openai.Client
	textModel   string
	visionModel string
	log         zerolog.Logger
}

// NewOpenAIAnalyzer creates a client from the AI config. The API key is read
// from the environment variable named by cfg.APIKeyEnv.
func NewOpenAIAnalyzer(cfg config.AIConfig, log zerolog.Logger) *OpenAIAnalyzer {
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		log.Warn().Str("env", cfg.APIKeyEnv).Msg("API key not set, requests will be unauthenticated")
	}

	clientCfg := openai.DefaultConfig(apiKey)
	clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAIAnalyzer{
		client:      openai.NewClientWithConfig(clientCfg),
		textModel:   cfg.TextModel,
		visionModel: cfg.VisionModel,
		log:         log,
	}
}

// AnalyzeText sends the prompt as the system message and text as the user message
func (a *OpenAIAnalyzer) AnalyzeText(ctx context.Context, text, prompt string) (string, error) {
	return a.complete(ctx, openai.ChatCompletionRequest{
		Model: a.textModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
}

// AnalyzeImage sends the image as a data URL followed by the prompt
func (a *OpenAIAnalyzer) AnalyzeImage(ctx context.Context, base64PNG, prompt string) (string, error) {
	return a.complete(ctx, openai.ChatCompletionRequest{
		Model: a.visionModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: "data:image/png;base64," + base64PNG},
					},
					{Type: openai.ChatMessagePartTypeText, Text: prompt},
				},
			},
		},
	})
}

func (a *OpenAIAnalyzer) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	a.log.Debug().Str("model", req.Model).Int("messages", len(req.Messages)).Msg("Sending chat request")

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", errors.Wrapf(err, "model endpoint returned status %d", apiErr.HTTPStatusCode)
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			return "", errors.Wrapf(err, "model endpoint returned status %d", reqErr.HTTPStatusCode)
		}
		return "", errors.Wrap(err, "chat request failed")
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("chat response has no choices")
	}

	a.log.Debug().
		Dur("duration", time.Since(start)).
		Int("tokens", resp.Usage.TotalTokens).
		Str("finish_reason", string(resp.Choices[0].FinishReason)).
		Msg("Chat response received")

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
