package openai

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Generator implements ai.Generator using OpenAI-compatible chat APIs.
type Generator struct {
	client      llms.Model
	maxTokens   int
	temperature float64
	logger      *slog.Logger
}

func newGenerator(config *ai.Config, httpClient *http.Client) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken(config.Token()),
		openai.WithModel(config.ChatModel),
		openai.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, err
	}

	return &Generator{
		client:      client,
		maxTokens:   config.MaxTokens,
		temperature: config.Temperature,
		logger:      slog.Default().With("component", "openai-generator"),
	}, nil
}

// NewGenerator creates an answer generator for the configured chat model.
func NewGenerator(config *ai.Config) (ai.Generator, error) {
	return newGenerator(config, http.DefaultClient)
}

// Generate answers the payload's question from its passages and conversation window.
func (g *Generator) Generate(ctx context.Context, payload *core.ContextPayload) (*ai.Answer, error) {
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(buildSystemPrompt(payload)),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(payload.Render()),
			},
		},
	}

	g.logger.Debug("generating answer",
		"session", payload.SessionId,
		"passages", len(payload.Passages),
		"window", len(payload.Window))

	response, err := g.client.GenerateContent(ctx, content,
		llms.WithTemperature(g.temperature),
		llms.WithMaxTokens(g.maxTokens))
	if err != nil {
		g.logger.Error("failed to generate content", "err", err)
		return nil, err
	}
	if len(response.Choices) < 1 {
		g.logger.Warn("no choices returned from model")
		return nil, ErrEmptyAnswer
	}

	text := cleanAnswer(response.Choices[0].Content)
	if text == "" {
		return nil, ErrEmptyAnswer
	}

	return &ai.Answer{
		Text:      text,
		Citations: ai.CitedUnits(text, payload),
	}, nil
}
