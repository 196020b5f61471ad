package openai

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/poiesic/episteme/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Classifier implements ai.Classifier using OpenAI-compatible chat APIs.
type Classifier struct {
	client llms.Model
	logger *slog.Logger
}

type rawClassification struct {
	Intent     string  `json:"intent"`
	Strategy   string  `json:"strategy"`
	Confidence float64 `json:"confidence"`
}

// newClassifier is an internal constructor that returns the concrete type.
func newClassifier(config *ai.Config) (*Classifier, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken("none"),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}

	return &Classifier{
		client: client,
		logger: slog.Default().With("component", "openai-classifier"),
	}, nil
}

// NewClassifier creates a new question classifier using the provided configuration.
//
// Returns ai.Classifier interface to enforce abstraction.
func NewClassifier(config *ai.Config) (ai.Classifier, error) {
	return newClassifier(config)
}

// ClassifyQuestion classifies a question's intent and retrieval strategy.
// Classification is best-effort: callers fall back to the broadest strategy
// on any error, so this method makes a single attempt without retries.
func (c *Classifier) ClassifyQuestion(ctx context.Context, question string) (*ai.Classification, error) {
	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(buildClassificationPrompt())},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(question)},
		},
	}

	response, err := c.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
	if err != nil {
		c.logger.Warn("classification call failed", "err", err)
		return nil, err
	}

	if len(response.Choices) < 1 {
		return nil, ai.ErrMalformedOutput
	}

	responseText := repairJSON(stripFences(response.Choices[0].Content))

	var raw rawClassification
	if err := json.Unmarshal([]byte(responseText), &raw); err != nil {
		c.logger.Warn("error parsing classification response", "response", responseText, "err", err)
		return nil, ai.ErrMalformedOutput
	}

	return &ai.Classification{
		Intent:     raw.Intent,
		Strategy:   raw.Strategy,
		Confidence: clamp01(raw.Confidence),
	}, nil
}
