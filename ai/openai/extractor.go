// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/episteme/ai"
	"github.com/poiesic/episteme/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// KnowledgeExtractor implements ai.KnowledgeExtractor using OpenAI-compatible chat APIs.
type KnowledgeExtractor struct {
	client        llms.Model
	minConfidence float64
	logger        *slog.Logger
}

// Internal types matching the JSON structure the LLM is asked for.
type rawConcept struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
	Chunk       int     `json:"chunk"`
}

type rawRelationship struct {
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
	Chunk      int     `json:"chunk"`
}

type rawQuote struct {
	Text      string   `json:"text"`
	Speaker   string   `json:"speaker"`
	Timestamp string   `json:"timestamp"`
	Concepts  []string `json:"concepts"`
	Chunk     int      `json:"chunk"`
}

type rawExtraction struct {
	Concepts      []rawConcept      `json:"concepts"`
	Relationships []rawRelationship `json:"relationships"`
	Quotes        []rawQuote        `json:"quotes"`
}

// newKnowledgeExtractor is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newKnowledgeExtractor(config *ai.Config) (*KnowledgeExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken("none"),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}

	return &KnowledgeExtractor{
		client:        client,
		minConfidence: config.MinConfidence,
		logger:        slog.Default().With("component", "openai-extractor"),
	}, nil
}

// NewKnowledgeExtractor creates a new knowledge extractor using the provided configuration.
//
// Returns ai.KnowledgeExtractor interface to enforce abstraction.
func NewKnowledgeExtractor(config *ai.Config) (ai.KnowledgeExtractor, error) {
	return newKnowledgeExtractor(config)
}

// ExtractKnowledge extracts concepts, relationships, and quotes from a batch
// of chunk texts in one model call. Items below the configured confidence
// threshold are filtered out. A response that cannot be parsed after repair
// attempts is reported as ai.ErrMalformedOutput.
func (e *KnowledgeExtractor) ExtractKnowledge(ctx context.Context, texts []string) (*ai.Extraction, error) {
	if len(texts) == 0 {
		return &ai.Extraction{}, nil
	}

	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(buildExtractionPrompt())},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(buildExtractionInput(texts))},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var result rawExtraction
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := e.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			e.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, err
		}

		if len(response.Choices) < 1 {
			e.logger.Debug("no choices returned from model")
			return &ai.Extraction{}, nil
		}

		responseText := repairJSON(stripFences(response.Choices[0].Content))

		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			e.logger.Warn("error parsing extraction response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		lastErr = nil
		break
	}

	if lastErr != nil {
		e.logger.Error("failed to parse extraction response after retries", "err", lastErr)
		return nil, fmt.Errorf("%w: %w", ai.ErrMalformedOutput, lastErr)
	}

	return e.convert(&result, len(texts)), nil
}

// convert filters and normalizes the raw model output into an ai.Extraction.
// Out-of-range chunk indexes and below-threshold items are dropped; unknown
// type tags fall back to the broadest valid tag.
func (e *KnowledgeExtractor) convert(raw *rawExtraction, batchSize int) *ai.Extraction {
	out := &ai.Extraction{}

	for _, c := range raw.Concepts {
		if c.Confidence < e.minConfidence || c.Chunk < 0 || c.Chunk >= batchSize {
			continue
		}
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		out.Concepts = append(out.Concepts, ai.ExtractedConcept{
			Name:        name,
			Type:        normalizeConceptType(c.Type),
			Description: strings.TrimSpace(c.Description),
			Confidence:  clamp01(c.Confidence),
			ChunkIndex:  c.Chunk,
		})
	}

	for _, r := range raw.Relationships {
		if r.Confidence < e.minConfidence || r.Chunk < 0 || r.Chunk >= batchSize {
			continue
		}
		source := strings.TrimSpace(r.Source)
		target := strings.TrimSpace(r.Target)
		if source == "" || target == "" || source == target {
			continue
		}
		out.Relationships = append(out.Relationships, ai.ExtractedRelationship{
			Source:     source,
			Target:     target,
			Type:       normalizeRelationType(r.Type),
			Confidence: clamp01(r.Confidence),
			ChunkIndex: r.Chunk,
		})
	}

	for _, q := range raw.Quotes {
		if q.Chunk < 0 || q.Chunk >= batchSize || strings.TrimSpace(q.Text) == "" {
			continue
		}
		out.Quotes = append(out.Quotes, ai.ExtractedQuote{
			Text:       strings.TrimSpace(q.Text),
			Speaker:    strings.TrimSpace(q.Speaker),
			Timestamp:  strings.TrimSpace(q.Timestamp),
			Concepts:   q.Concepts,
			ChunkIndex: q.Chunk,
		})
	}

	e.logger.Debug("extracted knowledge",
		"concepts", len(out.Concepts),
		"relationships", len(out.Relationships),
		"quotes", len(out.Quotes))

	return out
}

// normalizeConceptType maps a model-reported type tag onto the known set.
// Unknown tags fall back to the generic Concept tag.
func normalizeConceptType(t string) string {
	t = strings.ReplaceAll(strings.TrimSpace(t), " ", "")
	for _, known := range core.ConceptTypes {
		if strings.EqualFold(t, string(known)) {
			return string(known)
		}
	}
	return string(core.ConceptTypeConcept)
}

// normalizeRelationType maps a model-reported edge type onto the known set.
// Unknown tags fall back to RELATES_TO.
func normalizeRelationType(t string) string {
	t = strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(t)), " ", "_")
	if slices.Contains(core.RelationTypes, core.RelationType(t)) {
		return t
	}
	return string(core.RelationRelatesTo)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
