package mock

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/poiesic/episteme/ai"
)

// MockKnowledgeExtractor is a test double for ai.KnowledgeExtractor.
// It allows custom behavior injection via function fields.
type MockKnowledgeExtractor struct {
	// ExtractKnowledgeFunc is called by ExtractKnowledge if set.
	// If nil, uses default simple word extraction.
	ExtractKnowledgeFunc func(ctx context.Context, texts []string) (*ai.Extraction, error)

	callCount atomic.Int64
}

// NewMockKnowledgeExtractor creates a mock extractor with default behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockKnowledgeExtractor() *MockKnowledgeExtractor {
	return &MockKnowledgeExtractor{}
}

// ExtractKnowledge extracts simple mock knowledge from the chunk texts.
// Default behavior: the first two distinct long-ish words of each chunk
// become Concept records, linked by a RELATES_TO edge, and the first
// sentence becomes a quote.
func (m *MockKnowledgeExtractor) ExtractKnowledge(ctx context.Context, texts []string) (*ai.Extraction, error) {
	m.callCount.Add(1)

	if m.ExtractKnowledgeFunc != nil {
		return m.ExtractKnowledgeFunc(ctx, texts)
	}

	out := &ai.Extraction{}
	for chunkIdx, text := range texts {
		words := conceptWords(text, 2)
		for _, word := range words {
			out.Concepts = append(out.Concepts, ai.ExtractedConcept{
				Name:       word,
				Type:       "Concept",
				Confidence: 0.9,
				ChunkIndex: chunkIdx,
			})
		}
		if len(words) == 2 {
			out.Relationships = append(out.Relationships, ai.ExtractedRelationship{
				Source:     words[0],
				Target:     words[1],
				Type:       "RELATES_TO",
				Confidence: 0.8,
				ChunkIndex: chunkIdx,
			})
		}
		if sentence := firstSentence(text); sentence != "" {
			out.Quotes = append(out.Quotes, ai.ExtractedQuote{
				Text:       sentence,
				Concepts:   words,
				ChunkIndex: chunkIdx,
			})
		}
	}
	return out, nil
}

// CallCount returns the number of times ExtractKnowledge was called.
func (m *MockKnowledgeExtractor) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and custom functions.
func (m *MockKnowledgeExtractor) Reset() {
	m.callCount.Store(0)
	m.ExtractKnowledgeFunc = nil
}

// conceptWords picks up to max distinct words of length >= 5 from text.
func conceptWords(text string, max int) []string {
	seen := make(map[string]bool)
	var words []string
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'()[]{}")
		if len(word) < 5 || seen[word] {
			continue
		}
		seen[word] = true
		words = append(words, word)
		if len(words) == max {
			break
		}
	}
	return words
}

// firstSentence returns text up to the first period, capped at 120 chars.
func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexByte(text, '.'); i > 0 {
		text = text[:i+1]
	}
	if len(text) > 120 {
		text = text[:120]
	}
	return text
}
