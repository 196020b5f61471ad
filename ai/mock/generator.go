package mock

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/poiesic/episteme/ai"
)

// MockClassifier is a test double for ai.Classifier.
type MockClassifier struct {
	// ClassifyQuestionFunc is called by ClassifyQuestion if set.
	// If nil, uses simple keyword heuristics.
	ClassifyQuestionFunc func(ctx context.Context, question string) (*ai.Classification, error)

	callCount atomic.Int64
}

// NewMockClassifier creates a mock classifier with default behavior.
func NewMockClassifier() *MockClassifier {
	return &MockClassifier{}
}

// ClassifyQuestion classifies with trivial keyword heuristics: greetings and
// arithmetic are recognized, everything else is a knowledge question.
func (m *MockClassifier) ClassifyQuestion(ctx context.Context, question string) (*ai.Classification, error) {
	m.callCount.Add(1)

	if m.ClassifyQuestionFunc != nil {
		return m.ClassifyQuestionFunc(ctx, question)
	}

	q := strings.ToLower(strings.TrimSpace(question))
	switch {
	case strings.HasPrefix(q, "hello") || strings.HasPrefix(q, "hi"):
		return &ai.Classification{Intent: "greeting", Strategy: "none", Confidence: 0.99}, nil
	case strings.Contains(q, "2+2") || strings.Contains(q, "weather"):
		return &ai.Classification{Intent: "out_of_scope", Strategy: "none", Confidence: 0.95}, nil
	default:
		return &ai.Classification{Intent: "knowledge", Strategy: "hybrid", Confidence: 0.9}, nil
	}
}

// CallCount returns the number of times ClassifyQuestion was called.
func (m *MockClassifier) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and custom functions.
func (m *MockClassifier) Reset() {
	m.callCount.Store(0)
	m.ClassifyQuestionFunc = nil
}

// MockGenerator is a test double for ai.Generator.
type MockGenerator struct {
	// GenerateFunc is called for both Generate and GenerateStream if set.
	GenerateFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// Response is emitted when GenerateFunc is nil.
	Response string

	callCount atomic.Int64
}

// NewMockGenerator creates a mock generator that echoes a canned response.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{Response: "mock answer"}
}

// Generate produces the canned or injected response.
func (m *MockGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return m.GenerateStream(ctx, systemPrompt, userPrompt, nil)
}

// GenerateStream produces the response, streaming it to fn word by word so
// tests can observe incremental delivery.
func (m *MockGenerator) GenerateStream(ctx context.Context, systemPrompt, userPrompt string, fn ai.StreamFunc) (string, error) {
	m.callCount.Add(1)

	text := m.Response
	if m.GenerateFunc != nil {
		var err error
		text, err = m.GenerateFunc(ctx, systemPrompt, userPrompt)
		if err != nil {
			return "", err
		}
	}

	if fn != nil {
		for i, word := range strings.Split(text, " ") {
			fragment := word
			if i > 0 {
				fragment = " " + word
			}
			if err := fn(ctx, []byte(fragment)); err != nil {
				return "", err
			}
		}
	}

	return text, nil
}

// CallCount returns the number of times generation was invoked.
func (m *MockGenerator) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and custom functions.
func (m *MockGenerator) Reset() {
	m.callCount.Store(0)
	m.GenerateFunc = nil
}
