// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder,
// ai.KnowledgeExtractor, ai.Classifier, ai.Generator, and ai.AIProvider for
// use in unit tests. The mocks allow tests to run without external AI
// service dependencies and enable controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	mockProvider := mock.NewMockProvider()
//	vec, err := mockProvider.Embedder().EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	extractor := mock.NewMockKnowledgeExtractor()
//	extractor.ExtractKnowledgeFunc = func(ctx context.Context, texts []string) (*ai.Extraction, error) {
//	    return &ai.Extraction{}, nil
//	}
//
//	// Check call counts
//	count := extractor.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: Returns deterministic unit vectors based on text hash
//   - MockKnowledgeExtractor: Derives simple concepts/edges/quotes from words
//   - MockClassifier: Keyword heuristics (greetings, arithmetic traps)
//   - MockGenerator: Streams a canned response word by word
package mock
