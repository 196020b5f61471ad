package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// KnowledgeExtractor extracts typed concepts, relationships, and quotes from
// a batch of transcript chunks in a single model call.
// Implementations must be thread-safe for concurrent use.
type KnowledgeExtractor interface {
	// ExtractKnowledge analyzes the chunk texts and returns the structured
	// knowledge found in them. A malformed model response is reported as
	// ErrMalformedOutput, never as a panic or a generic failure.
	// Returns an empty Extraction if nothing was found.
	ExtractKnowledge(ctx context.Context, texts []string) (*Extraction, error)
}

// Classifier performs best-effort question classification for query planning.
type Classifier interface {
	// ClassifyQuestion returns the question's intent, the retrieval strategy
	// the model recommends, and the model's confidence in that call.
	// Callers treat any error or low confidence as "use the broadest strategy".
	ClassifyQuestion(ctx context.Context, question string) (*Classification, error)
}

// Generator produces free-form answer text.
// Implementations must be thread-safe for concurrent use.
type Generator interface {
	// Generate produces the full answer for the given system and user prompts.
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// GenerateStream produces the answer incrementally, invoking fn for each
	// text fragment as it is generated. The complete text is also returned.
	// fn returning an error aborts generation.
	GenerateStream(ctx context.Context, systemPrompt, userPrompt string, fn StreamFunc) (string, error)
}

// StreamFunc receives answer fragments during streamed generation.
type StreamFunc func(ctx context.Context, fragment []byte) error

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages the embedding, extraction, classification,
// and generation services, ensuring they share configuration appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// KnowledgeExtractor returns the structured extraction service.
	KnowledgeExtractor() KnowledgeExtractor

	// Classifier returns the question classification service.
	Classifier() Classifier

	// Generator returns the answer generation service.
	Generator() Generator

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
