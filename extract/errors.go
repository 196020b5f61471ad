package extract

import "errors"

var (
	// ErrExtractorRequired is returned when a knowledge extractor is not provided.
	ErrExtractorRequired = errors.New("knowledge extractor required")

	// ErrInvalidBatchSize is returned for a non-positive batch size.
	ErrInvalidBatchSize = errors.New("batch size must be positive")

	// ErrInvalidConcurrency is returned for a non-positive concurrency limit.
	ErrInvalidConcurrency = errors.New("concurrency must be positive")

	// ErrInvalidMaxAttempts is returned when RetryWithBackoff is asked for
	// zero or negative attempts.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")
)
