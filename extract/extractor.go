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


package extract

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/episteme/ai"
	"github.com/poiesic/episteme/core"
)

const (
	defaultBatchSize      = 10
	defaultConcurrency    = 12
	defaultMaxRetries     = 5
	defaultRetryBaseDelay = 1 * time.Second
)

// Extractor runs batched knowledge extraction over chunks.
// Batches execute concurrently on a worker pool; the shared rate limiter is
// the only cross-batch synchronization. One failed batch never aborts the
// run — it is recorded in the result and the remaining batches proceed.
type Extractor struct {
	extractor      ai.KnowledgeExtractor
	limiter        *RateLimiter
	pool           *ants.Pool
	batchSize      int
	maxRetries     int
	retryBaseDelay time.Duration
	logger         *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor) error

// WithBatchSize sets the number of chunks sent per model call.
// Default is 10. Larger batches reduce call count but raise per-call token
// cost; total throughput is batch size times concurrency, bounded by the
// provider's tokens-per-minute ceiling.
func WithBatchSize(size int) Option {
	return func(e *Extractor) error {
		if size < 1 {
			return ErrInvalidBatchSize
		}
		e.batchSize = size
		return nil
	}
}

// WithConcurrency sets the worker pool size for simultaneous model calls.
// Default is 12.
func WithConcurrency(size int) Option {
	return func(e *Extractor) error {
		if size < 1 {
			return ErrInvalidConcurrency
		}
		if e.pool != nil {
			e.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		e.pool = pool
		return nil
	}
}

// WithRateLimiter sets the shared tokens-per-minute limiter.
// Pass the same limiter to the embedding indexer so both honor one budget.
func WithRateLimiter(limiter *RateLimiter) Option {
	return func(e *Extractor) error {
		e.limiter = limiter
		return nil
	}
}

// WithRetry sets the retry cap and the base delay for exponential backoff.
func WithRetry(maxRetries int, baseDelay time.Duration) Option {
	return func(e *Extractor) error {
		if maxRetries < 1 {
			return ErrInvalidMaxAttempts
		}
		e.maxRetries = maxRetries
		e.retryBaseDelay = baseDelay
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewExtractor creates a batch extractor.
func NewExtractor(extractor ai.KnowledgeExtractor, opts ...Option) (*Extractor, error) {
	if extractor == nil {
		return nil, ErrExtractorRequired
	}

	pool, err := ants.NewPool(defaultConcurrency)
	if err != nil {
		return nil, err
	}

	e := &Extractor{
		extractor:      extractor,
		limiter:        NewRateLimiter(0),
		pool:           pool,
		batchSize:      defaultBatchSize,
		maxRetries:     defaultMaxRetries,
		retryBaseDelay: defaultRetryBaseDelay,
		logger:         slog.Default().With("component", "extractor"),
	}

	for _, opt := range opts {
		if optErr := opt(e); optErr != nil {
			e.Release()
			return nil, optErr
		}
	}

	return e, nil
}

// Run extracts knowledge from all chunks and blocks until every batch has
// either succeeded or been recorded as failed. The returned result tags
// every record with the provenance of its originating chunk.
func (e *Extractor) Run(ctx context.Context, chunks []core.Chunk) (*Result, error) {
	result := &Result{}
	if len(chunks) == 0 {
		return result, nil
	}

	batches := makeBatches(chunks, e.batchSize)
	e.logger.Info("starting extraction", "chunks", len(chunks), "batches", len(batches))

	var mu sync.Mutex
	var wg sync.WaitGroup

	for i, batch := range batches {
		batchIndex := i
		batchChunks := batch

		wg.Add(1)
		submitErr := e.pool.Submit(func() {
			defer wg.Done()
			extraction, err := e.processBatch(ctx, batchChunks)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed = append(result.Failed, FailedBatch{
					Index:    batchIndex,
					ChunkIDs: chunkIDs(batchChunks),
					Reason:   err.Error(),
				})
				e.logger.Warn("batch extraction failed", "batch", batchIndex, "err", err)
				return
			}
			appendRecords(result, extraction, batchChunks)
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			result.Failed = append(result.Failed, FailedBatch{
				Index:    batchIndex,
				ChunkIDs: chunkIDs(batchChunks),
				Reason:   submitErr.Error(),
			})
			mu.Unlock()
		}
	}

	wg.Wait()

	// Deterministic ordering for downstream merge batches.
	sort.SliceStable(result.Failed, func(i, j int) bool {
		return result.Failed[i].Index < result.Failed[j].Index
	})

	e.logger.Info("extraction complete",
		"concepts", len(result.Concepts),
		"relationships", len(result.Relationships),
		"quotes", len(result.Quotes),
		"failedBatches", len(result.Failed))

	return result, ctx.Err()
}

// processBatch runs one model call under the rate limiter, retrying
// throttling and transient failures with backoff. A malformed response is
// a terminal parse failure for the batch: retrying the identical parse
// is already done inside the extractor, so the batch is dropped.
func (e *Extractor) processBatch(ctx context.Context, chunks []core.Chunk) (*ai.Extraction, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	var extraction *ai.Extraction
	var terminalErr error
	err := RetryWithBackoff(ctx, func() error {
		if err := e.limiter.Acquire(ctx, EstimateTokens(texts)); err != nil {
			return err
		}
		var callErr error
		extraction, callErr = e.extractor.ExtractKnowledge(ctx, texts)
		if callErr != nil && !retryableError(callErr) {
			// Malformed output, auth failures and the like will not be
			// cured by another identical call. Stop the retry loop.
			terminalErr = callErr
			return nil
		}
		return callErr
	}, e.maxRetries, e.retryBaseDelay)
	if err != nil {
		return nil, err
	}
	if terminalErr != nil {
		return nil, terminalErr
	}
	return extraction, nil
}

// Release releases the worker pool.
// The extractor should not be used after calling Release.
func (e *Extractor) Release() {
	if e.pool != nil {
		e.pool.Release()
	}
}

// makeBatches partitions chunks into contiguous groups of at most size.
func makeBatches(chunks []core.Chunk, size int) [][]core.Chunk {
	var batches [][]core.Chunk
	for start := 0; start < len(chunks); start += size {
		end := start + size
		if end > len(chunks) {
			end = len(chunks)
		}
		batches = append(batches, chunks[start:end])
	}
	return batches
}

func chunkIDs(chunks []core.Chunk) []core.ID {
	ids := make([]core.ID, len(chunks))
	for i, c := range chunks {
		ids[i] = c.Id
	}
	return ids
}

// appendRecords converts one batch's extraction into provenance-tagged
// records. Chunk indexes were validated by the extractor, so lookups here
// cannot go out of range.
func appendRecords(result *Result, extraction *ai.Extraction, chunks []core.Chunk) {
	for _, c := range extraction.Concepts {
		result.Concepts = append(result.Concepts, ConceptRecord{
			Concept:    c,
			Provenance: provenanceOf(chunks[c.ChunkIndex]),
		})
	}
	for _, r := range extraction.Relationships {
		result.Relationships = append(result.Relationships, RelationshipRecord{
			Relationship: r,
			Provenance:   provenanceOf(chunks[r.ChunkIndex]),
		})
	}
	for _, q := range extraction.Quotes {
		record := QuoteRecord{
			Quote:      q,
			Provenance: provenanceOf(chunks[q.ChunkIndex]),
		}
		// Fall back to chunk markup when the model omitted attribution.
		if record.Quote.Speaker == "" {
			record.Quote.Speaker = chunks[q.ChunkIndex].Speaker
		}
		if record.Quote.Timestamp == "" {
			record.Quote.Timestamp = chunks[q.ChunkIndex].Timestamp
		}
		result.Quotes = append(result.Quotes, record)
	}
}

func provenanceOf(chunk core.Chunk) core.Provenance {
	return core.Provenance{
		EpisodeID:   chunk.EpisodeID,
		SourcePath:  chunk.SourcePath,
		ChunkID:     chunk.Id,
		StartOffset: chunk.StartOffset,
		EndOffset:   chunk.EndOffset,
		Speaker:     chunk.Speaker,
	}
}
