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


package vector

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/episteme/ai"
	"github.com/poiesic/episteme/core"
	"github.com/poiesic/episteme/extract"
)

const (
	defaultIndexBatchSize   = 32
	defaultIndexConcurrency = 8
	defaultIndexRetries     = 5
	defaultIndexRetryDelay  = time.Second
)

// Indexer embeds chunks and upserts them into a vector store. It shares the
// extraction pipeline's rate limiter so embedding and extraction calls draw
// from one token budget.
type Indexer struct {
	embedder   ai.Embedder
	store      Store
	limiter    *extract.RateLimiter
	pool       *ants.Pool
	batchSize  int
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer) error

// WithIndexBatchSize sets how many chunks are embedded per call.
func WithIndexBatchSize(size int) IndexerOption {
	return func(ix *Indexer) error {
		if size < 1 {
			return ErrInvalidBatchSize
		}
		ix.batchSize = size
		return nil
	}
}

// WithIndexConcurrency sets the worker pool size.
func WithIndexConcurrency(size int) IndexerOption {
	return func(ix *Indexer) error {
		if size < 1 {
			return ErrInvalidBatchSize
		}
		if ix.pool != nil {
			ix.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		ix.pool = pool
		return nil
	}
}

// WithIndexRateLimiter sets the shared tokens-per-minute limiter.
func WithIndexRateLimiter(limiter *extract.RateLimiter) IndexerOption {
	return func(ix *Indexer) error {
		ix.limiter = limiter
		return nil
	}
}

// WithIndexRetry sets the retry cap and base backoff delay.
func WithIndexRetry(maxRetries int, baseDelay time.Duration) IndexerOption {
	return func(ix *Indexer) error {
		if maxRetries < 1 {
			return extract.ErrInvalidMaxAttempts
		}
		ix.maxRetries = maxRetries
		ix.retryDelay = baseDelay
		return nil
	}
}

// NewIndexer creates an embedding indexer.
func NewIndexer(embedder ai.Embedder, store Store, opts ...IndexerOption) (*Indexer, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}

	pool, err := ants.NewPool(defaultIndexConcurrency)
	if err != nil {
		return nil, err
	}

	ix := &Indexer{
		embedder:   embedder,
		store:      store,
		limiter:    extract.NewRateLimiter(0),
		pool:       pool,
		batchSize:  defaultIndexBatchSize,
		maxRetries: defaultIndexRetries,
		retryDelay: defaultIndexRetryDelay,
		logger:     slog.Default().With("component", "vector-indexer"),
	}
	for _, opt := range opts {
		if optErr := opt(ix); optErr != nil {
			ix.Release()
			return nil, optErr
		}
	}
	return ix, nil
}

// Run embeds all chunks and upserts them. Returns the number of vectors
// indexed. A failed batch fails the run: unlike extraction, indexing has no
// partial-result value, the caller simply retries ingestion.
func (ix *Indexer) Run(ctx context.Context, chunks []core.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		indexed  int
		firstErr error
	)

	for start := 0; start < len(chunks); start += ix.batchSize {
		end := start + ix.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		wg.Add(1)
		submitErr := ix.pool.Submit(func() {
			defer wg.Done()
			n, err := ix.indexBatch(ctx, batch)

			mu.Lock()
			defer mu.Unlock()
			if err != nil && firstErr == nil {
				firstErr = err
				return
			}
			indexed += n
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = submitErr
			}
			mu.Unlock()
		}
	}

	wg.Wait()
	if firstErr != nil {
		return indexed, firstErr
	}

	ix.logger.Info("indexing complete", "vectors", indexed)
	return indexed, nil
}

func (ix *Indexer) indexBatch(ctx context.Context, chunks []core.Chunk) (int, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	var vectors [][]float32
	err := extract.RetryWithBackoff(ctx, func() error {
		if acquireErr := ix.limiter.Acquire(ctx, extract.EstimateTokens(texts)); acquireErr != nil {
			return acquireErr
		}
		var embedErr error
		vectors, embedErr = ix.embedder.EmbedTexts(ctx, texts)
		return embedErr
	}, ix.maxRetries, ix.retryDelay)
	if err != nil {
		return 0, fmt.Errorf("failed to embed batch: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("%w: got %d vectors for %d chunks", ErrDimensionMismatch, len(vectors), len(chunks))
	}

	entries := make([]Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = Entry{
			ID:          c.Id,
			WorkspaceID: c.WorkspaceID,
			Vector:      Normalize(vectors[i]),
			Chunk:       c,
		}
	}
	if err := ix.store.Upsert(ctx, entries); err != nil {
		return 0, fmt.Errorf("failed to upsert batch: %w", err)
	}
	return len(entries), nil
}

// Release releases the worker pool.
func (ix *Indexer) Release() {
	if ix.pool != nil {
		ix.pool.Release()
	}
}
