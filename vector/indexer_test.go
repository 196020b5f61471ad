package vector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/episteme/ai/mock"
	"github.com/poiesic/episteme/core"
)

// memStore is a minimal in-memory Store for indexer tests.
type memStore struct {
	mu      sync.Mutex
	entries map[core.ID]Entry
	fail    bool
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[core.ID]Entry)}
}

func (m *memStore) Upsert(ctx context.Context, entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("store unavailable")
	}
	for _, e := range entries {
		m.entries[e.ID] = e
	}
	return nil
}

func (m *memStore) Query(ctx context.Context, workspaceID string, queryVector []float32, limit int, minSimilarity float32) ([]Match, error) {
	return nil, nil
}

func (m *memStore) Count(ctx context.Context, workspaceID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, e := range m.entries {
		if e.WorkspaceID == workspaceID {
			count++
		}
	}
	return count, nil
}

func (m *memStore) DeleteWorkspace(ctx context.Context, workspaceID string) error { return nil }
func (m *memStore) Close() error                                                  { return nil }

func testChunks(n int) []core.Chunk {
	chunks := make([]core.Chunk, n)
	for i := range chunks {
		text := fmt.Sprintf("chunk number %d about mindfulness", i)
		chunks[i] = core.Chunk{
			Id:          core.ChunkID("ep-1", "a.txt", i, i*10, i*10+len(text), text),
			WorkspaceID: "ws-1",
			EpisodeID:   "ep-1",
			SourcePath:  "a.txt",
			Index:       i,
			Text:        text,
		}
	}
	return chunks
}

func TestIndexerRunStoresNormalizedVectors(t *testing.T) {
	store := newMemStore()
	indexer, err := NewIndexer(mock.NewMockEmbedder(), store, WithIndexBatchSize(2))
	require.NoError(t, err)
	defer indexer.Release()

	chunks := testChunks(5)
	indexed, err := indexer.Run(context.Background(), chunks)
	require.NoError(t, err)
	assert.Equal(t, 5, indexed)

	count, err := store.Count(context.Background(), "ws-1")
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	for _, entry := range store.entries {
		assert.InDelta(t, 1.0, float64(DotProduct(entry.Vector, entry.Vector)), 1e-5,
			"stored vectors must be unit length")
		assert.NotEmpty(t, entry.Chunk.Text)
	}
}

func TestIndexerRunIdempotent(t *testing.T) {
	store := newMemStore()
	indexer, err := NewIndexer(mock.NewMockEmbedder(), store)
	require.NoError(t, err)
	defer indexer.Release()

	chunks := testChunks(3)
	_, err = indexer.Run(context.Background(), chunks)
	require.NoError(t, err)
	_, err = indexer.Run(context.Background(), chunks)
	require.NoError(t, err)

	count, err := store.Count(context.Background(), "ws-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count, "re-indexing replaces entries instead of duplicating them")
}

func TestIndexerRunVectorCountMismatch(t *testing.T) {
	embedder := &mock.MockEmbedder{
		EmbedTextsFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
			return [][]float32{{1, 0}}, nil // always one vector, regardless of input
		},
	}

	indexer, err := NewIndexer(embedder, newMemStore(), WithIndexBatchSize(10), WithIndexRetry(1, time.Millisecond))
	require.NoError(t, err)
	defer indexer.Release()

	_, err = indexer.Run(context.Background(), testChunks(3))
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestIndexerRunPropagatesStoreFailure(t *testing.T) {
	store := newMemStore()
	store.fail = true

	indexer, err := NewIndexer(mock.NewMockEmbedder(), store, WithIndexRetry(1, time.Millisecond))
	require.NoError(t, err)
	defer indexer.Release()

	_, err = indexer.Run(context.Background(), testChunks(2))
	assert.Error(t, err)
}

func TestIndexerConstructorValidation(t *testing.T) {
	_, err := NewIndexer(nil, newMemStore())
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewIndexer(mock.NewMockEmbedder(), nil)
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = NewIndexer(mock.NewMockEmbedder(), newMemStore(), WithIndexBatchSize(0))
	assert.ErrorIs(t, err, ErrInvalidBatchSize)
}
