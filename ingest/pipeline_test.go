package ingest

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/episteme/ai"
	"github.com/poiesic/episteme/ai/mock"
	"github.com/poiesic/episteme/core"
	"github.com/poiesic/episteme/graph"
	vectorbadger "github.com/poiesic/episteme/vector/badger"
)

// memGraphStore applies merge semantics in memory: concepts union their
// provenance and episodes, confidence keeps the max.
type memGraphStore struct {
	mu            sync.Mutex
	concepts      map[core.ID]core.Concept
	relationships map[core.ID]core.Relationship
	quotes        map[core.ID]core.Quote
	linkCalls     int
}

func newMemGraphStore() *memGraphStore {
	return &memGraphStore{
		concepts:      make(map[core.ID]core.Concept),
		relationships: make(map[core.ID]core.Relationship),
		quotes:        make(map[core.ID]core.Quote),
	}
}

func (m *memGraphStore) MergeBatch(ctx context.Context, batch *graph.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range batch.Concepts {
		existing, ok := m.concepts[c.Id]
		if !ok {
			m.concepts[c.Id] = c
			continue
		}
		if c.Confidence > existing.Confidence {
			existing.Confidence = c.Confidence
		}
		existing.Provenance = append(existing.Provenance, c.Provenance...)
		for _, ep := range c.EpisodeIDs {
			found := false
			for _, have := range existing.EpisodeIDs {
				if have == ep {
					found = true
					break
				}
			}
			if !found {
				existing.EpisodeIDs = append(existing.EpisodeIDs, ep)
			}
		}
		m.concepts[c.Id] = existing
	}
	for _, r := range batch.Relationships {
		m.relationships[r.Id] = r
	}
	for _, q := range batch.Quotes {
		m.quotes[q.Id] = q
	}
	return nil
}

func (m *memGraphStore) LinkCrossEpisode(ctx context.Context, workspaceID string, cfg graph.LinkerConfig) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.linkCalls++
	links := 0
	for _, c := range m.concepts {
		if c.WorkspaceID == workspaceID && len(c.EpisodeIDs) >= 2 {
			links++
		}
	}
	return links, nil
}

func openVectorStore(t *testing.T) *vectorbadger.Store {
	t.Helper()
	store, err := vectorbadger.OpenStore("", true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// conceptPerChunk returns an extractor that emits one fixed concept for
// every chunk whose text contains the matching keyword.
func conceptPerChunk(keyword, name string) *mock.MockKnowledgeExtractor {
	return &mock.MockKnowledgeExtractor{
		ExtractKnowledgeFunc: func(ctx context.Context, texts []string) (*ai.Extraction, error) {
			out := &ai.Extraction{}
			for i, text := range texts {
				if strings.Contains(strings.ToLower(text), keyword) {
					out.Concepts = append(out.Concepts, ai.ExtractedConcept{
						Name:       name,
						Type:       "Practice",
						Confidence: 0.9,
						ChunkIndex: i,
					})
				}
			}
			return out, nil
		},
	}
}

func meditationTranscripts() []Transcript {
	return []Transcript{
		{
			EpisodeID:  "day-1",
			SourcePath: "talks/day1.txt",
			Content: "TEACHER: Today we begin with breath meditation. " +
				strings.Repeat("Attend to the breath as it moves, noticing beginnings and endings. ", 20),
		},
		{
			EpisodeID:  "day-2",
			SourcePath: "talks/day2.txt",
			Content: "TEACHER: We continue the breath meditation from yesterday. " +
				strings.Repeat("The same breath, met freshly each sitting, deepens concentration. ", 20),
		},
	}
}

func TestPipelineRunProducesSummary(t *testing.T) {
	graphStore := newMemGraphStore()
	vectors := openVectorStore(t)

	pipeline, err := NewPipeline(mock.NewMockProvider(), graphStore, vectors)
	require.NoError(t, err)

	var stages []string
	summary, err := pipeline.Run(context.Background(), "ws-1", meditationTranscripts(), func(p Progress) {
		stages = append(stages, p.Stage)
	})
	require.NoError(t, err)

	assert.Greater(t, summary.Chunks, 0)
	assert.Equal(t, summary.Chunks, summary.VectorsIndexed)
	assert.Greater(t, summary.Concepts, 0)
	assert.Zero(t, summary.FailedBatches)
	assert.Equal(t, 1, graphStore.linkCalls)

	assert.Contains(t, stages, StageChunking)
	assert.Contains(t, stages, StageExtracting)
	assert.Contains(t, stages, StageWriting)
	assert.Contains(t, stages, StageLinking)

	count, err := vectors.Count(context.Background(), "ws-1")
	require.NoError(t, err)
	assert.Equal(t, summary.Chunks, count)
}

func TestPipelineIdempotent(t *testing.T) {
	graphStore := newMemGraphStore()
	vectors := openVectorStore(t)

	pipeline, err := NewPipeline(mock.NewMockProvider(), graphStore, vectors)
	require.NoError(t, err)

	ctx := context.Background()
	first, err := pipeline.Run(ctx, "ws-1", meditationTranscripts(), nil)
	require.NoError(t, err)
	second, err := pipeline.Run(ctx, "ws-1", meditationTranscripts(), nil)
	require.NoError(t, err)

	assert.Equal(t, first.Chunks, second.Chunks)
	assert.Equal(t, len(graphStore.concepts), first.Concepts,
		"re-ingestion merges into existing nodes instead of adding")

	count, err := vectors.Count(ctx, "ws-1")
	require.NoError(t, err)
	assert.Equal(t, first.Chunks, count, "vector entries are overwritten, not duplicated")
}

func TestPipelineMergesConceptAcrossEpisodes(t *testing.T) {
	graphStore := newMemGraphStore()
	vectors := openVectorStore(t)

	provider := mock.NewMockProviderWithServices(
		mock.NewMockEmbedder(),
		conceptPerChunk("breath", "Breath Meditation"),
		mock.NewMockClassifier(),
		mock.NewMockGenerator(),
	)

	pipeline, err := NewPipeline(provider, graphStore, vectors)
	require.NoError(t, err)

	summary, err := pipeline.Run(context.Background(), "ws-1", meditationTranscripts(), nil)
	require.NoError(t, err)

	id := core.ConceptID("ws-1", "breath meditation", "Practice")
	concept, ok := graphStore.concepts[id]
	require.True(t, ok, "the shared concept must resolve to one node")
	assert.ElementsMatch(t, []string{"day-1", "day-2"}, concept.EpisodeIDs)
	assert.Greater(t, summary.CrossEpisodeLinks, 0)
}

func TestPipelineValidation(t *testing.T) {
	graphStore := newMemGraphStore()
	vectors := openVectorStore(t)
	pipeline, err := NewPipeline(mock.NewMockProvider(), graphStore, vectors)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = pipeline.Run(ctx, "", meditationTranscripts(), nil)
	assert.ErrorIs(t, err, core.ErrEmptyWorkspace)

	_, err = pipeline.Run(ctx, "ws-1", nil, nil)
	assert.ErrorIs(t, err, ErrNoTranscripts)

	_, err = pipeline.Run(ctx, "ws-1", []Transcript{{EpisodeID: "", Content: "text"}}, nil)
	assert.ErrorIs(t, err, ErrInvalidTranscript)

	_, err = pipeline.Run(ctx, "ws-1", []Transcript{{EpisodeID: "ep-1", Content: "  "}}, nil)
	assert.ErrorIs(t, err, ErrInvalidTranscript)
}

func TestNewPipelineValidation(t *testing.T) {
	vectors := openVectorStore(t)

	_, err := NewPipeline(nil, newMemGraphStore(), vectors)
	assert.ErrorIs(t, err, ErrProviderRequired)

	_, err = NewPipeline(mock.NewMockProvider(), nil, vectors)
	assert.ErrorIs(t, err, ErrStoresRequired)
}
