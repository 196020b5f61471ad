package query

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/episteme/ai/mock"
	"github.com/poiesic/episteme/core"
	"github.com/poiesic/episteme/graph"
	"github.com/poiesic/episteme/session"
	"github.com/poiesic/episteme/vector"
)

// fakeVectorStore serves canned matches and counts queries.
type fakeVectorStore struct {
	matches    []vector.Match
	queryCount atomic.Int64
	fail       bool
}

func (f *fakeVectorStore) Upsert(ctx context.Context, entries []vector.Entry) error { return nil }

func (f *fakeVectorStore) Query(ctx context.Context, workspaceID string, queryVector []float32, limit int, minSimilarity float32) ([]vector.Match, error) {
	f.queryCount.Add(1)
	if f.fail {
		return nil, errors.New("vector store down")
	}
	var out []vector.Match
	for _, m := range f.matches {
		if m.Entry.WorkspaceID == workspaceID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeVectorStore) Count(ctx context.Context, workspaceID string) (int, error) {
	return len(f.matches), nil
}

func (f *fakeVectorStore) DeleteWorkspace(ctx context.Context, workspaceID string) error { return nil }
func (f *fakeVectorStore) Close() error                                                  { return nil }

// fakeGraph serves canned hits.
type fakeGraph struct {
	hits        []graph.SearchHit
	searchCount atomic.Int64
	fail        bool
}

func (f *fakeGraph) Search(ctx context.Context, workspaceID, question string, limit int) ([]graph.SearchHit, error) {
	f.searchCount.Add(1)
	if f.fail {
		return nil, errors.New("neo4j unreachable")
	}
	return f.hits, nil
}

func testEngine(t *testing.T, vectors *fakeVectorStore, searcher *fakeGraph, opts ...EngineOption) *Engine {
	t.Helper()
	engine, err := NewEngine(mock.NewMockProvider(), vectors, searcher, opts...)
	require.NoError(t, err)
	return engine
}

func TestAskValidatesRequest(t *testing.T) {
	engine := testEngine(t, &fakeVectorStore{}, &fakeGraph{})

	_, err := engine.Ask(context.Background(), Request{Question: "q"})
	assert.ErrorIs(t, err, ErrEmptyWorkspace)

	_, err = engine.Ask(context.Background(), Request{WorkspaceID: "ws-1", Question: "  "})
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestAskOutOfScopeSkipsRetrieval(t *testing.T) {
	vectors := &fakeVectorStore{}
	searcher := &fakeGraph{}
	engine := testEngine(t, vectors, searcher)

	answer, err := engine.Ask(context.Background(), Request{
		WorkspaceID: "ws-1",
		Question:    "What is the weather today?",
	})
	require.NoError(t, err)

	assert.Equal(t, IntentOutOfScope, answer.Intent)
	assert.Equal(t, StrategyNone, answer.Strategy)
	assert.Contains(t, answer.Text, "outside the material")
	assert.Zero(t, vectors.queryCount.Load(), "out-of-scope questions must not retrieve")
	assert.Zero(t, searcher.searchCount.Load())
}

func TestAskGreeting(t *testing.T) {
	engine := testEngine(t, &fakeVectorStore{}, &fakeGraph{})

	answer, err := engine.Ask(context.Background(), Request{WorkspaceID: "ws-1", Question: "hello there"})
	require.NoError(t, err)
	assert.Equal(t, IntentGreeting, answer.Intent)
	assert.NotEmpty(t, answer.Text)
}

func TestAskKnowledgeReturnsSourcesAndCounts(t *testing.T) {
	vectors := &fakeVectorStore{matches: []vector.Match{
		vectorMatch("the breath anchors attention", "ep-1", 0, 0.9),
		vectorMatch("posture supports alertness", "ep-1", 1, 0.8),
	}}
	for i := range vectors.matches {
		vectors.matches[i].Entry.WorkspaceID = "ws-1"
		vectors.matches[i].Entry.Chunk.WorkspaceID = "ws-1"
	}
	searcher := &fakeGraph{hits: []graph.SearchHit{
		graphHit("c-1", "breath", "ep-1", 1.5),
	}}
	engine := testEngine(t, vectors, searcher)

	answer, err := engine.Ask(context.Background(), Request{
		WorkspaceID: "ws-1",
		Question:    "How does breath relate to attention?",
	})
	require.NoError(t, err)

	assert.Equal(t, IntentKnowledge, answer.Intent)
	assert.Equal(t, StrategyHybrid, answer.Strategy)
	assert.Equal(t, 2, answer.VectorHits)
	assert.Equal(t, 1, answer.GraphHits)
	assert.False(t, answer.Degraded)
	require.Len(t, answer.Sources, 3)
	assert.Equal(t, "chunk", answer.Sources[0].Kind)
}

func TestAskDegradedPathStillAnswers(t *testing.T) {
	vectors := &fakeVectorStore{matches: []vector.Match{
		vectorMatch("surviving context", "ep-1", 0, 0.9),
	}}
	vectors.matches[0].Entry.WorkspaceID = "ws-1"
	searcher := &fakeGraph{fail: true}
	engine := testEngine(t, vectors, searcher)

	answer, err := engine.Ask(context.Background(), Request{
		WorkspaceID: "ws-1",
		Question:    "What survives a partial outage?",
	})
	require.NoError(t, err)
	assert.True(t, answer.Degraded)
	assert.Equal(t, 1, answer.VectorHits)
	assert.Zero(t, answer.GraphHits)
	assert.NotEmpty(t, answer.Text)
}

func TestAskStreamDeliversFragments(t *testing.T) {
	engine := testEngine(t, &fakeVectorStore{}, &fakeGraph{})

	var fragments []string
	answer, err := engine.AskStream(context.Background(),
		Request{WorkspaceID: "ws-1", Question: "Tell me about practice."},
		func(ctx context.Context, fragment []byte) error {
			fragments = append(fragments, string(fragment))
			return nil
		})
	require.NoError(t, err)

	assert.NotEmpty(t, fragments)
	assert.Equal(t, answer.Text, strings.Join(fragments, ""),
		"joined fragments must equal the final answer text")
}

func TestAskRemembersSessionTurns(t *testing.T) {
	sessions, err := session.OpenStore("", true)
	require.NoError(t, err)
	defer sessions.Close()

	engine := testEngine(t, &fakeVectorStore{}, &fakeGraph{}, WithSessionStore(sessions))
	ctx := context.Background()

	_, err = engine.Ask(ctx, Request{WorkspaceID: "ws-1", Question: "What is mindfulness?", SessionID: "s-1"})
	require.NoError(t, err)
	_, err = engine.Ask(ctx, Request{WorkspaceID: "ws-1", Question: "And how is it practiced?", SessionID: "s-1"})
	require.NoError(t, err)

	turns, err := sessions.GetRecent(ctx, "ws-1", "s-1", 10)
	require.NoError(t, err)
	require.Len(t, turns, 4, "each ask appends question and answer")
	assert.Equal(t, core.TurnRoleUser, turns[0].Role)
	assert.Equal(t, "What is mindfulness?", turns[0].Content)
	assert.Equal(t, core.TurnRoleAssistant, turns[1].Role)
	assert.Equal(t, core.TurnRoleUser, turns[2].Role)
}

func TestAskWithoutSessionDoesNotRequireStore(t *testing.T) {
	engine := testEngine(t, &fakeVectorStore{}, &fakeGraph{})
	answer, err := engine.Ask(context.Background(), Request{WorkspaceID: "ws-1", Question: "No session here."})
	require.NoError(t, err)
	assert.Empty(t, answer.SessionID)
}

func TestSnippetOf(t *testing.T) {
	short := "fits in one snippet"
	assert.Equal(t, short, snippetOf(short))

	long := strings.Repeat("следуй за дыханием ", 20)
	require.Greater(t, len(long), snippetLimit)
	snippet := snippetOf(long)
	assert.True(t, utf8.ValidString(snippet), "truncation must not split a rune")
	assert.True(t, strings.HasSuffix(snippet, "…"))
	assert.LessOrEqual(t, len(snippet), snippetLimit+len("…"))
}

func TestNewEngineValidation(t *testing.T) {
	_, err := NewEngine(nil, &fakeVectorStore{}, &fakeGraph{})
	assert.ErrorIs(t, err, ErrProviderRequired)

	_, err = NewEngine(mock.NewMockProvider(), nil, &fakeGraph{})
	assert.ErrorIs(t, err, ErrStoresRequired)
}
