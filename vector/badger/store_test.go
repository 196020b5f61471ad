package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/episteme/ai/mock"
	"github.com/poiesic/episteme/core"
	"github.com/poiesic/episteme/vector"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore("", true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func makeEntry(workspace, text string, index int) vector.Entry {
	chunk := core.Chunk{
		Id:          core.ChunkID("ep-1", "a.txt", index, index*10, index*10+len(text), text),
		WorkspaceID: workspace,
		EpisodeID:   "ep-1",
		SourcePath:  "a.txt",
		Index:       index,
		Text:        text,
	}
	return vector.Entry{
		ID:          chunk.Id,
		WorkspaceID: workspace,
		Vector:      mock.DeterministicVector(text, 64),
		Chunk:       chunk,
	}
}

func TestStoreUpsertAndQuery(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	entries := []vector.Entry{
		makeEntry("ws-1", "breath awareness practice", 0),
		makeEntry("ws-1", "walking meditation outside", 1),
		makeEntry("ws-1", "lunch schedule for tuesday", 2),
	}
	require.NoError(t, store.Upsert(ctx, entries))

	count, err := store.Count(ctx, "ws-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// Querying with an indexed vector must return that entry first with
	// score ~1.
	matches, err := store.Query(ctx, "ws-1", entries[0].Vector, 10, 0)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, entries[0].ID, matches[0].Entry.ID)
	assert.InDelta(t, 1.0, float64(matches[0].Score), 1e-5)
	assert.Equal(t, "breath awareness practice", matches[0].Entry.Chunk.Text)
}

func TestStoreUpsertIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	entry := makeEntry("ws-1", "repeated chunk", 0)
	require.NoError(t, store.Upsert(ctx, []vector.Entry{entry}))
	require.NoError(t, store.Upsert(ctx, []vector.Entry{entry}))

	count, err := store.Count(ctx, "ws-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStoreWorkspaceIsolation(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	alpha := makeEntry("ws-alpha", "shared topic text", 0)
	beta := makeEntry("ws-beta", "shared topic text", 0)
	require.NoError(t, store.Upsert(ctx, []vector.Entry{alpha, beta}))

	matches, err := store.Query(ctx, "ws-alpha", alpha.Vector, 10, 0)
	require.NoError(t, err)
	for _, m := range matches {
		assert.Equal(t, "ws-alpha", m.Entry.WorkspaceID)
	}

	count, err := store.Count(ctx, "ws-beta")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStoreQueryRespectsLimitAndThreshold(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	var entries []vector.Entry
	for i := 0; i < 10; i++ {
		entries = append(entries, makeEntry("ws-1", "text variant", i))
	}
	require.NoError(t, store.Upsert(ctx, entries))

	matches, err := store.Query(ctx, "ws-1", entries[0].Vector, 3, 0)
	require.NoError(t, err)
	assert.Len(t, matches, 3)

	// An impossible threshold returns nothing.
	matches, err = store.Query(ctx, "ws-1", entries[0].Vector, 10, 1.1)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestStoreDeleteWorkspace(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []vector.Entry{
		makeEntry("ws-1", "first", 0),
		makeEntry("ws-2", "second", 0),
	}))
	require.NoError(t, store.DeleteWorkspace(ctx, "ws-1"))

	count, err := store.Count(ctx, "ws-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	count, err = store.Count(ctx, "ws-2")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
