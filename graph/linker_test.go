package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrossEpisodePairs(t *testing.T) {
	candidates := []linkCandidate{
		{ID: "a", Confidence: 0.9, ChunkIDs: []string{"c1", "c2", "c3"}},
		{ID: "b", Confidence: 0.7, ChunkIDs: []string{"c2", "c3", "c4"}},
		{ID: "c", Confidence: 0.9, ChunkIDs: []string{"c9"}},
	}
	pairs := crossEpisodePairs(candidates, LinkerConfig{MinCoOccurrence: 2, MinConfidence: 0.5})

	require.Len(t, pairs, 1)
	assert.Equal(t, "a", pairs[0].SourceID)
	assert.Equal(t, "b", pairs[0].TargetID)
	assert.Equal(t, 2, pairs[0].CoOccurrence)
	assert.InDelta(t, 0.8, pairs[0].Confidence, 1e-9)
}

func TestCrossEpisodePairsConfidenceThreshold(t *testing.T) {
	candidates := []linkCandidate{
		{ID: "a", Confidence: 0.3, ChunkIDs: []string{"c1", "c2"}},
		{ID: "b", Confidence: 0.4, ChunkIDs: []string{"c1", "c2"}},
	}
	pairs := crossEpisodePairs(candidates, LinkerConfig{MinCoOccurrence: 2, MinConfidence: 0.5})
	assert.Empty(t, pairs, "mean confidence 0.35 is below the threshold")
}

func TestCrossEpisodePairsDeterministicOrder(t *testing.T) {
	candidates := []linkCandidate{
		{ID: "a", Confidence: 0.9, ChunkIDs: []string{"c1", "c2"}},
		{ID: "b", Confidence: 0.9, ChunkIDs: []string{"c1", "c2"}},
		{ID: "c", Confidence: 0.9, ChunkIDs: []string{"c1", "c2"}},
	}
	cfg := LinkerConfig{MinCoOccurrence: 1, MinConfidence: 0}
	first := crossEpisodePairs(candidates, cfg)
	second := crossEpisodePairs(candidates, cfg)
	assert.Equal(t, first, second)
	require.Len(t, first, 3)
	assert.Equal(t, "a", first[0].SourceID)
	assert.Equal(t, "b", first[0].TargetID)
}

func TestCrossEpisodePairsIgnoreRowOrder(t *testing.T) {
	// The candidate query has no ORDER BY; edge direction must come from
	// the IDs, not from whatever order the store returned the rows in.
	forward := []linkCandidate{
		{ID: "aaa", Confidence: 0.9, ChunkIDs: []string{"c1", "c2"}},
		{ID: "bbb", Confidence: 0.9, ChunkIDs: []string{"c1", "c2"}},
	}
	reversed := []linkCandidate{forward[1], forward[0]}
	cfg := LinkerConfig{MinCoOccurrence: 2, MinConfidence: 0.5}

	first := crossEpisodePairs(forward, cfg)
	second := crossEpisodePairs(reversed, cfg)
	assert.Equal(t, first, second)
	require.Len(t, first, 1)
	assert.Equal(t, "aaa", first[0].SourceID)
	assert.Equal(t, "bbb", first[0].TargetID)
}

func TestLinkerConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultLinkerConfig().Validate())
	assert.ErrorIs(t, LinkerConfig{MinCoOccurrence: 0, MinConfidence: 0.5}.Validate(), ErrInvalidLinkerConfig)
	assert.ErrorIs(t, LinkerConfig{MinCoOccurrence: 1, MinConfidence: 1.5}.Validate(), ErrInvalidLinkerConfig)
}

func TestSharedCount(t *testing.T) {
	assert.Equal(t, 0, sharedCount(nil, []string{"a"}))
	assert.Equal(t, 2, sharedCount([]string{"a", "b", "c"}, []string{"b", "c", "d"}))
}
