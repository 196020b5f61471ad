package chunk

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testEpisode = Episode{
	WorkspaceID: "ws-1",
	EpisodeID:   "ep-1",
	SourcePath:  "ep1.txt",
}

func TestSplit_Deterministic(t *testing.T) {
	chunker, err := NewChunker()
	require.NoError(t, err)

	var sb strings.Builder
	for i := 0; i < 200; i++ {
		fmt.Fprintf(&sb, "HOST: this is line %d of a long conversation about meditation and focus.\n", i)
	}
	text := sb.String()

	first := chunker.Split(testEpisode, text)
	second := chunker.Split(testEpisode, text)

	require.NotEmpty(t, first)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Id, second[i].Id)
		assert.Equal(t, first[i].StartOffset, second[i].StartOffset)
		assert.Equal(t, first[i].EndOffset, second[i].EndOffset)
	}
}

func TestSplit_OffsetsMatchSource(t *testing.T) {
	chunker, err := NewChunker(WithWindowSize(100), WithOverlap(20))
	require.NoError(t, err)

	text := strings.Repeat("abcdefghij", 50)
	chunks := chunker.Split(testEpisode, text)

	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.Equal(t, text[c.StartOffset:c.EndOffset], c.Text)
	}
	assert.Equal(t, 0, chunks[0].StartOffset)
	assert.Equal(t, len(text), chunks[len(chunks)-1].EndOffset)
}

func TestSplit_OverlapBetweenChunks(t *testing.T) {
	chunker, err := NewChunker(WithWindowSize(100), WithOverlap(20))
	require.NoError(t, err)

	text := strings.Repeat("x", 300)
	chunks := chunker.Split(testEpisode, text)

	require.GreaterOrEqual(t, len(chunks), 2)
	for i := 1; i < len(chunks); i++ {
		assert.Equal(t, chunks[i-1].EndOffset-20, chunks[i].StartOffset)
	}
}

func TestSplit_PrefersSpeakerBoundaries(t *testing.T) {
	chunker, err := NewChunker(WithWindowSize(120), WithOverlap(10))
	require.NoError(t, err)

	// A speaker turn sits inside the back half of the first window.
	text := "ALICE: " + strings.Repeat("a", 80) + "\nBOB: " + strings.Repeat("b", 200)
	chunks := chunker.Split(testEpisode, text)

	require.GreaterOrEqual(t, len(chunks), 2)
	boundary := strings.Index(text, "BOB:")
	assert.Equal(t, boundary, chunks[0].EndOffset, "first chunk should end at the speaker turn")
	assert.Equal(t, "ALICE", chunks[0].Speaker)
}

func TestSplit_TimestampMarkers(t *testing.T) {
	chunker, err := NewChunker(WithWindowSize(200), WithOverlap(0))
	require.NoError(t, err)

	text := "[00:00:05] — Alice: " + strings.Repeat("intro ", 20) +
		"\n[00:14:32] — Bob: " + strings.Repeat("detail ", 40)
	chunks := chunker.Split(testEpisode, text)

	require.NotEmpty(t, chunks)
	assert.Equal(t, "00:00:05", chunks[0].Timestamp)
	assert.Equal(t, "Alice", chunks[0].Speaker)

	last := chunks[len(chunks)-1]
	assert.Equal(t, "00:14:32", last.Timestamp)
	assert.Equal(t, "Bob", last.Speaker)
}

func TestSplit_NoMarkersFallsBackToCharCount(t *testing.T) {
	chunker, err := NewChunker(WithWindowSize(100), WithOverlap(0))
	require.NoError(t, err)

	text := strings.Repeat("z", 250)
	chunks := chunker.Split(testEpisode, text)

	require.Len(t, chunks, 3)
	assert.Equal(t, 100, chunks[0].EndOffset)
	assert.Equal(t, 200, chunks[1].EndOffset)
	assert.Equal(t, 250, chunks[2].EndOffset)
	assert.Empty(t, chunks[0].Speaker)
}

func TestSplit_EmptyInput(t *testing.T) {
	chunker, err := NewChunker()
	require.NoError(t, err)

	assert.Nil(t, chunker.Split(testEpisode, ""))
	assert.Nil(t, chunker.Split(testEpisode, "   \n  "))
}

func TestNewChunker_InvalidOptions(t *testing.T) {
	_, err := NewChunker(WithWindowSize(0))
	assert.ErrorIs(t, err, ErrInvalidWindowSize)

	_, err = NewChunker(WithWindowSize(100), WithOverlap(100))
	assert.ErrorIs(t, err, ErrInvalidOverlap)

	_, err = NewChunker(WithOverlap(-1))
	assert.ErrorIs(t, err, ErrInvalidOverlap)
}
