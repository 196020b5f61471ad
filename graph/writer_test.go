package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/episteme/core"
)

func TestConceptRowsShape(t *testing.T) {
	concepts := []core.Concept{
		{
			Id:          core.ConceptID("ws-1", "patience", "Concept"),
			WorkspaceID: "ws-1",
			Name:        "patience",
			Type:        "Concept",
			Confidence:  0.9,
			Provenance:  []core.Provenance{{EpisodeID: "ep-1", ChunkID: 42}},
			EpisodeIDs:  []string{"ep-1"},
		},
	}

	rows := conceptRows(concepts)
	require.Len(t, rows, 1)
	assert.Equal(t, concepts[0].Id.Hex(), rows[0]["id"])
	assert.Equal(t, "ws-1", rows[0]["workspace"])
	assert.Equal(t, []string{core.ID(42).Hex()}, rows[0]["chunkIds"])
	assert.Equal(t, []string{}, rows[0]["sources"], "nil slices become empty lists for Cypher union")
}

func TestProvenanceJSONDeterministic(t *testing.T) {
	p := core.Provenance{EpisodeID: "ep-1", SourcePath: "a.txt", ChunkID: 7, StartOffset: 10, EndOffset: 20, Speaker: "S"}
	first := provenanceJSON([]core.Provenance{p})
	second := provenanceJSON([]core.Provenance{p})
	require.Len(t, first, 1)
	assert.Equal(t, first, second, "identical provenance must encode identically for list union")
}

func TestValidateBatch(t *testing.T) {
	valid := func() *Batch {
		return &Batch{
			Concepts: []core.Concept{
				{
					Id:          core.ConceptID("ws-1", "patience", "Concept"),
					WorkspaceID: "ws-1",
					Name:        "patience",
					Type:        "Concept",
					Confidence:  0.9,
				},
			},
			Relationships: []core.Relationship{
				{Id: 1, WorkspaceID: "ws-1", SourceID: 10, TargetID: 11, Type: core.RelationCauses, Confidence: 0.8},
			},
			Quotes: []core.Quote{
				{Id: 2, WorkspaceID: "ws-1", EpisodeID: "ep-1", Text: "Patience is the practice."},
			},
		}
	}

	t.Run("valid batch passes", func(t *testing.T) {
		assert.NoError(t, validateBatch(valid()))
	})

	t.Run("arbitrary relationship type is rejected", func(t *testing.T) {
		// The edge type ends up spliced into Cypher text, so anything
		// outside the known constants must never reach the store.
		batch := valid()
		batch.Relationships[0].Type = `FOO {id:"x"}]->(t) DETACH DELETE t //`
		err := validateBatch(batch)
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrUnknownRelationType)
	})

	t.Run("cross-episode type is allowed", func(t *testing.T) {
		batch := valid()
		batch.Relationships[0].Type = core.RelationCrossEpisode
		assert.NoError(t, validateBatch(batch))
	})

	t.Run("unknown concept type is rejected", func(t *testing.T) {
		batch := valid()
		batch.Concepts[0].Type = "Gadget"
		assert.ErrorIs(t, validateBatch(batch), core.ErrUnknownConceptType)
	})
}

func TestRelationshipsByType(t *testing.T) {
	rels := []core.Relationship{
		{Id: 1, WorkspaceID: "ws-1", SourceID: 10, TargetID: 11, Type: core.RelationCauses, Confidence: 0.8},
		{Id: 2, WorkspaceID: "ws-1", SourceID: 10, TargetID: 12, Type: core.RelationCauses, Confidence: 0.7},
		{Id: 3, WorkspaceID: "ws-1", SourceID: 11, TargetID: 12, Type: core.RelationLeadsTo, Confidence: 0.6},
	}

	grouped := relationshipsByType(rels)
	assert.Len(t, grouped, 2)
	assert.Len(t, grouped[core.RelationCauses], 2)
	assert.Len(t, grouped[core.RelationLeadsTo], 1)
	assert.Equal(t, core.ID(10).Hex(), grouped[core.RelationCauses][0]["sourceId"])
}

func TestChunkIDHexesDeduplicates(t *testing.T) {
	entries := []core.Provenance{
		{ChunkID: 1}, {ChunkID: 2}, {ChunkID: 1},
	}
	hexes := chunkIDHexes(entries)
	assert.Equal(t, []string{core.ID(1).Hex(), core.ID(2).Hex()}, hexes)
}

func TestSearchTerms(t *testing.T) {
	terms := searchTerms("What did the teacher say about deep concentration?")
	assert.Equal(t, []string{"teacher", "deep", "concentration"}, terms)

	assert.Empty(t, searchTerms("what is it?"))
	assert.Empty(t, searchTerms(""))
}
