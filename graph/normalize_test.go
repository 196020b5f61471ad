package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/episteme/ai"
	"github.com/poiesic/episteme/core"
	"github.com/poiesic/episteme/extract"
)

func TestCanonicalName(t *testing.T) {
	assert.Equal(t, "deep focus", CanonicalName("Deep  Focus"))
	assert.Equal(t, "deep focus", CanonicalName("  deep\tfocus \n"))
	assert.Equal(t, "breath", CanonicalName("BREATH"))
	assert.Equal(t, "", CanonicalName("   "))
}

func prov(episode string, chunk core.ID) core.Provenance {
	return core.Provenance{
		EpisodeID:  episode,
		SourcePath: "talks/" + episode + ".txt",
		ChunkID:    chunk,
	}
}

func TestNormalizeFoldsDuplicateConcepts(t *testing.T) {
	n := NewNormalizer("ws-1")
	result := &extract.Result{
		Concepts: []extract.ConceptRecord{
			{
				Concept:    ai.ExtractedConcept{Name: "Deep Focus", Type: "CognitiveState", Confidence: 0.6, Description: "short"},
				Provenance: prov("ep-1", 100),
			},
			{
				Concept:    ai.ExtractedConcept{Name: "deep  focus", Type: "CognitiveState", Confidence: 0.9, Description: "a longer description"},
				Provenance: prov("ep-2", 200),
			},
		},
	}

	batch := n.Normalize(result)
	require.Len(t, batch.Concepts, 1)

	c := batch.Concepts[0]
	assert.Equal(t, "deep focus", c.Name)
	assert.Equal(t, core.ConceptID("ws-1", "deep focus", "CognitiveState"), c.Id)
	assert.Equal(t, 0.9, c.Confidence, "max confidence wins")
	assert.Equal(t, "a longer description", c.Description)
	assert.ElementsMatch(t, []string{"ep-1", "ep-2"}, c.EpisodeIDs)
	assert.Len(t, c.Provenance, 2)
}

func TestNormalizeSameNameDifferentTypeStaysSeparate(t *testing.T) {
	n := NewNormalizer("ws-1")
	result := &extract.Result{
		Concepts: []extract.ConceptRecord{
			{Concept: ai.ExtractedConcept{Name: "Vipassana", Type: "Practice", Confidence: 0.8}, Provenance: prov("ep-1", 1)},
			{Concept: ai.ExtractedConcept{Name: "Vipassana", Type: "Event", Confidence: 0.7}, Provenance: prov("ep-1", 2)},
		},
	}
	batch := n.Normalize(result)
	assert.Len(t, batch.Concepts, 2)
}

func TestNormalizeRewritesRelationshipEndpoints(t *testing.T) {
	n := NewNormalizer("ws-1")
	result := &extract.Result{
		Concepts: []extract.ConceptRecord{
			{Concept: ai.ExtractedConcept{Name: "Breath Awareness", Type: "Practice", Confidence: 0.8}, Provenance: prov("ep-1", 1)},
			{Concept: ai.ExtractedConcept{Name: "Calm", Type: "CognitiveState", Confidence: 0.7}, Provenance: prov("ep-1", 1)},
		},
		Relationships: []extract.RelationshipRecord{
			{
				Relationship: ai.ExtractedRelationship{Source: "breath awareness", Target: "CALM", Type: "LEADS_TO", Confidence: 0.75},
				Provenance:   prov("ep-1", 1),
			},
		},
	}

	batch := n.Normalize(result)
	require.Len(t, batch.Relationships, 1)

	rel := batch.Relationships[0]
	assert.Equal(t, core.ConceptID("ws-1", "breath awareness", "Practice"), rel.SourceID)
	assert.Equal(t, core.ConceptID("ws-1", "calm", "CognitiveState"), rel.TargetID)
	assert.Equal(t, core.RelationLeadsTo, rel.Type)
	assert.Equal(t, core.RelationshipID("ws-1", rel.SourceID, rel.TargetID, rel.Type), rel.Id)
}

func TestNormalizeDropsRelationshipsWithUnknownEndpoints(t *testing.T) {
	n := NewNormalizer("ws-1")
	result := &extract.Result{
		Concepts: []extract.ConceptRecord{
			{Concept: ai.ExtractedConcept{Name: "Calm", Type: "CognitiveState", Confidence: 0.7}, Provenance: prov("ep-1", 1)},
		},
		Relationships: []extract.RelationshipRecord{
			{
				Relationship: ai.ExtractedRelationship{Source: "nonexistent", Target: "calm", Type: "CAUSES", Confidence: 0.9},
				Provenance:   prov("ep-1", 1),
			},
		},
	}
	batch := n.Normalize(result)
	assert.Empty(t, batch.Relationships)
}

func TestNormalizeDropsSelfAndUnknownTypeRelationships(t *testing.T) {
	n := NewNormalizer("ws-1")
	result := &extract.Result{
		Concepts: []extract.ConceptRecord{
			{Concept: ai.ExtractedConcept{Name: "Calm", Type: "CognitiveState", Confidence: 0.7}, Provenance: prov("ep-1", 1)},
			{Concept: ai.ExtractedConcept{Name: "Focus", Type: "CognitiveState", Confidence: 0.7}, Provenance: prov("ep-1", 1)},
		},
		Relationships: []extract.RelationshipRecord{
			// Both endpoints resolve to the same node.
			{
				Relationship: ai.ExtractedRelationship{Source: "calm", Target: "CALM", Type: "CAUSES", Confidence: 0.9},
				Provenance:   prov("ep-1", 1),
			},
			// An edge type outside the known set never reaches the writer.
			{
				Relationship: ai.ExtractedRelationship{Source: "calm", Target: "focus", Type: "MADE_UP_TYPE", Confidence: 0.9},
				Provenance:   prov("ep-1", 1),
			},
		},
	}
	batch := n.Normalize(result)
	assert.Empty(t, batch.Relationships)
}

func TestNormalizeMergesDuplicateRelationships(t *testing.T) {
	n := NewNormalizer("ws-1")
	rel := ai.ExtractedRelationship{Source: "a-thing", Target: "b-thing", Type: "CAUSES", Confidence: 0.5}
	strongRel := rel
	strongRel.Confidence = 0.8
	result := &extract.Result{
		Concepts: []extract.ConceptRecord{
			{Concept: ai.ExtractedConcept{Name: "a-thing", Type: "Concept", Confidence: 0.8}, Provenance: prov("ep-1", 1)},
			{Concept: ai.ExtractedConcept{Name: "b-thing", Type: "Concept", Confidence: 0.8}, Provenance: prov("ep-1", 1)},
		},
		Relationships: []extract.RelationshipRecord{
			{Relationship: rel, Provenance: prov("ep-1", 1)},
			{Relationship: strongRel, Provenance: prov("ep-2", 2)},
		},
	}

	batch := n.Normalize(result)
	require.Len(t, batch.Relationships, 1)
	assert.Equal(t, 0.8, batch.Relationships[0].Confidence)
	assert.Len(t, batch.Relationships[0].Provenance, 2)
}

func TestNormalizeQuotes(t *testing.T) {
	n := NewNormalizer("ws-1")
	quoteProv := prov("ep-1", 7)
	quoteProv.StartOffset = 120
	result := &extract.Result{
		Concepts: []extract.ConceptRecord{
			{Concept: ai.ExtractedConcept{Name: "Patience", Type: "Concept", Confidence: 0.9}, Provenance: prov("ep-1", 7)},
		},
		Quotes: []extract.QuoteRecord{
			{
				Quote:      ai.ExtractedQuote{Text: " Patience is the practice. ", Speaker: "Teacher A", Concepts: []string{"patience", "missing"}},
				Provenance: quoteProv,
			},
			{
				Quote:      ai.ExtractedQuote{Text: "Patience is the practice.", Speaker: "Teacher A"},
				Provenance: quoteProv,
			},
		},
	}

	batch := n.Normalize(result)
	require.Len(t, batch.Quotes, 1, "identical quotes deduplicate by content id")

	q := batch.Quotes[0]
	assert.Equal(t, "Patience is the practice.", q.Text)
	assert.Equal(t, 120, q.StartOffset)
	assert.Equal(t, core.QuoteID("ws-1", "ep-1", 120, q.Text), q.Id)
	require.Len(t, q.ConceptIDs, 1, "unresolvable concept references are dropped")
	assert.Equal(t, core.ConceptID("ws-1", "patience", "Concept"), q.ConceptIDs[0])
}
