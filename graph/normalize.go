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


package graph

import (
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/episteme/core"
	"github.com/poiesic/episteme/extract"
)

// CanonicalName folds a concept name to its canonical form: lowercased,
// with runs of whitespace collapsed to single spaces. "Deep  Focus" and
// "deep focus" refer to the same node.
func CanonicalName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// Batch is a normalized, id-resolved set of records ready for the merge
// writer.
type Batch struct {
	Concepts      []core.Concept
	Relationships []core.Relationship
	Quotes        []core.Quote
}

// Normalizer turns raw extraction records into graph records. Concept names
// are canonicalized and ids derived from (workspace, name, type), so two
// mentions of the same concept in different batches or different episodes
// resolve to the same node without a lookup round-trip. Relationship
// endpoints and quote concept references are rewritten from names to ids.
type Normalizer struct {
	workspaceID string
	logger      *slog.Logger
}

// NewNormalizer creates a normalizer bound to a workspace.
func NewNormalizer(workspaceID string) *Normalizer {
	return &Normalizer{
		workspaceID: workspaceID,
		logger:      slog.Default().With("component", "normalizer"),
	}
}

// Normalize converts an extraction result into a write-ready batch.
// Duplicate concepts within the result are folded together: provenance
// accumulates, confidence takes the max, and the longest description wins.
// Relationships whose endpoints resolve to no concept in the result are
// dropped with a warning; a typed edge needs both of its nodes.
func (n *Normalizer) Normalize(result *extract.Result) *Batch {
	now := time.Now().UTC()
	batch := &Batch{}

	// Concept names may repeat across chunks and across types; the node key
	// is (canonical name, type).
	type conceptKey struct {
		name string
		typ  core.ConceptType
	}
	byKey := make(map[conceptKey]*core.Concept)
	idByName := make(map[string]core.ID)

	for _, rec := range result.Concepts {
		name := CanonicalName(rec.Concept.Name)
		if name == "" {
			continue
		}
		typ := core.ConceptType(rec.Concept.Type)
		key := conceptKey{name: name, typ: typ}

		concept, exists := byKey[key]
		if !exists {
			concept = &core.Concept{
				Id:          core.ConceptID(n.workspaceID, name, typ),
				WorkspaceID: n.workspaceID,
				Name:        name,
				Type:        typ,
				Description: rec.Concept.Description,
				Confidence:  rec.Concept.Confidence,
				InsertedAt:  now,
				UpdatedAt:   now,
			}
			byKey[key] = concept
		}
		if rec.Concept.Confidence > concept.Confidence {
			concept.Confidence = rec.Concept.Confidence
		}
		if len(rec.Concept.Description) > len(concept.Description) {
			concept.Description = rec.Concept.Description
		}
		concept.Provenance = append(concept.Provenance, rec.Provenance)
		concept.EpisodeIDs = appendUnique(concept.EpisodeIDs, rec.Provenance.EpisodeID)
		concept.SourcePaths = appendUnique(concept.SourcePaths, rec.Provenance.SourcePath)

		// Relationship endpoints are names without types; the last type
		// wins only when a name is genuinely ambiguous across types.
		idByName[name] = concept.Id
	}

	for _, concept := range byKey {
		batch.Concepts = append(batch.Concepts, *concept)
	}

	relSeen := make(map[core.ID]int)
	for _, rec := range result.Relationships {
		sourceID, sourceOK := idByName[CanonicalName(rec.Relationship.Source)]
		targetID, targetOK := idByName[CanonicalName(rec.Relationship.Target)]
		if !sourceOK || !targetOK {
			n.logger.Warn("dropping relationship with unresolved endpoint",
				"source", rec.Relationship.Source, "target", rec.Relationship.Target)
			continue
		}
		if sourceID == targetID {
			n.logger.Warn("dropping self-referencing relationship",
				"source", rec.Relationship.Source, "target", rec.Relationship.Target)
			continue
		}
		relType := core.RelationType(rec.Relationship.Type)
		if !slices.Contains(core.RelationTypes, relType) {
			n.logger.Warn("dropping relationship with unknown type", "type", rec.Relationship.Type)
			continue
		}
		id := core.RelationshipID(n.workspaceID, sourceID, targetID, relType)
		if idx, exists := relSeen[id]; exists {
			existing := &batch.Relationships[idx]
			if rec.Relationship.Confidence > existing.Confidence {
				existing.Confidence = rec.Relationship.Confidence
			}
			existing.Provenance = append(existing.Provenance, rec.Provenance)
			continue
		}
		relSeen[id] = len(batch.Relationships)
		batch.Relationships = append(batch.Relationships, core.Relationship{
			Id:          id,
			WorkspaceID: n.workspaceID,
			SourceID:    sourceID,
			TargetID:    targetID,
			Type:        relType,
			Confidence:  rec.Relationship.Confidence,
			Provenance:  []core.Provenance{rec.Provenance},
			InsertedAt:  now,
			UpdatedAt:   now,
		})
	}

	quoteSeen := make(map[core.ID]bool)
	for _, rec := range result.Quotes {
		text := strings.TrimSpace(rec.Quote.Text)
		if text == "" {
			continue
		}
		id := core.QuoteID(n.workspaceID, rec.Provenance.EpisodeID, rec.Provenance.StartOffset, text)
		if quoteSeen[id] {
			continue
		}
		quoteSeen[id] = true

		var conceptIDs []core.ID
		for _, name := range rec.Quote.Concepts {
			if cid, ok := idByName[CanonicalName(name)]; ok {
				conceptIDs = append(conceptIDs, cid)
			}
		}
		batch.Quotes = append(batch.Quotes, core.Quote{
			Id:          id,
			WorkspaceID: n.workspaceID,
			EpisodeID:   rec.Provenance.EpisodeID,
			Text:        text,
			Speaker:     rec.Quote.Speaker,
			Timestamp:   rec.Quote.Timestamp,
			StartOffset: rec.Provenance.StartOffset,
			ConceptIDs:  conceptIDs,
			InsertedAt:  now,
		})
	}

	return batch
}

func appendUnique(items []string, item string) []string {
	if item == "" {
		return items
	}
	for _, existing := range items {
		if existing == item {
			return items
		}
	}
	return append(items, item)
}
