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
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/poiesic/episteme/core"
)

// mergeConceptsQuery merges concept nodes on their deterministic id.
// Provenance and episode lists union; confidence keeps the max of old and
// new; the longer description wins.
const mergeConceptsQuery = `
	UNWIND $concepts AS row
	MERGE (c:Concept {id: row.id})
	ON CREATE SET
		c.workspace = row.workspace,
		c.name = row.name,
		c.type = row.type,
		c.description = row.description,
		c.confidence = row.confidence,
		c.provenance = row.provenance,
		c.episodes = row.episodes,
		c.sources = row.sources,
		c.chunkIds = row.chunkIds,
		c.createdAt = datetime($now),
		c.updatedAt = datetime($now)
	ON MATCH SET
		c.confidence = CASE WHEN row.confidence > c.confidence THEN row.confidence ELSE c.confidence END,
		c.description = CASE WHEN size(row.description) > size(c.description) THEN row.description ELSE c.description END,
		c.provenance = c.provenance + [p IN row.provenance WHERE NOT p IN c.provenance],
		c.episodes = c.episodes + [e IN row.episodes WHERE NOT e IN c.episodes],
		c.sources = c.sources + [s IN row.sources WHERE NOT s IN c.sources],
		c.chunkIds = c.chunkIds + [k IN row.chunkIds WHERE NOT k IN c.chunkIds],
		c.updatedAt = datetime($now)
`

// mergeRelationshipsQuery merges one relationship type at a time; Cypher
// cannot parameterize the edge type, so the caller substitutes a validated
// type constant into the template.
const mergeRelationshipsQuery = `
	UNWIND $rels AS row
	MATCH (s:Concept {id: row.sourceId})
	MATCH (t:Concept {id: row.targetId})
	MERGE (s)-[r:%s {id: row.id}]->(t)
	ON CREATE SET
		r.workspace = row.workspace,
		r.confidence = row.confidence,
		r.provenance = row.provenance,
		r.createdAt = datetime($now),
		r.updatedAt = datetime($now)
	ON MATCH SET
		r.confidence = CASE WHEN row.confidence > r.confidence THEN row.confidence ELSE r.confidence END,
		r.provenance = r.provenance + [p IN row.provenance WHERE NOT p IN r.provenance],
		r.updatedAt = datetime($now)
`

// mergeQuotesQuery merges quote nodes; quotes are append-only, so ON MATCH
// touches nothing.
const mergeQuotesQuery = `
	UNWIND $quotes AS row
	MERGE (q:Quote {id: row.id})
	ON CREATE SET
		q.workspace = row.workspace,
		q.episode = row.episode,
		q.text = row.text,
		q.speaker = row.speaker,
		q.timestamp = row.timestamp,
		q.startOffset = row.startOffset,
		q.createdAt = datetime($now)
	WITH q, row
	UNWIND row.conceptIds AS conceptId
	MATCH (c:Concept {id: conceptId})
	MERGE (q)-[:ILLUSTRATES]->(c)
`

// MergeBatch writes a normalized batch in one transaction. The operation is
// idempotent: every node and edge is merged on its content-derived id, so a
// replayed batch converges to the same graph. The batch is validated first;
// relationship types in particular must be known constants, because the
// merge query substitutes them into Cypher text.
func (s *Store) MergeBatch(ctx context.Context, batch *Batch) error {
	if batch == nil || (len(batch.Concepts) == 0 && len(batch.Relationships) == 0 && len(batch.Quotes) == 0) {
		return nil
	}
	if err := validateBatch(batch); err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := s.executeWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if len(batch.Concepts) > 0 {
			if _, err := tx.Run(ctx, mergeConceptsQuery, map[string]any{
				"concepts": conceptRows(batch.Concepts),
				"now":      now,
			}); err != nil {
				return nil, fmt.Errorf("failed to merge concepts: %w", err)
			}
		}
		for relType, rels := range relationshipsByType(batch.Relationships) {
			query := fmt.Sprintf(mergeRelationshipsQuery, relType)
			if _, err := tx.Run(ctx, query, map[string]any{
				"rels": rels,
				"now":  now,
			}); err != nil {
				return nil, fmt.Errorf("failed to merge %s relationships: %w", relType, err)
			}
		}
		if len(batch.Quotes) > 0 {
			if _, err := tx.Run(ctx, mergeQuotesQuery, map[string]any{
				"quotes": quoteRows(batch.Quotes),
				"now":    now,
			}); err != nil {
				return nil, fmt.Errorf("failed to merge quotes: %w", err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("merged batch",
		"concepts", len(batch.Concepts),
		"relationships", len(batch.Relationships),
		"quotes", len(batch.Quotes))
	return nil
}

// validateBatch rejects malformed records before anything touches the
// store. Beyond domain rules, this is the guard that keeps the edge type
// substitution in mergeRelationshipsQuery injection-free.
func validateBatch(batch *Batch) error {
	for i := range batch.Concepts {
		if err := core.ValidateConcept(&batch.Concepts[i]); err != nil {
			return fmt.Errorf("batch concept %d: %w", i, err)
		}
	}
	for i := range batch.Relationships {
		if err := core.ValidateRelationship(&batch.Relationships[i]); err != nil {
			return fmt.Errorf("batch relationship %d: %w", i, err)
		}
	}
	for i := range batch.Quotes {
		if err := core.ValidateQuote(&batch.Quotes[i]); err != nil {
			return fmt.Errorf("batch quote %d: %w", i, err)
		}
	}
	return nil
}

// conceptRows flattens concepts into Cypher parameter maps. Provenance
// entries become JSON strings because Neo4j properties cannot hold maps.
func conceptRows(concepts []core.Concept) []map[string]any {
	rows := make([]map[string]any, len(concepts))
	for i, c := range concepts {
		rows[i] = map[string]any{
			"id":          c.Id.Hex(),
			"workspace":   c.WorkspaceID,
			"name":        c.Name,
			"type":        string(c.Type),
			"description": c.Description,
			"confidence":  c.Confidence,
			"provenance":  provenanceJSON(c.Provenance),
			"episodes":    emptyAsList(c.EpisodeIDs),
			"sources":     emptyAsList(c.SourcePaths),
			"chunkIds":    chunkIDHexes(c.Provenance),
		}
	}
	return rows
}

// relationshipsByType groups rows by edge type. validateBatch has already
// rejected unknown types; grouping keeps the type substitution safe.
func relationshipsByType(rels []core.Relationship) map[core.RelationType][]map[string]any {
	grouped := make(map[core.RelationType][]map[string]any)
	for _, r := range rels {
		grouped[r.Type] = append(grouped[r.Type], map[string]any{
			"id":         r.Id.Hex(),
			"workspace":  r.WorkspaceID,
			"sourceId":   r.SourceID.Hex(),
			"targetId":   r.TargetID.Hex(),
			"confidence": r.Confidence,
			"provenance": provenanceJSON(r.Provenance),
		})
	}
	return grouped
}

func quoteRows(quotes []core.Quote) []map[string]any {
	rows := make([]map[string]any, len(quotes))
	for i, q := range quotes {
		conceptIDs := make([]string, len(q.ConceptIDs))
		for j, id := range q.ConceptIDs {
			conceptIDs[j] = id.Hex()
		}
		rows[i] = map[string]any{
			"id":          q.Id.Hex(),
			"workspace":   q.WorkspaceID,
			"episode":     q.EpisodeID,
			"text":        q.Text,
			"speaker":     q.Speaker,
			"timestamp":   q.Timestamp,
			"startOffset": q.StartOffset,
			"conceptIds":  conceptIDs,
		}
	}
	return rows
}

// provenanceJSON encodes provenance entries as canonical JSON strings so
// list union in Cypher deduplicates them by value.
func provenanceJSON(entries []core.Provenance) []string {
	out := make([]string, len(entries))
	for i, p := range entries {
		encoded, err := json.Marshal(map[string]any{
			"episode": p.EpisodeID,
			"source":  p.SourcePath,
			"chunk":   p.ChunkID.Hex(),
			"start":   p.StartOffset,
			"end":     p.EndOffset,
			"speaker": p.Speaker,
		})
		if err != nil {
			continue
		}
		out[i] = string(encoded)
	}
	return out
}

func chunkIDHexes(entries []core.Provenance) []string {
	var out []string
	for _, p := range entries {
		hex := p.ChunkID.Hex()
		duplicate := false
		for _, existing := range out {
			if existing == hex {
				duplicate = true
				break
			}
		}
		if !duplicate {
			out = append(out, hex)
		}
	}
	if out == nil {
		out = []string{}
	}
	return out
}

func emptyAsList(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
