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
	"fmt"
	"sort"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// LinkerConfig tunes cross-episode linking thresholds.
type LinkerConfig struct {
	// MinCoOccurrence is the minimum number of shared chunks two concepts
	// need before they are linked.
	MinCoOccurrence int
	// MinConfidence is the minimum mean confidence of the two concepts.
	MinConfidence float64
}

// DefaultLinkerConfig returns the linker thresholds used when none are
// configured.
func DefaultLinkerConfig() LinkerConfig {
	return LinkerConfig{MinCoOccurrence: 2, MinConfidence: 0.5}
}

// Validate checks threshold ranges.
func (c LinkerConfig) Validate() error {
	if c.MinCoOccurrence < 1 {
		return fmt.Errorf("%w: min co-occurrence %d", ErrInvalidLinkerConfig, c.MinCoOccurrence)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("%w: min confidence %f", ErrInvalidLinkerConfig, c.MinConfidence)
	}
	return nil
}

// linkCandidate is a concept eligible for cross-episode linking: it appears
// in at least two episodes.
type linkCandidate struct {
	ID         string
	Confidence float64
	ChunkIDs   []string
}

// linkPair is a CROSS_EPISODE edge to be merged.
type linkPair struct {
	SourceID     string
	TargetID     string
	CoOccurrence int
	Confidence   float64
}

const linkCandidatesQuery = `
	MATCH (c:Concept {workspace: $workspace})
	WHERE size(c.episodes) >= 2
	RETURN c.id AS id, c.confidence AS confidence, c.chunkIds AS chunkIds
`

const mergeCrossEpisodeQuery = `
	UNWIND $pairs AS pair
	MATCH (s:Concept {id: pair.sourceId})
	MATCH (t:Concept {id: pair.targetId})
	MERGE (s)-[r:CROSS_EPISODE]->(t)
	SET r.coOccurrence = pair.coOccurrence,
		r.confidence = pair.confidence,
		r.updatedAt = datetime($now)
`

// LinkCrossEpisode connects concepts that recur across episodes and share
// chunks. Re-running is idempotent: edges are merged and their weights
// refreshed, never duplicated. Returns the number of links merged.
func (s *Store) LinkCrossEpisode(ctx context.Context, workspaceID string, cfg LinkerConfig) (int, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}

	result, err := s.executeRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		cursor, err := tx.Run(ctx, linkCandidatesQuery, map[string]any{"workspace": workspaceID})
		if err != nil {
			return nil, err
		}
		var candidates []linkCandidate
		for cursor.Next(ctx) {
			record := cursor.Record()
			candidates = append(candidates, linkCandidate{
				ID:         recordString(record, "id"),
				Confidence: recordFloat(record, "confidence"),
				ChunkIDs:   recordStrings(record, "chunkIds"),
			})
		}
		return candidates, cursor.Err()
	})
	if err != nil {
		return 0, fmt.Errorf("failed to load link candidates: %w", err)
	}
	candidates, _ := result.([]linkCandidate)

	pairs := crossEpisodePairs(candidates, cfg)
	if len(pairs) == 0 {
		s.logger.Debug("no cross-episode links", "candidates", len(candidates))
		return 0, nil
	}

	rows := make([]map[string]any, len(pairs))
	for i, p := range pairs {
		rows[i] = map[string]any{
			"sourceId":     p.SourceID,
			"targetId":     p.TargetID,
			"coOccurrence": p.CoOccurrence,
			"confidence":   p.Confidence,
		}
	}
	_, err = s.executeWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, runErr := tx.Run(ctx, mergeCrossEpisodeQuery, map[string]any{
			"pairs": rows,
			"now":   time.Now().UTC().Format(time.RFC3339),
		})
		return nil, runErr
	})
	if err != nil {
		return 0, fmt.Errorf("failed to merge cross-episode links: %w", err)
	}

	s.logger.Info("cross-episode linking complete", "candidates", len(candidates), "links", len(pairs))
	return len(pairs), nil
}

// crossEpisodePairs computes qualifying concept pairs. Candidates are
// sorted by ID first — Neo4j does not guarantee row order, and edge
// direction must not depend on it. Each unordered pair is emitted once,
// lower ID as source.
func crossEpisodePairs(candidates []linkCandidate, cfg LinkerConfig) []linkPair {
	sorted := make([]linkCandidate, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	candidates = sorted

	var pairs []linkPair
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			shared := sharedCount(candidates[i].ChunkIDs, candidates[j].ChunkIDs)
			if shared < cfg.MinCoOccurrence {
				continue
			}
			mean := (candidates[i].Confidence + candidates[j].Confidence) / 2
			if mean < cfg.MinConfidence {
				continue
			}
			pairs = append(pairs, linkPair{
				SourceID:     candidates[i].ID,
				TargetID:     candidates[j].ID,
				CoOccurrence: shared,
				Confidence:   mean,
			})
		}
	}
	return pairs
}

func sharedCount(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, id := range a {
		set[id] = true
	}
	count := 0
	for _, id := range b {
		if set[id] {
			count++
		}
	}
	return count
}
