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
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

const defaultSearchLimit = 20

// SearchHit is one concept returned by keyword search, with up to three
// illustrating quotes attached.
type SearchHit struct {
	ConceptID   string
	Name        string
	Type        string
	Description string
	Score       float64
	EpisodeIDs  []string
	Quotes      []string
	Speakers    []string
}

// searchQuery scores concepts by how many query terms match their name or
// description, weighted by stored confidence. The sort key is derived in a
// WITH clause before ORDER BY; name matches count double.
const searchQuery = `
	MATCH (c:Concept {workspace: $workspace})
	WITH c,
		size([term IN $terms WHERE toLower(c.name) CONTAINS term]) AS nameHits,
		size([term IN $terms WHERE toLower(c.description) CONTAINS term]) AS descHits
	WHERE nameHits + descHits > 0
	WITH c, (nameHits * 2.0 + descHits) * c.confidence AS score
	ORDER BY score DESC
	LIMIT $limit
	OPTIONAL MATCH (q:Quote)-[:ILLUSTRATES]->(c)
	WITH c, score, collect(q.text)[..3] AS quotes, collect(q.speaker)[..3] AS speakers
	RETURN c.id AS id, c.name AS name, c.type AS type, c.description AS description,
		c.episodes AS episodes, score, quotes, speakers
`

// Search finds concepts matching the question's terms within a workspace.
// Terms are matched case-insensitively against names and descriptions.
func (s *Store) Search(ctx context.Context, workspaceID, question string, limit int) ([]SearchHit, error) {
	terms := searchTerms(question)
	if len(terms) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	result, err := s.executeRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		cursor, err := tx.Run(ctx, searchQuery, map[string]any{
			"workspace": workspaceID,
			"terms":     terms,
			"limit":     limit,
		})
		if err != nil {
			return nil, err
		}

		var hits []SearchHit
		for cursor.Next(ctx) {
			record := cursor.Record()
			hits = append(hits, SearchHit{
				ConceptID:   recordString(record, "id"),
				Name:        recordString(record, "name"),
				Type:        recordString(record, "type"),
				Description: recordString(record, "description"),
				Score:       recordFloat(record, "score"),
				EpisodeIDs:  recordStrings(record, "episodes"),
				Quotes:      recordStrings(record, "quotes"),
				Speakers:    recordStrings(record, "speakers"),
			})
		}
		return hits, cursor.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("graph search failed: %w", err)
	}

	hits, _ := result.([]SearchHit)
	s.logger.Debug("graph search", "terms", len(terms), "hits", len(hits))
	return hits, nil
}

// searchStopwords are question words that carry no retrieval signal.
var searchStopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "about": true,
	"can": true, "did": true, "do": true, "does": true, "for": true,
	"how": true, "in": true, "is": true, "it": true, "of": true,
	"on": true, "or": true, "say": true, "said": true, "tell": true,
	"that": true, "the": true, "to": true, "was": true, "what": true,
	"when": true, "where": true, "which": true, "who": true, "why": true,
	"with": true, "you": true,
}

// searchTerms lowercases the question and drops stopwords and short tokens.
func searchTerms(question string) []string {
	var terms []string
	for _, word := range strings.Fields(strings.ToLower(question)) {
		word = strings.Trim(word, ".,!?;:\"'()[]{}")
		if len(word) < 3 || searchStopwords[word] {
			continue
		}
		terms = append(terms, word)
	}
	return terms
}
