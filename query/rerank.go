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


package query

import (
	"math"
	"sort"
	"strings"

	"github.com/poiesic/episteme/graph"
	"github.com/poiesic/episteme/vector"
)

// RerankConfig tunes rank fusion and diversification.
type RerankConfig struct {
	// K is the RRF constant; larger values flatten rank differences.
	K float64
	// VectorWeight and GraphWeight scale each path's RRF contribution.
	VectorWeight float64
	GraphWeight  float64
	// Lambda balances relevance against diversity in MMR selection.
	// 1 disables diversification.
	Lambda float64
	// Limit is how many candidates survive reranking.
	Limit int
}

// DefaultRerankConfig returns the standard reranker tuning.
func DefaultRerankConfig() RerankConfig {
	return RerankConfig{K: 60, VectorWeight: 1.0, GraphWeight: 1.0, Lambda: 0.7, Limit: 8}
}

// Candidate is one piece of retrieved context after fusion.
type Candidate struct {
	// Key identifies the underlying chunk or concept.
	Key string
	// Kind is "chunk" for vector hits and "concept" for graph hits.
	Kind string
	// Text is what the synthesizer quotes from.
	Text        string
	EpisodeID   string
	SourcePath  string
	Speaker     string
	VectorScore float64
	GraphScore  float64
	RRFScore    float64
	// Embedding is present for chunk candidates and drives MMR diversity.
	Embedding []float32
}

// Rerank fuses both retrieval paths with weighted reciprocal rank fusion,
// then picks a diverse subset with maximal marginal relevance. The result
// is deterministic for identical input.
func Rerank(retrieval *Retrieval, cfg RerankConfig) []Candidate {
	candidates := fuseRRF(retrieval, cfg)
	return applyMMR(candidates, cfg)
}

// fuseRRF merges the two rankings. Each candidate scores
// Σ weight/(k + rank) over the paths it appears in, rank 1-indexed.
func fuseRRF(retrieval *Retrieval, cfg RerankConfig) []Candidate {
	byKey := make(map[string]*Candidate)
	order := make([]string, 0, len(retrieval.VectorMatches)+len(retrieval.GraphHits))

	for rank, match := range retrieval.VectorMatches {
		key := "chunk:" + match.Entry.ID.Hex()
		c, ok := byKey[key]
		if !ok {
			c = &Candidate{
				Key:        key,
				Kind:       "chunk",
				Text:       match.Entry.Chunk.Text,
				EpisodeID:  match.Entry.Chunk.EpisodeID,
				SourcePath: match.Entry.Chunk.SourcePath,
				Speaker:    match.Entry.Chunk.Speaker,
				Embedding:  match.Entry.Vector,
			}
			byKey[key] = c
			order = append(order, key)
		}
		c.VectorScore = float64(match.Score)
		c.RRFScore += cfg.VectorWeight / (cfg.K + float64(rank+1))
	}

	for rank, hit := range retrieval.GraphHits {
		key := "concept:" + hit.ConceptID
		c, ok := byKey[key]
		if !ok {
			c = &Candidate{
				Key:       key,
				Kind:      "concept",
				Text:      conceptText(hit),
				EpisodeID: earliestEpisode(hit.EpisodeIDs),
				Speaker:   firstNonEmpty(hit.Speakers),
			}
			byKey[key] = c
			order = append(order, key)
		}
		c.GraphScore = hit.Score
		c.RRFScore += cfg.GraphWeight / (cfg.K + float64(rank+1))
	}

	candidates := make([]Candidate, 0, len(order))
	for _, key := range order {
		candidates = append(candidates, *byKey[key])
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].RRFScore != candidates[j].RRFScore {
			return candidates[i].RRFScore > candidates[j].RRFScore
		}
		// Tie: the stronger single-path score wins.
		bi := math.Max(candidates[i].VectorScore, candidates[i].GraphScore)
		bj := math.Max(candidates[j].VectorScore, candidates[j].GraphScore)
		if bi != bj {
			return bi > bj
		}
		// Still tied: earlier episode first.
		return candidates[i].EpisodeID < candidates[j].EpisodeID
	})
	return candidates
}

// applyMMR greedily selects candidates maximizing
// lambda*relevance - (1-lambda)*maxSimilarityToSelected. Candidates without
// embeddings carry no similarity penalty.
func applyMMR(candidates []Candidate, cfg RerankConfig) []Candidate {
	limit := cfg.Limit
	if limit <= 0 || limit > len(candidates) {
		limit = len(candidates)
	}
	if len(candidates) <= 1 || cfg.Lambda >= 1.0 {
		return candidates[:limit]
	}

	selected := make([]Candidate, 0, limit)
	remaining := append([]Candidate(nil), candidates...)

	for len(selected) < limit && len(remaining) > 0 {
		bestIdx := 0
		bestScore := math.Inf(-1)
		for i, cand := range remaining {
			maxSim := 0.0
			if len(cand.Embedding) > 0 {
				for _, sel := range selected {
					if len(sel.Embedding) == 0 {
						continue
					}
					sim := float64(vector.DotProduct(cand.Embedding, sel.Embedding))
					if sim > maxSim {
						maxSim = sim
					}
				}
			}
			score := cfg.Lambda*cand.RRFScore - (1-cfg.Lambda)*maxSim
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}
		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return selected
}

// conceptText renders a graph hit as quotable context: the concept line
// followed by its illustrating quotes.
func conceptText(hit graph.SearchHit) string {
	var b strings.Builder
	b.WriteString(hit.Name)
	if hit.Type != "" {
		b.WriteString(" (")
		b.WriteString(hit.Type)
		b.WriteString(")")
	}
	if hit.Description != "" {
		b.WriteString(": ")
		b.WriteString(hit.Description)
	}
	for _, quote := range hit.Quotes {
		if quote == "" {
			continue
		}
		b.WriteString("\n\"")
		b.WriteString(quote)
		b.WriteString("\"")
	}
	return b.String()
}

func earliestEpisode(episodes []string) string {
	earliest := ""
	for _, e := range episodes {
		if e == "" {
			continue
		}
		if earliest == "" || e < earliest {
			earliest = e
		}
	}
	return earliest
}

func firstNonEmpty(items []string) string {
	for _, item := range items {
		if item != "" {
			return item
		}
	}
	return ""
}
