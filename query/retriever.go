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
	"context"
	"log/slog"
	"time"

	"github.com/poiesic/episteme/ai"
	"github.com/poiesic/episteme/graph"
	"github.com/poiesic/episteme/vector"
)

const (
	defaultPathTimeout   = 10 * time.Second
	defaultRetrieveLimit = 20
	defaultMinSimilarity = 0.25
)

// GraphSearcher is the graph path of hybrid retrieval. *graph.Store
// implements it.
type GraphSearcher interface {
	Search(ctx context.Context, workspaceID, question string, limit int) ([]graph.SearchHit, error)
}

// Retrieval holds the raw results of both paths before reranking.
type Retrieval struct {
	VectorMatches []vector.Match
	GraphHits     []graph.SearchHit
	QueryVector   []float32
	// VectorDegraded and GraphDegraded record that a path failed or timed
	// out and contributed nothing. The answer still ships, flagged.
	VectorDegraded bool
	GraphDegraded  bool
}

// Retriever runs the vector and graph retrieval paths.
type Retriever struct {
	vectors       vector.Store
	graph         GraphSearcher
	embedder      ai.Embedder
	pathTimeout   time.Duration
	limit         int
	minSimilarity float32
	logger        *slog.Logger
}

// NewRetriever creates a hybrid retriever.
func NewRetriever(vectors vector.Store, searcher GraphSearcher, embedder ai.Embedder) *Retriever {
	return &Retriever{
		vectors:       vectors,
		graph:         searcher,
		embedder:      embedder,
		pathTimeout:   defaultPathTimeout,
		limit:         defaultRetrieveLimit,
		minSimilarity: defaultMinSimilarity,
		logger:        slog.Default().With("component", "retriever"),
	}
}

// Retrieve runs the paths the strategy calls for. With StrategyHybrid both
// run concurrently, each under its own timeout; a failed path degrades to
// empty so the surviving path can still answer.
func (r *Retriever) Retrieve(ctx context.Context, workspaceID, question string, strategy Strategy) *Retrieval {
	result := &Retrieval{}
	if strategy == StrategyNone {
		return result
	}

	runVector := strategy == StrategyVector || strategy == StrategyHybrid
	runGraph := strategy == StrategyGraph || strategy == StrategyHybrid

	type vectorOut struct {
		matches  []vector.Match
		queryVec []float32
		err      error
	}
	type graphOut struct {
		hits []graph.SearchHit
		err  error
	}

	vectorCh := make(chan vectorOut, 1)
	graphCh := make(chan graphOut, 1)

	if runVector {
		go func() {
			pathCtx, cancel := context.WithTimeout(ctx, r.pathTimeout)
			defer cancel()
			vec, err := r.embedder.EmbedText(pathCtx, question)
			if err != nil {
				vectorCh <- vectorOut{err: err}
				return
			}
			matches, err := r.vectors.Query(pathCtx, workspaceID, vec, r.limit, r.minSimilarity)
			vectorCh <- vectorOut{matches: matches, queryVec: vector.Normalize(vec), err: err}
		}()
	}
	if runGraph {
		go func() {
			pathCtx, cancel := context.WithTimeout(ctx, r.pathTimeout)
			defer cancel()
			hits, err := r.graph.Search(pathCtx, workspaceID, question, r.limit)
			graphCh <- graphOut{hits: hits, err: err}
		}()
	}

	if runVector {
		out := <-vectorCh
		if out.err != nil {
			r.logger.Warn("vector path degraded", "err", out.err)
			result.VectorDegraded = true
		} else {
			result.VectorMatches = out.matches
			result.QueryVector = out.queryVec
		}
	}
	if runGraph {
		out := <-graphCh
		if out.err != nil {
			r.logger.Warn("graph path degraded", "err", out.err)
			result.GraphDegraded = true
		} else {
			result.GraphHits = out.hits
		}
	}

	r.logger.Debug("retrieval complete",
		"strategy", string(strategy),
		"vectorHits", len(result.VectorMatches),
		"graphHits", len(result.GraphHits))
	return result
}
