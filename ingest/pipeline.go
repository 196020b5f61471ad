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


package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/poiesic/episteme/ai"
	"github.com/poiesic/episteme/chunk"
	"github.com/poiesic/episteme/core"
	"github.com/poiesic/episteme/extract"
	"github.com/poiesic/episteme/graph"
	"github.com/poiesic/episteme/vector"
)

// Transcript is one episode's raw text ready for ingestion.
type Transcript struct {
	EpisodeID  string
	SourcePath string
	Content    string
}

// GraphStore is the graph side of ingestion. *graph.Store implements it.
type GraphStore interface {
	MergeBatch(ctx context.Context, batch *graph.Batch) error
	LinkCrossEpisode(ctx context.Context, workspaceID string, cfg graph.LinkerConfig) (int, error)
}

// Stage names reported through the progress callback.
const (
	StageChunking   = "chunking"
	StageExtracting = "extracting"
	StageWriting    = "writing"
	StageLinking    = "linking"
)

// Progress is one progress report. Done counts items finished within the
// stage; Total may be zero when the stage size is unknown up front.
type Progress struct {
	Stage string
	Done  int
	Total int
}

// ProgressFunc receives progress reports during Run. It is called from the
// pipeline's goroutine; implementations should return quickly.
type ProgressFunc func(Progress)

// Summary is the outcome of one ingestion run.
type Summary struct {
	Chunks            int
	Concepts          int
	Relationships     int
	Quotes            int
	VectorsIndexed    int
	FailedBatches     int
	CrossEpisodeLinks int
}

// Pipeline ingests transcripts: chunk, extract, normalize, write the graph
// and the vector index, then link concepts across episodes. Everything is
// keyed on content-derived ids, so re-running an ingestion converges
// instead of duplicating.
type Pipeline struct {
	provider     ai.AIProvider
	graphStore   GraphStore
	vectorStore  vector.Store
	chunker      *chunk.Chunker
	limiter      *extract.RateLimiter
	linkerConfig graph.LinkerConfig
	extractOpts  []extract.Option
	indexOpts    []vector.IndexerOption
	logger       *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithChunker replaces the default chunker.
func WithChunker(chunker *chunk.Chunker) Option {
	return func(p *Pipeline) error {
		if chunker == nil {
			return ErrChunkerRequired
		}
		p.chunker = chunker
		return nil
	}
}

// WithTokenBudget sets a tokens-per-minute budget shared by extraction and
// embedding calls. Zero disables limiting.
func WithTokenBudget(tokensPerMinute int) Option {
	return func(p *Pipeline) error {
		p.limiter = extract.NewRateLimiter(tokensPerMinute)
		return nil
	}
}

// WithLinkerConfig overrides cross-episode linking thresholds.
func WithLinkerConfig(cfg graph.LinkerConfig) Option {
	return func(p *Pipeline) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		p.linkerConfig = cfg
		return nil
	}
}

// WithExtractOptions passes additional options to the batch extractor.
func WithExtractOptions(opts ...extract.Option) Option {
	return func(p *Pipeline) error {
		p.extractOpts = append(p.extractOpts, opts...)
		return nil
	}
}

// WithIndexerOptions passes additional options to the embedding indexer.
func WithIndexerOptions(opts ...vector.IndexerOption) Option {
	return func(p *Pipeline) error {
		p.indexOpts = append(p.indexOpts, opts...)
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(provider ai.AIProvider, graphStore GraphStore, vectorStore vector.Store, opts ...Option) (*Pipeline, error) {
	if provider == nil {
		return nil, ErrProviderRequired
	}
	if graphStore == nil || vectorStore == nil {
		return nil, ErrStoresRequired
	}

	chunker, err := chunk.NewChunker()
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		provider:     provider,
		graphStore:   graphStore,
		vectorStore:  vectorStore,
		chunker:      chunker,
		limiter:      extract.NewRateLimiter(0),
		linkerConfig: graph.DefaultLinkerConfig(),
		logger:       slog.Default().With("component", "ingest"),
	}
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			return nil, optErr
		}
	}
	return p, nil
}

// Run ingests all transcripts into the workspace and blocks until the
// graph, vector index and cross-episode links are written. Failed
// extraction batches reduce coverage but do not fail the run; any storage
// failure does.
func (p *Pipeline) Run(ctx context.Context, workspaceID string, transcripts []Transcript, progress ProgressFunc) (*Summary, error) {
	if strings.TrimSpace(workspaceID) == "" {
		return nil, core.ErrEmptyWorkspace
	}
	if len(transcripts) == 0 {
		return nil, ErrNoTranscripts
	}
	if progress == nil {
		progress = func(Progress) {}
	}

	// Stage 1: chunking.
	var chunks []core.Chunk
	for i, transcript := range transcripts {
		if err := validateTranscript(transcript); err != nil {
			return nil, err
		}
		episode := chunk.Episode{
			WorkspaceID: workspaceID,
			EpisodeID:   transcript.EpisodeID,
			SourcePath:  transcript.SourcePath,
		}
		chunks = append(chunks, p.chunker.Split(episode, transcript.Content)...)
		progress(Progress{Stage: StageChunking, Done: i + 1, Total: len(transcripts)})
	}
	p.logger.Info("chunking complete", "transcripts", len(transcripts), "chunks", len(chunks))

	// Stage 2: extraction.
	extractor, err := extract.NewExtractor(p.provider.KnowledgeExtractor(),
		append([]extract.Option{extract.WithRateLimiter(p.limiter)}, p.extractOpts...)...)
	if err != nil {
		return nil, err
	}
	defer extractor.Release()

	extracted, err := extractor.Run(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}
	progress(Progress{Stage: StageExtracting, Done: len(chunks), Total: len(chunks)})

	// Stage 3: normalize and write graph + vectors concurrently.
	batch := graph.NewNormalizer(workspaceID).Normalize(extracted)

	var vectorsIndexed int
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := p.graphStore.MergeBatch(groupCtx, batch); err != nil {
			return fmt.Errorf("graph write failed: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		indexer, err := vector.NewIndexer(p.provider.Embedder(), p.vectorStore,
			append([]vector.IndexerOption{vector.WithIndexRateLimiter(p.limiter)}, p.indexOpts...)...)
		if err != nil {
			return err
		}
		defer indexer.Release()

		n, err := indexer.Run(groupCtx, chunks)
		if err != nil {
			return fmt.Errorf("vector indexing failed: %w", err)
		}
		vectorsIndexed = n
		return nil
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}
	progress(Progress{Stage: StageWriting, Done: len(chunks), Total: len(chunks)})

	// Stage 4: cross-episode links.
	links, err := p.graphStore.LinkCrossEpisode(ctx, workspaceID, p.linkerConfig)
	if err != nil {
		return nil, fmt.Errorf("cross-episode linking failed: %w", err)
	}
	progress(Progress{Stage: StageLinking, Done: links, Total: links})

	summary := &Summary{
		Chunks:            len(chunks),
		Concepts:          len(batch.Concepts),
		Relationships:     len(batch.Relationships),
		Quotes:            len(batch.Quotes),
		VectorsIndexed:    vectorsIndexed,
		FailedBatches:     len(extracted.Failed),
		CrossEpisodeLinks: links,
	}
	p.logger.Info("ingestion complete",
		"chunks", summary.Chunks,
		"concepts", summary.Concepts,
		"relationships", summary.Relationships,
		"quotes", summary.Quotes,
		"vectors", summary.VectorsIndexed,
		"failedBatches", summary.FailedBatches,
		"crossEpisodeLinks", summary.CrossEpisodeLinks)
	return summary, nil
}

func validateTranscript(t Transcript) error {
	if strings.TrimSpace(t.EpisodeID) == "" {
		return fmt.Errorf("%w: missing episode id", ErrInvalidTranscript)
	}
	if strings.TrimSpace(t.Content) == "" {
		return fmt.Errorf("%w: episode %s has no content", ErrInvalidTranscript, t.EpisodeID)
	}
	return nil
}
