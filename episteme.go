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


// Package episteme extracts typed knowledge from transcripts and answers
// questions over it. The top-level Database wires the Neo4j graph store,
// the Badger-backed vector and session stores and the AI provider; the
// ingest and query packages do the actual work.
package episteme

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	"github.com/poiesic/episteme/ai"
	"github.com/poiesic/episteme/ai/openai"
	"github.com/poiesic/episteme/graph"
	"github.com/poiesic/episteme/ingest"
	"github.com/poiesic/episteme/query"
	"github.com/poiesic/episteme/session"
	"github.com/poiesic/episteme/vector"
	vectorbadger "github.com/poiesic/episteme/vector/badger"
)

// ErrDataDirRequired indicates no data directory was configured.
var ErrDataDirRequired = errors.New("data directory is required")

// Config wires the Database's stores and provider.
type Config struct {
	// DataDir is where the vector index and session log live, in
	// "vectors" and "sessions" subdirectories.
	DataDir string
	// Graph is the Neo4j connection.
	Graph graph.Config
	// AI configures the model endpoints; nil uses ai.DefaultConfig.
	AI *ai.Config
}

// Database is the top-level handle: stores plus AI provider, opened once
// and shared by ingestion pipelines and query engines.
type Database struct {
	graphStore   *graph.Store
	vectorStore  *vectorbadger.Store
	sessionStore *session.Store
	provider     ai.AIProvider
	logger       *slog.Logger
}

// Open connects all stores and the AI provider.
func Open(ctx context.Context, cfg Config) (*Database, error) {
	if cfg.DataDir == "" {
		return nil, ErrDataDirRequired
	}
	aiConfig := cfg.AI
	if aiConfig == nil {
		aiConfig = ai.DefaultConfig()
	}

	graphStore, err := graph.NewStore(ctx, cfg.Graph)
	if err != nil {
		return nil, err
	}

	vectorStore, err := vectorbadger.OpenStore(filepath.Join(cfg.DataDir, "vectors"), false)
	if err != nil {
		_ = graphStore.Close(ctx)
		return nil, err
	}

	sessionStore, err := session.OpenStore(filepath.Join(cfg.DataDir, "sessions"), false)
	if err != nil {
		_ = vectorStore.Close()
		_ = graphStore.Close(ctx)
		return nil, err
	}

	provider, err := openai.NewProvider(aiConfig)
	if err != nil {
		_ = sessionStore.Close()
		_ = vectorStore.Close()
		_ = graphStore.Close(ctx)
		return nil, err
	}

	return &Database{
		graphStore:   graphStore,
		vectorStore:  vectorStore,
		sessionStore: sessionStore,
		provider:     provider,
		logger:       slog.Default(),
	}, nil
}

// Close releases the provider and every store.
func (db *Database) Close(ctx context.Context) error {
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}
	if err := db.sessionStore.Close(); err != nil {
		db.logger.Error("error closing session store", "err", err)
		return err
	}
	if err := db.vectorStore.Close(); err != nil {
		db.logger.Error("error closing vector store", "err", err)
		return err
	}
	if err := db.graphStore.Close(ctx); err != nil {
		db.logger.Error("error closing graph store", "err", err)
		return err
	}
	return nil
}

// GraphStore returns the knowledge graph store.
func (db *Database) GraphStore() *graph.Store {
	return db.graphStore
}

// VectorStore returns the chunk vector store.
func (db *Database) VectorStore() vector.Store {
	return db.vectorStore
}

// SessionStore returns the conversation turn store.
func (db *Database) SessionStore() *session.Store {
	return db.sessionStore
}

// Provider returns the AI provider.
func (db *Database) Provider() ai.AIProvider {
	return db.provider
}

// NewIngestionPipeline creates a pipeline over this Database's stores.
func (db *Database) NewIngestionPipeline(opts ...ingest.Option) (*ingest.Pipeline, error) {
	return ingest.NewPipeline(db.provider, db.graphStore, db.vectorStore, opts...)
}

// NewQueryEngine creates a query engine over this Database's stores, with
// session memory enabled.
func (db *Database) NewQueryEngine(opts ...query.EngineOption) (*query.Engine, error) {
	return query.NewEngine(db.provider, db.vectorStore, db.graphStore,
		append([]query.EngineOption{query.WithSessionStore(db.sessionStore)}, opts...)...)
}

// DeleteWorkspace removes a workspace from both the graph and the vector
// index. Session turns are kept; delete them per session.
func (db *Database) DeleteWorkspace(ctx context.Context, workspaceID string) error {
	if err := db.graphStore.DeleteWorkspace(ctx, workspaceID); err != nil {
		return err
	}
	return db.vectorStore.DeleteWorkspace(ctx, workspaceID)
}
