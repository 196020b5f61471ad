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
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

const (
	defaultDatabase    = "neo4j"
	defaultMaxRetries  = 3
	defaultRetryDelay  = 500 * time.Millisecond
	maxRetryDelayLimit = 10 * time.Second
)

// Config holds Neo4j connection settings.
type Config struct {
	URI      string
	Username string
	Password string
	Database string
}

// Store is a Neo4j-backed knowledge graph store.
// All operations are workspace-scoped; nodes carry a workspace property and
// every query filters on it.
type Store struct {
	driver     neo4j.DriverWithContext
	database   string
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
}

// Option configures a Store.
type Option func(*Store) error

// WithRetries sets the retry cap and base delay for transient write
// failures. The driver already retries within a transaction function; this
// covers connection-level failures around it.
func WithRetries(maxRetries int, baseDelay time.Duration) Option {
	return func(s *Store) error {
		if maxRetries < 1 || baseDelay <= 0 {
			return fmt.Errorf("%w: retries=%d delay=%s", ErrInvalidRetryConfig, maxRetries, baseDelay)
		}
		s.maxRetries = maxRetries
		s.retryDelay = baseDelay
		return nil
	}
}

// WithStoreLogger sets a custom logger.
func WithStoreLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewStore connects to Neo4j, verifies connectivity and ensures the schema
// constraints exist.
func NewStore(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	if cfg.URI == "" {
		return nil, ErrURIRequired
	}
	if cfg.Database == "" {
		cfg.Database = defaultDatabase
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	s := &Store{
		driver:     driver,
		database:   cfg.Database,
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
		logger:     slog.Default().With("component", "graph-store"),
	}
	for _, opt := range opts {
		if optErr := opt(s); optErr != nil {
			_ = driver.Close(ctx)
			return nil, optErr
		}
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to reach neo4j: %w", err)
	}
	if err := s.ensureSchema(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, err
	}

	return s, nil
}

// Close releases the underlying driver.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// ensureSchema creates the uniqueness constraints and lookup indexes the
// merge writer and search depend on. All statements are IF NOT EXISTS, so
// startup against an initialized database is a no-op.
func (s *Store) ensureSchema(ctx context.Context) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	statements := []string{
		`CREATE CONSTRAINT concept_id IF NOT EXISTS FOR (c:Concept) REQUIRE c.id IS UNIQUE`,
		`CREATE CONSTRAINT quote_id IF NOT EXISTS FOR (q:Quote) REQUIRE q.id IS UNIQUE`,
		`CREATE INDEX concept_workspace_name IF NOT EXISTS FOR (c:Concept) ON (c.workspace, c.name)`,
		`CREATE INDEX quote_workspace IF NOT EXISTS FOR (q:Quote) ON (q.workspace)`,
	}
	for _, stmt := range statements {
		if _, err := session.Run(ctx, stmt, nil); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// executeWrite runs work in a write transaction, retrying connection-level
// failures with exponential backoff up to the configured cap.
func (s *Store) executeWrite(ctx context.Context, work neo4j.ManagedTransactionWork) (any, error) {
	var lastErr error
	delay := s.retryDelay
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		session := s.driver.NewSession(ctx, neo4j.SessionConfig{
			AccessMode:   neo4j.AccessModeWrite,
			DatabaseName: s.database,
		})
		result, err := session.ExecuteWrite(ctx, work)
		closeErr := session.Close(ctx)
		if err == nil && closeErr == nil {
			return result, nil
		}
		if err == nil {
			err = closeErr
		}
		lastErr = err
		if attempt == s.maxRetries {
			break
		}
		s.logger.Warn("graph write failed, retrying", "attempt", attempt, "err", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		delay *= 2
		if delay > maxRetryDelayLimit {
			delay = maxRetryDelayLimit
		}
	}
	return nil, lastErr
}

// executeRead runs work in a read transaction.
func (s *Store) executeRead(ctx context.Context, work neo4j.ManagedTransactionWork) (any, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)
	return session.ExecuteRead(ctx, work)
}

// DeleteWorkspace removes every node belonging to a workspace.
func (s *Store) DeleteWorkspace(ctx context.Context, workspaceID string) error {
	_, err := s.executeWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, `
			MATCH (n {workspace: $workspace})
			DETACH DELETE n
		`, map[string]any{"workspace": workspaceID})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to delete workspace %q: %w", workspaceID, err)
	}
	return nil
}

func recordString(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

func recordFloat(record *neo4j.Record, key string) float64 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0
	}
	switch v := val.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

func recordStrings(record *neo4j.Record, key string) []string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return nil
	}
	items, ok := val.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if str, ok := item.(string); ok {
			out = append(out, str)
		}
	}
	return out
}
