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


package vector

import (
	"context"

	"github.com/poiesic/episteme/core"
)

// Entry is one indexed chunk: its unit-normalized embedding plus the chunk
// itself as payload. The entry id is the chunk id.
type Entry struct {
	ID          core.ID
	WorkspaceID string
	Vector      []float32
	Chunk       core.Chunk
}

// Match is a query hit with its cosine similarity score.
type Match struct {
	Entry Entry
	Score float32
}

// Store is a workspace-scoped vector store. Implementations must treat
// Upsert as idempotent on entry id and must never return entries from a
// different workspace than the one queried.
type Store interface {
	// Upsert writes entries, replacing any existing entry with the same id.
	Upsert(ctx context.Context, entries []Entry) error

	// Query returns up to limit entries of the workspace whose similarity
	// to the query vector is at least minSimilarity, best first.
	Query(ctx context.Context, workspaceID string, queryVector []float32, limit int, minSimilarity float32) ([]Match, error)

	// Count reports how many entries a workspace holds.
	Count(ctx context.Context, workspaceID string) (int, error)

	// DeleteWorkspace removes every entry of a workspace.
	DeleteWorkspace(ctx context.Context, workspaceID string) error

	// Close releases underlying resources.
	Close() error
}
