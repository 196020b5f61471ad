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


// Package badger implements the vector store on BadgerDB. Queries are a
// full cosine scan over the workspace prefix; workable for the corpus sizes
// a single retreat archive produces.
package badger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/poiesic/episteme/core"
	"github.com/poiesic/episteme/vector"
)

const vectorKeyPrefix = "vec:"

// Store is a BadgerDB-backed vector store.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

var _ vector.Store = (*Store)(nil)

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenStore opens a vector store at the specified path.
// Creates the directory if it doesn't exist. With inMemory set, no files
// are written; used by tests.
func OpenStore(filePath string, inMemory bool) (*Store, error) {
	var opts badger.Options

	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		info, err := os.Stat(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				if err := os.MkdirAll(filePath, 0755); err != nil {
					return nil, err
				}
				info, err = os.Stat(filePath)
				if err != nil {
					return nil, err
				}
			} else {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", filePath)
		}
		opts = badger.DefaultOptions(filePath)
	}

	opts.Logger = &badgerLoggerAdapter{logger: slog.Default()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:     db,
		logger: slog.Default().With("component", "vector-store"),
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func entryKey(workspaceID string, id core.ID) []byte {
	return []byte(vectorKeyPrefix + workspaceID + ":" + id.Hex())
}

func workspacePrefix(workspaceID string) []byte {
	return []byte(vectorKeyPrefix + workspaceID + ":")
}

// Upsert writes entries, replacing existing ones with the same id.
func (s *Store) Upsert(ctx context.Context, entries []vector.Entry) error {
	batch := s.db.NewWriteBatch()
	defer batch.Cancel()

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		value := marshalEntry(entry)
		if err := batch.Set(entryKey(entry.WorkspaceID, entry.ID), value); err != nil {
			return fmt.Errorf("failed to stage entry %s: %w", entry.ID.Hex(), err)
		}
	}
	if err := batch.Flush(); err != nil {
		return fmt.Errorf("failed to flush entries: %w", err)
	}
	return nil
}

// Query scans the workspace prefix and scores every entry against the query
// vector. Vectors are stored unit-normalized, so the score is a dot product.
func (s *Store) Query(ctx context.Context, workspaceID string, queryVector []float32, limit int, minSimilarity float32) ([]vector.Match, error) {
	normalized := vector.Normalize(queryVector)

	var matches []vector.Match
	err := s.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = workspacePrefix(workspaceID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var entry vector.Entry
			err := iter.Item().Value(func(val []byte) error {
				var err error
				entry, err = unmarshalEntry(val)
				return err
			})
			if err != nil {
				return err
			}
			if len(entry.Vector) == 0 {
				continue
			}
			score := vector.DotProduct(normalized, entry.Vector)
			if score >= minSimilarity {
				matches = append(matches, vector.Match{Entry: entry, Score: score})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(matches, func(a, b vector.Match) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		// Equal scores: stable on entry id so results are deterministic.
		if a.Entry.ID < b.Entry.ID {
			return -1
		}
		if a.Entry.ID > b.Entry.ID {
			return 1
		}
		return 0
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Count reports how many entries a workspace holds.
func (s *Store) Count(ctx context.Context, workspaceID string) (int, error) {
	count := 0
	err := s.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = workspacePrefix(workspaceID)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}

// DeleteWorkspace removes every entry of a workspace.
func (s *Store) DeleteWorkspace(ctx context.Context, workspaceID string) error {
	var keys [][]byte
	err := s.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = workspacePrefix(workspaceID)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return err
	}

	batch := s.db.NewWriteBatch()
	defer batch.Cancel()
	for _, key := range keys {
		if err := batch.Delete(key); err != nil {
			return err
		}
	}
	return batch.Flush()
}

// marshalEntry encodes an entry as vector followed by chunk payload. The
// entry id and workspace live in the key and inside the chunk.
func marshalEntry(entry vector.Entry) []byte {
	size := core.Float32SliceMUS.Size(entry.Vector) + core.ChunkMUS.Size(entry.Chunk)
	bs := make([]byte, size)
	n := core.Float32SliceMUS.Marshal(entry.Vector, bs)
	core.ChunkMUS.Marshal(entry.Chunk, bs[n:])
	return bs
}

func unmarshalEntry(bs []byte) (vector.Entry, error) {
	var entry vector.Entry
	vec, n, err := core.Float32SliceMUS.Unmarshal(bs)
	if err != nil {
		return entry, err
	}
	chunk, _, err := core.ChunkMUS.Unmarshal(bs[n:])
	if err != nil {
		return entry, err
	}
	entry.ID = chunk.Id
	entry.WorkspaceID = chunk.WorkspaceID
	entry.Vector = vec
	entry.Chunk = chunk
	return entry, nil
}
