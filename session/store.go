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


// Package session stores conversation turns in BadgerDB. Turns are
// append-only and keyed (workspace, session, sequence); the query engine
// reads the most recent window to carry context across questions.
package session

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/poiesic/episteme/core"
)

const turnKeyPrefix = "ses:"

// Store is a BadgerDB-backed session turn store.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

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

// OpenStore opens a session store at the specified path.
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
		logger: slog.Default().With("component", "session-store"),
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func sessionPrefix(workspaceID, sessionID string) []byte {
	return []byte(turnKeyPrefix + workspaceID + ":" + sessionID + ":")
}

// turnKey appends the sequence number big-endian so byte order equals
// chronological order.
func turnKey(workspaceID, sessionID string, seq uint64) []byte {
	prefix := sessionPrefix(workspaceID, sessionID)
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], seq)
	return key
}

// Append assigns the next sequence number and persists the turn.
// Returns the stored turn with Seq and CreatedAt filled in.
func (s *Store) Append(ctx context.Context, turn core.Turn) (core.Turn, error) {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	err := s.db.Update(func(tx *badger.Txn) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		turn.Seq = s.nextSeq(tx, turn.WorkspaceID, turn.SessionID)

		if err := core.ValidateTurn(&turn); err != nil {
			return err
		}

		bs := make([]byte, core.TurnMUS.Size(turn))
		core.TurnMUS.Marshal(turn, bs)
		return tx.Set(turnKey(turn.WorkspaceID, turn.SessionID, turn.Seq), bs)
	})
	if err != nil {
		return core.Turn{}, fmt.Errorf("failed to append turn: %w", err)
	}
	return turn, nil
}

// nextSeq finds the highest stored sequence within the transaction and
// returns its successor, starting at 1.
func (s *Store) nextSeq(tx *badger.Txn, workspaceID, sessionID string) uint64 {
	prefix := sessionPrefix(workspaceID, sessionID)

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.Reverse = true
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()

	// Reverse iteration starts past the highest key of the prefix.
	seekKey := append(append([]byte{}, prefix...), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)
	iter.Seek(seekKey)
	if !iter.Valid() {
		return 1
	}
	key := iter.Item().Key()
	return binary.BigEndian.Uint64(key[len(prefix):]) + 1
}

// GetRecent returns the most recent n turns of a session in chronological
// order. Fewer turns exist, fewer are returned.
func (s *Store) GetRecent(ctx context.Context, workspaceID, sessionID string, n int) ([]core.Turn, error) {
	if n <= 0 {
		return nil, nil
	}

	var turns []core.Turn
	err := s.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = sessionPrefix(workspaceID, sessionID)
		opts.Reverse = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		seekKey := append(append([]byte{}, opts.Prefix...), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)
		for iter.Seek(seekKey); iter.Valid() && len(turns) < n; iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var turn core.Turn
			err := iter.Item().Value(func(val []byte) error {
				var err error
				turn, _, err = core.TurnMUS.Unmarshal(val)
				return err
			})
			if err != nil {
				return err
			}
			turns = append(turns, turn)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	// Reverse into chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// Delete removes every turn of a session.
func (s *Store) Delete(ctx context.Context, workspaceID, sessionID string) error {
	var keys [][]byte
	err := s.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = sessionPrefix(workspaceID, sessionID)
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
	if len(keys) == 0 {
		return nil
	}

	err = s.db.Update(func(tx *badger.Txn) error {
		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.logger.Info("session deleted", "workspace", workspaceID, "session", sessionID, "turns", len(keys))
	return nil
}
