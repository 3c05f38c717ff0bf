// Copyright 2025 Sovereign Seas
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

package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	journalIntentPrefix = []byte("i/")
	journalEventPrefix  = []byte("e/")
	journalCursorKey    = []byte("cursor")
)

// IntentRecord is one journaled intent. Replaying all intents in cursor
// order against a fresh engine reproduces identical derived state, so any
// value resolved outside the transaction boundary (such as an oracle
// quote) is captured in the payload.
type IntentRecord struct {
	Block      uint64          `json:"block"`
	TxIndex    uint32          `json:"txIndex"`
	Timestamp  uint64          `json:"timestamp"`
	Caller     common.Address  `json:"caller"`
	SuperAdmin bool            `json:"superAdmin,omitempty"`
	Kind       string          `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
}

// EventRecord is one journaled domain event, keyed by full cursor
// including log index
type EventRecord struct {
	Block    uint64          `json:"block"`
	TxIndex  uint32          `json:"txIndex"`
	LogIndex uint32          `json:"logIndex"`
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
}

// JournalStore is the badger-backed append-only log of intents and their
// emitted events
type JournalStore struct {
	db           *badger.DB
	logger       *slog.Logger
	promRegistry prometheus.Registerer
	dataDir      string
}

// NewJournalStore creates a badger journal store. Uses in-memory storage
// if dataDir is empty.
func NewJournalStore(
	dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*JournalStore, error) {
	var journalDb *badger.DB
	var err error
	if dataDir == "" {
		badgerOpts := badger.DefaultOptions("").
			WithLogger(newBadgerLogger(logger)).
			// The default INFO logging is a bit verbose
			WithLoggingLevel(badger.WARNING).
			WithInMemory(true)
		journalDb, err = badger.Open(badgerOpts)
		if err != nil {
			return nil, err
		}
	} else {
		if _, err := os.Stat(dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(dataDir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		journalDir := filepath.Join(dataDir, "journal")
		badgerOpts := badger.DefaultOptions(journalDir).
			WithLogger(newBadgerLogger(logger)).
			WithLoggingLevel(badger.WARNING).
			WithCompression(options.Snappy)
		journalDb, err = badger.Open(badgerOpts)
		if err != nil {
			return nil, err
		}
	}
	return &JournalStore{
		db:           journalDb,
		logger:       logger,
		promRegistry: promRegistry,
		dataDir:      dataDir,
	}, nil
}

// DB returns the underlying badger DB handle
func (j *JournalStore) DB() *badger.DB {
	return j.db
}

// NewTransaction starts a new badger transaction
func (j *JournalStore) NewTransaction(readWrite bool) *badger.Txn {
	return j.db.NewTransaction(readWrite)
}

func intentKey(c Cursor) []byte {
	// Log index is not part of intent identity
	return append(journalIntentPrefix, c.Bytes()[:12]...)
}

func eventKey(c Cursor) []byte {
	return append(journalEventPrefix, c.Bytes()...)
}

// AppendIntent writes an intent record at its cursor position. Appending
// at an already-used position fails, preserving the append-only contract.
func (j *JournalStore) AppendIntent(txn *badger.Txn, rec IntentRecord) error {
	key := intentKey(
		Cursor{Block: rec.Block, TxIndex: rec.TxIndex},
	)
	if _, err := txn.Get(key); err == nil {
		return fmt.Errorf(
			"intent already journaled at %d/%d",
			rec.Block,
			rec.TxIndex,
		)
	} else if !errors.Is(err, badger.ErrKeyNotFound) {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

// AppendEvent writes an event record at its full cursor position
func (j *JournalStore) AppendEvent(txn *badger.Txn, rec EventRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	key := eventKey(
		Cursor{Block: rec.Block, TxIndex: rec.TxIndex, LogIndex: rec.LogIndex},
	)
	return txn.Set(key, data)
}

// SetCursor records the last processed intent cursor
func (j *JournalStore) SetCursor(txn *badger.Txn, cursor Cursor) error {
	return txn.Set(journalCursorKey, cursor.Bytes())
}

// GetCursor returns the last processed intent cursor, or the zero cursor
// if nothing has been processed yet
func (j *JournalStore) GetCursor() (Cursor, error) {
	var ret Cursor
	err := j.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(journalCursorKey)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			c, err := cursorFromBytes(val)
			if err != nil {
				return err
			}
			ret = c
			return nil
		})
	})
	return ret, err
}

// Intents iterates all journaled intents in cursor order, calling fn for
// each. Iteration stops at the first error from fn.
func (j *JournalStore) Intents(fn func(IntentRecord) error) error {
	return j.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = journalIntentPrefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var rec IntentRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}
			if err := fn(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// Events iterates all journaled events in cursor order, calling fn for
// each
func (j *JournalStore) Events(fn func(EventRecord) error) error {
	return j.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = journalEventPrefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var rec EventRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}
			if err := fn(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close cleans up the database connection
func (j *JournalStore) Close() error {
	return j.db.Close()
}

// badgerLogger adapts badger's logger interface to slog
type badgerLogger struct {
	logger *slog.Logger
}

func newBadgerLogger(logger *slog.Logger) *badgerLogger {
	return &badgerLogger{logger: logger}
}

func (b *badgerLogger) logf(
	level slog.Level,
	format string,
	args ...any,
) {
	if b.logger == nil {
		return
	}
	b.logger.Log(
		context.Background(),
		level,
		strings.TrimSuffix(fmt.Sprintf(format, args...), "\n"),
		"component", "journal",
	)
}

func (b *badgerLogger) Errorf(format string, args ...any) {
	b.logf(slog.LevelError, format, args...)
}

func (b *badgerLogger) Warningf(format string, args ...any) {
	b.logf(slog.LevelWarn, format, args...)
}

func (b *badgerLogger) Infof(format string, args ...any) {
	b.logf(slog.LevelInfo, format, args...)
}

func (b *badgerLogger) Debugf(format string, args ...any) {
	b.logf(slog.LevelDebug, format, args...)
}
