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
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Config contains the database configuration
type Config struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	DataDir      string
	Tracing      bool
}

// Database combines the metadata store (current engine state, queryable)
// and the journal store (append-only intent/event log, the replay source
// of truth). The two stores are first-class siblings coordinated by Txn.
type Database struct {
	logger   *slog.Logger
	metadata *MetadataStore
	journal  *JournalStore
	dataDir  string
}

// New creates a new database instance with optional persistence using the
// provided data directory. An empty data directory uses in-memory storage
// for both stores.
func New(cfg *Config) (*Database, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	logger := cfg.Logger
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	metadataDb, err := NewMetadataStore(
		cfg.DataDir,
		logger,
		cfg.PromRegistry,
		cfg.Tracing,
	)
	if err != nil {
		return nil, err
	}
	journalDb, err := NewJournalStore(cfg.DataDir, logger, cfg.PromRegistry)
	if err != nil {
		return nil, err
	}
	db := &Database{
		logger:   logger,
		metadata: metadataDb,
		journal:  journalDb,
		dataDir:  cfg.DataDir,
	}
	if err := db.checkCursorConsistency(); err != nil {
		// Database is available for recovery, so return it with error
		return db, err
	}
	return db, nil
}

// Metadata returns the underlying metadata store instance
func (d *Database) Metadata() *MetadataStore {
	return d.metadata
}

// Journal returns the underlying journal store instance
func (d *Database) Journal() *JournalStore {
	return d.journal
}

// DataDir returns the path to the data directory used for storage
func (d *Database) DataDir() string {
	return d.dataDir
}

// Logger returns the logger instance
func (d *Database) Logger() *slog.Logger {
	return d.logger
}

// Transaction starts a new database transaction and returns a handle to it
func (d *Database) Transaction() *Txn {
	return NewTxn(d)
}

// Close cleans up the database connections
func (d *Database) Close() error {
	var err error
	metadataErr := d.metadata.Close()
	err = errors.Join(err, metadataErr)
	journalErr := d.journal.Close()
	err = errors.Join(err, journalErr)
	return err
}

// CursorMismatchError is returned when the metadata and journal stores
// disagree about the last processed intent, which indicates a partial
// commit that needs recovery by replaying the journal.
type CursorMismatchError struct {
	MetadataCursor Cursor
	JournalCursor  Cursor
}

func (e CursorMismatchError) Error() string {
	return fmt.Sprintf(
		"cursor mismatch: metadata %s, journal %s",
		e.MetadataCursor,
		e.JournalCursor,
	)
}

// checkCursorConsistency compares the cursor recorded in each store. The
// journal commits first, so after a crash the journal may be ahead of the
// metadata store but never behind it.
func (d *Database) checkCursorConsistency() error {
	metadataCursor, err := d.metadata.GetCursor(nil)
	if err != nil {
		return err
	}
	journalCursor, err := d.journal.GetCursor()
	if err != nil {
		return err
	}
	if metadataCursor != journalCursor {
		return CursorMismatchError{
			MetadataCursor: metadataCursor,
			JournalCursor:  journalCursor,
		}
	}
	return nil
}
