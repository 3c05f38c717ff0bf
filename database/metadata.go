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
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sovereign-seas/seasledger/database/models"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// MetadataStore is the SQLite-backed store for current engine state:
// balances, campaigns, grants, milestones, slots, and bids. It is derived
// entirely from the journal and can be rebuilt by replay.
type MetadataStore struct {
	db           *gorm.DB
	logger       *slog.Logger
	promRegistry prometheus.Registerer
	dataDir      string
}

// NewMetadataStore creates a SQLite metadata store. Uses an in-memory
// database if dataDir is empty.
func NewMetadataStore(
	dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
	enableTracing bool,
) (*MetadataStore, error) {
	var metadataDb *gorm.DB
	var err error
	if dataDir == "" {
		// Use in-memory database when no data directory is specified, useful for testing
		// cache=shared allows multiple connections to share the same in-memory database
		metadataDb, err = gorm.Open(
			sqlite.Open("file::memory:?cache=shared"),
			&gorm.Config{
				Logger:                 gormlogger.Discard,
				SkipDefaultTransaction: true,
			},
		)
		if err != nil {
			return nil, err
		}
	} else {
		// Make sure that we can read data dir, and create if it doesn't exist
		if _, err := os.Stat(dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(dataDir, fs.ModePerm); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		metadataDbPath := filepath.Join(dataDir, "metadata.sqlite")
		// WAL journal mode, disable sync on write, increase cache size to 50MB (from 2MB)
		metadataConnOpts := "_pragma=journal_mode(WAL)&_pragma=sync(OFF)&_pragma=cache_size(-50000)"
		metadataDb, err = gorm.Open(
			sqlite.Open(
				fmt.Sprintf("file:%s?%s", metadataDbPath, metadataConnOpts),
			),
			&gorm.Config{
				Logger:                 gormlogger.Discard,
				SkipDefaultTransaction: true,
			},
		)
		if err != nil {
			return nil, err
		}
	}
	if enableTracing {
		if err := metadataDb.Use(
			tracing.NewPlugin(tracing.WithoutMetrics()),
		); err != nil {
			return nil, fmt.Errorf("failed to enable gorm tracing: %w", err)
		}
	}
	db := &MetadataStore{
		db:           metadataDb,
		dataDir:      dataDir,
		logger:       logger,
		promRegistry: promRegistry,
	}
	// Create table schemas
	for _, model := range models.MigrateModels {
		if err := db.db.AutoMigrate(model); err != nil {
			return db, err
		}
	}
	return db, nil
}

// DB returns the underlying gorm DB handle
func (d *MetadataStore) DB() *gorm.DB {
	return d.db
}

// Transaction begins a new gorm transaction
func (d *MetadataStore) Transaction() *gorm.DB {
	return d.db.Begin()
}

// GetCursor returns the last processed intent cursor, or the zero cursor
// if nothing has been processed yet
func (d *MetadataStore) GetCursor(txn *gorm.DB) (Cursor, error) {
	if txn == nil {
		txn = d.db
	}
	var tmpCursor models.SyncCursor
	result := txn.First(&tmpCursor, 1)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Cursor{}, nil
		}
		return Cursor{}, result.Error
	}
	return Cursor{
		Block:    tmpCursor.Block,
		TxIndex:  tmpCursor.TxIndex,
		LogIndex: tmpCursor.LogIndex,
	}, nil
}

// SetCursor records the last processed intent cursor
func (d *MetadataStore) SetCursor(cursor Cursor, txn *gorm.DB) error {
	if txn == nil {
		txn = d.db
	}
	tmpCursor := models.SyncCursor{
		ID:       1,
		Block:    cursor.Block,
		TxIndex:  cursor.TxIndex,
		LogIndex: cursor.LogIndex,
	}
	return txn.Save(&tmpCursor).Error
}

// Close cleans up the database connection
func (d *MetadataStore) Close() error {
	sqlDb, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDb.Close()
}
