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
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"gorm.io/gorm"
)

// Txn coordinates a journal transaction and a metadata transaction.
// Journal and metadata are first-class siblings, not nested. The journal
// commits first: after a crash the journal may be ahead of the metadata
// store, and replay recovers the difference, but derived state is never
// ahead of the journal.
type Txn struct {
	db          *Database
	journalTxn  *badger.Txn
	metadataTxn *gorm.DB
	lock        sync.Mutex
	finished    bool
}

func NewTxn(db *Database) *Txn {
	return &Txn{
		db:          db,
		journalTxn:  db.journal.NewTransaction(true),
		metadataTxn: db.metadata.Transaction(),
	}
}

// Journal returns the journal transaction handle
func (t *Txn) Journal() *badger.Txn {
	return t.journalTxn
}

// Metadata returns the metadata transaction handle
func (t *Txn) Metadata() *gorm.DB {
	return t.metadataTxn
}

// Do executes the specified function in the context of the transaction.
// Any errors returned will result in the transaction being rolled back
func (t *Txn) Do(fn func(*Txn) error) error {
	if err := fn(t); err != nil {
		if err2 := t.Rollback(); err2 != nil {
			return fmt.Errorf(
				"rollback failed: %w: original error: %w",
				err2,
				err,
			)
		}
		return err
	}
	if err := t.Commit(); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

// SetCursor records the given cursor in both stores within this
// transaction
func (t *Txn) SetCursor(cursor Cursor) error {
	if err := t.db.journal.SetCursor(t.journalTxn, cursor); err != nil {
		return err
	}
	return t.db.metadata.SetCursor(cursor, t.metadataTxn)
}

func (t *Txn) Commit() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.finished {
		return nil
	}
	// Commit journal transaction first (so if this fails, metadata never commits)
	if err := t.journalTxn.Commit(); err != nil {
		t.metadataTxn.Rollback()
		t.finished = true
		return fmt.Errorf("journal commit failed: %w", err)
	}
	if err := t.metadataTxn.Commit().Error; err != nil {
		t.db.logger.Error(
			"partial commit: journal committed, metadata failed",
			"error", err,
		)
		t.metadataTxn.Rollback()
		t.finished = true
		return fmt.Errorf(
			"partial commit: metadata commit failed after journal commit: %w",
			err,
		)
	}
	t.finished = true
	return nil
}

func (t *Txn) Rollback() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.finished {
		return nil
	}
	var errs []error
	t.journalTxn.Discard()
	if err := t.metadataTxn.Rollback().Error; err != nil {
		// gorm returns an error when rolling back a finished transaction
		if !errors.Is(err, gorm.ErrInvalidTransaction) {
			errs = append(errs, fmt.Errorf("metadata rollback: %w", err))
		}
	}
	t.finished = true
	return errors.Join(errs...)
}

// Release releases transaction resources. Errors are logged but not
// returned, making this safe for deferred calls.
func (t *Txn) Release() {
	if err := t.Rollback(); err != nil {
		t.db.logger.Debug(
			"transaction release failed",
			"error", err,
		)
	}
}
