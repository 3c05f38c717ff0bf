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

package database_test

import (
	"encoding/json"
	"testing"

	"github.com/sovereign-seas/seasledger/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInMemory(t *testing.T) {
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	defer db.Close()
	require.NotNil(t, db.Metadata())
	require.NotNil(t, db.Journal())
}

func TestCursorRoundTrip(t *testing.T) {
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	defer db.Close()

	cursor := database.Cursor{Block: 42, TxIndex: 7, LogIndex: 3}
	txn := db.Transaction()
	err = txn.Do(func(txn *database.Txn) error {
		return txn.SetCursor(cursor)
	})
	require.NoError(t, err)

	metadataCursor, err := db.Metadata().GetCursor(nil)
	require.NoError(t, err)
	assert.Equal(t, cursor, metadataCursor)

	journalCursor, err := db.Journal().GetCursor()
	require.NoError(t, err)
	assert.Equal(t, cursor, journalCursor)
}

func TestCursorCompare(t *testing.T) {
	testDefs := []struct {
		a, b     database.Cursor
		expected int
	}{
		{database.Cursor{}, database.Cursor{}, 0},
		{database.Cursor{Block: 1}, database.Cursor{Block: 2}, -1},
		{
			database.Cursor{Block: 2, TxIndex: 5},
			database.Cursor{Block: 2, TxIndex: 4},
			1,
		},
		{
			database.Cursor{Block: 2, TxIndex: 4, LogIndex: 1},
			database.Cursor{Block: 2, TxIndex: 4, LogIndex: 2},
			-1,
		},
	}
	for _, testDef := range testDefs {
		assert.Equal(t, testDef.expected, testDef.a.Compare(testDef.b))
	}
}

func TestJournalIntentOrdering(t *testing.T) {
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	defer db.Close()

	// Append out of submission order, expect iteration in cursor order
	recs := []database.IntentRecord{
		{Block: 2, TxIndex: 0, Kind: "third", Payload: json.RawMessage(`{}`)},
		{Block: 1, TxIndex: 1, Kind: "second", Payload: json.RawMessage(`{}`)},
		{Block: 1, TxIndex: 0, Kind: "first", Payload: json.RawMessage(`{}`)},
	}
	for _, rec := range recs {
		txn := db.Transaction()
		err = txn.Do(func(txn *database.Txn) error {
			return db.Journal().AppendIntent(txn.Journal(), rec)
		})
		require.NoError(t, err)
	}

	var kinds []string
	err = db.Journal().Intents(func(rec database.IntentRecord) error {
		kinds = append(kinds, rec.Kind)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, kinds)
}

func TestJournalRejectsDuplicateIntent(t *testing.T) {
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	defer db.Close()

	rec := database.IntentRecord{
		Block:   5,
		TxIndex: 0,
		Kind:    "dupe",
		Payload: json.RawMessage(`{}`),
	}
	txn := db.Transaction()
	err = txn.Do(func(txn *database.Txn) error {
		return db.Journal().AppendIntent(txn.Journal(), rec)
	})
	require.NoError(t, err)

	txn = db.Transaction()
	err = txn.Do(func(txn *database.Txn) error {
		return db.Journal().AppendIntent(txn.Journal(), rec)
	})
	assert.ErrorContains(t, err, "already journaled")
}

func TestTxnRollbackLeavesNoTrace(t *testing.T) {
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	defer db.Close()

	// The shared in-memory database may carry state from other tests, so
	// compare against the cursor as it was before the rollback
	before, err := db.Metadata().GetCursor(nil)
	require.NoError(t, err)

	txn := db.Transaction()
	require.NoError(
		t,
		txn.SetCursor(database.Cursor{Block: before.Block + 9}),
	)
	require.NoError(t, txn.Rollback())

	metadataCursor, err := db.Metadata().GetCursor(nil)
	require.NoError(t, err)
	assert.Equal(t, before, metadataCursor)
	journalCursor, err := db.Journal().GetCursor()
	require.NoError(t, err)
	assert.Equal(t, before, journalCursor)
}
