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

package ledger_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sovereign-seas/seasledger/database"
	"github.com/sovereign-seas/seasledger/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runScenario drives a campaign from creation through distribution plus
// a grant payout, exercising most intent kinds
func runScenario(t *testing.T, s *ledger.State) {
	t.Helper()
	q := &intentSeq{}
	campaignID := setupVotedCampaign(t, s, q, ledger.CreateCampaignParams{
		UseQuadratic: true,
	})
	err := s.DistributeFunds(q.next(alice, 200), ledger.DistributeFundsParams{
		CampaignID: campaignID,
	})
	require.NoError(t, err)
	err = s.CreateGrant(q.next(alice, 300), ledger.CreateGrantParams{
		Grantee:        bob,
		SiteFeePct:     5,
		ReviewTimeLock: 86400,
	})
	require.NoError(t, err)
	fund(t, s, q, dave, ledger.NativeToken, 1000, 301)
	err = s.AddFundsToGrant(q.next(dave, 302), ledger.AddFundsToGrantParams{
		GrantID: 1,
		Token:   ledger.NativeToken,
		Amount:  big.NewInt(600),
	})
	require.NoError(t, err)
	err = s.SubmitMilestone(q.next(bob, 303), ledger.SubmitMilestoneParams{
		GrantID:      1,
		Title:        "milestone",
		EvidenceHash: testEvidence,
		Percentage:   50,
	})
	require.NoError(t, err)
	err = s.ApproveMilestone(q.next(alice, 304), ledger.ApproveMilestoneParams{
		MilestoneID: 1,
		Message:     "approved",
	})
	require.NoError(t, err)
}

func TestReplayRebuildsIdenticalState(t *testing.T) {
	sourceDb := newTestDatabase(t)
	source, err := ledger.NewState(ledger.Config{
		Database: sourceDb,
		Params:   testParams(),
	})
	require.NoError(t, err)
	runScenario(t, source)
	// Replay the journal into a completely fresh database
	rebuilt, err := ledger.NewState(ledger.Config{
		Database: newTestDatabase(t),
		Params:   testParams(),
	})
	require.NoError(t, err)
	require.NoError(t, rebuilt.Replay(sourceDb.Journal()))
	assert.Equal(t, source.Cursor(), rebuilt.Cursor())
	for _, account := range []common.Address{
		alice, bob, carol, dave,
		testParams().FeeCollector,
		ledger.GrantEscrowAccount(1),
		ledger.CampaignPoolAccount(1),
	} {
		wantAvailable, wantEscrowed := source.Balance(
			account,
			ledger.NativeToken,
		)
		gotAvailable, gotEscrowed := rebuilt.Balance(
			account,
			ledger.NativeToken,
		)
		assert.Equal(t, wantAvailable, gotAvailable)
		assert.Equal(t, wantEscrowed, gotEscrowed)
	}
	wantCampaign, err := source.GetCampaign(1)
	require.NoError(t, err)
	gotCampaign, err := rebuilt.GetCampaign(1)
	require.NoError(t, err)
	assert.Equal(t, wantCampaign, gotCampaign)
	wantGrant, err := source.GetGrant(1)
	require.NoError(t, err)
	gotGrant, err := rebuilt.GetGrant(1)
	require.NoError(t, err)
	assert.Equal(t, wantGrant, gotGrant)
	wantMilestone, err := source.GetMilestone(1)
	require.NoError(t, err)
	gotMilestone, err := rebuilt.GetMilestone(1)
	require.NoError(t, err)
	assert.Equal(t, wantMilestone, gotMilestone)
	for _, projectID := range []uint64{7, 8} {
		want, err := source.GetParticipation(1, projectID)
		require.NoError(t, err)
		got, err := rebuilt.GetParticipation(1, projectID)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestReplayIsIdempotent(t *testing.T) {
	sourceDb := newTestDatabase(t)
	source, err := ledger.NewState(ledger.Config{
		Database: sourceDb,
		Params:   testParams(),
	})
	require.NoError(t, err)
	runScenario(t, source)
	cursor := source.Cursor()
	// Replaying the local journal skips everything already applied
	require.NoError(t, source.Replay(sourceDb.Journal()))
	assert.Equal(t, cursor, source.Cursor())
	available, _ := source.Balance(bob, ledger.NativeToken)
	// Quadratic payout 150 plus milestone net 285 (gross 300, fee 15)
	assert.Equal(t, int64(435), available.Int64())
}

func TestReplayToMaterializesPointInTime(t *testing.T) {
	sourceDb := newTestDatabase(t)
	source, err := ledger.NewState(ledger.Config{
		Database: sourceDb,
		Params:   testParams(),
	})
	require.NoError(t, err)
	q := &intentSeq{}
	campaignID := setupVotedCampaign(t, source, q, ledger.CreateCampaignParams{
		UseQuadratic: true,
	})
	err = source.DistributeFunds(q.next(alice, 200), ledger.DistributeFundsParams{
		CampaignID: campaignID,
	})
	require.NoError(t, err)
	// Everything up to here is "as of" this cursor
	bound := source.Cursor()
	err = source.CreateGrant(q.next(alice, 300), ledger.CreateGrantParams{
		Grantee:        bob,
		SiteFeePct:     5,
		ReviewTimeLock: 86400,
	})
	require.NoError(t, err)
	rebuilt, err := ledger.NewState(ledger.Config{
		Database: newTestDatabase(t),
		Params:   testParams(),
	})
	require.NoError(t, err)
	require.NoError(t, rebuilt.ReplayTo(
		sourceDb.Journal(),
		database.Cursor{Block: bound.Block, TxIndex: bound.TxIndex},
	))
	// Distribution is applied, the later grant is not
	campaign, err := rebuilt.GetCampaign(campaignID)
	require.NoError(t, err)
	assert.True(t, campaign.Distributed)
	_, err = rebuilt.GetGrant(1)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	available, _ := rebuilt.Balance(bob, ledger.NativeToken)
	assert.Equal(t, int64(150), available.Int64())
}

// Journal-ahead recovery: if the metadata store misses the tail of the
// journal, replaying the local journal catches it back up
func TestReplayAfterCursorMismatch(t *testing.T) {
	dataDir := t.TempDir()
	db, err := database.New(&database.Config{DataDir: dataDir})
	require.NoError(t, err)
	s, err := ledger.NewState(ledger.Config{
		Database: db,
		Params:   testParams(),
	})
	require.NoError(t, err)
	q := &intentSeq{}
	fund(t, s, q, alice, ledger.NativeToken, 100, 1)
	fund(t, s, q, alice, ledger.NativeToken, 50, 2)
	require.NoError(t, db.Close())
	// Reopen and replay; everything is already applied, so state is
	// unchanged
	db, err = database.New(&database.Config{DataDir: dataDir})
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck
	s, err = ledger.NewState(ledger.Config{
		Database: db,
		Params:   testParams(),
	})
	require.NoError(t, err)
	require.NoError(t, s.Replay(db.Journal()))
	available, _ := s.Balance(alice, ledger.NativeToken)
	assert.Equal(t, int64(150), available.Int64())
}
