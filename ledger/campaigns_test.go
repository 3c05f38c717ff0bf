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
	"github.com/sovereign-seas/seasledger/database/models"
	"github.com/sovereign-seas/seasledger/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newCampaign creates a funded admin and a campaign running from 100 to
// 200, returning the campaign id
func newCampaign(
	t *testing.T,
	s *ledger.State,
	q *intentSeq,
	p ledger.CreateCampaignParams,
) uint64 {
	t.Helper()
	if p.Name == "" {
		p.Name = "test campaign"
	}
	if p.EndTime == 0 {
		p.StartTime = 100
		p.EndTime = 200
	}
	fund(t, s, q, alice, ledger.NativeToken, 10, 1)
	require.NoError(t, s.CreateCampaign(q.next(alice, 50), p))
	return 1
}

func TestCreateCampaignCollectsFee(t *testing.T) {
	s := newTestState(t)
	q := &intentSeq{}
	campaignID := newCampaign(t, s, q, ledger.CreateCampaignParams{
		AdminFeePct: 10,
		PayoutToken: ledger.NativeToken,
	})
	available, _ := s.Balance(testParams().FeeCollector, ledger.NativeToken)
	assert.Equal(t, int64(10), available.Int64())
	available, _ = s.Balance(alice, ledger.NativeToken)
	assert.Equal(t, int64(0), available.Int64())
	campaign, err := s.GetCampaign(campaignID)
	require.NoError(t, err)
	assert.Equal(t, "test campaign", campaign.Name)
	assert.Equal(t, models.CampaignStatusUpcoming, campaign.Status(50))
	assert.Equal(t, models.CampaignStatusActive, campaign.Status(150))
	assert.Equal(t, models.CampaignStatusEnded, campaign.Status(200))
	// Payout token is supported automatically
	assert.Equal(
		t,
		[]common.Address{ledger.NativeToken},
		s.CampaignTokens(campaignID),
	)
}

func TestCreateCampaignSuperAdminSkipsFee(t *testing.T) {
	s := newTestState(t)
	q := &intentSeq{}
	err := s.CreateCampaign(q.super(alice, 50), ledger.CreateCampaignParams{
		Name:      "no fee",
		StartTime: 100,
		EndTime:   200,
	})
	require.NoError(t, err)
	available, _ := s.Balance(testParams().FeeCollector, ledger.NativeToken)
	assert.Equal(t, int64(0), available.Int64())
}

func TestCreateCampaignBounds(t *testing.T) {
	s := newTestState(t)
	q := &intentSeq{}
	fund(t, s, q, alice, ledger.NativeToken, 100, 1)
	err := s.CreateCampaign(q.next(alice, 50), ledger.CreateCampaignParams{
		Name:        "too greedy",
		StartTime:   100,
		EndTime:     200,
		AdminFeePct: 31,
	})
	assert.ErrorIs(t, err, ledger.ErrBoundsViolation)
	err = s.CreateCampaign(q.next(alice, 50), ledger.CreateCampaignParams{
		Name:      "backwards",
		StartTime: 200,
		EndTime:   100,
	})
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
	// Failed creations must not collect the fee
	available, _ := s.Balance(alice, ledger.NativeToken)
	assert.Equal(t, int64(100), available.Int64())
}

func TestCampaignAdminSet(t *testing.T) {
	s := newTestState(t)
	q := &intentSeq{}
	campaignID := newCampaign(t, s, q, ledger.CreateCampaignParams{
		PayoutToken: ledger.NativeToken,
	})
	// Non-admin cannot update
	err := s.UpdateCampaignMetadata(
		q.next(bob, 60),
		ledger.UpdateCampaignMetadataParams{
			CampaignID: campaignID,
			Name:       "hijacked",
		},
	)
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)
	// Grant bob admin rights, then he can
	err = s.AddCampaignAdmin(q.next(alice, 61), ledger.CampaignAdminParams{
		CampaignID: campaignID,
		Admin:      bob,
	})
	require.NoError(t, err)
	err = s.UpdateCampaignMetadata(
		q.next(bob, 62),
		ledger.UpdateCampaignMetadataParams{
			CampaignID: campaignID,
			Name:       "renamed",
		},
	)
	require.NoError(t, err)
	// Remove and the rights are gone
	err = s.RemoveCampaignAdmin(q.next(alice, 63), ledger.CampaignAdminParams{
		CampaignID: campaignID,
		Admin:      bob,
	})
	require.NoError(t, err)
	err = s.UpdateCampaignMetadata(
		q.next(bob, 64),
		ledger.UpdateCampaignMetadataParams{
			CampaignID: campaignID,
			Name:       "hijacked again",
		},
	)
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)
	// The primary admin cannot be removed
	err = s.RemoveCampaignAdmin(q.next(alice, 65), ledger.CampaignAdminParams{
		CampaignID: campaignID,
		Admin:      alice,
	})
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
}

func TestApproveProjectIdempotent(t *testing.T) {
	s := newTestState(t)
	q := &intentSeq{}
	campaignID := newCampaign(t, s, q, ledger.CreateCampaignParams{
		PayoutToken: ledger.NativeToken,
	})
	err := s.AddProject(q.next(bob, 60), ledger.AddProjectParams{
		CampaignID: campaignID,
		ProjectID:  7,
	})
	require.NoError(t, err)
	err = s.ApproveProject(q.next(alice, 61), ledger.ApproveProjectParams{
		CampaignID: campaignID,
		ProjectID:  7,
	})
	require.NoError(t, err)
	cursor := s.Cursor()
	// Second approval is a no-op, not an error, and journals nothing
	err = s.ApproveProject(q.next(alice, 62), ledger.ApproveProjectParams{
		CampaignID: campaignID,
		ProjectID:  7,
	})
	require.NoError(t, err)
	assert.Equal(t, cursor, s.Cursor())
	participation, err := s.GetParticipation(campaignID, 7)
	require.NoError(t, err)
	assert.True(t, participation.Approved)
	assert.Equal(t, bob, common.Address(participation.Owner))
}

func TestAddProjectDuplicate(t *testing.T) {
	s := newTestState(t)
	q := &intentSeq{}
	campaignID := newCampaign(t, s, q, ledger.CreateCampaignParams{
		PayoutToken: ledger.NativeToken,
	})
	err := s.AddProject(q.next(bob, 60), ledger.AddProjectParams{
		CampaignID: campaignID,
		ProjectID:  7,
	})
	require.NoError(t, err)
	err = s.AddProject(q.next(carol, 61), ledger.AddProjectParams{
		CampaignID: campaignID,
		ProjectID:  7,
	})
	assert.ErrorIs(t, err, ledger.ErrAlreadyProcessed)
}

// addApprovedProject registers and approves a project owned by the given
// address
func addApprovedProject(
	t *testing.T,
	s *ledger.State,
	q *intentSeq,
	campaignID, projectID uint64,
	owner common.Address,
) {
	t.Helper()
	err := s.AddProject(q.next(owner, 60), ledger.AddProjectParams{
		CampaignID: campaignID,
		ProjectID:  projectID,
	})
	require.NoError(t, err)
	err = s.ApproveProject(q.next(alice, 61), ledger.ApproveProjectParams{
		CampaignID: campaignID,
		ProjectID:  projectID,
	})
	require.NoError(t, err)
}

func TestVoteEscrowsIntoPool(t *testing.T) {
	s := newTestState(t)
	q := &intentSeq{}
	campaignID := newCampaign(t, s, q, ledger.CreateCampaignParams{
		PayoutToken: ledger.NativeToken,
	})
	addApprovedProject(t, s, q, campaignID, 7, bob)
	fund(t, s, q, carol, ledger.NativeToken, 1000, 120)
	err := s.Vote(q.next(carol, 150), ledger.VoteParams{
		CampaignID: campaignID,
		ProjectID:  7,
		Token:      ledger.NativeToken,
		Amount:     big.NewInt(250),
	})
	require.NoError(t, err)
	available, _ := s.Balance(carol, ledger.NativeToken)
	assert.Equal(t, int64(750), available.Int64())
	_, escrowed := s.Balance(
		ledger.CampaignPoolAccount(campaignID),
		ledger.NativeToken,
	)
	assert.Equal(t, int64(250), escrowed.Int64())
	participation, err := s.GetParticipation(campaignID, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(250), participation.VoteCount.Int64())
	assert.Equal(t, int64(250), s.VoterTotal(campaignID, carol).Int64())
}

func TestVotePreconditions(t *testing.T) {
	s := newTestState(t)
	q := &intentSeq{}
	campaignID := newCampaign(t, s, q, ledger.CreateCampaignParams{
		PayoutToken: ledger.NativeToken,
	})
	addApprovedProject(t, s, q, campaignID, 7, bob)
	err := s.AddProject(q.next(dave, 62), ledger.AddProjectParams{
		CampaignID: campaignID,
		ProjectID:  8,
	})
	require.NoError(t, err)
	fund(t, s, q, carol, ledger.NativeToken, 1000, 63)
	otherToken := common.HexToAddress(
		"0x000000000000000000000000000000000000dead",
	)
	testDefs := []struct {
		name    string
		now     uint64
		params  ledger.VoteParams
		wantErr error
	}{
		{
			name: "before start",
			now:  99,
			params: ledger.VoteParams{
				CampaignID: campaignID,
				ProjectID:  7,
				Token:      ledger.NativeToken,
				Amount:     big.NewInt(1),
			},
			wantErr: ledger.ErrInvalidState,
		},
		{
			name: "after end",
			now:  200,
			params: ledger.VoteParams{
				CampaignID: campaignID,
				ProjectID:  7,
				Token:      ledger.NativeToken,
				Amount:     big.NewInt(1),
			},
			wantErr: ledger.ErrInvalidState,
		},
		{
			name: "unsupported token",
			now:  150,
			params: ledger.VoteParams{
				CampaignID: campaignID,
				ProjectID:  7,
				Token:      otherToken,
				Amount:     big.NewInt(1),
			},
			wantErr: ledger.ErrInvalidState,
		},
		{
			name: "unapproved project",
			now:  150,
			params: ledger.VoteParams{
				CampaignID: campaignID,
				ProjectID:  8,
				Token:      ledger.NativeToken,
				Amount:     big.NewInt(1),
			},
			wantErr: ledger.ErrInvalidState,
		},
		{
			name: "unknown project",
			now:  150,
			params: ledger.VoteParams{
				CampaignID: campaignID,
				ProjectID:  99,
				Token:      ledger.NativeToken,
				Amount:     big.NewInt(1),
			},
			wantErr: ledger.ErrNotFound,
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			err := s.Vote(q.next(carol, testDef.now), testDef.params)
			assert.ErrorIs(t, err, testDef.wantErr)
		})
	}
}

func TestVoteLimit(t *testing.T) {
	s := newTestState(t)
	q := &intentSeq{}
	campaignID := newCampaign(t, s, q, ledger.CreateCampaignParams{
		PayoutToken: ledger.NativeToken,
	})
	addApprovedProject(t, s, q, campaignID, 7, bob)
	fund(t, s, q, carol, ledger.NativeToken, 1000, 62)
	err := s.SetVoteLimit(q.next(alice, 63), ledger.SetVoteLimitParams{
		CampaignID: campaignID,
		Voter:      carol,
		MaxAmount:  big.NewInt(300),
	})
	require.NoError(t, err)
	vote := func(now uint64, amount int64) error {
		return s.Vote(q.next(carol, now), ledger.VoteParams{
			CampaignID: campaignID,
			ProjectID:  7,
			Token:      ledger.NativeToken,
			Amount:     big.NewInt(amount),
		})
	}
	require.NoError(t, vote(150, 200))
	// A second vote over the cap fails, one at the cap succeeds
	assert.ErrorIs(t, vote(151, 101), ledger.ErrVoteLimitExceeded)
	require.NoError(t, vote(152, 100))
	// Clearing the limit lifts the cap
	err = s.SetVoteLimit(q.next(alice, 153), ledger.SetVoteLimitParams{
		CampaignID: campaignID,
		Voter:      carol,
	})
	require.NoError(t, err)
	require.NoError(t, vote(154, 500))
	assert.Equal(t, int64(800), s.VoterTotal(campaignID, carol).Int64())
}

func TestSetCampaignActivePausesVoting(t *testing.T) {
	s := newTestState(t)
	q := &intentSeq{}
	campaignID := newCampaign(t, s, q, ledger.CreateCampaignParams{
		PayoutToken: ledger.NativeToken,
	})
	addApprovedProject(t, s, q, campaignID, 7, bob)
	fund(t, s, q, carol, ledger.NativeToken, 100, 62)
	err := s.SetCampaignActive(q.next(alice, 140), ledger.SetCampaignActiveParams{
		CampaignID: campaignID,
		Active:     false,
	})
	require.NoError(t, err)
	err = s.Vote(q.next(carol, 150), ledger.VoteParams{
		CampaignID: campaignID,
		ProjectID:  7,
		Token:      ledger.NativeToken,
		Amount:     big.NewInt(10),
	})
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
	err = s.SetCampaignActive(q.next(alice, 151), ledger.SetCampaignActiveParams{
		CampaignID: campaignID,
		Active:     true,
	})
	require.NoError(t, err)
	err = s.Vote(q.next(carol, 152), ledger.VoteParams{
		CampaignID: campaignID,
		ProjectID:  7,
		Token:      ledger.NativeToken,
		Amount:     big.NewInt(10),
	})
	require.NoError(t, err)
}
