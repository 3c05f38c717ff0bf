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
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sovereign-seas/seasledger/database/models"
	"github.com/sovereign-seas/seasledger/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testEvidence = common.HexToHash(
	"0x1111111111111111111111111111111111111111111111111111111111111111",
)

func submitMilestone(
	t *testing.T,
	s *ledger.State,
	q *intentSeq,
	grantID uint64,
	percentage uint8,
	now uint64,
) uint64 {
	t.Helper()
	err := s.SubmitMilestone(q.next(bob, now), ledger.SubmitMilestoneParams{
		GrantID:      grantID,
		Title:        "milestone",
		EvidenceHash: testEvidence,
		Percentage:   percentage,
	})
	require.NoError(t, err)
	milestones := s.GrantMilestones(grantID)
	return milestones[len(milestones)-1].ID
}

func TestMilestoneApprovePaysOut(t *testing.T) {
	s := newTestState(t)
	q := &intentSeq{}
	grantID := newFundedGrant(t, s, q, ledger.CreateGrantParams{})
	milestoneID := submitMilestone(t, s, q, grantID, 40, 100)
	// Unrelated callers cannot approve
	err := s.ApproveMilestone(q.next(carol, 101), ledger.ApproveMilestoneParams{
		MilestoneID: milestoneID,
	})
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)
	err = s.ApproveMilestone(q.next(alice, 102), ledger.ApproveMilestoneParams{
		MilestoneID: milestoneID,
		Message:     "looks good",
	})
	require.NoError(t, err)
	// 40% of 1000 is 400 gross, 5% site fee is 20, grantee nets 380
	available, _ := s.Balance(bob, ledger.NativeToken)
	assert.Equal(t, int64(380), available.Int64())
	available, _ = s.Balance(testParams().FeeCollector, ledger.NativeToken)
	assert.Equal(t, int64(20), available.Int64())
	funds, err := s.GetGrantFunds(grantID, ledger.NativeToken)
	require.NoError(t, err)
	assert.Equal(t, int64(400), funds.ReleasedAmount.Int64())
	milestone, err := s.GetMilestone(milestoneID)
	require.NoError(t, err)
	assert.Equal(t, models.MilestoneStatusApproved, milestone.Status)
	assert.True(t, milestone.Paid)
	assert.False(t, milestone.AutoApproved)
	// An approved milestone cannot be approved again
	err = s.ApproveMilestone(q.next(alice, 103), ledger.ApproveMilestoneParams{
		MilestoneID: milestoneID,
	})
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
}

func TestMilestoneAutoApprovalDeadline(t *testing.T) {
	s := newTestState(t)
	q := &intentSeq{}
	grantID := newFundedGrant(t, s, q, ledger.CreateGrantParams{})
	// Submitted at 100 with a one-day review lock: eligible at 86500
	milestoneID := submitMilestone(t, s, q, grantID, 40, 100)
	err := s.AutoApproveMilestone(
		q.next(carol, 86499),
		ledger.AutoApproveMilestoneParams{MilestoneID: milestoneID},
	)
	assert.ErrorIs(t, err, ledger.ErrExpired)
	// At the deadline anyone may trigger the approval
	err = s.AutoApproveMilestone(
		q.next(carol, 86500),
		ledger.AutoApproveMilestoneParams{MilestoneID: milestoneID},
	)
	require.NoError(t, err)
	milestone, err := s.GetMilestone(milestoneID)
	require.NoError(t, err)
	assert.True(t, milestone.AutoApproved)
	available, _ := s.Balance(bob, ledger.NativeToken)
	assert.Equal(t, int64(380), available.Int64())
}

func TestCanAutoApproveEligibility(t *testing.T) {
	s := newTestState(t)
	q := &intentSeq{}
	grantID := newFundedGrant(t, s, q, ledger.CreateGrantParams{})
	milestoneID := submitMilestone(t, s, q, grantID, 40, 100)
	// Eligible exactly at the review deadline, not a second before
	assert.False(t, s.CanAutoApprove(milestoneID, 86499))
	assert.True(t, s.CanAutoApprove(milestoneID, 86500))
	// Unknown milestones are never eligible
	assert.False(t, s.CanAutoApprove(999, 86500))
	// A lock suspends eligibility
	err := s.LockMilestone(q.next(alice, 101), ledger.MilestoneLockParams{
		MilestoneID: milestoneID,
	})
	require.NoError(t, err)
	assert.False(t, s.CanAutoApprove(milestoneID, 86500))
	err = s.UnlockMilestone(q.super(dave, 102), ledger.MilestoneLockParams{
		MilestoneID: milestoneID,
	})
	require.NoError(t, err)
	assert.True(t, s.CanAutoApprove(milestoneID, 86500))
	// Approval ends eligibility for good
	err = s.AutoApproveMilestone(
		q.next(carol, 86500),
		ledger.AutoApproveMilestoneParams{MilestoneID: milestoneID},
	)
	require.NoError(t, err)
	assert.False(t, s.CanAutoApprove(milestoneID, 86500))
}

func TestGranteeDesignatedApprover(t *testing.T) {
	s := newTestState(t)
	q := &intentSeq{}
	grantID := newFundedGrant(t, s, q, ledger.CreateGrantParams{})
	// Only the grantee designates an approver
	err := s.SetGrantApprover(q.next(alice, 100), ledger.SetGrantApproverParams{
		GrantID:  grantID,
		Approver: carol,
	})
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)
	err = s.SetGrantApprover(q.next(bob, 101), ledger.SetGrantApproverParams{
		GrantID:  grantID,
		Approver: carol,
	})
	require.NoError(t, err)
	milestoneID := submitMilestone(t, s, q, grantID, 40, 102)
	// The designated approver may approve but gains no other admin powers
	err = s.RejectMilestone(q.next(carol, 103), ledger.RejectMilestoneParams{
		MilestoneID: milestoneID,
	})
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)
	err = s.ApproveMilestone(q.next(carol, 104), ledger.ApproveMilestoneParams{
		MilestoneID: milestoneID,
		Message:     "verified",
	})
	require.NoError(t, err)
	milestone, err := s.GetMilestone(milestoneID)
	require.NoError(t, err)
	assert.Equal(t, carol.Hex(), milestone.ApprovedBy.String())
	available, _ := s.Balance(bob, ledger.NativeToken)
	assert.Equal(t, int64(380), available.Int64())
	// Clearing the designation revokes the authority
	second := submitMilestone(t, s, q, grantID, 30, 105)
	err = s.SetGrantApprover(q.next(bob, 106), ledger.SetGrantApproverParams{
		GrantID: grantID,
	})
	require.NoError(t, err)
	err = s.ApproveMilestone(q.next(carol, 107), ledger.ApproveMilestoneParams{
		MilestoneID: second,
	})
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)
}

func TestMilestonePenaltyReducesPayout(t *testing.T) {
	s := newTestState(t)
	q := &intentSeq{}
	grantID := newFundedGrant(t, s, q, ledger.CreateGrantParams{})
	milestoneID := submitMilestone(t, s, q, grantID, 40, 100)
	err := s.ApplyMilestonePenalty(
		q.next(alice, 101),
		ledger.ApplyMilestonePenaltyParams{
			MilestoneID: milestoneID,
			PenaltyPct:  50,
		},
	)
	require.NoError(t, err)
	err = s.ApproveMilestone(q.next(alice, 102), ledger.ApproveMilestoneParams{
		MilestoneID: milestoneID,
	})
	require.NoError(t, err)
	// Gross 400, penalty 50% leaves 200, site fee 5% is 10, net 190.
	// The withheld penalty stays in escrow as unreleased funds.
	available, _ := s.Balance(bob, ledger.NativeToken)
	assert.Equal(t, int64(190), available.Int64())
	available, _ = s.Balance(testParams().FeeCollector, ledger.NativeToken)
	assert.Equal(t, int64(10), available.Int64())
	funds, err := s.GetGrantFunds(grantID, ledger.NativeToken)
	require.NoError(t, err)
	assert.Equal(t, int64(200), funds.ReleasedAmount.Int64())
	_, escrowed := s.Balance(
		ledger.GrantEscrowAccount(grantID),
		ledger.NativeToken,
	)
	assert.Equal(t, int64(800), escrowed.Int64())
}

func TestMilestonePercentageBudget(t *testing.T) {
	s := newTestState(t)
	q := &intentSeq{}
	grantID := newFundedGrant(t, s, q, ledger.CreateGrantParams{})
	submitMilestone(t, s, q, grantID, 60, 100)
	submitMilestone(t, s, q, grantID, 40, 101)
	// The grant's percentage budget is exhausted
	err := s.SubmitMilestone(q.next(bob, 102), ledger.SubmitMilestoneParams{
		GrantID:      grantID,
		Title:        "one too many",
		EvidenceHash: testEvidence,
		Percentage:   1,
	})
	assert.ErrorIs(t, err, ledger.ErrBoundsViolation)
}

func TestMilestoneRejectAndResubmit(t *testing.T) {
	s := newTestState(t)
	q := &intentSeq{}
	grantID := newFundedGrant(t, s, q, ledger.CreateGrantParams{})
	milestoneID := submitMilestone(t, s, q, grantID, 40, 100)
	err := s.RejectMilestone(q.next(alice, 101), ledger.RejectMilestoneParams{
		MilestoneID: milestoneID,
		Message:     "missing evidence",
	})
	require.NoError(t, err)
	milestone, err := s.GetMilestone(milestoneID)
	require.NoError(t, err)
	assert.Equal(t, models.MilestoneStatusRejected, milestone.Status)
	assert.Equal(t, "missing evidence", milestone.RejectionMessage)
	// A rejected milestone cannot be approved
	err = s.ApproveMilestone(q.next(alice, 102), ledger.ApproveMilestoneParams{
		MilestoneID: milestoneID,
	})
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
	// Only the grantee resubmits
	err = s.ResubmitMilestone(q.next(alice, 103), ledger.ResubmitMilestoneParams{
		MilestoneID:  milestoneID,
		EvidenceHash: testEvidence,
	})
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)
	newEvidence := common.HexToHash(
		"0x2222222222222222222222222222222222222222222222222222222222222222",
	)
	err = s.ResubmitMilestone(q.next(bob, 500), ledger.ResubmitMilestoneParams{
		MilestoneID:  milestoneID,
		EvidenceHash: newEvidence,
	})
	require.NoError(t, err)
	milestone, err = s.GetMilestone(milestoneID)
	require.NoError(t, err)
	assert.Equal(t, models.MilestoneStatusSubmitted, milestone.Status)
	assert.Equal(t, newEvidence.Hex(), milestone.EvidenceHash.String())
	assert.Empty(t, milestone.RejectionMessage)
	// The review clock restarted from the resubmission
	assert.Equal(t, uint64(500+86400), milestone.ReviewDeadline)
}

func TestMilestoneLockBlocksReview(t *testing.T) {
	s := newTestState(t)
	q := &intentSeq{}
	grantID := newFundedGrant(t, s, q, ledger.CreateGrantParams{})
	milestoneID := submitMilestone(t, s, q, grantID, 40, 100)
	err := s.LockMilestone(q.next(alice, 101), ledger.MilestoneLockParams{
		MilestoneID: milestoneID,
	})
	require.NoError(t, err)
	err = s.ApproveMilestone(q.next(alice, 102), ledger.ApproveMilestoneParams{
		MilestoneID: milestoneID,
	})
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
	// A locked milestone never auto-approves, even past the deadline
	err = s.AutoApproveMilestone(
		q.next(carol, 200000),
		ledger.AutoApproveMilestoneParams{MilestoneID: milestoneID},
	)
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
	// Regular admins cannot unlock
	err = s.UnlockMilestone(q.next(alice, 200001), ledger.MilestoneLockParams{
		MilestoneID: milestoneID,
	})
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)
	err = s.UnlockMilestone(q.super(dave, 200002), ledger.MilestoneLockParams{
		MilestoneID: milestoneID,
	})
	require.NoError(t, err)
	err = s.ApproveMilestone(q.next(alice, 200003), ledger.ApproveMilestoneParams{
		MilestoneID: milestoneID,
	})
	require.NoError(t, err)
}

func TestGrantCompletesAtFullPercentage(t *testing.T) {
	s := newTestState(t)
	q := &intentSeq{}
	grantID := newFundedGrant(t, s, q, ledger.CreateGrantParams{})
	first := submitMilestone(t, s, q, grantID, 60, 100)
	second := submitMilestone(t, s, q, grantID, 40, 101)
	err := s.ApproveMilestone(q.next(alice, 102), ledger.ApproveMilestoneParams{
		MilestoneID: first,
	})
	require.NoError(t, err)
	grant, err := s.GetGrant(grantID)
	require.NoError(t, err)
	assert.Equal(t, models.GrantStatusActive, grant.Status)
	err = s.ApproveMilestone(q.next(alice, 103), ledger.ApproveMilestoneParams{
		MilestoneID: second,
	})
	require.NoError(t, err)
	grant, err = s.GetGrant(grantID)
	require.NoError(t, err)
	assert.Equal(t, models.GrantStatusCompleted, grant.Status)
	assert.Equal(t, uint64(103), grant.CompletedAt)
	// Full payout: 60% then 40% of the remaining total
	// First: gross 600, site fee 30, net 570
	// Second: total is still 1000, gross 400, site fee 20, net 380
	available, _ := s.Balance(bob, ledger.NativeToken)
	assert.Equal(t, int64(950), available.Int64())
	available, _ = s.Balance(testParams().FeeCollector, ledger.NativeToken)
	assert.Equal(t, int64(50), available.Int64())
}

func TestSubmitMilestoneHardDeadline(t *testing.T) {
	s := newTestState(t)
	q := &intentSeq{}
	grantID := newFundedGrant(t, s, q, ledger.CreateGrantParams{
		MilestoneDeadline: 1000,
	})
	err := s.SubmitMilestone(q.next(bob, 1001), ledger.SubmitMilestoneParams{
		GrantID:      grantID,
		Title:        "too late",
		EvidenceHash: testEvidence,
		Percentage:   40,
	})
	assert.ErrorIs(t, err, ledger.ErrExpired)
	err = s.SubmitMilestone(q.next(bob, 1000), ledger.SubmitMilestoneParams{
		GrantID:      grantID,
		Title:        "just in time",
		EvidenceHash: testEvidence,
		Percentage:   40,
	})
	require.NoError(t, err)
}
