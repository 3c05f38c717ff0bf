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

// newFundedGrant creates a grant administered by alice with bob as
// grantee, funded by carol with 1000 native tokens, and returns the
// grant id. The review time lock is one day.
func newFundedGrant(
	t *testing.T,
	s *ledger.State,
	q *intentSeq,
	p ledger.CreateGrantParams,
) uint64 {
	t.Helper()
	if p.Grantee == (common.Address{}) {
		p.Grantee = bob
	}
	if p.SiteFeePct == 0 {
		p.SiteFeePct = 5
	}
	if p.ReviewTimeLock == 0 {
		p.ReviewTimeLock = 86400
	}
	require.NoError(t, s.CreateGrant(q.next(alice, 10), p))
	fund(t, s, q, carol, ledger.NativeToken, 1000, 11)
	err := s.AddFundsToGrant(q.next(carol, 12), ledger.AddFundsToGrantParams{
		GrantID: 1,
		Token:   ledger.NativeToken,
		Amount:  big.NewInt(1000),
	})
	require.NoError(t, err)
	return 1
}

func TestCreateGrantBounds(t *testing.T) {
	s := newTestState(t)
	q := &intentSeq{}
	for _, siteFee := range []uint8{0, 11} {
		err := s.CreateGrant(q.next(alice, 10), ledger.CreateGrantParams{
			Grantee:    bob,
			SiteFeePct: siteFee,
		})
		assert.ErrorIs(t, err, ledger.ErrBoundsViolation)
	}
}

func TestAddFundsToGrantEscrows(t *testing.T) {
	s := newTestState(t)
	q := &intentSeq{}
	grantID := newFundedGrant(t, s, q, ledger.CreateGrantParams{})
	available, _ := s.Balance(carol, ledger.NativeToken)
	assert.Equal(t, int64(0), available.Int64())
	_, escrowed := s.Balance(
		ledger.GrantEscrowAccount(grantID),
		ledger.NativeToken,
	)
	assert.Equal(t, int64(1000), escrowed.Int64())
	funds, err := s.GetGrantFunds(grantID, ledger.NativeToken)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), funds.TotalAmount.Int64())
	assert.Equal(t, int64(0), funds.ReleasedAmount.Int64())
}

func TestWithdrawFromGrant(t *testing.T) {
	s := newTestState(t)
	q := &intentSeq{}
	grantID := newFundedGrant(t, s, q, ledger.CreateGrantParams{})
	// Non-admin cannot withdraw
	err := s.WithdrawFromGrant(q.next(carol, 20), ledger.WithdrawFromGrantParams{
		GrantID: grantID,
		To:      carol,
		Token:   ledger.NativeToken,
		Amount:  big.NewInt(100),
	})
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)
	err = s.WithdrawFromGrant(q.next(alice, 21), ledger.WithdrawFromGrantParams{
		GrantID: grantID,
		To:      carol,
		Token:   ledger.NativeToken,
		Amount:  big.NewInt(100),
	})
	require.NoError(t, err)
	available, _ := s.Balance(carol, ledger.NativeToken)
	assert.Equal(t, int64(100), available.Int64())
	// Cannot withdraw more than the unreleased remainder
	err = s.WithdrawFromGrant(q.next(alice, 22), ledger.WithdrawFromGrantParams{
		GrantID: grantID,
		To:      carol,
		Token:   ledger.NativeToken,
		Amount:  big.NewInt(901),
	})
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)
}

func TestCancelGrantRefunds(t *testing.T) {
	s := newTestState(t)
	q := &intentSeq{}
	grantID := newFundedGrant(t, s, q, ledger.CreateGrantParams{})
	totalBefore := s.TotalHeld(ledger.NativeToken)
	err := s.CancelGrant(q.next(alice, 20), ledger.CancelGrantParams{
		GrantID:  grantID,
		RefundTo: carol,
	})
	require.NoError(t, err)
	available, _ := s.Balance(carol, ledger.NativeToken)
	assert.Equal(t, int64(1000), available.Int64())
	_, escrowed := s.Balance(
		ledger.GrantEscrowAccount(grantID),
		ledger.NativeToken,
	)
	assert.Equal(t, int64(0), escrowed.Int64())
	assert.Equal(t, totalBefore, s.TotalHeld(ledger.NativeToken))
	grant, err := s.GetGrant(grantID)
	require.NoError(t, err)
	assert.Equal(t, models.GrantStatusCancelled, grant.Status)
	// A cancelled grant accepts no further funds
	fund(t, s, q, carol, ledger.NativeToken, 10, 21)
	err = s.AddFundsToGrant(q.next(carol, 22), ledger.AddFundsToGrantParams{
		GrantID: grantID,
		Token:   ledger.NativeToken,
		Amount:  big.NewInt(10),
	})
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
}

func TestGrantAdminSet(t *testing.T) {
	s := newTestState(t)
	q := &intentSeq{}
	grantID := newFundedGrant(t, s, q, ledger.CreateGrantParams{})
	err := s.AddGrantAdmin(q.next(alice, 20), ledger.GrantAdminParams{
		GrantID: grantID,
		Admin:   dave,
	})
	require.NoError(t, err)
	// The last admin cannot be removed
	err = s.RemoveGrantAdmin(q.next(dave, 21), ledger.GrantAdminParams{
		GrantID: grantID,
		Admin:   alice,
	})
	require.NoError(t, err)
	err = s.RemoveGrantAdmin(q.next(dave, 22), ledger.GrantAdminParams{
		GrantID: grantID,
		Admin:   dave,
	})
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
}
