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

	"github.com/sovereign-seas/seasledger/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newSlot registers a builder slot owned by alice with a fragment price
// of 10 and returns the slot id
func newSlot(t *testing.T, s *ledger.State, q *intentSeq) uint64 {
	t.Helper()
	err := s.RegisterBuilderSlot(q.next(alice, 10), ledger.RegisterBuilderSlotParams{
		Tier:          1,
		FragmentPrice: big.NewInt(10),
		FlowPrice:     big.NewInt(1),
	})
	require.NoError(t, err)
	return 1
}

func TestRegisterBuilderSlotMinPrice(t *testing.T) {
	s := newTestState(t)
	q := &intentSeq{}
	err := s.RegisterBuilderSlot(
		q.next(alice, 10),
		ledger.RegisterBuilderSlotParams{
			FragmentPrice: big.NewInt(4),
		},
	)
	assert.ErrorIs(t, err, ledger.ErrBoundsViolation)
}

func TestBuyFragmentsSplitsProceeds(t *testing.T) {
	s := newTestState(t)
	q := &intentSeq{}
	builderID := newSlot(t, s, q)
	fund(t, s, q, bob, ledger.NativeToken, 1000, 11)
	err := s.BuyFragments(q.next(bob, 12), ledger.BuyFragmentsParams{
		BuilderID: builderID,
		Amount:    30,
	})
	require.NoError(t, err)
	// 30 fragments at price 10: 300 total, split evenly between the
	// protocol and air treasuries
	available, _ := s.Balance(bob, ledger.NativeToken)
	assert.Equal(t, int64(700), available.Int64())
	available, _ = s.Balance(testParams().ProtocolTreasury, ledger.NativeToken)
	assert.Equal(t, int64(150), available.Int64())
	available, _ = s.Balance(testParams().AirTreasury, ledger.NativeToken)
	assert.Equal(t, int64(150), available.Int64())
	assert.Equal(t, uint32(30), s.FragmentBalance(builderID, bob))
	slot, err := s.GetBuilderSlot(builderID)
	require.NoError(t, err)
	assert.Equal(t, uint32(30), slot.FragmentsSold)
}

func TestBuyFragmentsSupplyCap(t *testing.T) {
	s := newTestState(t)
	q := &intentSeq{}
	builderID := newSlot(t, s, q)
	fund(t, s, q, bob, ledger.NativeToken, 10000, 11)
	err := s.BuyFragments(q.next(bob, 12), ledger.BuyFragmentsParams{
		BuilderID: builderID,
		Amount:    101,
	})
	assert.ErrorIs(t, err, ledger.ErrBoundsViolation)
	err = s.BuyFragments(q.next(bob, 13), ledger.BuyFragmentsParams{
		BuilderID: builderID,
		Amount:    100,
	})
	require.NoError(t, err)
	err = s.BuyFragments(q.next(bob, 14), ledger.BuyFragmentsParams{
		BuilderID: builderID,
		Amount:    1,
	})
	assert.ErrorIs(t, err, ledger.ErrBoundsViolation)
}

func TestBuyFragmentsOversizedAmount(t *testing.T) {
	s := newTestState(t)
	q := &intentSeq{}
	builderID := newSlot(t, s, q)
	fund(t, s, q, bob, ledger.NativeToken, 10000, 11)
	err := s.BuyFragments(q.next(bob, 12), ledger.BuyFragmentsParams{
		BuilderID: builderID,
		Amount:    50,
	})
	require.NoError(t, err)
	// An amount near the uint32 limit must not wrap the sold counter
	// back under the supply cap
	err = s.BuyFragments(q.next(bob, 13), ledger.BuyFragmentsParams{
		BuilderID: builderID,
		Amount:    4294967256,
	})
	assert.ErrorIs(t, err, ledger.ErrBoundsViolation)
	slot, err := s.GetBuilderSlot(builderID)
	require.NoError(t, err)
	assert.Equal(t, uint32(50), slot.FragmentsSold)
	assert.Equal(t, uint32(50), s.FragmentBalance(builderID, bob))
}

func TestBidEscrowRoundTrip(t *testing.T) {
	s := newTestState(t)
	q := &intentSeq{}
	builderID := newSlot(t, s, q)
	fund(t, s, q, carol, ledger.NativeToken, 500, 11)
	totalBefore := s.TotalHeld(ledger.NativeToken)
	err := s.PlaceBid(q.next(carol, 12), ledger.PlaceBidParams{
		BuilderID:        builderID,
		Amount:           20,
		PricePerFragment: big.NewInt(15),
		Expiry:           1000,
	})
	require.NoError(t, err)
	// 20 * 15 = 300 escrowed
	available, _ := s.Balance(carol, ledger.NativeToken)
	assert.Equal(t, int64(200), available.Int64())
	_, escrowed := s.Balance(ledger.MarketEscrowAccount(), ledger.NativeToken)
	assert.Equal(t, int64(300), escrowed.Int64())
	// Only the bidder may cancel before expiry
	err = s.CancelBid(q.next(bob, 13), ledger.CancelBidParams{
		BuilderID: builderID,
		BidID:     1,
	})
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)
	err = s.CancelBid(q.next(carol, 14), ledger.CancelBidParams{
		BuilderID: builderID,
		BidID:     1,
	})
	require.NoError(t, err)
	available, _ = s.Balance(carol, ledger.NativeToken)
	assert.Equal(t, int64(500), available.Int64())
	_, escrowed = s.Balance(ledger.MarketEscrowAccount(), ledger.NativeToken)
	assert.Equal(t, int64(0), escrowed.Int64())
	assert.Equal(t, totalBefore, s.TotalHeld(ledger.NativeToken))
	// A cancelled bid cannot be cancelled again
	err = s.CancelBid(q.next(carol, 15), ledger.CancelBidParams{
		BuilderID: builderID,
		BidID:     1,
	})
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
}

func TestAcceptBidPartialFill(t *testing.T) {
	s := newTestState(t)
	q := &intentSeq{}
	builderID := newSlot(t, s, q)
	// Bob buys 50 fragments on the primary market
	fund(t, s, q, bob, ledger.NativeToken, 500, 11)
	err := s.BuyFragments(q.next(bob, 12), ledger.BuyFragmentsParams{
		BuilderID: builderID,
		Amount:    50,
	})
	require.NoError(t, err)
	// Carol bids for 20 at 15 each
	fund(t, s, q, carol, ledger.NativeToken, 300, 13)
	err = s.PlaceBid(q.next(carol, 14), ledger.PlaceBidParams{
		BuilderID:        builderID,
		Amount:           20,
		PricePerFragment: big.NewInt(15),
		Expiry:           1000,
	})
	require.NoError(t, err)
	// Bob fills 12 of the 20
	err = s.AcceptBid(q.next(bob, 15), ledger.AcceptBidParams{
		BuilderID: builderID,
		BidID:     1,
		Amount:    12,
	})
	require.NoError(t, err)
	available, _ := s.Balance(bob, ledger.NativeToken)
	assert.Equal(t, int64(180), available.Int64())
	assert.Equal(t, uint32(38), s.FragmentBalance(builderID, bob))
	assert.Equal(t, uint32(12), s.FragmentBalance(builderID, carol))
	bid, err := s.GetBid(builderID, 1)
	require.NoError(t, err)
	assert.True(t, bid.Active)
	assert.Equal(t, uint64(8), bid.Amount)
	// Filling the rest deactivates the bid and drains its escrow
	err = s.AcceptBid(q.next(bob, 16), ledger.AcceptBidParams{
		BuilderID: builderID,
		BidID:     1,
		Amount:    8,
	})
	require.NoError(t, err)
	bid, err = s.GetBid(builderID, 1)
	require.NoError(t, err)
	assert.False(t, bid.Active)
	_, escrowed := s.Balance(ledger.MarketEscrowAccount(), ledger.NativeToken)
	assert.Equal(t, int64(0), escrowed.Int64())
}

func TestAcceptBidRequiresFragments(t *testing.T) {
	s := newTestState(t)
	q := &intentSeq{}
	builderID := newSlot(t, s, q)
	fund(t, s, q, carol, ledger.NativeToken, 300, 11)
	err := s.PlaceBid(q.next(carol, 12), ledger.PlaceBidParams{
		BuilderID:        builderID,
		Amount:           20,
		PricePerFragment: big.NewInt(15),
		Expiry:           1000,
	})
	require.NoError(t, err)
	err = s.AcceptBid(q.next(bob, 13), ledger.AcceptBidParams{
		BuilderID: builderID,
		BidID:     1,
		Amount:    5,
	})
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)
}

func TestCancelExpiredBid(t *testing.T) {
	s := newTestState(t)
	q := &intentSeq{}
	builderID := newSlot(t, s, q)
	fund(t, s, q, carol, ledger.NativeToken, 300, 11)
	err := s.PlaceBid(q.next(carol, 12), ledger.PlaceBidParams{
		BuilderID:        builderID,
		Amount:           20,
		PricePerFragment: big.NewInt(15),
		Expiry:           1000,
	})
	require.NoError(t, err)
	// Not expired yet
	err = s.CancelExpiredBid(q.next(bob, 1000), ledger.CancelBidParams{
		BuilderID: builderID,
		BidID:     1,
	})
	assert.ErrorIs(t, err, ledger.ErrExpired)
	// Past expiry anyone may reclaim it for the bidder
	err = s.CancelExpiredBid(q.next(bob, 1001), ledger.CancelBidParams{
		BuilderID: builderID,
		BidID:     1,
	})
	require.NoError(t, err)
	available, _ := s.Balance(carol, ledger.NativeToken)
	assert.Equal(t, int64(300), available.Int64())
	// An expired bid cannot be filled
	err = s.AcceptBid(q.next(bob, 1002), ledger.AcceptBidParams{
		BuilderID: builderID,
		BidID:     1,
		Amount:    1,
	})
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
}

func TestBuilderSlotManagement(t *testing.T) {
	s := newTestState(t)
	q := &intentSeq{}
	builderID := newSlot(t, s, q)
	// Only the owner updates pricing
	err := s.UpdateBuilderSlot(q.next(bob, 11), ledger.UpdateBuilderSlotParams{
		BuilderID:     builderID,
		FragmentPrice: big.NewInt(20),
	})
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)
	err = s.UpdateBuilderSlot(q.next(alice, 12), ledger.UpdateBuilderSlotParams{
		BuilderID:     builderID,
		FragmentPrice: big.NewInt(20),
		FlowPrice:     big.NewInt(2),
	})
	require.NoError(t, err)
	slot, err := s.GetBuilderSlot(builderID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), slot.FragmentPrice.Int64())
	// Reassignment is a super-admin operation
	err = s.ReassignBuilderSlot(q.next(alice, 13), ledger.ReassignBuilderSlotParams{
		BuilderID:  builderID,
		NewBuilder: bob,
	})
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)
	err = s.ReassignBuilderSlot(q.super(dave, 14), ledger.ReassignBuilderSlotParams{
		BuilderID:  builderID,
		NewBuilder: bob,
	})
	require.NoError(t, err)
	// Deactivated slots refuse purchases and new bids
	err = s.SetBuilderSlotActive(q.next(bob, 15), ledger.SetBuilderSlotActiveParams{
		BuilderID: builderID,
		Active:    false,
	})
	require.NoError(t, err)
	fund(t, s, q, carol, ledger.NativeToken, 100, 16)
	err = s.BuyFragments(q.next(carol, 17), ledger.BuyFragmentsParams{
		BuilderID: builderID,
		Amount:    1,
	})
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
	err = s.PlaceBid(q.next(carol, 18), ledger.PlaceBidParams{
		BuilderID:        builderID,
		Amount:           1,
		PricePerFragment: big.NewInt(15),
		Expiry:           1000,
	})
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
}
