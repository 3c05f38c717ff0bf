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

package ledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sovereign-seas/seasledger/database/models"
	"github.com/sovereign-seas/seasledger/database/types"
	"github.com/sovereign-seas/seasledger/internal/evmmath"
)

const (
	intentSlotRegister   = "market.register_slot"
	intentSlotUpdate     = "market.update_slot"
	intentSlotSetActive  = "market.set_slot_active"
	intentSlotReassign   = "market.reassign_slot"
	intentBuyFragments   = "market.buy_fragments"
	intentBidPlace       = "market.place_bid"
	intentBidAccept      = "market.accept_bid"
	intentBidCancel      = "market.cancel_bid"
	intentBidCancelStale = "market.cancel_expired_bid"
)

type RegisterBuilderSlotParams struct {
	Tier          uint8    `json:"tier"`
	ProjectCount  uint32   `json:"projectCount"`
	FragmentPrice *big.Int `json:"fragmentPrice"`
	FlowPrice     *big.Int `json:"flowPrice"`
	Metadata      []byte   `json:"metadata,omitempty"`
}

type UpdateBuilderSlotParams struct {
	BuilderID     uint64   `json:"builderId"`
	FragmentPrice *big.Int `json:"fragmentPrice"`
	FlowPrice     *big.Int `json:"flowPrice"`
	Metadata      []byte   `json:"metadata,omitempty"`
}

type SetBuilderSlotActiveParams struct {
	BuilderID uint64 `json:"builderId"`
	Active    bool   `json:"active"`
}

type ReassignBuilderSlotParams struct {
	BuilderID  uint64         `json:"builderId"`
	NewBuilder common.Address `json:"newBuilder"`
}

type BuyFragmentsParams struct {
	BuilderID uint64 `json:"builderId"`
	Amount    uint32 `json:"amount"`
}

type PlaceBidParams struct {
	BuilderID        uint64   `json:"builderId"`
	Amount           uint64   `json:"amount"`
	PricePerFragment *big.Int `json:"pricePerFragment"`
	Expiry           uint64   `json:"expiry"`
}

type AcceptBidParams struct {
	BuilderID uint64 `json:"builderId"`
	BidID     uint64 `json:"bidId"`
	Amount    uint64 `json:"amount"`
}

type CancelBidParams struct {
	BuilderID uint64 `json:"builderId"`
	BidID     uint64 `json:"bidId"`
}

// RegisterBuilderSlot creates a builder slot owned by the caller. The
// fragment price is bounded below by the platform minimum.
func (s *State) RegisterBuilderSlot(
	txc TxContext,
	p RegisterBuilderSlotParams,
) error {
	return s.applyIntent(txc, intentSlotRegister, p, func(fx *effects) error {
		if err := s.checkFragmentPrice(p.FragmentPrice); err != nil {
			return err
		}
		builderID := s.lastSlotID + 1
		slot := &models.BuilderSlot{
			ID:            builderID,
			Builder:       types.Address(txc.Caller),
			ProjectCount:  p.ProjectCount,
			Tier:          p.Tier,
			FragmentPrice: types.NewUint256(p.FragmentPrice),
			FlowPrice:     types.NewUint256(p.FlowPrice),
			Metadata:      p.Metadata,
			Active:        true,
		}
		fx.save(slot)
		fx.onInstall(func(s *State) {
			s.slots[builderID] = slot
			s.lastSlotID = builderID
		})
		fx.emit(BuilderSlotCreatedEventType, BuilderSlotCreatedEvent{
			BuilderID:     builderID,
			Builder:       txc.Caller,
			Tier:          p.Tier,
			FragmentPrice: p.FragmentPrice,
		})
		return nil
	})
}

func (s *State) checkFragmentPrice(price *big.Int) error {
	if price == nil || price.Cmp(s.params.MinFragmentPrice) < 0 {
		return fmt.Errorf(
			"%w: fragment price below minimum %s",
			ErrBoundsViolation,
			s.params.MinFragmentPrice,
		)
	}
	return nil
}

// slotForOwner returns the slot if the caller owns it or is a super-admin
func (s *State) slotForOwner(
	builderID uint64,
	txc TxContext,
) (*models.BuilderSlot, error) {
	slot, ok := s.slots[builderID]
	if !ok {
		return nil, fmt.Errorf("%w: builder slot %d", ErrNotFound, builderID)
	}
	if !txc.SuperAdmin && common.Address(slot.Builder) != txc.Caller {
		return nil, ErrUnauthorized
	}
	return slot, nil
}

// UpdateBuilderSlot changes slot pricing and metadata
func (s *State) UpdateBuilderSlot(
	txc TxContext,
	p UpdateBuilderSlotParams,
) error {
	return s.applyIntent(txc, intentSlotUpdate, p, func(fx *effects) error {
		slot, err := s.slotForOwner(p.BuilderID, txc)
		if err != nil {
			return err
		}
		if err := s.checkFragmentPrice(p.FragmentPrice); err != nil {
			return err
		}
		updated := *slot
		updated.FragmentPrice = types.NewUint256(p.FragmentPrice)
		updated.FlowPrice = types.NewUint256(p.FlowPrice)
		if p.Metadata != nil {
			updated.Metadata = p.Metadata
		}
		fx.save(&updated)
		fx.onInstall(func(s *State) {
			s.slots[updated.ID] = &updated
		})
		fx.emit(BuilderSlotUpdatedEventType, BuilderSlotUpdatedEvent{
			BuilderID:     p.BuilderID,
			FragmentPrice: p.FragmentPrice,
			FlowPrice:     p.FlowPrice,
		})
		return nil
	})
}

// SetBuilderSlotActive enables or disables primary sales and new bids
// for a slot
func (s *State) SetBuilderSlotActive(
	txc TxContext,
	p SetBuilderSlotActiveParams,
) error {
	return s.applyIntent(txc, intentSlotSetActive, p, func(fx *effects) error {
		slot, err := s.slotForOwner(p.BuilderID, txc)
		if err != nil {
			return err
		}
		if slot.Active == p.Active {
			return fmt.Errorf(
				"%w: slot already active=%t",
				ErrInvalidState,
				p.Active,
			)
		}
		updated := *slot
		updated.Active = p.Active
		fx.save(&updated)
		fx.onInstall(func(s *State) {
			s.slots[updated.ID] = &updated
		})
		fx.emit(BuilderSlotStatusEventType, BuilderSlotStatusEvent{
			BuilderID: p.BuilderID,
			Active:    p.Active,
		})
		return nil
	})
}

// ReassignBuilderSlot transfers slot ownership. Super-admin only.
func (s *State) ReassignBuilderSlot(
	txc TxContext,
	p ReassignBuilderSlotParams,
) error {
	return s.applyIntent(txc, intentSlotReassign, p, func(fx *effects) error {
		if !txc.SuperAdmin {
			return ErrUnauthorized
		}
		slot, ok := s.slots[p.BuilderID]
		if !ok {
			return fmt.Errorf("%w: builder slot %d", ErrNotFound, p.BuilderID)
		}
		oldBuilder := common.Address(slot.Builder)
		if oldBuilder == p.NewBuilder {
			return fmt.Errorf("%w: same builder", ErrInvalidState)
		}
		updated := *slot
		updated.Builder = types.Address(p.NewBuilder)
		fx.save(&updated)
		fx.onInstall(func(s *State) {
			s.slots[updated.ID] = &updated
		})
		fx.emit(BuilderSlotReassignedEventType, BuilderSlotReassignedEvent{
			BuilderID:  p.BuilderID,
			OldBuilder: oldBuilder,
			NewBuilder: p.NewBuilder,
		})
		return nil
	})
}

// BuyFragments purchases fragments from the primary supply of a slot at
// the slot's fragment price. Proceeds are split between the protocol and
// air treasuries.
func (s *State) BuyFragments(txc TxContext, p BuyFragmentsParams) error {
	return s.applyIntent(txc, intentBuyFragments, p, func(fx *effects) error {
		slot, ok := s.slots[p.BuilderID]
		if !ok {
			return fmt.Errorf("%w: builder slot %d", ErrNotFound, p.BuilderID)
		}
		if !slot.Active {
			return fmt.Errorf(
				"%w: builder slot %d inactive",
				ErrInvalidState,
				p.BuilderID,
			)
		}
		if p.Amount == 0 {
			return ErrInvalidAmount
		}
		// Compare in uint64 so an oversized amount cannot wrap the
		// uint32 counter past the supply cap
		if uint64(slot.FragmentsSold)+uint64(p.Amount) >
			uint64(s.params.FragmentsPerSlot) {
			return fmt.Errorf(
				"%w: %d fragments left in slot %d",
				ErrBoundsViolation,
				s.params.FragmentsPerSlot-slot.FragmentsSold,
				p.BuilderID,
			)
		}
		totalPrice := new(big.Int).Mul(
			slot.FragmentPrice.BigInt(),
			new(big.Int).SetUint64(uint64(p.Amount)),
		)
		protocolShare := evmmath.PercentOf(totalPrice, s.params.TreasurySplitPct)
		airShare := new(big.Int).Sub(totalPrice, protocolShare)
		if protocolShare.Sign() > 0 {
			err := fx.transferAvailable(
				txc.Caller,
				s.params.ProtocolTreasury,
				NativeToken,
				protocolShare,
			)
			if err != nil {
				return err
			}
		}
		if airShare.Sign() > 0 {
			err := fx.transferAvailable(
				txc.Caller,
				s.params.AirTreasury,
				NativeToken,
				airShare,
			)
			if err != nil {
				return err
			}
		}
		fx.emit(FeeCollectedEventType, FeeCollectedEvent{
			Token:   NativeToken,
			Amount:  totalPrice,
			FeeType: FeeTypeFragmentSale,
		})
		updatedSlot := *slot
		updatedSlot.FragmentsSold += p.Amount
		fx.save(&updatedSlot)
		holdKey := holdingKey{BuilderID: p.BuilderID, Holder: txc.Caller}
		newHolding := s.holdings[holdKey] + p.Amount
		fx.save(&models.FragmentHolding{
			BuilderID: p.BuilderID,
			Holder:    types.Address(txc.Caller),
			Amount:    newHolding,
		})
		fx.onInstall(func(s *State) {
			s.slots[updatedSlot.ID] = &updatedSlot
			s.holdings[holdKey] = newHolding
		})
		fx.emit(FragmentsPurchasedEventType, FragmentsPurchasedEvent{
			BuilderID:     p.BuilderID,
			Buyer:         txc.Caller,
			Amount:        p.Amount,
			TotalPrice:    totalPrice,
			ProtocolShare: protocolShare,
			AirShare:      airShare,
		})
		return nil
	})
}

// PlaceBid places a standing offer to buy fragments from existing
// holders. The full bid value is escrowed in native tokens until the bid
// is accepted, cancelled, or reclaimed after expiry.
func (s *State) PlaceBid(txc TxContext, p PlaceBidParams) error {
	return s.applyIntent(txc, intentBidPlace, p, func(fx *effects) error {
		slot, ok := s.slots[p.BuilderID]
		if !ok {
			return fmt.Errorf("%w: builder slot %d", ErrNotFound, p.BuilderID)
		}
		if !slot.Active {
			return fmt.Errorf(
				"%w: builder slot %d inactive",
				ErrInvalidState,
				p.BuilderID,
			)
		}
		if p.Amount == 0 || !validAmount(p.PricePerFragment) {
			return ErrInvalidAmount
		}
		if p.Expiry <= txc.Now {
			return fmt.Errorf(
				"%w: bid expiry %d not after %d",
				ErrExpired,
				p.Expiry,
				txc.Now,
			)
		}
		escrowTotal := new(big.Int).Mul(
			p.PricePerFragment,
			new(big.Int).SetUint64(p.Amount),
		)
		err := fx.holdEscrow(
			txc.Caller,
			MarketEscrowAccount(),
			NativeToken,
			escrowTotal,
		)
		if err != nil {
			return err
		}
		bidID := s.lastBidID + 1
		bid := &models.Bid{
			BuilderID:        p.BuilderID,
			BidID:            bidID,
			Bidder:           types.Address(txc.Caller),
			Amount:           p.Amount,
			PricePerFragment: types.NewUint256(p.PricePerFragment),
			Expiry:           p.Expiry,
			Active:           true,
		}
		fx.save(bid)
		fx.onInstall(func(s *State) {
			s.bids[bidKey{BuilderID: p.BuilderID, BidID: bidID}] = bid
			s.lastBidID = bidID
		})
		fx.emit(BidPlacedEventType, BidPlacedEvent{
			BuilderID:        p.BuilderID,
			BidID:            bidID,
			Bidder:           txc.Caller,
			Amount:           p.Amount,
			PricePerFragment: p.PricePerFragment,
			Expiry:           p.Expiry,
		})
		return nil
	})
}

// AcceptBid sells the caller's fragments into a standing bid. Partial
// fills are allowed; the bid deactivates once fully filled.
func (s *State) AcceptBid(txc TxContext, p AcceptBidParams) error {
	return s.applyIntent(txc, intentBidAccept, p, func(fx *effects) error {
		key := bidKey{BuilderID: p.BuilderID, BidID: p.BidID}
		bid, ok := s.bids[key]
		if !ok {
			return fmt.Errorf(
				"%w: bid %d on slot %d",
				ErrNotFound,
				p.BidID,
				p.BuilderID,
			)
		}
		if !bid.Active {
			return fmt.Errorf("%w: bid %d inactive", ErrInvalidState, p.BidID)
		}
		if txc.Now > bid.Expiry {
			return fmt.Errorf("%w: bid %d expired", ErrExpired, p.BidID)
		}
		bidder := common.Address(bid.Bidder)
		if bidder == txc.Caller {
			return fmt.Errorf("%w: cannot fill own bid", ErrInvalidState)
		}
		if p.Amount == 0 || p.Amount > bid.Amount {
			return ErrInvalidAmount
		}
		sellerKey := holdingKey{BuilderID: p.BuilderID, Holder: txc.Caller}
		sellerHolding := s.holdings[sellerKey]
		if uint64(sellerHolding) < p.Amount {
			return fmt.Errorf(
				"%w: %d fragments held, %d requested",
				ErrInsufficientBalance,
				sellerHolding,
				p.Amount,
			)
		}
		funds := new(big.Int).Mul(
			bid.PricePerFragment.BigInt(),
			new(big.Int).SetUint64(p.Amount),
		)
		err := fx.releaseEscrow(
			MarketEscrowAccount(),
			txc.Caller,
			NativeToken,
			funds,
		)
		if err != nil {
			return err
		}
		fill := uint32(p.Amount) //nolint:gosec
		bidderKey := holdingKey{BuilderID: p.BuilderID, Holder: bidder}
		newSellerHolding := sellerHolding - fill
		newBidderHolding := s.holdings[bidderKey] + fill
		if newSellerHolding == 0 {
			fx.delete(&models.FragmentHolding{
				BuilderID: p.BuilderID,
				Holder:    types.Address(txc.Caller),
			})
		} else {
			fx.save(&models.FragmentHolding{
				BuilderID: p.BuilderID,
				Holder:    types.Address(txc.Caller),
				Amount:    newSellerHolding,
			})
		}
		fx.save(&models.FragmentHolding{
			BuilderID: p.BuilderID,
			Holder:    types.Address(bidder),
			Amount:    newBidderHolding,
		})
		updatedBid := *bid
		updatedBid.Amount -= p.Amount
		filled := updatedBid.Amount == 0
		if filled {
			updatedBid.Active = false
		}
		fx.save(&updatedBid)
		fx.onInstall(func(s *State) {
			if newSellerHolding == 0 {
				delete(s.holdings, sellerKey)
			} else {
				s.holdings[sellerKey] = newSellerHolding
			}
			s.holdings[bidderKey] = newBidderHolding
			s.bids[key] = &updatedBid
		})
		fx.emit(BidAcceptedEventType, BidAcceptedEvent{
			BuilderID: p.BuilderID,
			BidID:     p.BidID,
			Seller:    txc.Caller,
			Bidder:    bidder,
			Amount:    p.Amount,
			Funds:     funds,
			Filled:    filled,
		})
		return nil
	})
}

// CancelBid cancels the caller's own active bid and refunds the
// remaining escrow
func (s *State) CancelBid(txc TxContext, p CancelBidParams) error {
	return s.applyIntent(txc, intentBidCancel, p, func(fx *effects) error {
		return s.cancelBid(fx, txc, p, false)
	})
}

// CancelExpiredBid reclaims the escrow of an expired bid to its bidder.
// Anyone may trigger it.
func (s *State) CancelExpiredBid(txc TxContext, p CancelBidParams) error {
	return s.applyIntent(txc, intentBidCancelStale, p, func(fx *effects) error {
		return s.cancelBid(fx, txc, p, true)
	})
}

func (s *State) cancelBid(
	fx *effects,
	txc TxContext,
	p CancelBidParams,
	expired bool,
) error {
	key := bidKey{BuilderID: p.BuilderID, BidID: p.BidID}
	bid, ok := s.bids[key]
	if !ok {
		return fmt.Errorf(
			"%w: bid %d on slot %d",
			ErrNotFound,
			p.BidID,
			p.BuilderID,
		)
	}
	if !bid.Active {
		return fmt.Errorf("%w: bid %d inactive", ErrInvalidState, p.BidID)
	}
	bidder := common.Address(bid.Bidder)
	if expired {
		if txc.Now <= bid.Expiry {
			return fmt.Errorf(
				"%w: bid %d not expired until %d",
				ErrExpired,
				p.BidID,
				bid.Expiry,
			)
		}
	} else if bidder != txc.Caller {
		return ErrUnauthorized
	}
	refund := new(big.Int).Mul(
		bid.PricePerFragment.BigInt(),
		new(big.Int).SetUint64(bid.Amount),
	)
	if refund.Sign() > 0 {
		err := fx.releaseEscrow(
			MarketEscrowAccount(),
			bidder,
			NativeToken,
			refund,
		)
		if err != nil {
			return err
		}
	}
	updated := *bid
	updated.Active = false
	fx.save(&updated)
	fx.onInstall(func(s *State) {
		s.bids[key] = &updated
	})
	fx.emit(BidCancelledEventType, BidCancelledEvent{
		BuilderID: p.BuilderID,
		BidID:     p.BidID,
		Bidder:    bidder,
		Refund:    refund,
		Expired:   expired,
	})
	return nil
}
