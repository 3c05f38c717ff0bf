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
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sovereign-seas/seasledger/database/models"
	"github.com/sovereign-seas/seasledger/database/types"
)

const (
	intentGrantCreate      = "grant.create"
	intentGrantAddAdmin    = "grant.add_admin"
	intentGrantRemoveAdmin = "grant.remove_admin"
	intentGrantSetApprover = "grant.set_approver"
	intentGrantAddFunds    = "grant.add_funds"
	intentGrantWithdraw    = "grant.withdraw"
	intentGrantCancel      = "grant.cancel"
)

type CreateGrantParams struct {
	Grantee           common.Address    `json:"grantee"`
	LinkedEntityID    uint64            `json:"linkedEntityId"`
	EntityType        models.EntityType `json:"entityType"`
	SiteFeePct        uint8             `json:"siteFeePercentage"`
	ReviewTimeLock    uint64            `json:"reviewTimeLock"`
	MilestoneDeadline uint64            `json:"milestoneDeadline"`
}

type GrantAdminParams struct {
	GrantID uint64         `json:"grantId"`
	Admin   common.Address `json:"admin"`
}

type SetGrantApproverParams struct {
	GrantID  uint64         `json:"grantId"`
	Approver common.Address `json:"approver"`
}

type AddFundsToGrantParams struct {
	GrantID uint64         `json:"grantId"`
	Token   common.Address `json:"token"`
	Amount  *big.Int       `json:"amount"`
}

type WithdrawFromGrantParams struct {
	GrantID uint64         `json:"grantId"`
	To      common.Address `json:"to"`
	Token   common.Address `json:"token"`
	Amount  *big.Int       `json:"amount"`
}

type CancelGrantParams struct {
	GrantID  uint64         `json:"grantId"`
	RefundTo common.Address `json:"refundTo"`
}

// CreateGrant registers a milestone-based grant. The caller becomes the
// grant's first admin. The site fee is bounded by platform parameters
// and deducted from every milestone payout.
func (s *State) CreateGrant(txc TxContext, p CreateGrantParams) error {
	return s.applyIntent(txc, intentGrantCreate, p, func(fx *effects) error {
		if p.SiteFeePct < s.params.MinSiteFeePct ||
			p.SiteFeePct > s.params.MaxSiteFeePct {
			return fmt.Errorf(
				"%w: site fee %d%% outside [%d%%, %d%%]",
				ErrBoundsViolation,
				p.SiteFeePct,
				s.params.MinSiteFeePct,
				s.params.MaxSiteFeePct,
			)
		}
		if p.Grantee == (common.Address{}) {
			return fmt.Errorf("%w: zero grantee address", ErrInvalidState)
		}
		grantID := s.lastGrantID + 1
		grant := &models.Grant{
			ID:                grantID,
			Grantee:           types.Address(p.Grantee),
			LinkedEntityID:    p.LinkedEntityID,
			EntityType:        p.EntityType,
			SiteFeePct:        p.SiteFeePct,
			ReviewTimeLock:    p.ReviewTimeLock,
			MilestoneDeadline: p.MilestoneDeadline,
			Status:            models.GrantStatusActive,
			CreatedAt:         txc.Now,
		}
		fx.save(grant)
		fx.save(&models.GrantAdmin{
			GrantID: grantID,
			Admin:   types.Address(txc.Caller),
		})
		caller := txc.Caller
		fx.onInstall(func(s *State) {
			s.grants[grantID] = grant
			s.grantAdmins[grantID] = map[common.Address]bool{caller: true}
			s.lastGrantID = grantID
		})
		fx.emit(GrantCreatedEventType, GrantCreatedEvent{
			GrantID:        grantID,
			Grantee:        p.Grantee,
			LinkedEntityID: p.LinkedEntityID,
			EntityType:     uint8(p.EntityType),
			SiteFeePct:     p.SiteFeePct,
		})
		fx.emit(GrantAdminAddedEventType, GrantAdminAddedEvent{
			GrantID: grantID,
			Admin:   txc.Caller,
		})
		return nil
	})
}

// AddGrantAdmin adds an address to the grant's admin set
func (s *State) AddGrantAdmin(txc TxContext, p GrantAdminParams) error {
	return s.applyIntent(txc, intentGrantAddAdmin, p, func(fx *effects) error {
		if _, ok := s.grants[p.GrantID]; !ok {
			return fmt.Errorf("%w: grant %d", ErrNotFound, p.GrantID)
		}
		if !s.isGrantAdmin(p.GrantID, txc) {
			return ErrUnauthorized
		}
		if s.grantAdmins[p.GrantID][p.Admin] {
			return fmt.Errorf("%w: already a grant admin", ErrInvalidState)
		}
		fx.save(&models.GrantAdmin{
			GrantID: p.GrantID,
			Admin:   types.Address(p.Admin),
		})
		fx.onInstall(func(s *State) {
			if s.grantAdmins[p.GrantID] == nil {
				s.grantAdmins[p.GrantID] = make(map[common.Address]bool)
			}
			s.grantAdmins[p.GrantID][p.Admin] = true
		})
		fx.emit(GrantAdminAddedEventType, GrantAdminAddedEvent{
			GrantID: p.GrantID,
			Admin:   p.Admin,
		})
		return nil
	})
}

// RemoveGrantAdmin removes an address from the grant's admin set. The
// last admin cannot be removed.
func (s *State) RemoveGrantAdmin(txc TxContext, p GrantAdminParams) error {
	return s.applyIntent(
		txc,
		intentGrantRemoveAdmin,
		p,
		func(fx *effects) error {
			if _, ok := s.grants[p.GrantID]; !ok {
				return fmt.Errorf("%w: grant %d", ErrNotFound, p.GrantID)
			}
			if !s.isGrantAdmin(p.GrantID, txc) {
				return ErrUnauthorized
			}
			if !s.grantAdmins[p.GrantID][p.Admin] {
				return fmt.Errorf("%w: grant admin", ErrNotFound)
			}
			if len(s.grantAdmins[p.GrantID]) == 1 {
				return fmt.Errorf(
					"%w: cannot remove last grant admin",
					ErrInvalidState,
				)
			}
			fx.delete(&models.GrantAdmin{
				GrantID: p.GrantID,
				Admin:   types.Address(p.Admin),
			})
			fx.onInstall(func(s *State) {
				delete(s.grantAdmins[p.GrantID], p.Admin)
			})
			fx.emit(GrantAdminRemovedEventType, GrantAdminRemovedEvent{
				GrantID: p.GrantID,
				Admin:   p.Admin,
			})
			return nil
		},
	)
}

// SetGrantApprover lets the grantee designate an address that may review
// milestones alongside the grant admins. A zero address clears the
// designation.
func (s *State) SetGrantApprover(txc TxContext, p SetGrantApproverParams) error {
	return s.applyIntent(
		txc,
		intentGrantSetApprover,
		p,
		func(fx *effects) error {
			grant, ok := s.grants[p.GrantID]
			if !ok {
				return fmt.Errorf("%w: grant %d", ErrNotFound, p.GrantID)
			}
			if common.Address(grant.Grantee) != txc.Caller {
				return ErrUnauthorized
			}
			if grant.Status != models.GrantStatusActive {
				return fmt.Errorf(
					"%w: grant %d is %s",
					ErrInvalidState,
					p.GrantID,
					grant.Status,
				)
			}
			updated := *grant
			updated.Approver = types.Address(p.Approver)
			fx.save(&updated)
			fx.onInstall(func(s *State) {
				s.grants[updated.ID] = &updated
			})
			fx.emit(GrantApproverSetEventType, GrantApproverSetEvent{
				GrantID:  p.GrantID,
				Approver: p.Approver,
			})
			return nil
		},
	)
}

// AddFundsToGrant escrows the caller's tokens into the grant's escrow
// account and raises the grant's funding total for that token
func (s *State) AddFundsToGrant(txc TxContext, p AddFundsToGrantParams) error {
	return s.applyIntent(txc, intentGrantAddFunds, p, func(fx *effects) error {
		grant, ok := s.grants[p.GrantID]
		if !ok {
			return fmt.Errorf("%w: grant %d", ErrNotFound, p.GrantID)
		}
		if grant.Status != models.GrantStatusActive {
			return fmt.Errorf(
				"%w: grant %d is %s",
				ErrInvalidState,
				p.GrantID,
				grant.Status,
			)
		}
		err := fx.holdEscrow(
			txc.Caller,
			GrantEscrowAccount(p.GrantID),
			p.Token,
			p.Amount,
		)
		if err != nil {
			return err
		}
		key := grantFundsKey{GrantID: p.GrantID, Token: p.Token}
		funds := s.grantFunds[key]
		updated := models.GrantFunds{
			GrantID:        p.GrantID,
			Token:          types.Address(p.Token),
			TotalAmount:    types.NewUint256(nil),
			ReleasedAmount: types.NewUint256(nil),
		}
		if funds != nil {
			updated = *funds
		}
		updated.TotalAmount = types.NewUint256(
			new(big.Int).Add(updated.TotalAmount.BigInt(), p.Amount),
		)
		fx.save(&updated)
		fx.onInstall(func(s *State) {
			s.grantFunds[key] = &updated
		})
		fx.emit(FundsAddedToGrantEventType, FundsAddedToGrantEvent{
			GrantID: p.GrantID,
			Funder:  txc.Caller,
			Token:   p.Token,
			Amount:  p.Amount,
		})
		return nil
	})
}

// WithdrawFromGrant releases unreleased grant escrow back out of the
// grant. Only grant admins may withdraw, and only funds not yet released
// to the grantee.
func (s *State) WithdrawFromGrant(
	txc TxContext,
	p WithdrawFromGrantParams,
) error {
	return s.applyIntent(txc, intentGrantWithdraw, p, func(fx *effects) error {
		if _, ok := s.grants[p.GrantID]; !ok {
			return fmt.Errorf("%w: grant %d", ErrNotFound, p.GrantID)
		}
		if !s.isGrantAdmin(p.GrantID, txc) {
			return ErrUnauthorized
		}
		if !validAmount(p.Amount) {
			return ErrInvalidAmount
		}
		key := grantFundsKey{GrantID: p.GrantID, Token: p.Token}
		funds := s.grantFunds[key]
		if funds == nil {
			return fmt.Errorf(
				"%w: no funds in token %s for grant %d",
				ErrNotFound,
				p.Token,
				p.GrantID,
			)
		}
		unreleased := new(big.Int).Sub(
			funds.TotalAmount.BigInt(),
			funds.ReleasedAmount.BigInt(),
		)
		if unreleased.Cmp(p.Amount) < 0 {
			return fmt.Errorf(
				"%w: %s unreleased, %s requested",
				ErrInsufficientBalance,
				unreleased,
				p.Amount,
			)
		}
		err := fx.releaseEscrow(
			GrantEscrowAccount(p.GrantID),
			p.To,
			p.Token,
			p.Amount,
		)
		if err != nil {
			return err
		}
		updated := *funds
		updated.TotalAmount = types.NewUint256(
			new(big.Int).Sub(updated.TotalAmount.BigInt(), p.Amount),
		)
		fx.save(&updated)
		fx.onInstall(func(s *State) {
			s.grantFunds[key] = &updated
		})
		fx.emit(FundsWithdrawnFromGrantEventType, FundsWithdrawnFromGrantEvent{
			GrantID: p.GrantID,
			To:      p.To,
			Token:   p.Token,
			Amount:  p.Amount,
		})
		return nil
	})
}

// grantTokens returns the grant's funded tokens in deterministic order
func (s *State) grantTokens(grantID uint64) []common.Address {
	var ret []common.Address
	for key := range s.grantFunds {
		if key.GrantID == grantID {
			ret = append(ret, key.Token)
		}
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].Cmp(ret[j]) < 0
	})
	return ret
}

// CancelGrant cancels an active grant and refunds all unreleased escrow
func (s *State) CancelGrant(txc TxContext, p CancelGrantParams) error {
	return s.applyIntent(txc, intentGrantCancel, p, func(fx *effects) error {
		grant, ok := s.grants[p.GrantID]
		if !ok {
			return fmt.Errorf("%w: grant %d", ErrNotFound, p.GrantID)
		}
		if !s.isGrantAdmin(p.GrantID, txc) {
			return ErrUnauthorized
		}
		if grant.Status != models.GrantStatusActive {
			return fmt.Errorf(
				"%w: grant %d is %s",
				ErrInvalidState,
				p.GrantID,
				grant.Status,
			)
		}
		for _, token := range s.grantTokens(p.GrantID) {
			key := grantFundsKey{GrantID: p.GrantID, Token: token}
			funds := s.grantFunds[key]
			unreleased := new(big.Int).Sub(
				funds.TotalAmount.BigInt(),
				funds.ReleasedAmount.BigInt(),
			)
			if unreleased.Sign() == 0 {
				continue
			}
			err := fx.releaseEscrow(
				GrantEscrowAccount(p.GrantID),
				p.RefundTo,
				token,
				unreleased,
			)
			if err != nil {
				return err
			}
			updated := *funds
			updated.TotalAmount = updated.ReleasedAmount
			fx.save(&updated)
			fx.onInstall(func(s *State) {
				s.grantFunds[key] = &updated
			})
			fx.emit(
				FundsWithdrawnFromGrantEventType,
				FundsWithdrawnFromGrantEvent{
					GrantID: p.GrantID,
					To:      p.RefundTo,
					Token:   token,
					Amount:  unreleased,
				},
			)
		}
		updatedGrant := *grant
		updatedGrant.Status = models.GrantStatusCancelled
		fx.save(&updatedGrant)
		fx.onInstall(func(s *State) {
			s.grants[updatedGrant.ID] = &updatedGrant
		})
		fx.emit(GrantCancelledEventType, GrantCancelledEvent{
			GrantID:  p.GrantID,
			RefundTo: p.RefundTo,
		})
		return nil
	})
}
