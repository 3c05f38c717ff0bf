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
	intentMilestoneSubmit       = "milestone.submit"
	intentMilestoneApprove      = "milestone.approve"
	intentMilestoneAutoApprove  = "milestone.auto_approve"
	intentMilestoneReject       = "milestone.reject"
	intentMilestoneResubmit     = "milestone.resubmit"
	intentMilestoneLock         = "milestone.lock"
	intentMilestoneUnlock       = "milestone.unlock"
	intentMilestoneApplyPenalty = "milestone.apply_penalty"
)

type SubmitMilestoneParams struct {
	GrantID      uint64      `json:"grantId"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	EvidenceHash common.Hash `json:"evidenceHash"`
	Percentage   uint8       `json:"percentage"`
}

type ApproveMilestoneParams struct {
	MilestoneID uint64 `json:"milestoneId"`
	Message     string `json:"message"`
}

type AutoApproveMilestoneParams struct {
	MilestoneID uint64 `json:"milestoneId"`
}

type RejectMilestoneParams struct {
	MilestoneID uint64 `json:"milestoneId"`
	Message     string `json:"message"`
}

type ResubmitMilestoneParams struct {
	MilestoneID  uint64      `json:"milestoneId"`
	EvidenceHash common.Hash `json:"evidenceHash"`
}

type MilestoneLockParams struct {
	MilestoneID uint64 `json:"milestoneId"`
}

type ApplyMilestonePenaltyParams struct {
	MilestoneID uint64 `json:"milestoneId"`
	PenaltyPct  uint8  `json:"penaltyPercentage"`
}

// SubmitMilestone submits a milestone claim against a grant. Only the
// grantee may submit. The claimed percentages across all of a grant's
// milestones may never exceed 100.
func (s *State) SubmitMilestone(txc TxContext, p SubmitMilestoneParams) error {
	return s.applyIntent(txc, intentMilestoneSubmit, p, func(fx *effects) error {
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
		if grant.MilestoneDeadline > 0 && txc.Now > grant.MilestoneDeadline {
			return fmt.Errorf(
				"%w: milestone deadline %d passed",
				ErrExpired,
				grant.MilestoneDeadline,
			)
		}
		if p.Percentage == 0 || p.Percentage > 100 {
			return fmt.Errorf(
				"%w: milestone percentage %d",
				ErrBoundsViolation,
				p.Percentage,
			)
		}
		var claimed uint32
		for _, milestoneID := range s.grantMilestones[p.GrantID] {
			claimed += uint32(s.milestones[milestoneID].Percentage)
		}
		if claimed+uint32(p.Percentage) > 100 {
			return fmt.Errorf(
				"%w: milestone percentages would total %d%%",
				ErrBoundsViolation,
				claimed+uint32(p.Percentage),
			)
		}
		milestoneID := s.lastMilestoneID + 1
		reviewDeadline := txc.Now + grant.ReviewTimeLock
		milestone := &models.Milestone{
			ID:             milestoneID,
			GrantID:        p.GrantID,
			Title:          p.Title,
			Description:    p.Description,
			EvidenceHash:   types.Hash(p.EvidenceHash),
			Percentage:     p.Percentage,
			Status:         models.MilestoneStatusSubmitted,
			SubmittedAt:    txc.Now,
			ReviewDeadline: reviewDeadline,
			Deadline:       grant.MilestoneDeadline,
		}
		fx.save(milestone)
		fx.onInstall(func(s *State) {
			s.milestones[milestoneID] = milestone
			s.grantMilestones[p.GrantID] = append(
				s.grantMilestones[p.GrantID],
				milestoneID,
			)
			s.lastMilestoneID = milestoneID
		})
		fx.emit(MilestoneSubmittedEventType, MilestoneSubmittedEvent{
			MilestoneID:    milestoneID,
			GrantID:        p.GrantID,
			Title:          p.Title,
			EvidenceHash:   p.EvidenceHash,
			Percentage:     p.Percentage,
			ReviewDeadline: reviewDeadline,
		})
		return nil
	})
}

// ApproveMilestone approves a submitted milestone and releases its share
// of grant funds in the same intent. Grant admins and the
// grantee-designated approver may approve manually.
func (s *State) ApproveMilestone(
	txc TxContext,
	p ApproveMilestoneParams,
) error {
	return s.applyIntent(
		txc,
		intentMilestoneApprove,
		p,
		func(fx *effects) error {
			milestone, err := s.reviewableMilestone(p.MilestoneID)
			if err != nil {
				return err
			}
			if !s.isGrantAdmin(milestone.GrantID, txc) &&
				!s.isGrantApprover(milestone.GrantID, txc) {
				return ErrUnauthorized
			}
			return s.approveAndRelease(fx, txc, milestone, p.Message, false)
		},
	)
}

// AutoApproveMilestone approves a milestone whose review deadline has
// passed without a decision. Anyone may trigger it, which keeps grantees
// from being starved by unresponsive reviewers.
func (s *State) AutoApproveMilestone(
	txc TxContext,
	p AutoApproveMilestoneParams,
) error {
	return s.applyIntent(
		txc,
		intentMilestoneAutoApprove,
		p,
		func(fx *effects) error {
			milestone, err := s.reviewableMilestone(p.MilestoneID)
			if err != nil {
				return err
			}
			if txc.Now < milestone.ReviewDeadline {
				return fmt.Errorf(
					"%w: review deadline %d not reached at %d",
					ErrExpired,
					milestone.ReviewDeadline,
					txc.Now,
				)
			}
			return s.approveAndRelease(fx, txc, milestone, "", true)
		},
	)
}

// CanAutoApprove reports whether a milestone is eligible for
// auto-approval at the given time: submitted, not locked, and at or past
// its review deadline. Eligibility never flips back to false as time
// advances while the milestone stays submitted.
func (s *State) CanAutoApprove(milestoneID uint64, now uint64) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	milestone, ok := s.milestones[milestoneID]
	if !ok {
		return false
	}
	return milestone.Status == models.MilestoneStatusSubmitted &&
		!milestone.Locked &&
		now >= milestone.ReviewDeadline
}

// reviewableMilestone returns a milestone that is submitted and not
// locked, or the reason it cannot be reviewed
func (s *State) reviewableMilestone(
	milestoneID uint64,
) (*models.Milestone, error) {
	milestone, ok := s.milestones[milestoneID]
	if !ok {
		return nil, fmt.Errorf("%w: milestone %d", ErrNotFound, milestoneID)
	}
	if milestone.Locked {
		return nil, fmt.Errorf(
			"%w: milestone %d is locked",
			ErrInvalidState,
			milestoneID,
		)
	}
	if milestone.Status != models.MilestoneStatusSubmitted {
		return nil, fmt.Errorf(
			"%w: milestone %d is %s",
			ErrInvalidState,
			milestoneID,
			milestone.Status,
		)
	}
	return milestone, nil
}

// approveAndRelease marks the milestone approved and pays out its share
// of every funded token, net of penalty and site fee. Payout happens
// exactly once because an approved milestone can never re-enter the
// submitted status.
func (s *State) approveAndRelease(
	fx *effects,
	txc TxContext,
	milestone *models.Milestone,
	message string,
	auto bool,
) error {
	if milestone.Paid {
		return fmt.Errorf(
			"%w: milestone %d already paid",
			ErrAlreadyProcessed,
			milestone.ID,
		)
	}
	grant := s.grants[milestone.GrantID]
	grantee := common.Address(grant.Grantee)
	escrowAccount := GrantEscrowAccount(milestone.GrantID)
	for _, token := range s.grantTokens(milestone.GrantID) {
		key := grantFundsKey{GrantID: milestone.GrantID, Token: token}
		funds := s.grantFunds[key]
		gross := evmmath.PercentOf(
			funds.TotalAmount.BigInt(),
			milestone.Percentage,
		)
		if gross.Sign() == 0 {
			continue
		}
		penalty := evmmath.PercentOf(gross, milestone.PenaltyPct)
		afterPenalty := new(big.Int).Sub(gross, penalty)
		siteFee := evmmath.PercentOf(afterPenalty, grant.SiteFeePct)
		net := new(big.Int).Sub(afterPenalty, siteFee)
		if net.Sign() > 0 {
			err := fx.releaseEscrow(escrowAccount, grantee, token, net)
			if err != nil {
				return err
			}
		}
		if siteFee.Sign() > 0 {
			err := fx.releaseEscrow(
				escrowAccount,
				s.params.FeeCollector,
				token,
				siteFee,
			)
			if err != nil {
				return err
			}
			fx.emit(FeeCollectedEventType, FeeCollectedEvent{
				Token:   token,
				Amount:  siteFee,
				FeeType: FeeTypeSiteFee,
			})
		}
		// Penalty amounts stay in escrow as unreleased funds, so the
		// released total only covers what actually left the escrow
		released := new(big.Int).Add(net, siteFee)
		updatedFunds := *funds
		updatedFunds.ReleasedAmount = types.NewUint256(
			new(big.Int).Add(funds.ReleasedAmount.BigInt(), released),
		)
		fx.save(&updatedFunds)
		fx.onInstall(func(s *State) {
			s.grantFunds[key] = &updatedFunds
		})
		fx.emit(MilestoneFundsReleasedEventType, MilestoneFundsReleasedEvent{
			MilestoneID: milestone.ID,
			GrantID:     milestone.GrantID,
			Grantee:     grantee,
			Token:       token,
			GrossAmount: gross,
			SiteFee:     siteFee,
			NetAmount:   net,
			PenaltyPct:  milestone.PenaltyPct,
		})
	}
	updated := *milestone
	updated.Status = models.MilestoneStatusApproved
	updated.ApprovedAt = txc.Now
	updated.ApprovedBy = types.Address(txc.Caller)
	updated.ApprovalMessage = message
	updated.AutoApproved = auto
	updated.Paid = true
	updated.PaidAt = txc.Now
	fx.save(&updated)
	fx.onInstall(func(s *State) {
		s.milestones[updated.ID] = &updated
	})
	fx.emit(MilestoneApprovedEventType, MilestoneApprovedEvent{
		MilestoneID:  milestone.ID,
		GrantID:      milestone.GrantID,
		ApprovedBy:   txc.Caller,
		Message:      message,
		AutoApproved: auto,
	})
	// The grant completes once approved milestones cover the full amount
	var approvedPct uint32
	for _, milestoneID := range s.grantMilestones[milestone.GrantID] {
		other := s.milestones[milestoneID]
		if other.ID == milestone.ID ||
			other.Status == models.MilestoneStatusApproved {
			approvedPct += uint32(other.Percentage)
		}
	}
	if approvedPct >= 100 {
		updatedGrant := *grant
		updatedGrant.Status = models.GrantStatusCompleted
		updatedGrant.CompletedAt = txc.Now
		fx.save(&updatedGrant)
		fx.onInstall(func(s *State) {
			s.grants[updatedGrant.ID] = &updatedGrant
		})
		fx.emit(GrantCompletedEventType, GrantCompletedEvent{
			GrantID:     updatedGrant.ID,
			CompletedAt: txc.Now,
		})
	}
	return nil
}

// RejectMilestone rejects a submitted milestone. The grantee may
// resubmit with new evidence.
func (s *State) RejectMilestone(txc TxContext, p RejectMilestoneParams) error {
	return s.applyIntent(txc, intentMilestoneReject, p, func(fx *effects) error {
		milestone, err := s.reviewableMilestone(p.MilestoneID)
		if err != nil {
			return err
		}
		if !s.isGrantAdmin(milestone.GrantID, txc) {
			return ErrUnauthorized
		}
		updated := *milestone
		updated.Status = models.MilestoneStatusRejected
		updated.RejectedBy = types.Address(txc.Caller)
		updated.RejectedAt = txc.Now
		updated.RejectionMessage = p.Message
		fx.save(&updated)
		fx.onInstall(func(s *State) {
			s.milestones[updated.ID] = &updated
		})
		fx.emit(MilestoneRejectedEventType, MilestoneRejectedEvent{
			MilestoneID: p.MilestoneID,
			GrantID:     milestone.GrantID,
			RejectedBy:  txc.Caller,
			Message:     p.Message,
		})
		return nil
	})
}

// ResubmitMilestone resubmits a rejected milestone with new evidence,
// restarting the review clock
func (s *State) ResubmitMilestone(
	txc TxContext,
	p ResubmitMilestoneParams,
) error {
	return s.applyIntent(
		txc,
		intentMilestoneResubmit,
		p,
		func(fx *effects) error {
			milestone, ok := s.milestones[p.MilestoneID]
			if !ok {
				return fmt.Errorf(
					"%w: milestone %d",
					ErrNotFound,
					p.MilestoneID,
				)
			}
			grant := s.grants[milestone.GrantID]
			if common.Address(grant.Grantee) != txc.Caller {
				return ErrUnauthorized
			}
			if milestone.Locked {
				return fmt.Errorf(
					"%w: milestone %d is locked",
					ErrInvalidState,
					p.MilestoneID,
				)
			}
			if milestone.Status != models.MilestoneStatusRejected {
				return fmt.Errorf(
					"%w: milestone %d is %s",
					ErrInvalidState,
					p.MilestoneID,
					milestone.Status,
				)
			}
			if grant.Status != models.GrantStatusActive {
				return fmt.Errorf(
					"%w: grant %d is %s",
					ErrInvalidState,
					milestone.GrantID,
					grant.Status,
				)
			}
			if milestone.Deadline > 0 && txc.Now > milestone.Deadline {
				return fmt.Errorf(
					"%w: milestone deadline %d passed",
					ErrExpired,
					milestone.Deadline,
				)
			}
			reviewDeadline := txc.Now + grant.ReviewTimeLock
			updated := *milestone
			updated.Status = models.MilestoneStatusSubmitted
			updated.EvidenceHash = types.Hash(p.EvidenceHash)
			updated.SubmittedAt = txc.Now
			updated.ReviewDeadline = reviewDeadline
			updated.RejectedBy = types.Address{}
			updated.RejectedAt = 0
			updated.RejectionMessage = ""
			fx.save(&updated)
			fx.onInstall(func(s *State) {
				s.milestones[updated.ID] = &updated
			})
			fx.emit(MilestoneResubmittedEventType, MilestoneResubmittedEvent{
				MilestoneID:    p.MilestoneID,
				GrantID:        milestone.GrantID,
				EvidenceHash:   p.EvidenceHash,
				ReviewDeadline: reviewDeadline,
			})
			return nil
		},
	)
}

// LockMilestone freezes a milestone pending dispute resolution. A locked
// milestone cannot be approved, rejected, resubmitted, or auto-approved.
func (s *State) LockMilestone(txc TxContext, p MilestoneLockParams) error {
	return s.applyIntent(txc, intentMilestoneLock, p, func(fx *effects) error {
		milestone, ok := s.milestones[p.MilestoneID]
		if !ok {
			return fmt.Errorf("%w: milestone %d", ErrNotFound, p.MilestoneID)
		}
		if !s.isGrantAdmin(milestone.GrantID, txc) {
			return ErrUnauthorized
		}
		if milestone.Locked {
			return fmt.Errorf(
				"%w: milestone %d already locked",
				ErrInvalidState,
				p.MilestoneID,
			)
		}
		if milestone.Status == models.MilestoneStatusApproved {
			return fmt.Errorf(
				"%w: milestone %d already approved",
				ErrInvalidState,
				p.MilestoneID,
			)
		}
		updated := *milestone
		updated.Locked = true
		fx.save(&updated)
		fx.onInstall(func(s *State) {
			s.milestones[updated.ID] = &updated
		})
		fx.emit(MilestoneLockedEventType, MilestoneLockedEvent{
			MilestoneID: p.MilestoneID,
			GrantID:     milestone.GrantID,
			LockedBy:    txc.Caller,
		})
		return nil
	})
}

// UnlockMilestone lifts a milestone lock. Only super-admins may unlock,
// since locks exist to stop the regular admin flow.
func (s *State) UnlockMilestone(txc TxContext, p MilestoneLockParams) error {
	return s.applyIntent(txc, intentMilestoneUnlock, p, func(fx *effects) error {
		if !txc.SuperAdmin {
			return ErrUnauthorized
		}
		milestone, ok := s.milestones[p.MilestoneID]
		if !ok {
			return fmt.Errorf("%w: milestone %d", ErrNotFound, p.MilestoneID)
		}
		if !milestone.Locked {
			return fmt.Errorf(
				"%w: milestone %d not locked",
				ErrInvalidState,
				p.MilestoneID,
			)
		}
		updated := *milestone
		updated.Locked = false
		fx.save(&updated)
		fx.onInstall(func(s *State) {
			s.milestones[updated.ID] = &updated
		})
		fx.emit(MilestoneUnlockedEventType, MilestoneUnlockedEvent{
			MilestoneID: p.MilestoneID,
			GrantID:     milestone.GrantID,
			UnlockedBy:  txc.Caller,
		})
		return nil
	})
}

// ApplyMilestonePenalty reduces a submitted milestone's eventual payout
// by a percentage. The withheld amount stays in grant escrow.
func (s *State) ApplyMilestonePenalty(
	txc TxContext,
	p ApplyMilestonePenaltyParams,
) error {
	return s.applyIntent(
		txc,
		intentMilestoneApplyPenalty,
		p,
		func(fx *effects) error {
			milestone, ok := s.milestones[p.MilestoneID]
			if !ok {
				return fmt.Errorf(
					"%w: milestone %d",
					ErrNotFound,
					p.MilestoneID,
				)
			}
			if !s.isGrantAdmin(milestone.GrantID, txc) {
				return ErrUnauthorized
			}
			if milestone.Status != models.MilestoneStatusSubmitted {
				return fmt.Errorf(
					"%w: milestone %d is %s",
					ErrInvalidState,
					p.MilestoneID,
					milestone.Status,
				)
			}
			if p.PenaltyPct > 100 {
				return fmt.Errorf(
					"%w: penalty %d%% above 100%%",
					ErrBoundsViolation,
					p.PenaltyPct,
				)
			}
			updated := *milestone
			updated.PenaltyPct = p.PenaltyPct
			fx.save(&updated)
			fx.onInstall(func(s *State) {
				s.milestones[updated.ID] = &updated
			})
			fx.emit(
				MilestonePenaltyAppliedEventType,
				MilestonePenaltyAppliedEvent{
					MilestoneID: p.MilestoneID,
					GrantID:     milestone.GrantID,
					PenaltyPct:  p.PenaltyPct,
				},
			)
			return nil
		},
	)
}
