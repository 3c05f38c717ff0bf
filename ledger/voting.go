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
)

const intentCampaignVote = "campaign.vote"

// VoteParams carries one vote. CeloEquivalent is resolved against the
// price oracle before the intent is journaled so replay is deterministic
// and never consults the oracle.
type VoteParams struct {
	CampaignID     uint64         `json:"campaignId"`
	ProjectID      uint64         `json:"projectId"`
	Token          common.Address `json:"token"`
	Amount         *big.Int       `json:"amount"`
	CeloEquivalent *big.Int       `json:"celoEquivalent"`
}

// Vote escrows the caller's tokens into the campaign pool and credits
// the project's tally with the native-equivalent weight
func (s *State) Vote(txc TxContext, p VoteParams) error {
	if !validAmount(p.Amount) {
		return ErrInvalidAmount
	}
	if p.CeloEquivalent == nil {
		equivalent, err := s.quoter.Quote(p.Token, NativeToken, p.Amount)
		if err != nil {
			return fmt.Errorf("failed to quote vote weight: %w", err)
		}
		p.CeloEquivalent = equivalent
	}
	return s.applyIntent(txc, intentCampaignVote, p, func(fx *effects) error {
		return s.applyVote(fx, txc, p)
	})
}

func (s *State) applyVote(fx *effects, txc TxContext, p VoteParams) error {
	campaign, ok := s.campaigns[p.CampaignID]
	if !ok {
		return fmt.Errorf("%w: campaign %d", ErrNotFound, p.CampaignID)
	}
	if status := campaign.Status(txc.Now); status != models.CampaignStatusActive {
		return fmt.Errorf(
			"%w: campaign %d is %s",
			ErrInvalidState,
			p.CampaignID,
			status,
		)
	}
	if !s.campaignTokens[p.CampaignID][p.Token] {
		return fmt.Errorf(
			"%w: token %s not supported by campaign %d",
			ErrInvalidState,
			p.Token,
			p.CampaignID,
		)
	}
	key := participationKey{CampaignID: p.CampaignID, ProjectID: p.ProjectID}
	participation, ok := s.participations[key]
	if !ok {
		return fmt.Errorf(
			"%w: project %d in campaign %d",
			ErrNotFound,
			p.ProjectID,
			p.CampaignID,
		)
	}
	if !participation.Approved {
		return fmt.Errorf(
			"%w: project %d not approved",
			ErrInvalidState,
			p.ProjectID,
		)
	}
	if !validAmount(p.Amount) || !validAmount(p.CeloEquivalent) {
		return ErrInvalidAmount
	}
	voterTotal := s.voterTotals[p.CampaignID][txc.Caller]
	if voterTotal == nil {
		voterTotal = new(big.Int)
	}
	newTotal := new(big.Int).Add(voterTotal, p.CeloEquivalent)
	if limit := s.voteLimits[p.CampaignID][txc.Caller]; limit != nil {
		if newTotal.Cmp(limit) > 0 {
			return fmt.Errorf(
				"%w: %s over limit %s",
				ErrVoteLimitExceeded,
				newTotal,
				limit,
			)
		}
	}
	err := fx.holdEscrow(
		txc.Caller,
		CampaignPoolAccount(p.CampaignID),
		p.Token,
		p.Amount,
	)
	if err != nil {
		return err
	}
	fx.save(&models.Vote{
		CampaignID:     p.CampaignID,
		ProjectID:      p.ProjectID,
		Voter:          types.Address(txc.Caller),
		Token:          types.Address(p.Token),
		Amount:         types.NewUint256(p.Amount),
		CeloEquivalent: types.NewUint256(p.CeloEquivalent),
		Block:          txc.Block,
		TxIndex:        txc.TxIndex,
		VotedAt:        txc.Now,
	})
	updatedPart := *participation
	updatedPart.VoteCount = types.NewUint256(
		new(big.Int).Add(participation.VoteCount.BigInt(), p.CeloEquivalent),
	)
	fx.save(&updatedPart)
	updatedCampaign := *campaign
	updatedCampaign.TotalFunds = types.NewUint256(
		new(big.Int).Add(campaign.TotalFunds.BigInt(), p.CeloEquivalent),
	)
	fx.save(&updatedCampaign)
	caller := txc.Caller
	fx.onInstall(func(s *State) {
		s.participations[key] = &updatedPart
		s.campaigns[updatedCampaign.ID] = &updatedCampaign
		if s.voterTotals[p.CampaignID] == nil {
			s.voterTotals[p.CampaignID] = make(map[common.Address]*big.Int)
		}
		s.voterTotals[p.CampaignID][caller] = newTotal
	})
	fx.emit(VoteCastEventType, VoteCastEvent{
		Voter:          txc.Caller,
		CampaignID:     p.CampaignID,
		ProjectID:      p.ProjectID,
		Token:          p.Token,
		Amount:         p.Amount,
		CeloEquivalent: p.CeloEquivalent,
	})
	return nil
}
