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
	"github.com/sovereign-seas/seasledger/internal/evmmath"
)

const intentCampaignDistribute = "campaign.distribute"

type DistributeFundsParams struct {
	CampaignID uint64 `json:"campaignId"`
}

// distributionShare pairs a winner with its payout weight
type distributionShare struct {
	participation *models.Participation
	weight        *big.Int
}

// DistributeFunds settles an ended campaign. Pool funds are split across
// the winning projects proportionally to their weights, with the admin
// fee and all rounding dust going to the campaign admin. Distribution is
// terminal: a second call fails with ErrAlreadyProcessed.
func (s *State) DistributeFunds(txc TxContext, p DistributeFundsParams) error {
	return s.applyIntent(
		txc,
		intentCampaignDistribute,
		p,
		func(fx *effects) error {
			campaign, ok := s.campaigns[p.CampaignID]
			if !ok {
				return fmt.Errorf(
					"%w: campaign %d",
					ErrNotFound,
					p.CampaignID,
				)
			}
			if !s.isCampaignAdmin(p.CampaignID, txc) {
				return ErrUnauthorized
			}
			if campaign.Distributed {
				return fmt.Errorf(
					"%w: campaign %d already distributed",
					ErrAlreadyProcessed,
					p.CampaignID,
				)
			}
			if txc.Now < campaign.EndTime {
				return fmt.Errorf(
					"%w: campaign %d ends at %d",
					ErrInvalidState,
					p.CampaignID,
					campaign.EndTime,
				)
			}
			shares := s.winningShares(campaign)
			totalWeight := new(big.Int)
			for _, share := range shares {
				totalWeight.Add(totalWeight, share.weight)
			}
			admin := common.Address(campaign.Admin)
			poolAccount := CampaignPoolAccount(p.CampaignID)
			for _, token := range s.poolTokens(poolAccount) {
				poolAmount := s.balances[balanceKey{
					Account: poolAccount,
					Token:   token,
				}].Escrowed
				if poolAmount.Sign() == 0 {
					continue
				}
				adminTake := evmmath.PercentOf(
					poolAmount,
					campaign.AdminFeePct,
				)
				distributable := new(big.Int).Sub(poolAmount, adminTake)
				paid := new(big.Int)
				if totalWeight.Sign() > 0 {
					for _, share := range shares {
						payout := evmmath.MulDiv(
							distributable,
							share.weight,
							totalWeight,
						)
						if payout.Sign() == 0 {
							continue
						}
						err := fx.releaseEscrow(
							poolAccount,
							common.Address(share.participation.Owner),
							token,
							payout,
						)
						if err != nil {
							return err
						}
						paid = new(big.Int).Add(paid, payout)
					}
				}
				// Admin fee plus rounding dust, or the whole pool when
				// nothing received votes
				adminTake = new(big.Int).Add(
					adminTake,
					new(big.Int).Sub(distributable, paid),
				)
				if adminTake.Sign() > 0 {
					err := fx.releaseEscrow(poolAccount, admin, token, adminTake)
					if err != nil {
						return err
					}
					fx.emit(FeeCollectedEventType, FeeCollectedEvent{
						Token:   token,
						Amount:  adminTake,
						FeeType: FeeTypeAdminFee,
					})
				}
			}
			// Record native-equivalent payouts on the winners
			totalFunds := campaign.TotalFunds.BigInt()
			distributableFunds := new(big.Int).Sub(
				totalFunds,
				evmmath.PercentOf(totalFunds, campaign.AdminFeePct),
			)
			for _, share := range shares {
				key := participationKey{
					CampaignID: p.CampaignID,
					ProjectID:  share.participation.ProjectID,
				}
				received := new(big.Int)
				if totalWeight.Sign() > 0 {
					received = evmmath.MulDiv(
						distributableFunds,
						share.weight,
						totalWeight,
					)
				}
				updated := *share.participation
				updated.FundsReceived = types.NewUint256(received)
				updated.FundsSet = true
				fx.save(&updated)
				fx.onInstall(func(s *State) {
					s.participations[key] = &updated
				})
				fx.emit(ProjectPayoutEventType, ProjectPayoutEvent{
					CampaignID:    p.CampaignID,
					ProjectID:     updated.ProjectID,
					Owner:         common.Address(updated.Owner),
					FundsReceived: received,
				})
			}
			updatedCampaign := *campaign
			updatedCampaign.Distributed = true
			updatedCampaign.DistributedAt = txc.Now
			fx.save(&updatedCampaign)
			fx.onInstall(func(s *State) {
				s.campaigns[updatedCampaign.ID] = &updatedCampaign
			})
			fx.emit(FundsDistributedEventType, FundsDistributedEvent{
				CampaignID: p.CampaignID,
				Quadratic:  campaign.UseQuadratic,
			})
			return nil
		},
	)
}

// winningShares selects the campaign's winners and computes their payout
// weights in deterministic project-id order. Winners are the approved
// projects with votes, limited to the top max-winners by vote count when
// the campaign caps winners (ties break toward the lower project id).
func (s *State) winningShares(
	campaign *models.Campaign,
) []distributionShare {
	var candidates []*models.Participation
	for key, participation := range s.participations {
		if key.CampaignID != campaign.ID {
			continue
		}
		if !participation.Approved {
			continue
		}
		if participation.VoteCount.BigInt().Sign() == 0 {
			continue
		}
		candidates = append(candidates, participation)
	}
	sort.Slice(candidates, func(i, j int) bool {
		cmp := candidates[i].VoteCount.BigInt().Cmp(
			candidates[j].VoteCount.BigInt(),
		)
		if cmp != 0 {
			return cmp > 0
		}
		return candidates[i].ProjectID < candidates[j].ProjectID
	})
	if campaign.MaxWinners > 0 && len(candidates) > int(campaign.MaxWinners) {
		candidates = candidates[:campaign.MaxWinners]
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ProjectID < candidates[j].ProjectID
	})
	ret := make([]distributionShare, 0, len(candidates))
	for _, participation := range candidates {
		weight := participation.VoteCount.BigInt()
		if campaign.UseQuadratic {
			weight = evmmath.Sqrt(weight)
		}
		ret = append(ret, distributionShare{
			participation: participation,
			weight:        weight,
		})
	}
	return ret
}

// poolTokens returns the tokens held by an escrow account in
// deterministic order
func (s *State) poolTokens(account common.Address) []common.Address {
	var ret []common.Address
	for key, entry := range s.balances {
		if key.Account != account {
			continue
		}
		if entry.Escrowed.Sign() == 0 {
			continue
		}
		ret = append(ret, key.Token)
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].Cmp(ret[j]) < 0
	})
	return ret
}
