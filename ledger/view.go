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
)

// Read-side queries. All return copies taken under the read lock, so
// callers never observe a partially applied intent.

// Balance reports an account's available and escrowed funds for a token
func (s *State) Balance(
	account, token common.Address,
) (available, escrowed *big.Int) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	entry, ok := s.balances[balanceKey{Account: account, Token: token}]
	if !ok {
		return new(big.Int), new(big.Int)
	}
	return entry.Available, entry.Escrowed
}

// TotalHeld sums available plus escrowed funds across every account for
// a token. Internal movements never change this value; only deposits and
// withdrawals do.
func (s *State) TotalHeld(token common.Address) *big.Int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	ret := new(big.Int)
	for key, entry := range s.balances {
		if key.Token != token {
			continue
		}
		ret.Add(ret, entry.Available)
		ret.Add(ret, entry.Escrowed)
	}
	return ret
}

// GetCampaign returns a campaign by id
func (s *State) GetCampaign(campaignID uint64) (models.Campaign, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	campaign, ok := s.campaigns[campaignID]
	if !ok {
		return models.Campaign{}, fmt.Errorf(
			"%w: campaign %d",
			ErrNotFound,
			campaignID,
		)
	}
	return *campaign, nil
}

// CampaignTokens returns the tokens accepted for voting in a campaign
func (s *State) CampaignTokens(campaignID uint64) []common.Address {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	ret := make([]common.Address, 0, len(s.campaignTokens[campaignID]))
	for token := range s.campaignTokens[campaignID] {
		ret = append(ret, token)
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].Cmp(ret[j]) < 0
	})
	return ret
}

// GetParticipation returns a project's participation in a campaign
func (s *State) GetParticipation(
	campaignID, projectID uint64,
) (models.Participation, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	participation, ok := s.participations[participationKey{
		CampaignID: campaignID,
		ProjectID:  projectID,
	}]
	if !ok {
		return models.Participation{}, fmt.Errorf(
			"%w: project %d in campaign %d",
			ErrNotFound,
			projectID,
			campaignID,
		)
	}
	return *participation, nil
}

// VoterTotal returns the native-equivalent weight a voter has spent in a
// campaign
func (s *State) VoterTotal(
	campaignID uint64,
	voter common.Address,
) *big.Int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	total := s.voterTotals[campaignID][voter]
	if total == nil {
		return new(big.Int)
	}
	return total
}

// GetGrant returns a grant by id
func (s *State) GetGrant(grantID uint64) (models.Grant, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	grant, ok := s.grants[grantID]
	if !ok {
		return models.Grant{}, fmt.Errorf(
			"%w: grant %d",
			ErrNotFound,
			grantID,
		)
	}
	return *grant, nil
}

// GetGrantFunds returns the funding record for a grant and token
func (s *State) GetGrantFunds(
	grantID uint64,
	token common.Address,
) (models.GrantFunds, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	funds, ok := s.grantFunds[grantFundsKey{GrantID: grantID, Token: token}]
	if !ok {
		return models.GrantFunds{}, fmt.Errorf(
			"%w: no funds in token %s for grant %d",
			ErrNotFound,
			token,
			grantID,
		)
	}
	return *funds, nil
}

// GetMilestone returns a milestone by id
func (s *State) GetMilestone(milestoneID uint64) (models.Milestone, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	milestone, ok := s.milestones[milestoneID]
	if !ok {
		return models.Milestone{}, fmt.Errorf(
			"%w: milestone %d",
			ErrNotFound,
			milestoneID,
		)
	}
	return *milestone, nil
}

// GrantMilestones returns a grant's milestones in creation order
func (s *State) GrantMilestones(grantID uint64) []models.Milestone {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	ids := s.grantMilestones[grantID]
	ret := make([]models.Milestone, 0, len(ids))
	for _, milestoneID := range ids {
		ret = append(ret, *s.milestones[milestoneID])
	}
	return ret
}

// GetBuilderSlot returns a builder slot by id
func (s *State) GetBuilderSlot(builderID uint64) (models.BuilderSlot, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	slot, ok := s.slots[builderID]
	if !ok {
		return models.BuilderSlot{}, fmt.Errorf(
			"%w: builder slot %d",
			ErrNotFound,
			builderID,
		)
	}
	return *slot, nil
}

// FragmentBalance returns the number of fragments of a slot held by an
// address
func (s *State) FragmentBalance(
	builderID uint64,
	holder common.Address,
) uint32 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.holdings[holdingKey{BuilderID: builderID, Holder: holder}]
}

// GetBid returns a bid by slot and bid id
func (s *State) GetBid(builderID, bidID uint64) (models.Bid, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	bid, ok := s.bids[bidKey{BuilderID: builderID, BidID: bidID}]
	if !ok {
		return models.Bid{}, fmt.Errorf(
			"%w: bid %d on slot %d",
			ErrNotFound,
			bidID,
			builderID,
		)
	}
	return *bid, nil
}
