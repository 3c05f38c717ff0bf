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
	"github.com/ethereum/go-ethereum/common"
)

// TxContext carries the caller identity, authorization, time, and ordering
// position for one intent. Authorization is an explicit argument to every
// operation rather than ambient state, and Now is injected so deadline
// behavior is fully testable.
type TxContext struct {
	Caller     common.Address
	SuperAdmin bool
	Now        uint64
	Block      uint64
	TxIndex    uint32
}

func (s *State) isCampaignAdmin(campaignID uint64, txc TxContext) bool {
	if txc.SuperAdmin {
		return true
	}
	campaign, ok := s.campaigns[campaignID]
	if !ok {
		return false
	}
	if common.Address(campaign.Admin) == txc.Caller {
		return true
	}
	return s.campaignAdmins[campaignID][txc.Caller]
}

func (s *State) isGrantAdmin(grantID uint64, txc TxContext) bool {
	if txc.SuperAdmin {
		return true
	}
	return s.grantAdmins[grantID][txc.Caller]
}

// isGrantApprover matches the grantee-designated approver. An unset
// (zero) approver matches nobody.
func (s *State) isGrantApprover(grantID uint64, txc TxContext) bool {
	grant, ok := s.grants[grantID]
	if !ok {
		return false
	}
	approver := common.Address(grant.Approver)
	return approver != (common.Address{}) && approver == txc.Caller
}
