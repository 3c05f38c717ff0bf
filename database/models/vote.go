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

package models

import (
	"github.com/sovereign-seas/seasledger/database/types"
)

// Vote is an append-only record. Rows are never updated or deleted.
type Vote struct {
	ID             uint          `gorm:"primarykey"`
	CampaignID     uint64        `gorm:"index:idx_vote_campaign_project"`
	ProjectID      uint64        `gorm:"index:idx_vote_campaign_project"`
	Voter          types.Address `gorm:"index;size:20"`
	Token          types.Address `gorm:"size:20"`
	Amount         types.Uint256 `gorm:"type:text"`
	CeloEquivalent types.Uint256 `gorm:"type:text"`
	Block          uint64        `gorm:"index"`
	TxIndex        uint32
	VotedAt        uint64
}

func (v *Vote) TableName() string {
	return "vote"
}
