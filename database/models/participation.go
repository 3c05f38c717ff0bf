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

// Participation is a project's membership in a campaign. VoteCount only
// ever increases; FundsReceived is written once at distribution.
type Participation struct {
	CampaignID    uint64        `gorm:"primaryKey"`
	ProjectID     uint64        `gorm:"primaryKey"`
	Owner         types.Address `gorm:"size:20"`
	Approved      bool
	VoteCount     types.Uint256 `gorm:"type:text"`
	FundsReceived types.Uint256 `gorm:"type:text"`
	FundsSet      bool
}

func (p *Participation) TableName() string {
	return "participation"
}
