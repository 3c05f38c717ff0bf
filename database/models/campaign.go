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

type Campaign struct {
	ID            uint64        `gorm:"primarykey"`
	Admin         types.Address `gorm:"index;size:20"`
	Name          string
	Description   string
	StartTime     uint64 `gorm:"index"`
	EndTime       uint64 `gorm:"index"`
	AdminFeePct   uint8
	MaxWinners    uint32
	UseQuadratic  bool
	UseCustom     bool
	PayoutToken   types.Address `gorm:"size:20"`
	FeeToken      types.Address `gorm:"size:20"`
	Active        bool          `gorm:"default:true"`
	TotalFunds    types.Uint256 `gorm:"type:text"`
	Distributed   bool
	DistributedAt uint64
	CreatedAt     uint64
}

func (c *Campaign) TableName() string {
	return "campaign"
}

// Status derives the campaign status from timing and the active flag
func (c *Campaign) Status(now uint64) CampaignStatus {
	if !c.Active {
		return CampaignStatusPaused
	}
	switch {
	case now < c.StartTime:
		return CampaignStatusUpcoming
	case now >= c.EndTime:
		return CampaignStatusEnded
	default:
		return CampaignStatusActive
	}
}

// CampaignAdmin is one entry in a campaign's explicit admin set. The
// campaign creator and global super-admins are implicit admins and do not
// appear here.
type CampaignAdmin struct {
	CampaignID uint64        `gorm:"primaryKey"`
	Admin      types.Address `gorm:"primaryKey;size:20"`
}

func (a *CampaignAdmin) TableName() string {
	return "campaign_admin"
}

// CampaignToken is a token accepted for voting in a campaign
type CampaignToken struct {
	CampaignID uint64        `gorm:"primaryKey"`
	Token      types.Address `gorm:"primaryKey;size:20"`
}

func (t *CampaignToken) TableName() string {
	return "campaign_token"
}

// VoteLimit is an optional per-campaign, per-voter cap on total
// CELO-equivalent vote weight
type VoteLimit struct {
	CampaignID uint64        `gorm:"primaryKey"`
	Voter      types.Address `gorm:"primaryKey;size:20"`
	MaxAmount  types.Uint256 `gorm:"type:text"`
}

func (l *VoteLimit) TableName() string {
	return "vote_limit"
}
