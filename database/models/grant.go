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

type Grant struct {
	ID                uint64        `gorm:"primarykey"`
	Grantee           types.Address `gorm:"index;size:20"`
	Approver          types.Address `gorm:"size:20"`
	LinkedEntityID    uint64
	EntityType        EntityType
	SiteFeePct        uint8
	ReviewTimeLock    uint64
	MilestoneDeadline uint64
	Status            GrantStatus `gorm:"index"`
	CreatedAt         uint64
	CompletedAt       uint64
}

func (g *Grant) TableName() string {
	return "grant"
}

// GrantAdmin is one entry in a grant's admin set, separate from the grantee
type GrantAdmin struct {
	GrantID uint64        `gorm:"primaryKey"`
	Admin   types.Address `gorm:"primaryKey;size:20"`
}

func (a *GrantAdmin) TableName() string {
	return "grant_admin"
}

// GrantFunds tracks per-token grant funding. Escrowed amount is derived:
// total - released - withdrawn.
type GrantFunds struct {
	GrantID        uint64        `gorm:"primaryKey"`
	Token          types.Address `gorm:"primaryKey;size:20"`
	TotalAmount    types.Uint256 `gorm:"type:text"`
	ReleasedAmount types.Uint256 `gorm:"type:text"`
}

func (f *GrantFunds) TableName() string {
	return "grant_funds"
}
