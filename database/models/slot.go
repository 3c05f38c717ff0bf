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

type BuilderSlot struct {
	ID            uint64        `gorm:"primarykey"`
	Builder       types.Address `gorm:"index;size:20"`
	ProjectCount  uint32
	Tier          uint8
	FragmentsSold uint32
	FragmentPrice types.Uint256 `gorm:"type:text"`
	FlowPrice     types.Uint256 `gorm:"type:text"`
	Metadata      []byte
	Active        bool `gorm:"default:true"`
}

func (s *BuilderSlot) TableName() string {
	return "builder_slot"
}

// FragmentHolding tracks fragment ownership per slot and holder
type FragmentHolding struct {
	BuilderID uint64        `gorm:"primaryKey"`
	Holder    types.Address `gorm:"primaryKey;size:20"`
	Amount    uint32
}

func (h *FragmentHolding) TableName() string {
	return "fragment_holding"
}
