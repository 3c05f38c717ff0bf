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

// Bid is a standing offer to buy fragments of a builder slot. Escrow holds
// amount * price_per_fragment until the bid is accepted, cancelled, or
// reclaimed after expiry.
type Bid struct {
	BuilderID        uint64        `gorm:"primaryKey"`
	BidID            uint64        `gorm:"primaryKey"`
	Bidder           types.Address `gorm:"index;size:20"`
	Amount           uint64
	PricePerFragment types.Uint256 `gorm:"type:text"`
	Expiry           uint64
	Active           bool `gorm:"default:true"`
}

func (b *Bid) TableName() string {
	return "bid"
}
