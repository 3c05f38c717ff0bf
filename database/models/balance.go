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

// TokenBalance tracks available and escrowed funds per account and token.
// Total held is always available + escrowed.
type TokenBalance struct {
	Account   types.Address `gorm:"primaryKey;size:20"`
	Token     types.Address `gorm:"primaryKey;size:20"`
	Available types.Uint256 `gorm:"type:text"`
	Escrowed  types.Uint256 `gorm:"type:text"`
}

func (b *TokenBalance) TableName() string {
	return "token_balance"
}
