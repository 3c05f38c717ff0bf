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
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// NativeToken is the zero address, used for native-currency accounting
var NativeToken = common.Address{}

// PlatformParams holds the platform-wide constants that bound fees and
// prices. They are fixed for the lifetime of an engine instance; changing
// them requires replaying the journal against a new instance.
type PlatformParams struct {
	CampaignCreationFee *big.Int
	MaxAdminFeePct      uint8
	MinSiteFeePct       uint8
	MaxSiteFeePct       uint8
	MinFragmentPrice    *big.Int
	FragmentsPerSlot    uint32
	TreasurySplitPct    uint8
	FeeCollector        common.Address
	ProtocolTreasury    common.Address
	AirTreasury         common.Address
}

// DefaultPlatformParams mirrors the production contract deployment values
func DefaultPlatformParams() PlatformParams {
	return PlatformParams{
		CampaignCreationFee: new(big.Int).Mul(
			big.NewInt(2),
			new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil),
		),
		MaxAdminFeePct:   30,
		MinSiteFeePct:    1,
		MaxSiteFeePct:    10,
		MinFragmentPrice: new(big.Int).Exp(big.NewInt(10), big.NewInt(15), nil),
		FragmentsPerSlot: 100,
		TreasurySplitPct: 50,
		FeeCollector:     common.HexToAddress("0x0000000000000000000000000000000000000fee"),
		ProtocolTreasury: common.HexToAddress("0x0000000000000000000000000000000000000aa1"),
		AirTreasury:      common.HexToAddress("0x0000000000000000000000000000000000000aa2"),
	}
}

func (p PlatformParams) validate() error {
	if p.CampaignCreationFee == nil || p.MinFragmentPrice == nil {
		return errors.New("platform params amounts must be set")
	}
	if p.MaxAdminFeePct > 100 {
		return errors.New("max admin fee percentage above 100")
	}
	if p.MinSiteFeePct > p.MaxSiteFeePct || p.MaxSiteFeePct > 100 {
		return errors.New("invalid site fee percentage bounds")
	}
	if p.TreasurySplitPct > 100 {
		return errors.New("treasury split percentage above 100")
	}
	if p.FragmentsPerSlot == 0 {
		return errors.New("fragments per slot must be non-zero")
	}
	return nil
}

// Escrow pools are synthetic accounts so that every fund movement is an
// explicit ledger entry between two accounts and conservation can be
// checked across the whole ledger.

// CampaignPoolAccount returns the synthetic escrow account holding a
// campaign's voting pool
func CampaignPoolAccount(campaignID uint64) common.Address {
	var ret common.Address
	ret[0] = 0xca
	binary.BigEndian.PutUint64(ret[12:], campaignID)
	return ret
}

// GrantEscrowAccount returns the synthetic escrow account holding a
// grant's milestone funds
func GrantEscrowAccount(grantID uint64) common.Address {
	var ret common.Address
	ret[0] = 0x6e
	binary.BigEndian.PutUint64(ret[12:], grantID)
	return ret
}

// MarketEscrowAccount returns the synthetic escrow account holding all
// outstanding bid funds
func MarketEscrowAccount() common.Address {
	var ret common.Address
	ret[0] = 0xfa
	return ret
}
