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
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const (
	intentTokenDeposit  = "token.deposit"
	intentTokenWithdraw = "token.withdraw"
	intentTokenTransfer = "token.transfer"
)

type DepositParams struct {
	Account common.Address `json:"account"`
	Token   common.Address `json:"token"`
	Amount  *big.Int       `json:"amount"`
}

type WithdrawParams struct {
	Account common.Address `json:"account"`
	Token   common.Address `json:"token"`
	Amount  *big.Int       `json:"amount"`
}

type TransferParams struct {
	To     common.Address `json:"to"`
	Token  common.Address `json:"token"`
	Amount *big.Int       `json:"amount"`
}

// Deposit credits new available funds to an account, mirroring value
// arriving from outside the ledger. Only the account owner or a
// super-admin may deposit.
func (s *State) Deposit(txc TxContext, p DepositParams) error {
	return s.applyIntent(txc, intentTokenDeposit, p, func(fx *effects) error {
		if !txc.SuperAdmin && txc.Caller != p.Account {
			return ErrUnauthorized
		}
		return fx.creditBalance(p.Account, p.Token, p.Amount)
	})
}

// Withdraw debits available funds from an account, mirroring value
// leaving the ledger. Only the account owner or a super-admin may
// withdraw.
func (s *State) Withdraw(txc TxContext, p WithdrawParams) error {
	return s.applyIntent(txc, intentTokenWithdraw, p, func(fx *effects) error {
		if !txc.SuperAdmin && txc.Caller != p.Account {
			return ErrUnauthorized
		}
		return fx.debitBalance(p.Account, p.Token, p.Amount)
	})
}

// Transfer moves available funds from the caller to another account
func (s *State) Transfer(txc TxContext, p TransferParams) error {
	return s.applyIntent(txc, intentTokenTransfer, p, func(fx *effects) error {
		return fx.transferAvailable(txc.Caller, p.To, p.Token, p.Amount)
	})
}
