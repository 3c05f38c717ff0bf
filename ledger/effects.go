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
	"github.com/sovereign-seas/seasledger/database/models"
	"github.com/sovereign-seas/seasledger/database/types"
	"github.com/sovereign-seas/seasledger/event"
)

type balanceKey struct {
	Account common.Address
	Token   common.Address
}

// balanceEntry holds immutable amounts. Entries are replaced, never
// mutated in place, so sharing them between staged and committed state is
// safe.
type balanceEntry struct {
	Available *big.Int
	Escrowed  *big.Int
}

func zeroBalance() balanceEntry {
	return balanceEntry{
		Available: new(big.Int),
		Escrowed:  new(big.Int),
	}
}

type stagedEvent struct {
	Type    event.EventType
	Payload any
}

// effects collects the staged outcome of one intent. The validation phase
// of each operation builds an effects set without touching committed
// state. Nothing is persisted or installed until the whole intent
// validates, which gives all-or-nothing semantics without undo logic.
type effects struct {
	state    *State
	balances map[balanceKey]balanceEntry
	saves    []any
	deletes  []any
	events   []stagedEvent
	install  []func(*State)
}

func newEffects(s *State) *effects {
	return &effects{
		state:    s,
		balances: make(map[balanceKey]balanceEntry),
	}
}

// balance returns the staged balance for an account/token pair, falling
// back to committed state (copy on first touch)
func (fx *effects) balance(account, token common.Address) balanceEntry {
	key := balanceKey{Account: account, Token: token}
	if entry, ok := fx.balances[key]; ok {
		return entry
	}
	if entry, ok := fx.state.balances[key]; ok {
		return entry
	}
	return zeroBalance()
}

func (fx *effects) setBalance(
	account, token common.Address,
	entry balanceEntry,
) {
	fx.balances[balanceKey{Account: account, Token: token}] = entry
}

func (fx *effects) save(objs ...any) {
	fx.saves = append(fx.saves, objs...)
}

func (fx *effects) delete(objs ...any) {
	fx.deletes = append(fx.deletes, objs...)
}

func (fx *effects) emit(eventType event.EventType, payload any) {
	fx.events = append(
		fx.events,
		stagedEvent{Type: eventType, Payload: payload},
	)
}

func (fx *effects) onInstall(fn func(*State)) {
	fx.install = append(fx.install, fn)
}

func validAmount(amount *big.Int) bool {
	return amount != nil && amount.Sign() > 0
}

// creditBalance mints new available funds for an account
func (fx *effects) creditBalance(
	account, token common.Address,
	amount *big.Int,
) error {
	if !validAmount(amount) {
		return ErrInvalidAmount
	}
	entry := fx.balance(account, token)
	after := new(big.Int).Add(entry.Available, amount)
	fx.setBalance(
		account,
		token,
		balanceEntry{Available: after, Escrowed: entry.Escrowed},
	)
	fx.emit(TokenDepositedEventType, TokenDepositedEvent{
		Account:         account,
		Token:           token,
		Amount:          amount,
		AvailableBefore: entry.Available,
		AvailableAfter:  after,
	})
	return nil
}

// debitBalance burns available funds from an account
func (fx *effects) debitBalance(
	account, token common.Address,
	amount *big.Int,
) error {
	if !validAmount(amount) {
		return ErrInvalidAmount
	}
	entry := fx.balance(account, token)
	if entry.Available.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	after := new(big.Int).Sub(entry.Available, amount)
	fx.setBalance(
		account,
		token,
		balanceEntry{Available: after, Escrowed: entry.Escrowed},
	)
	fx.emit(TokenWithdrawnEventType, TokenWithdrawnEvent{
		Account:         account,
		Token:           token,
		Amount:          amount,
		AvailableBefore: entry.Available,
		AvailableAfter:  after,
	})
	return nil
}

// transferAvailable moves available funds between accounts
func (fx *effects) transferAvailable(
	from, to, token common.Address,
	amount *big.Int,
) error {
	if !validAmount(amount) {
		return ErrInvalidAmount
	}
	fromEntry := fx.balance(from, token)
	if fromEntry.Available.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	fromAfter := new(big.Int).Sub(fromEntry.Available, amount)
	fx.setBalance(
		from,
		token,
		balanceEntry{Available: fromAfter, Escrowed: fromEntry.Escrowed},
	)
	toEntry := fx.balance(to, token)
	toAfter := new(big.Int).Add(toEntry.Available, amount)
	fx.setBalance(
		to,
		token,
		balanceEntry{Available: toAfter, Escrowed: toEntry.Escrowed},
	)
	fx.emit(TokenTransferredEventType, TokenTransferredEvent{
		From:       from,
		To:         to,
		Token:      token,
		Amount:     amount,
		FromBefore: fromEntry.Available,
		FromAfter:  fromAfter,
		ToBefore:   toEntry.Available,
		ToAfter:    toAfter,
	})
	return nil
}

// holdEscrow moves available funds from an account into a holder's escrow
func (fx *effects) holdEscrow(
	from, holder, token common.Address,
	amount *big.Int,
) error {
	if !validAmount(amount) {
		return ErrInvalidAmount
	}
	fromEntry := fx.balance(from, token)
	if fromEntry.Available.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	fromAfter := new(big.Int).Sub(fromEntry.Available, amount)
	fx.setBalance(
		from,
		token,
		balanceEntry{Available: fromAfter, Escrowed: fromEntry.Escrowed},
	)
	holderEntry := fx.balance(holder, token)
	escrowAfter := new(big.Int).Add(holderEntry.Escrowed, amount)
	fx.setBalance(
		holder,
		token,
		balanceEntry{Available: holderEntry.Available, Escrowed: escrowAfter},
	)
	fx.emit(TokenEscrowedEventType, TokenEscrowedEvent{
		From:           from,
		Holder:         holder,
		Token:          token,
		Amount:         amount,
		FromBefore:     fromEntry.Available,
		FromAfter:      fromAfter,
		EscrowedBefore: holderEntry.Escrowed,
		EscrowedAfter:  escrowAfter,
	})
	return nil
}

// releaseEscrow moves escrowed funds from a holder to an account's
// available balance
func (fx *effects) releaseEscrow(
	holder, to, token common.Address,
	amount *big.Int,
) error {
	if !validAmount(amount) {
		return ErrInvalidAmount
	}
	holderEntry := fx.balance(holder, token)
	if holderEntry.Escrowed.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	escrowAfter := new(big.Int).Sub(holderEntry.Escrowed, amount)
	fx.setBalance(
		holder,
		token,
		balanceEntry{Available: holderEntry.Available, Escrowed: escrowAfter},
	)
	toEntry := fx.balance(to, token)
	toAfter := new(big.Int).Add(toEntry.Available, amount)
	fx.setBalance(
		to,
		token,
		balanceEntry{Available: toAfter, Escrowed: toEntry.Escrowed},
	)
	fx.emit(TokenReleasedEventType, TokenReleasedEvent{
		Holder:         holder,
		To:             to,
		Token:          token,
		Amount:         amount,
		EscrowedBefore: holderEntry.Escrowed,
		EscrowedAfter:  escrowAfter,
		ToBefore:       toEntry.Available,
		ToAfter:        toAfter,
	})
	return nil
}

// balanceSaves converts staged balances into metadata rows and install
// closures
func (fx *effects) balanceSaves() {
	for key, entry := range fx.balances {
		fx.save(&models.TokenBalance{
			Account:   types.Address(key.Account),
			Token:     types.Address(key.Token),
			Available: types.NewUint256(entry.Available),
			Escrowed:  types.NewUint256(entry.Escrowed),
		})
		key := key
		entry := entry
		fx.onInstall(func(s *State) {
			s.balances[key] = entry
		})
	}
}
