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

// Package oracle provides token price conversion for vote weighting.
// Quotes are resolved before the state-mutating transaction begins and the
// resolved value is journaled with the intent, so replay never consults
// the oracle.
package oracle

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var ErrNoQuote = errors.New("no quote available for token pair")

// Quoter converts an input token amount into an output token amount
type Quoter interface {
	Quote(
		tokenIn common.Address,
		tokenOut common.Address,
		amountIn *big.Int,
	) (*big.Int, error)
}

type ratePair struct {
	tokenIn  common.Address
	tokenOut common.Address
}

// FixedRateQuoter quotes from a configured rate table. Rates are expressed
// as numerator/denominator so integer-only math is preserved:
// amountOut = floor(amountIn * num / denom). Identity pairs always quote
// 1:1.
type FixedRateQuoter struct {
	mu    sync.RWMutex
	rates map[ratePair]*big.Rat
}

func NewFixedRateQuoter() *FixedRateQuoter {
	return &FixedRateQuoter{
		rates: make(map[ratePair]*big.Rat),
	}
}

// SetRate configures the conversion rate for a token pair
func (q *FixedRateQuoter) SetRate(
	tokenIn common.Address,
	tokenOut common.Address,
	rate *big.Rat,
) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rates[ratePair{tokenIn: tokenIn, tokenOut: tokenOut}] = rate
}

func (q *FixedRateQuoter) Quote(
	tokenIn common.Address,
	tokenOut common.Address,
	amountIn *big.Int,
) (*big.Int, error) {
	if tokenIn == tokenOut {
		return new(big.Int).Set(amountIn), nil
	}
	q.mu.RLock()
	rate, ok := q.rates[ratePair{tokenIn: tokenIn, tokenOut: tokenOut}]
	q.mu.RUnlock()
	if !ok {
		return nil, ErrNoQuote
	}
	ret := new(big.Int).Mul(amountIn, rate.Num())
	return ret.Div(ret, rate.Denom()), nil
}
