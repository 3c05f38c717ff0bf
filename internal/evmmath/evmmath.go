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

// Package evmmath replicates the integer math used by the consumed Solidity
// contracts: floor division throughout and the Babylonian integer square
// root. All helpers return fresh big.Int values and never mutate their
// arguments, which allows callers to share amounts freely across state
// snapshots.
package evmmath

import "math/big"

var (
	big100 = big.NewInt(100)
)

// PercentOf returns floor(amount * pct / 100). A nil amount is treated as
// zero.
func PercentOf(amount *big.Int, pct uint8) *big.Int {
	if amount == nil {
		return new(big.Int)
	}
	ret := new(big.Int).Mul(amount, big.NewInt(int64(pct)))
	return ret.Div(ret, big100)
}

// Sqrt returns the integer square root of n (floor), matching the Babylonian
// method used on-chain. Negative input returns zero.
func Sqrt(n *big.Int) *big.Int {
	if n == nil || n.Sign() <= 0 {
		return new(big.Int)
	}
	return new(big.Int).Sqrt(n)
}

// MulDiv returns floor(a * b / denom). A zero denominator returns zero
// rather than panicking, mirroring the guarded division in the source
// contracts.
func MulDiv(a, b, denom *big.Int) *big.Int {
	if a == nil || b == nil || denom == nil || denom.Sign() == 0 {
		return new(big.Int)
	}
	ret := new(big.Int).Mul(a, b)
	return ret.Div(ret, denom)
}

// Sum returns a fresh big.Int holding the sum of the given values.
func Sum(vals ...*big.Int) *big.Int {
	ret := new(big.Int)
	for _, v := range vals {
		if v != nil {
			ret.Add(ret, v)
		}
	}
	return ret
}
