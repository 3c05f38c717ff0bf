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

package evmmath_test

import (
	"math/big"
	"testing"

	"github.com/sovereign-seas/seasledger/internal/evmmath"
	"github.com/stretchr/testify/assert"
)

func TestPercentOf(t *testing.T) {
	testDefs := []struct {
		amount   int64
		pct      uint8
		expected int64
	}{
		// Values verified against Solidity floor division
		{1000, 10, 100},
		{1000, 0, 0},
		{999, 33, 329},
		{1, 50, 0},
		{7, 15, 1},
		{1000000, 100, 1000000},
	}
	for _, testDef := range testDefs {
		ret := evmmath.PercentOf(big.NewInt(testDef.amount), testDef.pct)
		assert.Equal(t, testDef.expected, ret.Int64())
	}
}

func TestPercentOfNil(t *testing.T) {
	assert.Equal(t, int64(0), evmmath.PercentOf(nil, 50).Int64())
}

func TestPercentOfDoesNotMutate(t *testing.T) {
	orig := big.NewInt(12345)
	_ = evmmath.PercentOf(orig, 77)
	assert.Equal(t, int64(12345), orig.Int64())
}

func TestSqrt(t *testing.T) {
	testDefs := []struct {
		n        int64
		expected int64
	}{
		// Values verified against the on-chain Babylonian sqrt
		{0, 0},
		{1, 1},
		{3, 1},
		{4, 2},
		{99, 9},
		{100, 10},
		{400, 20},
		{1000000000000000000, 1000000000},
	}
	for _, testDef := range testDefs {
		ret := evmmath.Sqrt(big.NewInt(testDef.n))
		assert.Equal(t, testDef.expected, ret.Int64())
	}
}

func TestSqrtNegative(t *testing.T) {
	assert.Equal(t, int64(0), evmmath.Sqrt(big.NewInt(-4)).Int64())
}

func TestMulDiv(t *testing.T) {
	testDefs := []struct {
		a, b, denom int64
		expected    int64
	}{
		{10, 3, 4, 7},
		{1, 1, 3, 0},
		{100, 100, 100, 100},
		{5, 0, 7, 0},
		{5, 7, 0, 0},
	}
	for _, testDef := range testDefs {
		ret := evmmath.MulDiv(
			big.NewInt(testDef.a),
			big.NewInt(testDef.b),
			big.NewInt(testDef.denom),
		)
		assert.Equal(t, testDef.expected, ret.Int64())
	}
}

func TestSum(t *testing.T) {
	ret := evmmath.Sum(big.NewInt(1), nil, big.NewInt(41))
	assert.Equal(t, int64(42), ret.Int64())
}
