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

package types

import (
	"database/sql/driver"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Uint256 stores an unsigned 256-bit amount as a decimal string column.
// SQLite integers are 64-bit, which is not enough for token amounts.
//
//nolint:recvcheck
type Uint256 struct {
	*big.Int
}

// NewUint256 wraps the given big.Int. A nil value is treated as zero.
func NewUint256(v *big.Int) Uint256 {
	if v == nil {
		return Uint256{Int: new(big.Int)}
	}
	return Uint256{Int: v}
}

func (u Uint256) Value() (driver.Value, error) {
	if u.Int == nil {
		return "0", nil
	}
	if u.Int.Sign() < 0 {
		return nil, fmt.Errorf("negative value for uint256 column: %s", u.Int)
	}
	return u.Int.String(), nil
}

func (u *Uint256) Scan(val any) error {
	if u.Int == nil {
		u.Int = new(big.Int)
	}
	v, ok := val.(string)
	if !ok {
		return fmt.Errorf(
			"value was not expected type, wanted string, got %T",
			val,
		)
	}
	if _, ok := u.Int.SetString(v, 10); !ok {
		return fmt.Errorf("failed to set big.Int value from string: %s", v)
	}
	return nil
}

// BigInt returns the underlying big.Int, never nil.
func (u Uint256) BigInt() *big.Int {
	if u.Int == nil {
		return new(big.Int)
	}
	return u.Int
}

// Address stores an EVM address as a 20-byte blob column.
//
//nolint:recvcheck
type Address common.Address

func (a Address) Value() (driver.Value, error) {
	return common.Address(a).Bytes(), nil
}

func (a *Address) Scan(val any) error {
	v, ok := val.([]byte)
	if !ok {
		return fmt.Errorf(
			"value was not expected type, wanted []byte, got %T",
			val,
		)
	}
	if len(v) != common.AddressLength {
		return fmt.Errorf("unexpected address length: %d", len(v))
	}
	copy(a[:], v)
	return nil
}

func (a Address) String() string {
	return common.Address(a).Hex()
}

// Hash stores a 32-byte hash as a blob column.
//
//nolint:recvcheck
type Hash common.Hash

func (h Hash) Value() (driver.Value, error) {
	return common.Hash(h).Bytes(), nil
}

func (h *Hash) Scan(val any) error {
	v, ok := val.([]byte)
	if !ok {
		return fmt.Errorf(
			"value was not expected type, wanted []byte, got %T",
			val,
		)
	}
	if len(v) != common.HashLength {
		return fmt.Errorf("unexpected hash length: %d", len(v))
	}
	copy(h[:], v)
	return nil
}

func (h Hash) String() string {
	return common.Hash(h).Hex()
}
