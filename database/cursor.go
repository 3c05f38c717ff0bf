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

package database

import (
	"encoding/binary"
	"fmt"
)

// Cursor is the canonical ordering position for intents and events:
// block number, then in-block transaction index, then log index.
type Cursor struct {
	Block    uint64
	TxIndex  uint32
	LogIndex uint32
}

func (c Cursor) String() string {
	return fmt.Sprintf("%d/%d/%d", c.Block, c.TxIndex, c.LogIndex)
}

// Compare returns -1, 0, or 1 depending on ordering relative to other
func (c Cursor) Compare(other Cursor) int {
	if c.Block != other.Block {
		if c.Block < other.Block {
			return -1
		}
		return 1
	}
	if c.TxIndex != other.TxIndex {
		if c.TxIndex < other.TxIndex {
			return -1
		}
		return 1
	}
	if c.LogIndex != other.LogIndex {
		if c.LogIndex < other.LogIndex {
			return -1
		}
		return 1
	}
	return 0
}

// Bytes returns a big-endian encoding that sorts identically to Compare,
// used for journal keys.
func (c Cursor) Bytes() []byte {
	ret := make([]byte, 16)
	binary.BigEndian.PutUint64(ret[0:8], c.Block)
	binary.BigEndian.PutUint32(ret[8:12], c.TxIndex)
	binary.BigEndian.PutUint32(ret[12:16], c.LogIndex)
	return ret
}

func cursorFromBytes(data []byte) (Cursor, error) {
	if len(data) != 16 {
		return Cursor{}, fmt.Errorf("unexpected cursor length: %d", len(data))
	}
	return Cursor{
		Block:    binary.BigEndian.Uint64(data[0:8]),
		TxIndex:  binary.BigEndian.Uint32(data[8:12]),
		LogIndex: binary.BigEndian.Uint32(data[12:16]),
	}, nil
}
