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

// SyncCursor records the last processed intent position. There is a single
// row with ID 1.
type SyncCursor struct {
	ID       uint `gorm:"primarykey"`
	Block    uint64
	TxIndex  uint32
	LogIndex uint32
}

func (c *SyncCursor) TableName() string {
	return "sync_cursor"
}
