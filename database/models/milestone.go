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

type Milestone struct {
	ID               uint64 `gorm:"primarykey"`
	GrantID          uint64 `gorm:"index"`
	Title            string
	Description      string
	EvidenceHash     types.Hash `gorm:"size:32"`
	Percentage       uint8
	Status           MilestoneStatus `gorm:"index"`
	SubmittedAt      uint64
	ReviewDeadline   uint64
	ApprovedAt       uint64
	ApprovedBy       types.Address `gorm:"size:20"`
	ApprovalMessage  string
	AutoApproved     bool
	Paid             bool
	PaidAt           uint64
	Deadline         uint64
	PenaltyPct       uint8
	Locked           bool
	RejectionMessage string
	RejectedBy       types.Address `gorm:"size:20"`
	RejectedAt       uint64
}

func (m *Milestone) TableName() string {
	return "milestone"
}
