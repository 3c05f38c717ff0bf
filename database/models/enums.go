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

// GrantStatus mirrors the on-chain GrantStatus enum ordering
type GrantStatus uint8

const (
	GrantStatusActive    GrantStatus = 0
	GrantStatusCompleted GrantStatus = 1
	GrantStatusCancelled GrantStatus = 2
)

func (s GrantStatus) String() string {
	switch s {
	case GrantStatusActive:
		return "active"
	case GrantStatusCompleted:
		return "completed"
	case GrantStatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

func (s GrantStatus) Valid() bool {
	return s <= GrantStatusCancelled
}

// MilestoneStatus mirrors the on-chain MilestoneStatus enum ordering
type MilestoneStatus uint8

const (
	MilestoneStatusSubmitted MilestoneStatus = 0
	MilestoneStatusApproved  MilestoneStatus = 1
	MilestoneStatusRejected  MilestoneStatus = 2
	MilestoneStatusLocked    MilestoneStatus = 3
)

func (s MilestoneStatus) String() string {
	switch s {
	case MilestoneStatusSubmitted:
		return "submitted"
	case MilestoneStatusApproved:
		return "approved"
	case MilestoneStatusRejected:
		return "rejected"
	case MilestoneStatusLocked:
		return "locked"
	default:
		return "unknown"
	}
}

func (s MilestoneStatus) Valid() bool {
	return s <= MilestoneStatusLocked
}

// EntityType identifies what a grant is linked to
type EntityType uint8

const (
	EntityTypeProject  EntityType = 0
	EntityTypeCampaign EntityType = 1
	EntityTypeExternal EntityType = 2
)

func (t EntityType) String() string {
	switch t {
	case EntityTypeProject:
		return "project"
	case EntityTypeCampaign:
		return "campaign"
	case EntityTypeExternal:
		return "external"
	default:
		return "unknown"
	}
}

// CampaignStatus is derived from campaign timing, never stored
type CampaignStatus uint8

const (
	CampaignStatusUpcoming CampaignStatus = 0
	CampaignStatusActive   CampaignStatus = 1
	CampaignStatusEnded    CampaignStatus = 2
	CampaignStatusPaused   CampaignStatus = 3
)

func (s CampaignStatus) String() string {
	switch s {
	case CampaignStatusUpcoming:
		return "upcoming"
	case CampaignStatusActive:
		return "active"
	case CampaignStatusEnded:
		return "ended"
	case CampaignStatusPaused:
		return "paused"
	default:
		return "unknown"
	}
}
