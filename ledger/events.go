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
	"github.com/sovereign-seas/seasledger/event"
)

// Event types published on the event bus and journaled per intent. Field
// names and sets match the consumed contract ABIs, since downstream
// consumers decode by field name.
const (
	TokenDepositedEventType          event.EventType = "ledger.token.deposited"
	TokenWithdrawnEventType          event.EventType = "ledger.token.withdrawn"
	TokenTransferredEventType        event.EventType = "ledger.token.transferred"
	TokenEscrowedEventType           event.EventType = "ledger.token.escrowed"
	TokenReleasedEventType           event.EventType = "ledger.token.released"
	FeeCollectedEventType            event.EventType = "ledger.fee.collected"
	CampaignCreatedEventType         event.EventType = "campaign.created"
	CampaignUpdatedEventType         event.EventType = "campaign.updated"
	CampaignMetadataUpdatedEventType event.EventType = "campaign.metadata.updated"
	CampaignActiveSetEventType       event.EventType = "campaign.active.set"
	CampaignAdminAddedEventType      event.EventType = "campaign.admin.added"
	CampaignAdminRemovedEventType    event.EventType = "campaign.admin.removed"
	SupportedTokenAddedEventType     event.EventType = "campaign.token.added"
	ProjectAddedEventType            event.EventType = "campaign.project.added"
	ProjectApprovedEventType         event.EventType = "campaign.project.approved"
	VoteLimitSetEventType            event.EventType = "campaign.votelimit.set"
	VoteCastEventType                event.EventType = "campaign.vote.cast"
	FundsDistributedEventType        event.EventType = "campaign.funds.distributed"
	ProjectPayoutEventType           event.EventType = "campaign.project.payout"
	GrantCreatedEventType            event.EventType = "grant.created"
	GrantCancelledEventType          event.EventType = "grant.cancelled"
	GrantCompletedEventType          event.EventType = "grant.completed"
	GrantAdminAddedEventType         event.EventType = "grant.admin.added"
	GrantAdminRemovedEventType       event.EventType = "grant.admin.removed"
	GrantApproverSetEventType        event.EventType = "grant.approver.set"
	FundsAddedToGrantEventType       event.EventType = "grant.funds.added"
	FundsWithdrawnFromGrantEventType event.EventType = "grant.funds.withdrawn"
	MilestoneSubmittedEventType      event.EventType = "milestone.submitted"
	MilestoneApprovedEventType       event.EventType = "milestone.approved"
	MilestoneRejectedEventType       event.EventType = "milestone.rejected"
	MilestoneResubmittedEventType    event.EventType = "milestone.resubmitted"
	MilestoneLockedEventType         event.EventType = "milestone.locked"
	MilestoneUnlockedEventType       event.EventType = "milestone.unlocked"
	MilestonePenaltyAppliedEventType event.EventType = "milestone.penalty.applied"
	MilestoneFundsReleasedEventType  event.EventType = "milestone.funds.released"
	BuilderSlotCreatedEventType      event.EventType = "market.slot.created"
	BuilderSlotUpdatedEventType      event.EventType = "market.slot.updated"
	BuilderSlotReassignedEventType   event.EventType = "market.slot.reassigned"
	BuilderSlotStatusEventType       event.EventType = "market.slot.status"
	FragmentsPurchasedEventType      event.EventType = "market.fragments.purchased"
	BidPlacedEventType               event.EventType = "market.bid.placed"
	BidAcceptedEventType             event.EventType = "market.bid.accepted"
	BidCancelledEventType            event.EventType = "market.bid.cancelled"
)

// Fee type labels for FeeCollected events
const (
	FeeTypeCampaignCreation = "campaign_creation"
	FeeTypeAdminFee         = "admin_fee"
	FeeTypeSiteFee          = "site_fee"
	FeeTypeFragmentSale     = "fragment_sale"
)

// Ledger events carry before/after balances for auditability

type TokenDepositedEvent struct {
	Account         common.Address `json:"account"`
	Token           common.Address `json:"token"`
	Amount          *big.Int       `json:"amount"`
	AvailableBefore *big.Int       `json:"availableBefore"`
	AvailableAfter  *big.Int       `json:"availableAfter"`
}

type TokenWithdrawnEvent struct {
	Account         common.Address `json:"account"`
	Token           common.Address `json:"token"`
	Amount          *big.Int       `json:"amount"`
	AvailableBefore *big.Int       `json:"availableBefore"`
	AvailableAfter  *big.Int       `json:"availableAfter"`
}

type TokenTransferredEvent struct {
	From        common.Address `json:"from"`
	To          common.Address `json:"to"`
	Token       common.Address `json:"token"`
	Amount      *big.Int       `json:"amount"`
	FromBefore  *big.Int       `json:"fromBefore"`
	FromAfter   *big.Int       `json:"fromAfter"`
	ToBefore    *big.Int       `json:"toBefore"`
	ToAfter     *big.Int       `json:"toAfter"`
}

type TokenEscrowedEvent struct {
	From           common.Address `json:"from"`
	Holder         common.Address `json:"holder"`
	Token          common.Address `json:"token"`
	Amount         *big.Int       `json:"amount"`
	FromBefore     *big.Int       `json:"fromBefore"`
	FromAfter      *big.Int       `json:"fromAfter"`
	EscrowedBefore *big.Int       `json:"escrowedBefore"`
	EscrowedAfter  *big.Int       `json:"escrowedAfter"`
}

type TokenReleasedEvent struct {
	Holder         common.Address `json:"holder"`
	To             common.Address `json:"to"`
	Token          common.Address `json:"token"`
	Amount         *big.Int       `json:"amount"`
	EscrowedBefore *big.Int       `json:"escrowedBefore"`
	EscrowedAfter  *big.Int       `json:"escrowedAfter"`
	ToBefore       *big.Int       `json:"toBefore"`
	ToAfter        *big.Int       `json:"toAfter"`
}

type FeeCollectedEvent struct {
	Token   common.Address `json:"token"`
	Amount  *big.Int       `json:"amount"`
	FeeType string         `json:"feeType"`
}

type CampaignCreatedEvent struct {
	CampaignID uint64         `json:"campaignId"`
	Admin      common.Address `json:"admin"`
	Name       string         `json:"name"`
	StartTime  uint64         `json:"startTime"`
	EndTime    uint64         `json:"endTime"`
}

type CampaignUpdatedEvent struct {
	CampaignID uint64 `json:"campaignId"`
}

type CampaignMetadataUpdatedEvent struct {
	CampaignID uint64 `json:"campaignId"`
	Name       string `json:"name"`
}

type CampaignActiveSetEvent struct {
	CampaignID uint64 `json:"campaignId"`
	Active     bool   `json:"active"`
}

type CampaignAdminAddedEvent struct {
	CampaignID uint64         `json:"campaignId"`
	Admin      common.Address `json:"admin"`
}

type CampaignAdminRemovedEvent struct {
	CampaignID uint64         `json:"campaignId"`
	Admin      common.Address `json:"admin"`
}

type SupportedTokenAddedEvent struct {
	CampaignID uint64         `json:"campaignId"`
	Token      common.Address `json:"token"`
}

type ProjectAddedEvent struct {
	CampaignID uint64         `json:"campaignId"`
	ProjectID  uint64         `json:"projectId"`
	Owner      common.Address `json:"owner"`
}

type ProjectApprovedEvent struct {
	CampaignID uint64         `json:"campaignId"`
	ProjectID  uint64         `json:"projectId"`
	ApprovedBy common.Address `json:"approvedBy"`
}

type VoteLimitSetEvent struct {
	CampaignID uint64         `json:"campaignId"`
	Voter      common.Address `json:"voter"`
	MaxAmount  *big.Int       `json:"maxAmount"`
}

type VoteCastEvent struct {
	Voter          common.Address `json:"voter"`
	CampaignID     uint64         `json:"campaignId"`
	ProjectID      uint64         `json:"projectId"`
	Token          common.Address `json:"token"`
	Amount         *big.Int       `json:"amount"`
	CeloEquivalent *big.Int       `json:"celoEquivalent"`
}

type FundsDistributedEvent struct {
	CampaignID uint64 `json:"campaignId"`
	Quadratic  bool   `json:"quadratic"`
}

type ProjectPayoutEvent struct {
	CampaignID    uint64         `json:"campaignId"`
	ProjectID     uint64         `json:"projectId"`
	Owner         common.Address `json:"owner"`
	FundsReceived *big.Int       `json:"fundsReceived"`
}

type GrantCreatedEvent struct {
	GrantID        uint64         `json:"grantId"`
	Grantee        common.Address `json:"grantee"`
	LinkedEntityID uint64         `json:"linkedEntityId"`
	EntityType     uint8          `json:"entityType"`
	SiteFeePct     uint8          `json:"siteFeePercentage"`
}

type GrantCancelledEvent struct {
	GrantID  uint64         `json:"grantId"`
	RefundTo common.Address `json:"refundTo"`
}

type GrantCompletedEvent struct {
	GrantID     uint64 `json:"grantId"`
	CompletedAt uint64 `json:"completedAt"`
}

type GrantAdminAddedEvent struct {
	GrantID uint64         `json:"grantId"`
	Admin   common.Address `json:"admin"`
}

type GrantAdminRemovedEvent struct {
	GrantID uint64         `json:"grantId"`
	Admin   common.Address `json:"admin"`
}

type GrantApproverSetEvent struct {
	GrantID  uint64         `json:"grantId"`
	Approver common.Address `json:"approver"`
}

type FundsAddedToGrantEvent struct {
	GrantID uint64         `json:"grantId"`
	Funder  common.Address `json:"funder"`
	Token   common.Address `json:"token"`
	Amount  *big.Int       `json:"amount"`
}

type FundsWithdrawnFromGrantEvent struct {
	GrantID uint64         `json:"grantId"`
	To      common.Address `json:"to"`
	Token   common.Address `json:"token"`
	Amount  *big.Int       `json:"amount"`
}

type MilestoneSubmittedEvent struct {
	MilestoneID    uint64      `json:"milestoneId"`
	GrantID        uint64      `json:"grantId"`
	Title          string      `json:"title"`
	EvidenceHash   common.Hash `json:"evidenceHash"`
	Percentage     uint8       `json:"percentage"`
	ReviewDeadline uint64      `json:"reviewDeadline"`
}

type MilestoneApprovedEvent struct {
	MilestoneID  uint64         `json:"milestoneId"`
	GrantID      uint64         `json:"grantId"`
	ApprovedBy   common.Address `json:"approvedBy"`
	Message      string         `json:"message"`
	AutoApproved bool           `json:"autoApproved"`
}

type MilestoneRejectedEvent struct {
	MilestoneID uint64         `json:"milestoneId"`
	GrantID     uint64         `json:"grantId"`
	RejectedBy  common.Address `json:"rejectedBy"`
	Message     string         `json:"message"`
}

type MilestoneResubmittedEvent struct {
	MilestoneID    uint64      `json:"milestoneId"`
	GrantID        uint64      `json:"grantId"`
	EvidenceHash   common.Hash `json:"evidenceHash"`
	ReviewDeadline uint64      `json:"reviewDeadline"`
}

type MilestoneLockedEvent struct {
	MilestoneID uint64         `json:"milestoneId"`
	GrantID     uint64         `json:"grantId"`
	LockedBy    common.Address `json:"lockedBy"`
}

type MilestoneUnlockedEvent struct {
	MilestoneID uint64         `json:"milestoneId"`
	GrantID     uint64         `json:"grantId"`
	UnlockedBy  common.Address `json:"unlockedBy"`
}

type MilestonePenaltyAppliedEvent struct {
	MilestoneID uint64 `json:"milestoneId"`
	GrantID     uint64 `json:"grantId"`
	PenaltyPct  uint8  `json:"penaltyPercentage"`
}

type MilestoneFundsReleasedEvent struct {
	MilestoneID uint64         `json:"milestoneId"`
	GrantID     uint64         `json:"grantId"`
	Grantee     common.Address `json:"grantee"`
	Token       common.Address `json:"token"`
	GrossAmount *big.Int       `json:"grossAmount"`
	SiteFee     *big.Int       `json:"siteFee"`
	NetAmount   *big.Int       `json:"netAmount"`
	PenaltyPct  uint8          `json:"penaltyPercentage"`
}

type BuilderSlotCreatedEvent struct {
	BuilderID     uint64         `json:"builderId"`
	Builder       common.Address `json:"builder"`
	Tier          uint8          `json:"tier"`
	FragmentPrice *big.Int       `json:"fragmentPrice"`
}

type BuilderSlotUpdatedEvent struct {
	BuilderID     uint64   `json:"builderId"`
	FragmentPrice *big.Int `json:"fragmentPrice"`
	FlowPrice     *big.Int `json:"flowPrice"`
}

type BuilderSlotReassignedEvent struct {
	BuilderID  uint64         `json:"builderId"`
	OldBuilder common.Address `json:"oldBuilder"`
	NewBuilder common.Address `json:"newBuilder"`
}

type BuilderSlotStatusEvent struct {
	BuilderID uint64 `json:"builderId"`
	Active    bool   `json:"active"`
}

type FragmentsPurchasedEvent struct {
	BuilderID     uint64         `json:"builderId"`
	Buyer         common.Address `json:"buyer"`
	Amount        uint32         `json:"amount"`
	TotalPrice    *big.Int       `json:"totalPrice"`
	ProtocolShare *big.Int       `json:"protocolShare"`
	AirShare      *big.Int       `json:"airShare"`
}

type BidPlacedEvent struct {
	BuilderID        uint64         `json:"builderId"`
	BidID            uint64         `json:"bidId"`
	Bidder           common.Address `json:"bidder"`
	Amount           uint64         `json:"amount"`
	PricePerFragment *big.Int       `json:"pricePerFragment"`
	Expiry           uint64         `json:"expiry"`
}

type BidAcceptedEvent struct {
	BuilderID uint64         `json:"builderId"`
	BidID     uint64         `json:"bidId"`
	Seller    common.Address `json:"seller"`
	Bidder    common.Address `json:"bidder"`
	Amount    uint64         `json:"amount"`
	Funds     *big.Int       `json:"funds"`
	Filled    bool           `json:"filled"`
}

type BidCancelledEvent struct {
	BuilderID uint64         `json:"builderId"`
	BidID     uint64         `json:"bidId"`
	Bidder    common.Address `json:"bidder"`
	Refund    *big.Int       `json:"refund"`
	Expired   bool           `json:"expired"`
}
