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
	"encoding/json"
	"fmt"

	"github.com/sovereign-seas/seasledger/database"
)

// replayHandler adapts a typed operation to the journal's raw payloads
func replayHandler[T any](
	fn func(*State, TxContext, T) error,
) func(*State, TxContext, json.RawMessage) error {
	return func(s *State, txc TxContext, raw json.RawMessage) error {
		var p T
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("failed to unmarshal intent payload: %w", err)
		}
		return fn(s, txc, p)
	}
}

// replayHandlers maps every intent kind to its operation. Payloads carry
// everything the operation needs, including values resolved outside the
// state machine (such as oracle quotes), so replay is deterministic.
var replayHandlers = map[string]func(*State, TxContext, json.RawMessage) error{
	intentTokenDeposit:           replayHandler((*State).Deposit),
	intentTokenWithdraw:          replayHandler((*State).Withdraw),
	intentTokenTransfer:          replayHandler((*State).Transfer),
	intentCampaignCreate:         replayHandler((*State).CreateCampaign),
	intentCampaignUpdate:         replayHandler((*State).UpdateCampaign),
	intentCampaignUpdateMetadata: replayHandler((*State).UpdateCampaignMetadata),
	intentCampaignSetActive:      replayHandler((*State).SetCampaignActive),
	intentCampaignAddAdmin:       replayHandler((*State).AddCampaignAdmin),
	intentCampaignRemoveAdmin:    replayHandler((*State).RemoveCampaignAdmin),
	intentCampaignAddToken:       replayHandler((*State).AddSupportedToken),
	intentCampaignAddProject:     replayHandler((*State).AddProject),
	intentCampaignApproveProject: replayHandler((*State).ApproveProject),
	intentCampaignSetVoteLimit:   replayHandler((*State).SetVoteLimit),
	intentCampaignVote:           replayHandler((*State).Vote),
	intentCampaignDistribute:     replayHandler((*State).DistributeFunds),
	intentGrantCreate:            replayHandler((*State).CreateGrant),
	intentGrantAddAdmin:          replayHandler((*State).AddGrantAdmin),
	intentGrantRemoveAdmin:       replayHandler((*State).RemoveGrantAdmin),
	intentGrantSetApprover:       replayHandler((*State).SetGrantApprover),
	intentGrantAddFunds:          replayHandler((*State).AddFundsToGrant),
	intentGrantWithdraw:          replayHandler((*State).WithdrawFromGrant),
	intentGrantCancel:            replayHandler((*State).CancelGrant),
	intentMilestoneSubmit:        replayHandler((*State).SubmitMilestone),
	intentMilestoneApprove:       replayHandler((*State).ApproveMilestone),
	intentMilestoneAutoApprove:   replayHandler((*State).AutoApproveMilestone),
	intentMilestoneReject:        replayHandler((*State).RejectMilestone),
	intentMilestoneResubmit:      replayHandler((*State).ResubmitMilestone),
	intentMilestoneLock:          replayHandler((*State).LockMilestone),
	intentMilestoneUnlock:        replayHandler((*State).UnlockMilestone),
	intentMilestoneApplyPenalty:  replayHandler((*State).ApplyMilestonePenalty),
	intentSlotRegister:           replayHandler((*State).RegisterBuilderSlot),
	intentSlotUpdate:             replayHandler((*State).UpdateBuilderSlot),
	intentSlotSetActive:          replayHandler((*State).SetBuilderSlotActive),
	intentSlotReassign:           replayHandler((*State).ReassignBuilderSlot),
	intentBuyFragments:           replayHandler((*State).BuyFragments),
	intentBidPlace:               replayHandler((*State).PlaceBid),
	intentBidAccept:              replayHandler((*State).AcceptBid),
	intentBidCancel:              replayHandler((*State).CancelBid),
	intentBidCancelStale:         replayHandler((*State).CancelExpiredBid),
}

// Replay applies journaled intents from the source journal, skipping any
// at or before the current cursor. Replaying the local journal recovers
// from a partial commit; replaying a foreign journal into a fresh
// database rebuilds identical state and copies the intents over. Events
// are not re-published.
func (s *State) Replay(source *database.JournalStore) error {
	return s.ReplayTo(source, database.Cursor{})
}

// ReplayTo is Replay bounded to an upper cursor, materializing state as
// of that position. A zero cursor means no bound. The bound compares on
// block and transaction index only.
func (s *State) ReplayTo(
	source *database.JournalStore,
	until database.Cursor,
) error {
	s.mutex.Lock()
	s.replaying = true
	s.copyIntents = source != s.db.Journal()
	s.mutex.Unlock()
	defer func() {
		s.mutex.Lock()
		s.replaying = false
		s.copyIntents = false
		s.mutex.Unlock()
	}()
	var replayed int
	err := source.Intents(func(rec database.IntentRecord) error {
		cursor := s.Cursor()
		pos := database.Cursor{Block: rec.Block, TxIndex: rec.TxIndex}
		committed := database.Cursor{
			Block:   cursor.Block,
			TxIndex: cursor.TxIndex,
		}
		if cursor != (database.Cursor{}) && pos.Compare(committed) <= 0 {
			return nil
		}
		if until != (database.Cursor{}) {
			bound := database.Cursor{
				Block:   until.Block,
				TxIndex: until.TxIndex,
			}
			if pos.Compare(bound) > 0 {
				return nil
			}
		}
		handler, ok := replayHandlers[rec.Kind]
		if !ok {
			return fmt.Errorf("unknown intent kind: %s", rec.Kind)
		}
		txc := TxContext{
			Caller:     rec.Caller,
			SuperAdmin: rec.SuperAdmin,
			Now:        rec.Timestamp,
			Block:      rec.Block,
			TxIndex:    rec.TxIndex,
		}
		if err := handler(s, txc, rec.Payload); err != nil {
			return fmt.Errorf(
				"replay failed at %d/%d (%s): %w",
				rec.Block,
				rec.TxIndex,
				rec.Kind,
				err,
			)
		}
		replayed++
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info(
		"journal replay complete",
		"component", "ledger",
		"intents", replayed,
		"cursor", s.Cursor().String(),
	)
	return nil
}
