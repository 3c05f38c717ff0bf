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
	"io"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sovereign-seas/seasledger/database"
	"github.com/sovereign-seas/seasledger/database/models"
	"github.com/sovereign-seas/seasledger/event"
	"github.com/sovereign-seas/seasledger/oracle"
	"gorm.io/gorm/clause"
)

type participationKey struct {
	CampaignID uint64
	ProjectID  uint64
}

type grantFundsKey struct {
	GrantID uint64
	Token   common.Address
}

type holdingKey struct {
	BuilderID uint64
	Holder    common.Address
}

type bidKey struct {
	BuilderID uint64
	BidID     uint64
}

// Config contains the ledger state configuration
type Config struct {
	Logger       *slog.Logger
	Database     *database.Database
	EventBus     *event.EventBus
	PromRegistry prometheus.Registerer
	Quoter       oracle.Quoter
	Params       PlatformParams
}

// State is the deterministic ledger state machine. All mutations go
// through intents processed one at a time under the write lock; reads
// take the read lock and return copies. The in-memory maps mirror the
// metadata store and are rebuilt from it at startup.
type State struct {
	mutex     sync.RWMutex
	logger    *slog.Logger
	db        *database.Database
	eventBus  *event.EventBus
	quoter    oracle.Quoter
	params    PlatformParams
	metrics   *stateMetrics
	replaying bool
	// copyIntents makes replay re-journal intents, used when replaying
	// from a foreign journal into a fresh database
	copyIntents bool

	cursor database.Cursor

	balances       map[balanceKey]balanceEntry
	campaigns      map[uint64]*models.Campaign
	campaignAdmins map[uint64]map[common.Address]bool
	campaignTokens map[uint64]map[common.Address]bool
	voteLimits     map[uint64]map[common.Address]*big.Int
	voterTotals    map[uint64]map[common.Address]*big.Int
	participations map[participationKey]*models.Participation
	grants         map[uint64]*models.Grant
	grantAdmins    map[uint64]map[common.Address]bool
	grantFunds     map[grantFundsKey]*models.GrantFunds
	milestones     map[uint64]*models.Milestone
	// milestone ids per grant in creation order
	grantMilestones map[uint64][]uint64
	slots           map[uint64]*models.BuilderSlot
	holdings        map[holdingKey]uint32
	bids            map[bidKey]*models.Bid

	lastCampaignID  uint64
	lastGrantID     uint64
	lastMilestoneID uint64
	lastSlotID      uint64
	lastBidID       uint64
}

// NewState creates a ledger state machine on top of the given database,
// loading all current state from the metadata store
func NewState(cfg Config) (*State, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("no database provided")
	}
	logger := cfg.Logger
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Quoter == nil {
		cfg.Quoter = oracle.NewFixedRateQuoter()
	}
	if cfg.Params == (PlatformParams{}) {
		cfg.Params = DefaultPlatformParams()
	}
	if err := cfg.Params.validate(); err != nil {
		return nil, fmt.Errorf("invalid platform params: %w", err)
	}
	s := &State{
		logger:          logger,
		db:              cfg.Database,
		eventBus:        cfg.EventBus,
		quoter:          cfg.Quoter,
		params:          cfg.Params,
		balances:        make(map[balanceKey]balanceEntry),
		campaigns:       make(map[uint64]*models.Campaign),
		campaignAdmins:  make(map[uint64]map[common.Address]bool),
		campaignTokens:  make(map[uint64]map[common.Address]bool),
		voteLimits:      make(map[uint64]map[common.Address]*big.Int),
		voterTotals:     make(map[uint64]map[common.Address]*big.Int),
		participations:  make(map[participationKey]*models.Participation),
		grants:          make(map[uint64]*models.Grant),
		grantAdmins:     make(map[uint64]map[common.Address]bool),
		grantFunds:      make(map[grantFundsKey]*models.GrantFunds),
		milestones:      make(map[uint64]*models.Milestone),
		grantMilestones: make(map[uint64][]uint64),
		slots:           make(map[uint64]*models.BuilderSlot),
		holdings:        make(map[holdingKey]uint32),
		bids:            make(map[bidKey]*models.Bid),
	}
	if cfg.PromRegistry != nil {
		s.initMetrics(cfg.PromRegistry)
	}
	if err := s.load(); err != nil {
		return nil, fmt.Errorf("failed to load ledger state: %w", err)
	}
	return s, nil
}

// Params returns the platform parameters
func (s *State) Params() PlatformParams {
	return s.params
}

// Cursor returns the cursor of the last processed intent
func (s *State) Cursor() database.Cursor {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.cursor
}

func (s *State) load() error {
	metadataDb := s.db.Metadata().DB()
	cursor, err := s.db.Metadata().GetCursor(nil)
	if err != nil {
		return err
	}
	s.cursor = cursor
	var tmpBalances []models.TokenBalance
	if result := metadataDb.Find(&tmpBalances); result.Error != nil {
		return result.Error
	}
	for _, b := range tmpBalances {
		s.balances[balanceKey{
			Account: common.Address(b.Account),
			Token:   common.Address(b.Token),
		}] = balanceEntry{
			Available: b.Available.BigInt(),
			Escrowed:  b.Escrowed.BigInt(),
		}
	}
	var tmpCampaigns []models.Campaign
	if result := metadataDb.Find(&tmpCampaigns); result.Error != nil {
		return result.Error
	}
	for i := range tmpCampaigns {
		c := tmpCampaigns[i]
		s.campaigns[c.ID] = &c
		s.lastCampaignID = max(s.lastCampaignID, c.ID)
	}
	var tmpCampaignAdmins []models.CampaignAdmin
	if result := metadataDb.Find(&tmpCampaignAdmins); result.Error != nil {
		return result.Error
	}
	for _, a := range tmpCampaignAdmins {
		if s.campaignAdmins[a.CampaignID] == nil {
			s.campaignAdmins[a.CampaignID] = make(map[common.Address]bool)
		}
		s.campaignAdmins[a.CampaignID][common.Address(a.Admin)] = true
	}
	var tmpCampaignTokens []models.CampaignToken
	if result := metadataDb.Find(&tmpCampaignTokens); result.Error != nil {
		return result.Error
	}
	for _, t := range tmpCampaignTokens {
		if s.campaignTokens[t.CampaignID] == nil {
			s.campaignTokens[t.CampaignID] = make(map[common.Address]bool)
		}
		s.campaignTokens[t.CampaignID][common.Address(t.Token)] = true
	}
	var tmpVoteLimits []models.VoteLimit
	if result := metadataDb.Find(&tmpVoteLimits); result.Error != nil {
		return result.Error
	}
	for _, l := range tmpVoteLimits {
		if s.voteLimits[l.CampaignID] == nil {
			s.voteLimits[l.CampaignID] = make(map[common.Address]*big.Int)
		}
		s.voteLimits[l.CampaignID][common.Address(l.Voter)] = l.MaxAmount.BigInt()
	}
	var tmpParticipations []models.Participation
	if result := metadataDb.Find(&tmpParticipations); result.Error != nil {
		return result.Error
	}
	for i := range tmpParticipations {
		p := tmpParticipations[i]
		s.participations[participationKey{
			CampaignID: p.CampaignID,
			ProjectID:  p.ProjectID,
		}] = &p
	}
	// Per-voter totals are derived from the append-only vote log
	var tmpVotes []models.Vote
	if result := metadataDb.Find(&tmpVotes); result.Error != nil {
		return result.Error
	}
	for _, v := range tmpVotes {
		voter := common.Address(v.Voter)
		if s.voterTotals[v.CampaignID] == nil {
			s.voterTotals[v.CampaignID] = make(map[common.Address]*big.Int)
		}
		prev := s.voterTotals[v.CampaignID][voter]
		if prev == nil {
			prev = new(big.Int)
		}
		s.voterTotals[v.CampaignID][voter] = new(big.Int).Add(
			prev,
			v.CeloEquivalent.BigInt(),
		)
	}
	var tmpGrants []models.Grant
	if result := metadataDb.Find(&tmpGrants); result.Error != nil {
		return result.Error
	}
	for i := range tmpGrants {
		g := tmpGrants[i]
		s.grants[g.ID] = &g
		s.lastGrantID = max(s.lastGrantID, g.ID)
	}
	var tmpGrantAdmins []models.GrantAdmin
	if result := metadataDb.Find(&tmpGrantAdmins); result.Error != nil {
		return result.Error
	}
	for _, a := range tmpGrantAdmins {
		if s.grantAdmins[a.GrantID] == nil {
			s.grantAdmins[a.GrantID] = make(map[common.Address]bool)
		}
		s.grantAdmins[a.GrantID][common.Address(a.Admin)] = true
	}
	var tmpGrantFunds []models.GrantFunds
	if result := metadataDb.Find(&tmpGrantFunds); result.Error != nil {
		return result.Error
	}
	for i := range tmpGrantFunds {
		f := tmpGrantFunds[i]
		s.grantFunds[grantFundsKey{
			GrantID: f.GrantID,
			Token:   common.Address(f.Token),
		}] = &f
	}
	var tmpMilestones []models.Milestone
	if result := metadataDb.Order("id").Find(&tmpMilestones); result.Error != nil {
		return result.Error
	}
	for i := range tmpMilestones {
		m := tmpMilestones[i]
		s.milestones[m.ID] = &m
		s.grantMilestones[m.GrantID] = append(s.grantMilestones[m.GrantID], m.ID)
		s.lastMilestoneID = max(s.lastMilestoneID, m.ID)
	}
	var tmpSlots []models.BuilderSlot
	if result := metadataDb.Find(&tmpSlots); result.Error != nil {
		return result.Error
	}
	for i := range tmpSlots {
		slot := tmpSlots[i]
		s.slots[slot.ID] = &slot
		s.lastSlotID = max(s.lastSlotID, slot.ID)
	}
	var tmpHoldings []models.FragmentHolding
	if result := metadataDb.Find(&tmpHoldings); result.Error != nil {
		return result.Error
	}
	for _, h := range tmpHoldings {
		s.holdings[holdingKey{
			BuilderID: h.BuilderID,
			Holder:    common.Address(h.Holder),
		}] = h.Amount
	}
	var tmpBids []models.Bid
	if result := metadataDb.Find(&tmpBids); result.Error != nil {
		return result.Error
	}
	for i := range tmpBids {
		b := tmpBids[i]
		s.bids[bidKey{BuilderID: b.BuilderID, BidID: b.BidID}] = &b
		s.lastBidID = max(s.lastBidID, b.BidID)
	}
	s.logger.Info(
		"loaded ledger state",
		"component", "ledger",
		"cursor", s.cursor.String(),
		"campaigns", len(s.campaigns),
		"grants", len(s.grants),
		"slots", len(s.slots),
	)
	return nil
}

// applyIntent runs one intent through the validate/persist/install
// pipeline. The intent and its events are journaled first, then the
// metadata rows, then the in-memory maps are updated and events are
// published. A validation error leaves no trace anywhere.
func (s *State) applyIntent(
	txc TxContext,
	kind string,
	payload any,
	fn func(*effects) error,
) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	pos := database.Cursor{Block: txc.Block, TxIndex: txc.TxIndex}
	committed := database.Cursor{
		Block:   s.cursor.Block,
		TxIndex: s.cursor.TxIndex,
	}
	// Every committed intent emits at least one event, so a zero cursor
	// means nothing has been processed yet
	if s.cursor != (database.Cursor{}) && pos.Compare(committed) <= 0 {
		return fmt.Errorf(
			"%w: %s not after %s",
			ErrOutOfOrder,
			pos.String(),
			s.cursor.String(),
		)
	}
	fx := newEffects(s)
	if err := fn(fx); err != nil {
		if s.metrics != nil {
			s.metrics.intentErrorsTotal.WithLabelValues(kind).Inc()
		}
		return err
	}
	fx.balanceSaves()
	payloadData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal intent payload: %w", err)
	}
	newCursor := database.Cursor{
		Block:    txc.Block,
		TxIndex:  txc.TxIndex,
		LogIndex: uint32(len(fx.events)), //nolint:gosec
	}
	txn := s.db.Transaction()
	defer txn.Release()
	err = txn.Do(func(txn *database.Txn) error {
		if !s.replaying || s.copyIntents {
			err := s.db.Journal().AppendIntent(
				txn.Journal(),
				database.IntentRecord{
					Block:      txc.Block,
					TxIndex:    txc.TxIndex,
					Timestamp:  txc.Now,
					Caller:     txc.Caller,
					SuperAdmin: txc.SuperAdmin,
					Kind:       kind,
					Payload:    payloadData,
				},
			)
			if err != nil {
				return err
			}
		}
		for i, evt := range fx.events {
			evtData, err := json.Marshal(evt.Payload)
			if err != nil {
				return fmt.Errorf("failed to marshal event payload: %w", err)
			}
			err = s.db.Journal().AppendEvent(
				txn.Journal(),
				database.EventRecord{
					Block:    txc.Block,
					TxIndex:  txc.TxIndex,
					LogIndex: uint32(i + 1), //nolint:gosec
					Type:     string(evt.Type),
					Payload:  evtData,
				},
			)
			if err != nil {
				return err
			}
		}
		for _, obj := range fx.saves {
			result := txn.Metadata().
				Clauses(clause.OnConflict{UpdateAll: true}).
				Create(obj)
			if result.Error != nil {
				return result.Error
			}
		}
		for _, obj := range fx.deletes {
			if result := txn.Metadata().Delete(obj); result.Error != nil {
				return result.Error
			}
		}
		return txn.SetCursor(newCursor)
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.intentErrorsTotal.WithLabelValues(kind).Inc()
		}
		return fmt.Errorf("failed to commit intent: %w", err)
	}
	for _, installFn := range fx.install {
		installFn(s)
	}
	s.cursor = newCursor
	if s.metrics != nil {
		s.metrics.intentsTotal.WithLabelValues(kind).Inc()
		s.metrics.cursorBlock.Set(float64(newCursor.Block))
	}
	s.logger.Debug(
		"intent committed",
		"component", "ledger",
		"kind", kind,
		"cursor", newCursor.String(),
		"events", len(fx.events),
	)
	if !s.replaying && s.eventBus != nil {
		for _, evt := range fx.events {
			s.eventBus.Publish(evt.Type, event.NewEvent(evt.Type, evt.Payload))
		}
	}
	return nil
}
