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
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sovereign-seas/seasledger/database/models"
	"github.com/sovereign-seas/seasledger/database/types"
)

const (
	intentCampaignCreate         = "campaign.create"
	intentCampaignUpdate         = "campaign.update"
	intentCampaignUpdateMetadata = "campaign.update_metadata"
	intentCampaignSetActive      = "campaign.set_active"
	intentCampaignAddAdmin       = "campaign.add_admin"
	intentCampaignRemoveAdmin    = "campaign.remove_admin"
	intentCampaignAddToken       = "campaign.add_token"
	intentCampaignAddProject     = "campaign.add_project"
	intentCampaignApproveProject = "campaign.approve_project"
	intentCampaignSetVoteLimit   = "campaign.set_vote_limit"
)

type CreateCampaignParams struct {
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	StartTime    uint64         `json:"startTime"`
	EndTime      uint64         `json:"endTime"`
	AdminFeePct  uint8          `json:"adminFeePercentage"`
	MaxWinners   uint32         `json:"maxWinners"`
	UseQuadratic bool           `json:"useQuadratic"`
	UseCustom    bool           `json:"useCustom"`
	PayoutToken  common.Address `json:"payoutToken"`
}

type UpdateCampaignParams struct {
	CampaignID   uint64 `json:"campaignId"`
	StartTime    uint64 `json:"startTime"`
	EndTime      uint64 `json:"endTime"`
	AdminFeePct  uint8  `json:"adminFeePercentage"`
	MaxWinners   uint32 `json:"maxWinners"`
	UseQuadratic bool   `json:"useQuadratic"`
	UseCustom    bool   `json:"useCustom"`
}

type UpdateCampaignMetadataParams struct {
	CampaignID  uint64 `json:"campaignId"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type SetCampaignActiveParams struct {
	CampaignID uint64 `json:"campaignId"`
	Active     bool   `json:"active"`
}

type CampaignAdminParams struct {
	CampaignID uint64         `json:"campaignId"`
	Admin      common.Address `json:"admin"`
}

type AddSupportedTokenParams struct {
	CampaignID uint64         `json:"campaignId"`
	Token      common.Address `json:"token"`
}

type AddProjectParams struct {
	CampaignID uint64 `json:"campaignId"`
	ProjectID  uint64 `json:"projectId"`
}

type ApproveProjectParams struct {
	CampaignID uint64 `json:"campaignId"`
	ProjectID  uint64 `json:"projectId"`
}

type SetVoteLimitParams struct {
	CampaignID uint64         `json:"campaignId"`
	Voter      common.Address `json:"voter"`
	MaxAmount  *big.Int       `json:"maxAmount"`
}

// CreateCampaign registers a new funding campaign. The caller becomes
// the campaign's primary admin and pays the platform creation fee in the
// native token unless they are a super-admin. The payout token is
// automatically supported for voting.
func (s *State) CreateCampaign(txc TxContext, p CreateCampaignParams) error {
	return s.applyIntent(txc, intentCampaignCreate, p, func(fx *effects) error {
		if p.Name == "" {
			return fmt.Errorf("%w: empty campaign name", ErrInvalidState)
		}
		if p.StartTime >= p.EndTime {
			return fmt.Errorf(
				"%w: start time %d not before end time %d",
				ErrInvalidState,
				p.StartTime,
				p.EndTime,
			)
		}
		if p.AdminFeePct > s.params.MaxAdminFeePct {
			return fmt.Errorf(
				"%w: admin fee %d%% above maximum %d%%",
				ErrBoundsViolation,
				p.AdminFeePct,
				s.params.MaxAdminFeePct,
			)
		}
		if !txc.SuperAdmin && s.params.CampaignCreationFee.Sign() > 0 {
			err := fx.transferAvailable(
				txc.Caller,
				s.params.FeeCollector,
				NativeToken,
				s.params.CampaignCreationFee,
			)
			if err != nil {
				return err
			}
			fx.emit(FeeCollectedEventType, FeeCollectedEvent{
				Token:   NativeToken,
				Amount:  s.params.CampaignCreationFee,
				FeeType: FeeTypeCampaignCreation,
			})
		}
		campaignID := s.lastCampaignID + 1
		campaign := &models.Campaign{
			ID:           campaignID,
			Admin:        types.Address(txc.Caller),
			Name:         p.Name,
			Description:  p.Description,
			StartTime:    p.StartTime,
			EndTime:      p.EndTime,
			AdminFeePct:  p.AdminFeePct,
			MaxWinners:   p.MaxWinners,
			UseQuadratic: p.UseQuadratic,
			UseCustom:    p.UseCustom,
			PayoutToken:  types.Address(p.PayoutToken),
			FeeToken:     types.Address(NativeToken),
			Active:       true,
			TotalFunds:   types.NewUint256(nil),
			CreatedAt:    txc.Now,
		}
		fx.save(campaign)
		fx.save(&models.CampaignToken{
			CampaignID: campaignID,
			Token:      types.Address(p.PayoutToken),
		})
		fx.onInstall(func(s *State) {
			s.campaigns[campaignID] = campaign
			s.campaignTokens[campaignID] = map[common.Address]bool{
				p.PayoutToken: true,
			}
			s.lastCampaignID = campaignID
		})
		fx.emit(CampaignCreatedEventType, CampaignCreatedEvent{
			CampaignID: campaignID,
			Admin:      txc.Caller,
			Name:       p.Name,
			StartTime:  p.StartTime,
			EndTime:    p.EndTime,
		})
		fx.emit(SupportedTokenAddedEventType, SupportedTokenAddedEvent{
			CampaignID: campaignID,
			Token:      p.PayoutToken,
		})
		return nil
	})
}

// campaignForUpdate validates common preconditions for campaign admin
// mutations and returns the campaign
func (s *State) campaignForUpdate(
	campaignID uint64,
	txc TxContext,
) (*models.Campaign, error) {
	campaign, ok := s.campaigns[campaignID]
	if !ok {
		return nil, fmt.Errorf("%w: campaign %d", ErrNotFound, campaignID)
	}
	if !s.isCampaignAdmin(campaignID, txc) {
		return nil, ErrUnauthorized
	}
	return campaign, nil
}

// UpdateCampaign changes campaign parameters. Only allowed before the
// campaign ends.
func (s *State) UpdateCampaign(txc TxContext, p UpdateCampaignParams) error {
	return s.applyIntent(txc, intentCampaignUpdate, p, func(fx *effects) error {
		campaign, err := s.campaignForUpdate(p.CampaignID, txc)
		if err != nil {
			return err
		}
		if txc.Now >= campaign.EndTime {
			return fmt.Errorf("%w: campaign ended", ErrInvalidState)
		}
		if p.StartTime >= p.EndTime {
			return fmt.Errorf(
				"%w: start time %d not before end time %d",
				ErrInvalidState,
				p.StartTime,
				p.EndTime,
			)
		}
		if p.AdminFeePct > s.params.MaxAdminFeePct {
			return fmt.Errorf(
				"%w: admin fee %d%% above maximum %d%%",
				ErrBoundsViolation,
				p.AdminFeePct,
				s.params.MaxAdminFeePct,
			)
		}
		updated := *campaign
		updated.StartTime = p.StartTime
		updated.EndTime = p.EndTime
		updated.AdminFeePct = p.AdminFeePct
		updated.MaxWinners = p.MaxWinners
		updated.UseQuadratic = p.UseQuadratic
		updated.UseCustom = p.UseCustom
		fx.save(&updated)
		fx.onInstall(func(s *State) {
			s.campaigns[updated.ID] = &updated
		})
		fx.emit(CampaignUpdatedEventType, CampaignUpdatedEvent{
			CampaignID: p.CampaignID,
		})
		return nil
	})
}

// UpdateCampaignMetadata changes the campaign name and description
func (s *State) UpdateCampaignMetadata(
	txc TxContext,
	p UpdateCampaignMetadataParams,
) error {
	return s.applyIntent(
		txc,
		intentCampaignUpdateMetadata,
		p,
		func(fx *effects) error {
			campaign, err := s.campaignForUpdate(p.CampaignID, txc)
			if err != nil {
				return err
			}
			if txc.Now >= campaign.EndTime {
				return fmt.Errorf("%w: campaign ended", ErrInvalidState)
			}
			if p.Name == "" {
				return fmt.Errorf("%w: empty campaign name", ErrInvalidState)
			}
			updated := *campaign
			updated.Name = p.Name
			updated.Description = p.Description
			fx.save(&updated)
			fx.onInstall(func(s *State) {
				s.campaigns[updated.ID] = &updated
			})
			fx.emit(
				CampaignMetadataUpdatedEventType,
				CampaignMetadataUpdatedEvent{
					CampaignID: p.CampaignID,
					Name:       p.Name,
				},
			)
			return nil
		},
	)
}

// SetCampaignActive pauses or unpauses a campaign
func (s *State) SetCampaignActive(
	txc TxContext,
	p SetCampaignActiveParams,
) error {
	return s.applyIntent(
		txc,
		intentCampaignSetActive,
		p,
		func(fx *effects) error {
			campaign, err := s.campaignForUpdate(p.CampaignID, txc)
			if err != nil {
				return err
			}
			if campaign.Active == p.Active {
				return fmt.Errorf(
					"%w: campaign already active=%t",
					ErrInvalidState,
					p.Active,
				)
			}
			updated := *campaign
			updated.Active = p.Active
			fx.save(&updated)
			fx.onInstall(func(s *State) {
				s.campaigns[updated.ID] = &updated
			})
			fx.emit(CampaignActiveSetEventType, CampaignActiveSetEvent{
				CampaignID: p.CampaignID,
				Active:     p.Active,
			})
			return nil
		},
	)
}

// AddCampaignAdmin adds an address to the campaign's admin set
func (s *State) AddCampaignAdmin(txc TxContext, p CampaignAdminParams) error {
	return s.applyIntent(
		txc,
		intentCampaignAddAdmin,
		p,
		func(fx *effects) error {
			campaign, err := s.campaignForUpdate(p.CampaignID, txc)
			if err != nil {
				return err
			}
			if common.Address(campaign.Admin) == p.Admin ||
				s.campaignAdmins[p.CampaignID][p.Admin] {
				return fmt.Errorf(
					"%w: already a campaign admin",
					ErrInvalidState,
				)
			}
			fx.save(&models.CampaignAdmin{
				CampaignID: p.CampaignID,
				Admin:      types.Address(p.Admin),
			})
			fx.onInstall(func(s *State) {
				if s.campaignAdmins[p.CampaignID] == nil {
					s.campaignAdmins[p.CampaignID] = make(
						map[common.Address]bool,
					)
				}
				s.campaignAdmins[p.CampaignID][p.Admin] = true
			})
			fx.emit(CampaignAdminAddedEventType, CampaignAdminAddedEvent{
				CampaignID: p.CampaignID,
				Admin:      p.Admin,
			})
			return nil
		},
	)
}

// RemoveCampaignAdmin removes an address from the campaign's admin set.
// The primary admin cannot be removed.
func (s *State) RemoveCampaignAdmin(
	txc TxContext,
	p CampaignAdminParams,
) error {
	return s.applyIntent(
		txc,
		intentCampaignRemoveAdmin,
		p,
		func(fx *effects) error {
			campaign, err := s.campaignForUpdate(p.CampaignID, txc)
			if err != nil {
				return err
			}
			if common.Address(campaign.Admin) == p.Admin {
				return fmt.Errorf(
					"%w: cannot remove primary campaign admin",
					ErrInvalidState,
				)
			}
			if !s.campaignAdmins[p.CampaignID][p.Admin] {
				return fmt.Errorf("%w: campaign admin", ErrNotFound)
			}
			fx.delete(&models.CampaignAdmin{
				CampaignID: p.CampaignID,
				Admin:      types.Address(p.Admin),
			})
			fx.onInstall(func(s *State) {
				delete(s.campaignAdmins[p.CampaignID], p.Admin)
			})
			fx.emit(CampaignAdminRemovedEventType, CampaignAdminRemovedEvent{
				CampaignID: p.CampaignID,
				Admin:      p.Admin,
			})
			return nil
		},
	)
}

// AddSupportedToken adds a token to the campaign's accepted voting set
func (s *State) AddSupportedToken(
	txc TxContext,
	p AddSupportedTokenParams,
) error {
	return s.applyIntent(
		txc,
		intentCampaignAddToken,
		p,
		func(fx *effects) error {
			if _, err := s.campaignForUpdate(p.CampaignID, txc); err != nil {
				return err
			}
			if s.campaignTokens[p.CampaignID][p.Token] {
				return fmt.Errorf("%w: token already supported", ErrInvalidState)
			}
			fx.save(&models.CampaignToken{
				CampaignID: p.CampaignID,
				Token:      types.Address(p.Token),
			})
			fx.onInstall(func(s *State) {
				if s.campaignTokens[p.CampaignID] == nil {
					s.campaignTokens[p.CampaignID] = make(
						map[common.Address]bool,
					)
				}
				s.campaignTokens[p.CampaignID][p.Token] = true
			})
			fx.emit(SupportedTokenAddedEventType, SupportedTokenAddedEvent{
				CampaignID: p.CampaignID,
				Token:      p.Token,
			})
			return nil
		},
	)
}

// AddProject registers the caller's project as a participant in a
// campaign, pending admin approval
func (s *State) AddProject(txc TxContext, p AddProjectParams) error {
	return s.applyIntent(
		txc,
		intentCampaignAddProject,
		p,
		func(fx *effects) error {
			campaign, ok := s.campaigns[p.CampaignID]
			if !ok {
				return fmt.Errorf(
					"%w: campaign %d",
					ErrNotFound,
					p.CampaignID,
				)
			}
			if txc.Now >= campaign.EndTime {
				return fmt.Errorf("%w: campaign ended", ErrInvalidState)
			}
			key := participationKey{
				CampaignID: p.CampaignID,
				ProjectID:  p.ProjectID,
			}
			if _, ok := s.participations[key]; ok {
				return fmt.Errorf(
					"%w: project %d already in campaign %d",
					ErrAlreadyProcessed,
					p.ProjectID,
					p.CampaignID,
				)
			}
			participation := &models.Participation{
				CampaignID:    p.CampaignID,
				ProjectID:     p.ProjectID,
				Owner:         types.Address(txc.Caller),
				VoteCount:     types.NewUint256(nil),
				FundsReceived: types.NewUint256(nil),
			}
			fx.save(participation)
			fx.onInstall(func(s *State) {
				s.participations[key] = participation
			})
			fx.emit(ProjectAddedEventType, ProjectAddedEvent{
				CampaignID: p.CampaignID,
				ProjectID:  p.ProjectID,
				Owner:      txc.Caller,
			})
			return nil
		},
	)
}

// ApproveProject marks a participating project as eligible for votes.
// Approving an already-approved project is a no-op rather than an error,
// and does not journal an intent.
func (s *State) ApproveProject(txc TxContext, p ApproveProjectParams) error {
	s.mutex.RLock()
	participation, ok := s.participations[participationKey{
		CampaignID: p.CampaignID,
		ProjectID:  p.ProjectID,
	}]
	approved := ok && participation.Approved
	s.mutex.RUnlock()
	if approved {
		return nil
	}
	return s.applyIntent(
		txc,
		intentCampaignApproveProject,
		p,
		func(fx *effects) error {
			if _, err := s.campaignForUpdate(p.CampaignID, txc); err != nil {
				return err
			}
			key := participationKey{
				CampaignID: p.CampaignID,
				ProjectID:  p.ProjectID,
			}
			participation, ok := s.participations[key]
			if !ok {
				return fmt.Errorf(
					"%w: project %d in campaign %d",
					ErrNotFound,
					p.ProjectID,
					p.CampaignID,
				)
			}
			if participation.Approved {
				// Raced with another approval between the fast-path check
				// and the write lock
				return nil
			}
			updated := *participation
			updated.Approved = true
			fx.save(&updated)
			fx.onInstall(func(s *State) {
				s.participations[key] = &updated
			})
			fx.emit(ProjectApprovedEventType, ProjectApprovedEvent{
				CampaignID: p.CampaignID,
				ProjectID:  p.ProjectID,
				ApprovedBy: txc.Caller,
			})
			return nil
		},
	)
}

// SetVoteLimit caps the total native-equivalent vote weight a single
// voter may spend in a campaign. A zero or nil max amount removes the
// limit.
func (s *State) SetVoteLimit(txc TxContext, p SetVoteLimitParams) error {
	return s.applyIntent(
		txc,
		intentCampaignSetVoteLimit,
		p,
		func(fx *effects) error {
			if _, err := s.campaignForUpdate(p.CampaignID, txc); err != nil {
				return err
			}
			maxAmount := p.MaxAmount
			if maxAmount == nil {
				maxAmount = new(big.Int)
			}
			if maxAmount.Sign() < 0 {
				return ErrInvalidAmount
			}
			if maxAmount.Sign() == 0 {
				fx.delete(&models.VoteLimit{
					CampaignID: p.CampaignID,
					Voter:      types.Address(p.Voter),
				})
				fx.onInstall(func(s *State) {
					delete(s.voteLimits[p.CampaignID], p.Voter)
				})
			} else {
				fx.save(&models.VoteLimit{
					CampaignID: p.CampaignID,
					Voter:      types.Address(p.Voter),
					MaxAmount:  types.NewUint256(maxAmount),
				})
				fx.onInstall(func(s *State) {
					if s.voteLimits[p.CampaignID] == nil {
						s.voteLimits[p.CampaignID] = make(
							map[common.Address]*big.Int,
						)
					}
					s.voteLimits[p.CampaignID][p.Voter] = maxAmount
				})
			}
			fx.emit(VoteLimitSetEventType, VoteLimitSetEvent{
				CampaignID: p.CampaignID,
				Voter:      p.Voter,
				MaxAmount:  maxAmount,
			})
			return nil
		},
	)
}
