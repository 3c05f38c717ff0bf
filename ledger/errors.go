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

import "errors"

// Every public operation either fully commits or returns exactly one of
// these (possibly wrapped with detail). No partial state mutation.
var (
	// ErrInvalidAmount is returned for zero or negative amounts
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInsufficientBalance is returned when an account cannot cover a
	// transfer or escrow
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrUnauthorized is returned when the caller lacks the required
	// admin/owner/bidder role
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidState is returned when an operation is illegal for the
	// current status
	ErrInvalidState = errors.New("invalid state")
	// ErrNotFound is returned for unknown ids
	ErrNotFound = errors.New("not found")
	// ErrBoundsViolation is returned for percentages or fees outside
	// platform bounds
	ErrBoundsViolation = errors.New("bounds violation")
	// ErrAlreadyProcessed is returned for double payouts and double
	// distribution
	ErrAlreadyProcessed = errors.New("already processed")
	// ErrExpired is returned when a deadline has passed where freshness is
	// required, or has not passed where expiry is required
	ErrExpired = errors.New("expired")
	// ErrVoteLimitExceeded is returned when a vote would exceed a
	// configured per-voter cap
	ErrVoteLimitExceeded = errors.New("vote limit exceeded")
	// ErrOutOfOrder is returned when an intent arrives at or before the
	// last processed cursor position
	ErrOutOfOrder = errors.New("intent out of order")
)
