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

package seasledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sovereign-seas/seasledger/database"
	"github.com/sovereign-seas/seasledger/event"
	"github.com/sovereign-seas/seasledger/ledger"
)

// Engine owns the database, event bus, and ledger state machine and ties
// their lifecycles together
type Engine struct {
	eventBus      *event.EventBus
	db            *database.Database
	state         *ledger.State
	shutdownFuncs []func(context.Context) error
	config        Config
	done          chan struct{}
	shutdownOnce  sync.Once
}

func New(cfg Config) (*Engine, error) {
	eventBus := event.NewEventBus(cfg.promRegistry, cfg.logger)
	e := &Engine{
		config:   cfg,
		eventBus: eventBus,
		done:     make(chan struct{}),
	}
	return e, nil
}

// Run opens the database, recovers from a partial commit if needed, and
// blocks until the context is cancelled or Stop is called
func (e *Engine) Run(ctx context.Context) error {
	// Configure tracing
	if e.config.tracing {
		if err := e.setupTracing(); err != nil {
			return err
		}
	}
	// Load database
	dbNeedsRecovery := false
	dbConfig := &database.Config{
		DataDir:      e.config.dataDir,
		Logger:       e.config.logger,
		PromRegistry: e.config.promRegistry,
		Tracing:      e.config.tracing,
	}
	db, err := database.New(dbConfig)
	if db == nil {
		e.config.logger.Error(
			"failed to create database",
			"error",
			"empty database returned",
		)
		return errors.New("empty database returned")
	}
	e.db = db
	if err != nil {
		var dbErr database.CursorMismatchError
		if !errors.As(err, &dbErr) {
			return fmt.Errorf("failed to open database: %w", err)
		}
		e.config.logger.Warn(
			"database initialization error, needs recovery",
			"error",
			err,
		)
		dbNeedsRecovery = true
	}
	// Load state
	state, err := ledger.NewState(
		ledger.Config{
			Logger:       e.config.logger,
			Database:     e.db,
			EventBus:     e.eventBus,
			PromRegistry: e.config.promRegistry,
			Quoter:       e.config.quoter,
			Params:       e.config.params,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to load ledger state: %w", err)
	}
	e.state = state
	// Run DB recovery if needed. The journal commits first, so replaying
	// it against the metadata store closes any gap left by a crash.
	if dbNeedsRecovery {
		if err := e.state.Replay(e.db.Journal()); err != nil {
			return fmt.Errorf("failed to recover database: %w", err)
		}
	}
	e.config.logger.Info(
		"ledger engine started",
		"cursor", e.state.Cursor().String(),
		"component", "engine",
	)

	// Wait for shutdown signal
	select {
	case <-ctx.Done():
		return e.Stop()
	case <-e.done:
		return nil
	}
}

// State returns the ledger state machine. It is nil until Run has opened
// the database.
func (e *Engine) State() *ledger.State {
	return e.state
}

// EventBus returns the engine's event bus
func (e *Engine) EventBus() *event.EventBus {
	return e.eventBus
}

// Database returns the underlying database. It is nil until Run has
// opened it.
func (e *Engine) Database() *database.Database {
	return e.db
}

func (e *Engine) Stop() error {
	var err error
	e.shutdownOnce.Do(func() {
		err = e.shutdown()
	})
	return err
}

func (e *Engine) shutdown() error {
	// Create shutdown context with timeout (default 30s if not configured)
	shutdownTimeout := 30 * time.Second
	if e.config.shutdownTimeout > 0 {
		shutdownTimeout = e.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error

	e.config.logger.Debug("starting graceful shutdown")

	if e.db != nil {
		if closeErr := e.db.Close(); closeErr != nil {
			err = errors.Join(
				err,
				fmt.Errorf("database close: %w", closeErr),
			)
		}
	}

	// Call registered shutdown functions
	for _, fn := range e.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	e.shutdownFuncs = nil

	if e.eventBus != nil {
		e.eventBus.Stop()
	}

	e.config.logger.Debug("graceful shutdown complete")
	close(e.done)
	return err
}
