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

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // #nosec G108
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sovereign-seas/seasledger"
	"github.com/sovereign-seas/seasledger/database"
	"github.com/sovereign-seas/seasledger/internal/config"
	"github.com/sovereign-seas/seasledger/ledger"
)

func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "service")

	params, err := cfg.PlatformParams()
	if err != nil {
		return err
	}
	quoter, err := cfg.Quoter()
	if err != nil {
		return err
	}

	// Parse shutdown timeout
	shutdownTimeout := 30 * time.Second // Default timeout
	if cfg.ShutdownTimeout != "" {
		var err error
		shutdownTimeout, err = time.ParseDuration(cfg.ShutdownTimeout)
		if err != nil {
			return fmt.Errorf("invalid shutdown timeout: %w", err)
		}
	}

	engine, err := seasledger.New(
		seasledger.NewConfig(
			seasledger.WithLogger(logger),
			seasledger.WithDataDir(cfg.DataDir),
			seasledger.WithPlatformParams(params),
			seasledger.WithQuoter(quoter),
			seasledger.WithTracing(cfg.Tracing),
			seasledger.WithTracingStdout(cfg.TracingStdout),
			seasledger.WithShutdownTimeout(shutdownTimeout),
			// Enable metrics with default prometheus registry
			seasledger.WithPrometheusRegistry(prometheus.DefaultRegisterer),
		),
	)
	if err != nil {
		return err
	}
	// Metrics and debug listener
	http.Handle("/metrics", promhttp.Handler())
	logger.Info(
		"serving prometheus metrics on "+fmt.Sprintf(
			"%s:%d",
			cfg.BindAddr,
			cfg.MetricsPort,
		),
		"component",
		"service",
	)
	metricsServer := &http.Server{
		Addr: fmt.Sprintf(
			"%s:%d",
			cfg.BindAddr,
			cfg.MetricsPort,
		),
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil &&
			err != http.ErrServerClosed {
			logger.Error(
				fmt.Sprintf("failed to start metrics listener: %s", err),
				"component", "service",
			)
			os.Exit(1)
		}
	}()
	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	// Run engine in goroutine
	errChan := make(chan error, 1)
	go func() {
		//nolint:contextcheck
		err := engine.Run(signalCtx)
		select {
		case errChan <- err:
		case <-signalCtx.Done():
		}
	}()

	// Wait for signal or error
	select {
	case <-signalCtx.Done():
		logger.Info("signal received, initiating graceful shutdown")

		// Shutdown metrics server
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			shutdownTimeout,
		)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err)
		}

		// Shutdown engine
		if err := engine.Stop(); err != nil {
			logger.Error("shutdown errors occurred", "error", err)
			return err
		}
		logger.Info("shutdown complete")
		return nil

	case err := <-errChan:
		if err == nil {
			logger.Info("engine stopped")
			// Graceful cleanup
			shutdownCtx, cancel := context.WithTimeout(
				context.Background(),
				shutdownTimeout,
			)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("metrics server shutdown error", "error", err)
			}
			if err := engine.Stop(); err != nil {
				logger.Error("shutdown errors occurred", "error", err)
				return err
			}
			return nil
		}
		logger.Error("engine error", "error", err)
		signalCtxStop()

		// Shutdown engine resources
		if stopErr := engine.Stop(); stopErr != nil {
			logger.Error(
				"shutdown errors occurred during error cleanup",
				"error",
				stopErr,
			)
		}

		// Cleanup on error
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			shutdownTimeout,
		)
		defer cancel()
		if shutdownErr := metricsServer.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Error("metrics server shutdown error", "error", shutdownErr)
		}

		return err
	}
}

// Replay rebuilds the configured data directory from another data
// directory's journal. Nothing is written to the source; all writes go
// to the target configured in cfg. A non-zero toBlock bounds the replay,
// materializing state as of the end of that block.
func Replay(
	cfg *config.Config,
	logger *slog.Logger,
	sourceDataDir string,
	toBlock uint64,
) error {
	params, err := cfg.PlatformParams()
	if err != nil {
		return err
	}
	quoter, err := cfg.Quoter()
	if err != nil {
		return err
	}
	sourceDb, err := database.New(&database.Config{
		DataDir: sourceDataDir,
		Logger:  logger,
	})
	if err != nil {
		// A cursor mismatch means the source metadata store is behind
		// its journal. The journal is the replay source of truth, so
		// that is fine here.
		var dbErr database.CursorMismatchError
		if !errors.As(err, &dbErr) {
			return fmt.Errorf("opening source database: %w", err)
		}
	}
	defer sourceDb.Close() //nolint:errcheck

	targetNeedsRecovery := false
	targetDb, err := database.New(&database.Config{
		DataDir: cfg.DataDir,
		Logger:  logger,
	})
	if err != nil {
		var dbErr database.CursorMismatchError
		if !errors.As(err, &dbErr) {
			return fmt.Errorf("opening target database: %w", err)
		}
		targetNeedsRecovery = true
	}
	defer targetDb.Close() //nolint:errcheck

	state, err := ledger.NewState(ledger.Config{
		Logger:   logger,
		Database: targetDb,
		Params:   params,
		Quoter:   quoter,
	})
	if err != nil {
		return fmt.Errorf("loading target state: %w", err)
	}
	// Close any local journal/metadata gap before pulling in the source
	if targetNeedsRecovery {
		if err := state.Replay(targetDb.Journal()); err != nil {
			return fmt.Errorf("recovering target database: %w", err)
		}
	}
	until := database.Cursor{}
	if toBlock > 0 {
		until = database.Cursor{Block: toBlock, TxIndex: ^uint32(0)}
	}
	if err := state.ReplayTo(sourceDb.Journal(), until); err != nil {
		return fmt.Errorf("replay failed: %w", err)
	}
	logger.Info(
		"replay complete",
		"cursor", state.Cursor().String(),
		"component", "service",
	)
	return nil
}
