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

package main

import (
	"log/slog"
	"os"

	"github.com/sovereign-seas/seasledger/internal/config"
	"github.com/sovereign-seas/seasledger/internal/service"
	"github.com/spf13/cobra"
)

var replayFlags = struct {
	toBlock uint64
}{}

func replayRun(args []string, cfg *config.Config) {
	if len(args) < 1 {
		slog.Error("path to source data directory required")
		os.Exit(1)
	}
	sourceDataDir := args[0]

	logger := commonRun()
	err := service.Replay(cfg, logger, sourceDataDir, replayFlags.toBlock)
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func replayCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay [source-data-dir]",
		Short: "Rebuild the data directory from another data directory's journal",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				slog.Error("no config found in context")
				os.Exit(1)
			}
			replayRun(args, cfg)
		},
	}
	cmd.Flags().
		Uint64Var(&replayFlags.toBlock, "to-block", 0, "replay through this block only (0 = full replay)")
	return cmd
}
