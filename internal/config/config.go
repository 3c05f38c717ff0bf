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

package config

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kelseyhightower/envconfig"
	"github.com/sovereign-seas/seasledger/ledger"
	"github.com/sovereign-seas/seasledger/oracle"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "seasledger.config"

const DefaultShutdownTimeout = "30s"

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

// OracleRate configures a fixed conversion rate for a token pair. Rates
// are a numerator/denominator pair so integer math is preserved.
type OracleRate struct {
	TokenIn     string `yaml:"tokenIn"`
	TokenOut    string `yaml:"tokenOut"`
	Numerator   string `yaml:"numerator"`
	Denominator string `yaml:"denominator"`
}

type Config struct {
	DataDir         string `yaml:"dataDir"         split_words:"true"`
	BindAddr        string `yaml:"bindAddr"        split_words:"true"`
	ShutdownTimeout string `yaml:"shutdownTimeout" split_words:"true"`
	MetricsPort     uint   `yaml:"metricsPort"     split_words:"true"`
	Tracing         bool   `yaml:"tracing"`
	TracingStdout   bool   `yaml:"tracingStdout"   split_words:"true"`

	// Platform parameters. Amounts are decimal strings so they can
	// exceed 64 bits. Empty values fall back to the production defaults.
	CampaignCreationFee string `yaml:"campaignCreationFee" split_words:"true"`
	MaxAdminFeePct      uint8  `yaml:"maxAdminFeePct"      split_words:"true"`
	MinSiteFeePct       uint8  `yaml:"minSiteFeePct"       split_words:"true"`
	MaxSiteFeePct       uint8  `yaml:"maxSiteFeePct"       split_words:"true"`
	MinFragmentPrice    string `yaml:"minFragmentPrice"    split_words:"true"`
	FragmentsPerSlot    uint32 `yaml:"fragmentsPerSlot"    split_words:"true"`
	TreasurySplitPct    uint8  `yaml:"treasurySplitPct"    split_words:"true"`
	FeeCollector        string `yaml:"feeCollector"        split_words:"true"`
	ProtocolTreasury    string `yaml:"protocolTreasury"    split_words:"true"`
	AirTreasury         string `yaml:"airTreasury"         split_words:"true"`

	OracleRates []OracleRate `yaml:"oracleRates"`
}

var globalConfig = &Config{
	DataDir:         ".seasledger",
	BindAddr:        "0.0.0.0",
	MetricsPort:     12790,
	ShutdownTimeout: DefaultShutdownTimeout,
}

func LoadConfig(configFile string) (*Config, error) {
	// Load config file as YAML if provided
	if configFile == "" {
		// Check for config file in this path: ~/.seasledger/seasledger.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(
				homeDir,
				".seasledger",
				"seasledger.yaml",
			)
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}

		// Try to check for /etc/seasledger/seasledger.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/seasledger/seasledger.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		err = yaml.Unmarshal(buf, globalConfig)
		if err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	// Process environment variables
	err := envconfig.Process("seasledger", globalConfig)
	if err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}
	// Fail fast on malformed parameters rather than at engine startup
	if _, err := globalConfig.PlatformParams(); err != nil {
		return nil, err
	}
	if _, err := globalConfig.Quoter(); err != nil {
		return nil, err
	}
	return globalConfig, nil
}

func GetConfig() *Config {
	return globalConfig
}

// PlatformParams builds the ledger platform parameters from the config,
// falling back to the production defaults for any unset field
func (c *Config) PlatformParams() (ledger.PlatformParams, error) {
	params := ledger.DefaultPlatformParams()
	if c.CampaignCreationFee != "" {
		fee, ok := new(big.Int).SetString(c.CampaignCreationFee, 10)
		if !ok {
			return params, fmt.Errorf(
				"invalid campaign creation fee: %s",
				c.CampaignCreationFee,
			)
		}
		params.CampaignCreationFee = fee
	}
	if c.MaxAdminFeePct > 0 {
		params.MaxAdminFeePct = c.MaxAdminFeePct
	}
	if c.MinSiteFeePct > 0 {
		params.MinSiteFeePct = c.MinSiteFeePct
	}
	if c.MaxSiteFeePct > 0 {
		params.MaxSiteFeePct = c.MaxSiteFeePct
	}
	if c.MinFragmentPrice != "" {
		price, ok := new(big.Int).SetString(c.MinFragmentPrice, 10)
		if !ok {
			return params, fmt.Errorf(
				"invalid minimum fragment price: %s",
				c.MinFragmentPrice,
			)
		}
		params.MinFragmentPrice = price
	}
	if c.FragmentsPerSlot > 0 {
		params.FragmentsPerSlot = c.FragmentsPerSlot
	}
	if c.TreasurySplitPct > 0 {
		params.TreasurySplitPct = c.TreasurySplitPct
	}
	for _, addr := range []struct {
		value  string
		target *common.Address
		name   string
	}{
		{c.FeeCollector, &params.FeeCollector, "feeCollector"},
		{c.ProtocolTreasury, &params.ProtocolTreasury, "protocolTreasury"},
		{c.AirTreasury, &params.AirTreasury, "airTreasury"},
	} {
		if addr.value == "" {
			continue
		}
		if !common.IsHexAddress(addr.value) {
			return params, fmt.Errorf(
				"invalid %s address: %s",
				addr.name,
				addr.value,
			)
		}
		*addr.target = common.HexToAddress(addr.value)
	}
	return params, nil
}

// Quoter builds a fixed-rate oracle from the configured rate table
func (c *Config) Quoter() (*oracle.FixedRateQuoter, error) {
	quoter := oracle.NewFixedRateQuoter()
	for _, rate := range c.OracleRates {
		if !common.IsHexAddress(rate.TokenIn) ||
			!common.IsHexAddress(rate.TokenOut) {
			return nil, fmt.Errorf(
				"invalid oracle rate token pair: %s/%s",
				rate.TokenIn,
				rate.TokenOut,
			)
		}
		num, ok := new(big.Int).SetString(rate.Numerator, 10)
		if !ok {
			return nil, fmt.Errorf(
				"invalid oracle rate numerator: %s",
				rate.Numerator,
			)
		}
		denom, ok := new(big.Int).SetString(rate.Denominator, 10)
		if !ok || denom.Sign() == 0 {
			return nil, fmt.Errorf(
				"invalid oracle rate denominator: %s",
				rate.Denominator,
			)
		}
		quoter.SetRate(
			common.HexToAddress(rate.TokenIn),
			common.HexToAddress(rate.TokenOut),
			new(big.Rat).SetFrac(num, denom),
		)
	}
	return quoter, nil
}
