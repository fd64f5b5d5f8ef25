// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config holds the omni-relayer daemon configuration: two bridged
// ledgers, the token each side mints, and the attestor committee that
// verifies messages between them.
package config

import (
	"fmt"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/omni"
)

const (
	defaultLogLevel             = "info"
	defaultAPIPort              = uint16(8080)
	defaultMetricsPort          = uint16(8081)
	defaultOwner                = "0x0200000000000000000000000000000000000002"
	defaultAttestorCount        = 3
	defaultSubmitTimeoutSeconds = 10
)

// ChainConfig describes one bridged ledger
type ChainConfig struct {
	// ChainID is the ledger's protocol identifier
	ChainID uint32 `mapstructure:"chain-id" json:"chain-id"`
	// TokenName is the display name of the ledger's bridged token
	TokenName string `mapstructure:"token-name" json:"token-name"`
	// TokenSymbol is the ticker of the ledger's bridged token
	TokenSymbol string `mapstructure:"token-symbol" json:"token-symbol"`
	// InitialSupply is minted to the owner at startup
	InitialSupply uint64 `mapstructure:"initial-supply" json:"initial-supply"`
}

func (c *ChainConfig) Validate() error {
	if c.ChainID == 0 {
		return omni.ErrZeroChain
	}
	if c.TokenName == "" {
		return fmt.Errorf("%w: empty token name", omni.ErrInvalidArgument)
	}
	if c.TokenSymbol == "" {
		return fmt.Errorf("%w: empty token symbol", omni.ErrInvalidArgument)
	}
	return nil
}

// Config is the omni-relayer daemon configuration
type Config struct {
	LogLevel             string      `mapstructure:"log-level" json:"log-level"`
	APIPort              uint16      `mapstructure:"api-port" json:"api-port"`
	MetricsPort          uint16      `mapstructure:"metrics-port" json:"metrics-port"`
	Owner                string      `mapstructure:"owner" json:"owner"`
	ChainA               ChainConfig `mapstructure:"chain-a" json:"chain-a"`
	ChainB               ChainConfig `mapstructure:"chain-b" json:"chain-b"`
	AttestorCount        int         `mapstructure:"attestor-count" json:"attestor-count"`
	AttestorThreshold    int         `mapstructure:"attestor-threshold" json:"attestor-threshold"`
	SubmitTimeoutSeconds uint64      `mapstructure:"submit-timeout-seconds" json:"submit-timeout-seconds"`
}

// Validate checks the configuration for internal consistency
func (c *Config) Validate() error {
	if err := c.ChainA.Validate(); err != nil {
		return fmt.Errorf("chain-a: %w", err)
	}
	if err := c.ChainB.Validate(); err != nil {
		return fmt.Errorf("chain-b: %w", err)
	}
	if c.ChainA.ChainID == c.ChainB.ChainID {
		return fmt.Errorf("%w: chain-a and chain-b share chain id %d", omni.ErrInvalidArgument, c.ChainA.ChainID)
	}
	if !common.IsHexAddress(c.Owner) {
		return fmt.Errorf("%w: invalid owner address %q", omni.ErrInvalidArgument, c.Owner)
	}
	if omni.IsZeroAddress(common.HexToAddress(c.Owner)) {
		return fmt.Errorf("%w: zero owner address", omni.ErrInvalidArgument)
	}
	if c.AttestorCount < 1 {
		return fmt.Errorf("%w: attestor count %d below 1", omni.ErrInvalidArgument, c.AttestorCount)
	}
	if c.AttestorThreshold < 0 || c.AttestorThreshold > c.AttestorCount {
		return fmt.Errorf(
			"%w: attestor threshold %d outside [0, %d]",
			omni.ErrInvalidArgument,
			c.AttestorThreshold,
			c.AttestorCount,
		)
	}
	if c.SubmitTimeoutSeconds == 0 {
		return fmt.Errorf("%w: zero submit timeout", omni.ErrInvalidArgument)
	}
	return nil
}

// OwnerAddress returns the parsed owner account. Call Validate first.
func (c *Config) OwnerAddress() common.Address {
	return common.HexToAddress(c.Owner)
}
