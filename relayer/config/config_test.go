// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/omni"
)

func validConfig() Config {
	return Config{
		LogLevel:    "info",
		APIPort:     8080,
		MetricsPort: 8081,
		Owner:       "0x0200000000000000000000000000000000000002",
		ChainA: ChainConfig{
			ChainID:       1,
			TokenName:     "Omni Token A",
			TokenSymbol:   "OMNIA",
			InitialSupply: 1_000_000,
		},
		ChainB: ChainConfig{
			ChainID:     2,
			TokenName:   "Omni Token B",
			TokenSymbol: "OMNIB",
		},
		AttestorCount:        3,
		AttestorThreshold:    2,
		SubmitTimeoutSeconds: 10,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectedErr error
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:        "zero chain id",
			mutate:      func(c *Config) { c.ChainA.ChainID = 0 },
			expectedErr: omni.ErrZeroChain,
		},
		{
			name:        "duplicate chain ids",
			mutate:      func(c *Config) { c.ChainB.ChainID = c.ChainA.ChainID },
			expectedErr: omni.ErrInvalidArgument,
		},
		{
			name:        "empty token symbol",
			mutate:      func(c *Config) { c.ChainB.TokenSymbol = "" },
			expectedErr: omni.ErrInvalidArgument,
		},
		{
			name:        "malformed owner",
			mutate:      func(c *Config) { c.Owner = "not-an-address" },
			expectedErr: omni.ErrInvalidArgument,
		},
		{
			name:        "zero owner",
			mutate:      func(c *Config) { c.Owner = "0x0000000000000000000000000000000000000000" },
			expectedErr: omni.ErrInvalidArgument,
		},
		{
			name:        "no attestors",
			mutate:      func(c *Config) { c.AttestorCount = 0 },
			expectedErr: omni.ErrInvalidArgument,
		},
		{
			name:        "threshold above count",
			mutate:      func(c *Config) { c.AttestorThreshold = 4 },
			expectedErr: omni.ErrInvalidArgument,
		},
		{
			name:        "zero submit timeout",
			mutate:      func(c *Config) { c.SubmitTimeoutSeconds = 0 },
			expectedErr: omni.ErrInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.expectedErr == nil {
				require.NoError(err)
			} else {
				require.ErrorIs(err, tt.expectedErr)
			}
		})
	}
}

func TestNewConfigDefaults(t *testing.T) {
	require := require.New(t)

	fs := BuildFlagSet()
	require.NoError(fs.Parse(nil))
	v, err := BuildViper(fs)
	require.NoError(err)

	cfg, err := NewConfig(v)
	require.NoError(err)
	require.Equal("info", cfg.LogLevel)
	require.Equal(uint16(8080), cfg.APIPort)
	require.Equal(uint32(1), cfg.ChainA.ChainID)
	require.Equal(uint32(2), cfg.ChainB.ChainID)
	require.Equal(uint64(1_000_000), cfg.ChainA.InitialSupply)
	require.Equal(3, cfg.AttestorCount)
	require.NoError(cfg.Validate())
}

func TestNewConfigFromFile(t *testing.T) {
	require := require.New(t)

	contents := `{
		"log-level": "debug",
		"api-port": 9090,
		"chain-a": {
			"chain-id": 10,
			"token-name": "Alpha",
			"token-symbol": "ALF",
			"initial-supply": 500
		},
		"chain-b": {
			"chain-id": 20,
			"token-name": "Beta",
			"token-symbol": "BET"
		},
		"attestor-threshold": 2
	}`
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(os.WriteFile(path, []byte(contents), 0o600))

	fs := BuildFlagSet()
	require.NoError(fs.Parse([]string{"--config-file", path}))
	v, err := BuildViper(fs)
	require.NoError(err)

	cfg, err := NewConfig(v)
	require.NoError(err)
	require.Equal("debug", cfg.LogLevel)
	require.Equal(uint16(9090), cfg.APIPort)
	require.Equal(uint32(10), cfg.ChainA.ChainID)
	require.Equal("BET", cfg.ChainB.TokenSymbol)
	require.Equal(uint64(500), cfg.ChainA.InitialSupply)
	require.Equal(2, cfg.AttestorThreshold)

	// Defaults still fill the keys the file leaves out.
	require.Equal(uint16(8081), cfg.MetricsPort)
	require.Equal(3, cfg.AttestorCount)
}
