// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const usageText = `Usage:
omni-relayer --config-file <path>  Run the relayer daemon with the config at <path>
omni-relayer --version             Print the version and exit
omni-relayer --help                Print this text and exit

Every config key may also be set via environment variable, capitalized with
hyphens replaced by underscores.`

// BuildFlagSet returns the daemon's command line flags
func BuildFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("omni-relayer", pflag.ContinueOnError)
	fs.String(ConfigFileKey, "", "Path to the JSON config file")
	fs.BoolP(VersionKey, "", false, "Print the version and exit")
	fs.BoolP(HelpKey, "", false, "Print usage text and exit")
	return fs
}

// DisplayUsageText prints the daemon's usage text
func DisplayUsageText() {
	fmt.Println(usageText)
}

// NewConfig builds and validates the config from v
func NewConfig(v *viper.Viper) (Config, error) {
	cfg, err := BuildConfig(v)
	if err != nil {
		return cfg, err
	}
	if err = cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("failed to validate configuration: %w", err)
	}
	return cfg, nil
}

// BuildViper builds the viper instance. The config file is optional: without
// one the daemon runs on defaults. All config keys may be provided via config
// file or environment variable.
func BuildViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.AutomaticEnv()
	// Map flag names to env var names. Flags are capitalized, and hyphens
	// are replaced with underscores.
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}

	if v.IsSet(ConfigFileKey) {
		filename := v.GetString(ConfigFileKey)
		v.SetConfigFile(filename)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	return v, nil
}

func SetDefaultConfigValues(v *viper.Viper) {
	v.SetDefault(LogLevelKey, defaultLogLevel)
	v.SetDefault(APIPortKey, defaultAPIPort)
	v.SetDefault(MetricsPortKey, defaultMetricsPort)
	v.SetDefault(OwnerKey, defaultOwner)
	v.SetDefault(AttestorCountKey, defaultAttestorCount)
	v.SetDefault(SubmitTimeoutSecondsKey, defaultSubmitTimeoutSeconds)
	v.SetDefault(ChainAKey, map[string]any{
		"chain-id":       1,
		"token-name":     "Omni Token A",
		"token-symbol":   "OMNIA",
		"initial-supply": 1_000_000,
	})
	v.SetDefault(ChainBKey, map[string]any{
		"chain-id":     2,
		"token-name":   "Omni Token B",
		"token-symbol": "OMNIB",
	})
}

// BuildConfig constructs the relayer config using Viper.
// The following precedence order is used. Each item takes precedence over the item below it:
//  1. Flags
//  2. Config file
//  3. Defaults
//
// Returns the Config
func BuildConfig(v *viper.Viper) (Config, error) {
	SetDefaultConfigValues(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal viper config: %w", err)
	}
	return cfg, nil
}
