// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package config

const (
	// Command line option keys
	ConfigFileKey = "config-file"
	VersionKey    = "version"
	HelpKey       = "help"

	// Top-level configuration keys
	LogLevelKey             = "log-level"
	APIPortKey              = "api-port"
	MetricsPortKey          = "metrics-port"
	OwnerKey                = "owner"
	ChainAKey               = "chain-a"
	ChainBKey               = "chain-b"
	AttestorCountKey        = "attestor-count"
	AttestorThresholdKey    = "attestor-threshold"
	SubmitTimeoutSecondsKey = "submit-timeout-seconds"
)
