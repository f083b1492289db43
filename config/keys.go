// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

// Flag keys. Environment variables use the TRENCH_ prefix with dashes
// mapped to underscores, e.g. TRENCH_RPC_URL.
const (
	RPCURLKey          = "rpc-url"
	VaultPasswordKey   = "vault-password"
	VaultPathKey       = "vault-path"
	LaunchRegistryKey  = "launch-registry-path"
	SlippageBpsKey     = "slippage-bps"
	MaxBuySolKey       = "max-buy-sol"
	SelfHostedKey      = "self-hosted"
	APIURLKey          = "api-url"
	APIKeyKey          = "api-key"
	JupiterAPIKeyKey   = "jupiter-api-key"
	HeliusAPIKeyKey    = "helius-api-key"
	ChangeNowAPIKeyKey = "changenow-api-key"
	PumpLaunchURLKey   = "pumplaunch-url"
	SwiftAMMURLKey     = "swiftamm-url"
	AggRouterURLKey    = "aggrouter-url"
	FeeAccountKey      = "fee-account"
	FeeBpsKey          = "fee-bps"
	LogLevelKey        = "log-level"
	MetricsAddrKey     = "metrics-addr"
)
