// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix = "TRENCH"

	defaultAPIURL        = "https://api.trench.bot"
	defaultAggRouterURL  = "https://quote-api.jup.ag/v6"
	defaultPumpLaunchURL = "https://api.pumplaunch.io"
	defaultSwiftAMMURL   = "https://api.swiftamm.io"
)

var (
	ErrMissingRPC    = errors.New("self-hosted mode requires an explicit RPC url")
	errBadFeeAccount = errors.New("fee account is not a valid address")
)

// Config is the immutable runtime configuration assembled from flags and
// environment.
type Config struct {
	RPCURL string

	VaultPassword      string
	VaultPath          string
	LaunchRegistryPath string

	SlippageBps uint64
	MaxBuySol   float64

	SelfHosted bool
	APIURL     string
	APIKey     string

	JupiterAPIKey   string
	HeliusAPIKey    string
	ChangeNowAPIKey string

	PumpLaunchURL string
	SwiftAMMURL   string
	AggRouterURL  string

	FeeAccount solana.PublicKey
	FeeBps     uint64

	LogLevel    string
	MetricsAddr string
}

// BuildFlagSet declares every recognized flag with its default.
func BuildFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String(RPCURLKey, "", "Chain RPC endpoint; required in self-hosted mode")
	fs.String(VaultPasswordKey, "", "Vault password; auto-generated into a sidecar file when empty")
	fs.String(VaultPathKey, "", "Vault file path; defaults to $HOME/.trenchsniper/vault.json")
	fs.String(LaunchRegistryKey, "", "Launch registry path; defaults next to the vault")
	fs.Uint64(SlippageBpsKey, 500, "Default slippage tolerance in basis points")
	fs.Float64(MaxBuySolKey, 1.0, "Per-trade safety cap on native spend, in SOL")
	fs.Bool(SelfHostedKey, false, "Require an explicit RPC and skip the hosted bootstrap")
	fs.String(APIURLKey, defaultAPIURL, "Hosted bootstrap endpoint")
	fs.String(APIKeyKey, "", "Bearer token for the hosted bootstrap")
	fs.String(JupiterAPIKeyKey, "", "Aggregator API key")
	fs.String(HeliusAPIKeyKey, "", "RPC provider API key")
	fs.String(ChangeNowAPIKeyKey, "", "Off-ramp provider API key")
	fs.String(PumpLaunchURLKey, defaultPumpLaunchURL, "Bonding-curve venue API")
	fs.String(SwiftAMMURLKey, defaultSwiftAMMURL, "AMM venue API")
	fs.String(AggRouterURLKey, defaultAggRouterURL, "Aggregator venue API")
	fs.String(FeeAccountKey, "", "Platform fee account; normally set by the hosted bootstrap")
	fs.Uint64(FeeBpsKey, 0, "Platform fee in basis points; normally set by the hosted bootstrap")
	fs.String(LogLevelKey, "info", "Log level")
	fs.String(MetricsAddrKey, "", "Prometheus listen address; metrics disabled when empty")
	return fs
}

// BuildViper binds [fs] and the TRENCH_* environment into a viper
// instance. Flags win over environment variables.
func BuildViper(fs *pflag.FlagSet, args []string) (*viper.Viper, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	return v, nil
}

// GetConfig assembles the immutable config from a bound viper instance.
func GetConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		RPCURL:             v.GetString(RPCURLKey),
		VaultPassword:      v.GetString(VaultPasswordKey),
		VaultPath:          v.GetString(VaultPathKey),
		LaunchRegistryPath: v.GetString(LaunchRegistryKey),
		SlippageBps:        cast.ToUint64(v.Get(SlippageBpsKey)),
		MaxBuySol:          v.GetFloat64(MaxBuySolKey),
		SelfHosted:         v.GetBool(SelfHostedKey),
		APIURL:             v.GetString(APIURLKey),
		APIKey:             v.GetString(APIKeyKey),
		JupiterAPIKey:      v.GetString(JupiterAPIKeyKey),
		HeliusAPIKey:       v.GetString(HeliusAPIKeyKey),
		ChangeNowAPIKey:    v.GetString(ChangeNowAPIKeyKey),
		PumpLaunchURL:      v.GetString(PumpLaunchURLKey),
		SwiftAMMURL:        v.GetString(SwiftAMMURLKey),
		AggRouterURL:       v.GetString(AggRouterURLKey),
		FeeBps:             cast.ToUint64(v.Get(FeeBpsKey)),
		LogLevel:           v.GetString(LogLevelKey),
		MetricsAddr:        v.GetString(MetricsAddrKey),
	}

	if cfg.VaultPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, err
		}
		cfg.VaultPath = filepath.Join(home, ".trenchsniper", "vault.json")
	}
	if cfg.LaunchRegistryPath == "" {
		cfg.LaunchRegistryPath = filepath.Join(filepath.Dir(cfg.VaultPath), "launches.json")
	}

	if raw := v.GetString(FeeAccountKey); raw != "" {
		account, err := solana.PublicKeyFromBase58(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %q", errBadFeeAccount, raw)
		}
		cfg.FeeAccount = account
	}

	if cfg.SelfHosted && cfg.RPCURL == "" {
		return Config{}, ErrMissingRPC
	}
	return cfg, nil
}
