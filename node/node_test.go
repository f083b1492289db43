// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package node

import (
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trench-labs/trenchsniper/config"
	"github.com/trench-labs/trenchsniper/vault"
)

func testConfig(t *testing.T) config.Config {
	dir := t.TempDir()
	return config.Config{
		RPCURL:             "http://localhost:8899",
		VaultPassword:      "correct horse battery staple",
		VaultPath:          filepath.Join(dir, "vault.json"),
		LaunchRegistryPath: filepath.Join(dir, "launches.json"),
		SlippageBps:        500,
		MaxBuySol:          1,
		PumpLaunchURL:      "http://localhost:1",
		SwiftAMMURL:        "http://localhost:1",
		AggRouterURL:       "http://localhost:1",
		LogLevel:           "info",
	}
}

func TestNodeWiring(t *testing.T) {
	require := require.New(t)

	cfg := testConfig(t)
	n, err := New(zap.NewNop(), cfg, prometheus.NewRegistry())
	require.NoError(err)

	// First run creates the vault with a treasury wallet.
	require.True(n.Vault.IsUnlocked())
	wallets := n.Vault.List()
	require.Len(wallets, 1)
	require.Equal(vault.Treasury, wallets[0].Type)
	n.Vault.Lock()

	// A second construction reopens the same vault.
	n2, err := New(zap.NewNop(), cfg, prometheus.NewRegistry())
	require.NoError(err)
	require.True(n2.Vault.IsUnlocked())
	require.Equal(wallets[0].Address, n2.Vault.List()[0].Address)
	n2.Vault.Lock()
}

func TestNodeAddsTreasuryToExistingVault(t *testing.T) {
	require := require.New(t)

	cfg := testConfig(t)

	// A vault that predates the node holds no treasury wallet.
	v := vault.New(zap.NewNop(), cfg.VaultPath, nil)
	_, err := v.Generate("imported", vault.Sniper, cfg.VaultPassword)
	require.NoError(err)

	n, err := New(zap.NewNop(), cfg, prometheus.NewRegistry())
	require.NoError(err)
	require.True(n.Vault.IsUnlocked())

	wallets := n.Vault.List()
	require.Len(wallets, 2)
	types := []vault.Type{wallets[0].Type, wallets[1].Type}
	require.Contains(types, vault.Sniper)
	require.Contains(types, vault.Treasury)
	n.Vault.Lock()
}

func TestNodeGeneratedSidecarPassword(t *testing.T) {
	require := require.New(t)

	cfg := testConfig(t)
	cfg.VaultPassword = ""
	n, err := New(zap.NewNop(), cfg, prometheus.NewRegistry())
	require.NoError(err)
	require.True(n.Vault.IsUnlocked())
	n.Vault.Lock()
}
