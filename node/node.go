// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package node

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/trench-labs/trenchsniper/chain"
	"github.com/trench-labs/trenchsniper/config"
	"github.com/trench-labs/trenchsniper/dex"
	"github.com/trench-labs/trenchsniper/dex/aggrouter"
	"github.com/trench-labs/trenchsniper/dex/pumplaunch"
	"github.com/trench-labs/trenchsniper/dex/swiftamm"
	"github.com/trench-labs/trenchsniper/fees"
	"github.com/trench-labs/trenchsniper/launchpad"
	"github.com/trench-labs/trenchsniper/orchestrator"
	"github.com/trench-labs/trenchsniper/treasury"
	"github.com/trench-labs/trenchsniper/vault"
)

const treasuryWalletName = "treasury"

// Node is the single construction site: every collaborator is built here
// and wired through constructors. Nothing in the tree reaches for a
// package-level singleton.
type Node struct {
	log *zap.Logger
	cfg config.Config

	Vault        *vault.Vault
	Registry     *launchpad.Registry
	Chain        chain.Client
	Router       *dex.Router
	Orchestrator *orchestrator.Orchestrator

	metricsSrv *http.Server
}

// walletStore narrows the vault to the orchestrator's contract.
type walletStore struct {
	*vault.Vault
}

func (s walletStore) SignerFor(addr solana.PublicKey) (chain.Signer, error) {
	return s.Vault.SignerFor(addr)
}

func New(log *zap.Logger, cfg config.Config, registerer prometheus.Registerer) (*Node, error) {
	registry, err := launchpad.NewRegistry(log, cfg.LaunchRegistryPath)
	if err != nil {
		return nil, err
	}

	v := vault.New(log, cfg.VaultPath, registry)
	password, err := vault.BootstrapPassword(log, cfg.VaultPath, cfg.VaultPassword)
	if err != nil {
		return nil, err
	}
	treasuryAddr, err := openVault(v, password)
	if err != nil {
		return nil, err
	}

	chainClient := chain.NewClient(log, cfg.RPCURL)

	curveCfg := pumplaunch.DefaultConfig(cfg.PumpLaunchURL)
	curveCfg.SlippageBps = cfg.SlippageBps
	curve := pumplaunch.New(log, chainClient, curveCfg)

	ammCfg := swiftamm.DefaultConfig(cfg.SwiftAMMURL)
	ammCfg.SlippageBps = cfg.SlippageBps
	amm := swiftamm.New(log, chainClient, ammCfg)

	aggCfg := aggrouter.DefaultConfig(cfg.AggRouterURL)
	aggCfg.SlippageBps = cfg.SlippageBps
	aggCfg.APIKey = cfg.JupiterAPIKey
	agg := aggrouter.New(log, chainClient, aggCfg)

	routerCfg := dex.DefaultConfig()
	routerCfg.MaxBuyLamports = chain.SolToLamports(cfg.MaxBuySol)
	router := dex.NewRouter(log, routerCfg, curve, amm, agg)

	orchCfg := orchestrator.DefaultConfig()
	orchCfg.TreasuryAddress = treasuryAddr
	orchCfg.SlippageBps = cfg.SlippageBps

	orch, err := orchestrator.New(
		log,
		orchCfg,
		chainClient,
		walletStore{v},
		router,
		fees.NewCollector(log, chainClient, cfg.FeeAccount, cfg.FeeBps),
		treasury.NewMover(log, chainClient, registry),
		curve,
		registry,
		registerer,
	)
	if err != nil {
		return nil, err
	}

	return &Node{
		log:          log,
		cfg:          cfg,
		Vault:        v,
		Registry:     registry,
		Chain:        chainClient,
		Router:       router,
		Orchestrator: orch,
	}, nil
}

// openVault unlocks (or creates) the vault and returns the treasury
// wallet address, generating one on first run.
func openVault(v *vault.Vault, password string) (solana.PublicKey, error) {
	if !v.Exists() {
		// Generate persists the blob without materializing it; the Unlock
		// below loads it either way.
		if _, err := v.Generate(treasuryWalletName, vault.Treasury, password); err != nil {
			return solana.PublicKey{}, fmt.Errorf("failed to initialize vault: %w", err)
		}
	}
	if _, err := v.Unlock(password); err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to unlock vault: %w", err)
	}

	for _, w := range v.List() {
		if w.Type == vault.Treasury {
			return w.Address, nil
		}
	}
	w, err := v.Generate(treasuryWalletName, vault.Treasury, "")
	if err != nil {
		return solana.PublicKey{}, err
	}
	return w.Address, nil
}

// Run blocks until [ctx] is cancelled, then shuts everything down.
func (n *Node) Run(ctx context.Context, gatherer prometheus.Gatherer) error {
	if n.cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
		n.metricsSrv = &http.Server{
			Addr:              n.cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := n.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				n.log.Error("metrics server failed", zap.Error(err))
			}
		}()
		n.log.Info("serving metrics", zap.String("addr", n.cfg.MetricsAddr))
	}

	n.log.Info("node running",
		zap.String("rpcURL", n.cfg.RPCURL),
		zap.String("vaultPath", n.cfg.VaultPath),
	)
	<-ctx.Done()

	n.log.Info("shutting down")
	n.Orchestrator.StopAll()
	if n.metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = n.metricsSrv.Shutdown(shutdownCtx)
		cancel()
	}
	n.Vault.Lock()
	return nil
}
