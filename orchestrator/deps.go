// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package orchestrator

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/trench-labs/trenchsniper/chain"
	"github.com/trench-labs/trenchsniper/dex"
	"github.com/trench-labs/trenchsniper/launchpad"
	"github.com/trench-labs/trenchsniper/vault"
)

// WalletStore is the slice of the vault the orchestrator needs.
type WalletStore interface {
	GenerateBatch(count int, namePrefix string, typ vault.Type, password string) ([]vault.Wallet, error)
	SignerFor(addr solana.PublicKey) (chain.Signer, error)
	Addresses() []solana.PublicKey
	Contains(addr solana.PublicKey) bool
}

// TradeRouter executes trades; the orchestrator never talks to venues
// directly.
type TradeRouter interface {
	Execute(ctx context.Context, signer chain.Signer, params dex.QuoteParams) (*dex.SwapOutcome, error)
}

// TreasuryMover funds fresh wallets and sweeps them back.
type TreasuryMover interface {
	Fund(ctx context.Context, from chain.Signer, targets []solana.PublicKey, perWallet uint64) ([]solana.PublicKey, error)
	Sweep(ctx context.Context, from []chain.Signer, to solana.PublicKey, keepLamports uint64) (uint64, error)
}

// FeeCollector takes the platform fee after a confirmed swap. It never
// returns an error; failures are its own concern.
type FeeCollector interface {
	Collect(ctx context.Context, signer chain.Signer, notionalLamports uint64) solana.Signature
}

// TokenLauncher creates new tokens on the bonding curve.
type TokenLauncher interface {
	CreateToken(ctx context.Context, signer chain.Signer, name, symbol, uri string) (solana.PublicKey, solana.Signature, error)
}

// LaunchRegistry records successful token creations so the creator wallet
// becomes protected.
type LaunchRegistry interface {
	Append(rec launchpad.Record) error
}
