// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package treasury

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/trench-labs/trenchsniper/chain"
)

var ErrNothingToSweep = errors.New("no wallet held a sweepable balance")

// InsufficientFundsError reports that the treasury cannot cover a funding
// plan. Both sides of the shortfall are carried so callers can size down.
type InsufficientFundsError struct {
	NeededLamports    uint64
	AvailableLamports uint64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient treasury funds: need %d lamports, have %d",
		e.NeededLamports, e.AvailableLamports)
}

// ProtectedChecker reports wallets that must never be drained.
type ProtectedChecker interface {
	IsProtected(addr solana.PublicKey) bool
}

// Mover moves native balance between the treasury and working wallets.
type Mover struct {
	log       *zap.Logger
	chain     chain.Client
	protected ProtectedChecker
}

func NewMover(log *zap.Logger, chainClient chain.Client, protected ProtectedChecker) *Mover {
	return &Mover{
		log:       log,
		chain:     chainClient,
		protected: protected,
	}
}

// FundingCost returns the lamports the treasury must hold to fund [count]
// wallets with [perWallet] each: the transfers themselves, one base fee
// per transfer, and the treasury's own rent reserve.
func FundingCost(count int, perWallet uint64) uint64 {
	n := uint64(count)
	return n*perWallet + n*chain.PerTxFeeLamports + chain.RentReserveLamports
}

// Fund sends [perWallet] lamports from [from] to each target. The full
// plan is priced up front; with insufficient balance nothing is sent and
// an *InsufficientFundsError is returned. Individual transfer failures
// are logged and skipped, and the successfully funded subset is returned.
func (m *Mover) Fund(ctx context.Context, from chain.Signer, targets []solana.PublicKey, perWallet uint64) ([]solana.PublicKey, error) {
	available, err := m.chain.Balance(ctx, from.Address())
	if err != nil {
		return nil, err
	}
	needed := FundingCost(len(targets), perWallet)
	if available < needed {
		return nil, &InsufficientFundsError{
			NeededLamports:    needed,
			AvailableLamports: available,
		}
	}

	funded := make([]solana.PublicKey, 0, len(targets))
	for _, target := range targets {
		sig, err := m.chain.Transfer(ctx, from, target, perWallet, 0)
		if err != nil {
			m.log.Warn("funding transfer failed",
				zap.Stringer("target", target),
				zap.Error(err),
			)
			continue
		}
		if err := m.chain.AwaitConfirmation(ctx, sig); err != nil {
			m.log.Warn("funding transfer not confirmed",
				zap.Stringer("target", target),
				zap.Stringer("signature", sig),
				zap.Error(err),
			)
			continue
		}
		funded = append(funded, target)
	}

	m.log.Info("funded wallets",
		zap.Int("requested", len(targets)),
		zap.Int("funded", len(funded)),
		zap.Uint64("perWalletLamports", perWallet),
	)
	return funded, nil
}

// SweepableAmount returns what a wallet holding [balance] can send away
// while covering the transfer fee and keeping [keepLamports] behind. The
// keep amount is floored at the rent reserve so sources stay rent exempt.
func SweepableAmount(balance, keepLamports uint64) uint64 {
	if keepLamports < chain.RentReserveLamports {
		keepLamports = chain.RentReserveLamports
	}
	reserve := keepLamports + chain.PerTxFeeLamports
	if balance <= reserve {
		return 0
	}
	return balance - reserve
}

// Sweep drains every wallet in [from] back to [to], leaving
// [keepLamports] behind (at least the rent reserve). Protected wallets,
// the destination itself, and wallets with nothing above the reserve are
// skipped. The total swept is returned; ErrNothingToSweep means no wallet
// contributed.
func (m *Mover) Sweep(ctx context.Context, from []chain.Signer, to solana.PublicKey, keepLamports uint64) (uint64, error) {
	var (
		total uint64
		swept int
	)
	for _, signer := range from {
		addr := signer.Address()
		if addr == to {
			continue
		}
		if m.protected != nil && m.protected.IsProtected(addr) {
			m.log.Warn("refusing to sweep protected wallet", zap.Stringer("wallet", addr))
			continue
		}

		balance, err := m.chain.Balance(ctx, addr)
		if err != nil {
			m.log.Warn("balance lookup failed during sweep",
				zap.Stringer("wallet", addr),
				zap.Error(err),
			)
			continue
		}
		amount := SweepableAmount(balance, keepLamports)
		if amount == 0 {
			continue
		}

		sig, err := m.chain.Transfer(ctx, signer, to, amount, 0)
		if err != nil {
			m.log.Warn("sweep transfer failed",
				zap.Stringer("wallet", addr),
				zap.Error(err),
			)
			continue
		}
		if err := m.chain.AwaitConfirmation(ctx, sig); err != nil {
			m.log.Warn("sweep transfer not confirmed",
				zap.Stringer("wallet", addr),
				zap.Stringer("signature", sig),
				zap.Error(err),
			)
			continue
		}
		total += amount
		swept++
	}

	if swept == 0 {
		return 0, ErrNothingToSweep
	}
	m.log.Info("swept wallets",
		zap.Int("wallets", swept),
		zap.Uint64("totalLamports", total),
		zap.Stringer("to", to),
	)
	return total, nil
}
