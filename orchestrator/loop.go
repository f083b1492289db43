// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package orchestrator

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/trench-labs/trenchsniper/chain"
	"github.com/trench-labs/trenchsniper/dex"
)

const activityTarget = "activity-mixed"

// runLoop is one wallet's cooperative trade loop. Every error inside an
// iteration becomes a failed counter increment; nothing propagates out.
func (o *Orchestrator) runLoop(ctx context.Context, s *session, wallet solana.PublicKey) {
	defer s.wg.Done()

	for {
		if !s.isRunning() {
			return
		}
		if s.kind == Activity && !s.endAt.IsZero() && !o.clock.Time().Before(s.endAt) {
			// The window elapsed; this loop takes its siblings down too.
			o.log.Info("activity window elapsed",
				zap.String("session", s.id),
				zap.Time("endAt", s.endAt),
			)
			s.halt()
			return
		}

		delay := o.rng.DurationBetween(s.preset.MinInterval, s.preset.MaxInterval)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		if !s.isRunning() {
			return
		}

		o.step(ctx, s, wallet)
	}
}

// step runs one iteration: decide an action, pre-check the balance,
// trade, count.
func (o *Orchestrator) step(ctx context.Context, s *session, wallet solana.PublicKey) {
	signer, err := o.wallets.SignerFor(wallet)
	if err != nil {
		o.fail(s)
		return
	}

	if s.kind == Activity && len(s.wallets) > 1 && o.rng.Float64() < s.preset.TransferChance {
		o.stepTransfer(ctx, s, signer, wallet)
		return
	}

	mint := s.target
	if s.kind == Activity {
		mint = o.cfg.ActivityTokens[o.rng.Intn(len(o.cfg.ActivityTokens))]
	}

	tokenBalance, err := o.chain.TokenBalance(ctx, wallet, mint)
	if err != nil {
		o.fail(s)
		return
	}

	var params dex.QuoteParams
	if tokenBalance > 0 && o.rng.Float64() < 0.5 {
		// Sell the whole position.
		params = dex.QuoteParams{
			InputMint:                mint,
			OutputMint:               solana.SolMint,
			InAmount:                 tokenBalance,
			SlippageBps:              o.cfg.SlippageBps,
			PriorityFeeMicroLamports: o.cfg.PriorityFeeMicroLamports,
		}
	} else {
		amount := o.rng.FloatBetween(s.preset.MinSwapSol, s.preset.MaxSwapSol)
		params = dex.QuoteParams{
			InputMint:                solana.SolMint,
			OutputMint:               mint,
			InAmount:                 chain.SolToLamports(amount),
			SlippageBps:              o.cfg.SlippageBps,
			PriorityFeeMicroLamports: o.cfg.PriorityFeeMicroLamports,
		}
	}

	balance, err := o.chain.Balance(ctx, wallet)
	if err != nil {
		o.fail(s)
		return
	}
	var needed uint64
	if params.IsBuy() {
		needed = params.InAmount
	}
	if balance < needed+chain.RentReserveLamports+chain.PerTxFeeLamports {
		o.log.Debug("skipping trade on insufficient balance",
			zap.String("session", s.id),
			zap.Stringer("wallet", wallet),
			zap.Uint64("balance", balance),
			zap.Uint64("needed", needed),
		)
		o.fail(s)
		return
	}

	if err := o.swapSem.Acquire(ctx, 1); err != nil {
		// Cancelled while queued; not a trade attempt.
		return
	}
	out, err := o.router.Execute(ctx, signer, params)
	o.swapSem.Release(1)
	if err != nil {
		o.log.Debug("trade failed",
			zap.String("session", s.id),
			zap.Stringer("wallet", wallet),
			zap.Error(err),
		)
		o.fail(s)
		return
	}

	notional := params.InAmount
	if !params.IsBuy() {
		notional = out.OutAmount
	}
	o.success(s, chain.LamportsToSol(notional))
	if params.IsBuy() {
		s.noteHeld(params.OutputMint)
	}
	if o.fees != nil {
		o.fees.Collect(ctx, signer, notional)
	}
}

// stepTransfer sends a small native amount to a sibling wallet of the same
// session, making the wallet set look organically interconnected.
func (o *Orchestrator) stepTransfer(ctx context.Context, s *session, signer chain.Signer, wallet solana.PublicKey) {
	siblings := make([]solana.PublicKey, 0, len(s.wallets))
	for _, w := range s.wallets {
		if w != wallet {
			siblings = append(siblings, w)
		}
	}
	if len(siblings) == 0 {
		// No distinct counterparty; not a trade attempt.
		return
	}
	sibling := siblings[o.rng.Intn(len(siblings))]
	lamports := chain.SolToLamports(o.rng.FloatBetween(transferMinSol, transferMaxSol))

	balance, err := o.chain.Balance(ctx, wallet)
	if err != nil {
		o.fail(s)
		return
	}
	if balance < lamports+chain.RentReserveLamports+chain.PerTxFeeLamports {
		o.fail(s)
		return
	}

	sig, err := o.chain.Transfer(ctx, signer, sibling, lamports, o.cfg.PriorityFeeMicroLamports)
	if err != nil {
		o.fail(s)
		return
	}
	if err := o.chain.AwaitConfirmation(ctx, sig); err != nil {
		o.fail(s)
		return
	}
	o.success(s, 0)
}

// cleanupSell disposes of every held token across the session's wallets,
// best effort. Returns how many positions were sold.
func (o *Orchestrator) cleanupSell(ctx context.Context, s *session) int {
	sold := 0
	for _, wallet := range s.wallets {
		signer, err := o.wallets.SignerFor(wallet)
		if err != nil {
			continue
		}
		for _, mint := range s.heldMints() {
			balance, err := o.chain.TokenBalance(ctx, wallet, mint)
			if err != nil || balance == 0 {
				continue
			}
			_, err = o.router.Execute(ctx, signer, dex.QuoteParams{
				InputMint:   mint,
				OutputMint:  solana.SolMint,
				InAmount:    balance,
				SlippageBps: o.cfg.SlippageBps,
			})
			if err != nil {
				o.log.Debug("cleanup sell failed",
					zap.Stringer("wallet", wallet),
					zap.Stringer("mint", mint),
					zap.Error(err),
				)
				continue
			}
			sold++
		}
	}
	return sold
}

func (o *Orchestrator) success(s *session, volumeSol float64) {
	s.recordSuccess(volumeSol)
	o.metrics.tradesExecuted.Inc()
	o.metrics.tradesSucceeded.Inc()
	o.metrics.volumeSol.Add(volumeSol)
}

func (o *Orchestrator) fail(s *session) {
	s.recordFailure()
	o.metrics.tradesExecuted.Inc()
	o.metrics.tradesFailed.Inc()
}
