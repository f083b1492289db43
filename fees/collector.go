// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fees

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/trench-labs/trenchsniper/chain"
)

// Collector takes the platform fee after a confirmed swap. Collection is
// strictly best effort: a failed fee transfer never fails the trade that
// triggered it.
type Collector struct {
	log        *zap.Logger
	chain      chain.Client
	feeAccount solana.PublicKey
	feeBps     uint64
}

func NewCollector(log *zap.Logger, chainClient chain.Client, feeAccount solana.PublicKey, feeBps uint64) *Collector {
	return &Collector{
		log:        log,
		chain:      chainClient,
		feeAccount: feeAccount,
		feeBps:     feeBps,
	}
}

// FeeFor returns the fee owed on [notionalLamports], rounded down.
func (c *Collector) FeeFor(notionalLamports uint64) uint64 {
	return notionalLamports * c.feeBps / 10_000
}

// Collect transfers the fee on [notionalLamports] from [signer] to the
// fee account. A zero fee, an unset fee account, and every transfer
// failure all result in a zero signature and a nil error.
func (c *Collector) Collect(ctx context.Context, signer chain.Signer, notionalLamports uint64) solana.Signature {
	fee := c.FeeFor(notionalLamports)
	if fee == 0 || c.feeAccount.IsZero() {
		return solana.Signature{}
	}

	sig, err := c.chain.Transfer(ctx, signer, c.feeAccount, fee, 0)
	if err != nil {
		c.log.Warn("fee collection failed",
			zap.Stringer("wallet", signer.Address()),
			zap.Uint64("feeLamports", fee),
			zap.Error(err),
		)
		return solana.Signature{}
	}
	if err := c.chain.AwaitConfirmation(ctx, sig); err != nil {
		c.log.Warn("fee transfer not confirmed",
			zap.Stringer("signature", sig),
			zap.Error(err),
		)
	}

	c.log.Debug("collected fee",
		zap.Stringer("wallet", signer.Address()),
		zap.Uint64("notionalLamports", notionalLamports),
		zap.Uint64("feeLamports", fee),
	)
	return sig
}
