// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dex

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/trench-labs/trenchsniper/chain"
)

var (
	_ VenueClient      = (*TestVenue)(nil)
	_ GraduationProber = (*TestVenue)(nil)
	_ PoolFinder       = (*TestVenue)(nil)
)

// TestVenue is a scriptable venue client for router tests.
type TestVenue struct {
	ID VenueID

	ProbeAvailable bool
	ProbeErr       error
	Graduated      bool
	GraduatedErr   error

	QuoteOut    uint64
	QuoteImpact float64
	QuoteErr    error
	// QuoteMinOut overrides the slippage-derived min-out when nonzero,
	// so tests can produce malformed quotes.
	QuoteMinOut uint64

	PoolList []Pool
	PoolsErr error

	SwapErr   error
	SwapCalls int
}

func (v *TestVenue) Venue() VenueID {
	return v.ID
}

func (v *TestVenue) Probe(context.Context, solana.PublicKey) (bool, error) {
	return v.ProbeAvailable, v.ProbeErr
}

func (v *TestVenue) HasGraduated(context.Context, solana.PublicKey) (bool, error) {
	return v.Graduated, v.GraduatedErr
}

func (v *TestVenue) Pools(context.Context, solana.PublicKey) ([]Pool, error) {
	return v.PoolList, v.PoolsErr
}

func (v *TestVenue) Quote(_ context.Context, params QuoteParams) (*Quote, error) {
	if v.QuoteErr != nil {
		return nil, v.QuoteErr
	}
	minOut := MinOutForSlippage(v.QuoteOut, params.SlippageBps)
	if v.QuoteMinOut > 0 {
		minOut = v.QuoteMinOut
	}
	now := time.Now()
	return &Quote{
		Venue:          v.ID,
		InputMint:      params.InputMint,
		OutputMint:     params.OutputMint,
		InAmount:       params.InAmount,
		OutAmount:      v.QuoteOut,
		MinOutAmount:   minOut,
		PriceImpactPct: v.QuoteImpact,
		Timestamp:      now,
		ExpiresAt:      now.Add(DefaultQuoteValidity),
	}, nil
}

func (v *TestVenue) Swap(_ context.Context, quote *Quote, _ chain.Signer) (*SwapOutcome, error) {
	v.SwapCalls++
	if v.SwapErr != nil {
		return nil, v.SwapErr
	}
	return &SwapOutcome{
		Venue:     v.ID,
		InAmount:  quote.InAmount,
		OutAmount: quote.OutAmount,
		Confirmed: true,
	}, nil
}
