// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dex

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/trench-labs/trenchsniper/chain"
)

// VenueID names a concrete trading location.
type VenueID string

const (
	VenueBondingCurve VenueID = "pumplaunch"
	VenueAMM          VenueID = "swiftamm"
	VenueAggregator   VenueID = "aggrouter"
)

// VenueClient is the capability set every venue exposes. Variants know
// their own wire protocol; the router knows nothing venue-specific.
type VenueClient interface {
	Venue() VenueID

	// Probe reports whether the venue can currently trade [mint]. Probe
	// errors are treated by the router as "not available here".
	Probe(ctx context.Context, mint solana.PublicKey) (bool, error)

	// Quote returns a quote valid until its ExpiresAt.
	Quote(ctx context.Context, params QuoteParams) (*Quote, error)

	// Swap builds the transaction for [quote], has [signer] authorize it,
	// submits it and polls confirmation. The submitted signature is
	// surfaced in the outcome even when confirmation times out.
	Swap(ctx context.Context, quote *Quote, signer chain.Signer) (*SwapOutcome, error)
}

// GraduationProber is implemented by bonding-curve venues so the router can
// detect migration to an AMM.
type GraduationProber interface {
	HasGraduated(ctx context.Context, mint solana.PublicKey) (bool, error)
}

// PoolFinder is implemented by AMM venues.
type PoolFinder interface {
	Pools(ctx context.Context, mint solana.PublicKey) ([]Pool, error)
}

// Pool describes one AMM pool holding the token.
type Pool struct {
	ID                solana.PublicKey
	Venue             VenueID
	LiquidityLamports uint64
}

// SwapOutcome reports an executed (or at least submitted) swap.
type SwapOutcome struct {
	Venue     VenueID
	Signature solana.Signature
	InAmount  uint64
	OutAmount uint64
	Confirmed bool
}
