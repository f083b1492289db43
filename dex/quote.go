// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dex

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
)

// DefaultQuoteValidity is the window during which a quote may be executed.
const DefaultQuoteValidity = 30 * time.Second

var errMalformedQuote = errors.New("malformed quote")

// QuoteParams describes one requested trade. Amounts are integer base
// units of the input mint.
type QuoteParams struct {
	InputMint   solana.PublicKey
	OutputMint  solana.PublicKey
	InAmount    uint64
	SlippageBps uint64

	// PriorityFeeMicroLamports is carried through to the venue's swap
	// builder; zero means no priority fee.
	PriorityFeeMicroLamports uint64
}

// IsBuy reports whether the trade spends native SOL.
func (p QuoteParams) IsBuy() bool {
	return p.InputMint == solana.SolMint
}

// Quote is frozen at construction by a venue client.
type Quote struct {
	Venue          VenueID
	InputMint      solana.PublicKey
	OutputMint     solana.PublicKey
	InAmount       uint64
	OutAmount      uint64
	MinOutAmount   uint64
	PriceImpactPct float64
	Timestamp      time.Time
	ExpiresAt      time.Time

	// PriorityFeeMicroLamports is copied from the request.
	PriorityFeeMicroLamports uint64

	// Route is the venue-specific payload needed to build the swap, kept
	// opaque to the router.
	Route json.RawMessage
}

// Verify checks the construction invariants of a quote.
func (q *Quote) Verify() error {
	switch {
	case q.MinOutAmount > q.OutAmount:
		return errMalformedQuote
	case !q.ExpiresAt.After(q.Timestamp):
		return errMalformedQuote
	default:
		return nil
	}
}

// MinOutForSlippage applies a slippage tolerance in basis points.
func MinOutForSlippage(outAmount uint64, slippageBps uint64) uint64 {
	if slippageBps >= 10_000 {
		return 0
	}
	return outAmount - outAmount*slippageBps/10_000
}
