// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dex

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/trench-labs/trenchsniper/chain"
	"github.com/trench-labs/trenchsniper/utils/timer/mockable"
)

var (
	ErrNoRoute              = errors.New("no venue can serve this trade")
	ErrStaleQuote           = errors.New("quote is stale")
	ErrExcessivePriceImpact = errors.New("price impact exceeds the configured maximum")
	ErrExceedsMaxBuy        = errors.New("buy amount exceeds the configured safety cap")
	ErrUnknownVenue         = errors.New("quote names an unknown venue")
)

// Config bounds quote acquisition and validation.
type Config struct {
	// ParallelQuotes requests quotes from all venues concurrently and
	// picks the best; when false, FallbackOrder is tried serially.
	ParallelQuotes bool
	FallbackOrder  []VenueID

	MaxQuoteAge       time.Duration
	MaxPriceImpactPct float64

	// MaxBuyLamports is the per-trade safety cap on native spend,
	// enforced before any quote is requested.
	MaxBuyLamports uint64
}

func DefaultConfig() Config {
	return Config{
		ParallelQuotes:    true,
		MaxQuoteAge:       30 * time.Second,
		MaxPriceImpactPct: 15,
		MaxBuyLamports:    chain.Sol,
	}
}

// Migration describes a token's transition from a bonding curve to an AMM.
type Migration struct {
	Migrated  bool
	From      VenueID
	To        VenueID
	NewPoolID solana.PublicKey
}

// Router picks the right venue for a token, acquires the best quote within
// policy and dispatches execution. It holds no state beyond its venue
// clients and configuration.
type Router struct {
	log     *zap.Logger
	cfg     Config
	clients map[VenueID]VenueClient
	order   []VenueID
	clock   mockable.Clock
}

func NewRouter(log *zap.Logger, cfg Config, clients ...VenueClient) *Router {
	r := &Router{
		log:     log,
		cfg:     cfg,
		clients: make(map[VenueID]VenueClient, len(clients)),
	}
	for _, c := range clients {
		r.clients[c.Venue()] = c
		r.order = append(r.order, c.Venue())
	}
	if len(cfg.FallbackOrder) > 0 {
		r.order = cfg.FallbackOrder
	}
	return r
}

// DetectVenue returns the venue that should trade [mint]: the bonding
// curve while the token lives there and has not graduated, otherwise the
// aggregator (or an AMM when no aggregator is wired).
func (r *Router) DetectVenue(ctx context.Context, mint solana.PublicKey) (VenueID, error) {
	for _, id := range r.order {
		client := r.clients[id]
		prober, ok := client.(GraduationProber)
		if !ok {
			continue
		}

		available, err := client.Probe(ctx, mint)
		if err != nil || !available {
			continue
		}
		graduated, err := prober.HasGraduated(ctx, mint)
		if err == nil && !graduated {
			return id, nil
		}
	}

	if _, ok := r.clients[VenueAggregator]; ok {
		return VenueAggregator, nil
	}
	for _, id := range r.order {
		if _, ok := r.clients[id].(PoolFinder); ok {
			return id, nil
		}
	}
	return "", ErrNoRoute
}

// BestQuote acquires the best quote for [params] across all venues.
// Failures at individual venues are discarded; ties on out-amount break
// toward the lower price impact.
func (r *Router) BestQuote(ctx context.Context, params QuoteParams) (*Quote, error) {
	if !r.cfg.ParallelQuotes {
		for _, id := range r.order {
			quote, err := r.clients[id].Quote(ctx, params)
			if err != nil {
				r.log.Debug("venue quote failed",
					zap.String("venue", string(id)),
					zap.Error(err),
				)
				continue
			}
			if err := quote.Verify(); err != nil {
				r.log.Debug("venue quote malformed",
					zap.String("venue", string(id)),
					zap.Error(err),
				)
				continue
			}
			return quote, nil
		}
		return nil, ErrNoRoute
	}

	var (
		wg     sync.WaitGroup
		lock   sync.Mutex
		quotes []*Quote
	)
	for _, id := range r.order {
		client := r.clients[id]
		wg.Add(1)
		go func() {
			defer wg.Done()

			quote, err := client.Quote(ctx, params)
			if err != nil {
				r.log.Debug("venue quote failed",
					zap.String("venue", string(client.Venue())),
					zap.Error(err),
				)
				return
			}
			if err := quote.Verify(); err != nil {
				return
			}

			lock.Lock()
			quotes = append(quotes, quote)
			lock.Unlock()
		}()
	}
	wg.Wait()

	var best *Quote
	for _, q := range quotes {
		if best == nil ||
			q.OutAmount > best.OutAmount ||
			(q.OutAmount == best.OutAmount && q.PriceImpactPct < best.PriceImpactPct) {
			best = q
		}
	}
	if best == nil {
		return nil, ErrNoRoute
	}
	return best, nil
}

// DetectMigration reports whether [mint] has migrated off the bonding
// curve. A token is migrated when the curve reports graduated and at least
// one AMM reports pools; the destination is the highest-liquidity pool.
func (r *Router) DetectMigration(ctx context.Context, mint solana.PublicKey) (*Migration, error) {
	migration := &Migration{}

	graduated := false
	for _, id := range r.order {
		prober, ok := r.clients[id].(GraduationProber)
		if !ok {
			continue
		}
		if done, err := prober.HasGraduated(ctx, mint); err == nil && done {
			graduated = true
			migration.From = id
		}
	}
	if !graduated {
		return migration, nil
	}

	var best *Pool
	for _, id := range r.order {
		finder, ok := r.clients[id].(PoolFinder)
		if !ok {
			continue
		}
		pools, err := finder.Pools(ctx, mint)
		if err != nil {
			continue
		}
		for i, pool := range pools {
			if best == nil || pool.LiquidityLamports > best.LiquidityLamports {
				best = &pools[i]
			}
		}
	}
	if best == nil {
		return migration, nil
	}

	migration.Migrated = true
	migration.To = best.Venue
	migration.NewPoolID = best.ID
	return migration, nil
}

// Validate rejects quotes that are too old, expired, or whose price impact
// exceeds policy.
func (r *Router) Validate(quote *Quote) error {
	now := r.clock.Time()
	switch {
	case now.Sub(quote.Timestamp) > r.cfg.MaxQuoteAge:
		return fmt.Errorf("%w: quoted %s ago", ErrStaleQuote, now.Sub(quote.Timestamp))
	case now.After(quote.ExpiresAt):
		return fmt.Errorf("%w: expired at %s", ErrStaleQuote, quote.ExpiresAt)
	case quote.PriceImpactPct > r.cfg.MaxPriceImpactPct:
		return fmt.Errorf("%w: %.2f%% > %.2f%%", ErrExcessivePriceImpact, quote.PriceImpactPct, r.cfg.MaxPriceImpactPct)
	default:
		return nil
	}
}

// Execute acquires the best quote for [params], validates it and dispatches
// the swap to the venue named in the quote.
func (r *Router) Execute(ctx context.Context, signer chain.Signer, params QuoteParams) (*SwapOutcome, error) {
	if params.IsBuy() && params.InAmount > r.cfg.MaxBuyLamports {
		return nil, fmt.Errorf("%w: %d > %d lamports", ErrExceedsMaxBuy, params.InAmount, r.cfg.MaxBuyLamports)
	}

	quote, err := r.BestQuote(ctx, params)
	if err != nil {
		return nil, err
	}
	return r.ExecuteQuote(ctx, signer, quote)
}

// ExecuteQuote validates [quote] and dispatches it. No swap is performed
// when validation fails.
func (r *Router) ExecuteQuote(ctx context.Context, signer chain.Signer, quote *Quote) (*SwapOutcome, error) {
	if err := r.Validate(quote); err != nil {
		return nil, err
	}
	client, ok := r.clients[quote.Venue]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVenue, quote.Venue)
	}
	return client.Swap(ctx, quote, signer)
}
