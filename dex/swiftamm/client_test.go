// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package swiftamm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trench-labs/trenchsniper/chain"
	"github.com/trench-labs/trenchsniper/dex"
)

func TestPoolsAndProbe(t *testing.T) {
	require := require.New(t)

	mint := solana.NewWallet().PublicKey()
	poolA := solana.NewWallet().PublicKey()
	poolB := solana.NewWallet().PublicKey()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("mint") != mint.String() {
			_ = json.NewEncoder(w).Encode([]poolInfo{})
			return
		}
		_ = json.NewEncoder(w).Encode([]poolInfo{
			{Address: poolA, LiquidityLamports: chain.Sol},
			{Address: poolB, LiquidityLamports: 5 * chain.Sol},
		})
	}))
	defer srv.Close()

	c := New(zap.NewNop(), chain.NewTestClient(), DefaultConfig(srv.URL))

	pools, err := c.Pools(context.Background(), mint)
	require.NoError(err)
	require.Len(pools, 2)
	require.Equal(dex.VenueAMM, pools[0].Venue)
	require.Equal(poolA, pools[0].ID)

	ok, err := c.Probe(context.Background(), mint)
	require.NoError(err)
	require.True(ok)

	ok, err = c.Probe(context.Background(), solana.NewWallet().PublicKey())
	require.NoError(err)
	require.False(ok)
}

func TestQuoteCarriesPool(t *testing.T) {
	require := require.New(t)

	pool := solana.NewWallet().PublicKey()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/quote":
			_ = json.NewEncoder(w).Encode(quoteResponse{
				OutAmount:      2_000_000,
				PriceImpactPct: 1.0,
				Pool:           pool,
			})
		case "/swap":
			var req swapRequest
			require.NoError(json.NewDecoder(r.Body).Decode(&req))
			// The pool picked at quote time must be echoed back.
			require.Equal(pool, req.Pool)
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(zap.NewNop(), chain.NewTestClient(), DefaultConfig(srv.URL))
	quote, err := c.Quote(context.Background(), dex.QuoteParams{
		InputMint:   solana.SolMint,
		OutputMint:  solana.NewWallet().PublicKey(),
		InAmount:    chain.SolToLamports(0.05),
		SlippageBps: 250,
	})
	require.NoError(err)
	require.Equal(dex.VenueAMM, quote.Venue)
	require.Equal(uint64(2_000_000), quote.OutAmount)
	require.Equal(uint64(1_950_000), quote.MinOutAmount)
	require.NotEmpty(quote.Route)

	// The swap handler rejects after asserting the pool round-tripped.
	_, err = c.Swap(context.Background(), quote, &noopSigner{})
	require.ErrorIs(err, chain.ErrSubmissionFailed)
}

type noopSigner struct{}

func (*noopSigner) Address() solana.PublicKey {
	return solana.NewWallet().PublicKey()
}

func (*noopSigner) SignTransaction(*solana.Transaction) error {
	return nil
}
