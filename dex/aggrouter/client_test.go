// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package aggrouter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trench-labs/trenchsniper/chain"
	"github.com/trench-labs/trenchsniper/dex"
)

type walletSigner struct {
	key solana.PrivateKey
}

func newWalletSigner(t *testing.T) *walletSigner {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return &walletSigner{key: key}
}

func (s *walletSigner) Address() solana.PublicKey {
	return s.key.PublicKey()
}

func (s *walletSigner) SignTransaction(tx *solana.Transaction) error {
	_, err := tx.PartialSign(func(pk solana.PublicKey) *solana.PrivateKey {
		if pk == s.key.PublicKey() {
			return &s.key
		}
		return nil
	})
	return err
}

func quoteHandler(w http.ResponseWriter) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"outAmount":            "123456",
		"otherAmountThreshold": "120000",
		"priceImpactPct":       "0.0123",
		"routePlan":            []any{},
	})
}

func TestQuoteParsesStringAmounts(t *testing.T) {
	require := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		quoteHandler(w)
	}))
	defer srv.Close()

	c := New(zap.NewNop(), chain.NewTestClient(), DefaultConfig(srv.URL))
	quote, err := c.Quote(context.Background(), dex.QuoteParams{
		InputMint:  solana.SolMint,
		OutputMint: solana.NewWallet().PublicKey(),
		InAmount:   chain.SolToLamports(0.01),
	})
	require.NoError(err)
	require.Equal(dex.VenueAggregator, quote.Venue)
	require.Equal(uint64(123_456), quote.OutAmount)
	require.Equal(uint64(120_000), quote.MinOutAmount)
	require.InDelta(1.23, quote.PriceImpactPct, 1e-9)
	require.NotEmpty(quote.Route)
}

func TestProbe(t *testing.T) {
	require := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("outputMint") == solana.SolMint.String() {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		quoteHandler(w)
	}))
	defer srv.Close()

	c := New(zap.NewNop(), chain.NewTestClient(), DefaultConfig(srv.URL))

	ok, err := c.Probe(context.Background(), solana.NewWallet().PublicKey())
	require.NoError(err)
	require.True(ok)

	ok, err = c.Probe(context.Background(), solana.SolMint)
	require.NoError(err)
	require.False(ok)
}

func TestSwapEchoesRoute(t *testing.T) {
	require := require.New(t)

	signer := newWalletSigner(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/quote":
			quoteHandler(w)
		case "/swap":
			var req swapRequest
			require.NoError(json.NewDecoder(r.Body).Decode(&req))
			require.Equal(signer.Address().String(), req.UserPublicKey)

			// The aggregator's quote payload must come back verbatim.
			var echoed map[string]any
			require.NoError(json.Unmarshal(req.QuoteResponse, &echoed))
			require.Equal("123456", echoed["outAmount"])

			tx, err := solana.NewTransaction(
				[]solana.Instruction{
					system.NewTransferInstruction(1, signer.Address(), solana.NewWallet().PublicKey()).Build(),
				},
				solana.Hash{1},
				solana.TransactionPayer(signer.Address()),
			)
			require.NoError(err)
			tx.Signatures = make([]solana.Signature, 1)
			raw, err := tx.MarshalBinary()
			require.NoError(err)
			_ = json.NewEncoder(w).Encode(swapResponse{
				SwapTransaction: base64.StdEncoding.EncodeToString(raw),
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(zap.NewNop(), chain.NewTestClient(), DefaultConfig(srv.URL))
	quote, err := c.Quote(context.Background(), dex.QuoteParams{
		InputMint:  solana.SolMint,
		OutputMint: solana.NewWallet().PublicKey(),
		InAmount:   chain.SolToLamports(0.01),
	})
	require.NoError(err)

	out, err := c.Swap(context.Background(), quote, signer)
	require.NoError(err)
	require.True(out.Confirmed)
	require.Equal(quote.OutAmount, out.OutAmount)

	// A quote without a route cannot be executed.
	quote.Route = nil
	_, err = c.Swap(context.Background(), quote, signer)
	require.ErrorIs(err, errMissingRoute)
}
