// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pumplaunch

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
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

// builtTx returns a base64 transaction paid by [payer], as the remote
// builder would return it.
func builtTx(t *testing.T, payer solana.PublicKey) string {
	require := require.New(t)

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(1, payer, solana.NewWallet().PublicKey()).Build(),
		},
		solana.Hash{1},
		solana.TransactionPayer(payer),
	)
	require.NoError(err)

	// The builder returns the transaction unsigned; pad the signature
	// slot so it round-trips through the wire encoding.
	tx.Signatures = make([]solana.Signature, 1)
	raw, err := tx.MarshalBinary()
	require.NoError(err)
	return base64.StdEncoding.EncodeToString(raw)
}

func TestProbeAndGraduation(t *testing.T) {
	require := require.New(t)

	known := solana.NewWallet().PublicKey()
	graduated := solana.NewWallet().PublicKey()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, known.String()):
			_ = json.NewEncoder(w).Encode(coinInfo{Mint: known.String()})
		case strings.HasSuffix(r.URL.Path, graduated.String()):
			_ = json.NewEncoder(w).Encode(coinInfo{Mint: graduated.String(), Complete: true})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(zap.NewNop(), chain.NewTestClient(), DefaultConfig(srv.URL))

	ok, err := c.Probe(context.Background(), known)
	require.NoError(err)
	require.True(ok)

	ok, err = c.Probe(context.Background(), solana.NewWallet().PublicKey())
	require.NoError(err)
	require.False(ok)

	done, err := c.HasGraduated(context.Background(), known)
	require.NoError(err)
	require.False(done)

	done, err = c.HasGraduated(context.Background(), graduated)
	require.NoError(err)
	require.True(done)
}

func TestQuote(t *testing.T) {
	require := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal("buy", r.URL.Query().Get("side"))
		_ = json.NewEncoder(w).Encode(quoteResponse{
			OutAmount:      1_000_000,
			PriceImpactPct: 2.5,
		})
	}))
	defer srv.Close()

	c := New(zap.NewNop(), chain.NewTestClient(), DefaultConfig(srv.URL))
	quote, err := c.Quote(context.Background(), dex.QuoteParams{
		InputMint:   solana.SolMint,
		OutputMint:  solana.NewWallet().PublicKey(),
		InAmount:    chain.SolToLamports(0.01),
		SlippageBps: 500,
	})
	require.NoError(err)
	require.Equal(dex.VenueBondingCurve, quote.Venue)
	require.Equal(uint64(1_000_000), quote.OutAmount)
	require.Equal(uint64(950_000), quote.MinOutAmount)
	require.InDelta(2.5, quote.PriceImpactPct, 1e-9)
	require.NoError(quote.Verify())
}

func TestSwap(t *testing.T) {
	require := require.New(t)

	signer := newWalletSigner(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req tradeRequest
		require.NoError(json.NewDecoder(r.Body).Decode(&req))
		require.Equal(signer.Address().String(), req.PublicKey)
		require.Equal("buy", req.Side)

		_ = json.NewEncoder(w).Encode(builtTransaction{
			Transaction: builtTx(t, signer.Address()),
		})
	}))
	defer srv.Close()

	c := New(zap.NewNop(), chain.NewTestClient(), DefaultConfig(srv.URL))
	quote := &dex.Quote{
		Venue:        dex.VenueBondingCurve,
		InputMint:    solana.SolMint,
		OutputMint:   solana.NewWallet().PublicKey(),
		InAmount:     chain.SolToLamports(0.01),
		OutAmount:    1_000_000,
		MinOutAmount: 950_000,
	}
	out, err := c.Swap(context.Background(), quote, signer)
	require.NoError(err)
	require.True(out.Confirmed)
	require.Equal(quote.InAmount, out.InAmount)
	require.NotEqual(solana.Signature{}, out.Signature)
}

func TestCreateToken(t *testing.T) {
	require := require.New(t)

	signer := newWalletSigner(t)
	var requestedMint string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(json.NewDecoder(r.Body).Decode(&req))
		requestedMint = req["mintPublicKey"]

		_ = json.NewEncoder(w).Encode(builtTransaction{
			Transaction: builtTx(t, signer.Address()),
		})
	}))
	defer srv.Close()

	c := New(zap.NewNop(), chain.NewTestClient(), DefaultConfig(srv.URL))
	mint, sig, err := c.CreateToken(context.Background(), signer, "Trench Coin", "TRENCH", "https://example.com/meta.json")
	require.NoError(err)
	require.Equal(requestedMint, mint.String())
	require.NotEqual(solana.Signature{}, sig)
}
