// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fees

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trench-labs/trenchsniper/chain"
)

type testSigner struct {
	addr solana.PublicKey
}

func (s *testSigner) Address() solana.PublicKey {
	return s.addr
}

func (*testSigner) SignTransaction(*solana.Transaction) error {
	return nil
}

func TestFeeFor(t *testing.T) {
	require := require.New(t)

	c := NewCollector(zap.NewNop(), chain.NewTestClient(), solana.NewWallet().PublicKey(), 100)
	require.Equal(uint64(10_000), c.FeeFor(1_000_000))
	require.Zero(c.FeeFor(0))

	// Rounds down.
	require.Zero(c.FeeFor(99))
	require.Equal(uint64(1), c.FeeFor(100))
}

func TestCollect(t *testing.T) {
	require := require.New(t)

	feeAccount := solana.NewWallet().PublicKey()
	client := chain.NewTestClient()
	signer := &testSigner{addr: solana.NewWallet().PublicKey()}
	client.SetBalance(signer.addr, chain.Sol)

	c := NewCollector(zap.NewNop(), client, feeAccount, 100)

	sig := c.Collect(context.Background(), signer, 1_000_000)
	require.NotEqual(solana.Signature{}, sig)
	require.Len(client.Transfers, 1)
	require.Equal(feeAccount, client.Transfers[0].To)
	require.Equal(uint64(10_000), client.Transfers[0].Lamports)

	// Zero notional takes no fee.
	sig = c.Collect(context.Background(), signer, 0)
	require.Equal(solana.Signature{}, sig)
	require.Len(client.Transfers, 1)
}

func TestCollectFailureIsSwallowed(t *testing.T) {
	require := require.New(t)

	client := chain.NewTestClient()
	client.TransferF = func(context.Context, chain.Signer, solana.PublicKey, uint64, uint64) (solana.Signature, error) {
		return solana.Signature{}, errors.New("rpc down")
	}

	c := NewCollector(zap.NewNop(), client, solana.NewWallet().PublicKey(), 100)
	sig := c.Collect(context.Background(), &testSigner{addr: solana.NewWallet().PublicKey()}, 1_000_000)
	require.Equal(solana.Signature{}, sig)
}

func TestCollectNoFeeAccount(t *testing.T) {
	require := require.New(t)

	client := chain.NewTestClient()
	c := NewCollector(zap.NewNop(), client, solana.PublicKey{}, 100)
	sig := c.Collect(context.Background(), &testSigner{addr: solana.NewWallet().PublicKey()}, 1_000_000)
	require.Equal(solana.Signature{}, sig)
	require.Empty(client.Transfers)
}
