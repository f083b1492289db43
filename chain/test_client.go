// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"context"
	"crypto/rand"
	"sync"

	"github.com/gagliardetto/solana-go"
)

var _ Client = (*TestClient)(nil)

// TestClient is an in-memory Client for tests. Balances are mutated by
// Transfer so fund/sweep conservation can be asserted end to end. Any
// function field left nil falls through to the in-memory behavior.
type TestClient struct {
	lock sync.Mutex

	balances      map[solana.PublicKey]uint64
	tokenBalances map[solana.PublicKey]map[solana.PublicKey]uint64

	BalanceF      func(ctx context.Context, addr solana.PublicKey) (uint64, error)
	TokenBalanceF func(ctx context.Context, owner, mint solana.PublicKey) (uint64, error)
	SubmitF       func(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	AwaitF        func(ctx context.Context, sig solana.Signature) error
	TransferF     func(ctx context.Context, from Signer, to solana.PublicKey, lamports, priority uint64) (solana.Signature, error)

	Transfers []TestTransfer
}

// TestTransfer records one Transfer call.
type TestTransfer struct {
	From     solana.PublicKey
	To       solana.PublicKey
	Lamports uint64
	Priority uint64
}

func NewTestClient() *TestClient {
	return &TestClient{
		balances:      make(map[solana.PublicKey]uint64),
		tokenBalances: make(map[solana.PublicKey]map[solana.PublicKey]uint64),
	}
}

// SetBalance seeds the native balance of [addr].
func (c *TestClient) SetBalance(addr solana.PublicKey, lamports uint64) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.balances[addr] = lamports
}

// SetTokenBalance seeds the [mint] balance of [owner].
func (c *TestClient) SetTokenBalance(owner, mint solana.PublicKey, amount uint64) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.tokenBalances[owner] == nil {
		c.tokenBalances[owner] = make(map[solana.PublicKey]uint64)
	}
	c.tokenBalances[owner][mint] = amount
}

func (c *TestClient) Balance(ctx context.Context, addr solana.PublicKey) (uint64, error) {
	if c.BalanceF != nil {
		return c.BalanceF(ctx, addr)
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	return c.balances[addr], nil
}

func (c *TestClient) TokenBalance(ctx context.Context, owner, mint solana.PublicKey) (uint64, error) {
	if c.TokenBalanceF != nil {
		return c.TokenBalanceF(ctx, owner, mint)
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	return c.tokenBalances[owner][mint], nil
}

func (c *TestClient) LatestBlockhash(context.Context) (solana.Hash, error) {
	var h solana.Hash
	_, _ = rand.Read(h[:])
	return h, nil
}

func (c *TestClient) SubmitTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if c.SubmitF != nil {
		return c.SubmitF(ctx, tx)
	}
	return randomSignature(), nil
}

func (c *TestClient) AwaitConfirmation(ctx context.Context, sig solana.Signature) error {
	if c.AwaitF != nil {
		return c.AwaitF(ctx, sig)
	}
	return nil
}

func (c *TestClient) Transfer(ctx context.Context, from Signer, to solana.PublicKey, lamports, priority uint64) (solana.Signature, error) {
	if c.TransferF != nil {
		return c.TransferF(ctx, from, to, lamports, priority)
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	fromAddr := from.Address()
	have := c.balances[fromAddr]
	needed := lamports + PerTxFeeLamports
	if have < needed {
		return solana.Signature{}, ErrSubmissionFailed
	}
	c.balances[fromAddr] = have - needed
	c.balances[to] += lamports
	c.Transfers = append(c.Transfers, TestTransfer{
		From:     fromAddr,
		To:       to,
		Lamports: lamports,
		Priority: priority,
	})
	return randomSignature(), nil
}

func randomSignature() solana.Signature {
	var sig solana.Signature
	_, _ = rand.Read(sig[:])
	return sig
}
