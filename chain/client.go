// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"go.uber.org/zap"
)

const (
	// PerTxFeeLamports is the flat base fee charged per signature.
	PerTxFeeLamports uint64 = 5_000

	// RentReserveLamports is the rent-exempt minimum for a zero-data
	// account. Balances below this are unspendable.
	RentReserveLamports uint64 = 890_880

	// DefaultConfirmCadence and DefaultConfirmAttempts bound every
	// confirmation poll.
	DefaultConfirmCadence  = 2500 * time.Millisecond
	DefaultConfirmAttempts = 10

	defaultCallTimeout    = 15 * time.Second
	maxSubmissionAttempts = 3
)

var (
	ErrSubmissionFailed = errors.New("transaction submission failed")
	ErrOnChainReject    = errors.New("transaction rejected on chain")
	ErrNotConfirmed     = errors.New("transaction not confirmed in time")

	_ Client = (*rpcClient)(nil)
)

// Signer authorizes transactions for a single wallet without exposing the
// wallet's secret. Implementations live in the vault.
type Signer interface {
	Address() solana.PublicKey
	SignTransaction(tx *solana.Transaction) error
}

// Client is the chain access used by the router, the treasury mover and the
// trade loops. Every call must be given a context with a bounded deadline;
// exceeding it is a retriable failure for the caller.
type Client interface {
	Balance(ctx context.Context, addr solana.PublicKey) (uint64, error)
	TokenBalance(ctx context.Context, owner solana.PublicKey, mint solana.PublicKey) (uint64, error)
	LatestBlockhash(ctx context.Context) (solana.Hash, error)

	// SubmitTransaction submits a fully signed transaction and returns its
	// signature without waiting for confirmation.
	SubmitTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)

	// AwaitConfirmation polls the status of [sig] on a fixed cadence with a
	// bounded number of attempts. Returns ErrOnChainReject if the network
	// reports a final error and ErrNotConfirmed after the bounded window.
	AwaitConfirmation(ctx context.Context, sig solana.Signature) error

	// Transfer builds, signs and submits a system transfer of [lamports]
	// from [from] to [to]. A non-zero [priorityMicroLamports] attaches a
	// compute budget price instruction.
	Transfer(ctx context.Context, from Signer, to solana.PublicKey, lamports uint64, priorityMicroLamports uint64) (solana.Signature, error)
}

type rpcClient struct {
	log             *zap.Logger
	rpc             *rpc.Client
	confirmCadence  time.Duration
	confirmAttempts int
}

// NewClient returns a Client backed by the JSON-RPC endpoint at [endpoint].
func NewClient(log *zap.Logger, endpoint string) Client {
	return &rpcClient{
		log:             log,
		rpc:             rpc.New(endpoint),
		confirmCadence:  DefaultConfirmCadence,
		confirmAttempts: DefaultConfirmAttempts,
	}
}

func (c *rpcClient) Balance(ctx context.Context, addr solana.PublicKey) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultCallTimeout)
	defer cancel()

	out, err := c.rpc.GetBalance(ctx, addr, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch balance of %s: %w", addr, err)
	}
	return out.Value, nil
}

func (c *rpcClient) TokenBalance(ctx context.Context, owner solana.PublicKey, mint solana.PublicKey) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultCallTimeout)
	defer cancel()

	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return 0, fmt.Errorf("failed to derive token account: %w", err)
	}

	out, err := c.rpc.GetTokenAccountBalance(ctx, ata, rpc.CommitmentConfirmed)
	if err != nil {
		// A missing token account is a zero balance, not a failure.
		if isAccountNotFound(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to fetch token balance of %s: %w", owner, err)
	}
	if out.Value == nil {
		return 0, nil
	}

	amount, err := strconv.ParseUint(out.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed token amount %q: %w", out.Value.Amount, err)
	}
	return amount, nil
}

func (c *rpcClient) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultCallTimeout)
	defer cancel()

	out, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("failed to fetch blockhash: %w", err)
	}
	return out.Value.Blockhash, nil
}

func (c *rpcClient) SubmitTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	var sig solana.Signature

	submit := func() error {
		callCtx, cancel := context.WithTimeout(ctx, defaultCallTimeout)
		defer cancel()

		var err error
		sig, err = c.rpc.SendTransactionWithOpts(callCtx, tx, rpc.TransactionOpts{
			SkipPreflight:       true,
			PreflightCommitment: rpc.CommitmentProcessed,
		})
		return err
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxSubmissionAttempts),
		ctx,
	)
	if err := backoff.Retry(submit, bo); err != nil {
		return solana.Signature{}, fmt.Errorf("%w: %s", ErrSubmissionFailed, err)
	}

	c.log.Debug("submitted transaction",
		zap.Stringer("signature", sig),
	)
	return sig, nil
}

func (c *rpcClient) AwaitConfirmation(ctx context.Context, sig solana.Signature) error {
	check := func(ctx context.Context) (Status, error) {
		callCtx, cancel := context.WithTimeout(ctx, defaultCallTimeout)
		defer cancel()

		out, err := c.rpc.GetSignatureStatuses(callCtx, true, sig)
		if err != nil {
			// RPC hiccups are retried on the next poll tick.
			return StatusPending, nil
		}
		if len(out.Value) == 0 || out.Value[0] == nil {
			return StatusPending, nil
		}

		status := out.Value[0]
		if status.Err != nil {
			return StatusRejected, fmt.Errorf("%w: %v", ErrOnChainReject, status.Err)
		}
		switch status.ConfirmationStatus {
		case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
			return StatusConfirmed, nil
		default:
			return StatusPending, nil
		}
	}

	status, err := Poll(ctx, check, c.confirmCadence, c.confirmAttempts)
	switch status {
	case StatusConfirmed:
		return nil
	case StatusRejected:
		return err
	default:
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", ErrNotConfirmed, sig)
	}
}

func (c *rpcClient) Transfer(ctx context.Context, from Signer, to solana.PublicKey, lamports uint64, priorityMicroLamports uint64) (solana.Signature, error) {
	blockhash, err := c.LatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, err
	}

	var instructions []solana.Instruction
	if priorityMicroLamports > 0 {
		instructions = append(instructions,
			computebudget.NewSetComputeUnitPriceInstruction(priorityMicroLamports).Build(),
		)
	}
	instructions = append(instructions,
		system.NewTransferInstruction(lamports, from.Address(), to).Build(),
	)

	tx, err := solana.NewTransaction(
		instructions,
		blockhash,
		solana.TransactionPayer(from.Address()),
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%w: %s", ErrSubmissionFailed, err)
	}
	if err := from.SignTransaction(tx); err != nil {
		return solana.Signature{}, fmt.Errorf("%w: %s", ErrSubmissionFailed, err)
	}

	return c.SubmitTransaction(ctx, tx)
}

func isAccountNotFound(err error) bool {
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		// "could not find account" surfaces as an invalid-params error.
		return rpcErr.Code == -32602
	}
	return errors.Is(err, rpc.ErrNotFound)
}
