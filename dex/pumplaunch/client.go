// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pumplaunch

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/trench-labs/trenchsniper/chain"
	"github.com/trench-labs/trenchsniper/dex"
)

var (
	_ dex.VenueClient      = (*Client)(nil)
	_ dex.GraduationProber = (*Client)(nil)

	errUnexpectedStatus = errors.New("unexpected status from pumplaunch api")
)

type Config struct {
	BaseURL        string
	APIKey         string
	SlippageBps    uint64
	QuoteValidity  time.Duration
	RequestTimeout time.Duration
}

func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:        baseURL,
		SlippageBps:    500,
		QuoteValidity:  dex.DefaultQuoteValidity,
		RequestTimeout: 15 * time.Second,
	}
}

// Client trades tokens that still live on the bonding curve. The remote
// builder returns unsigned transactions which are co-signed locally and
// submitted through the chain client.
type Client struct {
	log   *zap.Logger
	http  *http.Client
	chain chain.Client
	cfg   Config
}

func New(log *zap.Logger, chainClient chain.Client, cfg Config) *Client {
	return &Client{
		log:   log,
		http:  &http.Client{Timeout: cfg.RequestTimeout},
		chain: chainClient,
		cfg:   cfg,
	}
}

func (*Client) Venue() dex.VenueID {
	return dex.VenueBondingCurve
}

type coinInfo struct {
	Mint      string `json:"mint"`
	Complete  bool   `json:"complete"`
	RaydiumCA string `json:"raydiumPool"`
}

// Probe reports whether the curve knows [mint] at all.
func (c *Client) Probe(ctx context.Context, mint solana.PublicKey) (bool, error) {
	var info coinInfo
	err := c.getJSON(ctx, "/coins/"+mint.String(), &info)
	if errors.Is(err, errNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// HasGraduated reports whether [mint] has completed its curve and migrated
// to an AMM.
func (c *Client) HasGraduated(ctx context.Context, mint solana.PublicKey) (bool, error) {
	var info coinInfo
	if err := c.getJSON(ctx, "/coins/"+mint.String(), &info); err != nil {
		return false, err
	}
	return info.Complete, nil
}

type quoteResponse struct {
	OutAmount      uint64  `json:"outAmount"`
	PriceImpactPct float64 `json:"priceImpactPct"`
}

func (c *Client) Quote(ctx context.Context, params dex.QuoteParams) (*dex.Quote, error) {
	side := "sell"
	mint := params.InputMint
	if params.IsBuy() {
		side = "buy"
		mint = params.OutputMint
	}

	var resp quoteResponse
	path := fmt.Sprintf("/quote?mint=%s&amount=%d&side=%s", mint, params.InAmount, side)
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}

	slippage := params.SlippageBps
	if slippage == 0 {
		slippage = c.cfg.SlippageBps
	}
	now := time.Now()
	return &dex.Quote{
		Venue:                    dex.VenueBondingCurve,
		InputMint:                params.InputMint,
		OutputMint:               params.OutputMint,
		InAmount:                 params.InAmount,
		OutAmount:                resp.OutAmount,
		MinOutAmount:             dex.MinOutForSlippage(resp.OutAmount, slippage),
		PriceImpactPct:           resp.PriceImpactPct,
		Timestamp:                now,
		ExpiresAt:                now.Add(c.cfg.QuoteValidity),
		PriorityFeeMicroLamports: params.PriorityFeeMicroLamports,
	}, nil
}

type tradeRequest struct {
	PublicKey                string `json:"publicKey"`
	Mint                     string `json:"mint"`
	Amount                   uint64 `json:"amount"`
	Side                     string `json:"side"`
	SlippageBps              uint64 `json:"slippageBps"`
	PriorityFeeMicroLamports uint64 `json:"priorityFeeMicroLamports,omitempty"`
}

type builtTransaction struct {
	Transaction string `json:"transaction"`
}

func (c *Client) Swap(ctx context.Context, quote *dex.Quote, signer chain.Signer) (*dex.SwapOutcome, error) {
	side := "sell"
	mint := quote.InputMint
	if quote.InputMint == solana.SolMint {
		side = "buy"
		mint = quote.OutputMint
	}

	var built builtTransaction
	err := c.postJSON(ctx, "/trade", tradeRequest{
		PublicKey:                signer.Address().String(),
		Mint:                     mint.String(),
		Amount:                   quote.InAmount,
		Side:                     side,
		SlippageBps:              slippageFromQuote(quote),
		PriorityFeeMicroLamports: quote.PriorityFeeMicroLamports,
	}, &built)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", chain.ErrSubmissionFailed, err)
	}

	tx, err := decodeTransaction(built.Transaction)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", chain.ErrSubmissionFailed, err)
	}
	if err := signer.SignTransaction(tx); err != nil {
		return nil, fmt.Errorf("%w: %s", chain.ErrSubmissionFailed, err)
	}

	return c.submit(ctx, tx, quote)
}

// CreateToken launches a new token through the curve. The freshly
// generated mint keypair co-signs the creation transaction and is
// discarded afterwards; the creator wallet signs through the vault.
func (c *Client) CreateToken(ctx context.Context, signer chain.Signer, name, symbol, uri string) (solana.PublicKey, solana.Signature, error) {
	mintKey, err := solana.NewRandomPrivateKey()
	if err != nil {
		return solana.PublicKey{}, solana.Signature{}, err
	}
	mint := mintKey.PublicKey()

	var built builtTransaction
	err = c.postJSON(ctx, "/create", map[string]string{
		"publicKey":     signer.Address().String(),
		"mintPublicKey": mint.String(),
		"name":          name,
		"symbol":        symbol,
		"uri":           uri,
	}, &built)
	if err != nil {
		return solana.PublicKey{}, solana.Signature{}, fmt.Errorf("%w: %s", chain.ErrSubmissionFailed, err)
	}

	tx, err := decodeTransaction(built.Transaction)
	if err != nil {
		return solana.PublicKey{}, solana.Signature{}, fmt.Errorf("%w: %s", chain.ErrSubmissionFailed, err)
	}
	if _, err := tx.PartialSign(func(pk solana.PublicKey) *solana.PrivateKey {
		if pk == mint {
			return &mintKey
		}
		return nil
	}); err != nil {
		return solana.PublicKey{}, solana.Signature{}, fmt.Errorf("%w: %s", chain.ErrSubmissionFailed, err)
	}
	if err := signer.SignTransaction(tx); err != nil {
		return solana.PublicKey{}, solana.Signature{}, fmt.Errorf("%w: %s", chain.ErrSubmissionFailed, err)
	}

	sig, err := c.chain.SubmitTransaction(ctx, tx)
	if err != nil {
		return solana.PublicKey{}, solana.Signature{}, err
	}
	if err := c.chain.AwaitConfirmation(ctx, sig); err != nil {
		return solana.PublicKey{}, sig, err
	}

	c.log.Info("created token",
		zap.Stringer("mint", mint),
		zap.Stringer("creator", signer.Address()),
		zap.String("symbol", symbol),
	)
	return mint, sig, nil
}

func (c *Client) submit(ctx context.Context, tx *solana.Transaction, quote *dex.Quote) (*dex.SwapOutcome, error) {
	sig, err := c.chain.SubmitTransaction(ctx, tx)
	if err != nil {
		return nil, err
	}

	outcome := &dex.SwapOutcome{
		Venue:     dex.VenueBondingCurve,
		Signature: sig,
		InAmount:  quote.InAmount,
		OutAmount: quote.OutAmount,
	}
	if err := c.chain.AwaitConfirmation(ctx, sig); err != nil {
		// The signature is surfaced even when confirmation timed out.
		return outcome, err
	}
	outcome.Confirmed = true
	return outcome, nil
}

var errNotFound = errors.New("not found")

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %d", errUnexpectedStatus, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func decodeTransaction(b64 string) (*solana.Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	return solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
}

func slippageFromQuote(quote *dex.Quote) uint64 {
	if quote.OutAmount == 0 || quote.MinOutAmount > quote.OutAmount {
		return 0
	}
	return (quote.OutAmount - quote.MinOutAmount) * 10_000 / quote.OutAmount
}
