// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package swiftamm

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
	_ dex.VenueClient = (*Client)(nil)
	_ dex.PoolFinder  = (*Client)(nil)

	errUnexpectedStatus = errors.New("unexpected status from swiftamm api")
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

// Client trades against the AMM pools that graduated tokens land in.
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
	return dex.VenueAMM
}

type poolInfo struct {
	Address           solana.PublicKey `json:"address"`
	LiquidityLamports uint64           `json:"liquidityLamports"`
}

// Pools returns the AMM pools that hold [mint], unordered.
func (c *Client) Pools(ctx context.Context, mint solana.PublicKey) ([]dex.Pool, error) {
	var infos []poolInfo
	if err := c.getJSON(ctx, "/pools?mint="+mint.String(), &infos); err != nil {
		return nil, err
	}

	pools := make([]dex.Pool, len(infos))
	for i, info := range infos {
		pools[i] = dex.Pool{
			ID:                info.Address,
			Venue:             dex.VenueAMM,
			LiquidityLamports: info.LiquidityLamports,
		}
	}
	return pools, nil
}

func (c *Client) Probe(ctx context.Context, mint solana.PublicKey) (bool, error) {
	pools, err := c.Pools(ctx, mint)
	if err != nil {
		return false, err
	}
	return len(pools) > 0, nil
}

type quoteResponse struct {
	OutAmount      uint64           `json:"outAmount"`
	PriceImpactPct float64          `json:"priceImpactPct"`
	Pool           solana.PublicKey `json:"pool"`
}

func (c *Client) Quote(ctx context.Context, params dex.QuoteParams) (*dex.Quote, error) {
	var resp quoteResponse
	path := fmt.Sprintf("/quote?inputMint=%s&outputMint=%s&amount=%d",
		params.InputMint, params.OutputMint, params.InAmount)
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}

	slippage := params.SlippageBps
	if slippage == 0 {
		slippage = c.cfg.SlippageBps
	}
	route, err := json.Marshal(resp.Pool)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &dex.Quote{
		Venue:                    dex.VenueAMM,
		InputMint:                params.InputMint,
		OutputMint:               params.OutputMint,
		InAmount:                 params.InAmount,
		OutAmount:                resp.OutAmount,
		MinOutAmount:             dex.MinOutForSlippage(resp.OutAmount, slippage),
		PriceImpactPct:           resp.PriceImpactPct,
		Timestamp:                now,
		ExpiresAt:                now.Add(c.cfg.QuoteValidity),
		PriorityFeeMicroLamports: params.PriorityFeeMicroLamports,
		Route:                    route,
	}, nil
}

type swapRequest struct {
	UserPublicKey            string           `json:"userPublicKey"`
	InputMint                string           `json:"inputMint"`
	OutputMint               string           `json:"outputMint"`
	Amount                   uint64           `json:"amount"`
	MinOutAmount             uint64           `json:"minOutAmount"`
	Pool                     solana.PublicKey `json:"pool,omitempty"`
	PriorityFeeMicroLamports uint64           `json:"priorityFeeMicroLamports,omitempty"`
}

type swapResponse struct {
	Transaction string `json:"transaction"`
}

func (c *Client) Swap(ctx context.Context, quote *dex.Quote, signer chain.Signer) (*dex.SwapOutcome, error) {
	req := swapRequest{
		UserPublicKey:            signer.Address().String(),
		InputMint:                quote.InputMint.String(),
		OutputMint:               quote.OutputMint.String(),
		Amount:                   quote.InAmount,
		MinOutAmount:             quote.MinOutAmount,
		PriorityFeeMicroLamports: quote.PriorityFeeMicroLamports,
	}
	if len(quote.Route) > 0 {
		if err := json.Unmarshal(quote.Route, &req.Pool); err != nil {
			return nil, fmt.Errorf("%w: %s", chain.ErrSubmissionFailed, err)
		}
	}

	var resp swapResponse
	if err := c.postJSON(ctx, "/swap", req, &resp); err != nil {
		return nil, fmt.Errorf("%w: %s", chain.ErrSubmissionFailed, err)
	}

	raw, err := base64.StdEncoding.DecodeString(resp.Transaction)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", chain.ErrSubmissionFailed, err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", chain.ErrSubmissionFailed, err)
	}
	if err := signer.SignTransaction(tx); err != nil {
		return nil, fmt.Errorf("%w: %s", chain.ErrSubmissionFailed, err)
	}

	sig, err := c.chain.SubmitTransaction(ctx, tx)
	if err != nil {
		return nil, err
	}

	outcome := &dex.SwapOutcome{
		Venue:     dex.VenueAMM,
		Signature: sig,
		InAmount:  quote.InAmount,
		OutAmount: quote.OutAmount,
	}
	if err := c.chain.AwaitConfirmation(ctx, sig); err != nil {
		return outcome, err
	}
	outcome.Confirmed = true
	return outcome, nil
}

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

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %d", errUnexpectedStatus, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
