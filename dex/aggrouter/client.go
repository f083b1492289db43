// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package aggrouter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/trench-labs/trenchsniper/chain"
	"github.com/trench-labs/trenchsniper/dex"
)

var (
	_ dex.VenueClient = (*Client)(nil)

	errUnexpectedStatus = errors.New("unexpected status from aggregator api")
	errMissingRoute     = errors.New("quote carries no aggregator route")
)

// probeAmount is the nominal spend used to test whether the aggregator
// can route a mint at all.
const probeAmount = 1_000

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

// Client routes swaps through an external aggregator. The aggregator's
// raw quote payload is carried opaquely on the quote and echoed back
// verbatim when requesting the swap transaction.
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
	return dex.VenueAggregator
}

// Probe asks for a nominal quote; a routable answer means the aggregator
// can trade the mint.
func (c *Client) Probe(ctx context.Context, mint solana.PublicKey) (bool, error) {
	_, err := c.Quote(ctx, dex.QuoteParams{
		InputMint:  solana.SolMint,
		OutputMint: mint,
		InAmount:   probeAmount,
	})
	if err != nil {
		return false, nil
	}
	return true, nil
}

// quoteEnvelope covers the fields the router needs; the aggregator
// reports amounts as decimal strings.
type quoteEnvelope struct {
	OutAmount            string `json:"outAmount"`
	OtherAmountThreshold string `json:"otherAmountThreshold"`
	PriceImpactPct       string `json:"priceImpactPct"`
}

func (c *Client) Quote(ctx context.Context, params dex.QuoteParams) (*dex.Quote, error) {
	slippage := params.SlippageBps
	if slippage == 0 {
		slippage = c.cfg.SlippageBps
	}

	path := fmt.Sprintf("/quote?inputMint=%s&outputMint=%s&amount=%d&slippageBps=%d",
		params.InputMint, params.OutputMint, params.InAmount, slippage)
	raw, err := c.getRaw(ctx, path)
	if err != nil {
		return nil, err
	}

	var env quoteEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	outAmount, err := strconv.ParseUint(env.OutAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad outAmount %q: %w", env.OutAmount, err)
	}
	minOut, err := strconv.ParseUint(env.OtherAmountThreshold, 10, 64)
	if err != nil {
		minOut = dex.MinOutForSlippage(outAmount, slippage)
	}
	impact, err := strconv.ParseFloat(env.PriceImpactPct, 64)
	if err != nil {
		impact = 0
	}

	now := time.Now()
	return &dex.Quote{
		Venue:                    dex.VenueAggregator,
		InputMint:                params.InputMint,
		OutputMint:               params.OutputMint,
		InAmount:                 params.InAmount,
		OutAmount:                outAmount,
		MinOutAmount:             minOut,
		PriceImpactPct:           impact * 100,
		Timestamp:                now,
		ExpiresAt:                now.Add(c.cfg.QuoteValidity),
		PriorityFeeMicroLamports: params.PriorityFeeMicroLamports,
		Route:                    raw,
	}, nil
}

type swapRequest struct {
	QuoteResponse            json.RawMessage `json:"quoteResponse"`
	UserPublicKey            string          `json:"userPublicKey"`
	WrapAndUnwrapSol         bool            `json:"wrapAndUnwrapSol"`
	PriorityFeeMicroLamports uint64          `json:"computeUnitPriceMicroLamports,omitempty"`
}

type swapResponse struct {
	SwapTransaction string `json:"swapTransaction"`
}

func (c *Client) Swap(ctx context.Context, quote *dex.Quote, signer chain.Signer) (*dex.SwapOutcome, error) {
	if len(quote.Route) == 0 {
		return nil, errMissingRoute
	}

	var resp swapResponse
	err := c.postJSON(ctx, "/swap", swapRequest{
		QuoteResponse:            quote.Route,
		UserPublicKey:            signer.Address().String(),
		WrapAndUnwrapSol:         true,
		PriorityFeeMicroLamports: quote.PriorityFeeMicroLamports,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", chain.ErrSubmissionFailed, err)
	}

	raw, err := base64.StdEncoding.DecodeString(resp.SwapTransaction)
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
		Venue:     dex.VenueAggregator,
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

func (c *Client) getRaw(ctx context.Context, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
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

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	return json.Unmarshal(resp, out)
}

func (c *Client) do(req *http.Request) (json.RawMessage, error) {
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", errUnexpectedStatus, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
