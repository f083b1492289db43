// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

const bootstrapTimeout = 15 * time.Second

var errBootstrapFailed = errors.New("hosted bootstrap failed")

// HostedConfig is the payload served by the hosted control plane.
type HostedConfig struct {
	RPCURL     string `json:"rpcUrl"`
	FeeAccount string `json:"feeAccount"`
	FeeBps     uint64 `json:"feeBps"`
}

// FetchHosted pulls runtime parameters from the hosted endpoint. Any
// non-2xx answer is fatal to startup.
func FetchHosted(ctx context.Context, apiURL, apiKey string) (HostedConfig, error) {
	ctx, cancel := context.WithTimeout(ctx, bootstrapTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+"/api/config", nil)
	if err != nil {
		return HostedConfig{}, err
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return HostedConfig{}, fmt.Errorf("%w: %s", errBootstrapFailed, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return HostedConfig{}, fmt.Errorf("%w: status %d", errBootstrapFailed, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return HostedConfig{}, fmt.Errorf("%w: %s", errBootstrapFailed, err)
	}
	var hosted HostedConfig
	if err := json.Unmarshal(raw, &hosted); err != nil {
		return HostedConfig{}, fmt.Errorf("%w: %s", errBootstrapFailed, err)
	}
	return hosted, nil
}

// ApplyHosted folds hosted parameters into the config. Operator-provided
// values always win over hosted ones.
func (c *Config) ApplyHosted(log *zap.Logger, hosted HostedConfig) error {
	if c.RPCURL == "" {
		c.RPCURL = hosted.RPCURL
	}
	if c.FeeAccount.IsZero() && hosted.FeeAccount != "" {
		account, err := solana.PublicKeyFromBase58(hosted.FeeAccount)
		if err != nil {
			return fmt.Errorf("%w: %q", errBadFeeAccount, hosted.FeeAccount)
		}
		c.FeeAccount = account
	}
	if c.FeeBps == 0 {
		c.FeeBps = hosted.FeeBps
	}

	log.Info("applied hosted config",
		zap.String("rpcURL", c.RPCURL),
		zap.Uint64("feeBps", c.FeeBps),
	)
	if c.RPCURL == "" {
		return ErrMissingRPC
	}
	return nil
}
