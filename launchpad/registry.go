// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package launchpad

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/renameio/v2"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"github.com/trench-labs/trenchsniper/utils/perms"
)

// Record is one durable note of a successful token creation. Wallets that
// appear as creator in any record are protected from automated cleanup.
type Record struct {
	WalletAddress string    `json:"walletAddress"`
	MintAddress   string    `json:"mintAddress"`
	Name          string    `json:"name"`
	Symbol        string    `json:"symbol"`
	Timestamp     time.Time `json:"timestamp"`
}

// Registry is the append-only launch record store. Appends rewrite the full
// file through a temp-then-rename so a crash never truncates it.
type Registry struct {
	log  *zap.Logger
	path string

	lock     sync.RWMutex
	records  []Record
	creators map[string]struct{}
}

// NewRegistry loads the registry at [path], tolerating a missing file.
func NewRegistry(log *zap.Logger, path string) (*Registry, error) {
	r := &Registry{
		log:      log,
		path:     path,
		creators: make(map[string]struct{}),
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read launch registry: %w", err)
	}
	if err := json.Unmarshal(raw, &r.records); err != nil {
		return nil, fmt.Errorf("launch registry is corrupt: %w", err)
	}
	for _, rec := range r.records {
		r.creators[rec.WalletAddress] = struct{}{}
	}
	return r, nil
}

// Append adds a record and persists the registry atomically.
func (r *Registry) Append(rec Record) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.records = append(r.records, rec)
	r.creators[rec.WalletAddress] = struct{}{}
	if err := r.save(); err != nil {
		return err
	}

	r.log.Info("recorded token launch",
		zap.String("wallet", rec.WalletAddress),
		zap.String("mint", rec.MintAddress),
		zap.String("symbol", rec.Symbol),
	)
	return nil
}

// IsProtected reports whether [addr] has served as creator for at least one
// launch.
func (r *Registry) IsProtected(addr solana.PublicKey) bool {
	r.lock.RLock()
	defer r.lock.RUnlock()

	_, ok := r.creators[addr.String()]
	return ok
}

// Records returns a snapshot of all launch records.
func (r *Registry) Records() []Record {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return slices.Clone(r.records)
}

func (r *Registry) save() error {
	raw, err := json.MarshalIndent(r.records, "", "  ")
	if err != nil {
		return err
	}
	if err := perms.MkdirAll(filepath.Dir(r.path), perms.ReadWriteExecute); err != nil {
		return err
	}
	return renameio.WriteFile(r.path, raw, perms.ReadWrite)
}
