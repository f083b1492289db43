// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Type tags a wallet with its role.
type Type uint8

const (
	Sniper Type = iota + 1
	Treasury
	Burner
)

func (t Type) String() string {
	switch t {
	case Sniper:
		return "sniper"
	case Treasury:
		return "treasury"
	case Burner:
		return "burner"
	default:
		return "unknown"
	}
}

func (t Type) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Type) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func ParseType(s string) (Type, error) {
	switch s {
	case "sniper":
		return Sniper, nil
	case "treasury":
		return Treasury, nil
	case "burner":
		return Burner, nil
	default:
		return 0, fmt.Errorf("unknown wallet type %q", s)
	}
}

// Wallet is the public view of a vault entry. It never carries secret
// material; signing goes through the vault.
type Wallet struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Type      Type             `json:"type"`
	Address   solana.PublicKey `json:"address"`
	CreatedAt time.Time        `json:"createdAt"`
}

// secretWallet pairs the public view with the signing key. Instances only
// exist inside an unlocked vault.
type secretWallet struct {
	Wallet
	key solana.PrivateKey
}

func (w *secretWallet) zero() {
	for i := range w.key {
		w.key[i] = 0
	}
	w.key = nil
}

// walletRecord is the serialized form inside the decrypted vault payload.
type walletRecord struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Type       Type      `json:"type"`
	Address    string    `json:"address"`
	PrivateKey string    `json:"privateKey"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (w *secretWallet) record() walletRecord {
	return walletRecord{
		ID:         w.ID,
		Name:       w.Name,
		Type:       w.Type,
		Address:    w.Address.String(),
		PrivateKey: base58.Encode(w.key),
		CreatedAt:  w.CreatedAt,
	}
}

func (r walletRecord) wallet() (*secretWallet, error) {
	addr, err := solana.PublicKeyFromBase58(r.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: bad address %q", ErrCorruptVault, r.Address)
	}
	key, err := base58.Decode(r.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: bad key material", ErrCorruptVault)
	}
	return &secretWallet{
		Wallet: Wallet{
			ID:        r.ID,
			Name:      r.Name,
			Type:      r.Type,
			Address:   addr,
			CreatedAt: r.CreatedAt,
		},
		key: solana.PrivateKey(key),
	}, nil
}

func newWalletID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func timeNow() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
