// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// TxSigner authorizes transactions for one wallet. The lock state is
// checked on every call, so a signer obtained before Lock stops working
// after it. Signing is serialized through the vault mutex; parallel signing
// across wallets contends only briefly on the key lookup.
type TxSigner struct {
	vault *Vault
	addr  solana.PublicKey
}

func (s *TxSigner) Address() solana.PublicKey {
	return s.addr
}

// SignTransaction partially signs [tx] with the wallet's key. Partial
// signing tolerates additional required signers, such as a freshly
// generated mint keypair on token creation, which are signed elsewhere.
func (s *TxSigner) SignTransaction(tx *solana.Transaction) error {
	s.vault.lock.Lock()
	defer s.vault.lock.Unlock()

	if !s.vault.unlocked {
		return ErrLocked
	}
	id, ok := s.vault.byAddr[s.addr]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownWallet, s.addr)
	}
	key := s.vault.wallets[id].key

	_, err := tx.PartialSign(func(pk solana.PublicKey) *solana.PrivateKey {
		if pk == s.addr {
			return &key
		}
		return nil
	})
	return err
}
