// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testPassword = "correct horse battery staple"

type testProtected struct {
	addrs map[solana.PublicKey]struct{}
}

func (p *testProtected) IsProtected(addr solana.PublicKey) bool {
	_, ok := p.addrs[addr]
	return ok
}

func newTestVault(t *testing.T) (*Vault, *testProtected) {
	protected := &testProtected{addrs: make(map[solana.PublicKey]struct{})}
	path := filepath.Join(t.TempDir(), "vault.json")
	return New(zap.NewNop(), path, protected), protected
}

func TestVaultRoundTrip(t *testing.T) {
	require := require.New(t)

	v, _ := newTestVault(t)
	w1, err := v.Generate("alpha", Sniper, testPassword)
	require.NoError(err)
	_, err = v.Generate("beta", Burner, testPassword)
	require.NoError(err)

	wallets, err := v.Unlock(testPassword)
	require.NoError(err)
	require.Len(wallets, 2)
	require.Equal("alpha", wallets[0].Name)
	require.Equal(w1.Address, wallets[0].Address)

	// Unlock is idempotent while already unlocked.
	again, err := v.Unlock("anything-goes-here")
	require.NoError(err)
	require.Len(again, 2)
}

func TestVaultWrongPassword(t *testing.T) {
	require := require.New(t)

	v, _ := newTestVault(t)
	_, err := v.Generate("alpha", Sniper, testPassword)
	require.NoError(err)

	_, err = v.Unlock("not the password")
	require.ErrorIs(err, ErrInvalidPassword)

	_, err = v.Generate("beta", Sniper, "also not the password")
	require.ErrorIs(err, ErrInvalidPassword)
}

func TestVaultPasswordPolicy(t *testing.T) {
	require := require.New(t)

	v, _ := newTestVault(t)
	_, err := v.Generate("alpha", Sniper, "short")
	require.ErrorIs(err, ErrWeakPassword)

	// Long enough but trivially guessable; rejected on vault creation.
	_, err = v.Generate("alpha", Sniper, "password")
	require.ErrorIs(err, ErrWeakPassword)
}

func TestVaultLockZeroesSecrets(t *testing.T) {
	require := require.New(t)

	v, _ := newTestVault(t)
	w, err := v.Generate("alpha", Sniper, testPassword)
	require.NoError(err)
	_, err = v.Unlock(testPassword)
	require.NoError(err)

	_, err = v.Sign(w.ID, []byte("payload"))
	require.NoError(err)

	v.Lock()
	require.False(v.IsUnlocked())
	_, err = v.Sign(w.ID, []byte("payload"))
	require.ErrorIs(err, ErrLocked)
	require.Empty(v.Addresses())
}

func TestVaultImportDuplicate(t *testing.T) {
	require := require.New(t)

	v, _ := newTestVault(t)
	key, err := solana.NewRandomPrivateKey()
	require.NoError(err)

	_, err = v.Import(key.String(), "alpha", Sniper, testPassword)
	require.NoError(err)
	_, err = v.Import(key.String(), "alpha-again", Sniper, testPassword)
	require.ErrorIs(err, ErrWalletExists)
}

func TestVaultProtectedWallet(t *testing.T) {
	require := require.New(t)

	v, protected := newTestVault(t)
	w, err := v.Generate("creator", Sniper, testPassword)
	require.NoError(err)
	x, err := v.Generate("disposable", Burner, testPassword)
	require.NoError(err)
	protected.addrs[w.Address] = struct{}{}

	err = v.Remove(w.ID, testPassword)
	require.ErrorIs(err, ErrProtectedWallet)

	wallets, err := v.Unlock(testPassword)
	require.NoError(err)
	require.Len(wallets, 2)

	// Mixed batch removes exactly the non-protected subset.
	removed, err := v.RemoveMany([]string{w.ID, x.ID}, testPassword)
	require.NoError(err)
	require.Equal(1, removed)
	require.True(v.Contains(w.Address))
	require.False(v.Contains(x.Address))
}

func TestVaultRemoveUnknown(t *testing.T) {
	require := require.New(t)

	v, _ := newTestVault(t)
	_, err := v.Generate("alpha", Sniper, testPassword)
	require.NoError(err)

	err = v.Remove("does-not-exist", testPassword)
	require.ErrorIs(err, ErrUnknownWallet)
}

func TestVaultUpdate(t *testing.T) {
	require := require.New(t)

	v, _ := newTestVault(t)
	w, err := v.Generate("alpha", Sniper, testPassword)
	require.NoError(err)

	name := "renamed"
	typ := Treasury
	updated, err := v.Update(w.ID, &name, &typ, testPassword)
	require.NoError(err)
	require.Equal("renamed", updated.Name)
	require.Equal(Treasury, updated.Type)
	require.Equal(w.Address, updated.Address)
}

func TestVaultBackupRoundTrip(t *testing.T) {
	require := require.New(t)

	v, _ := newTestVault(t)
	_, err := v.GenerateBatch(3, "w", Burner, testPassword)
	require.NoError(err)
	wallets, err := v.Unlock(testPassword)
	require.NoError(err)

	blob, err := v.ExportBackup(testPassword)
	require.NoError(err)

	restored, _ := newTestVault(t)
	require.NoError(restored.ImportBackup(blob, testPassword))
	got, err := restored.Unlock(testPassword)
	require.NoError(err)
	require.Equal(wallets, got)
}

func TestVaultImportBackupBadIntegrity(t *testing.T) {
	require := require.New(t)

	v, _ := newTestVault(t)
	_, err := v.Generate("alpha", Sniper, testPassword)
	require.NoError(err)
	blob, err := v.ExportBackup(testPassword)
	require.NoError(err)

	// Flip a ciphertext byte; the authentication tag check must fail.
	tampered := append([]byte(nil), blob...)
	tampered[len(tampered)/2] ^= 0xff

	restored, _ := newTestVault(t)
	err = restored.ImportBackup(tampered, testPassword)
	require.Error(err)
}

func TestVaultChangePassword(t *testing.T) {
	require := require.New(t)

	v, _ := newTestVault(t)
	_, err := v.Generate("alpha", Sniper, testPassword)
	require.NoError(err)

	const next = "an even better passphrase 42"
	require.NoError(v.ChangePassword(testPassword, next))

	_, err = v.Unlock(testPassword)
	require.ErrorIs(err, ErrInvalidPassword)
	wallets, err := v.Unlock(next)
	require.NoError(err)
	require.Len(wallets, 1)
}

func TestVaultSignerFor(t *testing.T) {
	require := require.New(t)

	v, _ := newTestVault(t)
	w, err := v.Generate("alpha", Sniper, testPassword)
	require.NoError(err)

	_, err = v.Unlock(testPassword)
	require.NoError(err)

	signer, err := v.SignerFor(w.Address)
	require.NoError(err)
	require.Equal(w.Address, signer.Address())

	// Signers stop working after Lock.
	v.Lock()
	tx := &solana.Transaction{}
	require.ErrorIs(signer.SignTransaction(tx), ErrLocked)
}

func TestVaultMutationZeroesReplacedSecrets(t *testing.T) {
	require := require.New(t)

	v, _ := newTestVault(t)
	w, err := v.Generate("alpha", Sniper, testPassword)
	require.NoError(err)
	_, err = v.Unlock(testPassword)
	require.NoError(err)

	v.lock.Lock()
	old := v.wallets[w.ID]
	v.lock.Unlock()
	require.NotEmpty(old.key)

	// The mutation reloads the set from disk; the superseded instance
	// becomes unreachable and must be wiped immediately.
	_, err = v.Generate("beta", Burner, "")
	require.NoError(err)
	require.Empty(old.key)

	// The refreshed set still signs for the same wallet.
	_, err = v.Sign(w.ID, []byte("payload"))
	require.NoError(err)
}

func TestVaultUnlockedMutationWithoutPassword(t *testing.T) {
	require := require.New(t)

	v, _ := newTestVault(t)
	_, err := v.Generate("alpha", Sniper, testPassword)
	require.NoError(err)
	_, err = v.Unlock(testPassword)
	require.NoError(err)

	// An empty password uses the credentials retained while unlocked.
	batch, err := v.GenerateBatch(2, "burner", Burner, "")
	require.NoError(err)
	require.Len(batch, 2)
	require.Len(v.List(), 3)
}
