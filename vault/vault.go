// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/google/renameio/v2"
	"go.uber.org/zap"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/trench-labs/trenchsniper/utils/perms"
)

var (
	ErrLocked          = errors.New("vault is locked")
	ErrUnknownWallet   = errors.New("unknown wallet")
	ErrWalletExists    = errors.New("wallet already exists")
	ErrProtectedWallet = errors.New("wallet is protected by a launch record")
)

// ProtectedChecker reports whether a wallet served as creator for a token
// launch. Protected wallets must never be removed by automated cleanup.
type ProtectedChecker interface {
	IsProtected(addr solana.PublicKey) bool
}

// SignRequest is one entry of a batch signing call.
type SignRequest struct {
	ID      string
	Payload []byte
}

// Vault is the encrypted at-rest store of signing material. Secrets are
// only materialized in memory while the vault is unlocked and are zeroed on
// Lock. All other components hold address strings and request signing here.
type Vault struct {
	log       *zap.Logger
	path      string
	protected ProtectedChecker

	lock     sync.Mutex
	unlocked bool
	password []byte
	wallets  map[string]*secretWallet    // wallet id -> wallet
	byAddr   map[solana.PublicKey]string // address -> wallet id
}

func New(log *zap.Logger, path string, protected ProtectedChecker) *Vault {
	return &Vault{
		log:       log,
		path:      path,
		protected: protected,
		wallets:   make(map[string]*secretWallet),
		byAddr:    make(map[solana.PublicKey]string),
	}
}

// Exists reports whether a vault blob has been persisted.
func (v *Vault) Exists() bool {
	_, err := os.Stat(v.path)
	return err == nil
}

// Unlock decrypts the vault and materializes the wallet set in memory.
// Idempotent while already unlocked.
func (v *Vault) Unlock(password string) ([]Wallet, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	if v.unlocked {
		return v.listLocked(), nil
	}
	if err := validatePassword(password, false); err != nil {
		return nil, err
	}

	set, err := v.loadSet([]byte(password))
	if err != nil {
		return nil, err
	}

	v.adoptSet(set)
	v.password = []byte(password)
	v.unlocked = true

	v.log.Info("vault unlocked",
		zap.Int("wallets", len(set)),
	)
	return v.listLocked(), nil
}

// Lock zeroes all in-memory secrets and forgets the derived credentials.
// Always succeeds.
func (v *Vault) Lock() {
	v.lock.Lock()
	defer v.lock.Unlock()

	for _, w := range v.wallets {
		w.zero()
	}
	for i := range v.password {
		v.password[i] = 0
	}
	v.password = nil
	v.wallets = make(map[string]*secretWallet)
	v.byAddr = make(map[solana.PublicKey]string)
	v.unlocked = false

	v.log.Info("vault locked")
}

// IsUnlocked reports whether secrets are currently materialized.
func (v *Vault) IsUnlocked() bool {
	v.lock.Lock()
	defer v.lock.Unlock()

	return v.unlocked
}

// Generate creates a new wallet, merges it with the existing set and
// re-saves the vault atomically. An empty password uses the credentials
// retained while the vault is unlocked.
func (v *Vault) Generate(name string, typ Type, password string) (Wallet, error) {
	wallets, err := v.GenerateBatch(1, name, typ, password)
	if err != nil {
		return Wallet{}, err
	}
	return wallets[0], nil
}

// GenerateBatch creates [count] new wallets named [namePrefix]-1..count in
// a single atomic re-save. With count == 1 the prefix is used verbatim.
func (v *Vault) GenerateBatch(count int, namePrefix string, typ Type, password string) ([]Wallet, error) {
	if count < 1 {
		return nil, fmt.Errorf("wallet count %d must be positive", count)
	}

	out := make([]Wallet, 0, count)
	err := v.mutate(password, func(set map[string]*secretWallet) error {
		for i := 1; i <= count; i++ {
			key, err := solana.NewRandomPrivateKey()
			if err != nil {
				return err
			}
			name := namePrefix
			if count > 1 {
				name = fmt.Sprintf("%s-%d", namePrefix, i)
			}
			w := &secretWallet{
				Wallet: Wallet{
					ID:        newWalletID(),
					Name:      name,
					Type:      typ,
					Address:   key.PublicKey(),
					CreatedAt: timeNow(),
				},
				key: key,
			}
			set[w.ID] = w
			out = append(out, w.Wallet)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Import adds an externally generated key. Duplicate addresses are
// rejected with ErrWalletExists.
func (v *Vault) Import(secretBase58 string, name string, typ Type, password string) (Wallet, error) {
	key, err := solana.PrivateKeyFromBase58(secretBase58)
	if err != nil {
		return Wallet{}, fmt.Errorf("malformed secret key: %w", err)
	}

	var out Wallet
	err = v.mutate(password, func(set map[string]*secretWallet) error {
		addr := key.PublicKey()
		for _, w := range set {
			if w.Address == addr {
				return fmt.Errorf("%w: %s", ErrWalletExists, addr)
			}
		}
		w := &secretWallet{
			Wallet: Wallet{
				ID:        newWalletID(),
				Name:      name,
				Type:      typ,
				Address:   addr,
				CreatedAt: timeNow(),
			},
			key: key,
		}
		set[w.ID] = w
		out = w.Wallet
		return nil
	})
	return out, err
}

// Remove deletes a wallet. Wallets referenced by a launch record are
// protected and rejected with ErrProtectedWallet.
func (v *Vault) Remove(id string, password string) error {
	return v.mutate(password, func(set map[string]*secretWallet) error {
		w, ok := set[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownWallet, id)
		}
		if v.isProtected(w.Address) {
			return fmt.Errorf("%w: %s", ErrProtectedWallet, w.Address)
		}
		w.zero()
		delete(set, id)
		return nil
	})
}

// RemoveMany deletes the non-protected subset of [ids] and reports how many
// wallets were removed. Unknown ids are skipped.
func (v *Vault) RemoveMany(ids []string, password string) (int, error) {
	removed := 0
	err := v.mutate(password, func(set map[string]*secretWallet) error {
		for _, id := range ids {
			w, ok := set[id]
			if !ok || v.isProtected(w.Address) {
				continue
			}
			w.zero()
			delete(set, id)
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// Update renames and/or retypes a wallet.
func (v *Vault) Update(id string, name *string, typ *Type, password string) (Wallet, error) {
	var out Wallet
	err := v.mutate(password, func(set map[string]*secretWallet) error {
		w, ok := set[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownWallet, id)
		}
		if name != nil {
			w.Name = *name
		}
		if typ != nil {
			w.Type = *typ
		}
		out = w.Wallet
		return nil
	})
	return out, err
}

// ExportBackup authenticates [password] and returns the sealed blob.
func (v *Vault) ExportBackup(password string) ([]byte, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	pw, err := v.resolvePassword(password)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(v.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCorruptVault, err)
	}
	// Authenticate before handing the blob out.
	if _, err := open(raw, pw); err != nil {
		return nil, err
	}
	return raw, nil
}

// ImportBackup merges the wallets of a sealed blob into the vault. Entries
// whose address is already present are skipped. Blobs failing their
// integrity check are rejected.
func (v *Vault) ImportBackup(blob []byte, password string) error {
	return v.mutate(password, func(set map[string]*secretWallet) error {
		pw, err := v.resolvePassword(password)
		if err != nil {
			return err
		}
		payload, err := open(blob, pw)
		if err != nil {
			return err
		}
		incoming, err := decodeSet(payload)
		if err != nil {
			return err
		}

		existing := make(map[solana.PublicKey]struct{}, len(set))
		for _, w := range set {
			existing[w.Address] = struct{}{}
		}
		for _, w := range incoming {
			if _, ok := existing[w.Address]; ok {
				continue
			}
			set[w.ID] = w
		}
		return nil
	})
}

// ChangePassword re-encrypts the full wallet set atomically.
func (v *Vault) ChangePassword(oldPassword, newPassword string) error {
	v.lock.Lock()
	defer v.lock.Unlock()

	if err := validatePassword(newPassword, true); err != nil {
		return err
	}
	oldPW, err := v.resolvePassword(oldPassword)
	if err != nil {
		return err
	}

	set, err := v.loadSet(oldPW)
	if err != nil {
		return err
	}
	if err := v.saveSet(set, []byte(newPassword)); err != nil {
		return err
	}
	if v.unlocked {
		v.adoptSet(set)
		v.password = []byte(newPassword)
	}
	return nil
}

// Delete destroys the persisted vault after authenticating [password] and
// locks the in-memory state.
func (v *Vault) Delete(password string) error {
	v.lock.Lock()

	pw, err := v.resolvePassword(password)
	if err != nil {
		v.lock.Unlock()
		return err
	}
	if _, err := v.loadSet(pw); err != nil {
		v.lock.Unlock()
		return err
	}
	if err := os.Remove(v.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		v.lock.Unlock()
		return err
	}
	v.lock.Unlock()

	v.Lock()
	return nil
}

// Sign signs an arbitrary payload with the wallet's key. The secret never
// leaves the vault.
func (v *Vault) Sign(id string, payload []byte) (solana.Signature, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	if !v.unlocked {
		return solana.Signature{}, ErrLocked
	}
	w, ok := v.wallets[id]
	if !ok {
		return solana.Signature{}, fmt.Errorf("%w: %s", ErrUnknownWallet, id)
	}
	return w.key.Sign(payload)
}

// SignBatch signs a batch of payloads, failing on the first error.
func (v *Vault) SignBatch(reqs []SignRequest) ([]solana.Signature, error) {
	sigs := make([]solana.Signature, len(reqs))
	for i, req := range reqs {
		sig, err := v.Sign(req.ID, req.Payload)
		if err != nil {
			return nil, err
		}
		sigs[i] = sig
	}
	return sigs, nil
}

// SignerFor returns a transaction signer bound to [addr]. The lock state is
// checked at signing time, not here.
func (v *Vault) SignerFor(addr solana.PublicKey) (*TxSigner, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	if !v.unlocked {
		return nil, ErrLocked
	}
	if _, ok := v.byAddr[addr]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWallet, addr)
	}
	return &TxSigner{vault: v, addr: addr}, nil
}

// Addresses returns the addresses of all unlocked wallets.
func (v *Vault) Addresses() []solana.PublicKey {
	v.lock.Lock()
	defer v.lock.Unlock()

	return maps.Keys(v.byAddr)
}

// Contains reports whether [addr] is a vault wallet. Always false while
// locked.
func (v *Vault) Contains(addr solana.PublicKey) bool {
	v.lock.Lock()
	defer v.lock.Unlock()

	_, ok := v.byAddr[addr]
	return ok
}

// List returns the public views of all unlocked wallets, ordered by
// creation time.
func (v *Vault) List() []Wallet {
	v.lock.Lock()
	defer v.lock.Unlock()

	return v.listLocked()
}

func (v *Vault) listLocked() []Wallet {
	out := make([]Wallet, 0, len(v.wallets))
	for _, w := range v.wallets {
		out = append(out, w.Wallet)
	}
	slices.SortFunc(out, func(a, b Wallet) int {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Compare(b.CreatedAt)
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

func (v *Vault) isProtected(addr solana.PublicKey) bool {
	return v.protected != nil && v.protected.IsProtected(addr)
}

// mutate loads the authoritative wallet set from disk, applies [fn] and
// re-saves atomically. The in-memory set is refreshed when unlocked.
func (v *Vault) mutate(password string, fn func(map[string]*secretWallet) error) error {
	v.lock.Lock()
	defer v.lock.Unlock()

	pw, err := v.resolvePassword(password)
	if err != nil {
		return err
	}
	if !v.exists() {
		// First write creates the vault; hold new passwords to a strength
		// floor, not just the right tag.
		if err := validatePassword(string(pw), true); err != nil {
			return err
		}
	}

	set, err := v.loadSet(pw)
	if err != nil {
		return err
	}
	if err := fn(set); err != nil {
		return err
	}
	if err := v.saveSet(set, pw); err != nil {
		return err
	}
	if v.unlocked {
		v.adoptSet(set)
	}
	return nil
}

func (v *Vault) resolvePassword(password string) ([]byte, error) {
	if password != "" {
		return []byte(password), nil
	}
	if v.unlocked {
		return v.password, nil
	}
	return nil, ErrLocked
}

func (v *Vault) exists() bool {
	_, err := os.Stat(v.path)
	return err == nil
}

func (v *Vault) loadSet(password []byte) (map[string]*secretWallet, error) {
	raw, err := os.ReadFile(v.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]*secretWallet), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCorruptVault, err)
	}

	payload, err := open(raw, password)
	if err != nil {
		return nil, err
	}
	return decodeSet(payload)
}

func decodeSet(payload []byte) (map[string]*secretWallet, error) {
	var records []walletRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCorruptVault, err)
	}

	set := make(map[string]*secretWallet, len(records))
	for _, r := range records {
		w, err := r.wallet()
		if err != nil {
			return nil, err
		}
		set[w.ID] = w
	}
	return set, nil
}

func (v *Vault) saveSet(set map[string]*secretWallet, password []byte) error {
	records := make([]walletRecord, 0, len(set))
	for _, w := range set {
		records = append(records, w.record())
	}
	slices.SortFunc(records, func(a, b walletRecord) int {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Compare(b.CreatedAt)
		}
		return strings.Compare(a.ID, b.ID)
	})

	payload, err := json.Marshal(records)
	if err != nil {
		return err
	}
	blob, err := seal(payload, password)
	if err != nil {
		return err
	}

	if err := perms.MkdirAll(filepath.Dir(v.path), perms.ReadWriteExecute); err != nil {
		return err
	}
	return renameio.WriteFile(v.path, blob, perms.ReadWrite)
}

// adoptSet replaces the in-memory set. Every instance the replacement
// makes unreachable is zeroed, whether its id survived or not; Lock can
// only wipe what the vault still holds.
func (v *Vault) adoptSet(set map[string]*secretWallet) {
	for id, w := range v.wallets {
		if replacement, ok := set[id]; !ok || replacement != w {
			w.zero()
		}
	}
	v.wallets = set
	v.byAddr = make(map[solana.PublicKey]string, len(set))
	for id, w := range set {
		v.byAddr[w.Address] = id
	}
}
