// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vault

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/mr-tron/base58"
	"github.com/nbutton23/zxcvbn-go"
	"go.uber.org/zap"

	"github.com/trench-labs/trenchsniper/utils/perms"
)

const (
	MinPasswordLen = 8
	MaxPasswordLen = 256

	// minPasswordScore is the minimum zxcvbn score (0-4) accepted when a
	// new vault is created. Existing vaults only need the right password.
	minPasswordScore = 2

	generatedPasswordBytes = 24
)

var ErrWeakPassword = errors.New("password is too weak")

func validatePassword(password string, requireStrong bool) error {
	switch {
	case len(password) < MinPasswordLen:
		return fmt.Errorf("%w: shorter than %d characters", ErrWeakPassword, MinPasswordLen)
	case len(password) > MaxPasswordLen:
		return fmt.Errorf("%w: longer than %d characters", ErrWeakPassword, MaxPasswordLen)
	}
	if requireStrong && zxcvbn.PasswordStrength(password, nil).Score < minPasswordScore {
		return fmt.Errorf("%w: strength score below %d", ErrWeakPassword, minPasswordScore)
	}
	return nil
}

func sidecarPath(vaultPath string) string {
	return vaultPath + ".password"
}

// BootstrapPassword resolves the vault password for non-interactive
// surfaces. Order: the environment-provided value, then the stored sidecar.
// If neither exists a high-entropy password is generated, persisted next to
// the vault with restrictive permissions, and a one-time notice is written
// to standard error so the operator backs it up.
func BootstrapPassword(log *zap.Logger, vaultPath string, fromEnv string) (string, error) {
	if fromEnv != "" {
		return fromEnv, nil
	}

	sidecar := sidecarPath(vaultPath)
	if raw, err := os.ReadFile(sidecar); err == nil {
		password := strings.TrimSpace(string(raw))
		if password != "" {
			return password, nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("failed to read password sidecar: %w", err)
	}

	entropy := make([]byte, generatedPasswordBytes)
	if _, err := rand.Read(entropy); err != nil {
		return "", err
	}
	password := base58.Encode(entropy)

	if err := perms.MkdirAll(filepath.Dir(sidecar), perms.ReadWriteExecute); err != nil {
		return "", fmt.Errorf("failed to create vault directory: %w", err)
	}
	if err := renameio.WriteFile(sidecar, []byte(password+"\n"), perms.ReadWrite); err != nil {
		return "", fmt.Errorf("failed to persist generated password: %w", err)
	}

	fmt.Fprintf(os.Stderr,
		"generated a new vault password and stored it at %s - back this file up, losing it locks the vault forever\n",
		sidecar,
	)
	log.Info("generated vault password",
		zap.String("sidecar", sidecar),
	)
	return password, nil
}
