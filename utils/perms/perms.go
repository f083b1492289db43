// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package perms

import (
	"io/fs"
	"os"
)

const (
	ReadOnly         = 0o400
	ReadWrite        = 0o600
	ReadWriteExecute = 0o700
)

// Create a file at [name] with the requested permissions. If the file
// already exists with looser permissions, the permissions are tightened.
func Create(name string, perm fs.FileMode) (*os.File, error) {
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return nil, err
	}
	if err := f.Chmod(perm); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

// MkdirAll creates the directory path with the requested permissions,
// tightening the leaf directory if it already exists.
func MkdirAll(path string, perm fs.FileMode) error {
	if err := os.MkdirAll(path, perm); err != nil {
		return err
	}
	return os.Chmod(path, perm)
}
