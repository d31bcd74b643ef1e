// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package keys generates and persists per-asset AES-128 encryption keys.
package keys

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ManuGH/hlsvault/internal/asset"
	"github.com/ManuGH/hlsvault/internal/fault"
	xglog "github.com/ManuGH/hlsvault/internal/log"
	"github.com/google/renameio/v2"
)

// DefaultLength is the AES-128 key size in bytes.
const DefaultLength = 16

// Key is a freshly generated encryption key.
type Key struct {
	Bytes []byte
	Ref   string // logical name written into the key-info file, not a URL
}

// Files are the on-disk artifacts written by Persist.
type Files struct {
	KeyPath     string
	KeyInfoPath string
}

// Manager generates keys of a fixed length. It is safe for concurrent use.
type Manager struct {
	length int
	rand   io.Reader
}

// NewManager returns a Manager producing keys of length bytes.
// A non-positive length selects DefaultLength.
func NewManager(length int) *Manager {
	if length <= 0 {
		length = DefaultLength
	}
	return &Manager{length: length, rand: rand.Reader}
}

// Length returns the configured key length in bytes.
func (m *Manager) Length() int { return m.length }

// Generate returns length cryptographically secure random bytes and the fixed key reference.
// A failing entropy source is the only error.
func (m *Manager) Generate() (Key, error) {
	buf := make([]byte, m.length)
	if _, err := io.ReadFull(m.rand, buf); err != nil {
		return Key{}, fmt.Errorf("read entropy: %w", err)
	}
	return Key{Bytes: buf, Ref: asset.KeyName}, nil
}

// Persist writes the key and the transcoder key-info file into dir.
// The key-info file holds the key reference on line one and the absolute
// key path on line two. Both writes are atomic.
func (m *Manager) Persist(ctx context.Context, dir string, key Key) (Files, error) {
	const op = "persist key"
	logger := xglog.FromContext(ctx)

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return Files{}, fault.Storage(op, err)
	}
	if err := os.MkdirAll(absDir, 0o750); err != nil {
		return Files{}, fault.Storage(op, fmt.Errorf("create asset dir: %w", err))
	}

	files := Files{
		KeyPath:     filepath.Join(absDir, asset.KeyName),
		KeyInfoPath: filepath.Join(absDir, asset.KeyInfoName),
	}

	if err := renameio.WriteFile(files.KeyPath, key.Bytes, 0o600); err != nil {
		return Files{}, fault.Storage(op, fmt.Errorf("write key: %w", err))
	}

	info := fmt.Sprintf("%s\n%s\n", key.Ref, files.KeyPath)
	if err := renameio.WriteFile(files.KeyInfoPath, []byte(info), 0o600); err != nil {
		return Files{}, fault.Storage(op, fmt.Errorf("write key info: %w", err))
	}

	logger.Debug().
		Str(xglog.FieldEvent, "keys.persisted").
		Str(xglog.FieldPath, files.KeyPath).
		Int("length", len(key.Bytes)).
		Msg("encryption key written")
	return files, nil
}
