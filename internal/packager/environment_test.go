// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package packager_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/hlsvault/internal/fault"
	"github.com/ManuGH/hlsvault/internal/packager"
	"github.com/ManuGH/hlsvault/internal/storage"
	"github.com/ManuGH/hlsvault/internal/testutil"
)

func TestValidateEnvironment(t *testing.T) {
	root := t.TempDir()
	bin := filepath.Join(root, "ffmpeg")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755))
	cfg := packager.Config{
		InputDir:  filepath.Join(root, "in"),
		OutputDir: filepath.Join(root, "out", "nested"),
	}

	resolved, err := packager.ValidateEnvironment(bin, cfg)
	require.NoError(t, err)
	assert.Equal(t, bin, resolved)
	assert.DirExists(t, cfg.InputDir)
	assert.DirExists(t, cfg.OutputDir)
}

func TestValidateEnvironment_MissingTranscoder(t *testing.T) {
	root := t.TempDir()
	cfg := packager.Config{InputDir: filepath.Join(root, "in"), OutputDir: filepath.Join(root, "out")}

	_, err := packager.ValidateEnvironment(filepath.Join(root, "nope"), cfg)
	assert.ErrorIs(t, err, fault.ErrValidation)

	_, err = packager.ValidateEnvironment("hlsvault-no-such-binary", cfg)
	assert.ErrorIs(t, err, fault.ErrValidation)
}

func TestCheckStorage(t *testing.T) {
	control := testutil.NewMemoryStore("control")
	cdn := testutil.NewMemoryStore("cdn")
	up := storage.NewUploader(storage.Tiers{Control: control, Segment: cdn})
	ctx := context.Background()

	require.NoError(t, packager.CheckStorage(ctx, up))

	control.PresignErr = errors.New("bad signature")
	assert.ErrorIs(t, packager.CheckStorage(ctx, up), fault.ErrStorage)

	control.PresignErr = nil
	cdn.CheckErr = errors.New("no such bucket")
	assert.ErrorIs(t, packager.CheckStorage(ctx, up), fault.ErrStorage)
}
