// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package packager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/ManuGH/hlsvault/internal/fault"
	xglog "github.com/ManuGH/hlsvault/internal/log"
	"github.com/ManuGH/hlsvault/internal/storage"
)

// ProbeObjectKey is presigned by CheckStorage to prove signing works.
const ProbeObjectKey = "test.txt"

// ValidateEnvironment resolves the transcoder executable and creates the input
// and output directories if they are missing. It returns the resolved path.
func ValidateEnvironment(ffmpegPath string, cfg Config) (string, error) {
	const op = "validate environment"
	logger := xglog.WithComponent("packager")

	resolved, err := resolveExecutable(ffmpegPath)
	if err != nil {
		return "", fault.Validation(op, err)
	}
	for _, dir := range []string{cfg.InputDir, cfg.OutputDir} {
		if dir == "" {
			return "", fault.Validationf(op, "directory path is empty")
		}
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return "", fault.Storage(op, fmt.Errorf("create %s: %w", dir, err))
		}
	}

	logger.Info().
		Str(xglog.FieldEvent, "package.environment_ok").
		Str("ffmpeg", resolved).
		Str("input_dir", cfg.InputDir).
		Str("output_dir", cfg.OutputDir).
		Msg("environment validated")
	return resolved, nil
}

func resolveExecutable(path string) (string, error) {
	if path == "" {
		return "", errors.New("transcoder path is empty")
	}
	if filepath.IsAbs(path) {
		st, err := os.Stat(path)
		if err != nil {
			return "", fmt.Errorf("transcoder not found at %s: %w", path, err)
		}
		if st.IsDir() || st.Mode().Perm()&0o111 == 0 {
			return "", fmt.Errorf("transcoder at %s is not executable", path)
		}
		return path, nil
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return "", fmt.Errorf("transcoder %q not found on PATH: %w", path, err)
	}
	return resolved, nil
}

// CheckStorage verifies both buckets are reachable and that presigning works.
func CheckStorage(ctx context.Context, up *storage.Uploader) error {
	logger := xglog.WithComponentFromContext(ctx, "packager")

	if err := up.Check(ctx); err != nil {
		logger.Error().Err(err).Str(xglog.FieldEvent, "package.storage_check_failed").Msg("bucket check failed")
		return err
	}
	if _, ok := up.PresignURL(ctx, ProbeObjectKey, storage.DefaultPresignTTL); !ok {
		err := fault.Storage("check storage", errors.New("presigned url generation failed"))
		logger.Error().Err(err).Str(xglog.FieldEvent, "package.storage_check_failed").Msg("presign check failed")
		return err
	}

	logger.Info().Str(xglog.FieldEvent, "package.storage_ok").Msg("storage connection verified")
	return nil
}
