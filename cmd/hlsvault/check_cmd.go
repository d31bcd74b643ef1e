// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ManuGH/hlsvault/internal/packager"
	"github.com/ManuGH/hlsvault/internal/storage"
)

func runCheck(args []string, stdout, stderr io.Writer) int {
	fs, configPath := newFlagSet("check", stderr)
	timeout := fs.Duration("timeout", 30*time.Second, "overall timeout for the storage checks")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	ffmpeg, err := packager.ValidateEnvironment(cfg.Packager.FFmpegPath, packagerConfig(cfg))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Transcoder/directories: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(stdout, "Transcoder: %s\n", ffmpeg)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	tiers, err := newTiers(ctx, cfg)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Storage: %v\n", err)
		return 1
	}
	uploader := storage.NewUploader(tiers)
	if err := packager.CheckStorage(ctx, uploader); err != nil {
		_, _ = fmt.Fprintf(stderr, "Storage: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(stdout, "Storage: buckets %s and %s reachable\n", tiers.Control.Bucket(), tiers.Segment.Bucket())

	if u, ok := uploader.PresignURL(ctx, packager.ProbeObjectKey, cfg.Storage.PresignTTL); ok {
		_, _ = fmt.Fprintf(stdout, "Presigned URL (%s): %s\n", cfg.Storage.PresignTTL, u)
	}
	return 0
}
