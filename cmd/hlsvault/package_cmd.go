// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/ManuGH/hlsvault/internal/config"
	xglog "github.com/ManuGH/hlsvault/internal/log"
	"github.com/ManuGH/hlsvault/internal/packager"
	"github.com/ManuGH/hlsvault/internal/storage"
)

func runPackage(args []string, stdout, stderr io.Writer) int {
	fs, configPath := newFlagSet("package", stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sum, err := packageAll(ctx, cfg)
	printSummary(stdout, sum)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if sum.Failed > 0 {
		return 1
	}
	return 0
}

func packageAll(ctx context.Context, cfg config.AppConfig) (packager.Summary, error) {
	ffmpeg, err := packager.ValidateEnvironment(cfg.Packager.FFmpegPath, packagerConfig(cfg))
	if err != nil {
		return packager.Summary{}, err
	}

	tp, err := newTelemetry(ctx, cfg)
	if err != nil {
		logger := xglog.WithComponent("package")
		logger.Warn().Err(err).Msg("telemetry initialization failed, continuing without tracing")
	} else {
		defer func() { _ = tp.Shutdown(context.WithoutCancel(ctx)) }()
	}

	tiers, err := newTiers(ctx, cfg)
	if err != nil {
		return packager.Summary{}, err
	}
	uploader := storage.NewUploader(tiers)
	if err := packager.CheckStorage(ctx, uploader); err != nil {
		return packager.Summary{}, err
	}

	store, rec, err := openLedger(ctx, cfg.Packager.LedgerPath)
	if err != nil {
		return packager.Summary{}, err
	}
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	return newPackager(cfg, ffmpeg, uploader, rec).ProcessDir(ctx)
}

func printSummary(w io.Writer, sum packager.Summary) {
	for _, res := range sum.Results {
		if res.Err != nil {
			_, _ = fmt.Fprintf(w, "FAIL  %s: %v\n", res.Asset.Source, res.Err)
			continue
		}
		_, _ = fmt.Fprintf(w, "OK    %s -> videos/%s (%d segments, %s)\n",
			res.Asset.Source, res.Asset.ID, res.Report.SegmentObjects, res.Duration.Round(time.Millisecond))
	}
	_, _ = fmt.Fprintf(w, "Processed %d files: %d succeeded, %d failed\n", sum.Total, sum.Succeeded, sum.Failed)
}
