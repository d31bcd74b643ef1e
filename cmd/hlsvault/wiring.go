// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/ManuGH/hlsvault/internal/cache"
	"github.com/ManuGH/hlsvault/internal/config"
	"github.com/ManuGH/hlsvault/internal/encoder"
	"github.com/ManuGH/hlsvault/internal/keys"
	"github.com/ManuGH/hlsvault/internal/ledger"
	xglog "github.com/ManuGH/hlsvault/internal/log"
	"github.com/ManuGH/hlsvault/internal/packager"
	"github.com/ManuGH/hlsvault/internal/storage"
	"github.com/ManuGH/hlsvault/internal/telemetry"
	"github.com/ManuGH/hlsvault/internal/version"
)

// newFlagSet returns a flag set carrying the shared --config flag.
func newFlagSet(name string, stderr io.Writer) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet("hlsvault "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config file (YAML)")
	return fs, configPath
}

// loadConfig loads and validates the configuration, then reconfigures the
// global logger from it.
func loadConfig(path string) (config.AppConfig, error) {
	cfg, err := config.NewLoader(path, version.Version).Load()
	if err != nil {
		return cfg, err
	}
	xglog.Configure(xglog.Config{
		Level:   cfg.Log.Level,
		Service: cfg.Log.Service,
		Version: version.Version,
	})
	logger := xglog.WithComponent("config")
	logger.Debug().
		Interface("config", cfg.Redacted()).
		Msg("configuration loaded")
	return cfg, nil
}

func newTelemetry(ctx context.Context, cfg config.AppConfig) (*telemetry.Provider, error) {
	return telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    cfg.Log.Service,
		ServiceVersion: version.Version,
		ExporterType:   cfg.Tracing.Exporter,
		Endpoint:       cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SampleRate,
	})
}

// newTiers builds the control and CDN bucket stores over one S3 client.
func newTiers(ctx context.Context, cfg config.AppConfig) (storage.Tiers, error) {
	client, err := storage.NewS3Client(ctx, storage.S3Config{
		Endpoint:  cfg.Storage.Endpoint,
		Region:    cfg.Storage.Region,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		PathStyle: cfg.Storage.PathStyle,
		Tracing:   cfg.Tracing.Enabled,
	})
	if err != nil {
		return storage.Tiers{}, err
	}
	return storage.Tiers{
		Control: storage.NewS3Store(client, cfg.Storage.ControlBucket),
		Segment: storage.NewS3Store(client, cfg.Storage.CDNBucket),
	}, nil
}

func packagerConfig(cfg config.AppConfig) packager.Config {
	return packager.Config{
		InputDir:   cfg.Packager.InputDir,
		OutputDir:  cfg.Packager.OutputDir,
		Extensions: cfg.Packager.InputExtensions,
	}
}

// newPackager assembles the batch packager. rec may be nil.
func newPackager(cfg config.AppConfig, ffmpegPath string, uploader *storage.Uploader, rec packager.Recorder) *packager.Packager {
	exec := encoder.NewExecutor(xglog.WithComponent("encoder"))
	return packager.New(packagerConfig(cfg), packager.Deps{
		Encoder:  encoder.New(exec, ffmpegPath, cfg.Packager.SegmentDuration),
		Keys:     keys.NewManager(cfg.Packager.KeyLength),
		Uploader: uploader,
		Ledger:   rec,
	})
}

// openLedger opens the ledger when a path is configured. The returned
// recorder is nil, not a typed nil, when the ledger is disabled.
func openLedger(ctx context.Context, path string) (*ledger.Store, packager.Recorder, error) {
	if path == "" {
		return nil, nil, nil
	}
	store, err := ledger.Open(ctx, path)
	if err != nil {
		return nil, nil, fmt.Errorf("open ledger: %w", err)
	}
	return store, store, nil
}

func newCache(ctx context.Context, cfg config.AppConfig) (cache.Cache, error) {
	return cache.New(ctx, cache.Options{
		Mode:      cfg.Cache.Mode,
		RedisAddr: cfg.Cache.RedisAddr,
		MaxBytes:  cfg.Cache.MaxBytes,
	}, xglog.WithComponent("cache"))
}
