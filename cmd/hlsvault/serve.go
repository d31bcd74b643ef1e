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

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/hlsvault/internal/cache"
	"github.com/ManuGH/hlsvault/internal/config"
	"github.com/ManuGH/hlsvault/internal/control/middleware"
	"github.com/ManuGH/hlsvault/internal/gateway"
	"github.com/ManuGH/hlsvault/internal/health"
	xglog "github.com/ManuGH/hlsvault/internal/log"
	"github.com/ManuGH/hlsvault/internal/platform/httpx"
	xnet "github.com/ManuGH/hlsvault/internal/platform/net"
	"github.com/ManuGH/hlsvault/internal/server"
	"github.com/ManuGH/hlsvault/internal/version"
)

func runServe(args []string, stderr io.Writer) int {
	fs, configPath := newFlagSet("serve", stderr)
	listen := fs.String("listen", "", "listen address (overrides config)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := config.ValidateServe(cfg); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if *listen != "" {
		cfg.Proxy.Listen = *listen
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg); err != nil {
		logger := xglog.WithComponent("serve")
		logger.Error().Err(err).Str(xglog.FieldEvent, "serve.failed").Msg("proxy server exited")
		return 1
	}
	return 0
}

func serve(ctx context.Context, cfg config.AppConfig) error {
	logger := xglog.WithComponent("serve")

	tp, err := newTelemetry(ctx, cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("telemetry initialization failed, continuing without tracing")
	}

	tiers, err := newTiers(ctx, cfg)
	if err != nil {
		return err
	}
	respCache, err := newCache(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}

	opts := []httpx.Option{}
	if cfg.Tracing.Enabled {
		opts = append(opts, httpx.WithTracing())
	}
	client := httpx.NewClient(cfg.Proxy.UpstreamTimeout, opts...)

	gwOpts := gateway.Options{Catalog: tiers.Control}
	if cfg.Cache.Mode != config.CacheOff {
		gwOpts.Cache = respCache
	}
	gw, err := gateway.New(gateway.Config{
		CDNBaseURL:      cfg.Proxy.CDNBaseURL,
		UpstreamTimeout: cfg.Proxy.UpstreamTimeout,
		ProbeTimeout:    cfg.Proxy.ProbeTimeout,
		MaxBodyBytes:    cfg.Proxy.MaxBodyBytes,
		CacheTTL:        cfg.Cache.TTL,
	}, client, gwOpts)
	if err != nil {
		_ = respCache.Close()
		return err
	}

	hm := health.NewManager(version.Version)
	hm.RegisterChecker(health.NewConfigChecker("cdn_base_url", cfg.Proxy.CDNBaseURL))
	hm.RegisterChecker(health.NewFuncChecker("control_bucket", false, tiers.Control.Check))
	if rc, ok := respCache.(*cache.RedisCache); ok {
		hm.RegisterChecker(health.NewFuncChecker("redis", false, rc.HealthCheck))
	}

	srvCfg := server.DefaultConfig(cfg.Proxy.Listen, cfg.Proxy.UpstreamTimeout)
	srvCfg.Stack = middleware.StackConfig{
		EnableMetrics: true,
		EnableLogging: true,
		RateLimitRPS:  cfg.Proxy.RateLimitRPS,
	}
	if tp != nil && tp.Enabled() {
		srvCfg.Stack.TracingService = cfg.Log.Service
	}
	srv, err := server.New(srvCfg, gw, hm)
	if err != nil {
		_ = respCache.Close()
		return err
	}
	srv.RegisterShutdownHook("cache", func(context.Context) error { return respCache.Close() })
	srv.RegisterShutdownHook("http_client", func(context.Context) error {
		client.CloseIdleConnections()
		return nil
	})
	if tp != nil {
		srv.RegisterShutdownHook("telemetry", tp.Shutdown)
	}

	logger.Info().
		Str(xglog.FieldEvent, "serve.starting").
		Str("version", version.Version).
		Str("listen", cfg.Proxy.Listen).
		Str(xglog.FieldOriginURL, xnet.SanitizeURL(cfg.Proxy.CDNBaseURL)).
		Str("cache_mode", cfg.Cache.Mode).
		Msg("starting manifest proxy")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error {
		reportStats(gctx, respCache, time.Minute)
		return nil
	})
	return g.Wait()
}

// reportStats logs cache counters periodically until ctx is done.
func reportStats(ctx context.Context, c cache.Cache, every time.Duration) {
	if _, off := c.(cache.NoOp); off {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	logger := xglog.WithComponent("cache")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := c.Stats()
			logger.Debug().
				Int64("hits", st.Hits).
				Int64("misses", st.Misses).
				Int64("evictions", st.Evictions).
				Int("entries", st.CurrentSize).
				Int64("bytes", st.CurrentBytes).
				Msg("cache stats")
		}
	}
}
