// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package gateway implements the manifest proxy in front of the CDN.
//
// Each request resolves its origin URL, fetches the resource, rewrites
// playlists so follow-up requests route back through the proxy, and maps every
// failure onto a client-visible status. Handlers share only the HTTP client
// and the optional response cache.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ManuGH/hlsvault/internal/asset"
	"github.com/ManuGH/hlsvault/internal/cache"
	"github.com/ManuGH/hlsvault/internal/fault"
	xglog "github.com/ManuGH/hlsvault/internal/log"
	"github.com/ManuGH/hlsvault/internal/manifest"
	"github.com/ManuGH/hlsvault/internal/metrics"
	xnet "github.com/ManuGH/hlsvault/internal/platform/net"
	"github.com/ManuGH/hlsvault/internal/storage"
	"github.com/ManuGH/hlsvault/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const tracerName = "hlsvault/gateway"

// Config holds the gateway tunables.
type Config struct {
	CDNBaseURL      string
	UpstreamTimeout time.Duration
	ProbeTimeout    time.Duration
	MaxBodyBytes    int64
	CacheTTL        time.Duration
}

const (
	defaultUpstreamTimeout = 30 * time.Second
	defaultProbeTimeout    = 10 * time.Second
	defaultMaxBodyBytes    = 64 << 20
)

// Options carries the optional collaborators.
type Options struct {
	// Cache stores successful responses; nil disables caching.
	Cache cache.Cache
	// Catalog is the control-tier store listed by GET /videos; nil disables the route.
	Catalog storage.ObjectStore
}

// Response is a served proxy body.
type Response struct {
	ContentType string
	Body        []byte
	Cached      bool
}

// Gateway serves proxy requests.
type Gateway struct {
	origin   *origin
	cache    cache.Cache
	cacheTTL time.Duration
	coalesce bool
	flight   singleflight.Group
	catalog  storage.ObjectStore
}

// New validates cfg and returns a Gateway using client for all CDN traffic.
func New(cfg Config, client *http.Client, opts Options) (*Gateway, error) {
	base, ok := xnet.ParseBaseURL(cfg.CDNBaseURL)
	if !ok {
		return nil, fmt.Errorf("gateway: CDN base url %q must be an absolute http(s) url without credentials or query",
			xnet.SanitizeURL(cfg.CDNBaseURL))
	}
	if client == nil {
		return nil, errors.New("gateway: http client is required")
	}
	if cfg.UpstreamTimeout <= 0 {
		cfg.UpstreamTimeout = defaultUpstreamTimeout
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = defaultProbeTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}

	c := opts.Cache
	coalesce := c != nil
	if c == nil {
		c = cache.NoOp{}
	}
	return &Gateway{
		origin: &origin{
			base:         base,
			client:       client,
			timeout:      cfg.UpstreamTimeout,
			probeTimeout: cfg.ProbeTimeout,
			maxBody:      cfg.MaxBodyBytes,
		},
		cache:    c,
		cacheTTL: cfg.CacheTTL,
		coalesce: coalesce,
		catalog:  opts.Catalog,
	}, nil
}

// Serve resolves one proxy path (videos/{assetId}/{resource}, without the
// /proxy/ prefix) to a response body.
func (g *Gateway) Serve(ctx context.Context, path string) (resp Response, err error) {
	req, err := asset.ParseRequest(path)
	if err != nil {
		return Response{}, err
	}
	ctx, span := telemetry.Tracer(tracerName).Start(ctx, "gateway.serve",
		trace.WithAttributes(telemetry.AssetAttributes(req.AssetID, req.Resource, req.Kind.String())...))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(telemetry.ErrorAttributes(errorType(err))...)
			span.SetStatus(codes.Error, "proxy request failed")
		}
		span.SetAttributes(attribute.Bool("gateway.cached", resp.Cached))
		span.End()
	}()
	logger := xglog.FromContext(ctx).With().
		Str(xglog.FieldAssetID, req.AssetID).
		Str("resource", req.Resource).
		Logger()
	ctx = logger.WithContext(ctx)

	if e, ok := g.cache.Get(ctx, req.Path()); ok {
		metrics.IncCacheLookup("hit")
		return Response{ContentType: e.ContentType, Body: e.Body, Cached: true}, nil
	}
	metrics.IncCacheLookup("miss")

	if !g.coalesce {
		return g.fetch(ctx, req)
	}
	// Concurrent misses for one path share a single upstream fetch. The shared
	// call is detached from any one caller and bounded by the upstream timeout;
	// a caller that goes away stops waiting immediately.
	ch := g.flight.DoChan(req.Path(), func() (any, error) {
		return g.fetch(context.WithoutCancel(ctx), req)
	})
	select {
	case <-ctx.Done():
		return Response{}, fault.Transport(opFetch, ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return Response{}, r.Err
		}
		return r.Val.(Response), nil
	}
}

func (g *Gateway) fetch(ctx context.Context, req asset.Request) (Response, error) {
	body, err := g.origin.Fetch(ctx, req)
	if err != nil {
		return Response{}, err
	}

	if req.Kind == asset.KindPlaylist {
		body, err = g.rewrite(ctx, body, req.AssetID)
		if err != nil {
			return Response{}, err
		}
	}

	resp := Response{ContentType: req.ContentType(), Body: body}
	g.cache.Set(ctx, req.Path(), cache.Entry{ContentType: resp.ContentType, Body: resp.Body}, g.cacheTTL)
	return resp, nil
}

// rewrite validates and rewrites a playlist. Any failure here is a processing
// fault: the CDN served content the proxy cannot pass on.
func (g *Gateway) rewrite(ctx context.Context, body []byte, assetID string) ([]byte, error) {
	out, err := manifest.Process(body, assetID)
	metrics.IncPlaylistRewrite(err == nil)
	if err != nil {
		xglog.FromContext(ctx).Error().
			Err(err).
			Str(xglog.FieldEvent, "gateway.playlist_rejected").
			Int("bytes", len(body)).
			Msg("playlist failed validation")
		if errors.Is(err, fault.ErrProcessing) {
			return nil, err
		}
		return nil, &fault.Error{Kind: fault.ErrProcessing, Op: "process playlist", Err: err}
	}
	return out, nil
}

// ProbeResult is the body of the CDN diagnostics endpoint.
type ProbeResult struct {
	Status     string            `json:"status"`
	URLTested  string            `json:"url_tested"`
	StatusCode int               `json:"status_code"`
	Headers    map[string]string `json:"headers"`
}

// Probe checks that the media playlist of assetID is reachable on the CDN.
// The body is never downloaded.
func (g *Gateway) Probe(ctx context.Context, assetID string) (ProbeResult, error) {
	if err := asset.ValidateID(assetID); err != nil {
		return ProbeResult{}, fault.Validation("probe CDN", err)
	}
	objectPath := asset.ObjectKey(assetID, asset.StreamPlaylist)
	res := ProbeResult{URLTested: g.origin.URL(objectPath)}

	xglog.FromContext(ctx).Info().
		Str(xglog.FieldEvent, "gateway.probe").
		Str(xglog.FieldOriginURL, res.URLTested).
		Msg("testing CDN connection")

	resp, err := g.origin.Probe(ctx, objectPath)
	if err != nil {
		return res, err
	}
	res.StatusCode = resp.Status
	res.Status = "error"
	if resp.Status == http.StatusOK {
		res.Status = "success"
	}
	res.Headers = flattenHeader(resp.Header)
	return res, nil
}

// Assets lists the asset identifiers present in the control tier.
func (g *Gateway) Assets(ctx context.Context) ([]string, error) {
	if g.catalog == nil {
		return nil, errors.New("asset catalog is not configured")
	}
	return storage.ListAssets(ctx, g.catalog)
}

func flattenHeader(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = strings.Join(v, ", ")
	}
	return out
}

// errorType names the fault class for span attributes.
func errorType(err error) string {
	switch fault.KindOf(err) {
	case fault.ErrValidation:
		return "validation"
	case fault.ErrProcessing:
		return "processing"
	case fault.ErrStorage:
		return "storage"
	case fault.ErrUpstream:
		return "upstream"
	case fault.ErrTimeout:
		return "timeout"
	case fault.ErrTransport:
		return "transport"
	default:
		return "internal"
	}
}
