// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package gateway

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/hlsvault/internal/fault"
	xglog "github.com/ManuGH/hlsvault/internal/log"
	"github.com/ManuGH/hlsvault/internal/manifest"
)

// Proxy response headers.
const (
	AllowOrigin  = "*"
	AllowMethods = "GET, OPTIONS"
	AllowHeaders = "*"
	CacheControl = "public, max-age=3600"
)

// Routes registers the proxy, diagnostics and catalog routes on r.
func (g *Gateway) Routes(r chi.Router) {
	r.Get(manifest.ProxyPrefix+"*", g.handleProxy)
	r.Options(manifest.ProxyPrefix+"*", handlePreflight)
	r.Get("/test-cdn/{assetID}", g.handleProbe)
	if g.catalog != nil {
		r.Get("/videos", g.handleAssets)
	}
}

// Handler returns a standalone router serving only the gateway routes.
func (g *Gateway) Handler() http.Handler {
	r := chi.NewRouter()
	g.Routes(r)
	return r
}

func setCORS(h http.Header) {
	h.Set("Access-Control-Allow-Origin", AllowOrigin)
	h.Set("Access-Control-Allow-Methods", AllowMethods)
	h.Set("Access-Control-Allow-Headers", AllowHeaders)
}

func (g *Gateway) handleProxy(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, manifest.ProxyPrefix)
	logger := xglog.WithComponentFromContext(r.Context(), "gateway")
	ctx := logger.WithContext(r.Context())
	r = r.WithContext(ctx)

	setCORS(w.Header())

	resp, err := g.Serve(ctx, path)
	if err != nil {
		w.Header().Set("Cache-Control", "no-store")
		writeError(w, r, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", resp.ContentType)
	h.Set("Content-Length", strconv.Itoa(len(resp.Body)))
	h.Set("Cache-Control", CacheControl)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(resp.Body); err != nil {
		logger.Debug().Err(err).Str(xglog.FieldPath, path).Msg("client went away during write")
		return
	}

	logger.Debug().
		Str(xglog.FieldEvent, "gateway.served").
		Str(xglog.FieldPath, path).
		Int("bytes", len(resp.Body)).
		Bool("cached", resp.Cached).
		Msg("proxy response served")
}

func handlePreflight(w http.ResponseWriter, _ *http.Request) {
	setCORS(w.Header())
	w.Header().Set("Access-Control-Max-Age", "3600")
	w.WriteHeader(http.StatusNoContent)
}

// probeError is the diagnostics body when the probe itself fails.
type probeError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (g *Gateway) handleProbe(w http.ResponseWriter, r *http.Request) {
	ctx := xglog.WithComponentFromContext(r.Context(), "gateway").WithContext(r.Context())
	assetID := chi.URLParam(r, "assetID")

	res, err := g.Probe(ctx, assetID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, fault.ErrValidation) {
			status = http.StatusBadRequest
		}
		xglog.FromContext(ctx).Error().
			Err(err).
			Str(xglog.FieldEvent, "gateway.probe_failed").
			Str(xglog.FieldAssetID, assetID).
			Msg("CDN test failed")
		writeJSON(w, status, probeError{Status: "error", Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (g *Gateway) handleAssets(w http.ResponseWriter, r *http.Request) {
	ids, err := g.Assets(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, ids)
}
