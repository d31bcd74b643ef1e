// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics holds the Prometheus collectors for the packager and the proxy.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpstreamRequestsTotal tracks CDN fetches by outcome and upstream status.
	UpstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlsvault_upstream_requests_total",
		Help: "Total CDN requests by result and upstream status",
	}, []string{"result", "status"})

	// UpstreamDuration tracks CDN round-trip latency per resource kind.
	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hlsvault_upstream_duration_seconds",
		Help:    "CDN request latency by resource kind",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
	}, []string{"kind"})

	// UpstreamRetriesTotal counts 501 remediation retries.
	UpstreamRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hlsvault_upstream_retries_total",
		Help: "Total CDN retries after a 501 response",
	})

	// PlaylistRewritesTotal counts playlist rewrites by outcome.
	PlaylistRewritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlsvault_playlist_rewrites_total",
		Help: "Total playlist rewrites by result",
	}, []string{"result"})

	// CacheLookupsTotal counts response cache lookups.
	CacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlsvault_cache_lookups_total",
		Help: "Total response cache lookups by result (hit, miss, error)",
	}, []string{"result"})
)

// Upstream results.
const (
	ResultSuccess   = "success"
	ResultUpstream  = "upstream_error"
	ResultTimeout   = "timeout"
	ResultTransport = "transport_error"
)

// ObserveUpstream records one CDN request. status is 0 when no response arrived.
func ObserveUpstream(kind, result string, status int, d time.Duration) {
	UpstreamRequestsTotal.WithLabelValues(result, statusLabel(status)).Inc()
	UpstreamDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// IncUpstreamRetry records a 501 remediation retry.
func IncUpstreamRetry() {
	UpstreamRetriesTotal.Inc()
}

// IncPlaylistRewrite records a playlist rewrite outcome.
func IncPlaylistRewrite(success bool) {
	PlaylistRewritesTotal.WithLabelValues(result(success)).Inc()
}

// IncCacheLookup records a cache lookup: "hit", "miss" or "error".
func IncCacheLookup(outcome string) {
	CacheLookupsTotal.WithLabelValues(outcome).Inc()
}

func statusLabel(status int) string {
	if status <= 0 {
		return "none"
	}
	return strconv.Itoa(status)
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
