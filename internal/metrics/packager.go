// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PackageAssetsTotal counts packaged assets by outcome.
	PackageAssetsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlsvault_package_assets_total",
		Help: "Total assets processed by the packager by result",
	}, []string{"result"})

	// EncodeDuration tracks transcoder wall time per pass.
	EncodeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hlsvault_encode_duration_seconds",
		Help:    "Transcoder run time by pass (stream, iframe)",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1200, 3600},
	}, []string{"pass"})

	// EncoderStallsTotal counts transcoder runs killed by the stall watchdog.
	EncoderStallsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hlsvault_encoder_stalls_total",
		Help: "Total transcoder runs killed because progress stalled",
	})

	// UploadObjectsTotal counts object uploads per storage tier.
	UploadObjectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlsvault_upload_objects_total",
		Help: "Total object uploads by tier and result",
	}, []string{"tier", "result"})
)

// IncPackageAsset records the outcome of one asset.
func IncPackageAsset(success bool) {
	PackageAssetsTotal.WithLabelValues(result(success)).Inc()
}

// ObserveEncode records the duration of one transcoder pass.
func ObserveEncode(pass string, d time.Duration) {
	EncodeDuration.WithLabelValues(pass).Observe(d.Seconds())
}

// IncEncoderStall records a watchdog kill.
func IncEncoderStall() {
	EncoderStallsTotal.Inc()
}

// IncUploadObject records one object upload.
func IncUploadObject(tier string, success bool) {
	UploadObjectsTotal.WithLabelValues(tier, result(success)).Inc()
}
