// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ManuGH/hlsvault/internal/validate"
)

// Validate validates an AppConfig using the centralized validation package.
// Missing storage credentials are reported as ErrMissingCredentials.
func Validate(cfg AppConfig) error {
	if strings.TrimSpace(cfg.Storage.AccessKey) == "" || strings.TrimSpace(cfg.Storage.SecretKey) == "" {
		return ErrMissingCredentials
	}

	v := validate.New()

	v.URL("Storage.Endpoint", cfg.Storage.Endpoint, []string{"http", "https"})
	v.NotEmpty("Storage.ControlBucket", cfg.Storage.ControlBucket)
	v.NotEmpty("Storage.CDNBucket", cfg.Storage.CDNBucket)
	v.NotEmpty("Storage.Region", cfg.Storage.Region)
	if cfg.Storage.ControlBucket != "" && cfg.Storage.ControlBucket == cfg.Storage.CDNBucket {
		v.AddError("Storage.CDNBucket", "must differ from the control bucket", cfg.Storage.CDNBucket)
	}
	positiveDuration(v, "Storage.PresignTTL", cfg.Storage.PresignTTL)

	v.NotEmpty("Packager.FFmpegPath", cfg.Packager.FFmpegPath)
	v.Range("Packager.SegmentDuration", cfg.Packager.SegmentDuration, 1, 60)
	v.Range("Packager.KeyLength", cfg.Packager.KeyLength, 16, 32)
	v.NotEmpty("Packager.InputDir", cfg.Packager.InputDir)
	v.NotEmpty("Packager.OutputDir", cfg.Packager.OutputDir)
	v.Extensions("Packager.InputExtensions", cfg.Packager.InputExtensions)

	if cfg.Proxy.CDNBaseURL != "" {
		v.URL("Proxy.CDNBaseURL", cfg.Proxy.CDNBaseURL, []string{"http", "https"})
	}
	v.ListenAddr("Proxy.Listen", cfg.Proxy.Listen)
	positiveDuration(v, "Proxy.UpstreamTimeout", cfg.Proxy.UpstreamTimeout)
	positiveDuration(v, "Proxy.ProbeTimeout", cfg.Proxy.ProbeTimeout)
	if cfg.Proxy.MaxBodyBytes <= 0 {
		v.AddError("Proxy.MaxBodyBytes", "value must be positive", cfg.Proxy.MaxBodyBytes)
	}
	v.NonNegative("Proxy.RateLimitRPS", cfg.Proxy.RateLimitRPS)

	v.OneOf("Cache.Mode", cfg.Cache.Mode, []string{CacheOff, CacheMemory, CacheRedis})
	if cfg.Cache.Mode != CacheOff {
		positiveDuration(v, "Cache.TTL", cfg.Cache.TTL)
	}
	if cfg.Cache.Mode == CacheMemory && cfg.Cache.MaxBytes <= 0 {
		v.AddError("Cache.MaxBytes", "value must be positive", cfg.Cache.MaxBytes)
	}
	if cfg.Cache.Mode == CacheRedis {
		v.NotEmpty("Cache.RedisAddr", cfg.Cache.RedisAddr)
	}

	if cfg.Tracing.Enabled {
		v.OneOf("Tracing.Exporter", cfg.Tracing.Exporter, []string{"grpc", "http"})
		v.NotEmpty("Tracing.Endpoint", cfg.Tracing.Endpoint)
		if cfg.Tracing.SampleRate < 0 || cfg.Tracing.SampleRate > 1 {
			v.AddError("Tracing.SampleRate", "must be between 0 and 1", cfg.Tracing.SampleRate)
		}
	}

	return v.Err()
}

// ValidateServe checks the settings only the proxy server needs.
func ValidateServe(cfg AppConfig) error {
	if strings.TrimSpace(cfg.Proxy.CDNBaseURL) == "" {
		return ErrMissingCDNBaseURL
	}
	return nil
}

func positiveDuration(v *validate.Validator, field string, d time.Duration) {
	if d <= 0 {
		v.AddError(field, fmt.Sprintf("duration must be positive, got %s", d), d)
	}
}
