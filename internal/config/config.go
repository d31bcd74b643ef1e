// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config provides configuration management for hlsvault.
//
// AppConfig is built once per process by Loader.Load and handed to component
// constructors by value. Nothing outside this package reads the environment.
package config

import "time"

// AppConfig is the immutable process configuration.
type AppConfig struct {
	Version string `yaml:"-"`

	Storage  StorageConfig  `yaml:"storage"`
	Packager PackagerConfig `yaml:"packager"`
	Proxy    ProxyConfig    `yaml:"proxy"`
	Cache    CacheConfig    `yaml:"cache"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Log      LogConfig      `yaml:"log"`
}

// StorageConfig describes the S3-compatible object store and its two tiers.
type StorageConfig struct {
	Endpoint      string        `yaml:"endpoint"`
	ControlBucket string        `yaml:"controlBucket"`
	CDNBucket     string        `yaml:"cdnBucket"`
	AccessKey     string        `yaml:"accessKey"`
	SecretKey     string        `yaml:"secretKey"`
	Region        string        `yaml:"region"`
	PathStyle     bool          `yaml:"pathStyle"`
	PresignTTL    time.Duration `yaml:"presignTTL"`
}

// PackagerConfig holds the batch packaging tunables.
type PackagerConfig struct {
	FFmpegPath      string   `yaml:"ffmpegPath"`
	SegmentDuration int      `yaml:"segmentDuration"` // seconds
	KeyLength       int      `yaml:"keyLength"`       // bytes
	InputDir        string   `yaml:"inputDir"`
	OutputDir       string   `yaml:"outputDir"`
	InputExtensions []string `yaml:"inputExtensions"`
	LedgerPath      string   `yaml:"ledgerPath"` // empty disables the ledger
}

// ProxyConfig holds the manifest proxy settings.
type ProxyConfig struct {
	CDNBaseURL      string        `yaml:"cdnBaseURL"`
	Listen          string        `yaml:"listen"`
	UpstreamTimeout time.Duration `yaml:"upstreamTimeout"`
	ProbeTimeout    time.Duration `yaml:"probeTimeout"`
	MaxBodyBytes    int64         `yaml:"maxBodyBytes"`
	RateLimitRPS    int           `yaml:"rateLimitRPS"` // 0 disables
}

// CacheConfig selects the optional response cache.
type CacheConfig struct {
	Mode      string        `yaml:"mode"` // off, memory or redis
	TTL       time.Duration `yaml:"ttl"`
	RedisAddr string        `yaml:"redisAddr"`
	MaxBytes  int64         `yaml:"maxBytes"` // memory backend body budget
}

// TracingConfig configures the OpenTelemetry exporter.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Exporter   string  `yaml:"exporter"` // grpc or http
	Endpoint   string  `yaml:"endpoint"`
	SampleRate float64 `yaml:"sampleRate"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

// Cache modes.
const (
	CacheOff    = "off"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		Storage: StorageConfig{
			Endpoint:      "https://nl.object-storage.io",
			ControlBucket: "hls-control-files",
			CDNBucket:     "hls-segments-cdn",
			Region:        "nl",
			PathStyle:     true,
			PresignTTL:    time.Hour,
		},
		Packager: PackagerConfig{
			FFmpegPath:      "ffmpeg",
			SegmentDuration: 6,
			KeyLength:       16,
			InputDir:        "input",
			OutputDir:       "output",
			InputExtensions: []string{".mp4"},
		},
		Proxy: ProxyConfig{
			Listen:          ":8000",
			UpstreamTimeout: 30 * time.Second,
			ProbeTimeout:    10 * time.Second,
			MaxBodyBytes:    64 << 20,
		},
		Cache: CacheConfig{
			Mode:     CacheOff,
			TTL:      time.Hour,
			MaxBytes: 256 << 20,
		},
		Tracing: TracingConfig{
			Exporter:   "grpc",
			Endpoint:   "localhost:4317",
			SampleRate: 1.0,
		},
		Log: LogConfig{
			Level:   "info",
			Service: "hlsvault",
		},
	}
}

// Redacted returns a copy safe for logging.
func (c AppConfig) Redacted() AppConfig {
	out := c
	out.Storage.AccessKey = mask(c.Storage.AccessKey)
	out.Storage.SecretKey = mask(c.Storage.SecretKey)
	out.Packager.InputExtensions = append([]string(nil), c.Packager.InputExtensions...)
	return out
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}
