// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{} // Mechanical tracking of consumed keys
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	key = EnvPrefix + key
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	key = EnvPrefix + key
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	key = EnvPrefix + key
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envInt64(key string, defaultVal int64) int64 {
	key = EnvPrefix + key
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt64(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	key = EnvPrefix + key
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	key = EnvPrefix + key
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

func (l *Loader) envStrings(key string, defaultVal []string) []string {
	key = EnvPrefix + key
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseStringSlice(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults
// It enforces Strict Validated Order: Parse File (Strict) -> Apply Env -> Validate
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes a YAML file over cfg with STRICT parsing.
// Unknown fields are fatal to prevent silent misconfiguration.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("strict config parse error: %w: %v", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

// mergeEnvConfig overlays HLSVAULT_* environment variables onto cfg.
func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	s := &cfg.Storage
	s.Endpoint = l.envString("STORAGE_ENDPOINT", s.Endpoint)
	s.ControlBucket = l.envString("CONTROL_BUCKET", s.ControlBucket)
	s.CDNBucket = l.envString("CDN_BUCKET", s.CDNBucket)
	s.AccessKey = l.envString("ACCESS_KEY", s.AccessKey)
	s.SecretKey = l.envString("SECRET_KEY", s.SecretKey)
	s.Region = l.envString("REGION", s.Region)
	s.PathStyle = l.envBool("STORAGE_PATH_STYLE", s.PathStyle)
	s.PresignTTL = l.envDuration("PRESIGN_TTL", s.PresignTTL)

	p := &cfg.Packager
	p.FFmpegPath = l.envString("FFMPEG_PATH", p.FFmpegPath)
	p.SegmentDuration = l.envInt("SEGMENT_DURATION", p.SegmentDuration)
	p.KeyLength = l.envInt("KEY_LENGTH", p.KeyLength)
	p.InputDir = l.envString("INPUT_DIR", p.InputDir)
	p.OutputDir = l.envString("OUTPUT_DIR", p.OutputDir)
	p.InputExtensions = l.envStrings("INPUT_EXTENSIONS", p.InputExtensions)
	p.LedgerPath = l.envString("LEDGER_PATH", p.LedgerPath)

	x := &cfg.Proxy
	x.CDNBaseURL = l.envString("CDN_BASE_URL", x.CDNBaseURL)
	x.Listen = l.envString("LISTEN", x.Listen)
	x.UpstreamTimeout = l.envDuration("UPSTREAM_TIMEOUT", x.UpstreamTimeout)
	x.ProbeTimeout = l.envDuration("PROBE_TIMEOUT", x.ProbeTimeout)
	x.MaxBodyBytes = l.envInt64("MAX_BODY_BYTES", x.MaxBodyBytes)
	x.RateLimitRPS = l.envInt("RATE_LIMIT_RPS", x.RateLimitRPS)

	c := &cfg.Cache
	c.Mode = strings.ToLower(l.envString("CACHE_MODE", c.Mode))
	c.TTL = l.envDuration("CACHE_TTL", c.TTL)
	c.RedisAddr = l.envString("REDIS_ADDR", c.RedisAddr)
	c.MaxBytes = l.envInt64("CACHE_MAX_BYTES", c.MaxBytes)

	t := &cfg.Tracing
	t.Enabled = l.envBool("TRACING_ENABLED", t.Enabled)
	t.Exporter = l.envString("TRACING_EXPORTER", t.Exporter)
	t.Endpoint = l.envString("TRACING_ENDPOINT", t.Endpoint)
	t.SampleRate = l.envFloat("TRACING_SAMPLE_RATE", t.SampleRate)

	cfg.Log.Level = l.envString("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Service = l.envString("LOG_SERVICE", cfg.Log.Service)
}
