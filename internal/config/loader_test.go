// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setCredentials(t *testing.T) {
	t.Helper()
	t.Setenv("HLSVAULT_ACCESS_KEY", "AKIA-TEST")
	t.Setenv("HLSVAULT_SECRET_KEY", "secret")
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	setCredentials(t)

	cfg, err := NewLoader("", "1.2.3").Load()
	require.NoError(t, err)

	assert.Equal(t, "1.2.3", cfg.Version)
	assert.Equal(t, "https://nl.object-storage.io", cfg.Storage.Endpoint)
	assert.Equal(t, "hls-control-files", cfg.Storage.ControlBucket)
	assert.Equal(t, "hls-segments-cdn", cfg.Storage.CDNBucket)
	assert.Equal(t, "nl", cfg.Storage.Region)
	assert.True(t, cfg.Storage.PathStyle)
	assert.Equal(t, time.Hour, cfg.Storage.PresignTTL)
	assert.Equal(t, "ffmpeg", cfg.Packager.FFmpegPath)
	assert.Equal(t, 6, cfg.Packager.SegmentDuration)
	assert.Equal(t, 16, cfg.Packager.KeyLength)
	assert.Equal(t, []string{".mp4"}, cfg.Packager.InputExtensions)
	assert.Equal(t, ":8000", cfg.Proxy.Listen)
	assert.Equal(t, 30*time.Second, cfg.Proxy.UpstreamTimeout)
	assert.Equal(t, 10*time.Second, cfg.Proxy.ProbeTimeout)
	assert.Equal(t, CacheOff, cfg.Cache.Mode)
}

func TestLoad_MissingCredentials(t *testing.T) {
	t.Setenv("HLSVAULT_ACCESS_KEY", "only-access")

	_, err := NewLoader("", "dev").Load()
	require.ErrorIs(t, err, ErrMissingCredentials)
}

func TestLoad_Precedence(t *testing.T) {
	setCredentials(t)
	path := writeConfig(t, `
storage:
  controlBucket: file-control
  region: eu
packager:
  segmentDuration: 4
proxy:
  cdnBaseURL: https://file.cdn.example
  upstreamTimeout: 20s
cache:
  mode: memory
`)
	t.Setenv("HLSVAULT_REGION", "us-east-1")
	t.Setenv("HLSVAULT_SEGMENT_DURATION", "10")
	t.Setenv("HLSVAULT_CACHE_MAX_BYTES", "1048576")

	l := NewLoader(path, "dev")
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, "file-control", cfg.Storage.ControlBucket, "file overrides default")
	assert.Equal(t, "us-east-1", cfg.Storage.Region, "env overrides file")
	assert.Equal(t, 10, cfg.Packager.SegmentDuration)
	assert.Equal(t, "https://file.cdn.example", cfg.Proxy.CDNBaseURL)
	assert.Equal(t, 20*time.Second, cfg.Proxy.UpstreamTimeout)
	assert.Equal(t, CacheMemory, cfg.Cache.Mode)
	assert.Equal(t, int64(1<<20), cfg.Cache.MaxBytes)
	assert.Equal(t, "hls-segments-cdn", cfg.Storage.CDNBucket, "default survives")
	assert.Contains(t, l.ConsumedEnvKeys, "HLSVAULT_REGION")
}

func TestLoad_StrictUnknownField(t *testing.T) {
	setCredentials(t)
	path := writeConfig(t, "storage:\n  bucket: nope\n")

	_, err := NewLoader(path, "dev").Load()
	require.ErrorIs(t, err, ErrUnknownConfigField)
}

func TestLoad_RejectsNonYAML(t *testing.T) {
	setCredentials(t)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	_, err := NewLoader(path, "dev").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only YAML supported")
}

func TestLoad_EmptyFileKeepsDefaults(t *testing.T) {
	setCredentials(t)
	cfg, err := NewLoader(writeConfig(t, ""), "dev").Load()
	require.NoError(t, err)
	assert.Equal(t, Defaults().Proxy.Listen, cfg.Proxy.Listen)
}

func TestValidate_AggregatesFieldErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Storage.AccessKey = "a"
	cfg.Storage.SecretKey = "b"
	cfg.Packager.SegmentDuration = 0
	cfg.Cache.Mode = "redis"
	cfg.Storage.CDNBucket = cfg.Storage.ControlBucket

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Packager.SegmentDuration")
	assert.Contains(t, err.Error(), "Cache.RedisAddr")
	assert.Contains(t, err.Error(), "Storage.CDNBucket")
}

func TestValidate_MemoryCacheNeedsBudget(t *testing.T) {
	cfg := Defaults()
	cfg.Storage.AccessKey = "a"
	cfg.Storage.SecretKey = "b"
	cfg.Cache.Mode = CacheMemory
	require.NoError(t, Validate(cfg))

	cfg.Cache.MaxBytes = 0
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Cache.MaxBytes")
}

func TestValidateServe(t *testing.T) {
	cfg := Defaults()
	require.ErrorIs(t, ValidateServe(cfg), ErrMissingCDNBaseURL)
	cfg.Proxy.CDNBaseURL = "https://cdn.example.com"
	require.NoError(t, ValidateServe(cfg))
}

func TestRedacted(t *testing.T) {
	cfg := Defaults()
	cfg.Storage.AccessKey = "AKIA"
	cfg.Storage.SecretKey = "secret"

	r := cfg.Redacted()
	assert.Equal(t, "***", r.Storage.AccessKey)
	assert.Equal(t, "***", r.Storage.SecretKey)
	assert.Equal(t, "AKIA", cfg.Storage.AccessKey)
}
