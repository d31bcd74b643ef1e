// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Modes accepted by New.
const (
	ModeOff    = "off"
	ModeMemory = "memory"
	ModeRedis  = "redis"
)

// Options selects and sizes a cache backend.
type Options struct {
	Mode      string
	RedisAddr string
	MaxBytes  int64 // memory backend only; <= 0 means DefaultMaxBytes
}

// New builds the cache selected by opts.Mode.
func New(ctx context.Context, opts Options, logger zerolog.Logger) (Cache, error) {
	switch opts.Mode {
	case "", ModeOff:
		return NoOp{}, nil
	case ModeMemory:
		return NewMemoryCache(time.Minute, opts.MaxBytes), nil
	case ModeRedis:
		return NewRedisCache(ctx, RedisConfig{Addr: opts.RedisAddr}, logger)
	default:
		return nil, fmt.Errorf("unknown cache mode %q", opts.Mode)
	}
}
