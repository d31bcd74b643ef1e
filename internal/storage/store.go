// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package storage places packaged assets into the two-tier object store and
// issues presigned read URLs.
package storage

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/ManuGH/hlsvault/internal/asset"
	"github.com/ManuGH/hlsvault/internal/fault"
)

// DefaultPresignTTL is used when callers pass a non-positive TTL.
const DefaultPresignTTL = time.Hour

// ObjectStore is one bucket of the object store.
type ObjectStore interface {
	// Bucket returns the bucket name, for logs.
	Bucket() string
	// Put stores size bytes from body under key.
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	// Check verifies the bucket is reachable with the configured credentials.
	Check(ctx context.Context) error
	// Presign returns a time-limited GET URL for key.
	Presign(ctx context.Context, key string, ttl time.Duration) (string, error)
	// ListPrefixes returns the common prefixes below prefix split at delimiter.
	ListPrefixes(ctx context.Context, prefix, delimiter string) ([]string, error)
}

// Tiers are the two named ports of the store: control files and segments.
type Tiers struct {
	Control ObjectStore
	Segment ObjectStore
}

// For routes a tier to its store.
func (t Tiers) For(tier asset.Tier) ObjectStore {
	if tier == asset.TierSegment {
		return t.Segment
	}
	return t.Control
}

// ListAssets returns the asset identifiers present in the control tier.
func ListAssets(ctx context.Context, store ObjectStore) ([]string, error) {
	root := asset.Prefix + "/"
	prefixes, err := store.ListPrefixes(ctx, root, "/")
	if err != nil {
		return nil, fault.Storage("list assets", err)
	}
	ids := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		id := strings.TrimSuffix(strings.TrimPrefix(p, root), "/")
		if asset.IsSafeID(id) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
