// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ManuGH/hlsvault/internal/asset"
	"github.com/ManuGH/hlsvault/internal/fault"
	xglog "github.com/ManuGH/hlsvault/internal/log"
	"github.com/ManuGH/hlsvault/internal/metrics"
)

// Report summarizes one asset upload.
type Report struct {
	ControlObjects int
	SegmentObjects int
}

// Uploader places an asset directory into the control and segment tiers.
type Uploader struct {
	tiers Tiers
}

// NewUploader returns an Uploader writing to tiers.
func NewUploader(tiers Tiers) *Uploader {
	return &Uploader{tiers: tiers}
}

// controlFiles are uploaded in this order, each only if present.
var controlFiles = []string{asset.KeyName, asset.StreamPlaylist, asset.IFramePlaylist}

// UploadAsset uploads the key and playlists to the control tier, then every
// segment in lexical order to the segment tier. The first failure aborts the
// rest; objects already written are not rolled back. On success the local
// directory is removed.
func (u *Uploader) UploadAsset(ctx context.Context, id, dir string) (Report, error) {
	var rep Report
	if err := asset.ValidateID(id); err != nil {
		return rep, fault.Validation("upload asset", err)
	}
	logger := xglog.FromContext(ctx).With().Str(xglog.FieldAssetID, id).Logger()

	for _, name := range controlFiles {
		local := filepath.Join(dir, name)
		if _, err := os.Stat(local); err != nil {
			if os.IsNotExist(err) {
				logger.Debug().Str(xglog.FieldPath, local).Msg("control file absent, skipping")
				continue
			}
			return rep, fault.Storage("stat control file", err)
		}
		if err := u.uploadFile(ctx, asset.TierControl, local, asset.ObjectKey(id, name)); err != nil {
			return rep, err
		}
		rep.ControlObjects++
	}

	segments, err := filepath.Glob(filepath.Join(dir, asset.SegmentsDir, "*.ts"))
	if err != nil {
		return rep, fault.Storage("list segments", err)
	}
	// Glob returns matches in lexical order.
	for _, local := range segments {
		key := asset.SegmentObjectKey(id, filepath.Base(local))
		if err := u.uploadFile(ctx, asset.TierSegment, local, key); err != nil {
			return rep, err
		}
		rep.SegmentObjects++
	}

	if err := os.RemoveAll(dir); err != nil {
		return rep, fault.Storage("remove local asset dir", err)
	}

	logger.Info().
		Str(xglog.FieldEvent, "storage.asset_uploaded").
		Int("control_objects", rep.ControlObjects).
		Int("segment_objects", rep.SegmentObjects).
		Msg("asset uploaded")
	return rep, nil
}

func (u *Uploader) uploadFile(ctx context.Context, tier asset.Tier, local, key string) error {
	store := u.tiers.For(tier)
	logger := xglog.FromContext(ctx)

	f, err := os.Open(local)
	if err != nil {
		metrics.IncUploadObject(string(tier), false)
		return fault.Storage("open "+local, err)
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		metrics.IncUploadObject(string(tier), false)
		return fault.Storage("stat "+local, err)
	}

	if err := store.Put(ctx, key, f, st.Size(), asset.ContentType(key)); err != nil {
		metrics.IncUploadObject(string(tier), false)
		logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "storage.upload_failed").
			Str(xglog.FieldTier, string(tier)).
			Str(xglog.FieldBucket, store.Bucket()).
			Str(xglog.FieldObjectKey, key).
			Msg("object upload failed")
		return fault.Storage(fmt.Sprintf("upload %s to %s tier", key, tier), err)
	}

	metrics.IncUploadObject(string(tier), true)
	logger.Debug().
		Str(xglog.FieldTier, string(tier)).
		Str(xglog.FieldBucket, store.Bucket()).
		Str(xglog.FieldObjectKey, key).
		Int64("bytes", st.Size()).
		Msg("object uploaded")
	return nil
}

// PresignURL returns a signed read URL for a control-tier object. A failure is
// logged and reported as ok=false so callers can treat it as a soft miss.
func (u *Uploader) PresignURL(ctx context.Context, key string, ttl time.Duration) (string, bool) {
	if ttl <= 0 {
		ttl = DefaultPresignTTL
	}
	url, err := u.tiers.Control.Presign(ctx, key, ttl)
	if err != nil || url == "" {
		xglog.FromContext(ctx).Warn().
			Err(err).
			Str(xglog.FieldEvent, "storage.presign_failed").
			Str(xglog.FieldObjectKey, key).
			Msg("presigned url generation failed")
		return "", false
	}
	return url, true
}

// Check verifies both tiers are reachable.
func (u *Uploader) Check(ctx context.Context) error {
	for _, tier := range []asset.Tier{asset.TierControl, asset.TierSegment} {
		if err := u.tiers.For(tier).Check(ctx); err != nil {
			return fault.Storage(fmt.Sprintf("check %s tier", tier), err)
		}
	}
	return nil
}
