// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package asset

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyAndContentType(t *testing.T) {
	tests := []struct {
		path string
		kind Kind
		ct   string
	}{
		{"videos/demo/stream.m3u8", KindPlaylist, "application/vnd.apple.mpegurl"},
		{"videos/demo/iframes.m3u8", KindPlaylist, "application/vnd.apple.mpegurl"},
		{"videos/demo/segments/segment_001.ts", KindSegment, "video/mp2t"},
		{"videos/demo/key.key", KindKey, "application/octet-stream"},
		{"videos/demo/poster.jpg", KindOther, "application/octet-stream"},
		{"videos/demo/STREAM.M3U8", KindOther, "application/octet-stream"},
		{"", KindOther, "application/octet-stream"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.kind, Classify(tt.path))
			assert.Equal(t, tt.ct, ContentType(tt.path))
		})
	}
}

func TestTierFor(t *testing.T) {
	assert.Equal(t, TierSegment, TierFor(KindSegment))
	assert.Equal(t, TierControl, TierFor(KindPlaylist))
	assert.Equal(t, TierControl, TierFor(KindKey))
	assert.Equal(t, TierControl, TierFor(KindOther))
}

func TestObjectKeys(t *testing.T) {
	assert.Equal(t, "videos/demo/key.key", ObjectKey("demo", KeyName))
	assert.Equal(t, "videos/demo/stream.m3u8", ObjectKey("demo", StreamPlaylist))
	assert.Equal(t, "videos/demo/segments/segment_007.ts", SegmentObjectKey("demo", "segment_007.ts"))
}

func TestIDFromSource(t *testing.T) {
	id, err := IDFromSource(filepath.Join("input", "big_buck-bunny.v2.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "big_buck-bunny.v2", id)

	for _, bad := range []string{"input/.mp4", "input/my movie.mp4", "input/..mp4", "input/-rf.mp4"} {
		_, err := IDFromSource(bad)
		assert.Error(t, err, bad)
	}
}

func TestVideoAssetPaths(t *testing.T) {
	a := VideoAsset{ID: "demo", Dir: filepath.Join("out", "demo")}
	assert.Equal(t, filepath.Join("out", "demo", "key.key"), a.KeyPath())
	assert.Equal(t, filepath.Join("out", "demo", "key_info"), a.KeyInfoPath())
	assert.Equal(t, filepath.Join("out", "demo", "segments"), a.SegmentsPath())
	assert.True(t, StateFailed.IsTerminal())
	assert.False(t, StatePackaged.IsTerminal())
}
