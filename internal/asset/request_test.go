// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package asset

import (
	"testing"

	"github.com/ManuGH/hlsvault/internal/fault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequest(t *testing.T) {
	req, err := ParseRequest("videos/demo/segments/segment_001.ts")
	require.NoError(t, err)
	assert.Equal(t, "demo", req.AssetID)
	assert.Equal(t, "segments/segment_001.ts", req.Resource)
	assert.Equal(t, KindSegment, req.Kind)
	assert.Equal(t, "videos/demo/segments/segment_001.ts", req.Path())
	assert.Equal(t, "video/mp2t", req.ContentType())
}

func TestParseRequest_Rejects(t *testing.T) {
	bad := []string{
		"",
		"videos",
		"videos/demo",
		"videos/demo/",
		"media/demo/stream.m3u8",
		"videos//stream.m3u8",
		"videos/../stream.m3u8",
		"videos/demo/../other/key.key",
		"videos/demo/./stream.m3u8",
		"videos/demo/segments//x.ts",
		`videos/demo/..\key.key`,
	}
	for _, p := range bad {
		t.Run(p, func(t *testing.T) {
			_, err := ParseRequest(p)
			require.Error(t, err)
			assert.ErrorIs(t, err, fault.ErrValidation)
		})
	}
}
