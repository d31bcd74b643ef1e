// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package encoder

import (
	"path/filepath"
	"strconv"

	"github.com/ManuGH/hlsvault/internal/asset"
)

// tempIFrameDir holds i-frame scratch output until the playlist is relocated.
const tempIFrameDir = "temp_iframes"

// StreamArgs builds the encrypted media pass. Segment URIs are written relative
// to the playlist through the segments/ base URL.
func StreamArgs(job Job, segmentDuration int) []string {
	return []string{
		"-i", job.Source,
		"-hls_time", strconv.Itoa(segmentDuration),
		"-hls_key_info_file", job.KeyInfoPath,
		"-hls_playlist_type", "vod",
		"-hls_segment_filename", filepath.Join(job.Dir, asset.SegmentsDir, asset.SegmentPattern),
		"-hls_flags", "independent_segments",
		"-hls_list_size", "0",
		"-hls_base_url", asset.SegmentsDir + "/",
		"-c", "copy",
		filepath.Join(job.Dir, asset.StreamPlaylist),
	}
}

// IFrameArgs builds the video-only, stream-copied trick-play pass.
func IFrameArgs(job Job, segmentDuration int) []string {
	return []string{
		"-i", job.Source,
		"-map", "0:v",
		"-c:v", "copy",
		"-f", "hls",
		"-hls_time", strconv.Itoa(segmentDuration),
		"-hls_playlist_type", "vod",
		"-hls_flags", "independent_segments+iframes_only",
		"-hls_segment_type", "fmp4",
		"-hls_list_size", "0",
		filepath.Join(job.Dir, tempIFrameDir, asset.IFramePlaylist),
	}
}
