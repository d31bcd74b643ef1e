// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package encoder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/ManuGH/hlsvault/internal/fault"
	"github.com/ManuGH/hlsvault/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJob(t *testing.T) Job {
	t.Helper()
	root := t.TempDir()
	src := filepath.Join(root, "demo.mp4")
	require.NoError(t, os.WriteFile(src, []byte("mp4"), 0o600))
	dir := filepath.Join(root, "out", "demo")
	return Job{AssetID: "demo", Source: src, Dir: dir, KeyInfoPath: filepath.Join(dir, "key_info")}
}

func TestStreamArgs(t *testing.T) {
	job := Job{Source: "/in/demo.mp4", Dir: "/out/demo", KeyInfoPath: "/out/demo/key_info"}
	want := []string{
		"-i", "/in/demo.mp4",
		"-hls_time", "6",
		"-hls_key_info_file", "/out/demo/key_info",
		"-hls_playlist_type", "vod",
		"-hls_segment_filename", "/out/demo/segments/segment_%03d.ts",
		"-hls_flags", "independent_segments",
		"-hls_list_size", "0",
		"-hls_base_url", "segments/",
		"-c", "copy",
		"/out/demo/stream.m3u8",
	}
	assert.Equal(t, want, StreamArgs(job, 6))
}

func TestIFrameArgs(t *testing.T) {
	job := Job{Source: "/in/demo.mp4", Dir: "/out/demo"}
	want := []string{
		"-i", "/in/demo.mp4",
		"-map", "0:v",
		"-c:v", "copy",
		"-f", "hls",
		"-hls_time", "4",
		"-hls_playlist_type", "vod",
		"-hls_flags", "independent_segments+iframes_only",
		"-hls_segment_type", "fmp4",
		"-hls_list_size", "0",
		"/out/demo/temp_iframes/iframes.m3u8",
	}
	assert.Equal(t, want, IFrameArgs(job, 4))
}

func TestEncode_ProducesBundle(t *testing.T) {
	job := newJob(t)
	ff := &testutil.FakeFFmpeg{Segments: 2}
	enc := New(ff, "ffmpeg", 6)

	require.NoError(t, enc.Prepare(job.Dir))
	require.NoError(t, enc.Encode(context.Background(), job))

	assert.FileExists(t, filepath.Join(job.Dir, "stream.m3u8"))
	assert.FileExists(t, filepath.Join(job.Dir, "iframes.m3u8"))
	assert.FileExists(t, filepath.Join(job.Dir, "segments", "segment_000.ts"))
	assert.FileExists(t, filepath.Join(job.Dir, "segments", "segment_001.ts"))
	assert.NoDirExists(t, filepath.Join(job.Dir, "temp_iframes"), "scratch output must not survive")
	assert.Len(t, ff.Calls(), 2)
}

func TestEncode_StreamFailureSkipsIFramePass(t *testing.T) {
	job := newJob(t)
	ff := &testutil.FakeFFmpeg{FailOn: func(args []string) error {
		if slices.Contains(args, "-hls_key_info_file") {
			return &RunError{Name: "ffmpeg", ExitCode: 1, Stderr: "Invalid data found when processing input", Err: errors.New("exit status 1")}
		}
		return nil
	}}
	enc := New(ff, "ffmpeg", 6)
	require.NoError(t, enc.Prepare(job.Dir))

	err := enc.Encode(context.Background(), job)
	require.ErrorIs(t, err, fault.ErrProcessing)

	var fe *fault.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "Invalid data found when processing input", fe.Body)
	assert.Len(t, ff.Calls(), 1)
}

func TestEncode_IFrameFailureCleansScratch(t *testing.T) {
	job := newJob(t)
	ff := &testutil.FakeFFmpeg{FailOn: func(args []string) error {
		if slices.Contains(args, "-map") {
			return errors.New("exit status 69")
		}
		return nil
	}}
	enc := New(ff, "ffmpeg", 6)
	require.NoError(t, enc.Prepare(job.Dir))

	err := enc.Encode(context.Background(), job)
	require.ErrorIs(t, err, fault.ErrProcessing)
	assert.NoDirExists(t, filepath.Join(job.Dir, "temp_iframes"))
	assert.NoFileExists(t, filepath.Join(job.Dir, "iframes.m3u8"))
}

func TestEncode_MissingSource(t *testing.T) {
	job := newJob(t)
	job.Source = filepath.Join(t.TempDir(), "missing.mp4")
	ff := &testutil.FakeFFmpeg{}

	err := New(ff, "ffmpeg", 6).Encode(context.Background(), job)
	require.ErrorIs(t, err, fault.ErrValidation)
	assert.Empty(t, ff.Calls())
}

func TestPrepare_RemovesStaleOutput(t *testing.T) {
	job := newJob(t)
	stale := filepath.Join(job.Dir, "segments", "segment_099.ts")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o750))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o600))

	require.NoError(t, New(&testutil.FakeFFmpeg{}, "ffmpeg", 6).Prepare(job.Dir))
	assert.NoFileExists(t, stale)
	assert.DirExists(t, filepath.Join(job.Dir, "segments"))
}

func TestDiagnostics(t *testing.T) {
	assert.Equal(t, "boom", Diagnostics(&RunError{Stderr: "boom", Err: errors.New("x")}))
	assert.Empty(t, Diagnostics(errors.New("plain")))
}
