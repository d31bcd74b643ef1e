// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package testutil provides fakes shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// FakeFFmpeg is a scripted transcoder. It writes the files ffmpeg would write
// for the stream and i-frame passes, deterministically derived from the source
// file name, so repeated runs produce identical output.
type FakeFFmpeg struct {
	Segments int // segments per stream pass, default 3

	// FailOn returns a non-nil error to fail the matching invocation.
	FailOn func(args []string) error

	mu    sync.Mutex
	calls [][]string
}

// Calls returns a copy of every argument vector received.
func (f *FakeFFmpeg) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = slices.Clone(c)
	}
	return out
}

// Run implements encoder.Exec.
func (f *FakeFFmpeg) Run(ctx context.Context, _ string, args []string) error {
	f.mu.Lock()
	f.calls = append(f.calls, slices.Clone(args))
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if f.FailOn != nil {
		if err := f.FailOn(args); err != nil {
			return err
		}
	}
	if len(args) == 0 {
		return fmt.Errorf("no arguments")
	}

	source := ArgValue(args, "-i")
	out := args[len(args)-1]
	if pattern := ArgValue(args, "-hls_segment_filename"); pattern != "" {
		return f.writeStream(source, pattern, out)
	}
	return f.writeIFrames(source, out)
}

func (f *FakeFFmpeg) segments() int {
	if f.Segments <= 0 {
		return 3
	}
	return f.Segments
}

func (f *FakeFFmpeg) writeStream(source, pattern, playlist string) error {
	var b strings.Builder
	b.WriteString("#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:6\n#EXT-X-PLAYLIST-TYPE:VOD\n")
	b.WriteString("#EXT-X-KEY:METHOD=AES-128,URI=\"key.key\"\n")
	for i := 0; i < f.segments(); i++ {
		seg := fmt.Sprintf(pattern, i)
		payload := fmt.Sprintf("ts:%s:%d", filepath.Base(source), i)
		if err := os.WriteFile(seg, []byte(payload), 0o640); err != nil {
			return err
		}
		fmt.Fprintf(&b, "#EXTINF:6.000000,\nsegments/%s\n", filepath.Base(seg))
	}
	b.WriteString("#EXT-X-ENDLIST\n")
	return os.WriteFile(playlist, []byte(b.String()), 0o640)
}

func (f *FakeFFmpeg) writeIFrames(source, playlist string) error {
	dir := filepath.Dir(playlist)
	if err := os.WriteFile(filepath.Join(dir, "init.mp4"), []byte("init"), 0o640); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "iframes0.m4s"), []byte("scratch"), 0o640); err != nil {
		return err
	}
	body := fmt.Sprintf("#EXTM3U\n#EXT-X-I-FRAMES-ONLY\n#EXT-X-MAP:URI=\"init.mp4\"\n# source %s\n#EXT-X-ENDLIST\n", filepath.Base(source))
	return os.WriteFile(playlist, []byte(body), 0o640)
}

// ArgValue returns the value following flag in args, or "".
func ArgValue(args []string, flag string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}
