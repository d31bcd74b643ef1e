// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package encoder

import (
	"bytes"
	"strconv"
	"strings"
	"sync"
)

// Progress is one snapshot of ffmpeg's -progress output.
type Progress struct {
	Frame     int
	OutTimeUs int64
	TotalSize int64
	Speed     string
}

func (p Progress) hasAdvanced(prev Progress) bool {
	return p.OutTimeUs > prev.OutTimeUs || p.TotalSize > prev.TotalSize || p.Frame > prev.Frame
}

// progressWriter parses key=value lines and publishes a snapshot on every
// progress= line. Snapshots are dropped if nobody is listening.
type progressWriter struct {
	ch      chan<- Progress
	partial []byte
	current Progress
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.partial = append(w.partial, p...)
	for {
		i := bytes.IndexByte(w.partial, '\n')
		if i < 0 {
			break
		}
		w.line(string(w.partial[:i]))
		w.partial = w.partial[i+1:]
	}
	return len(p), nil
}

func (w *progressWriter) line(line string) {
	key, val, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return
	}
	key, val = strings.TrimSpace(key), strings.TrimSpace(val)

	switch key {
	case "frame":
		if v, err := strconv.Atoi(val); err == nil {
			w.current.Frame = v
		}
	case "out_time_us":
		if v, err := strconv.ParseInt(val, 10, 64); err == nil {
			w.current.OutTimeUs = v
		}
	case "total_size":
		if v, err := strconv.ParseInt(val, 10, 64); err == nil {
			w.current.TotalSize = v
		}
	case "speed":
		w.current.Speed = val
	case "progress":
		select {
		case w.ch <- w.current:
		default:
		}
	}
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(string(t.buf))
}
