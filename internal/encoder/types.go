// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package encoder drives ffmpeg to produce an encrypted single-rendition HLS
// bundle and its companion i-frame playlist.
package encoder

import (
	"context"
	"errors"
	"fmt"
)

// Exec abstracts the command execution for testing
type Exec interface {
	Run(ctx context.Context, name string, args []string) error
}

// Pass names a transcoder invocation.
type Pass string

const (
	PassStream Pass = "stream"
	PassIFrame Pass = "iframe"
)

// Job is the input for one asset.
type Job struct {
	AssetID     string
	Source      string // source media file
	Dir         string // asset staging directory
	KeyInfoPath string // written by the key manager
}

// ErrStalled is returned when ffmpeg stops reporting progress.
var ErrStalled = errors.New("ffmpeg stalled")

// RunError describes a failed transcoder run.
type RunError struct {
	Name     string
	ExitCode int    // -1 when the process did not exit normally
	Stderr   string // tail of the diagnostic output
	Err      error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s exited with code %d: %v", e.Name, e.ExitCode, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// Diagnostics returns the stderr tail carried by err, if any.
func Diagnostics(err error) string {
	var re *RunError
	if errors.As(err, &re) {
		return re.Stderr
	}
	return ""
}
