// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package encoder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ManuGH/hlsvault/internal/asset"
	"github.com/ManuGH/hlsvault/internal/fault"
	xglog "github.com/ManuGH/hlsvault/internal/log"
	"github.com/ManuGH/hlsvault/internal/metrics"
	"github.com/google/renameio/v2"
)

// Encoder runs the stream and i-frame passes for one asset at a time.
type Encoder struct {
	exec            Exec
	ffmpegPath      string
	segmentDuration int
}

// New returns an Encoder invoking ffmpegPath through exec.
func New(exec Exec, ffmpegPath string, segmentDuration int) *Encoder {
	return &Encoder{exec: exec, ffmpegPath: ffmpegPath, segmentDuration: segmentDuration}
}

// Prepare destroys any previous output for dir and recreates the layout, so
// re-encoding an asset always starts clean.
func (e *Encoder) Prepare(dir string) error {
	const op = "prepare asset dir"
	if err := os.RemoveAll(dir); err != nil {
		return fault.Storage(op, err)
	}
	if err := os.MkdirAll(filepath.Join(dir, asset.SegmentsDir), 0o750); err != nil {
		return fault.Storage(op, err)
	}
	return nil
}

// Encode runs both passes. Both must succeed; a failure is a processing fault
// carrying ffmpeg's diagnostic output. A missing source is a validation fault.
func (e *Encoder) Encode(ctx context.Context, job Job) error {
	if st, err := os.Stat(job.Source); err != nil || st.IsDir() {
		if err == nil {
			err = errors.New("source is a directory")
		}
		return fault.Validation("encode", fmt.Errorf("source %s: %w", job.Source, err))
	}

	if err := e.run(ctx, PassStream, StreamArgs(job, e.segmentDuration)); err != nil {
		return err
	}
	return e.encodeIFrames(ctx, job)
}

// encodeIFrames writes into a scratch directory and keeps only the playlist.
func (e *Encoder) encodeIFrames(ctx context.Context, job Job) error {
	tmp := filepath.Join(job.Dir, tempIFrameDir)
	if err := os.MkdirAll(tmp, 0o750); err != nil {
		return fault.Storage("create i-frame scratch dir", err)
	}
	defer func() {
		if err := os.RemoveAll(tmp); err != nil {
			xglog.FromContext(ctx).Warn().Err(err).Str(xglog.FieldPath, tmp).Msg("remove i-frame scratch dir")
		}
	}()

	if err := e.run(ctx, PassIFrame, IFrameArgs(job, e.segmentDuration)); err != nil {
		return err
	}

	data, err := os.ReadFile(filepath.Join(tmp, asset.IFramePlaylist))
	if err != nil {
		return fault.Processing("relocate i-frame playlist", err, "")
	}
	if err := renameio.WriteFile(filepath.Join(job.Dir, asset.IFramePlaylist), data, 0o640); err != nil {
		return fault.Storage("relocate i-frame playlist", err)
	}
	return nil
}

func (e *Encoder) run(ctx context.Context, pass Pass, args []string) error {
	logger := xglog.FromContext(ctx)
	start := time.Now()

	logger.Info().
		Str(xglog.FieldEvent, "encoder.pass_started").
		Str(xglog.FieldPass, string(pass)).
		Msg("starting transcoder pass")

	err := e.exec.Run(ctx, e.ffmpegPath, args)
	elapsed := time.Since(start)
	metrics.ObserveEncode(string(pass), elapsed)

	if err != nil {
		diag := Diagnostics(err)
		logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "encoder.pass_failed").
			Str(xglog.FieldPass, string(pass)).
			Str("stderr_tail", diag).
			Dur("duration", elapsed).
			Msg("transcoder pass failed")
		return fault.Processing("encode "+string(pass)+" pass", err, diag)
	}

	logger.Info().
		Str(xglog.FieldEvent, "encoder.pass_finished").
		Str(xglog.FieldPass, string(pass)).
		Dur("duration", elapsed).
		Msg("transcoder pass finished")
	return nil
}
