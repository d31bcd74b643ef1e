// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package encoder

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	xglog "github.com/ManuGH/hlsvault/internal/log"
	"github.com/ManuGH/hlsvault/internal/metrics"
	"github.com/ManuGH/hlsvault/internal/procgroup"
	"github.com/rs/zerolog"
)

const stderrTailBytes = 4096

// WatchConfig tunes the progress watchdog.
type WatchConfig struct {
	StartupGrace time.Duration // no stall checks before this
	StallTimeout time.Duration // kill when progress is flat for this long
	Tick         time.Duration
	KillGrace    time.Duration // SIGTERM to forced kill on cancellation
}

// DefaultWatchConfig suits VOD packaging of local files.
func DefaultWatchConfig() WatchConfig {
	return WatchConfig{
		StartupGrace: 30 * time.Second,
		StallTimeout: 5 * time.Minute,
		Tick:         5 * time.Second,
		KillGrace:    5 * time.Second,
	}
}

// DefaultExecutor implements Exec with process-group supervision and stall detection.
type DefaultExecutor struct {
	Logger zerolog.Logger
	Watch  WatchConfig
}

// NewExecutor returns an executor with the default watchdog.
func NewExecutor(logger zerolog.Logger) *DefaultExecutor {
	return &DefaultExecutor{Logger: logger, Watch: DefaultWatchConfig()}
}

// Run starts name with args in its own process group and waits for it.
// A non-zero exit yields a *RunError carrying the stderr tail.
func (e *DefaultExecutor) Run(ctx context.Context, name string, args []string) error {
	cfg := e.Watch
	if cfg.Tick <= 0 {
		cfg = DefaultWatchConfig()
	}

	fullArgs := append([]string{"-nostdin", "-y", "-progress", "pipe:1"}, args...)
	cmd := exec.CommandContext(ctx, name, fullArgs...)
	procgroup.Set(cmd)
	cmd.Cancel = func() error { return procgroup.Terminate(cmd) }
	cmd.WaitDelay = cfg.KillGrace

	progressCh := make(chan Progress, 16)
	stderr := newTailBuffer(stderrTailBytes)
	cmd.Stdout = &progressWriter{ch: progressCh}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return &RunError{Name: name, ExitCode: -1, Err: fmt.Errorf("start: %w", err)}
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	waitErr := e.watch(done, progressCh, cmd, cfg)
	_ = procgroup.Reap(cmd)

	if waitErr == nil {
		return nil
	}
	exitCode := -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}
	if ctx.Err() != nil && !errors.Is(waitErr, ErrStalled) {
		waitErr = ctx.Err()
	}
	return &RunError{Name: name, ExitCode: exitCode, Stderr: stderr.String(), Err: waitErr}
}

// watch returns the process result, or ErrStalled after killing a stalled group.
func (e *DefaultExecutor) watch(done <-chan error, progressCh <-chan Progress, cmd *exec.Cmd, cfg WatchConfig) error {
	start := time.Now()
	lastProgressAt := start
	var last Progress

	ticker := time.NewTicker(cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case err := <-done:
			return err

		case p := <-progressCh:
			if p.hasAdvanced(last) {
				last = p
				lastProgressAt = time.Now()
			}

		case <-ticker.C:
			if time.Since(start) < cfg.StartupGrace {
				continue
			}
			if time.Since(lastProgressAt) <= cfg.StallTimeout {
				continue
			}
			metrics.IncEncoderStall()
			e.Logger.Error().
				Str(xglog.FieldEvent, "encoder.stalled").
				Dur("since_progress", time.Since(lastProgressAt)).
				Int64("last_out_time_us", last.OutTimeUs).
				Int64("last_total_size", last.TotalSize).
				Str("last_speed", last.Speed).
				Msg("ffmpeg stalled - killing process group")
			_ = procgroup.Reap(cmd)
			<-done
			return ErrStalled
		}
	}
}
