// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package procgroup spawns transcoder processes in their own process group so
// the whole tree can be signalled at once.
package procgroup

import (
	"errors"
	"os/exec"
	"syscall"
)

// ErrKillFailed is returned when the group could not be signalled.
var ErrKillFailed = errors.New("kill operation failed")

// Terminate asks the group to exit. Used as exec.Cmd.Cancel.
func Terminate(cmd *exec.Cmd) error {
	return Kill(cmd, syscall.SIGTERM)
}

// Reap force-kills whatever is left of the group after the leader exited.
// A group that is already gone is not an error.
func Reap(cmd *exec.Cmd) error {
	return Kill(cmd, syscall.SIGKILL)
}
