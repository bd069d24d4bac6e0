// Zaparoo Statewatch
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Zaparoo Statewatch.
//
// Zaparoo Statewatch is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Zaparoo Statewatch is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Zaparoo Statewatch.  If not, see <http://www.gnu.org/licenses/>.

// Package command provides an abstraction over exec.Command for testability.
package command

import (
	"io"
	"os/exec"
	"sync/atomic"

	"github.com/ZaparooProject/zaparoo-statewatch/pkg/helpers"
)

// StartOptions configures command startup behavior.
type StartOptions struct {
	Stdout io.Writer
	Stderr io.Writer
	// Dir is the working directory. Empty uses the current one.
	Dir string
	Env []string
	// HideWindow prevents a console window from appearing (Windows-only).
	// On non-Windows platforms, this field is ignored.
	HideWindow bool
}

// Process is a started command.
type Process interface {
	Pid() int
	// Wait blocks until the process exits and returns its exit error.
	Wait() error
	Kill() error
	Running() bool
}

// Executor provides an abstraction over exec.Command for testability.
// This allows emulator launches to be mocked in tests without executing
// real programs.
type Executor interface {
	// Start starts a command and returns a handle to wait on or kill it.
	// The process is not tied to any context; callers decide when to kill.
	Start(opts StartOptions, name string, args ...string) (Process, error)
}

// RealExecutor uses actual exec.Command to execute system commands.
// This is the production implementation used in normal operation.
type RealExecutor struct{}

// Start starts a command without waiting for it to complete.
//
//nolint:wrapcheck // Wrapping exec errors loses important context
func (*RealExecutor) Start(opts StartOptions, name string, args ...string) (Process, error) {
	cmd := exec.Command(name, args...) //nolint:gosec // emulator executable comes from config
	cmd.Dir = opts.Dir
	if len(opts.Env) > 0 {
		cmd.Env = append(cmd.Environ(), opts.Env...)
	}
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr
	applyOptions(cmd, opts)

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &process{cmd: cmd}, nil
}

type process struct {
	cmd  *exec.Cmd
	done atomic.Bool
}

func (p *process) Pid() int {
	return p.cmd.Process.Pid
}

//nolint:wrapcheck // exit errors are inspected by callers
func (p *process) Wait() error {
	defer p.done.Store(true)
	return p.cmd.Wait()
}

//nolint:wrapcheck // Wrapping exec errors loses important context
func (p *process) Kill() error {
	return p.cmd.Process.Kill()
}

func (p *process) Running() bool {
	return !p.done.Load() && helpers.ProcessAlive(p.Pid())
}
