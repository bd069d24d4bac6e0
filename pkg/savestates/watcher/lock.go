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

package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/spf13/afero"
)

// ErrLocked is returned when a state file stayed busy for the whole retry
// budget.
var ErrLocked = errors.New("state file is still being written")

// LockFunc reports whether the writer still holds path. A non-nil error
// ends the wait immediately.
type LockFunc func(path string) (bool, error)

type fingerprint struct {
	size    int64
	modTime int64
}

func fingerprintOf(info os.FileInfo) fingerprint {
	return fingerprint{size: info.Size(), modTime: info.ModTime().UnixNano()}
}

// probe decides a file is busy when its size or modification time moved
// since the previous look, when it cannot be opened, or when the emulator
// process still has it open.
type probe struct {
	fs   afero.Fs
	prev fingerprint
	pid  int32
	// writable opens the file for writing, which catches writers that deny
	// sharing on Windows. Only set for the OS filesystem: closing a writable
	// afero memory file bumps its mtime.
	writable bool
}

func (p *probe) locked(path string) (bool, error) {
	info, err := p.fs.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, err
		}
		return true, nil //nolint:nilerr // busy, try again
	}

	fp := fingerprintOf(info)
	if fp != p.prev {
		p.prev = fp
		return true, nil
	}

	if !p.canOpen(path) {
		return true, nil
	}
	if p.pid > 0 && heldByProcess(p.pid, path) {
		return true, nil
	}
	return false, nil
}

func (p *probe) canOpen(path string) bool {
	flag := os.O_RDONLY
	if p.writable {
		flag = os.O_RDWR
	}
	f, err := p.fs.OpenFile(path, flag, 0)
	if err != nil && p.writable && errors.Is(err, fs.ErrPermission) {
		f, err = p.fs.Open(path)
	}
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}

func heldByProcess(pid int32, path string) bool {
	proc, err := process.NewProcess(pid)
	if err != nil {
		return false
	}
	files, err := proc.OpenFiles()
	if err != nil {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	for _, f := range files {
		if f.Path == abs {
			return true
		}
	}
	return false
}

// waitUnlocked polls check until the file is free, backing off from
// interval and giving up after attempts tries.
func waitUnlocked(
	ctx context.Context,
	check LockFunc,
	path string,
	attempts int,
	interval time.Duration,
) error {
	if attempts < 1 {
		attempts = 1
	}
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(interval))

	//nolint:wrapcheck // ErrLocked and not-exist errors are returned as is
	return retry.Do(ctx, backoff, func(_ context.Context) error {
		locked, err := check(path)
		if err != nil {
			return err
		}
		if locked {
			return retry.RetryableError(ErrLocked)
		}
		return nil
	})
}
