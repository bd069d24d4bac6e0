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

package config

import (
	"path/filepath"
	"time"

	"github.com/ZaparooProject/zaparoo-statewatch/pkg/helpers"
	"github.com/ZaparooProject/zaparoo-statewatch/pkg/savestates/watcher"
)

// States configures thumbnail generation and auto slot staging.
type States struct {
	LockRetries    *int   `toml:"lock_retries,omitempty"`
	LockIntervalMS *int   `toml:"lock_interval_ms,omitempty"`
	SettleMS       *int   `toml:"settle_ms,omitempty"`
	PatchConfig    *bool  `toml:"patch_config,omitempty"`
	ThumbnailsDir  string `toml:"thumbnails_dir,omitempty"`
	SharedDir      string `toml:"shared_dir,omitempty"`
}

// ThumbnailsDir returns where thumbnails are written. Relative paths are
// resolved against the data directory.
func (c *Instance) ThumbnailsDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.States.ThumbnailsDir == "" {
		return filepath.Join(c.dataDir, ThumbnailsDirName)
	}
	return helpers.ResolvePath(c.dataDir, c.vals.States.ThumbnailsDir)
}

func (c *Instance) SetThumbnailsDir(dir string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.States.ThumbnailsDir = dir
}

// SharedDir is the root of the user's shared emulator data, if any.
func (c *Instance) SharedDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return helpers.ResolvePath("", c.vals.States.SharedDir)
}

func (c *Instance) LockRetries() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.States.LockRetries == nil || *c.vals.States.LockRetries < 1 {
		return watcher.DefaultLockRetries
	}
	return *c.vals.States.LockRetries
}

func (c *Instance) LockInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.States.LockIntervalMS == nil || *c.vals.States.LockIntervalMS < 1 {
		return watcher.DefaultLockInterval
	}
	return time.Duration(*c.vals.States.LockIntervalMS) * time.Millisecond
}

// Settle returns how long the watcher waits for a state file to go quiet.
// Zero disables coalescing.
func (c *Instance) Settle() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.States.SettleMS == nil || *c.vals.States.SettleMS < 0 {
		return watcher.DefaultSettle
	}
	return time.Duration(*c.vals.States.SettleMS) * time.Millisecond
}

// PatchEmulatorConfig reports whether emulator settings files may be
// changed so they write states and screenshots. Defaults to true.
func (c *Instance) PatchEmulatorConfig() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.States.PatchConfig == nil {
		return true
	}
	return *c.vals.States.PatchConfig
}

func (c *Instance) SetPatchEmulatorConfig(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.States.PatchConfig = &enabled
}
