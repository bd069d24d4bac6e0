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

package screenshot

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/spf13/afero"
)

type candidate struct {
	modTime time.Time
	path    string
}

type candidates struct {
	best *candidate
	ref  time.Time
	exts []string
	tol  time.Duration
	mu   sync.Mutex
}

func (c *candidates) consider(path string, info os.FileInfo) {
	if info.IsDir() || !hasExt(path, c.exts) {
		return
	}
	delta := info.ModTime().Sub(c.ref)
	if delta < 0 {
		delta = -delta
	}
	if delta > c.tol {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.best == nil || info.ModTime().After(c.best.modTime) ||
		(info.ModTime().Equal(c.best.modTime) && path > c.best.path) {
		c.best = &candidate{path: path, modTime: info.ModTime()}
	}
}

// Correlate searches dir recursively for the image whose modification time
// is within tolerance of ref, preferring the most recently written one.
func Correlate(
	ctx context.Context,
	afs afero.Fs,
	dir string,
	ref time.Time,
	tolerance time.Duration,
	exts []string,
) (string, error) {
	c := &candidates{ref: ref, tol: tolerance, exts: exts}

	var err error
	if _, ok := afs.(*afero.OsFs); ok {
		err = walkOS(ctx, dir, c)
	} else {
		err = afero.Walk(afs, dir, func(path string, info os.FileInfo, walkErr error) error {
			if walkErr != nil {
				return nil //nolint:nilerr // unreadable entries are skipped
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			c.consider(path, info)
			return nil
		})
	}
	if err != nil {
		return "", noScreenshot("screenshot directory unreadable")
	}

	if c.best == nil {
		return "", noScreenshot("no screenshot near state write time")
	}
	return c.best.path, nil
}

func walkOS(ctx context.Context, dir string, c *candidates) error {
	conf := fastwalk.Config{Follow: false}
	//nolint:wrapcheck // caller maps every walk failure to ErrNoScreenshot
	return fastwalk.Walk(&conf, dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == dir {
				return walkErr
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil //nolint:nilerr // file vanished during walk
		}
		c.consider(path, info)
		return nil
	})
}

func hasExt(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}
