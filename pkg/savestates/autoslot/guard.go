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

// Package autoslot stages a chosen save state into an emulator's auto slot
// for the length of one session and puts the user's own auto-save back
// afterwards.
package autoslot

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"

	"github.com/ZaparooProject/zaparoo-statewatch/pkg/helpers"
	"github.com/ZaparooProject/zaparoo-statewatch/pkg/helpers/syncutil"
	"github.com/ZaparooProject/zaparoo-statewatch/pkg/savestates"
	"github.com/ZaparooProject/zaparoo-statewatch/pkg/savestates/hasher"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const (
	BackupSuffix = ".bak-statewatch"
	PlayedSuffix = ".played"
)

var (
	// ErrStageBackup means the existing auto slot could not be moved out of
	// the way. Nothing on disk was changed.
	ErrStageBackup = errors.New("failed to back up auto slot")
	// ErrAlreadyStaged means another guard in this process owns the slot.
	ErrAlreadyStaged = errors.New("auto slot is already staged")
)

type Options struct {
	// ThumbnailPath returns the thumbnail that belongs to a state file. When
	// set, the auto slot's thumbnail is backed up and restored with it.
	ThumbnailPath func(statePath string) string
	Naming        savestates.Naming
}

// Guard owns an emulator's auto slot while a staged state is in place.
type Guard struct {
	fs          afero.Fs
	closeErr    error
	autoPath    string
	backupPath  string
	thumbPath   string
	thumbBackup string
	staged      hasher.Hash
	closeOnce   sync.Once
	hasBackup   bool
	thumbSaved  bool
	isAuto      bool
}

var registry = struct {
	paths map[string]struct{}
	mu    syncutil.Mutex
}{paths: make(map[string]struct{})}

func claim(path string) bool {
	key := helpers.NormalizePathForComparison(path)
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if _, ok := registry.paths[key]; ok {
		return false
	}
	registry.paths[key] = struct{}{}
	return true
}

func unclaim(path string) {
	key := helpers.NormalizePathForComparison(path)
	registry.mu.Lock()
	defer registry.mu.Unlock()
	delete(registry.paths, key)
}

// Stage copies target into the auto slot for the same ROM, moving any
// existing auto-save (and its thumbnail) aside first. If target already is
// the auto slot nothing is touched and the returned Guard reports
// IsAutoFile.
func Stage(afs afero.Fs, target string, opts Options) (*Guard, error) {
	if target == "" {
		return nil, errors.New("no state to stage")
	}
	info, err := afs.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("failed to stat state %s: %w", target, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("state %s is a directory", target)
	}

	autoPath := opts.Naming.AutoPath(target)
	if helpers.PathEqual(target, autoPath) {
		log.Debug().Msgf("state is already the auto slot: %s", target)
		return &Guard{fs: afs, autoPath: autoPath, isAuto: true}, nil
	}

	if !claim(autoPath) {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyStaged, autoPath)
	}

	g := &Guard{
		fs:         afs,
		autoPath:   autoPath,
		backupPath: autoPath + BackupSuffix,
	}
	if opts.ThumbnailPath != nil {
		g.thumbPath = opts.ThumbnailPath(autoPath)
		if g.thumbPath != "" {
			g.thumbBackup = g.thumbPath + BackupSuffix
		}
	}

	if err := g.stage(target); err != nil {
		unclaim(autoPath)
		return nil, err
	}

	log.Info().Msgf("staged %s into auto slot %s", target, autoPath)
	return g, nil
}

func (g *Guard) stage(target string) error {
	if err := g.recoverStale(); err != nil {
		return fmt.Errorf("%w: %w", ErrStageBackup, err)
	}

	if exists(g.fs, g.autoPath) {
		if err := g.fs.Rename(g.autoPath, g.backupPath); err != nil {
			return fmt.Errorf("%w: %w", ErrStageBackup, err)
		}
		g.hasBackup = true
	}

	if g.thumbPath != "" && exists(g.fs, g.thumbPath) {
		if err := g.fs.Rename(g.thumbPath, g.thumbBackup); err != nil {
			if g.hasBackup {
				if rerr := g.fs.Rename(g.backupPath, g.autoPath); rerr != nil {
					log.Error().Err(rerr).Msgf("failed to roll back auto slot backup: %s", g.backupPath)
				}
				g.hasBackup = false
			}
			return fmt.Errorf("%w: thumbnail: %w", ErrStageBackup, err)
		}
		g.thumbSaved = true
	}

	if err := copyFile(g.fs, target, g.autoPath); err != nil {
		return errors.Join(fmt.Errorf("failed to stage state: %w", err), removeIfExists(g.fs, g.autoPath), g.restore())
	}

	sum, err := hasher.HashFile(g.fs, g.autoPath)
	if err != nil {
		return errors.Join(fmt.Errorf("failed to hash staged state: %w", err), removeIfExists(g.fs, g.autoPath), g.restore())
	}
	g.staged = sum
	return nil
}

// recoverStale puts back a backup left behind by a session that never got
// to release its guard. Whatever was in the auto slot is kept as a played
// copy.
func (g *Guard) recoverStale() error {
	if exists(g.fs, g.backupPath) {
		log.Warn().Msgf("restoring auto slot backup left by an earlier session: %s", g.backupPath)
		if exists(g.fs, g.autoPath) {
			if err := g.fs.Rename(g.autoPath, nextPlayed(g.fs, g.autoPath)); err != nil {
				return fmt.Errorf("failed to keep leftover auto slot: %w", err)
			}
		}
		if err := g.fs.Rename(g.backupPath, g.autoPath); err != nil {
			return fmt.Errorf("failed to restore stale backup: %w", err)
		}
	}

	if g.thumbBackup != "" && exists(g.fs, g.thumbBackup) {
		if err := removeIfExists(g.fs, g.thumbPath); err != nil {
			return err
		}
		if err := g.fs.Rename(g.thumbBackup, g.thumbPath); err != nil {
			return fmt.Errorf("failed to restore stale thumbnail backup: %w", err)
		}
	}
	return nil
}

// IsAutoFile reports whether the staged state already was the auto slot,
// in which case the guard does nothing.
func (g *Guard) IsAutoFile() bool {
	return g.isAuto
}

// AutoPath is the auto slot the guard owns.
func (g *Guard) AutoPath() string {
	return g.autoPath
}

// Close releases the auto slot. An untouched staged copy is deleted; one the
// emulator overwrote is kept next to the slot as a played copy when the
// user's original has to go back in its place. The original auto-save and
// thumbnail are then restored. Every step runs even when an earlier one
// fails, and all failures are returned together. Close only acts once.
func (g *Guard) Close() error {
	if g == nil || g.isAuto {
		return nil
	}
	g.closeOnce.Do(func() {
		g.closeErr = g.release()
		unclaim(g.autoPath)
	})
	return g.closeErr
}

func (g *Guard) release() error {
	var errs []error
	slotCleared := true

	current, err := hasher.HashFile(g.fs, g.autoPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Debug().Msgf("auto slot removed during session: %s", g.autoPath)
	case err == nil && current.Equal(g.staged):
		if err := g.fs.Remove(g.autoPath); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove staged state: %w", err))
		}
	case g.hasBackup:
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to hash auto slot: %w", err))
		}
		played := nextPlayed(g.fs, g.autoPath)
		if err := g.fs.Rename(g.autoPath, played); err != nil {
			errs = append(errs, fmt.Errorf("failed to keep played auto slot: %w", err))
		} else {
			log.Warn().Msgf("auto slot changed during session, kept as %s", played)
		}
	default:
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to hash auto slot: %w", err))
		}
		slotCleared = false
		log.Warn().Msgf("auto slot changed during session, leaving it in place: %s", g.autoPath)
	}

	if g.thumbPath != "" && slotCleared {
		if err := removeIfExists(g.fs, g.thumbPath); err != nil {
			errs = append(errs, err)
		}
	}

	if err := g.restore(); err != nil {
		errs = append(errs, err)
	}

	log.Info().Msgf("released auto slot %s", g.autoPath)
	return errors.Join(errs...)
}

// restore moves the backups back into place.
func (g *Guard) restore() error {
	var errs []error
	if g.hasBackup {
		if err := removeIfExists(g.fs, g.autoPath); err != nil {
			errs = append(errs, err)
		}
		if err := g.fs.Rename(g.backupPath, g.autoPath); err != nil {
			errs = append(errs, fmt.Errorf("failed to restore auto slot: %w", err))
		} else {
			g.hasBackup = false
		}
	}
	if g.thumbSaved {
		if err := removeIfExists(g.fs, g.thumbPath); err != nil {
			errs = append(errs, err)
		}
		if err := g.fs.Rename(g.thumbBackup, g.thumbPath); err != nil {
			errs = append(errs, fmt.Errorf("failed to restore auto slot thumbnail: %w", err))
		} else {
			g.thumbSaved = false
		}
	}
	return errors.Join(errs...)
}

// With stages target, runs fn and always releases the slot afterwards, also
// when fn panics. Release errors are joined with fn's error.
func With(afs afero.Fs, target string, opts Options, fn func(*Guard) error) (err error) {
	g, err := Stage(afs, target, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := g.Close(); cerr != nil {
			log.Error().Err(cerr).Msg("failed to release auto slot")
			err = errors.Join(err, cerr)
		}
	}()
	return fn(g)
}

func nextPlayed(afs afero.Fs, autoPath string) string {
	p := autoPath + PlayedSuffix
	for i := 1; exists(afs, p); i++ {
		p = fmt.Sprintf("%s%s.%d", autoPath, PlayedSuffix, i)
	}
	return p
}

func exists(afs afero.Fs, path string) bool {
	_, err := afs.Stat(path)
	return err == nil
}

func removeIfExists(afs afero.Fs, path string) error {
	if err := afs.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

func copyFile(afs afero.Fs, src, dst string) error {
	in, err := afs.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer func() {
		if err := in.Close(); err != nil {
			log.Debug().Err(err).Msgf("failed to close %s", src)
		}
	}()

	out, err := afs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return nil
}
