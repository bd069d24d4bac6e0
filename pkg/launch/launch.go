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

// Package launch runs one emulator session: it stages a resume state into
// the auto slot, patches the emulator config, watches for new save states
// and waits for the emulator to exit.
package launch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ZaparooProject/zaparoo-statewatch/pkg/config"
	"github.com/ZaparooProject/zaparoo-statewatch/pkg/emuconfig"
	"github.com/ZaparooProject/zaparoo-statewatch/pkg/emulators"
	"github.com/ZaparooProject/zaparoo-statewatch/pkg/helpers"
	"github.com/ZaparooProject/zaparoo-statewatch/pkg/helpers/command"
	"github.com/ZaparooProject/zaparoo-statewatch/pkg/savestates"
	"github.com/ZaparooProject/zaparoo-statewatch/pkg/savestates/autoslot"
	"github.com/ZaparooProject/zaparoo-statewatch/pkg/savestates/watcher"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

var ErrNoExecutable = errors.New("emulator executable is required")

// ResumeLatest as Request.ResumeState resumes from the newest state of the
// ROM in its state directory.
const ResumeLatest = "latest"

// Request describes one session.
type Request struct {
	ROMPath  string
	Emulator string
	Exe      string
	Args     []string
	// InstallDir is the emulator install, the root of its private state
	// directory and config file. Defaults to the executable's directory.
	InstallDir string
	SharedDir  string
	// ResumeState is a state file to resume from, or ResumeLatest. Relative
	// paths are resolved against the state directory.
	ResumeState   string
	ThumbnailsDir string
}

type Deps struct {
	Fs       afero.Fs
	Clock    clockwork.Clock
	Executor command.Executor
	Registry *emulators.Registry
	Config   *config.Instance
	// OnThumbnail is called for every thumbnail written.
	OnThumbnail func(watcher.Result)
}

// session is the resolved form of a Request.
type session struct {
	deps     Deps
	profile  emulators.Profile
	req      Request
	stateDir string
}

func newSession(req Request, deps Deps) (*session, error) {
	if req.ROMPath == "" {
		return nil, errors.New("rom path is required")
	}
	if deps.Registry == nil || deps.Config == nil {
		return nil, errors.New("registry and config are required")
	}
	if deps.Fs == nil {
		deps.Fs = afero.NewOsFs()
	}

	profile, err := deps.Registry.Lookup(req.Emulator)
	if err != nil {
		return nil, fmt.Errorf("failed to find emulator profile: %w", err)
	}

	if req.InstallDir == "" && req.Exe != "" {
		req.InstallDir = filepath.Dir(req.Exe)
	}
	if req.SharedDir == "" {
		req.SharedDir = deps.Config.SharedDir()
	}
	if req.ThumbnailsDir == "" {
		req.ThumbnailsDir = deps.Config.ThumbnailsDir()
	}

	privateDir, sharedDir := profile.StateDirs(req.InstallDir, req.SharedDir)
	stateDir := sharedDir
	if stateDir == "" {
		stateDir = privateDir
	}

	return &session{
		deps:     deps,
		profile:  profile,
		req:      req,
		stateDir: stateDir,
	}, nil
}

// Run launches the emulator and blocks until it exits or ctx is cancelled,
// in which case the emulator is killed. Only a failure to stage the resume
// state or to start the emulator stops the launch; config patching and
// thumbnails are best effort. The auto slot is always restored before Run
// returns.
func Run(ctx context.Context, req Request, deps Deps) error {
	if req.Exe == "" {
		return ErrNoExecutable
	}
	s, err := newSession(req, deps)
	if err != nil {
		return err
	}

	guard, err := s.stage()
	if err != nil {
		return err
	}
	if guard != nil {
		defer func() {
			if closeErr := guard.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msgf("failed to restore auto slot: %s", guard.AutoPath())
			}
		}()
	}

	s.patchConfig()

	w := s.watch(ctx)
	defer func() {
		if closeErr := w.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to stop state watcher")
		}
	}()

	proc, err := s.deps.Executor.Start(command.StartOptions{
		Dir:        s.req.InstallDir,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		HideWindow: false,
	}, s.req.Exe, s.req.Args...)
	if err != nil {
		return fmt.Errorf("failed to start emulator: %w", err)
	}
	log.Info().Msgf("started %s (pid %d): %s", s.profile.Name, proc.Pid(), s.req.ROMPath)
	w.SetProcessPID(int32(proc.Pid())) //nolint:gosec // pids fit in int32

	return wait(ctx, proc)
}

// Watch runs only the state watcher until ctx is cancelled, for sessions
// started by something else.
func Watch(ctx context.Context, req Request, deps Deps) error {
	s, err := newSession(req, deps)
	if err != nil {
		return err
	}

	w := s.watch(ctx)
	if w.Inert() {
		return fmt.Errorf("cannot watch state directory %q", s.stateDir)
	}
	<-ctx.Done()

	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to stop state watcher: %w", err)
	}
	return nil
}

// stage puts the resume state in the auto slot. It returns a nil guard when
// there is nothing to resume from.
func (s *session) stage() (*autoslot.Guard, error) {
	target, err := s.resumeTarget()
	if err != nil {
		return nil, fmt.Errorf("failed to stage resume state: %w", err)
	}
	if target == "" {
		return nil, nil //nolint:nilnil // nothing to stage
	}

	guard, err := autoslot.Stage(s.deps.Fs, target, autoslot.Options{
		Naming: s.profile.Naming(),
		ThumbnailPath: func(string) string {
			return savestates.ThumbnailPath(s.req.ThumbnailsDir, s.req.ROMPath, savestates.AutoSlot())
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to stage resume state: %w", err)
	}
	if guard.IsAutoFile() {
		log.Info().Msgf("resuming from existing auto slot: %s", target)
	}
	return guard, nil
}

func (s *session) resumeTarget() (string, error) {
	if s.req.ResumeState != ResumeLatest {
		return helpers.ResolvePath(s.stateDir, s.req.ResumeState), nil
	}

	states, err := savestates.List(s.deps.Fs, s.stateDir, s.req.ROMPath, s.profile.Naming())
	if err != nil {
		return "", fmt.Errorf("failed to list states: %w", err)
	}
	latest, ok := savestates.Latest(states)
	if !ok {
		log.Info().Msgf("no states to resume in %s, starting fresh", s.stateDir)
		return "", nil
	}
	log.Info().Msgf("resuming from newest state: %s", latest.Path)
	return latest.Path, nil
}

func (s *session) patchConfig() {
	if s.profile.Config == nil {
		return
	}
	if !s.deps.Config.PatchEmulatorConfig() {
		log.Debug().Msg("emulator config patching disabled")
		return
	}
	if s.req.InstallDir == "" {
		log.Debug().Msg("no install dir, skipping emulator config patch")
		return
	}

	path := helpers.ResolvePath(s.req.InstallDir, s.profile.Config.File)
	_, err := emuconfig.PatchFile(
		s.deps.Fs,
		path,
		emuconfig.Format(s.profile.Config.Format),
		emuconfig.Patch{Feature: true, Values: s.profile.ConfigValues(s.stateDir)},
	)
	if err != nil {
		log.Warn().Err(err).Msgf("failed to patch emulator config: %s", path)
	}
}

// watch starts the state watcher. Failures leave an inert watcher so the
// emulator still launches.
func (s *session) watch(ctx context.Context) *watcher.Watcher {
	opts := watcher.Options{
		Fs:            s.deps.Fs,
		Clock:         s.deps.Clock,
		Naming:        s.profile.Naming(),
		ROMPath:       s.req.ROMPath,
		Dir:           s.stateDir,
		ThumbnailsDir: s.req.ThumbnailsDir,
		LockRetries:   s.deps.Config.LockRetries(),
		LockInterval:  s.deps.Config.LockInterval(),
		Settle:        s.deps.Config.Settle(),
		OnExtracted:   s.onExtracted,
	}

	var err error
	if opts.Method, err = s.profile.Method(); err != nil {
		log.Warn().Err(err).Msg("invalid watch method, using default")
	}
	if opts.Strategy, err = s.profile.Strategy(s.req.InstallDir); err != nil {
		log.Warn().Err(err).Msg("invalid screenshot strategy, thumbnails disabled")
		return watcher.Disabled()
	}
	if err := s.deps.Fs.MkdirAll(s.req.ThumbnailsDir, 0o750); err != nil {
		log.Warn().Err(err).Msgf("cannot create thumbnails dir, thumbnails disabled: %s", s.req.ThumbnailsDir)
		return watcher.Disabled()
	}

	w, err := watcher.New(ctx, opts)
	if err != nil {
		log.Warn().Err(err).Msg("failed to start state watcher")
		return watcher.Disabled()
	}
	return w
}

func (s *session) onExtracted(res watcher.Result) {
	if s.deps.OnThumbnail != nil {
		s.deps.OnThumbnail(res)
	}
}

// wait blocks until proc exits, killing it if ctx is cancelled first.
func wait(ctx context.Context, proc command.Process) error {
	g, gctx := errgroup.WithContext(ctx)
	exited := make(chan struct{})

	g.Go(func() error {
		defer close(exited)
		if err := proc.Wait(); err != nil {
			return fmt.Errorf("emulator exited with error: %w", err)
		}
		log.Info().Msg("emulator exited")
		return nil
	})

	g.Go(func() error {
		select {
		case <-exited:
			return nil
		case <-gctx.Done():
		}
		if ctx.Err() == nil {
			return nil
		}
		log.Info().Msg("session cancelled, stopping emulator")
		if !proc.Running() {
			return ctx.Err()
		}
		if err := proc.Kill(); err != nil {
			return fmt.Errorf("failed to stop emulator: %w", err)
		}
		return ctx.Err()
	})

	//nolint:wrapcheck // errors wrapped in the goroutines
	return g.Wait()
}
