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

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/ZaparooProject/zaparoo-statewatch/pkg/config"
	"github.com/ZaparooProject/zaparoo-statewatch/pkg/emulators"
	"github.com/ZaparooProject/zaparoo-statewatch/pkg/helpers/command"
	"github.com/ZaparooProject/zaparoo-statewatch/pkg/launch"
	"github.com/ZaparooProject/zaparoo-statewatch/pkg/savestates/watcher"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// Env is what Run needs besides the flags.
type Env struct {
	Fs       afero.Fs
	Executor command.Executor
	Config   *config.Instance
	Registry *emulators.Registry
	Out      io.Writer
}

// Run performs the action selected by f until it finishes or ctx is
// cancelled.
func Run(ctx context.Context, f *Flags, env Env) error {
	if env.Out == nil {
		env.Out = os.Stdout
	}

	switch {
	case *f.Version:
		printVersion(env.Out)
		return nil
	case *f.List:
		return listProfiles(env.Out, env.Registry)
	}

	if err := f.Validate(); err != nil {
		return err
	}

	req := launch.Request{
		ROMPath:       *f.ROM,
		Emulator:      *f.Emulator,
		Exe:           *f.Exe,
		Args:          f.Args,
		InstallDir:    *f.Install,
		SharedDir:     *f.Shared,
		ResumeState:   *f.Resume,
		ThumbnailsDir: *f.Thumbs,
	}
	deps := launch.Deps{
		Fs:       env.Fs,
		Executor: env.Executor,
		Registry: env.Registry,
		Config:   env.Config,
		OnThumbnail: func(res watcher.Result) {
			log.Debug().Msgf("thumbnail for slot %s: %s", res.State.Slot, res.Thumbnail)
		},
	}

	if *f.WatchOnly {
		log.Info().Msgf("watch only mode for %s", *f.ROM)
		if err := launch.Watch(ctx, req, deps); err != nil {
			return fmt.Errorf("watch failed: %w", err)
		}
		return nil
	}

	if err := launch.Run(ctx, req, deps); err != nil {
		return fmt.Errorf("launch failed: %w", err)
	}
	return nil
}

func listProfiles(w io.Writer, reg *emulators.Registry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tSTATES\tSCREENSHOTS")
	for _, p := range reg.Profiles() {
		kind := p.Screenshot.Kind
		if kind == "" {
			kind = "none"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.StateExt, kind)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write profile list: %w", err)
	}
	return nil
}
