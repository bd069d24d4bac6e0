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

// Package cli holds the statewatch command line: flag parsing, environment
// setup and dispatch to the launch session.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/ZaparooProject/zaparoo-statewatch/internal/telemetry"
	"github.com/ZaparooProject/zaparoo-statewatch/pkg/config"
	"github.com/ZaparooProject/zaparoo-statewatch/pkg/emulators"
	"github.com/ZaparooProject/zaparoo-statewatch/pkg/helpers"
	"github.com/rs/zerolog/log"
)

var ErrUsage = errors.New("invalid arguments")

type Flags struct {
	Emulator  *string
	ROM       *string
	Exe       *string
	Install   *string
	Shared    *string
	Resume    *string
	Thumbs    *string
	WatchOnly *bool
	List      *bool
	Version   *bool
	// Args are passed to the emulator, everything after "--".
	Args []string
}

// SetupFlags defines all CLI flags on fs.
func SetupFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		Emulator: fs.String(
			"emulator",
			"",
			"emulator profile id (see -list)",
		),
		ROM: fs.String(
			"rom",
			"",
			"path of the game being played",
		),
		Exe: fs.String(
			"exe",
			"",
			"emulator executable to launch",
		),
		Install: fs.String(
			"install",
			"",
			"emulator install directory (default: directory of -exe)",
		),
		Shared: fs.String(
			"shared",
			"",
			"shared emulator data directory",
		),
		Resume: fs.String(
			"resume",
			"",
			"save state to resume from, or \"latest\" for the newest one",
		),
		Thumbs: fs.String(
			"thumbs",
			"",
			"directory to write state thumbnails to",
		),
		WatchOnly: fs.Bool(
			"watch-only",
			false,
			"only watch for save states until interrupted",
		),
		List: fs.Bool(
			"list",
			false,
			"print known emulator profiles and exit",
		),
		Version: fs.Bool(
			"version",
			false,
			"print version and exit",
		),
	}
}

// Parse parses args, not including the program name.
func Parse(args []string) (*Flags, error) {
	fs := flag.NewFlagSet(config.AppName, flag.ContinueOnError)
	f := SetupFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUsage, err)
	}
	f.Args = fs.Args()
	return f, nil
}

// Validate checks the flags needed for a session are present.
func (f *Flags) Validate() error {
	if *f.Version || *f.List {
		return nil
	}
	if *f.Emulator == "" {
		return fmt.Errorf("%w: -emulator is required", ErrUsage)
	}
	if *f.ROM == "" {
		return fmt.Errorf("%w: -rom is required", ErrUsage)
	}
	if !*f.WatchOnly && *f.Exe == "" {
		return fmt.Errorf("%w: -exe is required unless -watch-only is set", ErrUsage)
	}
	if *f.WatchOnly && *f.Resume != "" {
		return fmt.Errorf("%w: -resume needs a launch, not -watch-only", ErrUsage)
	}
	return nil
}

// Setup initializes logging, the user config and error reporting.
//
//nolint:gocritic // config struct copied for immutability
func Setup(
	configDir string,
	logDir string,
	defaultConfig config.Values,
	writers []io.Writer,
) (*config.Instance, error) {
	err := helpers.InitLogging(logDir, writers)
	if err != nil {
		return nil, fmt.Errorf("error initializing logging: %w", err)
	}

	cfg, err := config.NewConfig(configDir, defaultConfig)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	helpers.SetDebug(cfg.DebugLogging())

	tel := cfg.Telemetry()
	if err := telemetry.Init(telemetry.Options{
		Enabled:    tel.Enabled,
		DSN:        tel.DSN,
		DeviceID:   tel.DeviceID,
		AppVersion: config.AppVersion,
	}); err != nil {
		log.Warn().Err(err).Msg("failed to initialize error reporting")
	}

	return cfg, nil
}

// Registry loads the built-in profiles with the user's overrides on top.
func Registry(cfg *config.Instance) (*emulators.Registry, error) {
	reg, err := emulators.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load emulator profiles: %w", err)
	}
	overrides := cfg.Emulators()
	if len(overrides) == 0 {
		return reg, nil
	}
	reg, err = reg.Merge(overrides)
	if err != nil {
		return nil, fmt.Errorf("invalid emulator overrides in %s: %w", cfg.Path(), err)
	}
	return reg, nil
}

func printVersion(w io.Writer) {
	_, _ = fmt.Fprintf(w, "Zaparoo Statewatch v%s\n", config.AppVersion)
}
