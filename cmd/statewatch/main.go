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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ZaparooProject/zaparoo-statewatch/internal/telemetry"
	"github.com/ZaparooProject/zaparoo-statewatch/pkg/cli"
	"github.com/ZaparooProject/zaparoo-statewatch/pkg/config"
	"github.com/ZaparooProject/zaparoo-statewatch/pkg/helpers/command"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags, err := cli.Parse(os.Args[1:])
	if err != nil {
		return err
	}
	if *flags.Version {
		return cli.Run(context.Background(), flags, cli.Env{})
	}

	cfg, err := cli.Setup(
		config.ConfigDir(),
		config.LogDir(),
		config.BaseDefaults,
		[]io.Writer{os.Stderr},
	)
	if err != nil {
		return err
	}
	defer telemetry.Close()

	defer func() {
		if err := recover(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %s\n", err)
			log.Fatal().Msgf("panic: %v", err)
		}
	}()

	reg, err := cli.Registry(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = cli.Run(ctx, flags, cli.Env{
		Fs:       afero.NewOsFs(),
		Executor: &command.RealExecutor{},
		Config:   cfg,
		Registry: reg,
	})
	if errors.Is(err, context.Canceled) {
		log.Info().Msg("interrupted")
		return nil
	}
	if err != nil {
		log.Error().Err(err).Msg("session failed")
	}
	return err
}
