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

// Package screenshot extracts a thumbnail image for a save state. Emulators
// store that image in one of three ways: embedded as raw pixels behind a
// fixed binary header, as an entry inside a zip-format state file, or as a
// separate side-car image written next to the state. Each way is a Strategy.
package screenshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/zaparoo-statewatch/pkg/savestates"
	"github.com/spf13/afero"
)

// ErrNoScreenshot means the state has no usable screenshot. It covers
// malformed headers, missing archive entries and missing side-car files.
var ErrNoScreenshot = errors.New("no screenshot available")

func noScreenshot(reason string) error {
	return fmt.Errorf("%w: %s", ErrNoScreenshot, reason)
}

// Strategy produces PNG bytes for a save state.
type Strategy interface {
	Extract(ctx context.Context, fs afero.Fs, state savestates.State) ([]byte, error)
}

type Kind string

const (
	KindNone      Kind = "none"
	KindSideCar   Kind = "sidecar"
	KindRawHeader Kind = "rawheader"
	KindZip       Kind = "zip"
)

const (
	DefaultZipEntry  = "Screenshot.png"
	DefaultTolerance = 3 * time.Second
)

// Config selects and parameterizes a Strategy.
type Config struct {
	Kind       Kind
	Layout     string
	Entry      string
	Suffix     string
	ReplaceExt string
	Dir        string
	Exts       []string
	Tolerance  time.Duration
}

// New builds the Strategy described by cfg.
func New(cfg Config) (Strategy, error) {
	switch cfg.Kind {
	case KindNone, "":
		return None{}, nil
	case KindRawHeader:
		layout, ok := LookupLayout(cfg.Layout)
		if !ok {
			return nil, fmt.Errorf("unknown raw header layout: %q", cfg.Layout)
		}
		return RawHeader{Layout: layout}, nil
	case KindZip:
		entry := cfg.Entry
		if entry == "" {
			entry = DefaultZipEntry
		}
		return ZipEntry{Name: entry}, nil
	case KindSideCar:
		if cfg.Suffix == "" && cfg.ReplaceExt == "" && cfg.Dir == "" {
			return nil, errors.New("side-car screenshot needs a suffix, extension or directory")
		}
		return SideCar{
			Suffix:     cfg.Suffix,
			ReplaceExt: cfg.ReplaceExt,
			Dir:        cfg.Dir,
			Exts:       cfg.Exts,
			Tolerance:  cfg.Tolerance,
		}, nil
	default:
		return nil, fmt.Errorf("unknown screenshot kind: %q", cfg.Kind)
	}
}

// None is used for emulators that never store a screenshot.
type None struct{}

func (None) Extract(context.Context, afero.Fs, savestates.State) ([]byte, error) {
	return nil, noScreenshot("emulator stores no screenshots")
}
