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
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZaparooProject/zaparoo-statewatch/pkg/savestates"
	"github.com/spf13/afero"
)

// DefaultImageExts are the side-car image types searched for when
// correlating by timestamp.
var DefaultImageExts = []string{".png", ".jpg", ".jpeg", ".bmp"}

// SideCar uses an image the emulator writes alongside the state. The image
// is found at a fixed location derived from the state path (Suffix or
// ReplaceExt), or, when Dir is set, by searching Dir for the newest image
// written within Tolerance of the state.
type SideCar struct {
	Suffix     string
	ReplaceExt string
	Dir        string
	Exts       []string
	Tolerance  time.Duration
}

func (s SideCar) Extract(ctx context.Context, fs afero.Fs, state savestates.State) ([]byte, error) {
	path, err := s.locate(ctx, fs, state)
	if err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read side-car image: %w", err)
	}

	return toPNG(data)
}

func (s SideCar) locate(ctx context.Context, fs afero.Fs, state savestates.State) (string, error) {
	if s.Dir != "" {
		exts := s.Exts
		if len(exts) == 0 {
			exts = DefaultImageExts
		}
		tolerance := s.Tolerance
		if tolerance <= 0 {
			tolerance = DefaultTolerance
		}
		return Correlate(ctx, fs, s.Dir, state.ModTime, tolerance, exts)
	}

	var path string
	switch {
	case s.Suffix != "":
		path = state.Path + s.Suffix
	case s.ReplaceExt != "":
		path = strings.TrimSuffix(state.Path, filepath.Ext(state.Path)) + s.ReplaceExt
	default:
		return "", noScreenshot("no side-car rule")
	}

	if exists, _ := afero.Exists(fs, path); !exists {
		return "", noScreenshot("side-car image missing")
	}
	return path, nil
}
