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
	"archive/zip"
	"context"
	"fmt"
	"io"

	"github.com/ZaparooProject/zaparoo-statewatch/pkg/savestates"
	"github.com/spf13/afero"
)

const maxEntrySize = 64 << 20

// ZipEntry extracts a screenshot stored as a named entry of a zip-format
// state file. The entry name is matched case-sensitively.
type ZipEntry struct {
	Name string
}

func (s ZipEntry) Extract(_ context.Context, fs afero.Fs, state savestates.State) ([]byte, error) {
	f, err := fs.Open(state.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat state: %w", err)
	}

	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return nil, noScreenshot("state is not a zip archive")
	}

	for _, entry := range zr.File {
		if entry.Name == s.Name {
			return readEntry(entry)
		}
	}

	return nil, noScreenshot(fmt.Sprintf("archive has no %q entry", s.Name))
}

func readEntry(entry *zip.File) ([]byte, error) {
	if entry.UncompressedSize64 > maxEntrySize {
		return nil, noScreenshot("archive entry too large")
	}

	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open archive entry: %w", err)
	}
	defer func() {
		_ = rc.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(rc, maxEntrySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read archive entry: %w", err)
	}
	if len(data) > maxEntrySize {
		return nil, noScreenshot("archive entry too large")
	}

	return toPNG(data)
}
