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
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// Save writes a thumbnail to dest, replacing any existing file. The data is
// written to a temporary file in the same directory first and renamed into
// place, so readers never see a partial image.
func Save(fs afero.Fs, dest string, data []byte) error {
	dir := filepath.Dir(dest)
	if err := fs.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create thumbnail dir: %w", err)
	}

	tmp := filepath.Join(dir, "."+filepath.Base(dest)+"."+uuid.NewString()+".tmp")
	//nolint:gosec // thumbnails are read by frontends running as other users
	if err := afero.WriteFile(fs, tmp, data, 0o644); err != nil {
		_ = fs.Remove(tmp)
		return fmt.Errorf("failed to write thumbnail: %w", err)
	}

	if err := fs.Rename(tmp, dest); err != nil {
		_ = fs.Remove(tmp)
		return fmt.Errorf("failed to move thumbnail into place: %w", err)
	}

	return nil
}
