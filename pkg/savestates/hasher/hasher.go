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

// Package hasher fingerprints save state files so a staged copy can later be
// recognized as untouched.
package hasher

import (
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"
)

// Hash identifies file content.
type Hash struct {
	Sum  uint64
	Size int64
}

func (h Hash) Equal(other Hash) bool {
	return h.Sum == other.Sum && h.Size == other.Size
}

func (h Hash) String() string {
	return fmt.Sprintf("%016x:%d", h.Sum, h.Size)
}

// HashFile computes the content hash of a file.
func HashFile(fs afero.Fs, path string) (Hash, error) {
	f, err := fs.Open(path)
	if err != nil {
		return Hash{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	return hashReader(f)
}

func hashReader(r io.Reader) (Hash, error) {
	d := xxhash.New()
	n, err := io.Copy(d, r)
	if err != nil {
		return Hash{}, fmt.Errorf("failed to read file for hashing: %w", err)
	}
	return Hash{Sum: d.Sum64(), Size: n}, nil
}
