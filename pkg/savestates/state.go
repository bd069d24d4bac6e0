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

package savestates

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/afero"
)

// State is one save state file written by an emulator for a ROM.
type State struct {
	ModTime time.Time
	ROMPath string
	Path    string
	Slot    Slot
	Size    int64
}

// List returns the state files in dir that belong to romPath, newest first.
// A missing directory is not an error.
func List(fs afero.Fs, dir, romPath string, n Naming) ([]State, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		if exists, _ := afero.DirExists(fs, dir); !exists {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read state dir: %w", err)
	}

	states := make([]State, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		slot, ok := n.ParseSlot(romPath, entry.Name())
		if !ok {
			continue
		}
		states = append(states, State{
			ROMPath: romPath,
			Path:    filepath.Join(dir, entry.Name()),
			Slot:    slot,
			ModTime: entry.ModTime(),
			Size:    entry.Size(),
		})
	}

	sort.SliceStable(states, func(i, j int) bool {
		return states[i].ModTime.After(states[j].ModTime)
	})

	return states, nil
}

// Latest returns the most recently written state, if any.
func Latest(states []State) (State, bool) {
	var latest State
	found := false
	for _, s := range states {
		if !found || s.ModTime.After(latest.ModTime) {
			latest = s
			found = true
		}
	}
	return latest, found
}
