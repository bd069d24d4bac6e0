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

// Package savestates describes emulator save state files: how they are named
// on disk for a given ROM, which slot a file belongs to, and where the
// matching thumbnail is written.
package savestates

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Layout selects how a slot discriminator is combined with the ROM name.
type Layout string

const (
	// LayoutSuffix appends the slot after the state extension, RetroArch
	// style: game.state, game.state1, game.state.auto.
	LayoutSuffix Layout = "suffix"
	// LayoutSeparator puts the slot between the ROM name and the extension:
	// game_1.sav, game_resume.sav.
	LayoutSeparator Layout = "separator"
)

const (
	autoName      = "auto"
	maxSlotDigits = 6
)

// Slot is a save state slot discriminator: a numbered slot or the auto slot.
type Slot struct {
	Index int
	Auto  bool
}

func AutoSlot() Slot {
	return Slot{Auto: true}
}

func IndexSlot(i int) Slot {
	return Slot{Index: i}
}

func (s Slot) String() string {
	if s.Auto {
		return autoName
	}
	return strconv.Itoa(s.Index)
}

// Naming is the file naming rule an emulator uses for its save states.
type Naming struct {
	StateExt   string
	AutoMarker string
	Separator  string
	Layout     Layout
	// IndexWidth zero-pads numbered slots, e.g. 2 gives game.01.p2s.
	IndexWidth int
}

func (n Naming) layout() Layout {
	if n.Layout == "" {
		return LayoutSuffix
	}
	return n.Layout
}

// RomBase returns the ROM file name without directory and extension.
func RomBase(romPath string) string {
	name := filepath.Base(romPath)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func (n Naming) index(i int) string {
	if n.IndexWidth > 0 {
		return fmt.Sprintf("%0*d", n.IndexWidth, i)
	}
	return strconv.Itoa(i)
}

func (n Naming) nameFor(base string, slot Slot) string {
	if n.layout() == LayoutSeparator {
		if slot.Auto {
			return base + n.AutoMarker + n.StateExt
		}
		return base + n.Separator + n.index(slot.Index) + n.StateExt
	}

	switch {
	case slot.Auto:
		return base + n.StateExt + n.AutoMarker
	case slot.Index == 0:
		return base + n.StateExt
	default:
		return base + n.StateExt + n.index(slot.Index)
	}
}

// FileName returns the state file name the emulator writes for the ROM and
// slot.
func (n Naming) FileName(romPath string, slot Slot) string {
	return n.nameFor(RomBase(romPath), slot)
}

// ParseSlot reports which slot fileName holds for the given ROM. It returns
// false when the file belongs to another ROM or is not a state file.
func (n Naming) ParseSlot(romPath, fileName string) (Slot, bool) {
	base := RomBase(romPath)
	if base == "" || len(fileName) <= len(base) || !strings.EqualFold(fileName[:len(base)], base) {
		return Slot{}, false
	}
	rest := fileName[len(base):]

	if n.layout() == LayoutSeparator {
		if !hasSuffixFold(rest, n.StateExt) {
			return Slot{}, false
		}
		mid := rest[:len(rest)-len(n.StateExt)]
		if n.AutoMarker != "" && strings.EqualFold(mid, n.AutoMarker) {
			return AutoSlot(), true
		}
		if n.Separator == "" || !hasPrefixFold(mid, n.Separator) {
			return Slot{}, false
		}
		return parseIndex(mid[len(n.Separator):])
	}

	if !hasPrefixFold(rest, n.StateExt) {
		return Slot{}, false
	}
	tail := rest[len(n.StateExt):]
	switch {
	case tail == "":
		return IndexSlot(0), true
	case n.AutoMarker != "" && strings.EqualFold(tail, n.AutoMarker):
		return AutoSlot(), true
	default:
		return parseIndex(tail)
	}
}

// AutoPath returns the path the emulator treats as its auto slot for the
// same ROM as statePath. Any auto marker already present is stripped first,
// so AutoPath is idempotent.
func (n Naming) AutoPath(statePath string) string {
	dir, name := filepath.Split(statePath)
	return filepath.Join(dir, n.nameFor(n.stateBase(name), AutoSlot()))
}

func (n Naming) stateBase(name string) string {
	if n.layout() == LayoutSeparator {
		if !hasSuffixFold(name, n.StateExt) {
			return trimExt(name)
		}
		mid := name[:len(name)-len(n.StateExt)]
		if n.AutoMarker != "" && hasSuffixFold(mid, n.AutoMarker) {
			return mid[:len(mid)-len(n.AutoMarker)]
		}
		if n.Separator != "" {
			if i := strings.LastIndex(mid, n.Separator); i > 0 && isDigits(mid[i+len(n.Separator):]) {
				return mid[:i]
			}
		}
		return mid
	}

	if n.StateExt != "" {
		lower := strings.ToLower(name)
		if i := strings.LastIndex(lower, strings.ToLower(n.StateExt)); i > 0 {
			tail := name[i+len(n.StateExt):]
			if tail == "" || isDigits(tail) || (n.AutoMarker != "" && strings.EqualFold(tail, n.AutoMarker)) {
				return name[:i]
			}
		}
	}
	if n.AutoMarker != "" && hasSuffixFold(name, n.AutoMarker) {
		name = name[:len(name)-len(n.AutoMarker)]
	}
	return trimExt(name)
}

// ThumbnailName is the destination file name for a slot's extracted
// screenshot: <romBase>_<slot>.png.
func ThumbnailName(romPath string, slot Slot) string {
	return RomBase(romPath) + "_" + slot.String() + ".png"
}

func ThumbnailPath(thumbsDir, romPath string, slot Slot) string {
	return filepath.Join(thumbsDir, ThumbnailName(romPath, slot))
}

func parseIndex(s string) (Slot, bool) {
	if !isDigits(s) || len(s) > maxSlotDigits {
		return Slot{}, false
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return Slot{}, false
	}
	return IndexSlot(i), true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func hasSuffixFold(s, suffix string) bool {
	return len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix)
}

func trimExt(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
