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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

var (
	retroArchNaming = Naming{
		StateExt:   ".state",
		AutoMarker: ".auto",
		Layout:     LayoutSuffix,
	}
	duckStationNaming = Naming{
		StateExt:   ".sav",
		AutoMarker: "_resume",
		Separator:  "_",
		Layout:     LayoutSeparator,
	}
	pcsx2Naming = Naming{
		StateExt:   ".p2s",
		AutoMarker: ".resume",
		Separator:  ".",
		Layout:     LayoutSeparator,
		IndexWidth: 2,
	}
)

func TestNaming_FileName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		want   string
		naming Naming
		slot   Slot
	}{
		{name: "suffix_slot_zero", naming: retroArchNaming, slot: IndexSlot(0), want: "game.state"},
		{name: "suffix_slot_three", naming: retroArchNaming, slot: IndexSlot(3), want: "game.state3"},
		{name: "suffix_auto", naming: retroArchNaming, slot: AutoSlot(), want: "game.state.auto"},
		{name: "separator_slot", naming: duckStationNaming, slot: IndexSlot(1), want: "game_1.sav"},
		{name: "separator_auto", naming: duckStationNaming, slot: AutoSlot(), want: "game_resume.sav"},
		{name: "padded_slot", naming: pcsx2Naming, slot: IndexSlot(1), want: "game.01.p2s"},
		{name: "padded_auto", naming: pcsx2Naming, slot: AutoSlot(), want: "game.resume.p2s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.naming.FileName(filepath.Join("roms", "game.rom"), tt.slot))
		})
	}
}

func TestNaming_ParseSlot(t *testing.T) {
	t.Parallel()

	rom := filepath.Join("roms", "game.rom")

	tests := []struct {
		name     string
		file     string
		naming   Naming
		wantSlot Slot
		wantOK   bool
	}{
		{name: "suffix_auto", naming: retroArchNaming, file: "game.state.auto", wantSlot: AutoSlot(), wantOK: true},
		{name: "suffix_auto_case_insensitive", naming: retroArchNaming, file: "GAME.State.Auto", wantSlot: AutoSlot(), wantOK: true},
		{name: "suffix_numbered", naming: retroArchNaming, file: "game.state12", wantSlot: IndexSlot(12), wantOK: true},
		{name: "suffix_default_slot", naming: retroArchNaming, file: "game.state", wantSlot: IndexSlot(0), wantOK: true},
		{name: "suffix_sidecar_png", naming: retroArchNaming, file: "game.state.auto.png"},
		{name: "other_rom", naming: retroArchNaming, file: "game2.state"},
		{name: "unrelated_ext", naming: retroArchNaming, file: "game.srm"},
		{name: "separator_auto", naming: duckStationNaming, file: "game_resume.sav", wantSlot: AutoSlot(), wantOK: true},
		{name: "separator_numbered", naming: duckStationNaming, file: "game_4.sav", wantSlot: IndexSlot(4), wantOK: true},
		{name: "separator_bad_index", naming: duckStationNaming, file: "game_x.sav"},
		{name: "padded_numbered", naming: pcsx2Naming, file: "game.09.p2s", wantSlot: IndexSlot(9), wantOK: true},
		{name: "rom_name_only", naming: retroArchNaming, file: "game"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			slot, ok := tt.naming.ParseSlot(rom, tt.file)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantSlot, slot)
			}
		})
	}
}

func TestNaming_AutoPath(t *testing.T) {
	t.Parallel()

	dir := filepath.Join("saves", "states")

	tests := []struct {
		name   string
		in     string
		want   string
		naming Naming
	}{
		{name: "suffix_numbered", naming: retroArchNaming, in: "game.state2", want: "game.state.auto"},
		{name: "suffix_already_auto", naming: retroArchNaming, in: "game.state.auto", want: "game.state.auto"},
		{name: "suffix_default_slot", naming: retroArchNaming, in: "game.state", want: "game.state.auto"},
		{name: "separator_numbered", naming: duckStationNaming, in: "game_7.sav", want: "game_resume.sav"},
		{name: "separator_already_auto", naming: duckStationNaming, in: "game_resume.sav", want: "game_resume.sav"},
		{name: "padded_numbered", naming: pcsx2Naming, in: "game.03.p2s", want: "game.resume.p2s"},
		{name: "foreign_file_falls_back_to_stem", naming: retroArchNaming, in: "game.bin", want: "game.state.auto"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, filepath.Join(dir, tt.want), tt.naming.AutoPath(filepath.Join(dir, tt.in)))
		})
	}
}

func TestThumbnailPath(t *testing.T) {
	t.Parallel()

	rom := filepath.Join("roms", "snes", "Super Game.sfc")
	assert.Equal(t,
		filepath.Join("thumbs", "Super Game_auto.png"),
		ThumbnailPath("thumbs", rom, AutoSlot()),
	)
	assert.Equal(t,
		filepath.Join("thumbs", "Super Game_5.png"),
		ThumbnailPath("thumbs", rom, IndexSlot(5)),
	)
}

func slotGen() *rapid.Generator[Slot] {
	return rapid.Custom(func(t *rapid.T) Slot {
		if rapid.Bool().Draw(t, "auto") {
			return AutoSlot()
		}
		return IndexSlot(rapid.IntRange(0, 999).Draw(t, "index"))
	})
}

// TestPropertyParseSlotInvertsFileName verifies every generated name parses
// back to the slot it was built from.
func TestPropertyParseSlotInvertsFileName(t *testing.T) {
	t.Parallel()
	namings := []Naming{retroArchNaming, duckStationNaming, pcsx2Naming}
	rapid.Check(t, func(t *rapid.T) {
		naming := rapid.SampledFrom(namings).Draw(t, "naming")
		base := rapid.StringMatching(`[a-zA-Z][a-zA-Z0-9 ()-]{0,20}`).Draw(t, "base")
		slot := slotGen().Draw(t, "slot")
		rom := filepath.Join("roms", base+".bin")

		got, ok := naming.ParseSlot(rom, naming.FileName(rom, slot))
		if !ok {
			t.Fatalf("name %q not recognized", naming.FileName(rom, slot))
		}
		if got != slot {
			t.Fatalf("slot mismatch: got %v, want %v", got, slot)
		}
	})
}

// TestPropertyAutoPathIdempotent verifies AutoPath(AutoPath(p)) == AutoPath(p).
func TestPropertyAutoPathIdempotent(t *testing.T) {
	t.Parallel()
	namings := []Naming{retroArchNaming, duckStationNaming, pcsx2Naming}
	rapid.Check(t, func(t *rapid.T) {
		naming := rapid.SampledFrom(namings).Draw(t, "naming")
		base := rapid.StringMatching(`[a-zA-Z][a-zA-Z0-9 ()-]{0,20}`).Draw(t, "base")
		slot := slotGen().Draw(t, "slot")
		path := filepath.Join("states", naming.FileName(base+".bin", slot))

		once := naming.AutoPath(path)
		if twice := naming.AutoPath(once); once != twice {
			t.Fatalf("not idempotent: %q then %q", once, twice)
		}
		if want := filepath.Join("states", naming.FileName(base+".bin", AutoSlot())); once != want {
			t.Fatalf("auto path %q, want %q", once, want)
		}
	})
}
