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

package emulators

import (
	"path/filepath"
	"testing"

	"github.com/ZaparooProject/zaparoo-statewatch/pkg/savestates"
	"github.com/ZaparooProject/zaparoo-statewatch/pkg/savestates/screenshot"
	"github.com/ZaparooProject/zaparoo-statewatch/pkg/savestates/watcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_BuiltinCatalogue(t *testing.T) {
	t.Parallel()

	r, err := Load()
	require.NoError(t, err)

	ids := make([]string, 0)
	for _, p := range r.Profiles() {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"dolphin", "duckstation", "mesen", "pcsx2", "ppsspp", "retroarch"}, ids)
}

func TestProfile_StateFileNames(t *testing.T) {
	t.Parallel()

	r, err := Load()
	require.NoError(t, err)

	tests := []struct {
		id   string
		auto string
		slot string
	}{
		{id: "retroarch", auto: "game.state.auto", slot: "game.state1"},
		{id: "duckstation", auto: "game_resume.sav", slot: "game_1.sav"},
		{id: "pcsx2", auto: "game.resume.p2s", slot: "game.01.p2s"},
		{id: "ppsspp", auto: "game_undo.ppst", slot: "game_1.ppst"},
		{id: "dolphin", auto: "game.s.auto", slot: "game.s01"},
		{id: "mesen", auto: "game_auto.mss", slot: "game_1.mss"},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			t.Parallel()

			p, err := r.Lookup(tt.id)
			require.NoError(t, err)
			n := p.Naming()
			assert.Equal(t, tt.auto, n.FileName("/roms/game.bin", savestates.AutoSlot()))
			assert.Equal(t, tt.slot, n.FileName("/roms/game.bin", savestates.IndexSlot(1)))
			assert.Equal(t, tt.auto, filepath.Base(n.AutoPath(filepath.Join("/s", tt.slot))))
		})
	}
}

func TestProfile_StrategyAndMethod(t *testing.T) {
	t.Parallel()

	r, err := Load()
	require.NoError(t, err)

	duck, err := r.Lookup("DuckStation")
	require.NoError(t, err)
	s, err := duck.Strategy("/emu")
	require.NoError(t, err)
	assert.IsType(t, screenshot.RawHeader{}, s)
	m, err := duck.Method()
	require.NoError(t, err)
	assert.Equal(t, watcher.MethodCreated, m)

	pcsx2, err := r.Lookup("pcsx2")
	require.NoError(t, err)
	s, err = pcsx2.Strategy("/emu")
	require.NoError(t, err)
	assert.Equal(t, screenshot.ZipEntry{Name: "Screenshot.png"}, s)

	dolphin, err := r.Lookup("dolphin")
	require.NoError(t, err)
	s, err = dolphin.Strategy("/opt/dolphin")
	require.NoError(t, err)
	sc, ok := s.(screenshot.SideCar)
	require.True(t, ok)
	assert.Equal(t, filepath.Join("/opt/dolphin", "User", "ScreenShots"), sc.Dir)
	assert.Equal(t, 3*1000, int(sc.Tolerance.Milliseconds()))

	ra, err := r.Lookup("retroarch")
	require.NoError(t, err)
	m, err = ra.Method()
	require.NoError(t, err)
	assert.Equal(t, watcher.MethodChanged, m)
}

func TestLookup_Unknown(t *testing.T) {
	t.Parallel()

	r, err := Load()
	require.NoError(t, err)

	_, err = r.Lookup("snes9x")
	require.ErrorIs(t, err, ErrUnknownEmulator)
}

func TestProfile_StateDirs(t *testing.T) {
	t.Parallel()

	r, err := Load()
	require.NoError(t, err)
	p, err := r.Lookup("retroarch")
	require.NoError(t, err)

	priv, shared := p.StateDirs("/opt/retroarch", "/home/user/.local/share")
	assert.Equal(t, filepath.Join("/opt/retroarch", "states"), priv)
	assert.Equal(t, filepath.Join("/home/user/.local/share", "retroarch", "states"), shared)

	priv, shared = p.StateDirs("", "")
	assert.Empty(t, priv)
	assert.Empty(t, shared)
}

func TestProfile_ConfigValues(t *testing.T) {
	t.Parallel()

	p := Profile{Config: &ConfigPatch{
		File:   "emu.ini",
		Format: "ini",
		Values: map[string]string{"Paths.SaveStates": StateDirPlaceholder + "/psx", "Main.Thumbs": "true"},
	}}
	assert.Equal(t, map[string]string{
		"Paths.SaveStates": "/states/psx",
		"Main.Thumbs":      "true",
	}, p.ConfigValues("/states"))

	assert.Nil(t, (&Profile{}).ConfigValues("/states"))
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
	}{
		{name: "not_yaml", yaml: "- id: [unterminated"},
		{name: "missing_ext", yaml: "- {id: emu, name: Emu, auto_marker: .auto}"},
		{name: "ext_without_dot", yaml: "- {id: emu, name: Emu, state_ext: sav, auto_marker: .auto}"},
		{name: "uppercase_id", yaml: "- {id: Emu, name: Emu, state_ext: .sav, auto_marker: .auto}"},
		{
			name: "separator_layout_without_separator",
			yaml: "- {id: emu, name: Emu, state_ext: .sav, auto_marker: _a, slot_layout: separator}",
		},
		{name: "bad_watch", yaml: "- {id: emu, name: Emu, state_ext: .sav, auto_marker: .a, watch: polling}"},
		{
			name: "rawheader_without_layout",
			yaml: "- {id: emu, name: Emu, state_ext: .sav, auto_marker: .a, screenshot: {kind: rawheader}}",
		},
		{
			name: "unknown_layout",
			yaml: "- {id: emu, name: Emu, state_ext: .sav, auto_marker: .a, screenshot: {kind: rawheader, layout: x}}",
		},
		{
			name: "sidecar_without_location",
			yaml: "- {id: emu, name: Emu, state_ext: .sav, auto_marker: .a, screenshot: {kind: sidecar}}",
		},
		{
			name: "bad_config_format",
			yaml: "- {id: emu, name: Emu, state_ext: .sav, auto_marker: .a, " +
				"config: {file: a.xml, format: xml, values: {a: b}}}",
		},
		{
			name: "duplicate",
			yaml: "- {id: emu, name: Emu, state_ext: .sav, auto_marker: .a}\n" +
				"- {id: emu, name: Emu, state_ext: .sav, auto_marker: .a}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
		})
	}
}

func TestRegistry_Merge(t *testing.T) {
	t.Parallel()

	r, err := Load()
	require.NoError(t, err)

	merged, err := r.Merge([]Profile{
		{ID: "RetroArch", PrivateDir: "saves/states", Watch: "created"},
		{
			ID:         "snes9x",
			Name:       "Snes9x",
			StateExt:   ".frz",
			AutoMarker: ".auto",
			PrivateDir: "Saves",
		},
	})
	require.NoError(t, err)

	ra, err := merged.Lookup("retroarch")
	require.NoError(t, err)
	assert.Equal(t, "saves/states", ra.PrivateDir)
	assert.Equal(t, "created", ra.Watch)
	assert.Equal(t, ".state", ra.StateExt, "unset override fields keep the built-in value")
	assert.Equal(t, ".png", ra.Screenshot.Suffix)

	orig, err := r.Lookup("retroarch")
	require.NoError(t, err)
	assert.Equal(t, "states", orig.PrivateDir, "merge must not change the source registry")

	snes, err := merged.Lookup("snes9x")
	require.NoError(t, err)
	s, err := snes.Strategy("")
	require.NoError(t, err)
	assert.Equal(t, screenshot.None{}, s)

	_, err = r.Lookup("snes9x")
	require.ErrorIs(t, err, ErrUnknownEmulator)

	_, err = r.Merge([]Profile{{ID: "incomplete", Name: "No Ext"}})
	require.Error(t, err)
}
