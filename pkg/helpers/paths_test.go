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

package helpers

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNormalizePathForComparison(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "forward_slashes", input: "C:/RetroArch/states/game.state", want: "c:/retroarch/states/game.state"},
		{name: "trailing_slash", input: "/home/user/States/", want: "/home/user/states"},
		{name: "dot_segments", input: "/saves/./psx/../psx/Game.SAV", want: "/saves/psx/game.sav"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NormalizePathForComparison(tt.input))
		})
	}
}

func TestNormalizePathForComparison_Backslashes(t *testing.T) {
	t.Parallel()

	got := NormalizePathForComparison(`C:\RetroArch\States\game.state`)
	if runtime.GOOS == "windows" {
		assert.Equal(t, "c:/retroarch/states/game.state", got)
	} else {
		// Unix: backslashes are filename chars, preserved as-is
		assert.Equal(t, `c:\retroarch\states\game.state`, got)
	}
}

func TestPathEqual(t *testing.T) {
	t.Parallel()

	assert.True(t, PathEqual("/states/Game.state.auto", "/states/game.STATE.auto"))
	assert.True(t, PathEqual("/states/./game.state", "/states/game.state"))
	assert.False(t, PathEqual("/states/game.state", "/states/game.state.auto"))
	assert.False(t, PathEqual("", "/states"))
	assert.True(t, PathEqual("", ""))
}

func TestPathEqual_Properties(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		p := rapid.StringMatching(`/[a-zA-Z0-9_.]{1,12}(/[a-zA-Z0-9_]{1,12}){0,3}`).Draw(t, "path")
		if !PathEqual(p, p) {
			t.Fatalf("path not equal to itself: %q", p)
		}
		if !PathEqual(filepath.Join(p, "child", ".."), p) {
			t.Fatalf("cleaned child not equal to %q", p)
		}
	})
}

func TestResolvePath(t *testing.T) {
	t.Parallel()

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Empty(t, ResolvePath("/emu", ""))
	assert.Equal(t, filepath.Join("/emu", "states"), ResolvePath("/emu", "states"))
	assert.Equal(t, filepath.Clean("/abs/states"), ResolvePath("/emu", "/abs/states"))
	assert.Equal(t, filepath.Join(home, ".config", "emu"), ResolvePath("/emu", "~/.config/emu"))
	assert.Equal(t, "states", ResolvePath("", "states"))
}

func TestScrubUserPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "no user", input: "/usr/share/retroarch/states", want: "/usr/share/retroarch/states"},
		{
			name:  "linux home",
			input: "/home/sam/.config/retroarch/states/Game.state",
			want:  "/home/<user>/.config/retroarch/states/Game.state",
		},
		{
			name:  "macos users lowercase",
			input: "/users/sam/Library/Application Support/Dolphin",
			want:  "/Users/<user>/Library/Application Support/Dolphin",
		},
		{
			name:  "windows other drive",
			input: `D:\Users\sam\Documents\PCSX2\sstates`,
			want:  `C:\Users\<user>\Documents\PCSX2\sstates`,
		},
		{
			name:  "embedded in message",
			input: "copy /home/a/x.state to /home/b/y.state failed",
			want:  "copy /home/<user>/x.state to /home/<user>/y.state failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ScrubUserPath(tt.input))
		})
	}
}
