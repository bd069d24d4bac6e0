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

package autoslot

import (
	"errors"
	"path"
	"testing"

	"github.com/ZaparooProject/zaparoo-statewatch/pkg/savestates"
	"github.com/ZaparooProject/zaparoo-statewatch/pkg/testing/helpers"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var retroarch = Options{
	Naming: savestates.Naming{
		StateExt:   ".state",
		AutoMarker: ".auto",
		Layout:     savestates.LayoutSuffix,
	},
}

// slotDir gives every test its own directory; the registry of staged slots
// is shared by the whole process.
func slotDir(t *testing.T) string {
	t.Helper()
	return path.Join("/", t.Name())
}

func content(t *testing.T, h *helpers.FSHelper, p string) string {
	t.Helper()
	data, err := h.ReadFile(p)
	require.NoError(t, err)
	return string(data)
}

func TestStage_RoundTrip(t *testing.T) {
	t.Parallel()

	h := helpers.NewMemoryFS()
	dir := slotDir(t)
	target := path.Join(dir, "game.state1")
	auto := path.Join(dir, "game.state.auto")
	require.NoError(t, h.WriteFile(target, []byte("slot one")))
	require.NoError(t, h.WriteFile(auto, []byte("users own auto save")))

	g, err := Stage(h.Fs, target, retroarch)
	require.NoError(t, err)
	assert.False(t, g.IsAutoFile())
	assert.Equal(t, auto, g.AutoPath())

	assert.Equal(t, "slot one", content(t, h, auto))
	assert.Equal(t, "users own auto save", content(t, h, auto+BackupSuffix))
	assert.Equal(t, "slot one", content(t, h, target))

	require.NoError(t, g.Close())
	assert.Equal(t, "users own auto save", content(t, h, auto))
	assert.False(t, h.FileExists(auto+BackupSuffix))
	assert.False(t, h.FileExists(auto+PlayedSuffix))
	assert.Equal(t, "slot one", content(t, h, target))

	require.NoError(t, g.Close(), "second close is a no-op")
	assert.Equal(t, "users own auto save", content(t, h, auto))
}

func TestStage_NoExistingAutoSlot(t *testing.T) {
	t.Parallel()

	h := helpers.NewMemoryFS()
	dir := slotDir(t)
	target := path.Join(dir, "game.state")
	auto := path.Join(dir, "game.state.auto")
	require.NoError(t, h.WriteFile(target, []byte("slot zero")))

	g, err := Stage(h.Fs, target, retroarch)
	require.NoError(t, err)
	assert.Equal(t, "slot zero", content(t, h, auto))
	assert.False(t, h.FileExists(auto+BackupSuffix))

	require.NoError(t, g.Close())
	assert.False(t, h.FileExists(auto))
}

func TestStage_TargetIsAutoSlot(t *testing.T) {
	t.Parallel()

	h := helpers.NewMemoryFS()
	auto := path.Join(slotDir(t), "Game.State.Auto")
	require.NoError(t, h.WriteFile(auto, []byte("auto")))

	g, err := Stage(h.Fs, auto, retroarch)
	require.NoError(t, err)
	assert.True(t, g.IsAutoFile())
	assert.False(t, h.FileExists(auto+BackupSuffix))

	require.NoError(t, g.Close())
	assert.Equal(t, "auto", content(t, h, auto))

	// pass-through guards do not hold the slot
	g2, err := Stage(h.Fs, auto, retroarch)
	require.NoError(t, err)
	require.NoError(t, g2.Close())
}

func TestStage_SeparatorNaming(t *testing.T) {
	t.Parallel()

	opts := Options{Naming: savestates.Naming{
		StateExt:   ".sav",
		AutoMarker: "_resume",
		Separator:  "_",
		Layout:     savestates.LayoutSeparator,
	}}
	h := helpers.NewMemoryFS()
	dir := slotDir(t)
	target := path.Join(dir, "game_4.sav")
	require.NoError(t, h.WriteFile(target, []byte("slot four")))

	g, err := Stage(h.Fs, target, opts)
	require.NoError(t, err)
	assert.Equal(t, path.Join(dir, "game_resume.sav"), g.AutoPath())
	assert.Equal(t, "slot four", content(t, h, g.AutoPath()))
	require.NoError(t, g.Close())
}

func TestStage_MissingTarget(t *testing.T) {
	t.Parallel()

	h := helpers.NewMemoryFS()
	target := path.Join(slotDir(t), "game.state2")

	_, err := Stage(h.Fs, target, retroarch)
	require.Error(t, err)

	_, err = Stage(h.Fs, "", retroarch)
	require.Error(t, err)

	// a failed stage must not keep the slot claimed
	require.NoError(t, h.WriteFile(target, []byte("two")))
	g, err := Stage(h.Fs, target, retroarch)
	require.NoError(t, err)
	require.NoError(t, g.Close())
}

func TestClose_DivergedWithBackup(t *testing.T) {
	t.Parallel()

	h := helpers.NewMemoryFS()
	dir := slotDir(t)
	target := path.Join(dir, "game.state1")
	auto := path.Join(dir, "game.state.auto")
	require.NoError(t, h.WriteFile(target, []byte("slot one")))
	require.NoError(t, h.WriteFile(auto, []byte("original")))

	for i, played := range []string{auto + PlayedSuffix, auto + PlayedSuffix + ".1"} {
		g, err := Stage(h.Fs, target, retroarch)
		require.NoError(t, err)

		progress := []byte("progress " + string(rune('a'+i)))
		require.NoError(t, h.WriteFile(auto, progress))

		require.NoError(t, g.Close())
		assert.Equal(t, "original", content(t, h, auto))
		assert.Equal(t, string(progress), content(t, h, played))
		assert.False(t, h.FileExists(auto+BackupSuffix))
	}
}

func TestClose_DivergedWithoutBackup(t *testing.T) {
	t.Parallel()

	h := helpers.NewMemoryFS()
	dir := slotDir(t)
	target := path.Join(dir, "game.state1")
	auto := path.Join(dir, "game.state.auto")
	require.NoError(t, h.WriteFile(target, []byte("slot one")))

	g, err := Stage(h.Fs, target, retroarch)
	require.NoError(t, err)
	require.NoError(t, h.WriteFile(auto, []byte("new progress")))

	require.NoError(t, g.Close())
	assert.Equal(t, "new progress", content(t, h, auto))
	assert.False(t, h.FileExists(auto+PlayedSuffix))
}

func TestClose_AutoSlotDeletedDuringSession(t *testing.T) {
	t.Parallel()

	h := helpers.NewMemoryFS()
	dir := slotDir(t)
	target := path.Join(dir, "game.state1")
	auto := path.Join(dir, "game.state.auto")
	require.NoError(t, h.WriteFile(target, []byte("slot one")))
	require.NoError(t, h.WriteFile(auto, []byte("original")))

	g, err := Stage(h.Fs, target, retroarch)
	require.NoError(t, err)
	require.NoError(t, h.Fs.Remove(auto))

	require.NoError(t, g.Close())
	assert.Equal(t, "original", content(t, h, auto))
}

func TestStage_BackupFailureLeavesSlotUntouched(t *testing.T) {
	t.Parallel()

	h := helpers.NewMemoryFS()
	dir := slotDir(t)
	target := path.Join(dir, "game.state1")
	auto := path.Join(dir, "game.state.auto")
	require.NoError(t, h.WriteFile(target, []byte("slot one")))
	require.NoError(t, h.WriteFile(auto, []byte("original")))

	_, err := Stage(afero.NewReadOnlyFs(h.Fs), target, retroarch)
	require.ErrorIs(t, err, ErrStageBackup)
	assert.Equal(t, "original", content(t, h, auto))
	assert.False(t, h.FileExists(auto+BackupSuffix))

	g, err := Stage(h.Fs, target, retroarch)
	require.NoError(t, err, "failed stage released the slot")
	require.NoError(t, g.Close())
}

func TestStage_RecoversStaleBackup(t *testing.T) {
	t.Parallel()

	h := helpers.NewMemoryFS()
	dir := slotDir(t)
	target := path.Join(dir, "game.state3")
	auto := path.Join(dir, "game.state.auto")
	require.NoError(t, h.WriteFile(target, []byte("slot three")))
	require.NoError(t, h.WriteFile(auto, []byte("left by crashed session")))
	require.NoError(t, h.WriteFile(auto+BackupSuffix, []byte("original")))

	g, err := Stage(h.Fs, target, retroarch)
	require.NoError(t, err)
	assert.Equal(t, "slot three", content(t, h, auto))
	assert.Equal(t, "original", content(t, h, auto+BackupSuffix))
	assert.Equal(t, "left by crashed session", content(t, h, auto+PlayedSuffix))

	require.NoError(t, g.Close())
	assert.Equal(t, "original", content(t, h, auto))
	assert.False(t, h.FileExists(auto+BackupSuffix))
}

func TestStage_AlreadyStaged(t *testing.T) {
	t.Parallel()

	h := helpers.NewMemoryFS()
	dir := slotDir(t)
	target := path.Join(dir, "game.state1")
	other := path.Join(dir, "game.state2")
	require.NoError(t, h.WriteFile(target, []byte("one")))
	require.NoError(t, h.WriteFile(other, []byte("two")))

	g, err := Stage(h.Fs, target, retroarch)
	require.NoError(t, err)

	_, err = Stage(h.Fs, other, retroarch)
	require.ErrorIs(t, err, ErrAlreadyStaged)
	assert.Equal(t, "one", content(t, h, g.AutoPath()))

	require.NoError(t, g.Close())

	g, err = Stage(h.Fs, other, retroarch)
	require.NoError(t, err)
	assert.Equal(t, "two", content(t, h, g.AutoPath()))
	require.NoError(t, g.Close())
}

func TestStage_Thumbnail(t *testing.T) {
	t.Parallel()

	dir := slotDir(t)
	thumb := path.Join(dir, "thumbs", "game_auto.png")
	opts := retroarch
	opts.ThumbnailPath = func(string) string {
		return thumb
	}

	t.Run("restores_original_thumbnail", func(t *testing.T) {
		t.Parallel()

		h := helpers.NewMemoryFS()
		target := path.Join(dir, "a", "game.state1")
		auto := path.Join(dir, "a", "game.state.auto")
		require.NoError(t, h.WriteFile(target, []byte("one")))
		require.NoError(t, h.WriteFile(auto, []byte("original")))
		require.NoError(t, h.WriteFile(thumb, []byte("original thumb")))

		g, err := Stage(h.Fs, target, opts)
		require.NoError(t, err)
		assert.False(t, h.FileExists(thumb))
		assert.True(t, h.FileExists(thumb+BackupSuffix))

		require.NoError(t, h.WriteFile(thumb, []byte("session thumb")))
		require.NoError(t, g.Close())
		assert.Equal(t, "original thumb", content(t, h, thumb))
		assert.False(t, h.FileExists(thumb+BackupSuffix))
	})

	t.Run("removes_session_thumbnail", func(t *testing.T) {
		t.Parallel()

		h := helpers.NewMemoryFS()
		target := path.Join(dir, "b", "game.state1")
		require.NoError(t, h.WriteFile(target, []byte("one")))

		g, err := Stage(h.Fs, target, opts)
		require.NoError(t, err)
		require.NoError(t, h.WriteFile(thumb, []byte("session thumb")))

		require.NoError(t, g.Close())
		assert.False(t, h.FileExists(thumb))
	})
}

// renameFailFs fails renames away from one path.
type renameFailFs struct {
	afero.Fs
	from string
}

func (f renameFailFs) Rename(oldname, newname string) error {
	if oldname == f.from {
		return errors.New("device busy")
	}
	return f.Fs.Rename(oldname, newname) //nolint:wrapcheck // test passthrough
}

func TestStage_ThumbnailBackupFailureRollsBack(t *testing.T) {
	t.Parallel()

	h := helpers.NewMemoryFS()
	dir := slotDir(t)
	target := path.Join(dir, "game.state1")
	auto := path.Join(dir, "game.state.auto")
	thumb := path.Join(dir, "game_auto.png")
	require.NoError(t, h.WriteFile(target, []byte("one")))
	require.NoError(t, h.WriteFile(auto, []byte("original")))
	require.NoError(t, h.WriteFile(thumb, []byte("thumb")))

	opts := retroarch
	opts.ThumbnailPath = func(string) string {
		return thumb
	}

	_, err := Stage(renameFailFs{Fs: h.Fs, from: thumb}, target, opts)
	require.ErrorIs(t, err, ErrStageBackup)
	assert.Equal(t, "original", content(t, h, auto))
	assert.Equal(t, "thumb", content(t, h, thumb))
	assert.False(t, h.FileExists(auto+BackupSuffix))
}

func TestWith(t *testing.T) {
	t.Parallel()

	setup := func(t *testing.T) (h *helpers.FSHelper, target, auto string) {
		t.Helper()
		h = helpers.NewMemoryFS()
		dir := slotDir(t)
		target = path.Join(dir, "game.state1")
		auto = path.Join(dir, "game.state.auto")
		require.NoError(t, h.WriteFile(target, []byte("one")))
		require.NoError(t, h.WriteFile(auto, []byte("original")))
		return h, target, auto
	}

	t.Run("releases_after_fn", func(t *testing.T) {
		t.Parallel()

		h, target, auto := setup(t)
		err := With(h.Fs, target, retroarch, func(g *Guard) error {
			assert.Equal(t, "one", content(t, h, g.AutoPath()))
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, "original", content(t, h, auto))
	})

	t.Run("returns_fn_error", func(t *testing.T) {
		t.Parallel()

		h, target, auto := setup(t)
		errLaunch := errors.New("emulator failed")
		err := With(h.Fs, target, retroarch, func(*Guard) error {
			return errLaunch
		})
		require.ErrorIs(t, err, errLaunch)
		assert.Equal(t, "original", content(t, h, auto))
	})

	t.Run("releases_on_panic", func(t *testing.T) {
		t.Parallel()

		h, target, auto := setup(t)
		assert.PanicsWithValue(t, "emulator crashed", func() {
			_ = With(h.Fs, target, retroarch, func(*Guard) error {
				panic("emulator crashed")
			})
		})
		assert.Equal(t, "original", content(t, h, auto))
		assert.False(t, h.FileExists(auto+BackupSuffix))
	})

	t.Run("stage_error_skips_fn", func(t *testing.T) {
		t.Parallel()

		h, target, _ := setup(t)
		called := false
		err := With(afero.NewReadOnlyFs(h.Fs), target, retroarch, func(*Guard) error {
			called = true
			return nil
		})
		require.ErrorIs(t, err, ErrStageBackup)
		assert.False(t, called)
	})
}
