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

package telemetry

import (
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_Disabled(t *testing.T) {
	t.Parallel()

	require.NoError(t, Init(Options{DSN: "https://key@example.com/1"}))
	assert.False(t, Enabled(), "telemetry should stay disabled")

	// Should not panic when called while disabled
	Close()
}

func TestInit_EnabledWithoutDSN(t *testing.T) {
	t.Parallel()

	err := Init(Options{Enabled: true})
	require.ErrorIs(t, err, ErrNoDSN)
	assert.False(t, Enabled())
}

func TestSanitizeEvent(t *testing.T) {
	t.Parallel()

	event := &sentry.Event{
		ServerName: "sams-laptop",
		Message:    "failed to stage /home/sam/states/Game.state.auto",
		Extra: map[string]any{
			"path":  `C:\Users\sam\PCSX2\sstates\Game.p2s`,
			"count": 3,
		},
		Exception: []sentry.Exception{
			{
				Value: "open /Users/sam/Dolphin/Game.s01: permission denied",
				Stacktrace: &sentry.Stacktrace{Frames: []sentry.Frame{{
					AbsPath:  "/home/sam/src/statewatch/pkg/launch/launch.go",
					Filename: "launch.go",
				}}},
			},
			{Value: "no stack"},
		},
	}

	got := sanitizeEvent(event)

	assert.Empty(t, got.ServerName)
	assert.Equal(t, "failed to stage /home/<user>/states/Game.state.auto", got.Message)
	assert.Equal(t, `C:\Users\<user>\PCSX2\sstates\Game.p2s`, got.Extra["path"])
	assert.Equal(t, 3, got.Extra["count"])
	assert.Equal(t, "open /Users/<user>/Dolphin/Game.s01: permission denied", got.Exception[0].Value)
	frame := got.Exception[0].Stacktrace.Frames[0]
	assert.Equal(t, "/home/<user>/src/statewatch/pkg/launch/launch.go", frame.AbsPath)
	assert.Equal(t, "launch.go", frame.Filename)
}
