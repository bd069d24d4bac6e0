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
	"github.com/ZaparooProject/zaparoo-statewatch/pkg/testing/mocks"
	"github.com/stretchr/testify/mock"
)

// NewMockProcess creates a MockProcess that reports PID 4242 and exits
// cleanly once Exit or Kill is called.
func NewMockProcess() *mocks.MockProcess {
	proc := mocks.NewMockProcess()
	proc.On("Pid").Return(4242).Maybe()
	proc.On("Wait").Return(nil).Maybe()
	proc.On("Kill").Return(nil).Maybe()
	return proc
}

// NewMockExecutor creates a MockExecutor whose Start always returns proc.
// Override specific commands in tests that need to verify exact behavior:
//
//	exec := helpers.NewMockExecutor(proc)
//	// Clear defaults first
//	exec.ExpectedCalls = nil
//	// Set specific expectations (note: args is []string not variadic in mock)
//	exec.On("Start", mock.Anything, "duckstation", []string{"game.cue"}).Return(proc, nil)
func NewMockExecutor(proc *mocks.MockProcess) *mocks.MockExecutor {
	exec := &mocks.MockExecutor{}
	exec.On("Start", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(proc, nil).Maybe()
	return exec
}
