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

package mocks

import (
	"github.com/ZaparooProject/zaparoo-statewatch/pkg/helpers/command"
	"github.com/stretchr/testify/mock"
)

// MockExecutor is a testify mock for command.Executor.
// It allows testing launch sessions without actually starting an emulator.
//
// Example:
//
//	exec := &MockExecutor{}
//	exec.On("Start", mock.Anything, "retroarch", mock.Anything).Return(proc, nil)
type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Start(
	opts command.StartOptions,
	name string,
	args ...string,
) (command.Process, error) {
	called := m.Called(opts, name, args)
	proc, _ := called.Get(0).(command.Process)
	//nolint:wrapcheck // Mock returns are already wrapped by caller
	return proc, called.Error(1)
}

// MockProcess is a testify mock for command.Process. Wait blocks until
// Exit or Kill is called, so tests control when the emulator "quits".
type MockProcess struct {
	mock.Mock
	exited chan struct{}
}

func NewMockProcess() *MockProcess {
	return &MockProcess{exited: make(chan struct{})}
}

// Exit makes a pending Wait return.
func (m *MockProcess) Exit() {
	select {
	case <-m.exited:
	default:
		close(m.exited)
	}
}

func (m *MockProcess) Pid() int {
	return m.Called().Int(0)
}

func (m *MockProcess) Wait() error {
	<-m.exited
	//nolint:wrapcheck // Mock returns are already wrapped by caller
	return m.Called().Error(0)
}

func (m *MockProcess) Kill() error {
	err := m.Called().Error(0)
	if err == nil {
		m.Exit()
	}
	//nolint:wrapcheck // Mock returns are already wrapped by caller
	return err
}

func (m *MockProcess) Running() bool {
	select {
	case <-m.exited:
		return false
	default:
		return true
	}
}
