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

package emuconfig

import (
	"fmt"

	toml "github.com/pelletier/go-toml/v2"
)

// tomlStore round-trips through a map, so comments are not kept.
type tomlStore struct {
	values tree
	file
}

func newTOMLStore(f file, data []byte) (*tomlStore, error) {
	values := tree{}
	if len(data) > 0 {
		if err := toml.Unmarshal(data, (*map[string]any)(&values)); err != nil {
			return nil, fmt.Errorf("invalid toml: %w", err)
		}
	}
	return &tomlStore{file: f, values: values}, nil
}

func (s *tomlStore) Get(key string) (string, bool) {
	v, ok := s.values.get(key)
	if !ok || !leaf(v) {
		return "", false
	}
	return stringValue(v), true
}

func (s *tomlStore) Set(key, value string) {
	s.values.set(key, typedValue(value))
}

func (s *tomlStore) Save() error {
	data, err := toml.Marshal(map[string]any(s.values))
	if err != nil {
		return fmt.Errorf("failed to encode toml: %w", err)
	}
	return s.write(data)
}
