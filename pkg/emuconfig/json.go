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
	"bytes"
	"encoding/json"
	"fmt"
)

type jsonStore struct {
	values tree
	file
}

func newJSONStore(f file, data []byte) (*jsonStore, error) {
	values := tree{}
	if len(bytes.TrimSpace(data)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode((*map[string]any)(&values)); err != nil {
			return nil, fmt.Errorf("invalid json: %w", err)
		}
	}
	return &jsonStore{file: f, values: values}, nil
}

func (s *jsonStore) Get(key string) (string, bool) {
	v, ok := s.values.get(key)
	if !ok || !leaf(v) {
		return "", false
	}
	if n, ok := v.(json.Number); ok {
		return n.String(), true
	}
	return stringValue(v), true
}

func (s *jsonStore) Set(key, value string) {
	s.values.set(key, typedValue(value))
}

func (s *jsonStore) Save() error {
	data, err := json.MarshalIndent(map[string]any(s.values), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	return s.write(append(data, '\n'))
}
