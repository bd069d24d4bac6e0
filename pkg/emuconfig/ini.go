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
	"fmt"
	"strings"

	"gopkg.in/ini.v1"
)

// iniStore handles sectioned INI files. "Section.Key" addresses a key in a
// section; a key without a dot lives in the default section.
type iniStore struct {
	cfg *ini.File
	file
}

func loadINI(data []byte) (*ini.File, error) {
	opts := ini.LoadOptions{IgnoreInlineComment: true, IgnoreContinuation: true}
	if len(data) == 0 {
		return ini.Empty(opts), nil
	}
	cfg, err := ini.LoadSources(opts, data)
	if err != nil {
		return nil, fmt.Errorf("invalid ini: %w", err)
	}
	return cfg, nil
}

func newINIStore(f file, data []byte) (*iniStore, error) {
	cfg, err := loadINI(data)
	if err != nil {
		return nil, err
	}
	return &iniStore{file: f, cfg: cfg}, nil
}

func splitINIKey(key string) (section, name string) {
	if i := strings.LastIndex(key, "."); i > 0 {
		return key[:i], key[i+1:]
	}
	return ini.DefaultSection, key
}

func (s *iniStore) Get(key string) (string, bool) {
	section, name := splitINIKey(key)
	sec, err := s.cfg.GetSection(section)
	if err != nil || !sec.HasKey(name) {
		return "", false
	}
	return sec.Key(name).String(), true
}

func (s *iniStore) Set(key, value string) {
	section, name := splitINIKey(key)
	s.cfg.Section(section).Key(name).SetValue(value)
}

func (s *iniStore) Save() error {
	var buf bytes.Buffer
	if _, err := s.cfg.WriteTo(&buf); err != nil {
		return fmt.Errorf("failed to encode ini: %w", err)
	}
	return s.write(buf.Bytes())
}

// cfgStore handles RetroArch style flat files: one key = "value" per line,
// values always quoted, no sections.
type cfgStore struct {
	cfg *ini.File
	file
}

func newCfgStore(f file, data []byte) (*cfgStore, error) {
	cfg, err := loadINI(data)
	if err != nil {
		return nil, err
	}
	return &cfgStore{file: f, cfg: cfg}, nil
}

func (s *cfgStore) Get(key string) (string, bool) {
	sec := s.cfg.Section(ini.DefaultSection)
	if !sec.HasKey(key) {
		return "", false
	}
	return sec.Key(key).String(), true
}

func (s *cfgStore) Set(key, value string) {
	s.cfg.Section(ini.DefaultSection).Key(key).SetValue(value)
}

func (s *cfgStore) Save() error {
	var buf bytes.Buffer
	for _, k := range s.cfg.Section(ini.DefaultSection).Keys() {
		fmt.Fprintf(&buf, "%s = \"%s\"\n", k.Name(), k.Value())
	}
	return s.write(buf.Bytes())
}
