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

// Package emuconfig reads an emulator's settings file as a flat key/value
// store, overwrites selected keys and writes it back. Nested settings are
// addressed with dotted keys: "Section.Key" for INI files, "a.b.c" for
// YAML, TOML and JSON.
package emuconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

type Format string

const (
	FormatINI  Format = "ini"
	FormatCfg  Format = "cfg"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// Store is a settings file loaded into memory.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Save() error
}

// FormatFromPath guesses the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ini":
		return FormatINI, nil
	case ".cfg":
		return FormatCfg, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown config format for %s", path)
	}
}

// Open loads path in the given format. A missing file gives an empty store
// that is created on Save.
func Open(afs afero.Fs, path string, format Format) (Store, error) {
	if format == "" {
		var err error
		format, err = FormatFromPath(path)
		if err != nil {
			return nil, err
		}
	}

	data, err := afero.ReadFile(afs, path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		data = nil
	case err != nil:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	f := file{fs: afs, path: path}
	var s Store
	switch format {
	case FormatINI:
		s, err = newINIStore(f, data)
	case FormatCfg:
		s, err = newCfgStore(f, data)
	case FormatYAML:
		s, err = newYAMLStore(f, data)
	case FormatTOML:
		s, err = newTOMLStore(f, data)
	case FormatJSON:
		s, err = newJSONStore(f, data)
	default:
		return nil, fmt.Errorf("unknown config format: %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return s, nil
}

// Patch is a set of values written only when Feature is on.
type Patch struct {
	Values  map[string]string
	Feature bool
}

// Apply writes the values of every enabled patch and reports whether any
// key actually changed.
func Apply(s Store, patches ...Patch) bool {
	changed := false
	for _, p := range patches {
		if !p.Feature {
			continue
		}
		for k, v := range p.Values {
			if cur, ok := s.Get(k); ok && cur == v {
				continue
			}
			s.Set(k, v)
			changed = true
		}
	}
	return changed
}

// BindFeature sets key to onValue or offValue depending on enabled and
// reports whether the key changed.
func BindFeature(s Store, enabled bool, key, onValue, offValue string) bool {
	v := offValue
	if enabled {
		v = onValue
	}
	return Apply(s, Patch{Feature: true, Values: map[string]string{key: v}})
}

// PatchFile opens path, applies patches and saves only when something
// changed, so an untouched file stays byte for byte the same.
func PatchFile(afs afero.Fs, path string, format Format, patches ...Patch) (bool, error) {
	s, err := Open(afs, path, format)
	if err != nil {
		return false, err
	}
	if !Apply(s, patches...) {
		log.Debug().Msgf("emulator config already up to date: %s", path)
		return false, nil
	}
	if err := s.Save(); err != nil {
		return false, err
	}
	log.Info().Msgf("updated emulator config: %s", path)
	return true, nil
}

// file is the on-disk side shared by every store.
type file struct {
	fs   afero.Fs
	path string
}

func (f file) write(data []byte) error {
	perm := os.FileMode(0o644)
	if info, err := f.fs.Stat(f.path); err == nil {
		perm = info.Mode().Perm()
	} else if err := f.fs.MkdirAll(filepath.Dir(f.path), 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := afero.WriteFile(f.fs, f.path, data, perm); err != nil {
		return fmt.Errorf("failed to write config %s: %w", f.path, err)
	}
	return nil
}

// typedValue converts a string setting to the scalar type structured
// formats expect.
func typedValue(s string) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if strings.ContainsAny(s, ".eE") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// tree is a nested map addressed with dotted keys, used by the JSON and
// TOML stores.
type tree map[string]any

func (t tree) get(key string) (any, bool) {
	parts := strings.Split(key, ".")
	cur := map[string]any(t)
	for i, p := range parts {
		v, ok := cur[p]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		next, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return nil, false
}

func (t tree) set(key string, value any) {
	parts := strings.Split(key, ".")
	cur := map[string]any(t)
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[p] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}

// leaf reports whether a stored value is a scalar that can be read back as
// a string.
func leaf(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return false
	default:
		return true
	}
}
