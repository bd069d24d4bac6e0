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

// Package emulators is the catalogue of per-emulator save state conventions:
// how state files are named, where they live, how the emulator writes them
// and where its screenshots can be found.
package emulators

import (
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ZaparooProject/zaparoo-statewatch/pkg/helpers"
	"github.com/ZaparooProject/zaparoo-statewatch/pkg/savestates"
	"github.com/ZaparooProject/zaparoo-statewatch/pkg/savestates/screenshot"
	"github.com/ZaparooProject/zaparoo-statewatch/pkg/savestates/watcher"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed profiles.yaml
var builtin []byte

var ErrUnknownEmulator = errors.New("unknown emulator")

// StateDirPlaceholder in a config value is replaced with the watched state
// directory.
const StateDirPlaceholder = "{state_dir}"

type Screenshot struct {
	Kind        string   `yaml:"kind" toml:"kind" validate:"omitempty,oneof=none sidecar rawheader zip"`
	Layout      string   `yaml:"layout,omitempty" toml:"layout,omitempty" validate:"required_if=Kind rawheader"`
	Entry       string   `yaml:"entry,omitempty" toml:"entry,omitempty"`
	Suffix      string   `yaml:"suffix,omitempty" toml:"suffix,omitempty"`
	ReplaceExt  string   `yaml:"replace_ext,omitempty" toml:"replace_ext,omitempty"`
	Dir         string   `yaml:"dir,omitempty" toml:"dir,omitempty"`
	Exts        []string `yaml:"exts,omitempty" toml:"exts,omitempty"`
	ToleranceMS int      `yaml:"tolerance_ms,omitempty" toml:"tolerance_ms,omitempty" validate:"gte=0"`
}

// ConfigPatch names emulator settings statewatch turns on so states and
// screenshots get written.
type ConfigPatch struct {
	Values map[string]string `yaml:"values" toml:"values" validate:"required,min=1"`
	File   string            `yaml:"file" toml:"file" validate:"required"`
	Format string            `yaml:"format" toml:"format" validate:"required,oneof=ini cfg yaml toml json"`
}

type Profile struct {
	Config     *ConfigPatch `yaml:"config,omitempty" toml:"config,omitempty"`
	ID         string       `yaml:"id" toml:"id" validate:"required,lowercase"`
	Name       string       `yaml:"name" toml:"name" validate:"required"`
	StateExt   string       `yaml:"state_ext" toml:"state_ext" validate:"required,startswith=."`
	AutoMarker string       `yaml:"auto_marker" toml:"auto_marker" validate:"required"`
	SlotLayout string       `yaml:"slot_layout,omitempty" toml:"slot_layout,omitempty" validate:"omitempty,oneof=suffix separator"` //nolint:lll
	Separator  string       `yaml:"separator,omitempty" toml:"separator,omitempty" validate:"required_if=SlotLayout separator"`
	Watch      string       `yaml:"watch,omitempty" toml:"watch,omitempty" validate:"omitempty,oneof=changed created"`
	PrivateDir string       `yaml:"private_dir,omitempty" toml:"private_dir,omitempty"`
	SharedDir  string       `yaml:"shared_dir,omitempty" toml:"shared_dir,omitempty"`
	Screenshot Screenshot   `yaml:"screenshot" toml:"screenshot"`
	IndexWidth int          `yaml:"index_width,omitempty" toml:"index_width,omitempty" validate:"gte=0,lte=4"`
}

func (p *Profile) Naming() savestates.Naming {
	return savestates.Naming{
		StateExt:   p.StateExt,
		AutoMarker: p.AutoMarker,
		Separator:  p.Separator,
		Layout:     savestates.Layout(p.SlotLayout),
		IndexWidth: p.IndexWidth,
	}
}

func (p *Profile) Method() (watcher.Method, error) {
	m, err := watcher.ParseMethod(p.Watch)
	if err != nil {
		return m, fmt.Errorf("emulator %s: %w", p.ID, err)
	}
	return m, nil
}

// Strategy builds the screenshot strategy, resolving a relative screenshot
// directory against the emulator install.
func (p *Profile) Strategy(install string) (screenshot.Strategy, error) {
	s := p.Screenshot
	strategy, err := screenshot.New(screenshot.Config{
		Kind:       screenshot.Kind(s.Kind),
		Layout:     s.Layout,
		Entry:      s.Entry,
		Suffix:     s.Suffix,
		ReplaceExt: s.ReplaceExt,
		Dir:        helpers.ResolvePath(install, s.Dir),
		Exts:       s.Exts,
		Tolerance:  time.Duration(s.ToleranceMS) * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("emulator %s: %w", p.ID, err)
	}
	return strategy, nil
}

// StateDirs returns the emulator's private state directory under install
// and its state directory under the shared data root. Either is empty when
// its root or relative path is unset.
func (p *Profile) StateDirs(install, shared string) (privateDir, sharedDir string) {
	if install != "" && p.PrivateDir != "" {
		privateDir = helpers.ResolvePath(install, p.PrivateDir)
	}
	if shared != "" && p.SharedDir != "" {
		sharedDir = helpers.ResolvePath(shared, p.SharedDir)
	}
	return privateDir, sharedDir
}

// ConfigValues returns the config patch values with placeholders filled
// in, or nil if the profile has no patch.
func (p *Profile) ConfigValues(stateDir string) map[string]string {
	if p.Config == nil {
		return nil
	}
	values := make(map[string]string, len(p.Config.Values))
	for k, v := range p.Config.Values {
		values[k] = strings.ReplaceAll(v, StateDirPlaceholder, stateDir)
	}
	return values
}

// Registry is an immutable set of profiles.
type Registry struct {
	profiles map[string]Profile
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load parses and validates the built-in catalogue.
func Load() (*Registry, error) {
	return Parse(builtin)
}

func Parse(data []byte) (*Registry, error) {
	var profiles []Profile
	if err := yaml.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("failed to parse emulator profiles: %w", err)
	}

	r := &Registry{profiles: make(map[string]Profile, len(profiles))}
	for i := range profiles {
		p := profiles[i]
		if err := validateProfile(&p); err != nil {
			return nil, err
		}
		if _, ok := r.profiles[p.ID]; ok {
			return nil, fmt.Errorf("duplicate emulator profile: %s", p.ID)
		}
		r.profiles[p.ID] = p
	}
	return r, nil
}

func validateProfile(p *Profile) error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid emulator profile %q: %w", p.ID, err)
	}
	if _, err := p.Method(); err != nil {
		return err
	}
	if _, err := p.Strategy(""); err != nil {
		return err
	}
	return nil
}

func (r *Registry) Lookup(id string) (Profile, error) {
	p, ok := r.profiles[strings.ToLower(id)]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %s", ErrUnknownEmulator, id)
	}
	return p, nil
}

// Profiles returns every profile sorted by ID.
func (r *Registry) Profiles() []Profile {
	ps := make([]Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		ps = append(ps, p)
	}
	slices.SortFunc(ps, func(a, b Profile) int {
		return strings.Compare(a.ID, b.ID)
	})
	return ps
}

// Merge returns a new registry with overrides applied. An override for a
// known ID only replaces the fields it sets; an unknown ID adds a new
// profile, which must then be complete.
func (r *Registry) Merge(overrides []Profile) (*Registry, error) {
	merged := &Registry{profiles: make(map[string]Profile, len(r.profiles)+len(overrides))}
	for id, p := range r.profiles {
		merged.profiles[id] = p
	}

	for i := range overrides {
		o := overrides[i]
		o.ID = strings.ToLower(o.ID)
		p, ok := merged.profiles[o.ID]
		if ok {
			p = overlay(p, &o)
		} else {
			p = o
		}
		if err := validateProfile(&p); err != nil {
			return nil, err
		}
		merged.profiles[p.ID] = p
	}
	return merged, nil
}

func overlay(p Profile, o *Profile) Profile {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&p.Name, o.Name)
	set(&p.StateExt, o.StateExt)
	set(&p.AutoMarker, o.AutoMarker)
	set(&p.SlotLayout, o.SlotLayout)
	set(&p.Separator, o.Separator)
	set(&p.Watch, o.Watch)
	set(&p.PrivateDir, o.PrivateDir)
	set(&p.SharedDir, o.SharedDir)
	if o.IndexWidth > 0 {
		p.IndexWidth = o.IndexWidth
	}
	if o.Screenshot.Kind != "" {
		p.Screenshot = o.Screenshot
	}
	if o.Config != nil {
		p.Config = o.Config
	}
	return p
}
