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
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// yamlStore edits the parsed node tree so comments and key order survive a
// rewrite.
type yamlStore struct {
	doc *yaml.Node
	file
}

func newYAMLStore(f file, data []byte) (*yamlStore, error) {
	doc := &yaml.Node{}
	if len(bytes.TrimSpace(data)) > 0 {
		if err := yaml.Unmarshal(data, doc); err != nil {
			return nil, fmt.Errorf("invalid yaml: %w", err)
		}
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		doc = &yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}},
		}
	}
	if doc.Content[0].Kind != yaml.MappingNode {
		return nil, errors.New("yaml document is not a mapping")
	}
	return &yamlStore{file: f, doc: doc}, nil
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func (s *yamlStore) Get(key string) (string, bool) {
	n := s.doc.Content[0]
	for _, p := range strings.Split(key, ".") {
		if n.Kind != yaml.MappingNode {
			return "", false
		}
		n = mappingValue(n, p)
		if n == nil {
			return "", false
		}
	}
	if n.Kind != yaml.ScalarNode {
		return "", false
	}
	return n.Value, true
}

func (s *yamlStore) Set(key, value string) {
	parts := strings.Split(key, ".")
	m := s.doc.Content[0]
	for _, p := range parts[:len(parts)-1] {
		next := mappingValue(m, p)
		if next == nil || next.Kind != yaml.MappingNode {
			if next == nil {
				next = &yaml.Node{}
				m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: p}, next)
			}
			*next = yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		}
		m = next
	}

	name := parts[len(parts)-1]
	n := mappingValue(m, name)
	if n == nil {
		n = &yaml.Node{}
		m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name}, n)
	}
	setScalar(n, value)
}

func setScalar(n *yaml.Node, value string) {
	tag := "!!str"
	switch typedValue(value).(type) {
	case bool:
		tag = "!!bool"
	case int64:
		tag = "!!int"
	case float64:
		tag = "!!float"
	}

	style := n.Style
	if n.Kind != yaml.ScalarNode || tag != "!!str" {
		style = 0
	}
	*n = yaml.Node{
		Kind:        yaml.ScalarNode,
		Tag:         tag,
		Value:       value,
		Style:       style,
		HeadComment: n.HeadComment,
		LineComment: n.LineComment,
		FootComment: n.FootComment,
	}
}

func (s *yamlStore) Save() error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(s.doc); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return s.write(buf.Bytes())
}
