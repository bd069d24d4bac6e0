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

// Package helpers holds small utilities shared across the statewatch
// packages.
package helpers

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	homePathRe    = regexp.MustCompile(`(?i)/home/[^/]+/`)
	usersPathRe   = regexp.MustCompile(`(?i)/Users/[^/]+/`)
	windowsUserRe = regexp.MustCompile(`(?i)[a-zA-Z]:\\Users\\[^\\]+\\`)
)

// NormalizePathForComparison normalizes a path for cross-platform case-insensitive comparison.
// Converts to forward slashes and lowercases, so save state paths on FAT32/exFAT
// cards and paths built with filepath.Join compare equal.
func NormalizePathForComparison(path string) string {
	p := filepath.ToSlash(filepath.Clean(path))
	return strings.ToLower(p)
}

// PathEqual reports whether two paths name the same file, ignoring case and
// separator style.
func PathEqual(a, b string) bool {
	if a == "" || b == "" {
		return a == b
	}
	return NormalizePathForComparison(a) == NormalizePathForComparison(b)
}

// ResolvePath joins a relative path onto base. Absolute paths and paths
// starting with ~ (expanded to the home directory) are returned as is.
func ResolvePath(base, path string) string {
	switch {
	case path == "":
		return ""
	case path == "~" || strings.HasPrefix(path, "~/"):
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	case filepath.IsAbs(path) || base == "":
		return filepath.Clean(path)
	default:
		return filepath.Join(base, path)
	}
}

// ScrubUserPath replaces the user name in home directory paths found
// anywhere in s.
func ScrubUserPath(s string) string {
	if s == "" {
		return s
	}
	s = homePathRe.ReplaceAllString(s, "/home/<user>/")
	s = usersPathRe.ReplaceAllString(s, "/Users/<user>/")
	return windowsUserRe.ReplaceAllString(s, `C:\Users\<user>\`)
}
