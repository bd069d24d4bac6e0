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

package screenshot

import (
	"context"
	"encoding/binary"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/ZaparooProject/zaparoo-statewatch/pkg/savestates"
	"github.com/spf13/afero"
)

const (
	maxDimension  = 8192
	bytesPerPixel = 4
	fieldSize     = 4
)

// Layout locates the screenshot fields inside a fixed-size state header.
// All fields are 32-bit unsigned integers.
type Layout struct {
	ByteOrder         binary.ByteOrder
	Name              string
	HeaderSize        int
	Magic             uint32
	MagicOffset       int
	WidthOffset       int
	HeightOffset      int
	SizeOffset        int
	DataOffset        int
	CompressionOffset int
	// HasCompression marks CompressionOffset as valid. A non-zero value
	// there means the pixels are compressed, which is not supported.
	HasCompression bool
}

// DuckStationLayout matches the DuckStation save state header.
var DuckStationLayout = Layout{
	Name:         "duckstation",
	ByteOrder:    binary.LittleEndian,
	HeaderSize:   216,
	Magic:        0x43435544,
	MagicOffset:  0,
	WidthOffset:  184,
	HeightOffset: 188,
	SizeOffset:   192,
	DataOffset:   196,
}

var layouts = map[string]Layout{
	DuckStationLayout.Name: DuckStationLayout,
}

func LookupLayout(name string) (Layout, bool) {
	l, ok := layouts[strings.ToLower(name)]
	return l, ok
}

func (l Layout) field(hdr []byte, off int) uint32 {
	return l.ByteOrder.Uint32(hdr[off : off+fieldSize])
}

func (l Layout) valid() bool {
	for _, off := range []int{l.MagicOffset, l.WidthOffset, l.HeightOffset, l.SizeOffset, l.DataOffset} {
		if off < 0 || off+fieldSize > l.HeaderSize {
			return false
		}
	}
	if l.HasCompression && (l.CompressionOffset < 0 || l.CompressionOffset+fieldSize > l.HeaderSize) {
		return false
	}
	return l.ByteOrder != nil
}

// Decode reads the header at offset 0 of r and returns the embedded RGBA
// screenshot. Any inconsistency yields ErrNoScreenshot.
func (l Layout) Decode(r io.ReaderAt, fileSize int64) (*image.NRGBA, error) {
	if !l.valid() {
		return nil, fmt.Errorf("invalid header layout %q", l.Name)
	}

	hdr := make([]byte, l.HeaderSize)
	if _, err := r.ReadAt(hdr, 0); err != nil {
		return nil, noScreenshot("short header")
	}
	if l.field(hdr, l.MagicOffset) != l.Magic {
		return nil, noScreenshot("bad magic")
	}

	width := l.field(hdr, l.WidthOffset)
	height := l.field(hdr, l.HeightOffset)
	size := l.field(hdr, l.SizeOffset)
	offset := l.field(hdr, l.DataOffset)

	if width == 0 || height == 0 || width > maxDimension || height > maxDimension {
		return nil, noScreenshot(fmt.Sprintf("bad dimensions %dx%d", width, height))
	}
	if uint64(size) != uint64(width)*uint64(height)*bytesPerPixel {
		return nil, noScreenshot(fmt.Sprintf("size %d does not match %dx%d", size, width, height))
	}
	if l.HasCompression && l.field(hdr, l.CompressionOffset) != 0 {
		return nil, noScreenshot("compressed screenshot")
	}
	if uint64(offset)+uint64(size) > uint64(fileSize) {
		return nil, noScreenshot("screenshot past end of file")
	}

	pix := make([]byte, size)
	if _, err := io.ReadFull(io.NewSectionReader(r, int64(offset), int64(size)), pix); err != nil {
		return nil, noScreenshot("truncated screenshot")
	}

	return &image.NRGBA{
		Pix:    pix,
		Stride: int(width) * bytesPerPixel,
		Rect:   image.Rect(0, 0, int(width), int(height)),
	}, nil
}

// RawHeader extracts a screenshot stored as raw pixels inside the state.
type RawHeader struct {
	Layout Layout
}

func (s RawHeader) Extract(_ context.Context, fs afero.Fs, state savestates.State) ([]byte, error) {
	f, err := fs.Open(state.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat state: %w", err)
	}

	img, err := s.Layout.Decode(f, info.Size())
	if err != nil {
		return nil, err
	}
	return encodePNG(img)
}
