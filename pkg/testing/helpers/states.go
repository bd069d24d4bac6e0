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
	"archive/zip"
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	"github.com/ZaparooProject/zaparoo-statewatch/pkg/savestates/screenshot"
	"golang.org/x/image/bmp"
)

// RGBAPixels returns a deterministic width*height*4 RGBA pattern.
func RGBAPixels(width, height int) []byte {
	pix := make([]byte, width*height*4)
	for y := range height {
		for x := range width {
			i := (y*width + x) * 4
			pix[i] = byte(x * 3)
			pix[i+1] = byte(y * 5)
			pix[i+2] = byte(x ^ y)
			pix[i+3] = 0xff
		}
	}
	return pix
}

// RawHeaderState builds a state file with the given header fields followed
// by pixel data and a payload tail. Width, height and size are written as
// given so tests can produce inconsistent headers.
func RawHeaderState(layout screenshot.Layout, magic, width, height, size uint32, pixels []byte) []byte {
	hdr := make([]byte, layout.HeaderSize)
	put := func(off int, v uint32) {
		layout.ByteOrder.PutUint32(hdr[off:off+4], v)
	}
	put(layout.MagicOffset, magic)
	put(layout.WidthOffset, width)
	put(layout.HeightOffset, height)
	put(layout.SizeOffset, size)
	put(layout.DataOffset, uint32(layout.HeaderSize)) //nolint:gosec // header sizes are small

	var buf bytes.Buffer
	buf.Write(hdr)
	buf.Write(pixels)
	buf.WriteString("emulated machine state")
	return buf.Bytes()
}

// ZipState builds a zip archive with the given entries.
func ZipState(entries map[string][]byte) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range entries {
		w, err := zw.Create(name)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write(data); err != nil {
			panic(err)
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func testImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.Set(x, y, color.NRGBA{R: uint8(x * 7), G: uint8(y * 11), B: 0x40, A: 0xff}) //nolint:gosec // test pattern
		}
	}
	return img
}

// PNGImage encodes a test pattern as PNG.
func PNGImage(width, height int) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage(width, height)); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// BMPImage encodes a test pattern as BMP.
func BMPImage(width, height int) []byte {
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, testImage(width, height)); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// JPEGImage encodes a test pattern as JPEG.
func JPEGImage(width, height int) []byte {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, testImage(width, height), nil); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
