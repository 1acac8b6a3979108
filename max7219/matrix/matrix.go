// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package matrix exposes a chain of MAX7219 driven 8x8 LED matrices as a
// single display.Drawer.
//
// The matrices are laid out horizontally. The matrix wired to the controller
// is on the left, so it shows columns 0-7; the matrix furthest from the
// controller shows the rightmost 8 columns. Row N of a matrix is digit
// register N.
//
// Updates are differential: only the rows that changed since the last update
// are sent, one transaction per row for the whole chain.
package matrix

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/GermanBionicSystems/ledchain/max7219"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/display"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

const rows = max7219.NumDigits

// Opts defines the options for the matrix display.
type Opts struct {
	// MirrorHorizontal is for modules whose leftmost column is wired to bit 0
	// of the digit registers. Try toggling this if characters appear mirrored.
	MirrorHorizontal bool
}

// Dev is a display.Drawer over a chain of 8x8 matrices.
//
// Dev is not safe for concurrent use.
type Dev struct {
	d      *max7219.Dev
	mirror bool
	rect   image.Rectangle
	// frame is the content of the digit registers, rows bytes per unit, in
	// chain order.
	frame []byte
	// next is the frame being built by Draw.
	next  []byte
	valid bool
	// canvas is lazy initialized by ScrollText.
	canvas *image.Gray
}

// New returns a display covering every unit of d. The chain length must not
// change afterward.
//
// The units should be initialized in DecodeNone mode, see max7219.Dev.Init.
func New(d *max7219.Dev, opts *Opts) *Dev {
	if opts == nil {
		opts = &Opts{}
	}
	n := d.DeviceCount()
	return &Dev{
		d:      d,
		mirror: opts.MirrorHorizontal,
		rect:   image.Rect(0, 0, 8*n, rows),
		frame:  make([]byte, n*rows),
		next:   make([]byte, n*rows),
	}
}

func (m *Dev) String() string {
	return fmt.Sprintf("matrix.Dev{%s, %s}", m.d, m.rect.Max)
}

// ColorModel implements display.Drawer.
//
// It is a one bit color model, as implemented by image1bit.Bit.
func (m *Dev) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds implements display.Drawer. Min is guaranteed to be {0, 0}.
func (m *Dev) Bounds() image.Rectangle {
	return m.rect
}

// Halt implements conn.Resource. It shuts down the chain.
func (m *Dev) Halt() error {
	return m.d.Halt()
}

// Draw implements display.Drawer.
//
// It draws synchronously, once this function returns, the matrices are
// updated.
func (m *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	copy(m.next, m.frame)
	clipped := r.Intersect(m.rect)
	delta := sp.Sub(r.Min)
	for y := clipped.Min.Y; y < clipped.Max.Y; y++ {
		for x := clipped.Min.X; x < clipped.Max.X; x++ {
			bit := image1bit.BitModel.Convert(src.At(x+delta.X, y+delta.Y)).(image1bit.Bit)
			m.set(m.next, x, y, bool(bit))
		}
	}
	return m.flush(m.next)
}

// Write writes raw rows to the matrices. pixels holds 8 bytes per matrix,
// matrices from left to right, rows from top to bottom. Bit 7 is the leftmost
// LED of a row.
func (m *Dev) Write(pixels []byte) (int, error) {
	if len(pixels) != len(m.frame) {
		return 0, fmt.Errorf("matrix: invalid pixel stream length; expected %d bytes, got %d bytes", len(m.frame), len(pixels))
	}
	n := len(m.frame) / rows
	for k := range n {
		unit := n - 1 - k
		for row := range rows {
			v := pixels[k*rows+row]
			if m.mirror {
				v = reverse(v)
			}
			m.next[unit*rows+row] = v
		}
	}
	if err := m.flush(m.next); err != nil {
		return 0, err
	}
	return len(pixels), nil
}

// DrawScaled scales src to the size of the display and draws it.
func (m *Dev) DrawScaled(src image.Image) error {
	dst := image.NewGray(m.rect)
	xdraw.ApproxBiLinear.Scale(dst, m.rect, src, src.Bounds(), xdraw.Src, nil)
	return m.Draw(m.rect, dst, image.Point{})
}

// ScrollText scrolls s from right to left, one LED column every interval,
// passes times.
func (m *Dev) ScrollText(s string, passes int, interval time.Duration) error {
	strip := RenderText(s)
	if m.canvas == nil {
		m.canvas = image.NewGray(m.rect)
	}
	w := m.rect.Dx()
	steps := strip.Bounds().Dx() + w
	for range passes {
		for off := range steps {
			draw.Draw(m.canvas, m.rect, image.Black, image.Point{}, draw.Src)
			draw.Draw(m.canvas, m.rect, strip, image.Pt(off-w, 0), draw.Src)
			if err := m.Draw(m.rect, m.canvas, image.Point{}); err != nil {
				return err
			}
			time.Sleep(interval)
		}
	}
	return nil
}

// RenderText rasterizes s in white on black, 8 pixels high, using a 7x13
// bitmap font squeezed to the height of a matrix. Descenders are dropped.
func RenderText(s string) *image.Gray {
	face := basicfont.Face7x13
	width := font.MeasureString(face, s).Ceil()
	full := image.NewGray(image.Rect(0, 0, width, face.Height))
	dr := font.Drawer{
		Dst:  full,
		Src:  image.White,
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	dr.DrawString(s)
	out := image.NewGray(image.Rect(0, 0, width, rows))
	// Capitals and digits span the 9 rows above the baseline.
	xdraw.NearestNeighbor.Scale(out, out.Bounds(), full, image.Rect(0, face.Ascent-9, width, face.Ascent), xdraw.Src, nil)
	return out
}

// set turns the LED at x, y on or off in frame.
func (m *Dev) set(frame []byte, x, y int, on bool) {
	n := len(frame) / rows
	unit := n - 1 - x/8
	mask := byte(0x80) >> uint(x%8)
	if m.mirror {
		mask = 1 << uint(x%8)
	}
	if on {
		frame[unit*rows+y] |= mask
	} else {
		frame[unit*rows+y] &^= mask
	}
}

// flush sends the rows of next that differ from what was last sent.
func (m *Dev) flush(next []byte) error {
	n := len(next) / rows
	var values [max7219.MaxDevices]byte
	for row := range rows {
		changed := !m.valid
		for unit := range n {
			values[unit] = next[unit*rows+row]
			if values[unit] != m.frame[unit*rows+row] {
				changed = true
			}
		}
		if !changed {
			continue
		}
		if err := m.d.WriteRow(row, values[:n]); err != nil {
			m.valid = false
			return err
		}
		for unit := range n {
			m.frame[unit*rows+row] = values[unit]
		}
	}
	m.valid = true
	return nil
}

func reverse(b byte) byte {
	b = b>>4 | b<<4
	b = (b&0xcc)>>2 | (b&0x33)<<2
	return (b&0xaa)>>1 | (b&0x55)<<1
}

var _ display.Drawer = &Dev{}
