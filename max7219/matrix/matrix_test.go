// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package matrix

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/GermanBionicSystems/ledchain/max7219"
	"github.com/GermanBionicSystems/ledchain/max7219/chainsim"
	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spitest"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

func newSim(t *testing.T, devices int, opts *Opts) (*Dev, *chainsim.Chain) {
	t.Helper()
	c, err := chainsim.New(devices, &chainsim.Opts{W: &bytes.Buffer{}})
	if err != nil {
		t.Fatal(err)
	}
	d, err := max7219.NewSPI(c, &max7219.Opts{Devices: devices, Init: true})
	if err != nil {
		t.Fatal(err)
	}
	return New(d, opts), c
}

func newRecorded(t *testing.T, devices int) (*Dev, *spitest.Record) {
	t.Helper()
	record := &spitest.Record{}
	c, err := record.Connect(physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		t.Fatal(err)
	}
	d := max7219.New(c)
	if err := d.SetDeviceCount(devices); err != nil {
		t.Fatal(err)
	}
	return New(d, nil), record
}

func TestBounds(t *testing.T) {
	m, _ := newSim(t, 4, nil)
	if want := image.Rect(0, 0, 32, 8); m.Bounds() != want {
		t.Errorf("Bounds() = %v, want %v", m.Bounds(), want)
	}
	if m.ColorModel() != image1bit.BitModel {
		t.Error("ColorModel() is not image1bit.BitModel")
	}
	if m.String() == "" {
		t.Error("empty String()")
	}
}

func TestDrawPixels(t *testing.T) {
	m, c := newSim(t, 3, nil)
	img := image.NewGray(m.Bounds())
	img.SetGray(0, 0, color.Gray{Y: 255})
	img.SetGray(9, 3, color.Gray{Y: 255})
	img.SetGray(23, 7, color.Gray{Y: 255})
	if err := m.Draw(m.Bounds(), img, image.Point{}); err != nil {
		t.Fatal(err)
	}
	chips := c.Chips()
	// The leftmost matrix is the nearest to the controller.
	if got := chips[2].Digits[0]; got != 0x80 {
		t.Errorf("left matrix row 0 = 0x%02x, want 0x80", got)
	}
	if got := chips[1].Digits[3]; got != 0x40 {
		t.Errorf("middle matrix row 3 = 0x%02x, want 0x40", got)
	}
	if got := chips[0].Digits[7]; got != 0x01 {
		t.Errorf("right matrix row 7 = 0x%02x, want 0x01", got)
	}
}

func TestDrawOffset(t *testing.T) {
	m, c := newSim(t, 2, nil)
	src := image.NewGray(image.Rect(0, 0, 4, 4))
	src.SetGray(1, 1, color.Gray{Y: 255})
	// Only paint the 2x2 square at (8, 2) with src's (1, 1).
	if err := m.Draw(image.Rect(8, 2, 10, 4), src, image.Pt(1, 1)); err != nil {
		t.Fatal(err)
	}
	if got := c.Chip(0).Digits[2]; got != 0x80 {
		t.Errorf("right matrix row 2 = 0x%02x, want 0x80", got)
	}
	for ix, s := range c.Chips() {
		for row, v := range s.Digits {
			if v != 0 && !(ix == 0 && row == 2) {
				t.Errorf("chip %d row %d = 0x%02x", ix, row, v)
			}
		}
	}
}

func TestMirror(t *testing.T) {
	m, c := newSim(t, 1, &Opts{MirrorHorizontal: true})
	img := image.NewGray(m.Bounds())
	img.SetGray(0, 5, color.Gray{Y: 255})
	if err := m.Draw(m.Bounds(), img, image.Point{}); err != nil {
		t.Fatal(err)
	}
	if got := c.Chip(0).Digits[5]; got != 0x01 {
		t.Errorf("row 5 = 0x%02x, want 0x01", got)
	}
	if _, err := m.Write([]byte{0x80, 0, 0, 0, 0, 0, 0, 0x03}); err != nil {
		t.Fatal(err)
	}
	want := [8]byte{0x01, 0, 0, 0, 0, 0, 0, 0xc0}
	if diff := cmp.Diff(want, c.Chip(0).Digits); diff != "" {
		t.Errorf("digits (-want +got):\n%s", diff)
	}
}

func TestDifferential(t *testing.T) {
	m, record := newRecorded(t, 2)
	img := image.NewGray(m.Bounds())
	if err := m.Draw(m.Bounds(), img, image.Point{}); err != nil {
		t.Fatal(err)
	}
	if n := len(record.Ops); n != 8 {
		t.Errorf("first Draw sent %d frames, want 8", n)
	}
	record.Ops = nil
	if err := m.Draw(m.Bounds(), img, image.Point{}); err != nil {
		t.Fatal(err)
	}
	if n := len(record.Ops); n != 0 {
		t.Errorf("unchanged Draw sent %d frames, want 0", n)
	}
	img.SetGray(12, 6, color.Gray{Y: 255})
	if err := m.Draw(m.Bounds(), img, image.Point{}); err != nil {
		t.Fatal(err)
	}
	// Row 6 is digit register 7. Column 12 is in the right matrix, index 0.
	want := [][]byte{{0x7, 0x08, 0x7, 0x00}}
	var got [][]byte
	for _, op := range record.Ops {
		got = append(got, op.W)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("frames (-want +got):\n%s", diff)
	}
}

func TestWrite(t *testing.T) {
	m, c := newSim(t, 2, nil)
	if _, err := m.Write(make([]byte, 8)); err == nil {
		t.Error("expected error for a short stream")
	}
	pixels := []byte{
		1, 2, 3, 4, 5, 6, 7, 8, // left
		9, 10, 11, 12, 13, 14, 15, 16, // right
	}
	n, err := m.Write(pixels)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(pixels) {
		t.Errorf("Write() = %d, want %d", n, len(pixels))
	}
	if diff := cmp.Diff([8]byte{1, 2, 3, 4, 5, 6, 7, 8}, c.Chip(1).Digits); diff != "" {
		t.Errorf("left matrix (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([8]byte{9, 10, 11, 12, 13, 14, 15, 16}, c.Chip(0).Digits); diff != "" {
		t.Errorf("right matrix (-want +got):\n%s", diff)
	}
}

func TestDrawScaled(t *testing.T) {
	m, c := newSim(t, 1, nil)
	src := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := range 64 {
		for x := 32; x < 64; x++ {
			src.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	if err := m.DrawScaled(src); err != nil {
		t.Fatal(err)
	}
	for row, v := range c.Chip(0).Digits {
		if v != 0x0f {
			t.Errorf("row %d = 0x%02x, want 0x0f", row, v)
		}
	}
}

func TestRenderText(t *testing.T) {
	img := RenderText("HI")
	if b := img.Bounds(); b.Dx() != 14 || b.Dy() != 8 {
		t.Fatalf("Bounds() = %v", b)
	}
	lit := 0
	for _, p := range img.Pix {
		if p >= 0x80 {
			lit++
		}
	}
	if lit == 0 {
		t.Error("nothing rendered")
	}
}

func TestScrollText(t *testing.T) {
	m, c := newSim(t, 2, nil)
	before := c.Frames()
	if err := m.ScrollText("1", 1, 0); err != nil {
		t.Fatal(err)
	}
	if c.Frames() == before {
		t.Error("nothing sent")
	}
	// The text scrolled out on the left; the display ends blank.
	for ix, s := range c.Chips() {
		if s.Digits != ([8]byte{}) {
			t.Errorf("chip %d not blank: %v", ix, s.Digits)
		}
	}
}

func TestReverse(t *testing.T) {
	for in, want := range map[byte]byte{0x80: 0x01, 0x03: 0xc0, 0xa5: 0xa5, 0xf0: 0x0f} {
		if got := reverse(in); got != want {
			t.Errorf("reverse(0x%02x) = 0x%02x, want 0x%02x", in, got, want)
		}
	}
}
