// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package chainsim emulates a chain of daisy-chained MAX7219 units behind an
// SPI port, and renders it on a terminal using ANSI color codes.
//
// Bytes written to the port are shifted through the chain exactly like the
// hardware does: the first byte of a transaction ends up in the unit furthest
// from the controller, and every unit latches its 16 bits when the
// transaction ends. It permits testing addressing and animations while you are
// waiting for your LED matrices to come by mail.
package chainsim

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"sync"

	"github.com/GermanBionicSystems/ledchain/max7219"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// Opts represents the options available for the emulated chain.
type Opts struct {
	// W receives the output of Render. Defaults to stdout.
	W io.Writer
	// Palette used to approximate LED colors. Defaults to ansi256.Default.
	Palette *ansi256.Palette
	// On is the color of a lit LED at maximum intensity. Defaults to red.
	On color.NRGBA
	// AutoRender calls Render after every transaction.
	AutoRender bool

	_ struct{}
}

// ChipState is the content of the registers of one emulated unit.
type ChipState struct {
	Shutdown   bool
	Test       bool
	DecodeMode max7219.DecodeMode
	// Intensity is 0 to 15.
	Intensity byte
	// ScanLimit is the raw register value, the unit scans ScanLimit+1 digits.
	ScanLimit byte
	Digits    [max7219.NumDigits]byte
}

// Chain is an emulated chain of MAX7219 units. It implements spi.PortCloser
// and spi.Conn.
//
// Chain is safe for concurrent use.
type Chain struct {
	mu         sync.Mutex
	w          io.Writer
	palette    ansi256.Palette
	on         color.NRGBA
	autoRender bool

	// shift is the concatenation of the 16 bit shift registers, the unit
	// furthest from the controller first.
	shift    []byte
	chips    []ChipState
	frames   int
	rendered bool
	buf      bytes.Buffer
}

// New returns an emulated chain of devices units in their power-on state:
// shut down, no decoding, minimum intensity and a single digit scanned.
func New(devices int, opts *Opts) (*Chain, error) {
	if devices < 1 {
		return nil, fmt.Errorf("chainsim: invalid number of devices %d", devices)
	}
	if opts == nil {
		opts = &Opts{}
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := opts.W
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	on := opts.On
	if on == (color.NRGBA{}) {
		on = color.NRGBA{R: 255, A: 255}
	}
	c := &Chain{
		w:          w,
		palette:    *p,
		on:         on,
		autoRender: opts.AutoRender,
		shift:      make([]byte, 2*devices),
		chips:      make([]ChipState, devices),
	}
	for ix := range c.chips {
		c.chips[ix].Shutdown = true
	}
	return c, nil
}

func (c *Chain) String() string {
	return fmt.Sprintf("chainsim{%d}", len(c.chips))
}

// Connect implements spi.Port. The chain only accepts 8 bits words at up to
// 10MHz, in Mode0, Mode2 or Mode3.
func (c *Chain) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	if mode&^(spi.NoCS|spi.HalfDuplex|spi.LSBFirst) == spi.Mode1 {
		return nil, fmt.Errorf("chainsim: %s is not supported", mode)
	}
	if bits != 8 {
		return nil, fmt.Errorf("chainsim: invalid bits per word %d", bits)
	}
	if f > 10*physic.MegaHertz {
		return nil, fmt.Errorf("chainsim: frequency %s is too high", f)
	}
	return c, nil
}

// LimitSpeed implements spi.Port.
func (c *Chain) LimitSpeed(f physic.Frequency) error {
	return nil
}

// Close implements spi.PortCloser.
func (c *Chain) Close() error {
	return nil
}

// Halt implements conn.Resource.
func (c *Chain) Halt() error {
	return nil
}

// Duplex implements conn.Conn.
func (c *Chain) Duplex() conn.Duplex {
	return conn.Half
}

// Tx implements conn.Conn. The MAX7219 has no data output usable by the
// controller so r must be empty.
func (c *Chain) Tx(w, r []byte) error {
	if len(r) != 0 {
		return errors.New("chainsim: the bus is write-only")
	}
	c.mu.Lock()
	c.shiftIn(w)
	c.latch()
	c.mu.Unlock()
	return c.afterTx()
}

// TxPackets implements spi.Conn. Units latch at the end of every packet that
// doesn't keep CS asserted, and at the end of the last one.
func (c *Chain) TxPackets(p []spi.Packet) error {
	for _, pkt := range p {
		if len(pkt.R) != 0 {
			return errors.New("chainsim: the bus is write-only")
		}
	}
	c.mu.Lock()
	for ix, pkt := range p {
		c.shiftIn(pkt.W)
		if !pkt.KeepCS || ix == len(p)-1 {
			c.latch()
		}
	}
	c.mu.Unlock()
	return c.afterTx()
}

// Chip returns a copy of the registers of the unit at index, 0 being the unit
// furthest from the controller.
func (c *Chain) Chip(index int) ChipState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chips[index]
}

// Chips returns a copy of the registers of every unit.
func (c *Chain) Chips() []ChipState {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ChipState, len(c.chips))
	copy(out, c.chips)
	return out
}

// Frames returns the number of latches so far.
func (c *Chain) Frames() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

// Lit reports whether the LED at row (digit) and col (bit 7 being column 0)
// is on.
//
// Display test overrides every other register, shutdown included.
func (s ChipState) Lit(row, col int) bool {
	if s.Test {
		return true
	}
	if s.Shutdown {
		return false
	}
	if row > int(s.ScanLimit) {
		return false
	}
	return s.segments(row)&(0x80>>uint(col)) != 0
}

// segments returns the LED pattern driven for a digit, running the value
// through the Code B font when decoding is enabled for that digit.
func (s ChipState) segments(digit int) byte {
	v := s.Digits[digit]
	if byte(s.DecodeMode)&(1<<uint(digit)) == 0 {
		return v
	}
	return codeBFont[v&0x0f] | v&max7219.DecimalPoint
}

// codeBFont maps Code B values to DP-A-B-C-D-E-F-G segment patterns. Refer to
// table 5 of the datasheet.
var codeBFont = [16]byte{
	0x7e, 0x30, 0x6d, 0x79, 0x33, 0x5b, 0x5f, 0x70,
	0x7f, 0x7b, 0x01, 0x4f, 0x37, 0x0e, 0x67, 0x00,
}

func (s *ChipState) apply(r max7219.Register, v byte) {
	// Only D8-D11 carry the address.
	r &= 0x0f
	switch {
	case r >= max7219.RegDigit0 && r <= max7219.RegDigit7:
		s.Digits[r-max7219.RegDigit0] = v
	case r == max7219.RegDecodeMode:
		s.DecodeMode = max7219.DecodeMode(v)
	case r == max7219.RegIntensity:
		s.Intensity = v & 0x0f
	case r == max7219.RegScanLimit:
		s.ScanLimit = v & 0x07
	case r == max7219.RegShutdown:
		s.Shutdown = v&0x01 == 0
	case r == max7219.RegDisplayTest:
		s.Test = v&0x01 != 0
	}
}

func (c *Chain) shiftIn(w []byte) {
	for _, b := range w {
		copy(c.shift, c.shift[1:])
		c.shift[len(c.shift)-1] = b
	}
}

func (c *Chain) latch() {
	for ix := range c.chips {
		c.chips[ix].apply(max7219.Register(c.shift[2*ix]), c.shift[2*ix+1])
	}
	c.frames++
}

func (c *Chain) afterTx() error {
	if c.autoRender {
		return c.Render()
	}
	return nil
}

// Render draws the chain on the writer, the unit nearest to the controller
// on the left, as 8 lines of colored blocks.
func (c *Chain) Render() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	// This code is designed to minimize the amount of memory allocated per call.
	c.buf.Reset()
	if c.rendered {
		// Go back to the top of the previous rendering.
		_, _ = fmt.Fprintf(&c.buf, "\033[%dA", max7219.NumDigits)
	}
	for row := range max7219.NumDigits {
		_, _ = c.buf.WriteString("\r\033[0m")
		for ix := len(c.chips) - 1; ix >= 0; ix-- {
			for col := range 8 {
				_, _ = io.WriteString(&c.buf, c.palette.Block(c.ledColor(&c.chips[ix], row, col)))
			}
			_, _ = c.buf.WriteString("\033[0m ")
		}
		_, _ = c.buf.WriteString("\n")
	}
	c.rendered = true
	_, err := c.buf.WriteTo(c.w)
	return err
}

// Image returns the chain as an image, the unit nearest to the controller on
// the left. Each LED is a scale x scale square.
func (c *Chain) Image(scale int) *image.NRGBA {
	if scale < 1 {
		scale = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	img := image.NewNRGBA(image.Rect(0, 0, 8*len(c.chips)*scale, max7219.NumDigits*scale))
	for ix := range c.chips {
		x0 := (len(c.chips) - 1 - ix) * 8 * scale
		for row := range max7219.NumDigits {
			for col := range 8 {
				clr := c.ledColor(&c.chips[ix], row, col)
				for y := row * scale; y < (row+1)*scale; y++ {
					for x := x0 + col*scale; x < x0+(col+1)*scale; x++ {
						img.SetNRGBA(x, y, clr)
					}
				}
			}
		}
	}
	return img
}

// ledColor returns the rendering color of an LED. Intensity is rendered
// linearly, test mode is always at maximum.
func (c *Chain) ledColor(s *ChipState, row, col int) color.NRGBA {
	if !s.Lit(row, col) {
		return color.NRGBA{A: 255}
	}
	level := uint32(s.Intensity) + 1
	if s.Test {
		level = 16
	}
	return color.NRGBA{
		R: byte(uint32(c.on.R) * level / 16),
		G: byte(uint32(c.on.G) * level / 16),
		B: byte(uint32(c.on.B) * level / 16),
		A: 255,
	}
}

var _ spi.PortCloser = &Chain{}
var _ spi.Conn = &Chain{}
