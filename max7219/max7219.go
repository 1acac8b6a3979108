// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package max7219

import (
	"fmt"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

const (
	// MaxDevices is the longest chain the driver can address.
	MaxDevices = 8
	// NumDigits is the number of digit (or matrix row) registers per device.
	NumDigits = 8

	maxIntensity = 0x0f
	maxFrequency = 10 * physic.MegaHertz
)

// Op is a single register write destined to one device of the chain.
type Op struct {
	Register Register
	Value    byte
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	Devices:   1,
	Frequency: maxFrequency,
	Init:      true,
}

// Opts defines the options for the device.
type Opts struct {
	// Devices is the number of MAX7219 units daisy-chained together.
	Devices int
	// Frequency is the SPI clock. The chip is rated for 10MHz, 0 means 10MHz.
	Frequency physic.Frequency
	// Init runs Init once the port is connected.
	Init bool
}

// Dev is a handle to a chain of Maxim MAX7219/MAX7221 devices.
//
// Dev is not safe for concurrent use.
type Dev struct {
	c conn.Conn
	// count is the number of 7219 units daisy-chained together.
	count int
	// buf holds one 16 bit packet per unit. Only the first count*2 bytes
	// are sent.
	buf [MaxDevices * 2]byte
}

// New returns a Dev driving a single unit over c. Use SetDeviceCount for a
// longer chain. Nothing is sent to the device.
func New(c conn.Conn) *Dev {
	return &Dev{c: c, count: 1}
}

// NewSPI connects to p and returns a Dev configured according to opts. If
// opts is nil, DefaultOpts is used.
//
// The chip works in Mode0, Mode2 and Mode3. Mode0 is used.
func NewSPI(p spi.Port, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	f := opts.Frequency
	if f == 0 {
		f = maxFrequency
	}
	if f > maxFrequency {
		return nil, fmt.Errorf("max7219: frequency %s is above %s", f, maxFrequency)
	}
	c, err := p.Connect(f, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("max7219: %w", err)
	}
	d := New(c)
	if opts.Devices != 0 {
		if err := d.SetDeviceCount(opts.Devices); err != nil {
			return nil, err
		}
	}
	if opts.Init {
		if err := d.Init(); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("max7219.Dev{%s, %d}", d.c, d.count)
}

// DeviceCount returns the number of units in the chain.
func (d *Dev) DeviceCount() int {
	return d.count
}

// SetDeviceCount sets the number of daisy-chained units. On error the
// previous count is kept.
func (d *Dev) SetDeviceCount(n int) error {
	if n < 1 || n > MaxDevices {
		return &RangeError{Err: ErrInvalidDeviceCount, Value: n, Min: 1, Max: MaxDevices}
	}
	d.count = n
	return nil
}

// Init puts every unit in a known state: powered on, display test off, all
// 8 digits scanned, no decoding, and all digits blank.
func (d *Dev) Init() error {
	if err := d.PowerOn(); err != nil {
		return err
	}
	if err := d.TestAll(false); err != nil {
		return err
	}
	if err := d.SetScanLimitAll(NumDigits); err != nil {
		return err
	}
	if err := d.SetDecodeModeAll(DecodeNone); err != nil {
		return err
	}
	return d.ClearAll()
}

// Halt implements conn.Resource. It shuts down every unit of the chain.
func (d *Dev) Halt() error {
	return d.PowerOff()
}

// WriteDevice writes value to register on the unit at index, and a no-op to
// every other unit. Index 0 is the unit furthest from the controller.
func (d *Dev) WriteDevice(index int, register Register, value byte) error {
	return d.writeDevice(index, register, value)
}

// WriteAll writes one operation to each unit in a single transaction. ops[0]
// goes to the unit furthest from the controller. len(ops) must be equal to
// DeviceCount().
func (d *Dev) WriteAll(ops []Op) error {
	return d.writeAll(ops)
}

// WriteRow writes digit register digit of every unit in a single
// transaction. values[0] goes to the unit furthest from the controller.
func (d *Dev) WriteRow(digit int, values []byte) error {
	r, err := Digit(digit)
	if err != nil {
		return err
	}
	if len(values) != d.count {
		return fmt.Errorf("%w: got %d, want %d", ErrOpCount, len(values), d.count)
	}
	var ops [MaxDevices]Op
	for ix, v := range values {
		ops[ix] = Op{Register: r, Value: v}
	}
	return d.writeAll(ops[:d.count])
}

// PowerOn takes every unit out of shutdown.
func (d *Dev) PowerOn() error {
	return d.broadcast(RegShutdown, 0x01)
}

// PowerOff puts every unit in shutdown. Register contents are kept.
func (d *Dev) PowerOff() error {
	return d.broadcast(RegShutdown, 0x00)
}

// PowerOnDevice takes a single unit out of shutdown.
func (d *Dev) PowerOnDevice(index int) error {
	return d.writeDevice(index, RegShutdown, 0x01)
}

// PowerOffDevice puts a single unit in shutdown.
func (d *Dev) PowerOffDevice(index int) error {
	return d.writeDevice(index, RegShutdown, 0x00)
}

// TestAll turns the display test mode on or off on every unit. Display test
// turns all LEDs on at maximum intensity. If you're using multiple units, you
// should be aware of the current draw, and limit how long you leave this on.
func (d *Dev) TestAll(on bool) error {
	return d.broadcast(RegDisplayTest, boolByte(on))
}

// TestDevice turns the display test mode on or off on a single unit.
func (d *Dev) TestDevice(index int, on bool) error {
	return d.writeDevice(index, RegDisplayTest, boolByte(on))
}

// SetScanLimitAll sets how many digits, 1 to 8, every unit scans.
func (d *Dev) SetScanLimitAll(limit byte) error {
	if err := checkScanLimit(limit); err != nil {
		return err
	}
	return d.broadcast(RegScanLimit, limit-1)
}

// SetScanLimit sets how many digits, 1 to 8, a single unit scans.
func (d *Dev) SetScanLimit(index int, limit byte) error {
	if err := checkScanLimit(limit); err != nil {
		return err
	}
	return d.writeDevice(index, RegScanLimit, limit-1)
}

// SetDecodeModeAll tells every unit whether values should be decoded for a 7
// segment display, or if they should be interpreted literally.
func (d *Dev) SetDecodeModeAll(mode DecodeMode) error {
	return d.broadcast(RegDecodeMode, byte(mode))
}

// SetDecodeMode sets the decode mode of a single unit.
func (d *Dev) SetDecodeMode(index int, mode DecodeMode) error {
	return d.writeDevice(index, RegDecodeMode, byte(mode))
}

// ClearAll writes 0 to the 8 digit registers of every unit. It takes one
// transaction per digit.
//
// In DecodeAll mode 0 displays the character 0; write ClearDigit to blank a
// Code B digit.
func (d *Dev) ClearAll() error {
	for _, r := range Digits() {
		if err := d.broadcast(r, 0x00); err != nil {
			return err
		}
	}
	return nil
}

// Clear writes 0 to the 8 digit registers of a single unit. It takes one
// transaction per digit.
func (d *Dev) Clear(index int) error {
	for _, r := range Digits() {
		if err := d.writeDevice(index, r, 0x00); err != nil {
			return err
		}
	}
	return nil
}

// WriteDigit writes a raw value to digit (0-7) of a single unit. Depending on
// the wiring and the decode mode, it is a segment pattern, a Code B value or
// a row of a matrix.
func (d *Dev) WriteDigit(index, digit int, value byte) error {
	r, err := Digit(digit)
	if err != nil {
		return err
	}
	return d.writeDevice(index, r, value)
}

// SetIntensityAll controls the brightness of every unit. The allowed range is
// 0-15. Keep in mind that the brighter display, the more current drawn.
func (d *Dev) SetIntensityAll(intensity byte) error {
	if err := checkIntensity(intensity); err != nil {
		return err
	}
	return d.broadcast(RegIntensity, intensity)
}

// SetIntensity controls the brightness of a single unit.
func (d *Dev) SetIntensity(index int, intensity byte) error {
	if err := checkIntensity(intensity); err != nil {
		return err
	}
	return d.writeDevice(index, RegIntensity, intensity)
}

// writeDevice sends a frame where the unit at index gets register/data and
// every other unit gets a no-op.
func (d *Dev) writeDevice(index int, register Register, data byte) error {
	if index < 0 || index >= d.count {
		return &RangeError{Err: ErrInvalidDeviceIndex, Value: index, Min: 0, Max: d.count - 1}
	}
	d.buf = [MaxDevices * 2]byte{}
	d.buf[index*2] = byte(register)
	d.buf[index*2+1] = data
	return d.c.Tx(d.buf[:d.count*2], nil)
}

// writeAll sends a frame with one packet per unit.
func (d *Dev) writeAll(ops []Op) error {
	if len(ops) != d.count {
		return fmt.Errorf("%w: got %d, want %d", ErrOpCount, len(ops), d.count)
	}
	d.buf = [MaxDevices * 2]byte{}
	for ix, op := range ops {
		d.buf[ix*2] = byte(op.Register)
		d.buf[ix*2+1] = op.Value
	}
	return d.c.Tx(d.buf[:d.count*2], nil)
}

// broadcast writes the same register/data to every unit.
func (d *Dev) broadcast(register Register, data byte) error {
	var ops [MaxDevices]Op
	for ix := range d.count {
		ops[ix] = Op{Register: register, Value: data}
	}
	return d.writeAll(ops[:d.count])
}

func checkScanLimit(limit byte) error {
	if limit < 1 || limit > NumDigits {
		return &RangeError{Err: ErrInvalidScanLimit, Value: int(limit), Min: 1, Max: NumDigits}
	}
	return nil
}

func checkIntensity(intensity byte) error {
	if intensity > maxIntensity {
		return &RangeError{Err: ErrInvalidIntensity, Value: int(intensity), Min: 0, Max: maxIntensity}
	}
	return nil
}

func boolByte(b bool) byte {
	if b {
		return 0x01
	}
	return 0x00
}

var _ conn.Resource = &Dev{}
var _ fmt.Stringer = &Dev{}
