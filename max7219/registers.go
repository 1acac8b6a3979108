// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package max7219

import "fmt"

// Register is the address of one of the MAX7219 registers. It is the first
// byte of every 16 bit packet.
type Register byte

// Register addresses. Refer to table 2 of the datasheet.
const (
	// RegNoOp is ignored by the chip. Chips that are not the target of a write
	// receive it.
	RegNoOp        Register = 0x0
	RegDigit0      Register = 0x1
	RegDigit1      Register = 0x2
	RegDigit2      Register = 0x3
	RegDigit3      Register = 0x4
	RegDigit4      Register = 0x5
	RegDigit5      Register = 0x6
	RegDigit6      Register = 0x7
	RegDigit7      Register = 0x8
	RegDecodeMode  Register = 0x9
	RegIntensity   Register = 0xa
	RegScanLimit   Register = 0xb
	RegShutdown    Register = 0xc
	RegDisplayTest Register = 0xf
)

// Digit returns the data register for digit (or matrix row) n, 0 based.
func Digit(n int) (Register, error) {
	if n < 0 || n >= NumDigits {
		return RegNoOp, &RangeError{Err: ErrInvalidDigit, Value: n, Min: 0, Max: NumDigits - 1}
	}
	return RegDigit0 + Register(n), nil
}

// Digits returns the eight data registers in order, digit 0 first.
func Digits() [NumDigits]Register {
	return [NumDigits]Register{RegDigit0, RegDigit1, RegDigit2, RegDigit3, RegDigit4, RegDigit5, RegDigit6, RegDigit7}
}

func (r Register) String() string {
	switch r {
	case RegNoOp:
		return "NoOp"
	case RegDigit0, RegDigit1, RegDigit2, RegDigit3, RegDigit4, RegDigit5, RegDigit6, RegDigit7:
		return fmt.Sprintf("Digit%d", r-RegDigit0)
	case RegDecodeMode:
		return "DecodeMode"
	case RegIntensity:
		return "Intensity"
	case RegScanLimit:
		return "ScanLimit"
	case RegShutdown:
		return "Shutdown"
	case RegDisplayTest:
		return "DisplayTest"
	default:
		return fmt.Sprintf("Register(0x%02x)", byte(r))
	}
}

// DecodeMode selects which digits the chip runs through its Code B font.
// Refer to table 4 of the datasheet.
type DecodeMode byte

const (
	// DecodeNone is RAW mode, or not decoded. For each byte, bits that are
	// one are turned on in the matrix, and bits that are 0 turn off the
	// led at that row/column.
	DecodeNone DecodeMode = 0x00
	// DecodeDigit0 uses Code B for digit 0 and raw mode for digits 1-7.
	DecodeDigit0 DecodeMode = 0x01
	// DecodeDigits0To3 uses Code B for digits 0-3 and raw mode for 4-7.
	DecodeDigits0To3 DecodeMode = 0x0f
	// DecodeAll is used for numeric segment displays. E.G. given a binary 0,
	// it would turn on the appropriate segments to display the character 0.
	DecodeAll DecodeMode = 0xff

	// DecodeB is an alias of DecodeAll.
	DecodeB = DecodeAll
)

func (m DecodeMode) String() string {
	switch m {
	case DecodeNone:
		return "DecodeNone"
	case DecodeDigit0:
		return "DecodeDigit0"
	case DecodeDigits0To3:
		return "DecodeDigits0To3"
	case DecodeAll:
		return "DecodeAll"
	default:
		return fmt.Sprintf("DecodeMode(0x%02x)", byte(m))
	}
}
