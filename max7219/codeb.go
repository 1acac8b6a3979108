// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package max7219

import "strconv"

const (
	// ClearDigit is the Code B value that blanks a digit.
	ClearDigit byte = 0x0f
	// MinusSign is the Code B value for a minus sign symbol.
	MinusSign byte = 0x0a
	// To turn the decimal point on for a digit display, OR the value of the
	// digit with DecimalPoint.
	DecimalPoint byte = 0x80
)

// CodeB converts ASCII characters into their Code B representation, for
// units in DecodeAll mode. Refer to table 5 of the datasheet.
//
// A '.' is OR'd onto the previous digit. Characters without a Code B
// representation are passed through unchanged.
func CodeB(s string) []byte {
	out := make([]byte, 0, len(s))
	for ix := 0; ix < len(s); ix++ {
		c := s[ix]
		switch {
		case c >= '0' && c <= '9':
			out = append(out, c-'0')
		case c == ' ':
			out = append(out, ClearDigit)
		case c == '-':
			out = append(out, MinusSign)
		case c == '.':
			if len(out) > 0 {
				out[len(out)-1] |= DecimalPoint
			}
		case c == 'E':
			out = append(out, 0xb)
		case c == 'H':
			out = append(out, 0xc)
		case c == 'L':
			out = append(out, 0xd)
		case c == 'P':
			out = append(out, 0xe)
		default:
			out = append(out, c)
		}
	}
	return out
}

// WriteCodeB shows s on a chain of 7 segment displays, right aligned. Unused
// digits on the left are blanked and the leftmost characters are dropped if
// s doesn't fit. The unit wired to the controller shows the leftmost digits,
// digit 7 being the leftmost digit of a unit.
//
// Every unit must be in DecodeAll mode. It takes one transaction per digit.
func (d *Dev) WriteCodeB(s string) error {
	var digits [MaxDevices * NumDigits]byte
	all := digits[:d.count*NumDigits]
	for ix := range all {
		all[ix] = ClearDigit
	}
	b := CodeB(s)
	if len(b) > len(all) {
		b = b[len(b)-len(all):]
	}
	copy(all[len(all)-len(b):], b)

	var values [MaxDevices]byte
	for digit := range NumDigits {
		for unit := range d.count {
			// Position from the left of the whole chain.
			values[unit] = all[(d.count-1-unit)*NumDigits+NumDigits-1-digit]
		}
		if err := d.WriteRow(digit, values[:d.count]); err != nil {
			return err
		}
	}
	return nil
}

// WriteInt shows value right aligned on a chain of 7 segment displays. See
// WriteCodeB.
func (d *Dev) WriteInt(value int) error {
	return d.WriteCodeB(strconv.Itoa(value))
}
