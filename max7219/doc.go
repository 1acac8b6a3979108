// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package max7219 drives a chain of Maxim MAX7219/MAX7221 LED display
// drivers, used with numeric 7-segment displays or with 8x8 LED matrices.
//
// Up to MaxDevices units can be daisy-chained: DOUT of one unit is wired to
// DIN of the next one and they share CLK and LOAD/CS. Each unit takes a 16 bit
// packet (register, data). A frame holds one packet per unit and is sent as a
// single SPI transaction; all units latch their packet when CS goes high.
//
// The first packet of a frame is shifted the furthest, so index 0 is the unit
// furthest from the controller and index DeviceCount()-1 is the unit wired to
// the controller. Writes to a single unit send a no-op packet to every other
// unit.
//
// The bus is write-only; the driver doesn't track the state of the units.
//
// # Datasheet
//
// https://www.analog.com/media/en/technical-documentation/data-sheets/MAX7219-MAX7221.pdf
package max7219
