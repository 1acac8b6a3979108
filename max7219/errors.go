// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package max7219

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDeviceCount is returned when the chain length is outside
	// 1..MaxDevices.
	ErrInvalidDeviceCount = errors.New("max7219: invalid device count")
	// ErrInvalidDeviceIndex is returned when a device index is not lower than
	// the chain length.
	ErrInvalidDeviceIndex = errors.New("max7219: invalid device index")
	// ErrInvalidScanLimit is returned when the scan limit is outside 1..8.
	ErrInvalidScanLimit = errors.New("max7219: invalid scan limit")
	// ErrInvalidIntensity is returned when the intensity is outside 0..15.
	ErrInvalidIntensity = errors.New("max7219: invalid intensity")
	// ErrInvalidDigit is returned when a digit index is outside 0..7.
	ErrInvalidDigit = errors.New("max7219: invalid digit")
	// ErrOpCount is returned when a chain wide write doesn't supply exactly
	// one operation per device.
	ErrOpCount = errors.New("max7219: operation count doesn't match device count")
)

// RangeError reports an argument outside of its valid range. Err is one of
// the package sentinels and is returned by Unwrap, so errors.Is works.
type RangeError struct {
	Err   error
	Value int
	Min   int
	Max   int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%v %d: valid range is %d-%d", e.Err, e.Value, e.Min, e.Max)
}

func (e *RangeError) Unwrap() error {
	return e.Err
}
