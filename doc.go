// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ledchain is a container for the MAX7219 chain driver and its
// companion packages.
//
// See max7219 for the driver, max7219/matrix to draw images on 8x8 LED
// matrices, max7219/chainsim to run without hardware and cmd/max7219 for a
// command line tool.
package ledchain
