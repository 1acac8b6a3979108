// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/GermanBionicSystems/ledchain/max7219"
	"github.com/GermanBionicSystems/ledchain/max7219/chainsim"
	"github.com/google/go-cmp/cmp"
)

func newSim(t *testing.T, devices int) (*max7219.Dev, *chainsim.Chain) {
	t.Helper()
	c, err := chainsim.New(devices, &chainsim.Opts{W: &bytes.Buffer{}})
	if err != nil {
		t.Fatal(err)
	}
	d, err := max7219.NewSPI(c, &max7219.Opts{Devices: devices, Init: true})
	if err != nil {
		t.Fatal(err)
	}
	return d, c
}

func TestPrint(t *testing.T) {
	d, c := newSim(t, 2)
	if err := run(d, []string{"print", "-12.5"}); err != nil {
		t.Fatal(err)
	}
	blank := [8]byte{}
	for ix := range blank {
		blank[ix] = max7219.ClearDigit
	}
	// The right half of the display is the unit furthest from the controller.
	right := blank
	right[0] = 5
	right[1] = 2 | max7219.DecimalPoint
	right[2] = 1
	right[3] = max7219.MinusSign
	chips := c.Chips()
	if diff := cmp.Diff(right, chips[0].Digits); diff != "" {
		t.Errorf("right unit (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(blank, chips[1].Digits); diff != "" {
		t.Errorf("left unit (-want +got):\n%s", diff)
	}
	for ix, s := range chips {
		if s.DecodeMode != max7219.DecodeAll {
			t.Errorf("chip %d decode mode = %s", ix, s.DecodeMode)
		}
	}
}

func TestPrintTruncates(t *testing.T) {
	d, c := newSim(t, 1)
	if err := run(d, []string{"print", "1234567890"}); err != nil {
		t.Fatal(err)
	}
	want := [8]byte{0, 9, 8, 7, 6, 5, 4, 3}
	if diff := cmp.Diff(want, c.Chip(0).Digits); diff != "" {
		t.Errorf("digits (-want +got):\n%s", diff)
	}
}

func TestRun(t *testing.T) {
	d, c := newSim(t, 3)
	for _, args := range [][]string{
		{"intensity", "7"},
		{"intensity", "0x0f", "1"},
		{"scan", "4", "2"},
		{"decode", "0-3"},
		{"off", "0"},
		{"digit", "2", "5", "0x81"},
	} {
		if err := run(d, args); err != nil {
			t.Fatalf("run(%q) = %v", args, err)
		}
	}
	chips := c.Chips()
	want := []chainsim.ChipState{
		{Shutdown: true, DecodeMode: max7219.DecodeDigits0To3, Intensity: 7, ScanLimit: 7},
		{DecodeMode: max7219.DecodeDigits0To3, Intensity: 15, ScanLimit: 7},
		{DecodeMode: max7219.DecodeDigits0To3, Intensity: 7, ScanLimit: 3},
	}
	want[2].Digits[5] = 0x81
	if diff := cmp.Diff(want, chips); diff != "" {
		t.Errorf("chips (-want +got):\n%s", diff)
	}
}

func TestRunErrors(t *testing.T) {
	d, _ := newSim(t, 2)
	data := []struct {
		args []string
		err  error
	}{
		{[]string{"intensity", "16"}, max7219.ErrInvalidIntensity},
		{[]string{"scan", "0"}, max7219.ErrInvalidScanLimit},
		{[]string{"on", "2"}, max7219.ErrInvalidDeviceIndex},
		{[]string{"digit", "0", "8", "1"}, max7219.ErrInvalidDigit},
	}
	for _, line := range data {
		if err := run(d, line.args); !errors.Is(err, line.err) {
			t.Errorf("run(%q) = %v, want %v", line.args, err, line.err)
		}
	}
	for _, args := range [][]string{
		{"bogus"},
		{"test", "maybe"},
		{"decode", "1-2"},
		{"intensity"},
		{"on", "first"},
		{"digit", "0"},
	} {
		if err := run(d, args); err == nil {
			t.Errorf("run(%q) succeeded", args)
		}
	}
}
