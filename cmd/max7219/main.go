// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// max7219 drives a chain of MAX7219 units from the command line.
//
// Hardware Setup:
//
//	MAX7219    Raspberry Pi
//	GND        GND
//	VCC        5V
//	DIN        GPIO10 (SPI0 MOSI)
//	CLK        GPIO11 (SPI0 CLK)
//	CS/LOAD    GPIO8 (SPI0 CE0)
//
// Examples:
//
//	max7219 -devices 4 init
//	max7219 -devices 4 intensity 3
//	max7219 -devices 4 intensity 15 0
//	max7219 -devices 2 print -12.5
//	max7219 -devices 4 -sim text "HELLO"
//	max7219 -devices 4 -sim -http :8010 text "HELLO"
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/GermanBionicSystems/ledchain/max7219"
	"github.com/GermanBionicSystems/ledchain/max7219/chainsim"
	"github.com/GermanBionicSystems/ledchain/max7219/matrix"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/videosink"
	"periph.io/x/host/v3"
)

var (
	spiPort  = flag.String("spi", "", "SPI port name (empty for default)")
	devices  = flag.Int("devices", 1, "Number of daisy-chained MAX7219 units")
	spiHz    = flag.Int("hz", 10000000, "SPI clock in Hz, at most 10MHz")
	doInit   = flag.Bool("init", false, "Initialize the chain before running the command")
	sim      = flag.Bool("sim", false, "Drive an emulated chain rendered on the terminal")
	httpAddr = flag.String("http", "", "With -sim, serve an MJPEG mirror of the chain on this address")
	interval = flag.Duration("interval", 80*time.Millisecond, "Scroll step of the text command")
	mirror   = flag.Bool("mirror", false, "Mirror matrices horizontally for the text command")
)

const usage = `usage: max7219 [flags] <command> [args]

commands:
  init
  on [device]
  off [device]
  test on|off [device]
  intensity <0-15> [device]
  scan <1-8> [device]
  decode none|0|0-3|all [device]
  clear [device]
  digit <device> <0-7> <value>
  print <text>     Code B text across every unit, right aligned
  text <text>      scroll text across a chain of 8x8 matrices

flags:
`

func mainImpl() error {
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		return errors.New("command expected")
	}
	if *httpAddr != "" && !*sim {
		return errors.New("-http requires -sim")
	}

	opts := &max7219.Opts{
		Devices:   *devices,
		Frequency: physic.Frequency(*spiHz) * physic.Hertz,
		Init:      *doInit || *sim,
	}

	var p spi.PortCloser
	var chain *chainsim.Chain
	if *sim {
		var err error
		if chain, err = chainsim.New(*devices, &chainsim.Opts{AutoRender: true}); err != nil {
			return err
		}
		p = chain
	} else {
		if _, err := host.Init(); err != nil {
			return fmt.Errorf("failed to initialize periph.io: %w", err)
		}
		var err error
		if p, err = spireg.Open(*spiPort); err != nil {
			return err
		}
	}
	defer p.Close()

	dev, err := max7219.NewSPI(p, opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if *httpAddr != "" {
		go mirrorChain(ctx, chain, *httpAddr)
	}

	if err := run(dev, flag.Args()); err != nil {
		return err
	}

	if *httpAddr != "" {
		log.Printf("serving the emulated chain on %s, interrupt to quit", *httpAddr)
		<-ctx.Done()
	}
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		log.Fatalf("max7219: %v", err)
	}
}

// mirrorChain serves the emulated chain as an MJPEG stream until ctx is done.
func mirrorChain(ctx context.Context, chain *chainsim.Chain, addr string) {
	const scale = 8
	img := chain.Image(scale)
	sink := videosink.New(&videosink.Options{
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
		Format: videosink.PNG,
	})
	srv := &http.Server{Addr: addr, Handler: sink}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http: %v", err)
		}
	}()
	t := time.NewTicker(50 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = srv.Close()
			_ = sink.Halt()
			return
		case <-t.C:
			img = chain.Image(scale)
			if err := sink.Draw(sink.Bounds(), img, img.Bounds().Min); err != nil {
				log.Printf("videosink: %v", err)
			}
		}
	}
}

// run executes a single command.
func run(dev *max7219.Dev, args []string) error {
	cmd, args := args[0], args[1:]
	switch cmd {
	case "init":
		return dev.Init()
	case "on":
		return perDevice(args, 0, dev.PowerOn, dev.PowerOnDevice)
	case "off":
		return perDevice(args, 0, dev.PowerOff, dev.PowerOffDevice)
	case "test":
		if len(args) < 1 {
			return errors.New("test: on or off expected")
		}
		on := args[0] == "on"
		if !on && args[0] != "off" {
			return fmt.Errorf("test: invalid state %q", args[0])
		}
		return perDevice(args, 1,
			func() error { return dev.TestAll(on) },
			func(i int) error { return dev.TestDevice(i, on) })
	case "intensity":
		v, err := byteArg(args, 0)
		if err != nil {
			return err
		}
		return perDevice(args, 1,
			func() error { return dev.SetIntensityAll(v) },
			func(i int) error { return dev.SetIntensity(i, v) })
	case "scan":
		v, err := byteArg(args, 0)
		if err != nil {
			return err
		}
		return perDevice(args, 1,
			func() error { return dev.SetScanLimitAll(v) },
			func(i int) error { return dev.SetScanLimit(i, v) })
	case "decode":
		if len(args) < 1 {
			return errors.New("decode: mode expected")
		}
		m, err := parseDecodeMode(args[0])
		if err != nil {
			return err
		}
		return perDevice(args, 1,
			func() error { return dev.SetDecodeModeAll(m) },
			func(i int) error { return dev.SetDecodeMode(i, m) })
	case "clear":
		return perDevice(args, 0, dev.ClearAll, dev.Clear)
	case "digit":
		if len(args) != 3 {
			return errors.New("digit: device, digit and value expected")
		}
		i, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return err
		}
		v, err := byteArg(args, 2)
		if err != nil {
			return err
		}
		return dev.WriteDigit(i, n, v)
	case "print":
		if len(args) != 1 {
			return errors.New("print: text expected")
		}
		if err := dev.SetDecodeModeAll(max7219.DecodeAll); err != nil {
			return err
		}
		return dev.WriteCodeB(args[0])
	case "text":
		if len(args) != 1 {
			return errors.New("text: text expected")
		}
		m := matrix.New(dev, &matrix.Opts{MirrorHorizontal: *mirror})
		return m.ScrollText(args[0], 1, *interval)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// perDevice calls all, or one with the device index found at args[ix] if
// present.
func perDevice(args []string, ix int, all func() error, one func(int) error) error {
	if len(args) <= ix {
		return all()
	}
	i, err := strconv.Atoi(args[ix])
	if err != nil {
		return fmt.Errorf("invalid device %q: %w", args[ix], err)
	}
	return one(i)
}

func byteArg(args []string, ix int) (byte, error) {
	if len(args) <= ix {
		return 0, errors.New("value expected")
	}
	v, err := strconv.ParseUint(args[ix], 0, 8)
	if err != nil {
		return 0, err
	}
	return byte(v), nil
}

func parseDecodeMode(s string) (max7219.DecodeMode, error) {
	switch s {
	case "none":
		return max7219.DecodeNone, nil
	case "0":
		return max7219.DecodeDigit0, nil
	case "0-3":
		return max7219.DecodeDigits0To3, nil
	case "all":
		return max7219.DecodeAll, nil
	default:
		return 0, fmt.Errorf("invalid decode mode %q", s)
	}
}
