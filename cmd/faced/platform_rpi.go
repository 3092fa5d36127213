//go:build linux && arm

package main

import (
	"fmt"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/bcm283x"

	"github.com/0mdb/robot-buddy-sub000/driver/audio"
	"github.com/0mdb/robot-buddy-sub000/driver/buttons"
	"github.com/0mdb/robot-buddy-sub000/driver/ft6x36"
	"github.com/0mdb/robot-buddy-sub000/driver/panel"
)

const codecAddress = 0x1a

func Init() (*Platform, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("platform: %w", err)
	}

	p, err := panel.Open(screenDims)
	if err != nil {
		return nil, fmt.Errorf("platform: panel: %w", err)
	}

	bus, err := i2creg.Open("")
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("platform: i2c: %w", err)
	}

	touch := ft6x36.New(bus)
	if err := touch.Configure(0x10, 0x20); err != nil {
		bus.Close()
		p.Close()
		return nil, fmt.Errorf("platform: touch: %w", err)
	}

	codec := audio.New(bus, codecAddress)
	if err := codec.PowerUp(); err != nil {
		bus.Close()
		p.Close()
		return nil, fmt.Errorf("platform: codec: %w", err)
	}

	pttPin, actionPin := bcm283x.GPIO17, bcm283x.GPIO22
	btnCh := make(chan buttons.Event, 8)
	if err := buttons.Open(pttPin, actionPin, btnCh); err != nil {
		bus.Close()
		p.Close()
		return nil, fmt.Errorf("platform: buttons: %w", err)
	}

	return &Platform{
		Panel:   p,
		Touch:   touch,
		Buttons: btnCh,
		Codec:   codec,
		Close: func() error {
			codec.PowerDown()
			p.Close()
			return bus.Close()
		},
	}, nil
}
