// Package ft6x36 implements a driver for the ft6x36 family of capacitive
// touch controllers, addressed over periph.io's I2C abstraction so it
// runs on any host periph.io/x/host supports, not just a TinyGo target.
//
// Datasheet: https://www.buydisplay.com/download/ic/FT6236-FT6336-FT6436L-FT6436_Datasheet.pdf
package ft6x36

import (
	"fmt"
	"image"

	"periph.io/x/conn/v3/i2c"
)

// Address is the ft6x36 family's fixed I2C address.
const Address = 0x38

const (
	regTDStatus = 0x02
	regGMode    = 0xa4
	regThGroup  = 0x80
	regThDiff   = 0x85
)

// Device wraps an already-opened i2c.Dev bound to Address.
type Device struct {
	dev *i2c.Dev
	buf [5]byte
}

// New returns a Device. bus must already be opened by the caller
// (i2creg.Open), matching the allocation-at-boot discipline the rest of
// this firmware core follows.
func New(bus i2c.Bus) *Device {
	return &Device{dev: &i2c.Dev{Bus: bus, Addr: Address}}
}

// Configure writes the touch and noise-rejection thresholds. Defaults
// from the datasheet work for most 2.4"-3.5" panels; threshGroup and
// threshDiff let a specific panel be tuned.
func (d *Device) Configure(threshGroup, threshDiff byte) error {
	if err := d.dev.Tx([]byte{regThGroup, threshGroup}, nil); err != nil {
		return fmt.Errorf("ft6x36: configure: %w", err)
	}
	if err := d.dev.Tx([]byte{regThDiff, threshDiff}, nil); err != nil {
		return fmt.Errorf("ft6x36: configure: %w", err)
	}
	return nil
}

// ReadTouchPoint returns the first active touch point, if any.
func (d *Device) ReadTouchPoint() (image.Point, bool) {
	if err := d.dev.Tx([]byte{regTDStatus}, d.buf[:]); err != nil {
		return image.Point{}, false
	}
	switch d.buf[0] {
	case 0, 255:
		return image.Point{}, false
	}
	return image.Point{
		X: int(d.buf[1]&0x0F)<<8 + int(d.buf[2]),
		Y: int(d.buf[3]&0x0F)<<8 + int(d.buf[4]),
	}, true
}
