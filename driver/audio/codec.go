// Package audio configures the Face MCU's I²S audio codec over its I²C
// control interface. The PCM data path itself runs over I²S, which
// periph.io/x/conn/v3/i2s does not yet expose an API for (it is
// presently a documentation-only placeholder upstream); the codec's
// volume/mute/power registers, however, sit on the same I²C bus as the
// touch controller and IMU, so that boundary is driven the same way as
// every other register-mapped peripheral in this firmware.
package audio

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
)

const (
	regPower  = 0x00
	regVolume = 0x01
	regMute   = 0x02
)

// Codec wraps an already-opened I²C device bound to the audio codec's
// address.
type Codec struct {
	dev *i2c.Dev
}

// New returns a Codec. bus must already be opened by the caller.
func New(bus i2c.Bus, addr uint16) *Codec {
	return &Codec{dev: &i2c.Dev{Bus: bus, Addr: addr}}
}

// PowerUp brings the codec out of standby.
func (c *Codec) PowerUp() error {
	if err := c.dev.Tx([]byte{regPower, 0x01}, nil); err != nil {
		return fmt.Errorf("audio: power up: %w", err)
	}
	return nil
}

// PowerDown puts the codec into standby.
func (c *Codec) PowerDown() error {
	if err := c.dev.Tx([]byte{regPower, 0x00}, nil); err != nil {
		return fmt.Errorf("audio: power down: %w", err)
	}
	return nil
}

// SetVolume sets playback volume, 0 (silent) to 255 (max).
func (c *Codec) SetVolume(level uint8) error {
	if err := c.dev.Tx([]byte{regVolume, level}, nil); err != nil {
		return fmt.Errorf("audio: set volume: %w", err)
	}
	return nil
}

// SetMute mutes or unmutes the speaker output.
func (c *Codec) SetMute(mute bool) error {
	var v byte
	if mute {
		v = 1
	}
	if err := c.dev.Tx([]byte{regMute, v}, nil); err != nil {
		return fmt.Errorf("audio: set mute: %w", err)
	}
	return nil
}
