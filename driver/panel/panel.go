// Package panel implements the Face MCU's SPI TFT driver: the
// register-level bring-up and blit path for a ST7789-class display,
// adapted to transfer from an RGB565 framebuffer instead of driving a
// GUI toolkit's op tree directly.
package panel

import (
	"fmt"
	"image"
	"time"
	"unsafe"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/bcm283x"

	"github.com/0mdb/robot-buddy-sub000/image/rgb565"
)

// Panel drives one SPI TFT display into which the face renderer's
// framebuffer is blitted.
type Panel struct {
	dims      image.Point
	spi       spi.PortCloser
	conn      spi.Conn
	window    image.Rectangle
	txBuf     []byte
	backlight bool
}

func (p *Panel) Close() {
	p.spi.Close()
	p.spi = nil
	p.conn = nil
}

// Pins, matching the board this firmware targets. A different board
// bring-up need only change these four assignments.
var (
	PinCS  = bcm283x.GPIO8
	PinRST = bcm283x.GPIO27
	PinDC  = bcm283x.GPIO25
	PinBL  = bcm283x.GPIO24
)

// Open initializes the SPI bus and the panel's controller registers for
// a dims-sized display.
func Open(dims image.Point) (*Panel, error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	port, err := spireg.Open("")
	if err != nil {
		return nil, fmt.Errorf("panel: %w", err)
	}
	c, err := port.Connect(40*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("panel: %w", err)
	}

	p := &Panel{dims: dims, spi: port, conn: c}
	maxTx := 4096
	if lim, ok := c.(conn.Limits); ok {
		maxTx = lim.MaxTxSize()
	}
	p.txBuf = make([]byte, maxTx)
	if err := p.setup(); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

func (p *Panel) sendCommand(cmd byte, data ...byte) error {
	PinDC.FastOut(gpio.Low)
	if err := p.conn.Tx([]byte{cmd}, make([]byte, 1)); err != nil {
		return err
	}
	if len(data) > 0 {
		PinDC.FastOut(gpio.High)
		if err := p.conn.Tx(data, nil); err != nil {
			return err
		}
	}
	return nil
}

func (p *Panel) setup() error {
	for _, pin := range []gpio.PinOut{PinCS, PinRST, PinDC} {
		if err := pin.Out(gpio.High); err != nil {
			return fmt.Errorf("panel: %w", err)
		}
	}
	PinBL.Out(gpio.Low)

	PinRST.FastOut(gpio.High)
	time.Sleep(100 * time.Millisecond)
	PinRST.FastOut(gpio.Low)
	time.Sleep(100 * time.Millisecond)
	PinRST.FastOut(gpio.High)
	time.Sleep(100 * time.Millisecond)

	var cmdErr error
	sendCommand := func(cmd byte, data ...byte) {
		if cmdErr != nil {
			return
		}
		cmdErr = p.sendCommand(cmd, data...)
	}
	sendCommand(0x36 /*MADCTL*/, 0x70)
	sendCommand(0x11 /*SLPOUT*/)
	time.Sleep(120 * time.Millisecond)
	sendCommand(0x3a /*COLMOD*/, 0x05)
	sendCommand(0xb2 /*PORCTRL*/, 0x0c, 0x0c, 0x00, 0x33, 0x33)
	sendCommand(0xb7 /*GCTRL*/, 0x35)
	sendCommand(0xbb /*VCOMS*/, 0x37)
	sendCommand(0xc0 /*LCMCTRL*/, 0x2c)
	sendCommand(0xc2 /*VDVVRHEN*/, 0x01)
	sendCommand(0xc3 /*VRHS*/, 0x12)
	sendCommand(0xc4 /*VDVS*/, 0x20)
	sendCommand(0xc6 /*FRCTRL2*/, 0x0f)
	sendCommand(0xd0 /*PWCTRL1*/, 0xa4, 0xa1)
	sendCommand(0xba /*DGMEN*/, 0x04)
	sendCommand(0x21 /*INVON*/)
	sendCommand(0x29 /*DISPON*/)
	if cmdErr != nil {
		return fmt.Errorf("panel: SPI command: %w", cmdErr)
	}
	return nil
}

func (p *Panel) Dims() image.Point {
	return p.dims
}

// Draw blits sr of img to the panel, switching the controller's
// addressing window only when sr differs from the last blit (spec §4.7's
// dirty-rect handoff to "the GUI toolkit" — here, directly to the panel
// driver since rendering owns the framebuffer end to end).
func (p *Panel) Draw(img *rgb565.Image, sr image.Rectangle) error {
	sr = sr.Intersect(img.Bounds())
	if sr.Empty() {
		return nil
	}
	if err := p.setWindow(sr); err != nil {
		return err
	}

	PinDC.FastOut(gpio.High)

	sz := sr.Size()
	idx := 0
	start := img.PixOffset(sr.Min.X, sr.Min.Y)
	end := img.PixOffset(sr.Max.X, sr.Max.Y-1)
	pix := img.Pix[start:end]
	for idx < sz.X*sz.Y {
		bufIdx := 0
		buf := p.txBuf
		for bufIdx < len(buf) && idx < sz.X*sz.Y {
			x, y := idx%sz.X, idx/sz.X
			rowStart := x + y*img.Stride
			row := pix[rowStart:]
			if sz.X != img.Stride {
				row = row[:sz.X-x]
			}
			byteview := unsafe.Slice((*byte)(unsafe.Pointer(&row[0])), len(row)*2)
			remaining := (sz.X*sz.Y - idx) * 2
			if remaining > len(buf) {
				remaining = len(buf)
			}
			var n int
			if bufIdx != 0 || len(byteview) < remaining {
				n = copy(buf[bufIdx:], byteview)
			} else {
				n = remaining
				buf = byteview[:n]
			}
			idx += n / 2
			bufIdx += n
		}
		buf = buf[:bufIdx]
		if err := p.conn.Tx(buf, nil); err != nil {
			return fmt.Errorf("panel: blit: %w", err)
		}
	}

	if !p.backlight {
		PinBL.Out(gpio.High)
		p.backlight = true
	}
	return nil
}

func (p *Panel) setWindow(r image.Rectangle) error {
	if p.window == r {
		return nil
	}
	p.window = r

	var cmdErr error
	sendCommand := func(cmd byte, data ...byte) {
		if cmdErr != nil {
			return
		}
		cmdErr = p.sendCommand(cmd, data...)
	}
	sendCommand(0x2a /*CASET*/, byte(r.Min.X>>8), byte(r.Min.X), byte((r.Max.X-1)>>8), byte((r.Max.X)-1))
	sendCommand(0x2b /*RASET*/, byte(r.Min.Y>>8), byte(r.Min.Y), byte((r.Max.Y-1)>>8), byte((r.Max.Y)-1))
	sendCommand(0x2c /*RAMWR*/)
	return cmdErr
}
