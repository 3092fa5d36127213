package face

import (
	"image"
	"time"

	"github.com/0mdb/robot-buddy-sub000/driver/ft6x36"
)

// TouchSample is the latest touch reading, double-buffered from the
// touch-poll task to the animation task (spec §4's "Touch + buttons:
// Events from panel driver -> double-buffered touch sample").
type TouchSample struct {
	Point   image.Point
	Pressed bool
	NowUs   uint64
}

// TouchPoller periodically reads the touch controller and publishes a
// TouchSample.
type TouchPoller struct {
	dev *ft6x36.Device
	buf *DoubleBuffer[TouchSample]
	Now func() uint64
}

func NewTouchPoller(dev *ft6x36.Device, buf *DoubleBuffer[TouchSample], now func() uint64) *TouchPoller {
	return &TouchPoller{dev: dev, buf: buf, Now: now}
}

// Run blocks, polling at period until stop is closed.
func (p *TouchPoller) Run(period time.Duration, stop <-chan struct{}) {
	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
		}
		var now uint64
		if p.Now != nil {
			now = p.Now()
		}
		pt, pressed := p.dev.ReadTouchPoint()
		p.buf.Publish(TouchSample{Point: pt, Pressed: pressed, NowUs: now})
	}
}

// ClassifyZone maps a touch point to a border hit zone given the panel's
// size: two rectangular corner zones sized cornerFrac of the shorter
// screen dimension (spec §4.8: "Two rectangular corner zones (left=PTT,
// right=Action)").
func ClassifyZone(pt image.Point, screen image.Point) HitZone {
	short := screen.X
	if screen.Y < short {
		short = screen.Y
	}
	corner := short / 4
	if pt.Y > screen.Y-corner {
		if pt.X < corner {
			return HitPTT
		}
		if pt.X > screen.X-corner {
			return HitAction
		}
	}
	return HitNone
}
