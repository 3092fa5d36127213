package main

import (
	"image"
	"time"

	"github.com/0mdb/robot-buddy-sub000/driver/audio"
	"github.com/0mdb/robot-buddy-sub000/driver/buttons"
	"github.com/0mdb/robot-buddy-sub000/driver/ft6x36"
	"github.com/0mdb/robot-buddy-sub000/driver/panel"
)

// nowMicros is the monotonic microsecond clock every task uses to
// timestamp samples and decide timeouts, matching reflexd's clock
// source so the two firmware images agree on the wire's timestamp
// semantics.
func nowMicros() uint64 { return uint64(time.Now().UnixMicro()) }

// screenDims is the panel's resolution (spec §4.7: "screen W×H"). This
// board wires the same 240x240 ST7789-class panel the Reflex MCU's
// teacher module targeted.
var screenDims = image.Point{X: 240, Y: 240}

// Platform is everything main's loops need from the hardware the Face
// MCU is wired to. The sim build (platform_dummy.go) and the Linux/ARM
// build (platform_rpi.go) each provide their own, selected at compile
// time by build tags, matching reflexd's Platform/Init() split.
type Platform struct {
	Panel   *panel.Panel
	Touch   *ft6x36.Device
	Buttons chan buttons.Event
	Codec   *audio.Codec
	Close   func() error
}
