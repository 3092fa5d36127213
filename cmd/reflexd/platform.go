package main

import (
	"time"

	"github.com/0mdb/robot-buddy-sub000/reflex"
)

// nowMicros is the monotonic microsecond clock every task uses to
// timestamp samples and decide timeouts (spec §3, §4.1's v2 envelope
// timestamp). time.Now() on Linux already reads CLOCK_MONOTONIC under
// the hood, so no extra syscall indirection is needed here.
func nowMicros() uint64 { return uint64(time.Now().UnixMicro()) }

// Platform is everything main's loops need from the hardware the Reflex
// MCU is wired to. The sim build (platform_dummy.go) and the Linux/ARM
// build (platform_rpi.go) each provide their own, selected at compile
// time by build tags, matching the teacher's Platform/Init() split.
type Platform struct {
	Encoders    *reflex.Encoders
	Drive       *reflex.DriveTrain
	Imu         *reflex.ImuReader
	Rangefinder *reflex.Rangefinder
	Estop       func() bool
	BatteryMv   func() uint16
	Close       func() error
}
