//go:build linux && arm

package main

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/bcm283x"

	"github.com/0mdb/robot-buddy-sub000/reflex"
)

const imuAddress = 0x68

func Init() (*Platform, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("platform: %w", err)
	}

	leftA, leftB := bcm283x.GPIO5, bcm283x.GPIO6
	rightA, rightB := bcm283x.GPIO13, bcm283x.GPIO19
	left, err := reflex.NewQuadratureEncoder(leftA, leftB)
	if err != nil {
		return nil, fmt.Errorf("platform: left encoder: %w", err)
	}
	right, err := reflex.NewQuadratureEncoder(rightA, rightB)
	if err != nil {
		return nil, fmt.Errorf("platform: right encoder: %w", err)
	}
	encStop := make(chan struct{})
	go left.Run(encStop)
	go right.Run(encStop)

	leftMotor := reflex.NewMotorDriver(bcm283x.GPIO12, bcm283x.GPIO16, 4095)
	rightMotor := reflex.NewMotorDriver(bcm283x.GPIO20, bcm283x.GPIO21, 4095)
	drive := &reflex.DriveTrain{Left: leftMotor, Right: rightMotor}

	bus, err := i2creg.Open("")
	if err != nil {
		return nil, fmt.Errorf("platform: i2c: %w", err)
	}
	imuDev := &i2c.Dev{Bus: bus, Addr: imuAddress}
	imuBuf := reflex.NewDoubleBuffer[reflex.ImuSample]()
	imu := reflex.NewImuReader(imuDev, imuBuf, nowMicros)

	trig, echo := bcm283x.GPIO23, bcm283x.GPIO24
	rf, err := reflex.NewRangefinder(trig, echo, nowMicros)
	if err != nil {
		return nil, fmt.Errorf("platform: rangefinder: %w", err)
	}

	estopPin := bcm283x.GPIO26
	if err := estopPin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("platform: estop pin: %w", err)
	}

	return &Platform{
		Encoders:    &reflex.Encoders{Left: left, Right: right},
		Drive:       drive,
		Imu:         imu,
		Rangefinder: rf,
		Estop:       func() bool { return estopPin.Read() == gpio.Low },
		BatteryMv:   readBatteryMv,
		Close: func() error {
			close(encStop)
			return bus.Close()
		},
	}, nil
}

// readBatteryMv is a placeholder for the board's battery ADC channel;
// wiring a specific ADC part is a board bring-up detail outside this
// firmware core.
func readBatteryMv() uint16 { return 8000 }
