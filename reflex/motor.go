package reflex

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// pwmFreq is the H-bridge switching frequency. Audible-range motors
// typically want this well above 20kHz to stay silent.
const pwmFreq = 20 * physic.KiloHertz

// MotorDriver drives one H-bridge channel: a PWM-capable pin for duty and
// a plain digital pin for direction, matching the cheap two-pin driver
// boards this firmware targets (DRV8833-class, not a dedicated direction
// pair per leg).
type MotorDriver struct {
	pwm gpio.PinOut
	dir gpio.PinOut
	max uint16
}

// NewMotorDriver wraps the two pins for one wheel. maxPwm is the
// application-level duty ceiling (Config.MaxPwm), used to rescale the
// control loop's signed duty into periph's gpio.Duty range.
func NewMotorDriver(pwm, dir gpio.PinOut, maxPwm uint16) *MotorDriver {
	return &MotorDriver{pwm: pwm, dir: dir, max: maxPwm}
}

// Set applies a signed duty in [-maxPwm, maxPwm] to the motor: sign picks
// direction, magnitude scales to gpio.DutyMax (spec §4.2 step 9, "actuate
// the computed duty, respecting sign as direction").
func (m *MotorDriver) Set(duty int32) error {
	level := gpio.Low
	if duty < 0 {
		level = gpio.High
		duty = -duty
	}
	if duty > int32(m.max) {
		duty = int32(m.max)
	}
	if err := m.dir.Out(level); err != nil {
		return fmt.Errorf("motor dir: %w", err)
	}
	scaled := gpio.Duty(0)
	if m.max > 0 {
		scaled = gpio.Duty(int64(duty) * int64(gpio.DutyMax) / int64(m.max))
	}
	if err := m.pwm.PWM(scaled, pwmFreq); err != nil {
		return fmt.Errorf("motor pwm: %w", err)
	}
	return nil
}

// Brake pulls the PWM pin to zero duty without changing direction,
// letting an H-bridge's coast/brake behavior depend on the board (spec
// §4.3 soft-stop rest state).
func (m *MotorDriver) Brake() error {
	return m.pwm.PWM(0, pwmFreq)
}

// Kill forces both channels off immediately, bypassing any ramp (spec
// §4.3 hard-stop: "brake and disable drivers immediately").
func (m *MotorDriver) Kill() error {
	if err := m.pwm.Out(gpio.Low); err != nil {
		return err
	}
	return m.dir.Out(gpio.Low)
}

// DriveTrain is both wheels' motor drivers, actuated together each
// control tick.
type DriveTrain struct {
	Left, Right *MotorDriver
}

// Actuate applies a control tick's WheelOutputs, or kills both motors
// when stop is StopHard (spec §4.2 step 9, §4.3).
func (d *DriveTrain) Actuate(out WheelOutputs, stop StopMode) error {
	if stop == StopHard {
		if err := d.Left.Kill(); err != nil {
			return err
		}
		return d.Right.Kill()
	}
	if err := d.Left.Set(out.DutyL); err != nil {
		return err
	}
	return d.Right.Set(out.DutyR)
}
