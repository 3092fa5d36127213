// Package buttons implements the Face MCU's discrete PTT/Action button
// inputs: debounced edge-triggered GPIO pins, synthesizing press/release
// events the same way the conversation border synthesizes them from
// touch zones.
package buttons

import (
	"time"

	"periph.io/x/conn/v3/gpio"
)

// ID names one of the two physical buttons.
type ID int

const (
	PTT ID = iota
	Action
)

// Event is one debounced transition.
type Event struct {
	Button  ID
	Pressed bool
}

// pin pairs a button identity with its GPIO line.
type pin struct {
	Button ID
	Pin    gpio.PinIn
}

// Open configures pttPin and actionPin for pulled-up, both-edge input and
// starts one debounce goroutine per button, delivering events on ch.
// debounce follows the teacher's own button driver's 10ms debounce
// window.
func Open(pttPin, actionPin gpio.PinIn, ch chan<- Event) error {
	pins := []pin{
		{PTT, pttPin},
		{Action, actionPin},
	}
	for _, p := range pins {
		if err := p.Pin.In(gpio.PullUp, gpio.BothEdges); err != nil {
			return err
		}
		p := p
		go debounce(p, ch)
	}
	return nil
}

const debounceTimeout = 10 * time.Millisecond

func debounce(p pin, ch chan<- Event) {
	pressed := false
	newPressed := false
	for {
		timeout := debounceTimeout
		if newPressed == pressed {
			timeout = -1
		}
		if p.Pin.WaitForEdge(timeout) {
			newPressed = p.Pin.Read() == gpio.Low
		} else if newPressed != pressed {
			pressed = newPressed
			ch <- Event{Button: p.Button, Pressed: pressed}
		}
	}
}
