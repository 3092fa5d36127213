package transport

import (
	"errors"
	"runtime"

	"github.com/tarm/serial"
)

// OpenSerial opens the USB CDC host-link device. If dev is empty, it
// probes the usual per-platform candidates, matching the fallback search
// the teacher's engraver driver performs for its own USB-serial link.
func OpenSerial(dev string) (*serial.Port, error) {
	const baudRate = 115200

	var devices []string
	if dev != "" {
		devices = append(devices, dev)
	} else {
		switch runtime.GOOS {
		case "windows":
			devices = append(devices, "COM3", "COM4")
		case "darwin":
			devices = append(devices, "/dev/tty.usbmodem0")
		default:
			devices = append(devices, "/dev/ttyACM0", "/dev/ttyACM1", "/dev/ttyUSB0")
		}
	}
	if len(devices) == 0 {
		return nil, errors.New("transport: no device specified")
	}
	var firstErr error
	for _, d := range devices {
		p, err := serial.OpenPort(&serial.Config{Name: d, Baud: baudRate})
		if err == nil {
			return p, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}
