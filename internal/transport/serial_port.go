package transport

import (
	"fmt"

	"go.bug.st/serial"
)

// OpenSerialPort opens the named device at the given baud rate, 8N1, and
// configures it as a Port suitable for Bus. Read calls block for at most
// DefaultTimeout so the Bus's own deadline logic always has a chance to
// observe progress.
func OpenSerialPort(name string, baud int) (Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("transport: failed to open %s: %w", name, err)
	}
	if err := port.SetReadTimeout(DefaultTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("transport: failed to set read timeout: %w", err)
	}
	return port, nil
}
