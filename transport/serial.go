package transport

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.bug.st/serial"
)

// DefaultBaud is the line rate the radios are configured for.
const DefaultBaud = 57600

// SerialChannel is a Channel over a serial port configured for raw 8N1.
type SerialChannel struct {
	serial.Port
	device string
}

// OpenSerial opens device at the given baud rate with 8 data bits, no
// parity and one stop bit.
func OpenSerial(device string, baud int) (*SerialChannel, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("itp: open serial %s: %w", device, err)
	}
	return &SerialChannel{Port: port, device: device}, nil
}

// SetReadTimeout bounds each following Read. Zero blocks until data arrives.
func (c *SerialChannel) SetReadTimeout(d time.Duration) error {
	if d <= 0 {
		return c.Port.SetReadTimeout(serial.NoTimeout)
	}
	return c.Port.SetReadTimeout(d)
}

// Read reads from the port. The driver reports a timeout as an empty read;
// it is returned as os.ErrDeadlineExceeded like the other channels.
func (c *SerialChannel) Read(p []byte) (int, error) {
	n, err := c.Port.Read(p)
	if n == 0 && err == nil {
		return 0, os.ErrDeadlineExceeded
	}
	return n, err
}

func (c *SerialChannel) String() string {
	return c.device
}

// parseSerialAddr splits "device[@baud]".
func parseSerialAddr(addr string) (string, int, error) {
	device, rate, found := strings.Cut(addr, "@")
	if device == "" {
		return "", 0, fmt.Errorf("itp: serial address %q has no device", addr)
	}
	if !found {
		return device, DefaultBaud, nil
	}
	baud, err := strconv.Atoi(rate)
	if err != nil || baud <= 0 {
		return "", 0, fmt.Errorf("itp: invalid baud rate %q", rate)
	}
	return device, baud, nil
}

// DialSerial opens the serial line named by addr, written as "device" or
// "device@baud".
func DialSerial(addr string) (*SerialChannel, error) {
	device, baud, err := parseSerialAddr(addr)
	if err != nil {
		return nil, err
	}
	return OpenSerial(device, baud)
}

// ListenSerial opens the serial line named by addr and returns a Listener
// that accepts it once.
func ListenSerial(addr string) (Listener, error) {
	ch, err := DialSerial(addr)
	if err != nil {
		return nil, err
	}
	return &singleListener{ch: ch}, nil
}
