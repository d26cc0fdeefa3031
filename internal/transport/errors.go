package transport

import "errors"

var (
	// ErrStateUnknown indicates no state message has been seen for a device.
	ErrStateUnknown = errors.New("transport: device state unknown")

	// ErrInvalidCommand indicates a command that cannot be encoded.
	ErrInvalidCommand = errors.New("transport: invalid command")
)
