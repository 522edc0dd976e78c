package comm

import (
	"errors"
	"fmt"
)

var (
	// ErrPayloadTooLarge indicates a packet declares more payload than
	// a frame can carry.
	ErrPayloadTooLarge = errors.New("payload too large")
)

// ChecksumError is returned when a complete frame fails verification.
type ChecksumError struct {
	Address  byte
	Computed uint16
	Received uint16
}

// Error implements error.
func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch on register 0x%02x: computed 0x%04x, received 0x%04x",
		e.Address, e.Computed, e.Received)
}

// IsChecksumError returns true if err is (or wraps) a ChecksumError.
func IsChecksumError(err error) bool {
	var ce *ChecksumError
	return errors.As(err, &ce)
}
