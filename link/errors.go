package link

import (
	"errors"
	"fmt"
)

var (
	ErrDeviceNotFound      = errors.New("serial device not found")
	ErrPermissionDenied    = errors.New("permission denied accessing serial device")
	ErrDeviceInUse         = errors.New("serial device already in use")
	ErrAlreadyOpen         = errors.New("serial device already open")
	ErrInvalidBaudRate     = errors.New("invalid baud rate")
	ErrInvalidConfig       = errors.New("invalid serial configuration")
	ErrPortClosed          = errors.New("serial port is closed")
	ErrUnsupportedPlatform = errors.New("serial access is not supported on this platform")

	// Device selection
	ErrSelectionCancelled = errors.New("device selection cancelled")
	ErrNoPorts            = errors.New("no serial ports available")

	// USB-related errors
	ErrUSBInfoNotAvailable  = errors.New("USB device information not available")
	ErrUSBResetNotAvailable = errors.New("usbreset utility not available")
)

// TransientLinkError reports a link-level failure that usually means the
// device disconnected or re-enumerated, such as failing to drive the
// control lines or an I/O error on a vanished node.
type TransientLinkError struct {
	Op   string
	Path string
	Err  error
}

func (e *TransientLinkError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *TransientLinkError) Unwrap() error {
	return e.Err
}
