package romflash

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/allbin/romflash/link"
)

var (
	ErrNotConnected      = errors.New("not connected: connect before flashing")
	ErrConnectInProgress = errors.New("connect already in progress")
	ErrNoProtocolModule  = errors.New("no protocol module configured")
)

// EnvironmentError reports a host that cannot do serial I/O at all.
type EnvironmentError struct {
	Err error
}

func (e *EnvironmentError) Error() string {
	return fmt.Sprintf("serial access unavailable: %v", e.Err)
}

func (e *EnvironmentError) Unwrap() error {
	return e.Err
}

// DeviceBusyError reports a port held open by another program.
type DeviceBusyError struct {
	Path string
	Err  error
}

func (e *DeviceBusyError) Error() string {
	return fmt.Sprintf("%s is in use by another application", e.Path)
}

func (e *DeviceBusyError) Unwrap() error {
	return e.Err
}

var (
	transientPattern = regexp.MustCompile(`(?i)set ?(control )?signals|network ?error|input/output error|no such device`)
	busyPattern      = regexp.MustCompile(`(?i)another app|in use|resource busy`)
)

// isTransientLink reports whether a handshake failure looks like the device
// dropped off the bus, which warrants one rebind attempt.
func isTransientLink(err error) bool {
	if err == nil {
		return false
	}
	return link.IsTransient(err) || transientPattern.MatchString(err.Error())
}

func isDeviceBusy(err error) bool {
	return errors.Is(err, link.ErrDeviceInUse) || busyPattern.MatchString(err.Error())
}

// userMessage is the single line shown to the user for a fatal error.
func userMessage(err error) string {
	var (
		busy *DeviceBusyError
		env  *EnvironmentError
	)
	switch {
	case errors.As(err, &busy):
		return fmt.Sprintf("The serial port %s is in use by another application. Close it and try again.", busy.Path)
	case errors.As(err, &env):
		return "Serial access is not available on this host: " + env.Err.Error()
	case errors.Is(err, link.ErrPermissionDenied):
		return "Permission denied opening the serial port. Add your user to the dialout group."
	default:
		return "Connect failed: " + err.Error()
	}
}
