//go:build linux

package link

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// port is an open termios file descriptor. Locking is done by Device.
type port struct {
	fd int
}

// nodeKey identifies one incarnation of a device node. udev recreates the
// node on re-enumeration, which changes the inode and ctime.
type nodeKey struct {
	rdev  uint64
	ino   uint64
	ctime int64
}

func statNode(path string) (nodeKey, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return nodeKey{}, mapOpenError(path, err)
	}
	return nodeKey{
		rdev:  uint64(st.Rdev),
		ino:   uint64(st.Ino),
		ctime: st.Ctim.Nano(),
	}, nil
}

// getBaudRate converts an integer baud rate to the unix constant
func getBaudRate(rate int) (uint32, error) {
	switch rate {
	case 9600:
		return unix.B9600, nil
	case 19200:
		return unix.B19200, nil
	case 38400:
		return unix.B38400, nil
	case 57600:
		return unix.B57600, nil
	case 74880:
		// ESP8266 boot ROM rate; not a termios constant
		return 0, ErrInvalidBaudRate
	case 115200:
		return unix.B115200, nil
	case 230400:
		return unix.B230400, nil
	case 460800:
		return unix.B460800, nil
	case 500000:
		return unix.B500000, nil
	case 576000:
		return unix.B576000, nil
	case 921600:
		return unix.B921600, nil
	case 1000000:
		return unix.B1000000, nil
	case 1152000:
		return unix.B1152000, nil
	case 1500000:
		return unix.B1500000, nil
	case 2000000:
		return unix.B2000000, nil
	default:
		return 0, ErrInvalidBaudRate
	}
}

func openPort(path string, cfg Config) (*port, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, mapOpenError(path, err)
	}

	if cfg.Exclusive {
		if err := unix.IoctlSetInt(fd, unix.TIOCEXCL, 0); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("failed to lock %s: %w", path, err)
		}
	}

	// O_NONBLOCK was only needed so open doesn't wait for carrier
	if err := unix.SetNonblock(fd, false); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to set blocking mode: %w", err)
	}

	if err := configurePort(fd, cfg); err != nil {
		unix.Close(fd)
		return nil, err
	}

	p := &port{fd: fd}
	if cfg.InitialDTR != nil && cfg.InitialRTS != nil {
		if err := p.setSignals(Signals{DTR: *cfg.InitialDTR, RTS: *cfg.InitialRTS}); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("failed to set initial signals: %w", err)
		}
	}
	return p, nil
}

func mapOpenError(path string, err error) error {
	switch {
	case errors.Is(err, unix.EBUSY):
		return fmt.Errorf("%w: %s", ErrDeviceInUse, path)
	case errors.Is(err, unix.ENOENT), errors.Is(err, unix.ENODEV), errors.Is(err, unix.ENXIO):
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, path)
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return fmt.Errorf("%w: %s", ErrPermissionDenied, path)
	default:
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
}

// configurePort puts the port in raw 8N1 mode at the configured rate
func configurePort(fd int, cfg Config) error {
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("failed to get termios: %w", err)
	}

	termios.Cflag = unix.CS8 | unix.CREAD | unix.CLOCAL
	termios.Iflag = 0
	termios.Oflag = 0
	termios.Lflag = 0

	termios.Cc[unix.VMIN] = 0
	termios.Cc[unix.VTIME] = uint8(cfg.ReadTimeoutTenths)

	baudRate, err := getBaudRate(cfg.BaudRate)
	if err != nil {
		return err
	}
	termios.Cflag = (termios.Cflag &^ unix.CBAUD) | baudRate
	termios.Ispeed = baudRate
	termios.Ospeed = baudRate

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("failed to set termios: %w", err)
	}
	return nil
}

// setSignals updates DTR and RTS in a single TIOCMSET so the chip never sees
// an intermediate state.
func (p *port) setSignals(s Signals) error {
	status, err := unix.IoctlGetInt(p.fd, unix.TIOCMGET)
	if err != nil {
		return err
	}
	status &^= unix.TIOCM_DTR | unix.TIOCM_RTS
	if s.DTR {
		status |= unix.TIOCM_DTR
	}
	if s.RTS {
		status |= unix.TIOCM_RTS
	}
	return unix.IoctlSetPointerInt(p.fd, unix.TIOCMSET, status)
}

func (p *port) read(buf []byte) (int, error) {
	n, err := unix.Read(p.fd, buf)
	if n < 0 {
		n = 0
	}
	return n, err
}

func (p *port) write(data []byte) (int, error) {
	n, err := unix.Write(p.fd, data)
	if n < 0 {
		n = 0
	}
	return n, err
}

func (p *port) close() error {
	return unix.Close(p.fd)
}

// isGone reports errno values the kernel returns once a USB serial device
// has been unplugged or reset.
func isGone(err error) bool {
	return errors.Is(err, unix.EIO) || errors.Is(err, unix.ENXIO) || errors.Is(err, unix.ENODEV)
}
