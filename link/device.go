package link

import (
	"errors"
	"sync"
)

// Handle is one physical connection instance of a serial device.
type Handle interface {
	Path() string
	Info() PortInfo
	Open(opts ...Option) error
	Close() error
	IsOpen() bool
	SetSignals(s Signals) error
	Read(buf []byte) (int, error)
	Write(data []byte) (int, error)
}

// Device is the Handle backed by a device node. Devices are handed out by
// System; a zero Device is not usable.
type Device struct {
	mu   sync.RWMutex
	info PortInfo
	node nodeKey
	conn *port
}

// Ensure Device implements Handle at compile time
var _ Handle = (*Device)(nil)

func newDevice(info PortInfo, node nodeKey) *Device {
	return &Device{info: info, node: node}
}

func (d *Device) Path() string {
	return d.info.Path
}

func (d *Device) Info() PortInfo {
	return d.info
}

// Open configures the node for raw I/O. It fails with ErrAlreadyOpen when
// the device is already open through this handle.
func (d *Device) Open(opts ...Option) error {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return err
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn != nil {
		return ErrAlreadyOpen
	}
	p, err := openPort(d.info.Path, cfg)
	if err != nil {
		return err
	}
	d.conn = p
	return nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return ErrPortClosed
	}
	err := d.conn.close()
	d.conn = nil
	return err
}

func (d *Device) IsOpen() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.conn != nil
}

func (d *Device) SetSignals(s Signals) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.conn == nil {
		return &TransientLinkError{Op: "set control signals", Path: d.info.Path, Err: ErrPortClosed}
	}
	if err := d.conn.setSignals(s); err != nil {
		return &TransientLinkError{Op: "set control signals", Path: d.info.Path, Err: err}
	}
	return nil
}

func (d *Device) Read(buf []byte) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.conn == nil {
		return 0, ErrPortClosed
	}
	n, err := d.conn.read(buf)
	if err != nil && isGone(err) {
		return n, &TransientLinkError{Op: "read", Path: d.info.Path, Err: err}
	}
	return n, err
}

func (d *Device) Write(data []byte) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.conn == nil {
		return 0, ErrPortClosed
	}
	n, err := d.conn.write(data)
	if err != nil && isGone(err) {
		return n, &TransientLinkError{Op: "write", Path: d.info.Path, Err: err}
	}
	return n, err
}

// IsTransient reports whether err is, or wraps, a *TransientLinkError.
func IsTransient(err error) bool {
	var tle *TransientLinkError
	return errors.As(err, &tle)
}
