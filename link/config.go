package link

// DefaultBaudRate is the rate the ROM bootloader autobauds to reliably.
const DefaultBaudRate = 115200

// Config holds the settings applied when a Device is opened. Framing is
// always raw 8N1; bootloaders don't negotiate anything else.
type Config struct {
	BaudRate          int
	ReadTimeoutTenths int // VTIME in tenths of seconds (0-255)
	Exclusive         bool
	InitialDTR        *bool
	InitialRTS        *bool
}

// Option is a functional option for opening a Device
type Option func(*Config) error

// DefaultConfig returns 115200 baud, a 2.5s read timeout and exclusive access.
func DefaultConfig() Config {
	return Config{
		BaudRate:          DefaultBaudRate,
		ReadTimeoutTenths: 25,
		Exclusive:         true,
	}
}

// WithBaudRate sets the baud rate
func WithBaudRate(rate int) Option {
	return func(c *Config) error {
		if _, err := getBaudRate(rate); err != nil {
			return err
		}
		c.BaudRate = rate
		return nil
	}
}

// WithReadTimeout sets the read timeout in tenths of seconds (VTIME)
func WithReadTimeout(tenths int) Option {
	return func(c *Config) error {
		if tenths < 0 || tenths > 255 {
			return ErrInvalidConfig
		}
		c.ReadTimeoutTenths = tenths
		return nil
	}
}

// WithShared opens the node without TIOCEXCL.
func WithShared() Option {
	return func(c *Config) error {
		c.Exclusive = false
		return nil
	}
}

// WithInitialSignals drives DTR and RTS right after the port is configured,
// before any caller gets a chance to write.
func WithInitialSignals(s Signals) Option {
	return func(c *Config) error {
		dtr, rts := s.DTR, s.RTS
		c.InitialDTR = &dtr
		c.InitialRTS = &rts
		return nil
	}
}

// ClampBaud returns rate when the port layer supports it and DefaultBaudRate
// otherwise. The second result reports whether the rate was replaced.
func ClampBaud(rate int) (int, bool) {
	if rate <= 0 {
		return DefaultBaudRate, true
	}
	if _, err := getBaudRate(rate); err != nil {
		return DefaultBaudRate, true
	}
	return rate, false
}
