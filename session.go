package romflash

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/allbin/romflash/firmware"
	"github.com/allbin/romflash/link"
	"github.com/allbin/romflash/protocol"
	"github.com/allbin/romflash/reconnect"
)

const (
	// BaudRate is the link rate used for the handshake and writes.
	BaudRate = link.DefaultBaudRate

	// LoadAddress is where application images are written.
	LoadAddress = firmware.DefaultLoadAddress

	// DefaultChipLabel is reported when the handshake doesn't name the chip.
	DefaultChipLabel = "ESP32-S2"
)

// Platform is the host serial API a Session drives. *link.System
// implements it.
type Platform interface {
	Check() error
	RequestPort(ctx context.Context) (link.Handle, error)
	Ports(ctx context.Context) ([]link.Handle, error)
	Subscribe(ctx context.Context) (<-chan link.Event, error)
}

// ModuleSource provides the protocol module. *protocol.Cache implements it.
type ModuleSource interface {
	Module(ctx context.Context) (protocol.Module, error)
}

type timing struct {
	signalSettle       time.Duration
	rebindTimeout      time.Duration
	rebindSettle       time.Duration
	rebindSignalSettle time.Duration
	retryDelay         time.Duration
}

var defaultTiming = timing{
	signalSettle:       100 * time.Millisecond,
	rebindTimeout:      8 * time.Second,
	rebindSettle:       350 * time.Millisecond,
	rebindSignalSettle: 120 * time.Millisecond,
	retryDelay:         250 * time.Millisecond,
}

// Session owns one device connection: it selects and opens the port, brings
// the chip into its bootloader, binds the protocol module and flashes.
type Session struct {
	platform   Platform
	modules    ModuleSource
	watcher    *reconnect.Watcher
	logger     zerolog.Logger
	observer   Observer
	metrics    Metrics
	terminal   protocol.Terminal
	writerOpts []firmware.Option
	baud       int
	timing     timing

	connecting atomic.Bool
	flashing   atomic.Bool
	calls      atomic.Int64

	adapterMu sync.Mutex
	adapter   *protocol.Adapter

	mu             sync.Mutex
	state          State
	handle         link.Handle
	transport      protocol.Transport
	loader         protocol.Loader
	chip           string
	lastAttempt    time.Time
	lastConnect    time.Time
	lastDisconnect time.Time
}

// Option configures a Session
type Option func(*Session)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

func WithObserver(o Observer) Option {
	return func(s *Session) {
		if o != nil {
			s.observer = o
		}
	}
}

func WithMetrics(m Metrics) Option {
	return func(s *Session) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithWatcher replaces the reappearance watcher built over the platform.
func WithWatcher(w *reconnect.Watcher) Option {
	return func(s *Session) {
		s.watcher = w
	}
}

// WithWriterOptions passes options to the firmware writer used by Flash.
func WithWriterOptions(opts ...firmware.Option) Option {
	return func(s *Session) {
		s.writerOpts = append(s.writerOpts, opts...)
	}
}

func New(platform Platform, modules ModuleSource, opts ...Option) *Session {
	s := &Session{
		platform: platform,
		modules:  modules,
		logger:   zerolog.Nop(),
		observer: nopObserver{},
		metrics:  nopMetrics{},
		baud:     BaudRate,
		timing:   defaultTiming,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "session").Logger()
	if s.watcher == nil {
		s.watcher = reconnect.New(platform, reconnect.WithLogger(s.logger))
	}
	s.terminal = protocol.NewLogTerminal(s.logger)
	return s
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Chip returns the chip label of the current connection, or "".
func (s *Session) Chip() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnected {
		return ""
	}
	return s.chip
}

// Handle returns the handle currently in use, which may differ from the one
// selected if the device re-enumerated during connect.
func (s *Session) Handle() link.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

// Ready reports whether Flash can run: connected, a loader bound and an
// image chosen.
func (s *Session) Ready(imageChosen bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return imageChosen && s.state == StateConnected && s.loader != nil && !s.flashing.Load()
}

// Diagnostics is a snapshot of connect bookkeeping.
type Diagnostics struct {
	State               State
	ConnectCalls        int64
	LastAttempt         time.Time
	LastConnectEvent    time.Time
	LastDisconnectEvent time.Time
}

func (s *Session) Diagnostics() Diagnostics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Diagnostics{
		State:               s.state,
		ConnectCalls:        s.calls.Load(),
		LastAttempt:         s.lastAttempt,
		LastConnectEvent:    s.lastConnect,
		LastDisconnectEvent: s.lastDisconnect,
	}
}

// Close releases the device and returns the session to idle.
func (s *Session) Close() error {
	s.mu.Lock()
	h := s.handle
	s.handle, s.transport, s.loader, s.chip = nil, nil, nil, ""
	s.state = StateIdle
	s.mu.Unlock()

	if h != nil && h.IsOpen() {
		return h.Close()
	}
	return nil
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}
