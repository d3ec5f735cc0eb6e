package romflash

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/allbin/romflash/link"
	"github.com/allbin/romflash/protocol"
)

// Connect selects a port, opens it, pulses the chip into its bootloader and
// runs the protocol handshake. It returns the detected chip label.
//
// A user who cancels port selection gets ("", nil) and the session stays
// idle. A call made while another is running returns ErrConnectInProgress
// without side effects. If the handshake fails because the device dropped off
// the bus, Connect waits once for it to come back and retries on the new
// handle.
func (s *Session) Connect(ctx context.Context) (string, error) {
	n := s.calls.Add(1)
	log := s.logger.With().Int64("attempt", n).Logger()

	if !s.connecting.CompareAndSwap(false, true) {
		log.Warn().Msg("connect already in progress, ignoring")
		return "", ErrConnectInProgress
	}
	defer s.connecting.Store(false)

	start := time.Now()
	chip, err := s.connect(ctx, log)
	switch {
	case err != nil:
		s.metrics.ObserveConnect("failed", time.Since(start))
	case chip == "":
		s.metrics.ObserveConnect("cancelled", time.Since(start))
	default:
		s.metrics.ObserveConnect("connected", time.Since(start))
	}
	return chip, err
}

func (s *Session) connect(ctx context.Context, log zerolog.Logger) (string, error) {
	if err := s.platform.Check(); err != nil {
		err = &EnvironmentError{Err: err}
		s.fail(log, err)
		return "", err
	}

	s.mu.Lock()
	s.state = StateOpening
	s.transport, s.loader, s.chip = nil, nil, ""
	s.mu.Unlock()
	s.observer.Status("Select a serial port...")

	h, err := s.platform.RequestPort(ctx)
	if err != nil {
		if errors.Is(err, link.ErrSelectionCancelled) {
			log.Info().Msg("port selection cancelled")
			s.setState(StateIdle)
			s.observer.Status("No port selected.")
			return "", nil
		}
		s.fail(log, err)
		return "", err
	}
	log = log.With().Str("port", h.Path()).Logger()

	stopEvents := s.trackEvents(ctx, log)
	defer stopEvents()

	s.mu.Lock()
	prev := s.handle
	s.handle = h
	s.mu.Unlock()
	if prev != nil && prev != h && prev.IsOpen() {
		if err := prev.Close(); err != nil {
			log.Debug().Err(err).Str("previous", prev.Path()).Msg("close previous port")
		}
	}

	var openedHere, connected bool
	defer func() {
		if connected {
			return
		}
		s.mu.Lock()
		cur := s.handle
		s.transport, s.loader = nil, nil
		s.mu.Unlock()
		if openedHere && cur != nil && cur.IsOpen() {
			if err := cur.Close(); err != nil {
				log.Debug().Err(err).Msg("close after failed connect")
			}
		}
	}()

	openedHere, err = s.open(h, log)
	if err != nil {
		s.fail(log, err)
		return "", err
	}

	s.setState(StateConfirmingLink)
	s.observer.Status("Confirming link...")
	if err := link.Pulse(ctx, h, link.BootloaderSequence, s.timing.signalSettle); err != nil {
		log.Warn().Err(err).Msg("bootloader signal pulse failed, continuing")
	}

	s.setState(StateHandshaking)
	s.observer.Status("Handshaking with bootloader...")
	adapter, err := s.bindAdapter(ctx, log)
	if err != nil {
		s.fail(log, err)
		return "", err
	}
	if err := s.rebuild(ctx, adapter, h, log); err != nil {
		s.fail(log, err)
		return "", err
	}

	chip, err := s.handshake(ctx, log)
	if err != nil && isTransientLink(err) {
		var reopened bool
		chip, reopened, err = s.rebind(ctx, adapter, h, err, log)
		if reopened {
			openedHere = true
		}
	}
	if err != nil {
		s.fail(log, err)
		return "", err
	}

	if chip == "" {
		chip = DefaultChipLabel
	}
	s.mu.Lock()
	s.chip = chip
	s.state = StateConnected
	s.mu.Unlock()
	connected = true

	log.Info().Str("chip", chip).Msg("connected")
	s.observer.Status(fmt.Sprintf("Connected to %s.", chip))
	return chip, nil
}

// open opens h unless it is already open. The bool reports whether this call
// opened it.
func (s *Session) open(h link.Handle, log zerolog.Logger) (bool, error) {
	if h.IsOpen() {
		log.Debug().Msg("port already open, reusing")
		return false, nil
	}

	baud, clamped := link.ClampBaud(s.baud)
	if clamped {
		log.Warn().Int("requested", s.baud).Int("baud", baud).Msg("invalid baud rate, using default")
	}

	err := h.Open(link.WithBaudRate(baud))
	switch {
	case err == nil:
		log.Debug().Int("baud", baud).Msg("port opened")
		return true, nil
	case errors.Is(err, link.ErrAlreadyOpen):
		log.Debug().Msg("port reported already open, continuing")
		return false, nil
	case isDeviceBusy(err):
		return false, &DeviceBusyError{Path: h.Path(), Err: err}
	default:
		return false, fmt.Errorf("open %s: %w", h.Path(), err)
	}
}

func (s *Session) bindAdapter(ctx context.Context, log zerolog.Logger) (*protocol.Adapter, error) {
	s.adapterMu.Lock()
	defer s.adapterMu.Unlock()

	if s.adapter != nil {
		return s.adapter, nil
	}
	if s.modules == nil {
		return nil, ErrNoProtocolModule
	}
	m, err := s.modules.Module(ctx)
	if err != nil {
		return nil, fmt.Errorf("load protocol module: %w", err)
	}
	s.adapter = protocol.Bind(m)
	log.Debug().
		Str("transport", s.adapter.TransportShape()).
		Str("loader", s.adapter.LoaderShape()).
		Msg("protocol module bound")
	return s.adapter, nil
}

// rebuild creates a transport and loader over h and stores them on the
// session.
func (s *Session) rebuild(ctx context.Context, a *protocol.Adapter, h link.Handle, log zerolog.Logger) error {
	t, err := a.OpenTransport(h)
	if err != nil {
		return err
	}
	l, err := a.BuildLoader(t, s.baud, s.terminal)
	if err != nil {
		return err
	}
	if r, ok := a.ResetHelper(t); ok {
		if err := r.Run(ctx); err != nil {
			log.Debug().Err(err).Msg("reset helper failed, continuing")
		}
	}

	s.mu.Lock()
	s.transport, s.loader = t, l
	s.mu.Unlock()
	return nil
}

func (s *Session) handshake(ctx context.Context, log zerolog.Logger) (string, error) {
	s.mu.Lock()
	l := s.loader
	s.lastAttempt = time.Now()
	s.mu.Unlock()

	hs, err := protocol.ResolveHandshake(l)
	if err != nil {
		return "", err
	}
	log.Debug().Str("entry", hs.Name).Msg("handshake")
	return hs.Run(ctx)
}

// rebind waits for the device to reappear under a new handle and retries the
// handshake there once. Any failure before the retry returns orig.
func (s *Session) rebind(ctx context.Context, a *protocol.Adapter, stale link.Handle, orig error, log zerolog.Logger) (string, bool, error) {
	s.setState(StateRebinding)
	s.observer.Status("Waiting for the device to come back...")
	log.Warn().Err(orig).Str("phase", s.linkPhase()).Msg("link dropped during handshake, rebinding")

	fresh := s.watcher.AwaitReappearance(ctx, stale, s.timing.rebindTimeout)
	if fresh == nil {
		log.Warn().Dur("timeout", s.timing.rebindTimeout).Msg("device did not reappear")
		s.metrics.ObserveRebind("timeout")
		return "", false, orig
	}
	log = log.With().Str("rebound", fresh.Path()).Logger()

	if stale.IsOpen() {
		if err := stale.Close(); err != nil {
			log.Debug().Err(err).Msg("close stale port")
		}
	}
	s.mu.Lock()
	s.handle = fresh
	s.transport, s.loader = nil, nil
	s.mu.Unlock()

	if err := link.Sleep(ctx, s.timing.rebindSettle); err != nil {
		s.metrics.ObserveRebind("failed")
		return "", false, orig
	}

	reopened, err := s.open(fresh, log)
	if err != nil {
		log.Warn().Err(err).Msg("reopen after rebind failed")
		s.metrics.ObserveRebind("failed")
		return "", false, orig
	}
	if err := s.rebuild(ctx, a, fresh, log); err != nil {
		log.Warn().Err(err).Msg("rebuild after rebind failed")
		s.metrics.ObserveRebind("failed")
		return "", reopened, orig
	}
	if err := link.Pulse(ctx, fresh, link.BootloaderSequence, s.timing.rebindSignalSettle); err != nil {
		log.Warn().Err(err).Msg("bootloader signal pulse failed after rebind, continuing")
	}
	if err := link.Sleep(ctx, s.timing.retryDelay); err != nil {
		s.metrics.ObserveRebind("failed")
		return "", reopened, orig
	}

	s.setState(StateHandshaking)
	chip, err := s.handshake(ctx, log)
	if err != nil {
		s.metrics.ObserveRebind("failed")
		return "", reopened, err
	}
	s.metrics.ObserveRebind("ok")
	return chip, reopened, nil
}

// linkPhase tells whether a disconnect event was seen since the last
// handshake attempt started.
func (s *Session) linkPhase() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.lastDisconnect.IsZero():
		return "no-disconnect-seen"
	case s.lastDisconnect.After(s.lastAttempt):
		return "after-disconnect"
	default:
		return "before-disconnect"
	}
}

// trackEvents records device arrival and removal times while a connect runs.
// The returned func stops tracking and waits for it to finish.
func (s *Session) trackEvents(ctx context.Context, log zerolog.Logger) func() {
	ctx, cancel := context.WithCancel(ctx)
	events, err := s.platform.Subscribe(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("device events unavailable")
		return cancel
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				s.mu.Lock()
				switch ev.Kind {
				case link.EventConnect:
					s.lastConnect = ev.At
				case link.EventDisconnect:
					s.lastDisconnect = ev.At
				}
				s.mu.Unlock()
				log.Debug().Stringer("event", ev.Kind).Str("path", ev.Path).Msg("device event")
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

func (s *Session) fail(log zerolog.Logger, err error) {
	s.setState(StateFailed)
	log.Error().Err(err).Msg("connect failed")
	s.observer.Status("Connect failed.")
	s.observer.Alert(userMessage(err))
}
