// Package reconnect waits for a serial device to come back after it
// re-enumerated, for example when a chip with native USB resets into its
// ROM bootloader and drops its CDC port.
package reconnect

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"github.com/allbin/romflash/link"
)

const (
	DefaultInitialDelay = 150 * time.Millisecond
	DefaultPollInterval = 200 * time.Millisecond
	DefaultSettle       = 250 * time.Millisecond
	DefaultGrace        = 500 * time.Millisecond
)

// Source enumerates handles and reports device arrival. Senders on the
// Subscribe channel must give up once ctx is done.
type Source interface {
	Ports(ctx context.Context) ([]link.Handle, error)
	Subscribe(ctx context.Context) (<-chan link.Event, error)
}

// Watcher races a device-arrival subscription against polling.
type Watcher struct {
	src          Source
	logger       zerolog.Logger
	initialDelay time.Duration
	pollInterval time.Duration
	settle       time.Duration
	grace        time.Duration
}

// Option configures a Watcher
type Option func(*Watcher)

func WithLogger(logger zerolog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithTiming overrides the poll delays, the post-hit settle delay and the
// grace added to every timeout.
func WithTiming(initialDelay, pollInterval, settle, grace time.Duration) Option {
	return func(w *Watcher) {
		w.initialDelay = initialDelay
		w.pollInterval = pollInterval
		w.settle = settle
		w.grace = grace
	}
}

func New(src Source, opts ...Option) *Watcher {
	w := &Watcher{
		src:          src,
		logger:       zerolog.Nop(),
		initialDelay: DefaultInitialDelay,
		pollInterval: DefaultPollInterval,
		settle:       DefaultSettle,
		grace:        DefaultGrace,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// AwaitReappearance returns the first handle that is not stale, or nil when
// none shows up within timeout. It never returns an error and leaves no
// goroutines behind.
func (w *Watcher) AwaitReappearance(ctx context.Context, stale link.Handle, timeout time.Duration) link.Handle {
	hardCtx, cancelHard := context.WithTimeout(ctx, timeout+w.grace)
	defer cancelHard()

	raceCtx, cancelRace := context.WithTimeout(hardCtx, timeout)
	defer cancelRace()

	found := make(chan link.Handle, 2)
	var wg conc.WaitGroup
	wg.Go(func() { w.listen(raceCtx, stale, found) })
	wg.Go(func() { w.poll(raceCtx, stale, found) })

	var winner link.Handle
	select {
	case winner = <-found:
	case <-raceCtx.Done():
	}
	cancelRace()
	wg.Wait()

	if winner == nil {
		w.logger.Warn().Dur("timeout", timeout).Msg("device did not reappear")
		return nil
	}

	w.logger.Info().Str("path", winner.Path()).Msg("device reappeared")
	if err := link.Sleep(hardCtx, w.settle); err != nil {
		w.logger.Debug().Err(err).Msg("settle cut short")
	}
	return winner
}

func (w *Watcher) listen(ctx context.Context, stale link.Handle, found chan<- link.Handle) {
	events, err := w.src.Subscribe(ctx)
	if err != nil {
		w.logger.Debug().Err(err).Msg("device events unavailable, polling only")
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Kind != link.EventConnect || ev.Handle == nil || ev.Handle == stale {
				continue
			}
			offer(found, ev.Handle)
			return
		}
	}
}

func (w *Watcher) poll(ctx context.Context, stale link.Handle, found chan<- link.Handle) {
	if link.Sleep(ctx, w.initialDelay) != nil {
		return
	}
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		handles, err := w.src.Ports(ctx)
		if err != nil {
			w.logger.Debug().Err(err).Msg("enumeration failed")
		}
		for _, h := range handles {
			if h != stale {
				offer(found, h)
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func offer(found chan<- link.Handle, h link.Handle) {
	select {
	case found <- h:
	default:
	}
}
