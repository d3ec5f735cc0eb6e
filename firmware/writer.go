package firmware

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"github.com/allbin/romflash/link"
)

const (
	// DefaultBlockSize is used when the loader gives no block-size hint.
	DefaultBlockSize = 0x4000

	// DefaultResetSettle is the delay between post-write reset steps.
	DefaultResetSettle = 80 * time.Millisecond
)

var softResetFamily = regexp.MustCompile(`8266`)

// ChipNamer and Chipper report the chip family a loader detected.
type (
	ChipNamer interface{ ChipName() string }
	Chipper   interface{ Chip() string }
)

// SoftResetter restarts the chip through the bootloader protocol.
type SoftResetter interface {
	SoftReset(ctx context.Context) error
}

// Result describes a completed write.
type Result struct {
	Strategy Strategy
	Bytes    int
	Chunks   int
	Chip     string
	Duration time.Duration
	// Reset is true when the post-write reset pulse was applied.
	Reset bool
}

// Writer drives a loader's write capability.
type Writer struct {
	progress    ProgressFunc
	logger      zerolog.Logger
	blockSize   int
	resetSettle time.Duration
}

// Option configures a Writer
type Option func(*Writer)

// WithProgress sets the progress sink.
func WithProgress(fn ProgressFunc) Option {
	return func(w *Writer) {
		w.progress = fn
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(w *Writer) {
		w.logger = logger
	}
}

// WithBlockSize overrides DefaultBlockSize for loaders without a hint.
func WithBlockSize(size int) Option {
	return func(w *Writer) {
		if size > 0 {
			w.blockSize = size
		}
	}
}

// WithResetSettle overrides DefaultResetSettle.
func WithResetSettle(d time.Duration) Option {
	return func(w *Writer) {
		w.resetSettle = d
	}
}

func NewWriter(opts ...Option) *Writer {
	w := &Writer{
		logger:      zerolog.Nop(),
		blockSize:   DefaultBlockSize,
		resetSettle: DefaultResetSettle,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write flashes img through loader using the first strategy it supports,
// then resets the chip. lines may be nil, in which case only a protocol
// soft reset is attempted. Reset failures are logged and never returned.
func (w *Writer) Write(ctx context.Context, loader any, img Image, lines link.SignalSetter) (Result, error) {
	var (
		run  runner
		name Strategy
	)
	for _, s := range strategies {
		if r, ok := s.match(loader); ok {
			run, name = r, s.name
			break
		}
	}
	if run == nil {
		return Result{}, &NoWriteCapabilityError{Probed: probedEntryPoints()}
	}

	w.logger.Info().
		Str("strategy", string(name)).
		Int("bytes", len(img.Data)).
		Str("address", fmt.Sprintf("0x%x", img.Address)).
		Msg("writing firmware")

	start := time.Now()
	rep := newReporter(w.progress)
	rep.start()

	chunks, err := run(ctx, w, img, rep)
	if err != nil {
		return Result{Strategy: name, Chunks: chunks}, fmt.Errorf("%s: %w", name, err)
	}
	rep.finish()

	res := Result{
		Strategy: name,
		Bytes:    len(img.Data),
		Chunks:   chunks,
		Chip:     chipName(loader),
		Duration: time.Since(start),
	}
	res.Reset = w.reset(ctx, loader, res.Chip, lines)
	return res, nil
}

func chipName(loader any) string {
	if c, ok := loader.(ChipNamer); ok {
		if name := c.ChipName(); name != "" {
			return name
		}
	}
	if c, ok := loader.(Chipper); ok {
		return c.Chip()
	}
	return ""
}

func (w *Writer) reset(ctx context.Context, loader any, chip string, lines link.SignalSetter) bool {
	if softResetFamily.MatchString(chip) {
		if sr, ok := loader.(SoftResetter); ok {
			if err := sr.SoftReset(ctx); err != nil {
				w.logger.Warn().Err(err).Str("chip", chip).Msg("soft reset failed")
			}
		}
	}

	if lines == nil {
		return false
	}
	if err := link.Pulse(ctx, lines, link.ResetSequence, w.resetSettle); err != nil {
		w.logger.Warn().Err(err).Msg("reset pulse failed")
		return false
	}
	return true
}
