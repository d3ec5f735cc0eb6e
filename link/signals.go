package link

import (
	"context"
	"fmt"
	"time"
)

// Signals is the state of the two modem output lines.
type Signals struct {
	DTR bool
	RTS bool
}

func (s Signals) String() string {
	return fmt.Sprintf("DTR=%s RTS=%s", level(s.DTR), level(s.RTS))
}

func level(b bool) string {
	if b {
		return "HIGH"
	}
	return "LOW"
}

// SignalSetter drives DTR and RTS together.
type SignalSetter interface {
	SetSignals(s Signals) error
}

var (
	// BootloaderSequence holds the chip in reset with IO0 released, then
	// releases reset with IO0 pulled low so the ROM bootloader starts.
	BootloaderSequence = []Signals{
		{DTR: false, RTS: true},
		{DTR: true, RTS: false},
	}

	// ResetSequence is BootloaderSequence followed by releasing both lines,
	// which lets the freshly written application boot.
	ResetSequence = []Signals{
		{DTR: false, RTS: true},
		{DTR: true, RTS: false},
		{DTR: false, RTS: false},
	}
)

// Pulse applies seq in order and waits settle after every step. It stops at
// the first failing step or when ctx is done.
func Pulse(ctx context.Context, s SignalSetter, seq []Signals, settle time.Duration) error {
	for i, step := range seq {
		if err := s.SetSignals(step); err != nil {
			return fmt.Errorf("pulse step %d (%s): %w", i, step, err)
		}
		if err := Sleep(ctx, settle); err != nil {
			return err
		}
	}
	return nil
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
