package protocol

import (
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Terminal receives the loader's human-readable output.
type Terminal interface {
	Clean()
	Write(s string)
	WriteLine(s string)
}

// LogTerminal forwards loader output to a logger at debug level. It is safe
// for use from the module's reader goroutines.
type LogTerminal struct {
	logger zerolog.Logger

	mu  sync.Mutex
	buf strings.Builder
}

func NewLogTerminal(logger zerolog.Logger) *LogTerminal {
	return &LogTerminal{logger: logger.With().Str("component", "loader").Logger()}
}

func (t *LogTerminal) Clean() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Reset()
}

func (t *LogTerminal) Write(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			t.buf.WriteString(s)
			return
		}
		t.buf.WriteString(s[:i])
		t.flush()
		s = s[i+1:]
	}
}

func (t *LogTerminal) WriteLine(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.WriteString(s)
	t.flush()
}

func (t *LogTerminal) flush() {
	line := strings.TrimRight(t.buf.String(), "\r")
	t.buf.Reset()
	if line != "" {
		t.logger.Debug().Msg(line)
	}
}

type discardTerminal struct{}

func (discardTerminal) Clean()           {}
func (discardTerminal) Write(string)     {}
func (discardTerminal) WriteLine(string) {}
