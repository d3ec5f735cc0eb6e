package protocol

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSymbolsLookup(t *testing.T) {
	s := Symbols{"A": 1, "Nil": nil}

	v, ok := s.Lookup("A")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = s.Lookup("Nil")
	assert.False(t, ok, "nil symbols count as absent")

	_, ok = s.Lookup("Missing")
	assert.False(t, ok)
}

func TestRegisterAndOpen(t *testing.T) {
	mod := Symbols{SymbolLoader: loaderCtor{"registered"}}
	Register("test-registered", mod)

	assert.Contains(t, Registered(), "test-registered")
	assert.Panics(t, func() { Register("test-registered", mod) })

	got, err := Open("test-registered")(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SymbolLoader, Bind(got).LoaderShape())

	_, err = Open("/nonexistent/module.so")(context.Background())
	assert.Error(t, err)
}

func TestCacheMemoizesFirstSuccess(t *testing.T) {
	calls := 0
	fail := true
	c := NewCache(func(context.Context) (Module, error) {
		calls++
		if fail {
			return nil, errors.New("not yet")
		}
		return Symbols{}, nil
	})

	_, err := c.Module(context.Background())
	require.Error(t, err)

	fail = false
	first, err := c.Module(context.Background())
	require.NoError(t, err)
	second, err := c.Module(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, calls, "failures are retried, successes are cached")
	assert.Equal(t, first, second)
}

func TestLogTerminal(t *testing.T) {
	var buf bytes.Buffer
	term := NewLogTerminal(zerolog.New(&buf).Level(zerolog.DebugLevel))

	term.Write("Connecting...")
	term.Write("....\r\nChip is ESP32-S2\n")
	term.WriteLine("Uploading stub...")
	term.Write("partial")
	term.Clean()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], `"message":"Connecting......."`)
	assert.Contains(t, lines[1], `"message":"Chip is ESP32-S2"`)
	assert.Contains(t, lines[2], `"component":"loader"`)
}

func TestLogTerminalConcurrentWriters(t *testing.T) {
	var buf bytes.Buffer
	term := NewLogTerminal(zerolog.New(zerolog.SyncWriter(&buf)).Level(zerolog.DebugLevel))

	const writers, perWriter = 8, 50
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				term.WriteLine(fmt.Sprintf("writer %d line %d", w, i))
			}
		}(w)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, writers*perWriter)
	for _, l := range lines {
		assert.Regexp(t, `"message":"writer \d+ line \d+"`, l)
	}
}
