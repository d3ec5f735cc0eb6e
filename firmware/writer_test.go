package firmware

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allbin/romflash/link"
)

type call struct {
	name string
	args []any
}

type recorder struct {
	calls []call
}

func (r *recorder) record(name string, args ...any) {
	r.calls = append(r.calls, call{name: name, args: args})
}

func (r *recorder) names() []string {
	out := make([]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.name
	}
	return out
}

// bulkAndImageLoader exposes strategies 1 and 3.
type bulkAndImageLoader struct{ recorder }

func (l *bulkAndImageLoader) WriteFlash(_ context.Context, segs []Segment) error {
	l.record("WriteFlash", segs)
	return nil
}

func (l *bulkAndImageLoader) WriteImage(_ context.Context, data []byte, addr uint32) error {
	l.record("WriteImage", data, addr)
	return nil
}

// chunkLoader speaks the 4-arg begin, sequenced block, reboot-finish protocol.
type chunkLoader struct {
	recorder
	chip      string
	finishErr error
	blockErr  error
	seqs      []int
	written   bytes.Buffer
}

func (l *chunkLoader) FlashBegin(_ context.Context, size, blocks, blockSize int, offset uint32) error {
	l.record("FlashBegin", size, blocks, blockSize, offset)
	return nil
}

func (l *chunkLoader) FlashBlock(_ context.Context, data []byte, seq int) error {
	if l.blockErr != nil && seq == 2 {
		return l.blockErr
	}
	l.seqs = append(l.seqs, seq)
	l.written.Write(data)
	return nil
}

func (l *chunkLoader) FlashFinish(_ context.Context, reboot bool) error {
	l.record("FlashFinish", reboot)
	return l.finishErr
}

func (l *chunkLoader) ChipName() string { return l.chip }

func (l *chunkLoader) SoftReset(context.Context) error {
	l.record("SoftReset")
	return nil
}

// shortChunkLoader speaks the 2-arg begin, FlashData, plain finish protocol
// and hints a block size.
type shortChunkLoader struct {
	recorder
	chunks []int
}

func (l *shortChunkLoader) FlashBegin(_ context.Context, size int, offset uint32) error {
	l.record("FlashBegin", size, offset)
	return nil
}

func (l *shortChunkLoader) FlashData(_ context.Context, data []byte, seq int) error {
	l.chunks = append(l.chunks, len(data))
	return nil
}

func (l *shortChunkLoader) FlashFinish(context.Context) error {
	l.record("FlashFinish")
	return nil
}

func (l *shortChunkLoader) FlashWriteSize() int { return 0x400 }

// beginOnlyLoader has begin and finish but no block method.
type beginOnlyLoader struct{}

func (beginOnlyLoader) FlashBegin(context.Context, int, uint32) error { return nil }
func (beginOnlyLoader) FlashFinish(context.Context) error             { return nil }

type programLoader struct {
	recorder
	acceptShape int
}

func (l *programLoader) Program(_ context.Context, args ...any) error {
	l.record("Program", args...)
	if len(l.calls) == l.acceptShape {
		return nil
	}
	return errors.New("bad arguments")
}

type signalRecorder struct {
	steps []link.Signals
	err   error
}

func (s *signalRecorder) SetSignals(sig link.Signals) error {
	if s.err != nil {
		return s.err
	}
	s.steps = append(s.steps, sig)
	return nil
}

func testImage(n int) Image {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i)
	}
	return Image{Address: DefaultLoadAddress, Data: data}
}

func newTestWriter(progress *[]int) *Writer {
	return NewWriter(
		WithResetSettle(0),
		WithProgress(func(p int) { *progress = append(*progress, p) }),
	)
}

func TestWriteFlashStrategyWinsOverWriteImage(t *testing.T) {
	var progress []int
	loader := &bulkAndImageLoader{}
	img := testImage(4096)

	res, err := newTestWriter(&progress).Write(context.Background(), loader, img, nil)
	require.NoError(t, err)

	assert.Equal(t, StrategyWriteFlash, res.Strategy)
	assert.Equal(t, []string{"WriteFlash"}, loader.names())
	segs := loader.calls[0].args[0].([]Segment)
	require.Len(t, segs, 1)
	assert.Equal(t, DefaultLoadAddress, segs[0].Address)
	assert.Equal(t, img.Data, segs[0].Data)
	assert.Equal(t, []int{0, 100}, progress)
	assert.False(t, res.Reset, "no signal setter, no pulse")
}

func TestChunkedWriteOneMegabyte(t *testing.T) {
	var progress []int
	loader := &chunkLoader{chip: "ESP32-S2"}
	lines := &signalRecorder{}
	img := testImage(1 << 20)

	res, err := newTestWriter(&progress).Write(context.Background(), loader, img, lines)
	require.NoError(t, err)

	assert.Equal(t, StrategyChunked, res.Strategy)
	assert.Equal(t, 64, res.Chunks)
	assert.Equal(t, "ESP32-S2", res.Chip)
	assert.True(t, res.Reset)

	require.Equal(t, []string{"FlashBegin", "FlashFinish"}, loader.names())
	assert.Equal(t, []any{1 << 20, 64, 0x4000, DefaultLoadAddress}, loader.calls[0].args)
	assert.Equal(t, []any{true}, loader.calls[1].args)

	require.Len(t, loader.seqs, 64)
	for i, seq := range loader.seqs {
		assert.Equal(t, i, seq)
	}
	assert.Equal(t, img.Data, loader.written.Bytes())

	assertProgress(t, progress)
	assert.Equal(t, link.ResetSequence, lines.steps)
}

func TestChunkedWriteShortForms(t *testing.T) {
	var progress []int
	loader := &shortChunkLoader{}
	img := testImage(3000)

	res, err := newTestWriter(&progress).Write(context.Background(), loader, img, nil)
	require.NoError(t, err)

	assert.Equal(t, StrategyChunked, res.Strategy)
	assert.Equal(t, []any{3000, DefaultLoadAddress}, loader.calls[0].args)
	assert.Equal(t, []int{0x400, 0x400, 952}, loader.chunks)
	assert.Equal(t, "FlashFinish", loader.calls[1].name)
	assertProgress(t, progress)
}

func TestChunkedFinishErrorIsNotFatal(t *testing.T) {
	var progress []int
	loader := &chunkLoader{finishErr: errors.New("no response")}

	_, err := newTestWriter(&progress).Write(context.Background(), loader, testImage(100), nil)
	require.NoError(t, err)
	assert.Equal(t, 100, progress[len(progress)-1])
}

func TestChunkedBlockErrorIsFatal(t *testing.T) {
	var progress []int
	loader := &chunkLoader{blockErr: errors.New("checksum mismatch")}

	res, err := newTestWriter(&progress).Write(context.Background(), loader, testImage(5*0x4000), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flash block 3/5")
	assert.Equal(t, 2, res.Chunks)
	assert.NotContains(t, progress, 100)
}

func TestIncompleteChunkedProtocolIsSkipped(t *testing.T) {
	_, err := NewWriter().Write(context.Background(), beginOnlyLoader{}, testImage(10), nil)

	var nwc *NoWriteCapabilityError
	require.ErrorAs(t, err, &nwc)
	assert.Len(t, nwc.Probed, 4)
	assert.Contains(t, err.Error(), "WriteImage")
}

func TestProgramShapes(t *testing.T) {
	img := testImage(16)

	t.Run("third shape accepted", func(t *testing.T) {
		loader := &programLoader{acceptShape: 3}
		res, err := NewWriter().Write(context.Background(), loader, img, nil)
		require.NoError(t, err)
		assert.Equal(t, StrategyProgram, res.Strategy)

		require.Len(t, loader.calls, 3)
		assert.IsType(t, []Segment{}, loader.calls[0].args[0])
		assert.IsType(t, map[uint32][]byte{}, loader.calls[1].args[0])
		assert.Equal(t, []any{img.Data, img.Address}, loader.calls[2].args)
	})

	t.Run("first shape accepted", func(t *testing.T) {
		loader := &programLoader{acceptShape: 1}
		_, err := NewWriter().Write(context.Background(), loader, img, nil)
		require.NoError(t, err)
		assert.Len(t, loader.calls, 1)
	})

	t.Run("every shape rejected", func(t *testing.T) {
		loader := &programLoader{}
		_, err := NewWriter().Write(context.Background(), loader, img, nil)

		var perr *ProgramError
		require.ErrorAs(t, err, &perr)
		assert.Len(t, perr.Errs, 3)
	})
}

func TestPostWriteReset(t *testing.T) {
	t.Run("soft reset only for 8266", func(t *testing.T) {
		loader := &chunkLoader{chip: "ESP8266EX"}
		lines := &signalRecorder{}

		res, err := NewWriter(WithResetSettle(0)).Write(context.Background(), loader, testImage(10), lines)
		require.NoError(t, err)
		assert.Contains(t, loader.names(), "SoftReset")
		assert.Equal(t, link.ResetSequence, lines.steps)
		assert.True(t, res.Reset)
	})

	t.Run("no soft reset for ESP32", func(t *testing.T) {
		loader := &chunkLoader{chip: "ESP32-S2"}

		_, err := NewWriter(WithResetSettle(0)).Write(context.Background(), loader, testImage(10), &signalRecorder{})
		require.NoError(t, err)
		assert.NotContains(t, loader.names(), "SoftReset")
	})

	t.Run("pulse failure is not fatal", func(t *testing.T) {
		loader := &chunkLoader{}
		lines := &signalRecorder{err: errors.New("device gone")}

		res, err := NewWriter(WithResetSettle(0)).Write(context.Background(), loader, testImage(10), lines)
		require.NoError(t, err)
		assert.False(t, res.Reset)
	})
}

func TestLoadImage(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "app.bin")
	require.NoError(t, os.WriteFile(path, []byte{0xe9, 0x03, 0x02, 0x20}, 0644))

	img, err := LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultLoadAddress, img.Address)
	assert.Len(t, img.Data, 4)
	assert.Equal(t, "4 bytes @ 0x10000", img.String())

	empty := filepath.Join(dir, "empty.bin")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	_, err = LoadImage(empty)
	assert.ErrorIs(t, err, ErrEmptyImage)

	_, err = LoadImage(filepath.Join(dir, "missing.bin"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// assertProgress checks the reporting contract: starts at 0, never
// decreases, steps by at least 10 below 100, ends with a single 100.
func assertProgress(t *testing.T, progress []int) {
	t.Helper()
	require.NotEmpty(t, progress)
	assert.Equal(t, 0, progress[0])
	assert.Equal(t, 100, progress[len(progress)-1])

	hundreds := 0
	for i, p := range progress {
		if p == 100 {
			hundreds++
		}
		if i == 0 {
			continue
		}
		assert.Greater(t, p, progress[i-1])
		if p < 100 {
			assert.GreaterOrEqual(t, p-progress[i-1], 10)
		}
	}
	assert.Equal(t, 1, hundreds)
}
