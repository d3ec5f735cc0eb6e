package firmware

import (
	"context"
	"fmt"
)

// Strategy names the write path a loader was driven through.
type Strategy string

const (
	StrategyWriteFlash Strategy = "write_flash"
	StrategyChunked    Strategy = "flash_begin/block/finish"
	StrategyWriteImage Strategy = "write_image"
	StrategyProgram    Strategy = "program"
)

// BulkWriter writes a list of segments in one call.
type BulkWriter interface {
	WriteFlash(ctx context.Context, segments []Segment) error
}

// ImageWriter writes one blob at an address.
type ImageWriter interface {
	WriteImage(ctx context.Context, data []byte, addr uint32) error
}

// Programmer is a loosely typed write entry point. It is called with, in
// order until one succeeds: ([]Segment), (map[uint32][]byte), (data, addr).
type Programmer interface {
	Program(ctx context.Context, args ...any) error
}

// Chunked write protocol. A loader needs one begin, one block and one
// finish method to qualify.
type (
	FlashBeginner interface {
		FlashBegin(ctx context.Context, size, blocks, blockSize int, offset uint32) error
	}
	ShortFlashBeginner interface {
		FlashBegin(ctx context.Context, size int, offset uint32) error
	}
	BlockWriter interface {
		FlashBlock(ctx context.Context, data []byte, seq int) error
	}
	UnsequencedBlockWriter interface {
		FlashBlock(ctx context.Context, data []byte) error
	}
	DataWriter interface {
		FlashData(ctx context.Context, data []byte, seq int) error
	}
	RebootFinisher interface {
		FlashFinish(ctx context.Context, reboot bool) error
	}
	Finisher interface {
		FlashFinish(ctx context.Context) error
	}
)

// Block-size hints, probed in this order.
type (
	FlashWriteSizer interface{ FlashWriteSize() int }
	RAMBlockSizer   interface{ RAMBlockSize() int }
	WriteChunkSizer interface{ FlashWriteChunk() int }
)

type strategy struct {
	name  Strategy
	probe string
	match func(loader any) (runner, bool)
}

type runner func(ctx context.Context, w *Writer, img Image, rep *reporter) (chunks int, err error)

var strategies = []strategy{
	{StrategyWriteFlash, "WriteFlash", matchBulk},
	{StrategyChunked, "FlashBegin+FlashBlock|FlashData+FlashFinish", matchChunked},
	{StrategyWriteImage, "WriteImage", matchImage},
	{StrategyProgram, "Program", matchProgram},
}

func probedEntryPoints() []string {
	names := make([]string, len(strategies))
	for i, s := range strategies {
		names[i] = s.probe
	}
	return names
}

func matchBulk(loader any) (runner, bool) {
	bw, ok := loader.(BulkWriter)
	if !ok {
		return nil, false
	}
	return func(ctx context.Context, _ *Writer, img Image, _ *reporter) (int, error) {
		return 1, bw.WriteFlash(ctx, []Segment{{Address: img.Address, Data: img.Data}})
	}, true
}

func matchImage(loader any) (runner, bool) {
	iw, ok := loader.(ImageWriter)
	if !ok {
		return nil, false
	}
	return func(ctx context.Context, _ *Writer, img Image, _ *reporter) (int, error) {
		return 1, iw.WriteImage(ctx, img.Data, img.Address)
	}, true
}

func matchProgram(loader any) (runner, bool) {
	p, ok := loader.(Programmer)
	if !ok {
		return nil, false
	}
	return func(ctx context.Context, w *Writer, img Image, _ *reporter) (int, error) {
		shapes := []struct {
			name string
			args []any
		}{
			{"segments", []any{[]Segment{{Address: img.Address, Data: img.Data}}}},
			{"address map", []any{map[uint32][]byte{img.Address: img.Data}}},
			{"data, address", []any{img.Data, img.Address}},
		}

		var errs []error
		for _, shape := range shapes {
			err := p.Program(ctx, shape.args...)
			if err == nil {
				return 1, nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return 0, ctxErr
			}
			w.logger.Debug().Err(err).Str("shape", shape.name).Msg("program rejected argument shape")
			errs = append(errs, fmt.Errorf("%s: %w", shape.name, err))
		}
		return 0, &ProgramError{Errs: errs}
	}, true
}

type chunkedWriter struct {
	begin  func(ctx context.Context, size, blocks, blockSize int, offset uint32) error
	block  func(ctx context.Context, data []byte, seq int) error
	finish func(ctx context.Context) error
}

func matchChunked(loader any) (runner, bool) {
	var c chunkedWriter

	switch b := loader.(type) {
	case FlashBeginner:
		c.begin = b.FlashBegin
	case ShortFlashBeginner:
		c.begin = func(ctx context.Context, size, _, _ int, offset uint32) error {
			return b.FlashBegin(ctx, size, offset)
		}
	default:
		return nil, false
	}

	switch b := loader.(type) {
	case BlockWriter:
		c.block = b.FlashBlock
	case UnsequencedBlockWriter:
		c.block = func(ctx context.Context, data []byte, _ int) error {
			return b.FlashBlock(ctx, data)
		}
	case DataWriter:
		c.block = b.FlashData
	default:
		return nil, false
	}

	switch f := loader.(type) {
	case RebootFinisher:
		c.finish = func(ctx context.Context) error { return f.FlashFinish(ctx, true) }
	case Finisher:
		c.finish = f.FlashFinish
	default:
		return nil, false
	}

	return func(ctx context.Context, w *Writer, img Image, rep *reporter) (int, error) {
		return c.run(ctx, w, img, blockSize(loader, w.blockSize), rep)
	}, true
}

func (c chunkedWriter) run(ctx context.Context, w *Writer, img Image, bs int, rep *reporter) (int, error) {
	total := len(img.Data)
	blocks := (total + bs - 1) / bs

	if err := c.begin(ctx, total, blocks, bs, img.Address); err != nil {
		return 0, fmt.Errorf("flash begin: %w", err)
	}

	seq := 0
	for sent := 0; sent < total; seq++ {
		end := min(sent+bs, total)
		if err := c.block(ctx, img.Data[sent:end], seq); err != nil {
			return seq, fmt.Errorf("flash block %d/%d: %w", seq+1, blocks, err)
		}
		sent = end
		rep.update(sent, total)
	}

	// some ROMs reboot before acknowledging the finish command
	if err := c.finish(ctx); err != nil {
		w.logger.Warn().Err(err).Msg("flash finish failed")
	}
	return seq, nil
}

// blockSize returns the first positive size hint, or fallback.
func blockSize(loader any, fallback int) int {
	if l, ok := loader.(FlashWriteSizer); ok && l.FlashWriteSize() > 0 {
		return l.FlashWriteSize()
	}
	if l, ok := loader.(RAMBlockSizer); ok && l.RAMBlockSize() > 0 {
		return l.RAMBlockSize()
	}
	if l, ok := loader.(WriteChunkSizer); ok && l.FlashWriteChunk() > 0 {
		return l.FlashWriteChunk()
	}
	return fallback
}
