// Package firmware writes an application image through whatever write
// capability a protocol loader exposes, reports progress, and resets the
// chip afterwards so the new image boots.
//
// Loaders are probed for four write strategies, first match wins:
//
//  1. BulkWriter: WriteFlash(ctx, []Segment)
//  2. FlashBegin / FlashBlock or FlashData / FlashFinish, chunked
//  3. ImageWriter: WriteImage(ctx, data, addr)
//  4. Programmer: Program(ctx, args...) tried with three argument shapes
//
// Progress is reported as whole percentages, never decreasing, and 100 is
// reported exactly once per successful write.
package firmware
