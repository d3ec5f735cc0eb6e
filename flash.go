package romflash

import (
	"context"
	"errors"
	"fmt"

	"github.com/allbin/romflash/firmware"
)

var ErrFlashInProgress = errors.New("flash already in progress")

// Flash writes img through the connected loader and resets the chip into the
// new firmware. Progress is reported to the observer as 0-100.
func (s *Session) Flash(ctx context.Context, img firmware.Image) (firmware.Result, error) {
	s.mu.Lock()
	loader, h, state := s.loader, s.handle, s.state
	s.mu.Unlock()
	if state != StateConnected || loader == nil {
		return firmware.Result{}, ErrNotConnected
	}
	if !s.flashing.CompareAndSwap(false, true) {
		return firmware.Result{}, ErrFlashInProgress
	}
	defer s.flashing.Store(false)

	log := s.logger.With().Str("image", img.Name).Int("bytes", len(img.Data)).Logger()
	s.observer.Status(fmt.Sprintf("Flashing %s...", img))

	opts := append([]firmware.Option{
		firmware.WithLogger(s.logger),
		firmware.WithProgress(s.observer.Progress),
	}, s.writerOpts...)
	res, err := firmware.NewWriter(opts...).Write(ctx, loader, img, h)
	if err != nil {
		log.Error().Err(err).Msg("flash failed")
		s.observer.Status("Flash failed.")
		s.observer.Alert("Flash failed: " + err.Error())
		return res, err
	}

	s.metrics.ObserveFlash(string(res.Strategy), res.Bytes, res.Duration)
	log.Info().
		Str("strategy", string(res.Strategy)).
		Int("chunks", res.Chunks).
		Dur("took", res.Duration).
		Bool("reset", res.Reset).
		Msg("flash complete")
	if res.Reset {
		s.observer.Status("Flash complete. Device reset.")
	} else {
		s.observer.Status("Flash complete. Reset the board to start the new firmware.")
	}
	return res, nil
}
