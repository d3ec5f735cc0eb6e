package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/allbin/romflash/internal/config"
)

// Setup creates a zerolog logger according to the provided configuration.
// Console output goes to stderr so stdout stays free for command results.
// extra writers receive every event as well.
func Setup(cfg config.LoggingConfig, extra ...io.Writer) (zerolog.Logger, func(), error) {
	return build(cfg, os.Stderr, extra)
}

// Quiet is Setup without console output, for views that own the terminal.
// Events still reach the log file and extra writers.
func Quiet(cfg config.LoggingConfig, extra ...io.Writer) (zerolog.Logger, func(), error) {
	return build(cfg, nil, extra)
}

func build(cfg config.LoggingConfig, console io.Writer, extra []io.Writer) (zerolog.Logger, func(), error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return zerolog.Logger{}, nil, fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}

	var writers []io.Writer
	if console != nil {
		if cfg.Format == "" || strings.EqualFold(cfg.Format, "text") {
			console = zerolog.ConsoleWriter{Out: console, TimeFormat: time.Kitchen}
		}
		writers = append(writers, console)
	}

	cleanup := func() {}
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Logger{}, nil, fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, f)
		cleanup = func() {
			_ = f.Close()
		}
	}

	writers = append(writers, extra...)
	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}

	multi := zerolog.MultiLevelWriter(writers...)
	logger := zerolog.New(multi).With().Timestamp().Logger().Level(level)
	return logger, cleanup, nil
}
