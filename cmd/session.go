/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/allbin/romflash"
	"github.com/allbin/romflash/internal/config"
	"github.com/allbin/romflash/internal/logging"
	"github.com/allbin/romflash/internal/telemetry"
	"github.com/allbin/romflash/internal/tui/models"
	"github.com/allbin/romflash/internal/tui/styles"
	"github.com/allbin/romflash/link"
	"github.com/allbin/romflash/protocol"
)

// env bundles the configuration, logger and metrics a session command uses.
type env struct {
	cfg     *config.Config
	logger  zerolog.Logger
	metrics *telemetry.PrometheusCollector
	cleanup func()
}

// setup loads configuration and builds the logger. quiet keeps log output
// off the terminal so an interactive view can own it.
func setup(quiet bool, extra ...io.Writer) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	build := logging.Setup
	if quiet {
		build = logging.Quiet
	}
	logger, cleanup, err := build(cfg.Logging, extra...)
	if err != nil {
		return nil, err
	}

	metrics, err := telemetry.NewPrometheusCollector()
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	return &env{cfg: cfg, logger: logger, metrics: metrics, cleanup: cleanup}, nil
}

// close writes the metrics textfile, if configured, and flushes logs.
func (e *env) close() {
	if path := e.cfg.Metrics.File; path != "" {
		if err := e.metrics.WriteTextfile(path); err != nil {
			e.logger.Warn().Err(err).Str("file", path).Msg("write metrics")
		}
	}
	e.cleanup()
}

// chooser picks the configured port, the first USB port in plain mode, or
// asks the user.
func (e *env) chooser() link.Chooser {
	switch {
	case e.cfg.Port != "":
		return link.FixedPort(e.cfg.Port)
	case e.cfg.UI.Plain:
		return link.FirstPort
	default:
		return models.Chooser
	}
}

func (e *env) newSession(chooser link.Chooser, observer romflash.Observer) *romflash.Session {
	sys := link.NewSystem(link.WithChooser(chooser))
	modules := protocol.NewCache(protocol.Open(e.cfg.Module))
	return romflash.New(sys, modules,
		romflash.WithLogger(e.logger),
		romflash.WithObserver(observer),
		romflash.WithMetrics(e.metrics),
	)
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// plainObserver prints session events as lines.
type plainObserver struct {
	mu   sync.Mutex
	out  io.Writer
	errw io.Writer
}

func newPlainObserver() *plainObserver {
	return &plainObserver{out: os.Stdout, errw: os.Stderr}
}

func (o *plainObserver) Status(text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintln(o.out, text)
}

func (o *plainObserver) Progress(percent int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintf(o.out, "  %3d%%\n", percent)
}

func (o *plainObserver) Alert(message string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintln(o.errw, styles.AlertStyle.Render(message))
}
