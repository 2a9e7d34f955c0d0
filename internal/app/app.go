package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/stripd/internal/config"
)

// Options are startup choices made on the command line.
type Options struct {
	// Command is applied once after the startup redraw, before any
	// transport accepts commands.
	Command string
}

// App owns the services and runs them through boot and shutdown.
type App struct {
	cfg      *config.Config
	opts     Options
	services *Services
	ctx      context.Context
	cancel   context.CancelFunc
}

// New builds the services without starting anything.
func New(cfg *config.Config, opts Options) (*App, error) {
	services, err := NewServices(cfg)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:      cfg,
		opts:     opts,
		services: services,
	}, nil
}

// Start runs the device, boots the strip and then opens the transports.
func (a *App) Start(ctx context.Context) error {
	a.ctx, a.cancel = context.WithCancel(ctx)

	onFatalError := func(err error) {
		log.Error().Err(err).Msg("Fatal error, initiating shutdown")
		a.cancel()
	}

	a.services.StartCore(a.ctx)

	if err := a.boot(); err != nil {
		return fmt.Errorf("boot: %w", err)
	}

	if err := a.services.StartTransports(a.ctx, onFatalError); err != nil {
		return err
	}

	log.Info().
		Str("device", a.cfg.Device.ID).
		Int("pixels", a.cfg.Strip.Pixels).
		Str("sink", a.cfg.Strip.Sink).
		Msg("stripd started")
	return nil
}

// boot draws the startup state, then applies the startup command.
// A failing command is logged; the daemon still comes up.
func (a *App) boot() error {
	var refreshErr error
	err := a.services.Device.Exec(a.ctx, func(context.Context) {
		refreshErr = a.services.Controller.Refresh()
	})
	if err != nil {
		return err
	}
	if refreshErr != nil {
		log.Warn().Err(refreshErr).Msg("Failed to draw startup state")
	}

	if a.opts.Command != "" {
		level, err := a.services.Apply(a.ctx, "cli", a.opts.Command)
		if err != nil {
			log.Error().Err(err).Str("command", a.opts.Command).Msg("Startup command failed")
		} else {
			log.Info().Str("command", a.opts.Command).Int("level", level).Msg("Applied startup command")
		}
	}

	snap, err := a.services.Controller.SnapshotOn(a.ctx, a.services.Device)
	if err != nil {
		return err
	}
	log.Info().
		Int("level", snap.LightLevel).
		Str("color", snap.Color).
		Msg("Strip ready")
	return nil
}

// Stop gracefully shuts down all services.
func (a *App) Stop() error {
	log.Info().Msg("Shutting down...")

	if a.cancel != nil {
		a.cancel()
	}

	if a.services != nil {
		return a.services.Stop()
	}

	return nil
}

// Wait blocks until the application context is cancelled.
func (a *App) Wait() {
	if a.ctx != nil {
		<-a.ctx.Done()
	}
}

// SignalContext creates a context that is cancelled when SIGINT or SIGTERM is received.
func SignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	return ctx
}
