package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightwire/internal/audio"
	"github.com/dokzlo13/lightwire/internal/config"
)

// App is the main application container that manages all services and their lifecycle.
// It provides dependency injection and enables testable architecture.
type App struct {
	cfg      *config.Config
	services *Services
	ctx      context.Context
	cancel   context.CancelFunc
}

// New creates a new App instance with all services initialized but not started.
func New(cfg *config.Config) (*App, error) {
	services, err := NewServices(cfg)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:      cfg,
		services: services,
	}, nil
}

// Services exposes the service container for one-shot commands.
func (a *App) Services() *Services { return a.services }

// Start builds the sync engine from the inventory and starts the audio
// monitor, the engine and the health server.
// The provided context is used for cancellation.
func (a *App) Start(ctx context.Context, dryRun bool) error {
	a.ctx, a.cancel = context.WithCancel(ctx)

	engine, monitor, err := a.services.BuildEngine(dryRun)
	if err != nil {
		return err
	}

	go func() {
		if err := monitor.Run(a.ctx); err != nil {
			log.Error().Err(err).Msg("Audio monitor stopped, initiating shutdown")
			a.cancel()
		}
	}()

	events := audio.Debounce(a.ctx, monitor.Events(), a.cfg.Audio.DebounceWindow.Duration())

	go func() {
		if err := engine.Run(a.ctx, events); err != nil {
			log.Error().Err(err).Msg("Sync engine stopped, initiating shutdown")
		}
		a.cancel()
	}()

	a.services.Health.Start(a.ctx)

	log.Info().Msg("Lightwire started")
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
