package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dokzlo13/lightwire/internal/audio"
	"github.com/dokzlo13/lightwire/internal/curve"
	"github.com/dokzlo13/lightwire/internal/light"
)

// Options tunes the engine. Zero values get the documented defaults.
type Options struct {
	// PollInterval is how often each pairing re-queries its light.
	PollInterval time.Duration
	// CallTimeout bounds every provider and audio-node call.
	CallTimeout time.Duration
	// Tolerance is the band within which an observed value counts as an
	// echo of the loop's own prior write.
	Tolerance float64
	// RateLimitRPS budgets provider brightness writes across pairings.
	RateLimitRPS float64
	// HealthInterval is how often provider health checks run; 0 disables.
	HealthInterval time.Duration
	// DryRun logs every prospective write without calling either backend.
	DryRun bool

	Backoff BackoffConfig
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = 1 * time.Second
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = 3 * time.Second
	}
	if o.Tolerance <= 0 {
		o.Tolerance = 0.001
	}
	if o.RateLimitRPS <= 0 {
		o.RateLimitRPS = 10.0
	}
	o.Backoff = o.Backoff.withDefaults()
	return o
}

// Engine runs every pairing's watch/propagate task plus provider health
// checks, all independently cancellable through one context.
type Engine struct {
	registry   *light.Registry
	opts       Options
	dispatcher *Dispatcher
	limiter    *rate.Limiter
	runners    []*runner
}

// New creates an engine over the given provider registry.
func New(registry *light.Registry, opts Options) *Engine {
	opts = opts.withDefaults()
	return &Engine{
		registry:   registry,
		opts:       opts,
		dispatcher: NewDispatcher(),
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimitRPS), 1),
	}
}

// AddPairing registers one light/node pairing. Must be called before Run.
func (e *Engine) AddPairing(p Pairing, c curve.Curve, controller audio.Controller) {
	p = p.withDefaults()
	r := &runner{
		pairing:    p,
		curve:      c,
		controller: controller,
		registry:   e.registry,
		limiter:    e.limiter,
		opts:       e.opts,
		inbox:      e.dispatcher.Subscribe(p.NodeName),
		backoff:    newBackoff(e.opts.Backoff),
		log: log.With().
			Str("pairing", p.ID).
			Str("light", string(p.LightID)).
			Str("node", p.NodeName).
			Str("curve", c.Name()).
			Logger(),
	}
	e.runners = append(e.runners, r)
}

// Pairings returns how many pairings are registered.
func (e *Engine) Pairings() int { return len(e.runners) }

// Run starts the dispatcher pump, one task per pairing and the provider
// health loops, then blocks until ctx is cancelled and every task has
// stopped. Writes are never interrupted mid-flight: a pairing finishes
// or abandons its current call before exiting.
func (e *Engine) Run(ctx context.Context, events <-chan audio.Event) error {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		e.dispatcher.Pump(ctx, events)
	}()

	for _, r := range e.runners {
		wg.Add(1)
		go func(r *runner) {
			defer wg.Done()
			r.run(ctx)
		}(r)
	}

	if e.opts.HealthInterval > 0 {
		for _, name := range e.registry.Names() {
			wg.Add(1)
			go func(name string) {
				defer wg.Done()
				e.healthLoop(ctx, name)
			}(name)
		}
	}

	log.Info().
		Int("pairings", len(e.runners)).
		Bool("dry_run", e.opts.DryRun).
		Msg("Sync engine started")

	wg.Wait()
	log.Info().Msg("Sync engine stopped")
	return nil
}

// SyncToAudioOnce performs a single light-to-audio pass over all
// pairings: read each light, write its volume to the paired node.
func (e *Engine) SyncToAudioOnce(ctx context.Context) {
	for _, r := range e.runners {
		state, err := r.getLightState(ctx)
		if err != nil {
			r.log.Error().Err(err).Msg("Failed to read light state")
			continue
		}
		b := state.Brightness.Float()
		r.lastLightBrightness = &b
		r.propagateToAudio(ctx, b)
	}
}

// SyncToLightsOnce performs a single audio-to-light pass over all
// pairings: read each node's volume, write the light's brightness.
func (e *Engine) SyncToLightsOnce(ctx context.Context) {
	for _, r := range e.runners {
		callCtx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
		volume, err := r.controller.GetVolume(callCtx)
		cancel()
		if err != nil {
			r.log.Error().Err(err).Msg("Failed to read node volume")
			continue
		}
		r.lastObservedVolume = volume.Value
		r.haveObservedVolume = true
		r.muted = volume.Muted
		r.propagateToLight(ctx, volume.Value)
	}
}

// healthLoop probes one provider on an interval, logging transitions
// between healthy and degraded.
func (e *Engine) healthLoop(ctx context.Context, name string) {
	provider := e.registry.Get(name)
	if provider == nil {
		return
	}

	ticker := time.NewTicker(e.opts.HealthInterval)
	defer ticker.Stop()

	healthy := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		callCtx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
		err := provider.HealthCheck(callCtx)
		cancel()

		switch {
		case err != nil && healthy:
			healthy = false
			log.Warn().Err(err).Str("provider", name).Msg("Provider degraded")
		case err == nil && !healthy:
			healthy = true
			log.Info().Str("provider", name).Msg("Provider recovered")
		}
	}
}
