package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightwire/internal/audio"
	"github.com/dokzlo13/lightwire/internal/audio/pipewire"
	"github.com/dokzlo13/lightwire/internal/config"
	"github.com/dokzlo13/lightwire/internal/curve"
	"github.com/dokzlo13/lightwire/internal/dropin"
	"github.com/dokzlo13/lightwire/internal/light"
	"github.com/dokzlo13/lightwire/internal/light/hue"
	"github.com/dokzlo13/lightwire/internal/light/lifx"
	"github.com/dokzlo13/lightwire/internal/store"
	"github.com/dokzlo13/lightwire/internal/syncer"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	Store    *store.Store
	Registry *light.Registry

	// High-level services
	Health *HealthService
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	// Initialize inventory database
	inventory, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	s.Store = inventory

	// Initialize provider registry
	s.Registry = light.NewRegistry()
	if cfg.Lifx.Enabled {
		s.Registry.Register(lifx.New(lifx.Config{
			BroadcastAddress: cfg.Lifx.Broadcast,
			Port:             cfg.Lifx.Port,
			DiscoveryTimeout: cfg.Lifx.DiscoveryTimeout.Duration(),
			RequestTimeout:   cfg.Lifx.RequestTimeout.Duration(),
		}))
	}
	if cfg.Hue.Enabled {
		if cfg.Hue.Bridge == "" || cfg.Hue.Token == "" {
			s.Close()
			return nil, fmt.Errorf("hue provider enabled but bridge or token missing")
		}
		s.Registry.Register(hue.New(hue.Config{
			Bridge:  cfg.Hue.Bridge,
			Token:   cfg.Hue.Token,
			Timeout: cfg.Hue.Timeout.Duration(),
		}))
	}
	if s.Registry.Count() == 0 {
		s.Close()
		return nil, fmt.Errorf("no light providers enabled")
	}

	// Initialize health service
	s.Health = NewHealthService(cfg, s.Registry)

	return s, nil
}

// PopulateOptions tunes the populate run.
type PopulateOptions struct {
	// Clean removes previously generated drop-ins before writing.
	Clean bool
	// SetBrightness pushes each node's current volume to its light after
	// the inventory is written.
	SetBrightness bool
	// DryRun logs what would be written without touching anything.
	DryRun bool
}

// Populate discovers lights on every provider, generates one PipeWire
// drop-in per light and records the inventory.
func (s *Services) Populate(ctx context.Context, opts PopulateOptions) error {
	started := time.Now()
	lights := s.Registry.DiscoverAll(ctx)
	if len(lights) == 0 {
		log.Warn().Msg("No lights discovered, nothing to populate")
		return nil
	}

	prefix := s.cfg.Audio.NodePrefix
	dir := s.cfg.Audio.DropinDir

	descriptors := make([]dropin.Descriptor, 0, len(lights))
	for _, l := range lights {
		descriptors = append(descriptors, dropin.Render(l.ProviderName(), l.Label(), l.ID(), prefix))
	}

	if opts.DryRun {
		if opts.Clean {
			names, err := dropin.List(dir, prefix)
			if err != nil {
				return err
			}
			for _, name := range names {
				log.Info().Bool("dry_run", true).Str("file", name).Msg("Would remove drop-in")
			}
		}
		for i, d := range descriptors {
			log.Info().
				Bool("dry_run", true).
				Str("file", d.FileName).
				Str("node", d.NodeName).
				Str("light", string(lights[i].ID())).
				Msg("Would write drop-in")
		}
		return nil
	}

	if opts.Clean {
		if _, err := dropin.Clean(dir, prefix); err != nil {
			return err
		}
	}

	written, err := dropin.WriteAll(dir, descriptors)
	if err != nil {
		return err
	}
	log.Info().Int("lights", len(lights)).Int("written", written).Str("dir", dir).Msg("Drop-ins populated")

	for i, l := range lights {
		state := l.State()
		if err := s.Store.Upsert(store.Record{
			Provider:   l.ProviderName(),
			ID:         l.ID(),
			Label:      l.Label(),
			NodeName:   descriptors[i].NodeName,
			Brightness: state.Brightness.Float(),
			Power:      state.Power,
		}); err != nil {
			return err
		}
	}

	s.pruneStale(started)

	if opts.SetBrightness {
		engine, _, err := s.BuildEngine(false)
		if err != nil {
			return err
		}
		engine.SyncToLightsOnce(ctx)
	}
	return nil
}

// pruneStale drops inventory records that a full refresh starting at
// the given time did not touch: lights that vanished from the network.
func (s *Services) pruneStale(started time.Time) {
	removed, err := s.Store.Forget(started)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to prune stale lights")
		return
	}
	if removed > 0 {
		log.Info().Int64("removed", removed).Msg("Forgot lights no longer seen")
	}
}

// Discover refreshes the inventory from live providers and returns the
// fresh records.
func (s *Services) Discover(ctx context.Context) ([]store.Record, error) {
	started := time.Now()
	lights := s.Registry.DiscoverAll(ctx)
	if len(lights) == 0 {
		// An empty sweep is not evidence the inventory is stale.
		return nil, nil
	}

	records := make([]store.Record, 0, len(lights))
	for _, l := range lights {
		state := l.State()
		rec := store.Record{
			Provider:   l.ProviderName(),
			ID:         l.ID(),
			Label:      l.Label(),
			NodeName:   dropin.NodeName(l.ProviderName(), l.Label(), s.cfg.Audio.NodePrefix),
			Brightness: state.Brightness.Float(),
			Power:      state.Power,
		}
		if err := s.Store.Upsert(rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	s.pruneStale(started)
	return records, nil
}

// BuildEngine assembles the sync engine and its audio monitor from the
// inventory, applying per-light configuration overrides.
func (s *Services) BuildEngine(dryRun bool) (*syncer.Engine, audio.Monitor, error) {
	records, err := s.Store.List()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("light inventory is empty, run populate first")
	}

	pwCfg := pipewire.Config{CallTimeout: s.cfg.Audio.CallTimeout.Duration()}
	engine := syncer.New(s.Registry, syncer.Options{
		PollInterval:   s.cfg.Sync.PollInterval.Duration(),
		CallTimeout:    s.cfg.Sync.CallTimeout.Duration(),
		Tolerance:      s.cfg.Sync.Tolerance,
		RateLimitRPS:   s.cfg.Sync.RateLimitRPS,
		HealthInterval: s.cfg.Sync.HealthInterval.Duration(),
		DryRun:         dryRun,
		Backoff: syncer.BackoffConfig{
			Min:        s.cfg.Sync.MinRetryBackoff.Duration(),
			Max:        s.cfg.Sync.MaxRetryBackoff.Duration(),
			Multiplier: s.cfg.Sync.RetryMultiplier,
		},
	})

	var nodeNames []string
	for _, rec := range records {
		override := s.cfg.Lights[string(rec.ID)]
		if !override.IsEnabled() {
			log.Info().Str("light", string(rec.ID)).Msg("Light disabled in config, skipping")
			continue
		}

		curveName := override.Curve
		if curveName == "" {
			curveName = s.cfg.Curves.Default
		}
		c, err := curve.Resolve(curveName, s.cfg.Curves.Custom)
		if err != nil {
			return nil, nil, fmt.Errorf("light %s: %w", rec.ID, err)
		}

		muteAction, err := syncer.ParseMuteAction(override.MuteAction)
		if err != nil {
			return nil, nil, fmt.Errorf("light %s: %w", rec.ID, err)
		}

		engine.AddPairing(syncer.Pairing{
			Provider:      rec.Provider,
			LightID:       rec.ID,
			Label:         rec.Label,
			NodeName:      rec.NodeName,
			MinBrightness: override.MinBrightness,
			MaxBrightness: override.MaxBrightness,
			MuteAction:    muteAction,
		}, c, pipewire.NewController(rec.NodeName, pwCfg))
		nodeNames = append(nodeNames, rec.NodeName)
	}

	if engine.Pairings() == 0 {
		return nil, nil, fmt.Errorf("every inventoried light is disabled")
	}

	monitor := pipewire.NewPollMonitor(nodeNames, s.cfg.Audio.PollInterval.Duration(), pwCfg)
	return engine, monitor, nil
}

// Stop gracefully stops all services.
func (s *Services) Stop() error {
	s.Close()
	return nil
}

// Close releases all resources.
func (s *Services) Close() {
	if s.Store != nil {
		s.Store.Close()
	}
}
