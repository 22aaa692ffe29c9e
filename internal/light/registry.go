package light

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Registry owns the set of named providers for the process lifetime.
// Registration happens at startup before steady-state operation, so the
// map is read-only once the sync loop is running.
type Registry struct {
	providers map[string]Provider
	order     []string
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider under its own name. Registering a duplicate
// name replaces the previous instance (last write wins).
func (r *Registry) Register(p Provider) {
	name := p.Name()
	if _, exists := r.providers[name]; exists {
		log.Warn().Str("provider", name).Msg("Provider already registered, replacing")
	} else {
		r.order = append(r.order, name)
	}
	r.providers[name] = p
}

// Get returns the provider registered under name, or nil.
func (r *Registry) Get(name string) Provider {
	return r.providers[name]
}

// DiscoverAll fans out discovery to every registered provider. A single
// provider failing contributes nothing but never fails the aggregate;
// order within one provider's contribution is preserved.
func (r *Registry) DiscoverAll(ctx context.Context) []Light {
	var all []Light
	for _, name := range r.order {
		provider := r.providers[name]
		log.Info().Str("provider", name).Msg("Discovering lights")

		lights, err := provider.Discover(ctx)
		if err != nil {
			log.Error().Err(err).Str("provider", name).Msg("Discovery failed")
			continue
		}
		log.Info().Str("provider", name).Int("count", len(lights)).Msg("Discovery finished")
		all = append(all, lights...)
	}
	return all
}

// GetState routes a state read to the named provider.
func (r *Registry) GetState(ctx context.Context, providerName string, id ID) (State, error) {
	provider := r.Get(providerName)
	if provider == nil {
		return State{}, NotConfigured(providerName)
	}
	return provider.GetState(ctx, id)
}

// SetBrightness routes a brightness write to the named provider.
func (r *Registry) SetBrightness(ctx context.Context, providerName string, id ID, brightness Brightness) error {
	provider := r.Get(providerName)
	if provider == nil {
		return NotConfigured(providerName)
	}
	return provider.SetBrightness(ctx, id, brightness)
}

// Names returns the registered provider names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Count returns the number of registered providers.
func (r *Registry) Count() int { return len(r.providers) }
