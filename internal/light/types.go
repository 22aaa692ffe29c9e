// Package light defines the light model and the provider contract that
// every backend implements, plus the registry that aggregates backends.
package light

import "context"

// ID is an opaque, provider-namespaced light identity, e.g. "lifx:d0:73:...".
// It is the sole key callers use to address a light.
type ID string

func (id ID) String() string { return string(id) }

// Brightness is a scalar in [0,1]. Construct it with NewBrightness, which
// clamps out-of-range input; out-of-range is never an error.
type Brightness float64

// NewBrightness clamps value into [0,1].
func NewBrightness(value float64) Brightness {
	if value < 0 {
		value = 0
	}
	if value > 1 {
		value = 1
	}
	return Brightness(value)
}

// Float returns the raw value in [0,1].
func (b Brightness) Float() float64 { return float64(b) }

// AsUint16 converts to the device-native 16-bit scale, truncating.
func (b Brightness) AsUint16() uint16 { return uint16(float64(b) * 65535.0) }

// AsPercent converts to a 0-100 percentage, truncating.
func (b Brightness) AsPercent() uint8 { return uint8(float64(b) * 100.0) }

// State is a point-in-time snapshot of a light. It is stale immediately
// after construction; re-fetch when freshness matters.
type State struct {
	ID         ID
	Label      string
	Brightness Brightness
	Power      bool
}

// Light is the capability set a discovered light exposes. The State it
// carries is the state observed at discovery time.
type Light interface {
	ID() ID
	Label() string
	ProviderName() string
	State() State
}

// Provider is a named backend that owns a family of lights.
type Provider interface {
	Name() string

	// Discover returns all currently reachable lights this backend owns.
	// Zero lights found is success with an empty result, not an error.
	Discover(ctx context.Context) ([]Light, error)

	// GetState fetches the current state of one light.
	GetState(ctx context.Context, id ID) (State, error)

	// SetBrightness pushes a brightness write to one light.
	SetBrightness(ctx context.Context, id ID, brightness Brightness) error

	// HealthCheck reports whether the backend is reachable.
	HealthCheck(ctx context.Context) error
}

// PowerSwitcher is an optional provider capability for switching a
// light's power without touching its brightness.
type PowerSwitcher interface {
	SetPower(ctx context.Context, id ID, on bool) error
}
