// Package syncer owns the bidirectional brightness/volume loop: one task
// per pairing watching both sides, converting through the pairing's
// curve, and writing the opposite side with echo suppression.
package syncer

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/dokzlo13/lightwire/internal/light"
)

// MuteAction selects what an audio-side mute does to the light.
type MuteAction string

const (
	// MuteIgnore leaves the light alone when the node is muted.
	MuteIgnore MuteAction = "ignore"
	// MuteLightOff forces the light's power off while muted.
	MuteLightOff MuteAction = "light_off"
)

// ParseMuteAction resolves a config string, defaulting to ignore.
func ParseMuteAction(s string) (MuteAction, error) {
	switch s {
	case "", string(MuteIgnore):
		return MuteIgnore, nil
	case string(MuteLightOff):
		return MuteLightOff, nil
	default:
		return "", fmt.Errorf("unknown mute action %q", s)
	}
}

// Pairing binds one light to one virtual audio node. Created at
// discovery/config time and held for the process lifetime.
type Pairing struct {
	// ID correlates one pairing's log lines across goroutines.
	ID       string
	Provider string
	LightID  light.ID
	Label    string
	NodeName string

	// MinBrightness/MaxBrightness clamp the curve output before it is
	// written to the light. A zero MaxBrightness means 1.0.
	MinBrightness float64
	MaxBrightness float64

	MuteAction MuteAction
}

// withDefaults fills the correlation id and the brightness ceiling.
func (p Pairing) withDefaults() Pairing {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.MaxBrightness == 0 {
		p.MaxBrightness = 1.0
	}
	if p.MuteAction == "" {
		p.MuteAction = MuteIgnore
	}
	return p
}

// clampBrightness applies the pairing's min/max window.
func (p Pairing) clampBrightness(b float64) float64 {
	if b < p.MinBrightness {
		return p.MinBrightness
	}
	if b > p.MaxBrightness {
		return p.MaxBrightness
	}
	return b
}

// State is a pairing's position in its watch/propagate cycle.
type State int

const (
	// StateIdle is the initial state before the task starts watching.
	StateIdle State = iota
	// StateWatching means both event sources are being observed.
	StateWatching
	// StatePropagating means a write to one side is in flight.
	StatePropagating
	// StateSuspect means a backend error occurred and the pairing is
	// backing off before retrying.
	StateSuspect
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWatching:
		return "watching"
	case StatePropagating:
		return "propagating"
	case StateSuspect:
		return "suspect"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}
