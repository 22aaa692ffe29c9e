// Package audio defines the boundary to the audio-routing graph: volume
// reads/writes on a named node and a feed of externally-caused changes.
// The sync engine only ever sees these interfaces.
package audio

import "context"

// Volume is a scalar in [0,1] plus an independent muted flag. Muting
// does not zero the value; un-muting must not invent a new one.
type Volume struct {
	Value float64
	Muted bool
}

// NewVolume clamps value into [0,1].
func NewVolume(value float64) Volume {
	if value < 0 {
		value = 0
	}
	if value > 1 {
		value = 1
	}
	return Volume{Value: value}
}

// Event is a volume or mute change observed on a node.
type Event struct {
	NodeName string
	Volume   float64
	Muted    bool
}

// Controller reads and writes one node's volume state.
type Controller interface {
	// NodeName returns the name of the node this controller addresses.
	NodeName() string
	GetVolume(ctx context.Context) (Volume, error)
	SetVolume(ctx context.Context, value float64) error
	SetMuted(ctx context.Context, muted bool) error
}

// Monitor emits events for externally-caused volume changes on a set of
// watched nodes. Run blocks until ctx is cancelled.
type Monitor interface {
	Events() <-chan Event
	Run(ctx context.Context) error
}
