package syncer

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightwire/internal/audio"
)

// pairingQueueSize bounds each pairing's inbox; a stalled pairing drops
// events rather than blocking its siblings.
const pairingQueueSize = 16

// Dispatcher fans audio events out to per-pairing channels keyed by node
// name. One consumer per channel keeps echo-suppression state
// single-writer by construction.
type Dispatcher struct {
	inboxes map[string]chan audio.Event
}

// NewDispatcher creates an empty dispatcher. Subscriptions happen at
// startup before Pump runs, so the map needs no locking.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{inboxes: make(map[string]chan audio.Event)}
}

// Subscribe returns the inbox for one node name, creating it if needed.
func (d *Dispatcher) Subscribe(nodeName string) <-chan audio.Event {
	if ch, ok := d.inboxes[nodeName]; ok {
		return ch
	}
	ch := make(chan audio.Event, pairingQueueSize)
	d.inboxes[nodeName] = ch
	return ch
}

// Pump routes events from the monitor feed into pairing inboxes until
// the feed closes or ctx is cancelled. A full inbox drops the event with
// a warning; volume events are absolute, so a later one supersedes it.
func (d *Dispatcher) Pump(ctx context.Context, events <-chan audio.Event) {
	defer func() {
		for _, ch := range d.inboxes {
			close(ch)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			inbox, watched := d.inboxes[ev.NodeName]
			if !watched {
				continue
			}
			select {
			case inbox <- ev:
			default:
				log.Warn().Str("node", ev.NodeName).Msg("Pairing inbox full, dropping volume event")
			}
		}
	}
}
