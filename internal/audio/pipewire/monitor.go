package pipewire

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightwire/internal/audio"
)

// DefaultPollInterval is used when the monitor is created without one.
const DefaultPollInterval = 250 * time.Millisecond

// PollMonitor watches a set of node names by dumping the graph on an
// interval and diffing against the previously observed state. Only
// changes are emitted, so a quiet graph produces no events.
type PollMonitor struct {
	nodeNames map[string]bool
	interval  time.Duration
	timeout   time.Duration
	events    chan audio.Event
	last      map[string]audio.Volume
}

// NewPollMonitor creates a monitor for the given node names.
func NewPollMonitor(nodeNames []string, interval time.Duration, cfg Config) *PollMonitor {
	if interval == 0 {
		interval = DefaultPollInterval
	}
	timeout := cfg.CallTimeout
	if timeout == 0 {
		timeout = DefaultCallTimeout
	}
	watched := make(map[string]bool, len(nodeNames))
	for _, name := range nodeNames {
		watched[name] = true
	}
	return &PollMonitor{
		nodeNames: watched,
		interval:  interval,
		timeout:   timeout,
		events:    make(chan audio.Event, 64),
		last:      make(map[string]audio.Volume),
	}
}

func (m *PollMonitor) Events() <-chan audio.Event { return m.events }

// Run polls until ctx is cancelled. Dump failures are logged and retried
// on the next tick rather than ending the monitor.
func (m *PollMonitor) Run(ctx context.Context) error {
	defer close(m.events)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

func (m *PollMonitor) poll(ctx context.Context) {
	nodes, err := dump(ctx, m.timeout)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn().Err(err).Msg("PipeWire poll failed")
		}
		return
	}

	for _, node := range nodes {
		if !m.nodeNames[node.name] {
			continue
		}
		current := audio.Volume{Value: node.volume, Muted: node.muted}
		previous, seen := m.last[node.name]
		m.last[node.name] = current
		if !seen {
			// First observation is the baseline, not a change. Startup
			// seeding is an explicit one-shot pass, never a poll artifact.
			continue
		}
		if previous == current {
			continue
		}

		select {
		case m.events <- audio.Event{NodeName: node.name, Volume: current.Value, Muted: current.Muted}:
		default:
			log.Warn().Str("node", node.name).Msg("Audio event buffer full, dropping event")
		}
	}
}
