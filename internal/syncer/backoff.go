package syncer

import "time"

// BackoffConfig shapes the exponential retry delay a Suspect pairing
// waits before re-probing its backend.
type BackoffConfig struct {
	Min        time.Duration
	Max        time.Duration
	Multiplier float64
}

// DefaultBackoffConfig returns the retry defaults.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Min:        1 * time.Second,
		Max:        2 * time.Minute,
		Multiplier: 2.0,
	}
}

func (c BackoffConfig) withDefaults() BackoffConfig {
	def := DefaultBackoffConfig()
	if c.Min <= 0 {
		c.Min = def.Min
	}
	if c.Max <= 0 {
		c.Max = def.Max
	}
	if c.Multiplier <= 1 {
		c.Multiplier = def.Multiplier
	}
	return c
}

// backoff tracks the current delay for one pairing. Not safe for
// concurrent use; each pairing task owns its own.
type backoff struct {
	cfg     BackoffConfig
	current time.Duration
}

func newBackoff(cfg BackoffConfig) *backoff {
	cfg = cfg.withDefaults()
	return &backoff{cfg: cfg, current: cfg.Min}
}

// Next returns the delay to wait now and advances the schedule.
func (b *backoff) Next() time.Duration {
	delay := b.current
	next := time.Duration(float64(b.current) * b.cfg.Multiplier)
	if next > b.cfg.Max {
		next = b.cfg.Max
	}
	b.current = next
	return delay
}

// Reset restores the minimum delay after a successful backend call.
func (b *backoff) Reset() {
	b.current = b.cfg.Min
}
