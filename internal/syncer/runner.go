package syncer

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/dokzlo13/lightwire/internal/audio"
	"github.com/dokzlo13/lightwire/internal/curve"
	"github.com/dokzlo13/lightwire/internal/light"
)

// runner is one pairing's task. It is the only goroutine that touches
// this pairing's echo-suppression state, so none of it is locked.
type runner struct {
	pairing    Pairing
	curve      curve.Curve
	controller audio.Controller
	registry   *light.Registry
	limiter    *rate.Limiter
	opts       Options
	inbox      <-chan audio.Event
	backoff    *backoff
	log        zerolog.Logger

	state State

	// Last value this pairing itself wrote to each side. An observed
	// value within Tolerance of these is an echo and is dropped.
	lastWrittenBrightness *float64
	lastWrittenVolume     *float64

	// Last brightness observed on the light, to tell change from no-op.
	lastLightBrightness *float64

	// Last genuine numeric volume, restored on un-mute.
	lastObservedVolume float64
	haveObservedVolume bool
	muted              bool
}

// run watches both event sources until ctx is cancelled.
func (r *runner) run(ctx context.Context) {
	r.setState(StateWatching)

	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-r.inbox:
			if !ok {
				return
			}
			r.handleAudioEvent(ctx, ev)
		case <-ticker.C:
			r.pollLight(ctx)
		}
	}
}

// handleAudioEvent processes one audio-side notification.
func (r *runner) handleAudioEvent(ctx context.Context, ev audio.Event) {
	if ev.Muted != r.muted {
		r.muted = ev.Muted
		r.handleMuteToggle(ctx, ev)
		return
	}

	if r.muted {
		// Numeric changes while muted are remembered for un-mute but
		// not propagated.
		r.lastObservedVolume = ev.Volume
		r.haveObservedVolume = true
		return
	}

	if r.isEcho(ev.Volume, r.lastWrittenVolume) {
		r.log.Debug().Float64("volume", ev.Volume).Msg("Dropping echo of own audio write")
		return
	}

	r.lastObservedVolume = ev.Volume
	r.haveObservedVolume = true
	r.propagateToLight(ctx, ev.Volume)
}

// handleMuteToggle applies the pairing's mute policy.
func (r *runner) handleMuteToggle(ctx context.Context, ev audio.Event) {
	if ev.Muted {
		r.log.Info().Str("action", string(r.pairing.MuteAction)).Msg("Node muted")
		if r.pairing.MuteAction == MuteLightOff {
			r.setLightPower(ctx, false)
		}
		return
	}

	// Un-mute restores the previously observed numeric value, never a
	// default.
	restore := ev.Volume
	if r.haveObservedVolume {
		restore = r.lastObservedVolume
	}
	r.log.Info().Float64("volume", restore).Msg("Node unmuted, restoring")
	if r.pairing.MuteAction == MuteLightOff {
		r.setLightPower(ctx, true)
	}
	r.propagateToLight(ctx, restore)
}

// pollLight re-queries the light and propagates genuine changes.
func (r *runner) pollLight(ctx context.Context) {
	state, err := r.getLightState(ctx)
	if err != nil {
		r.suspect(ctx, err)
		return
	}
	r.backoff.Reset()

	b := state.Brightness.Float()

	if r.isEcho(b, r.lastWrittenBrightness) {
		// Our own write reflected back; adopt it as the observed value.
		r.lastLightBrightness = &b
		return
	}
	if r.lastLightBrightness != nil && math.Abs(b-*r.lastLightBrightness) <= r.opts.Tolerance {
		return
	}

	first := r.lastLightBrightness == nil
	r.lastLightBrightness = &b
	if first {
		// Baseline observation; nothing changed yet.
		return
	}
	r.propagateToAudio(ctx, b)
}

// propagateToLight converts a volume through the curve and writes the
// light side. The last-written value is recorded before the write is
// issued so the write's own echo is suppressed.
func (r *runner) propagateToLight(ctx context.Context, volume float64) {
	brightness := r.pairing.clampBrightness(r.curve.Apply(volume))

	r.setState(StatePropagating)
	recorded := brightness
	r.lastWrittenBrightness = &recorded

	if r.opts.DryRun {
		r.log.Info().
			Bool("dry_run", true).
			Float64("volume", volume).
			Float64("brightness", brightness).
			Msg("Would set light brightness")
		r.setState(StateWatching)
		return
	}

	if err := r.limiter.Wait(ctx); err != nil {
		r.setState(StateWatching)
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, r.opts.CallTimeout)
	err := r.registry.SetBrightness(callCtx, r.pairing.Provider, r.pairing.LightID, light.NewBrightness(brightness))
	cancel()
	if err != nil {
		r.suspect(ctx, err)
		return
	}

	r.backoff.Reset()
	r.log.Debug().Float64("volume", volume).Float64("brightness", brightness).Msg("Propagated volume to light")
	r.setState(StateWatching)
}

// propagateToAudio converts a brightness through the curve inverse and
// writes the audio side, recording the value before the call is issued.
func (r *runner) propagateToAudio(ctx context.Context, brightness float64) {
	volume := r.curve.Inverse(brightness)

	r.setState(StatePropagating)
	recorded := volume
	r.lastWrittenVolume = &recorded

	if r.opts.DryRun {
		r.log.Info().
			Bool("dry_run", true).
			Float64("brightness", brightness).
			Float64("volume", volume).
			Msg("Would set node volume")
		r.setState(StateWatching)
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, r.opts.CallTimeout)
	err := r.controller.SetVolume(callCtx, volume)
	cancel()
	if err != nil {
		r.suspect(ctx, err)
		return
	}

	r.backoff.Reset()
	r.log.Debug().Float64("brightness", brightness).Float64("volume", volume).Msg("Propagated light to node")
	r.setState(StateWatching)
}

// setLightPower switches the light on or off for the mute policy, using
// the provider's power capability when it has one and a zero-brightness
// write otherwise.
func (r *runner) setLightPower(ctx context.Context, on bool) {
	if r.opts.DryRun {
		r.log.Info().Bool("dry_run", true).Bool("on", on).Msg("Would set light power")
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, r.opts.CallTimeout)
	defer cancel()

	provider := r.registry.Get(r.pairing.Provider)
	if provider == nil {
		r.suspect(ctx, light.NotConfigured(r.pairing.Provider))
		return
	}
	if switcher, ok := provider.(light.PowerSwitcher); ok {
		if err := switcher.SetPower(callCtx, r.pairing.LightID, on); err != nil {
			r.suspect(ctx, err)
		}
		return
	}

	brightness := 0.0
	if on && r.haveObservedVolume {
		brightness = r.pairing.clampBrightness(r.curve.Apply(r.lastObservedVolume))
	}
	recorded := brightness
	r.lastWrittenBrightness = &recorded
	if err := r.registry.SetBrightness(callCtx, r.pairing.Provider, r.pairing.LightID, light.NewBrightness(brightness)); err != nil {
		r.suspect(ctx, err)
	}
}

// getLightState reads the light with the configured call timeout.
func (r *runner) getLightState(ctx context.Context) (light.State, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.opts.CallTimeout)
	defer cancel()
	return r.registry.GetState(callCtx, r.pairing.Provider, r.pairing.LightID)
}

// suspect parks the pairing for one backoff step after a backend error.
// Only this pairing waits; siblings keep running.
func (r *runner) suspect(ctx context.Context, err error) {
	r.setState(StateSuspect)

	delay := r.backoff.Next()
	kind := "error"
	if errors.Is(err, light.ErrTimeout) {
		kind = "timeout"
	}
	r.log.Warn().Err(err).Str("kind", kind).Dur("backoff", delay).Msg("Backend call failed, backing off")

	select {
	case <-ctx.Done():
		return
	case <-time.After(delay):
	}
	r.setState(StateWatching)
}

// isEcho reports whether observed matches the loop's own last write to
// that side, within tolerance.
func (r *runner) isEcho(observed float64, lastWritten *float64) bool {
	return lastWritten != nil && math.Abs(observed-*lastWritten) <= r.opts.Tolerance
}

func (r *runner) setState(s State) {
	if r.state == s {
		return
	}
	r.log.Debug().Stringer("from", r.state).Stringer("to", s).Msg("Pairing state change")
	r.state = s
}
