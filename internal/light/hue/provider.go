// Package hue adapts a Philips Hue bridge to the light.Provider contract
// via the huego client.
package hue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/amimof/huego"

	"github.com/dokzlo13/lightwire/internal/light"
)

// Config holds Hue bridge connection settings.
type Config struct {
	Bridge  string
	Token   string
	Timeout time.Duration
}

// Provider talks to one Hue bridge.
type Provider struct {
	bridge  *huego.Bridge
	timeout time.Duration
}

// New creates a Hue provider for the configured bridge.
func New(cfg Config) *Provider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Provider{
		bridge:  huego.New(cfg.Bridge, cfg.Token),
		timeout: timeout,
	}
}

func (p *Provider) Name() string { return "hue" }

type hueLight struct {
	state light.State
}

func (l *hueLight) ID() light.ID         { return l.state.ID }
func (l *hueLight) Label() string        { return l.state.Label }
func (l *hueLight) ProviderName() string { return "hue" }
func (l *hueLight) State() light.State   { return l.state }

// Discover lists all lights known to the bridge. Unreachable lights are
// still returned; their snapshot reflects the bridge's last known state.
func (p *Provider) Discover(ctx context.Context) ([]light.Light, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	bridgeLights, err := p.bridge.GetLightsContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: hue bridge: %v", light.ErrDiscoveryFailed, wrapTimeout(err))
	}

	lights := make([]light.Light, 0, len(bridgeLights))
	for _, bl := range bridgeLights {
		lights = append(lights, &hueLight{state: stateFromBridge(bl)})
	}
	return lights, nil
}

// GetState fetches one light's current state from the bridge.
func (p *Provider) GetState(ctx context.Context, id light.ID) (light.State, error) {
	num, err := parseID(id)
	if err != nil {
		return light.State{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	bl, err := p.bridge.GetLightContext(ctx, num)
	if err != nil {
		if isHueNotFound(err) {
			return light.State{}, light.NotFound(id)
		}
		return light.State{}, fmt.Errorf("hue get state: %w", wrapTimeout(err))
	}
	return stateFromBridge(*bl), nil
}

// SetBrightness pushes a brightness write. The bridge's bri scale is
// 1-254; a zero brightness turns the light off instead.
func (p *Provider) SetBrightness(ctx context.Context, id light.ID, brightness light.Brightness) error {
	num, err := parseID(id)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	state := huego.State{On: brightness.Float() > 0, Bri: toBri(brightness)}
	if _, err := p.bridge.SetLightStateContext(ctx, num, state); err != nil {
		if isHueNotFound(err) {
			return light.NotFound(id)
		}
		return fmt.Errorf("%w: hue: %v", light.ErrSetBrightnessFailed, wrapTimeout(err))
	}
	return nil
}

// SetPower switches one light on or off without touching brightness.
func (p *Provider) SetPower(ctx context.Context, id light.ID, on bool) error {
	num, err := parseID(id)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if _, err := p.bridge.SetLightStateContext(ctx, num, huego.State{On: on}); err != nil {
		if isHueNotFound(err) {
			return light.NotFound(id)
		}
		return fmt.Errorf("hue set power: %w", wrapTimeout(err))
	}
	return nil
}

// HealthCheck verifies the bridge answers its config endpoint.
func (p *Provider) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if _, err := p.bridge.GetConfigContext(ctx); err != nil {
		return fmt.Errorf("hue health check: %w", wrapTimeout(err))
	}
	return nil
}

func stateFromBridge(bl huego.Light) light.State {
	var brightness light.Brightness
	var power bool
	if bl.State != nil {
		brightness = light.NewBrightness(float64(bl.State.Bri) / 254.0)
		power = bl.State.On
	}
	return light.State{
		ID:         light.ID(fmt.Sprintf("hue:%d", bl.ID)),
		Label:      bl.Name,
		Brightness: brightness,
		Power:      power,
	}
}

// toBri converts to the bridge's 1-254 scale, keeping nonzero input
// visible even at the bottom of the range.
func toBri(b light.Brightness) uint8 {
	bri := uint8(b.Float() * 254.0)
	if bri == 0 && b.Float() > 0 {
		bri = 1
	}
	return bri
}

func parseID(id light.ID) (int, error) {
	raw, ok := strings.CutPrefix(string(id), "hue:")
	if !ok {
		return 0, light.NotFound(id)
	}
	num, err := strconv.Atoi(raw)
	if err != nil {
		return 0, light.NotFound(id)
	}
	return num, nil
}

// isHueNotFound matches the bridge's "resource not found" API error.
func isHueNotFound(err error) bool {
	var apiErr *huego.APIError
	return errors.As(err, &apiErr) && apiErr.Type == 3
}

// wrapTimeout folds context deadline errors into the Timeout error kind
// so backoff logic can tell slow from malformed.
func wrapTimeout(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", light.ErrTimeout, err)
	}
	return err
}
