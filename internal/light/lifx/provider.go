package lifx

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightwire/internal/light"
)

// Config holds LIFX provider connection parameters.
type Config struct {
	BroadcastAddress string
	Port             int
	DiscoveryTimeout time.Duration
	RequestTimeout   time.Duration
}

// DefaultConfig returns the standard LIFX LAN settings.
func DefaultConfig() Config {
	return Config{
		BroadcastAddress: "255.255.255.255",
		Port:             56700,
		DiscoveryTimeout: 5 * time.Second,
		RequestTimeout:   2 * time.Second,
	}
}

// device is a light seen during discovery, kept so unicast requests can
// be routed without re-broadcasting.
type device struct {
	serial [8]byte
	addr   *net.UDPAddr
}

// Provider speaks the LIFX LAN protocol over UDP broadcast and unicast.
type Provider struct {
	cfg    Config
	source uint32

	mu       sync.Mutex
	sequence uint8
	devices  map[light.ID]device
}

// New creates a LIFX provider. Zero-valued config fields fall back to
// the LAN protocol defaults.
func New(cfg Config) *Provider {
	def := DefaultConfig()
	if cfg.BroadcastAddress == "" {
		cfg.BroadcastAddress = def.BroadcastAddress
	}
	if cfg.Port == 0 {
		cfg.Port = def.Port
	}
	if cfg.DiscoveryTimeout == 0 {
		cfg.DiscoveryTimeout = def.DiscoveryTimeout
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	return &Provider{
		cfg:     cfg,
		source:  rand.Uint32(),
		devices: make(map[light.ID]device),
	}
}

func (p *Provider) Name() string { return "lifx" }

// lifxLight is a discovered bulb snapshot.
type lifxLight struct {
	state light.State
}

func (l *lifxLight) ID() light.ID         { return l.state.ID }
func (l *lifxLight) Label() string        { return l.state.Label }
func (l *lifxLight) ProviderName() string { return "lifx" }
func (l *lifxLight) State() light.State   { return l.state }

// Discover broadcasts GetService and queries every responder for its
// light state. Zero responders is success with an empty result.
func (p *Provider) Discover(ctx context.Context) ([]light.Light, error) {
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", light.ErrDiscoveryFailed, err)
	}
	defer conn.Close()

	broadcast := &net.UDPAddr{IP: net.ParseIP(p.cfg.BroadcastAddress), Port: p.cfg.Port}
	if broadcast.IP == nil {
		return nil, fmt.Errorf("%w: bad broadcast address %q", light.ErrDiscoveryFailed, p.cfg.BroadcastAddress)
	}

	packet := encodeMessage(msgGetService, p.source, [8]byte{}, true, p.nextSequence(), nil)
	if _, err := conn.WriteTo(packet, broadcast); err != nil {
		return nil, fmt.Errorf("%w: broadcast: %v", light.ErrDiscoveryFailed, err)
	}

	deadline := time.Now().Add(p.cfg.DiscoveryTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	conn.SetReadDeadline(deadline)

	responders := p.collectResponders(conn)

	var lights []light.Light
	for _, dev := range responders {
		state, err := p.queryState(ctx, dev)
		if err != nil {
			log.Warn().Err(err).Str("addr", dev.addr.String()).Msg("LIFX light did not answer state query")
			continue
		}
		p.remember(state.ID, dev)
		lights = append(lights, &lifxLight{state: state})
	}
	return lights, nil
}

// collectResponders reads StateService replies until the deadline.
func (p *Provider) collectResponders(conn net.PacketConn) []device {
	var responders []device
	seen := make(map[[8]byte]bool)
	buf := make([]byte, 1024)

	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			// Deadline reached ends collection; anything collected stands.
			return responders
		}
		h, payload, err := decodeHeader(buf[:n])
		if err != nil || h.Type != msgStateService || h.Source != p.source {
			continue
		}
		svc, err := decodeStateService(payload)
		if err != nil || svc.Service != 1 { // service 1 = UDP
			continue
		}
		if seen[h.Target] {
			continue
		}
		seen[h.Target] = true

		udpAddr := addr.(*net.UDPAddr)
		responders = append(responders, device{
			serial: h.Target,
			addr:   &net.UDPAddr{IP: udpAddr.IP, Port: int(svc.Port)},
		})
	}
}

// GetState fetches the current state of one previously discovered light.
func (p *Provider) GetState(ctx context.Context, id light.ID) (light.State, error) {
	dev, ok := p.lookup(id)
	if !ok {
		return light.State{}, light.NotFound(id)
	}
	return p.queryState(ctx, dev)
}

// SetBrightness reads the light's current HSBK and rewrites it with the
// new brightness, preserving hue, saturation and color temperature.
func (p *Provider) SetBrightness(ctx context.Context, id light.ID, brightness light.Brightness) error {
	dev, ok := p.lookup(id)
	if !ok {
		return light.NotFound(id)
	}

	raw, err := p.request(ctx, dev, msgLightGet, nil, msgLightState)
	if err != nil {
		return fmt.Errorf("%w: read before write: %v", light.ErrSetBrightnessFailed, err)
	}
	current, err := decodeLightState(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", light.ErrProtocol, err)
	}

	payload := encodeSetColor(setColor{
		Hue:        current.Hue,
		Saturation: current.Saturation,
		Brightness: brightness.AsUint16(),
		Kelvin:     current.Kelvin,
		Duration:   0,
	})
	if err := p.send(dev, msgLightSetColor, payload); err != nil {
		return fmt.Errorf("%w: %v", light.ErrSetBrightnessFailed, err)
	}
	return nil
}

// SetPower switches one light on or off.
func (p *Provider) SetPower(ctx context.Context, id light.ID, on bool) error {
	dev, ok := p.lookup(id)
	if !ok {
		return light.NotFound(id)
	}
	var level uint16
	if on {
		level = 65535
	}
	if err := p.send(dev, msgSetLightPower, encodeSetLightPower(setLightPower{Level: level})); err != nil {
		return fmt.Errorf("%w: %v", light.ErrSetBrightnessFailed, err)
	}
	return nil
}

// HealthCheck probes the broadcast socket path without requiring a bulb
// to answer.
func (p *Provider) HealthCheck(ctx context.Context) error {
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return fmt.Errorf("lifx health check: %w", err)
	}
	return conn.Close()
}

// queryState sends LightGet to a device and decodes its LightState reply.
func (p *Provider) queryState(ctx context.Context, dev device) (light.State, error) {
	raw, err := p.request(ctx, dev, msgLightGet, nil, msgLightState)
	if err != nil {
		return light.State{}, err
	}
	s, err := decodeLightState(raw)
	if err != nil {
		return light.State{}, fmt.Errorf("%w: %v", light.ErrProtocol, err)
	}
	return light.State{
		ID:         idForSerial(dev.serial),
		Label:      s.label(),
		Brightness: light.NewBrightness(float64(s.Brightness) / 65535.0),
		Power:      s.Power > 0,
	}, nil
}

// request performs one unicast request/response exchange.
func (p *Provider) request(ctx context.Context, dev device, msgType uint16, payload []byte, wantType uint16) ([]byte, error) {
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return nil, fmt.Errorf("%w: lifx socket: %v", light.ErrNetwork, err)
	}
	defer conn.Close()

	seq := p.nextSequence()
	packet := encodeMessage(msgType, p.source, dev.serial, false, seq, payload)
	if _, err := conn.WriteTo(packet, dev.addr); err != nil {
		return nil, fmt.Errorf("%w: lifx send: %v", light.ErrNetwork, err)
	}

	deadline := time.Now().Add(p.cfg.RequestTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	conn.SetReadDeadline(deadline)

	buf := make([]byte, 1024)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return nil, fmt.Errorf("%w: no reply from %s", light.ErrTimeout, dev.addr)
			}
			return nil, fmt.Errorf("%w: lifx receive: %v", light.ErrNetwork, err)
		}
		h, body, err := decodeHeader(buf[:n])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", light.ErrProtocol, err)
		}
		if h.Source != p.source || h.Sequence != seq || h.Type != wantType {
			continue
		}
		return body, nil
	}
}

// send fires a single packet without waiting for a reply.
func (p *Provider) send(dev device, msgType uint16, payload []byte) error {
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return fmt.Errorf("%w: lifx socket: %v", light.ErrNetwork, err)
	}
	defer conn.Close()

	packet := encodeMessage(msgType, p.source, dev.serial, false, p.nextSequence(), payload)
	if _, err := conn.WriteTo(packet, dev.addr); err != nil {
		return fmt.Errorf("%w: lifx send: %v", light.ErrNetwork, err)
	}
	return nil
}

func (p *Provider) nextSequence() uint8 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sequence++
	return p.sequence
}

func (p *Provider) remember(id light.ID, dev device) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.devices[id] = dev
}

func (p *Provider) lookup(id light.ID) (device, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	dev, ok := p.devices[id]
	return dev, ok
}

// idForSerial derives the provider-namespaced id from the 6-byte serial.
func idForSerial(serial [8]byte) light.ID {
	return light.ID("lifx:" + strings.ToLower(hex.EncodeToString(serial[:6])))
}
