package lifx

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/dokzlo13/lightwire/internal/light"
)

// fakeBulb answers GetService, LightGet and SetColor on a loopback UDP
// socket, mimicking a single LIFX device.
type fakeBulb struct {
	t      *testing.T
	conn   net.PacketConn
	serial [8]byte
	label  string

	brightness uint16
	power      uint16
}

func newFakeBulb(t *testing.T, label string, brightness uint16) *fakeBulb {
	t.Helper()
	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	b := &fakeBulb{
		t:          t,
		conn:       conn,
		serial:     [8]byte{0xd0, 0x73, 0xd5, 0xaa, 0xbb, 0xcc},
		label:      label,
		brightness: brightness,
		power:      65535,
	}
	t.Cleanup(func() { conn.Close() })
	go b.serve()
	return b
}

func (b *fakeBulb) addr() *net.UDPAddr {
	return b.conn.LocalAddr().(*net.UDPAddr)
}

func (b *fakeBulb) serve() {
	buf := make([]byte, 1024)
	for {
		n, addr, err := b.conn.ReadFrom(buf)
		if err != nil {
			return
		}
		h, payload, err := decodeHeader(buf[:n])
		if err != nil {
			continue
		}

		switch h.Type {
		case msgGetService:
			var out bytes.Buffer
			binary.Write(&out, binary.LittleEndian, &stateService{Service: 1, Port: uint32(b.addr().Port)})
			reply := encodeMessage(msgStateService, h.Source, b.serial, false, h.Sequence, out.Bytes())
			b.conn.WriteTo(reply, addr)

		case msgLightGet:
			state := lightState{
				Hue:        5000,
				Saturation: 1000,
				Brightness: b.brightness,
				Kelvin:     3500,
				Power:      b.power,
			}
			copy(state.Label[:], b.label)
			var out bytes.Buffer
			binary.Write(&out, binary.LittleEndian, &state)
			reply := encodeMessage(msgLightState, h.Source, b.serial, false, h.Sequence, out.Bytes())
			b.conn.WriteTo(reply, addr)

		case msgLightSetColor:
			var c setColor
			binary.Read(bytes.NewReader(payload), binary.LittleEndian, &c)
			b.brightness = c.Brightness
		}
	}
}

func testProvider(bulb *fakeBulb) *Provider {
	return New(Config{
		BroadcastAddress: "127.0.0.1",
		Port:             bulb.addr().Port,
		DiscoveryTimeout: 300 * time.Millisecond,
		RequestTimeout:   300 * time.Millisecond,
	})
}

func TestDiscoverFindsBulb(t *testing.T) {
	bulb := newFakeBulb(t, "Desk Lamp", 32767)
	p := testProvider(bulb)

	lights, err := p.Discover(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(lights) != 1 {
		t.Fatalf("got %d lights, want 1", len(lights))
	}

	l := lights[0]
	if l.Label() != "Desk Lamp" {
		t.Errorf("label = %q, want %q", l.Label(), "Desk Lamp")
	}
	if l.ID() != "lifx:d073d5aabbcc" {
		t.Errorf("id = %q, want lifx:d073d5aabbcc", l.ID())
	}
	if got := l.State().Brightness.Float(); got < 0.49 || got > 0.51 {
		t.Errorf("brightness = %v, want ~0.5", got)
	}
	if !l.State().Power {
		t.Error("power should be on")
	}
}

func TestDiscoverNoBulbs(t *testing.T) {
	p := New(Config{
		BroadcastAddress: "127.0.0.1",
		Port:             59999, // nothing listening
		DiscoveryTimeout: 150 * time.Millisecond,
	})

	lights, err := p.Discover(context.Background())
	if err != nil {
		t.Fatalf("zero lights must not be an error, got %v", err)
	}
	if len(lights) != 0 {
		t.Errorf("got %d lights, want 0", len(lights))
	}
}

func TestGetStateAfterDiscovery(t *testing.T) {
	bulb := newFakeBulb(t, "Shelf", 65535)
	p := testProvider(bulb)

	lights, err := p.Discover(context.Background())
	if err != nil || len(lights) != 1 {
		t.Fatalf("discover: %v (%d lights)", err, len(lights))
	}

	state, err := p.GetState(context.Background(), lights[0].ID())
	if err != nil {
		t.Fatal(err)
	}
	if state.Brightness.Float() != 1.0 {
		t.Errorf("brightness = %v, want 1.0", state.Brightness.Float())
	}
}

func TestGetStateUnknownID(t *testing.T) {
	p := New(DefaultConfig())

	_, err := p.GetState(context.Background(), light.ID("lifx:000000000000"))
	if !errors.Is(err, light.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestSetBrightness(t *testing.T) {
	bulb := newFakeBulb(t, "Desk", 10000)
	p := testProvider(bulb)

	lights, err := p.Discover(context.Background())
	if err != nil || len(lights) != 1 {
		t.Fatalf("discover: %v (%d lights)", err, len(lights))
	}

	if err := p.SetBrightness(context.Background(), lights[0].ID(), light.NewBrightness(1.0)); err != nil {
		t.Fatal(err)
	}

	// The write lands asynchronously; poll the bulb's view of it.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		state, err := p.GetState(context.Background(), lights[0].ID())
		if err == nil && state.Brightness.Float() > 0.99 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Error("brightness write never observed by bulb")
}

func TestRequestTimeout(t *testing.T) {
	p := New(Config{
		BroadcastAddress: "127.0.0.1",
		Port:             59998,
		RequestTimeout:   100 * time.Millisecond,
	})
	p.remember(light.ID("lifx:dead"), device{
		addr: &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 59998},
	})

	_, err := p.GetState(context.Background(), light.ID("lifx:dead"))
	if !errors.Is(err, light.ErrTimeout) {
		t.Errorf("error = %v, want ErrTimeout", err)
	}
}
