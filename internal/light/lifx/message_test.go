package lifx

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestEncodeMessageHeader(t *testing.T) {
	target := [8]byte{0xd0, 0x73, 0xd5, 0x01, 0x02, 0x03}
	packet := encodeMessage(msgLightGet, 0xdeadbeef, target, false, 7, nil)

	if len(packet) != headerSize {
		t.Fatalf("packet length = %d, want %d", len(packet), headerSize)
	}

	h, payload, err := decodeHeader(packet)
	if err != nil {
		t.Fatal(err)
	}
	if len(payload) != 0 {
		t.Errorf("payload length = %d, want 0", len(payload))
	}
	if h.Size != headerSize {
		t.Errorf("size = %d, want %d", h.Size, headerSize)
	}
	if h.Type != msgLightGet {
		t.Errorf("type = %d, want %d", h.Type, msgLightGet)
	}
	if h.Source != 0xdeadbeef {
		t.Errorf("source = %#x, want 0xdeadbeef", h.Source)
	}
	if h.Sequence != 7 {
		t.Errorf("sequence = %d, want 7", h.Sequence)
	}
	if h.Target != target {
		t.Errorf("target = %v, want %v", h.Target, target)
	}
	// protocol 1024 + addressable bit, tagged clear
	if h.Protocol&0xfff != 1024 {
		t.Errorf("protocol = %d, want 1024", h.Protocol&0xfff)
	}
	if h.Protocol&(1<<12) == 0 {
		t.Error("addressable bit not set")
	}
	if h.Protocol&(1<<13) != 0 {
		t.Error("tagged bit set on unicast message")
	}
}

func TestEncodeMessageTagged(t *testing.T) {
	packet := encodeMessage(msgGetService, 1, [8]byte{}, true, 1, nil)
	h, _, err := decodeHeader(packet)
	if err != nil {
		t.Fatal(err)
	}
	if h.Protocol&(1<<13) == 0 {
		t.Error("tagged bit not set on broadcast message")
	}
}

func TestDecodeHeaderShortPacket(t *testing.T) {
	if _, _, err := decodeHeader(make([]byte, 10)); err == nil {
		t.Error("expected error for short packet")
	}
}

func TestDecodeLightState(t *testing.T) {
	var buf bytes.Buffer
	src := lightState{
		Hue:        1000,
		Saturation: 2000,
		Brightness: 32767,
		Kelvin:     3500,
		Power:      65535,
	}
	copy(src.Label[:], "Desk Lamp")
	binary.Write(&buf, binary.LittleEndian, &src)

	got, err := decodeLightState(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if got.Brightness != 32767 {
		t.Errorf("brightness = %d, want 32767", got.Brightness)
	}
	if got.Power != 65535 {
		t.Errorf("power = %d, want 65535", got.Power)
	}
	if got.label() != "Desk Lamp" {
		t.Errorf("label = %q, want %q", got.label(), "Desk Lamp")
	}
}

func TestSetColorPayloadLayout(t *testing.T) {
	payload := encodeSetColor(setColor{
		Hue:        0x1122,
		Saturation: 0x3344,
		Brightness: 0x5566,
		Kelvin:     0x7788,
		Duration:   0,
	})
	// reserved(1) + hue(2) + sat(2) + bri(2) + kelvin(2) + duration(4)
	if len(payload) != 13 {
		t.Fatalf("payload length = %d, want 13", len(payload))
	}
	if payload[0] != 0 {
		t.Errorf("reserved byte = %d, want 0", payload[0])
	}
	if bri := binary.LittleEndian.Uint16(payload[5:7]); bri != 0x5566 {
		t.Errorf("brightness field = %#x, want 0x5566", bri)
	}
}
