// Package lifx implements the LIFX LAN protocol provider: UDP broadcast
// discovery plus per-device state reads and brightness writes.
package lifx

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// LIFX LAN protocol message types used here.
const (
	msgGetService    uint16 = 2
	msgStateService  uint16 = 3
	msgLightGet      uint16 = 101
	msgLightSetColor uint16 = 102
	msgLightState    uint16 = 107
	msgSetLightPower uint16 = 117
)

const headerSize = 36

// protocolField packs protocol number 1024 with the addressable bit set.
const protocolField uint16 = 1024 | 1<<12

// header is the 36-byte LIFX packet header. All fields little-endian.
type header struct {
	Size     uint16
	Protocol uint16 // protocol:12, addressable:1, tagged:1, origin:2
	Source   uint32
	Target   [8]byte // 6-byte serial, zero-padded; all-zero means broadcast
	_        [6]byte
	Flags    uint8 // bit0 res_required, bit1 ack_required
	Sequence uint8
	_        uint64
	Type     uint16
	_        uint16
}

// encodeMessage builds a full packet: header plus payload.
func encodeMessage(msgType uint16, source uint32, target [8]byte, tagged bool, sequence uint8, payload []byte) []byte {
	h := header{
		Size:     uint16(headerSize + len(payload)),
		Protocol: protocolField,
		Source:   source,
		Target:   target,
		Flags:    1, // res_required
		Sequence: sequence,
		Type:     msgType,
	}
	if tagged {
		h.Protocol |= 1 << 13
	}

	buf := bytes.NewBuffer(make([]byte, 0, h.Size))
	binary.Write(buf, binary.LittleEndian, &h)
	buf.Write(payload)
	return buf.Bytes()
}

// decodeHeader parses the packet header and returns it with the payload.
func decodeHeader(packet []byte) (header, []byte, error) {
	if len(packet) < headerSize {
		return header{}, nil, fmt.Errorf("packet too short: %d bytes", len(packet))
	}
	var h header
	if err := binary.Read(bytes.NewReader(packet[:headerSize]), binary.LittleEndian, &h); err != nil {
		return header{}, nil, err
	}
	if int(h.Size) > len(packet) {
		return header{}, nil, fmt.Errorf("truncated packet: header says %d, got %d", h.Size, len(packet))
	}
	return h, packet[headerSize:h.Size], nil
}

// stateService is the StateService (3) payload.
type stateService struct {
	Service uint8
	Port    uint32
}

func decodeStateService(payload []byte) (stateService, error) {
	var s stateService
	if err := binary.Read(bytes.NewReader(payload), binary.LittleEndian, &s); err != nil {
		return stateService{}, fmt.Errorf("decode StateService: %w", err)
	}
	return s, nil
}

// lightState is the LightState (107) payload: HSBK plus power and label.
type lightState struct {
	Hue        uint16
	Saturation uint16
	Brightness uint16
	Kelvin     uint16
	_          int16
	Power      uint16
	Label      [32]byte
	_          uint64
}

func decodeLightState(payload []byte) (lightState, error) {
	var s lightState
	if err := binary.Read(bytes.NewReader(payload), binary.LittleEndian, &s); err != nil {
		return lightState{}, fmt.Errorf("decode LightState: %w", err)
	}
	return s, nil
}

func (s lightState) label() string {
	end := bytes.IndexByte(s.Label[:], 0)
	if end < 0 {
		end = len(s.Label)
	}
	return string(s.Label[:end])
}

// setColor is the SetColor (102) payload.
type setColor struct {
	_          uint8
	Hue        uint16
	Saturation uint16
	Brightness uint16
	Kelvin     uint16
	Duration   uint32 // milliseconds
}

func encodeSetColor(c setColor) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, &c)
	return buf.Bytes()
}

// setLightPower is the SetLightPower (117) payload.
type setLightPower struct {
	Level    uint16 // 0 or 65535
	Duration uint32
}

func encodeSetLightPower(p setLightPower) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, &p)
	return buf.Bytes()
}
