// Package protocol defines the wire formats used to carry input events
// between processes: a compact binary datagram for UDP and JSON messages for
// WebSocket peers.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"

	"norse/internal/input"
)

// Packet kinds
const (
	PacketMouseMove   uint8 = 0x01
	PacketMouseButton uint8 = 0x02
	PacketMouseScroll uint8 = 0x03
	PacketKey         uint8 = 0x04
	PacketRegister    uint8 = 0x10
	PacketHeartbeat   uint8 = 0x11
	PacketAck         uint8 = 0x12 // receiver -> sender: registration accepted
)

// HeaderSize is kind(1) + seq(4) + timestamp(8).
const HeaderSize = 13

// Scroll axes
const (
	AxisVertical   uint8 = 0
	AxisHorizontal uint8 = 1
)

var (
	// ErrShortPacket is returned when a datagram is smaller than its kind needs
	ErrShortPacket = errors.New("protocol: packet too short")

	// ErrUnknownPacket is returned for an unrecognized kind byte
	ErrUnknownPacket = errors.New("protocol: unknown packet kind")
)

// payloadSize is the body length following the header, per kind.
var payloadSize = map[uint8]int{
	PacketMouseMove:   8, // dx(4) dy(4)
	PacketMouseButton: 2, // button(1) pressed(1)
	PacketMouseScroll: 5, // delta(4) axis(1)
	PacketKey:         5, // code(2) pressed(1) mods(2)
	PacketRegister:    0,
	PacketHeartbeat:   0,
	PacketAck:         0,
}

// Packet is one decoded datagram. All integers are big-endian on the wire.
type Packet struct {
	Kind      uint8
	Seq       uint32
	Timestamp int64

	DeltaX, DeltaY int32
	Button         uint8
	Pressed        bool
	Wheel          int32
	Axis           uint8
	KeyCode        uint16
	Modifiers      uint16
}

// IsControl reports whether the packet carries no input event.
func (p *Packet) IsControl() bool {
	switch p.Kind {
	case PacketRegister, PacketHeartbeat, PacketAck:
		return true
	}
	return false
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p *Packet) MarshalBinary() ([]byte, error) {
	n, ok := payloadSize[p.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownPacket, p.Kind)
	}

	buf := make([]byte, HeaderSize+n)
	buf[0] = p.Kind
	binary.BigEndian.PutUint32(buf[1:5], p.Seq)
	binary.BigEndian.PutUint64(buf[5:13], uint64(p.Timestamp))

	body := buf[HeaderSize:]
	switch p.Kind {
	case PacketMouseMove:
		binary.BigEndian.PutUint32(body[0:4], uint32(p.DeltaX))
		binary.BigEndian.PutUint32(body[4:8], uint32(p.DeltaY))
	case PacketMouseButton:
		body[0] = p.Button
		body[1] = boolByte(p.Pressed)
	case PacketMouseScroll:
		binary.BigEndian.PutUint32(body[0:4], uint32(p.Wheel))
		body[4] = p.Axis
	case PacketKey:
		binary.BigEndian.PutUint16(body[0:2], p.KeyCode)
		body[2] = boolByte(p.Pressed)
		binary.BigEndian.PutUint16(body[3:5], p.Modifiers)
	}
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. Trailing bytes are
// ignored.
func (p *Packet) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return ErrShortPacket
	}
	kind := data[0]
	n, ok := payloadSize[kind]
	if !ok {
		return fmt.Errorf("%w: 0x%02x", ErrUnknownPacket, kind)
	}
	body := data[HeaderSize:]
	if len(body) < n {
		return fmt.Errorf("%w: kind 0x%02x wants %d payload bytes, got %d", ErrShortPacket, kind, n, len(body))
	}

	*p = Packet{
		Kind:      kind,
		Seq:       binary.BigEndian.Uint32(data[1:5]),
		Timestamp: int64(binary.BigEndian.Uint64(data[5:13])),
	}
	switch kind {
	case PacketMouseMove:
		p.DeltaX = int32(binary.BigEndian.Uint32(body[0:4]))
		p.DeltaY = int32(binary.BigEndian.Uint32(body[4:8]))
	case PacketMouseButton:
		p.Button = body[0]
		p.Pressed = body[1] == 1
	case PacketMouseScroll:
		p.Wheel = int32(binary.BigEndian.Uint32(body[0:4]))
		p.Axis = body[4]
	case PacketKey:
		p.KeyCode = binary.BigEndian.Uint16(body[0:2])
		p.Pressed = body[2] == 1
		p.Modifiers = binary.BigEndian.Uint16(body[3:5])
	}
	return nil
}

// Decode parses one datagram.
func Decode(data []byte) (*Packet, error) {
	p := &Packet{}
	if err := p.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return p, nil
}

// Control builds a header-only packet.
func Control(kind uint8, timestamp int64) *Packet {
	return &Packet{Kind: kind, Timestamp: timestamp}
}

// FromEvent converts an input event to a packet. It returns false for event
// types the wire format does not carry.
func FromEvent(ev input.InputEvent, seq uint32) (*Packet, bool) {
	p := &Packet{Seq: seq, Timestamp: ev.Timestamp}
	switch ev.Type {
	case input.EventMouseMove:
		p.Kind = PacketMouseMove
		p.DeltaX = int32(ev.DeltaX)
		p.DeltaY = int32(ev.DeltaY)
	case input.EventMouseButton:
		p.Kind = PacketMouseButton
		p.Button = uint8(ev.Button)
		p.Pressed = ev.Pressed
	case input.EventMouseWheel, input.EventMouseWheelH:
		p.Kind = PacketMouseScroll
		p.Wheel = int32(ev.WheelDelta)
		if ev.Type == input.EventMouseWheelH {
			p.Axis = AxisHorizontal
		}
	case input.EventKey:
		p.Kind = PacketKey
		p.KeyCode = ev.KeyCode
		p.Pressed = ev.Pressed
		p.Modifiers = ev.Modifiers
	default:
		return nil, false
	}
	return p, true
}

// Event converts an input packet back to an event. Control packets report
// false.
func (p *Packet) Event() (input.InputEvent, bool) {
	var ev input.InputEvent
	switch p.Kind {
	case PacketMouseMove:
		ev = input.MouseMove(int(p.DeltaX), int(p.DeltaY))
	case PacketMouseButton:
		ev = input.MouseButton(int(p.Button), p.Pressed)
	case PacketMouseScroll:
		ev = input.MouseWheel(int(p.Wheel), p.Axis == AxisHorizontal)
	case PacketKey:
		ev = input.Key(p.KeyCode, p.Pressed, p.Modifiers)
	default:
		return input.InputEvent{}, false
	}
	ev.Timestamp = p.Timestamp
	return ev, true
}

// Redundancy is how many copies of a packet a sender emits. State
// transitions are repeated since UDP may drop them; receivers discard the
// copies by sequence number.
func Redundancy(kind uint8) int {
	switch kind {
	case PacketMouseButton, PacketKey:
		return 3
	case PacketMouseScroll:
		return 2
	default:
		return 1
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
