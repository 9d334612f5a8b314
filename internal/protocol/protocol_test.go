package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"norse/internal/input"
)

func TestPacketWireSizes(t *testing.T) {
	tests := []struct {
		name string
		pkt  Packet
		size int
	}{
		{"move", Packet{Kind: PacketMouseMove}, 21},
		{"button", Packet{Kind: PacketMouseButton}, 15},
		{"scroll", Packet{Kind: PacketMouseScroll}, 18},
		{"key", Packet{Kind: PacketKey}, 18},
		{"register", Packet{Kind: PacketRegister}, 13},
		{"ack", Packet{Kind: PacketAck}, 13},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.pkt.MarshalBinary()
			require.NoError(t, err)
			assert.Len(t, data, tt.size)
		})
	}
}

func TestPacketHeaderLayout(t *testing.T) {
	p := &Packet{Kind: PacketMouseMove, Seq: 0x01020304, Timestamp: 1, DeltaX: -1, DeltaY: 2}
	data, err := p.MarshalBinary()
	require.NoError(t, err)

	assert.Equal(t, []byte{0x01, 0x01, 0x02, 0x03, 0x04}, data[:5])
	assert.Equal(t, byte(1), data[12])
	assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xff}, data[13:17], "negative delta is two's complement")
}

func TestEventsSurviveTheWire(t *testing.T) {
	events := []input.InputEvent{
		input.MouseMove(-7, 12),
		input.MouseButton(input.ButtonX1, true),
		input.MouseWheel(-120, false),
		input.MouseWheel(240, true),
		input.Key(0x41, true, 0x0003),
	}
	for i, ev := range events {
		ev.Timestamp = int64(1000 + i)
		t.Run(string(ev.Type), func(t *testing.T) {
			pkt, ok := FromEvent(ev, uint32(i+1))
			require.True(t, ok)
			data, err := pkt.MarshalBinary()
			require.NoError(t, err)

			got, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, uint32(i+1), got.Seq)

			back, ok := got.Event()
			require.True(t, ok)
			assert.Equal(t, ev, back)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode([]byte{0x01, 0, 0})
	assert.ErrorIs(t, err, ErrShortPacket)

	header := make([]byte, HeaderSize)
	header[0] = PacketMouseMove
	_, err = Decode(header)
	assert.ErrorIs(t, err, ErrShortPacket, "move without payload")

	header[0] = 0x7f
	_, err = Decode(header)
	assert.ErrorIs(t, err, ErrUnknownPacket)
}

func TestControlPackets(t *testing.T) {
	p := Control(PacketHeartbeat, 99)
	assert.True(t, p.IsControl())
	_, ok := p.Event()
	assert.False(t, ok)

	_, ok = FromEvent(input.InputEvent{Type: "gamepad"}, 1)
	assert.False(t, ok)
}

func TestRedundancy(t *testing.T) {
	assert.Equal(t, 1, Redundancy(PacketMouseMove))
	assert.Equal(t, 2, Redundancy(PacketMouseScroll))
	assert.Equal(t, 3, Redundancy(PacketMouseButton))
	assert.Equal(t, 3, Redundancy(PacketKey))
}

func TestMessageEnvelope(t *testing.T) {
	msg, err := NewMessage(TypeEvents, EventsPayload{Events: []input.InputEvent{input.MouseMove(1, 2)}})
	require.NoError(t, err)
	assert.Equal(t, TypeEvents, msg.Type)

	var payload EventsPayload
	require.NoError(t, msg.Decode(&payload))
	require.Len(t, payload.Events, 1)
	assert.Equal(t, 1, payload.Events[0].DeltaX)

	ping, err := NewMessage(TypePing, nil)
	require.NoError(t, err)
	assert.Error(t, ping.Decode(&payload))
}
