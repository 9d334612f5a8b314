package network

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"norse/internal/input"
	"norse/internal/protocol"
)

// ErrNoAck is returned by Register when the receiver never answered.
var ErrNoAck = errors.New("udp sender: no ack from receiver")

// UDPSender sends input events to one UDPReceiver.
type UDPSender struct {
	conn   *net.UDPConn
	logger *slog.Logger
	seq    atomic.Uint32
}

// DialUDP connects a sender to the receiver at addr.
func DialUDP(addr string, logger *slog.Logger) (*UDPSender, error) {
	if logger == nil {
		logger = slog.Default()
	}
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("udp sender: resolve %q: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("udp sender: dial: %w", err)
	}
	_ = conn.SetWriteBuffer(1 << 20)
	return &UDPSender{conn: conn, logger: logger.With("component", "udp_sender")}, nil
}

// Register announces the sender and waits for an Ack, trying up to
// attempts times with a 500ms wait each.
func (s *UDPSender) Register(ctx context.Context, attempts int) error {
	buf := make([]byte, 64)
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.write(protocol.Control(protocol.PacketRegister, time.Now().UnixMilli()), 1); err != nil {
			return err
		}

		_ = s.conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		n, err := s.conn.Read(buf)
		if err != nil {
			continue
		}
		resp, err := protocol.Decode(buf[:n])
		if err != nil || resp.Kind != protocol.PacketAck {
			continue
		}
		_ = s.conn.SetReadDeadline(time.Time{})
		s.logger.Info("Receiver acknowledged", "attempt", attempt)
		return nil
	}
	return ErrNoAck
}

// Heartbeat keeps the registration alive.
func (s *UDPSender) Heartbeat() error {
	return s.write(protocol.Control(protocol.PacketHeartbeat, time.Now().UnixMilli()), 1)
}

// Send transmits ev. Button and key transitions are sent several times
// under the same sequence number.
func (s *UDPSender) Send(ev input.InputEvent) error {
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().UnixMilli()
	}
	pkt, ok := protocol.FromEvent(ev, s.seq.Add(1))
	if !ok {
		return fmt.Errorf("udp sender: event type %q has no wire form", ev.Type)
	}
	return s.write(pkt, protocol.Redundancy(pkt.Kind))
}

func (s *UDPSender) write(pkt *protocol.Packet, copies int) error {
	data, err := pkt.MarshalBinary()
	if err != nil {
		return err
	}
	for i := 0; i < copies; i++ {
		if _, err := s.conn.Write(data); err != nil {
			return fmt.Errorf("udp sender: write: %w", err)
		}
	}
	return nil
}

// Close releases the socket.
func (s *UDPSender) Close() error {
	return s.conn.Close()
}
