package network

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"norse/internal/input"
	"norse/internal/protocol"
)

const (
	// peerTimeout is how long a sender may stay silent before its dedup
	// window is forgotten.
	peerTimeout = 30 * time.Second
	cleanupTick = 10 * time.Second
)

// UDPReceiver listens for input packets from any number of senders and
// pushes the decoded events into a queue.
type UDPReceiver struct {
	addr   string
	queue  *input.Queue
	logger *slog.Logger

	conn *net.UDPConn
	done chan struct{}
	wg   sync.WaitGroup

	mu    sync.Mutex
	peers map[string]*udpPeer

	received   atomic.Uint64
	duplicates atomic.Uint64
}

type udpPeer struct {
	dedup    *seqDedup
	lastSeen time.Time
}

// NewUDPReceiver creates a receiver bound to addr ("host:port", port 0 for
// any) once started.
func NewUDPReceiver(addr string, queue *input.Queue, logger *slog.Logger) *UDPReceiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &UDPReceiver{
		addr:   addr,
		queue:  queue,
		logger: logger.With("component", "udp_receiver"),
		done:   make(chan struct{}),
		peers:  make(map[string]*udpPeer),
	}
}

// Start binds the socket and begins receiving.
func (r *UDPReceiver) Start() error {
	laddr, err := net.ResolveUDPAddr("udp", r.addr)
	if err != nil {
		return fmt.Errorf("udp receiver: resolve %q: %w", r.addr, err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return fmt.Errorf("udp receiver: listen: %w", err)
	}
	r.conn = conn

	// bursts of motion packets arrive faster than one tick
	_ = conn.SetReadBuffer(1 << 20)

	r.logger.Info("Listening", "addr", conn.LocalAddr().String())

	r.wg.Add(2)
	go r.readLoop()
	go r.cleanupLoop()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (r *UDPReceiver) Addr() net.Addr {
	if r.conn == nil {
		return nil
	}
	return r.conn.LocalAddr()
}

// Stats returns the number of accepted events and discarded duplicates.
func (r *UDPReceiver) Stats() (received, duplicates uint64) {
	return r.received.Load(), r.duplicates.Load()
}

// Peers returns the number of senders seen within the peer timeout.
func (r *UDPReceiver) Peers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.peers)
}

func (r *UDPReceiver) readLoop() {
	defer r.wg.Done()
	buf := make([]byte, 64)
	for {
		n, from, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-r.done:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			r.logger.Debug("Read failed", "error", err)
			continue
		}

		pkt, err := protocol.Decode(buf[:n])
		if err != nil {
			r.logger.Debug("Dropping malformed packet", "from", from.String(), "error", err)
			continue
		}
		r.handle(pkt, from)
	}
}

func (r *UDPReceiver) handle(pkt *protocol.Packet, from *net.UDPAddr) {
	key := from.String()

	r.mu.Lock()
	p, ok := r.peers[key]
	if !ok {
		p = &udpPeer{dedup: newSeqDedup()}
		r.peers[key] = p
		r.logger.Info("Sender registered", "from", key)
	}
	p.lastSeen = time.Now()
	dup := !pkt.IsControl() && p.dedup.isDuplicate(pkt.Seq)
	r.mu.Unlock()

	switch pkt.Kind {
	case protocol.PacketRegister:
		ack, _ := protocol.Control(protocol.PacketAck, time.Now().UnixMilli()).MarshalBinary()
		if _, err := r.conn.WriteToUDP(ack, from); err != nil {
			r.logger.Warn("Ack failed", "to", key, "error", err)
		}
		return
	case protocol.PacketHeartbeat, protocol.PacketAck:
		return
	}

	if dup {
		r.duplicates.Add(1)
		return
	}
	ev, ok := pkt.Event()
	if !ok {
		return
	}
	if !r.queue.Push(ev) {
		r.logger.Warn("Event queue full, dropping event", "type", ev.Type)
		return
	}
	r.received.Add(1)
}

func (r *UDPReceiver) cleanupLoop() {
	defer r.wg.Done()
	ticker := time.NewTicker(cleanupTick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.mu.Lock()
			for key, p := range r.peers {
				if time.Since(p.lastSeen) > peerTimeout {
					r.logger.Info("Removing stale sender", "from", key)
					delete(r.peers, key)
				}
			}
			r.mu.Unlock()
		case <-r.done:
			return
		}
	}
}

// Close stops the receiver and waits for its goroutines.
func (r *UDPReceiver) Close() error {
	select {
	case <-r.done:
		return nil
	default:
	}
	close(r.done)
	var err error
	if r.conn != nil {
		err = r.conn.Close()
	}
	r.wg.Wait()
	return err
}
