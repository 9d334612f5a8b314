// Package network feeds input events received from other processes into an
// input.Queue: binary datagrams over UDP and JSON batches over WebSocket.
package network

// seqDedup remembers the last len(ring) sequence numbers of one sender so
// redundant copies of a packet are dropped. Sequence 0 is never issued.
type seqDedup struct {
	ring [512]uint32
	pos  int
	seen map[uint32]struct{}
}

func newSeqDedup() *seqDedup {
	return &seqDedup{seen: make(map[uint32]struct{}, 512)}
}

func (d *seqDedup) isDuplicate(seq uint32) bool {
	if _, ok := d.seen[seq]; ok {
		return true
	}
	if old := d.ring[d.pos]; old != 0 {
		delete(d.seen, old)
	}
	d.ring[d.pos] = seq
	d.seen[seq] = struct{}{}
	d.pos = (d.pos + 1) % len(d.ring)
	return false
}
