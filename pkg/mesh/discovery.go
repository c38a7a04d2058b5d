package mesh

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PeerInfo is what the discovery table remembers about a neighbour
// heard directly over the acoustic link.
type PeerInfo struct {
	ID           uuid.UUID
	Name         string
	LastSeen     time.Time
	LastSequence uint32
	BeaconCount  int
}

// Discovery is the default DiscoveryCollaborator: an in-memory table of
// directly-heard peers, keyed by device identifier. It owns no timers
// of its own; Sweep must be called periodically (by the engine's
// frame-start hook, say) to age out peers that have gone quiet.
type Discovery struct {
	mu      sync.RWMutex
	peers   map[uuid.UUID]*PeerInfo
	timeout time.Duration
}

// NewDiscovery constructs an empty discovery table. A peer not heard
// from again within timeout is dropped on the next Sweep.
func NewDiscovery(timeout time.Duration) *Discovery {
	return &Discovery{
		peers:   make(map[uuid.UUID]*PeerInfo),
		timeout: timeout,
	}
}

// OnBeacon records or refreshes a peer from a decoded beacon frame. A
// beacon with a stale sequence number (at or behind what's on record)
// still refreshes LastSeen but does not count as a new observation,
// since out-of-order delivery over a lossy acoustic link is routine.
func (d *Discovery) OnBeacon(payload []byte, from uuid.UUID) {
	b, err := DecodeBeaconPayload(payload)
	if err != nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.peers[from]
	if !ok {
		p = &PeerInfo{ID: from}
		d.peers[from] = p
	}
	p.Name = b.Name
	p.LastSeen = time.Now()
	if b.Sequence > p.LastSequence || !ok {
		p.LastSequence = b.Sequence
		p.BeaconCount++
	}
}

// Sweep removes any peer not heard from within timeout of now.
func (d *Discovery) Sweep(now time.Time) {
	if d.timeout <= 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, p := range d.peers {
		if now.Sub(p.LastSeen) > d.timeout {
			delete(d.peers, id)
		}
	}
}

// Peers returns a snapshot of known peers ordered by most recently seen.
func (d *Discovery) Peers() []PeerInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]PeerInfo, 0, len(d.peers))
	for _, p := range d.peers {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastSeen.After(out[j].LastSeen) })
	return out
}

// Has reports whether id is a currently known peer.
func (d *Discovery) Has(id uuid.UUID) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.peers[id]
	return ok
}

// Count reports the number of currently known peers.
func (d *Discovery) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.peers)
}
