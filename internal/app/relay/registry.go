package relay

import (
	"cmp"
	"slices"
	"sync"

	"github.com/samber/lo"

	"plaza/internal/app/resident"
)

// Peer is the registry's view of a live connection.
type Peer interface {
	// Resident returns the identity the connection authenticated as.
	Resident() resident.Resident

	// Deliver enqueues an encoded frame without blocking.
	// It returns false when the connection is no longer open or cannot keep up.
	Deliver(frame []byte) bool

	// Kick closes the connection with a WebSocket close code and reason.
	Kick(code int, reason string)
}

// Registry maps each online resident to its single live connection.
// It is the only source of truth for who is online. Its lock is held for map operations only.
type Registry struct {
	// mu protects peers.
	mu sync.RWMutex

	peers map[int64]Peer
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		peers: make(map[int64]Peer),
	}
}

// Register stores peer under its resident id and returns the peer it replaced, if any.
// The caller decides what to do with the replaced peer.
func (r *Registry) Register(peer Peer) Peer {
	id := peer.Resident().ID

	r.mu.Lock()
	previous := r.peers[id]
	r.peers[id] = peer
	r.mu.Unlock()

	if previous == peer {
		return nil
	}
	return previous
}

// Unregister removes the entry for id only if it still points at peer, so a late disconnect
// of a replaced connection cannot remove its successor. It reports whether an entry was removed.
func (r *Registry) Unregister(id int64, peer Peer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.peers[id]
	if !ok || current != peer {
		return false
	}

	delete(r.peers, id)
	return true
}

// Get returns the live peer of a resident.
func (r *Registry) Get(id int64) (Peer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	peer, ok := r.peers[id]
	return peer, ok
}

// Peers returns a point-in-time copy of all registered peers.
func (r *Registry) Peers() []Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Values(r.peers)
}

// Snapshot returns the residents online at the time of the call, ordered by id.
func (r *Registry) Snapshot() []resident.Resident {
	residents := lo.Map(r.Peers(), func(p Peer, _ int) resident.Resident {
		return p.Resident()
	})

	slices.SortFunc(residents, func(a, b resident.Resident) int {
		return cmp.Compare(a.ID, b.ID)
	})

	return residents
}

// Len returns the number of online residents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.peers)
}

// onlineResidentsEvent builds an online_residents event from the current registry contents.
func onlineResidentsEvent(r *Registry) Event {
	residents := r.Snapshot()

	return NewEvent(TypeOnlineResidents, OnlineResidentsPayload{
		Residents: residents,
		Count:     len(residents),
	})
}
