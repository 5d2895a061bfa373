package gatt

import (
	"github.com/cornelk/hashmap"
)

// Registry is the set of centrals that enabled notifications. One entry per peer,
// regardless of how many measurement characteristics it enabled.
type Registry struct {
	peers *hashmap.Map[string, Peer]
}

func NewRegistry() *Registry {
	return &Registry{peers: hashmap.New[string, Peer]()}
}

// Subscribe adds or refreshes peer. It reports whether the peer was not subscribed before.
func (r *Registry) Subscribe(p Peer) bool {
	_, existed := r.peers.Get(p.ID())
	r.peers.Set(p.ID(), p)
	return !existed
}

// Unsubscribe removes the peer with id; removing an absent peer is a no-op.
func (r *Registry) Unsubscribe(id string) bool {
	return r.peers.Del(id)
}

func (r *Registry) IsSubscribed(id string) bool {
	_, ok := r.peers.Get(id)
	return ok
}

// All returns a copy of the current subscribers.
func (r *Registry) All() []Peer {
	out := make([]Peer, 0, r.peers.Len())
	r.peers.Range(func(_ string, p Peer) bool {
		out = append(out, p)
		return true
	})
	return out
}

func (r *Registry) Len() int {
	return r.peers.Len()
}

// Clear removes every subscriber.
func (r *Registry) Clear() {
	var ids []string
	r.peers.Range(func(id string, _ Peer) bool {
		ids = append(ids, id)
		return true
	})
	for _, id := range ids {
		r.peers.Del(id)
	}
}
