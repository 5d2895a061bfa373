package goble

import (
	"sync"

	"github.com/go-ble/ble"

	"github.com/srg/cscbridge/internal/profile"
)

// connPeer is one connected central. go-ble hands out a notifier per subscribed
// characteristic, so the peer keeps them keyed by characteristic UUID.
type connPeer struct {
	id string

	mu        sync.Mutex
	notifiers map[string]ble.Notifier
}

func newConnPeer(id string) *connPeer {
	return &connPeer{id: id, notifiers: make(map[string]ble.Notifier)}
}

func (p *connPeer) ID() string {
	return p.id
}

// Notify writes data through the notifier of characteristic. Characteristics the
// central did not enable are skipped.
func (p *connPeer) Notify(characteristic ble.UUID, data []byte) error {
	p.mu.Lock()
	n, ok := p.notifiers[profile.Key(characteristic)]
	p.mu.Unlock()
	if !ok {
		return nil
	}
	_, err := n.Write(data)
	return err
}

// attach registers n and reports whether it is the first notifier of the peer.
func (p *connPeer) attach(characteristic ble.UUID, n ble.Notifier) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	first := len(p.notifiers) == 0
	p.notifiers[profile.Key(characteristic)] = n
	return first
}

// detach removes the notifier and reports whether none is left.
func (p *connPeer) detach(characteristic ble.UUID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.notifiers, profile.Key(characteristic))
	return len(p.notifiers) == 0
}

// requestPeer identifies the central of a read request; it has no notifiers.
type requestPeer string

func (p requestPeer) ID() string                    { return string(p) }
func (p requestPeer) Notify(ble.UUID, []byte) error { return nil }
