// Package events carries the display-facing stream of bridge activity: channel state
// changes, new sensor values, subscriber changes and profile publications.
package events

import (
	"sync"
	"time"

	"github.com/srg/cscbridge/internal/profile"
	"github.com/srg/cscbridge/internal/sensor"
)

// Kind is the type of an Event.
type Kind string

const (
	StateChanged      Kind = "state_changed"
	ValueUpdated      Kind = "value_updated"
	SubscriberChanged Kind = "subscriber_changed"
	ProfilePublished  Kind = "profile_published"
)

// Event is one entry of the display stream. Only the fields relevant to Kind are set.
type Event struct {
	Kind       Kind            `json:"kind"`
	Time       time.Time       `json:"time"`
	Channel    string          `json:"channel,omitempty"`
	State      string          `json:"state,omitempty"`
	Reading    *sensor.Reading `json:"reading,omitempty"`
	Peer       string          `json:"peer,omitempty"`
	Subscribed bool            `json:"subscribed,omitempty"`
	Profile    string          `json:"profile,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// DefaultBusCapacity is the number of undelivered events kept before the oldest is dropped.
const DefaultBusCapacity = 256

// Bus fans bridge activity into a single overwrite-oldest stream. Its On* methods are
// safe to call from any goroutine and never block.
type Bus struct {
	ring *RingChannel[Event]
	now  func() time.Time

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultBusCapacity
	}
	return &Bus{ring: NewRingChannel[Event](capacity), now: time.Now}
}

// C returns the event stream; it is closed by Close.
func (b *Bus) C() <-chan Event {
	return b.ring.C()
}

// Publish stamps and enqueues e. Events published after Close are dropped.
func (b *Bus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = b.now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	b.ring.Send(e)
}

func (b *Bus) Stats() RingStats {
	return b.ring.Stats()
}

func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		b.ring.Close()
		b.mu.Unlock()
	})
}

func (b *Bus) OnStateChanged(kind sensor.Kind, state string) {
	b.Publish(Event{Kind: StateChanged, Channel: kind.String(), State: state})
}

func (b *Bus) OnValueUpdated(kind sensor.Kind, r sensor.Reading) {
	b.Publish(Event{Kind: ValueUpdated, Channel: kind.String(), Reading: &r})
}

func (b *Bus) OnSubscriberChanged(peerID string, subscribed bool) {
	b.Publish(Event{Kind: SubscriberChanged, Peer: peerID, Subscribed: subscribed})
}

func (b *Bus) OnProfilePublished(id profile.ID, err error) {
	e := Event{Kind: ProfilePublished, Profile: id.String()}
	if err != nil {
		e.Error = err.Error()
	}
	b.Publish(e)
}
