package sensor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Observer receives display events from the hub. Calls are made on the producer's
// goroutine and must not block.
type Observer interface {
	OnStateChanged(kind Kind, state string)
	OnValueUpdated(kind Kind, r Reading)
}

// channel is the per-kind entry of the hub's dispatch table.
type channel struct {
	kind     Kind
	mu       sync.Mutex // serializes updates of one channel
	state    atomic.Value
	updated  atomic.Int64
	reported atomic.Bool
	cadence  *CadenceEstimator
}

// Hub routes upstream updates into the snapshot and reports every change to its observer.
type Hub struct {
	snapshot *Snapshot
	channels [numKinds]*channel
	observer Observer
	logger   *logrus.Logger
}

// HubOptions configures a Hub.
type HubOptions struct {
	Observer          Observer
	Logger            *logrus.Logger
	CadenceWindow     time.Duration
	CadenceMaxSamples int
}

// NewHub creates a hub with every channel idle.
func NewHub(opts HubOptions) *Hub {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
	}
	h := &Hub{
		snapshot: &Snapshot{},
		observer: opts.Observer,
		logger:   logger,
	}
	for _, k := range Kinds() {
		c := &channel{kind: k}
		c.state.Store(StateIdle)
		if k == Stride {
			c.cadence = NewCadenceEstimator(opts.CadenceWindow, opts.CadenceMaxSamples)
		}
		h.channels[k] = c
	}
	return h
}

// Snapshot returns the snapshot the hub writes to.
func (h *Hub) Snapshot() *Snapshot {
	return h.snapshot
}

// Read is a shortcut for Snapshot().Read().
func (h *Hub) Read() Reading {
	return h.snapshot.Read()
}

// Apply stores an update and emits a value-updated event.
func (h *Hub) Apply(u Update) {
	c := h.lookup(u.Channel())
	if c == nil {
		h.logger.WithField("channel", u.Channel()).Warn("Dropping update for unknown sensor channel")
		return
	}

	c.mu.Lock()
	u.apply(h.snapshot, c)
	c.updated.Store(u.Timestamp())
	c.reported.Store(true)
	c.mu.Unlock()

	if h.observer != nil {
		h.observer.OnValueUpdated(c.kind, h.snapshot.Read())
	}
}

// SetState records a channel state change reported by the upstream source.
func (h *Hub) SetState(kind Kind, state string) {
	c := h.lookup(kind)
	if c == nil {
		return
	}
	if prev, _ := c.state.Swap(state).(string); prev == state {
		return
	}
	// a re-acquired foot pod restarts its cumulative stride count
	if c.cadence != nil && state != StateTracking {
		c.cadence.Reset()
	}
	h.logger.WithFields(logrus.Fields{
		"channel": kind,
		"state":   state,
	}).Info("Sensor channel state changed")

	if h.observer != nil {
		h.observer.OnStateChanged(kind, state)
	}
}

// State returns the last state reported for kind.
func (h *Hub) State(kind Kind) string {
	c := h.lookup(kind)
	if c == nil {
		return ""
	}
	s, _ := c.state.Load().(string)
	return s
}

// Reported reports whether kind has delivered at least one value.
func (h *Hub) Reported(kind Kind) bool {
	c := h.lookup(kind)
	return c != nil && c.reported.Load()
}

// LastUpdate returns the estimated timestamp of the last value of kind.
func (h *Hub) LastUpdate(kind Kind) int64 {
	c := h.lookup(kind)
	if c == nil {
		return 0
	}
	return c.updated.Load()
}

func (h *Hub) lookup(kind Kind) *channel {
	if kind < 0 || kind >= numKinds {
		return nil
	}
	return h.channels[kind]
}
