package gatt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/srg/cscbridge/internal/groutine"
	"github.com/srg/cscbridge/internal/profile"
	"github.com/srg/cscbridge/internal/sensor"
)

// DefaultInterval is the notification period.
const DefaultInterval = time.Second

// ActiveProfile is a published profile eligible for notification.
type ActiveProfile struct {
	Definition *profile.Definition
	Mask       profile.FeatureMask
}

// ProfileSource yields the profiles to notify on each tick.
type ProfileSource interface {
	ActiveProfiles() []ActiveProfile
}

// SnapshotReader yields the sensor values to encode.
type SnapshotReader interface {
	Read() sensor.Reading
}

// EncodeFunc builds a measurement payload.
type EncodeFunc func(id profile.ID, mask profile.FeatureMask, r sensor.Reading) []byte

// TickResult summarizes one notification cycle.
type TickResult struct {
	Profiles  int
	Delivered int
	Failed    int
}

// NotifierOptions configures a Notifier.
type NotifierOptions struct {
	Interval time.Duration
	Snapshot SnapshotReader
	Registry *Registry
	Profiles ProfileSource
	// Encode defaults to profile.EncodeMeasurement.
	Encode EncodeFunc
	Logger *logrus.Logger
}

// Notifier pushes the current measurements to every subscriber once per interval.
type Notifier struct {
	opts NotifierOptions

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    <-chan struct{}
	running atomic.Bool

	ticks atomic.Uint64
}

func NewNotifier(opts NotifierOptions) *Notifier {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Encode == nil {
		opts.Encode = profile.EncodeMeasurement
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	return &Notifier{opts: opts}
}

// Start launches the ticker goroutine. Calling Start on a running notifier is a no-op.
func (n *Notifier) Start(ctx context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.running.Load() {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	n.cancel = cancel
	n.running.Store(true)

	n.done = groutine.GoDone(ctx, "gatt-notifier", func(ctx context.Context) {
		ticker := time.NewTicker(n.opts.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n.Tick()
			}
		}
	})
	n.opts.Logger.WithField("interval", n.opts.Interval).Debug("Notifier started")
}

// Stop cancels the ticker and returns once no further tick can run.
func (n *Notifier) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.running.Load() {
		return
	}
	n.cancel()
	<-n.done
	n.running.Store(false)
	n.opts.Logger.WithField("ticks", n.ticks.Load()).Debug("Notifier stopped")
}

// Running reports whether the ticker goroutine is active.
func (n *Notifier) Running() bool {
	return n.running.Load()
}

// Ticks returns the number of completed cycles.
func (n *Notifier) Ticks() uint64 {
	return n.ticks.Load()
}

// Tick runs a single notification cycle.
func (n *Notifier) Tick() TickResult {
	defer n.ticks.Add(1)

	var res TickResult
	peers := n.opts.Registry.All()
	if len(peers) == 0 {
		return res
	}

	active := n.opts.Profiles.ActiveProfiles()
	if len(active) == 0 {
		return res
	}

	reading := n.opts.Snapshot.Read()
	for _, p := range active {
		payload := n.encode(p, reading)
		if payload == nil {
			continue
		}
		res.Profiles++

		for _, peer := range peers {
			if err := n.push(peer, p.Definition, payload); err != nil {
				res.Failed++
				n.opts.Logger.WithFields(logrus.Fields{
					"peer":    peer.ID(),
					"profile": p.Definition.ID,
				}).WithError(err).Warn("Notification failed")
				continue
			}
			res.Delivered++
		}
	}
	return res
}

func (n *Notifier) encode(p ActiveProfile, r sensor.Reading) (payload []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			n.opts.Logger.WithField("profile", p.Definition.ID).Errorf("Encoder panic: %v", rec)
			payload = nil
		}
	}()
	return n.opts.Encode(p.Definition.ID, p.Mask, r)
}

func (n *Notifier) push(peer Peer, def *profile.Definition, payload []byte) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("notify panic: %v", rec)
		}
	}()
	return peer.Notify(def.Measurement, payload)
}
