package gatt

import (
	"sync"
	"time"

	"github.com/go-ble/ble"
	"github.com/stretchr/testify/mock"

	"github.com/srg/cscbridge/internal/profile"
	"github.com/srg/cscbridge/internal/sensor"
)

type MockPeer struct {
	mock.Mock
	id string
}

func NewMockPeer(id string) *MockPeer {
	return &MockPeer{id: id}
}

func (m *MockPeer) ID() string {
	return m.id
}

func (m *MockPeer) Notify(characteristic ble.UUID, data []byte) error {
	args := m.Called(characteristic, data)
	return args.Error(0)
}

type MockObserver struct {
	mock.Mock
}

func (m *MockObserver) OnSubscriberChanged(peerID string, subscribed bool) {
	m.Called(peerID, subscribed)
}

func (m *MockObserver) OnProfilePublished(id profile.ID, err error) {
	m.Called(id, err)
}

// fakeTransport acknowledges registrations asynchronously with a scripted outcome.
type fakeTransport struct {
	mu        sync.Mutex
	outcomes  map[profile.ID][]error // consumed per attempt; nil entry means success
	silent    map[profile.ID]bool    // never acknowledge; stays in flight
	delays    map[profile.ID]time.Duration
	acked     []profile.ID
	order     []profile.ID
	inFlight  int
	maxFlight int
	closed    bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		outcomes: make(map[profile.ID][]error),
		silent:   make(map[profile.ID]bool),
		delays:   make(map[profile.ID]time.Duration),
	}
}

func (f *fakeTransport) Register(def *profile.Definition, _ Handler, ack func(error)) {
	f.mu.Lock()
	f.order = append(f.order, def.ID)
	f.inFlight++
	f.maxFlight = max(f.maxFlight, f.inFlight)
	var err error
	if q := f.outcomes[def.ID]; len(q) > 0 {
		err, f.outcomes[def.ID] = q[0], q[1:]
	}
	silent, delay := f.silent[def.ID], f.delays[def.ID]
	f.mu.Unlock()

	if silent {
		return
	}
	go func() {
		time.Sleep(delay)
		f.mu.Lock()
		f.inFlight--
		f.acked = append(f.acked, def.ID)
		f.mu.Unlock()
		ack(err)
	}()
}

func (f *fakeTransport) stats() (order []profile.ID, acked []profile.ID, maxFlight int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]profile.ID(nil), f.order...), append([]profile.ID(nil), f.acked...), f.maxFlight
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) registered() []profile.ID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]profile.ID(nil), f.order...)
}

type staticReporter map[sensor.Kind]bool

func (r staticReporter) Reported(k sensor.Kind) bool {
	return r[k]
}

type staticSnapshot sensor.Reading

func (s staticSnapshot) Read() sensor.Reading {
	return sensor.Reading(s)
}

type staticProfiles []ActiveProfile

func (p staticProfiles) ActiveProfiles() []ActiveProfile {
	return p
}
