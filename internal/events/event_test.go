package events

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/cscbridge/internal/profile"
	"github.com/srg/cscbridge/internal/sensor"
)

func TestBusTranslatesCallbacks(t *testing.T) {
	bus := NewBus(16)
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	bus.now = func() time.Time { return fixed }

	bus.OnStateChanged(sensor.HeartRate, sensor.StateTracking)
	bus.OnValueUpdated(sensor.Speed, sensor.Reading{WheelRevolutions: 3})
	bus.OnSubscriberChanged("aa:bb", true)
	bus.OnProfilePublished(profile.RunningSpeedCadence, errors.New("duplicate"))
	bus.Close()
	bus.OnSubscriberChanged("late", false) // dropped after close

	var got []Event
	for e := range bus.C() {
		got = append(got, e)
	}
	require.Len(t, got, 4)

	assert.Equal(t, Event{Kind: StateChanged, Time: fixed, Channel: "heart_rate", State: "tracking"}, got[0])
	assert.Equal(t, ValueUpdated, got[1].Kind)
	require.NotNil(t, got[1].Reading)
	assert.Equal(t, uint32(3), got[1].Reading.WheelRevolutions)
	assert.Equal(t, Event{Kind: SubscriberChanged, Time: fixed, Peer: "aa:bb", Subscribed: true}, got[2])
	assert.Equal(t, Event{Kind: ProfilePublished, Time: fixed, Profile: "rsc", Error: "duplicate"}, got[3])
}

func TestBusNeverBlocks(t *testing.T) {
	bus := NewBus(2)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			bus.OnSubscriberChanged("p", i%2 == 0)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on a full bus")
	}
	assert.Equal(t, int64(998), bus.Stats().Overwritten)
	bus.Close()
	bus.Close()
}
