package sensor

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockObserver struct {
	mock.Mock
}

func (m *MockObserver) OnStateChanged(kind Kind, state string) {
	m.Called(kind, state)
}

func (m *MockObserver) OnValueUpdated(kind Kind, r Reading) {
	m.Called(kind, r)
}

func TestHubApply(t *testing.T) {
	tests := []struct {
		name   string
		update Update
		check  func(t *testing.T, r Reading)
	}{
		{
			name:   "wheel event converts seconds to 1/1024 units",
			update: WheelEvent{EstTimestamp: 10, CumulativeRevolutions: 1234, EventTime: 2.0},
			check: func(t *testing.T, r Reading) {
				assert.Equal(t, uint32(1234), r.WheelRevolutions)
				assert.Equal(t, uint16(2048), r.WheelEventTime)
				assert.Equal(t, int64(10), r.WheelTimestamp)
			},
		},
		{
			name:   "crank event truncates revolutions to 16 bits",
			update: CrankEvent{EstTimestamp: 20, CumulativeRevolutions: 0x10005, EventTime: 0.5},
			check: func(t *testing.T, r Reading) {
				assert.Equal(t, uint16(5), r.CrankRevolutions)
				assert.Equal(t, uint16(512), r.CrankEventTime)
			},
		},
		{
			name:   "heart rate keeps values above 255",
			update: HeartRateEvent{EstTimestamp: 30, BPM: 300},
			check: func(t *testing.T, r Reading) {
				assert.Equal(t, uint16(300), r.HeartRate)
			},
		},
		{
			name:   "negative heart rate stored as zero",
			update: HeartRateEvent{EstTimestamp: 30, BPM: -4},
			check: func(t *testing.T, r Reading) {
				assert.Equal(t, uint16(0), r.HeartRate)
			},
		},
		{
			name:   "stride speed",
			update: StrideSpeedEvent{EstTimestamp: 40, Speed: 3.25},
			check: func(t *testing.T, r Reading) {
				assert.InDelta(t, 3.25, r.Speed, 1e-6)
				assert.Equal(t, int64(40), r.SpeedTimestamp)
			},
		},
		{
			name:   "stride distance",
			update: StrideDistanceEvent{EstTimestamp: 50, Distance: 1042.7},
			check: func(t *testing.T, r Reading) {
				assert.Equal(t, uint32(1042), r.StrideDistance)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := &MockObserver{}
			obs.On("OnValueUpdated", tt.update.Channel(), mock.Anything).Once()

			h := NewHub(HubOptions{Observer: obs})
			require.False(t, h.Reported(tt.update.Channel()))

			h.Apply(tt.update)

			tt.check(t, h.Read())
			assert.True(t, h.Reported(tt.update.Channel()))
			assert.Equal(t, tt.update.Timestamp(), h.LastUpdate(tt.update.Channel()))
			obs.AssertExpectations(t)
		})
	}
}

func TestHubStrideCountFeedsCadence(t *testing.T) {
	h := NewHub(HubOptions{})

	h.Apply(StrideCountEvent{EstTimestamp: 0, Cumulative: 0})
	assert.Equal(t, uint16(0), h.Read().StridesPerMinute)

	h.Apply(StrideCountEvent{EstTimestamp: 5000, Cumulative: 15})
	assert.Equal(t, uint16(180), h.Read().StridesPerMinute)
}

func TestHubStrideLossResetsCadence(t *testing.T) {
	h := NewHub(HubOptions{})
	h.SetState(Stride, StateTracking)

	h.Apply(StrideCountEvent{EstTimestamp: 0, Cumulative: 400})
	h.Apply(StrideCountEvent{EstTimestamp: 5000, Cumulative: 415})
	require.Equal(t, uint16(180), h.Read().StridesPerMinute)

	h.SetState(Stride, StateDead)
	h.SetState(Stride, StateTracking)

	// the pod restarted its count; the old history would pin the rate at zero
	h.Apply(StrideCountEvent{EstTimestamp: 8000, Cumulative: 0})
	h.Apply(StrideCountEvent{EstTimestamp: 10000, Cumulative: 6})
	assert.Equal(t, uint16(180), h.Read().StridesPerMinute)
}

func TestHubSetState(t *testing.T) {
	obs := &MockObserver{}
	obs.On("OnStateChanged", HeartRate, StateSearching).Once()
	obs.On("OnStateChanged", HeartRate, StateTracking).Once()

	h := NewHub(HubOptions{Observer: obs})
	assert.Equal(t, StateIdle, h.State(HeartRate))

	h.SetState(HeartRate, StateSearching)
	h.SetState(HeartRate, StateSearching) // unchanged, no event
	h.SetState(HeartRate, StateTracking)

	assert.Equal(t, StateTracking, h.State(HeartRate))
	assert.Equal(t, StateIdle, h.State(Speed))
	obs.AssertExpectations(t)
}

func TestHubConcurrentWritersAndReaders(t *testing.T) {
	h := NewHub(HubOptions{})
	var wg sync.WaitGroup

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(k int) {
			defer wg.Done()
			for n := 0; n < 500; n++ {
				switch k {
				case 0:
					h.Apply(WheelEvent{EstTimestamp: int64(n), CumulativeRevolutions: int64(n), EventTime: float64(n)})
				case 1:
					h.Apply(CrankEvent{EstTimestamp: int64(n), CumulativeRevolutions: int64(n), EventTime: float64(n)})
				case 2:
					h.Apply(HeartRateEvent{EstTimestamp: int64(n), BPM: n % 200})
				default:
					_ = h.Read()
				}
			}
		}(i)
	}
	wg.Wait()

	r := h.Read()
	assert.Equal(t, uint32(499), r.WheelRevolutions)
	assert.Equal(t, uint16(499), r.CrankRevolutions)
}

func TestEventTicks(t *testing.T) {
	tests := []struct {
		seconds  float64
		expected uint16
	}{
		{0, 0},
		{-1, 0},
		{1, 1024},
		{0.0009, 0},
		{1.9999, 2047},
		{64, 0}, // 65536 wraps
		{64.5, 512},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, EventTicks(tt.seconds), "seconds=%v", tt.seconds)
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	got, err := ParseKind("HR")
	require.NoError(t, err)
	assert.Equal(t, HeartRate, got)

	_, err = ParseKind("power")
	assert.Error(t, err)
}
