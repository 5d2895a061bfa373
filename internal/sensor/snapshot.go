package sensor

import (
	"math"
	"sync/atomic"
)

// Reading is a value copy of the snapshot. Timestamps are the upstream estimated
// timestamps in milliseconds; event times are in 1/1024 s units.
type Reading struct {
	WheelRevolutions uint32 `json:"wheel_revolutions"`
	WheelEventTime   uint16 `json:"wheel_event_time"`
	WheelTimestamp   int64  `json:"wheel_timestamp"`

	CrankRevolutions uint16 `json:"crank_revolutions"`
	CrankEventTime   uint16 `json:"crank_event_time"`
	CrankTimestamp   int64  `json:"crank_timestamp"`

	HeartRate          uint16 `json:"heart_rate_bpm"`
	HeartRateTimestamp int64  `json:"heart_rate_timestamp"`

	Speed                   float32 `json:"speed_mps"`
	SpeedTimestamp          int64   `json:"speed_timestamp"`
	StridesPerMinute        uint16  `json:"strides_per_minute"`
	CadenceTimestamp        int64   `json:"cadence_timestamp"`
	StrideDistance          uint32  `json:"stride_distance_m"`
	StrideDistanceTimestamp int64   `json:"stride_distance_timestamp"`
}

// Snapshot holds the latest value of every sensor field. Each field is written by a
// single channel and read lock-free; a Read may mix fields from different updates but
// never observes a half-written field.
type Snapshot struct {
	wheelRevs atomic.Uint32
	wheelTime atomic.Uint32
	wheelTS   atomic.Int64

	crankRevs atomic.Uint32
	crankTime atomic.Uint32
	crankTS   atomic.Int64

	heartRate atomic.Uint32
	heartTS   atomic.Int64

	speedBits atomic.Uint32
	speedTS   atomic.Int64
	cadence   atomic.Uint32
	cadenceTS atomic.Int64
	distance  atomic.Uint32
	distTS    atomic.Int64
}

// Read returns a copy of the current values.
func (s *Snapshot) Read() Reading {
	return Reading{
		WheelRevolutions: s.wheelRevs.Load(),
		WheelEventTime:   uint16(s.wheelTime.Load()),
		WheelTimestamp:   s.wheelTS.Load(),

		CrankRevolutions: uint16(s.crankRevs.Load()),
		CrankEventTime:   uint16(s.crankTime.Load()),
		CrankTimestamp:   s.crankTS.Load(),

		HeartRate:          uint16(s.heartRate.Load()),
		HeartRateTimestamp: s.heartTS.Load(),

		Speed:                   math.Float32frombits(s.speedBits.Load()),
		SpeedTimestamp:          s.speedTS.Load(),
		StridesPerMinute:        uint16(s.cadence.Load()),
		CadenceTimestamp:        s.cadenceTS.Load(),
		StrideDistance:          s.distance.Load(),
		StrideDistanceTimestamp: s.distTS.Load(),
	}
}

func (s *Snapshot) setWheel(ts int64, revs uint32, eventTime uint16) {
	s.wheelRevs.Store(revs)
	s.wheelTime.Store(uint32(eventTime))
	s.wheelTS.Store(ts)
}

func (s *Snapshot) setCrank(ts int64, revs, eventTime uint16) {
	s.crankRevs.Store(uint32(revs))
	s.crankTime.Store(uint32(eventTime))
	s.crankTS.Store(ts)
}

func (s *Snapshot) setHeartRate(ts int64, bpm uint16) {
	s.heartRate.Store(uint32(bpm))
	s.heartTS.Store(ts)
}

func (s *Snapshot) setSpeed(ts int64, mps float32) {
	s.speedBits.Store(math.Float32bits(mps))
	s.speedTS.Store(ts)
}

func (s *Snapshot) setCadence(ts int64, spm uint16) {
	s.cadence.Store(uint32(spm))
	s.cadenceTS.Store(ts)
}

func (s *Snapshot) setDistance(ts int64, meters uint32) {
	s.distance.Store(meters)
	s.distTS.Store(ts)
}
