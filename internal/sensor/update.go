package sensor

import "math"

// Update is a single value reported by an upstream channel. Each variant carries only
// the fields of its own channel.
type Update interface {
	Channel() Kind
	Timestamp() int64
	apply(s *Snapshot, c *channel)
}

// WheelEvent is a bike speed sensor report: cumulative wheel revolutions and the time
// of the last wheel event in seconds.
type WheelEvent struct {
	EstTimestamp          int64
	CumulativeRevolutions int64
	EventTime             float64
}

func (WheelEvent) Channel() Kind      { return Speed }
func (e WheelEvent) Timestamp() int64 { return e.EstTimestamp }
func (e WheelEvent) apply(s *Snapshot, _ *channel) {
	s.setWheel(e.EstTimestamp, uint32(e.CumulativeRevolutions), EventTicks(e.EventTime))
}

// CrankEvent is a bike cadence sensor report.
type CrankEvent struct {
	EstTimestamp          int64
	CumulativeRevolutions int64
	EventTime             float64
}

func (CrankEvent) Channel() Kind      { return Cadence }
func (e CrankEvent) Timestamp() int64 { return e.EstTimestamp }
func (e CrankEvent) apply(s *Snapshot, _ *channel) {
	s.setCrank(e.EstTimestamp, uint16(e.CumulativeRevolutions), EventTicks(e.EventTime))
}

// HeartRateEvent is a computed heart rate in beats per minute.
type HeartRateEvent struct {
	EstTimestamp int64
	BPM          int
}

func (HeartRateEvent) Channel() Kind      { return HeartRate }
func (e HeartRateEvent) Timestamp() int64 { return e.EstTimestamp }
func (e HeartRateEvent) apply(s *Snapshot, _ *channel) {
	s.setHeartRate(e.EstTimestamp, uint16(max(e.BPM, 0)))
}

// StrideSpeedEvent is the instantaneous running speed in m/s.
type StrideSpeedEvent struct {
	EstTimestamp int64
	Speed        float64
}

func (StrideSpeedEvent) Channel() Kind      { return Stride }
func (e StrideSpeedEvent) Timestamp() int64 { return e.EstTimestamp }
func (e StrideSpeedEvent) apply(s *Snapshot, _ *channel) {
	s.setSpeed(e.EstTimestamp, float32(e.Speed))
}

// StrideCountEvent is a cumulative stride count; the channel turns it into a cadence.
type StrideCountEvent struct {
	EstTimestamp int64
	Cumulative   int64
}

func (StrideCountEvent) Channel() Kind      { return Stride }
func (e StrideCountEvent) Timestamp() int64 { return e.EstTimestamp }
func (e StrideCountEvent) apply(s *Snapshot, c *channel) {
	spm := c.cadence.Add(e.EstTimestamp, e.Cumulative)
	s.setCadence(e.EstTimestamp, uint16(min(spm, math.MaxUint16)))
}

// StrideDistanceEvent is the cumulative distance in meters.
type StrideDistanceEvent struct {
	EstTimestamp int64
	Distance     float64
}

func (StrideDistanceEvent) Channel() Kind      { return Stride }
func (e StrideDistanceEvent) Timestamp() int64 { return e.EstTimestamp }
func (e StrideDistanceEvent) apply(s *Snapshot, _ *channel) {
	d := e.Distance
	if math.IsNaN(d) || d < 0 {
		d = 0
	}
	s.setDistance(e.EstTimestamp, uint32(uint64(d)))
}

// EventTicks converts an event time in seconds to 1/1024 s units, truncating and
// wrapping at 16 bits.
func EventTicks(seconds float64) uint16 {
	if math.IsNaN(seconds) || seconds <= 0 {
		return 0
	}
	return uint16(uint64(seconds * 1024))
}
