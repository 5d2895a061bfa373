package events

import "sync/atomic"

// RingChannel is a bounded channel with overwrite-oldest semantics: producers never
// block, and when the buffer is full the oldest element is discarded.
//
//	rc := NewRingChannel[int](3)
//	for i := 0; i < 10; i++ {
//	    rc.Send(i)
//	}
//	// a reader of rc.C() now sees 7, 8, 9
type RingChannel[T any] struct {
	ch chan T

	written     atomic.Int64
	overwritten atomic.Int64
	received    atomic.Int64
}

// NewRingChannel creates a ring channel; capacity must be positive.
func NewRingChannel[T any](capacity int) *RingChannel[T] {
	if capacity <= 0 {
		panic("events: ring channel capacity must be > 0")
	}
	return &RingChannel[T]{ch: make(chan T, capacity)}
}

// C returns the receive side. Reads through C are not counted in Stats.
func (rc *RingChannel[T]) C() <-chan T {
	return rc.ch
}

// Send inserts v, discarding the oldest element when full. It reports whether
// something was dropped.
func (rc *RingChannel[T]) Send(v T) bool {
	for {
		select {
		case rc.ch <- v:
			rc.written.Add(1)
			return false
		default:
		}

		// a concurrent reader may have drained the buffer in the meantime
		select {
		case <-rc.ch:
			rc.overwritten.Add(1)
			select {
			case rc.ch <- v:
				rc.written.Add(1)
				return true
			default:
			}
		default:
		}
	}
}

// TrySend inserts v only if there is room.
func (rc *RingChannel[T]) TrySend(v T) bool {
	select {
	case rc.ch <- v:
		rc.written.Add(1)
		return true
	default:
		return false
	}
}

// TryReceive returns the next element without blocking.
func (rc *RingChannel[T]) TryReceive() (T, bool) {
	select {
	case v, ok := <-rc.ch:
		if ok {
			rc.received.Add(1)
		}
		return v, ok
	default:
		var zero T
		return zero, false
	}
}

func (rc *RingChannel[T]) Len() int { return len(rc.ch) }
func (rc *RingChannel[T]) Cap() int { return cap(rc.ch) }

// Close closes the channel; Send panics afterwards.
func (rc *RingChannel[T]) Close() {
	close(rc.ch)
}

// RingStats are the counters of a RingChannel.
type RingStats struct {
	Written     int64
	Overwritten int64
	Received    int64
}

func (rc *RingChannel[T]) Stats() RingStats {
	return RingStats{
		Written:     rc.written.Load(),
		Overwritten: rc.overwritten.Load(),
		Received:    rc.received.Load(),
	}
}
