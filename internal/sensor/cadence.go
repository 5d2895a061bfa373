package sensor

import (
	"sync"
	"time"
)

const (
	DefaultCadenceWindow     = 10 * time.Second
	DefaultCadenceMaxSamples = 500
)

type strideSample struct {
	timestamp int64
	count     int64
}

// CadenceEstimator turns cumulative stride counts into strides per minute. The rate is
// measured against the newest sample at least one window old; until the window has
// filled it falls back to the oldest sample seen.
type CadenceEstimator struct {
	mu         sync.Mutex
	window     int64 // ms
	maxSamples int
	history    []strideSample // oldest first
}

// NewCadenceEstimator creates an estimator; zero arguments select the defaults.
func NewCadenceEstimator(window time.Duration, maxSamples int) *CadenceEstimator {
	if window <= 0 {
		window = DefaultCadenceWindow
	}
	if maxSamples <= 0 {
		maxSamples = DefaultCadenceMaxSamples
	}
	return &CadenceEstimator{
		window:     window.Milliseconds(),
		maxSamples: maxSamples,
	}
}

// Add records a sample taken at timestamp (ms) and returns the current estimate.
func (e *CadenceEstimator) Add(timestamp, cumulative int64) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.history = append(e.history, strideSample{timestamp: timestamp, count: cumulative})

	ref := 0
	for i := len(e.history) - 1; i >= 0; i-- {
		if timestamp-e.history[i].timestamp >= e.window {
			ref = i
			break
		}
	}

	// samples older than the reference can never be chosen again
	drop := ref
	if over := len(e.history) - e.maxSamples; over > drop {
		drop = over
	}
	if drop > 0 {
		e.history = append(e.history[:0], e.history[drop:]...)
		ref -= min(ref, drop)
	}

	return strideRate(e.history[ref], timestamp, cumulative)
}

// Reset forgets the sample history.
func (e *CadenceEstimator) Reset() {
	e.mu.Lock()
	e.history = e.history[:0]
	e.mu.Unlock()
}

func strideRate(from strideSample, timestamp, cumulative int64) int64 {
	elapsed := timestamp - from.timestamp
	if elapsed <= 0 {
		return 0
	}
	rate := (cumulative - from.count) * 60000 / elapsed
	if rate < 0 {
		return 0
	}
	return rate
}
