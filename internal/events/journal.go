package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hedzr/go-ringbuf/v2/mpmc"

	"github.com/srg/cscbridge/internal/groutine"
)

// MaxJournalSize guards against accidental misconfiguration.
const MaxJournalSize uint32 = 64 * 1024

// JournalStats are the counters of a Journal.
type JournalStats struct {
	Recorded    int64
	Overwritten int64
	Errors      int64
}

// Journal drains a Bus, keeping the most recent events in an overlapped ring buffer
// and forwarding each event to an optional sink (the live CLI view).
type Journal struct {
	in     <-chan Event
	buffer mpmc.RichOverlappedRingBuffer[Event]
	sink   func(Event)

	mu      sync.Mutex
	done    <-chan struct{}
	running atomic.Bool

	recorded    atomic.Int64
	overwritten atomic.Int64
	errors      atomic.Int64
}

// NewJournal creates a journal reading from in. sink may be nil.
func NewJournal(in <-chan Event, size uint32, sink func(Event)) (*Journal, error) {
	if in == nil {
		return nil, fmt.Errorf("journal: input channel cannot be nil")
	}
	if size == 0 {
		return nil, fmt.Errorf("journal: size must be > 0")
	}
	if size > MaxJournalSize {
		return nil, fmt.Errorf("journal: size %d exceeds maximum %d", size, MaxJournalSize)
	}
	return &Journal{
		in:     in,
		buffer: mpmc.NewOverlappedRingBuffer[Event](size),
		sink:   sink,
	}, nil
}

// Start begins draining the input; it stops when the input channel is closed.
func (j *Journal) Start() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.running.CompareAndSwap(false, true) {
		return fmt.Errorf("journal is already running")
	}

	j.done = groutine.GoDone(context.Background(), "events-journal", func(_ context.Context) {
		defer j.running.Store(false)
		for e := range j.in {
			j.record(e)
		}
	})
	return nil
}

// Wait blocks until the input channel was closed and fully drained.
func (j *Journal) Wait() {
	j.mu.Lock()
	done := j.done
	j.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (j *Journal) record(e Event) {
	overwrites, err := j.buffer.EnqueueM(e)
	if err != nil {
		j.errors.Add(1)
	} else {
		j.recorded.Add(1)
		j.overwritten.Add(int64(overwrites))
	}
	if j.sink != nil {
		j.sink(e)
	}
}

// Drain removes and returns the buffered events, oldest first.
func (j *Journal) Drain() ([]Event, error) {
	var out []Event
	for !j.buffer.IsEmpty() {
		e, err := j.buffer.Dequeue()
		if err != nil {
			return out, fmt.Errorf("journal dequeue: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (j *Journal) Stats() JournalStats {
	return JournalStats{
		Recorded:    j.recorded.Load(),
		Overwritten: j.overwritten.Load(),
		Errors:      j.errors.Load(),
	}
}
