package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/relabs-tech/head_tracker/internal/orientation"
)

// EventKind tells the pipeline what a motion source reported.
type EventKind int

const (
	SampleEvent EventKind = iota
	NoDataEvent
	ConnectedEvent
	DisconnectedEvent
	UnsupportedEvent
)

func (k EventKind) String() string {
	switch k {
	case SampleEvent:
		return "sample"
	case NoDataEvent:
		return "no-data"
	case ConnectedEvent:
		return "connected"
	case DisconnectedEvent:
		return "disconnected"
	case UnsupportedEvent:
		return "unsupported"
	}
	return "unknown"
}

// Event is one message from a motion source. Sample is set only for SampleEvent.
type Event struct {
	Kind   EventKind
	Sample *orientation.RawSample
	Err    error
}

// lifecycleDepth bounds the connect/disconnect backlog. A full backlog
// blocks the source rather than losing a transition.
const lifecycleDepth = 16

// ErrClosed is returned by Next once the queue is closed.
var ErrClosed = errors.New("pipeline: queue closed")

// Queue hands events from a motion source to the processing goroutine in the
// order the source produced them.
//
// At most one reading (sample or no-data tick) is pending at a time: a newer
// reading replaces the older one. Lifecycle events are never dropped. A
// Disconnected or Unsupported event discards the pending reading, so a stale
// sample is never processed after the source reported it was gone.
type Queue struct {
	mu        sync.Mutex
	events    []Event
	lifecycle int
	ready     chan struct{}
	space     chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	dropped   atomic.Uint64
}

// NewQueue returns an open Queue.
func NewQueue() *Queue {
	return &Queue{
		ready: make(chan struct{}, 1),
		space: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

func (k EventKind) isReading() bool {
	return k == SampleEvent || k == NoDataEvent
}

// PushSample queues a reading, replacing any reading not yet processed.
func (q *Queue) PushSample(s orientation.RawSample) {
	q.Push(Event{Kind: SampleEvent, Sample: &s})
}

// PushNoData records a tick on which the source had no reading.
func (q *Queue) PushNoData() {
	q.Push(Event{Kind: NoDataEvent})
}

// Push queues ev. Readings never block; lifecycle events block only while
// the lifecycle backlog is full. Push after Close is a no-op.
func (q *Queue) Push(ev Event) {
	for {
		q.mu.Lock()
		if q.closed() {
			q.mu.Unlock()
			return
		}
		if ev.Kind.isReading() || q.lifecycle < lifecycleDepth {
			q.appendLocked(ev)
			room := q.lifecycle < lifecycleDepth
			q.mu.Unlock()
			notify(q.ready)
			if room {
				// pass the wakeup on to any other blocked pusher
				notify(q.space)
			}
			return
		}
		q.mu.Unlock()

		select {
		case <-q.space:
		case <-q.done:
			return
		}
	}
}

func (q *Queue) appendLocked(ev Event) {
	switch ev.Kind {
	case SampleEvent, NoDataEvent, DisconnectedEvent, UnsupportedEvent:
		q.dropReadingLocked()
	}
	if !ev.Kind.isReading() {
		q.lifecycle++
	}
	q.events = append(q.events, ev)
}

func (q *Queue) dropReadingLocked() {
	for i, ev := range q.events {
		if ev.Kind.isReading() {
			q.events = append(q.events[:i], q.events[i+1:]...)
			q.dropped.Add(1)
			return
		}
	}
}

func (q *Queue) closed() bool {
	select {
	case <-q.done:
		return true
	default:
		return false
	}
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// TryNext returns the oldest pending event without blocking.
func (q *Queue) TryNext() (Event, bool) {
	q.mu.Lock()
	if len(q.events) == 0 {
		q.mu.Unlock()
		return Event{}, false
	}
	ev := q.events[0]
	q.events[0] = Event{}
	q.events = q.events[1:]
	freed := !ev.Kind.isReading()
	if freed {
		q.lifecycle--
	}
	q.mu.Unlock()

	if freed {
		notify(q.space)
	}
	return ev, true
}

// Next blocks until an event is pending. It returns ctx.Err() on
// cancellation and ErrClosed once the queue is closed.
func (q *Queue) Next(ctx context.Context) (Event, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Event{}, err
		}
		if q.closed() {
			return Event{}, ErrClosed
		}
		if ev, ok := q.TryNext(); ok {
			return ev, nil
		}
		select {
		case <-ctx.Done():
		case <-q.done:
		case <-q.ready:
		}
	}
}

// Dropped returns how many readings were replaced or discarded before being
// processed.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}

// Close stops the queue. Run returns once it observes the close.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}

// Done is closed by Close.
func (q *Queue) Done() <-chan struct{} {
	return q.done
}
