package pipeline

import (
	"fmt"
	"sync"
)

// State is the connection status shown to the user.
type State int

const (
	Idle State = iota
	Connected
	Disconnected
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Connected:
		return "Connected"
	case Disconnected:
		return "Disconnected"
	case Error:
		return "Error"
	}
	return "Unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for _, st := range []State{Idle, Connected, Disconnected, Error} {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", b)
}

// Status is the connection state plus an optional detail such as "no data".
type Status struct {
	State  State  `json:"state"`
	Detail string `json:"detail,omitempty"`
}

func (s Status) String() string {
	if s.Detail == "" {
		return s.State.String()
	}
	return s.State.String() + " (" + s.Detail + ")"
}

const detailNoData = "no data"

// StatusSink is notified on every status change.
type StatusSink interface {
	StatusChanged(Status)
}

// StatusSinkFunc adapts a function to StatusSink.
type StatusSinkFunc func(Status)

func (f StatusSinkFunc) StatusChanged(s Status) { f(s) }

// StatusTracker derives the user-facing status from source lifecycle events
// and per-sample outcomes. Error is terminal.
type StatusTracker struct {
	mu      sync.Mutex
	current Status
	sinks   []StatusSink
}

// NewStatusTracker starts in Idle.
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{}
}

// OnChange registers a sink.
func (t *StatusTracker) OnChange(s StatusSink) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sinks = append(t.sinks, s)
}

// Current returns the latest status.
func (t *StatusTracker) Current() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

func (t *StatusTracker) Connected() {
	t.set(func(Status) Status { return Status{State: Connected} })
}

func (t *StatusTracker) Disconnected() {
	t.set(func(Status) Status { return Status{State: Disconnected} })
}

// Unsupported records that the device cannot produce motion at all.
func (t *StatusTracker) Unsupported(err error) {
	detail := "motion unsupported"
	if err != nil {
		detail = err.Error()
	}
	t.set(func(Status) Status { return Status{State: Error, Detail: detail} })
}

// NoData marks the current state as having no reading, without changing it.
func (t *StatusTracker) NoData() {
	t.set(func(cur Status) Status { return Status{State: cur.State, Detail: detailNoData} })
}

// Delivered clears a no-data mark. The first sample from an Idle source
// counts as a connect; after a disconnect only a Connected event brings the
// state back.
func (t *StatusTracker) Delivered() {
	t.set(func(cur Status) Status {
		if cur.State == Disconnected {
			return Status{State: Disconnected}
		}
		return Status{State: Connected}
	})
}

func (t *StatusTracker) set(next func(Status) Status) {
	t.mu.Lock()
	if t.current.State == Error {
		t.mu.Unlock()
		return
	}
	s := next(t.current)
	if s == t.current {
		t.mu.Unlock()
		return
	}
	t.current = s
	sinks := make([]StatusSink, len(t.sinks))
	copy(sinks, t.sinks)
	t.mu.Unlock()

	for _, sink := range sinks {
		sink.StatusChanged(s)
	}
}
