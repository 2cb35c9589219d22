// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package broadcast

import (
	"log"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"

	"github.com/relabs-tech/head_tracker/internal/orientation"
)

// Consumer receives every corrected orientation published after it registers.
type Consumer interface {
	ReceiveOrientation(orientation.Transform)
}

// ConsumerFunc adapts a plain function to Consumer.
type ConsumerFunc func(orientation.Transform)

func (f ConsumerFunc) ReceiveOrientation(t orientation.Transform) { f(t) }

// Handle identifies one registration, for Unregister.
type Handle string

type registration struct {
	handle   Handle
	consumer Consumer
}

// Logf reports recovered consumer panics. Tests may replace it.
var Logf = log.Printf

// Broadcaster fans one transform out to all registered consumers,
// synchronously and in registration order.
type Broadcaster struct {
	mu   sync.Mutex
	regs []registration
}

// New returns an empty Broadcaster.
func New() *Broadcaster {
	return &Broadcaster{}
}

// Register appends c and returns the handle that removes it again.
func (b *Broadcaster) Register(c Consumer) Handle {
	h := Handle(uuid.NewString())

	b.mu.Lock()
	defer b.mu.Unlock()
	b.regs = append(b.regs, registration{handle: h, consumer: c})
	return h
}

// Unregister removes the registration for h. It returns false if h is unknown.
func (b *Broadcaster) Unregister(h Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, r := range b.regs {
		if r.handle == h {
			// fresh slice so snapshots held by an in-flight Publish stay intact
			regs := make([]registration, 0, len(b.regs)-1)
			regs = append(regs, b.regs[:i]...)
			b.regs = append(regs, b.regs[i+1:]...)
			return true
		}
	}
	return false
}

// Publish delivers t to every consumer registered before the call.
// Registrations made from inside a consumer take effect from the next Publish.
func (b *Broadcaster) Publish(t orientation.Transform) {
	b.mu.Lock()
	snapshot := make([]registration, len(b.regs))
	copy(snapshot, b.regs)
	b.mu.Unlock()

	for _, r := range snapshot {
		b.safeCall(r, t)
	}
}

// Len returns the number of registered consumers.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.regs)
}

// safeCall recovers a panicking consumer so the rest still receive t.
func (b *Broadcaster) safeCall(r registration, t orientation.Transform) {
	defer func() {
		if p := recover(); p != nil {
			Logf("broadcast: consumer %s panicked: %v\n%s", r.handle, p, debug.Stack())
		}
	}()
	r.consumer.ReceiveOrientation(t)
}
