// Package audio owns the spatial-audio listener state. Rendering itself is
// done by an external engine behind the Renderer interface; a Listener is
// opened once, passed to whoever needs it, and closed on shutdown.
package audio

import (
	"errors"
	"math"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrClosed is returned by a Listener after Close.
var ErrClosed = errors.New("audio listener closed")

var (
	// DefaultForward is where an uncalibrated listener looks.
	DefaultForward = r3.Vec{X: 0, Y: 0, Z: -1}
	// DefaultUp is the listener's head-up direction.
	DefaultUp = r3.Vec{X: 0, Y: 1, Z: 0}
	// DefaultSourcePosition is slightly right of and behind the listener.
	DefaultSourcePosition = r3.Vec{X: 0.2, Y: 0, Z: 1}
)

// Renderer is the audio engine side: it receives the listener orientation.
type Renderer interface {
	SetListenerOrientation(forward, up r3.Vec)
}

// NopRenderer discards orientation updates.
type NopRenderer struct{}

func (NopRenderer) SetListenerOrientation(_, _ r3.Vec) {}

// Listener is the owned audio resource: listener orientation plus the
// position of the single sound source.
type Listener struct {
	mu       sync.Mutex
	renderer Renderer
	forward  r3.Vec
	up       r3.Vec
	source   r3.Vec
	closed   bool
}

// Open acquires a listener facing DefaultForward and pushes that initial
// orientation to r. A nil r behaves like NopRenderer.
func Open(r Renderer, source r3.Vec) *Listener {
	if r == nil {
		r = NopRenderer{}
	}
	l := &Listener{
		renderer: r,
		forward:  DefaultForward,
		up:       DefaultUp,
		source:   source,
	}
	r.SetListenerOrientation(l.forward, l.up)
	return l
}

// SetOrientation updates the listener and forwards it to the renderer.
func (l *Listener) SetOrientation(forward, up r3.Vec) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	l.forward, l.up = forward, up
	l.renderer.SetListenerOrientation(forward, up)
	return nil
}

// Orientation returns the current forward and up vectors.
func (l *Listener) Orientation() (forward, up r3.Vec) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.forward, l.up
}

// SourceDirection returns the sound source's azimuth and elevation in
// degrees relative to where the listener faces. Positive azimuth is to the
// listener's right.
func (l *Listener) SourceDirection() (azimuth, elevation float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fwd := r3.Unit(l.forward)
	up := r3.Unit(l.up)
	right := r3.Cross(fwd, up)
	dir := l.source
	if r3.Norm(dir) == 0 {
		return 0, 0
	}
	dir = r3.Unit(dir)

	azimuth = math.Atan2(r3.Dot(dir, right), r3.Dot(dir, fwd)) * 180 / math.Pi
	elevation = math.Asin(math.Max(-1, math.Min(1, r3.Dot(dir, up)))) * 180 / math.Pi
	return azimuth, elevation
}

// Close releases the listener; later SetOrientation calls fail with ErrClosed.
// The renderer is reset to the default orientation.
func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	l.renderer.SetListenerOrientation(DefaultForward, DefaultUp)
	return nil
}
