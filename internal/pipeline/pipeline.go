// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package pipeline drives normalize → calibrate → broadcast once per sample.
//
// All calibration and broadcast work happens on a single processing
// goroutine (Run, or whoever calls OnSample). User actions arrive from other
// goroutines through Recalibrate/ClearCalibration, which only enqueue a
// command; the queue is drained at the start of the next sample.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/relabs-tech/head_tracker/internal/broadcast"
	"github.com/relabs-tech/head_tracker/internal/calibration"
	"github.com/relabs-tech/head_tracker/internal/orientation"
)

// Outcome is the result of one OnSample call.
type Outcome int

const (
	Delivered Outcome = iota
	NoData
)

func (o Outcome) String() string {
	if o == Delivered {
		return "delivered"
	}
	return "no-data"
}

// defaultCommandDepth bounds queued calibration commands between samples.
const defaultCommandDepth = 8

// Logf is the pipeline's diagnostic logger. Tests may replace it.
var Logf = log.Printf

// Options configures a Pipeline.
type Options struct {
	// Basis is the sensor → world basis change. nil means SwapYZ.
	Basis *orientation.Transform
	// CommandDepth bounds pending calibration commands. Zero means 8.
	CommandDepth int
}

// Pipeline is the composition root: one normalizer, one calibration
// controller, one broadcaster and one status tracker.
type Pipeline struct {
	normalizer  *orientation.Normalizer
	calibration *calibration.Controller
	broadcaster *broadcast.Broadcaster
	status      *StatusTracker
	commands    chan calibration.Command

	// mu guards the calibration state as seen from other goroutines.
	mu       sync.Mutex
	queued   calibration.Command
	calState calibration.State
}

// New builds a Pipeline.
func New(opts Options) (*Pipeline, error) {
	basis := orientation.SwapYZ
	if opts.Basis != nil {
		basis = *opts.Basis
	}
	n, err := orientation.NewNormalizer(basis)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	depth := opts.CommandDepth
	if depth <= 0 {
		depth = defaultCommandDepth
	}

	return &Pipeline{
		normalizer:  n,
		calibration: calibration.NewController(),
		broadcaster: broadcast.New(),
		status:      NewStatusTracker(),
		commands:    make(chan calibration.Command, depth),
	}, nil
}

// Register adds a consumer for every subsequent sample.
func (p *Pipeline) Register(c broadcast.Consumer) broadcast.Handle {
	return p.broadcaster.Register(c)
}

// Unregister removes a consumer.
func (p *Pipeline) Unregister(h broadcast.Handle) bool {
	return p.broadcaster.Unregister(h)
}

// Status returns the tracker for connection status readouts.
func (p *Pipeline) Status() *StatusTracker {
	return p.status
}

// Recalibrate asks for the next sample to become the new zero orientation.
// Safe to call from any goroutine.
func (p *Pipeline) Recalibrate() {
	p.Submit(calibration.Recalibrate)
}

// ClearCalibration asks for the bias to be reset on the next sample.
// Safe to call from any goroutine.
func (p *Pipeline) ClearCalibration() {
	p.Submit(calibration.ClearCalibration)
}

// Submit enqueues a calibration command without blocking. When the queue is
// full the oldest command is discarded: only the most recent one can affect
// the next sample anyway.
func (p *Pipeline) Submit(cmd calibration.Command) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queued = cmd
	for {
		select {
		case p.commands <- cmd:
			return
		default:
		}
		select {
		case <-p.commands:
		default:
		}
	}
}

// OnSample processes one tick from the motion source. A nil raw sample is a
// no-data tick: nothing is normalized, calibrated or published, and pending
// calibration commands stay pending.
func (p *Pipeline) OnSample(raw *orientation.RawSample) Outcome {
	if raw == nil {
		p.status.NoData()
		return NoData
	}

	p.drainCommands()
	pending := p.calibration.State()

	t := p.calibration.Apply(p.normalizer.Normalize(*raw))
	if pending != calibration.Idle {
		Logf("pipeline: serviced %s", pending)
		p.mu.Lock()
		p.calState = p.calibration.State()
		p.mu.Unlock()
	}

	p.broadcaster.Publish(t)
	p.status.Delivered()
	return Delivered
}

// CalibrationState reports the pending calibration request, including a
// command submitted but not yet picked up by the processing goroutine. Safe
// to call from any goroutine.
func (p *Pipeline) CalibrationState() calibration.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.queued != 0 {
		return p.queued.Pending()
	}
	return p.calState
}

func (p *Pipeline) drainCommands() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		select {
		case cmd := <-p.commands:
			if err := p.calibration.Request(cmd); err != nil {
				Logf("pipeline: %v", err)
			}
		default:
			p.queued = 0
			p.calState = p.calibration.State()
			return
		}
	}
}

// HandleEvent applies one queued event. It must run on the processing goroutine.
func (p *Pipeline) HandleEvent(ev Event) {
	switch ev.Kind {
	case SampleEvent:
		p.OnSample(ev.Sample)
	case NoDataEvent:
		p.OnSample(nil)
	case ConnectedEvent:
		Logf("pipeline: motion source connected")
		p.status.Connected()
	case DisconnectedEvent:
		Logf("pipeline: motion source disconnected")
		p.status.Disconnected()
	case UnsupportedEvent:
		Logf("pipeline: motion unsupported: %v", ev.Err)
		p.status.Unsupported(ev.Err)
	}
}

// Run is the processing goroutine. Events are handled in the order the
// source queued them. It returns ctx.Err() on cancellation and nil once q is
// closed.
func (p *Pipeline) Run(ctx context.Context, q *Queue) error {
	for {
		ev, err := q.Next(ctx)
		if errors.Is(err, ErrClosed) {
			return nil
		}
		if err != nil {
			return err
		}
		p.HandleEvent(ev)
	}
}
