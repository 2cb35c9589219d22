// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package calibration holds the user-adjustable "zero" orientation.
//
// A Controller keeps a bias transform and a single pending request slot.
// Requests are one-shot: each one is serviced by the next Apply call and the
// controller then returns to Idle. Only one request is held at a time, so
// the most recent RequestCapture/RequestClear wins.
//
// The bias is applied after normalization, on the left: bias·normalized.
// The bias is therefore expressed in the world frame.
//
// A Controller is not safe for concurrent use. It is owned by the pipeline's
// processing goroutine; other goroutines send Commands to the pipeline instead.
package calibration

import (
	"fmt"

	"github.com/relabs-tech/head_tracker/internal/orientation"
)

// State is the pending calibration request.
type State int

const (
	Idle State = iota
	CaptureOnNextSample
	ClearOnNextSample
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case CaptureOnNextSample:
		return "capture-on-next-sample"
	case ClearOnNextSample:
		return "clear-on-next-sample"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Command is a user calibration action.
type Command int

const (
	Recalibrate Command = iota + 1
	ClearCalibration
)

func (c Command) String() string {
	switch c {
	case Recalibrate:
		return "recalibrate"
	case ClearCalibration:
		return "clear"
	default:
		return fmt.Sprintf("Command(%d)", int(c))
	}
}

// Pending is the controller state the command leads to once requested.
func (c Command) Pending() State {
	switch c {
	case Recalibrate:
		return CaptureOnNextSample
	case ClearCalibration:
		return ClearOnNextSample
	default:
		return Idle
	}
}

// ParseCommand maps the wire names used on MQTT and websocket ("recalibrate",
// "clear") to a Command.
func ParseCommand(s string) (Command, error) {
	switch s {
	case "recalibrate":
		return Recalibrate, nil
	case "clear", "clear_calibration":
		return ClearCalibration, nil
	default:
		return 0, fmt.Errorf("unknown calibration command %q", s)
	}
}

// Controller converts a normalized rotation into a calibration-adjusted one.
type Controller struct {
	state State
	bias  orientation.Transform
}

// NewController returns a controller with identity bias and no pending request.
func NewController() *Controller {
	return &Controller{bias: orientation.Identity()}
}

// RequestCapture arms a capture on the next sample. Repeated calls before
// the next sample still capture exactly once.
func (c *Controller) RequestCapture() {
	c.state = CaptureOnNextSample
}

// RequestClear arms a bias reset on the next sample, replacing any pending capture.
func (c *Controller) RequestClear() {
	c.state = ClearOnNextSample
}

// Request dispatches a Command to RequestCapture or RequestClear.
func (c *Controller) Request(cmd Command) error {
	switch cmd {
	case Recalibrate:
		c.RequestCapture()
	case ClearCalibration:
		c.RequestClear()
	default:
		return fmt.Errorf("calibration: unsupported command %v", cmd)
	}
	return nil
}

// Apply services any pending request and returns bias·normalized.
func (c *Controller) Apply(normalized orientation.Transform) orientation.Transform {
	switch c.state {
	case CaptureOnNextSample:
		c.bias = normalized.Inverse().Orthonormalize()
		c.state = Idle
	case ClearOnNextSample:
		c.bias = orientation.Identity()
		c.state = Idle
		return normalized
	}
	return c.bias.Mul(normalized)
}

// State returns the pending request.
func (c *Controller) State() State {
	return c.state
}

// Bias returns the current bias transform.
func (c *Controller) Bias() orientation.Transform {
	return c.bias
}
