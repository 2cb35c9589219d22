// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package motion

import (
	"context"
	"math"
	"time"

	"github.com/relabs-tech/head_tracker/internal/orientation"
	"github.com/relabs-tech/head_tracker/internal/pipeline"
)

// MockSource generates smooth head motion: looking left and right, nodding
// a little, with a slight tilt.
type MockSource struct {
	start    time.Time
	now      func() time.Time
	interval time.Duration
}

// NewMockSource creates a mock source that ticks every interval.
func NewMockSource(interval time.Duration) *MockSource {
	return &MockSource{start: time.Now(), now: time.Now, interval: interval}
}

// Pose returns the synthetic head pose at the current time.
func (m *MockSource) Pose() orientation.Pose {
	elapsed := m.now().Sub(m.start).Seconds()

	return orientation.Pose{
		Roll:  5 * math.Sin(elapsed*1.3),
		Pitch: 15 * math.Cos(elapsed*0.7),
		Yaw:   60 * math.Sin(elapsed*0.5),
	}
}

func (m *MockSource) Next() (orientation.RawSample, error) {
	return orientation.RawSample{
		Rotation:  SensorRotation(m.Pose()),
		Timestamp: m.now(),
	}, nil
}

func (m *MockSource) Stream(ctx context.Context, q *pipeline.Queue) error {
	return Poll(ctx, q, m.interval, m)
}
