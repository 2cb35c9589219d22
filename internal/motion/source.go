// Package motion adapts rotation producers (mock, MQTT, serial NMEA, SPI IMU)
// to the pipeline's event queue.
package motion

import (
	"context"
	"errors"
	"log"
	"math"
	"time"

	"github.com/relabs-tech/head_tracker/internal/orientation"
	"github.com/relabs-tech/head_tracker/internal/pipeline"
)

var (
	// ErrNoData means the source is alive but has no reading this tick.
	ErrNoData = errors.New("no motion data")
	// ErrDisconnected means the source lost its device; it may come back.
	ErrDisconnected = errors.New("motion source disconnected")
	// ErrUnsupported means the device cannot produce motion at all.
	ErrUnsupported = errors.New("motion unsupported")
)

// Logf is the package diagnostic logger. Tests may replace it.
var Logf = log.Printf

// Source feeds a pipeline queue until ctx is cancelled or the source fails.
type Source interface {
	Stream(ctx context.Context, q *pipeline.Queue) error
}

// Poller is a pull-style source read once per tick.
type Poller interface {
	Next() (orientation.RawSample, error)
}

// SensorRotation builds a sensor-frame (Z up) rotation from a pose whose
// yaw turns about the sensor Z axis: Rz(yaw)·Ry(pitch)·Rx(roll).
func SensorRotation(p orientation.Pose) [3][3]float64 {
	const deg = math.Pi / 180.0
	return orientation.RotationZ(p.Yaw * deg).
		Mul(orientation.RotationY(p.Pitch * deg)).
		Mul(orientation.RotationX(p.Roll * deg)).
		Linear()
}

// Poll drives a Poller at a fixed interval and translates its errors into
// queue events. ErrUnsupported is reported once and ends the loop.
func Poll(ctx context.Context, q *pipeline.Queue, interval time.Duration, src Poller) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	connected := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		s, err := src.Next()
		switch {
		case err == nil:
			if !connected {
				q.Push(pipeline.Event{Kind: pipeline.ConnectedEvent})
				connected = true
			}
			q.PushSample(s)
		case errors.Is(err, ErrUnsupported):
			q.Push(pipeline.Event{Kind: pipeline.UnsupportedEvent, Err: err})
			return err
		case errors.Is(err, ErrDisconnected):
			if connected {
				q.Push(pipeline.Event{Kind: pipeline.DisconnectedEvent, Err: err})
				connected = false
			}
			q.PushNoData()
		case errors.Is(err, ErrNoData):
			q.PushNoData()
		default:
			Logf("motion: read error: %v", err)
			q.PushNoData()
		}
	}
}
