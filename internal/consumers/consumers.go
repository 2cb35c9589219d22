// Package consumers holds the broadcast.Consumer implementations that react
// to each corrected head orientation: a model pose, the audio listener, a
// text readout, an MQTT publisher, an OLED display and a websocket hub.
package consumers

import (
	"log"
	"time"

	"github.com/relabs-tech/head_tracker/internal/orientation"
)

// Logf is the consumers' diagnostic logger. Tests may replace it.
var Logf = log.Printf

// OrientationMessage is the wire form of one corrected orientation, shared
// by the MQTT publisher and the websocket hub.
type OrientationMessage struct {
	Pose   orientation.Pose `json:"pose"`
	Matrix [3][3]float64    `json:"matrix"`
	Time   time.Time        `json:"ts"`
}

// NewOrientationMessage snapshots t at ts.
func NewOrientationMessage(t orientation.Transform, ts time.Time) OrientationMessage {
	return OrientationMessage{
		Pose:   orientation.PoseFromTransform(t),
		Matrix: t.Linear(),
		Time:   ts,
	}
}

// Transform rebuilds the rotation carried by the message.
func (m OrientationMessage) Transform() orientation.Transform {
	return orientation.FromRotationMatrix(m.Matrix)
}
