package orientation

import (
	"math"
)

// Pose is the human-readable form of an orientation, in degrees.
// Yaw turns about the world vertical (Y), pitch about X, roll about Z.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// gimbalLimit is |sin(pitch)| beyond which roll and yaw are no longer
// separable; roll is pinned to zero there.
const gimbalLimit = 1 - 1e-9

// PoseFromTransform decomposes t as Ry(yaw)·Rx(pitch)·Rz(roll).
func PoseFromTransform(t Transform) Pose {
	sp := -t[1][2]
	if sp > 1 {
		sp = 1
	} else if sp < -1 {
		sp = -1
	}
	pitch := math.Asin(sp)

	var roll, yaw float64
	if math.Abs(sp) >= gimbalLimit {
		yaw = math.Atan2(-t[2][0], t[0][0])
	} else {
		yaw = math.Atan2(t[0][2], t[2][2])
		roll = math.Atan2(t[1][0], t[1][1])
	}

	return Pose{
		Roll:  roll * 180.0 / math.Pi,
		Pitch: pitch * 180.0 / math.Pi,
		Yaw:   yaw * 180.0 / math.Pi,
	}
}

// TransformFromPose is the inverse of PoseFromTransform.
func TransformFromPose(p Pose) Transform {
	return RotationY(p.Yaw * math.Pi / 180.0).
		Mul(RotationX(p.Pitch * math.Pi / 180.0)).
		Mul(RotationZ(p.Roll * math.Pi / 180.0))
}

// ComputePoseFromAccel computes roll and pitch from accelerometer data only,
// in the sensor's own axes (Z up). Yaw is 0: gravity carries no heading.
//
// Uses simple tilt formulas:
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
func ComputePoseFromAccel(ax, ay, az float64) Pose {
	rollRad := math.Atan2(ay, az)
	pitchRad := math.Atan2(-ax, math.Sqrt(ay*ay+az*az))

	return Pose{
		Roll:  rollRad * 180.0 / math.Pi,
		Pitch: pitchRad * 180.0 / math.Pi,
		Yaw:   0,
	}
}
