// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package motion

import (
	"context"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/head_tracker/internal/orientation"
	"github.com/relabs-tech/head_tracker/internal/pipeline"
)

// Accelerometer reads raw acceleration counts. *mpu9250.MPU9250 satisfies it.
type Accelerometer interface {
	GetAccelerationX() (int16, error)
	GetAccelerationY() (int16, error)
	GetAccelerationZ() (int16, error)
}

// IMUSource derives head tilt from a head-mounted MPU9250. Gravity carries
// no heading, so yaw stays at zero until a magnetometer is fused in.
type IMUSource struct {
	imu      Accelerometer
	interval time.Duration
	now      func() time.Time
}

// NewIMUSource initializes an MPU9250 over SPI. Failing to reach the host
// or the chip is reported as ErrUnsupported.
func NewIMUSource(spiDev, csPin string, interval time.Duration) (*IMUSource, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("IMU: periph host init: %w: %v", ErrUnsupported, err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("IMU: CS pin %q not found: %w", csPin, ErrUnsupported)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("IMU: SPI transport (%s): %w: %v", spiDev, ErrUnsupported, err)
	}

	imu, err := mpu9250.New(*tr)
	if err != nil {
		return nil, fmt.Errorf("IMU: device creation: %w: %v", ErrUnsupported, err)
	}

	if err := imu.Init(); err != nil {
		return nil, fmt.Errorf("IMU: initialization: %w: %v", ErrUnsupported, err)
	}

	if err := imu.Calibrate(); err != nil {
		Logf("Warning: IMU calibration failed: %v", err)
	} else {
		Logf("IMU: calibration complete")
	}

	return NewAccelerometerSource(imu, interval), nil
}

// NewAccelerometerSource wraps any accelerometer.
func NewAccelerometerSource(a Accelerometer, interval time.Duration) *IMUSource {
	return &IMUSource{imu: a, interval: interval, now: time.Now}
}

// Next reads one accelerometer triple and turns the tilt into a sensor-frame
// rotation. A failed read is treated as a lost device.
func (s *IMUSource) Next() (orientation.RawSample, error) {
	ax, err := s.imu.GetAccelerationX()
	if err != nil {
		return orientation.RawSample{}, fmt.Errorf("IMU accel X: %w: %v", ErrDisconnected, err)
	}
	ay, err := s.imu.GetAccelerationY()
	if err != nil {
		return orientation.RawSample{}, fmt.Errorf("IMU accel Y: %w: %v", ErrDisconnected, err)
	}
	az, err := s.imu.GetAccelerationZ()
	if err != nil {
		return orientation.RawSample{}, fmt.Errorf("IMU accel Z: %w: %v", ErrDisconnected, err)
	}
	if ax == 0 && ay == 0 && az == 0 {
		// free fall or a chip that has not produced a conversion yet
		return orientation.RawSample{}, ErrNoData
	}

	pose := orientation.ComputePoseFromAccel(float64(ax), float64(ay), float64(az))
	return orientation.RawSample{
		Rotation:  SensorRotation(pose),
		Timestamp: s.now(),
	}, nil
}

func (s *IMUSource) Stream(ctx context.Context, q *pipeline.Queue) error {
	return Poll(ctx, q, s.interval, s)
}
