package calibration

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/head_tracker/internal/orientation"
)

const tol = 1e-9

var (
	tilted = orientation.RotationY(0.8).Mul(orientation.RotationX(-0.3)).Mul(orientation.RotationZ(0.1))
	turned = orientation.RotationY(math.Pi / 2)
)

func TestController_StartsIdleWithIdentityBias(t *testing.T) {
	c := NewController()
	assert.Equal(t, Idle, c.State())
	assert.Equal(t, orientation.Identity(), c.Bias())
	assert.True(t, c.Apply(tilted).ApproxEqual(tilted, tol))
}

func TestController_CaptureZeroesTriggeringSample(t *testing.T) {
	c := NewController()
	c.RequestCapture()
	require.Equal(t, CaptureOnNextSample, c.State())

	assert.True(t, c.Apply(tilted).ApproxEqual(orientation.Identity(), tol))
	assert.Equal(t, Idle, c.State())

	// Same sample again: bias is fixed now, still identity.
	assert.True(t, c.Apply(tilted).ApproxEqual(orientation.Identity(), tol))
}

func TestController_OneShotCapture(t *testing.T) {
	c := NewController()
	c.RequestCapture()
	c.Apply(tilted)

	// A different second sample is not re-captured; it is bias·sample.
	got := c.Apply(turned)
	want := tilted.Inverse().Mul(turned)
	assert.True(t, got.ApproxEqual(want, tol))
	assert.False(t, got.ApproxEqual(orientation.Identity(), 1e-3))
}

func TestController_RepeatedCaptureRequestsCaptureOnce(t *testing.T) {
	c := NewController()
	c.RequestCapture()
	c.RequestCapture()
	c.RequestCapture()

	c.Apply(tilted)
	assert.Equal(t, Idle, c.State())
	assert.True(t, c.Bias().ApproxEqual(tilted.Inverse(), tol))

	got := c.Apply(turned)
	assert.True(t, got.ApproxEqual(tilted.Inverse().Mul(turned), tol))
}

func TestController_ClearResetsRegardlessOfHistory(t *testing.T) {
	c := NewController()
	for _, s := range []orientation.Transform{tilted, turned, orientation.RotationZ(2)} {
		c.RequestCapture()
		c.Apply(s)
	}

	c.RequestClear()
	assert.True(t, c.Apply(tilted).ApproxEqual(tilted, tol))
	assert.Equal(t, orientation.Identity(), c.Bias())
	assert.True(t, c.Apply(turned).ApproxEqual(turned, tol))
}

func TestController_MostRecentRequestWins(t *testing.T) {
	t.Run("clear after capture", func(t *testing.T) {
		c := NewController()
		c.RequestCapture()
		c.RequestClear()
		assert.Equal(t, ClearOnNextSample, c.State())
		assert.True(t, c.Apply(tilted).ApproxEqual(tilted, tol))
	})

	t.Run("capture after clear", func(t *testing.T) {
		c := NewController()
		c.RequestClear()
		c.RequestCapture()
		assert.Equal(t, CaptureOnNextSample, c.State())
		assert.True(t, c.Apply(tilted).ApproxEqual(orientation.Identity(), tol))
	})
}

func TestController_BiasStaysProper(t *testing.T) {
	c := NewController()
	c.RequestCapture()
	c.Apply(tilted)
	assert.True(t, c.Bias().IsProperRotation(tol))

	for i := 0; i < 1000; i++ {
		out := c.Apply(orientation.RotationY(float64(i) * 0.01))
		require.True(t, out.IsProperRotation(1e-6))
	}
}

func TestController_Request(t *testing.T) {
	c := NewController()
	require.NoError(t, c.Request(Recalibrate))
	assert.Equal(t, CaptureOnNextSample, c.State())

	require.NoError(t, c.Request(ClearCalibration))
	assert.Equal(t, ClearOnNextSample, c.State())

	assert.Error(t, c.Request(Command(42)))
	assert.Equal(t, ClearOnNextSample, c.State())
}

func TestCommand_PendingMatchesRequest(t *testing.T) {
	for _, cmd := range []Command{Recalibrate, ClearCalibration} {
		c := NewController()
		require.NoError(t, c.Request(cmd))
		assert.Equal(t, c.State(), cmd.Pending(), "%s", cmd)
	}
	assert.Equal(t, Idle, Command(42).Pending())
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in      string
		want    Command
		wantErr bool
	}{
		{"recalibrate", Recalibrate, false},
		{"clear", ClearCalibration, false},
		{"clear_calibration", ClearCalibration, false},
		{"reset", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCommand(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustParse(t, got.String()))
		})
	}
}

func mustParse(t *testing.T, s string) Command {
	t.Helper()
	c, err := ParseCommand(s)
	require.NoError(t, err)
	return c
}
