package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = "MQTT_BROKER=tcp://localhost:1883\n"

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader(minimal))
	require.NoError(t, err)

	assert.Equal(t, "tcp://localhost:1883", cfg.MQTTBroker)
	assert.Equal(t, SourceMock, cfg.MotionSource)
	assert.Equal(t, BasisSwapYZ, cfg.Basis)
	assert.Equal(t, 20*time.Millisecond, cfg.SampleEvery())
	assert.Equal(t, uint16(0x3C), cfg.DisplayI2CAddr)
	assert.Equal(t, 0.2, cfg.AudioSourceX)
	assert.Equal(t, 1.0, cfg.AudioSourceZ)
	assert.True(t, cfg.ReadoutEnabled)
	assert.False(t, cfg.DisplayEnabled)
}

func TestParse_AllKeys(t *testing.T) {
	in := `
# head tracker
MQTT_BROKER = tcp://pi.local:1883
MQTT_CLIENT_ID_TRACKER=t
MQTT_CLIENT_ID_PRODUCER=p
MQTT_CLIENT_ID_CONSOLE=c
MQTT_CLIENT_ID_WEB=w
TOPIC_RAW_SAMPLE=a/raw
TOPIC_SOURCE_STATUS=a/status
TOPIC_ORIENTATION=a/orientation
TOPIC_CALIBRATION=a/cal
MOTION_SOURCE=Serial
SERIAL_PORT=/dev/ttyUSB0
SERIAL_BAUD_RATE=9600
IMU_SPI_DEVICE=/dev/spidev0.0
IMU_CS_PIN=GPIO7
SAMPLE_INTERVAL=10
BASIS=identity
WEB_SERVER_PORT=9000
DISPLAY_ENABLED=true
DISPLAY_I2C_ADDR=0x3D
DISPLAY_UPDATE_INTERVAL=500
READOUT_ENABLED=false
AUDIO_SOURCE_X=-1
AUDIO_SOURCE_Y=0.5
AUDIO_SOURCE_Z=2
`
	cfg, err := Parse(strings.NewReader(in))
	require.NoError(t, err)

	want := &Config{
		MQTTBroker:            "tcp://pi.local:1883",
		MQTTClientIDTracker:   "t",
		MQTTClientIDProducer:  "p",
		MQTTClientIDConsole:   "c",
		MQTTClientIDWeb:       "w",
		TopicRawSample:        "a/raw",
		TopicSourceStatus:     "a/status",
		TopicOrientation:      "a/orientation",
		TopicCalibration:      "a/cal",
		MotionSource:          SourceSerial,
		SerialPort:            "/dev/ttyUSB0",
		SerialBaudRate:        9600,
		IMUSPIDevice:          "/dev/spidev0.0",
		IMUCSPin:              "GPIO7",
		SampleInterval:        10,
		Basis:                 BasisIdentity,
		WebServerPort:         9000,
		DisplayEnabled:        true,
		DisplayI2CAddr:        0x3D,
		DisplayUpdateInterval: 500,
		ReadoutEnabled:        false,
		AudioSourceX:          -1,
		AudioSourceY:          0.5,
		AudioSourceZ:          2,
	}
	assert.Equal(t, want, cfg)
	assert.Equal(t, 500*time.Millisecond, cfg.DisplayEvery())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"missing broker", "SAMPLE_INTERVAL=5\n", "MQTT_BROKER is required"},
		{"no equals", minimal + "JUSTAKEY\n", "invalid config line 2"},
		{"unknown key", minimal + "FOO=bar\n", `unknown config key: "FOO"`},
		{"bad int", minimal + "SAMPLE_INTERVAL=fast\n", "invalid SAMPLE_INTERVAL"},
		{"bad bool", minimal + "DISPLAY_ENABLED=maybe\n", "invalid DISPLAY_ENABLED"},
		{"bad addr", minimal + "DISPLAY_I2C_ADDR=zz\n", "invalid DISPLAY_I2C_ADDR"},
		{"addr not an ssd1306", minimal + "DISPLAY_I2C_ADDR=0x27\n", "DISPLAY_I2C_ADDR must be 0x3C or 0x3D, got 0x27"},
		{"zero interval", minimal + "SAMPLE_INTERVAL=0\n", "SAMPLE_INTERVAL must be positive"},
		{"unknown source", minimal + "MOTION_SOURCE=airpods\n", `unknown MOTION_SOURCE "airpods"`},
		{"serial without port", minimal + "MOTION_SOURCE=serial\n", "SERIAL_PORT is required"},
		{"imu without device", minimal + "MOTION_SOURCE=imu\n", "IMU_SPI_DEVICE is required"},
		{"unknown basis", minimal + "BASIS=z_up\n", `unknown BASIS "z_up"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.in))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "head_tracker_config.txt")
	require.NoError(t, os.WriteFile(path, []byte(minimal+"MOTION_SOURCE=mqtt\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, SourceMQTT, cfg.MotionSource)

	_, err = Load(filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorContains(t, err, "failed to open config file")
}
