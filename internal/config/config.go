package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Motion sources selectable with MOTION_SOURCE.
const (
	SourceMock   = "mock"
	SourceMQTT   = "mqtt"
	SourceSerial = "serial"
	SourceIMU    = "imu"
)

// Basis names selectable with BASIS.
const (
	BasisSwapYZ   = "swap_yz"
	BasisIdentity = "identity"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string
	MQTTClientIDTracker  string
	MQTTClientIDProducer string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string

	// Topics
	TopicRawSample    string // device rotation samples (producer -> tracker)
	TopicSourceStatus string // connected / disconnected / unsupported
	TopicOrientation  string // corrected orientation (tracker -> consumers)
	TopicCalibration  string // recalibrate / clear

	// Motion source
	MotionSource   string
	SerialPort     string
	SerialBaudRate int
	IMUSPIDevice   string
	IMUCSPin       string
	SampleInterval int // milliseconds

	// Coordinate normalization
	Basis string

	// Web Server
	WebServerPort int

	// Display
	DisplayEnabled        bool
	DisplayI2CAddr        uint16
	DisplayUpdateInterval int // milliseconds

	// Console readout
	ReadoutEnabled bool

	// Spatial audio source position
	AudioSourceX float64
	AudioSourceY float64
	AudioSourceZ float64
}

// Package-level singleton: set once by InitGlobal, read with Get.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a Config with every optional key filled in.
func Default() *Config {
	return &Config{
		MQTTClientIDTracker:   "head-tracker",
		MQTTClientIDProducer:  "head-tracker-producer",
		MQTTClientIDConsole:   "head-tracker-console",
		MQTTClientIDWeb:       "head-tracker-web",
		TopicRawSample:        "head/raw",
		TopicSourceStatus:     "head/status",
		TopicOrientation:      "head/orientation",
		TopicCalibration:      "head/calibration",
		MotionSource:          SourceMock,
		SerialBaudRate:        115200,
		IMUCSPin:              "GPIO8",
		SampleInterval:        20,
		Basis:                 BasisSwapYZ,
		WebServerPort:         8080,
		DisplayI2CAddr:        0x3C,
		DisplayUpdateInterval: 200,
		ReadoutEnabled:        true,
		AudioSourceX:          0.2,
		AudioSourceY:          0,
		AudioSourceZ:          1,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads KEY=VALUE lines on top of Default. Blank lines and lines
// starting with # are skipped.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_TRACKER":
		c.MQTTClientIDTracker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value

	// Topics
	case "TOPIC_RAW_SAMPLE":
		c.TopicRawSample = value
	case "TOPIC_SOURCE_STATUS":
		c.TopicSourceStatus = value
	case "TOPIC_ORIENTATION":
		c.TopicOrientation = value
	case "TOPIC_CALIBRATION":
		c.TopicCalibration = value

	// Motion source
	case "MOTION_SOURCE":
		c.MotionSource = strings.ToLower(value)
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		c.SerialBaudRate, err = parseInt(key, value)
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "SAMPLE_INTERVAL":
		c.SampleInterval, err = parseInt(key, value)
	case "BASIS":
		c.Basis = strings.ToLower(value)

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value)

	// Display
	case "DISPLAY_ENABLED":
		c.DisplayEnabled, err = parseBool(key, value)
	case "DISPLAY_I2C_ADDR":
		addr, perr := strconv.ParseUint(value, 0, 16)
		if perr != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, perr)
		}
		c.DisplayI2CAddr = uint16(addr)
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = parseInt(key, value)

	case "READOUT_ENABLED":
		c.ReadoutEnabled, err = parseBool(key, value)

	// Audio
	case "AUDIO_SOURCE_X":
		c.AudioSourceX, err = parseFloat(key, value)
	case "AUDIO_SOURCE_Y":
		c.AudioSourceY, err = parseFloat(key, value)
	case "AUDIO_SOURCE_Z":
		c.AudioSourceZ, err = parseFloat(key, value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

func parseInt(key, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func parseBool(key, value string) (bool, error) {
	v, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func parseFloat(key, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

// validate checks that all required fields are set and consistent.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.SampleInterval <= 0 {
		return fmt.Errorf("SAMPLE_INTERVAL must be positive")
	}
	if c.DisplayUpdateInterval <= 0 {
		return fmt.Errorf("DISPLAY_UPDATE_INTERVAL must be positive")
	}
	// SSD1306 modules answer on 0x3C or, with SA0 pulled high, 0x3D
	if c.DisplayI2CAddr != 0x3C && c.DisplayI2CAddr != 0x3D {
		return fmt.Errorf("DISPLAY_I2C_ADDR must be 0x3C or 0x3D, got 0x%02X", c.DisplayI2CAddr)
	}

	switch c.MotionSource {
	case SourceMock, SourceMQTT:
	case SourceSerial:
		if c.SerialPort == "" {
			return fmt.Errorf("SERIAL_PORT is required for MOTION_SOURCE=serial")
		}
		if c.SerialBaudRate <= 0 {
			return fmt.Errorf("SERIAL_BAUD_RATE must be positive")
		}
	case SourceIMU:
		if c.IMUSPIDevice == "" {
			return fmt.Errorf("IMU_SPI_DEVICE is required for MOTION_SOURCE=imu")
		}
	default:
		return fmt.Errorf("unknown MOTION_SOURCE %q", c.MotionSource)
	}

	switch c.Basis {
	case BasisSwapYZ, BasisIdentity:
	default:
		return fmt.Errorf("unknown BASIS %q", c.Basis)
	}
	return nil
}

// SampleEvery is SAMPLE_INTERVAL as a duration.
func (c *Config) SampleEvery() time.Duration {
	return time.Duration(c.SampleInterval) * time.Millisecond
}

// DisplayEvery is DISPLAY_UPDATE_INTERVAL as a duration.
func (c *Config) DisplayEvery() time.Duration {
	return time.Duration(c.DisplayUpdateInterval) * time.Millisecond
}

// InitGlobal initializes the global configuration from file.
// Only the first call has any effect.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance, or nil before InitGlobal.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
