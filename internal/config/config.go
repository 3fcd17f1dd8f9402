// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/relabs-tech/gyro_conditioner/internal/alignment"
	"github.com/relabs-tech/gyro_conditioner/internal/filter"
	"github.com/relabs-tech/gyro_conditioner/internal/pipeline"
)

// Source kinds for GYRO_SOURCE.
const (
	SourceMPU9250 = "mpu9250"
	SourceMock    = "mock"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string
	MQTTClientIDProducer string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string
	MQTTClientIDDisplay  string

	// Topics
	TopicGyro       string
	TopicGyroStatus string
	TopicGyroEvent  string
	TopicGyroDebug  string
	TopicGyroCmd    string

	// Gyro hardware
	GyroSource    string // "mpu9250" or "mock"
	GyroSPIDevice string
	GyroCSPin     string
	// Gyroscope: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	GyroRange byte

	// Loop period in microseconds. This is the sample interval the filters
	// are designed for.
	LooptimeUs uint32

	// Alignment
	GyroAlign  alignment.SensorAlign
	BoardAlign alignment.BoardAngles

	// Filtering
	GyroLPFType      filter.Mode
	GyroLPFHz        uint16
	GyroNotch1Hz     uint16
	GyroNotch1Cutoff uint16
	GyroNotch2Hz     uint16
	GyroNotch2Cutoff uint16

	// Calibration: largest accepted standard deviation, 0 disables the check
	GyroMoveThreshold uint8

	DebugMode pipeline.DebugMode

	// Timing
	StatusInterval int // milliseconds

	// Simulation (GYRO_SOURCE=mock)
	MockNoise        float64
	MockVibrationHz  float64
	MockVibrationAmp float64
	MockBias         [3]float64

	// Web Server
	WebServerPort int

	// Display, an SSD1306 at the fixed address 0x3C
	DisplayUpdateInterval int // milliseconds
}

// Package-level singleton, set once by InitGlobal and read through Get.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the configuration used for keys a file leaves unset.
func Default() *Config {
	return &Config{
		MQTTClientIDProducer:  "gyro-producer",
		MQTTClientIDConsole:   "gyro-console",
		MQTTClientIDWeb:       "gyro-web",
		MQTTClientIDDisplay:   "gyro-display",
		TopicGyro:             "gyro/adc",
		TopicGyroStatus:       "gyro/status",
		TopicGyroEvent:        "gyro/event",
		TopicGyroDebug:        "gyro/debug",
		TopicGyroCmd:          "gyro/cmd",
		GyroSource:            SourceMPU9250,
		GyroRange:             3,
		GyroLPFType:           filter.ModeBiquad,
		GyroLPFHz:             90,
		GyroMoveThreshold:     32,
		StatusInterval:        500,
		WebServerPort:         8080,
		DisplayUpdateInterval: 250,
	}
}

// Load reads the configuration file and returns a Config struct. Files
// ending in .yaml or .yml are read as a YAML mapping of the same keys in
// any case; anything else is read as KEY=VALUE lines.
func Load(configPath string) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		cfg, err = loadYAML(configPath)
	default:
		cfg, err = loadKeyValue(configPath)
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadKeyValue(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
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
	return cfg, nil
}

func loadYAML(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := Default()
	if len(doc.Content) == 0 {
		return cfg, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("config line %d: top level must be a mapping", root.Line)
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		k, v := root.Content[i], root.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("config line %d: %q must be a scalar", v.Line, k.Value)
		}
		if err := cfg.setValue(strings.ToUpper(k.Value), v.Value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", k.Line, err)
		}
	}
	return cfg, nil
}

func parseUint(key, value string, maxVal uint64) (uint64, error) {
	v, err := strconv.ParseUint(value, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v > maxVal {
		return 0, fmt.Errorf("%s must be 0-%d, got %d", key, maxVal, v)
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

func parseInt(key, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_GYRO":
		c.TopicGyro = value
	case "TOPIC_GYRO_STATUS":
		c.TopicGyroStatus = value
	case "TOPIC_GYRO_EVENT":
		c.TopicGyroEvent = value
	case "TOPIC_GYRO_DEBUG":
		c.TopicGyroDebug = value
	case "TOPIC_GYRO_CMD":
		c.TopicGyroCmd = value

	// Gyro hardware
	case "GYRO_SOURCE":
		v := strings.ToLower(value)
		if v != SourceMPU9250 && v != SourceMock {
			return fmt.Errorf("GYRO_SOURCE must be %q or %q, got %q", SourceMPU9250, SourceMock, value)
		}
		c.GyroSource = v
	case "GYRO_SPI_DEVICE":
		c.GyroSPIDevice = value
	case "GYRO_CS_PIN":
		c.GyroCSPin = value
	case "GYRO_RANGE":
		v, err := parseUint(key, value, 3)
		if err != nil {
			return fmt.Errorf("%w (0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s)", err)
		}
		c.GyroRange = byte(v)

	case "LOOPTIME_US":
		v, err := parseUint(key, value, 1_000_000)
		if err != nil {
			return err
		}
		c.LooptimeUs = uint32(v)

	// Alignment
	case "GYRO_ALIGN":
		c.GyroAlign, err = alignment.ParseSensorAlign(value)
	case "BOARD_ALIGN_ROLL":
		c.BoardAlign.Roll, err = parseFloat(key, value)
	case "BOARD_ALIGN_PITCH":
		c.BoardAlign.Pitch, err = parseFloat(key, value)
	case "BOARD_ALIGN_YAW":
		c.BoardAlign.Yaw, err = parseFloat(key, value)

	// Filtering
	case "GYRO_LPF_TYPE":
		c.GyroLPFType, err = filter.ParseMode(value)
	case "GYRO_LPF_HZ":
		v, err := parseUint(key, value, 1000)
		if err != nil {
			return err
		}
		c.GyroLPFHz = uint16(v)
	case "GYRO_NOTCH1_HZ", "GYRO_NOTCH1_CUTOFF", "GYRO_NOTCH2_HZ", "GYRO_NOTCH2_CUTOFF":
		v, err := parseUint(key, value, 16000)
		if err != nil {
			return err
		}
		switch key {
		case "GYRO_NOTCH1_HZ":
			c.GyroNotch1Hz = uint16(v)
		case "GYRO_NOTCH1_CUTOFF":
			c.GyroNotch1Cutoff = uint16(v)
		case "GYRO_NOTCH2_HZ":
			c.GyroNotch2Hz = uint16(v)
		default:
			c.GyroNotch2Cutoff = uint16(v)
		}

	case "GYRO_MOVE_THRESHOLD":
		v, err := parseUint(key, value, 255)
		if err != nil {
			return err
		}
		c.GyroMoveThreshold = uint8(v)

	case "DEBUG_MODE":
		c.DebugMode, err = pipeline.ParseDebugMode(value)

	// Timing
	case "STATUS_INTERVAL":
		c.StatusInterval, err = parseInt(key, value)

	// Simulation
	case "MOCK_NOISE":
		c.MockNoise, err = parseFloat(key, value)
	case "MOCK_VIBRATION_HZ":
		c.MockVibrationHz, err = parseFloat(key, value)
	case "MOCK_VIBRATION_AMP":
		c.MockVibrationAmp, err = parseFloat(key, value)
	case "MOCK_BIAS_X":
		c.MockBias[0], err = parseFloat(key, value)
	case "MOCK_BIAS_Y":
		c.MockBias[1], err = parseFloat(key, value)
	case "MOCK_BIAS_Z":
		c.MockBias[2], err = parseFloat(key, value)

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value)

	// Display
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = parseInt(key, value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

// validate checks that required fields are set and that the filter
// parameters describe realisable stages.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.LooptimeUs == 0 {
		return fmt.Errorf("LOOPTIME_US is required")
	}
	if c.GyroSource == SourceMPU9250 {
		if c.GyroSPIDevice == "" {
			return fmt.Errorf("GYRO_SPI_DEVICE is required")
		}
		if c.GyroCSPin == "" {
			return fmt.Errorf("GYRO_CS_PIN is required")
		}
	}
	if err := validateNotch("GYRO_NOTCH1", c.GyroNotch1Hz, c.GyroNotch1Cutoff); err != nil {
		return err
	}
	if err := validateNotch("GYRO_NOTCH2", c.GyroNotch2Hz, c.GyroNotch2Cutoff); err != nil {
		return err
	}
	if c.StatusInterval <= 0 {
		return fmt.Errorf("STATUS_INTERVAL must be positive")
	}
	return nil
}

func validateNotch(prefix string, center, cutoff uint16) error {
	if center == 0 {
		return nil
	}
	if cutoff == 0 || cutoff >= center {
		return fmt.Errorf("%s_CUTOFF must be between 1 and %s_HZ-1 (%d), got %d", prefix, prefix, center-1, cutoff)
	}
	return nil
}

// FilterConfig returns the filter chain parameters for the configured loop time.
func (c *Config) FilterConfig() filter.Config {
	return filter.Config{
		Mode:       c.GyroLPFType,
		CutoffHz:   c.GyroLPFHz,
		Notch1:     filter.NotchConfig{CenterHz: c.GyroNotch1Hz, CutoffHz: c.GyroNotch1Cutoff},
		Notch2:     filter.NotchConfig{CenterHz: c.GyroNotch2Hz, CutoffHz: c.GyroNotch2Cutoff},
		LooptimeUs: c.LooptimeUs,
	}
}

// Settings converts the configuration into pipeline settings.
func (c *Config) Settings() pipeline.Settings {
	return pipeline.Settings{
		MovementThreshold: c.GyroMoveThreshold,
		Filter:            c.FilterConfig(),
	}
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
