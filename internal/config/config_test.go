package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/gyro_conditioner/internal/alignment"
	"github.com/relabs-tech/gyro_conditioner/internal/filter"
	"github.com/relabs-tech/gyro_conditioner/internal/pipeline"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const keyValueConfig = `
# broker
MQTT_BROKER=tcp://localhost:1883
GYRO_SPI_DEVICE=/dev/spidev0.0
GYRO_CS_PIN=GPIO8
GYRO_RANGE=2
LOOPTIME_US=125
GYRO_ALIGN=cw270flip
BOARD_ALIGN_YAW=45
GYRO_LPF_TYPE=pt1
GYRO_LPF_HZ=100
GYRO_NOTCH1_HZ=300
GYRO_NOTCH1_CUTOFF=200
GYRO_MOVE_THRESHOLD=48
DEBUG_MODE=notch
DISPLAY_UPDATE_INTERVAL=100
`

func TestLoadKeyValue(t *testing.T) {
	cfg, err := Load(writeFile(t, "gyro_config.txt", keyValueConfig))
	require.NoError(t, err)

	assert.Equal(t, "tcp://localhost:1883", cfg.MQTTBroker)
	assert.Equal(t, byte(2), cfg.GyroRange)
	assert.Equal(t, uint32(125), cfg.LooptimeUs)
	assert.Equal(t, alignment.CW270Flip, cfg.GyroAlign)
	assert.Equal(t, 45.0, cfg.BoardAlign.Yaw)
	assert.Equal(t, pipeline.DebugNotch, cfg.DebugMode)
	assert.Equal(t, 100, cfg.DisplayUpdateInterval)

	// defaults survive for unset keys
	assert.Equal(t, "gyro/adc", cfg.TopicGyro)
	assert.Equal(t, SourceMPU9250, cfg.GyroSource)

	assert.Equal(t, pipeline.Settings{
		MovementThreshold: 48,
		Filter: filter.Config{
			Mode:       filter.ModePT1,
			CutoffHz:   100,
			Notch1:     filter.NotchConfig{CenterHz: 300, CutoffHz: 200},
			LooptimeUs: 125,
		},
	}, cfg.Settings())
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "gyro.yaml", `
mqtt_broker: tcp://broker:1883
gyro_source: mock
looptime_us: 1000
gyro_lpf_type: fir
gyro_lpf_hz: 50
gyro_move_threshold: 0
mock_noise: 2.5
mock_bias_x: 14
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, SourceMock, cfg.GyroSource)
	assert.Equal(t, filter.ModeFIRDenoise, cfg.GyroLPFType)
	assert.Equal(t, uint16(50), cfg.GyroLPFHz)
	assert.Equal(t, uint8(0), cfg.GyroMoveThreshold)
	assert.Equal(t, 2.5, cfg.MockNoise)
	assert.Equal(t, [3]float64{14, 0, 0}, cfg.MockBias)
}

func TestLoadErrors(t *testing.T) {
	base := "MQTT_BROKER=tcp://localhost:1883\nGYRO_SOURCE=mock\nLOOPTIME_US=1000\n"
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"unknown key", "c.txt", base + "GYRO_FOO=1\n", `unknown config key: "GYRO_FOO"`},
		{"bad line", "c.txt", base + "GYRO_RANGE\n", "invalid config line 4"},
		{"range", "c.txt", base + "GYRO_RANGE=4\n", "GYRO_RANGE must be 0-3"},
		{"threshold", "c.txt", base + "GYRO_MOVE_THRESHOLD=300\n", "GYRO_MOVE_THRESHOLD must be 0-255"},
		{"lpf type", "c.txt", base + "GYRO_LPF_TYPE=median\n", "unknown filter mode"},
		{"notch cutoff above center", "c.txt", base + "GYRO_NOTCH2_HZ=200\nGYRO_NOTCH2_CUTOFF=250\n", "GYRO_NOTCH2_CUTOFF must be between 1 and GYRO_NOTCH2_HZ-1"},
		{"notch cutoff missing", "c.txt", base + "GYRO_NOTCH1_HZ=200\n", "GYRO_NOTCH1_CUTOFF"},
		{"missing looptime", "c.txt", "MQTT_BROKER=tcp://x:1883\nGYRO_SOURCE=mock\n", "LOOPTIME_US is required"},
		{"missing broker", "c.txt", "GYRO_SOURCE=mock\nLOOPTIME_US=1000\n", "MQTT_BROKER is required"},
		{"missing spi device", "c.txt", "MQTT_BROKER=tcp://x:1883\nLOOPTIME_US=1000\n", "GYRO_SPI_DEVICE is required"},
		{"display address is fixed", "c.txt", base + "DISPLAY_I2C_ADDR=0x3D\n", `unknown config key: "DISPLAY_I2C_ADDR"`},
		{"bad source", "c.txt", base + "GYRO_SOURCE=bmi270\n", "GYRO_SOURCE must be"},
		{"yaml nested", "c.yaml", "mqtt_broker:\n  host: x\n", `"mqtt_broker" must be a scalar`},
		{"yaml list", "c.yml", "- a\n- b\n", "top level must be a mapping"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestGlobal(t *testing.T) {
	path := writeFile(t, "gyro_config.txt", keyValueConfig)
	require.NoError(t, InitGlobal(path))
	require.NotNil(t, Get())
	assert.Equal(t, uint32(125), Get().LooptimeUs)

	// later calls keep the first configuration
	require.NoError(t, InitGlobal("does-not-exist.txt"))
	assert.Equal(t, uint32(125), Get().LooptimeUs)
}
