// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"

	"github.com/relabs-tech/gyro_conditioner/internal/config"
	"github.com/relabs-tech/gyro_conditioner/internal/imu"
	"github.com/relabs-tech/gyro_conditioner/internal/monitoring"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"
)

// gyroRangeDPS maps GYRO_RANGE to full scale in degrees per second.
var gyroRangeDPS = []int{250, 500, 1000, 2000}

type gyroSource struct {
	name     string
	imu      *mpu9250.MPU9250
	logError func(format string, v ...interface{})
}

// NewGyroSource initializes the MPU9250 over SPI using the global config and
// returns it as a gyro sample source.
func NewGyroSource() (imu.GyroSource, error) {
	cfg := config.Get()
	return newGyroSource("gyro", cfg.GyroSPIDevice, cfg.GyroCSPin, cfg.GyroRange)
}

func newGyroSource(name, spiDev, csPin string, gyroRange byte) (imu.GyroSource, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%s IMU: periph host init: %w", name, err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("%s IMU: CS pin %q not found", name, csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("%s IMU: SPI transport (%s): %w", name, spiDev, err)
	}

	dev, err := mpu9250.New(*tr)
	if err != nil {
		return nil, fmt.Errorf("%s IMU: device creation: %w", name, err)
	}

	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("%s IMU: initialization: %w", name, err)
	}

	if err := dev.SetGyroRange(gyroRange); err != nil {
		return nil, fmt.Errorf("%s IMU: set gyro range: %w", name, err)
	}
	monitoring.Logf("%s IMU: gyroscope range set to %d (±%d°/s)", name, gyroRange, gyroRangeDPS[gyroRange])

	return &gyroSource{
		name:     name,
		imu:      dev,
		logError: monitoring.Every(1000),
	}, nil
}

// ReadGyro reads one gyro triple. A failed register read makes the sample
// unavailable for this tick; errors are logged at a reduced rate.
func (s *gyroSource) ReadGyro() (imu.GyroRaw, bool) {
	gx, err := s.imu.GetRotationX()
	if err != nil {
		s.logError("%s IMU gyro X: %v", s.name, err)
		return imu.GyroRaw{}, false
	}
	gy, err := s.imu.GetRotationY()
	if err != nil {
		s.logError("%s IMU gyro Y: %v", s.name, err)
		return imu.GyroRaw{}, false
	}
	gz, err := s.imu.GetRotationZ()
	if err != nil {
		s.logError("%s IMU gyro Z: %v", s.name, err)
		return imu.GyroRaw{}, false
	}
	return imu.GyroRaw{gx, gy, gz}, true
}
