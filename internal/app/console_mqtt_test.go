// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relabs-tech/gyro_conditioner/internal/imu"
)

func TestConsoleFormats(t *testing.T) {
	assert.Contains(t, formatGyro(imu.GyroOutput{ADC: [3]int32{1, 2, 3}}), "[GYRO CAL]")
	assert.Contains(t, formatGyro(imu.GyroOutput{Calibrated: true, Tick: 9}), "tick=9")

	assert.Contains(t, formatStatus(imu.CalibrationStatus{Progress: 0.5, Remaining: 500, TotalCycles: 1000}),
		"calibrating  50.0% (500/1000 cycles left, 0 restarts)")
	assert.Contains(t, formatStatus(imu.CalibrationStatus{Complete: true, ZeroOffset: [3]int32{4, 5, 6}}),
		"zero=(4, 5, 6)")

	assert.Equal(t, "[EVNT] gyro_calibrated at now  zero=(1, 2, 3)",
		formatEvent(imu.GyroEvent{Event: "gyro_calibrated", Time: "now", ZeroOffset: [3]int32{1, 2, 3}}))
	assert.Contains(t, formatDebug(imu.GyroDebug{Mode: "gyro", Values: [3]int32{7, 8, 9}}), "[DBG gyro]")
}
