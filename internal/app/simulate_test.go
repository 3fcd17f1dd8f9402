// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulationStill(t *testing.T) {
	muteLogs(t)
	cfg := testConfig()
	cfg.MockBias = [3]float64{120, -40, 15}
	cfg.MockNoise = 3

	var buf bytes.Buffer
	report, err := RunSimulation(cfg, SimOptions{Ticks: 3000, PrintEvery: 500, Seed: 7}, &buf)
	require.NoError(t, err)

	assert.Equal(t, int64(1000), report.CalibratedAt)
	assert.Zero(t, report.Restarts)
	assert.InDelta(t, 120, report.ZeroOffset[0], 1)
	assert.InDelta(t, -40, report.ZeroOffset[1], 1)
	assert.InDelta(t, 15, report.ZeroOffset[2], 1)

	assert.Equal(t, 3000-1000-settleTicks, report.SamplesAnalysed)
	for axis := 0; axis < 3; axis++ {
		assert.InDelta(t, 3, report.RawStdDev[axis], 0.6, "axis %d", axis)
		assert.Less(t, report.FilteredStdDev[axis], report.RawStdDev[axis], "axis %d", axis)
		assert.InDelta(t, 0, report.FilteredMean[axis], 1, "axis %d", axis)
	}

	out := buf.String()
	assert.Contains(t, out, "[STAT] calibrating")
	assert.Contains(t, out, "[EVNT] gyro_calibrated")
	assert.Contains(t, out, "[STAT] calibrated")
}

func TestSimulationMovementBlocksCalibration(t *testing.T) {
	muteLogs(t)
	cfg := testConfig()
	cfg.MockNoise = 1

	var buf bytes.Buffer
	report, err := RunSimulation(cfg, SimOptions{
		Ticks:      2500,
		Seed:       3,
		MoveEvery:  400,
		MoveLength: 50,
		MoveAmp:    2000,
	}, &buf)
	require.NoError(t, err)

	assert.Equal(t, int64(-1), report.CalibratedAt)
	assert.Equal(t, uint32(2), report.Restarts)
	assert.Zero(t, report.SamplesAnalysed)
	assert.Empty(t, buf.String(), "nothing printed with PrintEvery 0")
}

func TestSimulationRejectsBadOptions(t *testing.T) {
	_, err := RunSimulation(testConfig(), SimOptions{}, &bytes.Buffer{})
	assert.Error(t, err)

	cfg := testConfig()
	cfg.LooptimeUs = 0
	_, err = RunSimulation(cfg, SimOptions{Ticks: 10}, &bytes.Buffer{})
	assert.Error(t, err)
}
