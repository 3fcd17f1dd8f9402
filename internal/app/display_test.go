// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relabs-tech/gyro_conditioner/internal/imu"
)

func TestDisplayLines(t *testing.T) {
	d := &DisplayData{}
	assert.Equal(t, []string{"Gyro", "Waiting..."}, d.lines())

	d.setStatus(imu.CalibrationStatus{Progress: 0.25, Remaining: 750, Restarts: 2})
	assert.Equal(t, []string{"Calibrating", " 25.0%", "left: 750", "restarts: 2"}, d.lines())

	d.setStatus(imu.CalibrationStatus{Complete: true, ZeroOffset: [3]int32{12, -3, 0}})
	d.setOutput(imu.GyroOutput{ADC: [3]int32{1, -2, 300}})
	assert.Equal(t, []string{
		"Gyro",
		"X:     1",
		"Y:    -2",
		"Z:   300",
		"0:12 -3 0",
	}, d.lines())
}

func TestRenderLines(t *testing.T) {
	lit := func(pix []byte) int {
		n := 0
		for _, b := range pix {
			if b != 0 {
				n++
			}
		}
		return n
	}

	blank := renderLines(nil)
	assert.Equal(t, displayWidth*displayHeight/8, len(blank.Pix))
	assert.Zero(t, lit(blank.Pix))

	img := renderLines([]string{"Gyro", "X: 1"})
	assert.Positive(t, lit(img.Pix))

	// Lines past the bottom of the panel are dropped.
	many := renderLines([]string{"a", "b", "c", "d", "e", "f"})
	assert.Equal(t, len(blank.Pix), len(many.Pix))
}
