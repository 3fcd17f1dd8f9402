// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

// Axis indexes.
const (
	X = iota
	Y
	Z
	AxisCount
)

// GyroRaw is one raw angular-rate triple as read from the sensor.
type GyroRaw [AxisCount]int16

// Widen converts to the working integer width.
func (g GyroRaw) Widen() [AxisCount]int32 {
	return [AxisCount]int32{int32(g[X]), int32(g[Y]), int32(g[Z])}
}

// GyroOutput is the snapshot published after every tick.
type GyroOutput struct {
	Source string `json:"source,omitempty"`

	ADC  [AxisCount]int32   `json:"adc"`  // rounded filtered value
	ADCf [AxisCount]float32 `json:"adcf"` // filtered value

	Calibrated bool  `json:"calibrated"`
	Tick       int64 `json:"tick"`
}

// GyroDebug carries the values of the selected debug channel.
type GyroDebug struct {
	Mode   string           `json:"mode"` // "gyro" or "notch"
	Values [AxisCount]int32 `json:"values"`
	Tick   int64            `json:"tick"`
}

// CalibrationStatus describes the zero-offset calibration for telemetry.
type CalibrationStatus struct {
	Complete    bool               `json:"complete"`
	Progress    float32            `json:"progress"`
	Remaining   uint32             `json:"remaining"`
	TotalCycles uint32             `json:"total_cycles"`
	Restarts    uint32             `json:"restarts"`
	ZeroOffset  [AxisCount]int32   `json:"zero_offset"`
	StdDev      [AxisCount]float32 `json:"stddev"`
}

// GyroEvent is published when a calibration completes.
type GyroEvent struct {
	Event      string           `json:"event"`
	ZeroOffset [AxisCount]int32 `json:"zero_offset"`
	Time       string           `json:"time"`
}

// GyroSource yields raw gyro triples. ok is false when no new sample is
// available.
type GyroSource interface {
	ReadGyro() (GyroRaw, bool)
}
