// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package pipeline

import (
	"fmt"
	"strings"

	"github.com/relabs-tech/gyro_conditioner/internal/imu"
)

// DebugMode selects which intermediate value an Observer is shown.
type DebugMode int

const (
	DebugNone DebugMode = iota
	// DebugGyro taps the offset-corrected integer sample before filtering.
	DebugGyro
	// DebugNotch taps the rounded output of the primary stage, before the notches.
	DebugNotch
)

func (m DebugMode) String() string {
	switch m {
	case DebugGyro:
		return "gyro"
	case DebugNotch:
		return "notch"
	}
	return "none"
}

func ParseDebugMode(s string) (DebugMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "off":
		return DebugNone, nil
	case "gyro":
		return DebugGyro, nil
	case "notch":
		return DebugNotch, nil
	}
	return DebugNone, fmt.Errorf("unknown debug mode %q (want none, gyro or notch)", s)
}

// Observer receives debug taps during Tick. It must not block or retain
// the pipeline.
type Observer interface {
	DebugMode() DebugMode
	Record(axis int, value int32)
}

// Taps is an Observer that keeps the last recorded value per axis.
type Taps struct {
	Mode   DebugMode
	Values [imu.AxisCount]int32
	// Fresh is set by Record and cleared by Take.
	Fresh bool
}

func (t *Taps) DebugMode() DebugMode { return t.Mode }

func (t *Taps) Record(axis int, value int32) {
	t.Values[axis] = value
	t.Fresh = true
}

// Take returns the values if anything was recorded since the last call.
func (t *Taps) Take() ([imu.AxisCount]int32, bool) {
	if !t.Fresh {
		return t.Values, false
	}
	t.Fresh = false
	return t.Values, true
}
