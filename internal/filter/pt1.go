// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package filter

import "math"

// PT1 is a first-order low-pass. The RC time constant is derived from the
// configured cutoff on every sample.
type PT1 struct {
	state    float32
	cutoffHz float32
	dt       float32
}

// Init sets the cutoff and the sample interval and clears the state.
func (f *PT1) Init(cutoffHz float32, looptimeUs uint32) {
	f.cutoffHz = cutoffHz
	f.dt = float32(looptimeUs) * 0.000001
	f.state = 0
}

func (f *PT1) Apply(input float32) float32 {
	rc := 1 / (2 * math.Pi * f.cutoffHz)
	f.state = f.state + f.dt/(rc+f.dt)*(input-f.state)
	return f.state
}

func (f *PT1) Reset() {
	f.state = 0
}
