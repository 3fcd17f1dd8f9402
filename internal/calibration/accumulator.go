// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import "math"

// Accumulator keeps a running mean and variance (Welford) without storing
// the samples.
type Accumulator struct {
	n    uint32
	mean float32
	m2   float32
}

func (a *Accumulator) Clear() {
	a.n = 0
	a.mean = 0
	a.m2 = 0
}

func (a *Accumulator) Push(x float32) {
	a.n++
	if a.n == 1 {
		a.mean = x
		a.m2 = 0
		return
	}
	prev := a.mean
	a.mean = prev + (x-prev)/float32(a.n)
	a.m2 += (x - prev) * (x - a.mean)
}

func (a *Accumulator) Count() uint32 {
	return a.n
}

func (a *Accumulator) Mean() float32 {
	return a.mean
}

// Variance is the sample variance; zero with fewer than two samples.
func (a *Accumulator) Variance() float32 {
	if a.n > 1 {
		return a.m2 / float32(a.n-1)
	}
	return 0
}

func (a *Accumulator) StdDev() float32 {
	return float32(math.Sqrt(float64(a.Variance())))
}
