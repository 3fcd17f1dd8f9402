// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package filter

import "math"

// MaxDenoiseWindow bounds the FIR denoiser ring.
const MaxDenoiseWindow = 120

// Denoise is a moving-average FIR smoother whose window length follows the
// ratio of sample rate to cutoff. The ring is fixed size so Apply never
// allocates.
type Denoise struct {
	filled  int
	target  int
	index   int
	sum     float32
	samples [MaxDenoiseWindow]float32
}

// Init sizes the window for cutoffHz at the given loop time and clears the ring.
func (f *Denoise) Init(cutoffHz float32, looptimeUs uint32) {
	*f = Denoise{}
	rate := 1 / (0.000001 * float64(looptimeUs))
	window := int(math.Round(rate / float64(cutoffHz)))
	f.target = min(max(window, 1), MaxDenoiseWindow)
}

// Window returns the number of ring slots in use.
func (f *Denoise) Window() int {
	return f.target
}

func (f *Denoise) Apply(input float32) float32 {
	f.samples[f.index] = input
	f.sum += f.samples[f.index]
	f.index++
	if f.index == f.target {
		f.index = 0
	}
	f.sum -= f.samples[f.index]

	if f.filled < f.target {
		f.filled++
	}
	return f.sum / float32(f.filled)
}

func (f *Denoise) Reset() {
	target := f.target
	*f = Denoise{target: target}
}
