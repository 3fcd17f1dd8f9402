// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package filter implements the per-axis gyro filter stages and the chain
// that runs them once per control-loop tick.
package filter

import "math"

// BiquadKind selects the response a Biquad is designed for.
type BiquadKind int

const (
	BiquadLPF BiquadKind = iota
	BiquadNotch
)

// butterworthQ is the quality factor used for the low-pass biquad.
var butterworthQ = float32(1 / math.Sqrt2)

// Biquad is a second-order IIR section in direct form II transposed.
// Coefficients are normalised so a0 == 1.
type Biquad struct {
	b0, b1, b2 float32
	a1, a2     float32
	d1, d2     float32
}

// InitLPF designs a second-order Butterworth low-pass at cutoffHz for a
// loop running every looptimeUs microseconds.
func (f *Biquad) InitLPF(cutoffHz float32, looptimeUs uint32) {
	f.Init(cutoffHz, looptimeUs, butterworthQ, BiquadLPF)
}

// Init designs the section from the RBJ cookbook formulas and clears the
// delay line. The design runs in float32 throughout, so the coefficients
// match a single-precision implementation bit for bit.
func (f *Biquad) Init(freqHz float32, looptimeUs uint32, q float32, kind BiquadKind) {
	sampleRate := 1 / (float32(looptimeUs) * 0.000001)
	omega := 2 * math.Pi * freqHz / sampleRate
	sn := sinf(omega)
	cs := cosf(omega)
	alpha := sn / (2 * q)

	var b0, b1, b2 float32
	switch kind {
	case BiquadNotch:
		b0 = 1
		b1 = -2 * cs
		b2 = 1
	default:
		b0 = (1 - cs) / 2
		b1 = 1 - cs
		b2 = (1 - cs) / 2
	}
	a0 := 1 + alpha
	a1 := -2 * cs
	a2 := 1 - alpha

	f.b0 = b0 / a0
	f.b1 = b1 / a0
	f.b2 = b2 / a0
	f.a1 = a1 / a0
	f.a2 = a2 / a0
	f.Reset()
}

// sinf and cosf round the float64 result once, as a correctly rounded
// single-precision libm would.
func sinf(x float32) float32 { return float32(math.Sin(float64(x))) }
func cosf(x float32) float32 { return float32(math.Cos(float64(x))) }

// Apply feeds one sample through the section.
func (f *Biquad) Apply(input float32) float32 {
	result := f.b0*input + f.d1
	f.d1 = f.b1*input - f.a1*result + f.d2
	f.d2 = f.b2*input - f.a2*result
	return result
}

// Reset zeroes the delay line, keeping the coefficients.
func (f *Biquad) Reset() {
	f.d1 = 0
	f.d2 = 0
}

// Coefficients returns b0, b1, b2, a1, a2.
func (f *Biquad) Coefficients() (b0, b1, b2, a1, a2 float32) {
	return f.b0, f.b1, f.b2, f.a1, f.a2
}

// NotchQ derives the notch quality factor from its centre frequency and the
// lower cutoff of the rejected band.
func NotchQ(centerHz, cutoffHz uint16) float32 {
	octaves := math.Log2(float64(centerHz)/float64(cutoffHz)) * 2
	return float32(math.Sqrt(math.Pow(2, octaves)) / (math.Pow(2, octaves) - 1))
}
