// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/relabs-tech/gyro_conditioner/internal/imu"
)

// MockConfig shapes the simulated gyro signal.
type MockConfig struct {
	Bias        [imu.AxisCount]float64 // zero-rate offset, counts
	NoiseStdDev float64                // white noise, counts
	LooptimeUs  uint32

	// Frame vibration added to every axis, e.g. motor noise for notch tests.
	VibrationHz  float64
	VibrationAmp float64

	// A movement burst of MoveLength samples starts every MoveEvery samples.
	MoveEvery  int
	MoveLength int
	MoveAmp    float64

	// Every DropEvery-th read reports no sample. Zero never drops.
	DropEvery int

	Seed uint64
}

type mockSource struct {
	cfg   MockConfig
	noise distuv.Normal
	n     int
}

// NewMockSource returns a simulated gyro that generates a biased, noisy
// signal with optional vibration, movement bursts and dropped samples.
func NewMockSource(cfg MockConfig) imu.GyroSource {
	return &mockSource{
		cfg: cfg,
		noise: distuv.Normal{
			Mu:    0,
			Sigma: cfg.NoiseStdDev,
			Src:   rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15),
		},
	}
}

func (m *mockSource) ReadGyro() (imu.GyroRaw, bool) {
	m.n++
	if m.cfg.DropEvery > 0 && m.n%m.cfg.DropEvery == 0 {
		return imu.GyroRaw{}, false
	}

	elapsed := float64(m.n) * float64(m.cfg.LooptimeUs) * 1e-6
	vibration := m.cfg.VibrationAmp * math.Sin(2*math.Pi*m.cfg.VibrationHz*elapsed)

	moving := 0.0
	if m.cfg.MoveEvery > 0 && m.n%m.cfg.MoveEvery < m.cfg.MoveLength {
		moving = m.cfg.MoveAmp * math.Sin(2*math.Pi*float64(m.n)/float64(max(m.cfg.MoveLength, 1)))
	}

	var out imu.GyroRaw
	for axis := range out {
		v := m.cfg.Bias[axis] + vibration + moving
		if m.cfg.NoiseStdDev > 0 {
			v += m.noise.Rand()
		}
		out[axis] = clampInt16(math.Round(v))
	}
	return out, true
}

func clampInt16(v float64) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
