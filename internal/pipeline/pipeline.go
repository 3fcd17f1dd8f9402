// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package pipeline drives one gyro tick: read, align, calibrate or remove
// the zero offset, filter, publish.
//
// A Pipeline owns all of its state. It is not safe for concurrent use; the
// host calls Tick from a single goroutine and serialises BeginCalibration
// and Configure with it.
package pipeline

import (
	"github.com/relabs-tech/gyro_conditioner/internal/calibration"
	"github.com/relabs-tech/gyro_conditioner/internal/filter"
	"github.com/relabs-tech/gyro_conditioner/internal/imu"
)

// Aligner maps sensor axes to airframe axes in place.
type Aligner interface {
	Align(v *[imu.AxisCount]int32)
}

// Settings is the runtime configuration applied when the sample interval
// becomes known.
type Settings struct {
	// MovementThreshold is the largest per-axis standard deviation accepted
	// during calibration. Zero disables the check.
	MovementThreshold uint8
	Filter            filter.Config
}

type Pipeline struct {
	source  imu.GyroSource
	aligner Aligner
	engine  *calibration.Engine
	chain   *filter.Chain

	threshold uint8
	out       imu.GyroOutput
	tap       [imu.AxisCount]float32
}

// New wires a pipeline. aligner and notifier may be nil. The chain starts
// in bypass and calibration is not running until BeginCalibration.
func New(source imu.GyroSource, aligner Aligner, notifier calibration.Notifier) *Pipeline {
	return &Pipeline{
		source:  source,
		aligner: aligner,
		engine:  calibration.NewEngine(0, notifier),
		chain:   filter.NewChain(),
	}
}

// Configure applies s. Call it once the sensor reports its loop time and
// again whenever the settings change. A zero loop time leaves the filter
// chain in bypass. A calibration window already running keeps its length;
// the new loop time sizes the next one.
func (p *Pipeline) Configure(s Settings) {
	p.threshold = s.MovementThreshold
	p.engine.SetLooptime(s.Filter.LooptimeUs)
	p.chain.Configure(s.Filter)
}

// BeginCalibration restarts zero-offset calibration from its first cycle.
func (p *Pipeline) BeginCalibration() {
	p.engine.Begin()
}

func (p *Pipeline) IsCalibrationComplete() bool {
	return p.engine.IsComplete()
}

// Tick runs one control-loop period. obs may be nil. It returns false when
// the source had no sample, in which case the published output is left as
// it was.
func (p *Pipeline) Tick(obs Observer) bool {
	raw, ok := p.source.ReadGyro()
	if !ok {
		return false
	}

	adc := raw.Widen()
	if p.aligner != nil {
		p.aligner.Align(&adc)
	}

	if !p.engine.IsComplete() {
		p.engine.Step(&adc, p.threshold)
	} else {
		zero := p.engine.ZeroOffset()
		for axis := range adc {
			adc[axis] -= zero[axis]
		}
	}

	mode := DebugNone
	if obs != nil {
		mode = obs.DebugMode()
	}

	var tap *[imu.AxisCount]float32
	if mode == DebugNotch {
		tap = &p.tap
	}
	filtered, active := p.chain.ApplyTapped(adc, tap)

	if active {
		for axis := range adc {
			switch mode {
			case DebugGyro:
				obs.Record(axis, adc[axis])
			case DebugNotch:
				obs.Record(axis, filter.Round(p.tap[axis]))
			}
		}
	}

	for axis := range filtered {
		p.out.ADCf[axis] = filtered[axis]
		p.out.ADC[axis] = filter.Round(filtered[axis])
	}
	p.out.Calibrated = p.engine.IsComplete()
	p.out.Tick++
	return true
}

// Output returns a copy of the latest published snapshot.
func (p *Pipeline) Output() imu.GyroOutput {
	return p.out
}

// Status reports calibration progress and the committed offset.
func (p *Pipeline) Status() imu.CalibrationStatus {
	return imu.CalibrationStatus{
		Complete:    p.engine.IsComplete(),
		Progress:    p.engine.Progress(),
		Remaining:   p.engine.Remaining(),
		TotalCycles: p.engine.TotalCycles(),
		Restarts:    p.engine.Restarts(),
		ZeroOffset:  p.engine.ZeroOffset(),
		StdDev:      p.engine.StdDev(),
	}
}

// FilterConfig returns the configuration the filter chain was built from.
func (p *Pipeline) FilterConfig() filter.Config {
	return p.chain.Config()
}
