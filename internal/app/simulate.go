// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/stat"

	"github.com/relabs-tech/gyro_conditioner/internal/config"
	"github.com/relabs-tech/gyro_conditioner/internal/imu"
	"github.com/relabs-tech/gyro_conditioner/internal/pipeline"
	"github.com/relabs-tech/gyro_conditioner/internal/sensors"
)

// SimOptions controls an offline run against the mock source.
type SimOptions struct {
	Ticks      int
	PrintEvery int // ticks between printed snapshots, 0 prints none
	Seed       uint64
	MoveEvery  int
	MoveLength int
	MoveAmp    float64
}

// settleTicks are skipped after calibration before statistics are taken,
// so the filters' response to the offset step is not counted as noise.
const settleTicks = 200

// SimReport summarises a simulation run.
type SimReport struct {
	Ticks           int
	CalibratedAt    int64 // output tick that completed calibration, -1 if never
	Restarts        uint32
	ZeroOffset      [imu.AxisCount]int32
	RawStdDev       [imu.AxisCount]float64 // offset-corrected, before filtering
	FilteredStdDev  [imu.AxisCount]float64
	FilteredMean    [imu.AxisCount]float64
	SamplesAnalysed int
}

// simPublisher prints snapshots and keeps debug taps for the report.
type simPublisher struct {
	cfg   *config.Config
	w     io.Writer
	debug []imu.GyroDebug
}

func (p *simPublisher) Publish(topic string, _ bool, v interface{}) error {
	switch m := v.(type) {
	case imu.GyroDebug:
		if topic == p.cfg.TopicGyroDebug {
			p.debug = append(p.debug, m)
		}
	case imu.GyroOutput:
		fmt.Fprintln(p.w, formatGyro(m))
	case imu.CalibrationStatus:
		fmt.Fprintln(p.w, formatStatus(m))
	case imu.GyroEvent:
		fmt.Fprintln(p.w, formatEvent(m))
	}
	return nil
}

// RunSimulation runs the full producer path against a mock gyro without a
// broker or real time, printing to w.
func RunSimulation(cfg *config.Config, opts SimOptions, w io.Writer) (SimReport, error) {
	if opts.Ticks <= 0 {
		return SimReport{}, fmt.Errorf("simulation needs a positive tick count, got %d", opts.Ticks)
	}
	if cfg.LooptimeUs == 0 {
		return SimReport{}, fmt.Errorf("simulation needs LOOPTIME_US")
	}

	sim := *cfg
	sim.DebugMode = pipeline.DebugGyro

	src := sensors.NewMockSource(sensors.MockConfig{
		Bias:         cfg.MockBias,
		NoiseStdDev:  cfg.MockNoise,
		LooptimeUs:   cfg.LooptimeUs,
		VibrationHz:  cfg.MockVibrationHz,
		VibrationAmp: cfg.MockVibrationAmp,
		MoveEvery:    opts.MoveEvery,
		MoveLength:   opts.MoveLength,
		MoveAmp:      opts.MoveAmp,
		Seed:         opts.Seed,
	})
	pub := &simPublisher{cfg: &sim, w: w}
	producer := NewProducer(&sim, src, config.SourceMock, pub)
	producer.BeginCalibration()

	report := SimReport{Ticks: opts.Ticks, CalibratedAt: -1}
	var filtered [imu.AxisCount][]float64
	for i := 0; i < opts.Ticks; i++ {
		if !producer.Step() {
			continue
		}
		out := producer.Pipeline().Output()
		if out.Calibrated && report.CalibratedAt < 0 {
			report.CalibratedAt = out.Tick
		}
		if settled(report.CalibratedAt, out.Tick) {
			for axis := range filtered {
				filtered[axis] = append(filtered[axis], float64(out.ADCf[axis]))
			}
		}
		if opts.PrintEvery > 0 && i%opts.PrintEvery == 0 {
			producer.PublishOutput()
			producer.PublishStatus()
		}
	}

	st := producer.Pipeline().Status()
	report.Restarts = st.Restarts
	report.ZeroOffset = st.ZeroOffset

	var raw [imu.AxisCount][]float64
	for _, d := range pub.debug {
		if !settled(report.CalibratedAt, d.Tick) {
			continue
		}
		for axis := range raw {
			raw[axis] = append(raw[axis], float64(d.Values[axis]))
		}
	}
	for axis := 0; axis < imu.AxisCount; axis++ {
		if len(filtered[axis]) > 1 {
			report.FilteredMean[axis], report.FilteredStdDev[axis] = stat.MeanStdDev(filtered[axis], nil)
		}
		if len(raw[axis]) > 1 {
			report.RawStdDev[axis] = stat.StdDev(raw[axis], nil)
		}
	}
	report.SamplesAnalysed = len(filtered[imu.X])
	return report, nil
}

func settled(calibratedAt, tick int64) bool {
	return calibratedAt >= 0 && tick > calibratedAt+settleTicks
}
