// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package calibration establishes the per-axis gyro zero-rate offset while
// the vehicle is still. A window of samples is summed and its spread
// measured; if any axis moved more than the threshold during the window the
// window starts over, otherwise the rounded mean becomes the zero offset.
package calibration

const axisCount = 3

// BaseCycles scales the calibration window with the loop time.
const BaseCycles = 1000

// Event is a one-shot notification emitted by the engine.
type Event int

const (
	EventGyroCalibrated Event = iota + 1
)

func (e Event) String() string {
	switch e {
	case EventGyroCalibrated:
		return "gyro_calibrated"
	}
	return "unknown"
}

// Notifier receives engine events. Calls must not block.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Event)

func (f NotifierFunc) Notify(e Event) { f(e) }

// Engine is the calibration state for one gyro. It is not safe for
// concurrent use.
type Engine struct {
	looptimeUs uint32
	window     uint32 // length of the window in progress
	countdown  uint32
	restarts   uint32

	sum  [axisCount]int64
	dev  [axisCount]Accumulator
	zero [axisCount]int32

	notifier Notifier
}

// NewEngine returns an engine that is already complete (zero offset 0)
// until Begin is called. n may be nil.
func NewEngine(looptimeUs uint32, n Notifier) *Engine {
	return &Engine{looptimeUs: looptimeUs, notifier: n}
}

// SetLooptime updates the loop period used to size the next window.
func (e *Engine) SetLooptime(looptimeUs uint32) {
	e.looptimeUs = looptimeUs
}

// TotalCycles is the length of the window in progress or, when idle, of
// the next one. A window keeps the length it started with even if the loop
// time changes before it ends.
func (e *Engine) TotalCycles() uint32 {
	if !e.IsComplete() {
		return e.window
	}
	return e.cyclesFor(e.looptimeUs)
}

// cyclesFor divides the base by the loop time and multiplies back by the
// base, in integer arithmetic, so loop times above BaseCycles give an empty
// window.
func (e *Engine) cyclesFor(looptimeUs uint32) uint32 {
	if looptimeUs == 0 {
		return 0
	}
	return (BaseCycles / looptimeUs) * BaseCycles
}

func (e *Engine) startWindow() {
	e.window = e.cyclesFor(e.looptimeUs)
	e.countdown = e.window
}

// Begin (re)starts calibration from the first cycle, whatever the current
// phase.
func (e *Engine) Begin() {
	e.startWindow()
	e.restarts = 0
	e.clear()
}

func (e *Engine) clear() {
	for axis := 0; axis < axisCount; axis++ {
		e.sum[axis] = 0
		e.dev[axis].Clear()
	}
}

func (e *Engine) IsComplete() bool {
	return e.countdown == 0
}

func (e *Engine) isFirstCycle() bool {
	return e.countdown == e.window
}

func (e *Engine) isFinalCycle() bool {
	return e.countdown == 1
}

// Step consumes one aligned sample. raw is zeroed in place so nothing
// downstream sees uncalibrated data. It returns true on the tick the
// offset is committed. Calling Step on a complete engine does nothing.
func (e *Engine) Step(raw *[axisCount]int32, movementThreshold uint8) bool {
	if e.IsComplete() {
		return false
	}

	if e.isFirstCycle() {
		e.clear()
	}

	for axis := 0; axis < axisCount; axis++ {
		e.sum[axis] += int64(raw[axis])
		e.dev[axis].Push(float32(raw[axis]))

		raw[axis] = 0
		e.zero[axis] = 0
	}

	if !e.isFinalCycle() {
		e.countdown--
		return false
	}

	if movementThreshold > 0 {
		for axis := 0; axis < axisCount; axis++ {
			if e.dev[axis].StdDev() > float32(movementThreshold) {
				e.startWindow()
				e.restarts++
				return false
			}
		}
	}

	total := int64(e.window)
	for axis := 0; axis < axisCount; axis++ {
		e.zero[axis] = int32(floorDiv(e.sum[axis]+total/2, total))
	}
	if e.notifier != nil {
		e.notifier.Notify(EventGyroCalibrated)
	}
	e.countdown--
	return true
}

// floorDiv divides rounding toward negative infinity so adding half the
// divisor rounds half up for negative sums too.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// ZeroOffset returns the committed per-axis offset.
func (e *Engine) ZeroOffset() [axisCount]int32 {
	return e.zero
}

// Remaining returns the cycles left in the current window.
func (e *Engine) Remaining() uint32 {
	return e.countdown
}

// Restarts counts windows thrown away for movement since the last Begin.
func (e *Engine) Restarts() uint32 {
	return e.restarts
}

// Progress is the completed fraction of the current window, 1 when done.
func (e *Engine) Progress() float32 {
	total := e.window
	if total == 0 || e.countdown == 0 {
		return 1
	}
	if e.countdown >= total {
		return 0
	}
	return float32(total-e.countdown) / float32(total)
}

// StdDev returns the spread measured so far in the current window.
func (e *Engine) StdDev() [axisCount]float32 {
	var out [axisCount]float32
	for axis := range out {
		out[axis] = e.dev[axis].StdDev()
	}
	return out
}
