// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package filter

import (
	"fmt"
	"math"
	"strings"
)

const axisCount = 3

// Mode selects the primary smoothing stage.
type Mode int

const (
	ModeDisabled Mode = iota
	ModeBiquad
	ModePT1
	ModeFIRDenoise
)

func (m Mode) String() string {
	switch m {
	case ModeBiquad:
		return "biquad"
	case ModePT1:
		return "pt1"
	case ModeFIRDenoise:
		return "fir"
	default:
		return "off"
	}
}

// ParseMode accepts the names produced by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none", "":
		return ModeDisabled, nil
	case "biquad":
		return ModeBiquad, nil
	case "pt1":
		return ModePT1, nil
	case "fir", "denoise":
		return ModeFIRDenoise, nil
	}
	return ModeDisabled, fmt.Errorf("unknown filter mode %q (want off, biquad, pt1 or fir)", s)
}

// Stage is one smoothing step of the chain. Every primary variant and the
// notch sections implement it.
type Stage interface {
	Apply(input float32) float32
	Reset()
}

// NotchConfig describes one notch. A zero CenterHz disables it.
type NotchConfig struct {
	CenterHz uint16 `yaml:"center_hz"`
	CutoffHz uint16 `yaml:"cutoff_hz"`
}

// Config holds everything needed to derive the chain coefficients.
// LooptimeUs is zero until the sensor reports its sampling interval.
type Config struct {
	Mode       Mode
	CutoffHz   uint16
	Notch1     NotchConfig
	Notch2     NotchConfig
	LooptimeUs uint32
}

// Chain runs the primary stage followed by up to two notches on each of the
// three axes. Axis state is never shared.
type Chain struct {
	cfg    Config
	active bool

	primary [axisCount]Stage
	biquad  [axisCount]Biquad
	pt1     [axisCount]PT1
	denoise [axisCount]Denoise

	notch1On, notch2On bool
	notch1             [axisCount]Biquad
	notch2             [axisCount]Biquad
}

// NewChain returns a chain in bypass.
func NewChain() *Chain {
	return &Chain{}
}

// Configure derives every stage from cfg. With no loop time or no primary
// cutoff the chain stays in bypass and the notches are never run.
func (c *Chain) Configure(cfg Config) {
	c.cfg = cfg
	c.active = false
	c.notch1On = false
	c.notch2On = false
	for axis := range c.primary {
		c.primary[axis] = nil
	}

	if cfg.LooptimeUs == 0 || cfg.CutoffHz == 0 || cfg.Mode == ModeDisabled {
		return
	}

	cutoff := float32(cfg.CutoffHz)
	for axis := 0; axis < axisCount; axis++ {
		switch cfg.Mode {
		case ModeBiquad:
			c.biquad[axis].InitLPF(cutoff, cfg.LooptimeUs)
			c.primary[axis] = &c.biquad[axis]
		case ModePT1:
			c.pt1[axis].Init(cutoff, cfg.LooptimeUs)
			c.primary[axis] = &c.pt1[axis]
		default:
			c.denoise[axis].Init(cutoff, cfg.LooptimeUs)
			c.primary[axis] = &c.denoise[axis]
		}
	}

	if cfg.Notch1.CenterHz != 0 {
		q := NotchQ(cfg.Notch1.CenterHz, cfg.Notch1.CutoffHz)
		for axis := range c.notch1 {
			c.notch1[axis].Init(float32(cfg.Notch1.CenterHz), cfg.LooptimeUs, q, BiquadNotch)
		}
		c.notch1On = true
	}
	if cfg.Notch2.CenterHz != 0 {
		q := NotchQ(cfg.Notch2.CenterHz, cfg.Notch2.CutoffHz)
		for axis := range c.notch2 {
			c.notch2[axis].Init(float32(cfg.Notch2.CenterHz), cfg.LooptimeUs, q, BiquadNotch)
		}
		c.notch2On = true
	}
	c.active = true
}

// Config returns the configuration the chain was last built from.
func (c *Chain) Config() Config {
	return c.cfg
}

// Active reports whether the chain filters (false means bypass).
func (c *Chain) Active() bool {
	return c.active
}

// Reset clears all delay lines without touching coefficients.
func (c *Chain) Reset() {
	for axis := 0; axis < axisCount; axis++ {
		if c.primary[axis] != nil {
			c.primary[axis].Reset()
		}
		c.notch1[axis].Reset()
		c.notch2[axis].Reset()
	}
}

// Apply filters one sample triple.
func (c *Chain) Apply(raw [axisCount]int32) [axisCount]float32 {
	out, _ := c.ApplyTapped(raw, nil)
	return out
}

// ApplyTapped is Apply that also stores the post-primary value of every axis
// in tap when tap is non-nil. The bool reports whether filtering ran.
func (c *Chain) ApplyTapped(raw [axisCount]int32, tap *[axisCount]float32) ([axisCount]float32, bool) {
	var out [axisCount]float32
	if !c.active {
		for axis := range out {
			out[axis] = float32(raw[axis])
		}
		return out, false
	}

	for axis := 0; axis < axisCount; axis++ {
		v := c.primary[axis].Apply(float32(raw[axis]))
		if tap != nil {
			tap[axis] = v
		}
		if c.notch1On {
			v = c.notch1[axis].Apply(v)
		}
		if c.notch2On {
			v = c.notch2[axis].Apply(v)
		}
		out[axis] = v
	}
	return out, true
}

// Round converts a filtered value to the published integer, rounding half
// away from zero.
func Round(v float32) int32 {
	return int32(math.Round(float64(v)))
}
