// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package alignment maps sensor axes onto the airframe: first the chip
// mounting orientation, then an optional board rotation in degrees.
package alignment

import (
	"fmt"
	"math"
	"strings"
)

// SensorAlign is the mounting orientation of the sensor chip.
type SensorAlign int

const (
	AlignDefault SensorAlign = iota
	CW0
	CW90
	CW180
	CW270
	CW0Flip
	CW90Flip
	CW180Flip
	CW270Flip
)

var alignNames = map[string]SensorAlign{
	"default":   AlignDefault,
	"cw0":       CW0,
	"cw90":      CW90,
	"cw180":     CW180,
	"cw270":     CW270,
	"cw0flip":   CW0Flip,
	"cw90flip":  CW90Flip,
	"cw180flip": CW180Flip,
	"cw270flip": CW270Flip,
}

// ParseSensorAlign accepts names like "cw90" or "cw180flip".
func ParseSensorAlign(s string) (SensorAlign, error) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", ""))
	if key == "" {
		return AlignDefault, nil
	}
	a, ok := alignNames[key]
	if !ok {
		return AlignDefault, fmt.Errorf("unknown sensor alignment %q", s)
	}
	return a, nil
}

// BoardAngles is the board rotation relative to the airframe, in degrees.
type BoardAngles struct {
	Roll  float64 `yaml:"roll"`
	Pitch float64 `yaml:"pitch"`
	Yaw   float64 `yaml:"yaw"`
}

func (b BoardAngles) isZero() bool {
	return b.Roll == 0 && b.Pitch == 0 && b.Yaw == 0
}

// Aligner rotates raw triples in place. The zero value applies no rotation.
type Aligner struct {
	sensor SensorAlign
	// fallback for AlignDefault, the driver's own mounting
	driverDefault SensorAlign

	board    bool
	rotation [3][3]float64
}

// New builds an Aligner. driverDefault replaces AlignDefault.
func New(sensor, driverDefault SensorAlign, board BoardAngles) *Aligner {
	a := &Aligner{sensor: sensor, driverDefault: driverDefault}
	if !board.isZero() {
		a.board = true
		a.rotation = rotationMatrix(board)
	}
	return a
}

// Align applies the sensor orientation then the board rotation.
func (a *Aligner) Align(v *[3]int32) {
	align := a.sensor
	if align == AlignDefault {
		align = a.driverDefault
	}
	x, y, z := v[0], v[1], v[2]
	switch align {
	case CW90:
		v[0], v[1], v[2] = y, -x, z
	case CW180:
		v[0], v[1], v[2] = -x, -y, z
	case CW270:
		v[0], v[1], v[2] = -y, x, z
	case CW0Flip:
		v[0], v[1], v[2] = -x, y, -z
	case CW90Flip:
		v[0], v[1], v[2] = y, x, -z
	case CW180Flip:
		v[0], v[1], v[2] = x, -y, -z
	case CW270Flip:
		v[0], v[1], v[2] = -y, -x, -z
	default:
		// CW0 and an unset default leave the axes as read.
	}

	if a.board {
		a.rotate(v)
	}
}

func (a *Aligner) rotate(v *[3]int32) {
	x, y, z := float64(v[0]), float64(v[1]), float64(v[2])
	m := &a.rotation
	v[0] = int32(math.Round(m[0][0]*x + m[1][0]*y + m[2][0]*z))
	v[1] = int32(math.Round(m[0][1]*x + m[1][1]*y + m[2][1]*z))
	v[2] = int32(math.Round(m[0][2]*x + m[1][2]*y + m[2][2]*z))
}

// rotationMatrix builds the direction cosine matrix for the board angles.
func rotationMatrix(b BoardAngles) [3][3]float64 {
	roll := b.Roll * math.Pi / 180
	pitch := b.Pitch * math.Pi / 180
	yaw := b.Yaw * math.Pi / 180

	cosx, sinx := math.Cos(roll), math.Sin(roll)
	cosy, siny := math.Cos(pitch), math.Sin(pitch)
	cosz, sinz := math.Cos(yaw), math.Sin(yaw)

	coszcosx := cosz * cosx
	sinzcosx := sinz * cosx
	coszsinx := sinx * cosz
	sinzsinx := sinx * sinz

	var m [3][3]float64
	m[0][0] = cosz * cosy
	m[0][1] = -cosy * sinz
	m[0][2] = siny
	m[1][0] = sinzcosx + (coszsinx * siny)
	m[1][1] = coszcosx - (sinzsinx * siny)
	m[1][2] = -sinx * cosy
	m[2][0] = (sinzsinx) - (coszcosx * siny)
	m[2][1] = (coszsinx) + (sinzcosx * siny)
	m[2][2] = cosy * cosx
	return m
}
