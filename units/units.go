// Copyright (c) 2026 The photonlab hardware developers. All rights reserved.
// Project site: https://github.com/photonlab/hardware
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package units provides the physical unit tags and conversions shared by
// the instrument drivers. Bus traffic is unitless ASCII; the drivers attach
// units at the API boundary using the helpers here.
package units

import (
	"fmt"
	"math"
)

// Frequency multipliers in hertz.
const (
	Hertz     = 1.0
	Kilohertz = 1e3
	Megahertz = 1e6
	Gigahertz = 1e9
)

// AngleUnit identifies how an instrument reports angles.
type AngleUnit string

const (
	Degrees AngleUnit = "deg"
	Radians AngleUnit = "rad"
)

// DegToRad converts an angle in degrees to radians.
func DegToRad(deg float64) float64 { return deg * math.Pi / 180 }

// RadToDeg converts an angle in radians to degrees.
func RadToDeg(rad float64) float64 { return rad * 180 / math.Pi }

// DegPerSecToDegPerHour converts a rotation rate from deg/s to deg/h.
func DegPerSecToDegPerHour(dps float64) float64 { return dps * 3600 }

// DegPerHourToDegPerSec converts a rotation rate from deg/h to deg/s.
func DegPerHourToDegPerSec(dph float64) float64 { return dph / 3600 }

// WattToDBm converts an optical or RF power in watts to dBm.
func WattToDBm(w float64) float64 { return 10 * math.Log10(w*1e3) }

// DBmToWatt converts a power in dBm to watts.
func DBmToWatt(dbm float64) float64 { return math.Pow(10, dbm/10) / 1e3 }

// FormatVoltage renders a voltage with an SI prefix suited to its size,
// e.g. 3e-5 -> "30 uV". Used for operator-facing log lines.
func FormatVoltage(v float64) string {
	av := math.Abs(v)
	switch {
	case av >= 1 || av == 0:
		return fmt.Sprintf("%g V", v)
	case av >= 1e-3:
		return fmt.Sprintf("%g mV", v*1e3)
	case av >= 1e-6:
		return fmt.Sprintf("%g uV", v*1e6)
	default:
		return fmt.Sprintf("%g nV", v*1e9)
	}
}

// FormatFrequency renders a frequency with an SI prefix, e.g. 1.5e6 ->
// "1.5 MHz".
func FormatFrequency(hz float64) string {
	ahz := math.Abs(hz)
	switch {
	case ahz >= Gigahertz:
		return fmt.Sprintf("%g GHz", hz/Gigahertz)
	case ahz >= Megahertz:
		return fmt.Sprintf("%g MHz", hz/Megahertz)
	case ahz >= Kilohertz:
		return fmt.Sprintf("%g kHz", hz/Kilohertz)
	default:
		return fmt.Sprintf("%g Hz", hz)
	}
}
