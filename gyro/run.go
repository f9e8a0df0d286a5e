// Copyright (c) 2026 The photonlab hardware developers. All rights reserved.
// Project site: https://github.com/photonlab/hardware
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package gyro

import (
	"time"

	"gonum.org/v1/gonum/stat"
)

// Run holds one tombstone recording: the raw lock-in output voltages and
// the calibration needed to read them as rotation rates.
type Run struct {
	ID          int64  // assigned by the store, 0 until saved
	Gyro        string // spec name
	Start       time.Time
	Rate        float64 // output sample rate, Hz
	ScaleFactor float64 // deg/h per volt
	Volts       []float64
}

// Duration returns the length of the recording.
func (r *Run) Duration() time.Duration {
	if r.Rate == 0 {
		return 0
	}
	return time.Duration(float64(len(r.Volts)) / r.Rate * float64(time.Second))
}

// Rates converts the recording to rotation rates in deg/h.
func (r *Run) Rates() []float64 {
	out := make([]float64, len(r.Volts))
	for i, v := range r.Volts {
		out[i] = v * r.ScaleFactor
	}
	return out
}

// Bias returns the mean rotation rate over the run in deg/h. On a
// tombstone run this is the gyro bias plus the projected earth rate.
func (r *Run) Bias() float64 {
	if len(r.Volts) == 0 {
		return 0
	}
	return stat.Mean(r.Rates(), nil)
}

// ARW estimates the angular random walk in deg/sqrt(h), from the
// overlapping Allan deviation of the rate series at a one second
// averaging time.
func (r *Run) ARW() (float64, error) {
	dev, err := OverlappingAllanDeviation(r.Rates(), r.Rate, []float64{1})
	if err != nil {
		return 0, err
	}
	// deg/h at tau=1s to deg/sqrt(h).
	return dev[0] / 60, nil
}
