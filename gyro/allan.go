// Copyright (c) 2026 The photonlab hardware developers. All rights reserved.
// Project site: https://github.com/photonlab/hardware
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package gyro

import (
	"math"

	"github.com/pkg/errors"
)

// OverlappingAllanDeviation computes the overlapping Allan deviation of
// rate data sampled at rate Hz, at each averaging time in taus (seconds).
// The input is treated as frequency-type data: it is integrated to phase
// before the second differences are taken.
func OverlappingAllanDeviation(data []float64, rate float64, taus []float64) ([]float64, error) {
	if rate <= 0 {
		return nil, errors.Errorf("non-positive sample rate %G Hz", rate)
	}
	if len(taus) == 0 {
		return nil, errors.New("no averaging times requested")
	}
	// Integrate to phase. x has one more point than data.
	x := make([]float64, len(data)+1)
	for i, v := range data {
		x[i+1] = x[i] + v/rate
	}
	out := make([]float64, len(taus))
	for k, tau := range taus {
		m := int(tau*rate + 0.5)
		if m < 1 {
			return nil, errors.Errorf("tau %G s shorter than the sample interval", tau)
		}
		if 2*m >= len(x) {
			return nil, errors.Errorf("record too short for tau %G s: need more than %G s of data",
				tau, 2*tau)
		}
		var sum float64
		n := 0
		for j := 0; j+2*m < len(x); j++ {
			d := x[j+2*m] - 2*x[j+m] + x[j]
			sum += d * d
			n++
		}
		out[k] = math.Sqrt(sum / (2 * tau * tau * float64(n)))
	}
	return out, nil
}
