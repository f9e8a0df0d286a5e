// Copyright (c) 2026 The photonlab hardware developers. All rights reserved.
// Project site: https://github.com/photonlab/hardware
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package fungen

import (
	"github.com/pkg/errors"
)

// One synthesized modulation cycle is 4000 points, stored on the
// instrument under a fixed name so repeated calls overwrite it.
const (
	gatePoints = 4000
	gateName   = "PULSEWAVEFORM"
)

// squarePulse builds an n-point cycle swinging between -1 and +1: a
// linear rise over rise*n samples, a +1 plateau of duty*n samples, a
// linear fall over fall*n samples, then -1 for the remainder. rise and
// fall are fractions of the cycle time.
func squarePulse(n int, duty, rise, fall float64) ([]float64, error) {
	if duty < 0 || duty > 1 {
		return nil, errors.Errorf("duty cycle %G outside [0, 1]", duty)
	}
	if rise < 0 || fall < 0 {
		return nil, errors.New("edge times cannot be negative")
	}
	riseN := int(rise * float64(n))
	fallN := int(fall * float64(n))
	highN := int(duty * float64(n))
	if riseN+highN+fallN > n {
		return nil, errors.Errorf("duty %G + rise %G + fall %G overflow the cycle", duty, rise, fall)
	}
	s := make([]float64, n)
	for i := range s {
		s[i] = -1
	}
	for i := 0; i < riseN; i++ {
		s[i] = -1 + 2*float64(i+1)/float64(riseN)
	}
	for i := 0; i < highN; i++ {
		s[riseN+i] = 1
	}
	for i := 0; i < fallN; i++ {
		s[riseN+highN+i] = 1 - 2*float64(i+1)/float64(fallN)
	}
	return s, nil
}

// rotate returns s circularly shifted right by k samples; negative k
// shifts left.
func rotate(s []float64, k int) []float64 {
	n := len(s)
	out := make([]float64, n)
	for i := range s {
		out[((i+k)%n+n)%n] = s[i]
	}
	return out
}

// SetGatedDutyCycle synthesizes one modulation cycle gated high for the
// duty fraction, with linear rise and fall edges taking the given
// fractions of the cycle, and selects it as the USER output. Unlike
// SetDutyCycle this reshapes the edges, which the gyro modulation needs
// to suppress ringing at the gate transitions.
func (a *Agilent33250A) SetGatedDutyCycle(duty, rise, fall float64) error {
	signal, err := squarePulse(gatePoints, duty, rise, fall)
	if err != nil {
		return err
	}
	if err := a.UploadAs(signal, gateName); err != nil {
		return err
	}
	if err := a.SetWaveform(User); err != nil {
		return err
	}
	return a.SelectUserWaveform(gateName)
}

// doubleGate builds two half-cycle gates of high fractions r1 and r2.
// When centered, each gate is rotated left by half its width so the
// pulse straddles its half-cycle boundary.
func doubleGate(r1, r2, rise, fall float64, centered bool) ([]float64, error) {
	half := gatePoints / 2
	s1, err := squarePulse(half, r1, rise, fall)
	if err != nil {
		return nil, err
	}
	s2, err := squarePulse(half, r2, rise, fall)
	if err != nil {
		return nil, err
	}
	if centered {
		s1 = rotate(s1, -int(float64(half)*r1/2))
		s2 = rotate(s2, -int(float64(half)*r2/2))
	}
	return append(s1, s2...), nil
}

// SetDoubleGate uploads a cycle of two centered gates with high
// fractions r1 and r2, one per half cycle, and switches to USER output.
func (a *Agilent33250A) SetDoubleGate(r1, r2, rise, fall float64) error {
	signal, err := doubleGate(r1, r2, rise, fall, true)
	if err != nil {
		return err
	}
	if err := a.UploadAs(signal, gateName); err != nil {
		return err
	}
	return a.SetWaveform(User)
}

// SetDoubleGateNoRoll is SetDoubleGate with each gate left at the start
// of its half cycle instead of centered on its boundary.
func (a *Agilent33250A) SetDoubleGateNoRoll(r1, r2, rise, fall float64) error {
	signal, err := doubleGate(r1, r2, rise, fall, false)
	if err != nil {
		return err
	}
	if err := a.UploadAs(signal, gateName); err != nil {
		return err
	}
	return a.SetWaveform(User)
}

// SetDoubleGateAndNotch multiplies the centered double gate by an
// inverted notch pulse of high fraction r3, shifted by phase degrees of
// the full cycle, flipping the gate polarity inside the notch window.
func (a *Agilent33250A) SetDoubleGateAndNotch(r1, r2, r3, phase, rise, fall float64) error {
	signal, err := doubleGate(r1, r2, rise, fall, true)
	if err != nil {
		return err
	}
	notch, err := squarePulse(gatePoints, r3, 0, 0)
	if err != nil {
		return err
	}
	notch = rotate(notch, int(phase/360*gatePoints))
	for i := range signal {
		signal[i] *= -notch[i]
	}
	if err := a.UploadAs(signal, gateName); err != nil {
		return err
	}
	return a.SetWaveform(User)
}
