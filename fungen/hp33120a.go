// Copyright (c) 2026 The photonlab hardware developers. All rights reserved.
// Project site: https://github.com/photonlab/hardware
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package fungen

import (
	"io"
	"math"

	"github.com/gotmc/query"
	"github.com/pkg/errors"

	"github.com/photonlab/hardware/units"
)

// HP33120A drives the HP 33120A 15 MHz arbitrary waveform generator.
// Unlike the 33250A it reports and accepts phase in radians.
type HP33120A struct {
	generator
}

// NewHP33120A wraps an open bus connection to a 33120A.
func NewHP33120A(rw io.ReadWriter) *HP33120A {
	return &HP33120A{newGenerator(rw, "HP 33120A")}
}

// SetFrequency sets the output frequency in Hz, enforcing the limits in
// the 33120A manual for the selected waveform.
func (h *HP33120A) SetFrequency(hz float64) error {
	wf, err := h.Waveform()
	if err != nil {
		return err
	}
	switch {
	case hz < 100e-6:
		return errors.New("minimum frequency is 100 uHz")
	case (wf == Sine || wf == Square) && hz > 15*units.Megahertz:
		return errors.Errorf("maximum frequency is 15 MHz for %s waves", wf)
	case wf == Ramp && hz > 100*units.Kilohertz:
		return errors.New("maximum frequency is 100 kHz for ramp waves")
	}
	if err := h.bus.Command("FREQ %G", hz); err != nil {
		return err
	}
	h.log.WithField("hz", hz).Info("frequency set")
	return nil
}

// Voltage returns the peak-to-peak output amplitude in volts.
func (h *HP33120A) Voltage() (float64, error) {
	return query.Float64(h.bus, "VOLT?")
}

// SetVoltage sets the peak-to-peak output amplitude in volts.
func (h *HP33120A) SetVoltage(v float64) error {
	if err := h.bus.Command("VOLT %G", v); err != nil {
		return err
	}
	h.log.WithField("volts", v).Info("voltage set")
	return nil
}

// Phase returns the output phase in radians.
func (h *HP33120A) Phase() (float64, error) {
	return query.Float64(h.bus, "PHAS?")
}

// SetPhase sets the output phase in radians, limited to +/- 2 pi.
func (h *HP33120A) SetPhase(rad float64) error {
	if rad < -2*math.Pi || rad > 2*math.Pi {
		return errors.Errorf("phase %G outside -2 pi to 2 pi radians", rad)
	}
	if err := h.bus.Command("PHAS %G", rad); err != nil {
		return err
	}
	h.log.WithField("radians", rad).Info("phase set")
	return nil
}

// Waveform returns the selected output function.
func (h *HP33120A) Waveform() (Waveform, error) {
	return h.asciiWaveform()
}

// SetWaveform selects the output function.
func (h *HP33120A) SetWaveform(w Waveform) error {
	return h.setASCIIWaveform(w)
}

// DutyCycle returns the square wave duty cycle in percent.
func (h *HP33120A) DutyCycle() (float64, error) {
	return h.dutyCycle()
}

// SetDutyCycle sets the square wave duty cycle in percent.
func (h *HP33120A) SetDutyCycle(percent float64) error {
	return h.setDutyCycle(percent)
}

// Upload loads a normalized waveform into volatile memory. Values must
// lie in [-1, +1].
func (h *HP33120A) Upload(points []float64) error {
	return h.uploadPoints(points)
}

// SaveAs names the waveform currently in volatile memory.
func (h *HP33120A) SaveAs(name string) error {
	return h.copyVolatile(name)
}

// UploadAs uploads a waveform and stores it under the given name.
func (h *HP33120A) UploadAs(points []float64, name string) error {
	if err := h.Upload(points); err != nil {
		return err
	}
	return h.SaveAs(name)
}
