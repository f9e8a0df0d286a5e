// Copyright (c) 2026 The photonlab hardware developers. All rights reserved.
// Project site: https://github.com/photonlab/hardware
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package fungen

import (
	"io"
	"strings"

	"github.com/gotmc/query"
	"github.com/pkg/errors"

	"github.com/photonlab/hardware/units"
)

// Agilent33250A drives the Agilent 33250A 80 MHz arbitrary waveform
// generator. Frequency limits depend on the selected waveform, so the
// setter reads the shape back before committing a new frequency.
type Agilent33250A struct {
	generator
}

// NewAgilent33250A wraps an open bus connection to a 33250A.
func NewAgilent33250A(rw io.ReadWriter) *Agilent33250A {
	return &Agilent33250A{newGenerator(rw, "Agilent 33250A")}
}

// SetFrequency sets the output frequency in Hz, enforcing the limits in
// the 33250A manual for the selected waveform.
func (a *Agilent33250A) SetFrequency(hz float64) error {
	wf, err := a.Waveform()
	if err != nil {
		return err
	}
	switch {
	case hz < 1e-6:
		return errors.New("minimum frequency is 1 uHz")
	case (wf == Sine || wf == Square) && hz > 80*units.Megahertz:
		return errors.Errorf("maximum frequency is 80 MHz for %s waves", wf)
	case wf == Pulse && (hz < 500e-6 || hz > 50*units.Megahertz):
		return errors.New("pulse frequency must be between 500 uHz and 50 MHz")
	}
	if err := a.bus.Command("FREQ %G", hz); err != nil {
		return err
	}
	a.log.WithField("hz", hz).Info("frequency set")
	return nil
}

// Voltage returns the peak-to-peak output amplitude in volts.
func (a *Agilent33250A) Voltage() (float64, error) {
	return query.Float64(a.bus, "VOLT?")
}

// SetVoltage sets the peak-to-peak output amplitude in volts.
func (a *Agilent33250A) SetVoltage(v float64) error {
	if err := a.bus.Command("VOLT %G", v); err != nil {
		return err
	}
	a.log.WithField("volts", v).Info("voltage set")
	return nil
}

// Phase returns the output phase and the angle unit the instrument is
// currently configured to report in.
func (a *Agilent33250A) Phase() (float64, units.AngleUnit, error) {
	unit, err := a.bus.Query("UNIT:ANGL?")
	if err != nil {
		return 0, units.Degrees, err
	}
	angle := units.Degrees
	if strings.Contains(strings.ToUpper(unit), "RAD") {
		angle = units.Radians
	}
	phase, err := query.Float64(a.bus, "PHAS?")
	return phase, angle, err
}

// SetPhase sets the output phase in degrees relative to the 10 MHz
// reference clock.
func (a *Agilent33250A) SetPhase(deg float64) error {
	if err := a.bus.Command("UNIT:ANGL DEG"); err != nil {
		return err
	}
	if err := a.bus.Command("PHAS %G", deg); err != nil {
		return err
	}
	a.log.WithField("degrees", deg).Info("phase set")
	return nil
}

// Waveform returns the selected output function.
func (a *Agilent33250A) Waveform() (Waveform, error) {
	return a.asciiWaveform()
}

// SetWaveform selects the output function.
func (a *Agilent33250A) SetWaveform(w Waveform) error {
	return a.setASCIIWaveform(w)
}

// ActiveUserWaveform returns the name of the arbitrary waveform selected
// for USER output.
func (a *Agilent33250A) ActiveUserWaveform() (string, error) {
	return a.bus.Query("FUNC:USER?")
}

// SelectUserWaveform makes a previously stored arbitrary waveform the
// USER output.
func (a *Agilent33250A) SelectUserWaveform(name string) error {
	return a.bus.Command("FUNC:USER %s", name)
}

// DutyCycle returns the square wave duty cycle in percent.
func (a *Agilent33250A) DutyCycle() (float64, error) {
	return a.dutyCycle()
}

// SetDutyCycle sets the square wave duty cycle in percent.
func (a *Agilent33250A) SetDutyCycle(percent float64) error {
	return a.setDutyCycle(percent)
}

// Output reports whether the front panel output is enabled.
func (a *Agilent33250A) Output() (bool, error) {
	return query.Bool(a.bus, "OUTPUT?")
}

// SetOutput enables or disables the front panel output.
func (a *Agilent33250A) SetOutput(on bool) error {
	state := "OFF"
	if on {
		state = "ON"
	}
	if err := a.bus.Command("OUTPUT %s", state); err != nil {
		return err
	}
	a.log.WithField("on", on).Info("output switched")
	return nil
}

// Upload loads a normalized waveform into volatile memory. Values must
// lie in [-1, +1].
func (a *Agilent33250A) Upload(points []float64) error {
	return a.uploadPoints(points)
}

// SaveAs names the waveform currently in volatile memory.
func (a *Agilent33250A) SaveAs(name string) error {
	return a.copyVolatile(name)
}

// UploadAs uploads a waveform and stores it under the given name.
func (a *Agilent33250A) UploadAs(points []float64, name string) error {
	if err := a.Upload(points); err != nil {
		return err
	}
	return a.SaveAs(name)
}
