// Copyright (c) 2026 The photonlab hardware developers. All rights reserved.
// Project site: https://github.com/photonlab/hardware
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package fungen

import (
	"io"
	"strconv"
	"strings"

	"github.com/gotmc/query"
	"github.com/pkg/errors"

	"github.com/photonlab/hardware/units"
)

// SRSDS345 drives the Stanford Research Systems DS345 30 MHz synthesized
// function generator. The DS345 reports waveforms as numeric codes and
// amplitudes with a unit suffix, so it does not share the ASCII helpers
// used by the Agilent and HP drivers.
type SRSDS345 struct {
	generator
}

// ds345Waveforms maps the DS345 FUNC codes to waveform mnemonics.
var ds345Waveforms = map[int]Waveform{
	0: Sine,
	1: Square,
	2: Triangle,
	3: Ramp,
	4: Noise,
	5: User,
}

// NewSRSDS345 wraps an open bus connection to a DS345.
func NewSRSDS345(rw io.ReadWriter) *SRSDS345 {
	return &SRSDS345{newGenerator(rw, "SRS DS345")}
}

// Waveform returns the selected output function.
func (s *SRSDS345) Waveform() (Waveform, error) {
	code, err := query.Int(s.bus, "FUNC?")
	if err != nil {
		return "", err
	}
	wf, ok := ds345Waveforms[code]
	if !ok {
		return "", errors.Errorf("unknown DS345 function code %d", code)
	}
	return wf, nil
}

// SetWaveform selects the output function.
func (s *SRSDS345) SetWaveform(w Waveform) error {
	for code, wf := range ds345Waveforms {
		if wf == w {
			if err := s.bus.Command("FUNC %d", code); err != nil {
				return err
			}
			s.log.WithField("waveform", w).Info("waveform set")
			return nil
		}
	}
	return errors.Errorf("%s is not a DS345 waveform", w)
}

// SetFrequency sets the output frequency in Hz, enforcing the limits in
// the DS345 manual for the selected waveform.
func (s *SRSDS345) SetFrequency(hz float64) error {
	wf, err := s.Waveform()
	if err != nil {
		return err
	}
	switch {
	case wf == Noise:
		return errors.New("frequency is fixed at 10 MHz while the waveform is NOIS")
	case hz < 1e-6:
		return errors.New("minimum frequency is 1 uHz")
	case (wf == Sine || wf == Square) && hz > 30.2*units.Megahertz:
		return errors.Errorf("maximum frequency is 30.2 MHz for %s waves", wf)
	case (wf == Ramp || wf == Triangle) && hz > 100*units.Kilohertz:
		return errors.Errorf("maximum frequency is 100 kHz for %s waves", wf)
	}
	if err := s.bus.Command("FREQ %G", hz); err != nil {
		return err
	}
	s.log.WithField("hz", hz).Info("frequency set")
	return nil
}

// Voltage returns the peak-to-peak output amplitude in volts. The DS345
// reports amplitude with a two-letter unit suffix (for example "1.00VP")
// which is stripped before parsing.
func (s *SRSDS345) Voltage() (float64, error) {
	resp, err := s.bus.Query("AMPL?")
	if err != nil {
		return 0, err
	}
	raw := strings.TrimRight(strings.TrimSpace(resp), "VPRMDB")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "unparseable amplitude %q", resp)
	}
	return v, nil
}

// SetVoltage sets the peak-to-peak output amplitude in volts.
func (s *SRSDS345) SetVoltage(v float64) error {
	if err := s.bus.Command("AMPL %GVP", v); err != nil {
		return err
	}
	s.log.WithField("volts", v).Info("voltage set")
	return nil
}

// Phase returns the output phase in degrees.
func (s *SRSDS345) Phase() (float64, error) {
	return query.Float64(s.bus, "PHSE?")
}

// SetPhase sets the output phase in degrees relative to the 10 MHz
// reference clock.
func (s *SRSDS345) SetPhase(deg float64) error {
	wf, err := s.Waveform()
	if err != nil {
		return err
	}
	if wf == Noise {
		return errors.New("phase cannot be set while the waveform is NOIS")
	}
	if deg < -360 || deg > 360 {
		return errors.Errorf("phase %G outside -360 to 360 degrees", deg)
	}
	if err := s.bus.Command("PHSE %G", deg); err != nil {
		return err
	}
	s.log.WithField("degrees", deg).Info("phase set")
	return nil
}
