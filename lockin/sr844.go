// Copyright (c) 2026 The photonlab hardware developers. All rights reserved.
// Project site: https://github.com/photonlab/hardware
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package lockin drives the Stanford Research Systems SR844 RF lock-in
// amplifier. Sensitivity and time constant are index-coded on the bus;
// the driver translates between indices and physical values so callers
// only ever see volts and seconds.
package lockin

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/gotmc/query"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/photonlab/hardware/scpi"
	"github.com/photonlab/hardware/units"
)

// sensitivities holds the SR844 full-scale sensitivities in Vrms, indexed
// by the SENS code. See page 113 of the SR844 manual.
var sensitivities = []float64{
	100e-9, 300e-9,
	1e-6, 3e-6, 10e-6, 30e-6, 100e-6, 300e-6,
	1e-3, 3e-3, 10e-3, 30e-3, 100e-3, 300e-3,
	1,
}

// sensitivityDBm holds the equivalent input power for each SENS code,
// assuming a 50 ohm source.
var sensitivityDBm = []float64{
	-127, -117, -107, -97, -87, -77, -67, -57, -47, -37, -27, -17, -7, 3, 13,
}

// timeConstants holds the SR844 filter time constants in seconds, indexed
// by the OFLT code. See page 115 of the SR844 manual.
var timeConstants = []float64{
	100e-6, 300e-6,
	1e-3, 3e-3, 10e-3, 30e-3, 100e-3, 300e-3,
	1, 3, 10, 30, 100, 300,
	1e3, 3e3, 10e3, 30e3,
}

// autogainPoll is how often Autogain re-reads the status byte.
const autogainPoll = 100 * time.Millisecond

// SR844 drives an SRS SR844 lock-in amplifier over GPIB or serial.
type SR844 struct {
	bus *scpi.Client
	log *logrus.Entry
}

// NewSR844 wraps an open bus connection to an SR844.
func NewSR844(rw io.ReadWriter) *SR844 {
	return &SR844{
		bus: scpi.NewClient(rw),
		log: logrus.WithField("instrument", "SRS SR844"),
	}
}

// Identify queries *IDN? and parses the response.
func (s *SR844) Identify() (scpi.Identity, error) {
	return s.bus.Identify()
}

// Close releases the underlying bus handle.
func (s *SR844) Close() error {
	return s.bus.Close()
}

// Phase returns the reference phase shift in degrees.
func (s *SR844) Phase() (float64, error) {
	return query.Float64(s.bus, "PHAS?")
}

// SetPhase sets the reference phase shift in degrees.
func (s *SR844) SetPhase(deg float64) error {
	if deg < -360 || deg > 360 {
		return errors.Errorf("phase %G outside -360 to 360 degrees", deg)
	}
	if err := s.bus.Command("PHAS %G", deg); err != nil {
		return err
	}
	s.log.WithField("degrees", deg).Info("phase set")
	return nil
}

// Sensitivity returns the full-scale sensitivity in Vrms.
func (s *SR844) Sensitivity() (float64, error) {
	code, err := query.Int(s.bus, "SENS?")
	if err != nil {
		return 0, err
	}
	if code < 0 || code >= len(sensitivities) {
		return 0, errors.Errorf("sensitivity code %d out of range", code)
	}
	return sensitivities[code], nil
}

// SensitivityDBm returns the full-scale sensitivity as an equivalent
// input power in dBm into 50 ohms.
func (s *SR844) SensitivityDBm() (float64, error) {
	code, err := query.Int(s.bus, "SENS?")
	if err != nil {
		return 0, err
	}
	if code < 0 || code >= len(sensitivityDBm) {
		return 0, errors.Errorf("sensitivity code %d out of range", code)
	}
	return sensitivityDBm[code], nil
}

// SetSensitivity sets the full-scale sensitivity. vrms must be one of the
// discrete values the SR844 supports (100 nV to 1 V in 1-3 steps).
func (s *SR844) SetSensitivity(vrms float64) error {
	for code, v := range sensitivities {
		if v == vrms {
			if err := s.bus.Command("SENS %d", code); err != nil {
				return err
			}
			s.log.WithField("sensitivity", units.FormatVoltage(vrms)).Info("sensitivity set")
			return nil
		}
	}
	return errors.Errorf("%s is not an SR844 sensitivity", units.FormatVoltage(vrms))
}

// TimeConstant returns the filter time constant in seconds.
func (s *SR844) TimeConstant() (float64, error) {
	code, err := query.Int(s.bus, "OFLT?")
	if err != nil {
		return 0, err
	}
	if code < 0 || code >= len(timeConstants) {
		return 0, errors.Errorf("time constant code %d out of range", code)
	}
	return timeConstants[code], nil
}

// SetTimeConstant sets the filter time constant. seconds must be one of
// the discrete values the SR844 supports (100 us to 30 ks in 1-3 steps).
func (s *SR844) SetTimeConstant(seconds float64) error {
	for code, tc := range timeConstants {
		if tc == seconds {
			if err := s.bus.Command("OFLT %d", code); err != nil {
				return err
			}
			s.log.WithField("seconds", seconds).Info("time constant set")
			return nil
		}
	}
	return errors.Errorf("%G s is not an SR844 time constant", seconds)
}

// X returns the in-phase component of the measurement in volts.
func (s *SR844) X() (float64, error) {
	return query.Float64(s.bus, "OUTP?1")
}

// Y returns the quadrature component of the measurement in volts.
func (s *SR844) Y() (float64, error) {
	return query.Float64(s.bus, "OUTP?2")
}

// R returns the measurement magnitude in volts.
func (s *SR844) R() (float64, error) {
	return query.Float64(s.bus, "OUTP?3")
}

// Autophase adjusts the reference phase so the current measurement has a
// Y value of zero and an X value equal to the magnitude R. Same as
// pressing Shift-Phase on the front panel.
func (s *SR844) Autophase() error {
	if err := s.bus.Command("APHS"); err != nil {
		return err
	}
	s.log.Info("autophase triggered")
	return nil
}

// Autogain runs the built-in AGAN function and blocks until the lock-in
// reports the operation complete or ctx expires. Autogain can take tens
// of seconds at long time constants.
func (s *SR844) Autogain(ctx context.Context) error {
	if err := s.bus.Command("AGAN"); err != nil {
		return err
	}
	s.log.Info("autogain started")
	tick := time.NewTicker(autogainPoll)
	defer tick.Stop()
	for {
		busy, err := query.Int(s.bus, "*STB?1")
		if err != nil {
			return err
		}
		if busy == 0 {
			s.log.Info("autogain complete")
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "waiting for autogain")
		case <-tick.C:
		}
	}
}

// Status reads the LIA status register.
func (s *SR844) Status() (Status, error) {
	v, err := query.Int(s.bus, "LIAS?")
	if err != nil {
		return 0, err
	}
	return Status(v), nil
}

// Status is the SR844 LIA status register. Bits latch when the condition
// occurs and clear on read. See page 134 of the SR844 manual.
type Status uint16

// Bit accessors, in register order.
func (st Status) ReferenceUnlocked() bool   { return st&(1<<0) != 0 }
func (st Status) FrequencyOutOfRange() bool { return st&(1<<1) != 0 }
func (st Status) Triggered() bool           { return st&(1<<3) != 0 }
func (st Status) InputOverload() bool       { return st&(1<<4) != 0 }
func (st Status) IFOverload() bool          { return st&(1<<5) != 0 }
func (st Status) FilterOverload() bool      { return st&(1<<6) != 0 }
func (st Status) FrequencyChanged() bool    { return st&(1<<7) != 0 }
func (st Status) CH1Overload() bool         { return st&(1<<8) != 0 }
func (st Status) CH2Overload() bool         { return st&(1<<9) != 0 }
func (st Status) AuxOverload() bool         { return st&(1<<10) != 0 }
func (st Status) RatioUnderflow() bool      { return st&(1<<11) != 0 }

var statusDescriptions = []struct {
	bit  uint
	name string
	desc string
}{
	{0, "ULK", "reference unlock detected"},
	{1, "FRQ", "reference frequency out of range"},
	{3, "TRG", "data storage triggered"},
	{4, "INP", "signal input overload"},
	{5, "RSV", "IF amplifier overload"},
	{6, "FLT", "time constant filter overload"},
	{7, "CHG", "reference frequency changed by more than 1%"},
	{8, "CH1", "channel 1 display or output overload"},
	{9, "CH2", "channel 2 display or output overload"},
	{10, "OAX", "aux input overload"},
	{11, "UAX", "ratio input underflow"},
}

// String lists the set status bits by mnemonic, or "ok" when none are set.
func (st Status) String() string {
	var set []string
	for _, d := range statusDescriptions {
		if st&(1<<d.bit) != 0 {
			set = append(set, d.name)
		}
	}
	if len(set) == 0 {
		return "ok"
	}
	return strings.Join(set, "|")
}

// Describe returns a line per set status bit explaining the condition.
func (st Status) Describe() []string {
	var out []string
	for _, d := range statusDescriptions {
		if st&(1<<d.bit) != 0 {
			out = append(out, d.name+": "+d.desc)
		}
	}
	return out
}
