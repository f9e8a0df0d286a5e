// Copyright (c) 2026 The photonlab hardware developers. All rights reserved.
// Project site: https://github.com/photonlab/hardware
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package specan drives the two spectrum analyzers on the bench: the
// ANDO AQ6317B optical spectrum analyzer and the Rohde & Schwarz FSEA 20
// RF spectrum analyzer.
package specan

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/photonlab/hardware/scpi"
)

// Spectrum is one optical spectrum reading.
type Spectrum struct {
	Wavelength []float64 // nm
	Power      []float64 // dBm
}

// ANDOAQ6317B drives an ANDO AQ6317B optical spectrum analyzer.
type ANDOAQ6317B struct {
	bus *scpi.Client
	log *logrus.Entry
}

// NewANDOAQ6317B wraps an open bus connection to an AQ6317B.
func NewANDOAQ6317B(rw io.ReadWriter) *ANDOAQ6317B {
	return &ANDOAQ6317B{
		bus: scpi.NewClient(rw),
		log: logrus.WithField("instrument", "ANDO AQ6317B"),
	}
}

// Identify queries *IDN? and parses the response.
func (a *ANDOAQ6317B) Identify() (scpi.Identity, error) {
	return a.bus.Identify()
}

// Close releases the underlying bus handle.
func (a *ANDOAQ6317B) Close() error {
	return a.bus.Close()
}

// SetTimeout widens the bus read window. Trace reads after a long sweep
// take well past the dial-time default.
func (a *ANDOAQ6317B) SetTimeout(d time.Duration) error {
	return a.bus.SetTimeout(d)
}

// Single starts a single sweep.
func (a *ANDOAQ6317B) Single() error {
	return a.bus.Command("SGL")
}

// Repeat starts repeated sweeps.
func (a *ANDOAQ6317B) Repeat() error {
	return a.bus.Command("RPT")
}

// Stop halts the sweep in progress.
func (a *ANDOAQ6317B) Stop() error {
	return a.bus.Command("STP")
}

// Spectrum reads the last sweep from trace B. The AQ6317B prefixes each
// record with two bookkeeping values which are dropped.
func (a *ANDOAQ6317B) Spectrum() (Spectrum, error) {
	powerRaw, err := a.bus.Query("LDATB")
	if err != nil {
		return Spectrum{}, err
	}
	power, err := parseCSV(powerRaw, 2)
	if err != nil {
		return Spectrum{}, errors.Wrap(err, "parsing level data")
	}
	wlRaw, err := a.bus.Query("WDATB")
	if err != nil {
		return Spectrum{}, err
	}
	wavelength, err := parseCSV(wlRaw, 2)
	if err != nil {
		return Spectrum{}, errors.Wrap(err, "parsing wavelength data")
	}
	if len(wavelength) != len(power) {
		return Spectrum{}, errors.Errorf("wavelength and level records disagree: %d vs %d points",
			len(wavelength), len(power))
	}
	a.log.WithField("points", len(power)).Info("spectrum read")
	return Spectrum{Wavelength: wavelength, Power: power}, nil
}

// parseCSV parses a comma separated record of floats, discarding the
// first skip values.
func parseCSV(s string, skip int) ([]float64, error) {
	fields := strings.Split(strings.TrimSpace(s), ",")
	if len(fields) <= skip {
		return nil, errors.Errorf("record has %d values, expected more than %d", len(fields), skip)
	}
	fields = fields[skip:]
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "unparseable value %q", f)
		}
		out = append(out, v)
	}
	return out, nil
}
