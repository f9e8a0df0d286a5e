// Copyright (c) 2026 The photonlab hardware developers. All rights reserved.
// Project site: https://github.com/photonlab/hardware
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package optpower drives the Newport 1830-C optical power meter. The
// 1830-C speaks a terse single-letter command set rather than full SCPI.
package optpower

import (
	"io"

	"github.com/gotmc/query"
	"github.com/sirupsen/logrus"

	"github.com/photonlab/hardware/scpi"
	"github.com/photonlab/hardware/units"
)

// Newport1830C drives a Newport 1830-C optical power meter.
type Newport1830C struct {
	bus *scpi.Client
	log *logrus.Entry
}

// NewNewport1830C wraps an open bus connection to a 1830-C.
func NewNewport1830C(rw io.ReadWriter) *Newport1830C {
	return &Newport1830C{
		bus: scpi.NewClient(rw),
		log: logrus.WithField("instrument", "Newport 1830-C"),
	}
}

// Identify queries *IDN? and parses the response.
func (n *Newport1830C) Identify() (scpi.Identity, error) {
	return n.bus.Identify()
}

// Close releases the underlying bus handle.
func (n *Newport1830C) Close() error {
	return n.bus.Close()
}

// Power returns the measured optical power in watts.
func (n *Newport1830C) Power() (float64, error) {
	return query.Float64(n.bus, "D?")
}

// PowerDBm returns the measured optical power in dBm.
func (n *Newport1830C) PowerDBm() (float64, error) {
	w, err := n.Power()
	if err != nil {
		return 0, err
	}
	return units.WattToDBm(w), nil
}

// SetAttenuator switches the internal attenuator in or out.
func (n *Newport1830C) SetAttenuator(on bool) error {
	if err := n.bus.Command(onOff("A", on)); err != nil {
		return err
	}
	n.log.WithField("on", on).Info("attenuator switched")
	return nil
}

// Attenuator reports whether the internal attenuator is in.
func (n *Newport1830C) Attenuator() (bool, error) {
	return query.Bool(n.bus, "A?")
}

// SetZero enables or disables the zero function, which subtracts the
// current reading from subsequent measurements.
func (n *Newport1830C) SetZero(on bool) error {
	if err := n.bus.Command(onOff("Z", on)); err != nil {
		return err
	}
	n.log.WithField("on", on).Info("zero reference switched")
	return nil
}

// Zero reports whether the zero function is active.
func (n *Newport1830C) Zero() (bool, error) {
	return query.Bool(n.bus, "Z?")
}

func onOff(letter string, on bool) string {
	if on {
		return letter + "1"
	}
	return letter + "0"
}
