// Copyright (c) 2026 The photonlab hardware developers. All rights reserved.
// Project site: https://github.com/photonlab/hardware
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package specan

import (
	"io"
	"time"

	"github.com/gotmc/query"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/photonlab/hardware/scpi"
	"github.com/photonlab/hardware/units"
)

// RFTrace is one RF spectrum sweep.
type RFTrace struct {
	Frequency []float64 // Hz
	Power     []float64 // dBm
}

// RohdeSchwarzFSEA20 drives a Rohde & Schwarz FSEA 20 RF spectrum
// analyzer over GPIB.
type RohdeSchwarzFSEA20 struct {
	bus *scpi.Client
	log *logrus.Entry
}

// NewRohdeSchwarzFSEA20 wraps an open bus connection to an FSEA 20.
func NewRohdeSchwarzFSEA20(rw io.ReadWriter) *RohdeSchwarzFSEA20 {
	return &RohdeSchwarzFSEA20{
		bus: scpi.NewClient(rw),
		log: logrus.WithField("instrument", "R&S FSEA 20"),
	}
}

// Identify queries *IDN? and parses the response.
func (r *RohdeSchwarzFSEA20) Identify() (scpi.Identity, error) {
	return r.bus.Identify()
}

// Close releases the underlying bus handle.
func (r *RohdeSchwarzFSEA20) Close() error {
	return r.bus.Close()
}

// SetTimeout widens the bus read window for slow sweeps.
func (r *RohdeSchwarzFSEA20) SetTimeout(d time.Duration) error {
	return r.bus.SetTimeout(d)
}

// Start returns the sweep start frequency in Hz.
func (r *RohdeSchwarzFSEA20) Start() (float64, error) {
	return query.Float64(r.bus, "FREQ:STAR?")
}

// SetStart sets the sweep start frequency in Hz.
func (r *RohdeSchwarzFSEA20) SetStart(hz float64) error {
	return r.setFrequency("FREQ:STAR", hz)
}

// Stop returns the sweep stop frequency in Hz.
func (r *RohdeSchwarzFSEA20) Stop() (float64, error) {
	return query.Float64(r.bus, "FREQ:STOP?")
}

// SetStop sets the sweep stop frequency in Hz.
func (r *RohdeSchwarzFSEA20) SetStop(hz float64) error {
	return r.setFrequency("FREQ:STOP", hz)
}

// Center returns the sweep center frequency in Hz.
func (r *RohdeSchwarzFSEA20) Center() (float64, error) {
	return query.Float64(r.bus, "FREQ:CENT?")
}

// SetCenter sets the sweep center frequency in Hz.
func (r *RohdeSchwarzFSEA20) SetCenter(hz float64) error {
	return r.setFrequency("FREQ:CENT", hz)
}

// Span returns the sweep span in Hz.
func (r *RohdeSchwarzFSEA20) Span() (float64, error) {
	return query.Float64(r.bus, "FREQ:SPAN?")
}

// SetSpan sets the sweep span in Hz.
func (r *RohdeSchwarzFSEA20) SetSpan(hz float64) error {
	return r.setFrequency("FREQ:SPAN", hz)
}

// ResolutionBandwidth returns the resolution bandwidth in Hz.
func (r *RohdeSchwarzFSEA20) ResolutionBandwidth() (float64, error) {
	return query.Float64(r.bus, "BAND:RES?")
}

// SetResolutionBandwidth sets the resolution bandwidth in Hz.
func (r *RohdeSchwarzFSEA20) SetResolutionBandwidth(hz float64) error {
	return r.setFrequency("BAND:RES", hz)
}

// VideoBandwidth returns the video bandwidth in Hz.
func (r *RohdeSchwarzFSEA20) VideoBandwidth() (float64, error) {
	return query.Float64(r.bus, "BAND:VID?")
}

// SetVideoBandwidth sets the video bandwidth in Hz.
func (r *RohdeSchwarzFSEA20) SetVideoBandwidth(hz float64) error {
	return r.setFrequency("BAND:VID", hz)
}

// SweepTime returns the sweep time in seconds.
func (r *RohdeSchwarzFSEA20) SweepTime() (float64, error) {
	return query.Float64(r.bus, "SWE:TIME?")
}

// SetSweepTime sets the sweep time in seconds.
func (r *RohdeSchwarzFSEA20) SetSweepTime(seconds float64) error {
	if err := r.bus.Command("SWE:TIME %G", seconds); err != nil {
		return err
	}
	r.log.WithField("seconds", seconds).Info("sweep time set")
	return nil
}

func (r *RohdeSchwarzFSEA20) setFrequency(cmd string, hz float64) error {
	if hz < 0 {
		return errors.Errorf("negative frequency %G Hz", hz)
	}
	if err := r.bus.Command("%s %G", cmd, hz); err != nil {
		return err
	}
	r.log.WithFields(logrus.Fields{
		"command":   cmd,
		"frequency": units.FormatFrequency(hz),
	}).Info("frequency set")
	return nil
}

// Trace reads trace 1 from the last sweep and synthesizes the frequency
// axis from the configured start and stop frequencies.
func (r *RohdeSchwarzFSEA20) Trace() (RFTrace, error) {
	start, err := r.Start()
	if err != nil {
		return RFTrace{}, err
	}
	stop, err := r.Stop()
	if err != nil {
		return RFTrace{}, err
	}
	raw, err := r.bus.Query("TRAC? TRACE1")
	if err != nil {
		return RFTrace{}, err
	}
	power, err := parseCSV(raw, 0)
	if err != nil {
		return RFTrace{}, errors.Wrap(err, "parsing trace data")
	}
	if len(power) == 0 {
		return RFTrace{}, errors.New("empty trace")
	}
	freq := make([]float64, len(power))
	if len(power) == 1 {
		freq[0] = start
	} else {
		step := (stop - start) / float64(len(power)-1)
		for i := range freq {
			freq[i] = start + float64(i)*step
		}
	}
	r.log.WithField("points", len(power)).Info("trace read")
	return RFTrace{Frequency: freq, Power: power}, nil
}
