// Copyright (c) 2026 The photonlab hardware developers. All rights reserved.
// Project site: https://github.com/photonlab/hardware
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package fungen provides drivers for the arbitrary waveform and function
// generators on the bench: the Agilent 33250A, the SRS DS345, and the
// HP 33120A. All three speak SCPI-flavored ASCII; the drivers differ in the
// command dialect and in the frequency and amplitude limits they enforce
// before a command goes out on the wire.
package fungen

import (
	"io"
	"strconv"
	"strings"

	"github.com/gotmc/query"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/photonlab/hardware/scpi"
)

// Waveform identifies an output function shape.
type Waveform string

const (
	Sine     Waveform = "SIN"
	Square   Waveform = "SQU"
	Ramp     Waveform = "RAMP"
	Pulse    Waveform = "PULS"
	Noise    Waveform = "NOIS"
	DC       Waveform = "DC"
	Triangle Waveform = "TRI"
	User     Waveform = "USER"
)

// FunctionGenerator is the control surface every generator model
// shares. Model-specific features (duty cycle, arbitrary waveform
// upload, output enable) stay on the concrete types.
type FunctionGenerator interface {
	Identify() (scpi.Identity, error)
	Frequency() (float64, error)
	SetFrequency(hz float64) error
	Voltage() (float64, error)
	SetVoltage(v float64) error
	Waveform() (Waveform, error)
	SetWaveform(w Waveform) error
	Close() error
}

// generator carries the plumbing shared by every function generator
// driver: the SCPI client and a tagged logger.
type generator struct {
	bus *scpi.Client
	log *logrus.Entry
}

func newGenerator(rw io.ReadWriter, name string) generator {
	return generator{
		bus: scpi.NewClient(rw),
		log: logrus.WithField("instrument", name),
	}
}

// Identify queries *IDN? and parses the response.
func (g *generator) Identify() (scpi.Identity, error) {
	return g.bus.Identify()
}

// Frequency returns the output frequency in Hz.
func (g *generator) Frequency() (float64, error) {
	return query.Float64(g.bus, "FREQ?")
}

// Close releases the underlying bus handle.
func (g *generator) Close() error {
	return g.bus.Close()
}

// asciiWaveform reads FUNC? on instruments that report the shape as a
// mnemonic (33250A, 33120A).
func (g *generator) asciiWaveform() (Waveform, error) {
	resp, err := g.bus.Query("FUNC?")
	if err != nil {
		return "", err
	}
	return Waveform(strings.ToUpper(strings.TrimSpace(resp))), nil
}

func (g *generator) setASCIIWaveform(w Waveform) error {
	switch w {
	case Sine, Square, Ramp, Pulse, Noise, DC, User:
	default:
		return errors.Errorf("%s is not a recognized waveform", w)
	}
	if err := g.bus.Command("FUNC %s", w); err != nil {
		return err
	}
	g.log.WithField("waveform", w).Info("waveform set")
	return nil
}

func (g *generator) dutyCycle() (float64, error) {
	return query.Float64(g.bus, "FUNCtion:SQUare:DCYCLe?")
}

func (g *generator) setDutyCycle(percent float64) error {
	if percent < 0 || percent > 100 {
		return errors.Errorf("duty cycle %G%% outside 0-100", percent)
	}
	if err := g.bus.Command("FUNCtion:SQUare:DCYCLe %G", percent); err != nil {
		return err
	}
	g.log.WithField("percent", percent).Info("duty cycle set")
	return nil
}

// uploadPoints loads a normalized waveform into volatile memory. Values
// must lie in [-1, +1].
func (g *generator) uploadPoints(points []float64) error {
	if len(points) == 0 {
		return errors.New("empty waveform")
	}
	vals := make([]string, len(points))
	for i, p := range points {
		if p < -1 || p > 1 {
			return errors.Errorf("point %d (%G) outside [-1, +1]", i, p)
		}
		vals[i] = strconv.FormatFloat(p, 'G', -1, 64)
	}
	if err := g.bus.Command("DATA VOLATILE, %s", strings.Join(vals, ", ")); err != nil {
		return err
	}
	g.log.WithField("points", len(points)).Info("waveform uploaded to volatile memory")
	return nil
}

// copyVolatile names the waveform currently in volatile memory.
func (g *generator) copyVolatile(name string) error {
	if err := g.bus.Command("DATA:COPY %s", name); err != nil {
		return err
	}
	g.log.WithField("name", name).Info("volatile waveform saved")
	return nil
}
