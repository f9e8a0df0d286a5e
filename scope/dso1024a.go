// Copyright (c) 2026 The photonlab hardware developers. All rights reserved.
// Project site: https://github.com/photonlab/hardware
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package scope drives the Agilent DSO1024A digital oscilloscope and
// converts its ASCII waveform transfers into time traces.
package scope

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gotmc/query"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/photonlab/hardware/scpi"
)

// defaultSettle is how long an acquisition waits after SINGLE before
// reading the waveform out. The DSO1024A needs roughly this long to arm
// and fill its record at bench timebases.
const defaultSettle = 2 * time.Second

// Trace is one acquired waveform. Sample i was taken at T0 + i*DT.
type Trace struct {
	T0    float64 // time of the first sample in seconds
	DT    float64 // sample interval in seconds
	Volts []float64
}

// Times expands the trace timebase into per-sample timestamps in seconds.
func (t Trace) Times() []float64 {
	out := make([]float64, len(t.Volts))
	for i := range out {
		out[i] = t.T0 + float64(i)*t.DT
	}
	return out
}

// DSO1024A drives an Agilent DSO1024A four channel oscilloscope.
type DSO1024A struct {
	bus    *scpi.Client
	log    *logrus.Entry
	settle time.Duration
}

// Option configures a DSO1024A.
type Option func(*DSO1024A)

// WithSettle overrides the post-trigger settle delay used by Acquire.
func WithSettle(d time.Duration) Option {
	return func(o *DSO1024A) { o.settle = d }
}

// NewDSO1024A wraps an open bus connection to a DSO1024A.
func NewDSO1024A(rw io.ReadWriter, opts ...Option) *DSO1024A {
	o := &DSO1024A{
		bus:    scpi.NewClient(rw),
		log:    logrus.WithField("instrument", "Agilent DSO1024A"),
		settle: defaultSettle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Identify queries *IDN? and parses the response.
func (o *DSO1024A) Identify() (scpi.Identity, error) {
	return o.bus.Identify()
}

// Close releases the underlying bus handle.
func (o *DSO1024A) Close() error {
	return o.bus.Close()
}

// SetTimeout widens the bus read window, needed before transferring a
// deep record.
func (o *DSO1024A) SetTimeout(d time.Duration) error {
	return o.bus.SetTimeout(d)
}

// Run simulates pressing the Run button on the front panel.
func (o *DSO1024A) Run() error {
	return o.bus.Command(":RUN")
}

// Stop simulates pressing the Stop button on the front panel.
func (o *DSO1024A) Stop() error {
	return o.bus.Command(":STOP")
}

// Single simulates pressing the Single button on the front panel.
func (o *DSO1024A) Single() error {
	return o.bus.Command(":SINGLE")
}

// Acquire arms a single acquisition on the given channel (1-4) and reads
// the record back as an ASCII waveform.
func (o *DSO1024A) Acquire(channel int) (Trace, error) {
	if channel < 1 || channel > 4 {
		return Trace{}, errors.Errorf("channel %d out of range 1-4", channel)
	}
	setup := []string{
		"ACQuire:TYPE NORMAL",
		"SINGLE",
		"WAVeform:SOURce CHAN" + strconv.Itoa(channel),
		"WAVeform:FORMat ASCII",
	}
	for _, cmd := range setup {
		if err := o.bus.Command(cmd); err != nil {
			return Trace{}, err
		}
	}
	time.Sleep(o.settle)

	xinc, err := query.Float64(o.bus, "WAV:XINC?")
	if err != nil {
		return Trace{}, err
	}
	xor, err := query.Float64(o.bus, "WAV:XOR?")
	if err != nil {
		return Trace{}, err
	}
	data, err := o.bus.Query("WAVeform:DATA?")
	if err != nil {
		return Trace{}, err
	}
	volts, err := parseASCIIBlock(data)
	if err != nil {
		return Trace{}, err
	}
	// Resume free-running acquisition for the operator.
	if err := o.bus.Command("RUN"); err != nil {
		return Trace{}, err
	}
	o.log.WithFields(logrus.Fields{
		"channel": channel,
		"samples": len(volts),
	}).Info("trace acquired")
	return Trace{T0: xor, DT: xinc, Volts: volts}, nil
}

// parseASCIIBlock strips the IEEE-488.2 definite-length block header from
// an ASCII waveform transfer and parses the comma separated samples.
func parseASCIIBlock(data string) ([]float64, error) {
	data = strings.TrimSpace(data)
	if strings.HasPrefix(data, "#") {
		if len(data) < 2 {
			return nil, errors.New("truncated block header")
		}
		n := int(data[1] - '0')
		if n < 0 || n > 9 || len(data) < 2+n {
			return nil, errors.Errorf("malformed block header %q", data[:2])
		}
		data = data[2+n:]
	}
	fields := strings.Split(data, ",")
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "unparseable sample %q", f)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, errors.New("empty waveform record")
	}
	return out, nil
}
