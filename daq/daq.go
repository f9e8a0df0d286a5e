// Copyright (c) 2026 The photonlab hardware developers. All rights reserved.
// Project site: https://github.com/photonlab/hardware
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package daq reads the bench data acquisition unit that digitizes the
// lock-in amplifier's analog output. The unit presents the NI 9215 input
// stage behind a small SCPI front end: samples come back as a comma
// separated record of raw volts in the +/-10 V input range, and the
// caller rescales them to the signal the lock-in was measuring.
package daq

import (
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/photonlab/hardware/scpi"
	"github.com/photonlab/hardware/units"
)

// MinRate is the slowest output sample rate the unit supports, in Hz.
const MinRate = 2.0

// inputSpan is the full scale of the +/-10 V input range. Raw samples
// are divided by this before rescaling to the lock-in sensitivity.
const inputSpan = 10.0

// VoltageRange is an input range key understood by the acquisition unit.
type VoltageRange string

// Input ranges, matching the unit's CONF:RANG arguments.
const (
	Range10V VoltageRange = "10V"
	Range5V  VoltageRange = "5V"
	Range2V  VoltageRange = "2V"
	Range1V  VoltageRange = "1V"
	Range02V VoltageRange = "0.2V"
)

// Sensitivity is the surface Read uses to pick defaults from the lock-in
// amplifier driving the DAQ input. *lockin.SR844 implements it.
type Sensitivity interface {
	Sensitivity() (float64, error)
	TimeConstant() (float64, error)
}

// DAQ reads the remote data acquisition unit.
type DAQ struct {
	bus *scpi.Client
	log *logrus.Entry
	lia Sensitivity

	rate       float64 // sticky default, Hz; 0 means derive
	maxVoltage float64 // sticky default, V; 0 means derive

	// stale marks the bus handle desynchronized: a timed-out Read left
	// its query in flight, and the response will land in front of the
	// next one. Set on acquisition timeout, cleared by Reset.
	stale bool
}

// Option configures a DAQ.
type Option func(*DAQ)

// WithLockin lets Read derive its sample rate and scale factor from the
// lock-in amplifier settings when the caller does not pass them.
func WithLockin(lia Sensitivity) Option {
	return func(d *DAQ) { d.lia = lia }
}

// WithDefaultRate sets a sticky default sample rate in Hz.
func WithDefaultRate(hz float64) Option {
	return func(d *DAQ) { d.rate = hz }
}

// WithDefaultMaxVoltage sets a sticky default scale factor in volts.
func WithDefaultMaxVoltage(v float64) Option {
	return func(d *DAQ) { d.maxVoltage = v }
}

// New wraps an open bus connection to the acquisition unit.
func New(rw io.ReadWriter, opts ...Option) *DAQ {
	d := &DAQ{
		bus: scpi.NewClient(rw),
		log: logrus.WithField("instrument", "DAQ"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Identify queries *IDN? and parses the response.
func (d *DAQ) Identify() (scpi.Identity, error) {
	return d.bus.Identify()
}

// Reset returns the unit to its power-on configuration. *RST also
// flushes the unit's output queue, so a bus handle poisoned by a
// timed-out acquisition is usable again afterwards.
func (d *DAQ) Reset() error {
	if err := d.bus.Command("*RST"); err != nil {
		return err
	}
	d.stale = false
	return nil
}

// Close releases the underlying bus handle.
func (d *DAQ) Close() error {
	return d.bus.Close()
}

// SetInputRange selects the analog input range.
func (d *DAQ) SetInputRange(r VoltageRange) error {
	switch r {
	case Range10V, Range5V, Range2V, Range1V, Range02V:
	default:
		return errors.Errorf("unknown input range %q", r)
	}
	if err := d.bus.Command("CONF:RANG %s", r); err != nil {
		return err
	}
	d.log.WithField("range", r).Info("input range set")
	return nil
}

// readConfig carries the per-call acquisition parameters.
type readConfig struct {
	rate         float64
	maxVoltage   float64
	oversampling int
	timeout      time.Duration
}

// ReadOption adjusts one acquisition.
type ReadOption func(*readConfig)

// WithRate sets the output sample rate in Hz for this acquisition.
func WithRate(hz float64) ReadOption {
	return func(c *readConfig) { c.rate = hz }
}

// WithMaxVoltage sets the scale factor for this acquisition: a full
// scale +/-10 V reading maps to +/-maxVoltage.
func WithMaxVoltage(v float64) ReadOption {
	return func(c *readConfig) { c.maxVoltage = v }
}

// WithOversampling sets how many raw samples are averaged into each
// output sample. Averaging N uncorrelated readings cuts the noise by
// sqrt(N). Default 10.
func WithOversampling(n int) ReadOption {
	return func(c *readConfig) { c.oversampling = n }
}

// WithTimeout overrides the acquisition timeout. By default Read allows
// the sample duration plus a grace period.
func WithTimeout(d time.Duration) ReadOption {
	return func(c *readConfig) { c.timeout = d }
}

// Read acquires seconds worth of data and returns it scaled to volts at
// the lock-in input. Raw samples are taken at rate*oversampling and
// averaged down to rate samples per second.
func (d *DAQ) Read(ctx context.Context, seconds float64, opts ...ReadOption) ([]float64, error) {
	if seconds <= 0 {
		return nil, errors.Errorf("non-positive sample duration %G s", seconds)
	}
	cfg := readConfig{
		rate:         d.rate,
		maxVoltage:   d.maxVoltage,
		oversampling: 10,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.oversampling < 1 {
		return nil, errors.Errorf("oversampling ratio %d below 1", cfg.oversampling)
	}
	if err := d.resolveDefaults(&cfg); err != nil {
		return nil, err
	}
	if cfg.rate < MinRate {
		return nil, errors.Errorf("sample rate must be at least %G Hz, got %G", MinRate, cfg.rate)
	}
	if d.stale {
		return nil, errors.New("bus desynchronized by a timed-out acquisition, Reset the unit first")
	}
	if cfg.timeout == 0 {
		cfg.timeout = time.Duration(seconds*float64(time.Second)) + 5*time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	sampleRate := cfg.rate * float64(cfg.oversampling)
	n := int(seconds * sampleRate)
	if n < cfg.oversampling {
		return nil, errors.Errorf("duration %G s too short for one output sample", seconds)
	}

	if err := d.bus.Command("SAMP:RATE %G", sampleRate); err != nil {
		return nil, err
	}
	raw, err := d.readRecord(ctx, n)
	if err != nil {
		return nil, err
	}

	scaled := downsample(raw, cfg.oversampling)
	for i := range scaled {
		scaled[i] = scaled[i] / inputSpan * cfg.maxVoltage
	}
	d.log.WithFields(logrus.Fields{
		"seconds": seconds,
		"rate":    cfg.rate,
		"scale":   units.FormatVoltage(cfg.maxVoltage),
		"samples": len(scaled),
	}).Info("acquisition complete")
	return scaled, nil
}

// resolveDefaults fills rate and maxVoltage from the lock-in amplifier
// when the caller left them unset. The rate follows the lock-in
// bandwidth: a tenth of the reciprocal time constant, floored at MinRate.
func (d *DAQ) resolveDefaults(cfg *readConfig) error {
	if cfg.rate == 0 {
		if d.lia == nil {
			cfg.rate = MinRate
		} else {
			tc, err := d.lia.TimeConstant()
			if err != nil {
				return errors.Wrap(err, "deriving sample rate from lock-in")
			}
			cfg.rate = 0.1 / tc
			if cfg.rate < MinRate {
				cfg.rate = MinRate
			}
			d.log.WithField("hz", cfg.rate).Debug("sample rate derived from lock-in time constant")
		}
	}
	if cfg.maxVoltage == 0 {
		if d.lia == nil {
			// No scale reference: return raw input volts.
			cfg.maxVoltage = inputSpan
		} else {
			sens, err := d.lia.Sensitivity()
			if err != nil {
				return errors.Wrap(err, "deriving scale factor from lock-in")
			}
			cfg.maxVoltage = sens
			d.log.WithField("scale", units.FormatVoltage(sens)).Debug("scale factor derived from lock-in sensitivity")
		}
	}
	return nil
}

// readRecord queries n samples, waiting out the acquisition in a
// goroutine so ctx expiry is honored even though the bus read blocks.
func (d *DAQ) readRecord(ctx context.Context, n int) ([]float64, error) {
	type result struct {
		raw string
		err error
	}
	ch := make(chan result, 1)
	go func() {
		raw, err := d.bus.Query("READ? " + strconv.Itoa(n))
		ch <- result{raw, err}
	}()
	select {
	case <-ctx.Done():
		// The query goroutine still owns the bus and its response will
		// arrive ahead of whatever is sent next. Poison the handle so
		// callers Reset before reading again.
		d.stale = true
		return nil, errors.Wrap(ctx.Err(), "acquisition timed out")
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		return parseRecord(res.raw, n)
	}
}

func parseRecord(raw string, want int) ([]float64, error) {
	fields := strings.Split(strings.TrimSpace(raw), ",")
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
	if len(out) != want {
		return nil, errors.Errorf("short record: got %d samples, want %d", len(out), want)
	}
	return out, nil
}

// downsample averages consecutive blocks of ratio samples.
func downsample(raw []float64, ratio int) []float64 {
	out := make([]float64, 0, len(raw)/ratio)
	for i := 0; i+ratio <= len(raw); i += ratio {
		var sum float64
		for _, v := range raw[i : i+ratio] {
			sum += v
		}
		out = append(out, sum/float64(ratio))
	}
	return out
}
