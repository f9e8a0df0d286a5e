// Copyright (c) 2026 The photonlab hardware developers. All rights reserved.
// Project site: https://github.com/photonlab/hardware
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package ldd drives the ILX Lightwave LDX-3724B laser diode driver.
package ldd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gotmc/query"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/photonlab/hardware/scpi"
)

// DriverError is an error code read from the LDX-3724B error queue.
type DriverError struct {
	Code int
}

// driverErrors maps the LDX-3724B error codes the bench actually runs
// into to messages. Codes outside the table render as unknown.
var driverErrors = map[int]string{
	103: "improper syntax",
	104: "unknown command",
	105: "parameter out of range",
	123: "command timeout",
	201: "laser current limit",
	202: "laser voltage limit",
	204: "laser open circuit",
	403: "interlock open",
	404: "output shutdown",
}

func (e DriverError) Error() string {
	if s, ok := driverErrors[e.Code]; ok {
		return fmt.Sprintf("ldd error %d: %s", e.Code, s)
	}
	return fmt.Sprintf("ldd error %d: unknown error code", e.Code)
}

// ILXLightwave3724B drives an ILX Lightwave LDX-3724B laser diode driver.
type ILXLightwave3724B struct {
	bus *scpi.Client
	log *logrus.Entry
}

// NewILXLightwave3724B wraps an open bus connection to an LDX-3724B.
func NewILXLightwave3724B(rw io.ReadWriter) *ILXLightwave3724B {
	return &ILXLightwave3724B{
		bus: scpi.NewClient(rw),
		log: logrus.WithField("instrument", "ILX LDX-3724B"),
	}
}

// Identify queries *IDN? and parses the response.
func (l *ILXLightwave3724B) Identify() (scpi.Identity, error) {
	return l.bus.Identify()
}

// Close releases the underlying bus handle.
func (l *ILXLightwave3724B) Close() error {
	return l.bus.Close()
}

// Current returns the laser diode drive current in mA.
func (l *ILXLightwave3724B) Current() (float64, error) {
	return query.Float64(l.bus, "LAS:LDI?")
}

// SetCurrent sets the laser diode drive current setpoint in mA and then
// drains the error queue, so limit and interlock trips surface here
// instead of silently clamping.
func (l *ILXLightwave3724B) SetCurrent(ma float64) error {
	if ma < 0 {
		return errors.Errorf("negative drive current %G mA", ma)
	}
	if err := l.bus.Command("LAS:LDI %G", ma); err != nil {
		return err
	}
	if err := l.Errors(); err != nil {
		return err
	}
	l.log.WithField("mA", ma).Info("drive current set")
	return nil
}

// Output reports whether the laser output is enabled.
func (l *ILXLightwave3724B) Output() (bool, error) {
	return query.Bool(l.bus, "LAS:OUT?")
}

// SetOutput enables or disables the laser output.
func (l *ILXLightwave3724B) SetOutput(on bool) error {
	state := 0
	if on {
		state = 1
	}
	if err := l.bus.Command("LAS:OUT %d", state); err != nil {
		return err
	}
	l.log.WithField("on", on).Info("laser output switched")
	return nil
}

// Errors drains the instrument error queue. The LDX-3724B answers ERR?
// with a comma separated list of codes, or a bare 0 when the queue is
// empty. All pending errors are combined into the return value.
func (l *ILXLightwave3724B) Errors() error {
	resp, err := l.bus.Query("ERR?")
	if err != nil {
		return err
	}
	var combined error
	for _, field := range strings.Split(resp, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		code, err := strconv.Atoi(field)
		if err != nil {
			return errors.Wrapf(err, "unparseable error queue response %q", resp)
		}
		if code != 0 {
			combined = multierr.Append(combined, DriverError{Code: code})
		}
	}
	return combined
}
