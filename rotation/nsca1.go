// Copyright (c) 2026 The photonlab hardware developers. All rights reserved.
// Project site: https://github.com/photonlab/hardware
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package rotation controls the Newmark NSC-A1 single axis rotation stage.
// The stage that carries the gyro under test hangs off a dedicated host,
// so the package has two halves: the serial NSCA1 driver used by the
// rotationd daemon, and an HTTP Client for everyone else on the network.
package rotation

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
	"go.uber.org/multierr"
)

// TicksPerDegree is the NSC-A1 encoder resolution.
const TicksPerDegree = 1e4

// MaxVelocity is the fastest slew the bench allows, in deg/s. The gyro
// fixture is cantilevered; faster moves have thrown belts.
const MaxVelocity = 10.0

// idlePoll is how often WaitIdle re-reads the motor status.
const idlePoll = 100 * time.Millisecond

// NSCA1 drives a Newmark NSC-A1 stepper controller over its USB serial
// interface. Moves are started without blocking; call WaitIdle to block
// until the stage settles.
type NSCA1 struct {
	rw      io.ReadWriter
	r       *bufio.Reader
	channel int
	minX    int // soft limit, ticks
	maxX    int
	log     *logrus.Entry
}

// Option configures an NSCA1.
type Option func(*NSCA1)

// WithChannel selects the controller axis channel (default 1).
func WithChannel(ch int) Option {
	return func(s *NSCA1) { s.channel = ch }
}

// WithLimits overrides the soft travel limits in degrees. The defaults
// allow one full turn in either direction.
func WithLimits(minDeg, maxDeg float64) Option {
	return func(s *NSCA1) {
		s.minX = int(minDeg * TicksPerDegree)
		s.maxX = int(maxDeg * TicksPerDegree)
	}
}

// NewNSCA1 wraps an open connection to an NSC-A1 controller.
func NewNSCA1(rw io.ReadWriter, opts ...Option) *NSCA1 {
	s := &NSCA1{
		rw:      rw,
		r:       bufio.NewReader(rw),
		channel: 1,
		minX:    -10e4,
		maxX:    10e4,
		log:     logrus.WithField("instrument", "NSC-A1"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dial opens the NSC-A1 on the given serial device, e.g. /dev/ttyUSB0.
func Dial(device string, opts ...Option) (*NSCA1, error) {
	port, err := serial.Open(device, &serial.Mode{BaudRate: 9600})
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", device)
	}
	if err := port.SetReadTimeout(500 * time.Millisecond); err != nil {
		return nil, multierr.Append(err, port.Close())
	}
	return NewNSCA1(port, opts...), nil
}

// command frames cmd with the channel prefix and carriage return, sends
// it, and reads the single line response.
func (s *NSCA1) command(cmd string) (string, error) {
	if _, err := fmt.Fprintf(s.rw, "@%02d%s\r", s.channel, cmd); err != nil {
		return "", errors.Wrapf(err, "writing %q", cmd)
	}
	resp, err := s.r.ReadString('\r')
	if err == io.EOF && resp != "" {
		err = nil
	}
	if err != nil {
		return "", errors.Wrapf(err, "reading response to %q", cmd)
	}
	return strings.TrimRight(resp, "\r\n"), nil
}

// commandInt sends cmd and parses the response as an integer.
func (s *NSCA1) commandInt(cmd string) (int, error) {
	resp, err := s.command(cmd)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(resp))
	if err != nil {
		return 0, errors.Wrapf(err, "unparseable response %q to %q", resp, cmd)
	}
	return v, nil
}

// Identify returns the controller model string.
func (s *NSCA1) Identify() (string, error) {
	return s.command("ID")
}

// Close releases the serial port.
func (s *NSCA1) Close() error {
	if closer, ok := s.rw.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Position returns the stage position in encoder ticks.
func (s *NSCA1) Position() (int, error) {
	return s.commandInt("PX")
}

// Angle returns the stage position in degrees.
func (s *NSCA1) Angle() (float64, error) {
	ticks, err := s.Position()
	if err != nil {
		return 0, err
	}
	return float64(ticks) / TicksPerDegree, nil
}

// Velocity returns the slew velocity in deg/s.
func (s *NSCA1) Velocity() (float64, error) {
	hspd, err := s.commandInt("HSPD")
	if err != nil {
		return 0, err
	}
	return float64(hspd) / TicksPerDegree, nil
}

// SetVelocity sets the slew velocity in deg/s, capped at MaxVelocity.
func (s *NSCA1) SetVelocity(degPerSec float64) error {
	if degPerSec <= 0 || degPerSec > MaxVelocity {
		return errors.Errorf("velocity %G deg/s outside 0-%G", degPerSec, MaxVelocity)
	}
	if _, err := s.command(fmt.Sprintf("HSPD=%d", int(degPerSec*TicksPerDegree))); err != nil {
		return err
	}
	s.log.WithField("deg_per_sec", degPerSec).Info("velocity set")
	return nil
}

// checkLimits rejects destinations outside the soft travel limits.
func (s *NSCA1) checkLimits(ticks int) error {
	if ticks < s.minX || ticks > s.maxX {
		return errors.Errorf("destination %G deg outside travel limits %G to %G deg",
			float64(ticks)/TicksPerDegree,
			float64(s.minX)/TicksPerDegree,
			float64(s.maxX)/TicksPerDegree)
	}
	return nil
}

// MoveTo starts an absolute move to the given angle in degrees. It
// returns as soon as the move is commanded; use WaitIdle to block until
// the stage settles.
func (s *NSCA1) MoveTo(deg float64) error {
	ticks := int(deg * TicksPerDegree)
	if err := s.checkLimits(ticks); err != nil {
		return err
	}
	if _, err := s.command("ABS"); err != nil {
		return err
	}
	if _, err := s.command(fmt.Sprintf("X%d", ticks)); err != nil {
		return err
	}
	s.log.WithField("degrees", deg).Info("absolute move started")
	return nil
}

// CW starts a clockwise move through the given angle in degrees.
func (s *NSCA1) CW(deg float64) error {
	delta := int(deg * TicksPerDegree)
	here, err := s.Position()
	if err != nil {
		return err
	}
	if err := s.checkLimits(here + delta); err != nil {
		return err
	}
	if _, err := s.command("INC"); err != nil {
		return err
	}
	if _, err := s.command(fmt.Sprintf("X%d", delta)); err != nil {
		return err
	}
	s.log.WithField("degrees", deg).Info("incremental move started")
	return nil
}

// CCW starts a counterclockwise move through the given angle in degrees.
func (s *NSCA1) CCW(deg float64) error {
	return s.CW(-deg)
}

// Moving reports whether the motor is in motion.
func (s *NSCA1) Moving() (bool, error) {
	status, err := s.commandInt("MST")
	if err != nil {
		return false, err
	}
	return status != 0, nil
}

// WaitIdle blocks until the motor goes idle or ctx expires. On ctx
// expiry the stage is stopped before returning.
func (s *NSCA1) WaitIdle(ctx context.Context) error {
	tick := time.NewTicker(idlePoll)
	defer tick.Stop()
	for {
		moving, err := s.Moving()
		if err != nil {
			return err
		}
		if !moving {
			return nil
		}
		select {
		case <-ctx.Done():
			return multierr.Append(
				errors.Wrap(ctx.Err(), "waiting for stage to settle"),
				s.Stop())
		case <-tick.C:
		}
	}
}

// Stop halts any move in progress.
func (s *NSCA1) Stop() error {
	if _, err := s.command("STOP"); err != nil {
		return err
	}
	s.log.Warn("stage stopped")
	return nil
}
