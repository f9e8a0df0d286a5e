// Copyright (c) 2026 The photonlab hardware developers. All rights reserved.
// Project site: https://github.com/photonlab/hardware
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package gpib drives GPIB instruments through a Prologix-style GPIB
// controller (USB, virtual COM port, or Ethernet). The controller is
// configured as controller-in-charge and addresses one instrument at a
// time. Controller commands are prefixed with `++` and are consumed by the
// adapter itself; everything else is forwarded to the instrument.
package gpib

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Controller models a GPIB controller-in-charge.
type Controller struct {
	rw            io.ReadWriter
	r             *bufio.Reader
	pad           int  // primary address, 0-30
	sad           int  // secondary address, 96-126, 0 when unused
	auto          bool // read-after-write
	eotChar       byte // appended by the adapter when EOI is detected
	term          byte // terminator appended to outbound data
	readTimeoutMS int
	writeDelay    time.Duration
	debug         bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithSecondaryAddress addresses an instrument with a secondary GPIB
// address, which must be in the range 96 to 126 inclusive.
func WithSecondaryAddress(sad int) Option {
	return func(c *Controller) { c.sad = sad }
}

// WithReadTimeout sets the adapter's read timeout. Resolution is one
// millisecond; values outside 1ms-3s are clamped by the adapter.
func WithReadTimeout(d time.Duration) Option {
	return func(c *Controller) { c.readTimeoutMS = int(d / time.Millisecond) }
}

// WithWriteDelay inserts a pause after every write. Some instruments drop
// commands when the controller streams them back to back.
func WithWriteDelay(d time.Duration) Option {
	return func(c *Controller) { c.writeDelay = d }
}

// WithDebug logs every command and response at debug level.
func WithDebug() Option {
	return func(c *Controller) { c.debug = true }
}

// New configures a GPIB controller-in-charge talking to the instrument at
// the given primary address over rw, which is typically a serial port or a
// TCP connection to the adapter. When clear is true the Selected Device
// Clear (SDC) message is sent to the instrument after configuration.
func New(rw io.ReadWriter, pad int, clear bool, opts ...Option) (*Controller, error) {
	c := &Controller{
		rw:            rw,
		r:             bufio.NewReader(rw),
		pad:           pad,
		eotChar:       '\n',
		term:          '\n',
		readTimeoutMS: 500,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.pad < 0 || c.pad > 30 {
		return nil, fmt.Errorf("invalid primary address %d (must be 0-30)", c.pad)
	}
	addrCmd := fmt.Sprintf("addr %d", c.pad)
	if c.sad != 0 {
		if c.sad < 96 || c.sad > 126 {
			return nil, fmt.Errorf("invalid secondary address %d (must be 96-126)", c.sad)
		}
		addrCmd = fmt.Sprintf("addr %d %d", c.pad, c.sad)
	}
	setup := []string{
		"savecfg 0", // don't wear out the adapter EEPROM with what follows
		addrCmd,
		"mode 1", // controller-in-charge
		"auto 0", // no read-after-write; reads are explicit
		"eoi 1",  // assert EOI with the last byte
		"eos 0",  // CR+LF on the GPIB side
		fmt.Sprintf("read_tmo_ms %d", c.readTimeoutMS),
		fmt.Sprintf("eot_char %d", c.eotChar),
		"eot_enable 1",
	}
	if clear {
		setup = append(setup, "clr")
	}
	for _, cmd := range setup {
		if err := c.CommandController(cmd); err != nil {
			return nil, fmt.Errorf("configuring adapter: %w", err)
		}
	}
	return c, nil
}

// Command formats according to a format specifier if arguments are given
// and sends the resulting command to the addressed instrument. Leading and
// trailing whitespace is stripped before the terminator is appended.
func (c *Controller) Command(format string, a ...any) error {
	cmd := format
	if len(a) > 0 {
		cmd = fmt.Sprintf(format, a...)
	}
	cmd = strings.TrimSpace(cmd)
	if c.debug {
		logrus.Debugf("gpib cmd %q", cmd)
	}
	_, err := fmt.Fprintf(c.rw, "%s%c", cmd, c.term)
	if c.writeDelay > 0 {
		time.Sleep(c.writeDelay)
	}
	return err
}

// Query sends the given command to the addressed instrument and reads back
// one response. Because read-after-write is disabled, the adapter is told
// to read until EOI after the command is written.
func (c *Controller) Query(cmd string) (string, error) {
	if err := c.Command(cmd); err != nil {
		return "", fmt.Errorf("writing %q: %w", cmd, err)
	}
	if !c.auto {
		if _, err := fmt.Fprintf(c.rw, "++read eoi%c", c.term); err != nil {
			return "", fmt.Errorf("requesting read: %w", err)
		}
	}
	s, err := c.r.ReadString(c.eotChar)
	if err == io.EOF && s != "" {
		err = nil
	}
	if c.debug {
		logrus.Debugf("gpib query %q -> %q", cmd, s)
	}
	return strings.TrimRight(s, "\r\n"), err
}

// CommandController sends a `++` command to the adapter itself. Nothing is
// transmitted on the GPIB bus.
func (c *Controller) CommandController(cmd string) error {
	cmd = strings.ToLower(strings.TrimSpace(cmd))
	if c.debug {
		logrus.Debugf("gpib ++%s", cmd)
	}
	_, err := fmt.Fprintf(c.rw, "++%s%c", cmd, c.term)
	if c.writeDelay > 0 {
		time.Sleep(c.writeDelay)
	}
	return err
}

// QueryController sends a `++` command to the adapter and returns its
// response.
func (c *Controller) QueryController(cmd string) (string, error) {
	if err := c.CommandController(cmd); err != nil {
		return "", err
	}
	s, err := c.r.ReadString(c.eotChar)
	if err == io.EOF && s != "" {
		err = nil
	}
	return strings.TrimRight(s, "\r\n"), err
}

// Version returns the adapter's version string.
func (c *Controller) Version() (string, error) {
	return c.QueryController("ver")
}

// InstrumentAddress returns the GPIB primary and secondary address the
// controller is currently set to talk to. The secondary address is zero
// when none is configured.
func (c *Controller) InstrumentAddress() (pad, sad int, err error) {
	s, err := c.QueryController("addr")
	if err != nil {
		return 0, 0, err
	}
	fields := strings.Fields(s)
	switch len(fields) {
	case 1:
		pad, err = strconv.Atoi(fields[0])
		return pad, 0, err
	case 2:
		pad, err = strconv.Atoi(fields[0])
		if err != nil {
			return 0, 0, err
		}
		sad, err = strconv.Atoi(fields[1])
		return pad, sad, err
	default:
		return 0, 0, fmt.Errorf("unexpected addr response %q", s)
	}
}

// ReadAfterWrite reports whether the adapter automatically addresses the
// instrument to talk after every write.
func (c *Controller) ReadAfterWrite() (bool, error) {
	s, err := c.QueryController("auto")
	if err != nil {
		return false, err
	}
	return s == "1", nil
}

// ReadTimeout returns the adapter read timeout in milliseconds.
func (c *Controller) ReadTimeout() (int, error) {
	s, err := c.QueryController("read_tmo_ms")
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(s))
}

// ServiceRequest reports whether the SRQ line is asserted.
func (c *Controller) ServiceRequest() (bool, error) {
	s, err := c.QueryController("srq")
	if err != nil {
		return false, err
	}
	return s == "1", nil
}

// ClearDevice sends the Selected Device Clear (SDC) message to the
// addressed instrument.
func (c *Controller) ClearDevice() error {
	return c.CommandController("clr")
}

// FrontPanel returns the instrument to local front panel control when
// local is true, or locks it into remote mode when false.
func (c *Controller) FrontPanel(local bool) error {
	if local {
		return c.CommandController("loc")
	}
	return c.CommandController("llo")
}
