// Copyright (c) 2026 The photonlab hardware developers. All rights reserved.
// Project site: https://github.com/photonlab/hardware
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package scpi implements the ASCII command/response plumbing shared by
// every SCPI-speaking instrument driver in this module. A Client wraps an
// io.ReadWriter (serial port, TCP socket, or a GPIB controller conn) and
// exposes Query with the signature the typed helpers from gotmc/query
// expect, so query.Float64 and friends can be used directly on it.
package scpi

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Client is a SCPI client over a byte stream. It is not safe for
// concurrent use; each instrument owns exactly one bus handle.
type Client struct {
	rw       io.ReadWriter
	r        *bufio.Reader
	term     byte          // appended to outbound commands
	eot      byte          // terminates inbound responses
	errQuery string        // instrument error queue query, e.g. "SYST:ERR?"
	deadline time.Duration // per-read deadline for network transports
}

// readTimeouter is the adjustable read window of serial transports:
// go.bug.st/serial ports and the GPIB adapter conn implement it.
type readTimeouter interface {
	SetReadTimeout(d time.Duration) error
}

// deadliner is the read deadline surface of network transports.
type deadliner interface {
	SetReadDeadline(t time.Time) error
}

// Option configures a Client.
type Option func(*Client)

// WithTerminator sets the terminator appended to outbound commands.
func WithTerminator(b byte) Option {
	return func(c *Client) { c.term = b }
}

// WithEOT sets the byte that terminates inbound responses.
func WithEOT(b byte) Option {
	return func(c *Client) { c.eot = b }
}

// WithErrorQuery sets the command used to drain the instrument error
// queue, commonly "SYST:ERR?". Clients without an error query skip the
// instrument error check.
func WithErrorQuery(q string) Option {
	return func(c *Client) { c.errQuery = q }
}

// NewClient wraps rw in a SCPI client. By default commands are terminated
// with a line feed and responses are read up to a line feed.
func NewClient(rw io.ReadWriter, opts ...Option) *Client {
	c := &Client{
		rw:   rw,
		r:    bufio.NewReader(rw),
		term: '\n',
		eot:  '\n',
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Command formats according to a format specifier if arguments are given
// and writes the command to the instrument. Leading and trailing
// whitespace is stripped before the terminator is appended.
func (c *Client) Command(format string, a ...any) error {
	cmd := format
	if len(a) > 0 {
		cmd = fmt.Sprintf(format, a...)
	}
	_, err := fmt.Fprintf(c.rw, "%s%c", strings.TrimSpace(cmd), c.term)
	return errors.Wrapf(err, "writing %q", cmd)
}

// SetTimeout adjusts how long a Query waits for a response. Serial
// transports apply the new window immediately; network transports get
// it as a deadline armed before each read. Slow operations (deep
// waveform transfers, spectrum reads after a long sweep) need a wider
// window than the dial-time default.
func (c *Client) SetTimeout(d time.Duration) error {
	if d <= 0 {
		return errors.Errorf("invalid timeout %s", d)
	}
	switch t := c.rw.(type) {
	case readTimeouter:
		return t.SetReadTimeout(d)
	case deadliner:
		c.deadline = d
		return nil
	}
	return errors.New("transport has no adjustable read timeout")
}

// Query writes cmd to the instrument and reads one response, with the
// trailing terminator removed.
func (c *Client) Query(cmd string) (string, error) {
	if err := c.Command(cmd); err != nil {
		return "", err
	}
	if t, ok := c.rw.(deadliner); ok && c.deadline > 0 {
		if err := t.SetReadDeadline(time.Now().Add(c.deadline)); err != nil {
			return "", errors.Wrap(err, "arming read deadline")
		}
	}
	s, err := c.r.ReadString(c.eot)
	if err == io.EOF && s != "" {
		// Instruments asserting EOI without a terminator land here.
		err = nil
	}
	if err != nil {
		return "", errors.Wrapf(err, "reading response to %q", cmd)
	}
	return strings.TrimRight(s, "\r\n"), nil
}

// CheckedCommand writes cmd and then drains the instrument error queue,
// returning an InstrumentError if the instrument flagged one. Clients
// without an error query behave like Command.
func (c *Client) CheckedCommand(format string, a ...any) error {
	if err := c.Command(format, a...); err != nil {
		return err
	}
	if c.errQuery == "" {
		return nil
	}
	return c.InstrumentError()
}

// InstrumentError queries the instrument error queue and clears the status
// registers. A nil return means the queue head reported code 0.
func (c *Client) InstrumentError() error {
	if c.errQuery == "" {
		return nil
	}
	resp, err := c.Query(c.errQuery + ";*CLS")
	if err != nil {
		return err
	}
	resp = strings.ReplaceAll(resp, `"`, "")
	head, _, _ := strings.Cut(resp, ",")
	code, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil {
		return errors.Wrapf(err, "unparseable error queue response %q", resp)
	}
	if code != 0 {
		return InstrumentError{Code: code, Message: resp}
	}
	return nil
}

// Close closes the underlying stream when it is closable.
func (c *Client) Close() error {
	if closer, ok := c.rw.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Reset issues *RST followed by an error queue drain.
func (c *Client) Reset() error {
	return multierr.Append(c.Command("*RST"), c.InstrumentError())
}

// InstrumentError is an error reported by the instrument's own error
// queue, as opposed to a transport failure.
type InstrumentError struct {
	Code    int
	Message string
}

func (e InstrumentError) Error() string {
	return fmt.Sprintf("instrument error %d: %s", e.Code, e.Message)
}
