// Copyright (c) 2026 The photonlab hardware developers. All rights reserved.
// Project site: https://github.com/photonlab/hardware
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package gpib

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/multierr"
)

// Conn adapts a Controller into the io.ReadWriteCloser shape the SCPI
// layer expects. Writes are forwarded to the addressed instrument; a Read
// first instructs the adapter to read from the bus until EOI, so the
// write-then-read sequence of a SCPI query works unchanged. Close returns
// the instrument to front panel control and closes the underlying port
// when it is closable.
type Conn struct {
	c *Controller
}

// InstrumentConn returns an io.ReadWriteCloser addressing the controller's
// current instrument.
func (c *Controller) InstrumentConn() *Conn {
	return &Conn{c: c}
}

func (ic *Conn) Write(p []byte) (int, error) {
	n, err := ic.c.rw.Write(p)
	if err != nil {
		return n, err
	}
	return n, nil
}

func (ic *Conn) Read(p []byte) (int, error) {
	// auto 0: the adapter only reads from the bus when told to.
	if !ic.c.auto {
		if _, err := fmt.Fprintf(ic.c.rw, "++read eoi%c", ic.c.term); err != nil {
			return 0, fmt.Errorf("requesting read: %w", err)
		}
	}
	return ic.c.r.Read(p)
}

// SetReadTimeout forwards a new read window to the adapter's serial
// port, so a slow instrument behind the adapter can be waited on.
func (ic *Conn) SetReadTimeout(d time.Duration) error {
	if t, ok := ic.c.rw.(interface{ SetReadTimeout(time.Duration) error }); ok {
		return t.SetReadTimeout(d)
	}
	return fmt.Errorf("adapter transport has no adjustable read timeout")
}

func (ic *Conn) Close() error {
	err := ic.c.FrontPanel(true)
	if closer, ok := ic.c.rw.(io.Closer); ok {
		err = multierr.Append(err, closer.Close())
	}
	return err
}
