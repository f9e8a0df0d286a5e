// Copyright (c) 2026 The photonlab hardware developers. All rights reserved.
// Project site: https://github.com/photonlab/hardware
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package visa

import (
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"

	"github.com/photonlab/hardware/gpib"
)

// Dialer carries the cross-resource settings needed to open connections.
// The zero value is usable: it falls back to environment variables for the
// GPIB adapter port and applies a default timeout.
type Dialer struct {
	// AdapterPort is the serial device of the Prologix-style GPIB
	// adapter, required for GPIB resources. When empty, the
	// PROLOGIX_PORT environment variable is consulted.
	AdapterPort string

	// AdapterBaud is the baud rate for the GPIB adapter. Defaults to
	// 115200, the rate the adapters ship with.
	AdapterBaud int

	// Timeout bounds both TCP connection establishment and serial reads.
	// Defaults to 3 seconds.
	Timeout time.Duration
}

func (d Dialer) timeout() time.Duration {
	if d.Timeout > 0 {
		return d.Timeout
	}
	return 3 * time.Second
}

// Dial opens the byte stream behind a resource. The caller owns the
// returned stream and must close it.
func (d Dialer) Dial(r Resource) (io.ReadWriteCloser, error) {
	switch r.Kind {
	case KindTCP:
		addr := net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
		conn, err := net.DialTimeout("tcp", addr, d.timeout())
		return conn, errors.Wrapf(err, "dialing %s", r)
	case KindSerial:
		port, err := serial.Open(r.Device, &serial.Mode{BaudRate: r.BaudRate})
		if err != nil {
			return nil, errors.Wrapf(err, "opening %s", r)
		}
		if err := port.SetReadTimeout(d.timeout()); err != nil {
			port.Close()
			return nil, errors.Wrapf(err, "setting read timeout on %s", r)
		}
		return port, nil
	case KindGPIB:
		adapter := d.AdapterPort
		if adapter == "" {
			adapter = os.Getenv("PROLOGIX_PORT")
		}
		if adapter == "" {
			return nil, errors.Errorf("no GPIB adapter port configured for %s (set PROLOGIX_PORT)", r)
		}
		baud := d.AdapterBaud
		if baud == 0 {
			baud = 115200
		}
		port, err := serial.Open(adapter, &serial.Mode{BaudRate: baud})
		if err != nil {
			return nil, errors.Wrapf(err, "opening GPIB adapter %s", adapter)
		}
		if err := port.SetReadTimeout(d.timeout()); err != nil {
			port.Close()
			return nil, errors.Wrap(err, "setting adapter read timeout")
		}
		var opts []gpib.Option
		if r.SecondaryAddr != 0 {
			opts = append(opts, gpib.WithSecondaryAddress(r.SecondaryAddr))
		}
		ctrl, err := gpib.New(port, r.PrimaryAddr, false, opts...)
		if err != nil {
			port.Close()
			return nil, errors.Wrapf(err, "configuring GPIB controller for %s", r)
		}
		return ctrl.InstrumentConn(), nil
	}
	return nil, errors.Errorf("unsupported resource kind %v", r.Kind)
}

// Open parses and dials a resource string in one step using a zero-value
// Dialer.
func Open(resource string) (io.ReadWriteCloser, error) {
	r, err := Parse(resource)
	if err != nil {
		return nil, err
	}
	return Dialer{}.Dial(r)
}
