// Copyright (c) 2026 The photonlab hardware developers. All rights reserved.
// Project site: https://github.com/photonlab/hardware
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package visa addresses instruments with VISA-style resource strings and
// dials them to a plain byte stream. Three transports are supported:
//
//	TCPIP0::192.168.0.20::INSTR          raw socket, default SCPI port
//	TCPIP0::192.168.0.20::5025::SOCKET   raw socket, explicit port
//	ASRL::/dev/ttyUSB0::115200::INSTR    serial port
//	GPIB0::10::INSTR                     GPIB via a Prologix-style adapter
//
// There is no vendor VISA library underneath; the resource string is only
// an addressing convention shared with the rest of the lab tooling.
package visa

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Kind enumerates the supported resource transports.
type Kind int

const (
	KindTCP Kind = iota
	KindSerial
	KindGPIB
)

func (k Kind) String() string {
	switch k {
	case KindTCP:
		return "TCPIP"
	case KindSerial:
		return "ASRL"
	case KindGPIB:
		return "GPIB"
	}
	return "UNKNOWN"
}

// DefaultSCPIPort is the raw-socket port most LAN instruments listen on.
const DefaultSCPIPort = 5025

// DefaultBaudRate applies to ASRL resources that omit a baud rate.
const DefaultBaudRate = 9600

// Resource is a parsed VISA-style resource string.
type Resource struct {
	Kind Kind

	// TCPIP
	Host string
	Port int

	// ASRL
	Device   string
	BaudRate int

	// GPIB
	Board         int
	PrimaryAddr   int
	SecondaryAddr int // 0 when unused
}

// String renders the resource back into its canonical VISA form.
func (r Resource) String() string {
	switch r.Kind {
	case KindTCP:
		if r.Port != DefaultSCPIPort {
			return fmt.Sprintf("TCPIP0::%s::%d::SOCKET", r.Host, r.Port)
		}
		return fmt.Sprintf("TCPIP0::%s::INSTR", r.Host)
	case KindSerial:
		return fmt.Sprintf("ASRL::%s::%d::INSTR", r.Device, r.BaudRate)
	case KindGPIB:
		if r.SecondaryAddr != 0 {
			return fmt.Sprintf("GPIB%d::%d::%d::INSTR", r.Board, r.PrimaryAddr, r.SecondaryAddr)
		}
		return fmt.Sprintf("GPIB%d::%d::INSTR", r.Board, r.PrimaryAddr)
	}
	return ""
}

// Parse parses a VISA-style resource string.
func Parse(s string) (Resource, error) {
	var r Resource
	fields := strings.Split(strings.TrimSpace(s), "::")
	if len(fields) < 2 {
		return r, errors.Errorf("invalid resource %q", s)
	}
	// Drop a trailing INSTR/SOCKET class; it is implied by the rest.
	class := strings.ToUpper(fields[len(fields)-1])
	if class == "INSTR" || class == "SOCKET" {
		fields = fields[:len(fields)-1]
	}
	head := strings.ToUpper(fields[0])
	switch {
	case strings.HasPrefix(head, "TCPIP"):
		r.Kind = KindTCP
		if len(fields) < 2 {
			return r, errors.Errorf("resource %q missing host", s)
		}
		r.Host = fields[1]
		r.Port = DefaultSCPIPort
		if len(fields) > 2 {
			port, err := strconv.Atoi(fields[2])
			if err != nil {
				return r, errors.Wrapf(err, "resource %q has invalid port", s)
			}
			r.Port = port
		}
	case strings.HasPrefix(head, "ASRL"):
		r.Kind = KindSerial
		if len(fields) < 2 {
			return r, errors.Errorf("resource %q missing device", s)
		}
		r.Device = fields[1]
		r.BaudRate = DefaultBaudRate
		if len(fields) > 2 {
			baud, err := strconv.Atoi(fields[2])
			if err != nil {
				return r, errors.Wrapf(err, "resource %q has invalid baud rate", s)
			}
			r.BaudRate = baud
		}
	case strings.HasPrefix(head, "GPIB"):
		r.Kind = KindGPIB
		if b := strings.TrimPrefix(head, "GPIB"); b != "" {
			board, err := strconv.Atoi(b)
			if err != nil {
				return r, errors.Errorf("invalid GPIB board in %q", s)
			}
			r.Board = board
		}
		if len(fields) < 2 {
			return r, errors.Errorf("resource %q missing primary address", s)
		}
		pad, err := strconv.Atoi(fields[1])
		if err != nil {
			return r, errors.Wrapf(err, "resource %q has invalid primary address", s)
		}
		if pad < 0 || pad > 30 {
			return r, errors.Errorf("GPIB primary address %d out of range 0-30", pad)
		}
		r.PrimaryAddr = pad
		if len(fields) > 2 {
			sad, err := strconv.Atoi(fields[2])
			if err != nil {
				return r, errors.Wrapf(err, "resource %q has invalid secondary address", s)
			}
			r.SecondaryAddr = sad
		}
	default:
		return r, errors.Errorf("unsupported resource %q", s)
	}
	return r, nil
}
