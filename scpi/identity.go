// Copyright (c) 2026 The photonlab hardware developers. All rights reserved.
// Project site: https://github.com/photonlab/hardware
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package scpi

import (
	"fmt"
	"strings"
)

// Identity is the parsed response to a *IDN? query.
type Identity struct {
	Manufacturer string
	Model        string
	Serial       string
	Firmware     string
}

func (id Identity) String() string {
	return fmt.Sprintf("%s %s (s/n %s, fw %s)", id.Manufacturer, id.Model, id.Serial, id.Firmware)
}

// ParseIdentity splits a raw *IDN? response into its four comma-separated
// fields. Instruments that return fewer fields leave the remainder empty.
func ParseIdentity(raw string) Identity {
	var id Identity
	fields := strings.Split(strings.TrimSpace(raw), ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	if len(fields) > 0 {
		id.Manufacturer = fields[0]
	}
	if len(fields) > 1 {
		id.Model = fields[1]
	}
	if len(fields) > 2 {
		id.Serial = fields[2]
	}
	if len(fields) > 3 {
		id.Firmware = strings.Join(fields[3:], ",")
	}
	return id
}

// Identify queries *IDN? and parses the response.
func (c *Client) Identify() (Identity, error) {
	raw, err := c.Query("*IDN?")
	if err != nil {
		return Identity{}, err
	}
	return ParseIdentity(raw), nil
}
