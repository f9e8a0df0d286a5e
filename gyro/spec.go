// Copyright (c) 2026 The photonlab hardware developers. All rights reserved.
// Project site: https://github.com/photonlab/hardware
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package gyro

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"github.com/tidwall/jsonc"
)

// Spec describes a fiber optic gyro under test. Spec files are JSON with
// // comments allowed, since they are written by hand:
//
//	{ // Specs for the Kvothe gyro
//	    "diameter": 0.08,  // meters
//	    "length": 1085,    // meters of fiber
//	    "pitch": 37.4      // degrees
//	}
type Spec struct {
	Name        string  `json:"name,omitempty"`
	Diameter    float64 `json:"diameter,omitempty"`     // coil diameter, m
	Radius      float64 `json:"radius,omitempty"`       // coil radius, m
	Length      float64 `json:"length,omitempty"`       // fiber length, m
	Pitch       float64 `json:"pitch,omitempty"`        // angle between coil normal and stage normal, deg
	Sensitivity float64 `json:"sensitivity,omitempty"`  // lock-in sensitivity for calibration, V
	ScaleFactor float64 `json:"scale_factor,omitempty"` // deg/h per volt, from a previous calibration
}

// LoadSpec reads a gyro spec file. Radius and diameter are kept
// consistent: whichever the file supplies fills in the other, with
// radius winning if both are present.
func LoadSpec(path string) (Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, errors.Wrap(err, "reading gyro spec")
	}
	var s Spec
	if err := json.Unmarshal(jsonc.ToJSON(raw), &s); err != nil {
		return Spec{}, errors.Wrapf(err, "parsing gyro spec %s", path)
	}
	switch {
	case s.Radius != 0:
		s.Diameter = s.Radius * 2
	case s.Diameter != 0:
		s.Radius = s.Diameter / 2
	}
	return s, nil
}

// Save writes the spec back out as plain JSON. Comments from the loaded
// file are not preserved.
func (s Spec) Save(path string) error {
	raw, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return errors.Wrap(err, "encoding gyro spec")
	}
	return errors.Wrapf(os.WriteFile(path, append(raw, '\n'), 0o644), "writing %s", path)
}
