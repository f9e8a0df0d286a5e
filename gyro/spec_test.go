// Copyright (c) 2026 The photonlab hardware developers. All rights reserved.
// Project site: https://github.com/photonlab/hardware
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package gyro

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSpecFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gyro.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadSpec(t *testing.T) {
	path := writeSpecFile(t, `{ // Specs for the Kvothe gyro
    "name": "kvothe",
    "diameter": 0.08,  // meters
    "length": 1085,    // meters of fiber
    "pitch": 37.4,     // degrees
    "scale_factor": 14400
}`)
	s, err := LoadSpec(path)
	require.NoError(t, err)
	assert.Equal(t, "kvothe", s.Name)
	assert.Equal(t, 0.08, s.Diameter)
	assert.Equal(t, 0.04, s.Radius)
	assert.Equal(t, 1085.0, s.Length)
	assert.Equal(t, 37.4, s.Pitch)
	assert.Equal(t, 14400.0, s.ScaleFactor)
}

func TestLoadSpecRadiusWins(t *testing.T) {
	path := writeSpecFile(t, `{"radius": 0.05, "diameter": 0.3}`)
	s, err := LoadSpec(path)
	require.NoError(t, err)
	assert.Equal(t, 0.05, s.Radius)
	assert.Equal(t, 0.1, s.Diameter)
}

func TestLoadSpecErrors(t *testing.T) {
	_, err := LoadSpec(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = LoadSpec(writeSpecFile(t, `{"diameter": `))
	assert.Error(t, err)
}

func TestSpecRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	in := Spec{Name: "kvothe", Radius: 0.04, Diameter: 0.08, Pitch: 37.4}
	require.NoError(t, in.Save(path))

	out, err := LoadSpec(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
