// Copyright (c) 2026 The photonlab hardware developers. All rights reserved.
// Project site: https://github.com/photonlab/hardware
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package fungen

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSquarePulse(t *testing.T) {
	got, err := squarePulse(8, 0.5, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1, 1, -1, -1, -1, -1}, got)
}

func TestSquarePulseEdges(t *testing.T) {
	// Quarter-cycle rise and fall ramps around a half-cycle plateau.
	got, err := squarePulse(8, 0.5, 0.25, 0.25)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 1, 1, 1, 1, 0, -1}, got)
}

func TestSquarePulseRejects(t *testing.T) {
	_, err := squarePulse(8, 1.5, 0, 0)
	assert.Error(t, err)
	_, err = squarePulse(8, 0.5, -0.1, 0)
	assert.Error(t, err)
	_, err = squarePulse(8, 1, 0.25, 0)
	assert.Error(t, err, "plateau plus edges cannot exceed the cycle")
}

func TestRotate(t *testing.T) {
	s := []float64{1, 2, 3, 4}
	assert.Equal(t, []float64{4, 1, 2, 3}, rotate(s, 1))
	assert.Equal(t, []float64{2, 3, 4, 1}, rotate(s, -1))
	assert.Equal(t, s, rotate(s, 0))
	assert.Equal(t, s, rotate(s, 4))
}

func TestDoubleGateCentered(t *testing.T) {
	dg, err := doubleGate(0.5, 0.25, 0, 0, true)
	require.NoError(t, err)
	require.Len(t, dg, gatePoints)

	// First half: a 1000-point gate rotated left by 500 straddles the
	// cycle start.
	assert.Equal(t, 1.0, dg[0])
	assert.Equal(t, 1.0, dg[499])
	assert.Equal(t, -1.0, dg[500])
	assert.Equal(t, -1.0, dg[1499])
	assert.Equal(t, 1.0, dg[1500])
	// Second half: a 500-point gate rotated left by 250.
	assert.Equal(t, 1.0, dg[2000])
	assert.Equal(t, 1.0, dg[2249])
	assert.Equal(t, -1.0, dg[2250])
	assert.Equal(t, -1.0, dg[3749])
	assert.Equal(t, 1.0, dg[3750])
}

func TestDoubleGateNoRoll(t *testing.T) {
	dg, err := doubleGate(0.5, 0.25, 0, 0, false)
	require.NoError(t, err)
	assert.Equal(t, 1.0, dg[0])
	assert.Equal(t, 1.0, dg[999])
	assert.Equal(t, -1.0, dg[1000])
	assert.Equal(t, 1.0, dg[2000])
	assert.Equal(t, 1.0, dg[2499])
	assert.Equal(t, -1.0, dg[2500])
}

// uploadedPoints parses the waveform out of a recorded DATA VOLATILE
// command line.
func uploadedPoints(t *testing.T, line string) []float64 {
	t.Helper()
	fields := strings.Split(line, ", ")
	require.Equal(t, "DATA VOLATILE", fields[0])
	points := make([]float64, len(fields)-1)
	for i, f := range fields[1:] {
		v, err := strconv.ParseFloat(f, 64)
		require.NoError(t, err)
		points[i] = v
	}
	return points
}

func TestSetGatedDutyCycle(t *testing.T) {
	bus := newTestBus()
	awg := NewAgilent33250A(bus)
	require.NoError(t, awg.SetGatedDutyCycle(0.25, 0, 0))

	lines := bus.lines()
	require.Len(t, lines, 4)
	points := uploadedPoints(t, lines[0])
	require.Len(t, points, gatePoints)
	assert.Equal(t, 1.0, points[0])
	assert.Equal(t, 1.0, points[999])
	assert.Equal(t, -1.0, points[1000])
	assert.Equal(t, []string{
		"DATA:COPY PULSEWAVEFORM",
		"FUNC USER",
		"FUNC:USER PULSEWAVEFORM",
	}, lines[1:])
}

func TestSetGatedDutyCycleRejectsBadDuty(t *testing.T) {
	bus := newTestBus()
	awg := NewAgilent33250A(bus)
	require.Error(t, awg.SetGatedDutyCycle(1.5, 0, 0))
	assert.Empty(t, bus.lines(), "nothing goes on the wire for a bad duty cycle")
}

func TestSetDoubleGateCommands(t *testing.T) {
	bus := newTestBus()
	awg := NewAgilent33250A(bus)
	require.NoError(t, awg.SetDoubleGate(0.5, 0.25, 0, 0))

	lines := bus.lines()
	require.Len(t, lines, 3)
	require.Len(t, uploadedPoints(t, lines[0]), gatePoints)
	// The double gates stay on the named USER slot without reselecting it.
	assert.Equal(t, []string{"DATA:COPY PULSEWAVEFORM", "FUNC USER"}, lines[1:])
}

func TestSetDoubleGateAndNotch(t *testing.T) {
	bus := newTestBus()
	awg := NewAgilent33250A(bus)
	require.NoError(t, awg.SetDoubleGateAndNotch(0.5, 0.5, 0.25, 0, 0, 0))

	lines := bus.lines()
	require.Len(t, lines, 3)
	points := uploadedPoints(t, lines[0])
	require.Len(t, points, gatePoints)

	// The notch occupies the first quarter cycle at zero phase and flips
	// the gate polarity there.
	assert.Equal(t, -1.0, points[0], "gate high inside the notch is inverted")
	assert.Equal(t, 1.0, points[1500], "gate high outside the notch passes through")
	for i, p := range points {
		require.GreaterOrEqual(t, p, -1.0, "point %d", i)
		require.LessOrEqual(t, p, 1.0, "point %d", i)
	}
	assert.Equal(t, []string{"DATA:COPY PULSEWAVEFORM", "FUNC USER"}, lines[1:])
}
