// Copyright (c) 2026 The photonlab hardware developers. All rights reserved.
// Project site: https://github.com/photonlab/hardware
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package fungen

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photonlab/hardware/units"
)

// testBus is an in-memory stand-in for an instrument connection. Canned
// responses are served in order; everything written is recorded.
type testBus struct {
	wrote bytes.Buffer
	resp  *strings.Reader
}

func newTestBus(responses ...string) *testBus {
	return &testBus{resp: strings.NewReader(strings.Join(responses, ""))}
}

func (b *testBus) Write(p []byte) (int, error) { return b.wrote.Write(p) }
func (b *testBus) Read(p []byte) (int, error)  { return b.resp.Read(p) }

func (b *testBus) lines() []string {
	s := strings.TrimRight(b.wrote.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func TestAgilent33250ASetFrequency(t *testing.T) {
	bus := newTestBus("SIN\n")
	awg := NewAgilent33250A(bus)
	require.NoError(t, awg.SetFrequency(1000))
	assert.Equal(t, []string{"FUNC?", "FREQ 1000"}, bus.lines())
}

func TestAgilent33250AFrequencyLimits(t *testing.T) {
	tests := []struct {
		name     string
		waveform string
		hz       float64
	}{
		{"below minimum", "SIN", 1e-9},
		{"sine too fast", "SIN", 100e6},
		{"square too fast", "SQU", 81e6},
		{"pulse too slow", "PULS", 100e-6},
		{"pulse too fast", "PULS", 60e6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := newTestBus(tt.waveform + "\n")
			awg := NewAgilent33250A(bus)
			assert.Error(t, awg.SetFrequency(tt.hz))
			// Only the waveform query should have gone out.
			assert.Equal(t, []string{"FUNC?"}, bus.lines())
		})
	}
}

func TestAgilent33250APhase(t *testing.T) {
	bus := newTestBus("DEG\n", "45\n")
	awg := NewAgilent33250A(bus)
	phase, unit, err := awg.Phase()
	require.NoError(t, err)
	assert.Equal(t, 45.0, phase)
	assert.Equal(t, units.Degrees, unit)

	bus = newTestBus()
	awg = NewAgilent33250A(bus)
	require.NoError(t, awg.SetPhase(90))
	assert.Equal(t, []string{"UNIT:ANGL DEG", "PHAS 90"}, bus.lines())
}

func TestAgilent33250AOutput(t *testing.T) {
	bus := newTestBus("1\n")
	awg := NewAgilent33250A(bus)
	on, err := awg.Output()
	require.NoError(t, err)
	assert.True(t, on)

	require.NoError(t, awg.SetOutput(false))
	assert.Equal(t, []string{"OUTPUT?", "OUTPUT OFF"}, bus.lines())
}

func TestAgilent33250AUpload(t *testing.T) {
	bus := newTestBus()
	awg := NewAgilent33250A(bus)
	require.NoError(t, awg.UploadAs([]float64{0, 0.5, -1}, "PULSEWAVEFORM"))
	assert.Equal(t, []string{
		"DATA VOLATILE, 0, 0.5, -1",
		"DATA:COPY PULSEWAVEFORM",
	}, bus.lines())

	assert.Error(t, awg.Upload([]float64{0, 1.5}))
	assert.Error(t, awg.Upload(nil))
}

func TestAgilent33250ASetWaveform(t *testing.T) {
	bus := newTestBus()
	awg := NewAgilent33250A(bus)
	require.NoError(t, awg.SetWaveform(Square))
	assert.Error(t, awg.SetWaveform(Waveform("SAWTOOTH")))
	assert.Equal(t, []string{"FUNC SQU"}, bus.lines())
}

func TestSRSDS345Waveform(t *testing.T) {
	bus := newTestBus("0\n")
	gen := NewSRSDS345(bus)
	wf, err := gen.Waveform()
	require.NoError(t, err)
	assert.Equal(t, Sine, wf)

	require.NoError(t, gen.SetWaveform(Square))
	assert.Equal(t, []string{"FUNC?", "FUNC 1"}, bus.lines())
}

func TestSRSDS345Voltage(t *testing.T) {
	bus := newTestBus("1.00VP\n")
	gen := NewSRSDS345(bus)
	v, err := gen.Voltage()
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)

	require.NoError(t, gen.SetVoltage(2.5))
	assert.Equal(t, []string{"AMPL?", "AMPL 2.5VP"}, bus.lines())
}

func TestSRSDS345FrequencyLimits(t *testing.T) {
	// Frequency is untouchable while the noise waveform is active.
	bus := newTestBus("4\n")
	gen := NewSRSDS345(bus)
	assert.Error(t, gen.SetFrequency(1000))

	// Ramps cap out at 100 kHz.
	bus = newTestBus("3\n")
	gen = NewSRSDS345(bus)
	assert.Error(t, gen.SetFrequency(200e3))

	bus = newTestBus("0\n")
	gen = NewSRSDS345(bus)
	require.NoError(t, gen.SetFrequency(10e6))
	assert.Equal(t, []string{"FUNC?", "FREQ 1E+07"}, bus.lines())
}

func TestSRSDS345Phase(t *testing.T) {
	bus := newTestBus("0\n")
	gen := NewSRSDS345(bus)
	require.NoError(t, gen.SetPhase(-90))
	assert.Equal(t, []string{"FUNC?", "PHSE -90"}, bus.lines())

	bus = newTestBus("0\n")
	gen = NewSRSDS345(bus)
	assert.Error(t, gen.SetPhase(400))

	bus = newTestBus("4\n")
	gen = NewSRSDS345(bus)
	assert.Error(t, gen.SetPhase(10))
}

func TestHP33120ASetFrequency(t *testing.T) {
	bus := newTestBus("SIN\n")
	gen := NewHP33120A(bus)
	assert.Error(t, gen.SetFrequency(20e6))

	bus = newTestBus("SIN\n")
	gen = NewHP33120A(bus)
	assert.Error(t, gen.SetFrequency(50e-6))

	bus = newTestBus("SIN\n")
	gen = NewHP33120A(bus)
	require.NoError(t, gen.SetFrequency(1e6))
	assert.Equal(t, []string{"FUNC?", "FREQ 1E+06"}, bus.lines())
}

func TestHP33120APhase(t *testing.T) {
	bus := newTestBus()
	gen := NewHP33120A(bus)
	require.NoError(t, gen.SetPhase(1.5))
	assert.Equal(t, []string{"PHAS 1.5"}, bus.lines())

	assert.Error(t, gen.SetPhase(7))
}
