// Copyright (c) 2026 The photonlab hardware developers. All rights reserved.
// Project site: https://github.com/photonlab/hardware
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package specan

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

func TestANDOSpectrum(t *testing.T) {
	bus := newTestBus(
		"1001,3,-62.10,-62.55,-63.00\r\n",
		"1001,3,1549.9980,1550.0000,1550.0020\r\n",
	)
	osa := NewANDOAQ6317B(bus)
	spec, err := osa.Spectrum()
	require.NoError(t, err)

	assert.Equal(t, []string{"LDATB", "WDATB"}, bus.lines())
	assert.Equal(t, []float64{-62.10, -62.55, -63.00}, spec.Power)
	assert.Equal(t, []float64{1549.9980, 1550.0000, 1550.0020}, spec.Wavelength)
}

func TestANDOSpectrumLengthMismatch(t *testing.T) {
	bus := newTestBus(
		"1001,2,-62.10,-62.55\r\n",
		"1001,3,1549.9980,1550.0000,1550.0020\r\n",
	)
	osa := NewANDOAQ6317B(bus)
	_, err := osa.Spectrum()
	assert.Error(t, err)
}

func TestANDOSweepControls(t *testing.T) {
	bus := newTestBus()
	osa := NewANDOAQ6317B(bus)
	require.NoError(t, osa.Single())
	require.NoError(t, osa.Repeat())
	require.NoError(t, osa.Stop())
	assert.Equal(t, []string{"SGL", "RPT", "STP"}, bus.lines())
}

func TestFSEA20Frequencies(t *testing.T) {
	bus := newTestBus("1.0E+07\n")
	rfsa := NewRohdeSchwarzFSEA20(bus)
	start, err := rfsa.Start()
	require.NoError(t, err)
	assert.Equal(t, 1.0e7, start)

	require.NoError(t, rfsa.SetCenter(12e6))
	require.NoError(t, rfsa.SetSpan(100))
	require.NoError(t, rfsa.SetResolutionBandwidth(10e3))
	assert.Error(t, rfsa.SetStop(-1))

	assert.Equal(t, []string{
		"FREQ:STAR?",
		"FREQ:CENT 1.2E+07",
		"FREQ:SPAN 100",
		"BAND:RES 10000",
	}, bus.lines())
}

func TestFSEA20Trace(t *testing.T) {
	bus := newTestBus(
		"1.0E+07\n", // FREQ:STAR?
		"1.4E+07\n", // FREQ:STOP?
		"-80.1,-80.3,-42.7,-80.2,-80.0\n",
	)
	rfsa := NewRohdeSchwarzFSEA20(bus)
	trace, err := rfsa.Trace()
	require.NoError(t, err)

	assert.Equal(t, []string{"FREQ:STAR?", "FREQ:STOP?", "TRAC? TRACE1"}, bus.lines())
	require.Len(t, trace.Frequency, 5)
	assert.InDelta(t, 1.0e7, trace.Frequency[0], 1e-6)
	assert.InDelta(t, 1.2e7, trace.Frequency[2], 1e-6)
	assert.InDelta(t, 1.4e7, trace.Frequency[4], 1e-6)
	assert.Equal(t, -42.7, trace.Power[2])
}

// timeoutBus is a testBus with a serial-style adjustable read window.
type timeoutBus struct {
	testBus
	window time.Duration
}

func (b *timeoutBus) SetReadTimeout(d time.Duration) error {
	b.window = d
	return nil
}

func TestSetTimeout(t *testing.T) {
	bus := &timeoutBus{}
	osa := NewANDOAQ6317B(bus)
	require.NoError(t, osa.SetTimeout(30*time.Second))
	assert.Equal(t, 30*time.Second, bus.window)

	rf := NewRohdeSchwarzFSEA20(&timeoutBus{})
	require.NoError(t, rf.SetTimeout(time.Minute))
}
