// Copyright (c) 2026 The photonlab hardware developers. All rights reserved.
// Project site: https://github.com/photonlab/hardware
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package scpi

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/gotmc/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockBus records writes and replays canned responses, in the style of the
// instrument mocks used throughout this module's driver tests.
type mockBus struct {
	wrote bytes.Buffer
	resp  *bytes.Reader
}

func newMockBus(responses string) *mockBus {
	return &mockBus{resp: bytes.NewReader([]byte(responses))}
}

func (m *mockBus) Write(b []byte) (int, error) { return m.wrote.Write(b) }

func (m *mockBus) Read(b []byte) (int, error) {
	if m.resp.Len() == 0 {
		return 0, io.EOF
	}
	return m.resp.Read(b)
}

func (m *mockBus) sent() []string {
	s := strings.TrimRight(m.wrote.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func TestCommandTrimsAndTerminates(t *testing.T) {
	bus := newMockBus("")
	c := NewClient(bus)
	require.NoError(t, c.Command("  FREQ %g  ", 1e6))
	assert.Equal(t, "FREQ 1e+06\n", bus.wrote.String())
}

func TestQueryStripsTerminator(t *testing.T) {
	bus := newMockBus("2.500000E+03\r\n")
	c := NewClient(bus)
	got, err := c.Query("FREQ?")
	require.NoError(t, err)
	assert.Equal(t, "2.500000E+03", got)
	assert.Equal(t, []string{"FREQ?"}, bus.sent())
}

func TestQueryAcceptsEOFTerminatedResponse(t *testing.T) {
	// Instruments that assert EOI without a trailing newline.
	bus := newMockBus("OK")
	c := NewClient(bus)
	got, err := c.Query("STAT?")
	require.NoError(t, err)
	assert.Equal(t, "OK", got)
}

func TestClientIsQuerier(t *testing.T) {
	bus := newMockBus("1.000000E+03\n42\n1\n")
	c := NewClient(bus)

	f, err := query.Float64(c, "FREQ?")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, f)

	i, err := query.Int(c, "SENS?")
	require.NoError(t, err)
	assert.Equal(t, 42, i)

	b, err := query.Bool(c, "OUTP?")
	require.NoError(t, err)
	assert.True(t, b)
}

func TestInstrumentErrorClean(t *testing.T) {
	bus := newMockBus("+0,\"No error\"\n")
	c := NewClient(bus, WithErrorQuery("SYST:ERR?"))
	require.NoError(t, c.InstrumentError())
	assert.Equal(t, []string{"SYST:ERR?;*CLS"}, bus.sent())
}

func TestInstrumentErrorReported(t *testing.T) {
	bus := newMockBus("-113,\"Undefined header\"\n")
	c := NewClient(bus, WithErrorQuery("SYST:ERR?"))
	err := c.InstrumentError()
	require.Error(t, err)
	var ie InstrumentError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, -113, ie.Code)
	assert.Contains(t, ie.Message, "Undefined header")
}

func TestCheckedCommand(t *testing.T) {
	bus := newMockBus("-222,\"Data out of range\"\n")
	c := NewClient(bus, WithErrorQuery("SYST:ERR?"))
	err := c.CheckedCommand("SOUR:VOLT %f", 1e6)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Data out of range")
}

func TestParseIdentity(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Identity
	}{
		{
			"agilent awg",
			"Agilent Technologies,33250A,0,2.01-1.01-2.00-03-2",
			Identity{"Agilent Technologies", "33250A", "0", "2.01-1.01-2.00-03-2"},
		},
		{
			"srs lockin",
			"Stanford_Research_Systems,SR844,s/n48713,ver1.006",
			Identity{"Stanford_Research_Systems", "SR844", "s/n48713", "ver1.006"},
		},
		{
			"ando osa with crlf",
			"ANDO,AQ6317B,00113576,MR02.10  OR02.07\r\n",
			Identity{"ANDO", "AQ6317B", "00113576", "MR02.10  OR02.07"},
		},
		{
			"short response",
			"NEWPORT,1830-C",
			Identity{Manufacturer: "NEWPORT", Model: "1830-C"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseIdentity(tt.raw))
		})
	}
}

func TestIdentify(t *testing.T) {
	bus := newMockBus("ILX Lightwave,3724B,37243817,4.8\n")
	c := NewClient(bus)
	id, err := c.Identify()
	require.NoError(t, err)
	assert.Equal(t, "ILX Lightwave", id.Manufacturer)
	assert.Equal(t, "3724B", id.Model)
}

// timeoutBus is a mockBus whose read window can be adjusted, like a
// serial port.
type timeoutBus struct {
	mockBus
	window time.Duration
}

func (b *timeoutBus) SetReadTimeout(d time.Duration) error {
	b.window = d
	return nil
}

// deadlineBus is a mockBus with a read deadline, like a net.Conn.
type deadlineBus struct {
	mockBus
	deadlines []time.Time
}

func (b *deadlineBus) SetReadDeadline(t time.Time) error {
	b.deadlines = append(b.deadlines, t)
	return nil
}

func TestSetTimeoutSerial(t *testing.T) {
	bus := &timeoutBus{}
	c := NewClient(bus)
	require.NoError(t, c.SetTimeout(30*time.Second))
	assert.Equal(t, 30*time.Second, bus.window)
}

func TestSetTimeoutNetwork(t *testing.T) {
	bus := &deadlineBus{}
	bus.resp = bytes.NewReader([]byte("ok\nok\n"))
	c := NewClient(bus)
	require.NoError(t, c.SetTimeout(10*time.Second))

	before := time.Now()
	_, err := c.Query("SGL?")
	require.NoError(t, err)
	_, err = c.Query("SGL?")
	require.NoError(t, err)

	// A fresh deadline is armed for every read.
	require.Len(t, bus.deadlines, 2)
	for _, d := range bus.deadlines {
		assert.True(t, d.After(before.Add(9*time.Second)))
	}
}

func TestSetTimeoutRejected(t *testing.T) {
	c := NewClient(newMockBus(""))
	assert.Error(t, c.SetTimeout(time.Second), "plain stream has no adjustable window")

	bus := &timeoutBus{}
	assert.Error(t, NewClient(bus).SetTimeout(0))
}
