// Copyright (c) 2026 The photonlab hardware developers. All rights reserved.
// Project site: https://github.com/photonlab/hardware
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package lockin

import (
	"bytes"
	"context"
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

func TestSensitivity(t *testing.T) {
	bus := newTestBus("5\n")
	lia := NewSR844(bus)
	v, err := lia.Sensitivity()
	require.NoError(t, err)
	assert.Equal(t, 30e-6, v)

	require.NoError(t, lia.SetSensitivity(100e-3))
	assert.Equal(t, []string{"SENS?", "SENS 12"}, bus.lines())

	assert.Error(t, lia.SetSensitivity(42e-3))
}

func TestSensitivityDBm(t *testing.T) {
	bus := newTestBus("0\n")
	lia := NewSR844(bus)
	dbm, err := lia.SensitivityDBm()
	require.NoError(t, err)
	assert.Equal(t, -127.0, dbm)
}

func TestTimeConstant(t *testing.T) {
	bus := newTestBus("8\n")
	lia := NewSR844(bus)
	tc, err := lia.TimeConstant()
	require.NoError(t, err)
	assert.Equal(t, 1.0, tc)

	require.NoError(t, lia.SetTimeConstant(100e-3))
	assert.Equal(t, []string{"OFLT?", "OFLT 6"}, bus.lines())

	assert.Error(t, lia.SetTimeConstant(2.5))
}

func TestPhase(t *testing.T) {
	bus := newTestBus("-12.5\n")
	lia := NewSR844(bus)
	phase, err := lia.Phase()
	require.NoError(t, err)
	assert.Equal(t, -12.5, phase)

	require.NoError(t, lia.SetPhase(90))
	assert.Error(t, lia.SetPhase(400))
	assert.Equal(t, []string{"PHAS?", "PHAS 90"}, bus.lines())
}

func TestOutputs(t *testing.T) {
	bus := newTestBus("1.5E-6\n", "-2.5E-7\n", "1.52E-6\n")
	lia := NewSR844(bus)

	x, err := lia.X()
	require.NoError(t, err)
	assert.InDelta(t, 1.5e-6, x, 1e-12)

	y, err := lia.Y()
	require.NoError(t, err)
	assert.InDelta(t, -2.5e-7, y, 1e-12)

	r, err := lia.R()
	require.NoError(t, err)
	assert.InDelta(t, 1.52e-6, r, 1e-12)

	assert.Equal(t, []string{"OUTP?1", "OUTP?2", "OUTP?3"}, bus.lines())
}

func TestAutogainWaits(t *testing.T) {
	// Two busy polls, then done.
	bus := newTestBus("1\n", "1\n", "0\n")
	lia := NewSR844(bus)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, lia.Autogain(ctx))
	assert.Equal(t, []string{"AGAN", "*STB?1", "*STB?1", "*STB?1"}, bus.lines())
}

func TestAutogainContextExpiry(t *testing.T) {
	bus := newTestBus("1\n", "1\n", "1\n", "1\n", "1\n")
	lia := NewSR844(bus)
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	assert.Error(t, lia.Autogain(ctx))
}

func TestAutophase(t *testing.T) {
	bus := newTestBus()
	lia := NewSR844(bus)
	require.NoError(t, lia.Autophase())
	assert.Equal(t, []string{"APHS"}, bus.lines())
}

func TestStatusBits(t *testing.T) {
	bus := newTestBus("17\n") // ULK + INP
	lia := NewSR844(bus)
	st, err := lia.Status()
	require.NoError(t, err)
	assert.True(t, st.ReferenceUnlocked())
	assert.True(t, st.InputOverload())
	assert.False(t, st.FilterOverload())
	assert.Equal(t, "ULK|INP", st.String())
	assert.Len(t, st.Describe(), 2)

	assert.Equal(t, "ok", Status(0).String())
}
