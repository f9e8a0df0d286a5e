// Copyright (c) 2026 The photonlab hardware developers. All rights reserved.
// Project site: https://github.com/photonlab/hardware
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package ldd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
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

func TestCurrent(t *testing.T) {
	bus := newTestBus("85.2\n")
	drv := NewILXLightwave3724B(bus)
	ma, err := drv.Current()
	require.NoError(t, err)
	assert.Equal(t, 85.2, ma)
	assert.Equal(t, []string{"LAS:LDI?"}, bus.lines())
}

func TestSetCurrent(t *testing.T) {
	bus := newTestBus("0\n")
	drv := NewILXLightwave3724B(bus)
	require.NoError(t, drv.SetCurrent(90.5))
	assert.Equal(t, []string{"LAS:LDI 90.5", "ERR?"}, bus.lines())

	assert.Error(t, drv.SetCurrent(-1))
}

func TestSetCurrentReportsInstrumentError(t *testing.T) {
	bus := newTestBus("201\n")
	drv := NewILXLightwave3724B(bus)
	err := drv.SetCurrent(5000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "laser current limit")
}

func TestOutput(t *testing.T) {
	bus := newTestBus("1\n")
	drv := NewILXLightwave3724B(bus)
	on, err := drv.Output()
	require.NoError(t, err)
	assert.True(t, on)

	require.NoError(t, drv.SetOutput(false))
	assert.Equal(t, []string{"LAS:OUT?", "LAS:OUT 0"}, bus.lines())
}

func TestErrorsCombinesQueue(t *testing.T) {
	bus := newTestBus("105,403\n")
	drv := NewILXLightwave3724B(bus)
	err := drv.Errors()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)

	bus = newTestBus("0\n")
	drv = NewILXLightwave3724B(bus)
	assert.NoError(t, drv.Errors())
}

func TestDriverErrorString(t *testing.T) {
	assert.Contains(t, DriverError{Code: 403}.Error(), "interlock open")
	assert.Contains(t, DriverError{Code: 999}.Error(), "unknown")
}
