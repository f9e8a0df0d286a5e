// Copyright (c) 2026 The photonlab hardware developers. All rights reserved.
// Project site: https://github.com/photonlab/hardware
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package find

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSysfs builds a /sys-shaped tree with one USB tty and one
// platform (non-USB) tty, returning the class/tty dir to walk.
func fakeSysfs(t *testing.T, descriptors map[string]string) string {
	t.Helper()
	root := t.TempDir()

	// USB device: descriptors at 1-3, serial interface at 1-3/1-3:1.0.
	usbDev := filepath.Join(root, "devices", "pci0000:00", "usb1", "1-3")
	iface := filepath.Join(usbDev, "1-3:1.0")
	ttyDir := filepath.Join(iface, "tty", "ttyUSB0")
	require.NoError(t, os.MkdirAll(ttyDir, 0o755))
	for name, val := range descriptors {
		require.NoError(t, os.WriteFile(filepath.Join(usbDev, name), []byte(val+"\n"), 0o644))
	}
	require.NoError(t, os.Symlink(iface, filepath.Join(ttyDir, "device")))

	// Platform serial port, no usb in its path.
	platTTY := filepath.Join(root, "devices", "platform", "serial8250", "tty", "ttyS0")
	require.NoError(t, os.MkdirAll(platTTY, 0o755))

	classTTY := filepath.Join(root, "class", "tty")
	require.NoError(t, os.MkdirAll(classTTY, 0o755))
	require.NoError(t, os.Symlink(ttyDir, filepath.Join(classTTY, "ttyUSB0")))
	require.NoError(t, os.Symlink(platTTY, filepath.Join(classTTY, "ttyS0")))
	return classTTY
}

func TestUsbTtys(t *testing.T) {
	classTTY := fakeSysfs(t, map[string]string{
		"idVendor":     "0403",
		"idProduct":    "6001",
		"manufacturer": "Prologix",
		"product":      "GPIB-USB Controller",
		"serial":       "PX9A8XYZ",
	})

	ttys, err := usbTtys(classTTY)
	require.NoError(t, err)
	require.Len(t, ttys, 1, "platform tty should be skipped")

	ut := ttys[0]
	assert.Equal(t, "ttyUSB0", ut.Dev)
	assert.Equal(t, "0403", ut.IDv)
	assert.Equal(t, "6001", ut.IDp)
	assert.Equal(t, "Prologix", ut.Mfg)
	assert.Equal(t, "GPIB-USB Controller", ut.Prod)
	assert.Equal(t, "PX9A8XYZ", ut.Serial)
	assert.True(t, PrologixFilter(&ut))
}

func TestUsbTtysMissingDescriptors(t *testing.T) {
	classTTY := fakeSysfs(t, map[string]string{"idVendor": "1a86"})

	ttys, err := usbTtys(classTTY)
	require.NoError(t, err)
	require.Len(t, ttys, 1)
	assert.Equal(t, "1a86", ttys[0].IDv)
	assert.Empty(t, ttys[0].Serial)
}

func TestPick(t *testing.T) {
	ttys := []Usbtty{
		{Dev: "ttyUSB0", IDv: "0403", Prod: "GPIB-USB Controller", Serial: "A1"},
		{Dev: "ttyUSB1", IDv: "1a86", Prod: "USB Serial", Serial: "B2"},
	}

	dev, err := pick(ttys, SerialFilter("B2"))
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB1", dev)

	dev, err = pick(ttys, PrologixFilter)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", dev)

	_, err = pick(ttys, nil)
	assert.Error(t, err, "two candidates and no filter is ambiguous")

	_, err = pick(ttys, SerialFilter("nope"))
	assert.Error(t, err)

	dev, err = pick(ttys[:1], nil)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", dev)
}

func TestVendorAndProductFilters(t *testing.T) {
	ut := Usbtty{IDv: "0403", Prod: "NSC-A1 Controller"}
	assert.True(t, VendorFilter("0403")(&ut))
	assert.False(t, VendorFilter("1a86")(&ut))
	assert.True(t, ProductFilter("NSC-A1")(&ut))
	assert.False(t, PrologixFilter(&ut))
}
