// Copyright (c) 2026 The photonlab hardware developers. All rights reserved.
// Project site: https://github.com/photonlab/hardware
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package find locates USB serial devices through /sys/class/tty, so
// benches can address a Prologix adapter or rotation stage by what it is
// instead of by a /dev name that changes across reboots.
package find

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Usbtty describes one USB serial device found under /sys/class/tty.
type Usbtty struct {
	Dev    string // device name, e.g. ttyUSB0
	Path   string // resolved /sys device path
	IDp    string // USB product ID
	IDv    string // USB vendor ID
	Mfg    string
	Prod   string
	Serial string
}

func (u Usbtty) String() string {
	return "dev " + u.Dev + " pid/vid " + u.IDp + "/" + u.IDv +
		" mfg/prod " + u.Mfg + "/" + u.Prod + " serial " + u.Serial
}

// Filter narrows a device search.
type Filter func(*Usbtty) bool

// SerialFilter matches a device by its USB serial number string.
func SerialFilter(serial string) Filter {
	return func(ut *Usbtty) bool { return ut.Serial == serial }
}

// VendorFilter matches a device by USB vendor ID, e.g. "0403" for FTDI.
func VendorFilter(idv string) Filter {
	return func(ut *Usbtty) bool { return ut.IDv == idv }
}

// ProductFilter matches a device whose product string contains s.
func ProductFilter(s string) Filter {
	return func(ut *Usbtty) bool { return strings.Contains(ut.Prod, s) }
}

// PrologixFilter matches the FTDI bridge on a Prologix GPIB-USB adapter.
func PrologixFilter(ut *Usbtty) bool {
	return ut.IDv == "0403" && strings.Contains(ut.Prod, "GPIB")
}

// Find returns the /dev path of the single USB serial device matching
// filter. A nil filter accepts everything; an ambiguous match is an
// error, not a guess.
func Find(filter Filter) (string, error) {
	ttys, err := AllUsbTtys()
	if err != nil {
		return "", err
	}
	return pick(ttys, filter)
}

func pick(ttys []Usbtty, filter Filter) (string, error) {
	if filter != nil {
		matched := ttys[:0]
		for i := range ttys {
			if filter(&ttys[i]) {
				matched = append(matched, ttys[i])
			}
		}
		ttys = matched
	}
	switch len(ttys) {
	case 0:
		return "", errors.New("no matching USB serial devices found")
	case 1:
		return "/dev/" + ttys[0].Dev, nil
	default:
		return "", errors.Errorf("%d USB serial devices match, need exactly one", len(ttys))
	}
}

// AllUsbTtys lists every USB serial device on the system.
func AllUsbTtys() ([]Usbtty, error) {
	return usbTtys("/sys/class/tty")
}

// usbTtys walks the tty class directory. Each entry is a symlink into
// /sys/devices; USB-backed ttys resolve to a path containing "usb", and
// the USB descriptors live one level above the interface directory the
// tty's device link points at.
func usbTtys(classTTY string) ([]Usbtty, error) {
	entries, err := os.ReadDir(classTTY)
	if err != nil {
		return nil, errors.Wrap(err, "reading tty class dir")
	}
	var devs []Usbtty
	for _, e := range entries {
		if e.Type()&fs.ModeSymlink == 0 {
			continue
		}
		abs, err := filepath.EvalSymlinks(filepath.Join(classTTY, e.Name()))
		if err != nil {
			logrus.WithError(err).WithField("tty", e.Name()).Debug("skipping unresolvable tty")
			continue
		}
		if !strings.Contains(abs, "usb") {
			continue
		}
		iface, err := filepath.EvalSymlinks(filepath.Join(abs, "device"))
		if err != nil {
			logrus.WithError(err).WithField("tty", e.Name()).Debug("usb tty without device link")
			continue
		}
		ut := Usbtty{Dev: e.Name(), Path: abs}
		ut.readDescriptors(filepath.Dir(iface))
		devs = append(devs, ut)
	}
	return devs, nil
}

// readDescriptors fills in the USB descriptor strings from the device
// directory. Missing files are left empty; not every device exports a
// serial number.
func (u *Usbtty) readDescriptors(dir string) {
	read := func(name string) string {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(b))
	}
	u.IDp = read("idProduct")
	u.IDv = read("idVendor")
	u.Mfg = read("manufacturer")
	u.Prod = read("product")
	u.Serial = read("serial")
}
