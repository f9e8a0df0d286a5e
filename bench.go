// Copyright (c) 2026 The photonlab hardware developers. All rights reserved.
// Project site: https://github.com/photonlab/hardware
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package hardware ties the instrument drivers together into a bench.
// A bench file maps instrument roles to VISA-style resource strings;
// the registry dials them on demand, probes identities with *IDN?, and
// hands back the right driver for whatever is plugged in.
package hardware

import (
	"encoding/json"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/jsonc"
	"go.uber.org/multierr"

	"github.com/photonlab/hardware/daq"
	"github.com/photonlab/hardware/fungen"
	"github.com/photonlab/hardware/gyro"
	"github.com/photonlab/hardware/ldd"
	"github.com/photonlab/hardware/lockin"
	"github.com/photonlab/hardware/optpower"
	"github.com/photonlab/hardware/rotation"
	"github.com/photonlab/hardware/scope"
	"github.com/photonlab/hardware/scpi"
	"github.com/photonlab/hardware/specan"
	"github.com/photonlab/hardware/visa"
)

// Instrument roles a bench file can assign.
const (
	RoleAWG    = "awg"   // function generator
	RoleLockin = "lia"   // lock-in amplifier
	RoleOSA    = "osa"   // optical spectrum analyzer
	RoleRFSA   = "rfsa"  // RF spectrum analyzer
	RoleScope  = "scope" // oscilloscope
	RolePower  = "pwr"   // optical power meter
	RoleLDD    = "ldd"   // laser diode driver
	RoleDAQ    = "daq"   // data acquisition unit
)

// Config is a bench file: instrument roles mapped to VISA resource
// strings, plus the rotation stage server and the default gyro spec
// file. Bench files are JSON with // comments allowed.
type Config struct {
	Instruments    map[string]string `json:"instruments"`
	RotationServer string            `json:"rotation_server,omitempty"`
	GyroSpec       string            `json:"gyro,omitempty"`
}

// LoadConfig reads the bench file at path, or the one named by the
// BENCH_FILE environment variable when path is empty. A .env file in
// the working directory is loaded first; ROTATION_STAGE_SERVER and
// DEFAULT_GYRO override the corresponding file entries.
func LoadConfig(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Config{Instruments: map[string]string{}}
	if path == "" {
		path = os.Getenv("BENCH_FILE")
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrap(err, "reading bench file")
		}
		if err := json.Unmarshal(jsonc.ToJSON(raw), &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parsing bench file %s", path)
		}
		if cfg.Instruments == nil {
			cfg.Instruments = map[string]string{}
		}
	}
	if s := os.Getenv("ROTATION_STAGE_SERVER"); s != "" {
		cfg.RotationServer = s
	}
	if g := os.Getenv("DEFAULT_GYRO"); g != "" {
		cfg.GyroSpec = g
	}
	return cfg, nil
}

// Bench dials instruments lazily and caches the connections, so a CLI
// command touching one instrument doesn't stall opening seven.
type Bench struct {
	Config Config

	open  func(resource string) (io.ReadWriteCloser, error)
	conns map[string]io.ReadWriteCloser
	log   *logrus.Entry
}

// Option configures a Bench.
type Option func(*Bench)

// WithOpener replaces the resource dialer. Tests use it to hand the
// bench fake connections.
func WithOpener(open func(resource string) (io.ReadWriteCloser, error)) Option {
	return func(b *Bench) { b.open = open }
}

// New builds a bench registry over cfg. Nothing is dialed until an
// instrument is asked for.
func New(cfg Config, opts ...Option) *Bench {
	b := &Bench{
		Config: cfg,
		open:   visa.Open,
		conns:  map[string]io.ReadWriteCloser{},
		log:    logrus.WithField("component", "bench"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// connect returns the cached connection for role, dialing it first if
// needed.
func (b *Bench) connect(role string) (io.ReadWriteCloser, error) {
	if conn, ok := b.conns[role]; ok {
		return conn, nil
	}
	resource, ok := b.Config.Instruments[role]
	if !ok {
		return nil, errors.Errorf("no %q instrument on this bench", role)
	}
	conn, err := b.open(resource)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing %s (%s)", role, resource)
	}
	b.log.WithFields(logrus.Fields{"role": role, "resource": resource}).Info("instrument connected")
	b.conns[role] = conn
	return conn, nil
}

// Close closes every connection the bench has dialed.
func (b *Bench) Close() error {
	var err error
	for role, conn := range b.conns {
		err = multierr.Append(err, errors.Wrapf(conn.Close(), "closing %s", role))
		delete(b.conns, role)
	}
	return err
}

// Probe sends *IDN? to every configured instrument and returns the
// identities by role. Instruments that fail to answer are reported in
// the combined error; the rest still appear in the map.
func (b *Bench) Probe() (map[string]scpi.Identity, error) {
	roles := make([]string, 0, len(b.Config.Instruments))
	for role := range b.Config.Instruments {
		roles = append(roles, role)
	}
	sort.Strings(roles)

	ids := make(map[string]scpi.Identity, len(roles))
	var err error
	for _, role := range roles {
		conn, cerr := b.connect(role)
		if cerr != nil {
			err = multierr.Append(err, cerr)
			continue
		}
		id, qerr := scpi.NewClient(conn).Identify()
		if qerr != nil {
			err = multierr.Append(err, errors.Wrapf(qerr, "probing %s", role))
			continue
		}
		ids[role] = id
	}
	return ids, err
}

// AWG returns the function generator, picking the driver by the model
// reported in *IDN?.
func (b *Bench) AWG() (fungen.FunctionGenerator, error) {
	conn, err := b.connect(RoleAWG)
	if err != nil {
		return nil, err
	}
	id, err := scpi.NewClient(conn).Identify()
	if err != nil {
		return nil, errors.Wrap(err, "identifying function generator")
	}
	switch {
	case strings.Contains(id.Model, "33250"):
		return fungen.NewAgilent33250A(conn), nil
	case strings.Contains(id.Model, "DS345"):
		return fungen.NewSRSDS345(conn), nil
	case strings.Contains(id.Model, "33120"):
		return fungen.NewHP33120A(conn), nil
	}
	return nil, errors.Errorf("unsupported function generator: %s", id)
}

// Lockin returns the SR844 lock-in amplifier.
func (b *Bench) Lockin() (*lockin.SR844, error) {
	conn, err := b.connect(RoleLockin)
	if err != nil {
		return nil, err
	}
	return lockin.NewSR844(conn), nil
}

// OSA returns the ANDO optical spectrum analyzer.
func (b *Bench) OSA() (*specan.ANDOAQ6317B, error) {
	conn, err := b.connect(RoleOSA)
	if err != nil {
		return nil, err
	}
	return specan.NewANDOAQ6317B(conn), nil
}

// RFSA returns the Rohde & Schwarz RF spectrum analyzer.
func (b *Bench) RFSA() (*specan.RohdeSchwarzFSEA20, error) {
	conn, err := b.connect(RoleRFSA)
	if err != nil {
		return nil, err
	}
	return specan.NewRohdeSchwarzFSEA20(conn), nil
}

// Scope returns the DSO1024A oscilloscope.
func (b *Bench) Scope() (*scope.DSO1024A, error) {
	conn, err := b.connect(RoleScope)
	if err != nil {
		return nil, err
	}
	return scope.NewDSO1024A(conn), nil
}

// Power returns the Newport optical power meter.
func (b *Bench) Power() (*optpower.Newport1830C, error) {
	conn, err := b.connect(RolePower)
	if err != nil {
		return nil, err
	}
	return optpower.NewNewport1830C(conn), nil
}

// LDD returns the ILX laser diode driver.
func (b *Bench) LDD() (*ldd.ILXLightwave3724B, error) {
	conn, err := b.connect(RoleLDD)
	if err != nil {
		return nil, err
	}
	return ldd.NewILXLightwave3724B(conn), nil
}

// DAQ returns the data acquisition unit. When a lock-in is also on the
// bench it is wired in, so reads default their rate and scale to the
// lock-in's time constant and sensitivity.
func (b *Bench) DAQ() (*daq.DAQ, error) {
	conn, err := b.connect(RoleDAQ)
	if err != nil {
		return nil, err
	}
	var opts []daq.Option
	if _, ok := b.Config.Instruments[RoleLockin]; ok {
		lia, err := b.Lockin()
		if err != nil {
			return nil, err
		}
		opts = append(opts, daq.WithLockin(lia))
	}
	return daq.New(conn, opts...), nil
}

// Rotation returns a client for the rotation stage server.
func (b *Bench) Rotation() (*rotation.Client, error) {
	if b.Config.RotationServer == "" {
		return nil, errors.New("no rotation stage server configured; set ROTATION_STAGE_SERVER")
	}
	return rotation.NewClient(b.Config.RotationServer), nil
}

// Gyro assembles the gyro test rig: the configured spec file plus the
// bench's lock-in, rotation stage, and DAQ.
func (b *Bench) Gyro(opts ...gyro.Option) (*gyro.Gyro, error) {
	if b.Config.GyroSpec == "" {
		return nil, errors.New("no gyro spec configured; set DEFAULT_GYRO")
	}
	spec, err := gyro.LoadSpec(b.Config.GyroSpec)
	if err != nil {
		return nil, err
	}
	lia, err := b.Lockin()
	if err != nil {
		return nil, err
	}
	stage, err := b.Rotation()
	if err != nil {
		return nil, err
	}
	acq, err := b.DAQ()
	if err != nil {
		return nil, err
	}
	return gyro.New(spec, lia, stage, acq, opts...), nil
}
