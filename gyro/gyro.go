// Copyright (c) 2026 The photonlab hardware developers. All rights reserved.
// Project site: https://github.com/photonlab/hardware
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package gyro automates characterization of fiber optic gyroscopes. A
// Gyro ties together the three instruments every test needs: the lock-in
// amplifier demodulating the interferometer output, the rotation stage
// the coil is mounted on, and the DAQ that records the lock-in output.
package gyro

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/stat"

	"github.com/photonlab/hardware/daq"
	"github.com/photonlab/hardware/units"
)

// Lockin is the lock-in amplifier surface the gyro tests use.
// *lockin.SR844 implements it.
type Lockin interface {
	Sensitivity() (float64, error)
	SetSensitivity(vrms float64) error
	TimeConstant() (float64, error)
	SetTimeConstant(seconds float64) error
	Autophase() error
}

// Stage is the rotation stage surface the gyro tests use. Moves block
// until the stage settles. *rotation.Client implements it.
type Stage interface {
	Angle(ctx context.Context) (float64, error)
	MoveTo(ctx context.Context, deg float64) error
	CW(ctx context.Context, deg float64) error
	CCW(ctx context.Context, deg float64) error
	Velocity(ctx context.Context) (float64, error)
	SetVelocity(ctx context.Context, degPerSec float64) error
}

// DAQ is the acquisition surface the gyro tests use. *daq.DAQ
// implements it.
type DAQ interface {
	Read(ctx context.Context, seconds float64, opts ...daq.ReadOption) ([]float64, error)
}

// Calibration defaults, used when neither the caller nor the spec file
// supplies a value.
const (
	defaultCalSensitivity = 0.3  // V
	defaultAutophaseSens  = 0.03 // V
	defaultCalVelocity    = 1.0  // deg/s
	calTimeConstant       = 0.01 // s
	calReadSeconds        = 3.0
)

// Gyro runs characterization tests against one fiber optic gyro.
type Gyro struct {
	Spec Spec

	lia   Lockin
	stage Stage
	daq   DAQ
	log   *logrus.Entry

	// spinup is how long to let the stage reach constant velocity
	// before trusting the lock-in output.
	spinup time.Duration
}

// Option configures a Gyro.
type Option func(*Gyro)

// WithSpinup overrides the stage spin-up allowance used during
// calibration moves.
func WithSpinup(d time.Duration) Option {
	return func(g *Gyro) { g.spinup = d }
}

// New assembles a gyro test rig from its instruments.
func New(spec Spec, lia Lockin, stage Stage, acq DAQ, opts ...Option) *Gyro {
	g := &Gyro{
		Spec:   spec,
		lia:    lia,
		stage:  stage,
		daq:    acq,
		log:    logrus.WithField("gyro", spec.Name),
		spinup: time.Second,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.log.Info("gyro loaded")
	return g
}

// Home returns the stage to the zero position. The home position should
// be aligned to rotational east or west so the gyro sees no component of
// the earth rate there.
func (g *Gyro) Home(ctx context.Context) error {
	return g.stage.MoveTo(ctx, 0)
}

// CalOption adjusts a calibration.
type CalOption func(*calConfig)

type calConfig struct {
	sensitivity float64
	velocity    float64
	pitch       float64
	pitchSet    bool
}

// WithSensitivity sets the lock-in sensitivity in volts used during the
// calibration.
func WithSensitivity(vrms float64) CalOption {
	return func(c *calConfig) { c.sensitivity = vrms }
}

// WithVelocity sets the stage velocity in deg/s used during the
// calibration.
func WithVelocity(degPerSec float64) CalOption {
	return func(c *calConfig) { c.velocity = degPerSec }
}

// WithPitch overrides the pitch angle in degrees between the coil normal
// and the stage normal.
func WithPitch(deg float64) CalOption {
	return func(c *calConfig) { c.pitch = deg; c.pitchSet = true }
}

// Autophase rotates the stage slowly and runs the lock-in's autophase
// routine mid-move, so the whole rotation signal lands in the X
// quadrature. The lock-in sensitivity, stage velocity, and stage
// position are restored afterwards.
func (g *Gyro) Autophase(ctx context.Context, opts ...CalOption) (err error) {
	cfg := calConfig{sensitivity: defaultAutophaseSens, velocity: defaultCalVelocity}
	for _, opt := range opts {
		opt(&cfg)
	}

	prevSens, err := g.lia.Sensitivity()
	if err != nil {
		return err
	}
	prevVel, err := g.stage.Velocity(ctx)
	if err != nil {
		return err
	}
	startAngle, err := g.stage.Angle(ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err,
			g.lia.SetSensitivity(prevSens),
			g.stage.SetVelocity(ctx, prevVel),
			g.stage.MoveTo(ctx, startAngle))
	}()

	if err := g.lia.SetSensitivity(cfg.sensitivity); err != nil {
		return err
	}
	if err := g.stage.SetVelocity(ctx, cfg.velocity); err != nil {
		return err
	}

	move := g.backgroundMove(ctx, g.stage.CCW, 2)
	if err := g.sleep(ctx, g.spinup); err != nil {
		return multierr.Append(err, <-move)
	}
	if err := g.lia.Autophase(); err != nil {
		return multierr.Append(err, <-move)
	}
	if err := <-move; err != nil {
		return err
	}
	g.log.Info("autophase complete")
	return nil
}

// ScaleFactor calibrates the conversion between lock-in output volts and
// rotation rate. The stage is slewed counterclockwise and then clockwise
// at a known rate while the DAQ records the lock-in output; the mean
// response difference gives the scale factor S in deg/h per volt, with
// rate(t) = S * volts(t).
func (g *Gyro) ScaleFactor(ctx context.Context, opts ...CalOption) (sf float64, err error) {
	cfg := calConfig{
		sensitivity: g.Spec.Sensitivity,
		velocity:    defaultCalVelocity,
		pitch:       g.Spec.Pitch,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.sensitivity == 0 {
		cfg.sensitivity = defaultCalSensitivity
	}

	prevSens, err := g.lia.Sensitivity()
	if err != nil {
		return 0, err
	}
	prevTC, err := g.lia.TimeConstant()
	if err != nil {
		return 0, err
	}
	prevVel, err := g.stage.Velocity(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		err = multierr.Combine(err,
			g.lia.SetSensitivity(prevSens),
			g.lia.SetTimeConstant(prevTC),
			g.stage.SetVelocity(ctx, prevVel))
	}()

	if err := g.lia.SetSensitivity(cfg.sensitivity); err != nil {
		return 0, err
	}
	if err := g.lia.SetTimeConstant(calTimeConstant); err != nil {
		return 0, err
	}
	if err := g.stage.SetVelocity(ctx, cfg.velocity); err != nil {
		return 0, err
	}
	rate := math.Floor(1 / calTimeConstant)

	// The slew covers the spin-up allowance plus the recording window.
	sweep := cfg.velocity * 4.5

	ccwMean, err := g.slewAndRecord(ctx, g.stage.CCW, sweep, rate)
	if err != nil {
		return 0, err
	}
	cwMean, err := g.slewAndRecord(ctx, g.stage.CW, sweep, rate)
	if err != nil {
		return 0, err
	}

	voltSecondsPerDegree := (ccwMean - cwMean) / 2 /
		math.Cos(units.DegToRad(cfg.pitch)) / cfg.velocity
	if voltSecondsPerDegree == 0 {
		return 0, errors.New("no rotation response: CW and CCW means are identical")
	}
	sf = 1 / (voltSecondsPerDegree / 3600)
	g.log.WithField("deg_per_hour_per_volt", sf).Info("scale factor calibrated")
	return sf, nil
}

// slewAndRecord starts a background slew, waits out the spin-up, and
// returns the mean lock-in voltage over the recording window.
func (g *Gyro) slewAndRecord(ctx context.Context, slew func(context.Context, float64) error, deg, rate float64) (float64, error) {
	move := g.backgroundMove(ctx, slew, deg)
	if err := g.sleep(ctx, g.spinup); err != nil {
		return 0, multierr.Append(err, <-move)
	}
	data, err := g.daq.Read(ctx, calReadSeconds, daq.WithRate(rate))
	if err != nil {
		return 0, multierr.Append(err, <-move)
	}
	if err := <-move; err != nil {
		return 0, err
	}
	return stat.Mean(data, nil), nil
}

// backgroundMove starts a blocking stage move in its own goroutine and
// returns the channel its error will arrive on.
func (g *Gyro) backgroundMove(ctx context.Context, slew func(context.Context, float64) error, deg float64) <-chan error {
	done := make(chan error, 1)
	go func() { done <- slew(ctx, deg) }()
	return done
}

func (g *Gyro) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RunOption adjusts a tombstone or ARW run.
type RunOption func(*runConfig)

type runConfig struct {
	rate        float64
	scaleFactor float64
	autophase   bool
	home        bool
}

// WithRate sets the output sample rate in Hz.
func WithRate(hz float64) RunOption {
	return func(c *runConfig) { c.rate = hz }
}

// WithScaleFactor supplies a known scale factor in deg/h per volt,
// skipping the calibration slews.
func WithScaleFactor(s float64) RunOption {
	return func(c *runConfig) { c.scaleFactor = s }
}

// WithAutophase runs the autophase routine before recording.
func WithAutophase() RunOption {
	return func(c *runConfig) { c.autophase = true }
}

// WithoutHoming skips the return to the home position before recording.
func WithoutHoming() RunOption {
	return func(c *runConfig) { c.home = false }
}

// resolveScaleFactor picks the scale factor for a run: the caller's,
// else the spec file's, else a fresh calibration.
func (g *Gyro) resolveScaleFactor(ctx context.Context, cfg *runConfig) (float64, error) {
	if cfg.scaleFactor != 0 {
		return cfg.scaleFactor, nil
	}
	if g.Spec.ScaleFactor != 0 {
		return g.Spec.ScaleFactor, nil
	}
	return g.ScaleFactor(ctx)
}

// Tombstone records the gyro output with no rotation applied. The data
// measures the noise and bias stability of the gyro.
func (g *Gyro) Tombstone(ctx context.Context, duration time.Duration, opts ...RunOption) (*Run, error) {
	if duration <= 0 {
		return nil, errors.New("cannot test for 0 seconds")
	}
	cfg := runConfig{rate: 10, home: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.home {
		if err := g.Home(ctx); err != nil {
			return nil, err
		}
	}
	if cfg.autophase {
		if err := g.Autophase(ctx); err != nil {
			return nil, err
		}
	}
	sf, err := g.resolveScaleFactor(ctx, &cfg)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	data, err := g.daq.Read(ctx, duration.Seconds(), daq.WithRate(cfg.rate))
	if err != nil {
		return nil, err
	}
	g.log.WithFields(logrus.Fields{
		"duration": duration,
		"samples":  len(data),
	}).Info("tombstone run complete")
	return &Run{
		Gyro:        g.Spec.Name,
		Start:       start,
		Rate:        cfg.rate,
		ScaleFactor: sf,
		Volts:       data,
	}, nil
}

// ARW measures the angular random walk in deg/sqrt(h) from a short
// tombstone recording at a high sample rate.
func (g *Gyro) ARW(ctx context.Context, duration time.Duration, opts ...RunOption) (float64, error) {
	// ARW needs bandwidth; default to 100 Hz unless the caller overrides.
	run, err := g.Tombstone(ctx, duration, append([]RunOption{WithRate(100)}, opts...)...)
	if err != nil {
		return 0, err
	}
	return run.ARW()
}
